package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/patisso/patisso/internal/httpx"
	"github.com/patisso/patisso/internal/metrics"
	"github.com/patisso/patisso/internal/repository"
	"github.com/patisso/patisso/internal/services"
)

// WebhookHandler receives payment gateway link events and reconciles the
// owning co-payment directly, so settlement does not depend on a client
// staying connected to poll.
type WebhookHandler struct {
	Svc *services.SplitPaymentService
}

func NewWebhookHandler(svc *services.SplitPaymentService) *WebhookHandler {
	return &WebhookHandler{Svc: svc}
}

type gatewayEvent struct {
	Event  string `json:"event"`
	LinkID string `json:"link_id"`
	Status string `json:"status"`
}

// Handle: POST /webhooks/payment-gateway
//
// The provider retries undelivered webhooks, and reconciliation is
// idempotent, so replays are harmless. Unknown link ids get a 200 to stop
// pointless retries for links this platform never issued.
func (h *WebhookHandler) Handle(w http.ResponseWriter, r *http.Request) {
	var evt gatewayEvent
	if err := json.NewDecoder(r.Body).Decode(&evt); err != nil {
		metrics.WebhookEvents.WithLabelValues("malformed").Inc()
		httpx.InvalidJSON(w)
		return
	}
	if evt.LinkID == "" {
		metrics.WebhookEvents.WithLabelValues("malformed").Inc()
		httpx.Error(w, http.StatusBadRequest, "missing_link_id", nil)
		return
	}
	status, err := h.Svc.ApplyGatewayEvent(r.Context(), evt.LinkID, evt.Status)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			metrics.WebhookEvents.WithLabelValues("unknown_link").Inc()
			slog.Warn("webhook for unknown payment link", "link_id", evt.LinkID)
			httpx.JSON(w, http.StatusOK, map[string]string{"status": "ignored"})
			return
		}
		metrics.WebhookEvents.WithLabelValues("error").Inc()
		slog.Error("webhook reconciliation failed", "link_id", evt.LinkID, "error", err)
		httpx.Internal(w)
		return
	}
	metrics.WebhookEvents.WithLabelValues("ok").Inc()
	httpx.JSON(w, http.StatusOK, status)
}
