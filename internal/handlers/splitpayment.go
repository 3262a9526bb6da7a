package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/patisso/patisso/internal/httpx"
	"github.com/patisso/patisso/internal/repository"
	"github.com/patisso/patisso/internal/services"
)

// SplitPaymentHandler exposes the split-payment core over HTTP.
type SplitPaymentHandler struct {
	Svc *services.SplitPaymentService
}

func NewSplitPaymentHandler(svc *services.SplitPaymentService) *SplitPaymentHandler {
	return &SplitPaymentHandler{Svc: svc}
}

// Create: POST /split-payments
func (h *SplitPaymentHandler) Create(w http.ResponseWriter, r *http.Request) {
	var input services.CreateSplitPaymentInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		httpx.InvalidJSON(w)
		return
	}
	result, err := h.Svc.CreateSplitPayment(r.Context(), input)
	if err != nil {
		var verr *services.ValidationError
		if errors.As(err, &verr) {
			httpx.ValidationFailed(w, verr.Reason, verr.Message)
			return
		}
		var gerr *services.GatewayError
		if errors.As(err, &gerr) {
			// nothing was persisted; the whole request is retryable
			httpx.Error(w, http.StatusBadGateway, "gateway_unavailable", map[string]string{"message": "payment link creation failed, try again"})
			return
		}
		slog.Error("create split payment failed", "error", err)
		httpx.Internal(w)
		return
	}
	httpx.JSON(w, http.StatusCreated, result)
}

// Status: GET /split-payments/status?id=...|order_id=...&live=true|false
func (h *SplitPaymentHandler) Status(w http.ResponseWriter, r *http.Request) {
	ref := services.StatusRef{
		CoPaymentID:   r.URL.Query().Get("id"),
		LinkedOrderID: r.URL.Query().Get("order_id"),
	}
	if ref.CoPaymentID == "" && ref.LinkedOrderID == "" {
		httpx.Error(w, http.StatusBadRequest, "missing_reference", map[string]string{"message": "pass id or order_id"})
		return
	}
	live := true
	if v := r.URL.Query().Get("live"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			live = b
		}
	}
	status, err := h.Svc.GetStatus(r.Context(), ref, live)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			httpx.NotFound(w)
			return
		}
		slog.Error("split payment status failed", "error", err)
		httpx.Internal(w)
		return
	}
	httpx.JSON(w, http.StatusOK, status)
}
