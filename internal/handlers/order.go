package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/patisso/patisso/internal/httpx"
	"github.com/patisso/patisso/internal/models"
	"github.com/patisso/patisso/internal/repository"
	"github.com/patisso/patisso/internal/services"
)

// OrderHandler exposes the order status machine: transitions and the
// append-only history.
type OrderHandler struct {
	Svc *services.OrderService
}

func NewOrderHandler(svc *services.OrderService) *OrderHandler {
	return &OrderHandler{Svc: svc}
}

type transitionReq struct {
	OrderID string `json:"order_id"`
	Status  string `json:"status"`
	Actor   string `json:"actor"`
	Message string `json:"message"`
}

// UpdateStatus: POST /orders/status
func (h *OrderHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	var req transitionReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.InvalidJSON(w)
		return
	}
	if req.OrderID == "" || req.Status == "" {
		httpx.ValidationFailed(w, "missing_field", "order_id and status are required")
		return
	}
	if req.Actor == "" {
		req.Actor = models.ActorVendor
	}
	order, err := h.Svc.Transition(r.Context(), req.OrderID, req.Status, req.Actor, req.Message)
	if err != nil {
		var terr *services.TransitionError
		if errors.As(err, &terr) {
			httpx.Error(w, http.StatusConflict, "illegal_transition", map[string]string{"from": terr.From, "to": terr.To})
			return
		}
		if errors.Is(err, repository.ErrStatusConflict) {
			httpx.Error(w, http.StatusConflict, "status_conflict", map[string]string{"message": "order status changed concurrently, retry"})
			return
		}
		if errors.Is(err, repository.ErrNotFound) {
			httpx.NotFound(w)
			return
		}
		slog.Error("order transition failed", "order_id", req.OrderID, "error", err)
		httpx.Internal(w)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"order_id": order.ID, "status": order.Status})
}

type historyEntry struct {
	Seq       int       `json:"seq"`
	Status    string    `json:"status"`
	Message   string    `json:"message,omitempty"`
	Actor     string    `json:"actor"`
	Timestamp time.Time `json:"timestamp"`
}

// History: GET /orders/history?id=...
func (h *OrderHandler) History(w http.ResponseWriter, r *http.Request) {
	orderID := r.URL.Query().Get("id")
	if orderID == "" {
		httpx.Error(w, http.StatusBadRequest, "missing_id", nil)
		return
	}
	history, err := h.Svc.History(r.Context(), orderID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			httpx.NotFound(w)
			return
		}
		slog.Error("order history failed", "order_id", orderID, "error", err)
		httpx.Internal(w)
		return
	}
	entries := make([]historyEntry, 0, len(history))
	for _, rec := range history {
		entries = append(entries, historyEntry{
			Seq:       rec.Seq,
			Status:    rec.Status,
			Message:   rec.Message,
			Actor:     rec.Actor,
			Timestamp: rec.CreatedAt,
		})
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"order_id": orderID, "history": entries})
}
