package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/patisso/patisso/internal/models"
	"github.com/patisso/patisso/internal/repository"
)

// OrderService is the transition-validation and history-append contract
// for order status changes. The vendor-facing UI is out of scope; any
// caller mutating an order status goes through Transition.
type OrderService struct {
	orders repository.OrderRepository
}

func NewOrderService(orders repository.OrderRepository) *OrderService {
	return &OrderService{orders: orders}
}

// Transition moves an order to the next status after validating the move
// against the lifecycle: one step along pending -> confirmed -> preparing
// -> ready -> picked_up -> out_for_delivery -> delivered, or a side-exit
// to cancelled from any non-terminal state. Every applied transition
// appends an immutable history entry.
func (s *OrderService) Transition(ctx context.Context, orderID, next, actor, message string) (*models.Order, error) {
	if !models.ValidOrderStatus(next) {
		return nil, fmt.Errorf("unknown order status %q", next)
	}
	// The repository's compare-and-set guards the write against the status
	// validated here. A conflict means the order moved between read and
	// write; re-validate against the fresh state and try once more.
	for attempt := 0; attempt < 2; attempt++ {
		order, err := s.orders.GetByID(ctx, orderID)
		if err != nil {
			return nil, err
		}
		if !models.CanTransition(order.Status, next) {
			return nil, &TransitionError{From: order.Status, To: next}
		}
		err = s.orders.UpdateStatus(ctx, orderID, order.Status, next, actor, message)
		if errors.Is(err, repository.ErrStatusConflict) {
			slog.Warn("order status moved during transition, re-validating",
				"order_id", orderID, "validated_from", order.Status, "to", next)
			continue
		}
		if err != nil {
			return nil, err
		}
		slog.Info("order status updated",
			"order_id", orderID, "from", order.Status, "to", next, "actor", actor)
		return s.orders.GetByID(ctx, orderID)
	}
	return nil, repository.ErrStatusConflict
}

// History returns the order's append-only status record.
func (s *OrderService) History(ctx context.Context, orderID string) ([]models.StatusHistory, error) {
	return s.orders.History(ctx, orderID)
}

// Get returns an order with items and history.
func (s *OrderService) Get(ctx context.Context, orderID string) (*models.Order, error) {
	return s.orders.GetByID(ctx, orderID)
}
