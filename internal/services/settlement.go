package services

import (
	"context"
	"fmt"
	"log/slog"

	"gorm.io/gorm"

	"github.com/patisso/patisso/internal/metrics"
	"github.com/patisso/patisso/internal/models"
)

// Settle materializes the order for a fully funded co-payment exactly
// once.
//
// Already-settled ledgers are a no-op returning the existing order id.
// Otherwise the order creation and the ledger's completed transition run
// as one transaction guarded by a compare-and-set on linked_order_id:
// when two reconciliations observe "all paid" at the same time, one wins
// and creates the order, the other detects the claimed id, rolls its
// order back, and returns the winner's id. A storage failure rolls back
// both writes, so the ledger is never completed without a linked order.
func (s *SplitPaymentService) Settle(ctx context.Context, cp *models.CoPayment) (orderID string, created bool, err error) {
	if cp.LinkedOrderID != nil {
		return *cp.LinkedOrderID, false, nil
	}
	if cp.Status == models.CoPaymentCompleted {
		// completed without a linked order cannot be produced by this
		// service; treat it as corrupt rather than settling twice
		return "", false, fmt.Errorf("co-payment %s completed without linked order", cp.ID)
	}
	if !cp.Paid() {
		return "", false, fmt.Errorf("co-payment %s is not fully funded", cp.ID)
	}

	snap, err := models.DecodeSnapshot(cp.OrderSnapshot)
	if err != nil {
		return "", false, err
	}

	orderID, created, err = s.ledger.ClaimSettlement(ctx, cp.ID, func(tx *gorm.DB) (string, error) {
		order, err := s.orders.CreateFromSnapshot(
			tx, snap, cp.TotalAmount, cp.Currency,
			models.ActorSettlement,
			fmt.Sprintf("Order created from completed split payment %s", cp.ID),
		)
		if err != nil {
			return "", err
		}
		return order.ID, nil
	})
	if err != nil {
		return "", false, err
	}
	if created {
		metrics.SettlementsCompleted.Inc()
		slog.Info("co-payment settled",
			"co_payment_id", cp.ID,
			"order_id", orderID,
			"total", cp.TotalAmount.StringFixed(2),
		)
	} else {
		slog.Debug("settlement already claimed by concurrent caller",
			"co_payment_id", cp.ID, "order_id", orderID)
	}
	return orderID, created, nil
}
