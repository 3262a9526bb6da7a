package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/patisso/patisso/internal/gateway"
	"github.com/patisso/patisso/internal/metrics"
	"github.com/patisso/patisso/internal/models"
)

// GetStatus returns the reconciled view of a co-payment, addressed by id
// or by the order it settled into.
//
// With live=true each still-pending contributor's link is queried at the
// gateway under a bounded timeout; a failed query degrades to that
// contributor's stored status and never fails the call. The merge is
// monotonic: paid wins over anything, and nothing ever regresses paid
// back to pending. Discovered transitions are persisted before returning
// and settlement is attempted when all contributors have paid, so
// calling this repeatedly with no new external state is idempotent.
func (s *SplitPaymentService) GetStatus(ctx context.Context, ref StatusRef, live bool) (*SplitPaymentStatus, error) {
	cp, err := s.resolve(ctx, ref)
	if err != nil {
		return nil, err
	}

	if live && cp.Status == models.CoPaymentPending {
		if changed := s.refreshFromGateway(ctx, cp); changed {
			if cp, err = s.ledger.GetByID(ctx, cp.ID); err != nil {
				return nil, err
			}
		}
	}

	if cp.Status == models.CoPaymentPending && cp.Paid() {
		orderID, _, err := s.Settle(ctx, cp)
		if err != nil {
			return nil, err
		}
		if cp, err = s.ledger.GetByID(ctx, cp.ID); err != nil {
			return nil, err
		}
		slog.Debug("co-payment settled during status check", "co_payment_id", cp.ID, "order_id", orderID)
	}

	return statusView(cp), nil
}

// ApplyGatewayEvent reconciles a single webhook event: the provider
// reports a link's status change. Paid events mark the owning contributor
// paid (monotonically) and attempt settlement; terminal failed or expired
// links mark the contributor failed, under the same pending-only guard.
// Anything else (still pending, provider-internal states) is ignored.
func (s *SplitPaymentService) ApplyGatewayEvent(ctx context.Context, linkID, status string) (*SplitPaymentStatus, error) {
	cp, err := s.ledger.GetByPaymentLinkID(ctx, linkID)
	if err != nil {
		return nil, err
	}
	if !gateway.PaidStatus(status) && !gateway.FailedStatus(status) {
		slog.Debug("ignoring non-terminal gateway event",
			"co_payment_id", cp.ID, "link_id", linkID, "status", status)
		return statusView(cp), nil
	}

	for _, ct := range cp.Contributors {
		if ct.PaymentLinkID != linkID || ct.Status != models.ContributorPending {
			continue
		}
		if gateway.PaidStatus(status) {
			if err := s.ledger.MarkContributorsPaid(ctx, []string{ct.ID}, time.Now().UTC()); err != nil {
				return nil, err
			}
			slog.Info("contributor paid via webhook",
				"co_payment_id", cp.ID, "email", ct.Email, "link_id", linkID)
		} else {
			if err := s.ledger.MarkContributorsFailed(ctx, []string{ct.ID}); err != nil {
				return nil, err
			}
			slog.Warn("contributor link failed via webhook",
				"co_payment_id", cp.ID, "email", ct.Email, "link_id", linkID, "status", status)
		}
		break
	}

	return s.GetStatus(ctx, StatusRef{CoPaymentID: cp.ID}, false)
}

// ReconcileUnsettled live-reconciles every pending co-payment, for the
// periodic sweep. Errors on individual ledgers are logged and skipped so
// one bad record cannot stall the sweep.
func (s *SplitPaymentService) ReconcileUnsettled(ctx context.Context, limit int) (int, error) {
	ids, err := s.ledger.ListUnsettledIDs(ctx, limit)
	if err != nil {
		return 0, err
	}
	reconciled := 0
	for _, id := range ids {
		if ctx.Err() != nil {
			return reconciled, ctx.Err()
		}
		if _, err := s.GetStatus(ctx, StatusRef{CoPaymentID: id}, true); err != nil {
			slog.Error("sweep reconciliation failed", "co_payment_id", id, "error", err)
			continue
		}
		reconciled++
	}
	return reconciled, nil
}

func (s *SplitPaymentService) resolve(ctx context.Context, ref StatusRef) (*models.CoPayment, error) {
	switch {
	case ref.CoPaymentID != "":
		return s.ledger.GetByID(ctx, ref.CoPaymentID)
	case ref.LinkedOrderID != "":
		return s.ledger.GetByLinkedOrderID(ctx, ref.LinkedOrderID)
	default:
		return nil, fmt.Errorf("status ref needs a co-payment id or a linked order id")
	}
}

// refreshFromGateway queries each pending contributor's link and persists
// the pending->paid and pending->failed transitions it discovers. Reports
// whether anything changed. Per-contributor query failures fall back to
// stored state.
func (s *SplitPaymentService) refreshFromGateway(ctx context.Context, cp *models.CoPayment) bool {
	var paidIDs, failedIDs []string
	for _, ct := range cp.Contributors {
		if ct.Status != models.ContributorPending {
			continue
		}
		callCtx, cancel := context.WithTimeout(ctx, s.gatewayTimeout)
		link, err := s.gateway.GetLink(callCtx, ct.PaymentLinkID)
		cancel()
		if err != nil {
			metrics.GatewayErrors.WithLabelValues("get_link").Inc()
			slog.Warn("gateway status query failed, keeping stored status",
				"co_payment_id", cp.ID, "link_id", ct.PaymentLinkID, "error", err)
			continue
		}
		switch {
		case gateway.PaidStatus(link.Status):
			paidIDs = append(paidIDs, ct.ID)
		case gateway.FailedStatus(link.Status):
			failedIDs = append(failedIDs, ct.ID)
		}
	}
	changed := false
	if len(paidIDs) > 0 {
		if err := s.ledger.MarkContributorsPaid(ctx, paidIDs, time.Now().UTC()); err != nil {
			slog.Error("persisting paid transitions failed", "co_payment_id", cp.ID, "error", err)
		} else {
			slog.Info("contributors reconciled to paid", "co_payment_id", cp.ID, "count", len(paidIDs))
			changed = true
		}
	}
	if len(failedIDs) > 0 {
		if err := s.ledger.MarkContributorsFailed(ctx, failedIDs); err != nil {
			slog.Error("persisting failed transitions failed", "co_payment_id", cp.ID, "error", err)
		} else {
			slog.Warn("contributor links reconciled to failed", "co_payment_id", cp.ID, "count", len(failedIDs))
			changed = true
		}
	}
	return changed
}
