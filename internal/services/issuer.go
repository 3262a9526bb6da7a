package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
	"gorm.io/datatypes"

	"github.com/patisso/patisso/internal/gateway"
	"github.com/patisso/patisso/internal/metrics"
	"github.com/patisso/patisso/internal/models"
	"github.com/patisso/patisso/internal/notify"
)

// CreateSplitPayment validates a split-payment request, issues one
// payment link per contributor, and persists the co-payment ledger.
//
// Link issuance is all-or-nothing: if any contributor's link fails, the
// whole request fails and no ledger is persisted; callers retry the
// entire request. Notification dispatch happens after persistence and is
// best-effort.
func (s *SplitPaymentService) CreateSplitPayment(ctx context.Context, input CreateSplitPaymentInput) (*CreateSplitPaymentResult, error) {
	if err := s.validate(input); err != nil {
		return nil, err
	}

	currency := input.Currency
	if currency == "" {
		currency = s.policy.Currency
	}

	snapshot, err := models.EncodeSnapshot(input.Snapshot)
	if err != nil {
		return nil, fmt.Errorf("encode order snapshot: %w", err)
	}

	cp := &models.CoPayment{
		ID:            newID(),
		TotalAmount:   input.TotalAmount,
		Currency:      currency,
		Status:        models.CoPaymentPending,
		OrderSnapshot: datatypes.JSON(snapshot),
	}

	// One link per contributor, created concurrently. Any failure cancels
	// the rest of the batch and aborts the request before persistence.
	links := make([]*gateway.Link, len(input.Contributors))
	g, gctx := errgroup.WithContext(ctx)
	for i, contributor := range input.Contributors {
		i, contributor := i, contributor
		g.Go(func() error {
			link, err := s.gateway.CreateLink(gctx, gateway.CreateLinkRequest{
				Amount:        contributor.Amount,
				Currency:      currency,
				Reference:     fmt.Sprintf("copay:%s:%d", cp.ID, i),
				CustomerEmail: contributor.Email,
				CustomerName:  contributor.Name,
			})
			if err != nil {
				return &GatewayError{Op: "create_link", Err: err}
			}
			links[i] = link
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		metrics.GatewayErrors.WithLabelValues("create_link").Inc()
		for i, link := range links {
			if link != nil {
				// links that did get created are left to expire at the provider
				slog.Warn("abandoning payment link after batch failure",
					"co_payment_id", cp.ID, "link_id", link.ID, "position", i)
			}
		}
		return nil, err
	}

	for i, contributor := range input.Contributors {
		cp.Contributors = append(cp.Contributors, models.Contributor{
			ID:             newID(),
			Email:          contributor.Email,
			Name:           contributor.Name,
			Amount:         contributor.Amount,
			Status:         models.ContributorPending,
			PaymentLinkID:  links[i].ID,
			PaymentLinkURL: links[i].ShortURL,
		})
	}

	if err := s.ledger.Create(ctx, cp); err != nil {
		return nil, err
	}
	metrics.SplitPaymentsCreated.Inc()
	metrics.PaymentLinksIssued.Add(float64(len(links)))
	slog.Info("split payment created",
		"co_payment_id", cp.ID,
		"total", cp.TotalAmount.StringFixed(2),
		"currency", cp.Currency,
		"contributors", len(cp.Contributors),
	)

	s.dispatchLinks(ctx, cp)

	result := &CreateSplitPaymentResult{CoPaymentID: cp.ID, Status: cp.Status}
	for _, ct := range cp.Contributors {
		result.Links = append(result.Links, IssuedLink{
			ID:     ct.PaymentLinkID,
			URL:    ct.PaymentLinkURL,
			Email:  ct.Email,
			Amount: ct.Amount,
			Status: models.ContributorPending,
		})
	}
	return result, nil
}

// dispatchLinks emails each contributor their link. Failures are logged
// and never propagate: the contributor can still pay through the link.
func (s *SplitPaymentService) dispatchLinks(ctx context.Context, cp *models.CoPayment) {
	for _, ct := range cp.Contributors {
		err := s.notify.SendPaymentLink(ctx, notify.PaymentLinkEmail{
			Email:       ct.Email,
			Name:        ct.Name,
			LinkURL:     ct.PaymentLinkURL,
			Amount:      ct.Amount,
			Currency:    cp.Currency,
			CoPaymentID: cp.ID,
		})
		if err != nil {
			slog.Error("payment link notification failed",
				"co_payment_id", cp.ID, "email", ct.Email, "error", err)
		}
	}
}

func (s *SplitPaymentService) validate(input CreateSplitPaymentInput) error {
	n := len(input.Contributors)
	if n < MinContributors || n > MaxContributors {
		return &ValidationError{
			Reason:  ReasonContributorCount,
			Message: fmt.Sprintf("contributor count must be between %d and %d, got %d", MinContributors, MaxContributors, n),
		}
	}
	if input.TotalAmount.LessThan(s.policy.MinTotal) {
		return &ValidationError{
			Reason:  ReasonBelowMinimum,
			Message: fmt.Sprintf("total %s is below the %s minimum for split payments", input.TotalAmount.StringFixed(2), s.policy.MinTotal.StringFixed(2)),
		}
	}
	sum := decimal.Zero
	for _, ct := range input.Contributors {
		if ct.Email == "" {
			return &ValidationError{Reason: ReasonMissingEmail, Message: "every contributor needs an email"}
		}
		if !ct.Amount.IsPositive() {
			return &ValidationError{
				Reason:  ReasonInvalidAmount,
				Message: fmt.Sprintf("contributor %s amount must be positive", ct.Email),
			}
		}
		sum = sum.Add(ct.Amount)
	}
	if sum.Sub(input.TotalAmount).Abs().GreaterThan(amountTolerance) {
		return &ValidationError{
			Reason:  ReasonAmountMismatch,
			Message: fmt.Sprintf("contributor amounts sum to %s, total is %s", sum.StringFixed(2), input.TotalAmount.StringFixed(2)),
		}
	}
	if len(input.Snapshot.Items) == 0 || input.Snapshot.VendorID == "" {
		return &ValidationError{Reason: ReasonEmptySnapshot, Message: "order snapshot needs a vendor and at least one item"}
	}
	return nil
}
