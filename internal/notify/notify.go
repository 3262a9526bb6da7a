// Package notify delivers payment links to contributors. Delivery is
// best-effort: a contributor whose email never arrives can still pay
// through the link, so dispatch failures are logged and never propagated
// as failures of the contribution itself.
package notify

import (
	"context"
	"log/slog"

	"github.com/shopspring/decimal"
)

// PaymentLinkEmail is one contributor's share notice.
type PaymentLinkEmail struct {
	Email       string
	Name        string
	LinkURL     string
	Amount      decimal.Decimal
	Currency    string
	CoPaymentID string
}

// Dispatcher sends payment links to contributors.
type Dispatcher interface {
	SendPaymentLink(ctx context.Context, email PaymentLinkEmail) error
}

// LogDispatcher logs instead of sending. It stands in until an email
// provider integration is configured and keeps development noise-free.
type LogDispatcher struct{}

var _ Dispatcher = LogDispatcher{}

func (LogDispatcher) SendPaymentLink(_ context.Context, email PaymentLinkEmail) error {
	slog.Info("payment link notification",
		"email", email.Email,
		"co_payment_id", email.CoPaymentID,
		"amount", email.Amount.StringFixed(2),
		"currency", email.Currency,
		"url", email.LinkURL,
	)
	return nil
}
