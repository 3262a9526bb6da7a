// Package gateway adapts the externally hosted payment-link provider.
// The provider issues one short-lived payment page per link; the platform
// only ever learns "paid or not" by querying the link back.
package gateway

import (
	"context"

	"github.com/shopspring/decimal"
)

// Link statuses as reported by the provider.
const (
	LinkPending = "pending"
	LinkPaid    = "paid"
	LinkFailed  = "failed"
	LinkExpired = "expired"
)

// Link is a hosted payment link.
type Link struct {
	ID       string
	ShortURL string
	Status   string
}

// CreateLinkRequest describes one payment link to issue. Reference ties
// the link back to the co-payment that owns it.
type CreateLinkRequest struct {
	Amount        decimal.Decimal
	Currency      string
	Reference     string
	CustomerEmail string
	CustomerName  string
}

// Client is the outbound interface to the payment-link provider.
// Implementations must honor ctx deadlines; a timed-out call is a failed
// call, never a hang.
type Client interface {
	CreateLink(ctx context.Context, req CreateLinkRequest) (*Link, error)
	GetLink(ctx context.Context, id string) (*Link, error)
}

// PaidStatus reports whether a provider status string counts as paid.
// Providers spell it differently across API versions.
func PaidStatus(status string) bool {
	switch status {
	case LinkPaid, "success", "completed":
		return true
	}
	return false
}

// FailedStatus reports whether a provider status string is a terminal
// failure: the link can no longer be paid.
func FailedStatus(status string) bool {
	switch status {
	case LinkFailed, LinkExpired, "canceled", "cancelled":
		return true
	}
	return false
}
