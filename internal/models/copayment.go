package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// CoPayment statuses. A co-payment is monotonic: once completed it never
// reverts to pending.
const (
	CoPaymentPending   = "pending"
	CoPaymentCompleted = "completed"
)

// Contributor statuses. "paid" is terminal and must never be overwritten.
const (
	ContributorPending = "pending"
	ContributorPaid    = "paid"
	ContributorFailed  = "failed"
)

// CoPayment is the ledger record for one split-payment request: an order
// whose total is jointly funded by 2-3 contributors, each paying through
// an externally hosted payment link. It is never deleted (financial audit
// record). The embedded order snapshot is used to materialize the real
// order exactly once, when every contributor has paid.
type CoPayment struct {
	ID          string          `gorm:"primaryKey;size:36"`
	TotalAmount decimal.Decimal `gorm:"type:numeric(12,2);not null"`
	Currency    string          `gorm:"size:8;not null"`
	// pending or completed; completed iff every contributor is paid.
	Status       string        `gorm:"size:16;not null;index"`
	Contributors []Contributor `gorm:"foreignKey:CoPaymentID"`
	// Versioned snapshot of the order-to-be-created, captured at request
	// time and immutable thereafter. See models.OrderSnapshot.
	OrderSnapshot datatypes.JSON `gorm:"not null"`
	// Set exactly once by settlement; one-to-one with the materialized order.
	LinkedOrderID *string `gorm:"size:36;uniqueIndex"`
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Contributor is one of the 2-3 parties owing a fixed share of a
// co-payment's total. Amount and PaymentLinkID are fixed at creation;
// PaidAt is set exactly once, on the transition into paid.
type Contributor struct {
	ID          string          `gorm:"primaryKey;size:36"`
	CoPaymentID string          `gorm:"size:36;not null;index"`
	Email       string          `gorm:"size:255;not null"`
	Name        string          `gorm:"size:255"`
	Amount      decimal.Decimal `gorm:"type:numeric(12,2);not null"`
	// pending, paid or failed; pending->paid and pending->failed only.
	Status         string `gorm:"size:16;not null"`
	PaymentLinkID  string `gorm:"size:64;not null;index"`
	PaymentLinkURL string `gorm:"size:512"`
	PaidAt         *time.Time
	// Position preserves the request ordering of contributors.
	Position  int `gorm:"not null"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Paid reports whether every contributor has paid. An empty contributor
// list never counts as fully funded.
func (c *CoPayment) Paid() bool {
	if len(c.Contributors) == 0 {
		return false
	}
	for _, ct := range c.Contributors {
		if ct.Status != ContributorPaid {
			return false
		}
	}
	return true
}

// CollectedAmount sums the shares of contributors that have paid.
func (c *CoPayment) CollectedAmount() decimal.Decimal {
	total := decimal.Zero
	for _, ct := range c.Contributors {
		if ct.Status == ContributorPaid {
			total = total.Add(ct.Amount)
		}
	}
	return total
}
