// Package repository provides injected persistence for the split-payment
// core. Components receive these interfaces explicitly, so tests can
// substitute doubles and no component shares a global storage handle.
package repository

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/patisso/patisso/internal/models"
)

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("record not found")

// ErrAlreadySettled signals that a concurrent settlement won the
// linked-order claim. Callers resolve it by reading the winner's order id.
var ErrAlreadySettled = errors.New("co-payment already settled")

// ErrStatusConflict signals that an order's status changed between the
// caller's read and its write. Callers re-read and re-validate.
var ErrStatusConflict = errors.New("order status changed concurrently")

// LedgerRepository persists co-payment ledgers. The ledger is the single
// source of truth for a split payment; all mutation goes through Create,
// MarkContributorsPaid and ClaimSettlement.
type LedgerRepository interface {
	Create(ctx context.Context, cp *models.CoPayment) error
	GetByID(ctx context.Context, id string) (*models.CoPayment, error)
	GetByLinkedOrderID(ctx context.Context, orderID string) (*models.CoPayment, error)
	GetByPaymentLinkID(ctx context.Context, linkID string) (*models.CoPayment, error)

	// MarkContributorsPaid moves the given contributors pending->paid,
	// stamping PaidAt. The transition is guarded in SQL: a contributor
	// already paid or failed is left untouched, never regressed.
	MarkContributorsPaid(ctx context.Context, contributorIDs []string, paidAt time.Time) error

	// MarkContributorsFailed moves the given contributors pending->failed,
	// with the same pending-only guard. A paid contributor is never
	// failed after the fact.
	MarkContributorsFailed(ctx context.Context, contributorIDs []string) error

	// ClaimSettlement runs materialize and the completed+linked_order_id
	// compare-and-set in one transaction. Exactly one concurrent caller
	// wins the claim; losers get the winner's order id with created=false
	// and their materialized rows rolled back.
	ClaimSettlement(ctx context.Context, coPaymentID string, materialize func(tx *gorm.DB) (orderID string, err error)) (orderID string, created bool, err error)

	// ListUnsettledIDs returns ids of co-payments not yet completed,
	// oldest first, for the periodic reconciliation sweep.
	ListUnsettledIDs(ctx context.Context, limit int) ([]string, error)
}

// OrderRepository persists orders and their append-only status history.
type OrderRepository interface {
	// CreateFromSnapshot materializes an order inside the caller's
	// transaction: order, items, and the initial pending history entry
	// attributed to the given actor.
	CreateFromSnapshot(tx *gorm.DB, snap *models.OrderSnapshot, total decimal.Decimal, currency, actor, message string) (*models.Order, error)

	GetByID(ctx context.Context, id string) (*models.Order, error)

	// UpdateStatus applies a transition atomically, appending the next
	// history entry in the same transaction. The write is a compare-and-set
	// on the status the caller validated against: if the order moved in the
	// meantime it returns ErrStatusConflict and changes nothing, so a stale
	// validation can never overwrite a terminal state.
	UpdateStatus(ctx context.Context, orderID, from, next, actor, message string) error

	// History returns the order's status records ordered by sequence.
	History(ctx context.Context, orderID string) ([]models.StatusHistory, error)
}
