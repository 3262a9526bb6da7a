package services

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/patisso/patisso/internal/gateway"
	"github.com/patisso/patisso/internal/models"
	"github.com/patisso/patisso/internal/notify"
	"github.com/patisso/patisso/internal/repository"
)

// Split-payment policy bounds. MinContributors/MaxContributors are fixed
// platform rules; the minimum total is configured per deployment.
const (
	MinContributors = 2
	MaxContributors = 3
)

// amountTolerance absorbs rounding drift between the contributor shares
// and the total (e.g. 333.33 + 333.33 + 333.34).
var amountTolerance = decimal.NewFromFloat(0.01)

// SplitPolicy carries deployment-level split-payment rules.
type SplitPolicy struct {
	MinTotal decimal.Decimal
	Currency string
}

// SplitPaymentService orchestrates split payments end to end: issuing
// payment links, reconciling gateway state into the ledger, and settling
// fully funded co-payments into orders exactly once.
type SplitPaymentService struct {
	ledger  repository.LedgerRepository
	orders  repository.OrderRepository
	gateway gateway.Client
	notify  notify.Dispatcher
	policy  SplitPolicy
	// gatewayTimeout bounds each per-contributor status query so a stuck
	// call degrades to stored state instead of stalling reconciliation.
	gatewayTimeout time.Duration
}

func NewSplitPaymentService(
	ledger repository.LedgerRepository,
	orders repository.OrderRepository,
	gw gateway.Client,
	dispatcher notify.Dispatcher,
	policy SplitPolicy,
	gatewayTimeout time.Duration,
) *SplitPaymentService {
	if gatewayTimeout <= 0 {
		gatewayTimeout = 5 * time.Second
	}
	if policy.MinTotal.IsZero() {
		policy.MinTotal = decimal.NewFromInt(500)
	}
	return &SplitPaymentService{
		ledger:         ledger,
		orders:         orders,
		gateway:        gw,
		notify:         dispatcher,
		policy:         policy,
		gatewayTimeout: gatewayTimeout,
	}
}

// ContributorInput is one party of a split-payment request.
type ContributorInput struct {
	Email  string          `json:"email"`
	Name   string          `json:"name"`
	Amount decimal.Decimal `json:"amount"`
}

// CreateSplitPaymentInput is the issuer's contract: the total, the 2-3
// contributors, and the snapshot of the order to create on settlement.
type CreateSplitPaymentInput struct {
	TotalAmount  decimal.Decimal      `json:"total_amount"`
	Currency     string               `json:"currency"`
	Contributors []ContributorInput   `json:"contributors"`
	Snapshot     models.OrderSnapshot `json:"order_snapshot"`
}

// IssuedLink is one contributor's hosted payment link.
type IssuedLink struct {
	ID     string          `json:"id"`
	URL    string          `json:"url"`
	Email  string          `json:"email"`
	Amount decimal.Decimal `json:"amount"`
	Status string          `json:"status"`
}

// CreateSplitPaymentResult is returned on successful issuance.
type CreateSplitPaymentResult struct {
	CoPaymentID string       `json:"co_payment_id"`
	Status      string       `json:"status"`
	Links       []IssuedLink `json:"links"`
}

// StatusRef addresses a co-payment either directly or through the order
// it settled into. Exactly one field is set.
type StatusRef struct {
	CoPaymentID   string
	LinkedOrderID string
}

// ContributorView is one contributor's share in a status response.
type ContributorView struct {
	Email  string          `json:"email"`
	Name   string          `json:"name"`
	Amount decimal.Decimal `json:"amount"`
	Status string          `json:"status"`
	PaidAt *time.Time      `json:"paid_at,omitempty"`
}

// SplitPaymentStatus is the reconciled view of a co-payment.
type SplitPaymentStatus struct {
	CoPaymentID     string            `json:"co_payment_id"`
	TotalAmount     decimal.Decimal   `json:"total_amount"`
	CollectedAmount decimal.Decimal   `json:"collected_amount"`
	Currency        string            `json:"currency"`
	Status          string            `json:"status"`
	Contributors    []ContributorView `json:"contributors"`
	LinkedOrderID   *string           `json:"linked_order_id,omitempty"`
}

func newID() string { return uuid.New().String() }

func statusView(cp *models.CoPayment) *SplitPaymentStatus {
	view := &SplitPaymentStatus{
		CoPaymentID:     cp.ID,
		TotalAmount:     cp.TotalAmount,
		CollectedAmount: cp.CollectedAmount(),
		Currency:        cp.Currency,
		Status:          cp.Status,
		LinkedOrderID:   cp.LinkedOrderID,
	}
	for _, ct := range cp.Contributors {
		view.Contributors = append(view.Contributors, ContributorView{
			Email:  ct.Email,
			Name:   ct.Name,
			Amount: ct.Amount,
			Status: ct.Status,
			PaidAt: ct.PaidAt,
		})
	}
	return view
}
