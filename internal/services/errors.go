package services

import "fmt"

// Validation reason codes surfaced to callers. Handlers map these to 400
// responses naming the violated rule.
const (
	ReasonContributorCount = "contributor_count"
	ReasonAmountMismatch   = "amount_mismatch"
	ReasonBelowMinimum     = "below_minimum"
	ReasonInvalidAmount    = "invalid_amount"
	ReasonMissingEmail     = "missing_email"
	ReasonEmptySnapshot    = "empty_snapshot"
)

// ValidationError rejects a split-payment request before any external
// call is made.
type ValidationError struct {
	Reason  string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed (%s): %s", e.Reason, e.Message)
}

// GatewayError wraps a payment gateway failure during link issuance.
// The ledger is never persisted when issuance fails; callers retry the
// whole request.
type GatewayError struct {
	Op  string
	Err error
}

func (e *GatewayError) Error() string {
	return fmt.Sprintf("payment gateway %s failed: %v", e.Op, e.Err)
}

func (e *GatewayError) Unwrap() error { return e.Err }

// TransitionError rejects an illegal order status transition.
type TransitionError struct {
	From string
	To   string
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("illegal order transition %s -> %s", e.From, e.To)
}
