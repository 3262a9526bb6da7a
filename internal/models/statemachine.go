package models

// forwardNext encodes the legal forward path of the order lifecycle.
var forwardNext = map[string]string{
	OrderPending:        OrderConfirmed,
	OrderConfirmed:      OrderPreparing,
	OrderPreparing:      OrderReady,
	OrderReady:          OrderPickedUp,
	OrderPickedUp:       OrderOutForDelivery,
	OrderOutForDelivery: OrderDelivered,
}

// TerminalStatus reports whether an order status admits no further
// transitions.
func TerminalStatus(status string) bool {
	return status == OrderDelivered || status == OrderCancelled
}

// CanTransition reports whether from -> to is a legal order transition:
// one step along the forward path, or a side-exit to cancelled from any
// non-terminal state.
func CanTransition(from, to string) bool {
	if TerminalStatus(from) {
		return false
	}
	if to == OrderCancelled {
		return true
	}
	return forwardNext[from] == to
}

// ValidOrderStatus reports whether s names a known order status.
func ValidOrderStatus(s string) bool {
	if s == OrderCancelled || s == OrderDelivered {
		return true
	}
	_, ok := forwardNext[s]
	return ok
}
