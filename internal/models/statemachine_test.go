package models

import "testing"

func TestCanTransitionForwardOnly(t *testing.T) {
	path := []string{OrderPending, OrderConfirmed, OrderPreparing, OrderReady, OrderPickedUp, OrderOutForDelivery, OrderDelivered}
	for i := 0; i < len(path)-1; i++ {
		if !CanTransition(path[i], path[i+1]) {
			t.Fatalf("%s -> %s must be allowed", path[i], path[i+1])
		}
	}
	// skipping a step is never allowed
	for i := 0; i < len(path)-2; i++ {
		if CanTransition(path[i], path[i+2]) {
			t.Fatalf("%s -> %s must be rejected", path[i], path[i+2])
		}
	}
	// no going backwards
	if CanTransition(OrderReady, OrderPreparing) {
		t.Fatalf("backwards transition must be rejected")
	}
}

func TestCancellation(t *testing.T) {
	for _, from := range []string{OrderPending, OrderConfirmed, OrderPreparing, OrderReady, OrderPickedUp, OrderOutForDelivery} {
		if !CanTransition(from, OrderCancelled) {
			t.Fatalf("cancel from %s must be allowed", from)
		}
	}
	if CanTransition(OrderDelivered, OrderCancelled) {
		t.Fatalf("delivered order must not be cancellable")
	}
	if CanTransition(OrderCancelled, OrderPending) {
		t.Fatalf("cancelled is terminal")
	}
}

func TestTerminalStatuses(t *testing.T) {
	if !TerminalStatus(OrderDelivered) || !TerminalStatus(OrderCancelled) {
		t.Fatalf("delivered and cancelled are terminal")
	}
	if TerminalStatus(OrderPending) {
		t.Fatalf("pending is not terminal")
	}
}

func TestValidOrderStatus(t *testing.T) {
	if !ValidOrderStatus(OrderOutForDelivery) {
		t.Fatalf("known status rejected")
	}
	if ValidOrderStatus("shipped") {
		t.Fatalf("unknown status accepted")
	}
}
