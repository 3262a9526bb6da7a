package services

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/patisso/patisso/internal/models"
)

// issueTwoWay creates a 1000 co-payment split 500/500 and returns the
// service, gateway and result.
func issueTwoWay(t *testing.T) (*SplitPaymentService, *fakeGateway, *CreateSplitPaymentResult) {
	t.Helper()
	db := setupSplitTestDB(t)
	gw := newFakeGateway()
	svc := newTestService(t, db, gw, nil)
	result, err := svc.CreateSplitPayment(context.Background(), twoWayInput(1000, 500, 500))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	return svc, gw, result
}
func TestReconcileDiscoversPaidContributor(t *testing.T) {
	svc, gw, result := issueTwoWay(t)
	gw.pay(result.Links[0].ID)

	status, err := svc.GetStatus(context.Background(), StatusRef{CoPaymentID: result.CoPaymentID}, true)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if !status.CollectedAmount.Equal(decimal.NewFromInt(500)) {
		t.Fatalf("expected collected 500, got %s", status.CollectedAmount)
	}
	if status.Status != models.CoPaymentPending {
		t.Fatalf("expected pending, got %s", status.Status)
	}
	if status.LinkedOrderID != nil {
		t.Fatalf("no order should exist before full funding")
	}
	if status.Contributors[0].Status != models.ContributorPaid {
		t.Fatalf("expected first contributor paid, got %s", status.Contributors[0].Status)
	}
	if status.Contributors[0].PaidAt == nil {
		t.Fatalf("paid contributor missing PaidAt")
	}
	if status.Contributors[1].Status != models.ContributorPending {
		t.Fatalf("expected second contributor pending, got %s", status.Contributors[1].Status)
	}
}

func TestReconcileSettlesWhenFullyFunded(t *testing.T) {
	svc, gw, result := issueTwoWay(t)
	gw.pay(result.Links[0].ID)
	gw.pay(result.Links[1].ID)

	status, err := svc.GetStatus(context.Background(), StatusRef{CoPaymentID: result.CoPaymentID}, true)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if status.Status != models.CoPaymentCompleted {
		t.Fatalf("expected completed, got %s", status.Status)
	}
	if !status.CollectedAmount.Equal(decimal.NewFromInt(1000)) {
		t.Fatalf("expected collected 1000, got %s", status.CollectedAmount)
	}
	if status.LinkedOrderID == nil {
		t.Fatalf("expected linked order id after settlement")
	}

	// The materialized order starts pending with a settlement-attributed
	// initial history entry.
	order, err := svc.orders.GetByID(context.Background(), *status.LinkedOrderID)
	if err != nil {
		t.Fatalf("load order: %v", err)
	}
	if order.Status != models.OrderPending {
		t.Fatalf("expected order pending, got %s", order.Status)
	}
	if len(order.Items) != 1 || order.Items[0].ProductID != "prod-1" {
		t.Fatalf("order items not materialized from snapshot: %+v", order.Items)
	}
	if len(order.History) != 1 {
		t.Fatalf("expected exactly one history entry, got %d", len(order.History))
	}
	if order.History[0].Actor != models.ActorSettlement {
		t.Fatalf("expected settlement actor, got %s", order.History[0].Actor)
	}

	// The status is reachable through the linked order id as well.
	byOrder, err := svc.GetStatus(context.Background(), StatusRef{LinkedOrderID: order.ID}, false)
	if err != nil {
		t.Fatalf("status by order: %v", err)
	}
	if byOrder.CoPaymentID != result.CoPaymentID {
		t.Fatalf("order lookup resolved wrong ledger: %s", byOrder.CoPaymentID)
	}
}

func TestReconcileGatewayFailureFallsBackToStored(t *testing.T) {
	svc, gw, result := issueTwoWay(t)
	gw.pay(result.Links[0].ID)
	gw.getErr[result.Links[1].ID] = errors.New("gateway timeout")

	status, err := svc.GetStatus(context.Background(), StatusRef{CoPaymentID: result.CoPaymentID}, true)
	if err != nil {
		t.Fatalf("a per-contributor gateway failure must not fail the call: %v", err)
	}
	if status.Contributors[0].Status != models.ContributorPaid {
		t.Fatalf("queryable contributor should be paid, got %s", status.Contributors[0].Status)
	}
	if status.Contributors[1].Status != models.ContributorPending {
		t.Fatalf("unqueryable contributor should keep stored status, got %s", status.Contributors[1].Status)
	}
}

func TestPaidNeverRegresses(t *testing.T) {
	svc, gw, result := issueTwoWay(t)
	gw.pay(result.Links[0].ID)

	first, err := svc.GetStatus(context.Background(), StatusRef{CoPaymentID: result.CoPaymentID}, true)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	paidAt := first.Contributors[0].PaidAt

	// The provider now claims the link is back to pending, and later fails
	// outright. Stored paid state must win both times.
	gw.mu.Lock()
	gw.statuses[result.Links[0].ID] = "pending"
	gw.mu.Unlock()

	second, err := svc.GetStatus(context.Background(), StatusRef{CoPaymentID: result.CoPaymentID}, true)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if second.Contributors[0].Status != models.ContributorPaid {
		t.Fatalf("paid regressed to %s", second.Contributors[0].Status)
	}
	if second.Contributors[0].PaidAt == nil || !second.Contributors[0].PaidAt.Equal(*paidAt) {
		t.Fatalf("PaidAt was rewritten")
	}

	gw.getErr[result.Links[0].ID] = errors.New("boom")
	third, err := svc.GetStatus(context.Background(), StatusRef{CoPaymentID: result.CoPaymentID}, true)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if third.Contributors[0].Status != models.ContributorPaid {
		t.Fatalf("paid regressed after query failure: %s", third.Contributors[0].Status)
	}
}

func TestReconcileIdempotent(t *testing.T) {
	db := setupSplitTestDB(t)
	gw := newFakeGateway()
	svc := newTestService(t, db, gw, nil)
	result, err := svc.CreateSplitPayment(context.Background(), twoWayInput(1000, 500, 500))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	gw.pay(result.Links[0].ID)
	gw.pay(result.Links[1].ID)

	var linkedOrderID string
	for i := 0; i < 5; i++ {
		status, err := svc.GetStatus(context.Background(), StatusRef{CoPaymentID: result.CoPaymentID}, true)
		if err != nil {
			t.Fatalf("status call %d: %v", i, err)
		}
		if status.Status != models.CoPaymentCompleted {
			t.Fatalf("call %d: expected completed, got %s", i, status.Status)
		}
		if linkedOrderID == "" {
			linkedOrderID = *status.LinkedOrderID
		} else if *status.LinkedOrderID != linkedOrderID {
			t.Fatalf("linked order id changed across calls: %s vs %s", linkedOrderID, *status.LinkedOrderID)
		}
	}

	var count int64
	if err := db.Model(&models.Order{}).Count(&count).Error; err != nil {
		t.Fatalf("count orders: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected exactly one order, got %d", count)
	}
}

func TestApplyGatewayEventSettles(t *testing.T) {
	svc, _, result := issueTwoWay(t)

	// first paid event: still pending overall
	status, err := svc.ApplyGatewayEvent(context.Background(), result.Links[0].ID, "paid")
	if err != nil {
		t.Fatalf("event: %v", err)
	}
	if status.Status != models.CoPaymentPending {
		t.Fatalf("expected pending after one payment, got %s", status.Status)
	}

	// replayed event is a no-op
	if _, err := svc.ApplyGatewayEvent(context.Background(), result.Links[0].ID, "paid"); err != nil {
		t.Fatalf("replayed event: %v", err)
	}

	// second paid event settles
	status, err = svc.ApplyGatewayEvent(context.Background(), result.Links[1].ID, "paid")
	if err != nil {
		t.Fatalf("event: %v", err)
	}
	if status.Status != models.CoPaymentCompleted || status.LinkedOrderID == nil {
		t.Fatalf("expected settled co-payment, got %+v", status)
	}

	// a late expired event never regresses a paid contributor
	status, err = svc.ApplyGatewayEvent(context.Background(), result.Links[1].ID, "expired")
	if err != nil {
		t.Fatalf("late expired event: %v", err)
	}
	if status.Contributors[1].Status != models.ContributorPaid {
		t.Fatalf("paid contributor regressed to %s", status.Contributors[1].Status)
	}
}

func TestReconcileMarksFailedContributor(t *testing.T) {
	svc, gw, result := issueTwoWay(t)
	gw.fail(result.Links[0].ID)
	gw.pay(result.Links[1].ID)

	status, err := svc.GetStatus(context.Background(), StatusRef{CoPaymentID: result.CoPaymentID}, true)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if status.Contributors[0].Status != models.ContributorFailed {
		t.Fatalf("expected failed contributor, got %s", status.Contributors[0].Status)
	}
	if status.Contributors[1].Status != models.ContributorPaid {
		t.Fatalf("expected paid contributor, got %s", status.Contributors[1].Status)
	}
	// A failed share means the co-payment is not fully funded: no
	// settlement, only the paid share counts as collected.
	if status.Status != models.CoPaymentPending || status.LinkedOrderID != nil {
		t.Fatalf("failed contributor must not settle: %+v", status)
	}
	if !status.CollectedAmount.Equal(decimal.NewFromInt(500)) {
		t.Fatalf("expected collected 500, got %s", status.CollectedAmount)
	}

	// The failed state is persisted, not re-derived per call.
	stored, err := svc.GetStatus(context.Background(), StatusRef{CoPaymentID: result.CoPaymentID}, false)
	if err != nil {
		t.Fatalf("stored status: %v", err)
	}
	if stored.Contributors[0].Status != models.ContributorFailed {
		t.Fatalf("failed state not persisted, got %s", stored.Contributors[0].Status)
	}
}

func TestApplyGatewayEventMarksFailed(t *testing.T) {
	svc, _, result := issueTwoWay(t)

	status, err := svc.ApplyGatewayEvent(context.Background(), result.Links[0].ID, "failed")
	if err != nil {
		t.Fatalf("failed event: %v", err)
	}
	if status.Contributors[0].Status != models.ContributorFailed {
		t.Fatalf("expected failed contributor, got %s", status.Contributors[0].Status)
	}
	if status.Status != models.CoPaymentPending || status.LinkedOrderID != nil {
		t.Fatalf("failed event must not settle: %+v", status)
	}

	// replayed failure is a no-op
	if _, err := svc.ApplyGatewayEvent(context.Background(), result.Links[0].ID, "failed"); err != nil {
		t.Fatalf("replayed failed event: %v", err)
	}
}

func TestReconcileUnsettledSweep(t *testing.T) {
	svc, gw, result := issueTwoWay(t)
	gw.pay(result.Links[0].ID)
	gw.pay(result.Links[1].ID)

	n, err := svc.ReconcileUnsettled(context.Background(), 10)
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 reconciled ledger, got %d", n)
	}

	status, err := svc.GetStatus(context.Background(), StatusRef{CoPaymentID: result.CoPaymentID}, false)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if status.Status != models.CoPaymentCompleted {
		t.Fatalf("sweep did not settle the ledger, status %s", status.Status)
	}

	// nothing left to sweep
	n, err = svc.ReconcileUnsettled(context.Background(), 10)
	if err != nil {
		t.Fatalf("second sweep: %v", err)
	}
	if n != 0 {
		t.Fatalf("expected empty sweep, got %d", n)
	}
}
