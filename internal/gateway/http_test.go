package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestCreateLink(t *testing.T) {
	var gotAuth, gotBody string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		var payload map[string]any
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Errorf("decode request: %v", err)
		}
		gotBody = payload["amount"].(string)
		json.NewEncoder(w).Encode(map[string]string{
			"id": "lnk_123", "short_url": "https://pay.example/lnk_123", "status": "pending",
		})
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL, "sk_test", 2*time.Second)
	link, err := c.CreateLink(context.Background(), CreateLinkRequest{
		Amount:        decimal.NewFromInt(500),
		Currency:      "EGP",
		Reference:     "copay:abc:0",
		CustomerEmail: "a@example.com",
	})
	if err != nil {
		t.Fatalf("create link: %v", err)
	}
	if link.ID != "lnk_123" || link.Status != LinkPending {
		t.Fatalf("unexpected link: %+v", link)
	}
	if gotAuth != "Bearer sk_test" {
		t.Fatalf("missing bearer auth: %q", gotAuth)
	}
	if gotBody != "500.00" {
		t.Fatalf("amount not sent as fixed-point string: %q", gotBody)
	}
}

func TestGetLinkRetriesOn5xx(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		json.NewEncoder(w).Encode(map[string]string{"id": "lnk_1", "status": "paid"})
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL, "sk_test", 2*time.Second)
	link, err := c.GetLink(context.Background(), "lnk_1")
	if err != nil {
		t.Fatalf("get link: %v", err)
	}
	if link.Status != LinkPaid {
		t.Fatalf("expected paid, got %s", link.Status)
	}
	if calls.Load() != 2 {
		t.Fatalf("expected one retry, got %d calls", calls.Load())
	}
}

func TestGetLinkNoRetryOn4xx(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL, "sk_test", 2*time.Second)
	if _, err := c.GetLink(context.Background(), "lnk_missing"); err == nil {
		t.Fatalf("expected error")
	}
	if calls.Load() != 1 {
		t.Fatalf("4xx must not be retried, got %d calls", calls.Load())
	}
}

func TestGetLinkTimesOut(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(300 * time.Millisecond)
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL, "sk_test", 50*time.Millisecond)
	start := time.Now()
	_, err := c.GetLink(context.Background(), "lnk_slow")
	if err == nil {
		t.Fatalf("expected timeout error")
	}
	// two attempts plus backoff, still bounded well under the handler sleep x2
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Fatalf("timeout not bounded: %v", elapsed)
	}
}

func TestPaidStatus(t *testing.T) {
	for _, s := range []string{"paid", "success", "completed"} {
		if !PaidStatus(s) {
			t.Fatalf("%q should count as paid", s)
		}
	}
	for _, s := range []string{"pending", "failed", "expired", ""} {
		if PaidStatus(s) {
			t.Fatalf("%q should not count as paid", s)
		}
	}
}
