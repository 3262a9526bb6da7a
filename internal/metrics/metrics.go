// Package metrics exposes prometheus counters for the split-payment core.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// PaymentLinksIssued counts successfully issued payment links.
	PaymentLinksIssued = promauto.NewCounter(prometheus.CounterOpts{
		Name: "patisso_payment_links_issued_total",
		Help: "Payment links issued for split-payment contributors.",
	})

	// SplitPaymentsCreated counts persisted co-payments.
	SplitPaymentsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "patisso_split_payments_created_total",
		Help: "Split-payment requests accepted and persisted.",
	})

	// SettlementsCompleted counts co-payments settled into orders.
	SettlementsCompleted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "patisso_settlements_completed_total",
		Help: "Co-payments settled into exactly one order.",
	})

	// GatewayErrors counts failed gateway calls by operation.
	GatewayErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "patisso_gateway_errors_total",
		Help: "Failed payment gateway calls.",
	}, []string{"op"})

	// WebhookEvents counts received gateway webhook events by outcome.
	WebhookEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "patisso_gateway_webhook_events_total",
		Help: "Payment gateway webhook events received.",
	}, []string{"outcome"})
)
