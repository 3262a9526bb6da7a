// Package sweep periodically reconciles unsettled co-payments so
// settlement does not depend on clients polling or on webhook delivery.
// Each pass is the same idempotent reconciliation the status endpoint
// runs, so overlap with polling and webhooks is harmless.
package sweep

import (
	"context"
	"log/slog"
	"time"

	"github.com/patisso/patisso/internal/services"
)

const batchLimit = 100

// Sweeper drives the periodic reconciliation loop.
type Sweeper struct {
	split    *services.SplitPaymentService
	interval time.Duration
}

func New(split *services.SplitPaymentService, interval time.Duration) *Sweeper {
	return &Sweeper{split: split, interval: interval}
}

// Run loops until ctx is cancelled. Blocking; callers run it in a
// goroutine.
func (s *Sweeper) Run(ctx context.Context) {
	if s.interval <= 0 {
		return
	}
	slog.Info("reconciliation sweep started", "interval", s.interval)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			slog.Info("reconciliation sweep stopped")
			return
		case <-ticker.C:
			n, err := s.split.ReconcileUnsettled(ctx, batchLimit)
			if err != nil {
				slog.Error("reconciliation sweep pass failed", "error", err)
				continue
			}
			if n > 0 {
				slog.Debug("reconciliation sweep pass", "reconciled", n)
			}
		}
	}
}
