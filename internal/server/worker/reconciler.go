// Package worker runs the node's periodic background jobs.
package worker

import (
	"context"
	"errors"
	"time"

	"github.com/MobilityFirst/GNS-sub011/internal/logging"
	"github.com/MobilityFirst/GNS-sub011/internal/server/directory"
)

// Sweeper is the orphan sweep of the directory.
type Sweeper interface {
	ReconcileOrphans(ctx context.Context) (directory.SweepResult, error)
}

// SweepObserver is told how each run ended.
type SweepObserver interface {
	ObserveSweep(err error)
}

type nopSweepObserver struct{}

func (nopSweepObserver) ObserveSweep(error) {}

// Reconciler sweeps for orphaned sub-GUIDs on a fixed interval.
type Reconciler struct {
	sweeper  Sweeper
	interval time.Duration
	logger   logging.Logger
	observer SweepObserver
}

func NewReconciler(s Sweeper, interval time.Duration, l logging.Logger, o SweepObserver) *Reconciler {
	if o == nil {
		o = nopSweepObserver{}
	}
	return &Reconciler{sweeper: s, interval: interval, logger: l.With("module", "reconciler"), observer: o}
}

// Run sweeps once immediately and then on every tick until ctx is done. A
// non-positive interval disables the worker.
func (r *Reconciler) Run(ctx context.Context) {
	if r.interval <= 0 {
		r.logger.Info(ctx, "orphan sweep disabled")
		return
	}

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.logger.Info(ctx, "orphan sweep started", "interval", r.interval.String())
	r.RunOnce(ctx)

	for {
		select {
		case <-ctx.Done():
			r.logger.Info(ctx, "orphan sweep stopped")
			return
		case <-ticker.C:
			r.RunOnce(ctx)
		}
	}
}

// RunOnce performs a single sweep.
func (r *Reconciler) RunOnce(ctx context.Context) {
	start := time.Now()
	result, err := r.sweeper.ReconcileOrphans(ctx)
	if errors.Is(err, context.Canceled) {
		return
	}
	r.observer.ObserveSweep(err)
	if err != nil {
		r.logger.Error(ctx, "orphan sweep failed", "err", err)
		return
	}
	r.logger.Info(ctx, "orphan sweep done",
		"scanned", result.Scanned, "relinked", result.Relinked, "removed", result.Removed,
		"failed", result.Failed, "took", time.Since(start).String())
}
