package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MobilityFirst/GNS-sub011/internal/logging"
	"github.com/MobilityFirst/GNS-sub011/internal/server/directory"
)

type fakeSweeper struct {
	runs chan struct{}
	err  error
}

func (f *fakeSweeper) ReconcileOrphans(context.Context) (directory.SweepResult, error) {
	f.runs <- struct{}{}
	return directory.SweepResult{Scanned: 3, Relinked: 1}, f.err
}

type recordingObserver struct {
	mu   sync.Mutex
	errs []error
}

func (o *recordingObserver) ObserveSweep(err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.errs = append(o.errs, err)
}

func (o *recordingObserver) count() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.errs)
}

func TestReconciler_SweepsUntilCancelled(t *testing.T) {
	s := &fakeSweeper{runs: make(chan struct{}, 16)}
	obs := &recordingObserver{}
	r := NewReconciler(s, 5*time.Millisecond, logging.NopLogger{}, obs)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		r.Run(ctx)
		close(done)
	}()

	for i := 0; i < 3; i++ {
		select {
		case <-s.runs:
		case <-time.After(time.Second):
			t.Fatalf("sweep %d did not run", i+1)
		}
	}
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("reconciler did not stop")
	}
	assert.GreaterOrEqual(t, obs.count(), 2)
}

func TestReconciler_Disabled(t *testing.T) {
	s := &fakeSweeper{runs: make(chan struct{}, 1)}
	NewReconciler(s, 0, logging.NopLogger{}, nil).Run(context.Background())
	assert.Empty(t, s.runs)
}

func TestReconciler_RunOnceReportsErrors(t *testing.T) {
	s := &fakeSweeper{runs: make(chan struct{}, 2), err: errors.New("scan failed")}
	obs := &recordingObserver{}
	r := NewReconciler(s, time.Minute, logging.NopLogger{}, obs)

	r.RunOnce(context.Background())

	require.Len(t, obs.errs, 1)
	assert.EqualError(t, obs.errs[0], "scan failed")

	s.err = context.Canceled
	r.RunOnce(context.Background())
	assert.Len(t, obs.errs, 1)
}
