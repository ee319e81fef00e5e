package auth

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"songquiz/internal/core"
)

// Refresh triggers.
const (
	TriggerInterval = "interval"
	TriggerVisible  = "visible"
	TriggerFocus    = "focus"
)

// IsTrigger reports whether name is a known refresh trigger.
func IsTrigger(name string) bool {
	switch name {
	case TriggerInterval, TriggerVisible, TriggerFocus:
		return true
	default:
		return false
	}
}

type refreshFunc interface {
	Refresh(ctx context.Context) error
}

// RefreshRecorder receives one observation per refresh attempt.
type RefreshRecorder interface {
	RecordRefresh(trigger, status string)
}

// Refresher fires Refresh on a fixed interval and whenever the view reports
// that it became visible or focused. Triggers are independent: concurrent
// refreshes may race and the last response wins.
type Refresher struct {
	target   refreshFunc
	interval time.Duration
	recorder RefreshRecorder
	logger   *zap.Logger

	mu      sync.Mutex
	stopped bool
	wg      sync.WaitGroup
}

// NewRefresher creates a refresher for target. A non-positive interval
// falls back to the default.
func NewRefresher(target refreshFunc, interval time.Duration, recorder RefreshRecorder, logger *zap.Logger) *Refresher {
	if interval <= 0 {
		interval = core.DefaultRefreshInterval
	}
	return &Refresher{
		target:   target,
		interval: interval,
		recorder: recorder,
		logger:   logger,
	}
}

// Start runs the interval schedule until ctx is cancelled.
func (r *Refresher) Start(ctx context.Context) error {
	r.logger.Info("Starting token refresher", zap.Duration("interval", r.interval))

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			r.Trigger(ctx, TriggerInterval)
		case <-ctx.Done():
			r.mu.Lock()
			r.stopped = true
			r.mu.Unlock()

			r.wg.Wait()
			r.logger.Info("Token refresher stopped")
			return nil
		}
	}
}

// Trigger starts one refresh in the background and returns immediately.
// Triggers after shutdown are dropped.
func (r *Refresher) Trigger(ctx context.Context, trigger string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.stopped || ctx.Err() != nil {
		r.logger.Debug("Dropping refresh trigger after shutdown", zap.String("trigger", trigger))
		return
	}

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		r.run(ctx, trigger)
	}()
}

// Wait blocks until all triggered refreshes have finished.
func (r *Refresher) Wait() {
	r.wg.Wait()
}

func (r *Refresher) run(ctx context.Context, trigger string) {
	err := r.target.Refresh(ctx)

	status := "success"
	switch {
	case err == nil:
		r.logger.Debug("Token refreshed", zap.String("trigger", trigger))
	case errors.Is(err, core.ErrNotAuthenticated):
		status = "skipped"
	default:
		status = "error"
		r.logger.Warn("Token refresh failed", zap.String("trigger", trigger), zap.Error(err))
	}

	if r.recorder != nil {
		r.recorder.RecordRefresh(trigger, status)
	}
}
