package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/storm-data-grid/internal/domain"
	"github.com/couchcryptid/storm-data-grid/internal/observability"
)

// RunLocator finds the newest run of a model. Orchestrator implements it.
type RunLocator interface {
	Models() []domain.Model
	LocateRun(ctx context.Context, m domain.Model) (domain.ModelRun, error)
}

// Watcher polls for new model runs on a fixed interval.
type Watcher struct {
	locator  RunLocator
	interval time.Duration
	clock    clockwork.Clock
	logger   *slog.Logger
	metrics  *observability.Metrics
	ready    atomic.Bool
}

// NewWatcher creates a Watcher. A nil clock uses the real clock.
func NewWatcher(locator RunLocator, interval time.Duration, clock clockwork.Clock, logger *slog.Logger, metrics *observability.Metrics) *Watcher {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Watcher{
		locator:  locator,
		interval: interval,
		clock:    clock,
		logger:   logger,
		metrics:  metrics,
	}
}

// CheckReadiness returns nil once at least one model has a located run.
func (w *Watcher) CheckReadiness(_ context.Context) error {
	if !w.ready.Load() {
		return errors.New("no model run located yet")
	}
	return nil
}

// Run polls every model sequentially until the context is cancelled. When
// no model could be located the next poll is retried sooner, with
// exponential backoff capped at the poll interval.
func (w *Watcher) Run(ctx context.Context) error {
	w.logger.Info("run watcher started", "interval", w.interval)
	w.metrics.WatcherRunning.Set(1)
	defer w.metrics.WatcherRunning.Set(0)

	backoff := initialBackoff(w.interval)

	for {
		wait := w.interval
		if !w.poll(ctx) {
			if ctx.Err() != nil {
				w.logger.Info("run watcher stopping", "reason", ctx.Err())
				return nil
			}
			wait = backoff
			backoff = nextBackoff(backoff, w.interval)
		} else {
			backoff = initialBackoff(w.interval)
		}

		if !sleepWithContext(ctx, w.clock, wait) {
			w.logger.Info("run watcher stopping", "reason", ctx.Err())
			return nil
		}
	}
}

// poll locates every model once. It returns true when at least one succeeded.
func (w *Watcher) poll(ctx context.Context) bool {
	located := false
	for _, m := range w.locator.Models() {
		if ctx.Err() != nil {
			return false
		}
		run, err := w.locator.LocateRun(ctx, m)
		if err != nil {
			if ctx.Err() != nil {
				return false
			}
			w.logger.Error("locate run failed", "model", m.Key, "error", err)
			continue
		}
		w.logger.Debug("run located", "model", m.Key, "run", run.String())
		located = true
	}
	if located {
		w.ready.Store(true)
	}
	return located
}

func initialBackoff(interval time.Duration) time.Duration {
	return min(30*time.Second, interval)
}

func nextBackoff(current, maxBackoff time.Duration) time.Duration {
	next := current * 2
	if next > maxBackoff {
		return maxBackoff
	}
	return next
}

func sleepWithContext(ctx context.Context, clock clockwork.Clock, d time.Duration) bool {
	if d <= 0 {
		return true
	}

	timer := clock.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.Chan():
		return true
	}
}
