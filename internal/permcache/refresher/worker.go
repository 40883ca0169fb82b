// Package refresher owns the periodic permission cache refresh.
package refresher

import (
	"context"
	"sync"
	"time"

	"github.com/smallbiznis/ispreport/internal/clock"
	"github.com/smallbiznis/ispreport/internal/observability/metrics"
	"github.com/smallbiznis/ispreport/internal/permcache/domain"
	"github.com/smallbiznis/ispreport/internal/permcache/syncer"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Syncer refreshes every tenant. *syncer.Syncer satisfies it.
type Syncer interface {
	SyncAll(ctx context.Context, trigger string) ([]*domain.SyncRun, error)
}

type Params struct {
	fx.In

	Syncer  Syncer
	Log     *zap.Logger
	Clock   clock.Clock
	Config  Config
	Locker  *Locker               `optional:"true"`
	Metrics *metrics.CacheMetrics `optional:"true"`
}

type Worker struct {
	syncer  Syncer
	log     *zap.Logger
	clock   clock.Clock
	cfg     Config
	locker  *Locker
	metrics *metrics.CacheMetrics

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

func NewWorker(p Params) *Worker {
	return &Worker{
		syncer:  p.Syncer,
		log:     p.Log.Named("permcache.refresher"),
		clock:   p.Clock,
		cfg:     p.Config.withDefaults(),
		locker:  p.Locker,
		metrics: p.Metrics,
	}
}

// Start runs RunForever in the background until Stop.
func (w *Worker) Start() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.done != nil {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	w.cancel, w.done = cancel, make(chan struct{})
	go func(done chan struct{}) {
		defer close(done)
		w.RunForever(ctx)
	}(w.done)
}

// Stop cancels the loop and waits for an in-flight refresh to return,
// giving up when ctx ends.
func (w *Worker) Stop(ctx context.Context) error {
	w.mu.Lock()
	cancel, done := w.cancel, w.done
	w.cancel, w.done = nil, nil
	w.mu.Unlock()
	if done == nil {
		return nil
	}

	cancel()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// RunForever refreshes immediately, then on every interval until ctx is done.
func (w *Worker) RunForever(ctx context.Context) {
	ticker := time.NewTicker(w.cfg.Interval)
	defer ticker.Stop()

	w.log.Info("permission cache refresher started", zap.Duration("interval", w.cfg.Interval))
	for {
		if err := w.RunOnce(ctx); err != nil {
			w.log.Warn("permission cache refresh failed", zap.Error(err))
		}

		select {
		case <-ctx.Done():
			w.log.Info("permission cache refresher stopped")
			return
		case tick := <-ticker.C:
			w.metrics.ObserveRunLoopLag(w.clock.Now().Sub(tick))
		}
	}
}

// RunOnce performs one refresh of every tenant within the configured timeout.
// It is a no-op when another replica holds the refresh lock.
func (w *Worker) RunOnce(parentCtx context.Context) error {
	if w.locker != nil {
		token, ok, err := w.locker.TryLock(parentCtx, w.cfg.LockKey, w.cfg.LockTTL)
		if err != nil {
			w.metrics.IncSyncSkipped("lock_error")
			return err
		}
		if !ok {
			w.metrics.IncSyncSkipped("locked")
			w.log.Debug("refresh skipped, lock held elsewhere", zap.String("key", w.cfg.LockKey))
			return nil
		}
		defer func() {
			if err := w.locker.Release(context.WithoutCancel(parentCtx), w.cfg.LockKey, token); err != nil {
				w.log.Warn("failed to release refresh lock", zap.Error(err))
			}
		}()
	}

	ctx, cancel := context.WithTimeout(parentCtx, w.cfg.Timeout)
	defer cancel()

	_, err := w.syncer.SyncAll(ctx, syncer.TriggerScheduled)
	return err
}
