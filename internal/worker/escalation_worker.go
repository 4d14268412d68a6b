package worker

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/grievance-service/internal/observability"
)

const escalationLockKey = "grievance:escalation:lock"

// Locker provides a cross-instance mutual exclusion lease.
type Locker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (token string, ok bool, err error)
	Unlock(ctx context.Context, key, token string) error
}

// StaleEscalator escalates complaints that sat assigned for too long.
type StaleEscalator interface {
	EscalateStale(ctx context.Context, olderThan time.Duration) (int, error)
}

// EscalationWorker periodically hands stale assignments to managers.
type EscalationWorker struct {
	escalator StaleEscalator
	locker    Locker
	metrics   *observability.Metrics
	logger    *zap.Logger
	interval  time.Duration
	after     time.Duration
	lockTTL   time.Duration
	now       func() time.Time
}

// EscalationWorkerConfig configures the worker.
type EscalationWorkerConfig struct {
	Interval time.Duration
	After    time.Duration
	LockTTL  time.Duration
}

// NewEscalationWorker builds the worker. locker may be nil for single-instance
// deployments.
func NewEscalationWorker(escalator StaleEscalator, locker Locker, metrics *observability.Metrics, logger *zap.Logger, cfg EscalationWorkerConfig) *EscalationWorker {
	if cfg.Interval <= 0 {
		cfg.Interval = time.Hour
	}
	if cfg.After <= 0 {
		cfg.After = 7 * 24 * time.Hour
	}
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = 5 * time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EscalationWorker{
		escalator: escalator,
		locker:    locker,
		metrics:   metrics,
		logger:    logger,
		interval:  cfg.Interval,
		after:     cfg.After,
		lockTTL:   cfg.LockTTL,
		now:       time.Now,
	}
}

// Run sweeps once immediately and then on every tick until ctx is done.
func (w *EscalationWorker) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.logger.Info("escalation worker started",
		zap.Duration("interval", w.interval),
		zap.Duration("after", w.after))
	for {
		if _, err := w.RunOnce(ctx); err != nil && ctx.Err() == nil {
			w.logger.Error("escalation sweep failed", zap.Error(err))
		}
		select {
		case <-ctx.Done():
			w.logger.Info("escalation worker stopped")
			return
		case <-ticker.C:
		}
	}
}

// RunOnce performs a single sweep when the lock is available. It reports
// how many complaints were escalated.
func (w *EscalationWorker) RunOnce(ctx context.Context) (int, error) {
	if w.locker != nil {
		token, ok, err := w.locker.TryLock(ctx, escalationLockKey, w.lockTTL)
		if err != nil {
			return 0, err
		}
		if !ok {
			w.logger.Debug("escalation sweep skipped; lock held elsewhere")
			return 0, nil
		}
		defer func() {
			unlockCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := w.locker.Unlock(unlockCtx, escalationLockKey, token); err != nil {
				w.logger.Warn("release escalation lock", zap.Error(err))
			}
		}()
	}

	moved, err := w.escalator.EscalateStale(ctx, w.after)
	w.metrics.RecordEscalationSweep(moved, w.now())
	if err != nil {
		return moved, err
	}
	if moved > 0 {
		w.logger.Info("escalated stale complaints", zap.Int("count", moved))
	}
	return moved, nil
}
