// Package retention deletes sessions older than the retention horizon.
package retention

import (
	"context"
	"fmt"
	"time"

	"github.com/GriffinCanCode/appwatch/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/appwatch/internal/shared/id"
	"go.uber.org/zap"
)

// Store is the part of the session database the sweeper needs
type Store interface {
	DeleteStartedBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// Sweeper periodically removes expired sessions
type Sweeper struct {
	store    Store
	horizon  time.Duration
	interval time.Duration
	metrics  *monitoring.Metrics
	logger   *zap.Logger
	clock    func() time.Time
}

// Option customises a Sweeper
type Option func(*Sweeper)

// WithMetrics counts swept sessions
func WithMetrics(m *monitoring.Metrics) Option { return func(s *Sweeper) { s.metrics = m } }

// WithClock overrides time.Now
func WithClock(clock func() time.Time) Option { return func(s *Sweeper) { s.clock = clock } }

// NewSweeper creates a sweeper keeping horizon worth of history and
// sweeping every interval.
func NewSweeper(store Store, horizon, interval time.Duration, logger *zap.Logger, opts ...Option) *Sweeper {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Sweeper{
		store:    store,
		horizon:  horizon,
		interval: interval,
		logger:   logger,
		clock:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Sweep deletes sessions that started before now - horizon.
func (s *Sweeper) Sweep(ctx context.Context, now time.Time, horizon time.Duration) (int64, error) {
	cutoff := now.Add(-horizon)
	n, err := s.store.DeleteStartedBefore(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("retention sweep: %w", err)
	}
	if s.metrics != nil {
		s.metrics.AddSwept(n)
	}
	return n, nil
}

// Run sweeps once immediately and then on every interval until ctx ends.
// Failed sweeps are logged and retried on the next interval.
func (s *Sweeper) Run(ctx context.Context) error {
	s.logger.Info("Retention sweeper started",
		zap.Duration("horizon", s.horizon),
		zap.Duration("interval", s.interval))

	s.runOnce(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Retention sweeper stopped")
			return nil
		case <-ticker.C:
			s.runOnce(ctx)
		}
	}
}

func (s *Sweeper) runOnce(ctx context.Context) {
	sweepID := id.NewSweepID()
	n, err := s.Sweep(ctx, s.clock(), s.horizon)
	if err != nil {
		if ctx.Err() == nil {
			s.logger.Error("Retention sweep failed", zap.String("sweep", sweepID.String()), zap.Error(err))
		}
		return
	}
	if n > 0 {
		s.logger.Info("Expired sessions removed", zap.String("sweep", sweepID.String()), zap.Int64("sessions", n))
	}
}
