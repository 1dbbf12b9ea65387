package reconcile

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/GriffinCanCode/appwatch/internal/domain/policy"
	"github.com/GriffinCanCode/appwatch/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/appwatch/internal/providers/snapshot"
	"github.com/GriffinCanCode/appwatch/internal/shared/id"
	"github.com/GriffinCanCode/appwatch/internal/shared/types"
	"github.com/GriffinCanCode/appwatch/internal/storage"
	"go.uber.org/zap"
)

// ErrMonitoringDisabled is returned by Tick while observation is paused
var ErrMonitoringDisabled = errors.New("monitoring disabled")

// Result describes one tick. Apps and Foreground are filled whenever the
// snapshot could be taken, even if writing it failed.
type Result struct {
	TickID     id.TickID
	At         time.Time
	Apps       []App
	Foreground types.ForegroundInfo
	Plan       Plan
	Purged     int64
}

// Engine runs reconciliation ticks one at a time
type Engine struct {
	provider snapshot.Provider
	policy   *policy.Store
	store    *storage.Store
	pins     *TitlePins
	metrics  *monitoring.Metrics
	logger   *zap.Logger
	clock    func() time.Time

	mu sync.Mutex
}

// Option customises an Engine
type Option func(*Engine)

// WithMetrics records tick metrics
func WithMetrics(m *monitoring.Metrics) Option { return func(e *Engine) { e.metrics = m } }

// WithClock overrides time.Now
func WithClock(clock func() time.Time) Option { return func(e *Engine) { e.clock = clock } }

// NewEngine creates an engine
func NewEngine(provider snapshot.Provider, settings *policy.Store, store *storage.Store, logger *zap.Logger, opts ...Option) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	e := &Engine{
		provider: provider,
		policy:   settings,
		store:    store,
		pins:     NewTitlePins(),
		logger:   logger,
		clock:    time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Settings returns the current policy
func (e *Engine) Settings() policy.Settings {
	return e.policy.Load()
}

// Tick takes a snapshot and writes the sessions it implies in one
// transaction. Nothing is read or written while monitoring is disabled.
func (e *Engine) Tick(ctx context.Context) (Result, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	start := e.clock()
	result := Result{
		TickID:     id.NewTickID(),
		At:         start.UTC(),
		Foreground: types.NoForeground(),
	}
	log := e.logger.With(zap.String("tick", result.TickID.String()))

	settings := e.policy.Load()
	if !settings.MonitoringEnabled {
		e.recordTick(monitoring.TickDisabled, start)
		return result, ErrMonitoringDisabled
	}

	apps, fg, err := e.observe(ctx, settings)
	if err != nil {
		e.recordTick(monitoring.TickError, start)
		log.Warn("Snapshot failed, tick skipped", zap.Error(err))
		return result, fmt.Errorf("enumerate windows: %w", err)
	}
	result.Apps, result.Foreground = apps, fg

	pending := e.policy.PendingPurge(settings)
	purge := settings.ProcessFilter(pending)

	var openAfter int
	err = e.store.InTx(ctx, func(tx *storage.Tx) error {
		result.Purged = 0
		if !purge.Empty() {
			n, err := tx.DeleteProcesses(ctx, purge)
			if err != nil {
				return err
			}
			result.Purged = n
		}

		open, err := tx.OpenKeys(ctx)
		if err != nil {
			return err
		}

		plan := Reconcile(Input{Apps: apps, Foreground: fg, Settings: settings, Open: open})
		for _, ins := range plan.Inserts {
			if _, err := tx.Insert(ctx, ins.Key, ins.Raw, result.At, ins.Foreground); err != nil {
				return err
			}
		}
		for _, key := range plan.Closures {
			if _, err := tx.CloseOpen(ctx, key, result.At); err != nil {
				return err
			}
		}

		result.Plan = plan
		openAfter = len(open) + len(plan.Inserts) - len(plan.Closures)
		return nil
	})
	if err != nil {
		e.recordTick(monitoring.TickError, start)
		log.Error("Tick rolled back", zap.Error(err))
		return result, fmt.Errorf("write sessions: %w", err)
	}

	e.policy.MarkPurged(pending)
	if result.Purged > 0 {
		log.Info("Purged hidden process history",
			zap.Strings("processes", pending),
			zap.Int64("sessions", result.Purged))
	}

	e.recordTick(monitoring.TickOK, start)
	if e.metrics != nil {
		fgInserts := 0
		for _, ins := range result.Plan.Inserts {
			if ins.Foreground {
				fgInserts++
			}
		}
		e.metrics.RecordChanges(fgInserts, len(result.Plan.Inserts)-fgInserts, len(result.Plan.Closures))
		e.metrics.SetOpenSessions(openAfter)
		e.metrics.SetRunningApps(len(apps))
		e.metrics.AddPurged(result.Purged)
	}

	if !result.Plan.Empty() {
		log.Debug("Tick applied",
			zap.Int("inserts", len(result.Plan.Inserts)),
			zap.Int("closures", len(result.Plan.Closures)),
			zap.Int("open", openAfter),
			zap.String("foreground", fg.ProcessName))
	}
	return result, nil
}

// Observe takes a policy-applied snapshot without touching storage. The
// foreground is None while monitoring is disabled.
func (e *Engine) Observe(ctx context.Context) ([]App, types.ForegroundInfo, error) {
	settings := e.policy.Load()
	apps, fg, err := e.observe(ctx, settings)
	if err != nil {
		return nil, types.NoForeground(), err
	}
	if !settings.MonitoringEnabled {
		fg = types.NoForeground()
	}
	return apps, fg, nil
}

// Foreground resolves the focused window under the current policy
func (e *Engine) Foreground(ctx context.Context) types.ForegroundInfo {
	settings := e.policy.Load()
	if !settings.MonitoringEnabled {
		return types.NoForeground()
	}
	return e.foreground(ctx, settings)
}

// PurgeHidden deletes the history of hidden processes not yet purged
func (e *Engine) PurgeHidden(ctx context.Context) (int64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	settings := e.policy.Load()
	pending := e.policy.PendingPurge(settings)
	if len(pending) == 0 {
		return 0, nil
	}

	n, err := e.store.DeleteProcesses(ctx, settings.ProcessFilter(pending))
	if err != nil {
		return 0, fmt.Errorf("purge hidden: %w", err)
	}
	e.policy.MarkPurged(pending)
	if e.metrics != nil {
		e.metrics.AddPurged(n)
	}
	e.logger.Info("Purged hidden process history", zap.Strings("processes", pending), zap.Int64("sessions", n))
	return n, nil
}

func (e *Engine) observe(ctx context.Context, settings policy.Settings) ([]App, types.ForegroundInfo, error) {
	timer := monitoring.NewTimer(e.metrics, "provider", "enumerate")
	entries, err := e.provider.Enumerate(ctx)
	timer.StopErr(err)
	if err != nil {
		return nil, types.NoForeground(), err
	}

	apps := ApplyPolicy(entries, settings, e.pins)
	return apps, e.foreground(ctx, settings), nil
}

func (e *Engine) foreground(ctx context.Context, settings policy.Settings) types.ForegroundInfo {
	timer := monitoring.NewTimer(e.metrics, "provider", "foreground")
	window, err := e.provider.Foreground(ctx)
	timer.StopErr(err)
	if err != nil {
		e.logger.Debug("Foreground unresolved", zap.Error(err))
		return types.UnknownForeground()
	}
	return ResolveForeground(window, settings, e.pins)
}

func (e *Engine) recordTick(result string, start time.Time) {
	if e.metrics != nil {
		e.metrics.RecordTick(result, e.clock().Sub(start))
	}
}
