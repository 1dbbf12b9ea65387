package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/GriffinCanCode/appwatch/internal/domain/policy"
	"github.com/GriffinCanCode/appwatch/internal/domain/reconcile"
	"github.com/GriffinCanCode/appwatch/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/appwatch/internal/storage"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Version is reported by the health endpoint
var Version = "dev"

// Handlers contains all HTTP handlers
type Handlers struct {
	engine   *reconcile.Engine
	store    *storage.Store
	policy   *policy.Store
	metrics  *monitoring.Metrics
	logger   *zap.Logger
	instance uuid.UUID
	started  time.Time
}

// NewHandlers creates a new handler set
func NewHandlers(engine *reconcile.Engine, store *storage.Store, settings *policy.Store, metrics *monitoring.Metrics, logger *zap.Logger) *Handlers {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handlers{
		engine:   engine,
		store:    store,
		policy:   settings,
		metrics:  metrics,
		logger:   logger,
		instance: uuid.New(),
		started:  time.Now(),
	}
}

// Health reports liveness and database reachability
func (h *Handlers) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	status, code := "healthy", http.StatusOK
	database := gin.H{"connected": true}
	if err := h.store.Ping(ctx); err != nil {
		status, code = "degraded", http.StatusServiceUnavailable
		database = gin.H{"connected": false, "error": err.Error()}
	}

	body := gin.H{
		"status":      status,
		"service":     "appwatch",
		"version":     Version,
		"instance_id": h.instance.String(),
		"uptime":      time.Since(h.started).Round(time.Second).String(),
		"monitoring":  h.policy.Load().MonitoringEnabled,
		"database":    database,
	}
	if h.metrics != nil {
		body["metrics"] = h.metrics.Snapshot()
	}
	c.JSON(code, body)
}

// tick runs one reconciliation and returns what the pages should show.
// Storage failures still yield the snapshot; the error is reported
// alongside it.
func (h *Handlers) tick(ctx context.Context) ([]reconcile.App, foregroundJSON, bool, error) {
	res, err := h.engine.Tick(ctx)
	switch {
	case err == nil:
		return res.Apps, toForegroundJSON(res.Foreground), true, nil
	case errors.Is(err, reconcile.ErrMonitoringDisabled):
		apps, fg, err := h.engine.Observe(ctx)
		return apps, toForegroundJSON(fg), false, err
	default:
		h.logger.Warn("Tick failed", zap.String("tick", res.TickID.String()), zap.Error(err))
		return res.Apps, toForegroundJSON(res.Foreground), true, err
	}
}

func errorJSON(c *gin.Context, code int, err error) {
	c.JSON(code, gin.H{"error": err.Error()})
}
