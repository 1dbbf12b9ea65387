package http

import (
	"fmt"
	"net/http"
	"time"

	"github.com/GriffinCanCode/appwatch/internal/domain/reconcile"
	"github.com/GriffinCanCode/appwatch/internal/domain/summary"
	"github.com/GriffinCanCode/appwatch/internal/shared/types"
	"github.com/GriffinCanCode/appwatch/internal/storage"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// HistoryLimit caps the rows on the history page
const HistoryLimit = 100

type sessionJSON struct {
	Name      string  `json:"name"`
	Title     string  `json:"title"`
	StartTime string  `json:"start_time"`
	EndTime   *string `json:"end_time"`
}

type runningAppJSON struct {
	ProcessName        string   `json:"process_name"`
	WindowTitles       []string `json:"window_titles"`
	ProcessStartTime   *string  `json:"process_start_time"`
	IgnoreTitleChanges bool     `json:"ignore_title_changes"`
}

type foregroundJSON struct {
	ProcessName string `json:"process_name"`
	WindowTitle string `json:"window_title"`
}

func toForegroundJSON(fg types.ForegroundInfo) foregroundJSON {
	if fg.IsNone() {
		return foregroundJSON{ProcessName: types.NoneIdentity, WindowTitle: types.NoneIdentity}
	}
	return foregroundJSON{ProcessName: fg.ProcessName, WindowTitle: fg.WindowTitle}
}

func toRunningAppsJSON(apps []reconcile.App) []runningAppJSON {
	out := make([]runningAppJSON, 0, len(apps))
	for _, a := range apps {
		var start *string
		if !a.ProcessStartTime.IsZero() {
			s := types.FormatTime(a.ProcessStartTime)
			start = &s
		}
		out = append(out, runningAppJSON{
			ProcessName:        a.ProcessName,
			WindowTitles:       a.WindowTitles,
			ProcessStartTime:   start,
			IgnoreTitleChanges: a.Pinned,
		})
	}
	return out
}

// Data returns every session except those of hidden processes,
// newest first.
func (h *Handlers) Data(c *gin.Context) {
	settings := h.policy.Load()
	sessions, err := h.store.List(c.Request.Context(), storage.Query{Exclude: settings.HiddenFilter()})
	if err != nil {
		h.logger.Error("List sessions failed", zap.Error(err))
		errorJSON(c, http.StatusInternalServerError, err)
		return
	}

	out := make([]sessionJSON, 0, len(sessions))
	for _, s := range sessions {
		row := sessionJSON{
			Name:      s.ProcessName,
			Title:     s.WindowTitle,
			StartTime: types.FormatTime(s.StartTime),
		}
		if s.EndTime != nil {
			end := types.FormatTime(*s.EndTime)
			row.EndTime = &end
		}
		out = append(out, row)
	}
	c.JSON(http.StatusOK, out)
}

// Foreground returns the focused window with policy applied
func (h *Handlers) Foreground(c *gin.Context) {
	c.JSON(http.StatusOK, toForegroundJSON(h.engine.Foreground(c.Request.Context())))
}

// RunningApps runs a tick and returns the live snapshot
func (h *Handlers) RunningApps(c *gin.Context) {
	apps, _, _, err := h.tick(c.Request.Context())
	if err != nil && apps == nil {
		errorJSON(c, http.StatusServiceUnavailable, err)
		return
	}
	c.JSON(http.StatusOK, toRunningAppsJSON(apps))
}

// Summary aggregates usage per process identity
func (h *Handlers) Summary(c *gin.Context) {
	settings := h.policy.Load()
	sessions, err := h.store.List(c.Request.Context(), storage.Query{Exclude: settings.HiddenFilter()})
	if err != nil {
		h.logger.Error("List sessions failed", zap.Error(err))
		errorJSON(c, http.StatusInternalServerError, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"generated_at": types.FormatTime(time.Now()),
		"apps":         summary.Summarize(sessions),
	})
}

// ClearSessions deletes the whole history
func (h *Handlers) ClearSessions(c *gin.Context) {
	n, err := h.store.Clear(c.Request.Context())
	if err != nil {
		h.logger.Error("Clear sessions failed", zap.Error(err))
		errorJSON(c, http.StatusInternalServerError, err)
		return
	}
	h.logger.Info("History cleared", zap.Int64("sessions", n))
	c.JSON(http.StatusOK, gin.H{"deleted": n})
}

// formatRunningTime renders d as H:MM:SS
func formatRunningTime(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	d = d.Round(time.Second)
	h := d / time.Hour
	d -= h * time.Hour
	m := d / time.Minute
	d -= m * time.Minute
	return fmt.Sprintf("%d:%02d:%02d", h, m, d/time.Second)
}
