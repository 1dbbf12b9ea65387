package http

import (
	"errors"
	"net/http"

	"github.com/GriffinCanCode/appwatch/internal/domain/policy"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type monitoringRequest struct {
	Enabled *bool `json:"enabled" binding:"required"`
}

type customNameRequest struct {
	Name string `json:"name" binding:"required"`
}

type hiddenDisplayRequest struct {
	ProcessName string `json:"process_name" binding:"required"`
	WindowTitle string `json:"window_title" binding:"required"`
}

// GetSettings returns the persisted settings document
func (h *Handlers) GetSettings(c *gin.Context) {
	c.JSON(http.StatusOK, h.policy.Load().Document())
}

// PutSettings overlays the request body on the current document.
// Keys missing from the body keep their current values.
func (h *Handlers) PutSettings(c *gin.Context) {
	doc := h.policy.Load().Document()
	if err := c.ShouldBindJSON(&doc); err != nil {
		errorJSON(c, http.StatusBadRequest, err)
		return
	}
	settings, err := h.policy.Replace(doc)
	if err != nil {
		h.settingsError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"settings": settings.Document(),
		"purged":   h.purgeHidden(c),
	})
}

// SetMonitoring pauses or resumes observation
func (h *Handlers) SetMonitoring(c *gin.Context) {
	var req monitoringRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errorJSON(c, http.StatusBadRequest, err)
		return
	}
	settings, err := h.policy.SetMonitoring(*req.Enabled)
	if err != nil {
		h.settingsError(c, err)
		return
	}
	h.logger.Info("Monitoring toggled", zap.Bool("enabled", settings.MonitoringEnabled))
	c.JSON(http.StatusOK, gin.H{"monitoring_enabled": settings.MonitoringEnabled})
}

// TogglePinned flips title pinning for :process
func (h *Handlers) TogglePinned(c *gin.Context) {
	settings, added, err := h.policy.TogglePinned(c.Param("process"))
	if err != nil {
		h.settingsError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"process": c.Param("process"),
		"pinned":  added,
		"list":    settings.PinTitle.Sorted(),
	})
}

// ToggleIgnored flips full exclusion for :process
func (h *Handlers) ToggleIgnored(c *gin.Context) {
	settings, added, err := h.policy.ToggleIgnored(c.Param("process"))
	if err != nil {
		h.settingsError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"process": c.Param("process"),
		"ignored": added,
		"list":    settings.Ignored.Sorted(),
	})
}

// ToggleHidden flips history suppression for :process. Hiding a process
// deletes its recorded sessions.
func (h *Handlers) ToggleHidden(c *gin.Context) {
	settings, added, err := h.policy.ToggleHidden(c.Param("process"))
	if err != nil {
		h.settingsError(c, err)
		return
	}
	var purged int64
	if added {
		purged = h.purgeHidden(c)
	}
	c.JSON(http.StatusOK, gin.H{
		"process": c.Param("process"),
		"hidden":  added,
		"list":    settings.Hidden.Sorted(),
		"purged":  purged,
	})
}

// SetCustomName sets the display name for :process
func (h *Handlers) SetCustomName(c *gin.Context) {
	var req customNameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errorJSON(c, http.StatusBadRequest, err)
		return
	}
	settings, err := h.policy.SetCustomName(c.Param("process"), req.Name)
	if err != nil {
		h.settingsError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"custom_names": settings.CustomNames})
}

// RemoveCustomName drops the display name for :process
func (h *Handlers) RemoveCustomName(c *gin.Context) {
	settings, err := h.policy.RemoveCustomName(c.Param("process"))
	if err != nil {
		h.settingsError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"custom_names": settings.CustomNames})
}

// SetHiddenDisplay changes the placeholder shown for hidden processes
func (h *Handlers) SetHiddenDisplay(c *gin.Context) {
	var req hiddenDisplayRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errorJSON(c, http.StatusBadRequest, err)
		return
	}
	settings, err := h.policy.SetHiddenDisplay(policy.HiddenDisplay{
		ProcessName: req.ProcessName,
		WindowTitle: req.WindowTitle,
	})
	if err != nil {
		h.settingsError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"hidden_app_display": settings.HiddenPlaceholder})
}

// purgeHidden deletes sessions of newly hidden processes. Failures are
// logged and retried by the next tick.
func (h *Handlers) purgeHidden(c *gin.Context) int64 {
	n, err := h.engine.PurgeHidden(c.Request.Context())
	if err != nil {
		h.logger.Warn("Purge hidden sessions failed", zap.Error(err))
	}
	return n
}

func (h *Handlers) settingsError(c *gin.Context, err error) {
	if errors.Is(err, policy.ErrEmptyName) {
		errorJSON(c, http.StatusBadRequest, err)
		return
	}
	h.logger.Error("Settings update failed", zap.Error(err))
	errorJSON(c, http.StatusInternalServerError, err)
}
