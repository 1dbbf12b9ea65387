package http

import (
	"github.com/gin-gonic/gin"
)

// Register mounts every route on router and installs the page templates
func Register(router *gin.Engine, h *Handlers) error {
	tmpl, err := Templates()
	if err != nil {
		return err
	}
	router.SetHTMLTemplate(tmpl)

	router.GET("/", h.Index)
	router.GET("/history", h.History)
	router.GET("/foreground", h.Foreground)
	router.GET("/health", h.Health)
	if h.metrics != nil {
		router.GET("/metrics", gin.WrapH(h.metrics.Handler()))
	}

	api := router.Group("/api")
	{
		api.GET("/data", h.Data)
		api.GET("/running_apps", h.RunningApps)
		api.GET("/summary", h.Summary)
		api.DELETE("/sessions", h.ClearSessions)

		settings := api.Group("/settings")
		settings.GET("", h.GetSettings)
		settings.PUT("", h.PutSettings)
		settings.PUT("/monitoring", h.SetMonitoring)
		settings.POST("/pinned/:process", h.TogglePinned)
		settings.POST("/hidden/:process", h.ToggleHidden)
		settings.POST("/ignored/:process", h.ToggleIgnored)
		settings.PUT("/names/:process", h.SetCustomName)
		settings.DELETE("/names/:process", h.RemoveCustomName)
		settings.PUT("/hidden-display", h.SetHiddenDisplay)
	}
	return nil
}
