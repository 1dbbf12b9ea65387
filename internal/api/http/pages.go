package http

import (
	"embed"
	"html/template"
	"net/http"
	"time"

	"github.com/GriffinCanCode/appwatch/internal/domain/reconcile"
	"github.com/GriffinCanCode/appwatch/internal/shared/types"
	"github.com/GriffinCanCode/appwatch/internal/storage"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

//go:embed templates/*.html
var templateFS embed.FS

// Templates parses the embedded page templates
func Templates() (*template.Template, error) {
	return template.New("").Funcs(template.FuncMap{
		"clock": func(t time.Time) string {
			if t.IsZero() {
				return "N/A"
			}
			return t.Local().Format("2006-01-02 15:04:05")
		},
	}).ParseFS(templateFS, "templates/*.html")
}

type indexPage struct {
	Monitoring bool
	Apps       []reconcile.App
	Foreground foregroundJSON
	Error      string
	Generated  time.Time
}

type historyRow struct {
	ProcessName string
	WindowTitle string
	StartTime   time.Time
	EndTime     time.Time
	RunningTime string
	Foreground  bool
}

type historyPage struct {
	Rows  []historyRow
	Limit int
	Error string
}

// Index runs a tick and renders the live view. While monitoring is
// disabled the view is rendered from a read-only observation.
func (h *Handlers) Index(c *gin.Context) {
	apps, fg, monitoring, err := h.tick(c.Request.Context())
	page := indexPage{
		Monitoring: monitoring,
		Apps:       apps,
		Foreground: fg,
		Generated:  time.Now(),
	}
	if err != nil {
		page.Error = err.Error()
	}
	c.HTML(http.StatusOK, "index.html", page)
}

// History renders the most recent closed sessions
func (h *Handlers) History(c *gin.Context) {
	settings := h.policy.Load()
	sessions, err := h.store.List(c.Request.Context(), storage.Query{
		Exclude:    settings.HiddenFilter(),
		ClosedOnly: true,
		Limit:      HistoryLimit,
	})
	page := historyPage{Limit: HistoryLimit}
	if err != nil {
		h.logger.Error("List history failed", zap.Error(err))
		page.Error = err.Error()
		c.HTML(http.StatusInternalServerError, "history.html", page)
		return
	}

	page.Rows = make([]historyRow, 0, len(sessions))
	for _, s := range sessions {
		page.Rows = append(page.Rows, toHistoryRow(s))
	}
	c.HTML(http.StatusOK, "history.html", page)
}

func toHistoryRow(s types.Session) historyRow {
	row := historyRow{
		ProcessName: s.ProcessName,
		WindowTitle: s.WindowTitle,
		StartTime:   s.StartTime,
		RunningTime: "N/A",
		Foreground:  s.IsForeground,
	}
	if s.EndTime != nil {
		row.EndTime = *s.EndTime
	}
	if d, ok := s.RunningTime(); ok {
		row.RunningTime = formatRunningTime(d)
	}
	return row
}
