package reconcile

import (
	"slices"
	"strings"
	"time"

	"github.com/GriffinCanCode/appwatch/internal/domain/policy"
	"github.com/GriffinCanCode/appwatch/internal/shared/types"
)

// App is one running process after policy is applied
type App struct {
	ProcessName      string    `json:"process_name"`
	RawName          string    `json:"-"`
	WindowTitles     []string  `json:"window_titles"`
	ProcessStartTime time.Time `json:"process_start_time"`
	Pinned           bool      `json:"ignore_title_changes"`
}

// Insert is a session to open. Raw is the provider's process name behind
// Key.Process.
type Insert struct {
	Key        types.SessionKey
	Raw        string
	Foreground bool
}

// Plan is the set of writes that brings storage in line with one snapshot
type Plan struct {
	Inserts  []Insert
	Closures []types.SessionKey
}

// Empty reports whether the plan writes nothing
func (p Plan) Empty() bool {
	return len(p.Inserts) == 0 && len(p.Closures) == 0
}

// Input is everything one reconciliation looks at
type Input struct {
	Apps       []App
	Foreground types.ForegroundInfo
	Settings   policy.Settings
	Open       map[types.SessionKey]struct{}
}

// ApplyPolicy filters the raw snapshot and maps it to display identities.
// Ignored and hidden processes are dropped, as are processes without
// titled windows. Pinned processes collapse to their pinned title.
func ApplyPolicy(entries []types.SnapshotEntry, settings policy.Settings, pins *TitlePins) []App {
	apps := make([]App, 0, len(entries))
	for _, e := range entries {
		raw := e.ProcessName
		if raw == "" || settings.IsIgnored(raw) || settings.IsHidden(raw) {
			continue
		}
		titles := nonEmptyTitles(e.WindowTitles)
		if len(titles) == 0 {
			continue
		}

		display := settings.DisplayName(raw)
		pinned := settings.IsPinned(raw)
		if pinned {
			titles = []string{pins.Pin(raw, display)}
		}

		apps = append(apps, App{
			ProcessName:      display,
			RawName:          raw,
			WindowTitles:     titles,
			ProcessStartTime: e.ProcessStartTime,
			Pinned:           pinned,
		})
	}
	return apps
}

func nonEmptyTitles(titles []string) []string {
	out := make([]string, 0, len(titles))
	for _, t := range titles {
		if strings.TrimSpace(t) != "" && !slices.Contains(out, t) {
			out = append(out, t)
		}
	}
	return out
}

// ResolveForeground applies policy to the focused window. A nil window
// means nothing has focus.
func ResolveForeground(window *types.Window, settings policy.Settings, pins *TitlePins) types.ForegroundInfo {
	if window == nil || window.ProcessName == "" || window.ProcessName == types.NoneIdentity {
		return types.NoForeground()
	}
	if window.ProcessName == types.UnknownIdentity {
		return types.UnknownForeground()
	}

	raw := window.ProcessName
	switch {
	case settings.IsIgnored(raw):
		return types.NoForeground()
	case settings.IsHidden(raw):
		p := settings.HiddenPlaceholder
		return types.HiddenForeground(p.ProcessName, p.WindowTitle)
	}

	display := settings.DisplayName(raw)
	title := window.Title
	if settings.IsPinned(raw) {
		title = pins.Pin(raw, display)
	}
	return types.ForegroundInfo{ProcessName: display, WindowTitle: title}
}

// Reconcile computes the inserts and closures for one tick. It has no side
// effects; the result depends only on in.
func Reconcile(in Input) Plan {
	var plan Plan

	fg := in.Foreground
	fgReal := !fg.IsNone() && !fg.IsUnknown() && !fg.IsHidden()

	live := make(map[types.SessionKey]struct{})
	for _, app := range in.Apps {
		for _, title := range app.WindowTitles {
			key := types.SessionKey{Process: app.ProcessName, Title: title}
			if _, dup := live[key]; dup {
				continue
			}
			live[key] = struct{}{}
			if _, open := in.Open[key]; open {
				continue
			}
			plan.Inserts = append(plan.Inserts, Insert{
				Key:        key,
				Raw:        rawName(app, in.Settings),
				Foreground: fgReal && key == fg.Key(),
			})
		}
	}

	if fgReal && windowless(fg, in.Apps) {
		raw := in.Settings.RawName(fg.ProcessName)
		if !in.Settings.IsHidden(raw) {
			key := fg.Key()
			live[key] = struct{}{}
			if _, open := in.Open[key]; !open {
				plan.Inserts = append(plan.Inserts, Insert{Key: key, Raw: raw, Foreground: true})
			}
		}
	}

	for key := range in.Open {
		if _, ok := live[key]; !ok {
			plan.Closures = append(plan.Closures, key)
		}
	}
	slices.SortFunc(plan.Closures, compareKeys)

	return plan
}

func windowless(fg types.ForegroundInfo, apps []App) bool {
	for _, app := range apps {
		if app.ProcessName == fg.ProcessName {
			return false
		}
	}
	return true
}

func rawName(app App, settings policy.Settings) string {
	if app.RawName != "" {
		return app.RawName
	}
	return settings.RawName(app.ProcessName)
}

func compareKeys(a, b types.SessionKey) int {
	if c := strings.Compare(a.Process, b.Process); c != 0 {
		return c
	}
	return strings.Compare(a.Title, b.Title)
}
