package reconcile

import (
	"testing"
	"time"

	"github.com/GriffinCanCode/appwatch/internal/domain/policy"
	"github.com/GriffinCanCode/appwatch/internal/shared/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

func settingsWith(mutate func(*policy.Document)) policy.Settings {
	doc := policy.DefaultDocument()
	if mutate != nil {
		mutate(&doc)
	}
	return policy.FromDocument(doc)
}

func entry(name string, titles ...string) types.SnapshotEntry {
	return types.SnapshotEntry{ProcessName: name, WindowTitles: titles, ProcessStartTime: t0}
}

func key(process, title string) types.SessionKey {
	return types.SessionKey{Process: process, Title: title}
}

func openSet(keys ...types.SessionKey) map[types.SessionKey]struct{} {
	m := make(map[types.SessionKey]struct{}, len(keys))
	for _, k := range keys {
		m[k] = struct{}{}
	}
	return m
}

// apply mirrors what the engine does with a plan
func apply(open map[types.SessionKey]struct{}, plan Plan) map[types.SessionKey]struct{} {
	next := make(map[types.SessionKey]struct{}, len(open))
	for k := range open {
		next[k] = struct{}{}
	}
	for _, c := range plan.Closures {
		delete(next, c)
	}
	for _, ins := range plan.Inserts {
		next[ins.Key] = struct{}{}
	}
	return next
}

func TestReconcileNewProcess(t *testing.T) {
	settings := settingsWith(nil)
	apps := ApplyPolicy([]types.SnapshotEntry{entry("chrome.exe", "Tab A")}, settings, NewTitlePins())

	plan := Reconcile(Input{Apps: apps, Foreground: types.NoForeground(), Settings: settings, Open: openSet()})

	require.Len(t, plan.Inserts, 1)
	assert.Equal(t, Insert{Key: key("Google Chrome", "Tab A"), Raw: "chrome.exe"}, plan.Inserts[0])
	assert.Empty(t, plan.Closures)
}

func TestReconcileIsIdempotent(t *testing.T) {
	settings := settingsWith(nil)
	apps := ApplyPolicy([]types.SnapshotEntry{
		entry("chrome.exe", "Tab A", "Tab B"),
		entry("code.exe", "main.go"),
	}, settings, NewTitlePins())
	fg := types.ForegroundInfo{ProcessName: "Visual Studio Code", WindowTitle: "main.go"}

	open := openSet(key("Firefox", "Old"))
	first := Reconcile(Input{Apps: apps, Foreground: fg, Settings: settings, Open: open})
	assert.Len(t, first.Inserts, 3)
	assert.Equal(t, []types.SessionKey{key("Firefox", "Old")}, first.Closures)

	second := Reconcile(Input{Apps: apps, Foreground: fg, Settings: settings, Open: apply(open, first)})
	assert.True(t, second.Empty())
}

func TestReconcileClosesVanishedPairs(t *testing.T) {
	settings := settingsWith(nil)
	apps := ApplyPolicy([]types.SnapshotEntry{entry("chrome.exe", "Tab B")}, settings, NewTitlePins())

	plan := Reconcile(Input{
		Apps:       apps,
		Foreground: types.NoForeground(),
		Settings:   settings,
		Open:       openSet(key("Google Chrome", "Tab A"), key("Notepad", "x.txt")),
	})

	assert.Equal(t, []Insert{{Key: key("Google Chrome", "Tab B"), Raw: "chrome.exe"}}, plan.Inserts)
	assert.Equal(t, []types.SessionKey{key("Google Chrome", "Tab A"), key("Notepad", "x.txt")}, plan.Closures)
}

func TestReconcileForegroundFlag(t *testing.T) {
	settings := settingsWith(nil)
	apps := ApplyPolicy([]types.SnapshotEntry{entry("chrome.exe", "Tab A", "Tab B")}, settings, NewTitlePins())

	tests := []struct {
		name string
		fg   types.ForegroundInfo
		want map[string]bool
	}{
		{
			name: "exact pair",
			fg:   types.ForegroundInfo{ProcessName: "Google Chrome", WindowTitle: "Tab B"},
			want: map[string]bool{"Tab A": false, "Tab B": true},
		},
		{
			name: "same process other title",
			fg:   types.ForegroundInfo{ProcessName: "Google Chrome", WindowTitle: "Tab C"},
			want: map[string]bool{"Tab A": false, "Tab B": false},
		},
		{
			name: "nothing focused",
			fg:   types.NoForeground(),
			want: map[string]bool{"Tab A": false, "Tab B": false},
		},
		{
			name: "placeholder never flags",
			fg:   types.HiddenForeground("Google Chrome", "Tab A"),
			want: map[string]bool{"Tab A": false, "Tab B": false},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plan := Reconcile(Input{Apps: apps, Foreground: tt.fg, Settings: settings, Open: openSet()})
			got := make(map[string]bool)
			for _, ins := range plan.Inserts {
				if ins.Key.Process == "Google Chrome" {
					got[ins.Key.Title] = ins.Foreground
				}
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestReconcileForegroundFlagNotRevised(t *testing.T) {
	settings := settingsWith(nil)
	apps := ApplyPolicy([]types.SnapshotEntry{entry("chrome.exe", "Tab A")}, settings, NewTitlePins())
	open := openSet(key("Google Chrome", "Tab A"))

	// focus arrives after the session opened: no write
	plan := Reconcile(Input{
		Apps:       apps,
		Foreground: types.ForegroundInfo{ProcessName: "Google Chrome", WindowTitle: "Tab A"},
		Settings:   settings,
		Open:       open,
	})
	assert.True(t, plan.Empty())
}

func TestApplyPolicyFilters(t *testing.T) {
	settings := settingsWith(func(d *policy.Document) {
		d.IgnoredApps = []string{"ignored.exe"}
		d.HiddenFromWeb = []string{"secret.exe"}
		d.CustomNames = map[string]string{"tool.exe": "My Tool"}
	})

	apps := ApplyPolicy([]types.SnapshotEntry{
		entry("ignored.exe", "x"),
		entry("secret.exe", "diary"),
		entry("blank.exe"),
		entry("spaces.exe", "  ", ""),
		entry("tool.exe", "one", "one", "two"),
		entry("", "orphan"),
	}, settings, NewTitlePins())

	require.Len(t, apps, 1)
	assert.Equal(t, App{
		ProcessName:      "My Tool",
		RawName:          "tool.exe",
		WindowTitles:     []string{"one", "two"},
		ProcessStartTime: t0,
	}, apps[0])
}

func TestHiddenNeverReachesPlan(t *testing.T) {
	settings := settingsWith(func(d *policy.Document) {
		d.HiddenFromWeb = []string{"secret.exe"}
	})
	pins := NewTitlePins()
	apps := ApplyPolicy([]types.SnapshotEntry{entry("secret.exe", "diary"), entry("notepad.exe", "todo")}, settings, pins)
	fg := ResolveForeground(&types.Window{ProcessName: "secret.exe", Title: "diary"}, settings, pins)

	plan := Reconcile(Input{Apps: apps, Foreground: fg, Settings: settings, Open: openSet()})

	for _, ins := range plan.Inserts {
		assert.NotEqual(t, "secret.exe", ins.Key.Process)
		assert.NotEqual(t, "diary", ins.Key.Title)
		assert.NotEqual(t, policy.DefaultHiddenProcess, ins.Key.Process)
	}
	assert.Len(t, plan.Inserts, 1)
}

func TestPinnedTitleScenario(t *testing.T) {
	settings := settingsWith(func(d *policy.Document) {
		d.IgnoreTitleChanges = []string{"app.exe"}
	})
	pins := NewTitlePins()

	apps1 := ApplyPolicy([]types.SnapshotEntry{entry("app.exe", "Doc1 - App")}, settings, pins)
	plan1 := Reconcile(Input{Apps: apps1, Foreground: types.NoForeground(), Settings: settings, Open: openSet()})
	require.Len(t, plan1.Inserts, 1)
	pinned := plan1.Inserts[0].Key
	assert.True(t, apps1[0].Pinned)

	apps2 := ApplyPolicy([]types.SnapshotEntry{entry("app.exe", "Doc2 - App", "Doc3 - App")}, settings, pins)
	plan2 := Reconcile(Input{Apps: apps2, Foreground: types.NoForeground(), Settings: settings, Open: apply(openSet(), plan1)})

	assert.True(t, plan2.Empty(), "title change must not fragment the session")
	assert.Equal(t, []string{pinned.Title}, apps2[0].WindowTitles)

	// the pin outlives a rename of the process
	renamed := settingsWith(func(d *policy.Document) {
		d.IgnoreTitleChanges = []string{"app.exe"}
		d.CustomNames = map[string]string{"app.exe": "Renamed"}
	})
	apps3 := ApplyPolicy([]types.SnapshotEntry{entry("app.exe", "Doc4")}, renamed, pins)
	assert.Equal(t, []string{pinned.Title}, apps3[0].WindowTitles)
}

func TestWindowlessForegroundScenario(t *testing.T) {
	settings := settingsWith(nil)
	pins := NewTitlePins()
	apps := ApplyPolicy([]types.SnapshotEntry{entry("chrome.exe", "Tab A")}, settings, pins)
	fg := ResolveForeground(&types.Window{ProcessName: "tray.exe", Title: "Tray"}, settings, pins)

	open := openSet()
	plan := Reconcile(Input{Apps: apps, Foreground: fg, Settings: settings, Open: open})
	assert.Contains(t, plan.Inserts, Insert{Key: key("tray.exe", "Tray"), Raw: "tray.exe", Foreground: true})
	assert.Len(t, plan.Inserts, 2)

	// still focused and windowless: nothing more happens
	open = apply(open, plan)
	for i := 0; i < 3; i++ {
		next := Reconcile(Input{Apps: apps, Foreground: fg, Settings: settings, Open: open})
		assert.True(t, next.Empty(), "tick %d", i)
	}

	// focus moves away: the windowless session closes
	moved := Reconcile(Input{Apps: apps, Foreground: types.NoForeground(), Settings: settings, Open: open})
	assert.Equal(t, []types.SessionKey{key("tray.exe", "Tray")}, moved.Closures)
}

func TestWindowlessForegroundExclusions(t *testing.T) {
	settings := settingsWith(func(d *policy.Document) {
		d.HiddenFromWeb = []string{"secret.exe"}
		d.CustomNames = map[string]string{"secret.exe": "Diary"}
	})

	tests := []struct {
		name string
		fg   types.ForegroundInfo
	}{
		{"none", types.NoForeground()},
		{"unknown", types.UnknownForeground()},
		{"placeholder", types.HiddenForeground("Other app", "Working")},
		{"hidden display identity", types.ForegroundInfo{ProcessName: "Diary", WindowTitle: "x"}},
		{"process with windows", types.ForegroundInfo{ProcessName: "Notepad", WindowTitle: "other"}},
	}
	apps := ApplyPolicy([]types.SnapshotEntry{entry("notepad.exe", "todo")}, settings, NewTitlePins())

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plan := Reconcile(Input{Apps: apps, Foreground: tt.fg, Settings: settings, Open: openSet(key("Notepad", "todo"))})
			assert.True(t, plan.Empty())
		})
	}
}

func TestWindowlessForegroundHiddenByRawNameOnly(t *testing.T) {
	// foo.exe displays as the raw name of a hidden process
	settings := settingsWith(func(d *policy.Document) {
		d.CustomNames = map[string]string{"foo.exe": "bar.exe"}
		d.HiddenFromWeb = []string{"bar.exe"}
	})
	fg := ResolveForeground(&types.Window{ProcessName: "foo.exe", Title: "Foo"}, settings, NewTitlePins())
	require.Equal(t, types.ForegroundInfo{ProcessName: "bar.exe", WindowTitle: "Foo"}, fg)

	plan := Reconcile(Input{Foreground: fg, Settings: settings, Open: openSet()})
	assert.Equal(t, []Insert{{Key: key("bar.exe", "Foo"), Raw: "foo.exe", Foreground: true}}, plan.Inserts)
}

func TestInsertRawNameFallsBackToReverseMap(t *testing.T) {
	settings := settingsWith(nil)
	apps := []App{{ProcessName: "Google Chrome", WindowTitles: []string{"Tab A"}}}

	plan := Reconcile(Input{Apps: apps, Foreground: types.NoForeground(), Settings: settings, Open: openSet()})
	assert.Equal(t, []Insert{{Key: key("Google Chrome", "Tab A"), Raw: "chrome.exe"}}, plan.Inserts)
}

func TestResolveForeground(t *testing.T) {
	settings := settingsWith(func(d *policy.Document) {
		d.IgnoredApps = []string{"ignored.exe"}
		d.HiddenFromWeb = []string{"secret.exe"}
		d.IgnoreTitleChanges = []string{"code.exe"}
		d.HiddenAppDisplay = policy.HiddenDisplay{ProcessName: "Busy", WindowTitle: "Elsewhere"}
	})

	tests := []struct {
		name   string
		window *types.Window
		want   types.ForegroundInfo
	}{
		{"nothing", nil, types.NoForeground()},
		{"unknown", &types.Window{ProcessName: types.UnknownIdentity, Title: types.UnknownIdentity}, types.UnknownForeground()},
		{"ignored", &types.Window{ProcessName: "ignored.exe", Title: "x"}, types.NoForeground()},
		{"hidden", &types.Window{ProcessName: "secret.exe", Title: "diary"}, types.HiddenForeground("Busy", "Elsewhere")},
		{"pinned", &types.Window{ProcessName: "code.exe", Title: "main.go"}, types.ForegroundInfo{ProcessName: "Visual Studio Code", WindowTitle: "Visual Studio Code"}},
		{"display name", &types.Window{ProcessName: "msedge.exe", Title: "News"}, types.ForegroundInfo{ProcessName: "Microsoft Edge", WindowTitle: "News"}},
		{"plain", &types.Window{ProcessName: "xterm", Title: "~"}, types.ForegroundInfo{ProcessName: "xterm", WindowTitle: "~"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ResolveForeground(tt.window, settings, NewTitlePins())
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPinnedForegroundMatchesPinnedSession(t *testing.T) {
	settings := settingsWith(func(d *policy.Document) {
		d.IgnoreTitleChanges = []string{"code.exe"}
	})
	pins := NewTitlePins()

	apps := ApplyPolicy([]types.SnapshotEntry{entry("code.exe", "a.go", "b.go")}, settings, pins)
	fg := ResolveForeground(&types.Window{ProcessName: "code.exe", Title: "b.go"}, settings, pins)
	plan := Reconcile(Input{Apps: apps, Foreground: fg, Settings: settings, Open: openSet()})

	assert.Equal(t, []Insert{{Key: key("Visual Studio Code", "Visual Studio Code"), Raw: "code.exe", Foreground: true}}, plan.Inserts)
}

func TestTitlePins(t *testing.T) {
	pins := NewTitlePins()

	assert.Equal(t, "first", pins.Pin("a.exe", "first"))
	assert.Equal(t, "first", pins.Pin("a.exe", "second"))
	assert.Equal(t, "other", pins.Pin("b.exe", "other"))
}
