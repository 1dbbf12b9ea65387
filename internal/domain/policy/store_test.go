package policy

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestStore(t *testing.T, content string) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "settings.json")
	if content != "" {
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	return NewStore(path, zap.NewNop())
}

func TestStoreLoadMissingFile(t *testing.T) {
	s := newTestStore(t, "")

	settings := s.Load()
	assert.True(t, settings.MonitoringEnabled)
	assert.Empty(t, settings.Hidden)
	_, err := os.Stat(s.Path())
	assert.True(t, os.IsNotExist(err), "loading does not create the file")
}

func TestStoreLoadMalformedFile(t *testing.T) {
	s := newTestStore(t, `{"monitoring_enabled": fal`)

	settings := s.Load()
	assert.True(t, settings.MonitoringEnabled)
}

func TestStoreLoadPicksUpChanges(t *testing.T) {
	s := newTestStore(t, `{"monitoring_enabled": false}`)
	assert.False(t, s.Load().MonitoringEnabled)

	require.NoError(t, os.WriteFile(s.Path(), []byte(`{"monitoring_enabled": true, "ignored_apps": ["a"]}`), 0o644))
	settings := s.Load()
	assert.True(t, settings.MonitoringEnabled)
	assert.True(t, settings.IsIgnored("a"))
}

func TestStoreTogglePersists(t *testing.T) {
	s := newTestStore(t, "")

	settings, added, err := s.ToggleHidden("secret.exe")
	require.NoError(t, err)
	assert.True(t, added)
	assert.True(t, settings.IsHidden("secret.exe"))

	fresh := NewStore(s.Path(), nil)
	assert.True(t, fresh.Load().IsHidden("secret.exe"))

	settings, added, err = s.ToggleHidden("secret.exe")
	require.NoError(t, err)
	assert.False(t, added)
	assert.False(t, settings.IsHidden("secret.exe"))
	assert.False(t, NewStore(s.Path(), nil).Load().IsHidden("secret.exe"))
}

func TestStoreToggleResolvesDisplayName(t *testing.T) {
	s := newTestStore(t, `{"custom_names": {"code.exe": "Editor"}}`)

	settings, added, err := s.TogglePinned("Editor")
	require.NoError(t, err)
	assert.True(t, added)
	assert.True(t, settings.IsPinned("code.exe"))

	settings, _, err = s.ToggleIgnored("Google Chrome")
	require.NoError(t, err)
	assert.True(t, settings.IsIgnored("chrome.exe"))
}

func TestStoreToggleRejectsEmptyName(t *testing.T) {
	s := newTestStore(t, "")
	_, _, err := s.ToggleIgnored("  ")
	assert.ErrorIs(t, err, ErrEmptyName)
}

func TestStorePreservesUnknownKeys(t *testing.T) {
	s := newTestStore(t, `{"theme": "dark", "window": {"w": 800}}`)

	_, err := s.SetMonitoring(false)
	require.NoError(t, err)

	data, err := os.ReadFile(s.Path())
	require.NoError(t, err)
	doc, extra, _, err := decodeDocument(data)
	require.NoError(t, err)
	assert.False(t, doc.MonitoringEnabled)
	assert.JSONEq(t, `"dark"`, string(extra["theme"]))
	assert.JSONEq(t, `{"w": 800}`, string(extra["window"]))
}

func TestStoreCustomNames(t *testing.T) {
	s := newTestStore(t, "")

	settings, err := s.SetCustomName("chrome.exe", "Browser")
	require.NoError(t, err)
	assert.Equal(t, "Browser", settings.DisplayName("chrome.exe"))

	// renaming by the current display name targets the same raw process
	settings, err = s.SetCustomName("Browser", "Web")
	require.NoError(t, err)
	assert.Equal(t, "Web", settings.DisplayName("chrome.exe"))
	assert.NotContains(t, settings.CustomNames, "Browser")

	settings, err = s.RemoveCustomName("Web")
	require.NoError(t, err)
	assert.Equal(t, "Google Chrome", settings.DisplayName("chrome.exe"))

	_, err = s.SetCustomName("chrome.exe", "")
	assert.ErrorIs(t, err, ErrEmptyName)
}

func TestStoreHiddenDisplay(t *testing.T) {
	s := newTestStore(t, "")

	settings, err := s.SetHiddenDisplay(HiddenDisplay{ProcessName: "Busy", WindowTitle: "Elsewhere"})
	require.NoError(t, err)
	assert.Equal(t, "Busy", settings.HiddenPlaceholder.ProcessName)
	assert.Equal(t, "Elsewhere", NewStore(s.Path(), nil).Load().HiddenPlaceholder.WindowTitle)
}

func TestStoreReplace(t *testing.T) {
	s := newTestStore(t, `{"extra": 1}`)

	doc := DefaultDocument()
	doc.IgnoredApps = []string{"x.exe"}
	settings, err := s.Replace(doc)
	require.NoError(t, err)
	assert.True(t, settings.IsIgnored("x.exe"))

	data, err := os.ReadFile(s.Path())
	require.NoError(t, err)
	assert.Contains(t, string(data), `"extra"`)
}

func TestPendingPurgeIsEdgeTriggered(t *testing.T) {
	s := newTestStore(t, "")
	hidden := FromDocument(Document{HiddenFromWeb: []string{"a.exe", "b.exe"}})

	pending := s.PendingPurge(hidden)
	assert.Equal(t, []string{"a.exe", "b.exe"}, pending)

	// not marked yet: reported again, so a failed purge is retried
	assert.Equal(t, pending, s.PendingPurge(hidden))

	s.MarkPurged(pending)
	assert.Empty(t, s.PendingPurge(hidden))

	// un-hiding forgets the mark, hiding again purges again
	onlyB := FromDocument(Document{HiddenFromWeb: []string{"b.exe"}})
	assert.Empty(t, s.PendingPurge(onlyB))
	assert.Equal(t, []string{"a.exe"}, s.PendingPurge(hidden))
}
