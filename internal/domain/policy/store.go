package policy

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

// ErrEmptyName is returned by mutations given a blank process name
var ErrEmptyName = errors.New("process name is required")

// Store loads and persists the settings document. Load is cheap when the
// file has not changed since the previous call.
type Store struct {
	path   string
	logger *zap.Logger

	mu      sync.Mutex
	current Settings
	extra   map[string]json.RawMessage
	loaded  bool
	modTime time.Time
	size    int64

	// raw names whose history has already been purged in this process
	purged map[string]struct{}
}

// NewStore creates a store for the document at path. Nothing is read until
// the first Load.
func NewStore(path string, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{
		path:    path,
		logger:  logger,
		current: Defaults(),
		purged:  make(map[string]struct{}),
	}
}

// Path returns the document location
func (s *Store) Path() string { return s.path }

// Load returns the current settings, re-reading the document when it
// changed on disk. Missing or malformed documents yield defaults.
func (s *Store) Load() Settings {
	s.mu.Lock()
	defer s.mu.Unlock()

	info, err := os.Stat(s.path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			s.logger.Warn("Settings unreadable, using defaults", zap.String("path", s.path), zap.Error(err))
		}
		if s.loaded && s.modTime.IsZero() {
			return s.current
		}
		s.current, s.extra = Defaults(), nil
		s.loaded, s.modTime, s.size = true, time.Time{}, 0
		return s.current
	}

	if s.loaded && info.ModTime().Equal(s.modTime) && info.Size() == s.size {
		return s.current
	}

	s.readLocked(info)
	return s.current
}

func (s *Store) readLocked(info fs.FileInfo) {
	s.loaded, s.modTime, s.size = true, info.ModTime(), info.Size()

	data, err := os.ReadFile(s.path)
	if err != nil {
		s.logger.Warn("Failed to read settings, using defaults", zap.String("path", s.path), zap.Error(err))
		s.current, s.extra = Defaults(), nil
		return
	}

	doc, extra, keyErrs, err := decodeDocument(data)
	if err != nil {
		s.logger.Warn("Malformed settings, using defaults", zap.String("path", s.path), zap.Error(err))
		s.current, s.extra = Defaults(), nil
		return
	}
	for _, kerr := range keyErrs {
		s.logger.Warn("Ignoring invalid settings value", zap.String("path", s.path), zap.Error(kerr))
	}

	s.current, s.extra = FromDocument(doc), extra
	s.logger.Debug("Settings loaded",
		zap.String("path", s.path),
		zap.Bool("monitoring_enabled", s.current.MonitoringEnabled),
		zap.Int("ignored", len(s.current.Ignored)),
		zap.Int("hidden", len(s.current.Hidden)),
		zap.Int("pinned", len(s.current.PinTitle)),
	)
}

// PendingPurge returns hidden raw names whose history has not yet been
// purged by this process. Names no longer hidden are forgotten, so hiding
// them again purges again.
func (s *Store) PendingPurge(settings Settings) []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	for raw := range s.purged {
		if !settings.IsHidden(raw) {
			delete(s.purged, raw)
		}
	}

	var pending []string
	for _, raw := range settings.Hidden.Sorted() {
		if _, done := s.purged[raw]; !done {
			pending = append(pending, raw)
		}
	}
	return pending
}

// MarkPurged records that the history of the given raw names is gone.
func (s *Store) MarkPurged(raws []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, raw := range raws {
		s.purged[raw] = struct{}{}
	}
}

// Update applies fn to the current document and persists the result.
func (s *Store) Update(fn func(*Document) error) (Settings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.loaded {
		if info, err := os.Stat(s.path); err == nil {
			s.readLocked(info)
		} else {
			s.loaded = true
		}
	}

	doc := s.current.Document()
	if err := fn(&doc); err != nil {
		return s.current, err
	}

	data, err := encodeDocument(doc, s.extra)
	if err != nil {
		return s.current, err
	}
	if err := writeFileAtomic(s.path, data); err != nil {
		return s.current, fmt.Errorf("save settings: %w", err)
	}
	if info, err := os.Stat(s.path); err == nil {
		s.modTime, s.size = info.ModTime(), info.Size()
	}

	s.current = FromDocument(doc)
	return s.current, nil
}

// Replace overwrites the known keys of the document with doc.
func (s *Store) Replace(doc Document) (Settings, error) {
	return s.Update(func(d *Document) error {
		*d = doc
		return nil
	})
}

// SetMonitoring pauses or resumes observation.
func (s *Store) SetMonitoring(enabled bool) (Settings, error) {
	return s.Update(func(d *Document) error {
		d.MonitoringEnabled = enabled
		return nil
	})
}

// TogglePinned flips title pinning for a process given by raw or display
// name. It reports whether the process is pinned afterwards.
func (s *Store) TogglePinned(name string) (Settings, bool, error) {
	return s.toggle(name, func(d *Document) *[]string { return &d.IgnoreTitleChanges })
}

// ToggleHidden flips history suppression for a process.
func (s *Store) ToggleHidden(name string) (Settings, bool, error) {
	return s.toggle(name, func(d *Document) *[]string { return &d.HiddenFromWeb })
}

// ToggleIgnored flips full exclusion for a process.
func (s *Store) ToggleIgnored(name string) (Settings, bool, error) {
	return s.toggle(name, func(d *Document) *[]string { return &d.IgnoredApps })
}

func (s *Store) toggle(name string, list func(*Document) *[]string) (Settings, bool, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return s.Load(), false, ErrEmptyName
	}
	raw := s.Load().RawName(name)

	var added bool
	settings, err := s.Update(func(d *Document) error {
		names := list(d)
		for i, n := range *names {
			if n == raw {
				*names = append((*names)[:i], (*names)[i+1:]...)
				return nil
			}
		}
		*names = append(*names, raw)
		added = true
		return nil
	})
	return settings, added, err
}

// SetCustomName renames a process for display. name may be the raw name
// or its current display name.
func (s *Store) SetCustomName(name, display string) (Settings, error) {
	name, display = strings.TrimSpace(name), strings.TrimSpace(display)
	if name == "" || display == "" {
		return s.Load(), ErrEmptyName
	}
	raw := s.Load().RawName(name)

	return s.Update(func(d *Document) error {
		if d.CustomNames == nil {
			d.CustomNames = map[string]string{}
		}
		d.CustomNames[raw] = display
		return nil
	})
}

// RemoveCustomName drops a custom display name.
func (s *Store) RemoveCustomName(name string) (Settings, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return s.Load(), ErrEmptyName
	}
	raw := s.Load().RawName(name)

	return s.Update(func(d *Document) error {
		delete(d.CustomNames, raw)
		return nil
	})
}

// SetHiddenDisplay changes the placeholder shown for focused hidden processes.
func (s *Store) SetHiddenDisplay(display HiddenDisplay) (Settings, error) {
	return s.Update(func(d *Document) error {
		d.HiddenAppDisplay = display
		return nil
	})
}

func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, ".settings-*.json")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
