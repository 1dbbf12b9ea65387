package snapshot

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/GriffinCanCode/appwatch/internal/shared/types"
	"go.uber.org/zap"
)

// ErrUnsupported is returned when a provider cannot run on this platform
var ErrUnsupported = errors.New("snapshot provider not supported on this platform")

// Provider kinds
const (
	KindX11    = "x11"
	KindStatic = "static"
)

// Provider reports visible windows and the focused one.
//
// Enumerate fails only when nothing could be enumerated at all; processes
// that vanish or cannot be inspected mid-enumeration are skipped.
//
// Foreground returns nil when no window has focus and a window owned by
// types.UnknownIdentity when the owner cannot be resolved.
type Provider interface {
	Enumerate(ctx context.Context) ([]types.SnapshotEntry, error)
	Foreground(ctx context.Context) (*types.Window, error)
}

// Config selects and tunes a provider
type Config struct {
	Kind    string
	Timeout time.Duration
}

// New builds the provider named by cfg.Kind
func New(cfg Config, logger *zap.Logger) (Provider, error) {
	switch cfg.Kind {
	case KindStatic:
		return NewStatic(nil, nil), nil
	case KindX11, "":
		x, err := NewX11(cfg.Timeout, logger)
		if err != nil {
			return nil, err
		}
		return x, nil
	default:
		return nil, fmt.Errorf("unknown snapshot provider %q", cfg.Kind)
	}
}

// Static serves fixed values. Safe for concurrent use; Set replaces the
// values seen by subsequent calls.
type Static struct {
	mu         sync.RWMutex
	entries    []types.SnapshotEntry
	foreground *types.Window
	err        error
}

// NewStatic creates a static provider
func NewStatic(entries []types.SnapshotEntry, foreground *types.Window) *Static {
	s := &Static{}
	s.Set(entries, foreground)
	return s
}

// Set replaces the snapshot and focused window
func (s *Static) Set(entries []types.SnapshotEntry, foreground *types.Window) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = cloneEntries(entries)
	if foreground != nil {
		fg := *foreground
		s.foreground = &fg
	} else {
		s.foreground = nil
	}
}

// SetError makes Enumerate fail with err until cleared with nil
func (s *Static) SetError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}

// Enumerate returns a copy of the configured snapshot
func (s *Static) Enumerate(ctx context.Context) ([]types.SnapshotEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.err != nil {
		return nil, s.err
	}
	return cloneEntries(s.entries), nil
}

// Foreground returns the configured focused window
func (s *Static) Foreground(ctx context.Context) (*types.Window, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.foreground == nil {
		return nil, nil
	}
	fg := *s.foreground
	return &fg, nil
}

func cloneEntries(entries []types.SnapshotEntry) []types.SnapshotEntry {
	if entries == nil {
		return nil
	}
	out := make([]types.SnapshotEntry, len(entries))
	for i, e := range entries {
		e.WindowTitles = slices.Clone(e.WindowTitles)
		out[i] = e
	}
	return out
}
