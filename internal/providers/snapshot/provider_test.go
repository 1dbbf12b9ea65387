package snapshot

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/GriffinCanCode/appwatch/internal/shared/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestStaticProvider(t *testing.T) {
	entries := []types.SnapshotEntry{{ProcessName: "chrome.exe", WindowTitles: []string{"A", "B"}}}
	fg := &types.Window{ProcessName: "chrome.exe", Title: "A"}
	p := NewStatic(entries, fg)

	got, err := p.Enumerate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, entries, got)

	// results are copies
	got[0].WindowTitles[0] = "mutated"
	again, _ := p.Enumerate(context.Background())
	assert.Equal(t, "A", again[0].WindowTitles[0])

	focused, err := p.Foreground(context.Background())
	require.NoError(t, err)
	assert.Equal(t, fg, focused)

	p.Set(nil, nil)
	focused, err = p.Foreground(context.Background())
	require.NoError(t, err)
	assert.Nil(t, focused)
}

func TestStaticProviderError(t *testing.T) {
	p := NewStatic(nil, nil)
	boom := errors.New("enumeration failed")

	p.SetError(boom)
	_, err := p.Enumerate(context.Background())
	assert.ErrorIs(t, err, boom)

	p.SetError(nil)
	_, err = p.Enumerate(context.Background())
	assert.NoError(t, err)
}

func TestStaticProviderCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewStatic(nil, nil).Enumerate(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNew(t *testing.T) {
	p, err := New(Config{Kind: KindStatic}, zap.NewNop())
	require.NoError(t, err)
	assert.IsType(t, &Static{}, p)

	_, err = New(Config{Kind: "wayland", Timeout: time.Second}, zap.NewNop())
	assert.Error(t, err)
}
