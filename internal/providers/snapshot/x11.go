package snapshot

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/GriffinCanCode/appwatch/internal/infrastructure/resilience"
	"github.com/GriffinCanCode/appwatch/internal/shared/types"
	"go.uber.org/zap"
)

// ProcessInfo describes the owner of a window
type ProcessInfo struct {
	Name      string
	StartTime time.Time
}

// ProcessLookup resolves a pid to its executable name and start time
type ProcessLookup interface {
	Lookup(pid int) (ProcessInfo, error)
}

// CommandRunner runs an external command and returns its stdout
type CommandRunner func(ctx context.Context, name string, args ...string) ([]byte, error)

// ExecRunner runs commands with os/exec
func ExecRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return nil, fmt.Errorf("%s: %w: %s", name, err, msg)
		}
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return out, nil
}

// X11 enumerates windows through EWMH-aware command line tools
type X11 struct {
	run     CommandRunner
	procs   ProcessLookup
	breaker *resilience.Breaker
	timeout time.Duration
	logger  *zap.Logger
}

// X11Option customises an X11 provider
type X11Option func(*X11)

// WithRunner replaces the command runner
func WithRunner(run CommandRunner) X11Option { return func(x *X11) { x.run = run } }

// WithBreaker replaces the breaker guarding command execution
func WithBreaker(b *resilience.Breaker) X11Option { return func(x *X11) { x.breaker = b } }

// NewX11WithLookup builds an X11 provider on an explicit process lookup
func NewX11WithLookup(procs ProcessLookup, timeout time.Duration, logger *zap.Logger, opts ...X11Option) *X11 {
	if logger == nil {
		logger = zap.NewNop()
	}
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	x := &X11{
		run:     ExecRunner,
		procs:   procs,
		timeout: timeout,
		logger:  logger,
	}
	x.breaker = resilience.New("x11", resilience.Settings{
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts resilience.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
		OnStateChange: func(name string, from, to resilience.State) {
			logger.Warn("Window enumeration breaker changed state",
				zap.String("breaker", name),
				zap.Stringer("from", from),
				zap.Stringer("to", to))
		},
	})
	for _, opt := range opts {
		opt(x)
	}
	return x
}

// Enumerate lists processes owning visible, titled windows
func (x *X11) Enumerate(ctx context.Context) ([]types.SnapshotEntry, error) {
	windows, err := x.windows(ctx)
	if err != nil {
		return nil, err
	}
	return x.group(windows), nil
}

// Foreground resolves the window named by _NET_ACTIVE_WINDOW
func (x *X11) Foreground(ctx context.Context) (*types.Window, error) {
	out, err := x.command(ctx, "xprop", "-root", "_NET_ACTIVE_WINDOW")
	if err != nil {
		return nil, err
	}
	id, ok := parseActiveWindow(out)
	if !ok {
		return nil, nil
	}

	windows, err := x.windows(ctx)
	if err != nil {
		return unknownWindow(), nil
	}
	for _, w := range windows {
		if w.id != id {
			continue
		}
		info, err := x.procs.Lookup(w.pid)
		if err != nil || info.Name == "" {
			x.logger.Debug("Focused window owner unresolved", zap.Int("pid", w.pid), zap.Error(err))
			return unknownWindow(), nil
		}
		return &types.Window{ProcessName: info.Name, Title: w.title}, nil
	}
	return unknownWindow(), nil
}

func unknownWindow() *types.Window {
	return &types.Window{ProcessName: types.UnknownIdentity, Title: types.UnknownIdentity}
}

func (x *X11) windows(ctx context.Context) ([]wmWindow, error) {
	out, err := x.command(ctx, "wmctrl", "-lp")
	if err != nil {
		return nil, err
	}
	return parseWindowList(out), nil
}

func (x *X11) command(ctx context.Context, name string, args ...string) ([]byte, error) {
	return resilience.Do(ctx, x.breaker, func(ctx context.Context) ([]byte, error) {
		ctx, cancel := context.WithTimeout(ctx, x.timeout)
		defer cancel()
		return x.run(ctx, name, args...)
	})
}

// group folds windows into one entry per process name, keeping the order
// in which processes and titles first appear. Windows whose owner cannot
// be inspected are skipped.
func (x *X11) group(windows []wmWindow) []types.SnapshotEntry {
	index := make(map[string]int)
	var entries []types.SnapshotEntry

	for _, w := range windows {
		if w.title == "" || w.pid <= 0 {
			continue
		}
		info, err := x.procs.Lookup(w.pid)
		if err != nil || info.Name == "" {
			x.logger.Debug("Skipping window with unreadable owner", zap.Int("pid", w.pid), zap.Error(err))
			continue
		}

		i, seen := index[info.Name]
		if !seen {
			i = len(entries)
			index[info.Name] = i
			entries = append(entries, types.SnapshotEntry{
				ProcessName:      info.Name,
				ProcessStartTime: info.StartTime,
			})
		}
		if !slices.Contains(entries[i].WindowTitles, w.title) {
			entries[i].WindowTitles = append(entries[i].WindowTitles, w.title)
		}
		if entries[i].ProcessStartTime.IsZero() || (!info.StartTime.IsZero() && info.StartTime.Before(entries[i].ProcessStartTime)) {
			entries[i].ProcessStartTime = info.StartTime
		}
	}
	return entries
}

type wmWindow struct {
	id      uint64
	desktop int
	pid     int
	title   string
}

// parseWindowList parses `wmctrl -lp` output:
//
//	0x03a00007  0 4242   host Title with  spaces
//
// Sticky windows (desktop -1) are panels and docks and are dropped.
func parseWindowList(out []byte) []wmWindow {
	var windows []wmWindow
	sc := bufio.NewScanner(bytes.NewReader(out))
	for sc.Scan() {
		line := sc.Text()
		fields, rest := splitFields(line, 4)
		if len(fields) < 4 {
			continue
		}
		id, err := parseWindowID(fields[0])
		if err != nil {
			continue
		}
		desktop, err := strconv.Atoi(fields[1])
		if err != nil || desktop < 0 {
			continue
		}
		pid, err := strconv.Atoi(fields[2])
		if err != nil {
			continue
		}
		windows = append(windows, wmWindow{
			id:      id,
			desktop: desktop,
			pid:     pid,
			title:   strings.TrimSpace(rest),
		})
	}
	return windows
}

// splitFields splits off the first n whitespace-separated fields and
// returns the remainder untouched.
func splitFields(line string, n int) ([]string, string) {
	fields := make([]string, 0, n)
	rest := line
	for len(fields) < n {
		rest = strings.TrimLeft(rest, " \t")
		if rest == "" {
			break
		}
		end := strings.IndexAny(rest, " \t")
		if end < 0 {
			fields = append(fields, rest)
			rest = ""
			break
		}
		fields = append(fields, rest[:end])
		rest = rest[end:]
	}
	if len(rest) > 0 && (rest[0] == ' ' || rest[0] == '\t') {
		rest = rest[1:]
	}
	return fields, rest
}

// parseActiveWindow reads `_NET_ACTIVE_WINDOW(WINDOW): window id # 0x3a00007`.
// A zero id or a missing property means nothing has focus.
func parseActiveWindow(out []byte) (uint64, bool) {
	s := string(bytes.TrimSpace(out))
	i := strings.LastIndex(s, "#")
	if i < 0 {
		return 0, false
	}
	field := strings.TrimSpace(s[i+1:])
	if j := strings.IndexByte(field, ','); j >= 0 {
		field = field[:j]
	}
	id, err := parseWindowID(field)
	if err != nil || id == 0 {
		return 0, false
	}
	return id, true
}

var errWindowID = errors.New("invalid window id")

func parseWindowID(s string) (uint64, error) {
	if !strings.HasPrefix(s, "0x") {
		return 0, errWindowID
	}
	return strconv.ParseUint(s[2:], 16, 64)
}
