//go:build linux

package snapshot

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/prometheus/procfs"
	"go.uber.org/zap"
)

type procfsLookup struct {
	fs procfs.FS
}

func newProcfsLookup(mount string) (*procfsLookup, error) {
	fs, err := procfs.NewFS(mount)
	if err != nil {
		return nil, fmt.Errorf("open procfs: %w", err)
	}
	return &procfsLookup{fs: fs}, nil
}

// Lookup reads the executable name and start time of pid. The executable
// link is preferred over comm, which the kernel truncates to 15 bytes.
func (l *procfsLookup) Lookup(pid int) (ProcessInfo, error) {
	p, err := l.fs.Proc(pid)
	if err != nil {
		return ProcessInfo{}, err
	}

	var info ProcessInfo
	if exe, err := p.Executable(); err == nil && exe != "" {
		info.Name = filepath.Base(exe)
	} else if comm, err := p.Comm(); err == nil {
		info.Name = comm
	} else {
		return ProcessInfo{}, fmt.Errorf("pid %d: %w", pid, err)
	}

	if stat, err := p.Stat(); err == nil {
		if secs, err := stat.StartTime(); err == nil {
			info.StartTime = time.Unix(0, int64(secs*float64(time.Second))).UTC()
		}
	}
	return info, nil
}

// NewX11 builds an X11 provider reading processes from /proc
func NewX11(timeout time.Duration, logger *zap.Logger, opts ...X11Option) (*X11, error) {
	procs, err := newProcfsLookup(procfs.DefaultMountPoint)
	if err != nil {
		return nil, err
	}
	return NewX11WithLookup(procs, timeout, logger, opts...), nil
}
