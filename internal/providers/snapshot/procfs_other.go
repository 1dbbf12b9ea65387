//go:build !linux

package snapshot

import (
	"time"

	"go.uber.org/zap"
)

// NewX11 is only available on Linux
func NewX11(timeout time.Duration, logger *zap.Logger, opts ...X11Option) (*X11, error) {
	return nil, ErrUnsupported
}
