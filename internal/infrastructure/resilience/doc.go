/*
Package resilience provides a circuit breaker for calls to external tools.

The X11 snapshot provider shells out to window-manager utilities on every
tick. When those keep failing (no display, tool missing) the breaker opens
and ticks fail fast with ErrCircuitOpen instead of spawning a process each
time.

# Usage

	breaker := resilience.New("wmctrl", resilience.Settings{
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts resilience.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
		OnStateChange: func(name string, from, to resilience.State) {
			logger.Warn("Breaker state changed", zap.String("name", name),
				zap.Stringer("from", from), zap.Stringer("to", to))
		},
	})

	out, err := resilience.Do(ctx, breaker, func(ctx context.Context) ([]byte, error) {
		return exec.CommandContext(ctx, "wmctrl", "-lp").Output()
	})

# States

	Closed --[failures]-> Open --[timeout]-> Half-Open --[successes]-> Closed
	                                           |
	                                    [failure]
	                                           |
	                                           v
	                                         Open
*/
package resilience
