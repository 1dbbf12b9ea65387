// Package summary aggregates recorded sessions into per-application usage.
package summary

import (
	"sort"
	"time"

	"github.com/GriffinCanCode/appwatch/internal/shared/types"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Usage is the duration statistics of one process identity. Only closed
// sessions contribute durations; open ones are counted separately.
type Usage struct {
	ProcessName string        `json:"process_name"`
	Sessions    int           `json:"sessions"`
	Open        int           `json:"open"`
	Foreground  int           `json:"foreground"`
	Total       time.Duration `json:"total_ns"`
	Mean        time.Duration `json:"mean_ns"`
	StdDev      time.Duration `json:"stddev_ns"`
	Longest     time.Duration `json:"longest_ns"`
	Windows     int           `json:"windows"`
}

// Summarize groups sessions by process identity, longest total first.
func Summarize(sessions []types.Session) []Usage {
	type acc struct {
		usage   Usage
		secs    []float64
		windows map[string]struct{}
	}
	byName := make(map[string]*acc)

	for _, s := range sessions {
		a, ok := byName[s.ProcessName]
		if !ok {
			a = &acc{usage: Usage{ProcessName: s.ProcessName}, windows: make(map[string]struct{})}
			byName[s.ProcessName] = a
		}
		a.usage.Sessions++
		a.windows[s.WindowTitle] = struct{}{}
		if s.IsForeground {
			a.usage.Foreground++
		}
		d, closed := s.RunningTime()
		if !closed {
			a.usage.Open++
			continue
		}
		a.secs = append(a.secs, d.Seconds())
	}

	out := make([]Usage, 0, len(byName))
	for _, a := range byName {
		u := a.usage
		u.Windows = len(a.windows)
		if len(a.secs) > 0 {
			u.Total = seconds(floats.Sum(a.secs))
			u.Longest = seconds(floats.Max(a.secs))
			mean, std := stat.MeanStdDev(a.secs, nil)
			u.Mean = seconds(mean)
			if len(a.secs) > 1 {
				u.StdDev = seconds(std)
			}
		}
		out = append(out, u)
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Total != out[j].Total {
			return out[i].Total > out[j].Total
		}
		return out[i].ProcessName < out[j].ProcessName
	})
	return out
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second)).Round(time.Millisecond)
}
