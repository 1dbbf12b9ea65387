package types

import "time"

// Sentinel identities reported for the foreground window.
const (
	NoneIdentity    = "None"
	UnknownIdentity = "Unknown"
)

// TimeLayout is the storage layout for session timestamps.
const TimeLayout = "2006-01-02T15:04:05.000000Z"

// FormatTime renders t in TimeLayout (UTC).
func FormatTime(t time.Time) string {
	return t.UTC().Format(TimeLayout)
}

// ParseTime parses a TimeLayout timestamp.
func ParseTime(s string) (time.Time, error) {
	return time.ParseInLocation(TimeLayout, s, time.UTC)
}

// SessionKey is the identity of a session: display process identity plus
// window title. At most one open session exists per key.
type SessionKey struct {
	Process string `json:"process_name"`
	Title   string `json:"window_title"`
}

// Session is a recorded application window occurrence
type Session struct {
	ID           int64      `json:"id"`
	ProcessName  string     `json:"process_name"`
	WindowTitle  string     `json:"window_title"`
	StartTime    time.Time  `json:"start_time"`
	EndTime      *time.Time `json:"end_time,omitempty"`
	IsForeground bool       `json:"is_foreground"`
	// RawName is empty for rows recorded before raw names were stored
	RawName      string     `json:"raw_process_name,omitempty"`
}

// Key returns the session identity
func (s Session) Key() SessionKey {
	return SessionKey{Process: s.ProcessName, Title: s.WindowTitle}
}

// Open reports whether the session has no end time yet
func (s Session) Open() bool {
	return s.EndTime == nil
}

// RunningTime returns end - start for closed sessions
func (s Session) RunningTime() (time.Duration, bool) {
	if s.EndTime == nil {
		return 0, false
	}
	return s.EndTime.Sub(s.StartTime), true
}

// SnapshotEntry is one running process with visible windows.
// ProcessName is the raw executable name as reported by the provider.
type SnapshotEntry struct {
	ProcessName      string    `json:"process_name"`
	WindowTitles     []string  `json:"window_titles"`
	ProcessStartTime time.Time `json:"process_start_time"`
}

// Window is the raw focused window reported by a provider
type Window struct {
	ProcessName string
	Title       string
}

// ForegroundInfo is the focused window after policy is applied.
// Hidden processes surface as the configured placeholder.
type ForegroundInfo struct {
	ProcessName string `json:"process_name"`
	WindowTitle string `json:"window_title"`

	// hidden marks a placeholder standing in for a hidden process
	hidden bool
}

// NoForeground returns the "none" sentinel
func NoForeground() ForegroundInfo {
	return ForegroundInfo{ProcessName: NoneIdentity, WindowTitle: NoneIdentity}
}

// UnknownForeground returns the sentinel used when the owner of the focused
// window cannot be resolved
func UnknownForeground() ForegroundInfo {
	return ForegroundInfo{ProcessName: UnknownIdentity, WindowTitle: UnknownIdentity}
}

// HiddenForeground returns a placeholder for a hidden process
func HiddenForeground(process, title string) ForegroundInfo {
	return ForegroundInfo{ProcessName: process, WindowTitle: title, hidden: true}
}

// IsNone reports whether no window is in the foreground
func (f ForegroundInfo) IsNone() bool {
	return f.ProcessName == NoneIdentity || f.ProcessName == ""
}

// IsUnknown reports whether the focused window owner was unresolvable
func (f ForegroundInfo) IsUnknown() bool {
	return f.ProcessName == UnknownIdentity
}

// IsHidden reports whether this is a placeholder for a hidden process
func (f ForegroundInfo) IsHidden() bool {
	return f.hidden
}

// Key returns the foreground identity pair
func (f ForegroundInfo) Key() SessionKey {
	return SessionKey{Process: f.ProcessName, Title: f.WindowTitle}
}
