package policy

import (
	"maps"
	"sort"

	"github.com/GriffinCanCode/appwatch/internal/storage"
)

// Default placeholder shown while a hidden process has focus
const (
	DefaultHiddenProcess = "Other app"
	DefaultHiddenTitle   = "Working"
)

// HiddenDisplay is the identity substituted for a focused hidden process
type HiddenDisplay struct {
	ProcessName string `json:"process_name"`
	WindowTitle string `json:"window_title"`
}

// Set is a set of raw process names
type Set map[string]struct{}

// NewSet builds a set from names
func NewSet(names ...string) Set {
	s := make(Set, len(names))
	for _, n := range names {
		if n != "" {
			s[n] = struct{}{}
		}
	}
	return s
}

// Has reports membership
func (s Set) Has(name string) bool {
	_, ok := s[name]
	return ok
}

// Sorted returns the members in order
func (s Set) Sorted() []string {
	out := make([]string, 0, len(s))
	for n := range s {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// Settings is one immutable policy snapshot
type Settings struct {
	MonitoringEnabled bool
	Ignored           Set
	PinTitle          Set
	CustomNames       map[string]string
	Hidden            Set
	HiddenPlaceholder HiddenDisplay

	names nameIndex
}

// Defaults returns the built-in policy
func Defaults() Settings {
	return FromDocument(DefaultDocument())
}

// FromDocument builds a Settings snapshot, including its name index
func FromDocument(doc Document) Settings {
	placeholder := doc.HiddenAppDisplay
	if placeholder.ProcessName == "" {
		placeholder.ProcessName = DefaultHiddenProcess
	}
	if placeholder.WindowTitle == "" {
		placeholder.WindowTitle = DefaultHiddenTitle
	}

	custom := make(map[string]string, len(doc.CustomNames))
	for raw, display := range doc.CustomNames {
		if raw != "" && display != "" {
			custom[raw] = display
		}
	}

	return Settings{
		MonitoringEnabled: doc.MonitoringEnabled,
		Ignored:           NewSet(doc.IgnoredApps...),
		PinTitle:          NewSet(doc.IgnoreTitleChanges...),
		CustomNames:       custom,
		Hidden:            NewSet(doc.HiddenFromWeb...),
		HiddenPlaceholder: placeholder,
		names:             newNameIndex(custom),
	}
}

// Document converts the snapshot back to its persisted form
func (s Settings) Document() Document {
	return Document{
		MonitoringEnabled:  s.MonitoringEnabled,
		IgnoreTitleChanges: s.PinTitle.Sorted(),
		IgnoredApps:        s.Ignored.Sorted(),
		CustomNames:        maps.Clone(s.CustomNames),
		HiddenFromWeb:      s.Hidden.Sorted(),
		HiddenAppDisplay:   s.HiddenPlaceholder,
	}
}

// DisplayName maps a raw process name to the identity used in storage
func (s Settings) DisplayName(raw string) string {
	if s.names.forward == nil {
		return raw
	}
	return s.names.display(raw)
}

// RawName recovers the raw process name behind a display identity.
// Identities that are not display names map to themselves.
func (s Settings) RawName(identity string) string {
	if s.names.reverse == nil {
		return identity
	}
	return s.names.raw(identity)
}

// IsIgnored reports whether a raw process is excluded entirely
func (s Settings) IsIgnored(raw string) bool { return s.Ignored.Has(raw) }

// IsHidden reports whether a raw process has its history suppressed
func (s Settings) IsHidden(raw string) bool { return s.Hidden.Has(raw) }

// IsPinned reports whether a raw process has its title pinned
func (s Settings) IsPinned(raw string) bool { return s.PinTitle.Has(raw) }

// Identities returns every name a raw process may be stored under
func (s Settings) Identities(raw string) []string {
	display := s.DisplayName(raw)
	if display == raw {
		return []string{raw}
	}
	return []string{raw, display}
}

// ProcessFilter matches the stored sessions of the raw processes. Rows
// recorded before raw names were stored fall back to the names the
// processes display as now.
func (s Settings) ProcessFilter(raws []string) storage.ProcessFilter {
	f := storage.ProcessFilter{Raw: raws}
	seen := make(map[string]struct{})
	for _, raw := range raws {
		for _, name := range s.Identities(raw) {
			if _, dup := seen[name]; !dup {
				seen[name] = struct{}{}
				f.Legacy = append(f.Legacy, name)
			}
		}
	}
	return f
}

// HiddenFilter matches the stored sessions of every hidden process
func (s Settings) HiddenFilter() storage.ProcessFilter {
	return s.ProcessFilter(s.Hidden.Sorted())
}
