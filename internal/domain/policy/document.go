package policy

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/bytedance/sonic"
)

// Keys of the persisted settings document
const (
	keyMonitoringEnabled  = "monitoring_enabled"
	keyIgnoreTitleChanges = "ignore_title_changes"
	keyIgnoredApps        = "ignored_apps"
	keyCustomNames        = "custom_names"
	keyHiddenFromWeb      = "hidden_from_web"
	keyHiddenAppDisplay   = "hidden_app_display"
)

var codec = sonic.ConfigStd

// Document is the persisted settings document
type Document struct {
	MonitoringEnabled  bool              `json:"monitoring_enabled"`
	IgnoreTitleChanges []string          `json:"ignore_title_changes"`
	IgnoredApps        []string          `json:"ignored_apps"`
	CustomNames        map[string]string `json:"custom_names"`
	HiddenFromWeb      []string          `json:"hidden_from_web"`
	HiddenAppDisplay   HiddenDisplay     `json:"hidden_app_display"`
}

// DefaultDocument returns the built-in settings
func DefaultDocument() Document {
	return Document{
		MonitoringEnabled:  true,
		IgnoreTitleChanges: []string{},
		IgnoredApps:        []string{},
		CustomNames:        map[string]string{},
		HiddenFromWeb:      []string{},
		HiddenAppDisplay: HiddenDisplay{
			ProcessName: DefaultHiddenProcess,
			WindowTitle: DefaultHiddenTitle,
		},
	}
}

// KeyError reports a known key whose value has the wrong shape
type KeyError struct {
	Key string
	Err error
}

func (e *KeyError) Error() string {
	return fmt.Sprintf("settings key %q: %v", e.Key, e.Err)
}

func (e *KeyError) Unwrap() error { return e.Err }

// decodeDocument overlays data on the defaults. Unknown keys are returned
// so they can be written back untouched. A known key with a bad value keeps
// its default and is reported in keyErrs; only unparsable JSON fails.
func decodeDocument(data []byte) (doc Document, extra map[string]json.RawMessage, keyErrs []error, err error) {
	doc = DefaultDocument()

	var raw map[string]json.RawMessage
	if err := codec.Unmarshal(data, &raw); err != nil {
		return DefaultDocument(), nil, nil, fmt.Errorf("parse settings: %w", err)
	}

	defaults := DefaultDocument()
	type field struct {
		target any
		reset  func()
	}
	fields := map[string]field{
		keyMonitoringEnabled:  {&doc.MonitoringEnabled, func() { doc.MonitoringEnabled = defaults.MonitoringEnabled }},
		keyIgnoreTitleChanges: {&doc.IgnoreTitleChanges, func() { doc.IgnoreTitleChanges = nil }},
		keyIgnoredApps:        {&doc.IgnoredApps, func() { doc.IgnoredApps = nil }},
		keyCustomNames:        {&doc.CustomNames, func() { doc.CustomNames = nil }},
		keyHiddenFromWeb:      {&doc.HiddenFromWeb, func() { doc.HiddenFromWeb = nil }},
	}

	extra = make(map[string]json.RawMessage)
	for _, key := range sortedRawKeys(raw) {
		value := raw[key]
		if key == keyHiddenAppDisplay {
			// partial placeholders keep the default for the missing half
			placeholder := doc.HiddenAppDisplay
			if err := codec.Unmarshal(value, &placeholder); err != nil {
				keyErrs = append(keyErrs, &KeyError{Key: key, Err: err})
				continue
			}
			doc.HiddenAppDisplay = placeholder
			continue
		}
		f, known := fields[key]
		if !known {
			extra[key] = value
			continue
		}
		if err := codec.Unmarshal(value, f.target); err != nil {
			f.reset()
			keyErrs = append(keyErrs, &KeyError{Key: key, Err: err})
		}
	}

	if doc.IgnoreTitleChanges == nil {
		doc.IgnoreTitleChanges = defaults.IgnoreTitleChanges
	}
	if doc.IgnoredApps == nil {
		doc.IgnoredApps = defaults.IgnoredApps
	}
	if doc.CustomNames == nil {
		doc.CustomNames = defaults.CustomNames
	}
	if doc.HiddenFromWeb == nil {
		doc.HiddenFromWeb = defaults.HiddenFromWeb
	}
	return doc, extra, keyErrs, nil
}

// encodeDocument writes doc plus the preserved unknown keys.
func encodeDocument(doc Document, extra map[string]json.RawMessage) ([]byte, error) {
	out := make(map[string]any, len(extra)+6)
	for k, v := range extra {
		out[k] = v
	}
	out[keyMonitoringEnabled] = doc.MonitoringEnabled
	out[keyIgnoreTitleChanges] = nonNil(doc.IgnoreTitleChanges)
	out[keyIgnoredApps] = nonNil(doc.IgnoredApps)
	out[keyCustomNames] = doc.CustomNames
	out[keyHiddenFromWeb] = nonNil(doc.HiddenFromWeb)
	out[keyHiddenAppDisplay] = doc.HiddenAppDisplay
	if doc.CustomNames == nil {
		out[keyCustomNames] = map[string]string{}
	}

	data, err := codec.MarshalIndent(out, "", "    ")
	if err != nil {
		return nil, fmt.Errorf("encode settings: %w", err)
	}
	return data, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func sortedRawKeys(m map[string]json.RawMessage) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
