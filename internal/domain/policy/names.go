package policy

import "sort"

// builtinNames are display names applied when no custom name is set.
var builtinNames = map[string]string{
	"msedge.exe":     "Microsoft Edge",
	"chrome.exe":     "Google Chrome",
	"firefox.exe":    "Firefox",
	"code.exe":       "Visual Studio Code",
	"explorer.exe":   "Windows Explorer",
	"SearchApp.exe":  "Windows Search",
	"notepad.exe":    "Notepad",
	"powershell.exe": "PowerShell",
	"cmd.exe":        "Command Prompt",
	"idea64.exe":     "IntelliJ IDEA",
	"pycharm64.exe":  "PyCharm",
	"wechat.exe":     "WeChat",
	"WeChat.exe":     "WeChat",
	"qq.exe":         "QQ",
	"QQ.exe":         "QQ",
	"cloudmusic.exe": "NetEase Cloud Music",
	"steam.exe":      "Steam",
}

// nameIndex maps raw process names to display names and back.
type nameIndex struct {
	forward map[string]string
	reverse map[string]string
}

// newNameIndex builds both directions at once. Custom names win over
// built-in ones; when several raw names share a display name the reverse
// entry points at the first in sorted order, custom names first.
func newNameIndex(custom map[string]string) nameIndex {
	idx := nameIndex{
		forward: make(map[string]string, len(builtinNames)+len(custom)),
		reverse: make(map[string]string, len(builtinNames)+len(custom)),
	}

	for _, raw := range sortedKeys(custom) {
		display := custom[raw]
		idx.forward[raw] = display
		if _, taken := idx.reverse[display]; !taken {
			idx.reverse[display] = raw
		}
	}
	for _, raw := range sortedKeys(builtinNames) {
		if _, overridden := idx.forward[raw]; overridden {
			continue
		}
		display := builtinNames[raw]
		idx.forward[raw] = display
		if _, taken := idx.reverse[display]; !taken {
			idx.reverse[display] = raw
		}
	}
	return idx
}

func (idx nameIndex) display(raw string) string {
	if d, ok := idx.forward[raw]; ok {
		return d
	}
	return raw
}

func (idx nameIndex) raw(identity string) string {
	if r, ok := idx.reverse[identity]; ok {
		return r
	}
	return identity
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
