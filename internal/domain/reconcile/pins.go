package reconcile

import "sync"

// TitlePins remembers the frozen title of each pinned process for the
// lifetime of the engine.
type TitlePins struct {
	mu     sync.Mutex
	titles map[string]string
}

// NewTitlePins creates an empty pin table
func NewTitlePins() *TitlePins {
	return &TitlePins{titles: make(map[string]string)}
}

// Pin returns the title already pinned for raw, or pins candidate.
func (p *TitlePins) Pin(raw, candidate string) string {
	p.mu.Lock()
	defer p.mu.Unlock()
	if title, ok := p.titles[raw]; ok {
		return title
	}
	p.titles[raw] = candidate
	return candidate
}
