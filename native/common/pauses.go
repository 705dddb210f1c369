package common

import "sync"

// PauseSet is a mutable PauseView the host toggles at runtime.
type PauseSet struct {
	mu     sync.RWMutex
	paused map[string]bool
}

func NewPauseSet() *PauseSet {
	return &PauseSet{paused: make(map[string]bool)}
}

// SetPaused flips the pause flag for a module.
func (p *PauseSet) SetPaused(module string, paused bool) {
	if p == nil || module == "" {
		return
	}
	p.mu.Lock()
	p.paused[module] = paused
	p.mu.Unlock()
}

func (p *PauseSet) IsPaused(module string) bool {
	if p == nil {
		return false
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.paused[module]
}
