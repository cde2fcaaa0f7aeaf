package engine

import "sync"

// Pause is the global processing switch. When set, inbound group messages
// are dropped at the top of the pipeline with no side effects.
type Pause struct {
	mu     sync.Mutex
	paused bool
}

func NewPause() *Pause {
	return &Pause{}
}

func (p *Pause) Set(paused bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.paused = paused
}

func (p *Pause) Paused() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.paused
}
