package voice

import "sync"

// Gate is the one-way "audio engine ready" latch. Attacks are dropped
// until it is unlocked by a user gesture.
type Gate struct {
	mu      sync.Mutex
	ready   bool
	waiters []func()
}

func NewGate() *Gate { return &Gate{} }

// Unlock opens the gate and runs queued callbacks. Only the first call has
// any effect; it reports whether this call was the one.
func (g *Gate) Unlock() bool {
	g.mu.Lock()
	if g.ready {
		g.mu.Unlock()
		return false
	}
	g.ready = true
	waiters := g.waiters
	g.waiters = nil
	g.mu.Unlock()
	for _, fn := range waiters {
		fn()
	}
	return true
}

func (g *Gate) Ready() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.ready
}

// OnReady runs fn once the gate is open, immediately if it already is.
func (g *Gate) OnReady(fn func()) {
	g.mu.Lock()
	if !g.ready {
		g.waiters = append(g.waiters, fn)
		g.mu.Unlock()
		return
	}
	g.mu.Unlock()
	fn()
}
