// Package ripple keeps the bounded set of live ripples and renders them as
// a displacement shader over the scene image.
package ripple

import (
	"fmt"
	"strings"
	"time"
)

// MaxRipples is the size of the shader's uniform arrays.
const MaxRipples = 64

const DefaultDuration = time.Second

type Shape int

const (
	Circle Shape = iota
	Square
	Diamond
)

func (s Shape) String() string {
	switch s {
	case Square:
		return "square"
	case Diamond:
		return "diamond"
	}
	return "circle"
}

func ParseShape(s string) (Shape, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "circle", "":
		return Circle, nil
	case "square":
		return Square, nil
	case "diamond":
		return Diamond, nil
	}
	return Circle, fmt.Errorf("unknown ripple shape %q", s)
}

// Event is one ripple. X and Y are normalized canvas coordinates with the
// origin at the top-left; times are seconds on the compositor clock.
type Event struct {
	X, Y     float64
	Start    float64
	Duration float64
	Color    [3]float32
}

// Pool holds at most its capacity of ripples. Enqueue past capacity drops
// the new ripple; older ones are never evicted.
type Pool struct {
	capacity int
	duration float64
	events   []Event
	dropped  int
}

// NewPool clamps capacity to [1, MaxRipples].
func NewPool(capacity int, duration time.Duration) *Pool {
	if capacity <= 0 || capacity > MaxRipples {
		capacity = MaxRipples
	}
	if duration <= 0 {
		duration = DefaultDuration
	}
	return &Pool{
		capacity: capacity,
		duration: duration.Seconds(),
		events:   make([]Event, 0, capacity),
	}
}

func (p *Pool) Enqueue(x, y, now float64, rgb [3]float32) bool {
	if len(p.events) >= p.capacity {
		p.dropped++
		return false
	}
	p.events = append(p.events, Event{X: x, Y: y, Start: now, Duration: p.duration, Color: rgb})
	return true
}

// Prune removes ripples whose lifetime has ended at now.
func (p *Pool) Prune(now float64) {
	live := p.events[:0]
	for _, e := range p.events {
		if now-e.Start < e.Duration {
			live = append(live, e)
		}
	}
	for i := len(live); i < len(p.events); i++ {
		p.events[i] = Event{}
	}
	p.events = live
}

func (p *Pool) Len() int        { return len(p.events) }
func (p *Pool) Cap() int        { return p.capacity }
func (p *Pool) Dropped() int    { return p.dropped }
func (p *Pool) Events() []Event { return append([]Event(nil), p.events...) }

func (p *Pool) Clear() {
	p.events = p.events[:0]
}

// Uniforms are the parallel arrays uploaded each frame, zero-padded to
// MaxRipples entries.
type Uniforms struct {
	Positions []float32
	Starts    []float32
	Colors    []float32
	Count     int
}

// Uniforms prunes at now and serializes the survivors.
func (p *Pool) Uniforms(now float64) Uniforms {
	p.Prune(now)
	u := Uniforms{
		Positions: make([]float32, 2*MaxRipples),
		Starts:    make([]float32, MaxRipples),
		Colors:    make([]float32, 3*MaxRipples),
		Count:     len(p.events),
	}
	for i, e := range p.events {
		u.Positions[2*i] = float32(e.X)
		u.Positions[2*i+1] = float32(e.Y)
		u.Starts[i] = float32(e.Start)
		copy(u.Colors[3*i:3*i+3], e.Color[:])
	}
	return u
}
