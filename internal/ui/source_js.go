//go:build js

package ui

import (
	"sync"
	"syscall/js"

	"github.com/yiyujin/photoscape/core/input"
)

// domSource collects Pointer Events from the page. Browsers report mouse,
// pen and touch through one API with stable pointer ids.
type domSource struct {
	g     *Game
	mu    sync.Mutex
	queue []input.Event
	funcs []js.Func
}

func newEventSource(g *Game) eventSource {
	s := &domSource{g: g}
	doc := js.Global().Get("document")
	s.listen(doc, "pointerdown", input.Down)
	s.listen(doc, "pointermove", input.Move)
	s.listen(doc, "pointerup", input.Up)
	s.listen(doc, "pointercancel", input.Cancel)
	if c := doc.Call("querySelector", "canvas"); c.Truthy() {
		c.Get("style").Set("touchAction", "none")
	}
	return s
}

func (s *domSource) listen(target js.Value, name string, kind input.Kind) {
	fn := js.FuncOf(func(_ js.Value, args []js.Value) any {
		if len(args) == 0 {
			return nil
		}
		ev := args[0]
		x, y, ok := s.toLogical(ev)
		if !ok && kind == input.Down {
			return nil
		}
		s.mu.Lock()
		s.queue = append(s.queue, input.Event{
			Kind: kind,
			ID:   input.PointerID(ev.Get("pointerId").Int()),
			X:    x,
			Y:    y,
		})
		s.mu.Unlock()
		return nil
	})
	s.funcs = append(s.funcs, fn)
	target.Call("addEventListener", name, fn)
}

// toLogical maps client coordinates onto the game's logical screen.
func (s *domSource) toLogical(ev js.Value) (float64, float64, bool) {
	c := js.Global().Get("document").Call("querySelector", "canvas")
	if !c.Truthy() {
		return 0, 0, false
	}
	r := c.Call("getBoundingClientRect")
	w, h := r.Get("width").Float(), r.Get("height").Float()
	if w == 0 || h == 0 {
		return 0, 0, false
	}
	lw, lh := s.g.Layout(0, 0)
	x := (ev.Get("clientX").Float() - r.Get("left").Float()) * float64(lw) / w
	y := (ev.Get("clientY").Float() - r.Get("top").Float()) * float64(lh) / h
	return x, y, x >= 0 && y >= 0 && x < float64(lw) && y < float64(lh)
}

func (s *domSource) Events() []input.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	evs := s.queue
	s.queue = nil
	return evs
}
