package ui

import (
	"image"
	"slices"

	"github.com/hajimehoshi/ebiten/v2"

	"github.com/yiyujin/photoscape/core/input"
)

// eventSource yields the contact events of one frame.
type eventSource interface {
	Events() []input.Event
}

// Poller turns ebiten's polled mouse and touch state into contact events
// by diffing against the previous frame. The mouse is ignored while any
// finger is down so emulated clicks do not double a touch.
type Poller struct {
	mouseDown bool
	mouse     image.Point
	touches   map[ebiten.TouchID]image.Point
}

func NewPoller() *Poller {
	return &Poller{touches: map[ebiten.TouchID]image.Point{}}
}

func (p *Poller) Events() []input.Event {
	var evs []input.Event
	ids := touchIDs()
	slices.Sort(ids)

	seen := make(map[ebiten.TouchID]bool, len(ids))
	for _, id := range ids {
		seen[id] = true
		x, y := touchPosition(id)
		pos := image.Pt(x, y)
		cid := input.TouchID(int(id))
		prev, ok := p.touches[id]
		switch {
		case !ok:
			evs = append(evs, input.Event{Kind: input.Down, ID: cid, X: float64(x), Y: float64(y)})
		case prev != pos:
			evs = append(evs, input.Event{Kind: input.Move, ID: cid, X: float64(x), Y: float64(y)})
		}
		p.touches[id] = pos
	}
	var gone []ebiten.TouchID
	for id := range p.touches {
		if !seen[id] {
			gone = append(gone, id)
		}
	}
	slices.Sort(gone)
	for _, id := range gone {
		delete(p.touches, id)
		evs = append(evs, input.Event{Kind: input.Up, ID: input.TouchID(int(id))})
	}

	x, y := cursorPosition()
	pos := image.Pt(x, y)
	down := isMouseButtonPressed(ebiten.MouseButtonLeft) && len(ids) == 0
	switch {
	case down && !p.mouseDown:
		evs = append(evs, input.Event{Kind: input.Down, ID: input.MouseID, X: float64(x), Y: float64(y)})
	case down && pos != p.mouse:
		evs = append(evs, input.Event{Kind: input.Move, ID: input.MouseID, X: float64(x), Y: float64(y)})
	case !down && p.mouseDown:
		evs = append(evs, input.Event{Kind: input.Up, ID: input.MouseID})
	}
	p.mouseDown = down
	p.mouse = pos
	return evs
}
