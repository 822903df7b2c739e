// Package input folds mouse, touch and pointer streams into one set of
// contacts and turns cell crossings into note and ripple calls.
package input

import (
	"fmt"
	"sort"

	"github.com/yiyujin/photoscape/core/clock"
	"github.com/yiyujin/photoscape/core/grid"
	"github.com/yiyujin/photoscape/core/pitch"
	"github.com/yiyujin/photoscape/core/voice"
	game_log "github.com/yiyujin/photoscape/internal/log"
)

const (
	CounterCap              = 10
	DefaultAmbientThreshold = 3
)

type Kind int

const (
	Down Kind = iota
	Move
	Up
	Cancel
)

func (k Kind) String() string {
	switch k {
	case Down:
		return "down"
	case Move:
		return "move"
	case Up:
		return "up"
	case Cancel:
		return "cancel"
	}
	return "unknown"
}

// ContactID is stable for the life of one contact.
type ContactID string

const MouseID ContactID = "mouse"

func TouchID(n int) ContactID   { return ContactID(fmt.Sprintf("touch:%d", n)) }
func PointerID(n int) ContactID { return ContactID(fmt.Sprintf("pointer:%d", n)) }

// Event is one contact sample in client coordinates.
type Event struct {
	Kind Kind
	ID   ContactID
	X, Y float64
}

// Voices is the part of voice.Manager the router drives.
type Voices interface {
	Enter(n pitch.Note)
	Leave(n pitch.Note, immediate bool)
	Switch(prev, next pitch.Note, morph bool)
	Trigger(n pitch.Note)
	Family() voice.Family
}

// Visuals receives a ripple and a particle burst per entered cell. u and v
// are normalized canvas coordinates.
type Visuals interface {
	Ripple(u, v float64, rgb [3]float32)
	Burst(x, y float64, c grid.Cell)
}

type state int

const (
	idle state = iota
	sustaining
	pendingSwitch
)

// Contact is the router's view of one finger or mouse.
type Contact struct {
	ID        ContactID
	X, Y      float64
	LastCell  string
	Held      pitch.Note
	PrevColor pitch.Color

	state   state
	pending *clock.Timer
	target  string
	next    pitch.Note
	nextCol pitch.Color
}

// Pending reports whether a color switch is waiting on the debounce.
func (c Contact) Pending() bool { return c.state == pendingSwitch }

type Router struct {
	clock  voice.Clock
	voices Voices
	logger *game_log.Logger

	Visuals Visuals
	Gate    *voice.Gate

	// OriginX/OriginY is the canvas top-left in client coordinates.
	OriginX, OriginY float64

	AmbientThreshold int
	// OnAmbient runs synchronously inside the contact callback the first
	// time the interaction counter reaches AmbientThreshold.
	OnAmbient func()
	// OnCellEntered runs for every accepted cell entry.
	OnCellEntered func(id ContactID, c grid.Cell, n pitch.Note, ok bool)

	snap     *grid.Snapshot
	mapping  pitch.Mapping
	contacts map[ContactID]*Contact
	counter  int
	ambient  bool
	dragging bool
}

func NewRouter(c voice.Clock, v Voices, logger *game_log.Logger) *Router {
	return &Router{
		clock:            c,
		voices:           v,
		logger:           logger,
		AmbientThreshold: DefaultAmbientThreshold,
		contacts:         map[ContactID]*Contact{},
	}
}

// SetGrid installs the grid; nil disables interaction.
func (r *Router) SetGrid(s *grid.Snapshot) { r.snap = s }

func (r *Router) Grid() *grid.Snapshot { return r.snap }

func (r *Router) SetMapping(m pitch.Mapping) { r.mapping = m }

func (r *Router) Mapping() pitch.Mapping { return r.mapping }

// Handle dispatches one event. Cancel is treated as an up.
func (r *Router) Handle(ev Event) {
	switch ev.Kind {
	case Down:
		r.ContactDown(ev.ID, ev.X, ev.Y)
	case Move:
		r.ContactMove(ev.ID, ev.X, ev.Y)
	case Up, Cancel:
		r.ContactUp(ev.ID)
	}
}

func (r *Router) ContactDown(id ContactID, x, y float64) {
	if r.snap == nil {
		return
	}
	if _, ok := r.contacts[id]; ok {
		r.logger.Debugf("[ROUTER] duplicate down for %s", id)
		r.ContactUp(id)
	}
	r.contacts[id] = &Contact{ID: id}
	if r.Gate != nil && r.Gate.Unlock() {
		r.logger.Infof("[ROUTER] audio unlocked by %s", id)
	}
	r.dragging = true
	r.ContactMove(id, x, y)
}

func (r *Router) ContactMove(id ContactID, x, y float64) {
	c, ok := r.contacts[id]
	if !ok {
		return
	}
	c.X, c.Y = x-r.OriginX, y-r.OriginY
	if r.snap == nil {
		return
	}
	cell, ok := r.snap.CellAt(c.X, c.Y)
	key := ""
	if ok {
		key = cell.Key()
	}
	if c.state == pendingSwitch && key != c.target {
		// Leaving the target drops the switch; coming back starts a new one.
		r.cancelPending(c)
		c.LastCell = ""
	}
	if !ok {
		return
	}
	if key == c.LastCell {
		return
	}
	n, hasNote := pitch.NoteForCell(cell, r.mapping)
	percussive := r.voices.Family() == voice.Percussive
	if !hasNote && !percussive {
		return
	}
	c.LastCell = key

	r.bumpCounter()
	if r.OnCellEntered != nil {
		r.OnCellEntered(id, cell, n, hasNote)
	}
	if r.Visuals != nil {
		r.Visuals.Ripple(c.X/float64(r.snap.Width), c.Y/float64(r.snap.Height), cellRGB(cell))
		half := float64(r.snap.Density) / 2
		r.Visuals.Burst(float64(cell.X)+half, float64(cell.Y)+half, cell)
	}

	if percussive {
		r.voices.Trigger(n)
		return
	}
	r.advance(c, n, pitch.Dominant(cell.R, cell.G, cell.B))
}

// advance runs the per-contact state machine for a newly entered note.
func (r *Router) advance(c *Contact, n pitch.Note, col pitch.Color) {
	if c.state == pendingSwitch {
		r.cancelPending(c)
	}
	switch c.state {
	case idle:
		r.voices.Enter(n)
		c.Held, c.PrevColor = n, col
		c.state = sustaining
	case sustaining:
		if n == c.Held {
			return
		}
		if col == c.PrevColor {
			r.voices.Switch(c.Held, n, false)
			c.Held = n
			return
		}
		id := c.ID
		var t *clock.Timer
		t = r.clock.AfterFunc(voice.DebounceDelay, func() { r.commit(id, t) })
		c.pending, c.target = t, c.LastCell
		c.next, c.nextCol = n, col
		c.state = pendingSwitch
	}
}

func (r *Router) commit(id ContactID, t *clock.Timer) {
	c, ok := r.contacts[id]
	if !ok || c.state != pendingSwitch || c.pending != t || c.LastCell != c.target {
		r.logger.Debugf("[ROUTER] stale switch for %s discarded", id)
		return
	}
	r.logger.Debugf("[ROUTER] %s switch %s -> %s", id, c.Held, c.next)
	r.voices.Switch(c.Held, c.next, true)
	c.Held, c.PrevColor = c.next, c.nextCol
	c.pending, c.target, c.next = nil, "", pitch.Note{}
	c.state = sustaining
}

func (r *Router) cancelPending(c *Contact) {
	if c.pending != nil {
		c.pending.Stop()
	}
	c.pending, c.target, c.next = nil, "", pitch.Note{}
	if c.Held.IsZero() {
		c.state = idle
	} else {
		c.state = sustaining
	}
}

func (r *Router) ContactUp(id ContactID) {
	c, ok := r.contacts[id]
	if !ok {
		r.logger.Debugf("[ROUTER] up for unknown contact %s ignored", id)
		return
	}
	r.cancelPending(c)
	if !c.Held.IsZero() {
		r.voices.Leave(c.Held, false)
	}
	delete(r.contacts, id)
	if len(r.contacts) == 0 {
		r.dragging = false
	}
}

// Flush forgets every contact and resets the interaction counter. Held
// notes are not released here; the voice manager flushes its own table.
func (r *Router) Flush() {
	for id, c := range r.contacts {
		if c.pending != nil {
			c.pending.Stop()
		}
		delete(r.contacts, id)
	}
	r.counter = 0
	r.ambient = false
	r.dragging = false
}

func (r *Router) bumpCounter() {
	if r.counter < CounterCap {
		r.counter++
	}
	if !r.ambient && r.counter >= r.AmbientThreshold {
		r.ambient = true
		if r.OnAmbient != nil {
			r.OnAmbient()
		}
	}
}

func (r *Router) Counter() int { return r.counter }

func (r *Router) Dragging() bool { return r.dragging }

// Contact returns a copy of the contact's state.
func (r *Router) Contact(id ContactID) (Contact, bool) {
	c, ok := r.contacts[id]
	if !ok {
		return Contact{}, false
	}
	return *c, true
}

// Contacts returns copies of every live contact ordered by id.
func (r *Router) Contacts() []Contact {
	out := make([]Contact, 0, len(r.contacts))
	for _, c := range r.contacts {
		out = append(out, *c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (r *Router) PendingSwitches() int {
	n := 0
	for _, c := range r.contacts {
		if c.state == pendingSwitch {
			n++
		}
	}
	return n
}

func cellRGB(c grid.Cell) [3]float32 {
	return [3]float32{float32(c.R) / 255, float32(c.G) / 255, float32(c.B) / 255}
}
