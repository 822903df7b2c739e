package input

import (
	"image"
	"image/color"
	"io"
	"testing"
	"time"

	"github.com/yiyujin/photoscape/core/clock"
	"github.com/yiyujin/photoscape/core/grid"
	"github.com/yiyujin/photoscape/core/pitch"
	"github.com/yiyujin/photoscape/core/voice"
	game_log "github.com/yiyujin/photoscape/internal/log"
)

var testLogger = game_log.New(io.Discard, game_log.LevelError)

const density = 20

// Row 0: dark red, bright red, green, blue. Row 1 repeats it.
var palette = []color.RGBA{
	{120, 0, 0, 255},
	{255, 200, 200, 255},
	{0, 255, 0, 255},
	{0, 0, 255, 255},
}

var testMapping = pitch.Mapping{
	pitch.Red:   {Note: "G", BaseOctave: 3},
	pitch.Green: {Note: "Bb", BaseOctave: 3},
	pitch.Blue:  {Note: "D", BaseOctave: 4},
}

func testGrid() *grid.Snapshot {
	w, h := density*len(palette), density*2
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, palette[x/density])
		}
	}
	return grid.Sample(img, w, h, density)
}

func center(col, row int) (float64, float64) {
	return float64(col*density + density/2), float64(row*density + density/2)
}

type recVoices struct {
	family voice.Family
	log    []string
}

func (v *recVoices) Enter(n pitch.Note) { v.log = append(v.log, "enter "+n.String()) }
func (v *recVoices) Leave(n pitch.Note, immediate bool) {
	v.log = append(v.log, "leave "+n.String())
}
func (v *recVoices) Switch(prev, next pitch.Note, morph bool) {
	s := "switch " + prev.String() + ">" + next.String()
	if morph {
		s += " morph"
	}
	v.log = append(v.log, s)
}
func (v *recVoices) Trigger(n pitch.Note) { v.log = append(v.log, "hit "+n.String()) }
func (v *recVoices) Family() voice.Family { return v.family }

func (v *recVoices) take() []string {
	out := v.log
	v.log = nil
	return out
}

type recVisuals struct {
	ripples [][2]float64
	bursts  int
}

func (r *recVisuals) Ripple(u, v float64, rgb [3]float32) {
	r.ripples = append(r.ripples, [2]float64{u, v})
}
func (r *recVisuals) Burst(x, y float64, c grid.Cell) { r.bursts++ }

func newTestRouter() (*Router, *recVoices, *clock.Loop) {
	loop := clock.New()
	v := &recVoices{}
	r := NewRouter(loop, v, testLogger)
	r.SetGrid(testGrid())
	r.SetMapping(testMapping)
	return r, v, loop
}

func noteAt(t *testing.T, r *Router, col, row int) pitch.Note {
	t.Helper()
	x, y := center(col, row)
	c, ok := r.Grid().CellAt(x, y)
	if !ok {
		t.Fatalf("no cell at %d,%d", col, row)
	}
	n, ok := pitch.NoteForCell(c, r.Mapping())
	if !ok {
		t.Fatalf("no note at %d,%d", col, row)
	}
	return n
}

func expect(t *testing.T, got []string, want ...string) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("calls = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("calls = %v, want %v", got, want)
		}
	}
}

func TestDownEntersNote(t *testing.T) {
	r, v, _ := newTestRouter()
	n := noteAt(t, r, 0, 0)
	x, y := center(0, 0)
	r.Handle(Event{Kind: Down, ID: MouseID, X: x, Y: y})
	expect(t, v.take(), "enter "+n.String())
	c, ok := r.Contact(MouseID)
	if !ok || c.Held != n || c.LastCell != "0,0" || c.PrevColor != pitch.Red {
		t.Fatalf("contact = %+v", c)
	}
	if !r.Dragging() || r.Counter() != 1 {
		t.Fatalf("dragging=%v counter=%d", r.Dragging(), r.Counter())
	}

	r.Handle(Event{Kind: Move, ID: MouseID, X: x + 3, Y: y - 2})
	if len(v.take()) != 0 || r.Counter() != 1 {
		t.Fatalf("same-cell move should be a no-op")
	}
}

func TestSameColorSwitchesImmediately(t *testing.T) {
	r, v, loop := newTestRouter()
	dark, bright := noteAt(t, r, 0, 0), noteAt(t, r, 1, 0)
	if dark == bright {
		t.Fatalf("fixture needs two different red notes, got %s", dark)
	}
	down(r, MouseID, 0, 0)
	v.take()
	move(r, MouseID, 1, 0)
	expect(t, v.take(), "switch "+dark.String()+">"+bright.String())
	if r.PendingSwitches() != 0 {
		t.Fatalf("same-color switch should not debounce")
	}
	loop.Step(time.Second)
	if len(v.take()) != 0 {
		t.Fatalf("unexpected deferred calls")
	}
}

func TestColorChangeCommitsAfterDebounce(t *testing.T) {
	r, v, loop := newTestRouter()
	red, green := noteAt(t, r, 0, 0), noteAt(t, r, 2, 0)
	down(r, MouseID, 0, 0)
	v.take()
	move(r, MouseID, 2, 0)
	if len(v.take()) != 0 || r.PendingSwitches() != 1 {
		t.Fatalf("color change should arm the debounce")
	}
	loop.Step(voice.DebounceDelay - time.Millisecond)
	if len(v.log) != 0 {
		t.Fatalf("switched before debounce elapsed: %v", v.log)
	}
	loop.Step(time.Millisecond)
	expect(t, v.take(), "switch "+red.String()+">"+green.String()+" morph")
	c, _ := r.Contact(MouseID)
	if c.Held != green || c.PrevColor != pitch.Green || c.Pending() {
		t.Fatalf("contact after commit = %+v", c)
	}
}

func TestDebounceDiscardedWhenContactReturns(t *testing.T) {
	r, v, loop := newTestRouter()
	down(r, MouseID, 0, 0)
	v.take()
	move(r, MouseID, 2, 0)
	loop.Step(60 * time.Millisecond)
	move(r, MouseID, 0, 0)
	loop.Step(time.Second)
	if len(v.take()) != 0 {
		t.Fatalf("switch committed after contact left the target cell")
	}
	if r.PendingSwitches() != 0 {
		t.Fatalf("pending switch left behind")
	}
}

func TestDebounceRetargets(t *testing.T) {
	r, v, loop := newTestRouter()
	red, blue := noteAt(t, r, 0, 0), noteAt(t, r, 3, 0)
	down(r, MouseID, 0, 0)
	v.take()
	move(r, MouseID, 2, 0)
	loop.Step(60 * time.Millisecond)
	move(r, MouseID, 3, 0)
	loop.Step(time.Second)
	expect(t, v.take(), "switch "+red.String()+">"+blue.String()+" morph")
}

func TestDebounceDroppedWhenContactLeavesCanvas(t *testing.T) {
	r, v, loop := newTestRouter()
	red := noteAt(t, r, 0, 0)
	down(r, MouseID, 0, 0)
	v.take()
	move(r, MouseID, 2, 0)
	r.ContactMove(MouseID, -50, -50)
	if r.PendingSwitches() != 0 {
		t.Fatalf("pending switch kept after leaving the canvas")
	}
	loop.Step(200 * time.Millisecond)
	if calls := v.take(); len(calls) != 0 {
		t.Fatalf("switch committed while off the target cell: %v", calls)
	}
	if c, _ := r.Contact(MouseID); c.Held != red {
		t.Fatalf("held = %v, want %v", c.Held, red)
	}
}

func TestDebounceDroppedOnUnmappedCell(t *testing.T) {
	r, v, loop := newTestRouter()
	r.SetMapping(pitch.Mapping{
		pitch.Red:   testMapping[pitch.Red],
		pitch.Green: testMapping[pitch.Green],
	})
	red, green := noteAt(t, r, 0, 0), noteAt(t, r, 2, 0)
	down(r, MouseID, 0, 0)
	v.take()
	move(r, MouseID, 2, 0)
	move(r, MouseID, 3, 0)
	loop.Step(200 * time.Millisecond)
	if calls := v.take(); len(calls) != 0 {
		t.Fatalf("switch committed while on an unmapped cell: %v", calls)
	}
	if r.PendingSwitches() != 0 {
		t.Fatalf("pending switch left behind")
	}

	// Returning to the green cell is a fresh entry with its own debounce.
	move(r, MouseID, 2, 0)
	if r.PendingSwitches() != 1 {
		t.Fatalf("re-entry did not arm a switch")
	}
	loop.Step(200 * time.Millisecond)
	expect(t, v.take(), "switch "+red.String()+">"+green.String()+" morph")
}

func TestUpCancelsPendingAndReleases(t *testing.T) {
	r, v, loop := newTestRouter()
	red := noteAt(t, r, 0, 0)
	down(r, MouseID, 0, 0)
	v.take()
	move(r, MouseID, 2, 0)
	r.Handle(Event{Kind: Cancel, ID: MouseID})
	loop.Step(time.Second)
	expect(t, v.take(), "leave "+red.String())
	if _, ok := r.Contact(MouseID); ok || r.Dragging() {
		t.Fatalf("contact not removed")
	}
	r.ContactUp(MouseID)
	if len(v.take()) != 0 {
		t.Fatalf("second up should be absorbed")
	}
}

func TestMoveWithoutDownIgnored(t *testing.T) {
	r, v, _ := newTestRouter()
	move(r, TouchID(3), 0, 0)
	if len(v.take()) != 0 || r.Counter() != 0 {
		t.Fatalf("move for unknown contact was handled")
	}
}

func TestNoGridDisablesInteraction(t *testing.T) {
	r, v, _ := newTestRouter()
	r.SetGrid(nil)
	down(r, MouseID, 0, 0)
	if len(v.take()) != 0 || len(r.Contacts()) != 0 {
		t.Fatalf("interaction without grid")
	}
}

func TestSilentCellKeepsHeldNote(t *testing.T) {
	r, v, _ := newTestRouter()
	r.SetMapping(pitch.Mapping{pitch.Red: {Note: "G", BaseOctave: 3}})
	down(r, MouseID, 0, 0)
	v.take()
	move(r, MouseID, 3, 0)
	if len(v.take()) != 0 {
		t.Fatalf("silent cell touched the voices")
	}
	c, _ := r.Contact(MouseID)
	if c.LastCell != "0,0" || r.Counter() != 1 {
		t.Fatalf("silent cell should not count as entered: %+v counter=%d", c, r.Counter())
	}
}

func TestPercussiveTriggersEveryCell(t *testing.T) {
	r, v, _ := newTestRouter()
	v.family = voice.Percussive
	r.SetMapping(pitch.Mapping{pitch.Red: {Note: "G", BaseOctave: 3}})
	down(r, MouseID, 0, 0)
	move(r, MouseID, 3, 0)
	got := v.take()
	if len(got) != 2 || got[0][:3] != "hit" || got[1] != "hit " {
		t.Fatalf("calls = %v, want two hits", got)
	}
	r.ContactUp(MouseID)
	if len(v.take()) != 0 {
		t.Fatalf("percussive contact should hold nothing")
	}
}

func TestCounterAndAmbient(t *testing.T) {
	r, _, _ := newTestRouter()
	fired := 0
	r.OnAmbient = func() {
		fired++
		if r.Counter() != 3 {
			t.Fatalf("ambient fired at counter %d", r.Counter())
		}
	}
	down(r, MouseID, 0, 0)
	for i := 0; i < 30; i++ {
		move(r, MouseID, (i+1)%4, (i/4)%2)
	}
	if fired != 1 {
		t.Fatalf("ambient fired %d times, want 1", fired)
	}
	if r.Counter() != CounterCap {
		t.Fatalf("counter = %d, want cap %d", r.Counter(), CounterCap)
	}
}

func TestVisualsAndCellCallback(t *testing.T) {
	r, _, _ := newTestRouter()
	vis := &recVisuals{}
	r.Visuals = vis
	var entered []string
	r.OnCellEntered = func(id ContactID, c grid.Cell, n pitch.Note, ok bool) {
		entered = append(entered, string(id)+"@"+c.Key())
	}
	r.OriginX, r.OriginY = 100, 50
	x, y := center(2, 1)
	r.ContactDown(TouchID(1), x+100, y+50)
	if len(vis.ripples) != 1 || vis.bursts != 1 {
		t.Fatalf("ripples=%d bursts=%d", len(vis.ripples), vis.bursts)
	}
	u, v := vis.ripples[0][0], vis.ripples[0][1]
	if u != 50.0/80 || v != 30.0/40 {
		t.Fatalf("ripple uv = %v,%v", u, v)
	}
	if len(entered) != 1 || entered[0] != "touch:1@40,20" {
		t.Fatalf("entered = %v", entered)
	}
}

func TestDuplicateDownReleasesFirst(t *testing.T) {
	r, v, _ := newTestRouter()
	red, green := noteAt(t, r, 0, 0), noteAt(t, r, 2, 0)
	down(r, PointerID(1), 0, 0)
	down(r, PointerID(1), 2, 0)
	expect(t, v.take(), "enter "+red.String(), "leave "+red.String(), "enter "+green.String())
}

func TestDownUnlocksGate(t *testing.T) {
	r, _, _ := newTestRouter()
	r.Gate = voice.NewGate()
	down(r, MouseID, 0, 0)
	if !r.Gate.Ready() {
		t.Fatalf("gate should unlock on first contact")
	}
}

func TestFlush(t *testing.T) {
	r, v, loop := newTestRouter()
	down(r, TouchID(1), 0, 0)
	down(r, TouchID(2), 1, 1)
	move(r, TouchID(1), 2, 0)
	v.take()
	r.Flush()
	loop.Step(time.Second)
	if len(r.Contacts()) != 0 || r.Counter() != 0 || r.Dragging() || r.PendingSwitches() != 0 {
		t.Fatalf("router not flushed")
	}
	if len(v.take()) != 0 {
		t.Fatalf("flush must not drive voices")
	}
}

// Two touches on different cells; lifting one silences only its note.
func TestTwoTouchesIndependentRelease(t *testing.T) {
	loop := clock.New()
	gate := voice.NewGate()
	m := voice.NewManager(loop, gate, testLogger)
	synth := &sustainLog{on: map[string]bool{}}
	m.SetInstrument(synth)
	r := NewRouter(loop, m, testLogger)
	r.Gate = gate
	r.SetGrid(testGrid())
	r.SetMapping(testMapping)

	red, blue := noteAt(t, r, 0, 0), noteAt(t, r, 3, 1)
	down(r, TouchID(1), 0, 0)
	down(r, TouchID(2), 3, 1)
	if !synth.on[red.String()] || !synth.on[blue.String()] {
		t.Fatalf("both notes should sound: %v", synth.on)
	}
	r.ContactUp(TouchID(1))
	loop.Step(voice.CrossfadeDelay)
	if synth.on[red.String()] {
		t.Fatalf("lifted contact's note still sounding")
	}
	if !synth.on[blue.String()] {
		t.Fatalf("other contact's note was silenced")
	}
}

type sustainLog struct{ on map[string]bool }

func (s *sustainLog) Family() voice.Family { return voice.Melodic }
func (s *sustainLog) Close() error         { return nil }
func (s *sustainLog) Attack(n pitch.Note) error {
	s.on[n.String()] = true
	return nil
}
func (s *sustainLog) Release(n pitch.Note) error {
	delete(s.on, n.String())
	return nil
}

func down(r *Router, id ContactID, col, row int) {
	x, y := center(col, row)
	r.ContactDown(id, x, y)
}

func move(r *Router, id ContactID, col, row int) {
	x, y := center(col, row)
	r.ContactMove(id, x, y)
}
