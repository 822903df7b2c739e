// Package engine wires the grid, router, voices and ripples together and
// is the single entry point for scene changes.
package engine

import (
	"image"
	"io"
	"path/filepath"
	"time"

	"github.com/yiyujin/photoscape/core/clock"
	"github.com/yiyujin/photoscape/core/grid"
	"github.com/yiyujin/photoscape/core/input"
	"github.com/yiyujin/photoscape/core/pitch"
	"github.com/yiyujin/photoscape/core/ripple"
	"github.com/yiyujin/photoscape/core/scene"
	"github.com/yiyujin/photoscape/core/voice"
	game_log "github.com/yiyujin/photoscape/internal/log"
)

// InstrumentFactory builds the owning handle for a scene's instrument.
type InstrumentFactory func(kind scene.Kind) (voice.Instrument, error)

// Ambient plays one looping background track at a time.
type Ambient interface {
	Play(path string) error
	Stop()
}

type preloader interface {
	Preload(path string)
}

// Canvas is the render side of the compositor.
type Canvas interface {
	SetSource(img image.Image)
	Ripple(u, v float64, rgb [3]float32, now float64) bool
}

type EventKind int

const (
	SceneChanged EventKind = iota
	SceneFailed
	CellEntered
	AmbientStarted
)

// Event is a notification for the UI.
type Event struct {
	Kind  EventKind
	Scene string
	Cell  grid.Cell
	Note  pitch.Note
	Err   error
}

type Options struct {
	Width, Height, Density int
	AssetDir               string
	AmbientThreshold       int
	// Open reads image assets; nil reads the filesystem.
	Open func(path string) (io.ReadCloser, error)
}

type Engine struct {
	Loop   *clock.Loop
	Voices *voice.Manager
	Router *input.Router
	Bursts *ripple.Bursts
	Events chan Event

	canvas  Canvas
	factory InstrumentFactory
	ambient Ambient
	logger  *game_log.Logger
	opts    Options

	scene    scene.Scene
	snap     *grid.Snapshot
	selected *grid.Cell
	note     pitch.Note
	playing  bool
}

func New(logger *game_log.Logger, canvas Canvas, factory InstrumentFactory, ambient Ambient, opts Options) *Engine {
	if opts.Width <= 0 {
		opts.Width = grid.DefaultWidth
	}
	if opts.Height <= 0 {
		opts.Height = grid.DefaultHeight
	}
	if opts.Density <= 0 {
		opts.Density = grid.DefaultDensity
	}
	loop := clock.New()
	e := &Engine{
		Loop:    loop,
		Voices:  voice.NewManager(loop, voice.NewGate(), logger),
		Bursts:  ripple.NewBursts(ripple.MaxBursts),
		Events:  make(chan Event, 16),
		canvas:  canvas,
		factory: factory,
		ambient: ambient,
		logger:  logger,
		opts:    opts,
	}
	e.Router = input.NewRouter(loop, e.Voices, logger)
	e.Router.Gate = e.Voices.Gate()
	e.Router.Visuals = visuals{e}
	if opts.AmbientThreshold > 0 {
		e.Router.AmbientThreshold = opts.AmbientThreshold
	}
	e.Router.OnAmbient = e.startAmbient
	e.Router.OnCellEntered = e.cellEntered
	return e
}

// OnSettingChanged swaps instrument, mapping and image in one step. Every
// held note is released, every timer cancelled and every contact dropped
// before the new scene is installed. A failed image load leaves the grid
// empty, which keeps interaction disabled.
func (e *Engine) OnSettingChanged(s scene.Scene) error {
	e.Router.Flush()
	e.stopAmbient()

	kind := s.Instrument.Normalize()
	var inst voice.Instrument
	if e.factory != nil {
		var err error
		inst, err = e.factory(kind)
		if err != nil {
			e.logger.Warnf("[ENGINE] instrument %s unavailable, scene is silent: %v", kind, err)
			inst = nil
		}
	}
	e.Voices.SetInstrument(inst)
	if p, ok := e.ambient.(preloader); ok && s.Ambient != "" {
		p.Preload(e.Resolve(s.Ambient))
	}

	m, mapErr := s.Mapping()
	if mapErr != nil {
		e.logger.Errorf("[ENGINE] %v", mapErr)
	}
	e.Router.SetMapping(m)
	e.scene = s
	e.selected = nil
	e.note = pitch.Note{}
	e.Bursts.Clear()

	if err := e.loadImage(s.Image); err != nil {
		e.emit(Event{Kind: SceneFailed, Scene: s.Name, Err: err})
		return err
	}
	e.logger.Infof("[ENGINE] scene %s: instrument=%s image=%s", s.Name, kind, s.Image)
	e.emit(Event{Kind: SceneChanged, Scene: s.Name})
	return mapErr
}

// SetImage replaces the current scene's image, keeping its instrument and
// mapping.
func (e *Engine) SetImage(path string) error {
	e.Router.Flush()
	e.Voices.Flush()
	e.selected = nil
	e.Bursts.Clear()
	e.scene.Image = path
	if err := e.loadImage(path); err != nil {
		e.emit(Event{Kind: SceneFailed, Scene: e.scene.Name, Err: err})
		return err
	}
	e.emit(Event{Kind: SceneChanged, Scene: e.scene.Name})
	return nil
}

func (e *Engine) loadImage(path string) error {
	snap, err := e.decode(e.Resolve(path))
	if err != nil {
		e.logger.Errorf("[ENGINE] %v", err)
		e.snap = nil
		e.Router.SetGrid(nil)
		if e.canvas != nil {
			e.canvas.SetSource(nil)
		}
		return err
	}
	e.snap = snap
	e.Router.SetGrid(snap)
	if e.canvas != nil {
		e.canvas.SetSource(snap.Surface)
	}
	return nil
}

func (e *Engine) decode(path string) (*grid.Snapshot, error) {
	if e.opts.Open == nil {
		return grid.Load(path, e.opts.Width, e.opts.Height, e.opts.Density)
	}
	rc, err := e.opts.Open(path)
	if err != nil {
		return nil, &grid.ImageLoadError{Path: path, Err: err}
	}
	defer rc.Close()
	return grid.Decode(rc, path, e.opts.Width, e.opts.Height, e.opts.Density)
}

// Resolve maps a scene-relative asset path to a file path.
func (e *Engine) Resolve(path string) string {
	if path == "" || filepath.IsAbs(path) || e.opts.AssetDir == "" {
		return path
	}
	return filepath.Join(e.opts.AssetDir, path)
}

// Handle feeds one contact event to the router.
func (e *Engine) Handle(ev input.Event) { e.Router.Handle(ev) }

// Tick advances timers to now, measured from engine start, and steps the
// particle overlay by one frame.
func (e *Engine) Tick(now time.Duration) {
	e.Loop.Advance(now)
	e.Bursts.Step()
}

// Seconds is the loop time in seconds, the clock ripples are stamped with.
func (e *Engine) Seconds() float64 { return e.Loop.Now().Seconds() }

func (e *Engine) Scene() scene.Scene { return e.scene }

func (e *Engine) Grid() *grid.Snapshot { return e.snap }

// Selected returns the last entered cell and its note.
func (e *Engine) Selected() (grid.Cell, pitch.Note, bool) {
	if e.selected == nil {
		return grid.Cell{}, pitch.Note{}, false
	}
	return *e.selected, e.note, true
}

func (e *Engine) AmbientPlaying() bool { return e.playing }

// Close releases the instrument and stops the ambient track.
func (e *Engine) Close() {
	e.Router.Flush()
	e.Voices.Close()
	e.stopAmbient()
}

func (e *Engine) startAmbient() {
	if e.ambient == nil || e.scene.Ambient == "" || e.playing {
		return
	}
	if err := e.ambient.Play(e.Resolve(e.scene.Ambient)); err != nil {
		e.logger.Warnf("[ENGINE] ambient %s: %v", e.scene.Ambient, err)
		return
	}
	e.playing = true
	e.logger.Infof("[ENGINE] ambient %s started", e.scene.Ambient)
	e.emit(Event{Kind: AmbientStarted, Scene: e.scene.Name})
}

func (e *Engine) stopAmbient() {
	if e.ambient != nil {
		e.ambient.Stop()
	}
	e.playing = false
}

func (e *Engine) cellEntered(id input.ContactID, c grid.Cell, n pitch.Note, ok bool) {
	cell := c
	e.selected = &cell
	e.note = n
	e.emit(Event{Kind: CellEntered, Scene: e.scene.Name, Cell: c, Note: n})
}

func (e *Engine) emit(ev Event) {
	select {
	case e.Events <- ev:
	default:
	}
}

// visuals stamps router visuals with the loop clock.
type visuals struct{ e *Engine }

func (v visuals) Ripple(u, w float64, rgb [3]float32) {
	if v.e.canvas != nil {
		v.e.canvas.Ripple(u, w, rgb, v.e.Seconds())
	}
}

func (v visuals) Burst(x, y float64, c grid.Cell) {
	v.e.Bursts.Add(x, y, float64(v.e.opts.Height), c)
}
