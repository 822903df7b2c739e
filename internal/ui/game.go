package ui

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"sync/atomic"
	"time"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"

	"github.com/yiyujin/photoscape/core/engine"
	"github.com/yiyujin/photoscape/core/input"
	"github.com/yiyujin/photoscape/core/pitch"
	"github.com/yiyujin/photoscape/core/ripple"
	"github.com/yiyujin/photoscape/core/scene"
	game_log "github.com/yiyujin/photoscape/internal/log"
)

const (
	Margin     = 24 // glow frame around the canvas in px
	thumbScale = 6
)

type Options struct {
	// OpenImage asks the user for an image path. An empty path means the
	// user cancelled.
	OpenImage func() (string, error)
	// OnGesture runs on the first contact; browsers only allow audio to
	// start from a user gesture.
	OnGesture func()
}

type Game struct {
	eng    *engine.Engine
	comp   *ripple.Compositor
	nav    *scene.Navigator
	logger *game_log.Logger
	opts   Options

	source  eventSource
	keys    keyLatch
	elapsed func() time.Duration
	frame   int64

	canvas   *ebiten.Image
	thumb    *ebiten.Image
	thumbKey string
	glow     swatch
	showGrid bool
	gestured bool
	status   string
	opening  atomic.Bool
	jsNav    atomic.Int32

	w, h int
}

// New builds the game around an engine whose scene is driven by nav. comp
// may be nil, in which case nothing is composited.
func New(logger *game_log.Logger, eng *engine.Engine, comp *ripple.Compositor, nav *scene.Navigator, opts Options) *Game {
	start := time.Now()
	g := &Game{
		eng:     eng,
		comp:    comp,
		nav:     nav,
		logger:  logger,
		opts:    opts,
		elapsed: func() time.Duration { return time.Since(start) },
	}
	if snap := eng.Grid(); snap != nil {
		g.w, g.h = snap.Width, snap.Height
	}
	eng.Router.OriginX, eng.Router.OriginY = Margin, Margin
	g.source = newEventSource(g)
	g.initJS()
	return g
}

// SetCanvasSize fixes the canvas size the layout is built around.
func (g *Game) SetCanvasSize(w, h int) { g.w, g.h = w, h }

func (g *Game) Layout(outsideWidth, outsideHeight int) (int, int) {
	return g.w + 2*Margin, g.h + 2*Margin
}

func (g *Game) Update() error {
	now := g.elapsed()
	g.frame++
	// Timers armed by this frame's contacts start from this frame's time.
	g.eng.Loop.Advance(now)

	for _, ev := range g.source.Events() {
		if ev.Kind == input.Down && !g.gestured {
			g.gestured = true
			if g.opts.OnGesture != nil {
				g.opts.OnGesture()
			}
		}
		g.eng.Handle(ev)
	}

	if err := g.handleKeys(); err != nil {
		return err
	}
	g.applyJSNav()

	g.eng.Tick(now)
	g.drainEvents(now)
	g.reportStateJS()
	return nil
}

func (g *Game) handleKeys() error {
	if g.keys.pressed(ebiten.KeyEscape) {
		g.logger.Infof("[UI] quit")
		return ebiten.Termination
	}
	if g.keys.pressed(ebiten.KeyG) {
		g.showGrid = !g.showGrid
	}
	fwd := g.keys.pressed(ebiten.KeyN)
	if g.keys.pressed(ebiten.KeyArrowRight) || fwd {
		g.next(1)
	}
	back := g.keys.pressed(ebiten.KeyP)
	if g.keys.pressed(ebiten.KeyArrowLeft) || back {
		g.next(-1)
	}
	if g.keys.pressed(ebiten.KeyO) {
		g.openImage()
	}
	return nil
}

// next moves to the neighboring scene and hides the grid. The navigator's
// subscribers perform the scene change itself.
func (g *Game) next(dir int) {
	g.showGrid = false
	var s scene.Scene
	if dir < 0 {
		s = g.nav.Prev()
	} else {
		s = g.nav.Next()
	}
	g.logger.Infof("[UI] scene %d/%d %s", g.nav.Index()+1, g.nav.Len(), s.Name)
}

// openImage runs the picker off the game loop and hands the result back
// through the engine's loop.
func (g *Game) openImage() {
	if g.opts.OpenImage == nil || !g.opening.CompareAndSwap(false, true) {
		return
	}
	go func() {
		defer g.opening.Store(false)
		path, err := g.opts.OpenImage()
		if err != nil {
			g.logger.Warnf("[UI] open image: %v", err)
			return
		}
		if path == "" {
			return
		}
		if !g.eng.Loop.Post(func() {
			if err := g.eng.SetImage(path); err != nil {
				g.logger.Warnf("[UI] %v", err)
			}
		}) {
			g.logger.Warnf("[UI] loop busy, dropped image %s", path)
		}
	}()
}

func (g *Game) drainEvents(now time.Duration) {
	for {
		select {
		case ev := <-g.eng.Events:
			g.onEngineEvent(ev, now)
		default:
			return
		}
	}
}

func (g *Game) onEngineEvent(ev engine.Event, now time.Duration) {
	switch ev.Kind {
	case engine.SceneChanged:
		g.status = ""
		g.thumbKey = ""
		if snap := g.eng.Grid(); snap != nil {
			g.w, g.h = snap.Width, snap.Height
		}
	case engine.SceneFailed:
		g.status = ev.Err.Error()
		g.thumbKey = ""
	case engine.CellEntered:
		g.glow.Set(ripple.Emphasize(ev.Cell.R, ev.Cell.G, ev.Cell.B), now)
	case engine.AmbientStarted:
		g.logger.Debugf("[UI] ambient started for %s", ev.Scene)
	}
}

func (g *Game) Draw(screen *ebiten.Image) {
	now := g.elapsed()
	screen.Fill(colBG)
	g.drawGlow(screen, now)

	if g.canvas == nil || g.canvas.Bounds().Dx() != g.w || g.canvas.Bounds().Dy() != g.h {
		if g.canvas != nil {
			g.canvas.Deallocate()
		}
		g.canvas = ebiten.NewImage(max(g.w, 1), max(g.h, 1))
	}
	g.canvas.Clear()
	if g.comp != nil {
		g.comp.RenderFrame(g.canvas, g.eng.Seconds())
	}
	for _, b := range g.eng.Bursts.Items() {
		c := color.NRGBA{b.Color.R, b.Color.G, b.Color.B, uint8(255 * (1 - b.T))}
		drawCircle(g.canvas, b.X, b.Y, b.Size, c, true)
	}
	if g.showGrid {
		g.drawGrid(g.canvas)
	}
	op := &ebiten.DrawImageOptions{}
	op.GeoM.Translate(Margin, Margin)
	screen.DrawImage(g.canvas, op)

	g.drawMarkers(screen)
	g.drawThumbnail(screen)
	g.drawHUD(screen)
	if g.showGrid {
		g.drawDebug(screen)
	}
}

func (g *Game) drawDebug(dst *ebiten.Image) {
	r := g.eng.Router
	info := fmt.Sprintf("TPS %.0f  contacts %d  pending %d  bursts %d", ebiten.ActualTPS(), len(r.Contacts()), r.PendingSwitches(), g.eng.Bursts.Len())
	ebitenutil.DebugPrintAt(dst, info, Margin+4, 4)
}

func (g *Game) drawGlow(dst *ebiten.Image, now time.Duration) {
	c := g.glow.RGBA(now, 160)
	if c.A == 0 {
		return
	}
	w, h := g.w+2*Margin, g.h+2*Margin
	drawRect(dst, image.Rect(0, 0, w, Margin), c, true)
	drawRect(dst, image.Rect(0, h-Margin, w, h), c, true)
	drawRect(dst, image.Rect(0, Margin, Margin, h-Margin), c, true)
	drawRect(dst, image.Rect(w-Margin, Margin, w, h-Margin), c, true)
}

// drawGrid outlines every cell and labels it with its note, fading labels
// on dark cells.
func (g *Game) drawGrid(dst *ebiten.Image) {
	snap := g.eng.Grid()
	if snap == nil {
		return
	}
	m := g.eng.Router.Mapping()
	d := snap.Density
	for _, c := range snap.Cells {
		drawRect(dst, image.Rect(c.X, c.Y, c.X+d, c.Y+d), colGridLine, false)
		n, ok := pitch.NoteForCell(c, m)
		if !ok {
			continue
		}
		alpha := float32(min(c.Brightness+0.1, 1))
		drawLabel(dst, n.String(), float64(c.X+1), float64(c.Y+1), colMarker, alpha)
	}
}

func (g *Game) drawMarkers(dst *ebiten.Image) {
	for _, c := range g.eng.Router.Contacts() {
		x, y := c.X+Margin, c.Y+Margin
		drawCircle(dst, x, y, 18, colMarker, false)
		drawLabel(dst, string(c.ID), x+20, y-20, colMarker, 1)
	}
}

// drawThumbnail shows the selected cell enlarged in the top-right corner
// while the grid is visible.
func (g *Game) drawThumbnail(dst *ebiten.Image) {
	cell, n, ok := g.eng.Selected()
	snap := g.eng.Grid()
	if !g.showGrid || !ok || snap == nil {
		return
	}
	if key := cell.Key(); key != g.thumbKey {
		if g.thumb != nil {
			g.thumb.Deallocate()
		}
		g.thumb = ebiten.NewImageFromImage(snap.Thumbnail(cell))
		g.thumbKey = key
	}
	size := snap.Density * thumbScale
	x := Margin + g.w - size - 8
	y := Margin + 8
	op := &ebiten.DrawImageOptions{}
	op.GeoM.Scale(thumbScale, thumbScale)
	op.GeoM.Translate(float64(x), float64(y))
	dst.DrawImage(g.thumb, op)
	drawRect(dst, image.Rect(x, y, x+size, y+size), colThumbEdge, false)
	info := fmt.Sprintf("%s  %.2f", n, cell.Brightness)
	drawLabel(dst, info, float64(x), float64(y+size+4), colThumbEdge, 1)
}

func (g *Game) drawHUD(dst *ebiten.Image) {
	s := g.eng.Scene()
	line := fmt.Sprintf("%d/%d %s  %s  touches %d", g.nav.Index()+1, g.nav.Len(), s.Name, s.Instrument.Normalize(), g.eng.Router.Counter())
	c := colMarker
	if g.status != "" {
		line = g.status
		c = colError
	}
	y := float64(g.h + Margin + 4)
	drawRect(dst, image.Rect(Margin, g.h+Margin+2, g.w+Margin, g.h+2*Margin-2), colHUD, true)
	drawLabel(dst, line, Margin+4, y, c, 1)
}

// Close releases GPU images; audio is owned by the caller.
func (g *Game) Close() {
	for _, img := range []*ebiten.Image{g.canvas, g.thumb} {
		if img != nil {
			img.Deallocate()
		}
	}
	g.canvas, g.thumb = nil, nil
}

// Run starts the window loop. ebiten.Termination ends it cleanly.
func (g *Game) Run() error {
	if err := ebiten.RunGame(g); err != nil && !errors.Is(err, ebiten.Termination) {
		return err
	}
	return nil
}
