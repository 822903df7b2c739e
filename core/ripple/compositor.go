package ripple

import (
	_ "embed"
	"errors"
	"fmt"
	"image"

	"github.com/hajimehoshi/ebiten/v2"

	game_log "github.com/yiyujin/photoscape/internal/log"
)

//go:embed ripple.kage
var shaderSrc []byte

var ErrShaderInit = errors.New("shader init failed")

type ShaderInitError struct {
	Err error
}

func (e *ShaderInitError) Error() string { return fmt.Sprintf("compile ripple shader: %v", e.Err) }

func (e *ShaderInitError) Unwrap() []error { return []error{ErrShaderInit, e.Err} }

// Compositor owns the ripple pool and draws the scene texture through the
// ripple shader. Every method tolerates being called before Init or
// SetSource; a frame without a shader or texture falls back to the plain
// image or draws nothing.
type Compositor struct {
	Pool   *Pool
	Params Params
	logger *game_log.Logger

	shader  *ebiten.Shader
	src     *ebiten.Image
	initErr error
	opts    ebiten.DrawRectShaderOptions
}

func NewCompositor(pool *Pool, params Params, logger *game_log.Logger) *Compositor {
	if pool == nil {
		pool = NewPool(MaxRipples, DefaultDuration)
	}
	if params.MaxDuration <= 0 {
		params.MaxDuration = float32(pool.duration)
	}
	return &Compositor{
		Pool:   pool,
		Params: params,
		logger: logger,
		opts:   ebiten.DrawRectShaderOptions{Uniforms: map[string]any{}},
	}
}

// Init compiles the shader. On failure the visual layer stays degraded for
// the session and the error is returned as a *ShaderInitError.
func (c *Compositor) Init() error {
	if c.shader != nil {
		return nil
	}
	s, err := ebiten.NewShader(shaderSrc)
	if err != nil {
		c.initErr = &ShaderInitError{Err: err}
		c.logger.Errorf("[RIPPLE] %v", c.initErr)
		return c.initErr
	}
	c.shader = s
	c.initErr = nil
	return nil
}

// Err returns the Init failure, if any.
func (c *Compositor) Err() error { return c.initErr }

// SetSource replaces the texture. nil clears it.
func (c *Compositor) SetSource(img image.Image) {
	if c.src != nil {
		c.src.Deallocate()
		c.src = nil
	}
	c.Pool.Clear()
	if img == nil {
		return
	}
	c.src = ebiten.NewImageFromImage(img)
}

func (c *Compositor) Source() *ebiten.Image { return c.src }

// Ready reports whether frames will go through the shader.
func (c *Compositor) Ready() bool { return c.shader != nil && c.src != nil }

// Ripple enqueues a ripple at normalized (u, v).
func (c *Compositor) Ripple(u, v float64, rgb [3]float32, now float64) bool {
	if !c.Pool.Enqueue(u, v, now, rgb) {
		c.logger.Debugf("[RIPPLE] pool full (%d), ripple dropped", c.Pool.Cap())
		return false
	}
	return true
}

// uniforms prunes the pool and fills the uniform map for a frame at now.
func (c *Compositor) uniforms(now float64) map[string]any {
	u := c.Pool.Uniforms(now)
	m := c.opts.Uniforms
	m["Time"] = float32(now)
	m["Count"] = float32(u.Count)
	m["Positions"] = u.Positions
	m["Starts"] = u.Starts
	m["Colors"] = u.Colors
	m["Shape"] = float32(c.Params.Shape)
	m["Speed"] = c.Params.Speed
	m["Width"] = c.Params.Width
	m["Fade"] = c.Params.Fade
	m["Amplitude"] = c.Params.Amplitude
	m["MaxDuration"] = c.Params.MaxDuration
	m["Bloom"] = c.Params.Bloom
	return m
}

// RenderFrame prunes, uploads and draws. Without a shader the texture is
// drawn undisplaced; without a texture nothing is drawn.
func (c *Compositor) RenderFrame(dst *ebiten.Image, now float64) {
	if !c.Ready() {
		c.Pool.Prune(now)
		if c.src != nil {
			dst.DrawImage(c.src, nil)
		}
		return
	}
	c.opts.Uniforms = c.uniforms(now)
	c.opts.Images[0] = c.src
	b := c.src.Bounds()
	dst.DrawRectShader(b.Dx(), b.Dy(), c.shader, &c.opts)
}

// Close releases GPU resources.
func (c *Compositor) Close() {
	if c.src != nil {
		c.src.Deallocate()
		c.src = nil
	}
	if c.shader != nil {
		c.shader.Deallocate()
		c.shader = nil
	}
}
