package ripple

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// Params shape the ring. Distances are in normalized canvas units.
type Params struct {
	Shape       Shape
	Speed       float32
	Width       float32
	Fade        float32
	Amplitude   float32
	MaxDuration float32
	Bloom       float32
}

func DefaultParams() Params {
	return Params{
		Shape:       Circle,
		Speed:       0.3,
		Width:       0.02,
		Fade:        3,
		Amplitude:   0.03,
		MaxDuration: float32(DefaultDuration.Seconds()),
		Bloom:       0.6,
	}
}

// distance mirrors rippleDist in ripple.kage.
func (p Params) distance(v mgl32.Vec2) float32 {
	ax, ay := abs32(v.X()), abs32(v.Y())
	var d float32
	switch p.Shape {
	case Square:
		d = max(ax, ay)
	case Diamond:
		d = ax + ay
	default:
		d = v.Len()
	}
	return d*2 + 0.0001
}

// Band is the ring intensity of one ripple t seconds old at distance d.
func (p Params) Band(d, t float32) float32 {
	r := p.Speed * t
	v := smoothstep(r-p.Width, r, d) - smoothstep(r, r+p.Width, d)
	return v * float32(math.Exp(float64(-p.Fade*t/p.MaxDuration)))
}

// Field evaluates the shader's displacement on the CPU. The HUD uses it to
// report the displacement under the cursor and tests use it to pin the
// math down.
type Field struct {
	Params Params
}

// Displacement returns the UV offset applied to a pixel at uv.
func (f Field) Displacement(uv mgl32.Vec2, events []Event, now float64) mgl32.Vec2 {
	var dir mgl32.Vec2
	var mag float32
	for _, e := range events {
		t := float32(now - e.Start)
		if t < 0 || t >= f.Params.MaxDuration {
			continue
		}
		d := uv.Sub(mgl32.Vec2{float32(e.X), float32(e.Y)})
		val := f.Params.Band(f.Params.distance(d), t)
		if val == 0 {
			continue
		}
		dir = dir.Add(normalize(d.Add(mgl32.Vec2{0.0001, 0.0001})).Mul(val))
		mag += val
	}
	if mag == 0 {
		return mgl32.Vec2{}
	}
	return normalize(dir.Add(mgl32.Vec2{0.001, 0.001})).Mul(mag * f.Params.Amplitude)
}

func normalize(v mgl32.Vec2) mgl32.Vec2 {
	if v.Len() == 0 {
		return v
	}
	return v.Normalize()
}

func smoothstep(e0, e1, x float32) float32 {
	t := (x - e0) / (e1 - e0)
	t = min(max(t, 0), 1)
	return t * t * (3 - 2*t)
}

func abs32(v float32) float32 {
	if v < 0 {
		return -v
	}
	return v
}
