package ui

import (
	"image/color"
	"time"

	"github.com/lucasb-eyer/go-colorful"
)

const swatchEase = 160 * time.Millisecond

// swatch eases the side glow toward the last entered cell's color.
type swatch struct {
	from, to colorful.Color
	start    time.Duration
	set      bool
}

// Set retargets the ease, starting from wherever it is at now.
func (s *swatch) Set(c color.Color, now time.Duration) {
	target, _ := colorful.MakeColor(c)
	if !s.set {
		s.from, s.to, s.start, s.set = target, target, now, true
		return
	}
	s.from = s.At(now)
	s.to = target
	s.start = now
}

// At returns the eased color, ease-out over swatchEase.
func (s *swatch) At(now time.Duration) colorful.Color {
	if !s.set {
		return colorful.Color{}
	}
	t := float64(now-s.start) / float64(swatchEase)
	switch {
	case t <= 0:
		return s.from
	case t >= 1:
		return s.to
	}
	return s.from.BlendLab(s.to, t*(2-t)).Clamped()
}

func (s *swatch) RGBA(now time.Duration, alpha uint8) color.RGBA {
	if !s.set {
		return color.RGBA{}
	}
	r, g, b := s.At(now).RGB255()
	a := float64(alpha) / 255
	return color.RGBA{uint8(float64(r) * a), uint8(float64(g) * a), uint8(float64(b) * a), alpha}
}
