package ui

import (
	"image"
	"image/color"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/text/v2"
	"github.com/hajimehoshi/ebiten/v2/vector"
	"golang.org/x/image/font/basicfont"
)

var labelFace = text.NewGoXFace(basicfont.Face7x13)

// drawRect draws a rectangle. It is defined as a variable so tests can
// override it to capture draw calls.
var drawRect = func(dst *ebiten.Image, r image.Rectangle, c color.Color, filled bool) {
	if filled {
		vector.DrawFilledRect(dst, float32(r.Min.X), float32(r.Min.Y), float32(r.Dx()), float32(r.Dy()), c, false)
	} else {
		vector.StrokeRect(dst, float32(r.Min.X), float32(r.Min.Y), float32(r.Dx()), float32(r.Dy()), 1, c, false)
	}
}

var drawCircle = func(dst *ebiten.Image, x, y, r float64, c color.Color, filled bool) {
	if filled {
		vector.DrawFilledCircle(dst, float32(x), float32(y), float32(r), c, true)
	} else {
		vector.StrokeCircle(dst, float32(x), float32(y), float32(r), 2, c, true)
	}
}

// drawLabel prints s with its top-left at (x, y), faded by alpha.
var drawLabel = func(dst *ebiten.Image, s string, x, y float64, c color.Color, alpha float32) {
	op := &text.DrawOptions{}
	op.GeoM.Translate(x, y)
	op.ColorScale.ScaleWithColor(c)
	op.ColorScale.ScaleAlpha(alpha)
	text.Draw(dst, s, labelFace, op)
}
