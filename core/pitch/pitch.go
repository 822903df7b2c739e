// Package pitch maps sampled cell colors to notes.
package pitch

import (
	"fmt"
	"math"
	"strings"

	"github.com/yiyujin/photoscape/core/grid"
)

type Color int

const (
	White Color = iota
	Red
	Green
	Blue
)

func (c Color) String() string {
	switch c {
	case Red:
		return "red"
	case Green:
		return "green"
	case Blue:
		return "blue"
	default:
		return "white"
	}
}

func ParseColor(s string) (Color, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "red":
		return Red, nil
	case "green":
		return Green, nil
	case "blue":
		return Blue, nil
	case "white":
		return White, nil
	}
	return White, fmt.Errorf("unknown color %q", s)
}

// WhiteThreshold is the channel spread below which a cell counts as white.
// Zero means no cell is ever white.
const WhiteThreshold = 0

// Dominant classifies a color by its strongest channel, ties going to
// red, then green, then blue.
func Dominant(r, g, b uint8) Color {
	return DominantWithThreshold(r, g, b, WhiteThreshold)
}

func DominantWithThreshold(r, g, b uint8, threshold int) Color {
	ri, gi, bi := int(r), int(g), int(b)
	if abs(ri-gi) < threshold && abs(gi-bi) < threshold && abs(bi-ri) < threshold {
		return White
	}
	strongest := max(ri, gi, bi)
	switch strongest {
	case ri:
		return Red
	case gi:
		return Green
	}
	return Blue
}

// Root is the mapped tonic for one color.
type Root struct {
	Note       string
	BaseOctave int
}

// Mapping is read-only once handed to the router.
type Mapping map[Color]Root

// Validate checks every root names a real pitch class.
func (m Mapping) Validate() error {
	for c, r := range m {
		if _, err := pitchClass(r.Note); err != nil {
			return fmt.Errorf("mapping %s: %w", c, err)
		}
	}
	return nil
}

var pentatonic = [...]int{0, 2, 4, 7, 9}

// Noise is a stable hash of a cell position in [0,1).
func Noise(x, y int) float64 {
	v := math.Sin(float64(x)*12.9898+float64(y)*78.233) * 43758.5453
	return v - math.Floor(v)
}

// NoteForCell is pure: identical inputs always give the same note. The
// boolean is false for white cells and colors missing from m.
func NoteForCell(c grid.Cell, m Mapping) (Note, bool) {
	col := Dominant(c.R, c.G, c.B)
	if col == White {
		return Note{}, false
	}
	root, ok := m[col]
	if !ok {
		return Note{}, false
	}
	rootPC, err := pitchClass(root.Note)
	if err != nil {
		return Note{}, false
	}
	b := (float64(c.R) + float64(c.G) + float64(c.B)) / 3 / 255

	last := len(pentatonic) - 1
	degree := int(math.Floor(b*float64(last) + (Noise(c.X, c.Y)-0.5)*1.2))
	degree = min(max(degree, 0), last)
	offset := min(int(math.Floor(b*2)), 1)

	idx := rootPC + pentatonic[degree]
	octave := root.BaseOctave + offset + idx/12
	flats := len(root.Note) == 2 && root.Note[1] == 'b'
	return Note{Class: spell(idx%12, flats), Octave: octave}, true
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
