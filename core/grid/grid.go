// Package grid rasterizes a source image onto a fixed canvas and samples it
// into a regular lattice of colored cells.
package grid

import (
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"math"
	"os"

	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

const (
	DefaultWidth   = 960
	DefaultHeight  = 640
	DefaultDensity = 20
)

// ErrImageLoad is matched by every *ImageLoadError.
var ErrImageLoad = errors.New("image load failed")

type ImageLoadError struct {
	Path string
	Err  error
}

func (e *ImageLoadError) Error() string {
	return fmt.Sprintf("load image %s: %v", e.Path, e.Err)
}

func (e *ImageLoadError) Unwrap() []error { return []error{ErrImageLoad, e.Err} }

// Cell is one sampled grid square. X and Y are canvas pixels of the
// cell's top-left corner.
type Cell struct {
	X, Y       int
	R, G, B    uint8
	Brightness float64
}

// Key identifies the cell within its snapshot.
func (c Cell) Key() string { return fmt.Sprintf("%d,%d", c.X, c.Y) }

func newCell(x, y int, r, g, b uint8) Cell {
	return Cell{
		X: x, Y: y,
		R: r, G: g, B: b,
		Brightness: (float64(r) + float64(g) + float64(b)) / 3 / 255,
	}
}

// Snapshot is immutable after construction and may be shared freely.
type Snapshot struct {
	Cells   []Cell
	Width   int
	Height  int
	Density int
	Surface *image.RGBA

	cols, rows int
}

// Load decodes the image at path and samples it. The returned error is
// always an *ImageLoadError.
func Load(path string, w, h, density int) (*Snapshot, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &ImageLoadError{Path: path, Err: err}
	}
	defer f.Close()
	return Decode(f, path, w, h, density)
}

// Decode samples the image read from r; path only labels errors.
func Decode(r io.Reader, path string, w, h, density int) (*Snapshot, error) {
	img, _, err := image.Decode(r)
	if err != nil {
		return nil, &ImageLoadError{Path: path, Err: err}
	}
	return Sample(img, w, h, density), nil
}

// Sample stretches img onto a w×h surface and takes one pixel per cell at
// the given stride, row-major.
func Sample(img image.Image, w, h, density int) *Snapshot {
	if w <= 0 {
		w = DefaultWidth
	}
	if h <= 0 {
		h = DefaultHeight
	}
	if density <= 0 {
		density = DefaultDensity
	}
	surface := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.BiLinear.Scale(surface, surface.Bounds(), img, img.Bounds(), draw.Src, nil)

	s := &Snapshot{
		Width:   w,
		Height:  h,
		Density: density,
		Surface: surface,
		cols:    (w + density - 1) / density,
		rows:    (h + density - 1) / density,
	}
	s.Cells = make([]Cell, 0, s.cols*s.rows)
	for y := 0; y < h; y += density {
		for x := 0; x < w; x += density {
			c := surface.RGBAAt(x, y)
			s.Cells = append(s.Cells, newCell(x, y, c.R, c.G, c.B))
		}
	}
	return s
}

// CellAt returns the cell containing canvas point (x, y).
func (s *Snapshot) CellAt(x, y float64) (Cell, bool) {
	if s == nil || x < 0 || y < 0 || x >= float64(s.Width) || y >= float64(s.Height) {
		return Cell{}, false
	}
	col := int(math.Floor(x / float64(s.Density)))
	row := int(math.Floor(y / float64(s.Density)))
	i := row*s.cols + col
	if i < 0 || i >= len(s.Cells) {
		return Cell{}, false
	}
	return s.Cells[i], true
}

// Dims returns the number of columns and rows.
func (s *Snapshot) Dims() (cols, rows int) { return s.cols, s.rows }

// Thumbnail returns the cell's square of the rasterized surface.
func (s *Snapshot) Thumbnail(c Cell) image.Image {
	r := image.Rect(c.X, c.Y, c.X+s.Density, c.Y+s.Density).Intersect(s.Surface.Bounds())
	return s.Surface.SubImage(r)
}
