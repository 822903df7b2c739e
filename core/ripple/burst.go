package ripple

import (
	"image/color"

	"github.com/yiyujin/photoscape/core/grid"
)

const MaxBursts = 50

// Burst is one particle flash drawn over the canvas.
type Burst struct {
	X, Y  float64
	Size  float64
	T     float64
	Color color.RGBA
}

// Bursts keeps the newest MaxBursts flashes, evicting the oldest.
type Bursts struct {
	capacity int
	items    []Burst
}

func NewBursts(capacity int) *Bursts {
	if capacity <= 0 {
		capacity = MaxBursts
	}
	return &Bursts{capacity: capacity}
}

// Add spawns a burst at canvas point (x, y). Lower cells start larger.
func (b *Bursts) Add(x, y, canvasH float64, c grid.Cell) {
	depth := 1.0
	if canvasH > 0 {
		depth = 1 + float64(c.Y)/canvasH*1.5
	}
	b.items = append(b.items, Burst{X: x, Y: y, Size: 8 * depth, Color: Emphasize(c.R, c.G, c.B)})
	if len(b.items) > b.capacity {
		copy(b.items, b.items[1:])
		b.items = b.items[:len(b.items)-1]
	}
}

// Step advances every burst by one frame and drops finished ones.
func (b *Bursts) Step() {
	live := b.items[:0]
	for _, it := range b.items {
		it.T += 0.02
		it.Size -= it.Size * 0.15
		if it.T > 1 || it.Size < 0.01 {
			continue
		}
		live = append(live, it)
	}
	b.items = live
}

func (b *Bursts) Items() []Burst { return b.items }

func (b *Bursts) Len() int { return len(b.items) }

func (b *Bursts) Clear() { b.items = b.items[:0] }

// Emphasize pushes the strongest channel to full and halves the others.
func Emphasize(r, g, bl uint8) color.RGBA {
	strongest := max(r, g, bl)
	switch strongest {
	case r:
		return color.RGBA{255, g / 2, bl / 2, 255}
	case g:
		return color.RGBA{r / 2, 255, bl / 2, 255}
	}
	return color.RGBA{r / 2, g / 2, 255, 255}
}
