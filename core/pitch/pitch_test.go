package pitch

import (
	"testing"

	"github.com/yiyujin/photoscape/core/grid"
)

func cell(x, y int, r, g, b uint8) grid.Cell {
	return grid.Cell{X: x, Y: y, R: r, G: g, B: b, Brightness: (float64(r) + float64(g) + float64(b)) / 765}
}

func TestDominant(t *testing.T) {
	cases := []struct {
		r, g, b uint8
		want    Color
	}{
		{255, 0, 0, Red},
		{0, 200, 10, Green},
		{1, 2, 3, Blue},
		{100, 100, 50, Red},
		{0, 90, 90, Green},
		{7, 7, 7, Red},
	}
	for _, c := range cases {
		if got := Dominant(c.r, c.g, c.b); got != c.want {
			t.Fatalf("Dominant(%d,%d,%d) = %s, want %s", c.r, c.g, c.b, got, c.want)
		}
	}
}

func TestDominantWhiteThreshold(t *testing.T) {
	if got := DominantWithThreshold(200, 205, 198, 10); got != White {
		t.Fatalf("near-grey = %s, want white", got)
	}
	if got := DominantWithThreshold(200, 230, 198, 10); got != Green {
		t.Fatalf("spread cell = %s, want green", got)
	}
}

func TestScenarioRedCellInGPentatonic(t *testing.T) {
	m := Mapping{Red: {Note: "G", BaseOctave: 3}}
	c := cell(0, 0, 255, 0, 0)
	n, ok := NoteForCell(c, m)
	if !ok {
		t.Fatalf("expected a note")
	}
	scale := map[string]bool{"G": true, "A": true, "B": true, "D": true, "E": true}
	if !scale[n.Class] {
		t.Fatalf("%s not in G major pentatonic", n)
	}
	if n.Octave != 3 && n.Octave != 4 {
		t.Fatalf("%s octave out of range", n)
	}
	again, _ := NoteForCell(c, m)
	if again != n {
		t.Fatalf("not deterministic: %s then %s", n, again)
	}
}

func TestNoteForCellDeterministicAcrossGrid(t *testing.T) {
	m := Mapping{
		Red:   {Note: "Bb", BaseOctave: 3},
		Green: {Note: "D", BaseOctave: 4},
		Blue:  {Note: "F", BaseOctave: 4},
	}
	for y := 0; y < 640; y += 20 {
		for x := 0; x < 960; x += 20 {
			c := cell(x, y, uint8(x%256), uint8(y%256), uint8((x+y)%256))
			a, okA := NoteForCell(c, m)
			b, okB := NoteForCell(c, m)
			if a != b || okA != okB {
				t.Fatalf("cell %d,%d: %v/%v vs %v/%v", x, y, a, okA, b, okB)
			}
			if okA && (a.Octave < 3 || a.Octave > 6) {
				t.Fatalf("cell %d,%d: octave %d out of range", x, y, a.Octave)
			}
		}
	}
}

func TestNoteForCellMissingMapping(t *testing.T) {
	if _, ok := NoteForCell(cell(0, 0, 0, 255, 0), Mapping{Red: {Note: "A", BaseOctave: 3}}); ok {
		t.Fatalf("green cell without green mapping should be silent")
	}
	if _, ok := NoteForCell(cell(0, 0, 0, 255, 0), nil); ok {
		t.Fatalf("nil mapping should be silent")
	}
}

func TestOctaveCarryAndSpelling(t *testing.T) {
	// bright cell on an A root: degree is high, so the chromatic index
	// wraps past B into the next octave.
	m := Mapping{Red: {Note: "A", BaseOctave: 3}}
	n, ok := NoteForCell(cell(0, 0, 255, 254, 254), m)
	if !ok {
		t.Fatalf("expected note")
	}
	if n.Octave < 4 || n.Octave > 5 {
		t.Fatalf("bright A3 root gave %s", n)
	}
	m = Mapping{Red: {Note: "Eb", BaseOctave: 4}}
	for x := 0; x < 200; x += 20 {
		n, _ := NoteForCell(cell(x, 0, 200, 10, 10), m)
		if len(n.Class) == 2 && n.Class[1] == '#' {
			t.Fatalf("flat root spelled with sharp: %s", n)
		}
	}
}

func TestNoiseRange(t *testing.T) {
	for x := 0; x < 1000; x += 7 {
		v := Noise(x, x*3)
		if v < 0 || v >= 1 {
			t.Fatalf("Noise(%d) = %v", x, v)
		}
	}
}

func TestParseNote(t *testing.T) {
	n, err := ParseNote("Bb3")
	if err != nil || n.Class != "Bb" || n.Octave != 3 {
		t.Fatalf("ParseNote(Bb3) = %+v, %v", n, err)
	}
	if n.MIDI() != 58 {
		t.Fatalf("Bb3 MIDI = %d, want 58", n.MIDI())
	}
	a4, _ := ParseNote("A4")
	if f := a4.Frequency(); f < 439.99 || f > 440.01 {
		t.Fatalf("A4 = %v Hz", f)
	}
	for _, bad := range []string{"", "H3", "C", "Cx3", "C#x"} {
		if _, err := ParseNote(bad); err == nil {
			t.Fatalf("ParseNote(%q) should fail", bad)
		}
	}
}

func TestParseColor(t *testing.T) {
	c, err := ParseColor(" Blue ")
	if err != nil || c != Blue || c.String() != "blue" {
		t.Fatalf("ParseColor = %v, %v", c, err)
	}
	if _, err := ParseColor("purple"); err == nil {
		t.Fatalf("expected error")
	}
}
