package pitch

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

var (
	sharpNames = [12]string{"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B"}
	flatNames  = [12]string{"C", "Db", "D", "Eb", "E", "F", "Gb", "G", "Ab", "A", "Bb", "B"}
)

// Note is a spelled pitch such as Bb3. The zero value means "no note".
type Note struct {
	Class  string
	Octave int
}

func (n Note) String() string {
	if n.IsZero() {
		return ""
	}
	return n.Class + strconv.Itoa(n.Octave)
}

func (n Note) IsZero() bool { return n.Class == "" }

// MIDI returns the MIDI key number (C4 = 60).
func (n Note) MIDI() int {
	pc, _ := pitchClass(n.Class)
	return (n.Octave+1)*12 + pc
}

// Frequency in Hz, equal temperament with A4 = 440.
func (n Note) Frequency() float64 {
	return 440 * math.Pow(2, float64(n.MIDI()-69)/12)
}

// ParseNote accepts names like "G3", "Bb4" or "C#-1".
func ParseNote(s string) (Note, error) {
	s = strings.TrimSpace(s)
	i := 1
	if len(s) > 1 && (s[1] == '#' || s[1] == 'b') {
		i = 2
	}
	if len(s) <= i {
		return Note{}, fmt.Errorf("parse note %q: missing octave", s)
	}
	class := s[:i]
	if _, err := pitchClass(class); err != nil {
		return Note{}, fmt.Errorf("parse note %q: %w", s, err)
	}
	oct, err := strconv.Atoi(s[i:])
	if err != nil {
		return Note{}, fmt.Errorf("parse note %q: bad octave: %w", s, err)
	}
	return Note{Class: class, Octave: oct}, nil
}

func pitchClass(class string) (int, error) {
	if class == "" {
		return 0, fmt.Errorf("empty pitch class")
	}
	base, ok := map[byte]int{'C': 0, 'D': 2, 'E': 4, 'F': 5, 'G': 7, 'A': 9, 'B': 11}[upper(class[0])]
	if !ok {
		return 0, fmt.Errorf("unknown pitch class %q", class)
	}
	if len(class) > 2 {
		return 0, fmt.Errorf("unknown pitch class %q", class)
	}
	if len(class) == 2 {
		switch class[1] {
		case '#':
			base++
		case 'b':
			base--
		default:
			return 0, fmt.Errorf("unknown accidental in %q", class)
		}
	}
	return (base + 12) % 12, nil
}

func upper(b byte) byte {
	if b >= 'a' && b <= 'z' {
		return b - 'a' + 'A'
	}
	return b
}

func spell(pc int, flats bool) string {
	if flats {
		return flatNames[pc]
	}
	return sharpNames[pc]
}
