// Package scene describes the bundles the installation cycles through: an
// image, an ambient loop, an instrument and a color-to-note table.
package scene

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/yiyujin/photoscape/core/pitch"
)

const DefaultOctave = 3

// Kind names an instrument. Unknown kinds get the fallback synth.
type Kind string

const (
	Piano        Kind = "piano"
	Pluck        Kind = "pluck"
	Guitar       Kind = "guitar"
	Sine         Kind = "sine"
	PingPongDrum Kind = "pingpong-drum"
	Metal        Kind = "metal"
)

// Normalize lower-cases k; an empty kind means piano.
func (k Kind) Normalize() Kind {
	k = Kind(strings.ToLower(strings.TrimSpace(string(k))))
	if k == "" {
		return Piano
	}
	return k
}

type ColorNote struct {
	Note string `json:"note"`
	// Octave is nil when the scene leaves it out.
	Octave *int `json:"octave,omitempty"`
}

// Oct returns a pointer for ColorNote.Octave.
func Oct(n int) *int { return &n }

type Scene struct {
	Name       string               `json:"name"`
	Image      string               `json:"img"`
	Ambient    string               `json:"ambient,omitempty"`
	Instrument Kind                 `json:"instrument,omitempty"`
	Colors     map[string]ColorNote `json:"colorToMap"`
}

// Mapping converts the color table. A missing octave means DefaultOctave.
func (s Scene) Mapping() (pitch.Mapping, error) {
	m := make(pitch.Mapping, len(s.Colors))
	for name, cn := range s.Colors {
		c, err := pitch.ParseColor(name)
		if err != nil {
			return nil, fmt.Errorf("scene %s: %w", s.Name, err)
		}
		oct := DefaultOctave
		if cn.Octave != nil {
			oct = *cn.Octave
		}
		m[c] = pitch.Root{Note: cn.Note, BaseOctave: oct}
	}
	if err := m.Validate(); err != nil {
		return nil, fmt.Errorf("scene %s: %w", s.Name, err)
	}
	return m, nil
}

// ColorNames returns the mapped colors in a stable order.
func (s Scene) ColorNames() []string {
	out := make([]string, 0, len(s.Colors))
	for k := range s.Colors {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Defaults are the four scenes the installation ships with.
func Defaults() []Scene {
	return []Scene{
		{
			Name: "img0", Image: "img0.jpg", Ambient: "img0.mp3", Instrument: Piano,
			Colors: map[string]ColorNote{
				"red":   {Note: "Bb", Octave: Oct(3)},
				"green": {Note: "D", Octave: Oct(4)},
				"blue":  {Note: "F", Octave: Oct(4)},
			},
		},
		{
			Name: "img1", Image: "img1.jpg", Ambient: "img1.mp3",
			Colors: map[string]ColorNote{
				"red":   {Note: "A", Octave: Oct(3)},
				"green": {Note: "C", Octave: Oct(4)},
				"blue":  {Note: "F", Octave: Oct(4)},
			},
		},
		{
			Name: "img2", Image: "img2.jpg", Ambient: "img2.mp3", Instrument: Sine,
			Colors: map[string]ColorNote{
				"red":   {Note: "G", Octave: Oct(3)},
				"green": {Note: "Bb", Octave: Oct(3)},
				"blue":  {Note: "D", Octave: Oct(4)},
			},
		},
		{
			Name: "img3", Image: "img3.jpg", Ambient: "img3.mp3", Instrument: Metal,
			Colors: map[string]ColorNote{
				"red":   {Note: "G", Octave: Oct(3)},
				"green": {Note: "Bb", Octave: Oct(3)},
				"blue":  {Note: "Eb", Octave: Oct(4)},
			},
		},
	}
}

var ErrNoScenes = errors.New("no scenes configured")

// Navigator steps through scenes and tells subscribers about each change.
type Navigator struct {
	scenes    []Scene
	index     int
	listeners []func(Scene)
}

func NewNavigator(scenes []Scene) (*Navigator, error) {
	if len(scenes) == 0 {
		return nil, ErrNoScenes
	}
	return &Navigator{scenes: append([]Scene(nil), scenes...)}, nil
}

// Subscribe registers fn for every subsequent change.
func (n *Navigator) Subscribe(fn func(Scene)) { n.listeners = append(n.listeners, fn) }

func (n *Navigator) Current() Scene { return n.scenes[n.index] }
func (n *Navigator) Index() int     { return n.index }
func (n *Navigator) Len() int       { return len(n.scenes) }

func (n *Navigator) Scenes() []Scene { return append([]Scene(nil), n.scenes...) }

// Next wraps past the last scene.
func (n *Navigator) Next() Scene { return n.move(1) }

// Prev wraps before the first scene.
func (n *Navigator) Prev() Scene { return n.move(-1) }

// Select jumps to scene i.
func (n *Navigator) Select(i int) (Scene, error) {
	if i < 0 || i >= len(n.scenes) {
		return Scene{}, fmt.Errorf("scene index %d out of range [0,%d)", i, len(n.scenes))
	}
	n.index = i
	n.publish()
	return n.Current(), nil
}

func (n *Navigator) move(delta int) Scene {
	l := len(n.scenes)
	n.index = ((n.index+delta)%l + l) % l
	n.publish()
	return n.Current()
}

func (n *Navigator) publish() {
	s := n.Current()
	for _, fn := range n.listeners {
		fn(s)
	}
}
