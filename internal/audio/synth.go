package audio

import (
	"errors"
	"math"
	"sync/atomic"
	"time"

	"github.com/yiyujin/photoscape/core/pitch"
	"github.com/yiyujin/photoscape/core/voice"
)

var ErrClosed = errors.New("instrument closed")

type Wave int

const (
	Sine Wave = iota
	Triangle
)

func (w Wave) at(phase float64) float64 {
	switch w {
	case Triangle:
		return 1 - 4*math.Abs(phase-0.5)
	}
	return math.Sin(2 * math.Pi * phase)
}

// Envelope times are in seconds; Sustain is a level.
type Envelope struct {
	Attack, Decay, Sustain, Release float64
}

var defaultEnvelope = Envelope{Attack: 0.005, Decay: 0.1, Sustain: 0.6, Release: 0.3}

// envVoice is an oscillator under an ADSR envelope. Release may be
// requested from any goroutine; everything else runs on the mixer.
type envVoice struct {
	wave  Wave
	freq  float64
	gain  float64
	env   Envelope
	limit int

	i, relAt        int
	phase           float64
	level, relLevel float64
	released        atomic.Bool
}

func newEnvVoice(w Wave, freq, gain float64, env Envelope, d time.Duration) *envVoice {
	v := &envVoice{wave: w, freq: freq, gain: gain, env: env, relAt: -1}
	if d > 0 {
		v.limit = int(d.Seconds() * SampleRate)
	}
	return v
}

// Stop starts the release stage.
func (v *envVoice) Stop() { v.released.Store(true) }

func (v *envVoice) Sample() (float64, bool) {
	if v.relAt < 0 && (v.released.Load() || (v.limit > 0 && v.i >= v.limit)) {
		v.relAt = v.i
		v.relLevel = v.level
	}
	if v.relAt >= 0 {
		r := float64(v.i-v.relAt) / (v.env.Release * SampleRate)
		if r >= 1 {
			return 0, true
		}
		v.level = v.relLevel * (1 - r)
	} else {
		t := float64(v.i) / SampleRate
		switch {
		case t < v.env.Attack:
			v.level = t / v.env.Attack
		case t < v.env.Attack+v.env.Decay:
			v.level = 1 - (1-v.env.Sustain)*(t-v.env.Attack)/v.env.Decay
		default:
			v.level = v.env.Sustain
		}
	}
	s := v.wave.at(v.phase) * v.level * v.gain
	v.phase += v.freq / SampleRate
	v.phase -= math.Floor(v.phase)
	v.i++
	return s, false
}

// Synth is a polyphonic oscillator instrument. Its methods must be called
// from one goroutine.
type Synth struct {
	sink   Sink
	wave   Wave
	env    Envelope
	gain   float64
	active map[pitch.Note]*envVoice
	closed bool
}

func NewSynth(sink Sink, w Wave) *Synth {
	return &Synth{sink: sink, wave: w, env: defaultEnvelope, gain: 0.35, active: map[pitch.Note]*envVoice{}}
}

func (s *Synth) Family() voice.Family { return voice.Melodic }

func (s *Synth) Attack(n pitch.Note) error {
	if s.closed {
		return ErrClosed
	}
	if old, ok := s.active[n]; ok {
		old.Stop()
	}
	v := newEnvVoice(s.wave, n.Frequency(), s.gain, s.env, 0)
	s.active[n] = v
	s.sink.Play(v)
	return nil
}

func (s *Synth) Release(n pitch.Note) error {
	if v, ok := s.active[n]; ok {
		v.Stop()
		delete(s.active, n)
	}
	return nil
}

func (s *Synth) AttackRelease(n pitch.Note, d time.Duration) error {
	if s.closed {
		return ErrClosed
	}
	s.sink.Play(newEnvVoice(s.wave, n.Frequency(), s.gain, s.env, d))
	return nil
}

// Morph plays a quieter triangle an octave up for d.
func (s *Synth) Morph(n pitch.Note, d time.Duration) (voice.Stopper, error) {
	if s.closed {
		return nil, ErrClosed
	}
	env := Envelope{Attack: 0.02, Decay: 0.05, Sustain: 0.5, Release: 0.08}
	v := newEnvVoice(Triangle, n.Frequency()*2, s.gain*0.4, env, d)
	s.sink.Play(v)
	return v, nil
}

func (s *Synth) Close() error {
	for n, v := range s.active {
		v.Stop()
		delete(s.active, n)
	}
	s.closed = true
	return nil
}
