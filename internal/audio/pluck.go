package audio

import (
	"math"
	"time"

	"github.com/yiyujin/photoscape/core/pitch"
	"github.com/yiyujin/photoscape/core/voice"
)

// pluckVoice is a Karplus-Strong string: one period of a triangle wave
// circulates through a delay line, a one-pole lowpass and a decay gain.
type pluckVoice struct {
	line  []float64
	pos   int
	lp    float64
	alpha float64
	decay float64
	gain  float64

	i, limit, fade int
}

func newPluckVoice(freq, gain float64, d time.Duration) *pluckVoice {
	n := int(SampleRate / freq)
	if n < 2 {
		n = 2
	}
	line := make([]float64, n)
	for i := range line {
		line[i] = Triangle.at(float64(i) / float64(n))
	}
	// lowpass cutoff about 8x the fundamental keeps the attack bright
	rc := 1 / (2 * math.Pi * freq * 8)
	dt := 1.0 / SampleRate
	return &pluckVoice{
		line:  line,
		alpha: dt / (rc + dt),
		decay: 0.996,
		gain:  gain,
		limit: int(d.Seconds() * SampleRate),
		fade:  SampleRate / 20,
	}
}

func (v *pluckVoice) Sample() (float64, bool) {
	if v.i >= v.limit+v.fade {
		return 0, true
	}
	out := v.line[v.pos]
	v.lp += v.alpha * (out - v.lp)
	v.line[v.pos] = v.lp * v.decay
	v.pos = (v.pos + 1) % len(v.line)
	env := 1.0
	if v.i > v.limit {
		env = 1 - float64(v.i-v.limit)/float64(v.fade)
	}
	v.i++
	return out * env * v.gain, false
}

// Pluck only plays fixed-length notes; the voice manager routes holds
// through AttackRelease.
type Pluck struct {
	sink   Sink
	gain   float64
	closed bool
}

func NewPluck(sink Sink) *Pluck { return &Pluck{sink: sink, gain: 0.5} }

func (p *Pluck) Family() voice.Family { return voice.Melodic }

func (p *Pluck) AttackRelease(n pitch.Note, d time.Duration) error {
	if p.closed {
		return ErrClosed
	}
	p.sink.Play(newPluckVoice(n.Frequency(), p.gain, d))
	return nil
}

func (p *Pluck) Close() error {
	p.closed = true
	return nil
}
