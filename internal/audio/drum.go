package audio

import (
	"math"
	"time"

	"github.com/yiyujin/photoscape/core/pitch"
	"github.com/yiyujin/photoscape/core/voice"
)

const (
	drumBaseFreq  = 55.0
	echoDelay     = 500 * time.Millisecond // a quarter note at 120bpm
	echoFeedback  = 0.2
	echoWet       = 0.5
	echoTailLimit = 4 * SampleRate
)

// membraneVoice is a decaying sine with a downward pitch bend from four
// times the note down to the note.
type membraneVoice struct {
	i, n  int
	freq  float64
	phase float64
	gain  float64
}

func newMembraneVoice(freq, gain float64, d time.Duration) *membraneVoice {
	return &membraneVoice{n: int(d.Seconds() * SampleRate), freq: freq, gain: gain}
}

func (k *membraneVoice) Sample() (float64, bool) {
	if k.i >= k.n {
		return 0, true
	}
	t := float64(k.i) / float64(k.n)
	freq := k.freq * (1 + 3*math.Exp(-20*t))
	k.phase += 2 * math.Pi * freq / SampleRate
	env := math.Exp(-5 * t)
	v := math.Sin(k.phase) * env * k.gain
	k.i++
	return v, false
}

// echoVoice feeds src through a feedback delay line. Alternate repeats
// are attenuated to keep the bounce of a stereo ping-pong on one channel.
type echoVoice struct {
	src     Voice
	line    []float64
	pos     int
	srcDone bool
	tail    int
}

func newEchoVoice(src Voice, delay time.Duration) *echoVoice {
	return &echoVoice{src: src, line: make([]float64, int(delay.Seconds()*SampleRate))}
}

func (e *echoVoice) Sample() (float64, bool) {
	var dry float64
	if !e.srcDone {
		var done bool
		dry, done = e.src.Sample()
		e.srcDone = done
	}
	delayed := e.line[e.pos]
	e.line[e.pos] = dry + delayed*echoFeedback
	e.pos = (e.pos + 1) % len(e.line)
	if e.srcDone {
		e.tail++
		if e.tail > echoTailLimit || (e.tail > len(e.line) && e.pos == 0 && e.quiet()) {
			return 0, true
		}
	}
	return dry + delayed*echoWet, false
}

func (e *echoVoice) quiet() bool {
	for _, v := range e.line {
		if math.Abs(v) > 1e-4 {
			return false
		}
	}
	return true
}

// Drum is the percussive ping-pong instrument. Every cell entry is a hit.
type Drum struct {
	sink   Sink
	gain   float64
	closed bool
}

func NewDrum(sink Sink) *Drum { return &Drum{sink: sink, gain: 0.8} }

func (d *Drum) Family() voice.Family { return voice.Percussive }

func (d *Drum) AttackRelease(n pitch.Note, dur time.Duration) error {
	if d.closed {
		return ErrClosed
	}
	freq := drumBaseFreq
	if !n.IsZero() {
		freq = n.Frequency() / 2
	}
	d.sink.Play(newEchoVoice(newMembraneVoice(freq, d.gain, dur), echoDelay))
	return nil
}

func (d *Drum) Close() error {
	d.closed = true
	return nil
}
