package audio

import (
	"math"
	"path/filepath"
	"sync"
	"time"

	"github.com/yiyujin/photoscape/core/pitch"
	"github.com/yiyujin/photoscape/core/voice"
	game_log "github.com/yiyujin/photoscape/internal/log"
)

// PianoSamples are the anchor notes the sampler repitches from.
var PianoSamples = []string{"C4", "Ds4", "Fs4", "A4"}

type zone struct {
	midi int
	pcm  []float32
}

// Sampler plays recorded notes, repitching the nearest anchor sample.
// Samples load in the background; until they do, Attack reports
// voice.ErrInstrumentNotReady.
type Sampler struct {
	sink    Sink
	logger  *game_log.Logger
	release float64
	morph   *Synth

	mu       sync.Mutex
	zones    []zone
	loaded   bool
	fallback *Synth
	waiters  []func()
	active   map[pitch.Note]*pcmVoice
	closed   bool
}

// NewSampler starts loading <dir>/<name>.wav for every name in names.
func NewSampler(sink Sink, open Opener, dir string, names []string, logger *game_log.Logger) *Sampler {
	s := &Sampler{
		sink: sink, logger: logger, release: 1,
		morph:  NewSynth(sink, Triangle),
		active: map[pitch.Note]*pcmVoice{},
	}
	go s.load(open, dir, names)
	return s
}

func (s *Sampler) load(open Opener, dir string, names []string) {
	var zones []zone
	for _, name := range names {
		n, err := pitch.ParseNote(sampleNoteName(name))
		if err != nil {
			s.logger.Warnf("[AUDIO] sample %s: %v", name, err)
			continue
		}
		pcm, err := loadWAV(open, filepath.Join(dir, name+".wav"))
		if err != nil {
			s.logger.Warnf("[AUDIO] %v", err)
			continue
		}
		zones = append(zones, zone{midi: n.MIDI(), pcm: pcm})
	}
	s.mu.Lock()
	s.zones = zones
	if len(zones) == 0 {
		s.logger.Errorf("[AUDIO] no piano samples in %s, using synth", dir)
		s.fallback = NewPiano(s.sink)
	}
	s.loaded = true
	waiters := s.waiters
	s.waiters = nil
	s.mu.Unlock()
	s.logger.Infof("[AUDIO] sampler loaded %d/%d samples", len(zones), len(names))
	for _, fn := range waiters {
		fn()
	}
}

// sampleNoteName turns file-safe names like "Ds4" into "D#4".
func sampleNoteName(name string) string {
	if len(name) >= 2 && name[1] == 's' {
		return name[:1] + "#" + name[2:]
	}
	return name
}

func (s *Sampler) Family() voice.Family { return voice.Melodic }

func (s *Sampler) Loaded() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loaded
}

func (s *Sampler) OnLoaded(fn func()) {
	s.mu.Lock()
	if !s.loaded {
		s.waiters = append(s.waiters, fn)
		s.mu.Unlock()
		return
	}
	s.mu.Unlock()
	fn()
}

// voiceFor picks the nearest zone and the rate that shifts it onto n.
func (s *Sampler) voiceFor(n pitch.Note) (*pcmVoice, *Synth, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch {
	case s.closed:
		return nil, nil, ErrClosed
	case !s.loaded:
		return nil, nil, voice.ErrInstrumentNotReady
	case s.fallback != nil:
		return nil, s.fallback, nil
	}
	target := n.MIDI()
	best := s.zones[0]
	for _, z := range s.zones[1:] {
		if abs(z.midi-target) < abs(best.midi-target) {
			best = z
		}
	}
	rate := math.Pow(2, float64(target-best.midi)/12)
	return newPCMVoice(best.pcm, rate, 0.8, s.release), nil, nil
}

func (s *Sampler) Attack(n pitch.Note) error {
	v, fb, err := s.voiceFor(n)
	if err != nil {
		return err
	}
	if fb != nil {
		return fb.Attack(n)
	}
	if old, ok := s.active[n]; ok {
		old.Stop()
	}
	s.active[n] = v
	s.sink.Play(v)
	return nil
}

func (s *Sampler) Release(n pitch.Note) error {
	s.mu.Lock()
	fb := s.fallback
	s.mu.Unlock()
	if fb != nil {
		return fb.Release(n)
	}
	if v, ok := s.active[n]; ok {
		v.Stop()
		delete(s.active, n)
	}
	return nil
}

func (s *Sampler) AttackRelease(n pitch.Note, d time.Duration) error {
	v, fb, err := s.voiceFor(n)
	if err != nil {
		return err
	}
	if fb != nil {
		return fb.AttackRelease(n, d)
	}
	s.sink.Play(&timedStop{v: v, limit: int(d.Seconds() * SampleRate)})
	return nil
}

func (s *Sampler) Morph(n pitch.Note, d time.Duration) (voice.Stopper, error) {
	return s.morph.Morph(n, d)
}

func (s *Sampler) Close() error {
	s.mu.Lock()
	s.closed = true
	fb := s.fallback
	s.mu.Unlock()
	for n, v := range s.active {
		v.Stop()
		delete(s.active, n)
	}
	if fb != nil {
		fb.Close()
	}
	return s.morph.Close()
}

// timedStop stops a sample voice after limit samples.
type timedStop struct {
	v     *pcmVoice
	limit int
	i     int
}

func (t *timedStop) Sample() (float64, bool) {
	if t.i == t.limit {
		t.v.Stop()
	}
	t.i++
	return t.v.Sample()
}

// NewPiano is the synthesized stand-in for the sampler: a triangle with a
// fast decay to a low sustain and a long tail.
func NewPiano(sink Sink) *Synth {
	s := NewSynth(sink, Triangle)
	s.env = Envelope{Attack: 0.002, Decay: 0.6, Sustain: 0.25, Release: 1}
	s.gain = 0.45
	return s
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
