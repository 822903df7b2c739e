package audio

import (
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/ebitengine/oto/v3"

	game_log "github.com/yiyujin/photoscape/internal/log"
)

const (
	SampleRate          = 44100
	bufferSizeBytes10ms = SampleRate / 100 * 2 // 10ms of 16-bit mono audio
)

// Voice generates PCM samples in the range [-1,1].
type Voice interface {
	// Sample returns the next sample and whether the voice has finished.
	Sample() (float64, bool)
}

// Sink accepts voices for playback. Play may be called from any goroutine.
type Sink interface {
	Play(v Voice)
}

// Engine owns the process's single oto context and mixes every voice into
// it. Instruments and the ambient player all share one Engine.
type Engine struct {
	ctx    *oto.Context
	mix    *mixer
	logger *game_log.Logger

	mu     sync.Mutex
	player *oto.Player
	ready  chan struct{}
}

// NewEngine opens the audio device. The player starts once the device
// reports ready; voices scheduled before that are mixed from then on.
func NewEngine(logger *game_log.Logger, volume float64) (*Engine, error) {
	ctx, ready, err := oto.NewContext(&oto.NewContextOptions{
		SampleRate:   SampleRate,
		ChannelCount: 1,
		Format:       oto.FormatSignedInt16LE,
	})
	if err != nil {
		return nil, fmt.Errorf("open audio device: %w", err)
	}
	e := &Engine{ctx: ctx, mix: newMixer(volume), logger: logger, ready: make(chan struct{})}
	go func() {
		<-ready
		p := ctx.NewPlayer(e.mix)
		p.SetBufferSize(bufferSizeBytes10ms)
		p.Play()
		e.mu.Lock()
		e.player = p
		e.mu.Unlock()
		close(e.ready)
		logger.Infof("[AUDIO] device ready at %d Hz", SampleRate)
	}()
	return e, nil
}

// Ready is closed once the device is playing.
func (e *Engine) Ready() <-chan struct{} { return e.ready }

func (e *Engine) Play(v Voice) { e.mix.Schedule(v, 0) }

// Schedule starts v after delay.
func (e *Engine) Schedule(v Voice, delay time.Duration) {
	e.mix.Schedule(v, int(delay.Seconds()*SampleRate))
}

// Resume restarts a context suspended by the platform.
func (e *Engine) Resume() {
	if err := e.ctx.Resume(); err != nil {
		e.logger.Warnf("[AUDIO] resume: %v", err)
	}
}

// Voices reports how many voices are mixing.
func (e *Engine) Voices() int { return e.mix.Len() }

func (e *Engine) SetVolume(v float64) { e.mix.SetGain(v) }

func (e *Engine) Close() error {
	e.mix.Clear()
	e.mu.Lock()
	p := e.player
	e.player = nil
	e.mu.Unlock()
	if p != nil {
		if err := p.Close(); err != nil {
			return err
		}
	}
	return e.ctx.Suspend()
}

// mixer mixes multiple voices into a single PCM stream.
type mixer struct {
	mu     sync.Mutex
	voices []*voiceState
	pos    int
	gain   float64
}

type voiceState struct {
	start int
	v     Voice
}

func newMixer(gain float64) *mixer {
	if gain <= 0 {
		gain = 1
	}
	return &mixer{gain: gain}
}

// Schedule adds a voice to start after delaySamples have elapsed.
func (m *mixer) Schedule(v Voice, delaySamples int) {
	m.mu.Lock()
	m.voices = append(m.voices, &voiceState{start: m.pos + delaySamples, v: v})
	m.mu.Unlock()
}

func (m *mixer) Play(v Voice) { m.Schedule(v, 0) }

func (m *mixer) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.voices)
}

func (m *mixer) Clear() {
	m.mu.Lock()
	m.voices = nil
	m.mu.Unlock()
}

func (m *mixer) SetGain(g float64) {
	m.mu.Lock()
	m.gain = g
	m.mu.Unlock()
}

// Read implements io.Reader for oto.Player.
func (m *mixer) Read(p []byte) (int, error) {
	samples := len(p) / 2
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := 0; i < samples; i++ {
		var sum float64
		for idx := 0; idx < len(m.voices); idx++ {
			vs := m.voices[idx]
			if m.pos < vs.start {
				continue
			}
			val, done := vs.v.Sample()
			sum += val
			if done {
				m.voices = append(m.voices[:idx], m.voices[idx+1:]...)
				idx--
			}
		}
		// soft knee keeps stacked chords from hard clipping
		sum = math.Tanh(sum * m.gain)
		v := int16(sum * 32767)
		p[2*i] = byte(v)
		p[2*i+1] = byte(v >> 8)
		m.pos++
	}
	return samples * 2, nil
}
