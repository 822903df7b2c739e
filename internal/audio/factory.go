package audio

import (
	"github.com/yiyujin/photoscape/core/scene"
	"github.com/yiyujin/photoscape/core/voice"
	game_log "github.com/yiyujin/photoscape/internal/log"
)

// Factory builds a fresh instrument for each scene.
type Factory struct {
	Sink      Sink
	Open      Opener
	SampleDir string
	Logger    *game_log.Logger
}

func (f *Factory) New(kind scene.Kind) (voice.Instrument, error) {
	switch kind.Normalize() {
	case scene.Piano:
		if f.SampleDir == "" {
			return NewPiano(f.Sink), nil
		}
		return NewSampler(f.Sink, f.Open, f.SampleDir, PianoSamples, f.Logger), nil
	case scene.Pluck, scene.Guitar:
		return NewPluck(f.Sink), nil
	case scene.Sine:
		return NewSynth(f.Sink, Sine), nil
	case scene.PingPongDrum:
		return NewDrum(f.Sink), nil
	default:
		if kind.Normalize() != scene.Metal {
			f.Logger.Warnf("[AUDIO] unknown instrument %q, using synth", kind)
		}
		return NewSynth(f.Sink, Triangle), nil
	}
}
