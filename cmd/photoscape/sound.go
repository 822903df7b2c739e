package main

import (
	"github.com/yiyujin/photoscape/core/engine"
	"github.com/yiyujin/photoscape/internal/audio"
	"github.com/yiyujin/photoscape/internal/config"
	game_log "github.com/yiyujin/photoscape/internal/log"
)

// sound bundles the instrument factory, the ambient player and whatever
// device handles they need.
type sound struct {
	Factory engine.InstrumentFactory
	Ambient engine.Ambient
	Resume  func()
	closers []func() error
	logger  *game_log.Logger
}

func (s *sound) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil {
			s.logger.Warnf("[MAIN] close: %v", err)
		}
	}
}

func openSound(cfg *config.Config, logger *game_log.Logger) (*sound, error) {
	s := &sound{logger: logger, Resume: func() {}}
	eng, err := audio.NewEngine(logger, cfg.Audio.Volume)
	if err != nil {
		// keep going silently: the installation still draws
		logger.Errorf("[MAIN] %v", err)
		return s, nil
	}
	s.closers = append(s.closers, eng.Close)
	s.Resume = eng.Resume
	s.Ambient = audio.NewAmbient(eng, openAsset, cfg.Audio.Ambient, logger)
	f := &audio.Factory{Sink: eng, Open: openAsset, SampleDir: cfg.Audio.SampleDir, Logger: logger}
	s.Factory = f.New

	if cfg.Audio.MIDIPort != "" {
		factory, closer, err := openMIDI(cfg.Audio.MIDIPort, logger)
		if err != nil {
			logger.Errorf("[MAIN] %v; using built-in synths", err)
			return s, nil
		}
		s.Factory = factory
		s.closers = append(s.closers, closer)
	}
	return s, nil
}
