//go:build !js

package main

import (
	"io"
	"os"

	gomidi "gitlab.com/gomidi/midi/v2"
	_ "gitlab.com/gomidi/midi/v2/drivers/rtmididrv"

	"github.com/yiyujin/photoscape/core/engine"
	game_log "github.com/yiyujin/photoscape/internal/log"
	"github.com/yiyujin/photoscape/internal/midiout"
)

func openAsset(path string) (io.ReadCloser, error) { return os.Open(path) }

func openMIDI(port string, logger *game_log.Logger) (engine.InstrumentFactory, func() error, error) {
	send, name, err := midiout.Open(port)
	if err != nil {
		logger.Infof("[MAIN] midi ports: %v", midiout.Ports())
		return nil, nil, err
	}
	logger.Infof("[MAIN] midi out on %s", name)
	closer := func() error {
		gomidi.CloseDriver()
		return nil
	}
	return midiout.Factory(send, 0, logger), closer, nil
}
