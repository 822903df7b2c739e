// Command playtest auditions every scene instrument on the audio device.
package main

import (
	"os"
	"time"

	"github.com/yiyujin/photoscape/core/pitch"
	"github.com/yiyujin/photoscape/core/scene"
	"github.com/yiyujin/photoscape/core/voice"
	"github.com/yiyujin/photoscape/internal/audio"
	game_log "github.com/yiyujin/photoscape/internal/log"
)

func main() {
	logger := game_log.New(os.Stderr, game_log.LevelInfo)
	eng, err := audio.NewEngine(logger, 0.4)
	if err != nil {
		logger.Errorf("[AUDIO] %v", err)
		os.Exit(1)
	}
	defer eng.Close()
	<-eng.Ready()

	f := &audio.Factory{Sink: eng, Logger: logger}
	if len(os.Args) > 1 {
		f.SampleDir = os.Args[1]
	}
	notes := []string{"G3", "A3", "B3", "D4", "E4"}
	for _, k := range []scene.Kind{scene.Piano, scene.Pluck, scene.Sine, scene.PingPongDrum, scene.Metal} {
		inst, err := f.New(k)
		if err != nil {
			logger.Errorf("[AUDIO] %s: %v", k, err)
			continue
		}
		if l, ok := inst.(voice.Loader); ok {
			done := make(chan struct{})
			l.OnLoaded(func() { close(done) })
			<-done
		}
		logger.Infof("[AUDIO] %s", k)
		for _, s := range notes {
			n, _ := pitch.ParseNote(s)
			if o, ok := inst.(voice.OneShot); ok {
				if err := o.AttackRelease(n, 300*time.Millisecond); err != nil {
					logger.Warnf("[AUDIO] %s %s: %v", k, n, err)
				}
			}
			time.Sleep(350 * time.Millisecond)
		}
		time.Sleep(time.Second)
		inst.Close()
	}
}
