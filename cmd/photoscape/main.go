// Command photoscape turns a photograph into a playable surface: dragging
// across it plays the notes its colors map to and ripples the image.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/hajimehoshi/ebiten/v2"

	"github.com/yiyujin/photoscape/core/engine"
	"github.com/yiyujin/photoscape/core/ripple"
	"github.com/yiyujin/photoscape/core/scene"
	"github.com/yiyujin/photoscape/internal/config"
	game_log "github.com/yiyujin/photoscape/internal/log"
	"github.com/yiyujin/photoscape/internal/ui"
)

func main() {
	configPath := flag.String("config", "", "config file (default ~/.config/photoscape/config.json)")
	logLevel := flag.String("log", "", "log level: debug, info, warn, error, none")
	midiPort := flag.String("midi", "", "play through this MIDI output port instead of the built-in synths")
	first := flag.Int("scene", 0, "index of the first scene")
	writeConfig := flag.Bool("write-config", false, "write the effective config to the config path and exit")
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "photoscape: %v\n", err)
		os.Exit(1)
	}
	if *logLevel != "" {
		cfg.LogLevel = *logLevel
	}
	if *midiPort != "" {
		cfg.Audio.MIDIPort = *midiPort
	}
	logger := game_log.New(os.Stderr, game_log.LevelFromString(cfg.LogLevel))

	if *writeConfig {
		if err := saveConfig(cfg, *configPath); err != nil {
			logger.Errorf("[MAIN] %v", err)
			os.Exit(1)
		}
		return
	}

	if err := run(cfg, *first, logger); err != nil {
		logger.Errorf("[MAIN] %v", err)
		os.Exit(1)
	}
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.Load()
	}
	return config.LoadFile(path)
}

func saveConfig(cfg *config.Config, path string) error {
	if path == "" {
		return cfg.Save()
	}
	return cfg.SaveFile(path)
}

func run(cfg *config.Config, first int, logger *game_log.Logger) error {
	shape, err := ripple.ParseShape(cfg.Ripple.Shape)
	if err != nil {
		return err
	}
	params := ripple.DefaultParams()
	params.Shape = shape
	params.MaxDuration = float32(cfg.Ripple.Duration().Seconds())
	comp := ripple.NewCompositor(ripple.NewPool(cfg.Ripple.Capacity, cfg.Ripple.Duration()), params, logger)
	defer comp.Close()
	if err := comp.Init(); err != nil {
		logger.Errorf("[MAIN] %v; drawing without ripples", err)
	}

	snd, err := openSound(cfg, logger)
	if err != nil {
		return err
	}
	defer snd.Close()

	eng := engine.New(logger, comp, snd.Factory, snd.Ambient, engine.Options{
		Width:            cfg.Window.Width,
		Height:           cfg.Window.Height,
		Density:          cfg.GridDensity,
		AssetDir:         cfg.AssetDir,
		AmbientThreshold: cfg.AmbientThreshold,
		Open:             openAsset,
	})
	defer eng.Close()

	nav, err := scene.NewNavigator(cfg.Scenes)
	if err != nil {
		return err
	}
	nav.Subscribe(func(s scene.Scene) {
		if err := eng.OnSettingChanged(s); err != nil {
			logger.Warnf("[MAIN] scene %s: %v", s.Name, err)
		}
	})
	if _, err := nav.Select(first); err != nil {
		return err
	}

	g := ui.New(logger, eng, comp, nav, ui.Options{
		OpenImage: ui.ImagePicker(),
		OnGesture: snd.Resume,
	})
	defer g.Close()
	g.SetCanvasSize(cfg.Window.Width, cfg.Window.Height)

	ebiten.SetWindowTitle(cfg.Window.Title)
	ebiten.SetWindowSize(cfg.Window.Width+2*ui.Margin, cfg.Window.Height+2*ui.Margin)
	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)
	logger.Infof("[MAIN] %d scenes, starting at %q", nav.Len(), nav.Current().Name)
	return g.Run()
}
