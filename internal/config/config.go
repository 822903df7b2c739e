package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/mitchellh/go-homedir"

	"github.com/yiyujin/photoscape/core/grid"
	"github.com/yiyujin/photoscape/core/ripple"
	"github.com/yiyujin/photoscape/core/scene"
	game_log "github.com/yiyujin/photoscape/internal/log"
)

const appName = "photoscape"

type WindowConfig struct {
	Width  int    `json:"width"`
	Height int    `json:"height"`
	Title  string `json:"title,omitempty"`
}

type AudioConfig struct {
	// SampleDir holds C4.wav, Ds4.wav, Fs4.wav and A4.wav for the piano.
	SampleDir string  `json:"sampleDir,omitempty"`
	MIDIPort  string  `json:"midiPort,omitempty"`
	Volume    float64 `json:"volume"`
	Ambient   float64 `json:"ambientVolume"`
}

type RippleConfig struct {
	Shape      string `json:"shape"`
	DurationMS int    `json:"durationMs"`
	Capacity   int    `json:"capacity"`
}

func (r RippleConfig) Duration() time.Duration {
	return time.Duration(r.DurationMS) * time.Millisecond
}

type Config struct {
	Window           WindowConfig  `json:"window"`
	GridDensity      int           `json:"gridDensity"`
	LogLevel         string        `json:"logLevel"`
	AssetDir         string        `json:"assetDir"`
	AmbientThreshold int           `json:"ambientThreshold"`
	Audio            AudioConfig   `json:"audio"`
	Ripple           RippleConfig  `json:"ripple"`
	Scenes           []scene.Scene `json:"scenes"`
}

func DefaultConfig() *Config {
	return &Config{
		Window: WindowConfig{
			Width:  grid.DefaultWidth,
			Height: grid.DefaultHeight,
			Title:  "photoscape",
		},
		GridDensity:      grid.DefaultDensity,
		LogLevel:         "info",
		AssetDir:         "assets",
		AmbientThreshold: 3,
		Audio: AudioConfig{
			Volume:  0.4,
			Ambient: 0.5,
		},
		Ripple: RippleConfig{
			Shape:      ripple.Circle.String(),
			DurationMS: int(ripple.DefaultDuration / time.Millisecond),
			Capacity:   ripple.MaxRipples,
		},
		Scenes: scene.Defaults(),
	}
}

// ConfigDir returns ~/.config/photoscape.
func ConfigDir() (string, error) {
	home, err := homedir.Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", appName), nil
}

func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// Load reads the default config file, or returns defaults if there is none.
func Load() (*Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return DefaultConfig(), nil
	}
	return LoadFile(path)
}

// LoadFile reads path over the defaults. A missing file yields defaults;
// fields absent from the file keep their default values.
func LoadFile(path string) (*Config, error) {
	p, err := homedir.Expand(path)
	if err != nil {
		return nil, fmt.Errorf("expand %s: %w", path, err)
	}
	cfg := DefaultConfig()
	data, err := os.ReadFile(p)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, cfg.expand()
		}
		return nil, err
	}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", p, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", p, err)
	}
	return cfg, cfg.expand()
}

func (c *Config) expand() error {
	for _, s := range []*string{&c.AssetDir, &c.Audio.SampleDir} {
		v, err := homedir.Expand(*s)
		if err != nil {
			return fmt.Errorf("expand %s: %w", *s, err)
		}
		*s = v
	}
	return nil
}

// Validate reports the first unusable setting.
func (c *Config) Validate() error {
	if c.Window.Width <= 0 || c.Window.Height <= 0 {
		return fmt.Errorf("window size %dx%d must be positive", c.Window.Width, c.Window.Height)
	}
	if c.GridDensity <= 0 {
		return fmt.Errorf("gridDensity %d must be positive", c.GridDensity)
	}
	if _, err := game_log.ParseLevel(c.LogLevel); err != nil {
		return err
	}
	if _, err := ripple.ParseShape(c.Ripple.Shape); err != nil {
		return err
	}
	if c.Ripple.Capacity < 0 || c.Ripple.Capacity > ripple.MaxRipples {
		return fmt.Errorf("ripple capacity %d outside [0,%d]", c.Ripple.Capacity, ripple.MaxRipples)
	}
	if len(c.Scenes) == 0 {
		return scene.ErrNoScenes
	}
	for _, s := range c.Scenes {
		if _, err := s.Mapping(); err != nil {
			return err
		}
	}
	return nil
}

// Save writes the config to the default path.
func (c *Config) Save() error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	return c.SaveFile(path)
}

func (c *Config) SaveFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
