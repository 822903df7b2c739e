package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/mitchellh/go-homedir"
)

func TestDefaultsValid(t *testing.T) {
	c := DefaultConfig()
	if err := c.Validate(); err != nil {
		t.Fatalf("defaults invalid: %v", err)
	}
	if c.Window.Width != 960 || c.Window.Height != 640 || c.GridDensity != 20 {
		t.Fatalf("unexpected defaults %+v", c)
	}
	if len(c.Scenes) != 4 {
		t.Fatalf("default scenes = %d", len(c.Scenes))
	}
}

func TestLoadMissingFileGivesDefaults(t *testing.T) {
	c, err := LoadFile(filepath.Join(t.TempDir(), "nope.json"))
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if c.GridDensity != 20 || c.Ripple.Capacity != 64 {
		t.Fatalf("defaults not applied: %+v", c)
	}
}

func TestLoadOverlaysDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	data := `{"gridDensity": 40, "ripple": {"shape": "diamond", "durationMs": 800, "capacity": 50},
	          "audio": {"sampleDir": "~/samples"}}`
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}
	c, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if c.GridDensity != 40 || c.Ripple.Shape != "diamond" || c.Ripple.Duration().Milliseconds() != 800 {
		t.Fatalf("overrides not applied: %+v", c)
	}
	if c.Window.Width != 960 || len(c.Scenes) != 4 {
		t.Fatalf("defaults lost: %+v", c)
	}
	home, err := homedir.Dir()
	if err != nil {
		t.Skipf("no home dir: %v", err)
	}
	if c.Audio.SampleDir != filepath.Join(home, "samples") {
		t.Fatalf("sampleDir = %q, want expanded", c.Audio.SampleDir)
	}
}

func TestLoadRejectsBadConfig(t *testing.T) {
	dir := t.TempDir()
	cases := map[string]string{
		"syntax":  `{"gridDensity": `,
		"density": `{"gridDensity": -1}`,
		"shape":   `{"ripple": {"shape": "star"}}`,
		"level":   `{"logLevel": "chatty"}`,
		"scenes":  `{"scenes": []}`,
		"mapping": `{"scenes": [{"name": "x", "img": "x.png", "colorToMap": {"red": {"note": "Q"}}}]}`,
	}
	for name, body := range cases {
		path := filepath.Join(dir, name+".json")
		if err := os.WriteFile(path, []byte(body), 0644); err != nil {
			t.Fatalf("write: %v", err)
		}
		if _, err := LoadFile(path); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "config.json")
	c := DefaultConfig()
	c.Audio.MIDIPort = "IAC Driver Bus 1"
	c.AssetDir = "/srv/assets"
	if err := c.SaveFile(path); err != nil {
		t.Fatalf("SaveFile: %v", err)
	}
	got, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if got.Audio.MIDIPort != c.Audio.MIDIPort || got.Scenes[3].Instrument != c.Scenes[3].Instrument {
		t.Fatalf("round trip lost data: %+v", got)
	}
}
