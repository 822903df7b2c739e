// Command scenegrid prints the note each grid cell plays, colored like the
// cell, for every configured scene.
package main

import (
	"flag"
	"fmt"
	"image/color"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/lucasb-eyer/go-colorful"

	"github.com/yiyujin/photoscape/core/grid"
	"github.com/yiyujin/photoscape/core/pitch"
	"github.com/yiyujin/photoscape/core/scene"
	"github.com/yiyujin/photoscape/internal/config"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FFD75F"))
	dimStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#808080"))
	errStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF5F5F"))
)

func main() {
	configPath := flag.String("config", "", "config file (default ~/.config/photoscape/config.json)")
	density := flag.Int("density", 0, "cell size in px (default: 4x the config density, to fit a terminal)")
	only := flag.Int("scene", -1, "print only this scene index")
	flag.Parse()

	var cfg *config.Config
	var err error
	if *configPath == "" {
		cfg, err = config.Load()
	} else {
		cfg, err = config.LoadFile(*configPath)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, errStyle.Render(err.Error()))
		os.Exit(1)
	}
	d := *density
	if d <= 0 {
		d = cfg.GridDensity * 4
	}

	failed := false
	for i, s := range cfg.Scenes {
		if *only >= 0 && i != *only {
			continue
		}
		fmt.Println(titleStyle.Render(fmt.Sprintf("[%d] %s", i, s.Name)), dimStyle.Render(fmt.Sprintf("%s  %s", s.Instrument.Normalize(), s.Image)))
		out, err := renderScene(s, cfg.AssetDir, cfg.Window.Width, cfg.Window.Height, d)
		if err != nil {
			fmt.Println(errStyle.Render(err.Error()))
			failed = true
			continue
		}
		fmt.Println(out)
	}
	if failed {
		os.Exit(1)
	}
}

func renderScene(s scene.Scene, assetDir string, w, h, density int) (string, error) {
	m, err := s.Mapping()
	if err != nil {
		return "", err
	}
	path := s.Image
	if !filepath.IsAbs(path) && assetDir != "" {
		path = filepath.Join(assetDir, path)
	}
	snap, err := grid.Load(path, w, h, density)
	if err != nil {
		return "", err
	}
	return render(snap, m), nil
}

// render draws one row of note labels per grid row followed by a note
// histogram.
func render(snap *grid.Snapshot, m pitch.Mapping) string {
	cols, _ := snap.Dims()
	counts := map[string]int{}
	var b strings.Builder
	for i, c := range snap.Cells {
		label := "  · "
		if n, ok := pitch.NoteForCell(c, m); ok {
			label = fmt.Sprintf("%-4s", n)
			counts[n.String()]++
		}
		bg, _ := colorful.MakeColor(color.RGBA{c.R, c.G, c.B, 255})
		fg := "#000000"
		if c.Brightness < 0.5 {
			fg = "#FFFFFF"
		}
		b.WriteString(lipgloss.NewStyle().Background(lipgloss.Color(bg.Hex())).Foreground(lipgloss.Color(fg)).Render(label))
		if (i+1)%cols == 0 {
			b.WriteByte('\n')
		}
	}
	notes := make([]string, 0, len(counts))
	for n := range counts {
		notes = append(notes, n)
	}
	sort.Slice(notes, func(i, j int) bool {
		a, _ := pitch.ParseNote(notes[i])
		b, _ := pitch.ParseNote(notes[j])
		return a.MIDI() < b.MIDI()
	})
	var parts []string
	for _, n := range notes {
		parts = append(parts, fmt.Sprintf("%s×%d", n, counts[n]))
	}
	b.WriteString(dimStyle.Render(strings.Join(parts, " ")))
	return b.String()
}
