package audio

import (
	"encoding/binary"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/hajimehoshi/go-mp3"

	game_log "github.com/yiyujin/photoscape/internal/log"
)

// Ambient loops one background track at a time. Tracks are decoded in the
// background; Play on a track that is still decoding starts it as soon as
// decoding finishes, unless Stop or another Play comes first.
type Ambient struct {
	sink   Sink
	open   Opener
	volume float64
	logger *game_log.Logger

	mu      sync.Mutex
	cache   map[string]*track
	current *loopVoice
	want    string
}

type track struct {
	done chan struct{}
	pcm  []float32
	err  error
}

func NewAmbient(sink Sink, open Opener, volume float64, logger *game_log.Logger) *Ambient {
	if open == nil {
		open = OpenFile
	}
	return &Ambient{sink: sink, open: open, volume: volume, logger: logger, cache: map[string]*track{}}
}

// Preload starts decoding path without playing it.
func (a *Ambient) Preload(path string) {
	if path == "" {
		return
	}
	if _, err := formatOf(path); err != nil {
		return
	}
	a.mu.Lock()
	a.track(path)
	a.mu.Unlock()
}

// track returns the cache entry for path, starting a decode if needed.
// a.mu must be held.
func (a *Ambient) track(path string) *track {
	if t, ok := a.cache[path]; ok {
		return t
	}
	t := &track{done: make(chan struct{})}
	a.cache[path] = t
	go func() {
		t.pcm, t.err = a.decode(path)
		close(t.done)
		if t.err != nil {
			a.logger.Warnf("[AUDIO] ambient %s: %v", path, t.err)
		}
	}()
	return t
}

func (a *Ambient) Play(path string) error {
	if _, err := formatOf(path); err != nil {
		return err
	}
	a.mu.Lock()
	a.stopLocked()
	a.want = path
	t := a.track(path)
	a.mu.Unlock()

	go func() {
		<-t.done
		if t.err != nil {
			return
		}
		a.mu.Lock()
		defer a.mu.Unlock()
		if a.want != path || a.current != nil {
			return
		}
		a.current = &loopVoice{buf: t.pcm, gain: a.volume}
		a.sink.Play(a.current)
	}()
	return nil
}

func (a *Ambient) Stop() {
	a.mu.Lock()
	a.stopLocked()
	a.mu.Unlock()
}

func (a *Ambient) stopLocked() {
	a.want = ""
	if a.current != nil {
		a.current.Stop()
		a.current = nil
	}
}

// Playing reports whether a track is in the mixer.
func (a *Ambient) Playing() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.current != nil
}

func formatOf(path string) (string, error) {
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".mp3", ".wav":
		return ext, nil
	}
	return "", fmt.Errorf("unsupported ambient format %q", ext)
}

func (a *Ambient) decode(path string) ([]float32, error) {
	ext, err := formatOf(path)
	if err != nil {
		return nil, err
	}
	if ext == ".wav" {
		return loadWAV(a.open, path)
	}
	rc, err := a.open(path)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return decodeMP3(rc)
}

// decodeMP3 returns the stream downmixed to mono at the engine rate.
func decodeMP3(r io.Reader) ([]float32, error) {
	d, err := mp3.NewDecoder(r)
	if err != nil {
		return nil, fmt.Errorf("decode mp3: %w", err)
	}
	raw, err := io.ReadAll(d)
	if err != nil {
		return nil, fmt.Errorf("decode mp3: %w", err)
	}
	out := stereo16ToMono(raw)
	if len(out) == 0 {
		return nil, fmt.Errorf("decode mp3: no frames")
	}
	return resample(out, d.SampleRate(), SampleRate), nil
}

// stereo16ToMono downmixes 16-bit little-endian stereo, the only layout
// go-mp3 produces.
func stereo16ToMono(raw []byte) []float32 {
	out := make([]float32, len(raw)/4)
	for i := range out {
		l := int16(binary.LittleEndian.Uint16(raw[4*i:]))
		r := int16(binary.LittleEndian.Uint16(raw[4*i+2:]))
		out[i] = (float32(l) + float32(r)) / 2 / 32768
	}
	return out
}

// loopVoice repeats buf until stopped, fading out over 50ms.
type loopVoice struct {
	buf     []float32
	gain    float64
	i       int
	fade    int
	stopped atomic.Bool
}

const loopFade = SampleRate / 20

func (v *loopVoice) Stop() { v.stopped.Store(true) }

func (v *loopVoice) Sample() (float64, bool) {
	env := 1.0
	if v.stopped.Load() {
		if v.fade >= loopFade {
			return 0, true
		}
		env = 1 - float64(v.fade)/loopFade
		v.fade++
	}
	s := float64(v.buf[v.i]) * v.gain * env
	v.i = (v.i + 1) % len(v.buf)
	return s, false
}
