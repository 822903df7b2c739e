package audio

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"sync/atomic"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// Opener opens an asset by path. Desktop builds read the filesystem; the
// browser build fetches over HTTP.
type Opener func(path string) (io.ReadCloser, error)

func OpenFile(path string) (io.ReadCloser, error) { return os.Open(path) }

// readAll drains an asset into memory so decoders that need to seek can
// use it.
func readAll(open Opener, path string) (*bytes.Reader, error) {
	if open == nil {
		open = OpenFile
	}
	rc, err := open(path)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	b, err := io.ReadAll(rc)
	if err != nil {
		return nil, err
	}
	return bytes.NewReader(b), nil
}

// decodeWAV returns the file's PCM downmixed to mono and its sample rate.
func decodeWAV(r io.ReadSeeker) ([]float32, int, error) {
	d := wav.NewDecoder(r)
	if !d.IsValidFile() {
		return nil, 0, errors.New("not a PCM wav file")
	}
	buf, err := d.FullPCMBuffer()
	if err != nil {
		return nil, 0, err
	}
	pcm := downmix(buf)
	if len(pcm) == 0 {
		return nil, 0, errors.New("wav has no frames")
	}
	return pcm, buf.Format.SampleRate, nil
}

func downmix(buf *goaudio.IntBuffer) []float32 {
	ch := buf.Format.NumChannels
	if ch < 1 {
		ch = 1
	}
	depth := buf.SourceBitDepth
	if depth <= 0 {
		depth = 16
	}
	scale := float32(int64(1) << (depth - 1))
	out := make([]float32, len(buf.Data)/ch)
	for i := range out {
		var sum int
		for c := 0; c < ch; c++ {
			sum += buf.Data[i*ch+c]
		}
		out[i] = float32(sum) / float32(ch) / scale
	}
	return out
}

// loadWAV decodes a wav asset and converts it to the engine rate.
func loadWAV(open Opener, path string) ([]float32, error) {
	r, err := readAll(open, path)
	if err != nil {
		return nil, fmt.Errorf("load wav %s: %w", path, err)
	}
	pcm, sr, err := decodeWAV(r)
	if err != nil {
		return nil, fmt.Errorf("load wav %s: %w", path, err)
	}
	if sr <= 0 {
		return nil, fmt.Errorf("load wav %s: bad sample rate %d", path, sr)
	}
	return resample(pcm, sr, SampleRate), nil
}

// resample converts pcm from one rate to another by linear interpolation.
func resample(pcm []float32, from, to int) []float32 {
	if from == to || len(pcm) < 2 {
		return pcm
	}
	step := float64(from) / float64(to)
	n := int(float64(len(pcm)-1)/step) + 1
	out := make([]float32, n)
	for i := range out {
		pos := float64(i) * step
		idx := int(pos)
		if idx+1 >= len(pcm) {
			out[i] = pcm[len(pcm)-1]
			continue
		}
		frac := float32(pos - float64(idx))
		out[i] = pcm[idx]*(1-frac) + pcm[idx+1]*frac
	}
	return out
}

// pcmVoice plays a buffer once at a playback rate, with a linear fade
// once stopped.
type pcmVoice struct {
	buf  []float32
	rate float64
	gain float64
	fade int

	pos       float64
	i, stopAt int
	stopped   atomic.Bool
}

func newPCMVoice(buf []float32, rate, gain float64, release float64) *pcmVoice {
	return &pcmVoice{
		buf: buf, rate: rate, gain: gain,
		fade:   int(release * SampleRate),
		stopAt: -1,
	}
}

func (v *pcmVoice) Stop() { v.stopped.Store(true) }

func (v *pcmVoice) Sample() (float64, bool) {
	idx := int(v.pos)
	if idx+1 >= len(v.buf) {
		return 0, true
	}
	if v.stopAt < 0 && v.stopped.Load() {
		v.stopAt = v.i
	}
	env := 1.0
	if v.stopAt >= 0 {
		if v.fade <= 0 || v.i-v.stopAt >= v.fade {
			return 0, true
		}
		env = 1 - float64(v.i-v.stopAt)/float64(v.fade)
	}
	frac := v.pos - float64(idx)
	s := float64(v.buf[idx])*(1-frac) + float64(v.buf[idx+1])*frac
	v.pos += v.rate
	v.i++
	return s * env * v.gain, false
}
