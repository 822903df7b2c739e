package audio

import (
	"encoding/binary"
	"errors"
	"io"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/yiyujin/photoscape/core/pitch"
	"github.com/yiyujin/photoscape/core/voice"
)

func writeTestWAV(path string, sampleRate int, d time.Duration) error {
	samples := int(float64(sampleRate) * d.Seconds())
	data := make([]int16, samples)
	for i := range data {
		data[i] = int16(math.Sin(2*math.Pi*440*float64(i)/float64(sampleRate)) * 30000)
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	dataSize := uint32(len(data) * 2)
	if _, err := f.Write([]byte("RIFF")); err != nil {
		return err
	}
	if err := binary.Write(f, binary.LittleEndian, 36+dataSize); err != nil {
		return err
	}
	if _, err := f.Write([]byte("WAVEfmt ")); err != nil {
		return err
	}
	if err := binary.Write(f, binary.LittleEndian, uint32(16)); err != nil {
		return err
	}
	if err := binary.Write(f, binary.LittleEndian, uint16(1)); err != nil { // PCM
		return err
	}
	if err := binary.Write(f, binary.LittleEndian, uint16(1)); err != nil { // mono
		return err
	}
	if err := binary.Write(f, binary.LittleEndian, uint32(sampleRate)); err != nil {
		return err
	}
	if err := binary.Write(f, binary.LittleEndian, uint32(sampleRate*2)); err != nil {
		return err
	}
	if err := binary.Write(f, binary.LittleEndian, uint16(2)); err != nil { // block align
		return err
	}
	if err := binary.Write(f, binary.LittleEndian, uint16(16)); err != nil { // bits per sample
		return err
	}
	if _, err := f.Write([]byte("data")); err != nil {
		return err
	}
	if err := binary.Write(f, binary.LittleEndian, dataSize); err != nil {
		return err
	}
	for _, v := range data {
		if err := binary.Write(f, binary.LittleEndian, v); err != nil {
			return err
		}
	}
	return nil
}

func TestLoadWAVDecodesMono(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.wav")
	if err := writeTestWAV(path, SampleRate, 10*time.Millisecond); err != nil {
		t.Fatalf("writeTestWAV: %v", err)
	}
	pcm, err := loadWAV(nil, path)
	if err != nil {
		t.Fatalf("loadWAV: %v", err)
	}
	if len(pcm) != SampleRate/100 {
		t.Fatalf("frames = %d, want %d", len(pcm), SampleRate/100)
	}
	var peak float32
	for _, v := range pcm {
		if v > peak {
			peak = v
		}
	}
	if peak < 0.8 || peak > 1 {
		t.Fatalf("peak = %v, want ~0.9", peak)
	}
}

func TestLoadWAVConvertsSampleRate(t *testing.T) {
	for _, rate := range []int{22050, 48000} {
		path := filepath.Join(t.TempDir(), "test.wav")
		if err := writeTestWAV(path, rate, 100*time.Millisecond); err != nil {
			t.Fatalf("writeTestWAV: %v", err)
		}
		pcm, err := loadWAV(nil, path)
		if err != nil {
			t.Fatalf("loadWAV(%d): %v", rate, err)
		}
		if want := SampleRate / 10; len(pcm) < want-3 || len(pcm) > want+3 {
			t.Fatalf("rate %d: frames = %d, want ~%d", rate, len(pcm), want)
		}
	}
}

func TestResampleInterpolates(t *testing.T) {
	got := resample([]float32{0, 1, 0}, 24000, 48000)
	want := []float32{0, 0.5, 1, 0.5, 0}
	if len(got) != len(want) {
		t.Fatalf("resample = %v, want %v", got, want)
	}
	for i := range want {
		if math.Abs(float64(got[i]-want[i])) > 1e-6 {
			t.Fatalf("resample = %v, want %v", got, want)
		}
	}
	in := []float32{0.1, 0.2}
	if out := resample(in, SampleRate, SampleRate); &out[0] != &in[0] {
		t.Fatalf("same-rate resample should return its input")
	}
}

func TestStereoToMono(t *testing.T) {
	// One frame: left 16384, right -16384; one frame: both 16384.
	raw := []byte{0x00, 0x40, 0x00, 0xC0, 0x00, 0x40, 0x00, 0x40}
	out := stereo16ToMono(raw)
	if len(out) != 2 || out[0] != 0 || out[1] != 0.5 {
		t.Fatalf("mono = %v", out)
	}
}

func TestLoadWAVMissingFile(t *testing.T) {
	if _, err := loadWAV(nil, filepath.Join(t.TempDir(), "none.wav")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}

func writePianoSamples(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	for _, name := range PianoSamples {
		if err := writeTestWAV(filepath.Join(dir, name+".wav"), SampleRate, 100*time.Millisecond); err != nil {
			t.Fatalf("writeTestWAV: %v", err)
		}
	}
	return dir
}

func waitLoaded(t *testing.T, l voice.Loader) {
	t.Helper()
	done := make(chan struct{})
	l.OnLoaded(func() { close(done) })
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatalf("sampler never loaded")
	}
}

func TestSamplerRepitchesNearestSample(t *testing.T) {
	sink := &recordSink{}
	s := NewSampler(sink, nil, writePianoSamples(t), PianoSamples, testLogger)
	waitLoaded(t, s)

	if err := s.Attack(pitch.Note{Class: "A", Octave: 4}); err != nil {
		t.Fatalf("Attack: %v", err)
	}
	if err := s.Attack(pitch.Note{Class: "Bb", Octave: 4}); err != nil {
		t.Fatalf("Attack: %v", err)
	}
	if len(sink.voices) != 2 {
		t.Fatalf("voices = %d, want 2", len(sink.voices))
	}
	a := sink.voices[0].(*pcmVoice)
	bb := sink.voices[1].(*pcmVoice)
	if a.rate != 1 {
		t.Fatalf("A4 rate = %v, want 1", a.rate)
	}
	if want := math.Pow(2, 1.0/12); math.Abs(bb.rate-want) > 1e-9 {
		t.Fatalf("Bb4 rate = %v, want %v", bb.rate, want)
	}

	if err := s.Release(pitch.Note{Class: "A", Octave: 4}); err != nil {
		t.Fatalf("Release: %v", err)
	}
	n := 0
	for {
		if _, done := a.Sample(); done {
			break
		}
		n++
		if n > 2*SampleRate {
			t.Fatalf("released voice never finished")
		}
	}
}

func TestSamplerNotReadyUntilLoaded(t *testing.T) {
	dir := writePianoSamples(t)
	gate := make(chan struct{})
	open := func(path string) (io.ReadCloser, error) {
		<-gate
		return os.Open(path)
	}
	s := NewSampler(&recordSink{}, open, dir, PianoSamples, testLogger)
	if err := s.Attack(pitch.Note{Class: "C", Octave: 4}); !errors.Is(err, voice.ErrInstrumentNotReady) {
		t.Fatalf("Attack before load = %v, want ErrInstrumentNotReady", err)
	}
	if s.Loaded() {
		t.Fatalf("loaded too early")
	}
	close(gate)
	waitLoaded(t, s)
	if err := s.Attack(pitch.Note{Class: "C", Octave: 4}); err != nil {
		t.Fatalf("Attack after load: %v", err)
	}
}

func TestSamplerFallsBackToSynth(t *testing.T) {
	sink := &recordSink{}
	s := NewSampler(sink, nil, t.TempDir(), PianoSamples, testLogger)
	waitLoaded(t, s)
	if err := s.Attack(pitch.Note{Class: "C", Octave: 4}); err != nil {
		t.Fatalf("Attack: %v", err)
	}
	if len(sink.voices) != 1 {
		t.Fatalf("voices = %d", len(sink.voices))
	}
	if _, ok := sink.voices[0].(*envVoice); !ok {
		t.Fatalf("fallback voice = %T, want *envVoice", sink.voices[0])
	}
	s.Close()
	if err := s.Attack(pitch.Note{Class: "C", Octave: 4}); !errors.Is(err, ErrClosed) {
		t.Fatalf("Attack after Close = %v", err)
	}
}

func TestSampleNoteName(t *testing.T) {
	cases := map[string]string{"C4": "C4", "Ds4": "D#4", "Fs4": "F#4", "A4": "A4"}
	for in, want := range cases {
		if got := sampleNoteName(in); got != want {
			t.Fatalf("sampleNoteName(%q) = %q, want %q", in, got, want)
		}
	}
}
