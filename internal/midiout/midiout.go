// Package midiout plays notes on an external synth over MIDI.
package midiout

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	gomidi "gitlab.com/gomidi/midi/v2"

	"github.com/yiyujin/photoscape/core/pitch"
	"github.com/yiyujin/photoscape/core/scene"
	"github.com/yiyujin/photoscape/core/voice"
	game_log "github.com/yiyujin/photoscape/internal/log"
)

const (
	DefaultVelocity = 100
	drumChannel     = 9
	drumKey         = 36 // GM bass drum
)

var ErrNoPort = errors.New("midi port not found")

// Sender writes one message to a port.
type Sender func(gomidi.Message) error

// Ports lists the output port names a driver reports.
func Ports() []string {
	var names []string
	for _, p := range gomidi.GetOutPorts() {
		names = append(names, p.String())
	}
	return names
}

// Open returns a sender for the first output port whose name contains
// name, case-insensitively.
func Open(name string) (Sender, string, error) {
	want := strings.ToLower(strings.TrimSpace(name))
	for _, p := range gomidi.GetOutPorts() {
		if !strings.Contains(strings.ToLower(p.String()), want) {
			continue
		}
		send, err := gomidi.SendTo(p)
		if err != nil {
			return nil, "", fmt.Errorf("open midi port %s: %w", p.String(), err)
		}
		return send, p.String(), nil
	}
	return nil, "", fmt.Errorf("%w: %q", ErrNoPort, name)
}

// Instrument maps notes to NoteOn/NoteOff on one channel. It is safe for
// concurrent use; one-shot note-offs fire from timer goroutines.
type Instrument struct {
	send     Sender
	channel  uint8
	family   voice.Family
	velocity uint8
	logger   *game_log.Logger

	mu     sync.Mutex
	on     map[uint8]int
	timers map[*time.Timer]uint8
	closed bool
}

func New(send Sender, channel uint8, family voice.Family, logger *game_log.Logger) *Instrument {
	return &Instrument{
		send: send, channel: channel, family: family, velocity: DefaultVelocity, logger: logger,
		on:     map[uint8]int{},
		timers: map[*time.Timer]uint8{},
	}
}

// Factory returns an instrument per scene kind: drums go to the GM
// percussion channel, everything else to channel.
func Factory(send Sender, channel uint8, logger *game_log.Logger) func(scene.Kind) (voice.Instrument, error) {
	return func(k scene.Kind) (voice.Instrument, error) {
		if k.Normalize() == scene.PingPongDrum {
			return New(send, drumChannel, voice.Percussive, logger), nil
		}
		return New(send, channel, voice.Melodic, logger), nil
	}
}

func (in *Instrument) Family() voice.Family { return in.family }

func (in *Instrument) key(n pitch.Note) (uint8, error) {
	if n.IsZero() {
		if in.family == voice.Percussive {
			return drumKey, nil
		}
		return 0, errors.New("no note")
	}
	k := n.MIDI()
	if k < 0 || k > 127 {
		return 0, fmt.Errorf("note %s out of midi range", n)
	}
	return uint8(k), nil
}

func (in *Instrument) Attack(n pitch.Note) error {
	k, err := in.key(n)
	if err != nil {
		return err
	}
	in.mu.Lock()
	defer in.mu.Unlock()
	return in.noteOn(k)
}

func (in *Instrument) Release(n pitch.Note) error {
	k, err := in.key(n)
	if err != nil {
		return err
	}
	in.mu.Lock()
	defer in.mu.Unlock()
	return in.noteOff(k)
}

func (in *Instrument) AttackRelease(n pitch.Note, d time.Duration) error {
	k, err := in.key(n)
	if err != nil {
		return err
	}
	in.mu.Lock()
	defer in.mu.Unlock()
	if err := in.noteOn(k); err != nil {
		return err
	}
	var t *time.Timer
	t = time.AfterFunc(d, func() {
		in.mu.Lock()
		defer in.mu.Unlock()
		if _, ok := in.timers[t]; !ok {
			return
		}
		delete(in.timers, t)
		if err := in.noteOff(k); err != nil {
			in.logger.Warnf("[MIDI] note off %d: %v", k, err)
		}
	})
	in.timers[t] = k
	return nil
}

// noteOn and noteOff refcount keys so overlapping one-shots on the same
// key end with the last one. in.mu must be held.
func (in *Instrument) noteOn(k uint8) error {
	if in.closed {
		return errors.New("midi instrument closed")
	}
	if err := in.send(gomidi.NoteOn(in.channel, k, in.velocity)); err != nil {
		return err
	}
	in.on[k]++
	return nil
}

func (in *Instrument) noteOff(k uint8) error {
	if in.on[k] == 0 {
		return nil
	}
	in.on[k]--
	if in.on[k] > 0 {
		return nil
	}
	delete(in.on, k)
	return in.send(gomidi.NoteOff(in.channel, k))
}

// Sounding lists keys with an outstanding NoteOn.
func (in *Instrument) Sounding() int {
	in.mu.Lock()
	defer in.mu.Unlock()
	return len(in.on)
}

// Close cancels pending note-offs and silences every key.
func (in *Instrument) Close() error {
	in.mu.Lock()
	defer in.mu.Unlock()
	if in.closed {
		return nil
	}
	for t := range in.timers {
		t.Stop()
		delete(in.timers, t)
	}
	var errs []error
	for k := range in.on {
		if err := in.send(gomidi.NoteOff(in.channel, k)); err != nil {
			errs = append(errs, err)
		}
		delete(in.on, k)
	}
	in.closed = true
	return errors.Join(errs...)
}
