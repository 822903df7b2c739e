// Package voice owns the note holder table and drives instruments.
package voice

import (
	"errors"
	"time"

	"github.com/yiyujin/photoscape/core/clock"
	"github.com/yiyujin/photoscape/core/pitch"
)

type Family int

const (
	Melodic Family = iota
	Percussive
)

func (f Family) String() string {
	if f == Percussive {
		return "percussive"
	}
	return "melodic"
}

// ErrInstrumentNotReady is returned by instruments whose sample data is
// still loading.
var ErrInstrumentNotReady = errors.New("instrument not ready")

// Instrument is an owning handle; Close releases whatever it holds.
type Instrument interface {
	Family() Family
	Close() error
}

// Sustainer instruments hold a note until told to release it.
type Sustainer interface {
	Attack(n pitch.Note) error
	Release(n pitch.Note) error
}

// OneShot instruments play a note for a fixed time.
type OneShot interface {
	AttackRelease(n pitch.Note, d time.Duration) error
}

type Stopper interface {
	Stop()
}

// Morpher instruments can play a short bridging voice on a note switch.
type Morpher interface {
	Morph(n pitch.Note, d time.Duration) (Stopper, error)
}

// Loader instruments load data asynchronously. OnLoaded may call fn from
// any goroutine, once, as soon as loading completes (immediately if it
// already has).
type Loader interface {
	Loaded() bool
	OnLoaded(fn func())
}

// Clock is the scheduler the manager arms its timers on.
type Clock interface {
	AfterFunc(d time.Duration, fn func()) *clock.Timer
	Post(fn func()) bool
}
