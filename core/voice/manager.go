package voice

import (
	"errors"
	"sort"
	"time"

	"github.com/yiyujin/photoscape/core/clock"
	"github.com/yiyujin/photoscape/core/pitch"
	game_log "github.com/yiyujin/photoscape/internal/log"
)

const (
	CrossfadeDelay = 120 * time.Millisecond
	DebounceDelay  = 120 * time.Millisecond
	MorphDuration  = 2 * CrossfadeDelay

	// OneShotDuration is how long a sustained note lasts on an instrument
	// that can only play fixed-length notes.
	OneShotDuration = time.Second
	// HitDuration is the length handed to percussive one-shots.
	HitDuration = 200 * time.Millisecond
)

// Manager is the single source of truth for which notes should sound.
// It is not safe for concurrent use; every call must come from the loop
// goroutine that advances its Clock.
type Manager struct {
	clock  Clock
	gate   *Gate
	logger *game_log.Logger

	inst Instrument
	gen  uint64

	holders  map[pitch.Note]int
	releases map[pitch.Note]*clock.Timer
	sounding map[pitch.Note]bool
	retries  map[pitch.Note]bool
	morphs   map[*clock.Timer]Stopper
}

func NewManager(c Clock, gate *Gate, logger *game_log.Logger) *Manager {
	if gate == nil {
		gate = NewGate()
	}
	return &Manager{
		clock:    c,
		gate:     gate,
		logger:   logger,
		holders:  map[pitch.Note]int{},
		releases: map[pitch.Note]*clock.Timer{},
		sounding: map[pitch.Note]bool{},
		retries:  map[pitch.Note]bool{},
		morphs:   map[*clock.Timer]Stopper{},
	}
}

// Gate returns the readiness gate checked before every attack.
func (m *Manager) Gate() *Gate { return m.gate }

func (m *Manager) Instrument() Instrument { return m.inst }

// Family of the current instrument; Melodic when none is installed.
func (m *Manager) Family() Family {
	if m.inst == nil {
		return Melodic
	}
	return m.inst.Family()
}

// SetInstrument flushes every note, closes the previous instrument and
// installs inst. inst may be nil.
func (m *Manager) SetInstrument(inst Instrument) {
	m.Flush()
	if m.inst != nil {
		if err := m.inst.Close(); err != nil {
			m.logger.Warnf("[VOICE] close instrument: %v", err)
		}
	}
	m.inst = inst
	m.gen++
}

// Close flushes and tears down the current instrument.
func (m *Manager) Close() { m.SetInstrument(nil) }

// Enter registers one more holder of n. Percussive instruments bypass
// holder counting and fire a one-shot.
func (m *Manager) Enter(n pitch.Note) {
	if m.inst == nil {
		return
	}
	if m.inst.Family() == Percussive {
		m.Trigger(n)
		return
	}
	if n.IsZero() {
		return
	}
	m.holders[n]++
	if t, ok := m.releases[n]; ok {
		t.Stop()
		delete(m.releases, n)
		m.logger.Debugf("[VOICE] %s re-entered, release cancelled", n)
	}
	if m.holders[n] == 1 && !m.sounding[n] {
		m.attack(n)
	}
}

// Leave drops one holder of n. At zero holders the note is released
// after CrossfadeDelay, or right away when immediate is set. A leave with
// no holder is ignored.
func (m *Manager) Leave(n pitch.Note, immediate bool) {
	if n.IsZero() {
		return
	}
	c := m.holders[n]
	if c <= 0 {
		m.logger.Debugf("[VOICE] leave %s without holder ignored", n)
		return
	}
	if c > 1 {
		m.holders[n] = c - 1
		return
	}
	delete(m.holders, n)
	if immediate {
		m.release(n)
		return
	}
	m.releases[n] = m.clock.AfterFunc(CrossfadeDelay, func() {
		delete(m.releases, n)
		if m.holders[n] == 0 {
			m.release(n)
		}
	})
}

// Switch moves one holder from prev to next. With morph set a bridging
// voice plays next for MorphDuration.
func (m *Manager) Switch(prev, next pitch.Note, morph bool) {
	if morph {
		m.spawnMorph(next)
	}
	m.Enter(next)
	m.Leave(prev, false)
}

// Trigger fires a fire-and-forget hit. n may be zero for unpitched drums.
func (m *Manager) Trigger(n pitch.Note) {
	if m.inst == nil {
		return
	}
	if !m.gate.Ready() {
		m.logger.Debugf("[VOICE] audio locked, hit dropped")
		return
	}
	shot, ok := m.inst.(OneShot)
	if !ok {
		return
	}
	if err := shot.AttackRelease(n, HitDuration); err != nil {
		m.logger.Debugf("[VOICE] hit %s: %v", n, err)
	}
}

// Flush releases every note immediately and cancels every pending timer.
func (m *Manager) Flush() {
	for n, t := range m.releases {
		t.Stop()
		delete(m.releases, n)
	}
	for t, s := range m.morphs {
		t.Stop()
		s.Stop()
		delete(m.morphs, t)
	}
	for n := range m.holders {
		delete(m.holders, n)
	}
	for n := range m.retries {
		delete(m.retries, n)
	}
	for _, n := range m.soundingNotes() {
		m.release(n)
	}
	m.gen++
}

// Holders returns the refcount of n.
func (m *Manager) Holders(n pitch.Note) int { return m.holders[n] }

// Sounding reports whether n was attacked and not yet released.
func (m *Manager) Sounding(n pitch.Note) bool { return m.sounding[n] }

func (m *Manager) PendingReleases() int { return len(m.releases) }

func (m *Manager) ActiveMorphs() int { return len(m.morphs) }

// HeldNotes returns the notes with at least one holder, lowest first.
func (m *Manager) HeldNotes() []pitch.Note {
	out := make([]pitch.Note, 0, len(m.holders))
	for n := range m.holders {
		out = append(out, n)
	}
	sortNotes(out)
	return out
}

func (m *Manager) soundingNotes() []pitch.Note {
	out := make([]pitch.Note, 0, len(m.sounding))
	for n := range m.sounding {
		out = append(out, n)
	}
	sortNotes(out)
	return out
}

func sortNotes(ns []pitch.Note) {
	sort.Slice(ns, func(i, j int) bool {
		if ns[i].MIDI() != ns[j].MIDI() {
			return ns[i].MIDI() < ns[j].MIDI()
		}
		return ns[i].Class < ns[j].Class
	})
}

func (m *Manager) play(n pitch.Note) error {
	switch inst := m.inst.(type) {
	case Sustainer:
		return inst.Attack(n)
	case OneShot:
		return inst.AttackRelease(n, OneShotDuration)
	}
	return nil
}

func (m *Manager) attack(n pitch.Note) {
	if !m.gate.Ready() {
		m.logger.Debugf("[VOICE] audio locked, %s dropped", n)
		return
	}
	err := m.play(n)
	switch {
	case err == nil:
		m.sounding[n] = true
	case errors.Is(err, ErrInstrumentNotReady):
		m.retryOnLoad(n)
	default:
		m.logger.Errorf("[VOICE] attack %s: %v", n, err)
	}
}

// retryOnLoad arms exactly one deferred attack for n. The retry never
// touches the holder count and is discarded if a flush or instrument swap
// happened in between.
func (m *Manager) retryOnLoad(n pitch.Note) {
	if m.retries[n] {
		return
	}
	loader, ok := m.inst.(Loader)
	if !ok {
		m.logger.Debugf("[VOICE] %s dropped, instrument not ready", n)
		return
	}
	m.retries[n] = true
	gen := m.gen
	m.logger.Debugf("[VOICE] %s deferred until samples load", n)
	loader.OnLoaded(func() {
		posted := m.clock.Post(func() {
			if m.gen != gen {
				return
			}
			delete(m.retries, n)
			if m.holders[n] == 0 || m.sounding[n] {
				return
			}
			if err := m.play(n); err != nil {
				m.logger.Warnf("[VOICE] retry %s: %v", n, err)
				return
			}
			m.sounding[n] = true
		})
		if !posted {
			m.logger.Warnf("[VOICE] loop queue full, retry of %s lost", n)
		}
	})
}

func (m *Manager) release(n pitch.Note) {
	if !m.sounding[n] {
		return
	}
	delete(m.sounding, n)
	if s, ok := m.inst.(Sustainer); ok {
		if err := s.Release(n); err != nil {
			m.logger.Errorf("[VOICE] release %s: %v", n, err)
		}
	}
}

func (m *Manager) spawnMorph(n pitch.Note) {
	if n.IsZero() || !m.gate.Ready() {
		return
	}
	mp, ok := m.inst.(Morpher)
	if !ok {
		return
	}
	s, err := mp.Morph(n, MorphDuration)
	if err != nil {
		m.logger.Debugf("[VOICE] morph %s: %v", n, err)
		return
	}
	var t *clock.Timer
	t = m.clock.AfterFunc(MorphDuration, func() {
		delete(m.morphs, t)
		s.Stop()
	})
	m.morphs[t] = s
}
