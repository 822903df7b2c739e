// Package clock is the single-threaded timer queue that drives debounce,
// crossfade release and morph expiry. Every timer callback runs on the
// goroutine that calls Advance; Post is the only goroutine-safe entry point.
package clock

import "time"

const postBuffer = 64

// Timer is a pending callback on a Loop.
type Timer struct {
	loop  *Loop
	id    uint64
	at    time.Duration
	fn    func()
	state timerState
}

type timerState int

const (
	timerArmed timerState = iota
	timerStopped
	timerFired
)

// Stop cancels the timer. It reports whether the call prevented the
// callback from running.
func (t *Timer) Stop() bool {
	if t == nil || t.state != timerArmed {
		return false
	}
	t.state = timerStopped
	t.loop.remove(t)
	return true
}

// Active reports whether the timer is still waiting to fire.
func (t *Timer) Active() bool { return t != nil && t.state == timerArmed }

// Deadline is the loop time at which the timer fires.
func (t *Timer) Deadline() time.Duration { return t.at }

type Loop struct {
	now   time.Duration
	seq   uint64
	q     []*Timer
	posts chan func()
}

func New() *Loop {
	return &Loop{posts: make(chan func(), postBuffer)}
}

// Now returns the loop time of the last Advance, or the deadline of the
// timer currently firing.
func (l *Loop) Now() time.Duration { return l.now }

// AfterFunc schedules fn to run d after the current loop time.
func (l *Loop) AfterFunc(d time.Duration, fn func()) *Timer {
	if d < 0 {
		d = 0
	}
	l.seq++
	t := &Timer{loop: l, id: l.seq, at: l.now + d, fn: fn}
	l.q = append(l.q, t)
	return t
}

// Post queues fn to run at the start of the next Advance. It never blocks
// and reports false when the queue is full.
func (l *Loop) Post(fn func()) bool {
	select {
	case l.posts <- fn:
		return true
	default:
		return false
	}
}

// Pending returns the number of armed timers.
func (l *Loop) Pending() int { return len(l.q) }

// Advance drains posted callbacks and then fires every timer due at or
// before now, in deadline order (ties in scheduling order). Timers armed by
// a callback fire in the same call if they are already due.
func (l *Loop) Advance(now time.Duration) {
	for {
		select {
		case fn := <-l.posts:
			fn()
			continue
		default:
		}
		break
	}
	for {
		t := l.next(now)
		if t == nil {
			break
		}
		l.remove(t)
		t.state = timerFired
		if t.at > l.now {
			l.now = t.at
		}
		t.fn()
	}
	if now > l.now {
		l.now = now
	}
}

// Step advances the loop by d.
func (l *Loop) Step(d time.Duration) { l.Advance(l.now + d) }

func (l *Loop) next(now time.Duration) *Timer {
	var best *Timer
	for _, t := range l.q {
		if t.at > now {
			continue
		}
		if best == nil || t.at < best.at || (t.at == best.at && t.id < best.id) {
			best = t
		}
	}
	return best
}

func (l *Loop) remove(t *Timer) {
	for i, q := range l.q {
		if q == t {
			l.q[i] = l.q[len(l.q)-1]
			l.q[len(l.q)-1] = nil
			l.q = l.q[:len(l.q)-1]
			return
		}
	}
}
