package ws

import (
	"sync"
	"time"

	"github.com/focusritual/collab/wire"
)

type TimerDurations struct {
	Work  time.Duration
	Break time.Duration
}

func DefaultTimerDurations() TimerDurations {
	return TimerDurations{Work: 25 * time.Minute, Break: 5 * time.Minute}
}

// roomTimer is the server-authoritative focus timer for one room. Remaining
// time is derived from a deadline rather than ticked, so the server only
// speaks when the state actually changes: start, pause, reset, phase flip.
type roomTimer struct {
	mu        sync.Mutex
	durations TimerDurations

	mode      wire.TimerMode
	remaining time.Duration // meaningful while paused
	running   bool
	deadline  time.Time
	flip      *time.Timer

	// onChange is invoked outside the lock with the new state.
	onChange func(wire.TimerState)
}

func newRoomTimer(durations TimerDurations, onChange func(wire.TimerState)) *roomTimer {
	return &roomTimer{
		durations: durations,
		mode:      wire.TimerWork,
		remaining: durations.Work,
		onChange:  onChange,
	}
}

func (t *roomTimer) State() wire.TimerState {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stateLocked()
}

func (t *roomTimer) stateLocked() wire.TimerState {
	remaining := t.remaining
	if t.running {
		remaining = time.Until(t.deadline)
		if remaining < 0 {
			remaining = 0
		}
	}
	return wire.TimerState{
		Mode:      t.mode,
		Remaining: int(remaining.Round(time.Second) / time.Second),
		Running:   t.running,
	}
}

func (t *roomTimer) Start() {
	t.mu.Lock()
	if t.running {
		t.mu.Unlock()
		return
	}
	t.running = true
	t.deadline = time.Now().Add(t.remaining)
	t.flip = time.AfterFunc(t.remaining, t.phaseDone)
	state := t.stateLocked()
	t.mu.Unlock()

	t.notify(state)
}

func (t *roomTimer) Pause() {
	t.mu.Lock()
	if !t.running {
		t.mu.Unlock()
		return
	}
	t.running = false
	t.remaining = time.Until(t.deadline)
	if t.remaining < 0 {
		t.remaining = 0
	}
	t.flip.Stop()
	state := t.stateLocked()
	t.mu.Unlock()

	t.notify(state)
}

func (t *roomTimer) Reset() {
	t.mu.Lock()
	if t.flip != nil {
		t.flip.Stop()
	}
	t.running = false
	t.mode = wire.TimerWork
	t.remaining = t.durations.Work
	state := t.stateLocked()
	t.mu.Unlock()

	t.notify(state)
}

// phaseDone flips work to break (and back) when the deadline passes. The
// timer keeps running across the flip.
func (t *roomTimer) phaseDone() {
	t.mu.Lock()
	if !t.running {
		t.mu.Unlock()
		return
	}
	if t.mode == wire.TimerWork {
		t.mode = wire.TimerBreak
		t.remaining = t.durations.Break
	} else {
		t.mode = wire.TimerWork
		t.remaining = t.durations.Work
	}
	t.deadline = time.Now().Add(t.remaining)
	t.flip = time.AfterFunc(t.remaining, t.phaseDone)
	state := t.stateLocked()
	t.mu.Unlock()

	t.notify(state)
}

// Stop halts the flip schedule on room teardown.
func (t *roomTimer) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.flip != nil {
		t.flip.Stop()
	}
	t.running = false
}

func (t *roomTimer) notify(state wire.TimerState) {
	if t.onChange != nil {
		t.onChange(state)
	}
}
