package ws

import (
	"sync"
	"testing"
	"time"

	"github.com/focusritual/collab/wire"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type timerRecorder struct {
	mu     sync.Mutex
	states []wire.TimerState
}

func (r *timerRecorder) record(state wire.TimerState) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.states = append(r.states, state)
}

func (r *timerRecorder) all() []wire.TimerState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]wire.TimerState(nil), r.states...)
}

func TestTimerInitialState(t *testing.T) {
	timer := newRoomTimer(DefaultTimerDurations(), nil)

	state := timer.State()
	assert.Equal(t, wire.TimerWork, state.Mode)
	assert.Equal(t, 25*60, state.Remaining)
	assert.False(t, state.Running)
}

func TestTimerStartPauseReset(t *testing.T) {
	rec := &timerRecorder{}
	timer := newRoomTimer(TimerDurations{Work: time.Hour, Break: time.Minute}, rec.record)

	timer.Start()
	timer.Start() // second start is a no-op

	state := timer.State()
	assert.True(t, state.Running)
	assert.LessOrEqual(t, state.Remaining, 3600)

	timer.Pause()
	paused := timer.State()
	assert.False(t, paused.Running)

	// Remaining does not drift while paused.
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, paused.Remaining, timer.State().Remaining)

	timer.Reset()
	state = timer.State()
	assert.Equal(t, wire.TimerWork, state.Mode)
	assert.Equal(t, 3600, state.Remaining)
	assert.False(t, state.Running)

	// One notification per effective transition: start, pause, reset.
	assert.Len(t, rec.all(), 3)
}

func TestTimerFlipsToBreakAndKeepsRunning(t *testing.T) {
	rec := &timerRecorder{}
	timer := newRoomTimer(TimerDurations{Work: 30 * time.Millisecond, Break: time.Hour}, rec.record)
	defer timer.Stop()

	timer.Start()

	require.Eventually(t, func() bool {
		return timer.State().Mode == wire.TimerBreak
	}, time.Second, 5*time.Millisecond)

	state := timer.State()
	assert.True(t, state.Running)
	assert.Greater(t, state.Remaining, 0)
}

func TestTimerStopHaltsFlips(t *testing.T) {
	timer := newRoomTimer(TimerDurations{Work: 20 * time.Millisecond, Break: 20 * time.Millisecond}, nil)

	timer.Start()
	timer.Stop()

	time.Sleep(50 * time.Millisecond)
	assert.False(t, timer.State().Running)
}
