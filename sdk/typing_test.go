package sdk

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type signalRecorder struct {
	mu      sync.Mutex
	signals []bool
}

func (r *signalRecorder) record(typing bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.signals = append(r.signals, typing)
}

func (r *signalRecorder) all() []bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]bool(nil), r.signals...)
}

func TestTypingBurstSignalsOnce(t *testing.T) {
	rec := &signalRecorder{}
	d := newTypingDebouncer(rec.record)

	for i := 0; i < 20; i++ {
		d.keystroke()
	}

	assert.Equal(t, []bool{true}, rec.all(), "a burst must produce exactly one started signal")
}

func TestTypingStopsAfterIdle(t *testing.T) {
	rec := &signalRecorder{}
	d := newTypingDebouncer(rec.record)

	d.keystroke()
	d.keystroke()

	require.Eventually(t, func() bool {
		signals := rec.all()
		return len(signals) == 2 && !signals[1]
	}, 3*typingIdle, 10*time.Millisecond)
}

func TestTypingStopOnSend(t *testing.T) {
	rec := &signalRecorder{}
	d := newTypingDebouncer(rec.record)

	d.keystroke()
	d.stop()

	assert.Equal(t, []bool{true, false}, rec.all())

	// Idle firing later must not produce a second stop.
	time.Sleep(typingIdle + 100*time.Millisecond)
	assert.Equal(t, []bool{true, false}, rec.all())
}

func TestTypingStopWithoutKeystrokeIsSilent(t *testing.T) {
	rec := &signalRecorder{}
	d := newTypingDebouncer(rec.record)

	d.stop()
	assert.Empty(t, rec.all())
}

func TestTypingNewBurstAfterStop(t *testing.T) {
	rec := &signalRecorder{}
	d := newTypingDebouncer(rec.record)

	d.keystroke()
	d.stop()
	d.keystroke()

	assert.Equal(t, []bool{true, false, true}, rec.all())
	d.stop()
}
