package sdk

import (
	"sync"
	"time"
)

// typingIdle is how long after the last keystroke the typing indicator is
// withdrawn.
const typingIdle = time.Second

// typingDebouncer collapses a burst of keystrokes into exactly one
// "started typing" signal, followed by one "stopped typing" signal when the
// burst ends or a message is sent.
type typingDebouncer struct {
	mu     sync.Mutex
	active bool
	timer  *time.Timer
	signal func(typing bool)
}

func newTypingDebouncer(signal func(bool)) *typingDebouncer {
	return &typingDebouncer{signal: signal}
}

func (d *typingDebouncer) keystroke() {
	d.mu.Lock()

	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(typingIdle, d.idle)

	if d.active {
		d.mu.Unlock()
		return
	}
	d.active = true
	d.mu.Unlock()

	d.signal(true)
}

// stop withdraws the indicator immediately, typically because the message
// was just sent.
func (d *typingDebouncer) stop() {
	d.mu.Lock()
	if !d.active {
		d.mu.Unlock()
		return
	}
	d.active = false
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.mu.Unlock()

	d.signal(false)
}

func (d *typingDebouncer) idle() {
	d.mu.Lock()
	if !d.active {
		d.mu.Unlock()
		return
	}
	d.active = false
	d.timer = nil
	d.mu.Unlock()

	d.signal(false)
}
