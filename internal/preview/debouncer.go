package preview

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// Default debounce timings.
const (
	DefaultQuietWindow = 500 * time.Millisecond
	DefaultMaxDelay    = 5 * time.Second
)

// Debouncer coalesces bursts of change notifications into rebuild signals.
//
// Every Trigger restarts a quiet-window timer; the first Trigger of a burst
// also starts a max-delay timer, so a continuous stream of changes still
// produces a signal. Signals go to a capacity-1 channel with a non-blocking
// send: while one is pending, further signals are dropped.
type Debouncer struct {
	clock    clockwork.Clock
	window   time.Duration
	maxDelay time.Duration
	out      chan string

	mu      sync.Mutex
	gen     uint64
	count   int
	reason  string
	quiet   clockwork.Timer
	max     clockwork.Timer
	stopped bool
}

// NewDebouncer returns a Debouncer. Non-positive durations select the
// defaults; a nil clock uses the real clock.
func NewDebouncer(window, maxDelay time.Duration, clock clockwork.Clock) *Debouncer {
	if window <= 0 {
		window = DefaultQuietWindow
	}
	if maxDelay <= 0 {
		maxDelay = DefaultMaxDelay
	}
	if maxDelay < window {
		maxDelay = window
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Debouncer{clock: clock, window: window, maxDelay: maxDelay, out: make(chan string, 1)}
}

// Signals delivers one value per debounced burst. The value is the reason of
// the last notification in the burst.
func (d *Debouncer) Signals() <-chan string { return d.out }

// Trigger records a change notification.
func (d *Debouncer) Trigger(reason string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return
	}
	d.count++
	d.reason = reason
	gen := d.gen
	if d.quiet == nil {
		d.quiet = d.clock.AfterFunc(d.window, func() { d.fire(gen) })
	} else {
		d.quiet.Reset(d.window)
	}
	if d.max == nil {
		d.max = d.clock.AfterFunc(d.maxDelay, func() { d.fire(gen) })
	}
}

// Kick emits a signal immediately, bypassing the quiet window.
func (d *Debouncer) Kick(reason string) {
	d.mu.Lock()
	stopped := d.stopped
	d.mu.Unlock()
	if !stopped {
		d.send(reason)
	}
}

// Pending reports how many notifications are waiting for the current burst.
func (d *Debouncer) Pending() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.count
}

func (d *Debouncer) fire(gen uint64) {
	d.mu.Lock()
	if d.stopped || gen != d.gen || d.count == 0 {
		d.mu.Unlock()
		return
	}
	reason := d.reason
	d.resetLocked()
	d.mu.Unlock()
	d.send(reason)
}

func (d *Debouncer) send(reason string) {
	select {
	case d.out <- reason:
	default:
	}
}

func (d *Debouncer) resetLocked() {
	d.gen++
	d.count = 0
	d.reason = ""
	if d.quiet != nil {
		d.quiet.Stop()
		d.quiet = nil
	}
	if d.max != nil {
		d.max.Stop()
		d.max = nil
	}
}

// Stop cancels pending timers. Later notifications are ignored.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.resetLocked()
	d.stopped = true
}
