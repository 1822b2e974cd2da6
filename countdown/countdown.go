// Package countdown provides the response timer: a cooperative one-second
// ticker counting down from the configured maximum. Reaching zero never stops
// the recording; it only changes the guidance shown to the candidate.
package countdown

import (
	"fmt"
	"sync"
	"time"
)

// lowTimeThreshold marks the remaining time at which the display flags low time.
const lowTimeThreshold = 10 * time.Second

// Snapshot is one tick of the countdown.
type Snapshot struct {
	Remaining time.Duration
	Display   string // mm:ss
	LowTime   bool   // remaining at or below the low-time threshold
	Expired   bool   // reached zero; candidate must still stop explicitly
}

// Timer counts down from a fixed duration, emitting a snapshot per tick.
// Starting cancels any previous run and resets to the full duration; there is
// never more than one ticker loop alive.
type Timer struct {
	duration time.Duration
	interval time.Duration // tick period; tests shorten it, each tick still counts one second
	onTick   func(Snapshot)

	mu   sync.Mutex
	stop chan struct{}
}

// New creates a countdown timer. onTick receives the initial snapshot
// immediately on Start and one snapshot per elapsed interval after that.
func New(duration time.Duration, onTick func(Snapshot)) *Timer {
	return &Timer{
		duration: duration,
		interval: time.Second,
		onTick:   onTick,
	}
}

// Start begins (or restarts) the countdown from the full duration.
func (t *Timer) Start() {
	t.mu.Lock()
	if t.stop != nil {
		close(t.stop)
	}
	stop := make(chan struct{})
	t.stop = stop
	t.mu.Unlock()

	t.onTick(t.snapshot(t.duration))
	go t.run(stop)
}

// Cancel stops the countdown immediately. It is not a pause: the next Start
// begins again from the full duration.
func (t *Timer) Cancel() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.stop != nil {
		close(t.stop)
		t.stop = nil
	}
}

// Running reports whether a countdown is in progress.
func (t *Timer) Running() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stop != nil
}

func (t *Timer) run(stop chan struct{}) {
	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	remaining := t.duration
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			remaining -= time.Second
			if remaining < 0 {
				remaining = 0
			}
			t.onTick(t.snapshot(remaining))
			if remaining == 0 {
				t.mu.Lock()
				if t.stop == stop {
					t.stop = nil
				}
				t.mu.Unlock()
				return
			}
		}
	}
}

func (t *Timer) snapshot(remaining time.Duration) Snapshot {
	return Snapshot{
		Remaining: remaining,
		Display:   Format(remaining),
		LowTime:   remaining <= lowTimeThreshold,
		Expired:   remaining == 0,
	}
}

// Format renders a duration as mm:ss.
func Format(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := int(d.Round(time.Second) / time.Second)
	return fmt.Sprintf("%02d:%02d", total/60, total%60)
}
