package countdown

import (
	"sync"
	"testing"
	"time"
)

func TestFormat(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{0, "00:00"},
		{9 * time.Second, "00:09"},
		{60 * time.Second, "01:00"},
		{2*time.Minute + 5*time.Second, "02:05"},
		{-3 * time.Second, "00:00"},
	}

	for _, tt := range tests {
		if got := Format(tt.d); got != tt.want {
			t.Errorf("Format(%v) = %q, want %q", tt.d, got, tt.want)
		}
	}
}

// collector gathers snapshots and closes done when Expired arrives.
type collector struct {
	mu    sync.Mutex
	snaps []Snapshot
	done  chan struct{}
	once  sync.Once
}

func newCollector() *collector {
	return &collector{done: make(chan struct{})}
}

func (c *collector) tick(s Snapshot) {
	c.mu.Lock()
	c.snaps = append(c.snaps, s)
	c.mu.Unlock()
	if s.Expired {
		c.once.Do(func() { close(c.done) })
	}
}

func (c *collector) all() []Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Snapshot, len(c.snaps))
	copy(out, c.snaps)
	return out
}

func TestCountdownToZero(t *testing.T) {
	c := newCollector()
	timer := New(3*time.Second, c.tick)
	timer.interval = 5 * time.Millisecond

	timer.Start()
	select {
	case <-c.done:
	case <-time.After(2 * time.Second):
		t.Fatal("countdown never expired")
	}

	snaps := c.all()
	if len(snaps) != 4 {
		t.Fatalf("got %d snapshots, want 4 (3s..0s)", len(snaps))
	}
	if snaps[0].Remaining != 3*time.Second || snaps[0].Display != "00:03" {
		t.Errorf("initial snapshot = %+v", snaps[0])
	}
	last := snaps[len(snaps)-1]
	if !last.Expired || last.Remaining != 0 || last.Display != "00:00" {
		t.Errorf("final snapshot = %+v", last)
	}
	// Everything under the threshold flags low time.
	for _, s := range snaps {
		if !s.LowTime {
			t.Errorf("snapshot %+v should flag low time", s)
		}
	}
	if timer.Running() {
		t.Error("timer still running after expiry")
	}
}

func TestLowTimeThreshold(t *testing.T) {
	c := newCollector()
	timer := New(12*time.Second, c.tick)
	timer.interval = time.Millisecond

	timer.Start()
	select {
	case <-c.done:
	case <-time.After(2 * time.Second):
		t.Fatal("countdown never expired")
	}

	for _, s := range c.all() {
		wantLow := s.Remaining <= 10*time.Second
		if s.LowTime != wantLow {
			t.Errorf("remaining %v: LowTime = %v, want %v", s.Remaining, s.LowTime, wantLow)
		}
	}
}

func TestCancelStopsTicks(t *testing.T) {
	c := newCollector()
	timer := New(time.Hour, c.tick)
	timer.interval = time.Millisecond

	timer.Start()
	time.Sleep(10 * time.Millisecond)
	timer.Cancel()

	if timer.Running() {
		t.Error("timer running after Cancel")
	}

	n := len(c.all())
	time.Sleep(20 * time.Millisecond)
	if got := len(c.all()); got != n {
		t.Errorf("ticks continued after Cancel: %d -> %d", n, got)
	}
}

func TestRestartResetsToFullDuration(t *testing.T) {
	c := newCollector()
	timer := New(time.Hour, c.tick)
	timer.interval = time.Millisecond

	timer.Start()
	time.Sleep(5 * time.Millisecond)
	timer.Start() // restart, not resume
	defer timer.Cancel()

	snaps := c.all()
	// The restart's immediate snapshot is back at the full duration.
	found := false
	for i := 1; i < len(snaps); i++ {
		if snaps[i].Remaining == time.Hour {
			found = true
		}
	}
	if !found {
		t.Error("restart did not reset to full duration")
	}
}

func TestCancelWithoutStartIsSafe(t *testing.T) {
	timer := New(time.Minute, func(Snapshot) {})
	timer.Cancel()
	timer.Cancel()
}
