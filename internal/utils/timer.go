package utils

import "time"

// Timer measures the wall-clock latency of one request. Create one with
// [NewTimer], which starts it immediately; [Timer.Stop] freezes the elapsed
// duration so later reads are stable.
type Timer struct {
	startTime time.Time
	duration  time.Duration
	stopped   bool
}

// NewTimer creates a Timer started at the current instant.
func NewTimer() *Timer {
	return &Timer{startTime: time.Now()}
}

// Stop freezes the elapsed duration and returns it. Only the first call
// records; later calls return the same value.
func (t *Timer) Stop() time.Duration {
	if !t.stopped {
		t.duration = time.Since(t.startTime)
		t.stopped = true
	}
	return t.duration
}

// Elapsed returns the frozen duration once stopped, or the running time
// otherwise.
func (t *Timer) Elapsed() time.Duration {
	if t.stopped {
		return t.duration
	}
	return time.Since(t.startTime)
}
