package session

import "time"

// Timer tracks the remaining duration of the current phase.
//
// Invariant: while Running is false, End is meaningless and Remaining is
// authoritative. While Running is true, Remaining is a derived quantity
// (End minus now) and must be refreshed via RemainingAt before being read
// for display or comparison.
type Timer struct {
	Remaining time.Duration
	Running   bool
	End       time.Time
}

// NewTimer returns a stopped timer holding the given duration.
func NewTimer(d time.Duration) Timer {
	return Timer{Remaining: d}
}

// RemainingAt returns the remaining duration as of now.
// For a running timer this is End−now floored at zero; otherwise the stored
// remaining value.
func (t *Timer) RemainingAt(now time.Time) time.Duration {
	if t.Running {
		if rem := t.End.Sub(now); rem > 0 {
			return rem
		}
		return 0
	}
	return t.Remaining
}

// Arm sets the remaining duration. If the timer is running, the end instant
// moves to now+d so the new duration takes effect immediately.
func (t *Timer) Arm(d time.Duration, now time.Time) {
	t.Remaining = d
	if t.Running {
		t.End = now.Add(d)
	}
}

// Start begins counting down from the stored remaining duration.
func (t *Timer) Start(now time.Time) {
	t.Running = true
	t.End = now.Add(t.Remaining)
}

// Stop freezes elapsed progress: the remaining duration is snapshotted at the
// moment of stopping and the end instant is discarded.
func (t *Timer) Stop(now time.Time) {
	t.Remaining = t.RemainingAt(now)
	t.Running = false
	t.End = time.Time{}
}
