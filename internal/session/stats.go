package session

import "time"

// Stats holds cumulative per-session counters. They only grow during normal
// phase progression; the skip correction may subtract, floored at zero so a
// snapshot never records a negative value.
type Stats struct {
	// WorkUnitsCompleted is the number of finished focus intervals.
	WorkUnitsCompleted int
	// WorkUnitsElapsed counts focus intervals including skipped ones.
	WorkUnitsElapsed int
	// WorkSecondsCompleted is the total focus time in seconds.
	WorkSecondsCompleted int
}

// StatDelta is the stat adjustment produced by a phase transition or a skip
// correction. Negative fields are applied with a floor of zero.
type StatDelta struct {
	WorkUnitsCompleted   int
	WorkUnitsElapsed     int
	WorkSecondsCompleted int
}

// Apply returns the stats with the delta added, clamping each counter at zero.
func (s Stats) Apply(d StatDelta) Stats {
	s.WorkUnitsCompleted = clampZero(s.WorkUnitsCompleted + d.WorkUnitsCompleted)
	s.WorkUnitsElapsed = clampZero(s.WorkUnitsElapsed + d.WorkUnitsElapsed)
	s.WorkSecondsCompleted = clampZero(s.WorkSecondsCompleted + d.WorkSecondsCompleted)
	return s
}

// CompletedFocus returns the total completed focus time.
func (s Stats) CompletedFocus() time.Duration {
	return time.Duration(s.WorkSecondsCompleted) * time.Second
}

func clampZero(n int) int {
	if n < 0 {
		return 0
	}
	return n
}
