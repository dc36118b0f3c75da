package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func testSettings() Settings {
	return Settings{
		Focus:      25 * time.Minute,
		ShortBreak: 5 * time.Minute,
		LongBreak:  20 * time.Minute,
		Intervals:  4,
	}
}

// === Unit Tests: Transition ===

func TestTransition_WorkToShortBreak(t *testing.T) {
	next, delta, signal, err := Transition(PhaseWork, Stats{}, testSettings())
	require.NoError(t, err)
	require.Equal(t, PhaseShortBreak, next)
	require.Equal(t, StatDelta{WorkUnitsCompleted: 1, WorkUnitsElapsed: 1, WorkSecondsCompleted: 1500}, delta)
	require.Equal(t, SignalUnmute, signal)
}

func TestTransition_WorkToLongBreakOnIntervalBoundary(t *testing.T) {
	stats := Stats{WorkUnitsCompleted: 3}
	next, _, signal, err := Transition(PhaseWork, stats, testSettings())
	require.NoError(t, err)
	require.Equal(t, PhaseLongBreak, next)
	require.Equal(t, SignalUnmute, signal)
}

func TestTransition_BreaksReturnToWork(t *testing.T) {
	for _, phase := range []Phase{PhaseShortBreak, PhaseLongBreak} {
		next, delta, signal, err := Transition(phase, Stats{}, testSettings())
		require.NoError(t, err)
		require.Equal(t, PhaseWork, next)
		require.Equal(t, StatDelta{}, delta)
		require.Equal(t, SignalMute, signal)
	}
}

func TestTransition_ClassworkCycle(t *testing.T) {
	next, delta, signal, err := Transition(PhaseClassworkWork, Stats{}, testSettings())
	require.NoError(t, err)
	require.Equal(t, PhaseClassworkBreak, next)
	require.Equal(t, 1, delta.WorkUnitsCompleted)
	require.Equal(t, 0, delta.WorkUnitsElapsed)
	require.Equal(t, SignalUnmute, signal)

	next, delta, signal, err = Transition(PhaseClassworkBreak, Stats{}, testSettings())
	require.NoError(t, err)
	require.Equal(t, PhaseClassworkWork, next)
	require.Equal(t, StatDelta{}, delta)
	require.Equal(t, SignalMute, signal)
}

func TestTransition_CountdownHasNoTransition(t *testing.T) {
	_, _, _, err := Transition(PhaseCountdown, Stats{}, testSettings())
	require.ErrorIs(t, err, ErrNoTransition)
}

// TestTransition_FourIntervalSequence walks four focus intervals and expects
// the canonical pomodoro phase sequence ending in a long break.
func TestTransition_FourIntervalSequence(t *testing.T) {
	settings := testSettings()
	phase := PhaseWork
	stats := Stats{}

	var sequence []Phase
	sequence = append(sequence, phase)
	for i := 0; i < 7; i++ {
		next, delta, _, err := Transition(phase, stats, settings)
		require.NoError(t, err)
		stats = stats.Apply(delta)
		phase = next
		sequence = append(sequence, phase)
	}

	require.Equal(t, []Phase{
		PhaseWork, PhaseShortBreak,
		PhaseWork, PhaseShortBreak,
		PhaseWork, PhaseShortBreak,
		PhaseWork, PhaseLongBreak,
	}, sequence)
	require.Equal(t, 4, stats.WorkUnitsCompleted)
}

// === Unit Tests: SkipCorrection ===

func TestSkipCorrection_WorkOnly(t *testing.T) {
	settings := testSettings()
	require.Equal(t,
		StatDelta{WorkUnitsCompleted: -1, WorkSecondsCompleted: -1500},
		SkipCorrection(PhaseWork, settings))

	for _, phase := range []Phase{PhaseShortBreak, PhaseLongBreak, PhaseClassworkWork, PhaseClassworkBreak, PhaseCountdown} {
		require.Equal(t, StatDelta{}, SkipCorrection(phase, settings), "phase %s", phase)
	}
}

// TestSkipCorrection_NoOpOnTotals verifies that a skip during Work leaves the
// cumulative completed totals unchanged: the correction removes exactly the
// unit and seconds the transition re-adds.
func TestSkipCorrection_NoOpOnTotals(t *testing.T) {
	settings := testSettings()
	stats := Stats{WorkUnitsCompleted: 2, WorkSecondsCompleted: 3000}

	corrected := stats.Apply(SkipCorrection(PhaseWork, settings))
	require.Equal(t, 1, corrected.WorkUnitsCompleted)
	require.Equal(t, 1500, corrected.WorkSecondsCompleted)

	next, delta, _, err := Transition(PhaseWork, corrected, settings)
	require.NoError(t, err)
	final := corrected.Apply(delta)

	require.Equal(t, PhaseShortBreak, next)
	require.Equal(t, stats.WorkUnitsCompleted, final.WorkUnitsCompleted)
	require.Equal(t, stats.WorkSecondsCompleted, final.WorkSecondsCompleted)
}

// TestSkipCorrection_ZeroStatsNeverGoNegative pins the decision on the
// zero-stat skip: counters floor at zero instead of going negative.
func TestSkipCorrection_ZeroStatsNeverGoNegative(t *testing.T) {
	settings := testSettings()
	stats := Stats{}.Apply(SkipCorrection(PhaseWork, settings))
	require.Equal(t, 0, stats.WorkUnitsCompleted)
	require.Equal(t, 0, stats.WorkSecondsCompleted)
}

// === Property Tests ===

// TestTransition_Pure verifies the transition table is a pure total function:
// identical inputs always yield identical outputs, and every valid non-countdown
// phase has an outgoing transition to another valid phase.
func TestTransition_Pure(t *testing.T) {
	phases := []Phase{PhaseWork, PhaseShortBreak, PhaseLongBreak, PhaseClassworkWork, PhaseClassworkBreak, PhaseCountdown}

	rapid.Check(t, func(t *rapid.T) {
		phase := phases[rapid.IntRange(0, len(phases)-1).Draw(t, "phase")]
		stats := Stats{
			WorkUnitsCompleted:   rapid.IntRange(0, 1000).Draw(t, "completed"),
			WorkUnitsElapsed:     rapid.IntRange(0, 1000).Draw(t, "elapsed"),
			WorkSecondsCompleted: rapid.IntRange(0, 100000).Draw(t, "seconds"),
		}
		settings := Settings{
			Focus:      time.Duration(rapid.IntRange(1, 180).Draw(t, "focus")) * time.Minute,
			ShortBreak: time.Duration(rapid.IntRange(1, 180).Draw(t, "short")) * time.Minute,
			LongBreak:  time.Duration(rapid.IntRange(1, 180).Draw(t, "long")) * time.Minute,
			Intervals:  rapid.IntRange(1, 20).Draw(t, "intervals"),
		}

		next1, delta1, signal1, err1 := Transition(phase, stats, settings)
		next2, delta2, signal2, err2 := Transition(phase, stats, settings)

		require.Equal(t, next1, next2)
		require.Equal(t, delta1, delta2)
		require.Equal(t, signal1, signal2)
		require.Equal(t, err1, err2)

		if phase == PhaseCountdown {
			require.ErrorIs(t, err1, ErrNoTransition)
		} else {
			require.NoError(t, err1)
			require.True(t, next1.IsValid())
			require.NotEqual(t, PhaseCountdown, next1)
		}
	})
}
