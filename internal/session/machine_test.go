package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fitflow/fitflow/internal/models"
)

func reduceAll(r Rules, s State, evs ...Event) State {
	for _, ev := range evs {
		s = r.Reduce(s, ev)
	}
	return s
}

func ticks(n int) []Event {
	evs := make([]Event, n)
	for i := range evs {
		evs[i] = Tick{}
	}
	return evs
}

// TestReduceStartupCountdown walks idle through the countdown into exercising.
func TestReduceStartupCountdown(t *testing.T) {
	r := DefaultRules
	s := reduceAll(r, InitialState(), StartRequested{})
	assert.Equal(t, PhaseStarting, s.Phase)

	s = r.Reduce(s, CameraReady{})
	require.Equal(t, PhaseCountdown, s.Phase)
	require.NotNil(t, s.InitialCountdown)
	assert.Equal(t, 3, *s.InitialCountdown)

	s = reduceAll(r, s, Tick{}, Tick{})
	assert.Equal(t, PhaseCountdown, s.Phase)
	assert.Equal(t, 1, *s.InitialCountdown)

	s = r.Reduce(s, Tick{})
	assert.Equal(t, PhaseExercising, s.Phase)
	assert.Nil(t, s.InitialCountdown)
	assert.Equal(t, 0, s.ElapsedSeconds, "countdown seconds are not workout time")
}

// TestReduceElapsedOnlyWhileExercising verifies ticks in every other phase
// leave the elapsed counter alone.
func TestReduceElapsedOnlyWhileExercising(t *testing.T) {
	r := DefaultRules
	s := State{Phase: PhaseExercising, SetNumber: 1}
	s = reduceAll(r, s, ticks(5)...)
	assert.Equal(t, 5, s.ElapsedSeconds)

	s = r.Reduce(s, PauseRequested{})
	assert.Equal(t, PhasePaused, s.Phase)
	s = reduceAll(r, s, ticks(10)...)
	assert.Equal(t, 5, s.ElapsedSeconds)

	s = r.Reduce(s, ResumeRequested{})
	s = r.Reduce(s, SetFinished{LastSet: true})
	assert.Equal(t, PhaseResting, s.Phase)
	s = reduceAll(r, s, ticks(3)...)
	assert.Equal(t, 5, s.ElapsedSeconds)

	for _, p := range []Phase{PhaseIdle, PhaseStarting, PhaseError} {
		got := r.Reduce(State{Phase: p, ElapsedSeconds: 7}, Tick{})
		assert.Equal(t, 7, got.ElapsedSeconds, "phase %s", p)
		assert.Equal(t, p, got.Phase)
	}
}

// TestReduceRestBetweenExercises verifies the long rest and the move to the
// next exercise.
func TestReduceRestBetweenExercises(t *testing.T) {
	r := DefaultRules
	s := r.Reduce(State{Phase: PhaseExercising, SetNumber: 1}, SetFinished{LastSet: true})
	require.Equal(t, PhaseResting, s.Phase)
	assert.Equal(t, 60, *s.RestCountdown)
	assert.True(t, s.NextIsNewExercise)

	s = reduceAll(r, s, ticks(59)...)
	assert.Equal(t, PhaseResting, s.Phase)
	assert.Equal(t, 1, *s.RestCountdown)

	s = r.Reduce(s, Tick{})
	assert.Equal(t, PhaseExercising, s.Phase)
	assert.Equal(t, 1, s.ExerciseIndex)
	assert.Equal(t, 1, s.SetNumber)
	assert.Nil(t, s.RestCountdown)
	assert.False(t, s.NextIsNewExercise)
}

// TestReduceRestBetweenSets verifies the short rest keeps the exercise and
// advances the set.
func TestReduceRestBetweenSets(t *testing.T) {
	r := DefaultRules
	s := r.Reduce(State{Phase: PhaseExercising, SetNumber: 1}, SetFinished{})
	require.Equal(t, PhaseResting, s.Phase)
	assert.Equal(t, 30, *s.RestCountdown)

	s = reduceAll(r, s, ticks(30)...)
	assert.Equal(t, PhaseExercising, s.Phase)
	assert.Equal(t, 0, s.ExerciseIndex)
	assert.Equal(t, 2, s.SetNumber)
}

// TestReduceFinalSetIsNotARest verifies the last set of the last exercise
// leaves completion to the controller.
func TestReduceFinalSetIsNotARest(t *testing.T) {
	s := State{Phase: PhaseExercising, SetNumber: 1}
	got := DefaultRules.Reduce(s, SetFinished{LastSet: true, LastExercise: true})
	assert.Equal(t, s, got)
}

// TestReduceCameraFailure covers the error phase and retry.
func TestReduceCameraFailure(t *testing.T) {
	r := DefaultRules
	rest := 12
	for _, from := range []State{
		{Phase: PhaseStarting},
		{Phase: PhaseCountdown, InitialCountdown: &rest},
		{Phase: PhaseExercising},
		{Phase: PhasePaused},
		{Phase: PhaseResting, RestCountdown: &rest},
	} {
		s := r.Reduce(from, CameraFailed{Message: "No camera found."})
		assert.Equal(t, PhaseError, s.Phase, "from %s", from.Phase)
		assert.Equal(t, "No camera found.", s.LastError)
		assert.Nil(t, s.InitialCountdown)
		assert.Nil(t, s.RestCountdown)

		s = r.Reduce(s, RetryRequested{})
		assert.Equal(t, PhaseStarting, s.Phase)
		assert.Empty(t, s.LastError)
	}

	idle := InitialState()
	assert.Equal(t, idle, r.Reduce(idle, CameraFailed{Message: "x"}))
}

// TestReduceStreamFailureKeepsPhase verifies connection trouble only touches
// the status message.
func TestReduceStreamFailureKeepsPhase(t *testing.T) {
	r := DefaultRules
	s := r.Reduce(State{Phase: PhaseExercising}, StreamFailed{Message: "reconnecting"})
	assert.Equal(t, PhaseExercising, s.Phase)
	assert.Equal(t, "reconnecting", s.LastError)

	s = r.Reduce(s, StreamRecovered{})
	assert.Equal(t, PhaseExercising, s.Phase)
	assert.Empty(t, s.LastError)
}

// TestReduceIgnoresOutOfPhaseEvents verifies invalid events are no-ops.
func TestReduceIgnoresOutOfPhaseEvents(t *testing.T) {
	r := DefaultRules
	cases := []struct {
		from State
		ev   Event
	}{
		{InitialState(), PauseRequested{}},
		{InitialState(), CameraReady{}},
		{InitialState(), RetryRequested{}},
		{State{Phase: PhaseExercising}, ResumeRequested{}},
		{State{Phase: PhaseExercising}, StartRequested{}},
		{State{Phase: PhasePaused}, SetFinished{}},
		{State{Phase: PhaseResting}, StreamFailed{Message: "x"}},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.from, r.Reduce(tc.from, tc.ev), "%T in %s", tc.ev, tc.from.Phase)
	}
}

// TestSetModes verifies collapsed sets fold into one target and cycled sets
// keep the per-set target.
func TestSetModes(t *testing.T) {
	pushups := models.Exercise{ID: "push-up", Kind: models.KindReps, Sets: 3, Reps: 10}
	plank := models.Exercise{ID: "plank", Kind: models.KindTime, Sets: 2, HoldSeconds: 30}

	assert.Equal(t, 30, SetsCollapsed.Target(pushups))
	assert.Equal(t, 1, SetsCollapsed.TotalSets(pushups))
	assert.Equal(t, 60, SetsCollapsed.Target(plank))

	assert.Equal(t, 10, SetsCycled.Target(pushups))
	assert.Equal(t, 3, SetsCycled.TotalSets(pushups))
	assert.Equal(t, 30, SetsCycled.Target(plank))

	assert.Equal(t, SetsCycled, ParseSetMode("cycled"))
	assert.Equal(t, SetsCollapsed, ParseSetMode(""))
	assert.Equal(t, SetsCollapsed, ParseSetMode("bogus"))
}
