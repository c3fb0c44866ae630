// Package session runs one workout-plan attempt: the phase state machine, the
// camera, and the exercise-scoped trainer stream.
package session

import "github.com/fitflow/fitflow/internal/models"

// Phase is the life-cycle position of a session.
type Phase string

const (
	PhaseIdle       Phase = "idle"
	PhaseStarting   Phase = "starting"
	PhaseCountdown  Phase = "countdown"
	PhaseExercising Phase = "exercising"
	PhasePaused     Phase = "paused"
	PhaseResting    Phase = "resting"
	PhaseError      Phase = "error"
)

// State is everything the reducer owns. Countdowns are nil when not running.
type State struct {
	Phase            Phase  `json:"phase"`
	ExerciseIndex    int    `json:"exercise_index"`
	SetNumber        int    `json:"set_number"`
	InitialCountdown *int   `json:"initial_countdown,omitempty"`
	RestCountdown    *int   `json:"rest_countdown,omitempty"`
	ElapsedSeconds   int    `json:"elapsed_seconds"`
	LastError        string `json:"last_error,omitempty"`
	// NextIsNewExercise is set while resting when the rest ends on the next exercise.
	NextIsNewExercise bool `json:"next_is_new_exercise,omitempty"`
}

// InitialState is the state of a session that has not been started.
func InitialState() State {
	return State{Phase: PhaseIdle, SetNumber: 1}
}

// Event is an input to the reducer.
type Event interface{ isEvent() }

type (
	StartRequested  struct{}
	RetryRequested  struct{}
	CameraReady     struct{}
	CameraFailed    struct{ Message string }
	Tick            struct{}
	PauseRequested  struct{}
	ResumeRequested struct{}
	StreamFailed    struct{ Message string }
	StreamRecovered struct{}
	// SetFinished is raised when the live count reaches the target of a set
	// that is not the final set of the plan.
	SetFinished struct{ LastSet, LastExercise bool }
)

func (StartRequested) isEvent()  {}
func (RetryRequested) isEvent()  {}
func (CameraReady) isEvent()     {}
func (CameraFailed) isEvent()    {}
func (Tick) isEvent()            {}
func (PauseRequested) isEvent()  {}
func (ResumeRequested) isEvent() {}
func (StreamFailed) isEvent()    {}
func (StreamRecovered) isEvent() {}
func (SetFinished) isEvent()     {}

// Rules are the durations, in seconds, the reducer counts down.
type Rules struct {
	Countdown    int
	SetRest      int
	ExerciseRest int
}

// DefaultRules: 3 s lead-in, 30 s between sets, 60 s between exercises.
var DefaultRules = Rules{Countdown: 3, SetRest: 30, ExerciseRest: 60}

func (r Rules) withDefaults() Rules {
	if r.Countdown <= 0 {
		r.Countdown = DefaultRules.Countdown
	}
	if r.SetRest <= 0 {
		r.SetRest = DefaultRules.SetRest
	}
	if r.ExerciseRest <= 0 {
		r.ExerciseRest = DefaultRules.ExerciseRest
	}
	return r
}

func intPtr(v int) *int { return &v }

// Reduce returns the state that follows s after ev. Events that are not valid
// in the current phase leave the state unchanged.
func (r Rules) Reduce(s State, ev Event) State {
	switch ev := ev.(type) {
	case StartRequested:
		if s.Phase == PhaseIdle {
			s.Phase = PhaseStarting
			s.LastError = ""
		}
	case RetryRequested:
		if s.Phase == PhaseError {
			s.Phase = PhaseStarting
			s.LastError = ""
		}
	case CameraReady:
		if s.Phase == PhaseStarting {
			s.Phase = PhaseCountdown
			s.InitialCountdown = intPtr(r.Countdown)
		}
	case CameraFailed:
		switch s.Phase {
		case PhaseStarting, PhaseCountdown, PhaseExercising, PhasePaused, PhaseResting:
			s.Phase = PhaseError
			s.LastError = ev.Message
			s.InitialCountdown = nil
			s.RestCountdown = nil
		}
	case Tick:
		return r.tick(s)
	case PauseRequested:
		if s.Phase == PhaseExercising {
			s.Phase = PhasePaused
		}
	case ResumeRequested:
		if s.Phase == PhasePaused {
			s.Phase = PhaseExercising
		}
	case StreamFailed:
		if s.Phase == PhaseExercising {
			s.LastError = ev.Message
		}
	case StreamRecovered:
		if s.Phase == PhaseExercising {
			s.LastError = ""
		}
	case SetFinished:
		if s.Phase != PhaseExercising || (ev.LastSet && ev.LastExercise) {
			return s
		}
		s.Phase = PhaseResting
		s.LastError = ""
		s.NextIsNewExercise = ev.LastSet
		if ev.LastSet {
			s.RestCountdown = intPtr(r.ExerciseRest)
		} else {
			s.RestCountdown = intPtr(r.SetRest)
		}
	}
	return s
}

func (r Rules) tick(s State) State {
	switch s.Phase {
	case PhaseCountdown:
		if s.InitialCountdown == nil || *s.InitialCountdown <= 1 {
			s.Phase = PhaseExercising
			s.InitialCountdown = nil
			return s
		}
		s.InitialCountdown = intPtr(*s.InitialCountdown - 1)
	case PhaseExercising:
		s.ElapsedSeconds++
	case PhaseResting:
		if s.RestCountdown != nil && *s.RestCountdown > 1 {
			s.RestCountdown = intPtr(*s.RestCountdown - 1)
			return s
		}
		s.Phase = PhaseExercising
		s.RestCountdown = nil
		if s.NextIsNewExercise {
			s.ExerciseIndex++
			s.SetNumber = 1
		} else {
			s.SetNumber++
		}
		s.NextIsNewExercise = false
	}
	return s
}

// SetMode decides how an exercise's configured sets are run.
type SetMode string

const (
	// SetsCollapsed runs one set per exercise with target reps × sets.
	SetsCollapsed SetMode = "collapsed"
	// SetsCycled runs every configured set with a short rest in between.
	SetsCycled SetMode = "cycled"
)

// Target is the live count that completes the current set of ex.
func (m SetMode) Target(ex models.Exercise) int {
	if m == SetsCycled {
		return ex.PerSetTarget()
	}
	return ex.PerSetTarget() * ex.SetCount()
}

// TotalSets is the number of sets run for ex.
func (m SetMode) TotalSets(ex models.Exercise) int {
	if m == SetsCycled {
		return ex.SetCount()
	}
	return 1
}

// ParseSetMode accepts "collapsed" or "cycled"; anything else is collapsed.
func ParseSetMode(s string) SetMode {
	if SetMode(s) == SetsCycled {
		return SetsCycled
	}
	return SetsCollapsed
}
