package models

import "fmt"

// Kind is how an exercise is measured by the rep-counting service.
type Kind string

const (
	KindReps Kind = "reps"
	KindTime Kind = "time"
)

// Category groups plans by the muscles they load.
type Category string

const (
	CategoryLowerBody Category = "Lower body"
	CategoryUpperBody Category = "Upper body"
	CategoryCardio    Category = "Cardio"
)

// Difficulty is the fitness level a plan or exercise targets.
type Difficulty string

const (
	Beginner     Difficulty = "Beginner"
	Intermediate Difficulty = "Intermediate"
	Advanced     Difficulty = "Advanced"
)

// Exercise is one entry of a workout plan.
type Exercise struct {
	ID           string     `yaml:"id" json:"id"`
	Name         string     `yaml:"name" json:"name"`
	Description  string     `yaml:"description,omitempty" json:"description,omitempty"`
	Instructions string     `yaml:"instructions,omitempty" json:"instructions,omitempty"`
	Difficulty   Difficulty `yaml:"difficulty,omitempty" json:"difficulty,omitempty"`
	Kind         Kind       `yaml:"type" json:"type"`
	Sets         int        `yaml:"sets" json:"sets"`
	Reps         int        `yaml:"reps,omitempty" json:"reps,omitempty"`
	HoldSeconds  int        `yaml:"hold_time,omitempty" json:"hold_time,omitempty"`
	MET          float64    `yaml:"met" json:"met"`
}

// Timed reports whether the exercise is a duration hold rather than a rep count.
func (e Exercise) Timed() bool { return e.Kind == KindTime }

// SetCount returns the configured number of sets, never less than one.
func (e Exercise) SetCount() int {
	if e.Sets < 1 {
		return 1
	}
	return e.Sets
}

// PerSetTarget is the rep count or hold seconds required for one set.
func (e Exercise) PerSetTarget() int {
	v := e.Reps
	if e.Timed() {
		v = e.HoldSeconds
	}
	if v < 1 {
		return 1
	}
	return v
}

// Unit formats a magnitude for this exercise, e.g. "10 reps" or "30s".
func (e Exercise) Unit(v int) string {
	if e.Timed() {
		return fmt.Sprintf("%ds", v)
	}
	return fmt.Sprintf("%d reps", v)
}

// WorkoutPlan is an ordered list of exercises attempted in one session.
type WorkoutPlan struct {
	ID          string     `yaml:"id" json:"id"`
	Name        string     `yaml:"name" json:"name"`
	Description string     `yaml:"description,omitempty" json:"description,omitempty"`
	Category    Category   `yaml:"category,omitempty" json:"category,omitempty"`
	Difficulty  Difficulty `yaml:"difficulty,omitempty" json:"difficulty,omitempty"`
	Exercises   []Exercise `yaml:"exercises" json:"exercises"`
}

// Validate checks that the plan can drive a session.
func (p WorkoutPlan) Validate() error {
	if p.ID == "" {
		return fmt.Errorf("plan id is required")
	}
	if len(p.Exercises) == 0 {
		return fmt.Errorf("plan %s has no exercises", p.ID)
	}
	for i, ex := range p.Exercises {
		if ex.ID == "" {
			return fmt.Errorf("plan %s: exercise %d has no id", p.ID, i)
		}
		switch ex.Kind {
		case KindReps, KindTime:
		default:
			return fmt.Errorf("plan %s: exercise %s has unknown type %q", p.ID, ex.ID, ex.Kind)
		}
	}
	return nil
}
