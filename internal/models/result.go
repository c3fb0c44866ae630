package models

import (
	"time"

	"github.com/google/uuid"
)

// BreakdownEntry is one exercise line of a session summary, e.g. {"squat", "Squats", "1x30 reps"}.
type BreakdownEntry struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Value string `json:"value"`
}

// SessionResult is the summary emitted once when a workout plan completes.
type SessionResult struct {
	ID          uuid.UUID        `json:"id"`
	PlanID      string           `json:"plan_id"`
	PlanName    string           `json:"plan_name"`
	Category    Category         `json:"category,omitempty"`
	Reps        int              `json:"reps"`
	DurationSec int              `json:"duration_sec"`
	Calories    int              `json:"calories"`
	Breakdown   []BreakdownEntry `json:"exercise_breakdown"`
	StartedAt   time.Time        `json:"started_at"`
	CompletedAt time.Time        `json:"completed_at"`
}

// UserProfile is the profile returned by the auth backend.
type UserProfile struct {
	ID           string     `json:"_id"`
	FullName     string     `json:"fullName"`
	Email        string     `json:"email"`
	Photo        string     `json:"photo,omitempty"`
	Gender       string     `json:"gender,omitempty"`
	Height       string     `json:"height,omitempty"`
	Weight       string     `json:"weight,omitempty"`
	Age          int        `json:"age,omitempty"`
	FitnessLevel Difficulty `json:"fitnessLevel,omitempty"`
	BMI          *float64   `json:"bmi,omitempty"`
	BMR          *float64   `json:"bmr,omitempty"`
}

// WorkoutRow is a row of the workouts table.
type WorkoutRow struct {
	ID          uuid.UUID `json:"id"`
	UserID      string    `json:"user_id"`
	PlanID      string    `json:"plan_id"`
	PlanName    string    `json:"plan_name"`
	Category    string    `json:"category,omitempty"`
	Reps        int       `json:"reps"`
	DurationSec int       `json:"duration_sec"`
	Calories    int       `json:"calories"`
	StartedAt   time.Time `json:"started_at"`
	CompletedAt time.Time `json:"completed_at"`
}
