package history

import (
	"testing"
	"time"

	"github.com/fitflow/fitflow/internal/models"
)

var day = time.Date(2026, time.August, 14, 18, 0, 0, 0, time.UTC)

func result(cat models.Category, calories, duration int, breakdown ...models.BreakdownEntry) models.SessionResult {
	return models.SessionResult{
		PlanID:      "p",
		Category:    cat,
		Calories:    calories,
		DurationSec: duration,
		Breakdown:   breakdown,
	}
}

func TestInitial(t *testing.T) {
	d := Initial(day)
	if d.RecoveryScore != 100 {
		t.Errorf("RecoveryScore = %d, want 100", d.RecoveryScore)
	}
	if len(d.MuscleReadiness) != 10 {
		t.Errorf("muscles = %d, want 10", len(d.MuscleReadiness))
	}
	want := []string{"May 2026", "Jun 2026", "Jul 2026", "Aug 2026"}
	for i, l := range want {
		if d.StrengthData.Labels[i] != l {
			t.Errorf("label %d = %q, want %q", i, d.StrengthData.Labels[i], l)
		}
	}
}

func TestVolume(t *testing.T) {
	tests := map[string]int{
		"3x12 reps": 36,
		"1x30 reps": 30,
		"3x30s":     90,
		"45s":       45,
		"10 reps":   10,
		"x":         0,
		"1x2x3":     0,
		"lots":      0,
	}
	for in, want := range tests {
		if got := Volume(in); got != want {
			t.Errorf("Volume(%q) = %d, want %d", in, got, want)
		}
	}
}

func TestAddWorkout(t *testing.T) {
	before := Initial(day)
	res := result(models.CategoryLowerBody, 42, 600,
		models.BreakdownEntry{ID: "squat", Name: "Squats", Value: "1x30 reps"},
		models.BreakdownEntry{ID: "lunges", Name: "Lunges", Value: "1x20 reps"},
	)
	d := AddWorkout(before, res, day)

	if len(d.WorkoutHistory) != 1 || d.WorkoutHistory[0].Date != "2026-08-14" {
		t.Fatalf("history = %+v", d.WorkoutHistory)
	}
	if d.CaloriesBurned != 42 || d.WeeklyHighlights.CaloriesBurned != 42 {
		t.Errorf("calories = %d / %d", d.CaloriesBurned, d.WeeklyHighlights.CaloriesBurned)
	}
	if d.DailyActivity.WorkoutTime != 10 {
		t.Errorf("WorkoutTime = %d, want 10", d.DailyActivity.WorkoutTime)
	}
	if d.Heatmap["2026-08-14"] != 1 {
		t.Errorf("heatmap = %v", d.Heatmap)
	}
	if d.RecoveryScore != 80 {
		t.Errorf("RecoveryScore = %d, want 80 (four lower body groups recovering)", d.RecoveryScore)
	}
	if d.WeeklyHighlights.Streak != 1 {
		t.Errorf("Streak = %d, want 1", d.WeeklyHighlights.Streak)
	}
	if got := d.StrengthData.Datasets[0].Data[3]; got != 30 {
		t.Errorf("squat volume = %d, want 30", got)
	}

	// The input is left untouched.
	if len(before.WorkoutHistory) != 0 || before.Heatmap["2026-08-14"] != 0 || before.StrengthData.Datasets[0].Data[3] != 0 {
		t.Error("AddWorkout modified its input")
	}
}

// The heatmap intensity saturates and same-day workouts don't extend the streak.
func TestAddWorkoutSameDay(t *testing.T) {
	d := Initial(day)
	for i := 0; i < 6; i++ {
		d = AddWorkout(d, result(models.CategoryCardio, 10, 300), day)
	}
	if d.Heatmap["2026-08-14"] != 4 {
		t.Errorf("intensity = %d, want 4", d.Heatmap["2026-08-14"])
	}
	if d.WeeklyHighlights.Streak != 1 {
		t.Errorf("Streak = %d, want 1", d.WeeklyHighlights.Streak)
	}
	if d.RecoveryScore != 100 {
		t.Errorf("cardio should not load muscle groups, score = %d", d.RecoveryScore)
	}
	if d.DailyActivity.CardioTime != 30 {
		t.Errorf("CardioTime = %d, want 30", d.DailyActivity.CardioTime)
	}
}

func TestStreak(t *testing.T) {
	d := Initial(day)
	d = AddWorkout(d, result(models.CategoryCardio, 1, 60), day.AddDate(0, 0, -2))
	d = AddWorkout(d, result(models.CategoryCardio, 1, 60), day.AddDate(0, 0, -1))
	d = AddWorkout(d, result(models.CategoryCardio, 1, 60), day)
	if d.WeeklyHighlights.Streak != 3 {
		t.Errorf("Streak = %d, want 3", d.WeeklyHighlights.Streak)
	}
	d = AddWorkout(d, result(models.CategoryCardio, 1, 60), day.AddDate(0, 0, 3))
	if d.WeeklyHighlights.Streak != 1 {
		t.Errorf("Streak after a gap = %d, want 1", d.WeeklyHighlights.Streak)
	}
}

// A workout in a month past the chart window slides the window forward.
func TestStrengthWindowSlides(t *testing.T) {
	d := Initial(day)
	d = AddWorkout(d, result(models.CategoryUpperBody, 1, 60,
		models.BreakdownEntry{ID: "push-up", Value: "1x10 reps"}), day)
	d = AddWorkout(d, result(models.CategoryUpperBody, 1, 60,
		models.BreakdownEntry{ID: "push-up", Value: "1x15 reps"}), day.AddDate(0, 1, 0))

	labels := d.StrengthData.Labels
	if labels[len(labels)-1] != "Sep 2026" || labels[0] != "Jun 2026" {
		t.Errorf("labels = %v", labels)
	}
	push := d.StrengthData.Datasets[1].Data
	if push[2] != 10 || push[3] != 15 {
		t.Errorf("push-up series = %v", push)
	}
}

func TestRecoveryScore(t *testing.T) {
	rs := []MuscleReadiness{{"A", Recovering}, {"B", Sore}, {"C", Fresh}}
	if got := RecoveryScore(rs); got != 85 {
		t.Errorf("RecoveryScore = %d, want 85", got)
	}
	var many []MuscleReadiness
	for i := 0; i < 20; i++ {
		many = append(many, MuscleReadiness{Readiness: Sore})
	}
	if got := RecoveryScore(many); got != 0 {
		t.Errorf("RecoveryScore floor = %d, want 0", got)
	}
}

func TestSummarize(t *testing.T) {
	d := Initial(day)
	d.Steps = 4000
	d = AddWorkout(d, result(models.CategoryCardio, 200, 60), day.AddDate(0, 0, -10))
	d = AddWorkout(d, result(models.CategoryCardio, 100, 60), day.AddDate(0, 0, -3))
	d = AddWorkout(d, result(models.CategoryCardio, 100, 60), day)

	s := Summarize(d, day)
	if s.StepGoalPercentage != 50 {
		t.Errorf("StepGoalPercentage = %d, want 50", s.StepGoalPercentage)
	}
	if s.CaloriesRemaining != 1800 {
		t.Errorf("CaloriesRemaining = %d, want 1800", s.CaloriesRemaining)
	}
	if s.WeeklyWorkouts != 2 || s.WeeklyGoal != 3 {
		t.Errorf("weekly = %d/%d, want 2/3", s.WeeklyWorkouts, s.WeeklyGoal)
	}

	d.Steps = 20000
	d.CaloriesBurned = 5000
	s = Summarize(d, day)
	if s.StepGoalPercentage != 100 || s.CaloriesRemaining != 0 {
		t.Errorf("caps: %+v", s)
	}
}
