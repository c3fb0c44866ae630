// Package history folds completed sessions into a user's fitness aggregates:
// workout log, activity heatmap, muscle readiness, streaks and strength trends.
package history

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/fitflow/fitflow/internal/models"
)

const (
	StepGoal      = 8000
	CalorieTarget = 2200
	// WeeklyGoal is the number of workouts per rolling seven days.
	WeeklyGoal = 3

	maxIntensity = 4
	chartMonths  = 4
	dateLayout   = "2006-01-02"
)

// Readiness is how recovered a muscle group is.
type Readiness string

const (
	Fresh      Readiness = "fresh"
	Recovering Readiness = "recovering"
	Sore       Readiness = "sore"
)

type MuscleReadiness struct {
	Name      string    `json:"name"`
	Readiness Readiness `json:"readiness"`
}

type ChartDataset struct {
	Label      string `json:"label"`
	ExerciseID string `json:"exercise_id"`
	Data       []int  `json:"data"`
}

// ChartData is a monthly series per tracked exercise. Labels are "Jan 2026" style.
type ChartData struct {
	Labels   []string       `json:"labels"`
	Datasets []ChartDataset `json:"datasets"`
}

// Entry is a logged session with the local date it was recorded on.
type Entry struct {
	models.SessionResult
	Date string `json:"date"`
}

type DailyActivity struct {
	CardioTime  int `json:"cardio_time"`
	WorkoutTime int `json:"workout_time"` // minutes
}

type BestLift struct {
	Exercise string `json:"exercise"`
	Weight   int    `json:"weight"`
}

type WeeklyHighlights struct {
	CaloriesBurned int      `json:"calories_burned"`
	BestLift       BestLift `json:"best_lift"`
	Streak         int      `json:"streak"`
}

type Goal struct {
	Name     string `json:"name"`
	Progress int    `json:"progress"`
}

type Goals struct {
	Primary Goal     `json:"primary"`
	Badges  []string `json:"badges"`
}

// FitnessData is the per-user aggregate document.
type FitnessData struct {
	Steps            int               `json:"steps"`
	CaloriesBurned   int               `json:"calories_burned"`
	DailyActivity    DailyActivity     `json:"daily_activity"`
	WeeklyHighlights WeeklyHighlights  `json:"weekly_highlights"`
	WorkoutHistory   []Entry           `json:"workout_history"`
	StrengthData     ChartData         `json:"strength_data"`
	RecoveryScore    int               `json:"recovery_score"`
	MuscleReadiness  []MuscleReadiness `json:"muscle_readiness"`
	Goals            Goals             `json:"goals"`
	Heatmap          map[string]int    `json:"calendar_heatmap"`
}

var muscles = []string{
	"Chest", "Back", "Biceps", "Triceps", "Shoulders",
	"Quads", "Hamstrings", "Glutes", "Calves", "Abs",
}

var tracked = []struct{ label, id string }{
	{"Squat (reps)", "squat"},
	{"Push-ups (reps)", "push-up"},
	{"Plank (seconds)", "plank"},
}

// Initial returns the aggregates of a user with no workouts. The strength chart
// covers the months up to and including now.
func Initial(now time.Time) FitnessData {
	d := FitnessData{
		WeeklyHighlights: WeeklyHighlights{BestLift: BestLift{Exercise: "N/A"}},
		RecoveryScore:    100,
		Goals:            Goals{Primary: Goal{Name: "Set your first goal!"}, Badges: []string{}},
		Heatmap:          map[string]int{},
		WorkoutHistory:   []Entry{},
	}
	for _, m := range muscles {
		d.MuscleReadiness = append(d.MuscleReadiness, MuscleReadiness{Name: m, Readiness: Fresh})
	}
	first := time.Date(now.Year(), now.Month()-chartMonths+1, 1, 0, 0, 0, 0, now.Location())
	for i := 0; i < chartMonths; i++ {
		d.StrengthData.Labels = append(d.StrengthData.Labels, monthLabel(first.AddDate(0, i, 0)))
	}
	for _, tr := range tracked {
		d.StrengthData.Datasets = append(d.StrengthData.Datasets, ChartDataset{
			Label: tr.label, ExerciseID: tr.id, Data: make([]int, chartMonths),
		})
	}
	return d
}

func monthLabel(t time.Time) string { return t.Format("Jan 2006") }

// MuscleGroups returns the muscles a plan category loads. Cardio loads none
// in particular.
func MuscleGroups(c models.Category) []string {
	switch c {
	case models.CategoryLowerBody:
		return []string{"Quads", "Hamstrings", "Glutes", "Calves"}
	case models.CategoryUpperBody:
		return []string{"Chest", "Back", "Shoulders", "Biceps", "Triceps", "Abs"}
	}
	return nil
}

var leadingInt = regexp.MustCompile(`^\s*(\d+)`)

func parseLeading(s string) (int, bool) {
	m := leadingInt.FindStringSubmatch(s)
	if m == nil {
		return 0, false
	}
	n, err := strconv.Atoi(m[1])
	return n, err == nil
}

// Volume converts a breakdown value into a chart amount: "3x12 reps" is 36,
// "45s" is 45. Unparseable values count as 0.
func Volume(value string) int {
	if strings.Contains(value, "x") {
		parts := strings.Split(value, "x")
		if len(parts) != 2 {
			return 0
		}
		sets, ok1 := parseLeading(parts[0])
		each, ok2 := parseLeading(parts[1])
		if !ok1 || !ok2 {
			return 0
		}
		return sets * each
	}
	n, _ := parseLeading(value)
	return n
}

// AddWorkout returns d with res applied as of now. d is not modified.
func AddWorkout(d FitnessData, res models.SessionResult, now time.Time) FitnessData {
	d = clone(d)
	today := now.Format(dateLayout)
	yesterday := now.AddDate(0, 0, -1).Format(dateLayout)

	var last string
	if len(d.WorkoutHistory) > 0 {
		last = d.WorkoutHistory[0].Date
	}

	d.WorkoutHistory = append([]Entry{{SessionResult: res, Date: today}}, d.WorkoutHistory...)
	d.CaloriesBurned += res.Calories
	d.DailyActivity.WorkoutTime += (res.DurationSec + 30) / 60
	if res.Category == models.CategoryCardio {
		d.DailyActivity.CardioTime += (res.DurationSec + 30) / 60
	}
	d.Heatmap[today] = min(d.Heatmap[today]+1, maxIntensity)

	worked := MuscleGroups(res.Category)
	for i, m := range d.MuscleReadiness {
		for _, w := range worked {
			if m.Name == w {
				d.MuscleReadiness[i].Readiness = Recovering
			}
		}
	}
	d.RecoveryScore = RecoveryScore(d.MuscleReadiness)

	// Several workouts on one day count once.
	if last != today {
		if last == yesterday {
			d.WeeklyHighlights.Streak++
		} else {
			d.WeeklyHighlights.Streak = 1
		}
	}
	d.WeeklyHighlights.CaloriesBurned += res.Calories

	idx := monthIndex(&d.StrengthData, now)
	for _, b := range res.Breakdown {
		v := Volume(b.Value)
		if v <= 0 {
			continue
		}
		for i := range d.StrengthData.Datasets {
			if d.StrengthData.Datasets[i].ExerciseID == b.ID {
				d.StrengthData.Datasets[i].Data[idx] += v
			}
		}
	}
	return d
}

// RecoveryScore is 100 minus 5 per recovering and 10 per sore muscle group.
func RecoveryScore(rs []MuscleReadiness) int {
	score := 100
	for _, m := range rs {
		switch m.Readiness {
		case Recovering:
			score -= 5
		case Sore:
			score -= 10
		}
	}
	return max(score, 0)
}

// monthIndex returns the chart column for now's month, sliding the window
// forward when now is past the last label.
func monthIndex(c *ChartData, now time.Time) int {
	label := monthLabel(now)
	for i, l := range c.Labels {
		if l == label {
			return i
		}
	}
	if len(c.Labels) == 0 {
		return 0
	}
	c.Labels = append(c.Labels[1:], label)
	for i := range c.Datasets {
		c.Datasets[i].Data = append(c.Datasets[i].Data[1:], 0)
	}
	return len(c.Labels) - 1
}

func clone(d FitnessData) FitnessData {
	out := d
	out.WorkoutHistory = append([]Entry(nil), d.WorkoutHistory...)
	out.MuscleReadiness = append([]MuscleReadiness(nil), d.MuscleReadiness...)
	out.Goals.Badges = append([]string(nil), d.Goals.Badges...)
	out.StrengthData.Labels = append([]string(nil), d.StrengthData.Labels...)
	out.StrengthData.Datasets = make([]ChartDataset, len(d.StrengthData.Datasets))
	for i, ds := range d.StrengthData.Datasets {
		ds.Data = append([]int(nil), ds.Data...)
		out.StrengthData.Datasets[i] = ds
	}
	out.Heatmap = make(map[string]int, len(d.Heatmap))
	for k, v := range d.Heatmap {
		out.Heatmap[k] = v
	}
	return out
}

// Stats are the derived numbers shown on the dashboard.
type Stats struct {
	Steps              int `json:"steps"`
	CaloriesBurned     int `json:"calories_burned"`
	StepGoal           int `json:"step_goal"`
	CalorieTarget      int `json:"calorie_target"`
	StepGoalPercentage int `json:"step_goal_percentage"`
	CaloriesRemaining  int `json:"calories_remaining"`
	WeeklyWorkouts     int `json:"weekly_workouts"`
	WeeklyGoal         int `json:"weekly_goal"`
}

// Summarize derives dashboard stats as of now.
func Summarize(d FitnessData, now time.Time) Stats {
	s := Stats{
		Steps:             d.Steps,
		CaloriesBurned:    d.CaloriesBurned,
		StepGoal:          StepGoal,
		CalorieTarget:     CalorieTarget,
		CaloriesRemaining: max(0, CalorieTarget-d.CaloriesBurned),
		WeeklyGoal:        WeeklyGoal,
	}
	s.StepGoalPercentage = min(int(float64(d.Steps)/StepGoal*100+0.5), 100)

	since := now.AddDate(0, 0, -6).Format(dateLayout)
	for _, e := range d.WorkoutHistory {
		if e.Date >= since {
			s.WeeklyWorkouts++
		}
	}
	return s
}

// Dashboard is the aggregate document with its derived stats, as served by
// the history API.
type Dashboard struct {
	Data  FitnessData `json:"data"`
	Stats Stats       `json:"stats"`
}

// NewDashboard pairs d with its stats as of now.
func NewDashboard(d FitnessData, now time.Time) Dashboard {
	return Dashboard{Data: d, Stats: Summarize(d, now)}
}
