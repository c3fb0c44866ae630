package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"github.com/fitflow/fitflow/internal/history"
	"github.com/fitflow/fitflow/internal/models"
	"github.com/fitflow/fitflow/internal/session"
	"github.com/fitflow/fitflow/internal/storage"
)

var (
	headerColor  = color.New(color.FgCyan, color.Bold).SprintFunc()
	successColor = color.New(color.FgGreen, color.Bold).SprintFunc()
	errorColor   = color.New(color.FgRed, color.Bold).SprintFunc()
	warnColor    = color.New(color.FgYellow).SprintFunc()
	dimColor     = color.New(color.Faint).SprintFunc()
)

// statusLine renders one line of live session state.
func statusLine(s session.Snapshot) string {
	st := s.State
	switch st.Phase {
	case session.PhaseStarting:
		return "Starting camera..."
	case session.PhaseCountdown:
		if st.InitialCountdown != nil {
			return fmt.Sprintf("Get ready: %d", *st.InitialCountdown)
		}
	case session.PhaseExercising:
		line := fmt.Sprintf("%s  set %d/%d  %d/%s  %s",
			s.Exercise.Name, st.SetNumber, s.TotalSets, s.Count, s.Exercise.Unit(s.Target), elapsed(st.ElapsedSeconds))
		if s.Status != "" {
			line += "  " + dimColor(s.Status)
		}
		if st.LastError != "" {
			line += "  " + warnColor(st.LastError)
		}
		return line
	case session.PhasePaused:
		return warnColor("Paused") + " (r to resume)"
	case session.PhaseResting:
		if st.RestCountdown != nil {
			next := "next set"
			if st.NextIsNewExercise {
				next = "next exercise"
			}
			return fmt.Sprintf("Rest %ds before %s", *st.RestCountdown, next)
		}
	case session.PhaseError:
		return errorColor(st.LastError) + " (t to retry, q to quit)"
	}
	return string(st.Phase)
}

func elapsed(sec int) string {
	return fmt.Sprintf("%02d:%02d", sec/60, sec%60)
}

func printResult(w io.Writer, r *models.SessionResult) {
	fmt.Fprintln(w, successColor("Workout complete: "+r.PlanName))
	fmt.Fprintf(w, "  Reps      %d\n", r.Reps)
	fmt.Fprintf(w, "  Duration  %s\n", elapsed(r.DurationSec))
	fmt.Fprintf(w, "  Calories  %d kcal\n", r.Calories)
	for _, b := range r.Breakdown {
		fmt.Fprintf(w, "  %-14s %s\n", b.Name, b.Value)
	}
}

func printPlan(w io.Writer, p models.WorkoutPlan) {
	fmt.Fprintf(w, "%s %s\n", headerColor(p.Name), dimColor("("+p.ID+")"))
	if p.Description != "" {
		fmt.Fprintf(w, "  %s\n", p.Description)
	}
	for _, ex := range p.Exercises {
		fmt.Fprintf(w, "  - %-16s %dx%s  %s\n", ex.Name, ex.SetCount(), ex.Unit(ex.PerSetTarget()), dimColor(string(ex.Difficulty)))
	}
}

func printDashboard(w io.Writer, d history.Dashboard, limit int) {
	s := d.Stats
	fmt.Fprintln(w, headerColor("This week"))
	fmt.Fprintf(w, "  Workouts   %d/%d\n", s.WeeklyWorkouts, s.WeeklyGoal)
	fmt.Fprintf(w, "  Calories   %d (%d to target)\n", s.CaloriesBurned, s.CaloriesRemaining)
	fmt.Fprintf(w, "  Streak     %d days\n", d.Data.WeeklyHighlights.Streak)
	fmt.Fprintf(w, "  Recovery   %d%%\n", d.Data.RecoveryScore)

	var sore []string
	for _, m := range d.Data.MuscleReadiness {
		if m.Readiness != history.Fresh {
			sore = append(sore, fmt.Sprintf("%s (%s)", m.Name, m.Readiness))
		}
	}
	if len(sore) > 0 {
		fmt.Fprintf(w, "  Resting    %s\n", strings.Join(sore, ", "))
	}

	fmt.Fprintln(w, headerColor("Recent workouts"))
	if len(d.Data.WorkoutHistory) == 0 {
		fmt.Fprintln(w, dimColor("  none yet"))
	}
	for i, e := range d.Data.WorkoutHistory {
		if i == limit {
			break
		}
		fmt.Fprintf(w, "  %s  %-22s %4d reps  %3d kcal\n", e.Date, e.PlanName, e.Reps, e.Calories)
	}
}

func printSummary(w io.Writer, periods []storage.SummaryPeriod) {
	if len(periods) == 0 {
		fmt.Fprintln(w, dimColor("No workouts in this window."))
		return
	}
	for _, p := range periods {
		var cats []string
		for _, c := range p.Categories {
			cats = append(cats, fmt.Sprintf("%s %d", c.Category, c.Count))
		}
		fmt.Fprintf(w, "%s  %2d workouts  %5d reps  %4d kcal  %s\n",
			headerColor(p.Period), p.Workouts, p.Reps, p.Calories, dimColor(strings.Join(cats, ", ")))
	}
}
