package storage

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/fitflow/fitflow/internal/history"
	"github.com/fitflow/fitflow/internal/models"
)

// Workout is a stored session with its per-exercise breakdown.
type Workout struct {
	models.WorkoutRow
	Exercises []models.BreakdownEntry `json:"exercises"`
}

// WorkoutQuery filters QueryWorkouts. Zero values mean no bound.
type WorkoutQuery struct {
	Start  time.Time
	End    time.Time
	PlanID string
	Limit  int
}

// RecordWorkout stores a completed session and folds it into the user's
// aggregates in one transaction. A result whose id is already stored is not
// applied twice; inserted reports whether this call stored it.
func (db *DB) RecordWorkout(ctx context.Context, userID string, res models.SessionResult, now time.Time) (data history.FitnessData, inserted bool, err error) {
	tx, err := db.Pool.Begin(ctx)
	if err != nil {
		return history.FitnessData{}, false, fmt.Errorf("beginning workout insert: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx,
		`INSERT INTO workouts (id, user_id, plan_id, plan_name, category, reps, duration_sec, calories, started_at, completed_at)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
		 ON CONFLICT (id) DO NOTHING`,
		res.ID, userID, res.PlanID, res.PlanName, string(res.Category), res.Reps, res.DurationSec, res.Calories,
		res.StartedAt, res.CompletedAt)
	if err != nil {
		return history.FitnessData{}, false, fmt.Errorf("inserting workout: %w", err)
	}
	inserted = tag.RowsAffected() > 0

	if inserted && len(res.Breakdown) > 0 {
		query := `INSERT INTO workout_exercises (workout_id, position, exercise_id, name, value) VALUES `
		args := make([]any, 0, len(res.Breakdown)*5)
		valueStrings := make([]string, 0, len(res.Breakdown))
		for i, b := range res.Breakdown {
			base := i * 5
			valueStrings = append(valueStrings, fmt.Sprintf("($%d,$%d,$%d,$%d,$%d)",
				base+1, base+2, base+3, base+4, base+5))
			args = append(args, res.ID, i, b.ID, b.Name, b.Value)
		}
		if _, err := tx.Exec(ctx, query+strings.Join(valueStrings, ","), args...); err != nil {
			return history.FitnessData{}, false, fmt.Errorf("inserting workout exercises: %w", err)
		}
	}

	data, err = loadFitness(ctx, tx, userID, now, true)
	if err != nil {
		return history.FitnessData{}, false, err
	}
	if inserted {
		data = history.AddWorkout(data, res, now)
		if err := saveFitness(ctx, tx, userID, data); err != nil {
			return history.FitnessData{}, false, err
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return history.FitnessData{}, false, fmt.Errorf("committing workout: %w", err)
	}
	return data, inserted, nil
}

// QueryWorkouts retrieves a user's workouts, newest first.
func (db *DB) QueryWorkouts(ctx context.Context, userID string, q WorkoutQuery) ([]Workout, error) {
	query := `SELECT id, user_id, plan_id, plan_name, category, reps, duration_sec, calories, started_at, completed_at
		 FROM workouts
		 WHERE user_id = $1`
	args := []any{userID}
	if !q.Start.IsZero() {
		args = append(args, q.Start)
		query += fmt.Sprintf(" AND completed_at >= $%d", len(args))
	}
	if !q.End.IsZero() {
		args = append(args, q.End)
		query += fmt.Sprintf(" AND completed_at < $%d", len(args))
	}
	if q.PlanID != "" {
		args = append(args, q.PlanID)
		query += fmt.Sprintf(" AND plan_id = $%d", len(args))
	}
	query += " ORDER BY completed_at DESC"
	if q.Limit > 0 {
		args = append(args, q.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	rows, err := db.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying workouts: %w", err)
	}
	defer rows.Close()

	workouts, err := scanWorkoutRows(rows)
	if err != nil {
		return nil, err
	}
	if len(workouts) == 0 {
		return workouts, nil
	}

	ids := make([]uuid.UUID, len(workouts))
	byID := make(map[uuid.UUID]*Workout, len(workouts))
	for i := range workouts {
		ids[i] = workouts[i].ID
		byID[workouts[i].ID] = &workouts[i]
	}

	exRows, err := db.Pool.Query(ctx,
		`SELECT workout_id, exercise_id, name, value
		 FROM workout_exercises
		 WHERE workout_id = ANY($1)
		 ORDER BY workout_id, position`,
		ids)
	if err != nil {
		return nil, fmt.Errorf("querying workout exercises: %w", err)
	}
	defer exRows.Close()

	for exRows.Next() {
		var id uuid.UUID
		var b models.BreakdownEntry
		if err := exRows.Scan(&id, &b.ID, &b.Name, &b.Value); err != nil {
			return nil, fmt.Errorf("scanning workout exercise: %w", err)
		}
		if w, ok := byID[id]; ok {
			w.Exercises = append(w.Exercises, b)
		}
	}
	return workouts, exRows.Err()
}

func scanWorkoutRows(rows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}) ([]Workout, error) {
	result := []Workout{}
	for rows.Next() {
		var w Workout
		if err := rows.Scan(&w.ID, &w.UserID, &w.PlanID, &w.PlanName, &w.Category, &w.Reps,
			&w.DurationSec, &w.Calories, &w.StartedAt, &w.CompletedAt); err != nil {
			return nil, fmt.Errorf("scanning workout: %w", err)
		}
		result = append(result, w)
	}
	return result, rows.Err()
}
