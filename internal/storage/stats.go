package storage

import (
	"context"
	"fmt"
	"time"
)

// DataStats holds aggregate statistics about a user's stored workouts.
type DataStats struct {
	TotalWorkouts int64      `json:"total_workouts"`
	TotalReps     int64      `json:"total_reps"`
	TotalCalories int64      `json:"total_calories"`
	TotalDuration int64      `json:"total_duration_sec"`
	Earliest      *time.Time `json:"earliest"`
	Latest        *time.Time `json:"latest"`
	ByPlan        []PlanStat `json:"by_plan"`
}

// PlanStat holds summary stats for one workout plan.
type PlanStat struct {
	PlanID        string `json:"plan_id"`
	PlanName      string `json:"plan_name"`
	Count         int64  `json:"count"`
	TotalReps     int64  `json:"total_reps"`
	TotalDuration int64  `json:"total_duration_sec"`
}

// GetDataStats returns aggregate statistics for a user's stored workouts.
func (db *DB) GetDataStats(ctx context.Context, userID string) (*DataStats, error) {
	stats := &DataStats{ByPlan: []PlanStat{}}

	err := db.Pool.QueryRow(ctx,
		`SELECT COUNT(*), COALESCE(SUM(reps), 0), COALESCE(SUM(calories), 0), COALESCE(SUM(duration_sec), 0),
		        MIN(completed_at), MAX(completed_at)
		 FROM workouts WHERE user_id = $1`, userID,
	).Scan(&stats.TotalWorkouts, &stats.TotalReps, &stats.TotalCalories, &stats.TotalDuration,
		&stats.Earliest, &stats.Latest)
	if err != nil {
		return nil, fmt.Errorf("counting workouts: %w", err)
	}

	rows, err := db.Pool.Query(ctx,
		`SELECT plan_id, MAX(plan_name), COUNT(*), COALESCE(SUM(reps), 0), COALESCE(SUM(duration_sec), 0)
		 FROM workouts
		 WHERE user_id = $1
		 GROUP BY plan_id
		 ORDER BY COUNT(*) DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("querying workouts by plan: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var s PlanStat
		if err := rows.Scan(&s.PlanID, &s.PlanName, &s.Count, &s.TotalReps, &s.TotalDuration); err != nil {
			return nil, fmt.Errorf("scanning plan stat: %w", err)
		}
		stats.ByPlan = append(stats.ByPlan, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return stats, nil
}
