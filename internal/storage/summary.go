package storage

import (
	"context"
	"fmt"
	"time"
)

// CategoryPeriodSummary holds aggregated workout stats for one plan category within a period.
type CategoryPeriodSummary struct {
	Category      string  `json:"category"`
	Count         int     `json:"count"`
	AvgDuration   float64 `json:"avg_duration_sec"`
	TotalReps     int     `json:"total_reps"`
	TotalCalories int     `json:"total_calories"`
}

// SummaryPeriod holds workout totals for one time period.
type SummaryPeriod struct {
	Period     string                  `json:"period"`
	Workouts   int                     `json:"workouts"`
	Reps       int                     `json:"reps"`
	Calories   int                     `json:"calories"`
	Categories []CategoryPeriodSummary `json:"categories"`
}

// GetWorkoutSummary returns a user's workout totals per period, newest first.
// bucket is "1 week" or "1 month".
func (db *DB) GetWorkoutSummary(ctx context.Context, userID string, start, end time.Time, bucket string) ([]SummaryPeriod, error) {
	rows, err := db.Pool.Query(ctx,
		`SELECT date_trunc($1, completed_at)::date AS period,
		        category,
		        COUNT(*)::int,
		        AVG(duration_sec)::float8,
		        COALESCE(SUM(reps), 0)::int,
		        COALESCE(SUM(calories), 0)::int
		 FROM workouts
		 WHERE user_id = $2 AND completed_at >= $3 AND completed_at < $4
		 GROUP BY period, category
		 ORDER BY period DESC, COUNT(*) DESC`,
		truncInterval(bucket), userID, start, end)
	if err != nil {
		return nil, fmt.Errorf("querying workout summary: %w", err)
	}
	defer rows.Close()

	periodMap := make(map[string]*SummaryPeriod)
	var periodOrder []string

	for rows.Next() {
		var periodTime time.Time
		var cs CategoryPeriodSummary
		if err := rows.Scan(&periodTime, &cs.Category, &cs.Count, &cs.AvgDuration, &cs.TotalReps, &cs.TotalCalories); err != nil {
			return nil, fmt.Errorf("scanning workout summary: %w", err)
		}
		key := periodTime.Format("2006-01-02")
		p, ok := periodMap[key]
		if !ok {
			p = &SummaryPeriod{Period: key}
			periodMap[key] = p
			periodOrder = append(periodOrder, key)
		}
		p.Workouts += cs.Count
		p.Reps += cs.TotalReps
		p.Calories += cs.TotalCalories
		p.Categories = append(p.Categories, cs)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	result := make([]SummaryPeriod, 0, len(periodOrder))
	for _, key := range periodOrder {
		result = append(result, *periodMap[key])
	}
	return result, nil
}

// truncInterval converts bucket strings like "1 month" to the interval name
// that date_trunc expects.
func truncInterval(bucket string) string {
	switch bucket {
	case "1 day":
		return "day"
	case "1 week":
		return "week"
	default:
		return "month"
	}
}

// ValidBucket reports whether bucket is a supported summary bucket.
func ValidBucket(bucket string) bool {
	switch bucket {
	case "1 day", "1 week", "1 month":
		return true
	}
	return false
}
