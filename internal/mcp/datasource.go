package mcp

import (
	"context"
	"time"

	"github.com/fitflow/fitflow/internal/history"
	"github.com/fitflow/fitflow/internal/storage"
)

// DataSource abstracts the data layer for MCP tools. Both *storage.DB (on the
// server) and client.History (remote via the REST API) satisfy it.
type DataSource interface {
	QueryWorkouts(ctx context.Context, userID string, q storage.WorkoutQuery) ([]storage.Workout, error)
	GetFitnessData(ctx context.Context, userID string, now time.Time) (history.FitnessData, error)
	GetDataStats(ctx context.Context, userID string) (*storage.DataStats, error)
	GetWorkoutSummary(ctx context.Context, userID string, start, end time.Time, bucket string) ([]storage.SummaryPeriod, error)
}

// Compile-time check: *storage.DB satisfies DataSource.
var _ DataSource = (*storage.DB)(nil)
