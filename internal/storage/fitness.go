package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/fitflow/fitflow/internal/history"
)

// GetFitnessData returns a user's aggregates, or fresh ones if none are stored.
func (db *DB) GetFitnessData(ctx context.Context, userID string, now time.Time) (history.FitnessData, error) {
	return loadFitness(ctx, db.Pool, userID, now, false)
}

// SaveFitnessData replaces a user's aggregates.
func (db *DB) SaveFitnessData(ctx context.Context, userID string, data history.FitnessData) error {
	return saveFitness(ctx, db.Pool, userID, data)
}

// ResetFitnessData deletes a user's workouts and aggregates.
func (db *DB) ResetFitnessData(ctx context.Context, userID string) error {
	tx, err := db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning reset: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM workouts WHERE user_id = $1`, userID); err != nil {
		return fmt.Errorf("deleting workouts: %w", err)
	}
	if _, err := tx.Exec(ctx, `DELETE FROM fitness_data WHERE user_id = $1`, userID); err != nil {
		return fmt.Errorf("deleting fitness data: %w", err)
	}
	return tx.Commit(ctx)
}

type execQuerier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func loadFitness(ctx context.Context, q execQuerier, userID string, now time.Time, forUpdate bool) (history.FitnessData, error) {
	query := `SELECT data FROM fitness_data WHERE user_id = $1`
	if forUpdate {
		query += ` FOR UPDATE`
	}
	var raw []byte
	err := q.QueryRow(ctx, query, userID).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return history.Initial(now), nil
	}
	if err != nil {
		return history.FitnessData{}, fmt.Errorf("querying fitness data: %w", err)
	}
	var data history.FitnessData
	if err := json.Unmarshal(raw, &data); err != nil {
		return history.FitnessData{}, fmt.Errorf("decoding fitness data: %w", err)
	}
	if data.Heatmap == nil {
		data.Heatmap = map[string]int{}
	}
	return data, nil
}

func saveFitness(ctx context.Context, q execQuerier, userID string, data history.FitnessData) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("encoding fitness data: %w", err)
	}
	_, err = q.Exec(ctx, `
		INSERT INTO fitness_data (user_id, data, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (user_id) DO UPDATE SET data = EXCLUDED.data, updated_at = NOW()
	`, userID, raw)
	if err != nil {
		return fmt.Errorf("saving fitness data: %w", err)
	}
	return nil
}
