package storage

import (
	"context"
	"fmt"
)

// EnsureUser records a user id issued by the auth backend. last_seen and
// display_name are refreshed on each call.
func (db *DB) EnsureUser(ctx context.Context, userID, displayName string) error {
	_, err := db.Pool.Exec(ctx, `
		INSERT INTO users (id, display_name)
		VALUES ($1, $2)
		ON CONFLICT (id) DO UPDATE
			SET last_seen = NOW(), display_name = COALESCE(NULLIF($2, ''), users.display_name)
	`, userID, displayName)
	if err != nil {
		return fmt.Errorf("upserting user: %w", err)
	}
	return nil
}
