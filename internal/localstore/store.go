// Package localstore keeps the CLI's offline state in SQLite: the signed-in
// session, a per-user copy of the fitness aggregates, and an outbox of
// session results waiting to be uploaded.
package localstore

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/fitflow/fitflow/internal/history"
	"github.com/fitflow/fitflow/internal/models"
)

// ErrNoSession is returned when nobody is signed in.
var ErrNoSession = errors.New("not signed in")

// Session is the signed-in user and their bearer token.
type Session struct {
	User  models.UserProfile `json:"user"`
	Token string             `json:"token"`
}

// Store is the SQLite state database.
type Store struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS session (
	slot       INTEGER PRIMARY KEY CHECK (slot = 1),
	data       TEXT NOT NULL,
	updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);
CREATE TABLE IF NOT EXISTS fitness_cache (
	user_id    TEXT PRIMARY KEY,
	data       TEXT NOT NULL,
	updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);
CREATE TABLE IF NOT EXISTS outbox (
	id          TEXT PRIMARY KEY,
	user_id     TEXT NOT NULL,
	result      TEXT NOT NULL,
	created_at  TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
	uploaded_at TIMESTAMP
);`

// Open opens (or creates) the state database at dir/state.db.
func Open(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("creating state dir %s: %w", dir, err)
	}

	db, err := sql.Open("sqlite", filepath.Join(dir, "state.db"))
	if err != nil {
		return nil, fmt.Errorf("opening state db: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating state tables: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the state database.
func (s *Store) Close() error {
	return s.db.Close()
}

// SaveSession stores the signed-in user, replacing any previous one.
func (s *Store) SaveSession(sess Session) error {
	data, err := json.Marshal(sess)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(`INSERT OR REPLACE INTO session (slot, data, updated_at) VALUES (1, ?, CURRENT_TIMESTAMP)`, string(data))
	return err
}

// CurrentSession returns the signed-in user or ErrNoSession.
func (s *Store) CurrentSession() (*Session, error) {
	var data string
	err := s.db.QueryRow(`SELECT data FROM session WHERE slot = 1`).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNoSession
	}
	if err != nil {
		return nil, fmt.Errorf("reading session: %w", err)
	}
	var sess Session
	if err := json.Unmarshal([]byte(data), &sess); err != nil {
		return nil, fmt.Errorf("decoding session: %w", err)
	}
	return &sess, nil
}

// ClearSession signs out. Cached data and the outbox are kept.
func (s *Store) ClearSession() error {
	_, err := s.db.Exec(`DELETE FROM session`)
	return err
}

// SaveFitness caches a user's aggregates.
func (s *Store) SaveFitness(userID string, data history.FitnessData) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(`INSERT OR REPLACE INTO fitness_cache (user_id, data, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)`,
		userID, string(raw))
	return err
}

// Fitness returns the cached aggregates, or fresh ones for an unknown user.
func (s *Store) Fitness(userID string, now time.Time) (history.FitnessData, error) {
	var raw string
	err := s.db.QueryRow(`SELECT data FROM fitness_cache WHERE user_id = ?`, userID).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return history.Initial(now), nil
	}
	if err != nil {
		return history.FitnessData{}, fmt.Errorf("reading fitness cache: %w", err)
	}
	var data history.FitnessData
	if err := json.Unmarshal([]byte(raw), &data); err != nil {
		return history.FitnessData{}, fmt.Errorf("decoding fitness cache: %w", err)
	}
	if data.Heatmap == nil {
		data.Heatmap = map[string]int{}
	}
	return data, nil
}

// Enqueue adds a result to the upload outbox. Enqueueing the same result twice is a no-op.
func (s *Store) Enqueue(userID string, res models.SessionResult) error {
	raw, err := json.Marshal(res)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(`INSERT OR IGNORE INTO outbox (id, user_id, result) VALUES (?, ?, ?)`,
		res.ID.String(), userID, string(raw))
	return err
}

// Pending returns a user's results that have not been uploaded, oldest first.
func (s *Store) Pending(userID string) ([]models.SessionResult, error) {
	rows, err := s.db.Query(
		`SELECT result FROM outbox WHERE user_id = ? AND uploaded_at IS NULL ORDER BY created_at, rowid`, userID)
	if err != nil {
		return nil, fmt.Errorf("querying outbox: %w", err)
	}
	defer rows.Close()

	var out []models.SessionResult
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scanning outbox: %w", err)
		}
		var res models.SessionResult
		if err := json.Unmarshal([]byte(raw), &res); err != nil {
			return nil, fmt.Errorf("decoding outbox entry: %w", err)
		}
		out = append(out, res)
	}
	return out, rows.Err()
}

// MarkUploaded records that a result reached the server.
func (s *Store) MarkUploaded(id uuid.UUID) error {
	_, err := s.db.Exec(`UPDATE outbox SET uploaded_at = CURRENT_TIMESTAMP WHERE id = ?`, id.String())
	return err
}
