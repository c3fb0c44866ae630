package client

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/fitflow/fitflow/internal/history"
	"github.com/fitflow/fitflow/internal/models"
	"github.com/fitflow/fitflow/internal/storage"
)

// submitAttempts bounds SubmitWorkout retries.
const submitAttempts = 3

// Identity is the caller as the history API sees it.
type Identity struct {
	UserID string `json:"user_id"`
}

// Submitted mirrors the history API's reply to a workout upload.
type Submitted struct {
	Inserted bool                `json:"inserted"`
	Fitness  history.FitnessData `json:"fitness"`
}

// History is a client for the FitFlow history API. It also serves as an MCP
// data source when the CLI runs the assistant tools against a remote server;
// the bearer token scopes every call, so userID arguments are ignored.
type History struct {
	base
	log           *slog.Logger
	retryInterval time.Duration
}

// NewHistory creates a history API client authenticated with token.
func NewHistory(baseURL, token string, log *slog.Logger) *History {
	return &History{
		base:          newBase(baseURL, token),
		log:           log,
		retryInterval: time.Second,
	}
}

// Me returns the identity behind the token.
func (h *History) Me(ctx context.Context) (*Identity, error) {
	var id Identity
	if err := h.do(ctx, http.MethodGet, "/api/v1/me", nil, nil, &id); err != nil {
		return nil, err
	}
	return &id, nil
}

// SubmitWorkout uploads a session result. Network failures and 5xx replies
// are retried with exponential backoff; other replies are final. The server
// stores a result once, so a retry after a lost reply is safe.
func (h *History) SubmitWorkout(ctx context.Context, res models.SessionResult) (*Submitted, error) {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = h.retryInterval

	attempt := 0
	op := func() (*Submitted, error) {
		attempt++
		var out Submitted
		err := h.do(ctx, http.MethodPost, "/api/v1/workouts", nil, res, &out)
		if err == nil {
			return &out, nil
		}
		var se *StatusError
		if errors.As(err, &se) && se.Status < http.StatusInternalServerError {
			return nil, backoff.Permanent(err)
		}
		h.log.Warn("workout upload failed", "id", res.ID, "attempt", attempt, "error", err)
		return nil, err
	}

	out, err := backoff.Retry(ctx, op, backoff.WithBackOff(bo), backoff.WithMaxTries(submitAttempts))
	if err != nil {
		return nil, fmt.Errorf("uploading workout %s: %w", res.ID, err)
	}
	return out, nil
}

// Workouts lists the caller's stored workouts, newest first.
func (h *History) Workouts(ctx context.Context, q storage.WorkoutQuery) ([]storage.Workout, error) {
	params := url.Values{}
	if !q.Start.IsZero() {
		params.Set("start", q.Start.Format(time.RFC3339))
	}
	if !q.End.IsZero() {
		params.Set("end", q.End.Format(time.RFC3339))
	}
	if q.PlanID != "" {
		params.Set("plan", q.PlanID)
	}
	if q.Limit > 0 {
		params.Set("limit", strconv.Itoa(q.Limit))
	}

	var out []storage.Workout
	if err := h.do(ctx, http.MethodGet, "/api/v1/workouts", params, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Fitness returns the caller's aggregates and dashboard stats.
func (h *History) Fitness(ctx context.Context) (*history.Dashboard, error) {
	var out history.Dashboard
	if err := h.do(ctx, http.MethodGet, "/api/v1/fitness", nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ResetFitness deletes the caller's workouts and aggregates.
func (h *History) ResetFitness(ctx context.Context) error {
	return h.do(ctx, http.MethodDelete, "/api/v1/fitness", nil, nil, nil)
}

// Stats returns lifetime totals.
func (h *History) Stats(ctx context.Context) (*storage.DataStats, error) {
	var out storage.DataStats
	if err := h.do(ctx, http.MethodGet, "/api/v1/stats", nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// QueryWorkouts implements mcp.DataSource.
func (h *History) QueryWorkouts(ctx context.Context, _ string, q storage.WorkoutQuery) ([]storage.Workout, error) {
	return h.Workouts(ctx, q)
}

// GetFitnessData implements mcp.DataSource.
func (h *History) GetFitnessData(ctx context.Context, _ string, _ time.Time) (history.FitnessData, error) {
	d, err := h.Fitness(ctx)
	if err != nil {
		return history.FitnessData{}, err
	}
	return d.Data, nil
}

// GetDataStats implements mcp.DataSource.
func (h *History) GetDataStats(ctx context.Context, _ string) (*storage.DataStats, error) {
	return h.Stats(ctx)
}

// Summary returns workout totals per bucket ("1 day", "1 week" or "1 month").
// A zero start asks for the server's default window.
func (h *History) Summary(ctx context.Context, start, end time.Time, bucket string) ([]storage.SummaryPeriod, error) {
	params := url.Values{}
	if !start.IsZero() {
		params.Set("start", start.Format(time.RFC3339))
	}
	if !end.IsZero() {
		params.Set("end", end.Format(time.RFC3339))
	}
	if bucket != "" {
		params.Set("bucket", bucket)
	}

	var out []storage.SummaryPeriod
	if err := h.do(ctx, http.MethodGet, "/api/v1/workouts/summary", params, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetWorkoutSummary implements mcp.DataSource.
func (h *History) GetWorkoutSummary(ctx context.Context, _ string, start, end time.Time, bucket string) ([]storage.SummaryPeriod, error) {
	return h.Summary(ctx, start, end, bucket)
}
