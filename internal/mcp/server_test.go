package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/fitflow/fitflow/internal/history"
	"github.com/fitflow/fitflow/internal/models"
	"github.com/fitflow/fitflow/internal/plans"
	"github.com/fitflow/fitflow/internal/storage"
)

var fixedNow = time.Date(2026, time.April, 10, 18, 0, 0, 0, time.UTC)

type fakeSource struct {
	lastUser  string
	lastQuery storage.WorkoutQuery
	workouts  []storage.Workout
	data      history.FitnessData
	err       error
}

func (f *fakeSource) QueryWorkouts(_ context.Context, userID string, q storage.WorkoutQuery) ([]storage.Workout, error) {
	f.lastUser, f.lastQuery = userID, q
	return f.workouts, f.err
}

func (f *fakeSource) GetFitnessData(_ context.Context, userID string, _ time.Time) (history.FitnessData, error) {
	f.lastUser = userID
	return f.data, f.err
}

func (f *fakeSource) GetDataStats(context.Context, string) (*storage.DataStats, error) {
	return &storage.DataStats{TotalWorkouts: int64(len(f.workouts))}, nil
}

func (f *fakeSource) GetWorkoutSummary(_ context.Context, userID string, start, end time.Time, bucket string) ([]storage.SummaryPeriod, error) {
	f.lastUser = userID
	f.lastQuery = storage.WorkoutQuery{Start: start, End: end, PlanID: bucket}
	return []storage.SummaryPeriod{{Period: "2026-04-06", Workouts: 2}}, f.err
}

func newHandlers(t *testing.T, ds DataSource) *handlers {
	t.Helper()
	cat, err := plans.Default()
	if err != nil {
		t.Fatal(err)
	}
	return &handlers{
		ds:      ds,
		catalog: cat,
		log:     slog.New(slog.NewTextHandler(io.Discard, nil)),
		now:     func() time.Time { return fixedNow },
	}
}

func callTool(name string, args map[string]any) mcp.CallToolRequest {
	var req mcp.CallToolRequest
	req.Params.Name = name
	req.Params.Arguments = args
	return req
}

func resultText(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	if len(res.Content) == 0 {
		t.Fatal("empty tool result")
	}
	tc, ok := res.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("content = %T, want TextContent", res.Content[0])
	}
	return tc.Text
}

// TestUserIDFromContextDefault verifies the local user when no value is set
// in the context.
func TestUserIDFromContextDefault(t *testing.T) {
	if id := UserIDFromContext(context.Background()); id != LocalUser {
		t.Errorf("UserIDFromContext(empty) = %q, want %q", id, LocalUser)
	}
}

// TestUserIDFromContextSet verifies the user ID is extracted from context
// after being set by WithUserID.
func TestUserIDFromContextSet(t *testing.T) {
	ctx := WithUserID(context.Background(), "user-42")
	if id := UserIDFromContext(ctx); id != "user-42" {
		t.Errorf("UserIDFromContext = %q, want user-42", id)
	}
}

// TestDefaultTimeRange verifies time range defaults (last 7 days) and parsing.
func TestDefaultTimeRange(t *testing.T) {
	start, end, err := defaultTimeRange("", "", fixedNow)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !end.Equal(fixedNow) || end.Sub(start) != 7*24*time.Hour {
		t.Errorf("default range = %v..%v", start, end)
	}

	start, end, err = defaultTimeRange("2024-01-01", "2024-01-31", fixedNow)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if start.Year() != 2024 || start.Month() != 1 || start.Day() != 1 {
		t.Errorf("start = %v, want 2024-01-01", start)
	}
	if end.Day() != 31 {
		t.Errorf("end = %v, want 2024-01-31", end)
	}

	start, _, err = defaultTimeRange("2024-06-15T10:30:00Z", "", fixedNow)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if start.Hour() != 10 || start.Minute() != 30 {
		t.Errorf("start = %v, want 10:30", start)
	}

	if _, _, err = defaultTimeRange("not-a-date", "", fixedNow); err == nil {
		t.Error("expected error for invalid date")
	}
}

// get_workouts passes the filters through and scopes the query to the caller.
func TestGetWorkouts(t *testing.T) {
	ds := &fakeSource{workouts: []storage.Workout{{
		WorkoutRow: models.WorkoutRow{ID: uuid.New(), PlanID: "cardio-burn", Reps: 80},
		Exercises:  []models.BreakdownEntry{{ID: "high-knees", Name: "High Knees", Value: "1x20 reps"}},
	}}}
	h := newHandlers(t, ds)

	ctx := WithUserID(context.Background(), "user-7")
	res, err := h.getWorkouts(ctx, callTool("get_workouts", map[string]any{"plan": "cardio-burn", "start": "2026-04-01"}))
	if err != nil {
		t.Fatal(err)
	}
	if res.IsError {
		t.Fatalf("tool error: %s", resultText(t, res))
	}
	if ds.lastUser != "user-7" || ds.lastQuery.PlanID != "cardio-burn" || ds.lastQuery.Limit != 50 {
		t.Errorf("query = %q %+v", ds.lastUser, ds.lastQuery)
	}
	if ds.lastQuery.Start.Day() != 1 || !ds.lastQuery.End.Equal(fixedNow) {
		t.Errorf("range = %v..%v", ds.lastQuery.Start, ds.lastQuery.End)
	}

	var got []storage.Workout
	if err := json.Unmarshal([]byte(resultText(t, res)), &got); err != nil {
		t.Fatalf("decoding result: %v", err)
	}
	if len(got) != 1 || got[0].Exercises[0].ID != "high-knees" {
		t.Errorf("workouts = %+v", got)
	}
}

// Bad input and data source failures are reported as tool errors, not protocol errors.
func TestGetWorkoutsErrors(t *testing.T) {
	h := newHandlers(t, &fakeSource{})
	res, err := h.getWorkouts(context.Background(), callTool("get_workouts", map[string]any{"start": "yesterday"}))
	if err != nil || !res.IsError {
		t.Errorf("invalid date: res=%+v err=%v", res, err)
	}

	h = newHandlers(t, &fakeSource{err: errors.New("db down")})
	res, err = h.getWorkouts(context.Background(), callTool("get_workouts", nil))
	if err != nil || !res.IsError {
		t.Errorf("query failure: res=%+v err=%v", res, err)
	}
}

func TestGetFitnessSummary(t *testing.T) {
	data := history.AddWorkout(history.Initial(fixedNow), models.SessionResult{
		Calories: 40, Category: models.CategoryLowerBody, DurationSec: 600,
	}, fixedNow)
	h := newHandlers(t, &fakeSource{data: data, workouts: make([]storage.Workout, 3)})

	res, err := h.getFitnessSummary(context.Background(), callTool("get_fitness_summary", nil))
	if err != nil || res.IsError {
		t.Fatalf("res=%+v err=%v", res, err)
	}

	var got fitnessSummary
	if err := json.Unmarshal([]byte(resultText(t, res)), &got); err != nil {
		t.Fatal(err)
	}
	if got.Stats.WeeklyWorkouts != 1 || got.Stats.CaloriesBurned != 40 || got.Streak != 1 {
		t.Errorf("summary = %+v", got)
	}
	if got.RecoveryScore != data.RecoveryScore || got.Totals == nil || got.Totals.TotalWorkouts != 3 {
		t.Errorf("summary = %+v", got)
	}
}

// list_plans filters by category and adds the level's exercises when asked.
func TestListPlans(t *testing.T) {
	h := newHandlers(t, &fakeSource{})

	res, err := h.listPlans(context.Background(), callTool("list_plans", map[string]any{"category": "Cardio", "level": "Beginner"}))
	if err != nil || res.IsError {
		t.Fatalf("res=%+v err=%v", res, err)
	}

	var got struct {
		Plans     []models.WorkoutPlan `json:"plans"`
		Exercises []models.Exercise    `json:"exercises"`
	}
	if err := json.Unmarshal([]byte(resultText(t, res)), &got); err != nil {
		t.Fatal(err)
	}
	if len(got.Plans) != 1 || got.Plans[0].ID != "cardio-burn" {
		t.Errorf("plans = %+v", got.Plans)
	}
	if len(got.Exercises) == 0 {
		t.Error("expected beginner exercises")
	}
}

func TestRecentWorkoutsResource(t *testing.T) {
	ds := &fakeSource{workouts: []storage.Workout{}}
	h := newHandlers(t, ds)

	var req mcp.ReadResourceRequest
	req.Params.URI = "fitflow://recent_workouts"
	contents, err := h.recentWorkouts(context.Background(), req)
	if err != nil {
		t.Fatal(err)
	}
	if len(contents) != 1 {
		t.Fatalf("contents = %d", len(contents))
	}
	text := contents[0].(mcp.TextResourceContents)
	if text.Text != "[]" || text.URI != "fitflow://recent_workouts" {
		t.Errorf("resource = %+v", text)
	}
	if got := fixedNow.Sub(ds.lastQuery.Start); got != 14*24*time.Hour {
		t.Errorf("window = %v, want 14 days", got)
	}
}

func TestGetWorkoutSummary(t *testing.T) {
	ds := &fakeSource{}
	h := newHandlers(t, ds)
	ctx := WithUserID(context.Background(), "user-9")

	res, err := h.getWorkoutSummary(ctx, callTool("get_workout_summary", map[string]any{"bucket": "1 month"}))
	if err != nil {
		t.Fatal(err)
	}
	if res.IsError {
		t.Fatalf("tool error: %s", resultText(t, res))
	}
	var periods []storage.SummaryPeriod
	if err := json.Unmarshal([]byte(resultText(t, res)), &periods); err != nil {
		t.Fatal(err)
	}
	if len(periods) != 1 || periods[0].Workouts != 2 {
		t.Errorf("periods = %+v", periods)
	}
	if ds.lastUser != "user-9" || ds.lastQuery.PlanID != "1 month" {
		t.Errorf("call = %q %+v", ds.lastUser, ds.lastQuery)
	}
	if got := ds.lastQuery.End.Sub(ds.lastQuery.Start); got != 90*24*time.Hour {
		t.Errorf("default window = %v, want 90 days", got)
	}

	res, _ = h.getWorkoutSummary(ctx, callTool("get_workout_summary", map[string]any{"bucket": "1 year"}))
	if !res.IsError {
		t.Error("expected error for unsupported bucket")
	}
}
