package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/fitflow/fitflow/internal/history"
	"github.com/fitflow/fitflow/internal/models"
	"github.com/fitflow/fitflow/internal/plans"
	"github.com/fitflow/fitflow/internal/storage"
)

var fixedNow = time.Date(2026, time.May, 4, 17, 0, 0, 0, time.UTC)

// fakeStore keeps one user's data in memory.
type fakeStore struct {
	users     map[string]string
	results   map[uuid.UUID]models.SessionResult
	data      map[string]history.FitnessData
	lastQuery storage.WorkoutQuery
	failWith  error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		users:   map[string]string{},
		results: map[uuid.UUID]models.SessionResult{},
		data:    map[string]history.FitnessData{},
	}
}

func (f *fakeStore) EnsureUser(_ context.Context, id, name string) error {
	f.users[id] = name
	return f.failWith
}

func (f *fakeStore) RecordWorkout(_ context.Context, uid string, res models.SessionResult, now time.Time) (history.FitnessData, bool, error) {
	if f.failWith != nil {
		return history.FitnessData{}, false, f.failWith
	}
	d, _ := f.GetFitnessData(context.Background(), uid, now)
	if _, dup := f.results[res.ID]; dup {
		return d, false, nil
	}
	f.results[res.ID] = res
	d = history.AddWorkout(d, res, now)
	f.data[uid] = d
	return d, true, nil
}

func (f *fakeStore) QueryWorkouts(_ context.Context, uid string, q storage.WorkoutQuery) ([]storage.Workout, error) {
	f.lastQuery = q
	out := []storage.Workout{}
	for _, r := range f.results {
		if q.PlanID == "" || r.PlanID == q.PlanID {
			out = append(out, storage.Workout{WorkoutRow: models.WorkoutRow{ID: r.ID, UserID: uid, PlanID: r.PlanID, Reps: r.Reps}})
		}
	}
	return out, f.failWith
}

func (f *fakeStore) GetFitnessData(_ context.Context, uid string, now time.Time) (history.FitnessData, error) {
	if d, ok := f.data[uid]; ok {
		return d, nil
	}
	return history.Initial(now), nil
}

func (f *fakeStore) SaveFitnessData(_ context.Context, uid string, d history.FitnessData) error {
	f.data[uid] = d
	return nil
}

func (f *fakeStore) ResetFitnessData(_ context.Context, uid string) error {
	delete(f.data, uid)
	f.results = map[uuid.UUID]models.SessionResult{}
	return nil
}

func (f *fakeStore) GetDataStats(context.Context, string) (*storage.DataStats, error) {
	return &storage.DataStats{TotalWorkouts: int64(len(f.results)), ByPlan: []storage.PlanStat{}}, nil
}

func (f *fakeStore) GetWorkoutSummary(_ context.Context, _ string, start, end time.Time, bucket string) ([]storage.SummaryPeriod, error) {
	return []storage.SummaryPeriod{{Period: start.Format("2006-01-02") + "/" + bucket, Workouts: len(f.results)}}, nil
}

func newTestServer(t *testing.T, db Store, secret string) *Server {
	t.Helper()
	cat, err := plans.Default()
	if err != nil {
		t.Fatal(err)
	}
	s := New(db, cat, Options{JWTSecret: secret, Version: "test"}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	s.now = func() time.Time { return fixedNow }
	return s
}

func do(t *testing.T, s *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}
		r = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, r)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	return rec
}

func sampleResult() models.SessionResult {
	return models.SessionResult{
		ID:          uuid.New(),
		PlanID:      "lower-body-basics",
		PlanName:    "Lower Body Basics",
		Category:    models.CategoryLowerBody,
		Reps:        36,
		DurationSec: 420,
		Calories:    31,
		Breakdown:   []models.BreakdownEntry{{ID: "squat", Name: "Squats", Value: "1x20 reps"}},
	}
}

// TestHandleMeDefault verifies /api/v1/me returns the dev identity when no
// JWT secret is configured.
func TestHandleMeDefault(t *testing.T) {
	s := newTestServer(t, newFakeStore(), "")
	rec := do(t, s, http.MethodGet, "/api/v1/me", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var info UserInfo
	if err := json.NewDecoder(rec.Body).Decode(&info); err != nil {
		t.Fatalf("decode error: %v", err)
	}
	if info.UserID != DevUserID || info.DisplayName != "Local Dev User" {
		t.Errorf("me = %+v", info)
	}
}

// TestSubmitWorkout verifies a result is recorded once: the first upload
// returns 201, a repeat returns 200 without changing the aggregates.
func TestSubmitWorkout(t *testing.T) {
	db := newFakeStore()
	s := newTestServer(t, db, "")
	res := sampleResult()

	rec := do(t, s, http.MethodPost, "/api/v1/workouts", res)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body)
	}
	var got submitted
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
		t.Fatal(err)
	}
	if !got.Inserted || got.Fitness.CaloriesBurned != 31 || len(got.Fitness.WorkoutHistory) != 1 {
		t.Errorf("reply = %+v", got)
	}
	if _, ok := db.users[DevUserID]; !ok {
		t.Error("user not ensured")
	}
	stored := db.results[res.ID]
	if !stored.CompletedAt.Equal(fixedNow) || !stored.StartedAt.Equal(fixedNow.Add(-420*time.Second)) {
		t.Errorf("timestamps = %v..%v", stored.StartedAt, stored.CompletedAt)
	}

	rec = do(t, s, http.MethodPost, "/api/v1/workouts", res)
	if rec.Code != http.StatusOK {
		t.Fatalf("duplicate status = %d", rec.Code)
	}
	got = submitted{}
	_ = json.NewDecoder(rec.Body).Decode(&got)
	if got.Inserted || got.Fitness.CaloriesBurned != 31 {
		t.Errorf("duplicate reply = %+v", got)
	}
}

// TestSubmitWorkoutValidation verifies malformed uploads are rejected before
// touching the store.
func TestSubmitWorkoutValidation(t *testing.T) {
	db := newFakeStore()
	s := newTestServer(t, db, "")

	noID := sampleResult()
	noID.ID = uuid.Nil
	noPlan := sampleResult()
	noPlan.PlanID = ""
	negative := sampleResult()
	negative.Reps = -1

	for name, body := range map[string]any{"no id": noID, "no plan": noPlan, "negative": negative, "not an object": "x"} {
		if rec := do(t, s, http.MethodPost, "/api/v1/workouts", body); rec.Code != http.StatusBadRequest {
			t.Errorf("%s: status = %d, want 400", name, rec.Code)
		}
	}
	if len(db.users) != 0 || len(db.results) != 0 {
		t.Error("store touched by invalid uploads")
	}
}

// TestSubmitWorkoutStoreError verifies storage failures map to 500.
func TestSubmitWorkoutStoreError(t *testing.T) {
	db := newFakeStore()
	db.failWith = errors.New("connection refused")
	s := newTestServer(t, db, "")

	if rec := do(t, s, http.MethodPost, "/api/v1/workouts", sampleResult()); rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}
}

// TestQueryWorkouts verifies time range, plan and limit params reach the store.
func TestQueryWorkouts(t *testing.T) {
	db := newFakeStore()
	s := newTestServer(t, db, "")
	do(t, s, http.MethodPost, "/api/v1/workouts", sampleResult())

	rec := do(t, s, http.MethodGet, "/api/v1/workouts?start=2026-05-01&end=2026-05-03&plan=lower-body-basics&limit=5", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var got []storage.Workout
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].Reps != 36 {
		t.Errorf("workouts = %+v", got)
	}
	q := db.lastQuery
	if q.Start.Day() != 1 || q.End.Day() != 4 || q.Limit != 5 || q.PlanID != "lower-body-basics" {
		t.Errorf("query = %+v", q)
	}

	if rec := do(t, s, http.MethodGet, "/api/v1/workouts?limit=many", nil); rec.Code != http.StatusBadRequest {
		t.Errorf("bad limit status = %d", rec.Code)
	}
	if rec := do(t, s, http.MethodGet, "/api/v1/workouts?start=soon", nil); rec.Code != http.StatusBadRequest {
		t.Errorf("bad start status = %d", rec.Code)
	}
}

// TestFitnessLifecycle verifies the dashboard reflects uploads, can be
// replaced, and resets to fresh aggregates.
func TestFitnessLifecycle(t *testing.T) {
	db := newFakeStore()
	s := newTestServer(t, db, "")

	var dash history.Dashboard
	rec := do(t, s, http.MethodGet, "/api/v1/fitness", nil)
	_ = json.NewDecoder(rec.Body).Decode(&dash)
	if dash.Data.RecoveryScore != 100 || dash.Stats.StepGoal != history.StepGoal {
		t.Errorf("fresh dashboard = %+v", dash)
	}

	do(t, s, http.MethodPost, "/api/v1/workouts", sampleResult())
	rec = do(t, s, http.MethodGet, "/api/v1/fitness", nil)
	dash = history.Dashboard{}
	_ = json.NewDecoder(rec.Body).Decode(&dash)
	if dash.Stats.WeeklyWorkouts != 1 || dash.Stats.CaloriesRemaining != history.CalorieTarget-31 {
		t.Errorf("stats = %+v", dash.Stats)
	}

	replaced := history.Initial(fixedNow)
	replaced.Steps = 4000
	rec = do(t, s, http.MethodPut, "/api/v1/fitness", replaced)
	dash = history.Dashboard{}
	_ = json.NewDecoder(rec.Body).Decode(&dash)
	if rec.Code != http.StatusOK || dash.Stats.StepGoalPercentage != 50 {
		t.Errorf("put: status %d stats %+v", rec.Code, dash.Stats)
	}

	if rec := do(t, s, http.MethodDelete, "/api/v1/fitness", nil); rec.Code != http.StatusNoContent {
		t.Fatalf("delete status = %d", rec.Code)
	}
	if _, ok := db.data[DevUserID]; ok {
		t.Error("aggregates not reset")
	}
}

func TestPlansAndExercises(t *testing.T) {
	s := newTestServer(t, newFakeStore(), "")

	var list []models.WorkoutPlan
	rec := do(t, s, http.MethodGet, "/api/v1/plans?category=Cardio", nil)
	_ = json.NewDecoder(rec.Body).Decode(&list)
	if len(list) != 1 || list[0].ID != "cardio-burn" {
		t.Errorf("cardio plans = %+v", list)
	}

	var p models.WorkoutPlan
	rec = do(t, s, http.MethodGet, "/api/v1/plans/quick-squat", nil)
	_ = json.NewDecoder(rec.Body).Decode(&p)
	if rec.Code != http.StatusOK || p.Exercises[0].Reps != plans.QuickReps {
		t.Errorf("quick plan: %d %+v", rec.Code, p)
	}

	if rec := do(t, s, http.MethodGet, "/api/v1/plans/yoga", nil); rec.Code != http.StatusNotFound {
		t.Errorf("unknown plan status = %d", rec.Code)
	}

	var exs []models.Exercise
	rec = do(t, s, http.MethodGet, "/api/v1/exercises?level=Beginner", nil)
	_ = json.NewDecoder(rec.Body).Decode(&exs)
	for _, ex := range exs {
		if ex.Difficulty != models.Beginner {
			t.Errorf("beginner list has %s (%s)", ex.ID, ex.Difficulty)
		}
	}
}

func TestBodyMetrics(t *testing.T) {
	s := newTestServer(t, newFakeStore(), "")

	rec := do(t, s, http.MethodGet, "/api/v1/body-metrics?gender=male&weight=80&height=180&age=30", nil)
	var got struct {
		BMI      float64 `json:"bmi"`
		BMR      float64 `json:"bmr"`
		Category string  `json:"bmi_category"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
		t.Fatal(err)
	}
	if got.BMI != 24.7 || got.BMR < 1850 || got.BMR > 1855 {
		t.Errorf("metrics = %+v", got)
	}

	if rec := do(t, s, http.MethodGet, "/api/v1/body-metrics?age=old", nil); rec.Code != http.StatusBadRequest {
		t.Errorf("bad age status = %d", rec.Code)
	}
}

// TestMCPEndpoint verifies the MCP server is mounted behind the identity
// middleware and answers an initialize request.
func TestMCPEndpoint(t *testing.T) {
	s := newTestServer(t, newFakeStore(), "")
	body := `{"jsonrpc":"2.0","id":1,"method":"initialize","params":{"protocolVersion":"2025-03-26","capabilities":{},"clientInfo":{"name":"test","version":"1"}}}`
	req := httptest.NewRequest(http.MethodPost, "/mcp", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json, text/event-stream")
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body)
	}
	if !strings.Contains(rec.Body.String(), "FitFlow") {
		t.Errorf("initialize reply = %s", rec.Body)
	}
}

func TestWorkoutSummary(t *testing.T) {
	db := newFakeStore()
	s := newTestServer(t, db, "")
	do(t, s, http.MethodPost, "/api/v1/workouts", sampleResult())

	rec := do(t, s, http.MethodGet, "/api/v1/workouts/summary", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var got []storage.SummaryPeriod
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].Period != "2026-02-03/1 week" || got[0].Workouts != 1 {
		t.Errorf("summary = %+v", got)
	}

	rec = do(t, s, http.MethodGet, "/api/v1/workouts/summary?start=2026-04-01&bucket=1%20month", nil)
	json.NewDecoder(rec.Body).Decode(&got)
	if len(got) != 1 || got[0].Period != "2026-04-01/1 month" {
		t.Errorf("summary = %+v", got)
	}

	if rec := do(t, s, http.MethodGet, "/api/v1/workouts/summary?bucket=1%20year", nil); rec.Code != http.StatusBadRequest {
		t.Errorf("bad bucket status = %d", rec.Code)
	}
}
