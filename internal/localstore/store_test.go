package localstore

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/fitflow/fitflow/internal/history"
	"github.com/fitflow/fitflow/internal/models"
)

func openTemp(t *testing.T) *Store {
	t.Helper()
	s, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSession(t *testing.T) {
	s := openTemp(t)

	if _, err := s.CurrentSession(); !errors.Is(err, ErrNoSession) {
		t.Fatalf("empty store: err = %v, want ErrNoSession", err)
	}

	sess := Session{User: models.UserProfile{ID: "u1", FullName: "Ada", Email: "ada@example.com"}, Token: "tok"}
	if err := s.SaveSession(sess); err != nil {
		t.Fatal(err)
	}
	sess.Token = "tok2"
	if err := s.SaveSession(sess); err != nil {
		t.Fatal(err)
	}

	got, err := s.CurrentSession()
	if err != nil {
		t.Fatal(err)
	}
	if got.User.ID != "u1" || got.Token != "tok2" {
		t.Errorf("session = %+v", got)
	}

	if err := s.ClearSession(); err != nil {
		t.Fatal(err)
	}
	if _, err := s.CurrentSession(); !errors.Is(err, ErrNoSession) {
		t.Errorf("after clear: err = %v", err)
	}
}

func TestFitnessCache(t *testing.T) {
	s := openTemp(t)
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

	d, err := s.Fitness("u1", now)
	if err != nil {
		t.Fatal(err)
	}
	if d.RecoveryScore != 100 {
		t.Errorf("fresh RecoveryScore = %d", d.RecoveryScore)
	}

	d = history.AddWorkout(d, models.SessionResult{Calories: 12, Category: models.CategoryUpperBody}, now)
	if err := s.SaveFitness("u1", d); err != nil {
		t.Fatal(err)
	}
	got, err := s.Fitness("u1", now)
	if err != nil {
		t.Fatal(err)
	}
	if got.CaloriesBurned != 12 || got.RecoveryScore != 70 || got.Heatmap["2026-05-01"] != 1 {
		t.Errorf("cached = %+v", got)
	}
}

// Results stay pending until marked uploaded, and duplicates are ignored.
func TestOutbox(t *testing.T) {
	s := openTemp(t)
	a := models.SessionResult{ID: uuid.New(), PlanID: "a", Reps: 10}
	b := models.SessionResult{ID: uuid.New(), PlanID: "b", Reps: 20}

	for _, r := range []models.SessionResult{a, b, a} {
		if err := s.Enqueue("u1", r); err != nil {
			t.Fatal(err)
		}
	}
	if err := s.Enqueue("u2", models.SessionResult{ID: uuid.New()}); err != nil {
		t.Fatal(err)
	}

	pending, err := s.Pending("u1")
	if err != nil {
		t.Fatal(err)
	}
	if len(pending) != 2 || pending[0].PlanID != "a" || pending[1].PlanID != "b" {
		t.Fatalf("pending = %+v", pending)
	}

	if err := s.MarkUploaded(a.ID); err != nil {
		t.Fatal(err)
	}
	pending, _ = s.Pending("u1")
	if len(pending) != 1 || pending[0].ID != b.ID {
		t.Errorf("after upload: %+v", pending)
	}
}
