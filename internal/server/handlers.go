package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/fitflow/fitflow/internal/health"
	"github.com/fitflow/fitflow/internal/history"
	"github.com/fitflow/fitflow/internal/models"
	"github.com/fitflow/fitflow/internal/plans"
	"github.com/fitflow/fitflow/internal/storage"
)

// submitted is the reply to a workout upload.
type submitted struct {
	Inserted bool                `json:"inserted"`
	Fitness  history.FitnessData `json:"fitness"`
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, userInfoFromContext(r))
}

func (s *Server) handleListPlans(w http.ResponseWriter, r *http.Request) {
	category := models.Category(r.URL.Query().Get("category"))
	list := s.catalog.Plans(category)
	if list == nil {
		list = []models.WorkoutPlan{}
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleGetPlan(w http.ResponseWriter, r *http.Request) {
	p, err := s.catalog.Resolve(chi.URLParam(r, "id"))
	if errors.Is(err, plans.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
		return
	}
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) handleListExercises(w http.ResponseWriter, r *http.Request) {
	level := models.Difficulty(r.URL.Query().Get("level"))
	list := s.catalog.ForLevel(level)
	if list == nil {
		list = []models.Exercise{}
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleSubmitWorkout(w http.ResponseWriter, r *http.Request) {
	var res models.SessionResult
	if err := json.NewDecoder(r.Body).Decode(&res); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON: " + err.Error()})
		return
	}
	if res.ID == uuid.Nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "id is required"})
		return
	}
	if res.PlanID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "plan_id is required"})
		return
	}
	if res.Reps < 0 || res.DurationSec < 0 || res.Calories < 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "reps, duration_sec and calories must not be negative"})
		return
	}

	now := s.now()
	if res.CompletedAt.IsZero() {
		res.CompletedAt = now
	}
	if res.StartedAt.IsZero() {
		res.StartedAt = res.CompletedAt.Add(-time.Duration(res.DurationSec) * time.Second)
	}

	info := userInfoFromContext(r)
	if err := s.db.EnsureUser(r.Context(), info.UserID, info.DisplayName); err != nil {
		s.log.Error("ensure user", "user", info.UserID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	data, inserted, err := s.db.RecordWorkout(r.Context(), info.UserID, res, now)
	if err != nil {
		s.log.Error("record workout", "id", res.ID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	if inserted {
		s.log.Info("workout recorded", "user", info.UserID, "plan", res.PlanID, "reps", res.Reps, "calories", res.Calories)
	}

	status := http.StatusOK
	if inserted {
		status = http.StatusCreated
	}
	writeJSON(w, status, submitted{Inserted: inserted, Fitness: data})
}

func (s *Server) handleQueryWorkouts(w http.ResponseWriter, r *http.Request) {
	start, end, err := parseTimeRange(r, s.now())
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	q := storage.WorkoutQuery{Start: start, End: end, PlanID: r.URL.Query().Get("plan")}
	if l := r.URL.Query().Get("limit"); l != "" {
		n, err := strconv.Atoi(l)
		if err != nil || n < 0 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid limit"})
			return
		}
		q.Limit = n
	}

	workouts, err := s.db.QueryWorkouts(r.Context(), userIDFromContext(r), q)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, workouts)
}

func (s *Server) handleWorkoutSummary(w http.ResponseWriter, r *http.Request) {
	now := s.now()
	start, end, err := parseTimeRange(r, now)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	if r.URL.Query().Get("start") == "" {
		start = now.AddDate(0, 0, -90)
	}
	bucket := r.URL.Query().Get("bucket")
	if bucket == "" {
		bucket = "1 week"
	}
	if !storage.ValidBucket(bucket) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "bucket must be one of: 1 day, 1 week, 1 month"})
		return
	}

	periods, err := s.db.GetWorkoutSummary(r.Context(), userIDFromContext(r), start, end, bucket)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, periods)
}

func (s *Server) handleGetFitness(w http.ResponseWriter, r *http.Request) {
	now := s.now()
	data, err := s.db.GetFitnessData(r.Context(), userIDFromContext(r), now)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, history.NewDashboard(data, now))
}

// handlePutFitness replaces the aggregates wholesale, e.g. to restore an
// offline copy.
func (s *Server) handlePutFitness(w http.ResponseWriter, r *http.Request) {
	var data history.FitnessData
	if err := json.NewDecoder(r.Body).Decode(&data); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON: " + err.Error()})
		return
	}
	if data.Heatmap == nil {
		data.Heatmap = map[string]int{}
	}

	info := userInfoFromContext(r)
	if err := s.db.EnsureUser(r.Context(), info.UserID, info.DisplayName); err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	if err := s.db.SaveFitnessData(r.Context(), info.UserID, data); err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, history.NewDashboard(data, s.now()))
}

func (s *Server) handleResetFitness(w http.ResponseWriter, r *http.Request) {
	uid := userIDFromContext(r)
	if err := s.db.ResetFitnessData(r.Context(), uid); err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	s.log.Info("fitness data reset", "user", uid)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleBodyMetrics(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	age := 0
	if a := q.Get("age"); a != "" {
		n, err := strconv.Atoi(a)
		if err != nil || n < 0 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid age"})
			return
		}
		age = n
	}
	writeJSON(w, http.StatusOK, health.FromProfile(q.Get("gender"), q.Get("weight"), q.Get("height"), age))
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.db.GetDataStats(r.Context(), userIDFromContext(r))
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// parseTimeRange reads start/end query params. A missing start means the
// last 7 days; a date-only end covers that whole day.
func parseTimeRange(r *http.Request, now time.Time) (start, end time.Time, err error) {
	startStr := r.URL.Query().Get("start")
	endStr := r.URL.Query().Get("end")

	if startStr == "" {
		end = now
		start = end.AddDate(0, 0, -7)
		return
	}

	start, err = time.Parse(time.RFC3339, startStr)
	if err != nil {
		start, err = time.Parse("2006-01-02", startStr)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
	}

	if endStr == "" {
		end = now
	} else {
		end, err = time.Parse(time.RFC3339, endStr)
		if err != nil {
			end, err = time.Parse("2006-01-02", endStr)
			if err != nil {
				return time.Time{}, time.Time{}, err
			}
			end = end.Add(24 * time.Hour)
		}
	}
	return
}
