package mcp

import (
	"context"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/fitflow/fitflow/internal/history"
	"github.com/fitflow/fitflow/internal/models"
	"github.com/fitflow/fitflow/internal/storage"
)

// defaultTimeRange returns start/end defaulting to the last 7 days before now.
func defaultTimeRange(startStr, endStr string, now time.Time) (time.Time, time.Time, error) {
	var start, end time.Time
	var err error

	if endStr != "" {
		end, err = parseFlexTime(endStr)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
	} else {
		end = now
	}

	if startStr != "" {
		start, err = parseFlexTime(startStr)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
	} else {
		start = end.AddDate(0, 0, -7)
	}

	return start, end, nil
}

func parseFlexTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339, s)
	if err == nil {
		return t, nil
	}
	t, err = time.Parse("2006-01-02", s)
	if err == nil {
		return t, nil
	}
	return time.Time{}, err
}

// --- Tool definitions ---

var toolGetWorkouts = mcp.NewTool("get_workouts",
	mcp.WithDescription("Retrieve completed workout sessions with reps, duration, calories, and the per-exercise breakdown. Newest first."),
	mcp.WithString("start", mcp.Description("Start date (ISO 8601 or YYYY-MM-DD). Defaults to 7 days ago.")),
	mcp.WithString("end", mcp.Description("End date (ISO 8601 or YYYY-MM-DD). Defaults to now.")),
	mcp.WithString("plan", mcp.Description("Only return sessions of this plan id (e.g. 'lower-body-basics').")),
	mcp.WithNumber("limit", mcp.Description("Maximum number of sessions. Defaults to 50.")),
)

var toolGetFitnessSummary = mcp.NewTool("get_fitness_summary",
	mcp.WithDescription("Get the user's fitness dashboard: steps and calorie progress, weekly workouts, streak, recovery score, muscle readiness, and lifetime totals."),
)

var toolGetWorkoutSummary = mcp.NewTool("get_workout_summary",
	mcp.WithDescription("Get workout totals bucketed by period: session count, reps, and calories per period, broken down by plan category. Useful for spotting trends."),
	mcp.WithString("start", mcp.Description("Start date (ISO 8601 or YYYY-MM-DD). Defaults to 90 days ago.")),
	mcp.WithString("end", mcp.Description("End date (ISO 8601 or YYYY-MM-DD). Defaults to now.")),
	mcp.WithString("bucket", mcp.Description("Aggregation bucket."), mcp.Enum("1 day", "1 week", "1 month")),
)

var toolListPlans = mcp.NewTool("list_plans",
	mcp.WithDescription("List the workout plans in the catalog, optionally filtered by category, plus the exercises suitable for a fitness level."),
	mcp.WithString("category", mcp.Description("Plan category."), mcp.Enum(string(models.CategoryLowerBody), string(models.CategoryUpperBody), string(models.CategoryCardio))),
	mcp.WithString("level", mcp.Description("Fitness level for the exercise list."), mcp.Enum(string(models.Beginner), string(models.Intermediate), string(models.Advanced))),
)

// --- Handlers ---

func (h *handlers) getWorkouts(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	start, end, err := defaultTimeRange(req.GetString("start", ""), req.GetString("end", ""), h.now())
	if err != nil {
		return mcp.NewToolResultError("invalid date format: " + err.Error()), nil
	}

	q := storage.WorkoutQuery{
		Start:  start,
		End:    end,
		PlanID: req.GetString("plan", ""),
		Limit:  req.GetInt("limit", 50),
	}
	uid := UserIDFromContext(ctx)

	workouts, err := h.ds.QueryWorkouts(ctx, uid, q)
	if err != nil {
		h.log.Error("mcp get_workouts", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}

	result, err := mcp.NewToolResultJSON(workouts)
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}

// fitnessSummary is the get_fitness_summary payload.
type fitnessSummary struct {
	Stats           history.Stats             `json:"stats"`
	Streak          int                       `json:"streak"`
	RecoveryScore   int                       `json:"recovery_score"`
	MuscleReadiness []history.MuscleReadiness `json:"muscle_readiness"`
	Goals           history.Goals             `json:"goals"`
	Totals          *storage.DataStats        `json:"totals,omitempty"`
}

func (h *handlers) getFitnessSummary(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	uid := UserIDFromContext(ctx)
	now := h.now()

	data, err := h.ds.GetFitnessData(ctx, uid, now)
	if err != nil {
		h.log.Error("mcp get_fitness_summary", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}

	totals, err := h.ds.GetDataStats(ctx, uid)
	if err != nil {
		h.log.Warn("get_fitness_summary: totals failed", "error", err)
	}

	result, err := mcp.NewToolResultJSON(fitnessSummary{
		Stats:           history.Summarize(data, now),
		Streak:          data.WeeklyHighlights.Streak,
		RecoveryScore:   data.RecoveryScore,
		MuscleReadiness: data.MuscleReadiness,
		Goals:           data.Goals,
		Totals:          totals,
	})
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}

func (h *handlers) getWorkoutSummary(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	startStr := req.GetString("start", "")
	if startStr == "" {
		startStr = h.now().AddDate(0, 0, -90).Format(time.RFC3339)
	}
	start, end, err := defaultTimeRange(startStr, req.GetString("end", ""), h.now())
	if err != nil {
		return mcp.NewToolResultError("invalid date format: " + err.Error()), nil
	}
	bucket := req.GetString("bucket", "1 week")
	if !storage.ValidBucket(bucket) {
		return mcp.NewToolResultError("bucket must be one of: 1 day, 1 week, 1 month"), nil
	}

	periods, err := h.ds.GetWorkoutSummary(ctx, UserIDFromContext(ctx), start, end, bucket)
	if err != nil {
		h.log.Error("mcp get_workout_summary", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}

	result, err := mcp.NewToolResultJSON(periods)
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}

func (h *handlers) listPlans(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if h.catalog == nil {
		return mcp.NewToolResultError("plan catalog not loaded"), nil
	}

	out := map[string]any{
		"plans": h.catalog.Plans(models.Category(req.GetString("category", ""))),
	}
	if level := req.GetString("level", ""); level != "" {
		out["exercises"] = h.catalog.ForLevel(models.Difficulty(level))
	}

	result, err := mcp.NewToolResultJSON(out)
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}
