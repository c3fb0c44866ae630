package mcp

import (
	"context"
	"log/slog"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/fitflow/fitflow/internal/plans"
)

type contextKey int

const userIDKey contextKey = iota

// LocalUser is the user assumed when the transport does not inject one.
const LocalUser = "local"

// UserIDFromContext extracts the user ID injected by the transport layer.
func UserIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(userIDKey).(string); ok && id != "" {
		return id
	}
	return LocalUser
}

// WithUserID returns a context with the given user ID.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

// New creates an MCP server with all tools and resources registered.
func New(ds DataSource, catalog *plans.Catalog, version string, log *slog.Logger) *server.MCPServer {
	s := server.NewMCPServer("FitFlow", version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
		server.WithInstructions("FitFlow workout server. Query completed workouts, fitness aggregates, and the plan catalog. All data is scoped to the authenticated user."),
	)

	h := &handlers{ds: ds, catalog: catalog, log: log, now: time.Now}

	s.AddTools(
		server.ServerTool{Tool: toolGetWorkouts, Handler: h.getWorkouts},
		server.ServerTool{Tool: toolGetFitnessSummary, Handler: h.getFitnessSummary},
		server.ServerTool{Tool: toolGetWorkoutSummary, Handler: h.getWorkoutSummary},
		server.ServerTool{Tool: toolListPlans, Handler: h.listPlans},
	)

	s.AddResources(
		server.ServerResource{Resource: resRecentWorkouts, Handler: h.recentWorkouts},
	)

	return s
}

// handlers holds dependencies for MCP tool/resource handlers.
type handlers struct {
	ds      DataSource
	catalog *plans.Catalog
	log     *slog.Logger
	now     func() time.Time
}

var resRecentWorkouts = mcp.NewResource(
	"fitflow://recent_workouts",
	"Recent Workouts",
	mcp.WithResourceDescription("Workouts from the last 14 days"),
	mcp.WithMIMEType("application/json"),
)
