package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/fitflow/fitflow/internal/history"
	"github.com/fitflow/fitflow/internal/mcp"
	"github.com/fitflow/fitflow/internal/models"
	"github.com/fitflow/fitflow/internal/plans"
	"github.com/fitflow/fitflow/internal/storage"
)

// Store is the persistence the handlers need. *storage.DB implements it.
type Store interface {
	mcp.DataSource
	EnsureUser(ctx context.Context, userID, displayName string) error
	RecordWorkout(ctx context.Context, userID string, res models.SessionResult, now time.Time) (history.FitnessData, bool, error)
	SaveFitnessData(ctx context.Context, userID string, data history.FitnessData) error
	ResetFitnessData(ctx context.Context, userID string) error
}

var _ Store = (*storage.DB)(nil)

// Options configures a Server.
type Options struct {
	// JWTSecret verifies bearer tokens. Empty means every request runs as
	// the dev user.
	JWTSecret string
	Version   string
}

// Server holds dependencies for HTTP handlers.
type Server struct {
	db      Store
	catalog *plans.Catalog
	log     *slog.Logger
	opts    Options
	router  chi.Router
	now     func() time.Time
}

// New creates a new Server with all routes configured.
func New(db Store, catalog *plans.Catalog, opts Options, log *slog.Logger) *Server {
	s := &Server{
		db:      db,
		catalog: catalog,
		log:     log,
		opts:    opts,
		router:  chi.NewRouter(),
		now:     time.Now,
	}
	s.routes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) identity() func(http.Handler) http.Handler {
	if s.opts.JWTSecret == "" {
		s.log.Warn("no JWT secret configured, all requests run as the dev user")
		return DevIdentity
	}
	return JWTAuth(s.opts.JWTSecret)
}

func (s *Server) routes() {
	s.router.Use(RequestLogging(s.log))
	s.router.Use(CORS)

	s.router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "version": s.opts.Version})
	})

	s.router.Group(func(r chi.Router) {
		r.Use(s.identity())

		r.Get("/api/v1/me", s.handleMe)
		r.Get("/api/v1/plans", s.handleListPlans)
		r.Get("/api/v1/plans/{id}", s.handleGetPlan)
		r.Get("/api/v1/exercises", s.handleListExercises)
		r.Post("/api/v1/workouts", s.handleSubmitWorkout)
		r.Get("/api/v1/workouts", s.handleQueryWorkouts)
		r.Get("/api/v1/workouts/summary", s.handleWorkoutSummary)
		r.Get("/api/v1/fitness", s.handleGetFitness)
		r.Put("/api/v1/fitness", s.handlePutFitness)
		r.Delete("/api/v1/fitness", s.handleResetFitness)
		r.Get("/api/v1/body-metrics", s.handleBodyMetrics)
		r.Get("/api/v1/stats", s.handleStats)

		mcpHTTP := mcpserver.NewStreamableHTTPServer(
			mcp.New(s.db, s.catalog, s.opts.Version, s.log),
			mcpserver.WithHTTPContextFunc(func(ctx context.Context, r *http.Request) context.Context {
				return mcp.WithUserID(ctx, userIDFromContext(r))
			}),
		)
		r.Handle("/mcp", mcpHTTP)
	})
}
