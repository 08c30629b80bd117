package api

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/jeevan-health/triage/internal/engine"
	"github.com/jeevan-health/triage/internal/logging"
	"github.com/jeevan-health/triage/internal/metrics"
	"github.com/jeevan-health/triage/pkg/schema"
)

// StatusProbe reports coarse network reachability.
type StatusProbe interface {
	Status(ctx context.Context) schema.ConnectivityStatus
}

// Deps holds the dependencies for the API server. Metrics may be nil.
type Deps struct {
	Service *engine.Service
	Probe   StatusProbe
	Metrics *metrics.Collector
	Logger  *slog.Logger
}

// Server serves the triage JSON API.
type Server struct {
	deps Deps
}

// NewServer creates a Server.
func NewServer(deps Deps) *Server {
	deps.Logger = logging.Default(deps.Logger)
	return &Server{deps: deps}
}

// Handler returns the HTTP handler for every API route.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	// Reference catalogs.
	s.handle(mux, "GET /api/symptoms", s.handleListSymptoms)
	s.handle(mux, "GET /api/conditions", s.handleListConditions)

	// Protocols.
	s.handle(mux, "POST /api/protocol", s.handleCreateProtocol)
	s.handle(mux, "POST /api/protocol/validate", s.handleValidateProtocol)
	s.handle(mux, "GET /api/protocols", s.handleListProtocols)
	s.handle(mux, "GET /api/protocol/{id}", s.handleGetProtocol)
	s.handle(mux, "DELETE /api/protocol/{id}", s.handleDeleteProtocol)
	s.handle(mux, "POST /api/protocol/{id}/run", s.handleStartRun)
	s.handle(mux, "POST /api/protocol/{id}/advance", s.handleAdvanceRun)
	s.handle(mux, "GET /api/protocol/{id}/diagram", s.handleDiagram)

	// Symptom triage.
	s.handle(mux, "POST /api/triage/questions", s.handleFollowups)
	s.handle(mux, "POST /api/triage/run", s.handleScore)

	// Assessments and sync.
	s.handle(mux, "GET /api/assessments", s.handleListAssessments)
	s.handle(mux, "POST /api/assessment/save", s.handleSaveAssessment)
	s.handle(mux, "DELETE /api/assessment/{id}", s.handleDeleteAssessment)
	s.handle(mux, "GET /api/sync/status", s.handleSyncStatus)
	s.handle(mux, "POST /api/sync/push", s.handleSyncPush)

	if s.deps.Metrics != nil {
		mux.Handle("GET /metrics", s.deps.Metrics.Handler())
	}
	return mux
}

func (s *Server) handle(mux *http.ServeMux, pattern string, h http.HandlerFunc) {
	_, route, _ := strings.Cut(pattern, " ")
	mux.Handle(pattern, instrument(route, h, s.deps.Metrics, s.deps.Logger))
}
