package api

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/jeevan-health/triage/internal/logging"
	"github.com/jeevan-health/triage/internal/metrics"
	"github.com/jeevan-health/triage/internal/offline"
	"github.com/jeevan-health/triage/internal/streaming"
	"github.com/jeevan-health/triage/pkg/schema"
)

// AgentDeps holds the dependencies of the field agent's local status
// endpoint.
type AgentDeps struct {
	Reconciler *offline.Reconciler
	Hub        streaming.EventHub
	Metrics    *metrics.Collector
	Logger     *slog.Logger
}

// AgentServer exposes the agent's sync state on a local port: the pending
// indicator, a manual flush and a live event stream.
type AgentServer struct {
	deps AgentDeps
}

// NewAgentServer creates an AgentServer.
func NewAgentServer(deps AgentDeps) *AgentServer {
	deps.Logger = logging.Default(deps.Logger)
	return &AgentServer{deps: deps}
}

// Handler returns the HTTP handler for the agent routes.
func (s *AgentServer) Handler() http.Handler {
	mux := http.NewServeMux()
	s.handle(mux, "GET /status", s.handleStatus)
	s.handle(mux, "POST /flush", s.handleFlush)
	mux.HandleFunc("GET /events", s.handleEvents)
	if s.deps.Metrics != nil {
		mux.Handle("GET /metrics", s.deps.Metrics.Handler())
	}
	return mux
}

func (s *AgentServer) handle(mux *http.ServeMux, pattern string, h http.HandlerFunc) {
	_, route, _ := strings.Cut(pattern, " ")
	mux.Handle(pattern, instrument(route, h, s.deps.Metrics, s.deps.Logger))
}

func (s *AgentServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	pending, err := s.deps.Reconciler.PendingCount(r.Context())
	if err != nil {
		s.deps.Logger.ErrorContext(r.Context(), "pending count failed", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, schema.ErrCodeInternal, "Failed to read pending queue.")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  s.deps.Reconciler.Status(),
		"pending": pending,
	})
}

// handleFlush pushes the PendingSet now. A failed push is not an HTTP
// error: the records stay queued and the response says so.
func (s *AgentServer) handleFlush(w http.ResponseWriter, r *http.Request) {
	res, err := s.deps.Reconciler.Flush(r.Context())
	pending, _ := s.deps.Reconciler.PendingCount(r.Context())
	body := map[string]any{
		"status":  s.deps.Reconciler.Status(),
		"pending": pending,
		"result":  res,
	}
	if err != nil {
		body["error"] = err.Error()
	}
	writeJSON(w, http.StatusOK, body)
}

// handleEvents streams sync events via Server-Sent Events. ?types=a,b
// narrows the stream.
func (s *AgentServer) handleEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}
	if s.deps.Hub == nil {
		http.Error(w, "event stream not configured", http.StatusNotFound)
		return
	}

	var filter streaming.EventFilter
	if raw := r.URL.Query().Get("types"); raw != "" {
		filter.Types = strings.Split(raw, ",")
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	ch, cancel, err := s.deps.Hub.Subscribe(r.Context(), filter)
	if err != nil {
		s.deps.Logger.Error("SSE subscribe failed", "error", err)
		http.Error(w, "subscribe failed", http.StatusInternalServerError)
		return
	}
	defer cancel()

	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case event, ok := <-ch:
			if !ok {
				return
			}
			data, err := json.Marshal(event)
			if err != nil {
				continue
			}
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event.Type, data)
			flusher.Flush()
		}
	}
}
