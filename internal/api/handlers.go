package api

import (
	"net/http"
	"strings"

	"github.com/jeevan-health/triage/internal/diagram"
	"github.com/jeevan-health/triage/pkg/schema"
)

// --- Reference catalogs ---

func (s *Server) handleListSymptoms(w http.ResponseWriter, r *http.Request) {
	symptoms, err := s.deps.Service.ListSymptoms(r.Context())
	if err != nil {
		s.writeServiceError(w, r, err, "Failed to load symptoms.")
		return
	}
	writeJSON(w, http.StatusOK, nonNil(symptoms))
}

func (s *Server) handleListConditions(w http.ResponseWriter, r *http.Request) {
	conditions, err := s.deps.Service.ListConditions(r.Context())
	if err != nil {
		s.writeServiceError(w, r, err, "Failed to load conditions.")
		return
	}
	writeJSON(w, http.StatusOK, nonNil(conditions))
}

// --- Protocols ---

// handleCreateProtocol validates and stores a protocol definition.
func (s *Server) handleCreateProtocol(w http.ResponseWriter, r *http.Request) {
	var def schema.ProtocolGraph
	if !decodeBody(w, r, &def) {
		return
	}
	created, err := s.deps.Service.CreateGraph(r.Context(), def)
	if err != nil {
		s.writeServiceError(w, r, err, "Failed to create protocol.")
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

// handleValidateProtocol runs the definition checks without storing.
func (s *Server) handleValidateProtocol(w http.ResponseWriter, r *http.Request) {
	var def schema.ProtocolGraph
	if !decodeBody(w, r, &def) {
		return
	}
	result := s.deps.Service.ValidateGraph(&def)
	writeJSON(w, http.StatusOK, map[string]any{
		"valid":    result.Valid(),
		"errors":   nonNil(result.Errors),
		"warnings": nonNil(result.Warnings),
	})
}

func (s *Server) handleListProtocols(w http.ResponseWriter, r *http.Request) {
	graphs, err := s.deps.Service.ListGraphs(r.Context())
	if err != nil {
		s.writeServiceError(w, r, err, "Failed to load protocols.")
		return
	}
	writeJSON(w, http.StatusOK, nonNil(graphs))
}

func (s *Server) handleGetProtocol(w http.ResponseWriter, r *http.Request) {
	g, err := s.deps.Service.GetGraph(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeServiceError(w, r, err, "Failed to get protocol.")
		return
	}
	writeJSON(w, http.StatusOK, g)
}

func (s *Server) handleDeleteProtocol(w http.ResponseWriter, r *http.Request) {
	found, err := s.deps.Service.DeleteGraph(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeServiceError(w, r, err, "Failed to delete protocol.")
		return
	}
	if !found {
		writeError(w, http.StatusNotFound, schema.ErrCodeNotFound, "Protocol not found or already deleted.")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Protocol successfully deleted."})
}

func (s *Server) handleStartRun(w http.ResponseWriter, r *http.Request) {
	view, err := s.deps.Service.StartTraversal(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeServiceError(w, r, err, "Failed to start protocol run.")
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// handleAdvanceRun expects {currentNodeId, answer: "yes"|"no"}.
func (s *Server) handleAdvanceRun(w http.ResponseWriter, r *http.Request) {
	var body struct {
		CurrentNodeID *schema.NodeID `json:"currentNodeId"`
		Answer        string         `json:"answer"`
	}
	if !decodeBody(w, r, &body) {
		return
	}
	if body.CurrentNodeID == nil || body.Answer == "" {
		writeError(w, http.StatusBadRequest, schema.ErrCodeValidation, "Missing currentNodeId or answer.")
		return
	}
	answer, err := schema.ParseAnswer(body.Answer)
	if err != nil {
		s.writeServiceError(w, r, err, "Failed to advance protocol.")
		return
	}

	view, err := s.deps.Service.Advance(r.Context(), r.PathValue("id"), *body.CurrentNodeID, answer)
	if err != nil {
		s.writeServiceError(w, r, err, "Failed to advance protocol.")
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// handleDiagram renders a protocol as Mermaid (default), ASCII or PNG.
// trail=1,2,5 highlights a session path.
func (s *Server) handleDiagram(w http.ResponseWriter, r *http.Request) {
	g, err := s.deps.Service.GetGraph(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeServiceError(w, r, err, "Failed to get protocol.")
		return
	}

	var trail []schema.NodeID
	if raw := r.URL.Query().Get("trail"); raw != "" {
		for _, id := range strings.Split(raw, ",") {
			trail = append(trail, schema.NodeID(strings.TrimSpace(id)))
		}
	}
	model, err := diagram.Build(g, trail)
	if err != nil {
		s.writeServiceError(w, r, err, "Failed to build diagram.")
		return
	}

	switch format := r.URL.Query().Get("format"); format {
	case "", "mermaid":
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte(diagram.RenderMermaid(model)))
	case "ascii":
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte(diagram.RenderASCII(model)))
	case "image", "png":
		png, err := diagram.RenderImage(r.Context(), model)
		if err != nil {
			s.writeServiceError(w, r, err, "Failed to render diagram.")
			return
		}
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write(png)
	default:
		writeError(w, http.StatusBadRequest, schema.ErrCodeValidation, "format must be mermaid, ascii or image")
	}
}

// --- Symptom triage ---

type symptomsBody struct {
	Symptoms []string          `json:"symptoms"`
	Answers  map[string]string `json:"answers"`
}

func (s *Server) decodeSymptoms(w http.ResponseWriter, r *http.Request) (symptomsBody, bool) {
	var body symptomsBody
	if !decodeBody(w, r, &body) {
		return body, false
	}
	if body.Symptoms == nil {
		writeError(w, http.StatusBadRequest, schema.ErrCodeValidation, "Invalid or missing symptoms array.")
		return body, false
	}
	return body, true
}

func (s *Server) handleFollowups(w http.ResponseWriter, r *http.Request) {
	body, ok := s.decodeSymptoms(w, r)
	if !ok {
		return
	}
	questions, err := s.deps.Service.Followups(r.Context(), body.Symptoms)
	if err != nil {
		s.writeServiceError(w, r, err, "Failed to calculate follow-up questions.")
		return
	}
	writeJSON(w, http.StatusOK, questions)
}

// handleScore ranks conditions. Answers are accepted for the record but
// do not influence the score.
func (s *Server) handleScore(w http.ResponseWriter, r *http.Request) {
	body, ok := s.decodeSymptoms(w, r)
	if !ok {
		return
	}
	result, err := s.deps.Service.Score(r.Context(), body.Symptoms)
	if err != nil {
		s.writeServiceError(w, r, err, "Failed to run triage engine.")
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// --- Assessments ---

// handleListAssessments returns server records, narrowed by ?filter=<jq>.
func (s *Server) handleListAssessments(w http.ResponseWriter, r *http.Request) {
	records, err := s.deps.Service.ListAssessments(r.Context(), r.URL.Query().Get("filter"))
	if err != nil {
		s.writeServiceError(w, r, err, "Failed to get assessments.")
		return
	}
	writeJSON(w, http.StatusOK, nonNil(records))
}

func (s *Server) handleSaveAssessment(w http.ResponseWriter, r *http.Request) {
	var rec schema.Assessment
	if !decodeBody(w, r, &rec) {
		return
	}
	res, err := s.deps.Service.SaveAssessment(r.Context(), rec)
	if err != nil {
		s.writeServiceError(w, r, err, "Failed to save assessment.")
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"message":  "Assessment saved successfully.",
		"inserted": res.Inserted == 1,
	})
}

// handleDeleteAssessment answers 200 either way: the record may exist only
// on a field device.
func (s *Server) handleDeleteAssessment(w http.ResponseWriter, r *http.Request) {
	found, err := s.deps.Service.DeleteAssessment(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeServiceError(w, r, err, "Failed to delete assessment.")
		return
	}
	msg := "Assessment deleted."
	if !found {
		msg = "Assessment not found on server (may be local-only)."
	}
	writeJSON(w, http.StatusOK, map[string]any{"message": msg, "deleted": found})
}

// --- Sync ---

func (s *Server) handleSyncStatus(w http.ResponseWriter, r *http.Request) {
	status := schema.StatusOnline
	if s.deps.Probe != nil {
		status = s.deps.Probe.Status(r.Context())
	}
	writeJSON(w, http.StatusOK, map[string]schema.ConnectivityStatus{"status": status})
}

// handleSyncPush expects {assessments: [...]}.
func (s *Server) handleSyncPush(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Assessments []schema.Assessment `json:"assessments"`
	}
	if !decodeBody(w, r, &body) {
		return
	}
	res, err := s.deps.Service.PushBatch(r.Context(), body.Assessments)
	if err != nil {
		s.writeServiceError(w, r, err, "Failed to sync assessments.")
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// nonNil keeps empty lists encoding as [] rather than null.
func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
