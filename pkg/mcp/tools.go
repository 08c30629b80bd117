package mcp

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/jeevan-health/triage/internal/diagram"
	"github.com/jeevan-health/triage/internal/engine"
	"github.com/jeevan-health/triage/pkg/schema"
)

// handleSymptoms lists the symptom catalog.
func (s *OperatorServer) handleSymptoms(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	symptoms, err := s.catalog.Symptoms(ctx)
	if err != nil {
		return toolError("symptom lookup failed", err), nil
	}
	if symptoms == nil {
		symptoms = []string{}
	}
	return marshalResult(map[string]any{"symptoms": symptoms})
}

// handleFollowups returns clarifying questions for the reported symptoms.
func (s *OperatorServer) handleFollowups(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	symptoms, err := req.RequireStringSlice("symptoms")
	if err != nil || len(symptoms) == 0 {
		return mcp.NewToolResultError("symptoms is required"), nil
	}
	conditions, err := s.catalog.Conditions(ctx)
	if err != nil {
		return toolError("condition lookup failed", err), nil
	}
	return marshalResult(map[string]any{"questions": engine.Followups(symptoms, conditions)})
}

// handleScore ranks conditions for the reported symptoms.
func (s *OperatorServer) handleScore(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	symptoms, err := req.RequireStringSlice("symptoms")
	if err != nil || len(symptoms) == 0 {
		return mcp.NewToolResultError("symptoms is required"), nil
	}
	result, err := s.score(ctx, symptoms)
	if err != nil {
		return toolError("scoring failed", err), nil
	}
	return marshalResult(result)
}

func (s *OperatorServer) score(ctx context.Context, symptoms []string) (*schema.TriageResult, error) {
	conditions, err := s.catalog.Conditions(ctx)
	if err != nil {
		return nil, err
	}
	result, err := engine.Score(symptoms, conditions)
	if err != nil {
		return nil, err
	}
	result.Mode = schema.ModeSymptom
	return result, nil
}

// handleProtocols lists protocol summaries.
func (s *OperatorServer) handleProtocols(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	graphs, err := s.protocols.ListGraphs(ctx)
	if err != nil {
		return toolError("protocol lookup failed", err), nil
	}
	summaries := make([]map[string]any, 0, len(graphs))
	for _, g := range graphs {
		summaries = append(summaries, map[string]any{
			"id":    g.ID,
			"name":  g.Name,
			"nodes": len(g.Nodes),
		})
	}
	return marshalResult(map[string]any{"protocols": summaries})
}

// handleProtocolStart returns the entry step of a protocol.
func (s *OperatorServer) handleProtocolStart(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	protocolID, err := req.RequireString("protocol_id")
	if err != nil {
		return mcp.NewToolResultError("protocol_id is required"), nil
	}
	step, err := s.traverser.Start(ctx, protocolID)
	if err != nil {
		return toolError("protocol start failed", err), nil
	}
	return marshalResult(step)
}

// handleProtocolAdvance follows one answered edge.
func (s *OperatorServer) handleProtocolAdvance(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	protocolID, err := req.RequireString("protocol_id")
	if err != nil {
		return mcp.NewToolResultError("protocol_id is required"), nil
	}
	nodeID, err := req.RequireString("node_id")
	if err != nil {
		return mcp.NewToolResultError("node_id is required"), nil
	}
	raw, err := req.RequireString("answer")
	if err != nil {
		return mcp.NewToolResultError("answer is required"), nil
	}
	answer, err := schema.ParseAnswer(raw)
	if err != nil {
		return toolError("invalid answer", err), nil
	}

	step, err := s.traverser.Advance(ctx, protocolID, schema.NodeID(nodeID), answer)
	if err != nil {
		return toolError("protocol advance failed", err), nil
	}
	return marshalResult(step)
}

// handleDiagram draws a protocol in the requested format.
func (s *OperatorServer) handleDiagram(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	protocolID, err := req.RequireString("protocol_id")
	if err != nil {
		return mcp.NewToolResultError("protocol_id is required"), nil
	}
	format, err := req.RequireString("format")
	if err != nil {
		return mcp.NewToolResultError("format is required"), nil
	}
	if format != "ascii" && format != "mermaid" && format != "image" {
		return mcp.NewToolResultError("format must be ascii, mermaid, or image"), nil
	}

	g, err := s.protocols.Get(ctx, protocolID)
	if err != nil {
		return toolError("protocol lookup failed", err), nil
	}
	var trail []schema.NodeID
	for _, id := range req.GetStringSlice("trail", nil) {
		trail = append(trail, schema.NodeID(id))
	}

	model, err := diagram.Build(g, trail)
	if err != nil {
		return toolError("diagram build failed", err), nil
	}

	switch format {
	case "ascii":
		return mcp.NewToolResultText(diagram.RenderASCII(model)), nil
	case "mermaid":
		return mcp.NewToolResultText(diagram.RenderMermaid(model)), nil
	default:
		png, imgErr := diagram.RenderImage(ctx, model)
		if imgErr != nil {
			return toolError("image render failed", imgErr), nil
		}
		return mcp.NewToolResultText(base64.StdEncoding.EncodeToString(png)), nil
	}
}

// handleSave builds an assessment from the operator's accepted outcome and
// hands it to the reconciler. The save is durable once it returns.
func (s *OperatorServer) handleSave(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	modeArg, err := req.RequireString("mode")
	if err != nil {
		return mcp.NewToolResultError("mode is required"), nil
	}
	mode := schema.AssessmentMode(modeArg)
	if mode != schema.ModeSymptom && mode != schema.ModeProtocol {
		return mcp.NewToolResultError("mode must be symptom or protocol"), nil
	}

	savedBy := req.GetString("saved_by", s.operator)
	if savedBy != "" {
		s.captureSession(ctx, savedBy)
	}

	rec := schema.Assessment{
		ID:             schema.NewAssessmentID(mode),
		PatientName:    strings.TrimSpace(req.GetString("patient_name", "")),
		AssessmentDate: req.GetString("assessment_date", ""),
		Date:           time.Now().UTC(),
		Mode:           mode,
		ProtocolID:     req.GetString("protocol_id", ""),
		Symptoms:       req.GetStringSlice("symptoms", []string{}),
		Answers:        stringMap(mcp.ParseStringMap(req, "answers", nil)),
		SavedBy:        savedBy,
	}

	result, err := s.resultFor(ctx, req, &rec)
	if err != nil {
		return toolError("invalid result", err), nil
	}
	rec.Result = result

	if err := s.reconciler.Save(ctx, rec); err != nil {
		return toolError("save failed", err), nil
	}
	return marshalResult(map[string]any{
		"ok":     true,
		"id":     rec.ID,
		"status": s.reconciler.Status(),
	})
}

// resultFor picks the result snapshot for a save: an explicit result wins,
// protocol mode falls back to the terminal view and answer log, and symptom
// mode scores the symptoms.
func (s *OperatorServer) resultFor(ctx context.Context, req mcp.CallToolRequest, rec *schema.Assessment) (*schema.TriageResult, error) {
	var explicit schema.TriageResult
	ok, err := decodeArg(req, "result", &explicit)
	if err != nil {
		return nil, err
	}
	if ok {
		if explicit.Mode == "" {
			explicit.Mode = rec.Mode
		}
		return &explicit, nil
	}

	if rec.Mode == schema.ModeProtocol {
		var term schema.TerminalView
		ok, err := decodeArg(req, "terminal", &term)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, schema.Invalidf("protocol saves need result or terminal")
		}
		var log []schema.AnswerLogEntry
		if _, err := decodeArg(req, "answer_log", &log); err != nil {
			return nil, err
		}
		if len(rec.Symptoms) == 0 {
			for _, e := range log {
				rec.Symptoms = append(rec.Symptoms, e.Question)
			}
		}
		return schema.ProtocolAssessmentResult(&term, log), nil
	}

	if len(rec.Symptoms) == 0 {
		return nil, schema.Invalidf("symptom saves need symptoms or result")
	}
	return s.score(ctx, rec.Symptoms)
}

// handleDelete removes an assessment locally first.
func (s *OperatorServer) handleDelete(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError("id is required"), nil
	}
	deleted, err := s.reconciler.Delete(ctx, id)
	if err != nil {
		return toolError("delete failed", err), nil
	}
	return marshalResult(map[string]any{"deleted": deleted, "id": id})
}

// handleRecords lists local assessments, optionally narrowed by a jq filter.
func (s *OperatorServer) handleRecords(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	records, err := s.reconciler.Records(ctx)
	if err != nil {
		return toolError("record lookup failed", err), nil
	}
	if expr := req.GetString("filter", ""); expr != "" {
		records, err = s.filter.Apply(ctx, expr, records)
		if err != nil {
			return toolError("filter failed", err), nil
		}
	}
	if records == nil {
		records = []schema.Assessment{}
	}
	return marshalResult(map[string]any{"assessments": records})
}

// handleSync reports or drives the pending queue.
func (s *OperatorServer) handleSync(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	out := map[string]any{}
	switch action := req.GetString("action", "status"); action {
	case "status":
	case "check":
		s.reconciler.CheckConnectivity(ctx)
	case "flush":
		res, err := s.reconciler.Flush(ctx)
		if err != nil {
			out["error"] = err.Error()
		} else {
			out["result"] = res
		}
	default:
		return mcp.NewToolResultError(fmt.Sprintf("unknown action %q", action)), nil
	}

	pending, err := s.reconciler.PendingCount(ctx)
	if err != nil {
		return toolError("pending count failed", err), nil
	}
	out["status"] = s.reconciler.Status()
	out["pending"] = pending
	return marshalResult(out)
}

// --- Helpers ---

// captureSession maps the operator to its current MCP session for sync
// notifications.
func (s *OperatorServer) captureSession(ctx context.Context, operator string) {
	if session := server.ClientSessionFromContext(ctx); session != nil {
		s.sessions.Register(operator, session.SessionID())
	}
}

// marshalResult converts a value to a JSON text tool result.
func marshalResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal result: %v", err)), nil
	}
	return mcp.NewToolResultJSON(json.RawMessage(data))
}

// toolError renders err with its code so the caller can tell a missing
// protocol from bad input.
func toolError(prefix string, err error) *mcp.CallToolResult {
	return mcp.NewToolResultError(fmt.Sprintf("%s: %s: %v", prefix, schema.CodeOf(err), err))
}

// decodeArg re-decodes a structured argument into dst. It reports false when
// the argument is absent.
func decodeArg(req mcp.CallToolRequest, key string, dst any) (bool, error) {
	raw, ok := req.GetArguments()[key]
	if !ok || raw == nil {
		return false, nil
	}
	data, err := json.Marshal(raw)
	if err != nil {
		return false, schema.Invalidf("%s: %v", key, err)
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return false, schema.Invalidf("%s: %v", key, err)
	}
	return true, nil
}

func stringMap(m map[string]any) map[string]string {
	if len(m) == 0 {
		return nil
	}
	out := make(map[string]string, len(m))
	for k, v := range m {
		switch t := v.(type) {
		case string:
			out[k] = t
		default:
			out[k] = fmt.Sprint(t)
		}
	}
	return out
}
