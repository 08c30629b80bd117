package mcp

import (
	"context"
	"log/slog"
	"os"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/jeevan-health/triage/internal/engine"
	"github.com/jeevan-health/triage/internal/filter"
	"github.com/jeevan-health/triage/internal/logging"
	"github.com/jeevan-health/triage/internal/metrics"
	"github.com/jeevan-health/triage/internal/offline"
	"github.com/jeevan-health/triage/internal/streaming"
	"github.com/jeevan-health/triage/pkg/schema"
)

// ProtocolSource resolves protocols for the agent, usually through the
// offline cache.
type ProtocolSource interface {
	engine.GraphSource
	ListGraphs(ctx context.Context) ([]schema.ProtocolGraph, error)
}

// OperatorServerDeps holds the dependencies for creating an OperatorServer.
type OperatorServerDeps struct {
	Catalog    engine.CatalogSource
	Protocols  ProtocolSource
	Reconciler *offline.Reconciler
	Filter     *filter.RecordFilter
	Hub        streaming.EventHub
	Metrics    *metrics.Collector
	Operator   string // default savedBy for records
	Logger     *slog.Logger
}

// OperatorServer is the field agent's MCP surface: everything an operator
// does during triage, served from local state first.
type OperatorServer struct {
	catalog    engine.CatalogSource
	protocols  ProtocolSource
	traverser  *engine.Traverser
	reconciler *offline.Reconciler
	filter     *filter.RecordFilter
	hub        streaming.EventHub
	metrics    *metrics.Collector
	operator   string
	logger     *slog.Logger
	sessions   *SessionRegistry
	mcpServer  *server.MCPServer
}

// NewOperatorServer creates a new OperatorServer with every tool registered.
func NewOperatorServer(deps OperatorServerDeps) *OperatorServer {
	logger := logging.Default(deps.Logger)
	if deps.Filter == nil {
		deps.Filter = filter.New()
	}

	s := &OperatorServer{
		catalog:    deps.Catalog,
		protocols:  deps.Protocols,
		traverser:  engine.NewTraverser(deps.Protocols, deps.Metrics, logger),
		reconciler: deps.Reconciler,
		filter:     deps.Filter,
		hub:        deps.Hub,
		metrics:    deps.Metrics,
		operator:   deps.Operator,
		logger:     logger,
		sessions:   NewSessionRegistry(),
	}

	mcpSrv := server.NewMCPServer(
		"triage-agent",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithRecovery(),
		server.WithInstructions("Offline-first clinical triage. Use triage.followups and triage.score for symptom triage, triage.protocol_start and triage.protocol_advance to walk a protocol one yes/no answer at a time, triage.save to record an accepted outcome, and triage.sync to see or push the pending queue. Saves always succeed locally; records reach the server when connectivity allows."),
	)

	mcpSrv.AddTools(s.tools()...)
	s.mcpServer = mcpSrv
	return s
}

// Serve starts the stdio transport and blocks until ctx is cancelled or stdin
// closes. Sync events are forwarded to operators for the lifetime of ctx.
func (s *OperatorServer) Serve(ctx context.Context) error {
	if s.hub != nil {
		notifier := NewMCPNotifier(s.mcpServer, s.sessions)
		go func() {
			if err := notifier.Forward(ctx, s.hub); err != nil {
				s.logger.WarnContext(ctx, "sync event forwarding stopped", slog.String("error", err.Error()))
			}
		}()
	}
	stdio := server.NewStdioServer(s.mcpServer)
	return stdio.Listen(ctx, os.Stdin, os.Stdout)
}

// MCPServer returns the underlying MCPServer for testing or custom transports.
func (s *OperatorServer) MCPServer() *server.MCPServer {
	return s.mcpServer
}

func (s *OperatorServer) tools() []server.ServerTool {
	return []server.ServerTool{
		{Tool: symptomsTool(), Handler: s.handleSymptoms},
		{Tool: followupsTool(), Handler: s.handleFollowups},
		{Tool: scoreTool(), Handler: s.handleScore},
		{Tool: protocolsTool(), Handler: s.handleProtocols},
		{Tool: protocolStartTool(), Handler: s.handleProtocolStart},
		{Tool: protocolAdvanceTool(), Handler: s.handleProtocolAdvance},
		{Tool: diagramTool(), Handler: s.handleDiagram},
		{Tool: saveTool(), Handler: s.handleSave},
		{Tool: deleteTool(), Handler: s.handleDelete},
		{Tool: recordsTool(), Handler: s.handleRecords},
		{Tool: syncTool(), Handler: s.handleSync},
	}
}

// --- Tool definitions ---

func symptomsTool() mcp.Tool {
	return mcp.NewTool("triage.symptoms",
		mcp.WithDescription("List the known symptoms"),
	)
}

func followupsTool() mcp.Tool {
	return mcp.NewTool("triage.followups",
		mcp.WithDescription("Get clarifying questions for a symptom set"),
		mcp.WithArray("symptoms", mcp.Required(), mcp.WithStringItems(), mcp.Description("Reported symptoms")),
	)
}

func scoreTool() mcp.Tool {
	return mcp.NewTool("triage.score",
		mcp.WithDescription("Rank likely conditions for a symptom set"),
		mcp.WithArray("symptoms", mcp.Required(), mcp.WithStringItems(), mcp.Description("Reported symptoms")),
	)
}

func protocolsTool() mcp.Tool {
	return mcp.NewTool("triage.protocols",
		mcp.WithDescription("List available decision protocols"),
	)
}

func protocolStartTool() mcp.Tool {
	return mcp.NewTool("triage.protocol_start",
		mcp.WithDescription("Start a protocol and get its first question"),
		mcp.WithString("protocol_id", mcp.Required(), mcp.Description("Protocol ID")),
	)
}

func protocolAdvanceTool() mcp.Tool {
	return mcp.NewTool("triage.protocol_advance",
		mcp.WithDescription("Answer the current protocol question and get the next step"),
		mcp.WithString("protocol_id", mcp.Required(), mcp.Description("Protocol ID")),
		mcp.WithString("node_id", mcp.Required(), mcp.Description("ID of the question being answered")),
		mcp.WithString("answer", mcp.Required(), mcp.Enum("yes", "no"), mcp.Description("Operator's answer")),
	)
}

func diagramTool() mcp.Tool {
	return mcp.NewTool("triage.diagram",
		mcp.WithDescription("Draw a protocol. Returns ASCII art, Mermaid flowchart syntax, or base64-encoded PNG image"),
		mcp.WithString("protocol_id", mcp.Required(), mcp.Description("Protocol ID")),
		mcp.WithString("format", mcp.Required(),
			mcp.Enum("ascii", "mermaid", "image"),
			mcp.Description("Output format: ascii (text), mermaid (flowchart syntax), or image (base64 PNG)"),
		),
		mcp.WithArray("trail", mcp.WithStringItems(), mcp.Description("Visited node IDs to highlight, in order")),
	)
}

func saveTool() mcp.Tool {
	return mcp.NewTool("triage.save",
		mcp.WithDescription("Save an accepted triage outcome; it syncs to the server when possible"),
		mcp.WithString("mode", mcp.Required(), mcp.Enum("symptom", "protocol"), mcp.Description("Which modality produced the outcome")),
		mcp.WithString("patient_name", mcp.Description("Patient name")),
		mcp.WithString("assessment_date", mcp.Description("Date of the assessment as entered by the operator")),
		mcp.WithArray("symptoms", mcp.WithStringItems(), mcp.Description("Symptoms (symptom mode) or questions asked (protocol mode)")),
		mcp.WithObject("answers", mcp.Description("Follow-up answers keyed by question")),
		mcp.WithObject("result", mcp.Description("Result snapshot; computed from symptoms in symptom mode when absent")),
		mcp.WithString("protocol_id", mcp.Description("Protocol ID (protocol mode)")),
		mcp.WithObject("terminal", mcp.Description("Terminal view {risk, action, protocolName} (protocol mode)")),
		mcp.WithArray("answer_log", mcp.Description("Answered questions [{question, answer}] (protocol mode)")),
		mcp.WithString("saved_by", mcp.Description("Operator name (default: configured operator)")),
	)
}

func deleteTool() mcp.Tool {
	return mcp.NewTool("triage.delete",
		mcp.WithDescription("Delete a saved assessment locally and, best-effort, on the server"),
		mcp.WithString("id", mcp.Required(), mcp.Description("Assessment ID")),
	)
}

func recordsTool() mcp.Tool {
	return mcp.NewTool("triage.records",
		mcp.WithDescription("List locally saved assessments"),
		mcp.WithString("filter", mcp.Description("jq expression evaluated per record; truthy keeps it")),
	)
}

func syncTool() mcp.Tool {
	return mcp.NewTool("triage.sync",
		mcp.WithDescription("Show connectivity and pending queue, or push pending records now"),
		mcp.WithString("action", mcp.Enum("status", "flush", "check"), mcp.Description("status (default), flush, or check connectivity")),
	)
}
