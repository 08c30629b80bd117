package engine

import (
	"context"
	"log/slog"

	"github.com/jeevan-health/triage/internal/logging"
	"github.com/jeevan-health/triage/internal/metrics"
	"github.com/jeevan-health/triage/pkg/schema"
)

// Fixed texts used when a graph leaves something unspecified.
const (
	ActionNoFurtherPath = "No further protocol path defined. Please consult a physician."
	ActionMissingNode   = "Protocol path references a missing node. Consult a physician."
	DefaultQuestionText = "No question text provided."
	DefaultResultAction = "No action specified."
)

// GraphSource resolves a protocol graph by id, returning NOT_FOUND when absent.
type GraphSource interface {
	Get(ctx context.Context, id string) (*schema.ProtocolGraph, error)
}

// Start returns the view of g's entry node.
func Start(g *schema.ProtocolGraph) (*schema.StepView, error) {
	entry, ok := g.Entry()
	if !ok {
		return nil, schema.NotFoundf("protocol %q has no entry node", g.ID)
	}
	return nodeView(g, entry), nil
}

// Advance moves one step from current along the edge selected by answer.
// A result node answers with its own view regardless of answer. A missing
// or dangling edge yields an Unknown-risk terminal view, never an error.
func Advance(g *schema.ProtocolGraph, current schema.NodeID, answer schema.Answer) (*schema.StepView, error) {
	node, ok := g.Find(current)
	if !ok {
		return nil, schema.NotFoundf("node %q not found in protocol %q", current, g.ID)
	}
	if node.Kind == schema.NodeKindResult {
		return nodeView(g, node), nil
	}
	if answer != schema.AnswerYes && answer != schema.AnswerNo {
		return nil, schema.Invalidf("answer must be yes or no, got %q", answer)
	}
	if node.Kind != schema.NodeKindQuestion || node.Question == nil {
		return degraded(g, ActionMissingNode), nil
	}

	target := node.Question.Edge(answer)
	if target == "" {
		return degraded(g, ActionNoFurtherPath), nil
	}
	next, ok := g.Find(target)
	if !ok {
		return degraded(g, ActionMissingNode), nil
	}
	return nodeView(g, next), nil
}

// nodeView renders n, filling defaults for unset text, weight, risk and action.
func nodeView(g *schema.ProtocolGraph, n *schema.Node) *schema.StepView {
	switch {
	case n.Kind == schema.NodeKindResult && n.Result != nil:
		risk := n.Result.Risk
		if risk == "" {
			risk = schema.RiskUnknown
		}
		action := n.Result.Action
		if action == "" {
			action = DefaultResultAction
		}
		return schema.TerminalStep(schema.TerminalView{Risk: risk, Action: action, ProtocolName: g.Name})
	case n.Kind == schema.NodeKindQuestion && n.Question != nil:
		text := n.Question.Text
		if text == "" {
			text = DefaultQuestionText
		}
		weight := n.Question.Weight
		if weight == 0 {
			weight = 1
		}
		return schema.QuestionStep(schema.QuestionView{NodeID: n.ID, Question: text, Weight: weight, ProtocolName: g.Name})
	default:
		return degraded(g, ActionMissingNode)
	}
}

func degraded(g *schema.ProtocolGraph, action string) *schema.StepView {
	return schema.TerminalStep(schema.TerminalView{
		Risk:         schema.RiskUnknown,
		Action:       action,
		ProtocolName: g.Name,
		Degraded:     true,
	})
}

// Traverser runs Start and Advance against graphs resolved from a
// GraphSource. It holds no session state; every call is independent.
type Traverser struct {
	graphs  GraphSource
	metrics *metrics.Collector
	logger  *slog.Logger
}

// NewTraverser creates a Traverser. m may be nil.
func NewTraverser(graphs GraphSource, m *metrics.Collector, logger *slog.Logger) *Traverser {
	return &Traverser{graphs: graphs, metrics: m, logger: logging.Default(logger)}
}

// Start resolves graphID and returns its entry view.
func (t *Traverser) Start(ctx context.Context, graphID string) (*schema.StepView, error) {
	g, err := t.graphs.Get(ctx, graphID)
	if err != nil {
		return nil, err
	}
	view, err := Start(g)
	if err != nil {
		return nil, err
	}
	t.observe(logging.WithGraphID(ctx, graphID), view)
	return view, nil
}

// Advance resolves graphID and advances one step from current.
func (t *Traverser) Advance(ctx context.Context, graphID string, current schema.NodeID, answer schema.Answer) (*schema.StepView, error) {
	g, err := t.graphs.Get(ctx, graphID)
	if err != nil {
		return nil, err
	}
	view, err := Advance(g, current, answer)
	if err != nil {
		return nil, err
	}
	t.observe(logging.WithIDs(ctx, graphID, string(current)), view)
	return view, nil
}

func (t *Traverser) observe(ctx context.Context, view *schema.StepView) {
	t.metrics.ObserveStep(view)
	if view.Done && view.Result.Degraded {
		t.logger.WarnContext(ctx, "protocol traversal degraded", slog.String("action", view.Result.Action))
	}
}
