package engine

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeevan-health/triage/internal/metrics"
	"github.com/jeevan-health/triage/pkg/schema"
)

func feverGraph() *schema.ProtocolGraph {
	return &schema.ProtocolGraph{
		ID:   "fever",
		Name: "Fever",
		Nodes: []schema.Node{
			schema.NewQuestion("1", "Fever>103?", "2", "3"),
			schema.NewResult("2", schema.RiskHigh, "ER"),
			schema.NewResult("3", schema.RiskLow, "Rest"),
		},
	}
}

// mapGraphs is an in-memory GraphSource.
type mapGraphs map[string]*schema.ProtocolGraph

func (m mapGraphs) Get(_ context.Context, id string) (*schema.ProtocolGraph, error) {
	g, ok := m[id]
	if !ok {
		return nil, schema.NotFoundf("protocol %q not found", id)
	}
	return g, nil
}

func TestStart(t *testing.T) {
	view, err := Start(feverGraph())
	require.NoError(t, err)
	assert.False(t, view.Done)
	require.NotNil(t, view.QuestionView)
	assert.Equal(t, schema.NodeID("1"), view.NodeID)
	assert.Equal(t, "Fever>103?", view.Question)
	assert.Equal(t, 1.0, view.Weight)
	assert.Equal(t, "Fever", view.ProtocolName)
}

func TestStart_NoEntryNode(t *testing.T) {
	_, err := Start(&schema.ProtocolGraph{ID: "empty", Name: "Empty"})
	assert.True(t, schema.IsNotFound(err))
}

func TestStart_EntryIsResult(t *testing.T) {
	view, err := Start(&schema.ProtocolGraph{Name: "Direct", Nodes: []schema.Node{schema.NewResult("1", schema.RiskCritical, "Call 112")}})
	require.NoError(t, err)
	require.True(t, view.Done)
	assert.Equal(t, schema.RiskCritical, view.Result.Risk)
}

func TestAdvance_FollowsEdges(t *testing.T) {
	g := feverGraph()

	yes, err := Advance(g, "1", schema.AnswerYes)
	require.NoError(t, err)
	assert.Equal(t, schema.TerminalStep(schema.TerminalView{Risk: schema.RiskHigh, Action: "ER", ProtocolName: "Fever"}), yes)

	no, err := Advance(g, "1", schema.AnswerNo)
	require.NoError(t, err)
	assert.Equal(t, schema.TerminalStep(schema.TerminalView{Risk: schema.RiskLow, Action: "Rest", ProtocolName: "Fever"}), no)
}

func TestAdvance_ToNextQuestion(t *testing.T) {
	g := &schema.ProtocolGraph{Name: "Two", Nodes: []schema.Node{
		schema.NewQuestion("1", "Fever?", "2", ""),
		{ID: "2", Kind: schema.NodeKindQuestion, Question: &schema.QuestionNode{Weight: 4}},
	}}
	view, err := Advance(g, "1", schema.AnswerYes)
	require.NoError(t, err)
	require.False(t, view.Done)
	assert.Equal(t, schema.NodeID("2"), view.NodeID)
	assert.Equal(t, DefaultQuestionText, view.Question)
	assert.Equal(t, 4.0, view.Weight)
}

func TestAdvance_TerminalIsIdempotent(t *testing.T) {
	g := feverGraph()
	first, err := Advance(g, "2", schema.AnswerYes)
	require.NoError(t, err)
	for _, a := range []schema.Answer{schema.AnswerYes, schema.AnswerNo, ""} {
		again, err := Advance(g, "2", a)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestAdvance_DegradedResults(t *testing.T) {
	g := &schema.ProtocolGraph{Name: "Gaps", Nodes: []schema.Node{
		schema.NewQuestion("1", "Fever?", "", "9"),
	}}

	tests := []struct {
		name   string
		answer schema.Answer
		action string
	}{
		{"missing edge", schema.AnswerYes, ActionNoFurtherPath},
		{"dangling edge", schema.AnswerNo, ActionMissingNode},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			view, err := Advance(g, "1", tt.answer)
			require.NoError(t, err)
			require.True(t, view.Done)
			assert.Equal(t, schema.RiskUnknown, view.Result.Risk)
			assert.Equal(t, tt.action, view.Result.Action)
			assert.Equal(t, "Gaps", view.Result.ProtocolName)
			assert.True(t, view.Result.Degraded)
		})
	}
}

func TestAdvance_ResultDefaults(t *testing.T) {
	g := &schema.ProtocolGraph{Name: "Bare", Nodes: []schema.Node{
		schema.NewQuestion("1", "Fever?", "2", "2"),
		{ID: "2", Kind: schema.NodeKindResult, Result: &schema.ResultNode{}},
	}}
	view, err := Advance(g, "1", schema.AnswerYes)
	require.NoError(t, err)
	assert.Equal(t, schema.RiskUnknown, view.Result.Risk)
	assert.Equal(t, DefaultResultAction, view.Result.Action)
	assert.False(t, view.Result.Degraded)
}

func TestAdvance_Errors(t *testing.T) {
	g := feverGraph()

	_, err := Advance(g, "42", schema.AnswerYes)
	assert.True(t, schema.IsNotFound(err))

	_, err = Advance(g, "1", "maybe")
	assert.True(t, schema.IsValidation(err))
}

func TestAdvance_CycleStepsOnce(t *testing.T) {
	g := &schema.ProtocolGraph{Name: "Loop", Nodes: []schema.Node{
		schema.NewQuestion("1", "Again?", "1", ""),
	}}
	view, err := Advance(g, "1", schema.AnswerYes)
	require.NoError(t, err)
	assert.Equal(t, schema.NodeID("1"), view.NodeID)
}

func TestTraverser(t *testing.T) {
	m := metrics.NewCollector("test")
	tr := NewTraverser(mapGraphs{"fever": feverGraph()}, m, nil)
	ctx := context.Background()

	view, err := tr.Start(ctx, "fever")
	require.NoError(t, err)
	assert.Equal(t, schema.NodeID("1"), view.NodeID)

	view, err = tr.Advance(ctx, "fever", view.NodeID, schema.AnswerYes)
	require.NoError(t, err)
	assert.Equal(t, "ER", view.Result.Action)

	_, err = tr.Start(ctx, "missing")
	assert.True(t, schema.IsNotFound(err))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.TraversalSteps.WithLabelValues(metrics.StepQuestion)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.TraversalSteps.WithLabelValues(metrics.StepResult)))
}
