package schema

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const builderGraph = `{
  "name": "Fever",
  "nodes": [
    {"id": 1, "type": "question", "text": "Fever>103?", "yes": 2, "no": "3"},
    {"id": 2, "type": "result", "risk": "High", "action": "ER"},
    {"id": "3", "type": "result", "risk": "Low", "action": "Rest"}
  ]
}`

func TestProtocolGraph_DecodeBuilderOutput(t *testing.T) {
	var g ProtocolGraph
	require.NoError(t, json.Unmarshal([]byte(builderGraph), &g))

	require.Len(t, g.Nodes, 3)
	entry, ok := g.Entry()
	require.True(t, ok)
	assert.Equal(t, NodeID("1"), entry.ID)
	assert.Equal(t, NodeKindQuestion, entry.Kind)
	require.NotNil(t, entry.Question)
	assert.Nil(t, entry.Result)
	assert.Equal(t, NodeID("2"), entry.Question.Yes)
	assert.Equal(t, NodeID("3"), entry.Question.No)

	high, ok := g.Find("2")
	require.True(t, ok)
	require.NotNil(t, high.Result)
	assert.Equal(t, RiskHigh, high.Result.Risk)

	_, ok = g.Find("99")
	assert.False(t, ok)
}

func TestProtocolGraph_RoundTrip(t *testing.T) {
	var g ProtocolGraph
	require.NoError(t, json.Unmarshal([]byte(builderGraph), &g))

	data, err := json.Marshal(g)
	require.NoError(t, err)

	var again ProtocolGraph
	require.NoError(t, json.Unmarshal(data, &again))
	assert.Equal(t, g, again)
	assert.NotContains(t, string(data), `"question":null`)
}

func TestNode_UnknownKindKept(t *testing.T) {
	var n Node
	require.NoError(t, json.Unmarshal([]byte(`{"id":"x","type":"loop"}`), &n))
	assert.Equal(t, NodeKind("loop"), n.Kind)
	assert.Nil(t, n.Question)
	assert.Nil(t, n.Result)
}

func TestNodeID_Invalid(t *testing.T) {
	var id NodeID
	assert.Error(t, json.Unmarshal([]byte(`true`), &id))
	require.NoError(t, json.Unmarshal([]byte(`null`), &id))
	assert.Equal(t, NodeID(""), id)
}

func TestNodeID_NumericForms(t *testing.T) {
	tests := []struct {
		raw  string
		want NodeID
	}{
		{`2`, "2"},
		{`2.0`, "2"},
		{`2e0`, "2"},
		{`-3`, "-3"},
		{`1.5`, "1.5"},
		{`"2.0"`, "2.0"},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			var id NodeID
			require.NoError(t, json.Unmarshal([]byte(tt.raw), &id))
			assert.Equal(t, tt.want, id)
		})
	}
}

func TestProtocolGraph_FloatEdgeMatchesIntegerNode(t *testing.T) {
	var g ProtocolGraph
	require.NoError(t, json.Unmarshal([]byte(`{
  "name": "Fever",
  "nodes": [
    {"id": 1, "type": "question", "text": "Fever?", "yes": 2.0, "no": 3},
    {"id": 2, "type": "result", "risk": "High", "action": "ER"},
    {"id": 3, "type": "result", "risk": "Low", "action": "Rest"}
  ]
}`), &g))

	entry, ok := g.Find("1")
	require.True(t, ok)
	target, ok := g.Find(entry.Question.Edge(AnswerYes))
	require.True(t, ok)
	assert.Equal(t, "ER", target.Result.Action)
}

func TestQuestionNode_Edge(t *testing.T) {
	q := QuestionNode{Yes: "a"}
	assert.Equal(t, NodeID("a"), q.Edge(AnswerYes))
	assert.Equal(t, NodeID(""), q.Edge(AnswerNo))
}

func TestParseAnswer(t *testing.T) {
	for _, in := range []string{"yes", "YES", " Yes "} {
		a, err := ParseAnswer(in)
		require.NoError(t, err)
		assert.Equal(t, AnswerYes, a)
	}
	a, err := ParseAnswer("No")
	require.NoError(t, err)
	assert.Equal(t, AnswerNo, a)

	_, err = ParseAnswer("maybe")
	assert.True(t, IsValidation(err))
}

func TestStepView_WireShape(t *testing.T) {
	q, err := json.Marshal(QuestionStep(QuestionView{NodeID: "1", Question: "Fever?", Weight: 1, ProtocolName: "P"}))
	require.NoError(t, err)
	assert.JSONEq(t, `{"done":false,"nodeId":"1","question":"Fever?","weight":1,"protocolName":"P"}`, string(q))

	r, err := json.Marshal(TerminalStep(TerminalView{Risk: RiskHigh, Action: "ER", ProtocolName: "P"}))
	require.NoError(t, err)
	assert.JSONEq(t, `{"done":true,"result":{"risk":"High","action":"ER","protocolName":"P"}}`, string(r))
}

func TestHighestRisk(t *testing.T) {
	assert.Equal(t, RiskLow, HighestRisk())
	assert.Equal(t, RiskLow, HighestRisk(RiskUnknown, "bogus"))
	assert.Equal(t, RiskCritical, HighestRisk(RiskMedium, RiskCritical, RiskHigh))
	assert.True(t, RiskMedium.Valid())
	assert.False(t, RiskUnknown.Valid())
}

func TestProtocolAssessmentResult(t *testing.T) {
	res := ProtocolAssessmentResult(
		&TerminalView{Risk: RiskHigh, Action: "ER", ProtocolName: "Fever"},
		[]AnswerLogEntry{{Question: "Fever>103?", Answer: AnswerYes}},
	)
	assert.Equal(t, ModeProtocol, res.Mode)
	assert.Equal(t, RiskHigh, res.RiskLevel)
	assert.Equal(t, "ER", res.Recommendations)
	assert.Equal(t, []ConditionScore{{Name: "Fever", Score: 100}}, res.Conditions)
	assert.Equal(t, []string{"Fever>103?: yes"}, res.Explanation)

	unnamed := ProtocolAssessmentResult(&TerminalView{Risk: RiskLow}, nil)
	assert.Equal(t, "Protocol Result", unnamed.Conditions[0].Name)
}

func TestNewAssessmentID(t *testing.T) {
	a := NewAssessmentID(ModeSymptom)
	p := NewAssessmentID(ModeProtocol)
	assert.True(t, strings.HasPrefix(a, "A"))
	assert.True(t, strings.HasPrefix(p, "P"))
	assert.NotEqual(t, a, NewAssessmentID(ModeSymptom))
}
