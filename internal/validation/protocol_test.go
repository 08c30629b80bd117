package validation

import (
	"encoding/json"
	"testing"

	"github.com/jeevan-health/triage/pkg/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestValidator(t *testing.T) *ProtocolValidator {
	t.Helper()
	v, err := NewProtocolValidator()
	require.NoError(t, err)
	return v
}

func feverGraph() *schema.ProtocolGraph {
	return &schema.ProtocolGraph{
		Name: "Fever",
		Nodes: []schema.Node{
			schema.NewQuestion("1", "Fever>103?", "2", "3"),
			schema.NewResult("2", schema.RiskHigh, "ER"),
			schema.NewResult("3", schema.RiskLow, "Rest"),
		},
	}
}

func issueCodes(issues []schema.ValidationIssue) []string {
	codes := make([]string, 0, len(issues))
	for _, i := range issues {
		codes = append(codes, i.Code)
	}
	return codes
}

func TestValidate_WellFormed(t *testing.T) {
	result := newTestValidator(t).Validate(feverGraph())
	assert.True(t, result.Valid())
	assert.Empty(t, result.Warnings)
}

func TestValidate_BuilderJSONWithNumericIDs(t *testing.T) {
	var def schema.ProtocolGraph
	require.NoError(t, json.Unmarshal([]byte(`{"name":"Fever","nodes":[
		{"id":1,"type":"question","text":"Fever>103?","yes":2,"no":3},
		{"id":2,"type":"result","risk":"High","action":"ER"},
		{"id":3,"type":"result","risk":"Low","action":"Rest"}]}`), &def))

	result := newTestValidator(t).Validate(&def)
	assert.True(t, result.Valid(), "%+v", result.Errors)
}

func TestValidate_Structural(t *testing.T) {
	tests := []struct {
		name string
		def  *schema.ProtocolGraph
	}{
		{"nil definition", nil},
		{"missing name", &schema.ProtocolGraph{Nodes: feverGraph().Nodes}},
		{"missing nodes", &schema.ProtocolGraph{Name: "x"}},
		{"empty nodes", &schema.ProtocolGraph{Name: "x", Nodes: []schema.Node{}}},
		{"unknown node type", &schema.ProtocolGraph{Name: "x", Nodes: []schema.Node{{ID: "1", Kind: "loop"}}}},
		{"bad risk tier", &schema.ProtocolGraph{Name: "x", Nodes: []schema.Node{schema.NewResult("1", "Severe", "go")}}},
		{"empty node id", &schema.ProtocolGraph{Name: "x", Nodes: []schema.Node{schema.NewResult("", schema.RiskLow, "go")}}},
	}
	v := newTestValidator(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := v.Validate(tt.def)
			require.False(t, result.Valid())
			assert.Equal(t, schema.ErrCodeValidation, result.Errors[0].Code)
			assert.True(t, schema.IsValidation(result.ToError()))
		})
	}
}

func TestValidate_DuplicateNodeID(t *testing.T) {
	def := feverGraph()
	def.Nodes[2].ID = "2"

	result := newTestValidator(t).Validate(def)
	require.False(t, result.Valid())
	assert.Equal(t, "nodes[2].id", result.Errors[0].Path)
	assert.Contains(t, result.Errors[0].Message, `duplicate node id "2"`)
}

func TestValidate_AuthoringGapsAreWarnings(t *testing.T) {
	def := &schema.ProtocolGraph{
		Name: "Gaps",
		Nodes: []schema.Node{
			schema.NewQuestion("1", "", "2", ""),
			schema.NewQuestion("2", "Rash?", "9", "3"),
			{ID: "3", Kind: schema.NodeKindResult, Result: &schema.ResultNode{Action: "Rest"}},
			schema.NewResult("4", schema.RiskLow, "orphan"),
		},
	}

	result := newTestValidator(t).Validate(def)
	assert.True(t, result.Valid())
	assert.ElementsMatch(t, []string{
		WarnEmptyText, WarnMissingBranch, WarnDanglingEdge, WarnMissingRisk, WarnUnreachable,
	}, issueCodes(result.Warnings))
}

func TestValidate_NoReachableResult(t *testing.T) {
	def := &schema.ProtocolGraph{
		Name: "Stalls",
		Nodes: []schema.Node{
			schema.NewQuestion("1", "Fever?", "", ""),
			schema.NewResult("2", schema.RiskLow, "Rest"),
		},
	}
	result := newTestValidator(t).Validate(def)
	assert.True(t, result.Valid())
	assert.Contains(t, issueCodes(result.Warnings), WarnNoReachableResult)
}

func TestValidate_CycleRejected(t *testing.T) {
	tests := []struct {
		name  string
		nodes []schema.Node
	}{
		{"self loop", []schema.Node{
			schema.NewQuestion("1", "Again?", "1", "2"),
			schema.NewResult("2", schema.RiskLow, "Rest"),
		}},
		{"back edge to ancestor", []schema.Node{
			schema.NewQuestion("1", "Fever?", "2", "3"),
			schema.NewQuestion("2", "Cough?", "1", "3"),
			schema.NewResult("3", schema.RiskLow, "Rest"),
		}},
	}
	v := newTestValidator(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := v.Validate(&schema.ProtocolGraph{Name: "c", Nodes: tt.nodes})
			require.Len(t, result.Errors, 1)
			assert.Equal(t, schema.ErrCodeCycleDetected, result.Errors[0].Code)
			assert.Equal(t, schema.ErrCodeCycleDetected, schema.CodeOf(result.ToError()))
		})
	}
}

func TestValidate_SharedTargetIsNotACycle(t *testing.T) {
	def := &schema.ProtocolGraph{
		Name: "Diamond",
		Nodes: []schema.Node{
			schema.NewQuestion("1", "Fever?", "2", "3"),
			schema.NewQuestion("2", "Rash?", "4", "4"),
			schema.NewQuestion("3", "Cough?", "4", "4"),
			schema.NewResult("4", schema.RiskLow, "Rest"),
		},
	}
	result := newTestValidator(t).Validate(def)
	assert.True(t, result.Valid())
	assert.Empty(t, result.Warnings)
}

func TestValidateAssessment(t *testing.T) {
	v := newTestValidator(t)

	require.NoError(t, v.ValidateAssessment(&schema.Assessment{ID: "A1", Symptoms: []string{"Fever"}}))
	require.NoError(t, v.ValidateAssessment(&schema.Assessment{ID: "P1", Symptoms: []string{}, Mode: schema.ModeProtocol}))

	assert.True(t, schema.IsValidation(v.ValidateAssessment(nil)))
	assert.True(t, schema.IsValidation(v.ValidateAssessment(&schema.Assessment{Symptoms: []string{"Fever"}})))
	assert.True(t, schema.IsValidation(v.ValidateAssessment(&schema.Assessment{ID: "A1"})))
	assert.True(t, schema.IsValidation(v.ValidateAssessment(&schema.Assessment{ID: "A1", Symptoms: []string{}, Mode: "other"})))
}

func TestValidateBatch(t *testing.T) {
	v := newTestValidator(t)

	assert.True(t, schema.IsValidation(v.ValidateBatch(nil)))
	assert.True(t, schema.IsValidation(v.ValidateBatch([]schema.Assessment{})))
	assert.NoError(t, v.ValidateBatch([]schema.Assessment{{ID: ""}, {ID: "A1"}}))
}
