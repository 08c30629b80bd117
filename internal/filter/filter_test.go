package filter

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeevan-health/triage/pkg/schema"
)

func sampleRecords() []schema.Assessment {
	return []schema.Assessment{
		{ID: "A1", PatientName: "Asha", Mode: schema.ModeSymptom, Symptoms: []string{"Fever", "Cough"},
			Result: &schema.TriageResult{RiskLevel: schema.RiskMedium, Conditions: []schema.ConditionScore{{Name: "Flu", Score: 70}}}},
		{ID: "P2", PatientName: "Bilal", Mode: schema.ModeProtocol, Symptoms: []string{},
			Result: &schema.TriageResult{RiskLevel: schema.RiskHigh}},
		{ID: "A3", PatientName: "Chen", Mode: schema.ModeSymptom, Symptoms: []string{"Rash"}},
	}
}

func ids(records []schema.Assessment) []string {
	out := make([]string, 0, len(records))
	for _, r := range records {
		out = append(out, r.ID)
	}
	return out
}

func TestApply(t *testing.T) {
	tests := []struct {
		name string
		expr string
		want []string
	}{
		{"empty keeps all", "", []string{"A1", "P2", "A3"}},
		{"by mode", `.mode == "protocol"`, []string{"P2"}},
		{"by risk", `.result.riskLevel == "High" or .result.riskLevel == "Medium"`, []string{"A1", "P2"}},
		{"by symptom", `any(.symptoms[]; . == "Fever")`, []string{"A1"}},
		{"by score", `[.result.conditions[]?.score] | any(. >= 50)`, []string{"A1"}},
		{"null output drops", `.missing`, []string{}},
		{"no output drops", `empty`, []string{}},
	}
	f := New()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := f.Apply(context.Background(), tt.expr, sampleRecords())
			require.NoError(t, err)
			assert.Equal(t, tt.want, ids(got))
		})
	}
}

func TestApply_ParseError(t *testing.T) {
	_, err := New().Apply(context.Background(), ".mode ==", sampleRecords())
	require.Error(t, err)
	assert.True(t, schema.IsValidation(err))
}

func TestApply_RuntimeError(t *testing.T) {
	_, err := New().Apply(context.Background(), `.patientName | keys`, sampleRecords())
	require.Error(t, err)
	assert.True(t, schema.IsValidation(err))
	assert.Contains(t, err.Error(), "filter evaluation failed")
}

func TestApply_ConcurrentCompileCache(t *testing.T) {
	f := New()
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, err := f.Apply(context.Background(), `.mode == "symptom"`, sampleRecords())
			assert.NoError(t, err)
			assert.Len(t, got, 2)
		}()
	}
	wg.Wait()
	assert.Len(t, f.cache, 1)
}
