package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeevan-health/triage/pkg/schema"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadCatalog_YAML(t *testing.T) {
	path := writeFile(t, "catalog.yaml", `
conditions:
  - name: Flu
    risk: Medium
    action: Rest and fluids
    symptoms: [Fever, Cough, Fatigue]
    weights: {Fever: 3}
    questions: ["How many days of fever?"]
  - name: Common Cold
    risk: Low
    action: Rest
    symptoms: [Cough, Sneezing]
`)
	cat, err := loadCatalog(path)
	require.NoError(t, err)
	require.Len(t, cat.Conditions, 2)
	assert.Equal(t, 3.0, cat.Conditions[0].Weights["Fever"])
	assert.Equal(t, []string{"Cough", "Fatigue", "Fever", "Sneezing"}, cat.Symptoms)
}

func TestLoadCatalog_JSON(t *testing.T) {
	path := writeFile(t, "catalog.json", `{
  "symptoms": ["Fever", "Cough"],
  "conditions": [{"name": "Flu", "risk": "Medium", "action": "Rest", "symptoms": ["Fever", "Cough"]}]
}`)
	cat, err := loadCatalog(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"Fever", "Cough"}, cat.Symptoms)
	assert.Equal(t, schema.RiskMedium, cat.Conditions[0].Risk)
}

func TestLoadCatalog_Rejects(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"missing name", `conditions: [{risk: Low}]`},
		{"duplicate", `conditions: [{name: A, risk: Low}, {name: A, risk: Low}]`},
		{"bad risk", `conditions: [{name: A, risk: Severe}]`},
		{"negative weight", `conditions: [{name: A, risk: Low, weights: {X: -1}}]`},
		{"not yaml", `conditions: [`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := loadCatalog(writeFile(t, "c.yaml", tt.content))
			assert.Error(t, err)
		})
	}
}
