package schema

// Condition is one entry of the read-only conditions catalog.
type Condition struct {
	Name      string             `json:"name" yaml:"name"`
	Risk      RiskTier           `json:"risk" yaml:"risk"`
	Action    string             `json:"action" yaml:"action"`
	Symptoms  []string           `json:"symptoms" yaml:"symptoms"`
	Weights   map[string]float64 `json:"weights,omitempty" yaml:"weights,omitempty"`
	Questions []string           `json:"questions,omitempty" yaml:"questions,omitempty"`
}

// HasSymptom reports whether the condition lists symptom s.
func (c *Condition) HasSymptom(s string) bool {
	for _, cs := range c.Symptoms {
		if cs == s {
			return true
		}
	}
	return false
}

// Catalog is the reference data bundle imported into the server store.
type Catalog struct {
	Symptoms   []string    `json:"symptoms" yaml:"symptoms"`
	Conditions []Condition `json:"conditions" yaml:"conditions"`
}
