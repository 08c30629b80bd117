package validation

import "github.com/jeevan-health/triage/pkg/schema"

// ProtocolValidator runs the protocol definition pipeline:
// 1. Structural (JSON Schema)
// 2. Semantic (node ids, edge targets)
// 3. Graph (cycles, reachability)
// and the record checks used by save and push.
type ProtocolValidator struct {
	jsonSchema *JSONSchemaValidator
}

// NewProtocolValidator creates a ProtocolValidator.
func NewProtocolValidator() (*ProtocolValidator, error) {
	jsv, err := NewJSONSchemaValidator()
	if err != nil {
		return nil, err
	}
	return &ProtocolValidator{jsonSchema: jsv}, nil
}

// Validate runs the full pipeline and returns an aggregated result.
// Structural errors short-circuit: semantic and graph stages are skipped.
func (pv *ProtocolValidator) Validate(def *schema.ProtocolGraph) *schema.ValidationResult {
	result := validateStructural(pv.jsonSchema, def)
	if !result.Valid() {
		return result
	}

	result.Merge(validateSemantic(def))

	// Duplicate ids make the edge graph ambiguous.
	if result.Valid() {
		result.Merge(validateGraph(def))
	}
	return result
}

// ValidateProtocol returns the pipeline outcome as an error, nil if valid.
func (pv *ProtocolValidator) ValidateProtocol(def *schema.ProtocolGraph) error {
	return pv.Validate(def).ToError()
}

// ValidateAssessment rejects a record missing its id or symptom list.
func (pv *ProtocolValidator) ValidateAssessment(rec *schema.Assessment) error {
	return pv.jsonSchema.ValidateAssessment(rec)
}

// ValidateBatch rejects an empty push batch.
func (pv *ProtocolValidator) ValidateBatch(records []schema.Assessment) error {
	return pv.jsonSchema.ValidateBatch(records)
}

// validateStructural converts JSONSchemaValidator output into a
// ValidationResult, one issue per violation.
func validateStructural(v *JSONSchemaValidator, def *schema.ProtocolGraph) *schema.ValidationResult {
	result := &schema.ValidationResult{}

	err := v.ValidateProtocol(def)
	if err == nil {
		return result
	}

	te, ok := err.(*schema.TriageError)
	if !ok {
		result.AddError("/", schema.ErrCodeValidation, err.Error())
		return result
	}
	if violations, ok := te.Details["violations"].([]string); ok {
		for _, v := range violations {
			result.AddError("/", schema.ErrCodeValidation, v)
		}
		return result
	}
	result.AddError("/", schema.ErrCodeValidation, te.Message)
	return result
}
