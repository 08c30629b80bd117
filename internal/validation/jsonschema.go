package validation

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/jeevan-health/triage/pkg/schema"
	jsonschema "github.com/santhosh-tekuri/jsonschema/v6"
)

const (
	protocolSchemaURL   = "https://triage.jeevan.health/schemas/protocol.json"
	assessmentSchemaURL = "https://triage.jeevan.health/schemas/assessment.json"
	batchSchemaURL      = "https://triage.jeevan.health/schemas/push-batch.json"
)

// protocolSchemaJSON describes the flat node shape emitted by the protocol
// builder. Node ids and edge targets may be strings or numbers.
const protocolSchemaJSON = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "$id": "https://triage.jeevan.health/schemas/protocol.json",
  "type": "object",
  "required": ["name", "nodes"],
  "properties": {
    "id": { "type": "string" },
    "name": { "type": "string", "minLength": 1 },
    "nodes": {
      "type": "array",
      "minItems": 1,
      "items": { "$ref": "#/$defs/node" }
    }
  },
  "$defs": {
    "ref": {
      "oneOf": [
        { "type": "string", "minLength": 1 },
        { "type": "number" }
      ]
    },
    "node": {
      "type": "object",
      "required": ["id", "type"],
      "properties": {
        "id": { "$ref": "#/$defs/ref" },
        "type": { "type": "string", "enum": ["question", "result"] },
        "text": { "type": "string" },
        "weight": { "type": "number", "minimum": 0 },
        "yes": { "$ref": "#/$defs/ref" },
        "no": { "$ref": "#/$defs/ref" },
        "risk": { "type": "string", "enum": ["Low", "Medium", "High", "Critical"] },
        "action": { "type": "string" }
      }
    }
  }
}`

// assessmentSchemaJSON holds the minimum a saved record must carry.
const assessmentSchemaJSON = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "$id": "https://triage.jeevan.health/schemas/assessment.json",
  "type": "object",
  "required": ["id", "symptoms"],
  "properties": {
    "id": { "type": "string", "minLength": 1 },
    "symptoms": { "type": "array", "items": { "type": "string" } },
    "mode": { "type": "string", "enum": ["symptom", "protocol"] },
    "answers": { "type": "object", "additionalProperties": { "type": "string" } },
    "result": { "type": ["object", "null"] }
  }
}`

// batchSchemaJSON only requires a non-empty array of objects; records
// without an id are counted as skipped at ingest, not rejected here.
const batchSchemaJSON = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "$id": "https://triage.jeevan.health/schemas/push-batch.json",
  "type": "array",
  "minItems": 1,
  "items": { "type": "object" }
}`

// JSONSchemaValidator checks documents against the embedded schemas using
// JSON Schema Draft 2020-12. It is safe for concurrent use.
type JSONSchemaValidator struct {
	protocol   *jsonschema.Schema
	assessment *jsonschema.Schema
	batch      *jsonschema.Schema
}

// NewJSONSchemaValidator compiles the embedded schemas.
func NewJSONSchemaValidator() (*JSONSchemaValidator, error) {
	c := jsonschema.NewCompiler()
	c.AssertFormat()

	compiled := make(map[string]*jsonschema.Schema, 3)
	for url, doc := range map[string]string{
		protocolSchemaURL:   protocolSchemaJSON,
		assessmentSchemaURL: assessmentSchemaJSON,
		batchSchemaURL:      batchSchemaJSON,
	} {
		parsed, err := jsonschema.UnmarshalJSON(strings.NewReader(doc))
		if err != nil {
			return nil, fmt.Errorf("unmarshal schema %s: %w", url, err)
		}
		if err := c.AddResource(url, parsed); err != nil {
			return nil, fmt.Errorf("add schema resource %s: %w", url, err)
		}
	}
	for _, url := range []string{protocolSchemaURL, assessmentSchemaURL, batchSchemaURL} {
		sch, err := c.Compile(url)
		if err != nil {
			return nil, fmt.Errorf("compile schema %s: %w", url, err)
		}
		compiled[url] = sch
	}

	return &JSONSchemaValidator{
		protocol:   compiled[protocolSchemaURL],
		assessment: compiled[assessmentSchemaURL],
		batch:      compiled[batchSchemaURL],
	}, nil
}

// ValidateProtocol checks a protocol definition's structure.
func (v *JSONSchemaValidator) ValidateProtocol(def *schema.ProtocolGraph) error {
	if def == nil {
		return schema.NewError(schema.ErrCodeValidation, "protocol definition is nil")
	}
	return validateDoc(v.protocol, def, "protocol definition")
}

// ValidateAssessment checks that a record carries an id and a symptom list.
func (v *JSONSchemaValidator) ValidateAssessment(rec *schema.Assessment) error {
	if rec == nil {
		return schema.NewError(schema.ErrCodeValidation, "assessment is nil")
	}
	return validateDoc(v.assessment, rec, "assessment")
}

// ValidateBatch checks that a push batch is a non-empty list.
func (v *JSONSchemaValidator) ValidateBatch(records []schema.Assessment) error {
	if len(records) == 0 {
		return schema.NewError(schema.ErrCodeValidation, "assessments array is required")
	}
	return validateDoc(v.batch, records, "push batch")
}

func validateDoc(sch *jsonschema.Schema, v any, what string) error {
	doc, err := toJSONValue(v)
	if err != nil {
		return schema.NewErrorf(schema.ErrCodeValidation, "failed to serialize %s", what).WithCause(err)
	}
	if err := sch.Validate(doc); err != nil {
		return toTriageError(err)
	}
	return nil
}

// toJSONValue round-trips a Go value through JSON encoding/decoding so that
// numeric values become json.Number (required by the jsonschema library).
func toJSONValue(v any) (any, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return jsonschema.UnmarshalJSON(strings.NewReader(string(b)))
}

// toTriageError converts a jsonschema.ValidationError into a TriageError
// listing every leaf violation.
func toTriageError(err error) *schema.TriageError {
	var verr *jsonschema.ValidationError
	if !errors.As(err, &verr) {
		return schema.NewError(schema.ErrCodeValidation, err.Error())
	}

	violations := collectViolations(verr)
	if len(violations) == 0 {
		return schema.NewError(schema.ErrCodeValidation, verr.Error())
	}

	msg := violations[0]
	if len(violations) > 1 {
		msg = fmt.Sprintf("validation failed with %d errors", len(violations))
	}
	return schema.NewError(schema.ErrCodeValidation, msg).
		WithDetails(map[string]any{"violations": violations})
}

// collectViolations walks a ValidationError tree and collects leaf error
// messages prefixed with their instance locations.
func collectViolations(verr *jsonschema.ValidationError) []string {
	if len(verr.Causes) == 0 {
		loc := "/"
		if len(verr.InstanceLocation) > 0 {
			loc = "/" + strings.Join(verr.InstanceLocation, "/")
		}
		return []string{fmt.Sprintf("%s: %s", loc, verr.Error())}
	}

	var violations []string
	for _, cause := range verr.Causes {
		violations = append(violations, collectViolations(cause)...)
	}
	return violations
}
