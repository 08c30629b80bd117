package schema

import "fmt"

// ValidationSeverity splits protocol issues into rejections and notes.
type ValidationSeverity string

const (
	SeverityError   ValidationSeverity = "error"
	SeverityWarning ValidationSeverity = "warning"
)

// ValidationIssue locates one problem in a protocol or record. Path is a
// dotted location such as nodes[2].yes.
type ValidationIssue struct {
	Path     string             `json:"path"`
	Code     string             `json:"code"`
	Message  string             `json:"message"`
	Severity ValidationSeverity `json:"severity"`
}

// ValidationResult collects what the structural, semantic and graph checks
// found. Only Errors block a save; Warnings (dangling edges, unreachable
// nodes) are returned to the author alongside the stored protocol.
type ValidationResult struct {
	Errors   []ValidationIssue `json:"errors,omitempty"`
	Warnings []ValidationIssue `json:"warnings,omitempty"`
}

func (r *ValidationResult) Valid() bool { return len(r.Errors) == 0 }

func (r *ValidationResult) AddError(path, code, message string) {
	r.Errors = append(r.Errors, newIssue(path, code, message, SeverityError))
}

func (r *ValidationResult) AddWarning(path, code, message string) {
	r.Warnings = append(r.Warnings, newIssue(path, code, message, SeverityWarning))
}

// Merge appends the issues of a later stage. A nil stage is skipped.
func (r *ValidationResult) Merge(stage *ValidationResult) {
	if stage == nil {
		return
	}
	r.Errors = append(r.Errors, stage.Errors...)
	r.Warnings = append(r.Warnings, stage.Warnings...)
}

// ToError is nil for an accepted protocol. Otherwise the error is
// VALIDATION_ERROR carrying every issue in Details, except that a protocol
// whose only fault is a loop reports CYCLE_DETECTED.
func (r *ValidationResult) ToError() error {
	if r.Valid() {
		return nil
	}

	first := r.Errors[0]
	code, msg := ErrCodeValidation, first.Message
	switch {
	case len(r.Errors) > 1:
		msg = fmt.Sprintf("validation failed with %d errors; first at %s: %s", len(r.Errors), first.Path, first.Message)
	case first.Code == ErrCodeCycleDetected:
		code = ErrCodeCycleDetected
	}

	return NewError(code, msg).WithDetails(map[string]any{
		"error_count":   len(r.Errors),
		"warning_count": len(r.Warnings),
		"errors":        r.Errors,
		"warnings":      r.Warnings,
	})
}

func newIssue(path, code, message string, sev ValidationSeverity) ValidationIssue {
	return ValidationIssue{Path: path, Code: code, Message: message, Severity: sev}
}
