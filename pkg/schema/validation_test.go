package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidationResult_EmptyIsValid(t *testing.T) {
	r := &ValidationResult{}
	assert.True(t, r.Valid())
}

func TestValidationResult_AddError(t *testing.T) {
	r := &ValidationResult{}
	r.AddError("nodes[0].yes", ErrCodeValidation, "edge missing")

	assert.False(t, r.Valid())
	require.Len(t, r.Errors, 1)
	assert.Equal(t, "nodes[0].yes", r.Errors[0].Path)
	assert.Equal(t, ErrCodeValidation, r.Errors[0].Code)
	assert.Equal(t, SeverityError, r.Errors[0].Severity)
}

func TestValidationResult_WarningsStayValid(t *testing.T) {
	r := &ValidationResult{}
	r.AddWarning("nodes[3]", ErrCodeValidation, "unreachable")

	assert.True(t, r.Valid())
	require.Len(t, r.Warnings, 1)
	assert.Equal(t, SeverityWarning, r.Warnings[0].Severity)
	assert.Nil(t, r.ToError())
}

func TestValidationResult_Merge(t *testing.T) {
	r1 := &ValidationResult{}
	r1.AddError("/", ErrCodeValidation, "err1")

	r2 := &ValidationResult{}
	r2.AddError("nodes", ErrCodeCycleDetected, "err2")
	r2.AddWarning("nodes[1]", ErrCodeValidation, "warn2")

	r1.Merge(r2)
	r1.Merge(nil)

	assert.Len(t, r1.Errors, 2)
	assert.Len(t, r1.Warnings, 1)
}

func TestValidationResult_ToError(t *testing.T) {
	t.Run("single error keeps message", func(t *testing.T) {
		r := &ValidationResult{}
		r.AddError("name", ErrCodeValidation, "name is required")

		var te *TriageError
		require.ErrorAs(t, r.ToError(), &te)
		assert.Equal(t, ErrCodeValidation, te.Code)
		assert.Equal(t, "name is required", te.Message)
		assert.Equal(t, 1, te.Details["error_count"])
	})

	t.Run("single cycle keeps its code", func(t *testing.T) {
		r := &ValidationResult{}
		r.AddError("nodes", ErrCodeCycleDetected, "protocol contains a cycle")

		err := r.ToError()
		assert.Equal(t, ErrCodeCycleDetected, CodeOf(err))
		assert.True(t, IsValidation(err))
	})

	t.Run("multiple errors summarised", func(t *testing.T) {
		r := &ValidationResult{}
		r.AddError("/", ErrCodeValidation, "err1")
		r.AddError("/", ErrCodeCycleDetected, "err2")

		var te *TriageError
		require.ErrorAs(t, r.ToError(), &te)
		assert.Equal(t, ErrCodeValidation, te.Code)
		assert.Contains(t, te.Message, "2 errors")
		assert.Contains(t, te.Message, "first at /: err1")
	})
}
