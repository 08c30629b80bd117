package filter

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/itchyny/gojq"

	"github.com/jeevan-health/triage/pkg/schema"
)

// RecordFilter selects assessment records with a jq expression evaluated
// against each record's JSON form. A record is kept when the first output
// is neither null nor false. Compiled expressions are cached and reused
// across goroutines.
type RecordFilter struct {
	mu    sync.RWMutex
	cache map[string]*gojq.Code
}

// New creates a RecordFilter.
func New() *RecordFilter {
	return &RecordFilter{cache: make(map[string]*gojq.Code)}
}

// Apply returns the records matching expression, preserving order. An empty
// expression keeps every record.
func (f *RecordFilter) Apply(ctx context.Context, expression string, records []schema.Assessment) ([]schema.Assessment, error) {
	if expression == "" {
		return records, nil
	}
	code, err := f.getOrCompile(expression)
	if err != nil {
		return nil, err
	}

	kept := make([]schema.Assessment, 0, len(records))
	for _, rec := range records {
		doc, err := toJQValue(rec)
		if err != nil {
			return nil, schema.NewErrorf(schema.ErrCodeInternal, "encode record %q", rec.ID).WithCause(err)
		}
		ok, err := matches(ctx, code, doc, expression)
		if err != nil {
			return nil, err
		}
		if ok {
			kept = append(kept, rec)
		}
	}
	return kept, nil
}

func matches(ctx context.Context, code *gojq.Code, doc any, expression string) (bool, error) {
	iter := code.RunWithContext(ctx, doc)
	val, ok := iter.Next()
	if !ok {
		return false, nil
	}
	if err, isErr := val.(error); isErr {
		return false, schema.NewErrorf(schema.ErrCodeValidation,
			"filter evaluation failed for %q: %s", expression, err.Error()).
			WithCause(err).
			WithDetails(map[string]any{"expression": expression})
	}
	return val != nil && val != false, nil
}

// getOrCompile returns a cached compiled code or compiles and caches a new one.
func (f *RecordFilter) getOrCompile(expression string) (*gojq.Code, error) {
	f.mu.RLock()
	if code, ok := f.cache[expression]; ok {
		f.mu.RUnlock()
		return code, nil
	}
	f.mu.RUnlock()

	f.mu.Lock()
	defer f.mu.Unlock()

	if code, ok := f.cache[expression]; ok {
		return code, nil
	}

	query, err := gojq.Parse(expression)
	if err != nil {
		return nil, schema.NewErrorf(schema.ErrCodeValidation,
			"filter parse error in %q: %s", expression, err.Error()).
			WithCause(err).
			WithDetails(map[string]any{"expression": expression})
	}

	// Sandbox: no $ENV access.
	code, err := gojq.Compile(query, gojq.WithEnvironLoader(func() []string { return nil }))
	if err != nil {
		return nil, schema.NewErrorf(schema.ErrCodeValidation,
			"filter compile error in %q: %s", expression, err.Error()).
			WithCause(err).
			WithDetails(map[string]any{"expression": expression})
	}

	f.cache[expression] = code
	return code, nil
}

// toJQValue converts a record into the plain map/slice/float64 shape gojq
// evaluates over.
func toJQValue(rec schema.Assessment) (any, error) {
	b, err := json.Marshal(rec)
	if err != nil {
		return nil, err
	}
	var doc map[string]any
	if err := json.Unmarshal(b, &doc); err != nil {
		return nil, fmt.Errorf("decode record: %w", err)
	}
	return doc, nil
}
