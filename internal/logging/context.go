package logging

import (
	"context"
	"log/slog"
)

type ctxKey int

const (
	graphIDKey ctxKey = iota
	nodeIDKey
	assessmentIDKey
)

// correlation lists the context keys carried into log records, in the
// order their attributes are emitted.
var correlation = []struct {
	key  ctxKey
	attr string
}{
	{graphIDKey, "graph_id"},
	{nodeIDKey, "node_id"},
	{assessmentIDKey, "assessment_id"},
}

// WithGraphID returns a context with the protocol graph ID set.
func WithGraphID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, graphIDKey, id)
}

// WithNodeID returns a context with the current node ID set.
func WithNodeID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, nodeIDKey, id)
}

// WithAssessmentID returns a context with the assessment record ID set.
func WithAssessmentID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, assessmentIDKey, id)
}

func GraphID(ctx context.Context) string      { return stringValue(ctx, graphIDKey) }
func NodeID(ctx context.Context) string       { return stringValue(ctx, nodeIDKey) }
func AssessmentID(ctx context.Context) string { return stringValue(ctx, assessmentIDKey) }

func stringValue(ctx context.Context, k ctxKey) string {
	v, _ := ctx.Value(k).(string)
	return v
}

// WithIDs sets the graph and node IDs of a traversal step at once.
func WithIDs(ctx context.Context, graphID, nodeID string) context.Context {
	return WithNodeID(WithGraphID(ctx, graphID), nodeID)
}

// attrs returns the non-empty correlation attributes held by ctx.
func attrs(ctx context.Context) []slog.Attr {
	var out []slog.Attr
	for _, c := range correlation {
		if v := stringValue(ctx, c.key); v != "" {
			out = append(out, slog.String(c.attr, v))
		}
	}
	return out
}

// LogWith returns a logger enriched with correlation IDs from the context.
func LogWith(ctx context.Context, logger *slog.Logger) *slog.Logger {
	for _, a := range attrs(ctx) {
		logger = logger.With(a)
	}
	return logger
}

// CorrelationHandler wraps an slog.Handler, injecting correlation IDs from
// the context into every record. Callers use logger.InfoContext(ctx, ...).
type CorrelationHandler struct {
	inner slog.Handler
}

// NewCorrelationHandler wraps the given handler.
func NewCorrelationHandler(inner slog.Handler) *CorrelationHandler {
	return &CorrelationHandler{inner: inner}
}

func (h *CorrelationHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

func (h *CorrelationHandler) Handle(ctx context.Context, r slog.Record) error {
	r.AddAttrs(attrs(ctx)...)
	return h.inner.Handle(ctx, r)
}

func (h *CorrelationHandler) WithAttrs(as []slog.Attr) slog.Handler {
	return &CorrelationHandler{inner: h.inner.WithAttrs(as)}
}

func (h *CorrelationHandler) WithGroup(name string) slog.Handler {
	return &CorrelationHandler{inner: h.inner.WithGroup(name)}
}
