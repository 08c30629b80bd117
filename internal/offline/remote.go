package offline

import (
	"context"

	"github.com/jeevan-health/triage/pkg/schema"
)

// Remote is the central server as seen from the field agent. Every
// transport or server failure surfaces as an OFFLINE error; NOT_FOUND is
// kept distinct so callers can tell absence from unreachability.
type Remote interface {
	PushBatch(ctx context.Context, records []schema.Assessment) (schema.PushResult, error)
	DeleteAssessment(ctx context.Context, id string) (bool, error)
	Status(ctx context.Context) (schema.ConnectivityStatus, error)

	Conditions(ctx context.Context) ([]schema.Condition, error)
	Symptoms(ctx context.Context) ([]string, error)
	ListGraphs(ctx context.Context) ([]schema.ProtocolGraph, error)
	GetGraph(ctx context.Context, id string) (*schema.ProtocolGraph, error)
}
