package streaming

import (
	"context"
	"time"

	"github.com/jeevan-health/triage/pkg/schema"
)

// SyncEvent is emitted by the field agent's reconciler.
type SyncEvent struct {
	Type         string                    `json:"type"`
	At           time.Time                 `json:"at"`
	Status       schema.ConnectivityStatus `json:"status,omitempty"`
	Pending      int                       `json:"pending"`
	AssessmentID string                    `json:"assessmentId,omitempty"`
	Result       *schema.PushResult        `json:"result,omitempty"`
	Error        string                    `json:"error,omitempty"`
}

// EventFilter selects event types; empty means all.
type EventFilter struct {
	Types []string `json:"types,omitempty"`
}

// EventHub provides pub/sub for sync events.
type EventHub interface {
	Publish(ctx context.Context, event SyncEvent) error
	Subscribe(ctx context.Context, filter EventFilter) (<-chan SyncEvent, func(), error)
}
