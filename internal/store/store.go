package store

import (
	"context"
	"encoding/json"
)

// Collection names used by the server document store.
const (
	CollectionProtocols   = "protocols"
	CollectionAssessments = "assessments"
	CollectionConditions  = "conditions"
	CollectionSymptoms    = "symptoms"
)

// UpdateFunc receives the current contents of a collection (nil when the
// collection has never been written) and returns the replacement.
type UpdateFunc func(current json.RawMessage) (json.RawMessage, error)

// CollectionStore is a named-collection document store with
// whole-collection semantics. Implementations must be safe for concurrent
// use; Update cycles on the same collection never interleave.
type CollectionStore interface {
	ReadCollection(ctx context.Context, name string) (json.RawMessage, error)
	WriteCollection(ctx context.Context, name string, data json.RawMessage) error
	Update(ctx context.Context, name string, fn UpdateFunc) error
}

// KeyValueStore is the persistent keyed store held by the field agent.
// Get returns a NOT_FOUND error for an unknown key.
type KeyValueStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}

// Store is the full persistence contract of one database file.
type Store interface {
	CollectionStore
	KeyValueStore

	// Maintenance
	Migrate(ctx context.Context) error

	// Lifecycle
	Close() error
}
