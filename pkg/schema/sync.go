package schema

// PushResult reports how a batch push was ingested by the server.
type PushResult struct {
	Inserted int `json:"insertedCount"`
	Skipped  int `json:"skippedCount"`
	Total    int `json:"total"`
}

// ConnectivityStatus is the coarse reachability indicator.
type ConnectivityStatus string

const (
	StatusOnline  ConnectivityStatus = "Online"
	StatusOffline ConnectivityStatus = "Offline"
)

// Sync event types published by the reconciler.
const (
	EventStatusChanged = "status_changed"
	EventFlushed       = "flushed"
	EventFlushFailed   = "flush_failed"
	EventSaved         = "saved"
	EventDeleted       = "deleted"
)
