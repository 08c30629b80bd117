package offline

import (
	"context"
	"encoding/json"
	"slices"
	"sync"

	"github.com/jeevan-health/triage/internal/store"
	"github.com/jeevan-health/triage/pkg/schema"
)

// Keys in the agent's keyed store.
const (
	KeyAssessments = "triage_all_assessments"
	KeyPending     = "triage_pending_sync"
	KeyConditions  = "triage_cache_conditions"
	KeySymptoms    = "triage_cache_symptoms"
	KeyProtocols   = "triage_cache_protocols"
)

// LocalStore is the client-authoritative record set plus the PendingSet.
// Both are rewritten whole on every change; mu serialises those cycles
// within the process.
type LocalStore struct {
	kv store.KeyValueStore
	mu sync.Mutex
}

// NewLocalStore returns a LocalStore over kv.
func NewLocalStore(kv store.KeyValueStore) *LocalStore {
	return &LocalStore{kv: kv}
}

// Records returns every local record in save order.
func (l *LocalStore) Records(ctx context.Context) ([]schema.Assessment, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.records(ctx)
}

// Upsert replaces the record with the same id or appends it, and marks the
// id pending. The pending mark is written first so a crash in between
// leaves at worst a pending id with no record, which the next flush drops.
func (l *LocalStore) Upsert(ctx context.Context, rec schema.Assessment) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	pending, err := l.pending(ctx)
	if err != nil {
		return err
	}
	if !slices.Contains(pending, rec.ID) {
		if err := setJSON(ctx, l.kv, KeyPending, append(pending, rec.ID)); err != nil {
			return err
		}
	}

	records, err := l.records(ctx)
	if err != nil {
		return err
	}
	if i := slices.IndexFunc(records, func(r schema.Assessment) bool { return r.ID == rec.ID }); i >= 0 {
		records[i] = rec
	} else {
		records = append(records, rec)
	}
	return setJSON(ctx, l.kv, KeyAssessments, records)
}

// Remove deletes the record and its pending mark, reporting whether the
// record existed locally.
func (l *LocalStore) Remove(ctx context.Context, id string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	records, err := l.records(ctx)
	if err != nil {
		return false, err
	}
	n := len(records)
	records = slices.DeleteFunc(records, func(r schema.Assessment) bool { return r.ID == id })
	if len(records) != n {
		if err := setJSON(ctx, l.kv, KeyAssessments, records); err != nil {
			return false, err
		}
	}

	pending, err := l.pending(ctx)
	if err != nil {
		return false, err
	}
	if slices.Contains(pending, id) {
		pending = slices.DeleteFunc(pending, func(p string) bool { return p == id })
		if err := setJSON(ctx, l.kv, KeyPending, pending); err != nil {
			return false, err
		}
	}
	return len(records) != n, nil
}

// Pending returns the ids not yet confirmed on the server.
func (l *LocalStore) Pending(ctx context.Context) ([]string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.pending(ctx)
}

// PendingRecords returns the records whose ids are pending, plus pending
// ids that no longer have a local record.
func (l *LocalStore) PendingRecords(ctx context.Context) ([]schema.Assessment, []string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	pending, err := l.pending(ctx)
	if err != nil || len(pending) == 0 {
		return nil, nil, err
	}
	records, err := l.records(ctx)
	if err != nil {
		return nil, nil, err
	}

	var out []schema.Assessment
	present := make(map[string]bool, len(records))
	for _, r := range records {
		if slices.Contains(pending, r.ID) {
			out = append(out, r)
			present[r.ID] = true
		}
	}
	var orphans []string
	for _, id := range pending {
		if !present[id] {
			orphans = append(orphans, id)
		}
	}
	return out, orphans, nil
}

// ClearPending removes ids from the PendingSet. Ids added since the caller
// took its snapshot are kept.
func (l *LocalStore) ClearPending(ctx context.Context, ids []string) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	pending, err := l.pending(ctx)
	if err != nil {
		return 0, err
	}
	kept := slices.DeleteFunc(pending, func(p string) bool { return slices.Contains(ids, p) })
	if err := setJSON(ctx, l.kv, KeyPending, kept); err != nil {
		return 0, err
	}
	return len(kept), nil
}

func (l *LocalStore) records(ctx context.Context) ([]schema.Assessment, error) {
	records := []schema.Assessment{}
	_, err := getJSON(ctx, l.kv, KeyAssessments, &records)
	return records, err
}

func (l *LocalStore) pending(ctx context.Context) ([]string, error) {
	pending := []string{}
	_, err := getJSON(ctx, l.kv, KeyPending, &pending)
	return pending, err
}

// getJSON decodes key into dst. It reports false, with dst untouched, when
// the key is absent.
func getJSON(ctx context.Context, kv store.KeyValueStore, key string, dst any) (bool, error) {
	raw, err := kv.Get(ctx, key)
	if schema.IsNotFound(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return false, schema.NewErrorf(schema.ErrCodeStore, "decode %s", key).WithCause(err)
	}
	return true, nil
}

func setJSON(ctx context.Context, kv store.KeyValueStore, key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return schema.NewErrorf(schema.ErrCodeStore, "encode %s", key).WithCause(err)
	}
	return kv.Set(ctx, key, raw)
}
