package store

import (
	"context"
	"time"

	"github.com/jeevan-health/triage/pkg/schema"
)

// Assessments is the server-side record set.
type Assessments struct {
	cs  CollectionStore
	now func() time.Time
}

// NewAssessments returns an Assessments repository backed by cs.
func NewAssessments(cs CollectionStore) *Assessments {
	return &Assessments{cs: cs, now: func() time.Time { return time.Now().UTC() }}
}

// List returns every server-known record in ingest order.
func (a *Assessments) List(ctx context.Context) ([]schema.Assessment, error) {
	return readList[schema.Assessment](ctx, a.cs, CollectionAssessments)
}

// Ingest applies the upsert-by-id rule: a record whose id is absent is
// appended with SyncedAt stamped; a resident id is left untouched. Records
// without an id count as skipped. The batch is one read-modify-write cycle.
func (a *Assessments) Ingest(ctx context.Context, records []schema.Assessment) (schema.PushResult, error) {
	res := schema.PushResult{Total: len(records)}
	err := updateList(ctx, a.cs, CollectionAssessments, func(resident []schema.Assessment) ([]schema.Assessment, error) {
		res.Inserted, res.Skipped = 0, 0
		seen := make(map[string]struct{}, len(resident)+len(records))
		for _, r := range resident {
			seen[r.ID] = struct{}{}
		}
		stamp := a.now()
		for _, r := range records {
			if r.ID == "" {
				res.Skipped++
				continue
			}
			if _, ok := seen[r.ID]; ok {
				res.Skipped++
				continue
			}
			seen[r.ID] = struct{}{}
			synced := stamp
			r.SyncedAt = &synced
			resident = append(resident, r)
			res.Inserted++
		}
		return resident, nil
	})
	if err != nil {
		return schema.PushResult{}, err
	}
	return res, nil
}

// Delete removes the record with the given id and reports whether it existed.
func (a *Assessments) Delete(ctx context.Context, id string) (bool, error) {
	var found bool
	err := updateList(ctx, a.cs, CollectionAssessments, func(resident []schema.Assessment) ([]schema.Assessment, error) {
		kept := resident[:0]
		for _, r := range resident {
			if r.ID == id {
				found = true
				continue
			}
			kept = append(kept, r)
		}
		return kept, nil
	})
	return found, err
}
