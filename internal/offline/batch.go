package offline

import (
	"encoding/json"

	"github.com/jeevan-health/triage/pkg/schema"
)

// The server caps request bodies at 1MB; batches stay well under it.
const (
	DefaultMaxBatchRecords = 250
	DefaultMaxBatchBytes   = 512 * 1024
)

// splitBatches cuts records into consecutive batches of at most maxRecords
// records and roughly maxBytes of encoded JSON. A record larger than
// maxBytes on its own still gets a batch of one.
func splitBatches(records []schema.Assessment, maxRecords, maxBytes int) ([][]schema.Assessment, error) {
	var (
		batches [][]schema.Assessment
		start   int
		size    int
	)
	for i, rec := range records {
		b, err := json.Marshal(rec)
		if err != nil {
			return nil, schema.NewErrorf(schema.ErrCodeInternal, "encode assessment %s", rec.ID).WithCause(err)
		}
		n := len(b) + 1
		if i > start && (i-start >= maxRecords || size+n > maxBytes) {
			batches = append(batches, records[start:i])
			start, size = i, 0
		}
		size += n
	}
	if start < len(records) {
		batches = append(batches, records[start:])
	}
	return batches, nil
}

func idsOf(records []schema.Assessment) []string {
	ids := make([]string, len(records))
	for i, rec := range records {
		ids[i] = rec.ID
	}
	return ids
}
