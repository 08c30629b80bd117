package store

import (
	"context"

	"github.com/jeevan-health/triage/pkg/schema"
)

// Catalog serves the read-only reference collections.
type Catalog struct {
	cs CollectionStore
}

// NewCatalog returns a Catalog repository backed by cs.
func NewCatalog(cs CollectionStore) *Catalog {
	return &Catalog{cs: cs}
}

func (c *Catalog) Conditions(ctx context.Context) ([]schema.Condition, error) {
	return readList[schema.Condition](ctx, c.cs, CollectionConditions)
}

func (c *Catalog) Symptoms(ctx context.Context) ([]string, error) {
	return readList[string](ctx, c.cs, CollectionSymptoms)
}

// Import replaces both reference collections.
func (c *Catalog) Import(ctx context.Context, cat schema.Catalog) error {
	if err := writeList(ctx, c.cs, CollectionSymptoms, cat.Symptoms); err != nil {
		return err
	}
	return writeList(ctx, c.cs, CollectionConditions, cat.Conditions)
}
