package store

import (
	"context"

	"github.com/google/uuid"

	"github.com/jeevan-health/triage/pkg/schema"
)

// Graphs is the Graph Store: wholesale CRUD over protocol graphs kept in the
// protocols collection.
type Graphs struct {
	cs CollectionStore
}

// NewGraphs returns a Graphs repository backed by cs.
func NewGraphs(cs CollectionStore) *Graphs {
	return &Graphs{cs: cs}
}

// NewGraphID returns a server-assigned protocol id.
func NewGraphID() string {
	return "protocol_" + uuid.NewString()
}

// List returns every stored graph in creation order.
func (g *Graphs) List(ctx context.Context) ([]schema.ProtocolGraph, error) {
	return readList[schema.ProtocolGraph](ctx, g.cs, CollectionProtocols)
}

// Get returns the graph with the given id or NOT_FOUND.
func (g *Graphs) Get(ctx context.Context, id string) (*schema.ProtocolGraph, error) {
	graphs, err := g.List(ctx)
	if err != nil {
		return nil, err
	}
	for i := range graphs {
		if graphs[i].ID == id {
			return &graphs[i], nil
		}
	}
	return nil, storeNotFound("protocol", id)
}

// Create appends def, assigning an id when it has none. An id that is
// already stored is rejected; graphs are never patched in place.
func (g *Graphs) Create(ctx context.Context, def schema.ProtocolGraph) (*schema.ProtocolGraph, error) {
	if def.ID == "" {
		def.ID = NewGraphID()
	}
	err := updateList(ctx, g.cs, CollectionProtocols, func(graphs []schema.ProtocolGraph) ([]schema.ProtocolGraph, error) {
		for _, existing := range graphs {
			if existing.ID == def.ID {
				return nil, schema.Invalidf("protocol %q already exists", def.ID)
			}
		}
		return append(graphs, def), nil
	})
	if err != nil {
		return nil, err
	}
	return &def, nil
}

// Delete removes the graph with the given id and reports whether it existed.
func (g *Graphs) Delete(ctx context.Context, id string) (bool, error) {
	var found bool
	err := updateList(ctx, g.cs, CollectionProtocols, func(graphs []schema.ProtocolGraph) ([]schema.ProtocolGraph, error) {
		kept := graphs[:0]
		for _, existing := range graphs {
			if existing.ID == id {
				found = true
				continue
			}
			kept = append(kept, existing)
		}
		return kept, nil
	})
	return found, err
}
