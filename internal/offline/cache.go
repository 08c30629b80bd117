package offline

import (
	"context"
	"log/slog"
	"slices"

	"github.com/jeevan-health/triage/internal/logging"
	"github.com/jeevan-health/triage/internal/store"
	"github.com/jeevan-health/triage/pkg/schema"
)

// Cache is a read-through cache of the server's reference collections.
// A successful fetch refreshes the cached copy; a failed one serves it.
// It satisfies the engine's CatalogSource and GraphSource so the agent
// can score and traverse without connectivity.
type Cache struct {
	kv     store.KeyValueStore
	remote Remote
	logger *slog.Logger
}

// NewCache creates a Cache.
func NewCache(kv store.KeyValueStore, remote Remote, logger *slog.Logger) *Cache {
	return &Cache{kv: kv, remote: remote, logger: logging.Default(logger)}
}

func (c *Cache) Conditions(ctx context.Context) ([]schema.Condition, error) {
	return readThrough(ctx, c, KeyConditions, c.remote.Conditions)
}

func (c *Cache) Symptoms(ctx context.Context) ([]string, error) {
	return readThrough(ctx, c, KeySymptoms, c.remote.Symptoms)
}

func (c *Cache) ListGraphs(ctx context.Context) ([]schema.ProtocolGraph, error) {
	return readThrough(ctx, c, KeyProtocols, c.remote.ListGraphs)
}

// Get fetches one graph. A NOT_FOUND from a reachable server is final;
// when the server is unreachable the cached protocol list is searched.
func (c *Cache) Get(ctx context.Context, id string) (*schema.ProtocolGraph, error) {
	g, err := c.remote.GetGraph(ctx, id)
	if err == nil {
		c.remember(ctx, *g)
		return g, nil
	}
	if schema.IsNotFound(err) {
		return nil, err
	}

	var cached []schema.ProtocolGraph
	ok, cerr := getJSON(ctx, c.kv, KeyProtocols, &cached)
	if cerr != nil {
		return nil, cerr
	}
	if !ok {
		return nil, err
	}
	for i := range cached {
		if cached[i].ID == id {
			c.logger.DebugContext(logging.WithGraphID(ctx, id), "serving cached protocol")
			return &cached[i], nil
		}
	}
	return nil, schema.NotFoundf("protocol %q not found in offline cache", id)
}

// remember adds or replaces g in the cached protocol list.
func (c *Cache) remember(ctx context.Context, g schema.ProtocolGraph) {
	var cached []schema.ProtocolGraph
	if _, err := getJSON(ctx, c.kv, KeyProtocols, &cached); err != nil {
		return
	}
	if i := slices.IndexFunc(cached, func(x schema.ProtocolGraph) bool { return x.ID == g.ID }); i >= 0 {
		cached[i] = g
	} else {
		cached = append(cached, g)
	}
	if err := setJSON(ctx, c.kv, KeyProtocols, cached); err != nil {
		c.logger.WarnContext(ctx, "protocol cache write failed", slog.String("error", err.Error()))
	}
}

// Refresh pulls every reference collection, returning the first failure.
func (c *Cache) Refresh(ctx context.Context) error {
	if _, err := c.Conditions(ctx); err != nil {
		return err
	}
	if _, err := c.Symptoms(ctx); err != nil {
		return err
	}
	_, err := c.ListGraphs(ctx)
	return err
}

func readThrough[T any](ctx context.Context, c *Cache, key string, fetch func(context.Context) (T, error)) (T, error) {
	fresh, err := fetch(ctx)
	if err == nil {
		if werr := setJSON(ctx, c.kv, key, fresh); werr != nil {
			c.logger.WarnContext(ctx, "cache write failed", slog.String("key", key), slog.String("error", werr.Error()))
		}
		return fresh, nil
	}

	var cached T
	ok, cerr := getJSON(ctx, c.kv, key, &cached)
	if cerr != nil {
		return cached, cerr
	}
	if !ok {
		return cached, err
	}
	c.logger.DebugContext(ctx, "serving cached copy", slog.String("key", key), slog.String("cause", err.Error()))
	return cached, nil
}
