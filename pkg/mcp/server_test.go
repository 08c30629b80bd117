package mcp

import (
	"context"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeevan-health/triage/internal/offline"
	"github.com/jeevan-health/triage/internal/store"
	"github.com/jeevan-health/triage/internal/streaming"
	"github.com/jeevan-health/triage/pkg/schema"
)

// stubRemote is an in-memory server. Embedding offline.Remote keeps the
// stub honest about the interface it satisfies.
type stubRemote struct {
	offline.Remote

	mu      sync.Mutex
	down    bool
	records map[string]schema.Assessment
}

func newStubRemote() *stubRemote {
	return &stubRemote{records: map[string]schema.Assessment{}}
}

func (r *stubRemote) setDown(v bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.down = v
}

func (r *stubRemote) unreachable() error {
	if r.down {
		return schema.NewError(schema.ErrCodeOffline, "server unreachable")
	}
	return nil
}

func (r *stubRemote) PushBatch(_ context.Context, records []schema.Assessment) (schema.PushResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.unreachable(); err != nil {
		return schema.PushResult{}, err
	}
	res := schema.PushResult{Total: len(records)}
	for _, rec := range records {
		if _, ok := r.records[rec.ID]; ok {
			res.Skipped++
			continue
		}
		r.records[rec.ID] = rec
		res.Inserted++
	}
	return res, nil
}

func (r *stubRemote) DeleteAssessment(_ context.Context, id string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.unreachable(); err != nil {
		return false, err
	}
	_, ok := r.records[id]
	delete(r.records, id)
	return ok, nil
}

func (r *stubRemote) Status(_ context.Context) (schema.ConnectivityStatus, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.unreachable(); err != nil {
		return schema.StatusOffline, err
	}
	return schema.StatusOnline, nil
}

func (r *stubRemote) Conditions(_ context.Context) ([]schema.Condition, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.unreachable(); err != nil {
		return nil, err
	}
	return []schema.Condition{{
		Name: "Flu", Risk: schema.RiskMedium, Action: "Rest and fluids",
		Symptoms:  []string{"Fever", "Cough", "Fatigue"},
		Weights:   map[string]float64{"Fever": 3},
		Questions: []string{"How many days of fever?"},
	}}, nil
}

func (r *stubRemote) Symptoms(_ context.Context) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.unreachable(); err != nil {
		return nil, err
	}
	return []string{"Cough", "Fatigue", "Fever"}, nil
}

func (r *stubRemote) ListGraphs(_ context.Context) ([]schema.ProtocolGraph, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.unreachable(); err != nil {
		return nil, err
	}
	return []schema.ProtocolGraph{feverProtocol()}, nil
}

func (r *stubRemote) GetGraph(_ context.Context, id string) (*schema.ProtocolGraph, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.unreachable(); err != nil {
		return nil, err
	}
	g := feverProtocol()
	if id != g.ID {
		return nil, schema.NotFoundf("protocol %s not found", id)
	}
	return &g, nil
}

func feverProtocol() schema.ProtocolGraph {
	return schema.ProtocolGraph{
		ID:   "fever",
		Name: "Fever",
		Nodes: []schema.Node{
			schema.NewQuestion("1", "Temperature above 39C?", "2", "3"),
			schema.NewResult("2", schema.RiskHigh, "See a doctor today"),
			schema.NewResult("3", schema.RiskLow, "Rest and fluids"),
		},
	}
}

type testEnv struct {
	srv        *OperatorServer
	remote     *stubRemote
	reconciler *offline.Reconciler
	hub        *streaming.MemoryHub
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	kv, err := store.NewLibSQLStore("file:" + filepath.Join(t.TempDir(), "agent.db"))
	require.NoError(t, err)
	require.NoError(t, kv.Migrate(context.Background()))
	t.Cleanup(func() { _ = kv.Close() })

	remote := newStubRemote()
	hub := streaming.NewMemoryHub()
	cache := offline.NewCache(kv, remote, nil)
	rec := offline.NewReconciler(offline.Deps{
		Local:  offline.NewLocalStore(kv),
		Remote: remote,
		Hub:    hub,
	})
	t.Cleanup(rec.Wait)

	srv := NewOperatorServer(OperatorServerDeps{
		Catalog:    cache,
		Protocols:  cache,
		Reconciler: rec,
		Hub:        hub,
		Operator:   "nurse-1",
	})
	return &testEnv{srv: srv, remote: remote, reconciler: rec, hub: hub}
}

func TestNewOperatorServer(t *testing.T) {
	s := NewOperatorServer(OperatorServerDeps{})
	require.NotNil(t, s)
	assert.NotNil(t, s.mcpServer)
	assert.NotNil(t, s.logger)
	assert.NotNil(t, s.filter)
}

func TestToolRegistration(t *testing.T) {
	s := NewOperatorServer(OperatorServerDeps{})

	expectedTools := []string{
		"triage.symptoms",
		"triage.followups",
		"triage.score",
		"triage.protocols",
		"triage.protocol_start",
		"triage.protocol_advance",
		"triage.diagram",
		"triage.save",
		"triage.delete",
		"triage.records",
		"triage.sync",
	}
	require.Len(t, s.mcpServer.ListTools(), len(expectedTools))
	for _, name := range expectedTools {
		assert.NotNil(t, s.mcpServer.GetTool(name), "tool %s should be registered", name)
	}
}

func TestToolDefinitions(t *testing.T) {
	tests := []struct {
		name        string
		toolName    string
		description string
	}{
		{"score", "triage.score", "Rank likely conditions for a symptom set"},
		{"start", "triage.protocol_start", "Start a protocol and get its first question"},
		{"save", "triage.save", "Save an accepted triage outcome; it syncs to the server when possible"},
		{"sync", "triage.sync", "Show connectivity and pending queue, or push pending records now"},
	}

	s := NewOperatorServer(OperatorServerDeps{})

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			tool := s.mcpServer.GetTool(tc.toolName)
			require.NotNil(t, tool)
			assert.Equal(t, tc.description, tool.Tool.Description)
		})
	}
}
