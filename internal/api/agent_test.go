package api

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeevan-health/triage/internal/client"
	"github.com/jeevan-health/triage/internal/engine"
	"github.com/jeevan-health/triage/internal/offline"
	"github.com/jeevan-health/triage/internal/store"
	"github.com/jeevan-health/triage/internal/streaming"
	"github.com/jeevan-health/triage/pkg/schema"
)

type agentEnv struct {
	server     *testEnv
	kv         *store.LibSQLStore
	reconciler *offline.Reconciler
	cache      *offline.Cache
	hub        *streaming.MemoryHub
	srv        *httptest.Server
}

func newAgentEnv(t *testing.T, server *testEnv) *agentEnv {
	t.Helper()
	kv, err := store.NewLibSQLStore("file:" + filepath.Join(t.TempDir(), "agent.db"))
	require.NoError(t, err)
	require.NoError(t, kv.Migrate(context.Background()))
	t.Cleanup(func() { _ = kv.Close() })

	remote, err := client.New(client.Config{BaseURL: server.srv.URL, Timeout: time.Second})
	require.NoError(t, err)

	hub := streaming.NewMemoryHub()
	rec := offline.NewReconciler(offline.Deps{Local: offline.NewLocalStore(kv), Remote: remote, Hub: hub})
	t.Cleanup(rec.Wait)

	srv := httptest.NewServer(NewAgentServer(AgentDeps{Reconciler: rec, Hub: hub}).Handler())
	t.Cleanup(srv.Close)

	return &agentEnv{
		server:     server,
		kv:         kv,
		reconciler: rec,
		cache:      offline.NewCache(kv, remote, nil),
		hub:        hub,
		srv:        srv,
	}
}

func TestEndToEnd_SaveSyncsToServer(t *testing.T) {
	server := newTestEnv(t)
	agent := newAgentEnv(t, server)
	ctx := context.Background()

	rec := schema.Assessment{ID: schema.NewAssessmentID(schema.ModeSymptom), Symptoms: []string{"Fever"}, Mode: schema.ModeSymptom}
	require.NoError(t, agent.reconciler.Save(ctx, rec))
	agent.reconciler.Wait()

	pending, err := agent.reconciler.PendingCount(ctx)
	require.NoError(t, err)
	assert.Zero(t, pending)

	_, data := server.do(t, http.MethodGet, "/api/assessments", "")
	records := decode[[]schema.Assessment](t, data)
	require.Len(t, records, 1)
	assert.Equal(t, rec.ID, records[0].ID)
	assert.NotNil(t, records[0].SyncedAt)

	// A repeat flush of the same id is skipped server-side.
	require.NoError(t, agent.reconciler.Save(ctx, rec))
	agent.reconciler.Wait()
	_, data = server.do(t, http.MethodGet, "/api/assessments", "")
	assert.Len(t, decode[[]schema.Assessment](t, data), 1)

	found, err := agent.reconciler.Delete(ctx, rec.ID)
	require.NoError(t, err)
	assert.True(t, found)
	agent.reconciler.Wait()
	_, data = server.do(t, http.MethodGet, "/api/assessments", "")
	assert.Empty(t, decode[[]schema.Assessment](t, data))
}

func TestEndToEnd_LargeBacklogSyncs(t *testing.T) {
	server := newTestEnv(t)
	agent := newAgentEnv(t, server)
	ctx := context.Background()

	// Well over the server's 1MB request cap in total.
	const n = 3000
	records := make([]schema.Assessment, n)
	ids := make([]string, n)
	for i := range records {
		ids[i] = fmt.Sprintf("A%05d", i)
		records[i] = schema.Assessment{
			ID:          ids[i],
			PatientName: strings.Repeat("p", 350),
			Mode:        schema.ModeSymptom,
			Symptoms:    []string{"Fever", "Cough"},
		}
	}
	raw, err := json.Marshal(records)
	require.NoError(t, err)
	require.Greater(t, len(raw), 1<<20)
	require.NoError(t, agent.kv.Set(ctx, offline.KeyAssessments, raw))
	rawIDs, err := json.Marshal(ids)
	require.NoError(t, err)
	require.NoError(t, agent.kv.Set(ctx, offline.KeyPending, rawIDs))

	res, err := agent.reconciler.Flush(ctx)
	require.NoError(t, err)
	assert.Equal(t, n, res.Inserted)
	assert.Equal(t, schema.StatusOnline, agent.reconciler.Status())

	pending, err := agent.reconciler.PendingCount(ctx)
	require.NoError(t, err)
	assert.Zero(t, pending)

	_, data := server.do(t, http.MethodGet, "/api/assessments", "")
	assert.Len(t, decode[[]schema.Assessment](t, data), n)
}

func TestEndToEnd_OfflineThenReconnect(t *testing.T) {
	server := newTestEnv(t)
	server.seedCatalog(t)
	agent := newAgentEnv(t, server)
	ctx := context.Background()

	_, data := server.do(t, http.MethodPost, "/api/protocol", feverProtocolJSON)
	protocolID := decode[schema.ProtocolGraph](t, data).ID
	require.NoError(t, agent.cache.Refresh(ctx))

	// Take the server away.
	server.down.Store(true)

	// Scoring and traversal still work from the cache.
	svc, err := engine.New(engine.Deps{Catalog: agent.cache})
	require.NoError(t, err)
	res, err := svc.Score(ctx, []string{"Fever", "Cough"})
	require.NoError(t, err)
	assert.Equal(t, "Flu", res.Conditions[0].Name)

	view, err := engine.NewTraverser(agent.cache, nil, nil).Advance(ctx, protocolID, "1", schema.AnswerNo)
	require.NoError(t, err)
	assert.Equal(t, "Rest", view.Result.Action)

	rec := schema.Assessment{ID: "A-offline", Symptoms: []string{"Fever"}}
	require.NoError(t, agent.reconciler.Save(ctx, rec))
	agent.reconciler.Wait()
	assert.Equal(t, schema.StatusOffline, agent.reconciler.Status())

	status, body := getBody(t, agent.srv.URL+"/status")
	require.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"status":"Offline","pending":1}`, body)

	// Restore the server; the poll notices and flushes.
	server.down.Store(false)
	agent.reconciler.Poll(ctx)
	assert.Equal(t, schema.StatusOnline, agent.reconciler.Status())

	status, body = getBody(t, agent.srv.URL+"/status")
	require.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"status":"Online","pending":0}`, body)

	_, data = server.do(t, http.MethodGet, "/api/assessments", "")
	assert.Len(t, decode[[]schema.Assessment](t, data), 1)
}

func TestAgentServer_Flush(t *testing.T) {
	server := newTestEnv(t)
	agent := newAgentEnv(t, server)

	resp, err := http.Post(agent.srv.URL+"/flush", "application/json", nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestAgentServer_Events(t *testing.T) {
	server := newTestEnv(t)
	agent := newAgentEnv(t, server)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, agent.srv.URL+"/events?types=saved", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	require.Eventually(t, func() bool { return agent.hub.Subscribers() == 1 }, time.Second, 10*time.Millisecond)
	require.NoError(t, agent.reconciler.Save(context.Background(), schema.Assessment{ID: "A1", Symptoms: []string{"Fever"}}))

	line, err := bufio.NewReader(resp.Body).ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, "event: saved\n", line)
}

func getBody(t *testing.T, url string) (int, string) {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	var b strings.Builder
	_, err = bufio.NewReader(resp.Body).WriteTo(&b)
	require.NoError(t, err)
	return resp.StatusCode, b.String()
}
