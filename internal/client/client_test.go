package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeevan-health/triage/pkg/schema"
)

func newTestClient(t *testing.T, h http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c, err := New(Config{BaseURL: srv.URL, Timeout: time.Second})
	require.NoError(t, err)
	return c
}

func TestNew_RejectsBadURL(t *testing.T) {
	for _, raw := range []string{"", "localhost:3000", "ftp://example.com"} {
		_, err := New(Config{BaseURL: raw})
		assert.True(t, schema.IsValidation(err), raw)
	}
}

func TestPushBatch_SendsEnvelope(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/sync/push", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Assessments []schema.Assessment `json:"assessments"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(schema.PushResult{Inserted: len(body.Assessments), Total: len(body.Assessments)})
	})
	c := newTestClient(t, mux)

	res, err := c.PushBatch(context.Background(), []schema.Assessment{{ID: "A1", Symptoms: []string{"Fever"}}})
	require.NoError(t, err)
	assert.Equal(t, schema.PushResult{Inserted: 1, Total: 1}, res)
}

func TestErrorsAreOffline(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/sync/push", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"boom"}`, http.StatusInternalServerError)
	})
	mux.HandleFunc("GET /api/conditions", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("not json"))
	})
	c := newTestClient(t, mux)
	ctx := context.Background()

	_, err := c.PushBatch(ctx, []schema.Assessment{{ID: "A1"}})
	assert.Equal(t, schema.ErrCodeOffline, schema.CodeOf(err))

	_, err = c.Conditions(ctx)
	assert.Equal(t, schema.ErrCodeOffline, schema.CodeOf(err))

	_, err = c.Symptoms(ctx)
	assert.Equal(t, schema.ErrCodeOffline, schema.CodeOf(err), "404 outside protocol fetch is offline")
}

func TestUnreachableServer(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c, err := New(Config{BaseURL: url, Timeout: time.Second})
	require.NoError(t, err)

	status, err := c.Status(context.Background())
	require.Error(t, err)
	assert.Equal(t, schema.StatusOffline, status)
	assert.True(t, schema.IsTransient(err))
}

func TestTimeoutIsOffline(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	t.Cleanup(func() {
		close(release)
		srv.Close()
	})

	c, err := New(Config{BaseURL: srv.URL, Timeout: 50 * time.Millisecond})
	require.NoError(t, err)

	_, err = c.ListGraphs(context.Background())
	assert.Equal(t, schema.ErrCodeOffline, schema.CodeOf(err))
}

func TestGetGraph_NotFound(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/protocol/{id}", func(w http.ResponseWriter, r *http.Request) {
		if r.PathValue("id") != "p1" {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"error":"protocol not found"}`))
			return
		}
		_, _ = w.Write([]byte(`{"id":"p1","name":"Fever","nodes":[{"id":1,"type":"result","risk":"Low","action":"Rest"}]}`))
	})
	c := newTestClient(t, mux)
	ctx := context.Background()

	g, err := c.GetGraph(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, "Fever", g.Name)
	require.Len(t, g.Nodes, 1)
	assert.Equal(t, schema.NodeID("1"), g.Nodes[0].ID)

	_, err = c.GetGraph(ctx, "p2")
	assert.True(t, schema.IsNotFound(err))
}

func TestStatusAndDelete(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/sync/status", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status":"Online"}`))
	})
	mux.HandleFunc("DELETE /api/assessment/{id}", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"deleted": r.PathValue("id") == "A1"})
	})
	c := newTestClient(t, mux)
	ctx := context.Background()

	status, err := c.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, schema.StatusOnline, status)

	deleted, err := c.DeleteAssessment(ctx, "A1")
	require.NoError(t, err)
	assert.True(t, deleted)

	deleted, err = c.DeleteAssessment(ctx, "A9")
	require.NoError(t, err)
	assert.False(t, deleted)
}
