// Package e2e drives the whole stack over real HTTP: the saga plugin
// endpoint as graph source, worker-hosted simulations, the snappy file
// layout store and the public API.
package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dd0wney/saga-graph/pkg/api"
	"github.com/dd0wney/saga-graph/pkg/graph"
	"github.com/dd0wney/saga-graph/pkg/health"
	"github.com/dd0wney/saga-graph/pkg/layoutstore"
	"github.com/dd0wney/saga-graph/pkg/loader"
	"github.com/dd0wney/saga-graph/pkg/metrics"
	"github.com/dd0wney/saga-graph/pkg/simhost"
	"github.com/dd0wney/saga-graph/pkg/viewer"
)

func sagaPayload() *graph.Payload {
	return &graph.Payload{
		Nodes: []graph.NodeData{
			{ID: "aria", Label: "Aria", Type: "character", Importance: 90, URL: "https://saga.example/aria"},
			{ID: "bren", Label: "Bren", Type: "character", Importance: 60},
			{ID: "keep", Label: "Stone Keep", Type: "location", Importance: 40},
			{ID: "oath", Label: "The Oath", Type: "event", Importance: 70},
			{ID: "hermit", Label: "Hermit", Type: "character", Importance: 10},
		},
		Edges: []graph.EdgeData{
			{Source: "aria", Target: "bren", Relationship: "ally", Strength: 80},
			{Source: "bren", Target: "keep", Relationship: "guards", Strength: 50},
			{Source: "keep", Target: "oath", Relationship: "site of", Strength: 40},
			{Source: "aria", Target: "oath", Relationship: "swore", Strength: 90},
		},
	}
}

// backend imitates the saga plugin's graph endpoint. Graph ids listed in
// down answer 503 until they are removed.
type backend struct {
	srv      *httptest.Server
	requests atomic.Int64

	mu   sync.Mutex
	down map[string]bool
}

func startBackend(t *testing.T) *backend {
	b := &backend{down: map[string]bool{}}
	mux := http.NewServeMux()
	mux.HandleFunc("/wp-json/saga/v1/graph/{id}", func(w http.ResponseWriter, r *http.Request) {
		b.requests.Add(1)
		b.mu.Lock()
		down := b.down[r.PathValue("id")]
		b.mu.Unlock()
		if down {
			http.Error(w, "maintenance", http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(sagaPayload())
	})
	b.srv = httptest.NewServer(mux)
	t.Cleanup(b.srv.Close)
	return b
}

func (b *backend) setDown(graphID string, down bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.down[graphID] = down
}

type stack struct {
	t       *testing.T
	backend *backend
	api     *httptest.Server
	reg     *viewer.Registry
}

func startStack(t *testing.T) *stack {
	t.Helper()
	b := startBackend(t)

	vcfg := viewer.DefaultConfig()
	vcfg.Host.Mode = string(simhost.ModeWorker)
	vcfg.Layout.Simulation.FrameInterval = time.Millisecond
	vcfg.TransitionDuration = 0
	vcfg.Loader.Kind = loader.KindHTTP
	vcfg.Loader.URL = b.srv.URL + "/wp-json/saga/v1/graph/{id}"
	vcfg.Loader.MaxRetries = 1
	vcfg.Loader.Backoff = time.Millisecond

	reg := metrics.NewRegistry()
	scfg := layoutstore.DefaultConfig()
	scfg.Backend = layoutstore.BackendFile
	scfg.Dir = t.TempDir()
	store, err := layoutstore.Open(context.Background(), scfg, nil, reg)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	sessions, err := viewer.NewRegistry(vcfg, store, viewer.LoaderSources(vcfg.Loader, nil), viewer.WithMetrics(reg))
	require.NoError(t, err)
	t.Cleanup(func() { sessions.CloseAll() })

	checker := health.NewChecker(health.DefaultTimeout)
	checker.RegisterReadiness("layout_store", health.StoreCheck(store))
	checker.Register("simulation_hosts", health.HostsCheck(true, sessions.HostModes))

	cfg := api.DefaultConfig()
	cfg.SessionRate = 0
	srv, err := api.New(cfg, sessions, api.WithMetrics(reg), api.WithHealth(checker))
	require.NoError(t, err)

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return &stack{t: t, backend: b, api: ts, reg: sessions}
}

func (s *stack) call(method, path string, body any, out any) int {
	s.t.Helper()
	var r io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(s.t, err)
		r = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, s.api.URL+path, r)
	require.NoError(s.t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(s.t, err)
	defer resp.Body.Close()
	if out != nil && resp.StatusCode < 300 && resp.StatusCode != http.StatusNoContent {
		require.NoError(s.t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func (s *stack) open(graphID, layout string) api.SessionResponse {
	s.t.Helper()
	var resp api.SessionResponse
	code := s.call(http.MethodPost, "/sessions", api.CreateSessionRequest{GraphID: graphID, Layout: layout}, &resp)
	require.Equal(s.t, http.StatusCreated, code)
	return resp
}

func (s *stack) status(id string) viewer.Status {
	s.t.Helper()
	var resp api.SessionResponse
	require.Equal(s.t, http.StatusOK, s.call(http.MethodGet, "/sessions/"+id, nil, &resp))
	return resp.Status
}

func (s *stack) waitSettled(id string) {
	s.t.Helper()
	require.Eventually(s.t, func() bool { return s.status(id).Settled }, 15*time.Second, 10*time.Millisecond)
}

func TestCompleteViewerWorkflow(t *testing.T) {
	s := startStack(t)

	t.Log("open a session with the force layout")
	sess := s.open("42", "force")
	assert.Equal(t, viewer.StateReady, sess.Status.State)
	assert.Equal(t, 5, sess.Status.Nodes)
	assert.Equal(t, 4, sess.Status.Edges)
	assert.Equal(t, string(simhost.ModeWorker), sess.Status.HostMode)
	s.waitSettled(sess.ID)

	t.Log("query the worker")
	var path api.PathResponse
	require.Equal(t, http.StatusOK, s.call(http.MethodPost, "/sessions/"+sess.ID+"/path", api.PathRequest{From: "bren", To: "oath"}, &path))
	assert.True(t, path.Found)
	assert.Equal(t, 2, path.Length)
	assert.Len(t, path.Path, 3)

	require.Equal(t, http.StatusOK, s.call(http.MethodPost, "/sessions/"+sess.ID+"/path", api.PathRequest{From: "aria", To: "hermit"}, &path))
	assert.False(t, path.Found)
	assert.Equal(t, "No path found", path.Message)

	var scores []api.NodeScore
	require.Equal(t, http.StatusOK, s.call(http.MethodGet, "/sessions/"+sess.ID+"/centrality?top=1", nil, &scores))
	require.Len(t, scores, 1)
	assert.Equal(t, 2, scores[0].Degree)

	var communities api.CommunityResponse
	require.Equal(t, http.StatusOK, s.call(http.MethodGet, "/sessions/"+sess.ID+"/communities", nil, &communities))
	assert.ElementsMatch(t, []string{"aria", "bren", "hermit"}, communities.Communities["character"])

	t.Log("switch to a fixed layout and persist it")
	require.Equal(t, http.StatusOK, s.call(http.MethodPost, "/sessions/"+sess.ID+"/layout", api.LayoutRequest{Kind: "grid"}, nil))
	s.waitSettled(sess.ID)
	assert.Equal(t, "grid", s.status(sess.ID).Layout)
	require.Equal(t, http.StatusNoContent, s.call(http.MethodPost, "/sessions/"+sess.ID+"/layout/save", nil, nil))

	t.Log("render both formats")
	for format, contentType := range map[string]string{"svg": "image/svg+xml", "png": "image/png"} {
		resp, err := http.Get(s.api.URL + "/sessions/" + sess.ID + "/render." + format)
		require.NoError(t, err)
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode, format)
		assert.Equal(t, contentType, resp.Header.Get("Content-Type"))
		assert.NotEmpty(t, body)
	}

	t.Log("close, reopen and restore the saved layout")
	require.Equal(t, http.StatusNoContent, s.call(http.MethodDelete, "/sessions/"+sess.ID, nil, nil))
	assert.Equal(t, http.StatusNotFound, s.call(http.MethodGet, "/sessions/"+sess.ID, nil, nil))

	again := s.open("42", "circular")
	var restored api.RestoreResponse
	require.Equal(t, http.StatusOK, s.call(http.MethodPost, "/sessions/"+again.ID+"/layout/restore", nil, &restored))
	assert.Equal(t, 5, restored.Restored)
}

func TestSourceOutageAndRecovery(t *testing.T) {
	s := startStack(t)
	s.backend.setDown("7", true)

	sess := s.open("7", "")
	assert.Equal(t, viewer.StateError, sess.Status.State)
	assert.True(t, sess.Status.Retryable)
	assert.Contains(t, sess.Status.Message, "503")

	var errResp api.ErrorResponse
	assert.Equal(t, http.StatusConflict, s.call(http.MethodGet, "/sessions/"+sess.ID+"/centrality", nil, &errResp))

	s.backend.setDown("7", false)
	require.Equal(t, http.StatusOK, s.call(http.MethodPost, "/sessions/"+sess.ID+"/retry", nil, nil))
	st := s.status(sess.ID)
	assert.Equal(t, viewer.StateReady, st.State)
	assert.Equal(t, 5, st.Nodes)
}

func TestConcurrentSessions(t *testing.T) {
	s := startStack(t)
	const workers = 6

	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			graphID := fmt.Sprintf("g%d", i)
			body, _ := json.Marshal(api.CreateSessionRequest{GraphID: graphID, Layout: "radial"})
			resp, err := http.Post(s.api.URL+"/sessions", "application/json", bytes.NewReader(body))
			if err != nil {
				errs <- err
				return
			}
			var sess api.SessionResponse
			err = json.NewDecoder(resp.Body).Decode(&sess)
			resp.Body.Close()
			if err != nil || resp.StatusCode != http.StatusCreated {
				errs <- fmt.Errorf("%s: create status %d: %v", graphID, resp.StatusCode, err)
				return
			}

			resp, err = http.Get(s.api.URL + "/sessions/" + sess.ID + "/centrality")
			if err != nil {
				errs <- err
				return
			}
			resp.Body.Close()
			if resp.StatusCode != http.StatusOK {
				errs <- fmt.Errorf("%s: centrality status %d", graphID, resp.StatusCode)
				return
			}

			req, _ := http.NewRequest(http.MethodDelete, s.api.URL+"/sessions/"+sess.ID, nil)
			resp, err = http.DefaultClient.Do(req)
			if err != nil {
				errs <- err
				return
			}
			resp.Body.Close()
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Error(err)
	}

	assert.Equal(t, 0, s.reg.Len())
	assert.EqualValues(t, workers, s.backend.requests.Load())

	resp, err := http.Get(s.api.URL + "/metrics")
	require.NoError(t, err)
	metricsBody, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Contains(t, string(metricsBody), "sagagraph_sessions_created_total")
	assert.Contains(t, string(metricsBody), `path="/sessions/{sessionID}/centrality"`)
}

func TestHealthAndGraphQL(t *testing.T) {
	s := startStack(t)
	sess := s.open("9", "circular")

	var h health.Response
	require.Equal(t, http.StatusOK, s.call(http.MethodGet, "/health", nil, &h))
	assert.Equal(t, health.StatusHealthy, h.Status)
	assert.Contains(t, h.Checks, "simulation_hosts")
	assert.Contains(t, h.Checks, "sessions")
	assert.Equal(t, http.StatusOK, s.call(http.MethodGet, "/ready", nil, nil))

	query := fmt.Sprintf(`{ session(id: %q) { graphId nodeCount hostMode } }`, sess.ID)
	body, _ := json.Marshal(map[string]any{"query": query})
	resp, err := http.Post(s.api.URL+"/graphql", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	raw, _ := io.ReadAll(resp.Body)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(raw))
	assert.True(t, strings.Contains(string(raw), `"nodeCount":5`), string(raw))
	assert.Contains(t, string(raw), `"hostMode":"worker"`)
}
