package loader

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sony/gobreaker"

	"github.com/dd0wney/saga-graph/pkg/graph"
	"github.com/dd0wney/saga-graph/pkg/metrics"
)

const samplePayload = `{
	"nodes": [
		{"id": "aria", "label": "Aria", "type": "character", "importance": 80},
		{"id": "keep", "label": "Blackstone Keep", "type": "location", "importance": 40}
	],
	"edges": [
		{"source": "aria", "target": "keep", "label": "rules", "strength": 70}
	]
}`

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.Backoff = time.Millisecond
	cfg.MaxBackoff = 4 * time.Millisecond
	return cfg
}

func newTestLoader(src Source, cfg Config) *Loader {
	return New(src, cfg, nil, metrics.NewRegistry())
}

func TestLoadStaticBuildsGraphAndReportsIssues(t *testing.T) {
	src := NewStaticSource("saga", &graph.Payload{
		Nodes: []graph.NodeData{
			{ID: "a", Label: "A", Type: "character", Importance: 10},
			{ID: "b", Label: "B", Type: "location", Importance: 20},
			{ID: "c", Label: "C", Type: "dragon", Importance: 5},
		},
		Edges: []graph.EdgeData{
			{Source: "a", Target: "b", Relationship: "visits", Strength: 50},
			{Source: "a", Target: "ghost", Relationship: "haunts", Strength: 50},
		},
	})

	res, err := newTestLoader(src, testConfig()).Load(context.Background(), "saga")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if res.Graph.Len() != 2 {
		t.Fatalf("expected 2 nodes, got %d", res.Graph.Len())
	}
	if len(res.Graph.Edges) != 1 {
		t.Fatalf("expected 1 edge, got %d", len(res.Graph.Edges))
	}
	kinds := map[graph.IssueKind]int{}
	for _, issue := range res.Issues {
		kinds[issue.Kind]++
	}
	if kinds[IssueInvalidField] != 1 {
		t.Errorf("expected one invalid_field issue, got %v", kinds)
	}
	if kinds[graph.IssueDanglingEdge] != 1 {
		t.Errorf("expected one dangling edge issue, got %v", kinds)
	}
	if res.Attempts != 1 {
		t.Errorf("expected 1 attempt, got %d", res.Attempts)
	}
}

func TestLoadNilPayloadIsInvalid(t *testing.T) {
	src := NewStaticSource("empty", nil)
	_, err := newTestLoader(src, testConfig()).Load(context.Background(), "empty")
	if !IsInvalid(err) {
		t.Fatalf("expected ErrInvalidPayload, got %v", err)
	}
	if IsRetryable(err) {
		t.Error("invalid payload must not be retryable")
	}
}

func TestLoadRetriesRetryableErrors(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			http.Error(w, "busy", http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, samplePayload)
	}))
	defer srv.Close()

	cfg := testConfig()
	src := NewHTTPSource(srv.URL, "saga", cfg, nil)
	res, err := newTestLoader(src, cfg).Load(context.Background(), "saga")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if res.Attempts != 3 {
		t.Errorf("expected 3 attempts, got %d", res.Attempts)
	}
	if res.Graph.Len() != 2 || len(res.Graph.Edges) != 1 {
		t.Errorf("unexpected graph: %d nodes, %d edges", res.Graph.Len(), len(res.Graph.Edges))
	}
	if res.Graph.Edges[0].Relationship != "rules" {
		t.Errorf("edge label alias not applied: %q", res.Graph.Edges[0].Relationship)
	}
}

func TestLoadGivesUpAfterMaxRetries(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	cfg := testConfig()
	cfg.MaxRetries = 2
	src := NewHTTPSource(srv.URL, "saga", cfg, nil)
	_, err := newTestLoader(src, cfg).Load(context.Background(), "saga")

	var fe *FetchError
	if !errors.As(err, &fe) {
		t.Fatalf("expected FetchError, got %v", err)
	}
	if !fe.Retryable || fe.StatusCode != http.StatusBadGateway {
		t.Errorf("unexpected fetch error: %+v", fe)
	}
	if got := atomic.LoadInt32(&calls); got != 3 {
		t.Errorf("expected 3 requests, got %d", got)
	}
}

func TestLoadDoesNotRetryClientErrors(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		http.NotFound(w, r)
	}))
	defer srv.Close()

	cfg := testConfig()
	src := NewHTTPSource(srv.URL+"/graphs/{id}", "saga", cfg, nil)
	if !strings.HasSuffix(src.URL(), "/graphs/saga") {
		t.Fatalf("graph id not substituted: %s", src.URL())
	}
	_, err := newTestLoader(src, cfg).Load(context.Background(), "saga")
	if IsRetryable(err) {
		t.Fatalf("404 must not be retryable: %v", err)
	}
	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Errorf("expected a single request, got %d", got)
	}
}

func TestHTTPSourceMalformedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"nodes": [`)
	}))
	defer srv.Close()

	_, err := NewHTTPSource(srv.URL, "", testConfig(), nil).Fetch(context.Background())
	if !IsInvalid(err) {
		t.Fatalf("expected ErrInvalidPayload, got %v", err)
	}
}

func TestHTTPSourceBodyLimit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, samplePayload)
	}))
	defer srv.Close()

	cfg := testConfig()
	cfg.MaxBodyBytes = 16
	_, err := NewHTTPSource(srv.URL, "", cfg, nil).Fetch(context.Background())
	if !IsInvalid(err) {
		t.Fatalf("expected ErrInvalidPayload for oversized body, got %v", err)
	}
}

func TestHTTPSourceBreakerOpens(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	cfg := testConfig()
	cfg.Breaker.FailureThreshold = 2
	cfg.Breaker.Timeout = time.Minute
	src := NewHTTPSource(srv.URL, "", cfg, nil)

	for i := 0; i < 2; i++ {
		if _, err := src.Fetch(context.Background()); err == nil {
			t.Fatal("expected failure")
		}
	}
	if src.BreakerState() != gobreaker.StateOpen {
		t.Fatalf("expected open breaker, got %s", src.BreakerState())
	}
	_, err := src.Fetch(context.Background())
	if !errors.Is(err, gobreaker.ErrOpenState) {
		t.Fatalf("expected ErrOpenState, got %v", err)
	}
	if !IsRetryable(err) {
		t.Error("open breaker should be reported as retryable")
	}
}

func TestHTTPSourceClientErrorsDoNotTripBreaker(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	cfg := testConfig()
	cfg.Breaker.FailureThreshold = 1
	src := NewHTTPSource(srv.URL, "", cfg, nil)
	for i := 0; i < 3; i++ {
		_, _ = src.Fetch(context.Background())
	}
	if src.BreakerState() != gobreaker.StateClosed {
		t.Errorf("expected closed breaker, got %s", src.BreakerState())
	}
}

func TestLoadHonoursCancellation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	cfg := testConfig()
	cfg.MaxRetries = 10
	cfg.Backoff = time.Hour
	cfg.MaxBackoff = time.Hour
	src := NewHTTPSource(srv.URL, "", cfg, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := newTestLoader(src, cfg).Load(ctx, "saga")
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}

func TestFileSource(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "graph.json")
	if err := os.WriteFile(path, []byte(samplePayload), 0o600); err != nil {
		t.Fatal(err)
	}

	p, err := NewFileSource(path, nil).Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if len(p.Nodes) != 2 || len(p.Edges) != 1 {
		t.Errorf("unexpected payload: %d nodes, %d edges", len(p.Nodes), len(p.Edges))
	}

	_, err = NewFileSource(filepath.Join(dir, "missing.json"), nil).Fetch(context.Background())
	var fe *FetchError
	if !errors.As(err, &fe) || fe.Retryable {
		t.Errorf("missing file should be a non-retryable FetchError, got %v", err)
	}
}

func TestFileSourceWatch(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "graph.json")
	if err := os.WriteFile(path, []byte(samplePayload), 0o600); err != nil {
		t.Fatal(err)
	}
	src := NewFileSource(path, nil)
	src.SetDebounce(10 * time.Millisecond)

	changed := make(chan struct{}, 8)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- src.Watch(ctx, func() { changed <- struct{}{} })
	}()

	// The watcher registers asynchronously; keep writing until it reports.
	deadline := time.After(5 * time.Second)
	tick := time.NewTicker(50 * time.Millisecond)
	defer tick.Stop()
wait:
	for {
		select {
		case <-changed:
			break wait
		case <-tick.C:
			_ = os.WriteFile(path, []byte(samplePayload), 0o600)
		case <-deadline:
			t.Fatal("no change notification")
		}
	}

	cancel()
	if err := <-done; err != nil {
		t.Errorf("Watch returned %v", err)
	}
}

func TestCypherQueries(t *testing.T) {
	nodes, edges := cypherQueries("Entity", true)
	if !strings.Contains(nodes, "(n:`Entity`)") || !strings.Contains(nodes, "$graphId") {
		t.Errorf("unexpected node query: %s", nodes)
	}
	if !strings.Contains(edges, "(a:`Entity`)-[r]->(b:`Entity`)") {
		t.Errorf("unexpected edge query: %s", edges)
	}

	nodes, _ = cypherQueries("", false)
	if strings.Contains(nodes, "WHERE") {
		t.Errorf("unscoped query should not filter: %s", nodes)
	}
}

func TestRecordMapping(t *testing.T) {
	n := nodeFromRecord(map[string]any{
		"id": "aria", "label": "Aria", "type": "character", "importance": int64(75), "url": nil,
	})
	if n.ID != "aria" || n.Importance != 75 || n.URL != "" {
		t.Errorf("unexpected node: %+v", n)
	}
	e := edgeFromRecord(map[string]any{
		"source": "aria", "target": "keep", "relationship": "RULES", "strength": 60.5, "curvature": int64(0),
	})
	if e.Source != "aria" || e.Relationship != "RULES" || e.Strength != 60.5 {
		t.Errorf("unexpected edge: %+v", e)
	}
}

func TestNewNeo4jSourceRejectsBadConfig(t *testing.T) {
	if _, err := NewNeo4jSource(context.Background(), Neo4jConfig{}, "g", nil); !errors.Is(err, ErrMissingURI) {
		t.Errorf("expected ErrMissingURI, got %v", err)
	}
	_, err := NewNeo4jSource(context.Background(), Neo4jConfig{URI: "bolt://localhost:7687", Label: "x`) DETACH DELETE n //"}, "g", nil)
	if err == nil {
		t.Error("expected label to be rejected")
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"http needs url", func(c *Config) {}, true},
		{"http ok", func(c *Config) { c.URL = "http://localhost/graph" }, false},
		{"file needs path", func(c *Config) { c.Kind = KindFile }, true},
		{"file ok", func(c *Config) { c.Kind = KindFile; c.Path = "g.json" }, false},
		{"neo4j needs uri", func(c *Config) { c.Kind = KindNeo4j }, true},
		{"static ok", func(c *Config) { c.Kind = KindStatic }, false},
		{"unknown kind", func(c *Config) { c.Kind = "ftp" }, true},
		{"negative retries", func(c *Config) { c.Kind = KindStatic; c.MaxRetries = -1 }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			if err := cfg.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestBackoffIsCapped(t *testing.T) {
	l := newTestLoader(NewStaticSource("", nil), Config{Backoff: 10 * time.Millisecond, MaxBackoff: 35 * time.Millisecond})
	want := []time.Duration{10 * time.Millisecond, 20 * time.Millisecond, 35 * time.Millisecond, 35 * time.Millisecond}
	for i, w := range want {
		if got := l.backoff(i); got != w {
			t.Errorf("backoff(%d) = %v, want %v", i, got, w)
		}
	}
}
