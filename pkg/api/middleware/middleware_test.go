package middleware

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/dd0wney/saga-graph/pkg/logging"
	"github.com/dd0wney/saga-graph/pkg/metrics"
)

func okHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func TestBodySizeLimit_AllowsSmallRequest(t *testing.T) {
	handler := BodySizeLimit(100)(http.HandlerFunc(okHandler))
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader("small"))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}

func TestBodySizeLimit_RejectsLargeContentLength(t *testing.T) {
	handler := BodySizeLimit(10)(http.HandlerFunc(okHandler))
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(strings.Repeat("x", 100)))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("expected 413, got %d", rec.Code)
	}
}

func TestBodySizeLimit_LimitsActualBody(t *testing.T) {
	var readErr error
	handler := BodySizeLimit(10)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, readErr = io.ReadAll(r.Body)
	}))
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(strings.Repeat("x", 100)))
	req.ContentLength = -1
	handler.ServeHTTP(httptest.NewRecorder(), req)
	if readErr == nil {
		t.Error("expected a read error past the limit")
	}
}

func TestLogging_LevelByStatus(t *testing.T) {
	tests := []struct {
		status int
		want   string
	}{
		{http.StatusOK, ""},
		{http.StatusNotFound, `"level":"WARN"`},
		{http.StatusInternalServerError, `"level":"ERROR"`},
	}
	for _, tt := range tests {
		var buf bytes.Buffer
		logger := logging.NewJSONLogger(&buf, logging.InfoLevel)
		handler := Logging(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tt.status)
		}))
		handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/sessions/abc", nil))

		out := buf.String()
		if tt.want == "" {
			if out != "" {
				t.Errorf("status %d: expected no info-level output, got %s", tt.status, out)
			}
			continue
		}
		if !strings.Contains(out, tt.want) || !strings.Contains(out, "/sessions/abc") {
			t.Errorf("status %d: unexpected log %s", tt.status, out)
		}
	}
}

func TestMetrics_UsesRoutePattern(t *testing.T) {
	reg := metrics.NewRegistry()
	r := chi.NewRouter()
	r.Use(Metrics(reg))
	r.Get("/sessions/{id}", okHandler)

	for _, id := range []string{"a", "b", "c"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/sessions/"+id, nil))
	}
	got := testutil.ToFloat64(reg.HTTPRequestsTotal.WithLabelValues(http.MethodGet, "/sessions/{id}", "200"))
	if got != 3 {
		t.Errorf("expected 3 requests on the route pattern, got %v", got)
	}
	if n := testutil.CollectAndCount(reg.HTTPRequestsTotal); n != 1 {
		t.Errorf("expected a single series, got %d", n)
	}
	if v := testutil.ToFloat64(reg.HTTPRequestsInFlight); v != 0 {
		t.Errorf("in-flight gauge not released: %v", v)
	}
}

func TestMetrics_NilRegistry(t *testing.T) {
	handler := Metrics(nil)(http.HandlerFunc(okHandler))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}

func TestSecurityHeaders(t *testing.T) {
	for _, hsts := range []bool{false, true} {
		rec := httptest.NewRecorder()
		SecurityHeaders(hsts)(http.HandlerFunc(okHandler)).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		if rec.Header().Get("X-Content-Type-Options") != "nosniff" {
			t.Error("missing nosniff")
		}
		if !strings.Contains(rec.Header().Get("Content-Security-Policy"), "default-src 'none'") {
			t.Error("missing restrictive CSP")
		}
		if got := rec.Header().Get("Strict-Transport-Security") != ""; got != hsts {
			t.Errorf("hsts=%v but header present=%v", hsts, got)
		}
	}
}

func newTestLimiter(cfg RateLimitConfig) (*RateLimiter, *time.Time) {
	cfg.CleanupInterval = 0
	rl := NewRateLimiter(cfg, nil)
	now := time.Unix(1700000000, 0)
	rl.now = func() time.Time { return now }
	return rl, &now
}

func TestRateLimiter_BurstAndRefill(t *testing.T) {
	rl, now := newTestLimiter(RateLimitConfig{RequestsPerSecond: 2, BurstSize: 3, ClientExpiration: time.Minute})

	for i := 0; i < 3; i++ {
		if !rl.Allow("10.0.0.1") {
			t.Fatalf("request %d within burst was refused", i)
		}
	}
	if rl.Allow("10.0.0.1") {
		t.Fatal("request past burst was allowed")
	}
	if !rl.Allow("10.0.0.2") {
		t.Fatal("other client should have its own bucket")
	}

	*now = now.Add(500 * time.Millisecond)
	if !rl.Allow("10.0.0.1") {
		t.Error("one token should have refilled after 500ms at 2/s")
	}
	if rl.Allow("10.0.0.1") {
		t.Error("only one token should have refilled")
	}
}

func TestRateLimiter_MaxClientsAndCleanup(t *testing.T) {
	rl, now := newTestLimiter(RateLimitConfig{RequestsPerSecond: 1, BurstSize: 1, ClientExpiration: time.Minute, MaxClients: 2})
	rl.Allow("a")
	rl.Allow("b")
	if rl.Allow("c") {
		t.Error("third client should be refused when the table is full")
	}

	*now = now.Add(2 * time.Minute)
	if removed := rl.cleanup(); removed != 2 || rl.Clients() != 0 {
		t.Errorf("expected both idle clients removed, removed=%d left=%d", removed, rl.Clients())
	}
	if !rl.Allow("c") {
		t.Error("new client should be accepted after cleanup")
	}
}

func TestRateLimit_Middleware(t *testing.T) {
	rl, _ := newTestLimiter(RateLimitConfig{RequestsPerSecond: 1, BurstSize: 1, MaxClients: 10})
	handler := RateLimit(rl, nil)(http.HandlerFunc(okHandler))

	req := httptest.NewRequest(http.MethodPost, "/sessions", nil)
	req.RemoteAddr = "192.0.2.7:5555"

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("first request: expected 200, got %d", rec.Code)
	}
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("second request: expected 429, got %d", rec.Code)
	}
	if rec.Header().Get("Retry-After") != "1" {
		t.Error("missing Retry-After")
	}
}

func TestRateLimit_NilLimiter(t *testing.T) {
	handler := RateLimit(nil, nil)(http.HandlerFunc(okHandler))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}

func TestClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "[2001:db8::1]:443"
	if got := ClientIP(req); got != "2001:db8::1" {
		t.Errorf("ClientIP = %q", got)
	}
	req.RemoteAddr = "not-an-addr"
	if got := ClientIP(req); got != "not-an-addr" {
		t.Errorf("ClientIP = %q", got)
	}
}
