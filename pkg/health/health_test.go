package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/dd0wney/saga-graph/pkg/layoutstore"
)

func TestCheckStatusAggregation(t *testing.T) {
	tests := []struct {
		name           string
		checkStatuses  []Status
		expectedStatus Status
	}{
		{"all healthy", []Status{StatusHealthy, StatusHealthy}, StatusHealthy},
		{"one degraded", []Status{StatusHealthy, StatusDegraded, StatusHealthy}, StatusDegraded},
		{"one unhealthy", []Status{StatusHealthy, StatusUnhealthy}, StatusUnhealthy},
		{"degraded and unhealthy", []Status{StatusDegraded, StatusUnhealthy, StatusHealthy}, StatusUnhealthy},
		{"no checks", nil, StatusHealthy},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hc := NewChecker(0)
			for i, status := range tt.checkStatuses {
				s := status
				hc.Register(string(rune('a'+i)), func(context.Context) Check {
					return Check{Status: s}
				})
			}

			resp := hc.Check(context.Background())
			if resp.Status != tt.expectedStatus {
				t.Errorf("expected status %s, got %s", tt.expectedStatus, resp.Status)
			}
			if len(resp.Checks) != len(tt.checkStatuses) {
				t.Errorf("expected %d checks, got %d", len(tt.checkStatuses), len(resp.Checks))
			}
		})
	}
}

func TestCheckSets(t *testing.T) {
	hc := NewChecker(0)
	var health, ready, live int
	hc.Register("h", func(context.Context) Check { health++; return Check{Status: StatusHealthy} })
	hc.RegisterReadiness("r", func(context.Context) Check { ready++; return Check{Status: StatusHealthy} })
	hc.RegisterLiveness("l", func(context.Context) Check { live++; return Check{Status: StatusHealthy} })

	resp := hc.Check(context.Background())
	if _, ok := resp.Checks["h"]; !ok || health != 1 || ready != 0 || live != 0 {
		t.Errorf("Check ran the wrong set: health=%d ready=%d live=%d", health, ready, live)
	}
	if resp.Checks["h"].Name != "h" {
		t.Errorf("unnamed check should take its registration name, got %q", resp.Checks["h"].Name)
	}
	hc.CheckReadiness(context.Background())
	hc.CheckLiveness(context.Background())
	if ready != 1 || live != 1 {
		t.Errorf("expected one readiness and one liveness run, got %d/%d", ready, live)
	}
}

func TestCheckTimeout(t *testing.T) {
	hc := NewChecker(20 * time.Millisecond)
	hc.Register("slow", func(ctx context.Context) Check {
		select {
		case <-ctx.Done():
			return Check{Status: StatusUnhealthy, Message: ctx.Err().Error()}
		case <-time.After(5 * time.Second):
			return Check{Status: StatusHealthy}
		}
	})

	start := time.Now()
	resp := hc.Check(context.Background())
	if time.Since(start) > 2*time.Second {
		t.Fatal("check was not bounded by the timeout")
	}
	if resp.Status != StatusUnhealthy {
		t.Errorf("expected unhealthy, got %s", resp.Status)
	}
	if resp.Checks["slow"].Duration <= 0 {
		t.Error("duration not recorded")
	}
}

type failingStore struct {
	layoutstore.Store
	err error
}

func (f failingStore) Load(context.Context, string) (*layoutstore.Snapshot, error) {
	return nil, f.err
}

func TestStoreCheck(t *testing.T) {
	mem := layoutstore.NewMemoryStore()
	check := StoreCheck(mem)(context.Background())
	if check.Status != StatusHealthy {
		t.Errorf("memory store: expected healthy, got %s (%s)", check.Status, check.Message)
	}
	if check.Details["backend"] != mem.Backend() {
		t.Errorf("backend detail = %v", check.Details["backend"])
	}

	mem.Close()
	if check := StoreCheck(mem)(context.Background()); check.Status != StatusUnhealthy {
		t.Errorf("closed store: expected unhealthy, got %s", check.Status)
	}

	broken := failingStore{Store: layoutstore.NewMemoryStore(), err: errors.New("connection refused")}
	check = StoreCheck(broken)(context.Background())
	if check.Status != StatusUnhealthy || check.Message != "connection refused" {
		t.Errorf("broken store: got %s %q", check.Status, check.Message)
	}
}

func TestSessionsCheck(t *testing.T) {
	tests := []struct {
		open, max int
		want      Status
	}{
		{0, 64, StatusHealthy},
		{57, 64, StatusHealthy},
		{59, 64, StatusDegraded},
		{64, 64, StatusDegraded},
		{500, 0, StatusHealthy},
	}
	for _, tt := range tests {
		check := SessionsCheck(func() (int, int) { return tt.open, tt.max })(context.Background())
		if check.Status != tt.want {
			t.Errorf("open=%d max=%d: expected %s, got %s", tt.open, tt.max, tt.want, check.Status)
		}
	}
}

func TestHostsCheck(t *testing.T) {
	modes := func() (int, int) { return 3, 1 }
	if check := HostsCheck(true, modes)(context.Background()); check.Status != StatusDegraded {
		t.Errorf("fallback with workers expected: got %s", check.Status)
	}
	if check := HostsCheck(false, modes)(context.Background()); check.Status != StatusHealthy {
		t.Errorf("in-process configured: got %s", check.Status)
	}
}

func TestBreakerCheck(t *testing.T) {
	tests := map[string]Status{
		"closed":    StatusHealthy,
		"half-open": StatusDegraded,
		"open":      StatusUnhealthy,
	}
	for state, want := range tests {
		s := state
		if check := BreakerCheck(func() string { return s })(context.Background()); check.Status != want {
			t.Errorf("%s: expected %s, got %s", state, want, check.Status)
		}
	}
}

func TestMemoryCheck(t *testing.T) {
	if check := MemoryCheck(0)(context.Background()); check.Status != StatusHealthy {
		t.Errorf("no limit: expected healthy, got %s", check.Status)
	}
	if check := MemoryCheck(1)(context.Background()); check.Status != StatusDegraded {
		t.Errorf("1 byte limit: expected degraded, got %s", check.Status)
	}
}

func TestHTTPHandlers(t *testing.T) {
	tests := []struct {
		name       string
		status     Status
		healthCode int
		readyCode  int
	}{
		{"healthy", StatusHealthy, http.StatusOK, http.StatusOK},
		{"degraded", StatusDegraded, http.StatusOK, http.StatusServiceUnavailable},
		{"unhealthy", StatusUnhealthy, http.StatusServiceUnavailable, http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hc := NewChecker(0)
			fn := func(context.Context) Check { return Check{Status: tt.status} }
			hc.Register("test", fn)
			hc.RegisterReadiness("test", fn)
			hc.RegisterLiveness("test", fn)

			for _, h := range []struct {
				handler http.HandlerFunc
				code    int
			}{
				{hc.HTTPHandler(), tt.healthCode},
				{hc.ReadinessHandler(), tt.readyCode},
				{hc.LivenessHandler(), tt.readyCode},
			} {
				rec := httptest.NewRecorder()
				h.handler(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
				if rec.Code != h.code {
					t.Errorf("expected status code %d, got %d", h.code, rec.Code)
				}
				if rec.Header().Get("Content-Type") != "application/json" {
					t.Error("expected Content-Type application/json")
				}
				var resp Response
				if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
					t.Fatalf("failed to decode response: %v", err)
				}
				if resp.Status != tt.status {
					t.Errorf("expected response status %s, got %s", tt.status, resp.Status)
				}
			}
		})
	}
}

func TestConcurrentRegistration(t *testing.T) {
	hc := NewChecker(0)
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			hc.Register(string(rune('a'+i)), Static("static"))
		}(i)
		go func() {
			defer wg.Done()
			hc.Check(context.Background())
		}()
	}
	wg.Wait()
	if resp := hc.Check(context.Background()); len(resp.Checks) != 20 {
		t.Errorf("expected 20 checks, got %d", len(resp.Checks))
	}
}
