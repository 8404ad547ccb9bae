package middleware

import (
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/dd0wney/saga-graph/pkg/logging"
)

// RateLimitConfig configures per-client token buckets
type RateLimitConfig struct {
	RequestsPerSecond float64
	BurstSize         int
	CleanupInterval   time.Duration
	ClientExpiration  time.Duration
	// MaxClients caps tracked clients; new clients beyond it are refused
	MaxClients int
}

// DefaultRateLimitConfig allows a client to open a couple of sessions per
// second with short bursts.
func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		RequestsPerSecond: 2,
		BurstSize:         10,
		CleanupInterval:   5 * time.Minute,
		ClientExpiration:  10 * time.Minute,
		MaxClients:        10000,
	}
}

type tokenBucket struct {
	mu         sync.Mutex
	tokens     float64
	lastRefill time.Time
}

// RateLimiter tracks one token bucket per client
type RateLimiter struct {
	cfg    RateLimitConfig
	logger logging.Logger
	now    func() time.Time

	mu      sync.RWMutex
	clients map[string]*tokenBucket

	stopOnce sync.Once
	stop     chan struct{}
}

// NewRateLimiter starts a limiter and its cleanup loop; call Stop to end it
func NewRateLimiter(cfg RateLimitConfig, logger logging.Logger) *RateLimiter {
	rl := &RateLimiter{
		cfg:     cfg,
		logger:  logging.OrNop(logger).With(logging.Component("ratelimit")),
		now:     time.Now,
		clients: make(map[string]*tokenBucket),
		stop:    make(chan struct{}),
	}
	if cfg.CleanupInterval > 0 {
		go rl.cleanupLoop()
	}
	return rl
}

// Allow takes a token from clientID's bucket
func (rl *RateLimiter) Allow(clientID string) bool {
	bucket := rl.bucket(clientID)
	if bucket == nil {
		return false
	}

	bucket.mu.Lock()
	defer bucket.mu.Unlock()

	now := rl.now()
	bucket.tokens += now.Sub(bucket.lastRefill).Seconds() * rl.cfg.RequestsPerSecond
	if max := float64(rl.cfg.BurstSize); bucket.tokens > max {
		bucket.tokens = max
	}
	bucket.lastRefill = now

	if bucket.tokens >= 1 {
		bucket.tokens--
		return true
	}
	return false
}

// Clients returns the number of tracked clients
func (rl *RateLimiter) Clients() int {
	rl.mu.RLock()
	defer rl.mu.RUnlock()
	return len(rl.clients)
}

func (rl *RateLimiter) bucket(clientID string) *tokenBucket {
	rl.mu.RLock()
	bucket, ok := rl.clients[clientID]
	rl.mu.RUnlock()
	if ok {
		return bucket
	}

	rl.mu.Lock()
	defer rl.mu.Unlock()
	if bucket, ok = rl.clients[clientID]; ok {
		return bucket
	}
	if rl.cfg.MaxClients > 0 && len(rl.clients) >= rl.cfg.MaxClients {
		rl.logger.Warn("rate limiter client table full", logging.Count(len(rl.clients)))
		return nil
	}
	bucket = &tokenBucket{tokens: float64(rl.cfg.BurstSize), lastRefill: rl.now()}
	rl.clients[clientID] = bucket
	return bucket
}

func (rl *RateLimiter) cleanupLoop() {
	ticker := time.NewTicker(rl.cfg.CleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			rl.cleanup()
		case <-rl.stop:
			return
		}
	}
}

// cleanup drops buckets idle longer than ClientExpiration
func (rl *RateLimiter) cleanup() int {
	now := rl.now()
	rl.mu.Lock()
	defer rl.mu.Unlock()
	removed := 0
	for id, bucket := range rl.clients {
		bucket.mu.Lock()
		expired := now.Sub(bucket.lastRefill) > rl.cfg.ClientExpiration
		bucket.mu.Unlock()
		if expired {
			delete(rl.clients, id)
			removed++
		}
	}
	if removed > 0 {
		rl.logger.Debug("rate limiter cleanup", logging.Count(removed))
	}
	return removed
}

// Stop ends the cleanup loop
func (rl *RateLimiter) Stop() {
	rl.stopOnce.Do(func() { close(rl.stop) })
}

// ClientIP identifies a client by the host part of RemoteAddr. Mount
// chi's RealIP first when running behind a proxy.
func ClientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// RateLimit answers 429 when the client's bucket is empty. A nil limiter
// disables limiting.
func RateLimit(limiter *RateLimiter, clientID func(*http.Request) string) func(http.Handler) http.Handler {
	if clientID == nil {
		clientID = ClientIP
	}
	return func(next http.Handler) http.Handler {
		if limiter == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := clientID(r)
			if !limiter.Allow(id) {
				limiter.logger.Warn("rate limit exceeded",
					logging.String("client", id),
					logging.String("path", r.URL.Path))
				w.Header().Set("Retry-After", "1")
				w.Header().Set("X-RateLimit-Limit", strconv.FormatFloat(limiter.cfg.RequestsPerSecond, 'f', -1, 64))
				http.Error(w, "Rate limit exceeded", http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
