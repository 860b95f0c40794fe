// Package ratelimit throttles clients per IP with fixed one-minute windows.
// Writes (record submissions and sales uploads) have their own, lower budget.
package ratelimit

import (
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"
)

const window = time.Minute

type Limiter struct {
	mu           sync.Mutex
	clients      map[string]*clientWindow
	stopCleanup  chan struct{}
	shutdownOnce sync.Once
	now          func() time.Time

	readsPerMinute  int
	writesPerMinute int
	cleanupInterval time.Duration

	hits atomic.Int64
}

type clientWindow struct {
	start  time.Time
	reads  int
	writes int
	seen   time.Time
}

type Config struct {
	RequestsPerMinute      int
	WriteRequestsPerMinute int
	CleanupInterval        time.Duration
}

func DefaultConfig() Config {
	return Config{
		RequestsPerMinute:      60,
		WriteRequestsPerMinute: 20,
		CleanupInterval:        5 * time.Minute,
	}
}

// NewLimiter starts a limiter and its cleanup goroutine. Stop releases it.
func NewLimiter(config Config) *Limiter {
	def := DefaultConfig()
	if config.RequestsPerMinute <= 0 {
		config.RequestsPerMinute = def.RequestsPerMinute
	}
	if config.WriteRequestsPerMinute <= 0 {
		config.WriteRequestsPerMinute = def.WriteRequestsPerMinute
	}
	if config.CleanupInterval <= 0 {
		config.CleanupInterval = def.CleanupInterval
	}

	rl := &Limiter{
		clients:         make(map[string]*clientWindow),
		stopCleanup:     make(chan struct{}),
		now:             time.Now,
		readsPerMinute:  config.RequestsPerMinute,
		writesPerMinute: config.WriteRequestsPerMinute,
		cleanupInterval: config.CleanupInterval,
	}
	go rl.startCleanup()
	return rl
}

// Allow reports whether clientIP may make another request in the current
// window. Writes count against both budgets.
func (rl *Limiter) Allow(clientIP string, write bool) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	w, ok := rl.clients[clientIP]
	if !ok || now.Sub(w.start) >= window {
		w = &clientWindow{start: now}
		rl.clients[clientIP] = w
	}
	w.seen = now

	w.reads++
	if write {
		w.writes++
	}
	if w.reads > rl.readsPerMinute || (write && w.writes > rl.writesPerMinute) {
		rl.hits.Add(1)
		return false
	}
	return true
}

// retryAfter is the number of seconds until clientIP's window resets.
func (rl *Limiter) retryAfter(clientIP string) int {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	w, ok := rl.clients[clientIP]
	if !ok {
		return 0
	}
	left := window - rl.now().Sub(w.start)
	if left < time.Second {
		return 1
	}
	return int(left / time.Second)
}

func (rl *Limiter) startCleanup() {
	ticker := time.NewTicker(rl.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.cleanupStaleEntries()
		case <-rl.stopCleanup:
			return
		}
	}
}

// cleanupStaleEntries forgets clients idle for ten minutes.
func (rl *Limiter) cleanupStaleEntries() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cutoff := rl.now().Add(-10 * time.Minute)
	removed := 0
	for ip, w := range rl.clients {
		if w.seen.Before(cutoff) {
			delete(rl.clients, ip)
			removed++
		}
	}
	return removed
}

func (rl *Limiter) Stop() {
	rl.shutdownOnce.Do(func() {
		close(rl.stopCleanup)
	})
}

type Metrics struct {
	TotalHits   int64
	ClientCount int64
}

func (rl *Limiter) GetMetrics() Metrics {
	rl.mu.Lock()
	clients := int64(len(rl.clients))
	rl.mu.Unlock()

	return Metrics{TotalHits: rl.hits.Load(), ClientCount: clients}
}

func isWrite(r *http.Request) bool {
	switch r.Method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	}
	return false
}

// Middleware rejects over-budget clients with 429. onLimit, when set,
// writes the response body after Retry-After has been set.
func (rl *Limiter) Middleware(extractIP func(*http.Request) string, onLimit func(http.ResponseWriter, *http.Request)) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			clientIP := extractIP(r)
			if rl.Allow(clientIP, isWrite(r)) {
				next.ServeHTTP(w, r)
				return
			}

			w.Header().Set("Retry-After", strconv.Itoa(rl.retryAfter(clientIP)))
			if onLimit != nil {
				onLimit(w, r)
				return
			}
			http.Error(w, "Rate limit exceeded. Please try again later.", http.StatusTooManyRequests)
		})
	}
}
