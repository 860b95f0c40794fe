package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func newTestLimiter(reads, writes int) (*Limiter, *time.Time) {
	now := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	rl := NewLimiter(Config{RequestsPerMinute: reads, WriteRequestsPerMinute: writes, CleanupInterval: time.Hour})
	rl.now = func() time.Time { return now }
	return rl, &now
}

func TestLimiter_ReadBudget(t *testing.T) {
	rl, now := newTestLimiter(3, 1)
	defer rl.Stop()

	for i := 0; i < 3; i++ {
		if !rl.Allow("1.1.1.1", false) {
			t.Fatalf("request %d should be allowed", i+1)
		}
	}
	if rl.Allow("1.1.1.1", false) {
		t.Error("fourth request in the window should be rejected")
	}
	if !rl.Allow("2.2.2.2", false) {
		t.Error("other clients have their own budget")
	}

	*now = now.Add(time.Minute)
	if !rl.Allow("1.1.1.1", false) {
		t.Error("budget should reset after the window")
	}
	if got := rl.GetMetrics(); got.TotalHits != 1 || got.ClientCount != 2 {
		t.Errorf("GetMetrics() = %+v", got)
	}
}

func TestLimiter_WriteBudget(t *testing.T) {
	rl, _ := newTestLimiter(10, 2)
	defer rl.Stop()

	rl.Allow("ip", true)
	rl.Allow("ip", true)
	if rl.Allow("ip", true) {
		t.Error("third write should exceed the write budget")
	}
	if !rl.Allow("ip", false) {
		t.Error("reads should still be allowed")
	}
}

func TestLimiter_CleanupStaleEntries(t *testing.T) {
	rl, now := newTestLimiter(10, 10)
	defer rl.Stop()

	rl.Allow("old", false)
	*now = now.Add(11 * time.Minute)
	rl.Allow("fresh", false)

	if removed := rl.cleanupStaleEntries(); removed != 1 {
		t.Errorf("cleanupStaleEntries() = %d, want 1", removed)
	}
}

func TestLimiter_Middleware(t *testing.T) {
	rl, now := newTestLimiter(1, 1)
	defer rl.Stop()

	h := rl.Middleware(func(r *http.Request) string { return "9.9.9.9" }, nil)(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNoContent) }))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusNoContent {
		t.Fatalf("first request status = %d", rec.Code)
	}

	*now = now.Add(20 * time.Second)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("second request status = %d, want 429", rec.Code)
	}
	if got := rec.Header().Get("Retry-After"); got != "40" {
		t.Errorf("Retry-After = %q, want 40", got)
	}
}
