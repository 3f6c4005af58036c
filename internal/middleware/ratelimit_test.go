package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newTestLimiter(t *testing.T, rate, burst int) (*RateLimiter, *fakeClock) {
	t.Helper()
	clock := &fakeClock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	rl := NewRateLimiter(RateLimitConfig{Rate: rate, Window: time.Minute, Burst: burst, Now: clock.Now})
	t.Cleanup(rl.Stop)
	return rl, clock
}

func TestRateLimiter_Defaults(t *testing.T) {
	t.Parallel()
	rl := NewRateLimiter(RateLimitConfig{})
	defer rl.Stop()

	if rl.rate != 100 || rl.window != time.Minute || rl.capacity != 100 {
		t.Errorf("unexpected defaults: rate=%d window=%v capacity=%d", rl.rate, rl.window, rl.capacity)
	}
}

func TestRateLimiter_BurstAddsToCapacity(t *testing.T) {
	t.Parallel()
	tests := []struct {
		burst int
		want  int
	}{
		{burst: 20, want: 120},
		{burst: 0, want: 100},
		{burst: -5, want: 100},
	}
	for _, tt := range tests {
		rl := NewRateLimiter(RateLimitConfig{Burst: tt.burst})
		if rl.capacity != tt.want {
			t.Errorf("burst %d: capacity = %d, want %d", tt.burst, rl.capacity, tt.want)
		}
		rl.Stop()
	}
}

func TestRateLimiter_AllowsCapacityThenDenies(t *testing.T) {
	t.Parallel()
	rl, _ := newTestLimiter(t, 3, 2)

	for i := range 5 {
		allowed, remaining, _ := rl.Allow("player-1")
		if !allowed {
			t.Fatalf("request %d should be allowed", i+1)
		}
		if remaining != 4-i {
			t.Errorf("request %d: remaining = %d, want %d", i+1, remaining, 4-i)
		}
	}

	allowed, _, retryAfter := rl.Allow("player-1")
	if allowed {
		t.Fatal("request over capacity should be denied")
	}
	// 3 per minute refills one token every 20s
	if retryAfter <= 0 || retryAfter > 20*time.Second {
		t.Errorf("unexpected retryAfter %v", retryAfter)
	}
}

func TestRateLimiter_Refills(t *testing.T) {
	t.Parallel()
	rl, clock := newTestLimiter(t, 6, 0)

	for range 6 {
		rl.Allow("p")
	}
	if allowed, _, _ := rl.Allow("p"); allowed {
		t.Fatal("expected empty bucket")
	}

	clock.Advance(15 * time.Second)
	if allowed, _, _ := rl.Allow("p"); !allowed {
		t.Error("expected a token after 15s at 6/min")
	}
}

func TestRateLimiter_SeparateKeys(t *testing.T) {
	t.Parallel()
	rl, _ := newTestLimiter(t, 1, 0)

	if allowed, _, _ := rl.Allow("a"); !allowed {
		t.Fatal("a should be allowed")
	}
	if allowed, _, _ := rl.Allow("b"); !allowed {
		t.Error("b has its own bucket")
	}
	if allowed, _, _ := rl.Allow("a"); allowed {
		t.Error("a should be exhausted")
	}
}

func TestRateLimiter_CleanupIdle(t *testing.T) {
	t.Parallel()
	rl, clock := newTestLimiter(t, 10, 0)

	rl.Allow("stale")
	clock.Advance(90 * time.Second)
	rl.Allow("fresh")
	clock.Advance(45 * time.Second)

	rl.cleanupIdle()

	rl.mu.Lock()
	defer rl.mu.Unlock()
	if _, ok := rl.visitors["stale"]; ok {
		t.Error("stale bucket should be dropped")
	}
	if _, ok := rl.visitors["fresh"]; !ok {
		t.Error("fresh bucket should be kept")
	}
}

func TestRateLimiter_Concurrent(t *testing.T) {
	t.Parallel()
	rl, _ := newTestLimiter(t, 50, 0)

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		allowed int
	)
	for range 100 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if ok, _, _ := rl.Allow("shared"); ok {
				mu.Lock()
				allowed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if allowed != 50 {
		t.Errorf("expected exactly 50 allowed, got %d", allowed)
	}
}

func TestRateLimitMiddleware(t *testing.T) {
	t.Parallel()
	rl, _ := newTestLimiter(t, 1, 0)
	h := RateLimit(rl)(okHandler("ok"))

	withPlayer := func(id string) *http.Request {
		req := httptest.NewRequest(http.MethodGet, "/v1/marketplace", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		if id != "" {
			req = req.WithContext(context.WithValue(req.Context(), PlayerIDKey, id))
		}
		return req
	}

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, withPlayer("player-1"))
	if rr.Code != http.StatusOK || rr.Header().Get("X-RateLimit-Limit") != "1" {
		t.Fatalf("first request: status %d limit %q", rr.Code, rr.Header().Get("X-RateLimit-Limit"))
	}

	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, withPlayer("player-1"))
	if rr.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rr.Code)
	}
	if rr.Header().Get("Retry-After") == "" {
		t.Error("expected Retry-After")
	}

	// Another player and the anonymous caller have their own buckets
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, withPlayer("player-2"))
	if rr.Code != http.StatusOK {
		t.Errorf("player-2: expected 200, got %d", rr.Code)
	}
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, withPlayer(""))
	if rr.Code != http.StatusOK {
		t.Errorf("anonymous: expected 200, got %d", rr.Code)
	}
}
