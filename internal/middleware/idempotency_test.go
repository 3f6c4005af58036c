package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func newTestStore(t *testing.T) (*IdempotencyStore, *fakeClock) {
	t.Helper()
	clock := &fakeClock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	s := NewIdempotencyStore(IdempotencyConfig{TTL: time.Hour, Now: clock.Now})
	t.Cleanup(s.Stop)
	return s, clock
}

// countingHandler answers 201 with the call number and counts calls
func countingHandler(calls *atomic.Int32, status int) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := calls.Add(1)
		w.Header().Set("X-Call", strconv.Itoa(int(n)))
		w.WriteHeader(status)
		_, _ = w.Write([]byte("call " + strconv.Itoa(int(n))))
	})
}

func keyedRequest(method, key, player, body string) *http.Request {
	req := httptest.NewRequest(method, "/v1/lending/orders/o1/borrow", strings.NewReader(body))
	req.RemoteAddr = "10.0.0.1:1234"
	if key != "" {
		req.Header.Set(IdempotencyKeyHeader, key)
	}
	if player != "" {
		req = req.WithContext(context.WithValue(req.Context(), PlayerIDKey, player))
	}
	return req
}

func TestFingerprint(t *testing.T) {
	t.Parallel()

	base := fingerprint("p1", "k1", "POST", "/a", []byte("{}"))
	if base != fingerprint("p1", "k1", "POST", "/a", []byte("{}")) {
		t.Error("same inputs should give the same fingerprint")
	}
	variants := []string{
		fingerprint("p2", "k1", "POST", "/a", []byte("{}")),
		fingerprint("p1", "k2", "POST", "/a", []byte("{}")),
		fingerprint("p1", "k1", "PATCH", "/a", []byte("{}")),
		fingerprint("p1", "k1", "POST", "/b", []byte("{}")),
		fingerprint("p1", "k1", "POST", "/a", []byte(`{"x":1}`)),
		fingerprint("p1k", "1", "POST", "/a", []byte("{}")),
	}
	for i, v := range variants {
		if v == base {
			t.Errorf("variant %d collides with base", i)
		}
	}
}

func TestIdempotency_Replays(t *testing.T) {
	t.Parallel()
	store, _ := newTestStore(t)
	var calls atomic.Int32
	h := Idempotency(store)(countingHandler(&calls, http.StatusCreated))

	first := httptest.NewRecorder()
	h.ServeHTTP(first, keyedRequest(http.MethodPost, "k1", "player-1", `{}`))
	second := httptest.NewRecorder()
	h.ServeHTTP(second, keyedRequest(http.MethodPost, "k1", "player-1", `{}`))

	if calls.Load() != 1 {
		t.Fatalf("expected one call, got %d", calls.Load())
	}
	if second.Code != http.StatusCreated || second.Body.String() != "call 1" {
		t.Errorf("replay mismatch: %d %q", second.Code, second.Body.String())
	}
	if second.Header().Get("X-Idempotency-Replayed") != "true" {
		t.Error("expected replay marker")
	}
	if second.Header().Get("X-Call") != "1" {
		t.Error("expected original headers")
	}
}

func TestIdempotency_Bypass(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		method string
		key    string
	}{
		{"GET ignored", http.MethodGet, "k1"},
		{"DELETE ignored", http.MethodDelete, "k1"},
		{"POST without key", http.MethodPost, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, _ := newTestStore(t)
			var calls atomic.Int32
			h := Idempotency(store)(countingHandler(&calls, http.StatusOK))

			h.ServeHTTP(httptest.NewRecorder(), keyedRequest(tt.method, tt.key, "p", ""))
			h.ServeHTTP(httptest.NewRecorder(), keyedRequest(tt.method, tt.key, "p", ""))

			if calls.Load() != 2 {
				t.Errorf("expected 2 calls, got %d", calls.Load())
			}
			if store.Len() != 0 {
				t.Errorf("nothing should be stored, got %d", store.Len())
			}
		})
	}
}

func TestIdempotency_ScopedByCallerAndBody(t *testing.T) {
	t.Parallel()
	store, _ := newTestStore(t)
	var calls atomic.Int32
	h := Idempotency(store)(countingHandler(&calls, http.StatusOK))

	h.ServeHTTP(httptest.NewRecorder(), keyedRequest(http.MethodPost, "k1", "player-1", `{}`))
	h.ServeHTTP(httptest.NewRecorder(), keyedRequest(http.MethodPost, "k1", "player-2", `{}`))
	h.ServeHTTP(httptest.NewRecorder(), keyedRequest(http.MethodPost, "k1", "player-1", `{"price":2}`))
	h.ServeHTTP(httptest.NewRecorder(), keyedRequest(http.MethodPost, "k1", "", `{}`))

	if calls.Load() != 4 {
		t.Errorf("expected 4 calls, got %d", calls.Load())
	}
}

func TestIdempotency_ServerErrorNotStored(t *testing.T) {
	t.Parallel()
	store, _ := newTestStore(t)
	var calls atomic.Int32
	h := Idempotency(store)(countingHandler(&calls, http.StatusBadGateway))

	h.ServeHTTP(httptest.NewRecorder(), keyedRequest(http.MethodPost, "k1", "p", ""))
	h.ServeHTTP(httptest.NewRecorder(), keyedRequest(http.MethodPost, "k1", "p", ""))

	if calls.Load() != 2 {
		t.Errorf("a failed request should be retried, got %d calls", calls.Load())
	}
	if store.Len() != 0 {
		t.Errorf("failed responses should not be kept, got %d", store.Len())
	}
}

func TestIdempotency_Expires(t *testing.T) {
	t.Parallel()
	store, clock := newTestStore(t)
	var calls atomic.Int32
	h := Idempotency(store)(countingHandler(&calls, http.StatusOK))

	h.ServeHTTP(httptest.NewRecorder(), keyedRequest(http.MethodPatch, "k1", "p", ""))
	clock.Advance(2 * time.Hour)
	h.ServeHTTP(httptest.NewRecorder(), keyedRequest(http.MethodPatch, "k1", "p", ""))

	if calls.Load() != 2 {
		t.Errorf("expired entry should not replay, got %d calls", calls.Load())
	}

	clock.Advance(2 * time.Hour)
	store.cleanup()
	if store.Len() != 0 {
		t.Errorf("expected sweep to drop expired entries, got %d", store.Len())
	}
}

func TestIdempotency_ConcurrentDuplicateWaits(t *testing.T) {
	t.Parallel()
	store, _ := newTestStore(t)

	release := make(chan struct{})
	started := make(chan struct{})
	var calls atomic.Int32
	h := Idempotency(store)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			close(started)
		}
		<-release
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte("borrowed"))
	}))

	var wg sync.WaitGroup
	recorders := []*httptest.ResponseRecorder{httptest.NewRecorder(), httptest.NewRecorder()}

	wg.Add(1)
	go func() {
		defer wg.Done()
		h.ServeHTTP(recorders[0], keyedRequest(http.MethodPost, "k1", "p", ""))
	}()
	<-started

	wg.Add(1)
	go func() {
		defer wg.Done()
		h.ServeHTTP(recorders[1], keyedRequest(http.MethodPost, "k1", "p", ""))
	}()

	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	if calls.Load() != 1 {
		t.Fatalf("expected the duplicate to wait, got %d calls", calls.Load())
	}
	for i, rr := range recorders {
		if rr.Code != http.StatusCreated || rr.Body.String() != "borrowed" {
			t.Errorf("recorder %d: %d %q", i, rr.Code, rr.Body.String())
		}
	}
}
