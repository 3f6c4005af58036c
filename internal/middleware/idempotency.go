package middleware

import (
	"bytes"
	"encoding/hex"
	"io"
	"net/http"
	"sync"
	"time"

	"golang.org/x/crypto/blake2b"
)

// IdempotencyKeyHeader carries the client's retry key
const IdempotencyKeyHeader = "Idempotency-Key"

// IdempotencyStore remembers responses to keyed POST and PATCH requests so a
// retried borrow or listing replays the first outcome instead of repeating it
type IdempotencyStore struct {
	mu       sync.Mutex
	entries  map[string]*idempotencyEntry
	ttl      time.Duration
	now      func() time.Time
	stopChan chan struct{}
	stopOnce sync.Once
}

type idempotencyEntry struct {
	status    int
	headers   http.Header
	body      []byte
	expiresAt time.Time
	done      chan struct{} // closed when the first request finishes
	stored    bool
}

// IdempotencyConfig holds configuration for idempotency middleware
type IdempotencyConfig struct {
	TTL     time.Duration    // How long to keep a response (default 24h)
	Cleanup time.Duration    // Sweep interval (default 1h)
	Now     func() time.Time // Optional
}

// NewIdempotencyStore creates a store and starts its sweeper
func NewIdempotencyStore(cfg IdempotencyConfig) *IdempotencyStore {
	if cfg.TTL <= 0 {
		cfg.TTL = 24 * time.Hour
	}
	if cfg.Cleanup <= 0 {
		cfg.Cleanup = time.Hour
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	s := &IdempotencyStore{
		entries:  make(map[string]*idempotencyEntry),
		ttl:      cfg.TTL,
		now:      cfg.Now,
		stopChan: make(chan struct{}),
	}
	go s.cleanupLoop(cfg.Cleanup)
	return s
}

// Stop stops the sweeper. Safe to call more than once.
func (s *IdempotencyStore) Stop() {
	s.stopOnce.Do(func() { close(s.stopChan) })
}

func (s *IdempotencyStore) cleanupLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.cleanup()
		case <-s.stopChan:
			return
		}
	}
}

func (s *IdempotencyStore) cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	for key, e := range s.entries {
		if e.stored && e.expiresAt.Before(now) {
			delete(s.entries, key)
		}
	}
}

// Len returns the number of remembered or in-flight requests
func (s *IdempotencyStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// begin returns the entry for key and whether the caller owns it. A caller
// that does not own it must wait on done.
func (s *IdempotencyStore) begin(key string) (*idempotencyEntry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if e, ok := s.entries[key]; ok && (!e.stored || e.expiresAt.After(s.now())) {
		return e, false
	}
	e := &idempotencyEntry{done: make(chan struct{})}
	s.entries[key] = e
	return e, true
}

// finish stores a completed response. Server errors are forgotten so the
// client can retry.
func (s *IdempotencyStore) finish(key string, e *idempotencyEntry, rec *idempotencyRecorder) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if rec.status >= http.StatusInternalServerError {
		delete(s.entries, key)
	} else {
		e.status = rec.status
		e.headers = rec.Header().Clone()
		e.body = rec.body.Bytes()
		e.expiresAt = s.now().Add(s.ttl)
		e.stored = true
	}
	close(e.done)
}

// fingerprint ties a key to the caller and the exact request
func fingerprint(caller, key, method, path string, body []byte) string {
	h, _ := blake2b.New256(nil) // errors only for keys over 64 bytes
	for _, part := range [][]byte{[]byte(caller), []byte(key), []byte(method), []byte(path)} {
		h.Write(part)
		h.Write([]byte{0})
	}
	h.Write(body)
	return hex.EncodeToString(h.Sum(nil))
}

// idempotencyRecorder tees the response into a buffer
type idempotencyRecorder struct {
	http.ResponseWriter
	status int
	body   bytes.Buffer
}

func (w *idempotencyRecorder) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

func (w *idempotencyRecorder) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

func replay(w http.ResponseWriter, e *idempotencyEntry) {
	// Headers set for this request, such as its request id, win
	for k, v := range e.headers {
		if _, ok := w.Header()[k]; !ok {
			w.Header()[k] = v
		}
	}
	w.Header().Set("X-Idempotency-Replayed", "true")
	w.WriteHeader(e.status)
	_, _ = w.Write(e.body)
}

// Idempotency replays the stored response for a repeated POST or PATCH that
// carries the same Idempotency-Key, caller and body
func Idempotency(store *IdempotencyStore) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := r.Header.Get(IdempotencyKeyHeader)
			if key == "" || (r.Method != http.MethodPost && r.Method != http.MethodPatch) {
				next.ServeHTTP(w, r)
				return
			}

			caller := GetPlayerID(r.Context())
			if caller == "" {
				caller = r.RemoteAddr
			}

			body, err := io.ReadAll(r.Body)
			if err != nil {
				next.ServeHTTP(w, r)
				return
			}
			r.Body = io.NopCloser(bytes.NewReader(body))

			id := fingerprint(caller, key, r.Method, r.URL.Path, body)
			for {
				entry, owner := store.begin(id)
				if owner {
					rec := &idempotencyRecorder{ResponseWriter: w, status: http.StatusOK}
					completed := false
					defer func() {
						if !completed {
							rec.status = http.StatusInternalServerError
						}
						store.finish(id, entry, rec)
					}()
					next.ServeHTTP(rec, r)
					completed = true
					return
				}

				select {
				case <-entry.done:
				case <-r.Context().Done():
					return
				}
				store.mu.Lock()
				stored := entry.stored
				store.mu.Unlock()
				if stored {
					replay(w, entry)
					return
				}
				// The first attempt failed; run this one
			}
		})
	}
}
