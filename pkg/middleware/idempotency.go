package middleware

import (
	"bytes"
	"net/http"
	"sync"
	"time"
)

type idempotencyRecord struct {
	statusCode int
	body       []byte
	header     http.Header
	storedAt   time.Time
}

// InMemoryIdempotencyStore keeps responses for replayed Idempotency-Key
// requests. Entries expire after the configured TTL.
type InMemoryIdempotencyStore struct {
	mu      sync.RWMutex
	records map[string]*idempotencyRecord
	ttl     time.Duration

	stopCleanup chan struct{}
}

func NewInMemoryIdempotencyStore(ttl time.Duration) *InMemoryIdempotencyStore {
	store := &InMemoryIdempotencyStore{
		records:     make(map[string]*idempotencyRecord),
		ttl:         ttl,
		stopCleanup: make(chan struct{}),
	}

	go store.cleanupLoop()

	return store
}

func (s *InMemoryIdempotencyStore) get(key string) (*idempotencyRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	record, ok := s.records[key]
	if !ok {
		return nil, false
	}
	if time.Since(record.storedAt) > s.ttl {
		return nil, false
	}
	return record, true
}

func (s *InMemoryIdempotencyStore) set(key string, record *idempotencyRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[key] = record
}

func (s *InMemoryIdempotencyStore) cleanupLoop() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.mu.Lock()
			for key, record := range s.records {
				if time.Since(record.storedAt) > s.ttl {
					delete(s.records, key)
				}
			}
			s.mu.Unlock()
		case <-s.stopCleanup:
			return
		}
	}
}

func (s *InMemoryIdempotencyStore) Stop() {
	close(s.stopCleanup)
}

type recordingWriter struct {
	http.ResponseWriter
	statusCode int
	body       bytes.Buffer
	written    bool
}

func (rw *recordingWriter) WriteHeader(code int) {
	if !rw.written {
		rw.statusCode = code
		rw.written = true
		rw.ResponseWriter.WriteHeader(code)
	}
}

func (rw *recordingWriter) Write(b []byte) (int, error) {
	if !rw.written {
		rw.WriteHeader(http.StatusOK)
	}
	rw.body.Write(b)
	return rw.ResponseWriter.Write(b)
}

// Idempotency replays the stored response when a POST carries a previously
// seen Idempotency-Key. Requests without the header pass through untouched.
func Idempotency(store *InMemoryIdempotencyStore) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost {
				next.ServeHTTP(w, r)
				return
			}

			key := r.Header.Get("Idempotency-Key")
			if key == "" {
				next.ServeHTTP(w, r)
				return
			}

			if record, ok := store.get(key); ok {
				for name, values := range record.header {
					for _, value := range values {
						w.Header().Add(name, value)
					}
				}
				w.Header().Set("X-Idempotency-Replay", "true")
				w.WriteHeader(record.statusCode)
				_, _ = w.Write(record.body)
				return
			}

			recorder := &recordingWriter{
				ResponseWriter: w,
				statusCode:     200,
			}

			next.ServeHTTP(recorder, r)

			if recorder.statusCode < 500 {
				store.set(key, &idempotencyRecord{
					statusCode: recorder.statusCode,
					body:       recorder.body.Bytes(),
					header:     w.Header().Clone(),
					storedAt:   time.Now(),
				})
			}
		})
	}
}
