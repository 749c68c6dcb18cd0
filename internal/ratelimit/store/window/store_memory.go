package window

import (
	"context"
	"sync"
	"time"

	"flightagent/internal/ratelimit/models"
)

// Defaults for idle eviction.
const (
	DefaultIdleTTL       = 10 * time.Minute
	DefaultSweepInterval = time.Minute
)

// InMemoryWindowStore keeps one fixed window per client in process memory.
// State is lost on restart and is not shared between instances.
type InMemoryWindowStore struct {
	mu        sync.Mutex
	windows   map[string]*models.WindowState
	lastSweep time.Time

	idleTTL       time.Duration
	sweepInterval time.Duration
	now           func() time.Time
}

type Option func(*InMemoryWindowStore)

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *InMemoryWindowStore) {
		if now != nil {
			s.now = now
		}
	}
}

// WithIdleTTL sets how long a silent client is kept before eviction.
func WithIdleTTL(ttl time.Duration) Option {
	return func(s *InMemoryWindowStore) {
		if ttl > 0 {
			s.idleTTL = ttl
		}
	}
}

// WithSweepInterval sets the minimum gap between two eviction passes.
func WithSweepInterval(interval time.Duration) Option {
	return func(s *InMemoryWindowStore) {
		if interval > 0 {
			s.sweepInterval = interval
		}
	}
}

// NewInMemoryWindowStore creates a new in-memory window store.
func NewInMemoryWindowStore(opts ...Option) *InMemoryWindowStore {
	s := &InMemoryWindowStore{
		windows:       make(map[string]*models.WindowState),
		idleTTL:       DefaultIdleTTL,
		sweepInterval: DefaultSweepInterval,
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.lastSweep = s.now()
	return s
}

// Allow counts one request for key against a fixed window of the given length.
// A rejected request leaves the counter untouched but still refreshes the
// client's last-seen time.
func (s *InMemoryWindowStore) Allow(_ context.Context, key string, limit int, window time.Duration) (*models.RateLimitResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	w, ok := s.windows[key]
	if !ok || w.Expired(now) {
		w = &models.WindowState{Count: 1, ResetAt: now.Add(window), LastSeenAt: now}
		s.windows[key] = w
		return &models.RateLimitResult{
			Allowed:   true,
			Limit:     limit,
			Remaining: remaining(limit, w.Count),
			ResetAt:   w.ResetAt,
		}, nil
	}

	w.LastSeenAt = now
	if w.Count >= limit {
		return &models.RateLimitResult{
			Allowed:    false,
			Limit:      limit,
			Remaining:  0,
			ResetAt:    w.ResetAt,
			RetryAfter: models.RetryAfterSeconds(now, w.ResetAt),
		}, nil
	}

	w.Count++
	return &models.RateLimitResult{
		Allowed:   true,
		Limit:     limit,
		Remaining: remaining(limit, w.Count),
		ResetAt:   w.ResetAt,
	}, nil
}

// EvictIdle removes clients idle longer than the idle TTL. It is meant to be
// called on every request and returns immediately until the sweep interval has
// passed since the previous pass. It returns the number of evicted clients.
func (s *InMemoryWindowStore) EvictIdle(_ context.Context) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if now.Sub(s.lastSweep) < s.sweepInterval {
		return 0
	}
	s.lastSweep = now

	evicted := 0
	for key, w := range s.windows {
		if w.IdleSince(now, s.idleTTL) {
			delete(s.windows, key)
			evicted++
		}
	}
	return evicted
}

// Len returns the number of tracked clients.
func (s *InMemoryWindowStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.windows)
}

func remaining(limit, count int) int {
	if r := limit - count; r > 0 {
		return r
	}
	return 0
}
