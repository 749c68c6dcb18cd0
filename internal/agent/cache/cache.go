// Package cache holds agent responses in process memory, keyed by request
// fingerprint. Nothing is shared between instances or survives a restart.
package cache

import (
	"context"
	"sync"
	"time"

	"flightagent/internal/agent/models"
)

// Metrics records cache outcomes. A nil value disables recording.
type Metrics interface {
	IncrementHits()
	IncrementMisses()
	AddEvictions(n int)
	SetEntries(n int)
}

type record struct {
	value     models.AgentResponse
	expiresAt time.Time
}

// ResponseCache is a TTL map guarded by a single mutex.
type ResponseCache struct {
	mu      sync.Mutex
	records map[string]record
	now     func() time.Time
	metrics Metrics
}

type Option func(*ResponseCache)

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(c *ResponseCache) {
		if now != nil {
			c.now = now
		}
	}
}

func WithMetrics(m Metrics) Option {
	return func(c *ResponseCache) {
		c.metrics = m
	}
}

func New(opts ...Option) *ResponseCache {
	c := &ResponseCache{
		records: make(map[string]record),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get returns the live value for key. A record past its expiry is deleted and
// reported as absent.
func (c *ResponseCache) Get(key string) (models.AgentResponse, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	rec, ok := c.records[key]
	if !ok {
		c.miss()
		return models.AgentResponse{}, false
	}
	if c.now().After(rec.expiresAt) {
		delete(c.records, key)
		if c.metrics != nil {
			c.metrics.AddEvictions(1)
			c.metrics.SetEntries(len(c.records))
		}
		c.miss()
		return models.AgentResponse{}, false
	}
	if c.metrics != nil {
		c.metrics.IncrementHits()
	}
	return rec.value, true
}

// Peek is Get without recording hit or miss metrics. Expired records are
// reported missing and left for the sweeper.
func (c *ResponseCache) Peek(key string) (models.AgentResponse, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	rec, ok := c.records[key]
	if !ok || c.now().After(rec.expiresAt) {
		return models.AgentResponse{}, false
	}
	return rec.value, true
}

// Set stores value for ttl, replacing any existing record.
func (c *ResponseCache) Set(key string, value models.AgentResponse, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.records[key] = record{value: value, expiresAt: c.now().Add(ttl)}
	if c.metrics != nil {
		c.metrics.SetEntries(len(c.records))
	}
}

// Len returns the number of stored records, expired or not.
func (c *ResponseCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.records)
}

// Sweep deletes every record expired at now and returns how many were removed.
func (c *ResponseCache) Sweep(now time.Time) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for key, rec := range c.records {
		if now.After(rec.expiresAt) {
			delete(c.records, key)
			removed++
		}
	}
	if c.metrics != nil && removed > 0 {
		c.metrics.AddEvictions(removed)
		c.metrics.SetEntries(len(c.records))
	}
	return removed
}

// StartJanitor sweeps on every tick until ctx is cancelled. The returned
// channel is closed once the goroutine has exited.
func (c *ResponseCache) StartJanitor(ctx context.Context, interval time.Duration) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				c.Sweep(c.now())
			}
		}
	}()
	return done
}

func (c *ResponseCache) miss() {
	if c.metrics != nil {
		c.metrics.IncrementMisses()
	}
}
