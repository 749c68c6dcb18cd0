package cache

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"flightagent/internal/agent/models"
)

const testTTL = 10 * time.Minute

type ResponseCacheSuite struct {
	suite.Suite
	now   time.Time
	mu    sync.Mutex
	cache *ResponseCache
}

func TestResponseCacheSuite(t *testing.T) {
	suite.Run(t, new(ResponseCacheSuite))
}

func (s *ResponseCacheSuite) clock() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.now
}

func (s *ResponseCacheSuite) advance(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = s.now.Add(d)
}

func (s *ResponseCacheSuite) SetupTest() {
	s.now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s.cache = New(WithClock(s.clock))
}

func sample(thinking string) models.AgentResponse {
	return models.AgentResponse{Thinking: thinking, Plan: models.Plan{"steps": []any{}}}
}

func (s *ResponseCacheSuite) TestGetSet() {
	s.Run("absent key misses", func() {
		_, ok := s.cache.Get("nope")
		s.False(ok)
	})

	s.Run("stored value is returned", func() {
		s.cache.Set("k", sample("first"), testTTL)
		got, ok := s.cache.Get("k")
		s.True(ok)
		s.Equal("first", got.Thinking)
	})

	s.Run("set overwrites unconditionally", func() {
		s.cache.Set("k", sample("second"), testTTL)
		got, ok := s.cache.Get("k")
		s.True(ok)
		s.Equal("second", got.Thinking)
		s.Equal(1, s.cache.Len())
	})
}

func (s *ResponseCacheSuite) TestLazyExpiry() {
	s.cache.Set("k", sample("t"), testTTL)

	s.Run("live at the expiry instant", func() {
		s.advance(testTTL)
		_, ok := s.cache.Get("k")
		s.True(ok)
	})

	s.Run("expired record deleted on read", func() {
		s.advance(time.Millisecond)
		_, ok := s.cache.Get("k")
		s.False(ok)
		s.Equal(0, s.cache.Len())
	})
}

func (s *ResponseCacheSuite) TestPeek() {
	s.cache.Set("k", sample("peeked"), testTTL)

	got, ok := s.cache.Peek("k")
	s.True(ok)
	s.Equal("peeked", got.Thinking)

	s.advance(testTTL + time.Second)
	_, ok = s.cache.Peek("k")
	s.False(ok)
	s.Equal(1, s.cache.Len(), "peek leaves expired records for the sweeper")
}

func (s *ResponseCacheSuite) TestSweep() {
	s.cache.Set("short", sample("a"), time.Minute)
	s.cache.Set("long", sample("b"), testTTL)

	s.Equal(0, s.cache.Sweep(s.clock()))
	s.Equal(1, s.cache.Sweep(s.clock().Add(2*time.Minute)))
	s.Equal(1, s.cache.Len())
}

func (s *ResponseCacheSuite) TestJanitorStopsOnCancel() {
	c := New()
	c.Set("gone", sample("x"), time.Nanosecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := c.StartJanitor(ctx, time.Millisecond)

	s.Eventually(func() bool { return c.Len() == 0 }, time.Second, time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		s.Fail("janitor did not stop")
	}
}

func (s *ResponseCacheSuite) TestConcurrentAccess() {
	var wg sync.WaitGroup
	for i := range 50 {
		wg.Go(func() {
			key := []string{"a", "b", "c"}[i%3]
			s.cache.Set(key, sample(key), testTTL)
			_, _ = s.cache.Get(key)
			_ = s.cache.Len()
		})
	}
	wg.Wait()
	s.Equal(3, s.cache.Len())
}
