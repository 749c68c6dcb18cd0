package service

import (
	"context"
	"time"

	"flightagent/internal/ratelimit/models"
)

// WindowStore counts requests per client in fixed windows.
type WindowStore interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (*models.RateLimitResult, error)
	EvictIdle(ctx context.Context) int
	Len() int
}

// Metrics records rate limit decisions. A nil value disables recording.
type Metrics interface {
	IncrementAllowed()
	IncrementRejected()
	AddEvicted(n int)
	SetTrackedClients(n int)
}
