package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"flightagent/internal/ratelimit/models"
	dErrors "flightagent/pkg/domain-errors"
	"flightagent/pkg/platform/httputil"
	"flightagent/pkg/requestcontext"
)

// RateLimitExceededMessage is the error text returned with a 429.
const RateLimitExceededMessage = "Rate limit exceeded. Please try again later."

type RateLimiter interface {
	CheckClient(ctx context.Context, clientID string) (*models.RateLimitResult, error)
}

type Middleware struct {
	limiter  RateLimiter
	logger   *slog.Logger
	disabled bool
}

type Option func(*Middleware)

// WithDisabled lets every request through without consulting the limiter.
func WithDisabled(disabled bool) Option {
	return func(m *Middleware) {
		m.disabled = disabled
	}
}

func New(limiter RateLimiter, logger *slog.Logger, opts ...Option) *Middleware {
	m := &Middleware{
		limiter: limiter,
		logger:  logger,
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.disabled {
		logger.Info("rate limiting disabled")
	}
	return m
}

// RateLimit gates every request on the client's fixed window. It relies on the
// client identifier placed in the context by the metadata middleware.
func (m *Middleware) RateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.disabled {
			next.ServeHTTP(w, r)
			return
		}

		ctx := r.Context()
		client := requestcontext.ClientIP(ctx)

		result, err := m.limiter.CheckClient(ctx, client)
		if err != nil {
			m.logger.ErrorContext(ctx, "failed to check client rate limit",
				"request_id", requestcontext.RequestID(ctx),
				"client", client,
				"error", err,
			)
			next.ServeHTTP(w, r)
			return
		}

		// Add headers regardless of outcome
		addRateLimitHeaders(w, result)

		if !result.Allowed {
			writeRateLimitExceeded(w, result)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func addRateLimitHeaders(w http.ResponseWriter, result *models.RateLimitResult) {
	if result == nil {
		return
	}
	w.Header().Set("X-RateLimit-Limit", strconv.Itoa(result.Limit))
	w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
	w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(result.ResetAt.Unix(), 10))
}

func writeRateLimitExceeded(w http.ResponseWriter, result *models.RateLimitResult) {
	w.Header().Set("Retry-After", strconv.Itoa(result.RetryAfter))
	httputil.WriteError(w, dErrors.New(dErrors.CodeRateLimited, RateLimitExceededMessage).
		WithDetails(map[string]any{
			"limit":       result.Limit,
			"retry_after": result.RetryAfter,
		}))
}
