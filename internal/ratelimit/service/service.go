package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"flightagent/internal/ratelimit/models"
	dErrors "flightagent/pkg/domain-errors"
	"flightagent/pkg/requestcontext"
)

// Config holds the per-client quota.
type Config struct {
	RequestsPerWindow int
	Window            time.Duration
}

// DefaultConfig allows 20 requests per minute per client.
func DefaultConfig() *Config {
	return &Config{RequestsPerWindow: 20, Window: time.Minute}
}

type Service struct {
	windows WindowStore
	metrics Metrics
	logger  *slog.Logger
	config  *Config
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithConfig(cfg *Config) Option {
	return func(s *Service) {
		if cfg != nil {
			s.config = cfg
		}
	}
}

func WithMetrics(m Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func New(windows WindowStore, opts ...Option) (*Service, error) {
	if windows == nil {
		return nil, errors.New("window store is required")
	}

	svc := &Service{
		windows: windows,
		config:  DefaultConfig(),
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(svc)
	}
	if svc.config.RequestsPerWindow <= 0 || svc.config.Window <= 0 {
		return nil, errors.New("rate limit config requires a positive quota and window")
	}

	return svc, nil
}

// CheckClient runs the idle sweep and then counts one request for clientID.
// A rejection is reported through the result, not as an error.
func (s *Service) CheckClient(ctx context.Context, clientID string) (*models.RateLimitResult, error) {
	if evicted := s.windows.EvictIdle(ctx); evicted > 0 {
		if s.metrics != nil {
			s.metrics.AddEvicted(evicted)
		}
		s.logger.DebugContext(ctx, "evicted idle rate limit windows", "count", evicted)
	}

	result, err := s.windows.Allow(ctx, clientID, s.config.RequestsPerWindow, s.config.Window)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to check rate limit")
	}

	if s.metrics != nil {
		s.metrics.SetTrackedClients(s.windows.Len())
		if result.Allowed {
			s.metrics.IncrementAllowed()
		} else {
			s.metrics.IncrementRejected()
		}
	}

	if !result.Allowed {
		s.logger.InfoContext(ctx, "rate limit exceeded",
			"request_id", requestcontext.RequestID(ctx),
			"client", clientID,
			"limit", s.config.RequestsPerWindow,
			"window_seconds", int(s.config.Window.Seconds()),
			"retry_after", result.RetryAfter,
		)
	}

	return result, nil
}

// ActiveClients returns the number of clients with live window state.
func (s *Service) ActiveClients() int {
	return s.windows.Len()
}
