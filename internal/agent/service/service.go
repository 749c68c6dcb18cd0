package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"

	"flightagent/internal/agent/llm"
	"flightagent/internal/agent/metrics"
	"flightagent/internal/agent/models"
	"flightagent/internal/agent/parser"
	dErrors "flightagent/pkg/domain-errors"
	"flightagent/pkg/requestcontext"
)

// DefaultCacheTTL is how long a generated response is replayed.
const DefaultCacheTTL = 10 * time.Minute

// UpstreamFailureMessage is the error text returned with a 502.
const UpstreamFailureMessage = "Error communicating with AI service"

// Outcome tells the caller how a response was produced.
type Outcome struct {
	CacheHit bool
	Mock     bool
}

// Service runs the agent pipeline: cache lookup, prompt, LLM call, parse and
// cache store. Without a completer it serves a labelled mock plan instead of
// calling upstream.
type Service struct {
	cache     ResponseCache
	prompts   PromptBuilder
	completer Completer
	metrics   *metrics.Metrics
	logger    *slog.Logger
	cacheTTL  time.Duration
	flights   singleflight.Group
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithCompleter enables live mode. A nil completer keeps mock mode.
func WithCompleter(c Completer) Option {
	return func(s *Service) {
		s.completer = c
	}
}

func WithCacheTTL(ttl time.Duration) Option {
	return func(s *Service) {
		if ttl > 0 {
			s.cacheTTL = ttl
		}
	}
}

func New(cache ResponseCache, prompts PromptBuilder, opts ...Option) (*Service, error) {
	if cache == nil {
		return nil, errors.New("response cache is required")
	}
	if prompts == nil {
		return nil, errors.New("prompt builder is required")
	}

	svc := &Service{
		cache:    cache,
		prompts:  prompts,
		logger:   slog.Default(),
		cacheTTL: DefaultCacheTTL,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// MockMode reports whether responses are placeholders.
func (s *Service) MockMode() bool {
	return s.completer == nil
}

// CacheSize returns the number of cached responses.
func (s *Service) CacheSize() int {
	return s.cache.Len()
}

// Plan returns the agent response for req, from cache when possible.
// Concurrent misses for the same fingerprint share one upstream call.
func (s *Service) Plan(ctx context.Context, req models.AgentRequest) (models.AgentResponse, Outcome, error) {
	key, err := req.Fingerprint()
	if err != nil {
		s.metrics.IncrementRequests(metrics.OutcomeInternalError)
		return models.AgentResponse{}, Outcome{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to fingerprint request")
	}

	if cached, ok := s.cache.Get(key); ok {
		s.metrics.IncrementRequests(metrics.OutcomeCacheHit)
		return cached, Outcome{CacheHit: true, Mock: s.MockMode()}, nil
	}

	v, err, shared := s.flights.Do(key, func() (any, error) {
		// A leader that finished between the lookup above and Do has already
		// stored its result.
		if cached, ok := s.cache.Peek(key); ok {
			s.metrics.IncrementRequests(metrics.OutcomeCacheHit)
			return flight{resp: cached, hit: true}, nil
		}
		// Detached so one caller going away does not fail the others.
		resp, err := s.generate(context.WithoutCancel(ctx), key, req)
		return flight{resp: resp}, err
	})
	if shared {
		s.metrics.IncrementCoalesced()
	}
	if err != nil {
		return models.AgentResponse{}, Outcome{}, err
	}
	f := v.(flight)
	return f.resp, Outcome{CacheHit: f.hit, Mock: s.MockMode()}, nil
}

// flight is the shared result of one singleflight call.
type flight struct {
	resp models.AgentResponse
	hit  bool
}

func (s *Service) generate(ctx context.Context, key string, req models.AgentRequest) (models.AgentResponse, error) {
	requestID := requestcontext.RequestID(ctx)

	if s.MockMode() {
		resp := MockResponse(req.Query)
		s.cache.Set(key, resp, s.cacheTTL)
		s.metrics.IncrementRequests(metrics.OutcomeMock)
		s.logger.DebugContext(ctx, "served mock plan", "request_id", requestID)
		return resp, nil
	}

	messages := s.prompts.Build(ctx, req.Query, req.Context)
	raw, err := s.completer.Complete(ctx, messages)
	if err != nil {
		return models.AgentResponse{}, s.upstreamFailure(ctx, err)
	}

	result := parser.Parse(raw)
	resp, err := result.Response()
	if err != nil {
		s.metrics.IncrementRequests(metrics.OutcomeUnprocessable)
		s.logger.WarnContext(ctx, "llm returned unprocessable plan",
			"request_id", requestID,
			"error", result.PlanErr,
			"plan_excerpt", excerpt(result.RawPlan, 200),
		)
		return models.AgentResponse{}, err
	}
	if result.PlanState == parser.PlanAbsent {
		s.logger.InfoContext(ctx, "llm reply had no plan section", "request_id", requestID)
	}

	s.cache.Set(key, resp, s.cacheTTL)
	s.metrics.IncrementRequests(metrics.OutcomeGenerated)
	s.metrics.ObservePlanSteps(len(resp.Steps()))
	return resp, nil
}

func (s *Service) upstreamFailure(ctx context.Context, err error) error {
	ue, ok := llm.AsUpstreamError(err)
	if !ok {
		s.metrics.IncrementRequests(metrics.OutcomeInternalError)
		s.logger.ErrorContext(ctx, "llm call failed", "request_id", requestcontext.RequestID(ctx), "error", err)
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to call AI service")
	}

	s.metrics.IncrementRequests(metrics.OutcomeUpstreamError)
	s.logger.ErrorContext(ctx, "llm upstream failure",
		"request_id", requestcontext.RequestID(ctx),
		"category", ue.Category,
		"upstream_status", ue.StatusCode,
		"error", err,
	)
	return dErrors.Wrap(err, dErrors.CodeUpstream, UpstreamFailureMessage).WithDetails(ue.Details())
}

// MockResponse is the placeholder served when no credential is configured.
func MockResponse(query string) models.AgentResponse {
	return models.AgentResponse{
		Thinking: fmt.Sprintf("[MOCK] No AI credential is configured, so this is a placeholder plan for: %q", query),
		Plan: models.Plan{
			"mock": true,
			"steps": []any{
				map[string]any{
					"action":      "generate_search_queries",
					"parameters":  map[string]any{"query": query},
					"description": "Derive search queries from the request",
				},
				map[string]any{
					"action":      "search_flights",
					"parameters":  map[string]any{"sites": []any{"google_flights", "kayak"}},
					"description": "Search flight listing sites",
				},
				map[string]any{
					"action":      "sort_results",
					"parameters":  map[string]any{"by": "price", "order": "asc"},
					"description": "Sort results by price",
				},
				map[string]any{
					"action":      "summarize_results",
					"parameters":  map[string]any{"top": 3},
					"description": "Summarize the best options",
				},
			},
		},
	}
}

func excerpt(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
