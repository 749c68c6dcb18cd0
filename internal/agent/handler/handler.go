package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"flightagent/internal/agent/models"
	"flightagent/internal/agent/service"
	"flightagent/pkg/platform/httputil"
	"flightagent/pkg/requestcontext"
)

// HeaderCache marks whether a response was replayed from the cache.
const HeaderCache = "X-Cache"

// Service defines the interface for agent operations.
type Service interface {
	Plan(ctx context.Context, req models.AgentRequest) (models.AgentResponse, service.Outcome, error)
	MockMode() bool
	CacheSize() int
}

// RateLimitStats reports how many clients the limiter tracks.
type RateLimitStats interface {
	ActiveClients() int
}

// Handler wires agent endpoints to the agent service.
type Handler struct {
	service Service
	limits  RateLimitStats
	version string
	logger  *slog.Logger
}

// New constructs an agent handler with its dependencies.
func New(service Service, limits RateLimitStats, version string, logger *slog.Logger) *Handler {
	return &Handler{
		service: service,
		limits:  limits,
		version: version,
		logger:  logger,
	}
}

// Register mounts agent endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Get("/api/health", h.HandleHealth)
	r.Post("/api/agent", h.HandleAgent)
}

// HandleAgent handles POST /api/agent requests.
func (h *Handler) HandleAgent(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	start := time.Now()

	req, ok := httputil.DecodeAndPrepare[models.AgentRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	resp, outcome, err := h.service.Plan(ctx, *req)
	if err != nil {
		h.logger.ErrorContext(ctx, "agent request failed",
			"request_id", requestID,
			"error", err,
			"duration_ms", time.Since(start).Milliseconds(),
		)
		httputil.WriteError(w, err)
		return
	}

	cacheStatus := "MISS"
	if outcome.CacheHit {
		cacheStatus = "HIT"
	}
	h.logger.InfoContext(ctx, "agent plan served",
		"request_id", requestID,
		"cache", cacheStatus,
		"mock", outcome.Mock,
		"steps", len(resp.Steps()),
		"duration_ms", time.Since(start).Milliseconds(),
	)

	w.Header().Set(HeaderCache, cacheStatus)
	httputil.WriteJSON(w, http.StatusOK, resp)
}

// HandleHealth handles GET /api/health requests. It never touches the pipeline.
func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	mode := "live"
	if h.service.MockMode() {
		mode = "mock"
	}
	rateLimits := 0
	if h.limits != nil {
		rateLimits = h.limits.ActiveClients()
	}
	httputil.WriteJSON(w, http.StatusOK, models.HealthResponse{
		Status:     "ok",
		Timestamp:  requestcontext.Now(r.Context()).UTC().Format(time.RFC3339),
		Version:    h.version,
		Mode:       mode,
		CacheSize:  h.service.CacheSize(),
		RateLimits: rateLimits,
	})
}
