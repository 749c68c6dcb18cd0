package handler

//go:generate mockgen -source=handler.go -destination=mocks/mocks.go -package=mocks Service,RateLimitStats

import (
	"io"
	"log/slog"
	"net/http"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"flightagent/internal/agent/handler/mocks"
	"flightagent/internal/agent/models"
	"flightagent/internal/agent/service"
	dErrors "flightagent/pkg/domain-errors"
	"flightagent/pkg/testutil"
)

type AgentHandlerSuite struct {
	suite.Suite
}

func TestAgentHandlerSuite(t *testing.T) {
	suite.Run(t, new(AgentHandlerSuite))
}

func (s *AgentHandlerSuite) newHandler(t *testing.T) (*mocks.MockService, *mocks.MockRateLimitStats, chi.Router) {
	ctrl := gomock.NewController(t)
	mockService := mocks.NewMockService(ctrl)
	mockLimits := mocks.NewMockRateLimitStats(ctrl)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := New(mockService, mockLimits, "1.2.3", logger)

	r := chi.NewRouter()
	h.Register(r)
	return mockService, mockLimits, r
}

func (s *AgentHandlerSuite) TestHandleAgent() {
	plan := models.AgentResponse{
		Thinking: "search",
		Plan:     models.Plan{"steps": []any{map[string]any{"action": "search_flights"}}},
	}

	s.T().Run("miss returns plan with MISS header - 200", func(t *testing.T) {
		mockService, _, router := s.newHandler(t)
		mockService.EXPECT().Plan(gomock.Any(), models.AgentRequest{Query: "NYC to LA"}).
			Return(plan, service.Outcome{}, nil)

		rr := testutil.DoRequest(router, testutil.NewJSONRequest(t, http.MethodPost, "/api/agent", map[string]any{"query": "  NYC to LA  "}))

		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, "MISS", rr.Header().Get(HeaderCache))
		body := testutil.DecodeBody(t, rr)
		assert.Equal(t, "search", body["thinking"])
		assert.NotNil(t, body["plan"])
	})

	s.T().Run("hit sets HIT header - 200", func(t *testing.T) {
		mockService, _, router := s.newHandler(t)
		mockService.EXPECT().Plan(gomock.Any(), gomock.Any()).Return(plan, service.Outcome{CacheHit: true}, nil)

		rr := testutil.DoRequest(router, testutil.NewJSONRequest(t, http.MethodPost, "/api/agent", map[string]any{"query": "NYC to LA"}))

		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, "HIT", rr.Header().Get(HeaderCache))
	})

	s.T().Run("context is passed through", func(t *testing.T) {
		mockService, _, router := s.newHandler(t)
		mockService.EXPECT().Plan(gomock.Any(), models.AgentRequest{
			Query:   "NYC to LA",
			Context: &models.RequestContext{Task: models.TaskSummarize, Results: []any{map[string]any{"price": float64(120)}}},
		}).Return(plan, service.Outcome{}, nil)

		rr := testutil.DoRequest(router, testutil.NewRequestWithBody(t, http.MethodPost, "/api/agent",
			`{"query":"NYC to LA","context":{"task":"summarize","results":[{"price":120}]}}`))
		assert.Equal(t, http.StatusOK, rr.Code)
	})

	s.T().Run("missing query - 400 naming the parameter", func(t *testing.T) {
		mockService, _, router := s.newHandler(t)
		mockService.EXPECT().Plan(gomock.Any(), gomock.Any()).Times(0)

		rr := testutil.DoRequest(router, testutil.NewRequestWithBody(t, http.MethodPost, "/api/agent", `{}`))

		body := testutil.AssertErrorEnvelope(t, rr, http.StatusBadRequest)
		assert.Contains(t, body["error"], "query")
	})

	s.T().Run("invalid json - 400", func(t *testing.T) {
		mockService, _, router := s.newHandler(t)
		mockService.EXPECT().Plan(gomock.Any(), gomock.Any()).Times(0)

		rr := testutil.DoRequest(router, testutil.NewRequestWithBody(t, http.MethodPost, "/api/agent", `{bad-json`))

		assert.Equal(t, http.StatusBadRequest, rr.Code)
		assert.Equal(t, "Invalid JSON body", testutil.DecodeBody(t, rr)["error"])
	})

	s.T().Run("upstream failure - 502 with details", func(t *testing.T) {
		mockService, _, router := s.newHandler(t)
		mockService.EXPECT().Plan(gomock.Any(), gomock.Any()).Return(models.AgentResponse{}, service.Outcome{},
			dErrors.New(dErrors.CodeUpstream, service.UpstreamFailureMessage).WithDetails(map[string]any{"upstream_status": 503}))

		rr := testutil.DoRequest(router, testutil.NewJSONRequest(t, http.MethodPost, "/api/agent", map[string]any{"query": "q"}))

		assert.Equal(t, http.StatusBadGateway, rr.Code)
		body := testutil.DecodeBody(t, rr)
		assert.Equal(t, service.UpstreamFailureMessage, body["error"])
		assert.Equal(t, map[string]any{"upstream_status": float64(503)}, body["details"])
		assert.Empty(t, rr.Header().Get(HeaderCache))
	})

	s.T().Run("unprocessable plan - 500", func(t *testing.T) {
		mockService, _, router := s.newHandler(t)
		mockService.EXPECT().Plan(gomock.Any(), gomock.Any()).Return(models.AgentResponse{}, service.Outcome{},
			dErrors.New(dErrors.CodeUnprocessablePlan, "AI service returned an unreadable plan"))

		rr := testutil.DoRequest(router, testutil.NewJSONRequest(t, http.MethodPost, "/api/agent", map[string]any{"query": "q"}))
		assert.Equal(t, http.StatusInternalServerError, rr.Code)
	})
}

func (s *AgentHandlerSuite) TestHandleHealth() {
	s.T().Run("reports diagnostics without planning - 200", func(t *testing.T) {
		mockService, mockLimits, router := s.newHandler(t)
		mockService.EXPECT().Plan(gomock.Any(), gomock.Any()).Times(0)
		mockService.EXPECT().MockMode().Return(true)
		mockService.EXPECT().CacheSize().Return(4)
		mockLimits.EXPECT().ActiveClients().Return(2)

		rr := testutil.DoRequest(router, testutil.NewRequest(t, http.MethodGet, "/api/health"))

		assert.Equal(t, http.StatusOK, rr.Code)
		body := testutil.DecodeBody(t, rr)
		assert.Equal(t, "ok", body["status"])
		assert.Equal(t, "1.2.3", body["version"])
		assert.Equal(t, "mock", body["mode"])
		assert.Equal(t, float64(4), body["cache_size"])
		assert.Equal(t, float64(2), body["rate_limits"])
		assert.NotEmpty(t, body["timestamp"])
	})
}
