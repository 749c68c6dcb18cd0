package service

//go:generate mockgen -source=interfaces.go -destination=mocks/mocks.go -package=mocks Completer,ResponseCache,PromptBuilder

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"flightagent/internal/agent/cache"
	"flightagent/internal/agent/llm"
	"flightagent/internal/agent/metrics"
	"flightagent/internal/agent/models"
	"flightagent/internal/agent/prompt"
	"flightagent/internal/agent/service/mocks"
	dErrors "flightagent/pkg/domain-errors"
)

const wellFormedReply = `<thinking>Search JFK to LAX.</thinking><plan>{"steps":[{"action":"search_flights","parameters":{"origin":"JFK"}}]}</plan>`

type ServiceSuite struct {
	suite.Suite
	ctx           context.Context
	ctrl          *gomock.Controller
	mockCompleter *mocks.MockCompleter
	prompts       *prompt.Builder
	now           time.Time
	clockMu       sync.Mutex
	cache         *cache.ResponseCache
	metrics       *metrics.Metrics
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupSuite() {
	s.ctx = context.Background()
	b, err := prompt.New()
	s.Require().NoError(err)
	s.prompts = b
}

func (s *ServiceSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.mockCompleter = mocks.NewMockCompleter(s.ctrl)
	s.now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s.metrics = metrics.New(prometheus.NewRegistry())
	s.cache = cache.New(cache.WithClock(s.clock), cache.WithMetrics(s.metrics))
}

func (s *ServiceSuite) TearDownTest() {
	s.ctrl.Finish()
}

func (s *ServiceSuite) clock() time.Time {
	s.clockMu.Lock()
	defer s.clockMu.Unlock()
	return s.now
}

func (s *ServiceSuite) advance(d time.Duration) {
	s.clockMu.Lock()
	defer s.clockMu.Unlock()
	s.now = s.now.Add(d)
}

func (s *ServiceSuite) newService(opts ...Option) *Service {
	opts = append([]Option{WithMetrics(s.metrics)}, opts...)
	svc, err := New(s.cache, s.prompts, opts...)
	s.Require().NoError(err)
	return svc
}

func (s *ServiceSuite) TestNew() {
	_, err := New(nil, s.prompts)
	s.Error(err)
	_, err = New(s.cache, nil)
	s.Error(err)
}

func (s *ServiceSuite) TestPlan_MissThenHit() {
	svc := s.newService(WithCompleter(s.mockCompleter))
	req := models.AgentRequest{Query: "Find flights from NYC to LA"}

	s.mockCompleter.EXPECT().Complete(gomock.Any(), gomock.Any()).Return(wellFormedReply, nil).Times(1)

	first, outcome, err := svc.Plan(s.ctx, req)
	s.Require().NoError(err)
	s.False(outcome.CacheHit)
	s.Equal("Search JFK to LAX.", first.Thinking)

	second, outcome, err := svc.Plan(s.ctx, req)
	s.Require().NoError(err)
	s.True(outcome.CacheHit)
	s.Equal(first, second)
	s.Equal(1, svc.CacheSize())
	s.Equal(float64(1), promtest.ToFloat64(s.metrics.CacheHits))
}

func (s *ServiceSuite) TestPlan_ExpiredEntryCallsUpstreamAgain() {
	svc := s.newService(WithCompleter(s.mockCompleter), WithCacheTTL(time.Minute))
	req := models.AgentRequest{Query: "Find flights from NYC to LA"}

	s.mockCompleter.EXPECT().Complete(gomock.Any(), gomock.Any()).Return(wellFormedReply, nil).Times(2)

	_, _, err := svc.Plan(s.ctx, req)
	s.Require().NoError(err)

	s.advance(time.Minute + time.Millisecond)
	_, outcome, err := svc.Plan(s.ctx, req)
	s.Require().NoError(err)
	s.False(outcome.CacheHit)
}

func (s *ServiceSuite) TestPlan_PassesBuiltPrompt() {
	svc := s.newService(WithCompleter(s.mockCompleter))
	rc := &models.RequestContext{UserFeedback: "only nonstop"}
	want := s.prompts.Build(s.ctx, "NYC to LA", rc)

	s.mockCompleter.EXPECT().Complete(gomock.Any(), want).Return(wellFormedReply, nil)

	_, _, err := svc.Plan(s.ctx, models.AgentRequest{Query: "NYC to LA", Context: rc})
	s.Require().NoError(err)
}

func (s *ServiceSuite) TestPlan_MockMode() {
	svc := s.newService()
	s.True(svc.MockMode())

	resp, outcome, err := svc.Plan(s.ctx, models.AgentRequest{Query: "Find flights from NYC to LA"})
	s.Require().NoError(err)
	s.True(outcome.Mock)
	s.False(outcome.CacheHit)
	s.Contains(resp.Thinking, "[MOCK]")
	mockPlan, ok := resp.Plan.(models.Plan)
	s.Require().True(ok)
	s.Equal(true, mockPlan["mock"])

	steps := resp.Steps()
	s.Require().NotEmpty(steps)
	s.Equal("generate_search_queries", steps[0].Action)

	_, outcome, err = svc.Plan(s.ctx, models.AgentRequest{Query: "Find flights from NYC to LA"})
	s.Require().NoError(err)
	s.True(outcome.CacheHit)
}

func (s *ServiceSuite) TestPlan_UpstreamFailure() {
	svc := s.newService(WithCompleter(s.mockCompleter))
	upstream := &llm.UpstreamError{Category: llm.ErrorStatus, StatusCode: http.StatusServiceUnavailable, Body: "overloaded"}

	s.mockCompleter.EXPECT().Complete(gomock.Any(), gomock.Any()).Return("", upstream)

	_, _, err := svc.Plan(s.ctx, models.AgentRequest{Query: "q"})
	s.Require().Error(err)
	de, ok := dErrors.As(err)
	s.Require().True(ok)
	s.Equal(dErrors.CodeUpstream, de.Code)
	s.Equal(UpstreamFailureMessage, de.Message)
	s.Equal(http.StatusServiceUnavailable, de.Details["upstream_status"])
	s.Equal(0, svc.CacheSize(), "failures are not cached")
}

func (s *ServiceSuite) TestPlan_UnexpectedCompleterError() {
	svc := s.newService(WithCompleter(s.mockCompleter))
	s.mockCompleter.EXPECT().Complete(gomock.Any(), gomock.Any()).Return("", errors.New("boom"))

	_, _, err := svc.Plan(s.ctx, models.AgentRequest{Query: "q"})
	s.True(dErrors.HasCode(err, dErrors.CodeInternal))
}

func (s *ServiceSuite) TestPlan_UnprocessablePlanNotCached() {
	svc := s.newService(WithCompleter(s.mockCompleter))
	s.mockCompleter.EXPECT().Complete(gomock.Any(), gomock.Any()).Return(`<plan>{"steps": [</plan>`, nil).Times(2)

	for range 2 {
		_, _, err := svc.Plan(s.ctx, models.AgentRequest{Query: "q"})
		s.True(dErrors.HasCode(err, dErrors.CodeUnprocessablePlan))
	}
	s.Equal(0, svc.CacheSize())
}

func (s *ServiceSuite) TestPlan_MissingPlanIsCachedAsNull() {
	svc := s.newService(WithCompleter(s.mockCompleter))
	s.mockCompleter.EXPECT().Complete(gomock.Any(), gomock.Any()).Return("<thinking>need a date</thinking>", nil)

	resp, _, err := svc.Plan(s.ctx, models.AgentRequest{Query: "q"})
	s.Require().NoError(err)
	s.Nil(resp.Plan)
	s.Equal("need a date", resp.Thinking)
	s.Equal(1, svc.CacheSize())
}

func (s *ServiceSuite) TestPlan_ConcurrentMissesShareOneCall() {
	svc := s.newService(WithCompleter(s.mockCompleter))
	release := make(chan struct{})
	started := make(chan struct{})

	s.mockCompleter.EXPECT().Complete(gomock.Any(), gomock.Any()).
		DoAndReturn(func(context.Context, []models.Message) (string, error) {
			close(started)
			<-release
			return wellFormedReply, nil
		}).Times(1)

	req := models.AgentRequest{Query: "Find flights from NYC to LA"}
	var wg sync.WaitGroup
	wg.Go(func() {
		_, _, err := svc.Plan(s.ctx, req)
		s.NoError(err)
	})
	<-started
	for range 4 {
		wg.Go(func() {
			_, _, err := svc.Plan(s.ctx, req)
			s.NoError(err)
		})
	}
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()
}

func (s *ServiceSuite) TestPlan_CacheLookupBeforePrompt() {
	mockCache := mocks.NewMockResponseCache(s.ctrl)
	mockPrompts := mocks.NewMockPromptBuilder(s.ctrl)
	svc, err := New(mockCache, mockPrompts, WithCompleter(s.mockCompleter))
	s.Require().NoError(err)

	cached := models.AgentResponse{Thinking: "cached"}
	mockCache.EXPECT().Get(gomock.Any()).Return(cached, true)

	resp, outcome, err := svc.Plan(s.ctx, models.AgentRequest{Query: "q"})
	s.Require().NoError(err)
	s.True(outcome.CacheHit)
	s.Equal(cached, resp)
}

func (s *ServiceSuite) TestPlan_LateHitInsideFlightSkipsUpstream() {
	mockCache := mocks.NewMockResponseCache(s.ctrl)
	mockPrompts := mocks.NewMockPromptBuilder(s.ctrl)
	svc, err := New(mockCache, mockPrompts, WithCompleter(s.mockCompleter))
	s.Require().NoError(err)

	stored := models.AgentResponse{Thinking: "stored by the previous leader"}
	gomock.InOrder(
		mockCache.EXPECT().Get(gomock.Any()).Return(models.AgentResponse{}, false),
		mockCache.EXPECT().Peek(gomock.Any()).Return(stored, true),
	)
	mockPrompts.EXPECT().Build(gomock.Any(), gomock.Any(), gomock.Any()).Times(0)
	s.mockCompleter.EXPECT().Complete(gomock.Any(), gomock.Any()).Times(0)

	resp, outcome, err := svc.Plan(s.ctx, models.AgentRequest{Query: "q"})
	s.Require().NoError(err)
	s.True(outcome.CacheHit)
	s.Equal(stored, resp)
}
