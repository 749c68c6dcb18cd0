// Package llm calls an OpenAI-compatible chat completions endpoint.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"flightagent/internal/agent/models"
)

// maxErrorBodyBytes bounds how much of a failed response is kept for details.
const maxErrorBodyBytes = 64 << 10

// Metrics records upstream calls. A nil value disables recording.
type Metrics interface {
	ObserveCall(outcome string, elapsed time.Duration)
}

// Config configures the upstream call.
type Config struct {
	APIKey      string
	BaseURL     string
	Model       string
	Timeout     time.Duration
	Temperature float64
	MaxTokens   int
}

// Client performs one chat completion per call and never retries.
type Client struct {
	config     Config
	httpClient *http.Client
	api        *openai.Client
	tracer     trace.Tracer
	metrics    Metrics
}

type Option func(*Client)

// WithHTTPClient replaces the default client. Its timeout is left untouched.
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		if c != nil {
			cl.httpClient = c
		}
	}
}

func WithMetrics(m Metrics) Option {
	return func(cl *Client) {
		cl.metrics = m
	}
}

func New(cfg Config, opts ...Option) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("llm api key is required")
	}
	if cfg.BaseURL == "" {
		return nil, errors.New("llm base url is required")
	}
	if cfg.Model == "" {
		return nil, errors.New("llm model is required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")

	c := &Client{
		config:     cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		tracer:     otel.Tracer("flightagent/internal/agent/llm"),
	}
	for _, opt := range opts {
		opt(c)
	}

	// Copy so a caller-supplied client keeps its own transport.
	hc := *c.httpClient
	hc.Transport = errorBodyTransport{base: hc.Transport}

	apiCfg := openai.DefaultConfig(cfg.APIKey)
	apiCfg.BaseURL = cfg.BaseURL
	apiCfg.HTTPClient = &hc
	c.api = openai.NewClientWithConfig(apiCfg)
	return c, nil
}

// Complete sends messages upstream and returns the first choice's content.
func (c *Client) Complete(ctx context.Context, messages []models.Message) (content string, err error) {
	ctx, span := c.tracer.Start(ctx, "llm.Complete", trace.WithSpanKind(trace.SpanKindClient))
	span.SetAttributes(
		attribute.String("llm.model", c.config.Model),
		attribute.Int("llm.messages", len(messages)),
	)
	start := time.Now()
	defer func() {
		outcome := "ok"
		if ue, ok := AsUpstreamError(err); ok {
			outcome = string(ue.Category)
			if ue.StatusCode != 0 {
				span.SetAttributes(attribute.Int("http.response.status_code", ue.StatusCode))
			}
			span.RecordError(err)
			span.SetStatus(codes.Error, ue.Error())
		} else if err != nil {
			outcome = "error"
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		if c.metrics != nil {
			c.metrics.ObserveCall(outcome, time.Since(start))
		}
		span.End()
	}()

	chatMessages := make([]openai.ChatCompletionMessage, 0, len(messages))
	for _, m := range messages {
		chatMessages = append(chatMessages, openai.ChatCompletionMessage{Role: m.Role, Content: m.Content})
	}

	captured := &errorBody{}
	resp, err := c.api.CreateChatCompletion(context.WithValue(ctx, errorBodyKey{}, captured), openai.ChatCompletionRequest{
		Model:       c.config.Model,
		Messages:    chatMessages,
		Temperature: float32(c.config.Temperature),
		MaxTokens:   c.config.MaxTokens,
	})
	if err != nil {
		return "", classify(err, captured.data)
	}
	if len(resp.Choices) == 0 {
		return "", &UpstreamError{Category: ErrorBadData, Err: errors.New("response has no choices")}
	}
	return resp.Choices[0].Message.Content, nil
}

// classify maps SDK errors onto the upstream error categories.
func classify(err error, body []byte) *UpstreamError {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return &UpstreamError{Category: ErrorStatus, StatusCode: apiErr.HTTPStatusCode, Body: decodeBody(body), Err: err}
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) && reqErr.HTTPStatusCode != 0 {
		return &UpstreamError{Category: ErrorStatus, StatusCode: reqErr.HTTPStatusCode, Body: decodeBody(body), Err: err}
	}
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) {
		return &UpstreamError{Category: ErrorBadData, Err: err}
	}
	return transportError(err)
}

type errorBodyKey struct{}

type errorBody struct {
	data []byte
}

// errorBodyTransport keeps a copy of failed response bodies so they can be
// reported raw when the SDK cannot decode them.
type errorBodyTransport struct {
	base http.RoundTripper
}

func (t errorBodyTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	base := t.base
	if base == nil {
		base = http.DefaultTransport
	}
	resp, err := base.RoundTrip(req)
	if err != nil || resp.StatusCode < http.StatusBadRequest {
		return resp, err
	}
	holder, ok := req.Context().Value(errorBodyKey{}).(*errorBody)
	if !ok {
		return resp, nil
	}
	data, readErr := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
	_ = resp.Body.Close()
	if readErr != nil {
		return nil, readErr
	}
	holder.data = data
	resp.Body = io.NopCloser(bytes.NewReader(data))
	return resp, nil
}

// decodeBody returns the JSON value of body when it parses, else the trimmed text.
func decodeBody(body []byte) any {
	if len(bytes.TrimSpace(body)) == 0 {
		return nil
	}
	var v any
	if err := json.Unmarshal(body, &v); err == nil {
		return v
	}
	return strings.TrimSpace(string(body))
}
