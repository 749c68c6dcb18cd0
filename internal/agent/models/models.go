package models

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"

	dErrors "flightagent/pkg/domain-errors"
)

// MaxQueryLength bounds the query, counted in characters after trimming.
const MaxQueryLength = 2000

// Context tasks with a dedicated prompt.
const (
	TaskHandleError = "handle_error"
	TaskSummarize   = "summarize"
)

// AgentRequest is the body of POST /api/agent.
type AgentRequest struct {
	Query   string          `json:"query"`
	Context *RequestContext `json:"context,omitempty"`
}

// RequestContext steers prompt construction. At most one branch applies:
// UserFeedback wins over Task.
type RequestContext struct {
	UserFeedback string `json:"userFeedback,omitempty"`
	Task         string `json:"task,omitempty"`
	ErrorDetails any    `json:"errorDetails,omitempty"`
	Results      []any  `json:"results,omitempty"`
}

// Normalize trims free-text fields. Implements httputil.Normalizable.
func (r *AgentRequest) Normalize() {
	if r == nil {
		return
	}
	r.Query = strings.TrimSpace(r.Query)
	if r.Context != nil {
		r.Context.UserFeedback = strings.TrimSpace(r.Context.UserFeedback)
		r.Context.Task = strings.TrimSpace(r.Context.Task)
	}
}

// Validate implements httputil.Validatable.
func (r *AgentRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	if r.Query == "" {
		return dErrors.New(dErrors.CodeValidation, "Missing required parameter: query").
			WithDetails(map[string]any{"field": "query"})
	}
	if n := utf8.RuneCountInString(r.Query); n > MaxQueryLength {
		return dErrors.New(dErrors.CodeValidation, fmt.Sprintf("query must be at most %d characters", MaxQueryLength)).
			WithDetails(map[string]any{"field": "query", "length": n})
	}
	return nil
}

// Fingerprint derives the cache key for the logical request. Struct fields
// encode in declaration order and nested maps in sorted key order, so equal
// requests always hash equally.
func (r AgentRequest) Fingerprint() (string, error) {
	payload, err := json.Marshal(struct {
		Query   string          `json:"query"`
		Context *RequestContext `json:"context"`
	}{r.Query, r.Context})
	if err != nil {
		return "", fmt.Errorf("fingerprint request: %w", err)
	}
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:]), nil
}

// Plan is a decoded plan object returned by the LLM.
type Plan map[string]any

// Step is one entry of a plan's "steps" array.
type Step struct {
	Action      string         `json:"action"`
	Parameters  map[string]any `json:"parameters,omitempty"`
	Description string         `json:"description,omitempty"`
}

// Steps returns a typed view of the plan's steps. Entries that are not
// objects are skipped; missing fields are left zero.
func (p Plan) Steps() []Step {
	raw, ok := p["steps"].([]any)
	if !ok {
		return nil
	}
	return stepList(raw)
}

func stepList(raw []any) []Step {
	steps := make([]Step, 0, len(raw))
	for _, item := range raw {
		obj, ok := item.(map[string]any)
		if !ok {
			continue
		}
		var step Step
		step.Action, _ = obj["action"].(string)
		step.Description, _ = obj["description"].(string)
		step.Parameters, _ = obj["parameters"].(map[string]any)
		steps = append(steps, step)
	}
	return steps
}

// AgentResponse is the body of a successful POST /api/agent.
type AgentResponse struct {
	Thinking string `json:"thinking"`
	// Plan is any decoded JSON value. Objects are held as Plan; nil encodes
	// as null.
	Plan any `json:"plan"`
}

// Steps returns the typed steps of an object plan, or of an array plan whose
// entries are the steps themselves.
func (r AgentResponse) Steps() []Step {
	switch p := r.Plan.(type) {
	case Plan:
		return p.Steps()
	case []any:
		return stepList(p)
	default:
		return nil
	}
}

// HealthResponse is the body of GET /api/health.
type HealthResponse struct {
	Status     string `json:"status"`
	Timestamp  string `json:"timestamp"`
	Version    string `json:"version"`
	Mode       string `json:"mode"`
	CacheSize  int    `json:"cache_size"`
	RateLimits int    `json:"rate_limits"`
}

// Message is one chat message sent to the LLM.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Chat roles.
const (
	RoleSystem = "system"
	RoleUser   = "user"
)
