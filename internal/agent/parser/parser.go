// Package parser extracts the reasoning and plan sections from raw LLM text.
// It is pure: the same input always yields the same Result.
package parser

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"flightagent/internal/agent/models"
	dErrors "flightagent/pkg/domain-errors"
)

const (
	thinkingOpen  = "<thinking>"
	thinkingClose = "</thinking>"
	planOpen      = "<plan>"
	planClose     = "</plan>"
)

// PlanState says what was found between the plan tags.
type PlanState int

const (
	PlanAbsent PlanState = iota
	PlanPresent
	PlanMalformed
)

func (s PlanState) String() string {
	switch s {
	case PlanPresent:
		return "present"
	case PlanMalformed:
		return "malformed"
	default:
		return "absent"
	}
}

// Result is the parsed reply.
type Result struct {
	Thinking string
	// Plan is the decoded JSON value; objects are models.Plan.
	Plan      any
	PlanState PlanState
	// PlanErr explains a PlanMalformed state.
	PlanErr error
	// RawPlan is the trimmed text between the plan tags.
	RawPlan string
}

// Response converts a Result into the response body. A malformed plan is an
// unprocessable plan error and never a silently different shape.
func (r Result) Response() (models.AgentResponse, error) {
	if r.PlanState == PlanMalformed {
		return models.AgentResponse{}, dErrors.Wrap(r.PlanErr, dErrors.CodeUnprocessablePlan, "AI service returned an unreadable plan").
			WithDetails(map[string]any{"reason": r.PlanErr.Error()})
	}
	return models.AgentResponse{Thinking: r.Thinking, Plan: r.Plan}, nil
}

// Parse extracts the first thinking and plan sections from raw.
func Parse(raw string) Result {
	var res Result
	if thinking, ok := section(raw, thinkingOpen, thinkingClose); ok {
		res.Thinking = strings.TrimSpace(thinking)
	}

	body, ok := section(raw, planOpen, planClose)
	if !ok {
		res.PlanState = PlanAbsent
		return res
	}
	res.RawPlan = strings.TrimSpace(body)

	plan, err := decodePlan(res.RawPlan)
	if err != nil {
		res.PlanState = PlanMalformed
		res.PlanErr = err
		return res
	}
	res.Plan = plan
	res.PlanState = PlanPresent
	return res
}

// section returns the text between the first open tag and the first close tag
// after it.
func section(raw, open, close string) (string, bool) {
	_, rest, ok := strings.Cut(raw, open)
	if !ok {
		return "", false
	}
	inner, _, ok := strings.Cut(rest, close)
	if !ok {
		return "", false
	}
	return inner, true
}

// decodePlan strictly decodes one JSON value. Any valid value is accepted;
// objects come back as models.Plan.
func decodePlan(text string) (any, error) {
	text = stripFence(text)
	if text == "" {
		return nil, errors.New("plan is empty")
	}

	dec := json.NewDecoder(strings.NewReader(text))
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("decode plan: %w", err)
	}
	if dec.More() {
		return nil, errors.New("decode plan: trailing data after JSON value")
	}
	if obj, ok := v.(map[string]any); ok {
		return models.Plan(obj), nil
	}
	return v, nil
}

// stripFence removes a surrounding Markdown code fence such as ```json ... ```.
func stripFence(text string) string {
	if !strings.HasPrefix(text, "```") {
		return text
	}
	body := strings.TrimPrefix(text, "```")
	if nl := strings.IndexByte(body, '\n'); nl >= 0 {
		body = body[nl+1:]
	} else {
		return text
	}
	body = strings.TrimSpace(body)
	body, ok := strings.CutSuffix(body, "```")
	if !ok {
		return text
	}
	return strings.TrimSpace(body)
}
