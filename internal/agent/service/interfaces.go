package service

import (
	"context"
	"time"

	"flightagent/internal/agent/models"
)

// Completer sends chat messages to the LLM and returns its raw reply.
type Completer interface {
	Complete(ctx context.Context, messages []models.Message) (string, error)
}

// ResponseCache stores agent responses by request fingerprint.
type ResponseCache interface {
	Get(key string) (models.AgentResponse, bool)
	Peek(key string) (models.AgentResponse, bool)
	Set(key string, value models.AgentResponse, ttl time.Duration)
	Len() int
}

// PromptBuilder assembles the messages for a request.
type PromptBuilder interface {
	Build(ctx context.Context, query string, rc *models.RequestContext) []models.Message
}
