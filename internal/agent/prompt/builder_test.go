package prompt

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"flightagent/internal/agent/models"
)

const query = "Find flights from NYC to LA"

func newBuilder(t *testing.T) *Builder {
	t.Helper()
	b, err := New()
	require.NoError(t, err)
	return b
}

func TestNewFromYAML(t *testing.T) {
	t.Run("embedded catalogue is complete", func(t *testing.T) {
		b := newBuilder(t)
		assert.Equal(t, 1, b.catalogue.Version)
	})

	t.Run("empty catalogue rejected", func(t *testing.T) {
		_, err := NewFromYAML(nil)
		require.Error(t, err)
	})

	t.Run("missing prompt named in error", func(t *testing.T) {
		_, err := NewFromYAML([]byte("base_system: hello\n"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "summarize.system")
	})

	t.Run("invalid yaml rejected", func(t *testing.T) {
		_, err := NewFromYAML([]byte("base_system: [unterminated"))
		require.Error(t, err)
	})
}

func TestBuild(t *testing.T) {
	b := newBuilder(t)
	ctx := context.Background()
	base := b.catalogue.BaseSystem

	t.Run("no context uses base prompt", func(t *testing.T) {
		msgs := b.Build(ctx, query, nil)
		require.Len(t, msgs, 2)
		assert.Equal(t, models.RoleSystem, msgs[0].Role)
		assert.Equal(t, base, msgs[0].Content)
		assert.Equal(t, models.Message{Role: models.RoleUser, Content: query}, msgs[1])
	})

	t.Run("base prompt lists actions and output format", func(t *testing.T) {
		for _, action := range []string{"generate_search_queries", "search_flights", "filter_results", "sort_results", "compare_prices", "summarize_results", "ask_clarification"} {
			assert.Contains(t, base, action)
		}
		assert.Contains(t, base, "<thinking>")
		assert.Contains(t, base, "<plan>")
	})

	t.Run("feedback augments system and user", func(t *testing.T) {
		msgs := b.Build(ctx, query, &models.RequestContext{UserFeedback: "only nonstop"})
		require.Len(t, msgs, 2)
		assert.True(t, strings.HasPrefix(msgs[0].Content, base))
		assert.Contains(t, msgs[0].Content, "feedback")
		assert.Contains(t, msgs[1].Content, query)
		assert.Contains(t, msgs[1].Content, "only nonstop")
	})

	t.Run("feedback wins over task", func(t *testing.T) {
		fb := b.Build(ctx, query, &models.RequestContext{UserFeedback: "cheaper", Task: models.TaskSummarize})
		plain := b.Build(ctx, query, &models.RequestContext{UserFeedback: "cheaper"})
		assert.Equal(t, plain, fb)
	})

	t.Run("handle_error embeds error details", func(t *testing.T) {
		msgs := b.Build(ctx, query, &models.RequestContext{
			Task:         models.TaskHandleError,
			ErrorDetails: map[string]any{"step": "search_flights", "message": "site timed out"},
		})
		require.Len(t, msgs, 2)
		assert.True(t, strings.HasPrefix(msgs[0].Content, base))
		assert.Contains(t, msgs[0].Content, `"message": "site timed out"`)
		assert.Equal(t, query, msgs[1].Content)
	})

	t.Run("summarize uses narrower prompt and first results only", func(t *testing.T) {
		results := make([]any, 15)
		for i := range results {
			results[i] = map[string]any{"id": fmt.Sprintf("flight-%02d", i)}
		}
		msgs := b.Build(ctx, query, &models.RequestContext{Task: models.TaskSummarize, Results: results})
		require.Len(t, msgs, 2)
		assert.Equal(t, b.catalogue.Summarize.System, msgs[0].Content)
		assert.Contains(t, msgs[1].Content, "flight-09")
		assert.NotContains(t, msgs[1].Content, "flight-10")

		embedded := msgs[1].Content[strings.Index(msgs[1].Content, "["):]
		var decoded []map[string]any
		require.NoError(t, json.Unmarshal([]byte(embedded), &decoded))
		assert.Len(t, decoded, MaxSummaryResults)
	})

	t.Run("summarize without results embeds empty list", func(t *testing.T) {
		msgs := b.Build(ctx, query, &models.RequestContext{Task: models.TaskSummarize})
		assert.True(t, strings.HasSuffix(msgs[1].Content, "[]"))
	})

	t.Run("unknown task falls back to base", func(t *testing.T) {
		msgs := b.Build(ctx, query, &models.RequestContext{Task: "book_hotel"})
		assert.Equal(t, b.Build(ctx, query, nil), msgs)
	})

	t.Run("deterministic", func(t *testing.T) {
		rc := &models.RequestContext{Task: models.TaskHandleError, ErrorDetails: map[string]any{"b": 2, "a": 1}}
		assert.Equal(t, b.Build(ctx, query, rc), b.Build(ctx, query, rc))
	})
}
