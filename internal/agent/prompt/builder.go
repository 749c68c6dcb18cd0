// Package prompt turns an agent request into the chat messages sent to the
// LLM. Prompt texts are embedded from prompts.yaml.
package prompt

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"gopkg.in/yaml.v3"

	"flightagent/internal/agent/models"
)

// MaxSummaryResults bounds how many results are embedded in a summarize prompt.
const MaxSummaryResults = 10

//go:embed prompts.yaml
var defaultCatalogue []byte

// Catalogue is the decoded prompts.yaml.
type Catalogue struct {
	Version    int    `yaml:"version"`
	BaseSystem string `yaml:"base_system"`
	Feedback   struct {
		SystemAddendum string `yaml:"system_addendum"`
		User           string `yaml:"user"`
	} `yaml:"feedback"`
	HandleError struct {
		SystemAddendum string `yaml:"system_addendum"`
	} `yaml:"handle_error"`
	Summarize struct {
		System string `yaml:"system"`
		User   string `yaml:"user"`
	} `yaml:"summarize"`
}

func (c *Catalogue) validate() error {
	var missing []string
	for _, f := range []struct {
		name, value string
	}{
		{"base_system", c.BaseSystem},
		{"feedback.system_addendum", c.Feedback.SystemAddendum},
		{"feedback.user", c.Feedback.User},
		{"handle_error.system_addendum", c.HandleError.SystemAddendum},
		{"summarize.system", c.Summarize.System},
		{"summarize.user", c.Summarize.User},
	} {
		if strings.TrimSpace(f.value) == "" {
			missing = append(missing, f.name)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("prompt catalogue missing: %s", strings.Join(missing, ", "))
	}
	return nil
}

// Builder assembles messages. It holds no per-request state.
type Builder struct {
	catalogue Catalogue
	logger    *slog.Logger
}

type Option func(*Builder)

func WithLogger(logger *slog.Logger) Option {
	return func(b *Builder) {
		b.logger = logger
	}
}

// New builds a Builder from the embedded catalogue.
func New(opts ...Option) (*Builder, error) {
	return NewFromYAML(defaultCatalogue, opts...)
}

// NewFromYAML builds a Builder from an alternative catalogue.
func NewFromYAML(data []byte, opts ...Option) (*Builder, error) {
	if len(data) == 0 {
		return nil, errors.New("prompt catalogue is required")
	}
	var cat Catalogue
	if err := yaml.Unmarshal(data, &cat); err != nil {
		return nil, fmt.Errorf("decode prompt catalogue: %w", err)
	}
	for _, s := range []*string{
		&cat.BaseSystem, &cat.Feedback.SystemAddendum, &cat.Feedback.User,
		&cat.HandleError.SystemAddendum, &cat.Summarize.System, &cat.Summarize.User,
	} {
		*s = strings.TrimSpace(*s)
	}
	if err := cat.validate(); err != nil {
		return nil, err
	}

	b := &Builder{catalogue: cat, logger: slog.Default()}
	for _, opt := range opts {
		opt(b)
	}
	return b, nil
}

// Build returns the system and user messages for query. Feedback takes
// precedence over a task; an unrecognized task gets the base prompt.
func (b *Builder) Build(ctx context.Context, query string, rc *models.RequestContext) []models.Message {
	cat := b.catalogue

	switch {
	case rc == nil:
	case rc.UserFeedback != "":
		return messages(
			cat.BaseSystem+"\n\n"+cat.Feedback.SystemAddendum,
			fill(cat.Feedback.User, "{query}", query, "{feedback}", rc.UserFeedback),
		)
	case rc.Task == models.TaskHandleError:
		addendum := fill(cat.HandleError.SystemAddendum, "{error_details}", encode(rc.ErrorDetails))
		return messages(cat.BaseSystem+"\n\n"+addendum, query)
	case rc.Task == models.TaskSummarize:
		results := rc.Results
		if len(results) > MaxSummaryResults {
			results = results[:MaxSummaryResults]
		}
		if results == nil {
			results = []any{}
		}
		return messages(
			cat.Summarize.System,
			fill(cat.Summarize.User, "{query}", query, "{results}", encode(results)),
		)
	case rc.Task != "":
		// TODO: reject unknown tasks with a 400 once the extension stops sending them.
		b.logger.DebugContext(ctx, "unknown context task, using base prompt", "task", rc.Task)
	}

	return messages(cat.BaseSystem, query)
}

func messages(system, user string) []models.Message {
	return []models.Message{
		{Role: models.RoleSystem, Content: system},
		{Role: models.RoleUser, Content: strings.TrimSpace(user)},
	}
}

func fill(tmpl string, oldnew ...string) string {
	return strings.NewReplacer(oldnew...).Replace(tmpl)
}

// encode renders v as indented JSON, falling back to fmt for values that
// cannot be marshalled.
func encode(v any) string {
	if v == nil {
		return "null"
	}
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(out)
}
