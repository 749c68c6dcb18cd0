package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Server captures HTTP server level configuration.
type Server struct {
	Addr        string
	MetricsAddr string
	Version     string
	Verbose     bool
	LLM         LLMConfig
	RateLimit   RateLimitConfig
	Cache       CacheConfig

	// Warnings collects values that could not be parsed and fell back to
	// defaults, so main can log them once the logger exists.
	Warnings []string
}

// LLMConfig configures the upstream chat-completions provider.
type LLMConfig struct {
	APIKey      string
	BaseURL     string
	Model       string
	Timeout     time.Duration
	Temperature float64
	MaxTokens   int
}

// MockMode reports whether no upstream credential is configured.
func (c LLMConfig) MockMode() bool {
	return c.APIKey == ""
}

// RateLimitConfig configures the per-client fixed window.
type RateLimitConfig struct {
	Disabled          bool
	RequestsPerWindow int
	Window            time.Duration
	IdleTTL           time.Duration
	SweepInterval     time.Duration
}

// CacheConfig configures the agent response cache.
type CacheConfig struct {
	TTL           time.Duration
	SweepInterval time.Duration
}

// Defaults.
const (
	DefaultAddr              = ":8080"
	DefaultMetricsAddr       = ":9090"
	DefaultVersion           = "1.0.0"
	DefaultLLMBaseURL        = "https://api.openai.com/v1"
	DefaultLLMModel          = "gpt-4o-mini"
	DefaultLLMTimeout        = 30 * time.Second
	DefaultLLMTemperature    = 0.2
	DefaultLLMMaxTokens      = 1500
	DefaultRequestsPerWindow = 20
	DefaultWindow            = 60 * time.Second
	DefaultIdleTTL           = 10 * time.Minute
	DefaultRateSweepInterval = time.Minute
	DefaultCacheTTL          = 10 * time.Minute
	DefaultCacheSweep        = time.Minute
)

// FromEnv builds a Server config from environment variables so main stays lean.
// A missing upstream credential is a supported mode, not an error.
func FromEnv() Server {
	return fromLookup(os.LookupEnv)
}

func fromLookup(lookupEnv func(string) (string, bool)) Server {
	getenv := func(key string) string {
		v, _ := lookupEnv(key)
		return v
	}
	cfg := Server{
		Addr:        stringOr(getenv("FLIGHT_AGENT_ADDR"), DefaultAddr),
		MetricsAddr: DefaultMetricsAddr,
		Version:     stringOr(getenv("SERVICE_VERSION"), DefaultVersion),
		Verbose:     isTrue(getenv("DEBUG")) || isTrue(getenv("VERBOSE_LOGGING")),
	}
	// An explicitly empty METRICS_ADDR disables the metrics listener.
	if v, ok := lookupEnv("METRICS_ADDR"); ok {
		cfg.MetricsAddr = strings.TrimSpace(v)
	}

	cfg.LLM = LLMConfig{
		APIKey:      strings.TrimSpace(getenv("OPENAI_API_KEY")),
		BaseURL:     strings.TrimRight(stringOr(getenv("LLM_BASE_URL"), DefaultLLMBaseURL), "/"),
		Model:       stringOr(getenv("LLM_MODEL"), DefaultLLMModel),
		Timeout:     cfg.duration(getenv, "LLM_TIMEOUT", DefaultLLMTimeout),
		Temperature: cfg.float(getenv, "LLM_TEMPERATURE", DefaultLLMTemperature),
		MaxTokens:   cfg.positiveInt(getenv, "LLM_MAX_TOKENS", DefaultLLMMaxTokens),
	}

	cfg.RateLimit = RateLimitConfig{
		Disabled:          isTrue(getenv("RATE_LIMIT_DISABLED")),
		RequestsPerWindow: cfg.positiveInt(getenv, "RATE_LIMIT_REQUESTS", DefaultRequestsPerWindow),
		Window:            cfg.duration(getenv, "RATE_LIMIT_WINDOW", DefaultWindow),
		IdleTTL:           cfg.duration(getenv, "RATE_LIMIT_IDLE_TTL", DefaultIdleTTL),
		SweepInterval:     DefaultRateSweepInterval,
	}

	cfg.Cache = CacheConfig{
		TTL:           cfg.duration(getenv, "AGENT_CACHE_TTL", DefaultCacheTTL),
		SweepInterval: DefaultCacheSweep,
	}

	return cfg
}

func stringOr(v, fallback string) string {
	if v = strings.TrimSpace(v); v != "" {
		return v
	}
	return fallback
}

func isTrue(v string) bool {
	b, err := strconv.ParseBool(strings.TrimSpace(v))
	return err == nil && b
}

func (c *Server) duration(getenv func(string) string, key string, fallback time.Duration) time.Duration {
	raw := strings.TrimSpace(getenv(key))
	if raw == "" {
		return fallback
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		c.warn(key, raw)
		return fallback
	}
	return d
}

func (c *Server) positiveInt(getenv func(string) string, key string, fallback int) int {
	raw := strings.TrimSpace(getenv(key))
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		c.warn(key, raw)
		return fallback
	}
	return n
}

func (c *Server) float(getenv func(string) string, key string, fallback float64) float64 {
	raw := strings.TrimSpace(getenv(key))
	if raw == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || f < 0 {
		c.warn(key, raw)
		return fallback
	}
	return f
}

func (c *Server) warn(key, raw string) {
	c.Warnings = append(c.Warnings, fmt.Sprintf("invalid %s=%q, using default", key, raw))
}
