package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"flightagent/internal/agent/cache"
	agentHandler "flightagent/internal/agent/handler"
	"flightagent/internal/agent/llm"
	agentMetrics "flightagent/internal/agent/metrics"
	"flightagent/internal/agent/prompt"
	agentService "flightagent/internal/agent/service"
	"flightagent/internal/platform/config"
	"flightagent/internal/platform/httpserver"
	"flightagent/internal/platform/logger"
	"flightagent/internal/platform/metrics"
	rateLimitMetrics "flightagent/internal/ratelimit/metrics"
	rateLimitMW "flightagent/internal/ratelimit/middleware"
	rateLimitSvc "flightagent/internal/ratelimit/service"
	"flightagent/internal/ratelimit/store/window"
	httptransport "flightagent/internal/transport/http"
)

// main wires high-level dependencies, exposes the HTTP router, and keeps the
// server lifecycle small. Business logic lives in internal services packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New(cfg.Verbose)
	for _, w := range cfg.Warnings {
		log.Warn("config fallback", "detail", w)
	}

	if err := run(cfg, log); err != nil {
		log.Error("server stopped with error", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Server, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	limiter, err := rateLimitSvc.New(
		window.NewInMemoryWindowStore(
			window.WithIdleTTL(cfg.RateLimit.IdleTTL),
			window.WithSweepInterval(cfg.RateLimit.SweepInterval),
		),
		rateLimitSvc.WithConfig(&rateLimitSvc.Config{
			RequestsPerWindow: cfg.RateLimit.RequestsPerWindow,
			Window:            cfg.RateLimit.Window,
		}),
		rateLimitSvc.WithMetrics(rateLimitMetrics.New(reg)),
		rateLimitSvc.WithLogger(log),
	)
	if err != nil {
		return err
	}

	am := agentMetrics.New(reg)
	responses := cache.New(cache.WithMetrics(am))
	janitorDone := responses.StartJanitor(ctx, cfg.Cache.SweepInterval)

	prompts, err := prompt.New(prompt.WithLogger(log))
	if err != nil {
		return err
	}

	svcOpts := []agentService.Option{
		agentService.WithLogger(log),
		agentService.WithMetrics(am),
		agentService.WithCacheTTL(cfg.Cache.TTL),
	}
	if cfg.LLM.MockMode() {
		log.Warn("no LLM credential configured, serving mock plans")
	} else {
		client, err := llm.New(llm.Config{
			APIKey:      cfg.LLM.APIKey,
			BaseURL:     cfg.LLM.BaseURL,
			Model:       cfg.LLM.Model,
			Timeout:     cfg.LLM.Timeout,
			Temperature: cfg.LLM.Temperature,
			MaxTokens:   cfg.LLM.MaxTokens,
		}, llm.WithMetrics(am))
		if err != nil {
			return err
		}
		svcOpts = append(svcOpts, agentService.WithCompleter(client))
	}
	svc, err := agentService.New(responses, prompts, svcOpts...)
	if err != nil {
		return err
	}

	router := httptransport.NewRouter(httptransport.Deps{
		Logger:    log,
		Metrics:   metrics.New(reg),
		RateLimit: rateLimitMW.New(limiter, log, rateLimitMW.WithDisabled(cfg.RateLimit.Disabled)),
		Agent:     agentHandler.New(svc, limiter, cfg.Version, log),
	})

	servers := []*http.Server{httpserver.New(cfg.Addr, router, cfg.LLM.Timeout)}
	if cfg.MetricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
		servers = append(servers, httpserver.New(cfg.MetricsAddr, mux, 0))
	}

	errCh := make(chan error, len(servers))
	for _, srv := range servers {
		log.Info("starting listener", "addr", srv.Addr, "version", cfg.Version, "mock_mode", svc.MockMode())
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- err
			}
		}()
	}

	var serveErr error
	select {
	case <-ctx.Done():
		log.Info("shutdown signal received")
	case serveErr = <-errCh:
		log.Error("listener failed", "error", serveErr)
	}
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	for _, srv := range servers {
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("graceful shutdown failed", "addr", srv.Addr, "error", err)
		}
	}
	<-janitorDone

	return serveErr
}
