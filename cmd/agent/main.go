package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/imWayneWY/movie-agent-web-app-sub000/internal/api"
	"github.com/imWayneWY/movie-agent-web-app-sub000/internal/config"
	"github.com/imWayneWY/movie-agent-web-app-sub000/internal/logger"
	"github.com/imWayneWY/movie-agent-web-app-sub000/internal/observability"
	"github.com/imWayneWY/movie-agent-web-app-sub000/internal/ratelimit"
	"github.com/imWayneWY/movie-agent-web-app-sub000/internal/recommend"
	"github.com/imWayneWY/movie-agent-web-app-sub000/internal/storage"
	"github.com/imWayneWY/movie-agent-web-app-sub000/internal/version"
)

var configFile = flag.String("config", "", "Path to configuration file")

func main() {
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configFile)
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	ver := version.GetInfo()

	// Initialize structured logging
	log, closer, err := logger.Setup(cfg.Logging, ver)
	if err != nil {
		slog.Error("Failed to initialize logger", "error", err)
		os.Exit(1)
	}
	if closer != nil {
		defer closer.Close()
	}
	slog.SetDefault(log)

	// Initialize observability (OpenTelemetry)
	otelProvider, err := observability.Setup(cfg.Metrics, cfg.Observability, ver)
	if err != nil {
		slog.Error("Failed to initialize observability", "error", err)
		os.Exit(1)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := otelProvider.Shutdown(shutdownCtx); err != nil {
			slog.Error("Failed to shutdown observability", "error", err)
		}
	}()

	// Initialize storage
	store, err := storage.NewFactory().Create(cfg.Storage)
	if err != nil {
		slog.Error("Failed to initialize storage", "error", err)
		os.Exit(1)
	}
	defer store.Close()

	// Wrap storage with instrumentation if metrics are enabled
	activeStorage := store
	if cfg.Metrics.Enabled {
		instrumented, err := observability.NewInstrumentedStorage(store)
		if err != nil {
			slog.Error("Failed to create instrumented storage", "error", err)
			os.Exit(1)
		}
		activeStorage = instrumented
	}

	// Domain instruments (stream outcomes, retries, admissions)
	var agentMetrics *observability.AgentMetrics
	if cfg.Metrics.Enabled {
		agentMetrics, err = observability.NewAgentMetrics()
		if err != nil {
			slog.Error("Failed to create metrics instruments", "error", err)
			os.Exit(1)
		}
	}

	// Initialize the recommendation provider and service
	var providerOpts []recommend.HTTPOption
	var serviceOpts []recommend.ServiceOption
	if agentMetrics != nil {
		providerOpts = append(providerOpts, recommend.WithRetryMetrics(agentMetrics))
		serviceOpts = append(serviceOpts, recommend.WithStreamMetrics(agentMetrics))
	}
	provider, err := recommend.NewProvider(cfg.Upstream, providerOpts...)
	if err != nil {
		slog.Error("Failed to initialize recommendation provider", "error", err)
		os.Exit(1)
	}
	service := recommend.NewService(provider, activeStorage, slog.Default(), serviceOpts...)

	// Initialize HTTP handlers with storage for health checks
	handlers := api.NewHandlers(service, activeStorage)

	// Setup routes with middleware
	routeOpts := []api.RouteOption{}
	if cfg.Observability.Tracing.Enabled {
		routeOpts = append(routeOpts, api.WithOTelMiddleware(cfg.Observability.ServiceName))
	}

	// Initialize the admission limiter if enabled
	if cfg.Security.RateLimit.Enabled {
		rlCfg := cfg.Security.RateLimit
		limiter := ratelimit.NewSlidingWindow(rlCfg.MaxRequests, rlCfg.Window, rlCfg.CleanupInterval)
		defer limiter.Close()

		var observers []ratelimit.Observer
		if agentMetrics != nil {
			observers = append(observers, func(identifier string, limited bool) {
				agentMetrics.RecordAdmission(context.Background(), limited)
			})
		}
		routeOpts = append(routeOpts, api.WithRateLimiter(limiter, observers...))
	}

	router := api.SetupRoutes(handlers, cfg, routeOpts...)

	// Start metrics server if enabled
	var metricsServer *observability.MetricsServer
	if cfg.Metrics.Enabled {
		metricsServer = observability.NewMetricsServer(cfg.Metrics.Port, cfg.Metrics.Path, otelProvider)
		go func() {
			if err := metricsServer.Start(); err != nil && err != http.ErrServerClosed {
				slog.Error("Metrics server failed", "error", err)
			}
		}()
	}

	// Create HTTP server
	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Start server in a goroutine
	go func() {
		slog.Info("Starting server", "addr", server.Addr, "version", ver.Version)

		var err error
		if cfg.Server.TLSEnabled {
			if cfg.Server.TLSCertFile == "" || cfg.Server.TLSKeyFile == "" {
				slog.Error("TLS is enabled but cert file or key file is not specified")
				os.Exit(1)
			}
			slog.Info("Starting HTTPS server with TLS")
			err = server.ListenAndServeTLS(cfg.Server.TLSCertFile, cfg.Server.TLSKeyFile)
		} else {
			slog.Info("Starting HTTP server")
			err = server.ListenAndServe()
		}

		if err != nil && err != http.ErrServerClosed {
			slog.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("Shutting down server")

	// Create a deadline to wait for shutdown
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Shutdown metrics server
	if metricsServer != nil {
		if err := metricsServer.Shutdown(ctx); err != nil {
			slog.Error("Metrics server forced to shutdown", "error", err)
		}
	}

	// Attempt graceful shutdown
	if err := server.Shutdown(ctx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
	}

	slog.Info("Server shutdown complete")
}
