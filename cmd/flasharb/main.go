// Package main is the entry point for the flash-loan arbitrage execution engine.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/sumitrevolt/flasharb/business/blockchain"
	"github.com/sumitrevolt/flasharb/business/execution"
	executionDI "github.com/sumitrevolt/flasharb/business/execution/di"
	"github.com/sumitrevolt/flasharb/business/execution/infra/intake"
	"github.com/sumitrevolt/flasharb/business/pricing"
	"github.com/sumitrevolt/flasharb/internal/apm"
	"github.com/sumitrevolt/flasharb/internal/config"
	"github.com/sumitrevolt/flasharb/internal/health"
	"github.com/sumitrevolt/flasharb/internal/logger"
	"github.com/sumitrevolt/flasharb/internal/metrics"
	"github.com/sumitrevolt/flasharb/internal/monolith"
)

var (
	version   = "dev"
	commit    = "none"
	buildDate = "unknown"
)

func main() {
	// Load .env file if present (ignore error if not found)
	_ = godotenv.Load()

	configPath := flag.String("config", "", "Path to configuration file")
	showVersion := flag.Bool("version", false, "Show version information")
	flag.Parse()

	if *showVersion {
		fmt.Printf("flasharb %s (commit: %s, built: %s)\n", version, commit, buildDate)
		os.Exit(0)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		fmt.Fprintf(os.Stderr, "received shutdown signal: %v\n", sig)
		cancel()
	}()

	if err := run(ctx, *configPath); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logLevel := logger.LevelInfo
	switch cfg.App.LogLevel {
	case "debug":
		logLevel = logger.LevelDebug
	case "warn":
		logLevel = logger.LevelWarn
	case "error":
		logLevel = logger.LevelError
	}

	log := logger.New(os.Stderr, logLevel, cfg.App.Name, nil)
	log.Info(ctx, "starting flash-loan arbitrage executor",
		"version", version,
		"environment", cfg.App.Environment,
	)

	// Initialize observability if enabled
	var traceProvider apm.TraceProvider
	if cfg.Telemetry.Enabled {
		// Set service name env var for OTEL
		if cfg.Telemetry.ServiceName != "" {
			os.Setenv("OTEL_SERVICE_NAME", cfg.Telemetry.ServiceName)
		}
		if cfg.Telemetry.OTLPEndpoint != "" {
			os.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", cfg.Telemetry.OTLPEndpoint)
		}

		// Initialize tracing with Zipkin (local dev friendly)
		traceProvider = apm.NewTraceProvider(log, apm.WithProvider(apm.ZipkinProvider, log))
		log.Info(ctx, "tracing initialized", "provider", "zipkin", "endpoint", cfg.Telemetry.OTLPEndpoint)

		// Initialize metrics with Prometheus
		metrics.NewMetricProvider(
			metrics.WithServiceName(cfg.Telemetry.ServiceName),
			metrics.WithProviderConfig(metrics.ProviderCfg{
				Provider: metrics.PrometheusProvider,
			}),
		)

		// Start Prometheus metrics server in background
		port := cfg.Telemetry.PrometheusPort
		if port == 0 {
			port = 9090
		}
		go metrics.ServePrometheusMetrics(metrics.WithPort(strconv.Itoa(port)))
		log.Info(ctx, "prometheus metrics server started", "port", port)
	}
	defer func() {
		if traceProvider != nil {
			traceProvider.Stop()
		}
	}()

	// Start health check server on port 8081
	healthServer := health.NewServer(8081, version)
	if err := healthServer.Start(); err != nil {
		log.Warn(ctx, "failed to start health server", "error", err)
	} else {
		log.Info(ctx, "health server started", "port", 8081)
	}
	defer healthServer.Stop(ctx)

	// Create monolith (application container)
	mono, err := monolith.New(cfg, log)
	if err != nil {
		return fmt.Errorf("failed to create monolith: %w", err)
	}
	defer mono.Close()

	// Define modules in dependency order
	modules := []monolith.Module{
		&blockchain.Module{}, // Must be first - provides the chain client
		&pricing.Module{},    // Depends on blockchain for venue quotes
		&execution.Module{},  // Depends on blockchain and pricing
	}

	if err := mono.RegisterModules(modules...); err != nil {
		return fmt.Errorf("failed to register modules: %w", err)
	}

	if err := mono.StartModules(ctx, modules...); err != nil {
		return fmt.Errorf("failed to start modules: %w", err)
	}

	orchestrator := executionDI.GetOrchestrator(mono.Services())
	tracker := executionDI.GetTracker(mono.Services())

	log.Info(ctx, "all modules started, executor ready for opportunities")

	// Consume newline-delimited JSON opportunities from stdin. An external
	// detector pipes them in; EOF just means the detector went away.
	reader := intake.NewReader(os.Stdin, orchestrator, log)
	go func() {
		if err := reader.Run(ctx); err != nil && ctx.Err() == nil {
			log.Error(ctx, "opportunity intake stopped", "error", err)
		}
		log.Info(ctx, "opportunity intake closed")
	}()

	// Wait for shutdown
	<-ctx.Done()

	log.Info(ctx, "shutting down")

	summary := tracker.Summarize()
	log.Info(ctx, "execution summary", "total", summary.Total)

	return nil
}
