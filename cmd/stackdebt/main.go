// Command stackdebt runs the infrastructure-analysis HTTP service. It guards
// its two upstreams (the GitHub API and direct website scraping) behind
// per-service circuit breakers with retry and fallback handling.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/PrakyathReddy/StackDebt-sub001/config"
	"github.com/PrakyathReddy/StackDebt-sub001/github"
	"github.com/PrakyathReddy/StackDebt-sub001/logger"
	"github.com/PrakyathReddy/StackDebt-sub001/observability"
	"github.com/PrakyathReddy/StackDebt-sub001/resilience"
	"github.com/PrakyathReddy/StackDebt-sub001/scraper"
	"github.com/PrakyathReddy/StackDebt-sub001/server"
	"github.com/PrakyathReddy/StackDebt-sub001/version"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "stackdebt: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	log := logger.New(&cfg.Logging, cfg.Name)
	logger.SetGlobalLogger(log)

	log.Info("Starting service", map[string]interface{}{
		"name":        cfg.Name,
		"version":     version.String(),
		"environment": cfg.Environment,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	handlerOpts := []resilience.Option{
		resilience.WithServiceConfigs(cfg.ExternalServices),
	}

	if cfg.Telemetry.Enabled {
		meterProvider, err := observability.InitMeter(ctx, observability.MeterConfig{
			ServiceName:    cfg.Name,
			ServiceVersion: cfg.Version,
			Environment:    cfg.Environment,
			Endpoint:       cfg.Telemetry.Endpoint,
			Insecure:       cfg.Telemetry.Insecure,
			Interval:       cfg.Telemetry.MetricInterval,
		})
		if err != nil {
			return fmt.Errorf("initializing meter provider: %w", err)
		}
		defer func() {
			if err := meterProvider.Shutdown(context.Background()); err != nil {
				log.Error("Meter provider shutdown error", map[string]interface{}{
					"error": err.Error(),
				})
			}
		}()

		tracerProvider, err := observability.InitTracer(ctx, observability.TracerConfig{
			ServiceName:    cfg.Name,
			ServiceVersion: cfg.Version,
			Environment:    cfg.Environment,
			Endpoint:       cfg.Telemetry.Endpoint,
			Insecure:       cfg.Telemetry.Insecure,
			SampleRate:     cfg.Telemetry.TraceSampleRate,
		})
		if err != nil {
			return fmt.Errorf("initializing tracer provider: %w", err)
		}
		defer func() {
			if err := tracerProvider.Shutdown(context.Background()); err != nil {
				log.Error("Tracer provider shutdown error", map[string]interface{}{
					"error": err.Error(),
				})
			}
		}()

		metrics, err := observability.NewResilienceMetrics(observability.Meter("resilience"))
		if err != nil {
			return fmt.Errorf("creating resilience metrics: %w", err)
		}
		handlerOpts = append(handlerOpts, resilience.WithObserver(metrics))
	}

	handler := resilience.NewHandler(log, handlerOpts...)

	gh := github.New(cfg.GitHub, handler, log)
	sc := scraper.New(cfg.Scraper, handler, log)

	srv := server.New(cfg.Server, log)
	srv.ApplyMiddleware()

	api := server.NewAPI(handler, gh, sc, log)
	api.Register(srv.GinEngine(), cfg.Server.AdminToken)

	if err := srv.Start(ctx); err != nil {
		return err
	}

	<-ctx.Done()
	log.Info("Shutdown signal received")

	return srv.Stop(context.Background())
}
