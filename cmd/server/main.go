package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/ptkach/nomulus/internal/app"
	"github.com/ptkach/nomulus/internal/platform/config"
	"github.com/ptkach/nomulus/internal/platform/httpserver"
	"github.com/ptkach/nomulus/internal/platform/logger"
	"github.com/ptkach/nomulus/internal/platform/otel"
	httptransport "github.com/ptkach/nomulus/internal/transport/http"
)

// main wires the registry from the environment and serves EPP over HTTP until
// interrupted.
func main() {
	if err := run(); err != nil {
		slog.Error("registry server stopped", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.FromEnv()
	if err != nil {
		return err
	}
	log := logger.New(cfg.Log.Level, cfg.Log.Format)
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := otel.Setup(ctx, cfg.Otel)
	if err != nil {
		return fmt.Errorf("setup tracing: %w", err)
	}

	registry, err := app.New(ctx, cfg, log)
	if err != nil {
		return err
	}

	handlerOpts := []httptransport.Option{
		httptransport.WithLogger(log),
		httptransport.WithRegistrarHeader(cfg.Server.RegistrarHeader),
		httptransport.WithMaxBodyBytes(cfg.Server.MaxBodyBytes),
	}
	for name, check := range registry.HealthChecks() {
		handlerOpts = append(handlerOpts, httptransport.WithHealthCheck(name, check))
	}
	handler := httptransport.NewHandler(registry.Controller, handlerOpts...)
	router := httptransport.NewRouter(handler, httptransport.RouterConfig{
		ToolToken: cfg.Server.ToolToken,
		Metrics:   promhttp.Handler(),
		Limiter:   registry.RateLimiter,
		Logger:    log,
	})
	if cfg.Server.ToolToken == "" {
		log.Info("tool endpoint disabled, REGISTRY_TOOL_TOKEN is not set")
	}

	srv := httpserver.New(cfg.Server, router, log)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("starting registry", "addr", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		log.Info("shutting down registry")

		var errs []error
		if err := srv.Shutdown(shutdownCtx); err != nil {
			errs = append(errs, fmt.Errorf("graceful shutdown: %w", err))
		}
		if err := registry.Close(); err != nil {
			errs = append(errs, err)
		}
		if err := shutdownTracing(shutdownCtx); err != nil {
			errs = append(errs, fmt.Errorf("flush traces: %w", err))
		}
		return errors.Join(errs...)
	})
	return g.Wait()
}
