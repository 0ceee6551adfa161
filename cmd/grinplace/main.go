package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"

	"github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	"github.com/platinummonkey/grinplace/pkg/api"
	"github.com/platinummonkey/grinplace/pkg/app"
	"github.com/platinummonkey/grinplace/pkg/config"
	"github.com/platinummonkey/grinplace/pkg/middleware"
	"github.com/platinummonkey/grinplace/pkg/observability"
	"github.com/platinummonkey/grinplace/pkg/storage"
	"github.com/platinummonkey/grinplace/pkg/storage/postgres"
)

// version is set at build time with -ldflags "-X main.version=..."
var version = "dev"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "grinplace: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return err
	}

	logger := newLogger(cfg)
	logger.WithFields(map[string]interface{}{
		"version":     version,
		"environment": cfg.Server.Environment,
		"storage":     cfg.Storage.Driver,
	}).Info("Starting grinplace")

	ctx := context.Background()

	otel, err := observability.InitOTel(ctx, observability.OTelConfig{
		Enabled:        cfg.Observability.OTelEnabled,
		Endpoint:       cfg.Observability.OTelEndpoint,
		ServiceName:    cfg.Observability.OTelServiceName,
		ServiceVersion: cfg.Observability.OTelServiceVersion,
		Environment:    cfg.Server.Environment,
		Insecure:       cfg.Observability.OTelInsecure,
		SampleRatio:    cfg.Observability.OTelSampleRatio,
	}, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize OpenTelemetry: %w", err)
	}

	stores, err := app.OpenStores(ctx, cfg.Storage, logger)
	if err != nil {
		return err
	}

	objects, err := app.OpenObjectStore(ctx, cfg.Storage)
	if err != nil {
		stores.Close(ctx)
		return fmt.Errorf("failed to open object store: %w", err)
	}

	var redisClient *redis.Client
	if cfg.Storage.RedisURL != "" {
		redisClient, err = postgres.NewRedisClient(ctx, cfg.Storage)
		if err != nil {
			stores.Close(ctx)
			return err
		}
	}

	var (
		metrics  *observability.Metrics
		registry *prometheus.Registry
		stats    *observability.StatsCollector
	)
	if cfg.Observability.MetricsEnabled {
		registry = prometheus.NewRegistry()
		registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		metrics = observability.NewMetrics(registry)

		stats, err = observability.NewStatsCollector(cfg.Observability.StatsSchedule, metrics, stores.DB, stores.Users, logger)
		if err != nil {
			stores.Close(ctx)
			return err
		}
	}

	services, err := app.NewServices(cfg, stores, objects, metrics, logger)
	if err != nil {
		stores.Close(ctx)
		return err
	}

	var limiter *middleware.RateLimiter
	if redisClient != nil && cfg.Auth.LoginRateLimit > 0 {
		limiter = middleware.NewRateLimiter(redisClient, middleware.RateLimitConfig{
			RequestsPerWindow: cfg.Auth.LoginRateLimit,
			WindowDuration:    cfg.Auth.LoginRateWindow,
		}, "grinplace")
	} else if cfg.Auth.LoginRateLimit > 0 {
		logger.Warn("Login rate limiting requires Redis; limiter disabled")
	}

	health := observability.NewHealthChecker(stores.DB, redisClient, version, cfg.Server.Environment)
	if s3, ok := objects.(*storage.S3Store); ok {
		health.AddProbe("object_storage", false, s3.HealthCheck)
	}

	deps := api.Dependencies{
		Users:        services.Users,
		Roles:        services.Roles,
		Businesses:   services.Businesses,
		Tokens:       services.Tokens,
		UserLoader:   stores.Users,
		Health:       health,
		Logger:       logger,
		Metrics:      metrics,
		Registry:     registry,
		LoginLimiter: limiter,
		Options: api.Options{
			AllowedOrigins:       cfg.Server.AllowedOrigins,
			MaxBodyBytes:         cfg.Server.MaxBodyBytes,
			MaxUploadBytes:       cfg.Server.MaxUploadBytes,
			ExposeInternalErrors: !cfg.IsProduction(),
			Tracing:              cfg.Observability.OTelEnabled,
			TrustProxyHeaders:    cfg.Server.TrustProxyHeaders,
		},
	}
	if fs, ok := objects.(*storage.FilesystemStore); ok {
		deps.Uploads = http.FileServer(http.Dir(fs.Root()))
	}

	httpServer := &http.Server{
		Addr:         net.JoinHostPort(cfg.Server.Host, cfg.Server.Port),
		Handler:      api.NewServer(deps),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	shutdown := observability.NewShutdownManager(logger, httpServer, cfg.Server.ShutdownTimeout)
	shutdown.RegisterShutdownFunc("opentelemetry", func(ctx context.Context) error {
		return observability.ShutdownOTel(ctx, otel, logger)
	})
	if stats != nil {
		stats.Start()
		shutdown.RegisterShutdownFunc("stats-collector", stats.Stop)
	}
	shutdown.RegisterShutdownFunc("stores", stores.Close)
	if redisClient != nil {
		shutdown.RegisterShutdownFunc("redis", func(context.Context) error {
			return redisClient.Close()
		})
	}

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		logger.WithField("addr", httpServer.Addr).Info("HTTP server listening")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server failed: %w", err)
		}
		return nil
	})
	group.Go(func() error {
		return shutdown.WaitForShutdown(groupCtx)
	})

	if err := group.Wait(); err != nil {
		logger.WithError(err).Error("Server stopped with error")
		return err
	}
	logger.Info("Server stopped")
	return nil
}

func newLogger(cfg *config.Config) *observability.Logger {
	if cfg.Observability.LogJSON {
		return observability.NewLogger(cfg.Observability.LogLevel, os.Stdout)
	}
	return observability.NewTextLogger(cfg.Observability.LogLevel, os.Stdout)
}
