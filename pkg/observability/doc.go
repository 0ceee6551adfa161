// Package observability provides structured logging, Prometheus metrics,
// health probes, OpenTelemetry tracing and graceful shutdown.
//
// # Logging
//
// Logger wraps logrus and emits JSON by default:
//
//	logger := observability.NewLogger(observability.InfoLevel, os.Stdout)
//	logger.WithField("user_id", id).Info("User created")
//
// Request handlers should use FromContext, which adds the request id, the
// authenticated user id and the active trace ids.
//
// # Metrics
//
//	registry := prometheus.NewRegistry()
//	metrics := observability.NewMetrics(registry)
//	router.Use(observability.HTTPMetricsMiddleware(metrics))
//	router.Handle("/metrics", observability.MetricsHandler(registry))
//
// Recording helpers on *Metrics accept a nil receiver, so components can
// take an optional metrics dependency.
//
// # Health
//
// HealthChecker serves /api/health for clients and /health/live and
// /health/ready for orchestration probes.
package observability
