// Package instrumentation provides OpenTelemetry instrumentation for the
// agendarouter server.
//
// This package enables production-grade observability through:
//   - OpenTelemetry metrics for HTTP requests, classifications and backend calls
//   - Distributed tracing for tool invocations and REST requests
//   - Prometheus metrics export via /metrics endpoint on dedicated port
//   - OTLP export support for modern observability platforms
//
// # Metrics
//
// Server/HTTP Metrics:
//   - http_requests_total: Counter of HTTP requests by method, path, and status
//   - http_request_duration_seconds: Histogram of HTTP request durations
//
// Classification Metrics:
//   - intent_classifications_total: Counter by provider, intent_type, source, status
//   - intent_classification_duration_seconds: Histogram by source and status
//   - intent_fallback_total: Counter of keyword fallbacks by backend and reason
//   - intent_backend_requests_total: Counter of backend attempts by backend and status
//   - intent_backend_request_duration_seconds: Histogram of backend attempt durations
//
// MCP Tool Metrics:
//   - mcp_tool_invocations_total: Counter of MCP tool invocations by tool name and status
//   - mcp_tool_duration_seconds: Histogram of MCP tool execution durations
//
// *Metrics implements intent.Observer, so a router created with
// intent.WithObserver(provider.Metrics()) records the classification
// metrics on its own.
//
// # Configuration
//
// Instrumentation can be configured via environment variables:
//   - INSTRUMENTATION_ENABLED: Enable/disable instrumentation (default: true)
//   - METRICS_EXPORTER: Metrics exporter type (prometheus, otlp, stdout, default: prometheus)
//   - TRACING_EXPORTER: Tracing exporter type (otlp, stdout, none, default: none)
//   - OTEL_EXPORTER_OTLP_ENDPOINT: OTLP endpoint for traces/metrics
//   - OTEL_TRACES_SAMPLER_ARG: Sampling rate (0.0 to 1.0, default: 0.1)
//   - OTEL_SERVICE_NAME: Service name (default: agendarouter)
//   - METRICS_DETAILED_LABELS: Keep unknown intent types in labels (default: false)
//   - AUDIT_LOGGING_ENABLED, AUDIT_LOGGING_INCLUDE_PII: Audit log behavior
//
// # Example Usage
//
//	provider, err := instrumentation.NewProvider(ctx, instrumentation.DefaultConfig())
//	if err != nil {
//		return err
//	}
//	defer provider.Shutdown(ctx)
//
//	router, err := intent.NewRouter(cfg, backend,
//		intent.WithObserver(provider.Metrics()),
//		intent.WithTracer(provider.Tracer(instrumentation.TracerName)),
//	)
package instrumentation
