package instrumentation

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/teemow/agendarouter/internal/intent"
)

// Metric attribute keys - using constants for consistency and DRY
const (
	// Common attributes (reused across metrics)
	attrMethod     = "method"
	attrPath       = "path"
	attrStatus     = "status"
	attrTool       = "tool"
	attrProvider   = "provider"
	attrIntentType = "intent_type"
	attrSource     = "source"
	attrBackend    = "backend"
	attrReason     = "reason"
)

// Metrics provides methods for recording observability metrics.
// It implements intent.Observer.
type Metrics struct {
	// HTTP metrics
	httpRequestsTotal   metric.Int64Counter
	httpRequestDuration metric.Float64Histogram

	// Classification metrics
	classificationsTotal   metric.Int64Counter
	classificationDuration metric.Float64Histogram
	fallbackTotal          metric.Int64Counter

	// Backend metrics
	backendRequestsTotal   metric.Int64Counter
	backendRequestDuration metric.Float64Histogram

	// MCP Tool metrics
	toolInvocationsTotal metric.Int64Counter
	toolDuration         metric.Float64Histogram

	// Configuration
	// detailedLabels keeps intent types outside the known set instead of
	// folding them into "other"
	detailedLabels bool
}

// NewMetrics creates a new Metrics instance with all metrics initialized.
// The detailedLabels parameter controls whether high-cardinality labels are included.
func NewMetrics(meter metric.Meter, detailedLabels bool) (*Metrics, error) {
	m := &Metrics{
		detailedLabels: detailedLabels,
	}

	var err error

	// HTTP Metrics
	m.httpRequestsTotal, err = meter.Int64Counter(
		"http_requests_total",
		metric.WithDescription("Total number of HTTP requests"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create http_requests_total counter: %w", err)
	}

	m.httpRequestDuration, err = meter.Float64Histogram(
		"http_request_duration_seconds",
		metric.WithDescription("HTTP request duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.001, 0.01, 0.1, 0.5, 1.0, 2.5, 5.0, 10.0),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create http_request_duration_seconds histogram: %w", err)
	}

	// Classification Metrics
	m.classificationsTotal, err = meter.Int64Counter(
		"intent_classifications_total",
		metric.WithDescription("Total number of intent classifications"),
		metric.WithUnit("{classification}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create intent_classifications_total counter: %w", err)
	}

	m.classificationDuration, err = meter.Float64Histogram(
		"intent_classification_duration_seconds",
		metric.WithDescription("Intent classification duration in seconds, retries and fallback included"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.0005, 0.001, 0.01, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create intent_classification_duration_seconds histogram: %w", err)
	}

	m.fallbackTotal, err = meter.Int64Counter(
		"intent_fallback_total",
		metric.WithDescription("Total number of keyword fallbacks after a backend failure"),
		metric.WithUnit("{fallback}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create intent_fallback_total counter: %w", err)
	}

	// Backend Metrics
	m.backendRequestsTotal, err = meter.Int64Counter(
		"intent_backend_requests_total",
		metric.WithDescription("Total number of classification backend attempts"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create intent_backend_requests_total counter: %w", err)
	}

	m.backendRequestDuration, err = meter.Float64Histogram(
		"intent_backend_request_duration_seconds",
		metric.WithDescription("Classification backend attempt duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create intent_backend_request_duration_seconds histogram: %w", err)
	}

	// MCP Tool Metrics
	m.toolInvocationsTotal, err = meter.Int64Counter(
		"mcp_tool_invocations_total",
		metric.WithDescription("Total number of MCP tool invocations"),
		metric.WithUnit("{invocation}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create mcp_tool_invocations_total counter: %w", err)
	}

	m.toolDuration, err = meter.Float64Histogram(
		"mcp_tool_duration_seconds",
		metric.WithDescription("MCP tool execution duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.01, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create mcp_tool_duration_seconds histogram: %w", err)
	}

	return m, nil
}

// RecordHTTPRequest records an HTTP request with method, path, status code, and duration.
func (m *Metrics) RecordHTTPRequest(ctx context.Context, method, path string, statusCode int, duration time.Duration) {
	if m.httpRequestsTotal == nil || m.httpRequestDuration == nil {
		return // Instrumentation not initialized
	}

	attrs := []attribute.KeyValue{
		attribute.String(attrMethod, method),
		attribute.String(attrPath, path),
		attribute.String(attrStatus, strconv.Itoa(statusCode)),
	}

	m.httpRequestsTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.httpRequestDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
}

// RecordClassification records one finished classification.
//
// Parameters:
//   - provider: Chosen provider, or ProviderNone on failure
//   - intentType: Detected intent type, or IntentNone on failure
//   - source: Classifier that answered (heuristic, openai, gemini)
//   - status: StatusSuccess, StatusInvalidInput or StatusError
//   - duration: Time taken for the whole classification
func (m *Metrics) RecordClassification(ctx context.Context, provider, intentType, source, status string, duration time.Duration) {
	if m.classificationsTotal == nil || m.classificationDuration == nil {
		return // Instrumentation not initialized
	}

	m.classificationsTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String(attrProvider, provider),
		attribute.String(attrIntentType, NormalizeIntentType(intentType, m.detailedLabels)),
		attribute.String(attrSource, source),
		attribute.String(attrStatus, status),
	))
	m.classificationDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(
		attribute.String(attrSource, source),
		attribute.String(attrStatus, status),
	))
}

// RecordFallback records a keyword fallback after a backend failure.
func (m *Metrics) RecordFallback(ctx context.Context, backend, reason string) {
	if m.fallbackTotal == nil {
		return // Instrumentation not initialized
	}

	m.fallbackTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String(attrBackend, backend),
		attribute.String(attrReason, reason),
	))
}

// RecordBackendRequest records one attempt against a classification backend.
// Status is StatusSuccess or one of the intent.Reason* values.
func (m *Metrics) RecordBackendRequest(ctx context.Context, backend, status string, duration time.Duration) {
	if m.backendRequestsTotal == nil || m.backendRequestDuration == nil {
		return // Instrumentation not initialized
	}

	attrs := []attribute.KeyValue{
		attribute.String(attrBackend, backend),
		attribute.String(attrStatus, status),
	}

	m.backendRequestsTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.backendRequestDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
}

// RecordToolInvocation records an MCP tool invocation with tool name, status, and duration.
//
// Parameters:
//   - toolName: Name of the MCP tool (e.g., "classify_intent")
//   - status: Result status ("success" or "error")
//   - duration: Time taken for the tool execution
func (m *Metrics) RecordToolInvocation(ctx context.Context, toolName, status string, duration time.Duration) {
	if m.toolInvocationsTotal == nil || m.toolDuration == nil {
		return // Instrumentation not initialized
	}

	attrs := []attribute.KeyValue{
		attribute.String(attrTool, toolName),
		attribute.String(attrStatus, status),
	}

	m.toolInvocationsTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.toolDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
}

// ObserveClassification implements intent.Observer.
func (m *Metrics) ObserveClassification(ctx context.Context, o intent.Outcome) {
	if o.Err != nil {
		status := StatusError
		source := StatusUnknown
		var ce *intent.ClassificationError
		switch {
		case errors.Is(o.Err, intent.ErrInvalidInput):
			status = StatusInvalidInput
		case errors.As(o.Err, &ce):
			source = ce.Backend
		}
		m.RecordClassification(ctx, ProviderNone, IntentNone, source, status, o.Duration)
		return
	}

	m.RecordClassification(ctx, o.Result.Provider, o.Result.IntentType, o.Result.Source, StatusSuccess, o.Duration)
	if o.Result.Fallback {
		m.RecordFallback(ctx, o.FallbackBackend, o.FallbackReason)
	}
}

// ObserveBackendCall implements intent.Observer.
func (m *Metrics) ObserveBackendCall(ctx context.Context, backend string, duration time.Duration, err error) {
	m.RecordBackendRequest(ctx, backend, BackendStatus(err), duration)
}

var _ intent.Observer = (*Metrics)(nil)
