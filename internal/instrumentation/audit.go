package instrumentation

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/teemow/agendarouter/internal/intent"
	"github.com/teemow/agendarouter/internal/logging"
)

// ToolInvocation captures all information about a classification request for
// audit logging, whether it arrived as an MCP tool call or over REST.
//
// # Privacy Considerations
//
// The Query field can name people and meetings. LogAttrs only emits its hash;
// LogAuditAttrs emits the raw text and belongs in a secured log stream.
type ToolInvocation struct {
	// Tool name (classify_intent) or REST route
	Tool string

	// Transport the request arrived on (stdio, http, rest)
	Transport string

	// Raw query text
	Query string

	// Routing outcome
	Provider         string
	IntentType       string
	Source           string
	Fallback         bool
	ApprovalRequired bool

	// Execution details
	StartTime time.Time
	Duration  time.Duration
	Success   bool
	Error     string

	// Tracing context
	TraceID string
	SpanID  string
}

// QueryHash returns the anonymized form of the query.
func (ti *ToolInvocation) QueryHash() string {
	return logging.AnonymizeQuery(ti.Query)
}

// Status returns "success" or "error" based on the Success field.
func (ti *ToolInvocation) Status() string {
	if ti.Success {
		return StatusSuccess
	}
	return StatusError
}

// LogAttrs returns slog attributes for structured logging.
// The query is represented by its hash only.
func (ti *ToolInvocation) LogAttrs() []slog.Attr {
	attrs := ti.commonAttrs()
	if h := ti.QueryHash(); h != "" {
		attrs = append(attrs, slog.String(logging.KeyQueryHash, h))
	}
	if ti.TraceID != "" {
		attrs = append(attrs, slog.String("trace_id", ti.TraceID))
	}
	if ti.Error != "" {
		attrs = append(attrs, slog.String(logging.KeyError, ti.Error))
	}
	return attrs
}

// LogAuditAttrs returns slog attributes for full audit logging, raw query
// text included.
//
// # Security Warning
//
// Ensure audit logs are stored securely with appropriate access controls.
func (ti *ToolInvocation) LogAuditAttrs() []slog.Attr {
	attrs := ti.commonAttrs()
	attrs = append(attrs,
		slog.String("query", ti.Query),
		slog.String(logging.KeyQueryHash, ti.QueryHash()),
	)
	if ti.TraceID != "" {
		attrs = append(attrs, slog.String("trace_id", ti.TraceID))
	}
	if ti.SpanID != "" {
		attrs = append(attrs, slog.String("span_id", ti.SpanID))
	}
	if ti.Error != "" {
		attrs = append(attrs, slog.String(logging.KeyError, ti.Error))
	}
	return attrs
}

func (ti *ToolInvocation) commonAttrs() []slog.Attr {
	attrs := []slog.Attr{
		slog.String(logging.KeyTool, ti.Tool),
		slog.Duration(logging.KeyDuration, ti.Duration),
		slog.Bool("success", ti.Success),
	}
	if ti.Transport != "" {
		attrs = append(attrs, slog.String("transport", ti.Transport))
	}
	if ti.Provider != "" {
		attrs = append(attrs,
			slog.String(logging.KeyProvider, ti.Provider),
			slog.String(logging.KeyIntent, ti.IntentType),
			slog.String(logging.KeySource, ti.Source),
			slog.Bool(logging.KeyFallback, ti.Fallback),
			slog.Bool(logging.KeyApproval, ti.ApprovalRequired),
		)
	}
	return attrs
}

// NewToolInvocation creates a new ToolInvocation with timing started.
// Call Complete() when the tool operation finishes.
func NewToolInvocation(tool string) *ToolInvocation {
	return &ToolInvocation{
		Tool:      tool,
		StartTime: time.Now(),
	}
}

// WithTransport sets the transport name.
func (ti *ToolInvocation) WithTransport(transport string) *ToolInvocation {
	ti.Transport = transport
	return ti
}

// WithQuery sets the raw query text.
func (ti *ToolInvocation) WithQuery(query string) *ToolInvocation {
	ti.Query = query
	return ti
}

// WithResult copies the routing outcome from a classification result.
func (ti *ToolInvocation) WithResult(res intent.Result) *ToolInvocation {
	ti.Provider = res.Provider
	ti.IntentType = res.IntentType
	ti.Source = res.Source
	ti.Fallback = res.Fallback
	ti.ApprovalRequired = res.ApprovalRequired
	return ti
}

// WithSpanContext extracts trace context from the current span.
func (ti *ToolInvocation) WithSpanContext(ctx context.Context) *ToolInvocation {
	span := trace.SpanFromContext(ctx)
	if span.SpanContext().IsValid() {
		ti.TraceID = span.SpanContext().TraceID().String()
		ti.SpanID = span.SpanContext().SpanID().String()
	}
	return ti
}

// Complete marks the invocation as completed and calculates duration.
// Returns the same ToolInvocation for method chaining.
func (ti *ToolInvocation) Complete(success bool, err error) *ToolInvocation {
	ti.Duration = time.Since(ti.StartTime)
	ti.Success = success
	if err != nil {
		ti.Error = err.Error()
	}
	return ti
}

// CompleteWithError marks the invocation as failed with the given error.
func (ti *ToolInvocation) CompleteWithError(err error) *ToolInvocation {
	return ti.Complete(false, err)
}

// CompleteSuccess marks the invocation as successful.
func (ti *ToolInvocation) CompleteSuccess() *ToolInvocation {
	return ti.Complete(true, nil)
}

// AuditLogger provides structured audit logging for classification requests.
type AuditLogger struct {
	logger     *slog.Logger
	includePII bool
	enabled    bool
}

// NewAuditLogger creates a new AuditLogger with the given slog.Logger.
// By default raw queries are not logged.
func NewAuditLogger(logger *slog.Logger) *AuditLogger {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuditLogger{
		logger:  logger,
		enabled: true,
	}
}

// NewAuditLoggerWithConfig creates a new AuditLogger with the given configuration.
func NewAuditLoggerWithConfig(logger *slog.Logger, config AuditLoggingConfig) *AuditLogger {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuditLogger{
		logger:     logger,
		includePII: config.IncludePII,
		enabled:    config.Enabled,
	}
}

// IncludePII reports whether raw queries are written.
func (al *AuditLogger) IncludePII() bool {
	return al.includePII
}

// Enabled reports whether audit logging is active.
func (al *AuditLogger) Enabled() bool {
	return al.enabled
}

// LogToolInvocation logs an invocation. Raw query text is included only when
// the logger is configured with IncludePII.
func (al *AuditLogger) LogToolInvocation(ctx context.Context, ti *ToolInvocation) {
	if al == nil || !al.enabled {
		return
	}

	var attrs []slog.Attr
	if al.includePII {
		attrs = ti.LogAuditAttrs()
	} else {
		attrs = ti.LogAttrs()
	}

	if ti.Success {
		al.logger.LogAttrs(ctx, slog.LevelInfo, "tool_executed", attrs...)
	} else {
		al.logger.LogAttrs(ctx, slog.LevelWarn, "tool_failed", attrs...)
	}
}
