package server

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/teemow/agendarouter/internal/instrumentation"
	"github.com/teemow/agendarouter/internal/intent"
	"github.com/teemow/agendarouter/internal/logging"
)

// ServerContext holds the shared state of the MCP and REST servers
type ServerContext struct {
	ctx         context.Context
	cancel      context.CancelFunc
	router      *intent.Router
	logger      *slog.Logger
	metrics     *instrumentation.Metrics
	auditLogger *instrumentation.AuditLogger
	now         func() time.Time
	mu          sync.RWMutex
	shutdown    bool
}

// NewServerContext creates a new server context around a router
func NewServerContext(ctx context.Context, router *intent.Router, logger *slog.Logger) (*ServerContext, error) {
	if router == nil {
		return nil, errors.New("router is required")
	}
	if logger == nil {
		logger = logging.Discard()
	}

	shutdownCtx, cancel := context.WithCancel(ctx)
	return &ServerContext{
		ctx:    shutdownCtx,
		cancel: cancel,
		router: router,
		logger: logger,
		now:    time.Now,
	}, nil
}

// ClassifyRequest is the transport-neutral form of a classification call.
// Empty context fields default to the current time in UTC (or in
// UserTimezone when only that is given).
type ClassifyRequest struct {
	Query        string `json:"query"`
	Context      string `json:"context,omitempty"`
	UserTimezone string `json:"user_timezone,omitempty"`
	CurrentDate  string `json:"current_date,omitempty"`
	CurrentTime  string `json:"current_time,omitempty"`
}

// Classify resolves the request context and routes the query.
func (sc *ServerContext) Classify(ctx context.Context, req ClassifyRequest) (intent.Result, error) {
	c, err := intent.ResolveContext(req.UserTimezone, req.CurrentDate, req.CurrentTime, sc.now())
	if err != nil {
		return intent.Result{}, err
	}
	return sc.router.ClassifyRequest(ctx, intent.Request{
		Query:   req.Query,
		Context: c,
		Note:    strings.TrimSpace(req.Context),
	})
}

// Context returns the server context
func (sc *ServerContext) Context() context.Context {
	return sc.ctx
}

// Router returns the intent router
func (sc *ServerContext) Router() *intent.Router {
	return sc.router
}

// Logger returns the server logger
func (sc *ServerContext) Logger() *slog.Logger {
	return sc.logger
}

// Metrics returns the metrics recorder, or nil when instrumentation is off
func (sc *ServerContext) Metrics() *instrumentation.Metrics {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.metrics
}

// SetMetrics sets the metrics recorder
func (sc *ServerContext) SetMetrics(m *instrumentation.Metrics) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	sc.metrics = m
}

// AuditLogger returns the audit logger, or nil when audit logging is off
func (sc *ServerContext) AuditLogger() *instrumentation.AuditLogger {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.auditLogger
}

// SetAuditLogger sets the audit logger
func (sc *ServerContext) SetAuditLogger(al *instrumentation.AuditLogger) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	sc.auditLogger = al
}

// IsShutdown returns whether the server has been shutdown
func (sc *ServerContext) IsShutdown() bool {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.shutdown
}

// Shutdown shuts down the server context
func (sc *ServerContext) Shutdown() error {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	if sc.shutdown {
		return nil
	}

	sc.shutdown = true
	sc.cancel()
	return nil
}

// Transport names recorded on audit logs and spans.
const (
	TransportStdio = "stdio"
	TransportHTTP  = "http"
)

type transportKey struct{}

// ContextWithTransport records the transport a request arrived on.
func ContextWithTransport(ctx context.Context, transport string) context.Context {
	return context.WithValue(ctx, transportKey{}, transport)
}

// TransportFromContext returns the transport recorded by ContextWithTransport.
func TransportFromContext(ctx context.Context) string {
	t, _ := ctx.Value(transportKey{}).(string)
	return t
}
