package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/agendarouter/internal/instrumentation"
	"github.com/teemow/agendarouter/internal/intent"
	"github.com/teemow/agendarouter/internal/logging"
)

// Route paths.
const (
	MCPPath      = "/mcp"
	ClassifyPath = "/v1/classify"
)

// Error kinds in REST error bodies.
const (
	ErrorKindInvalidInput   = "invalid_input"
	ErrorKindClassification = "classification_error"
	ErrorKindInternal       = "internal"
)

const (
	maxClassifyBodyBytes = 64 << 10

	// DefaultHTTPWriteTimeout leaves room for a remote classifier's timeout
	// plus retries.
	DefaultHTTPWriteTimeout = 60 * time.Second
)

// ErrorResponse is the body of every non-2xx REST response.
type ErrorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
}

// HTTPServerConfig holds configuration for the HTTP server.
type HTTPServerConfig struct {
	// DisableStreaming turns off SSE streaming on the MCP endpoint.
	DisableStreaming bool

	// WriteTimeout bounds a whole response (default: DefaultHTTPWriteTimeout).
	WriteTimeout time.Duration
}

// HTTPServer serves the MCP streamable HTTP endpoint, the REST classify
// endpoint and the health checks on one port.
type HTTPServer struct {
	mcpServer     *mcpserver.MCPServer
	serverContext *ServerContext
	health        *HealthChecker
	config        HTTPServerConfig

	mu         sync.Mutex
	httpServer *http.Server
	addr       string
}

// NewHTTPServer creates an HTTP server. mcpSrv may be nil to serve REST only.
func NewHTTPServer(mcpSrv *mcpserver.MCPServer, sc *ServerContext, config HTTPServerConfig) (*HTTPServer, error) {
	if sc == nil {
		return nil, errors.New("server context is required")
	}
	if config.WriteTimeout <= 0 {
		config.WriteTimeout = DefaultHTTPWriteTimeout
	}
	return &HTTPServer{
		mcpServer:     mcpSrv,
		serverContext: sc,
		health:        NewHealthChecker(sc),
		config:        config,
	}, nil
}

// HealthChecker returns the server's health checker.
func (s *HTTPServer) HealthChecker() *HealthChecker {
	return s.health
}

// Handler returns the complete, instrumented request handler.
func (s *HTTPServer) Handler() http.Handler {
	mux := http.NewServeMux()

	if s.mcpServer != nil {
		mux.Handle(MCPPath, mcpserver.NewStreamableHTTPServer(s.mcpServer,
			mcpserver.WithEndpointPath(MCPPath),
			mcpserver.WithDisableStreaming(s.config.DisableStreaming),
			mcpserver.WithHTTPContextFunc(func(ctx context.Context, _ *http.Request) context.Context {
				return ContextWithTransport(ctx, TransportHTTP)
			}),
		))
	}
	mux.Handle(ClassifyPath, s.ClassifyHandler())
	s.health.RegisterHealthEndpoints(mux)

	return s.instrumentationMiddleware(mux)
}

// Start binds addr and serves until Shutdown. ready, when non-nil, is closed
// once the listener is bound.
func (s *HTTPServer) Start(addr string, ready chan<- struct{}) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	s.mu.Lock()
	s.addr = ln.Addr().String()
	s.httpServer = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      s.config.WriteTimeout,
		IdleTimeout:       120 * time.Second,
	}
	srv := s.httpServer
	s.mu.Unlock()

	if ready != nil {
		close(ready)
	}
	return srv.Serve(ln)
}

// Addr returns the bound address after Start.
func (s *HTTPServer) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addr
}

// Shutdown gracefully shuts down the server. Readiness is cleared first so
// health checks stop routing traffic here.
func (s *HTTPServer) Shutdown(ctx context.Context) error {
	s.health.SetReady(false)

	s.mu.Lock()
	srv := s.httpServer
	s.mu.Unlock()

	if srv != nil {
		return srv.Shutdown(ctx)
	}
	return nil
}

// ClassifyHandler serves POST /v1/classify.
//
// Status codes:
//   - 200: the Result as JSON
//   - 400: malformed JSON or invalid input
//   - 405: any method other than POST
//   - 502: the query could not be classified
func (s *HTTPServer) ClassifyHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.Header().Set("Allow", http.MethodPost)
			writeError(w, http.StatusMethodNotAllowed, ErrorKindInvalidInput,
				fmt.Sprintf("method %s not allowed", r.Method))
			return
		}

		ctx, span := instrumentation.StartHTTPSpan(r.Context(), r.Method, ClassifyPath)
		defer span.End()

		invocation := instrumentation.NewToolInvocation("POST " + ClassifyPath).
			WithTransport("rest").
			WithSpanContext(ctx)
		defer func() {
			s.serverContext.AuditLogger().LogToolInvocation(ctx, invocation)
		}()

		var req ClassifyRequest
		dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxClassifyBodyBytes))
		if err := dec.Decode(&req); err != nil {
			err = fmt.Errorf("invalid request body: %w", err)
			invocation.CompleteWithError(err)
			instrumentation.SetSpanError(span, err)
			writeError(w, http.StatusBadRequest, ErrorKindInvalidInput, err.Error())
			return
		}
		invocation.WithQuery(req.Query)

		res, err := s.serverContext.Classify(ctx, req)
		if err != nil {
			invocation.CompleteWithError(err)
			instrumentation.SetSpanError(span, err)
			status, kind := statusForError(err)
			writeError(w, status, kind, err.Error())
			return
		}

		invocation.WithResult(res).CompleteSuccess()
		span.SetAttributes(instrumentation.NewSpanAttributeBuilder().
			WithQueryHash(logging.AnonymizeQuery(req.Query)).
			WithRouting(res.Provider, res.IntentType, res.Source, res.Fallback).
			Build()...)
		instrumentation.SetSpanSuccess(span)
		writeJSON(w, http.StatusOK, res)
	})
}

// statusForError maps classification errors to HTTP status codes and kinds.
func statusForError(err error) (int, string) {
	var ce *intent.ClassificationError
	switch {
	case errors.Is(err, intent.ErrInvalidInput):
		return http.StatusBadRequest, ErrorKindInvalidInput
	case errors.As(err, &ce):
		return http.StatusBadGateway, ErrorKindClassification
	default:
		return http.StatusInternalServerError, ErrorKindInternal
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, kind, msg string) {
	writeJSON(w, status, ErrorResponse{Error: msg, Kind: kind})
}

// instrumentationMiddleware records http_requests_total and its duration
// histogram. The path label is the matched route pattern, never the raw URL.
func (s *HTTPServer) instrumentationMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		metrics := s.serverContext.Metrics()
		if metrics == nil {
			next.ServeHTTP(w, r)
			return
		}

		start := time.Now()
		rw := newResponseWriter(w)
		next.ServeHTTP(rw, r)

		path := r.Pattern
		if path == "" {
			path = "unmatched"
		}
		metrics.RecordHTTPRequest(r.Context(), r.Method, path, rw.statusCode, time.Since(start))
	})
}

// responseWriter captures the status code written by a handler.
type responseWriter struct {
	http.ResponseWriter
	statusCode  int
	wroteHeader bool
}

func newResponseWriter(w http.ResponseWriter) *responseWriter {
	return &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
}

func (rw *responseWriter) WriteHeader(code int) {
	if !rw.wroteHeader {
		rw.statusCode = code
		rw.wroteHeader = true
	}
	rw.ResponseWriter.WriteHeader(code)
}

// Flush keeps SSE streaming working through the wrapper.
func (rw *responseWriter) Flush() {
	if f, ok := rw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Unwrap lets http.ResponseController reach the underlying writer.
func (rw *responseWriter) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}
