package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/teemow/agendarouter/internal/instrumentation"
	"github.com/teemow/agendarouter/internal/intent"
)

func newTestHTTPServer(t *testing.T, sc *ServerContext) *HTTPServer {
	t.Helper()
	mcpSrv := mcpserver.NewMCPServer("agendarouter-test", "test", mcpserver.WithToolCapabilities(true))
	s, err := NewHTTPServer(mcpSrv, sc, HTTPServerConfig{})
	require.NoError(t, err)
	return s
}

func postClassify(t *testing.T, h http.Handler, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, ClassifyPath, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestNewHTTPServer_RequiresServerContext(t *testing.T) {
	_, err := NewHTTPServer(nil, nil, HTTPServerConfig{})
	assert.Error(t, err)
}

func TestClassifyHandler_Success(t *testing.T) {
	h := newTestHTTPServer(t, newTestServerContext(t)).Handler()

	rec := postClassify(t, h, `{
		"query": "Schedule a team standup tomorrow at 9am",
		"user_timezone": "America/New_York",
		"current_date": "2025-07-29",
		"current_time": "11:00:00"
	}`)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var res intent.Result
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.Equal(t, intent.ProviderNylas, res.Provider)
	assert.Equal(t, intent.IntentSchedule, res.IntentType)
	assert.True(t, res.InvolvesOthers)
	assert.True(t, res.ApprovalRequired)
	assert.Equal(t, intent.WarningInvolvesOthers, res.Warning)
	assert.Equal(t, intent.SourceHeuristic, res.Source)
}

func TestClassifyHandler_Errors(t *testing.T) {
	h := newTestHTTPServer(t, newTestServerContext(t)).Handler()

	tests := []struct {
		name       string
		body       string
		wantStatus int
		wantKind   string
	}{
		{"malformed json", `{"query": `, http.StatusBadRequest, ErrorKindInvalidInput},
		{"wrong type", `{"query": 42}`, http.StatusBadRequest, ErrorKindInvalidInput},
		{"empty query", `{"query": ""}`, http.StatusBadRequest, ErrorKindInvalidInput},
		{"bad timezone", `{"query": "add a task", "user_timezone": "Mars/Base"}`, http.StatusBadRequest, ErrorKindInvalidInput},
		{"bad date", `{"query": "add a task", "current_date": "tomorrow"}`, http.StatusBadRequest, ErrorKindInvalidInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := postClassify(t, h, tt.body)
			require.Equal(t, tt.wantStatus, rec.Code, rec.Body.String())

			var body ErrorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tt.wantKind, body.Kind)
			assert.NotEmpty(t, body.Error)
		})
	}
}

func TestClassifyHandler_MethodNotAllowed(t *testing.T) {
	h := newTestHTTPServer(t, newTestServerContext(t)).Handler()

	for _, method := range []string{http.MethodGet, http.MethodPut, http.MethodDelete} {
		t.Run(method, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest(method, ClassifyPath, nil))

			assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
			assert.Equal(t, http.MethodPost, rec.Header().Get("Allow"))
		})
	}
}

func TestClassifyHandler_BodyTooLarge(t *testing.T) {
	h := newTestHTTPServer(t, newTestServerContext(t)).Handler()

	big := `{"query": "` + strings.Repeat("a", maxClassifyBodyBytes) + `"}`
	rec := postClassify(t, h, big)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestClassifyHandler_FallbackDefaultProvider(t *testing.T) {
	h := newTestHTTPServer(t, newTestServerContext(t)).Handler()

	rec := postClassify(t, h, `{"query": "hello there"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var res intent.Result
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.Equal(t, intent.ProviderReclaim, res.Provider)
	assert.Equal(t, intent.DomainTask, res.Domain)
}

func TestClassifyHandler_Undecided(t *testing.T) {
	cfg := intent.DefaultConfig()
	cfg.DefaultProvider = ""
	h := newTestHTTPServer(t, newTestServerContextWithConfig(t, cfg)).Handler()

	rec := postClassify(t, h, `{"query": "hello there"}`)
	require.Equal(t, http.StatusBadGateway, rec.Code, rec.Body.String())

	var body ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, ErrorKindClassification, body.Kind)
}

func TestClassifyHandler_AuditLog(t *testing.T) {
	sc := newTestServerContext(t)
	var buf bytes.Buffer
	sc.SetAuditLogger(instrumentation.NewAuditLoggerWithConfig(
		slogJSON(&buf), instrumentation.AuditLoggingConfig{Enabled: true}))
	h := newTestHTTPServer(t, sc).Handler()

	rec := postClassify(t, h, `{"query": "Create a task to call Sarah"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var line map[string]interface{}
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &line))
	assert.Equal(t, "tool_executed", line["msg"])
	assert.Equal(t, "rest", line["transport"])
	assert.Equal(t, intent.ProviderReclaim, line["provider"])
	assert.NotContains(t, buf.String(), "call Sarah", "raw query must not be logged")
}

func TestHTTPServer_MCPEndpointMounted(t *testing.T) {
	h := newTestHTTPServer(t, newTestServerContext(t)).Handler()

	body := `{"jsonrpc":"2.0","id":1,"method":"initialize","params":{"protocolVersion":"2025-03-26","capabilities":{},"clientInfo":{"name":"test","version":"1"}}}`
	req := httptest.NewRequest(http.MethodPost, MCPPath, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json, text/event-stream")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), "agendarouter-test")
}

func TestHTTPServer_HealthEndpoints(t *testing.T) {
	h := newTestHTTPServer(t, newTestServerContext(t)).Handler()

	for _, path := range []string{"/healthz", "/readyz", "/healthz/detailed"} {
		t.Run(path, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
			assert.Equal(t, http.StatusOK, rec.Code)
		})
	}
}

func TestInstrumentationMiddleware_RecordsRoutePattern(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })
	metrics, err := instrumentation.NewMetrics(mp.Meter("test"), false)
	require.NoError(t, err)

	sc := newTestServerContext(t)
	sc.SetMetrics(metrics)
	h := newTestHTTPServer(t, sc).Handler()

	postClassify(t, h, `{"query": "add a task"}`)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/no/such/path", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	paths := map[string]int64{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != "http_requests_total" {
				continue
			}
			for _, dp := range m.Data.(metricdata.Sum[int64]).DataPoints {
				v, _ := dp.Attributes.Value("path")
				paths[v.AsString()] += dp.Value
			}
		}
	}
	assert.Equal(t, int64(1), paths[ClassifyPath])
	assert.Equal(t, int64(1), paths["unmatched"])
}

func TestResponseWriter(t *testing.T) {
	t.Run("captures first status code", func(t *testing.T) {
		recorder := httptest.NewRecorder()
		rw := newResponseWriter(recorder)

		rw.WriteHeader(http.StatusNotFound)
		rw.WriteHeader(http.StatusOK)

		assert.Equal(t, http.StatusNotFound, rw.statusCode)
		assert.Equal(t, http.StatusNotFound, recorder.Code)
	})

	t.Run("defaults to 200", func(t *testing.T) {
		rw := newResponseWriter(httptest.NewRecorder())
		assert.Equal(t, http.StatusOK, rw.statusCode)
	})

	t.Run("flushes underlying writer", func(t *testing.T) {
		recorder := httptest.NewRecorder()
		rw := newResponseWriter(recorder)
		rw.Flush()
		assert.True(t, recorder.Flushed)
		assert.Equal(t, recorder, rw.Unwrap())
	})
}

func TestHTTPServer_StartAndShutdown(t *testing.T) {
	s := newTestHTTPServer(t, newTestServerContext(t))

	ready := make(chan struct{})
	errCh := make(chan error, 1)
	go func() { errCh <- s.Start("127.0.0.1:0", ready) }()

	select {
	case <-ready:
	case err := <-errCh:
		t.Fatalf("server failed to start: %v", err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not start")
	}

	resp, err := http.Post("http://"+s.Addr()+ClassifyPath, "application/json",
		strings.NewReader(`{"query": "Create a task to review the budget"}`))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, s.Shutdown(ctx))
	assert.ErrorIs(t, <-errCh, http.ErrServerClosed)
	assert.False(t, s.HealthChecker().IsReady())
}
