package common

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/metric/noop"

	"github.com/teemow/agendarouter/internal/instrumentation"
	"github.com/teemow/agendarouter/internal/intent"
	"github.com/teemow/agendarouter/internal/server"
)

func newServerContext(t *testing.T) *server.ServerContext {
	t.Helper()
	router, err := intent.NewRouter(intent.DefaultConfig(), nil)
	require.NoError(t, err)
	sc, err := server.NewServerContext(context.Background(), router, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = sc.Shutdown() })
	return sc
}

func withAudit(t *testing.T, sc *server.ServerContext) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	sc.SetAuditLogger(instrumentation.NewAuditLoggerWithConfig(
		slog.New(slog.NewJSONHandler(&buf, nil)),
		instrumentation.AuditLoggingConfig{Enabled: true},
	))
	metrics, err := instrumentation.NewMetrics(noop.NewMeterProvider().Meter("test"), false)
	require.NoError(t, err)
	sc.SetMetrics(metrics)
	return &buf
}

func auditLine(t *testing.T, buf *bytes.Buffer) map[string]interface{} {
	t.Helper()
	var line map[string]interface{}
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &line))
	return line
}

func request(args map[string]interface{}) mcp.CallToolRequest {
	var req mcp.CallToolRequest
	req.Params.Arguments = args
	return req
}

func TestInstrumentedToolHandler_WithoutInstrumentation(t *testing.T) {
	sc := newServerContext(t)

	called := false
	wrapped := InstrumentedToolHandler("test_tool", sc, func(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		called = true
		assert.NotNil(t, InvocationFromContext(ctx))
		return mcp.NewToolResultText("success"), nil
	})

	result, err := wrapped(context.Background(), mcp.CallToolRequest{})
	require.NoError(t, err)
	assert.True(t, called)
	assert.False(t, result.IsError)
}

func TestInstrumentedToolHandler_Success(t *testing.T) {
	sc := newServerContext(t)
	buf := withAudit(t, sc)

	wrapped := InstrumentedToolHandler("classify_intent", sc, func(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		InvocationFromContext(ctx).WithResult(intent.Result{
			Provider: intent.ProviderReclaim, IntentType: intent.IntentCreate, Source: intent.SourceHeuristic,
		})
		return mcp.NewToolResultText("{}"), nil
	})

	ctx := server.ContextWithTransport(context.Background(), server.TransportStdio)
	_, err := wrapped(ctx, request(map[string]interface{}{"query": "Create a task for Sarah"}))
	require.NoError(t, err)

	line := auditLine(t, buf)
	assert.Equal(t, "tool_executed", line["msg"])
	assert.Equal(t, "classify_intent", line["tool"])
	assert.Equal(t, server.TransportStdio, line["transport"])
	assert.Equal(t, intent.ProviderReclaim, line["provider"])
	assert.NotEmpty(t, line["query_hash"])
	assert.NotContains(t, buf.String(), "Sarah")
}

func TestInstrumentedToolHandler_ToolError(t *testing.T) {
	sc := newServerContext(t)
	buf := withAudit(t, sc)

	wrapped := InstrumentedToolHandler("classify_intent", sc, func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return mcp.NewToolResultError("query is required"), nil
	})

	result, err := wrapped(context.Background(), mcp.CallToolRequest{})
	require.NoError(t, err)
	assert.True(t, result.IsError)

	line := auditLine(t, buf)
	assert.Equal(t, "tool_failed", line["msg"])
	assert.Equal(t, "query is required", line["error"])
}

func TestInstrumentedToolHandler_HandlerError(t *testing.T) {
	sc := newServerContext(t)
	buf := withAudit(t, sc)

	wrapped := InstrumentedToolHandler("classify_intent", sc, func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return nil, errors.New("internal failure")
	})

	result, err := wrapped(context.Background(), mcp.CallToolRequest{})
	assert.Error(t, err)
	assert.Nil(t, result)
	assert.Equal(t, "internal failure", auditLine(t, buf)["error"])
}

func TestInvocationFromContext_Outside(t *testing.T) {
	assert.Nil(t, InvocationFromContext(context.Background()))
}
