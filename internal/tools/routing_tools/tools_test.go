package routing_tools

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teemow/agendarouter/internal/intent"
	"github.com/teemow/agendarouter/internal/server"
)

func newServerContext(t *testing.T, cfg intent.Config) *server.ServerContext {
	t.Helper()
	router, err := intent.NewRouter(cfg, nil)
	require.NoError(t, err)
	sc, err := server.NewServerContext(context.Background(), router, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = sc.Shutdown() })
	return sc
}

func callRequest(args map[string]interface{}) mcp.CallToolRequest {
	var req mcp.CallToolRequest
	req.Params.Arguments = args
	return req
}

func resultText(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	require.NotNil(t, res)
	require.NotEmpty(t, res.Content)
	text, ok := mcp.AsTextContent(res.Content[0])
	require.True(t, ok, "expected text content")
	return text.Text
}

func TestRegisterRoutingTools(t *testing.T) {
	sc := newServerContext(t, intent.DefaultConfig())
	s := mcpserver.NewMCPServer("test", "0.0.0", mcpserver.WithToolCapabilities(true))

	require.NoError(t, RegisterRoutingTools(s, sc))

	tools := s.ListTools()
	assert.Contains(t, tools, ClassifyIntentTool)
	assert.Contains(t, tools, ListProvidersTool)
	assert.Contains(t, tools[ClassifyIntentTool].Tool.InputSchema.Required, "query")
}

func TestRegisterRoutingTools_RequiresArguments(t *testing.T) {
	sc := newServerContext(t, intent.DefaultConfig())
	assert.Error(t, RegisterRoutingTools(nil, sc))
	assert.Error(t, RegisterRoutingTools(mcpserver.NewMCPServer("test", "0.0.0"), nil))
}

func TestClassifyIntent(t *testing.T) {
	handler := handleClassifyIntent(newServerContext(t, intent.DefaultConfig()))

	tests := []struct {
		name           string
		args           map[string]interface{}
		wantProvider   string
		wantIntent     string
		wantApproval   bool
		wantInvolves   bool
		wantSpecificTm bool
	}{
		{
			name:         "task vocabulary",
			args:         map[string]interface{}{"query": "Create a task to review the budget"},
			wantProvider: intent.ProviderReclaim,
			wantIntent:   intent.IntentCreate,
		},
		{
			name:         "single task delete",
			args:         map[string]interface{}{"query": "Task to delete without approval"},
			wantProvider: intent.ProviderReclaim,
			wantIntent:   intent.IntentDelete,
		},
		{
			name:         "bulk task delete needs approval",
			args:         map[string]interface{}{"query": "Delete all my tasks for this week"},
			wantProvider: intent.ProviderReclaim,
			wantIntent:   intent.IntentDelete,
			wantApproval: true,
		},
		{
			name: "meeting with a time",
			args: map[string]interface{}{
				"query":         "Schedule a meeting tomorrow at 2pm",
				"user_timezone": "America/New_York",
				"current_date":  "2025-07-29",
				"current_time":  "11:00:00",
			},
			wantProvider:   intent.ProviderNylas,
			wantIntent:     intent.IntentSchedule,
			wantSpecificTm: true,
		},
		{
			name:           "team standup involves others",
			args:           map[string]interface{}{"query": "Set up a team standup on monday at 9am"},
			wantProvider:   intent.ProviderNylas,
			wantIntent:     intent.IntentSchedule,
			wantApproval:   true,
			wantInvolves:   true,
			wantSpecificTm: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := handler(context.Background(), callRequest(tt.args))
			require.NoError(t, err)
			require.False(t, res.IsError, resultText(t, res))

			var got intent.Result
			require.NoError(t, json.Unmarshal([]byte(resultText(t, res)), &got))
			assert.Equal(t, tt.wantProvider, got.Provider)
			assert.Equal(t, tt.wantIntent, got.IntentType)
			assert.Equal(t, tt.wantApproval, got.ApprovalRequired)
			assert.Equal(t, tt.wantInvolves, got.InvolvesOthers)
			assert.Equal(t, tt.wantSpecificTm, got.Time.HasSpecificTime)
			assert.Equal(t, intent.SourceHeuristic, got.Source)
		})
	}
}

func TestClassifyIntent_Errors(t *testing.T) {
	handler := handleClassifyIntent(newServerContext(t, intent.DefaultConfig()))

	tests := []struct {
		name     string
		args     map[string]interface{}
		contains string
	}{
		{name: "missing query", args: map[string]interface{}{}, contains: "query is required"},
		{name: "blank query", args: map[string]interface{}{"query": "   "}, contains: "Invalid request"},
		{name: "bad timezone", args: map[string]interface{}{"query": "add a task", "user_timezone": "Nowhere/Land"}, contains: "Invalid request"},
		{name: "bad date", args: map[string]interface{}{"query": "add a task", "current_date": "29/07/2025"}, contains: "Invalid request"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := handler(context.Background(), callRequest(tt.args))
			require.NoError(t, err)
			assert.True(t, res.IsError)
			assert.Contains(t, resultText(t, res), tt.contains)
		})
	}
}

func TestClassifyIntent_Undecided(t *testing.T) {
	cfg := intent.DefaultConfig()
	cfg.DefaultProvider = ""
	handler := handleClassifyIntent(newServerContext(t, cfg))

	res, err := handler(context.Background(), callRequest(map[string]interface{}{"query": "hello there"}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
	assert.Contains(t, resultText(t, res), "Could not decide")
}

func TestClassifyIntent_DefaultProvider(t *testing.T) {
	handler := handleClassifyIntent(newServerContext(t, intent.DefaultConfig()))

	res, err := handler(context.Background(), callRequest(map[string]interface{}{"query": "hello there"}))
	require.NoError(t, err)
	require.False(t, res.IsError)

	var got intent.Result
	require.NoError(t, json.Unmarshal([]byte(resultText(t, res)), &got))
	assert.Equal(t, intent.ProviderReclaim, got.Provider)
}

func TestListProviders(t *testing.T) {
	cfg := intent.DefaultConfig()
	cfg.DefaultProvider = intent.ProviderNylas
	cfg.ExtraProviders = []string{"motion"}
	handler := handleListProviders(newServerContext(t, cfg))

	res, err := handler(context.Background(), callRequest(nil))
	require.NoError(t, err)

	var got ProvidersResult
	require.NoError(t, json.Unmarshal([]byte(resultText(t, res)), &got))
	assert.Equal(t, intent.SourceHeuristic, got.Backend)
	assert.Equal(t, string(intent.FallbackHeuristic), got.Fallback)
	assert.Equal(t, []ProviderInfo{
		{Name: intent.ProviderReclaim, Domain: intent.DomainTask},
		{Name: intent.ProviderNylas, Domain: intent.DomainCalendar, Default: true},
		{Name: "motion", Domain: intent.DomainOther},
	}, got.Providers)
}
