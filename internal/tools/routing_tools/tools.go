package routing_tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/agendarouter/internal/intent"
	"github.com/teemow/agendarouter/internal/server"
	"github.com/teemow/agendarouter/internal/tools/common"
)

// Tool names.
const (
	ClassifyIntentTool = "classify_intent"
	ListProvidersTool  = "list_providers"
)

// RegisterRoutingTools registers the routing tools with the MCP server
func RegisterRoutingTools(s *mcpserver.MCPServer, sc *server.ServerContext) error {
	if s == nil || sc == nil {
		return errors.New("mcp server and server context are required")
	}

	classifyTool := mcp.NewTool(ClassifyIntentTool,
		mcp.WithDescription("Decide which provider should handle a natural-language productivity request. "+
			"Requests mentioning tasks go to the task provider; meetings, appointments and specific times go to the calendar provider. "+
			"Returns the provider, the intent type, whether other people are involved and whether the action needs user approval."),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("The user's request, e.g. 'Schedule a meeting with Sarah tomorrow at 2pm'"),
		),
		mcp.WithString("context",
			mcp.Description("Optional additional context about the request"),
		),
		mcp.WithString("user_timezone",
			mcp.Description("IANA timezone of the user (default: UTC)"),
		),
		mcp.WithString("current_date",
			mcp.Description("Current date in the user's timezone, YYYY-MM-DD (default: today)"),
		),
		mcp.WithString("current_time",
			mcp.Description("Current time in the user's timezone, HH:MM:SS (default: now)"),
		),
		mcp.WithReadOnlyHintAnnotation(true),
	)
	s.AddTool(classifyTool, common.InstrumentedToolHandler(ClassifyIntentTool, sc, handleClassifyIntent(sc)))

	listTool := mcp.NewTool(ListProvidersTool,
		mcp.WithDescription("List the providers requests can be routed to and the classifier backend in use"),
		mcp.WithReadOnlyHintAnnotation(true),
	)
	s.AddTool(listTool, common.InstrumentedToolHandler(ListProvidersTool, sc, handleListProviders(sc)))

	return nil
}

func handleClassifyIntent(sc *server.ServerContext) common.ToolHandler {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		query, err := request.RequireString("query")
		if err != nil || query == "" {
			return mcp.NewToolResultError("query is required"), nil
		}

		res, err := sc.Classify(ctx, server.ClassifyRequest{
			Query:        query,
			Context:      request.GetString("context", ""),
			UserTimezone: request.GetString("user_timezone", ""),
			CurrentDate:  request.GetString("current_date", ""),
			CurrentTime:  request.GetString("current_time", ""),
		})
		if err != nil {
			return mcp.NewToolResultError(errorMessage(err)), nil
		}

		if ti := common.InvocationFromContext(ctx); ti != nil {
			ti.WithResult(res)
		}

		out, err := json.MarshalIndent(res, "", "  ")
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Failed to encode result: %v", err)), nil
		}
		return mcp.NewToolResultText(string(out)), nil
	}
}

// ProviderInfo describes one routable provider.
type ProviderInfo struct {
	Name    string `json:"name"`
	Domain  string `json:"domain"`
	Default bool   `json:"default,omitempty"`
}

// ProvidersResult is the list_providers payload.
type ProvidersResult struct {
	Backend   string         `json:"backend"`
	Fallback  string         `json:"fallback"`
	Providers []ProviderInfo `json:"providers"`
}

func handleListProviders(sc *server.ServerContext) common.ToolHandler {
	return func(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		router := sc.Router()
		cfg := router.Config()

		result := ProvidersResult{
			Backend:  router.Backend(),
			Fallback: string(cfg.Fallback),
		}
		for _, p := range cfg.Providers() {
			result.Providers = append(result.Providers, ProviderInfo{
				Name:    p,
				Domain:  cfg.DomainFor(p),
				Default: p == cfg.DefaultProvider,
			})
		}

		out, _ := json.MarshalIndent(result, "", "  ")
		return mcp.NewToolResultText(string(out)), nil
	}
}

// errorMessage renders classification errors for the calling agent.
func errorMessage(err error) string {
	var ce *intent.ClassificationError
	switch {
	case errors.Is(err, intent.ErrInvalidInput):
		return fmt.Sprintf("Invalid request: %v", err)
	case errors.As(err, &ce) && ce.Reason == intent.ReasonUndecided:
		return fmt.Sprintf("Could not decide between providers: %v. Rephrase the request to mention a task or a calendar event.", err)
	case errors.As(err, &ce):
		return fmt.Sprintf("Classification failed: %v", err)
	default:
		return fmt.Sprintf("Unexpected error: %v", err)
	}
}
