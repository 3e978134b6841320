package resources

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/agendarouter/internal/server"
)

// Resource URIs.
const (
	ConfigURI     = "router://config"
	VocabularyURI = "router://vocabulary"
)

// RouterConfig is the payload of the router://config resource.
type RouterConfig struct {
	Backend          string   `json:"backend"`
	Fallback         string   `json:"fallback"`
	TaskProvider     string   `json:"task_provider"`
	CalendarProvider string   `json:"calendar_provider"`
	ExtraProviders   []string `json:"extra_providers,omitempty"`
	DefaultProvider  string   `json:"default_provider,omitempty"`
	Timeout          string   `json:"timeout"`
	MaxRetries       int      `json:"max_retries"`
}

// RegisterRoutingResources registers read-only resources describing how the
// router is configured.
func RegisterRoutingResources(s *mcpserver.MCPServer, sc *server.ServerContext) error {
	if s == nil || sc == nil {
		return fmt.Errorf("mcp server and server context are required")
	}

	configResource := mcp.NewResource(
		ConfigURI,
		"Router Configuration",
		mcp.WithResourceDescription("Providers, classifier backend and retry settings of the intent router"),
		mcp.WithMIMEType("application/json"),
	)
	s.AddResource(configResource, func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		return handleRouterConfig(ctx, request, sc)
	})

	vocabularyResource := mcp.NewResource(
		VocabularyURI,
		"Routing Vocabulary",
		mcp.WithResourceDescription("Keyword tables used by the rule-based classifier"),
		mcp.WithMIMEType("application/json"),
	)
	s.AddResource(vocabularyResource, func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		return handleVocabulary(ctx, request, sc)
	})

	return nil
}

func handleRouterConfig(_ context.Context, request mcp.ReadResourceRequest, sc *server.ServerContext) ([]mcp.ResourceContents, error) {
	router := sc.Router()
	cfg := router.Config()

	return jsonContents(request.Params.URI, RouterConfig{
		Backend:          router.Backend(),
		Fallback:         string(cfg.Fallback),
		TaskProvider:     cfg.TaskProvider,
		CalendarProvider: cfg.CalendarProvider,
		ExtraProviders:   cfg.ExtraProviders,
		DefaultProvider:  cfg.DefaultProvider,
		Timeout:          cfg.Timeout.String(),
		MaxRetries:       cfg.MaxRetries,
	})
}

func handleVocabulary(_ context.Context, request mcp.ReadResourceRequest, sc *server.ServerContext) ([]mcp.ResourceContents, error) {
	return jsonContents(request.Params.URI, sc.Router().Config().Vocabulary)
}

func jsonContents(uri string, v interface{}) ([]mcp.ResourceContents, error) {
	jsonData, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s: %w", uri, err)
	}

	return []mcp.ResourceContents{
		&mcp.TextResourceContents{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(jsonData),
		},
	}, nil
}
