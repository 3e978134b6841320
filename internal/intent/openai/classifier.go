// Package openai classifies requests with the OpenAI Chat Completions API.
//
// The model is forced to call a single strict analyze_intent function whose
// arguments are the routing decision.
package openai

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	goopenai "github.com/sashabaranov/go-openai"

	"github.com/teemow/agendarouter/internal/intent"
)

// DefaultModel is used when no model is configured.
const DefaultModel = "gpt-4o-mini"

// ChatCompleter is the part of the OpenAI client the classifier needs.
type ChatCompleter interface {
	CreateChatCompletion(ctx context.Context, req goopenai.ChatCompletionRequest) (goopenai.ChatCompletionResponse, error)
}

// Config configures the OpenAI classifier.
type Config struct {
	APIKey  string
	Model   string
	BaseURL string
	// Timeout bounds each HTTP request.
	Timeout time.Duration
}

// Classifier implements intent.Classifier on top of function calling.
type Classifier struct {
	client ChatCompleter
	model  string
	router intent.Config
}

// New creates a classifier that talks to the OpenAI API.
func New(cfg Config, routing intent.Config) (*Classifier, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("OpenAI API key is required")
	}
	clientCfg := goopenai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	}
	if cfg.Timeout > 0 {
		clientCfg.HTTPClient = &http.Client{Timeout: cfg.Timeout}
	}
	return NewWithClient(goopenai.NewClientWithConfig(clientCfg), cfg.Model, routing), nil
}

// NewWithClient creates a classifier over an existing client.
func NewWithClient(client ChatCompleter, model string, routing intent.Config) *Classifier {
	if model == "" {
		model = DefaultModel
	}
	return &Classifier{client: client, model: model, router: routing}
}

// Name implements intent.Classifier.
func (c *Classifier) Name() string { return intent.SourceOpenAI }

// Model returns the configured model name.
func (c *Classifier) Model() string { return c.model }

// Classify implements intent.Classifier.
func (c *Classifier) Classify(ctx context.Context, req intent.Request) (intent.Decision, error) {
	resp, err := c.client.CreateChatCompletion(ctx, c.request(req))
	if err != nil {
		return intent.Decision{}, fmt.Errorf("openai chat completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return intent.Decision{}, intent.MalformedError("no choices returned from OpenAI")
	}

	msg := resp.Choices[0].Message
	for _, call := range msg.ToolCalls {
		if call.Function.Name == intent.DecisionToolName {
			return intent.DecodeDecision(call.Function.Arguments, c.router)
		}
	}
	// Some compatible servers ignore tool_choice and answer in content.
	if strings.TrimSpace(msg.Content) != "" {
		return intent.DecodeDecision(msg.Content, c.router)
	}
	return intent.Decision{}, intent.MalformedError("model did not call %s", intent.DecisionToolName)
}

func (c *Classifier) request(req intent.Request) goopenai.ChatCompletionRequest {
	return goopenai.ChatCompletionRequest{
		Model: c.model,
		Messages: []goopenai.ChatCompletionMessage{
			{Role: goopenai.ChatMessageRoleSystem, Content: intent.SystemPrompt(c.router)},
			{Role: goopenai.ChatMessageRoleUser, Content: intent.UserPrompt(req)},
		},
		Tools: []goopenai.Tool{
			{
				Type: goopenai.ToolTypeFunction,
				Function: &goopenai.FunctionDefinition{
					Name:        intent.DecisionToolName,
					Description: intent.DecisionToolDescription,
					Strict:      true,
					Parameters:  intent.DecisionSchema(c.router),
				},
			},
		},
		ToolChoice: goopenai.ToolChoice{
			Type:     goopenai.ToolTypeFunction,
			Function: goopenai.ToolFunction{Name: intent.DecisionToolName},
		},
	}
}

var _ intent.Classifier = (*Classifier)(nil)
