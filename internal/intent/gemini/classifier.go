// Package gemini classifies requests with the Gemini API.
//
// The response is constrained to JSON matching the decision schema.
package gemini

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"google.golang.org/genai"

	"github.com/teemow/agendarouter/internal/intent"
)

// DefaultModel is used when no model is configured.
const DefaultModel = "gemini-2.5-flash"

// ContentGenerator is the part of the genai client the classifier needs.
// *genai.Models satisfies it.
type ContentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// Config configures the Gemini classifier.
type Config struct {
	APIKey string
	Model  string
	// Timeout bounds each HTTP request.
	Timeout time.Duration
}

// Classifier implements intent.Classifier with schema-constrained output.
type Classifier struct {
	models ContentGenerator
	model  string
	router intent.Config
}

// New creates a classifier that talks to the Gemini API.
func New(ctx context.Context, cfg Config, routing intent.Config) (*Classifier, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("Gemini API key is required")
	}
	clientCfg := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.Timeout > 0 {
		clientCfg.HTTPClient = &http.Client{Timeout: cfg.Timeout}
	}
	client, err := genai.NewClient(ctx, clientCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}
	return NewWithGenerator(client.Models, cfg.Model, routing), nil
}

// NewWithGenerator creates a classifier over an existing generator.
func NewWithGenerator(models ContentGenerator, model string, routing intent.Config) *Classifier {
	if model == "" {
		model = DefaultModel
	}
	return &Classifier{models: models, model: model, router: routing}
}

// Name implements intent.Classifier.
func (c *Classifier) Name() string { return intent.SourceGemini }

// Model returns the configured model name.
func (c *Classifier) Model() string { return c.model }

// Classify implements intent.Classifier.
func (c *Classifier) Classify(ctx context.Context, req intent.Request) (intent.Decision, error) {
	contents := []*genai.Content{
		genai.NewContentFromText(intent.UserPrompt(req), genai.RoleUser),
	}
	resp, err := c.models.GenerateContent(ctx, c.model, contents, c.generateConfig())
	if err != nil {
		return intent.Decision{}, fmt.Errorf("GenAI generate failed: %w", err)
	}

	text := responseText(resp)
	if text == "" {
		return intent.Decision{}, intent.MalformedError("no candidates returned from Gemini")
	}
	return intent.DecodeDecision(text, c.router)
}

func (c *Classifier) generateConfig() *genai.GenerateContentConfig {
	temperature := float32(0)
	return &genai.GenerateContentConfig{
		SystemInstruction: &genai.Content{Parts: []*genai.Part{{Text: intent.SystemPrompt(c.router)}}},
		Temperature:       &temperature,
		ResponseMIMEType:  "application/json",
		ResponseSchema:    DecisionSchema(c.router),
	}
}

// DecisionSchema is the decision schema in genai form.
func DecisionSchema(cfg intent.Config) *genai.Schema {
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"provider":    {Type: genai.TypeString, Enum: cfg.Providers()},
			"domain":      {Type: genai.TypeString, Enum: cfg.Domains()},
			"intent_type": {Type: genai.TypeString, Enum: intent.KnownIntentTypes},
			"involves_others": {
				Type:        genai.TypeBoolean,
				Description: "True if the event or task involves other people. False for solo activities.",
			},
			"confidence": {Type: genai.TypeNumber, Description: "Confidence in the routing decision, from 0 to 1."},
			"reasoning":  {Type: genai.TypeString, Description: "One sentence explaining the decision."},
		},
		Required:         []string{"provider", "domain", "intent_type", "involves_others", "confidence", "reasoning"},
		PropertyOrdering: []string{"provider", "domain", "intent_type", "involves_others", "confidence", "reasoning"},
	}
}

// responseText joins the text parts of the first candidate.
func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 {
		return ""
	}
	cand := resp.Candidates[0]
	if cand.Content == nil {
		return ""
	}
	var b strings.Builder
	for _, p := range cand.Content.Parts {
		if p != nil && !p.Thought {
			b.WriteString(p.Text)
		}
	}
	return strings.TrimSpace(b.String())
}

var _ intent.Classifier = (*Classifier)(nil)
