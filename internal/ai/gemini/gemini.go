// Package gemini implements the analysis provider backed by Google
// Gemini models via langchaingo.
package gemini

import (
	"context"
	"fmt"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/googleai"

	"github.com/codeargus/internal/ai"
	"github.com/codeargus/internal/prompts"
	"github.com/codeargus/pkg/models"
)

const providerName = "gemini"

// Config contains the settings needed to talk to Gemini
type Config struct {
	APIKey      string
	Model       string
	Temperature float64
	MaxTokens   int
}

// Provider is the Gemini analysis provider
type Provider struct {
	llm     llms.Model
	config  Config
	builder *prompts.Builder
}

// New creates a Gemini provider
func New(config Config) (*Provider, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}
	if config.Model == "" {
		config.Model = "gemini-2.5-flash"
	}

	maxTokens := config.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 8192
	}

	opts := []googleai.Option{
		googleai.WithAPIKey(config.APIKey),
		googleai.WithDefaultModel(config.Model),
		googleai.WithDefaultMaxTokens(maxTokens),
	}

	llm, err := googleai.New(context.Background(), opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Gemini LLM: %w", err)
	}

	return &Provider{
		llm:     llm,
		config:  config,
		builder: prompts.NewBuilder(),
	}, nil
}

// Name returns the provider's name
func (p *Provider) Name() string {
	return providerName
}

// Identity returns the provider/model pair used for cache namespacing
func (p *Provider) Identity() string {
	return fmt.Sprintf("%s/%s", providerName, p.config.Model)
}

// Analyze sends the request to Gemini and normalizes the reply
func (p *Provider) Analyze(ctx context.Context, req *models.AnalysisRequest) (*models.AnalysisResult, error) {
	messages := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, p.builder.System(req)),
		llms.TextParts(llms.ChatMessageTypeHuman, p.builder.User(req)),
	}

	resp, err := p.llm.GenerateContent(ctx, messages,
		llms.WithTemperature(req.Params.Temperature),
	)
	if err != nil {
		return nil, ai.Classify(providerName, err)
	}
	if len(resp.Choices) == 0 {
		return nil, &ai.ProviderError{
			Kind:     ai.KindMalformedResponse,
			Provider: providerName,
			Err:      fmt.Errorf("empty response from model"),
		}
	}

	return ai.ParseResult(resp.Choices[0].Content, providerName, p.config.Model, req.FocusAreas), nil
}

var _ ai.Provider = (*Provider)(nil)
