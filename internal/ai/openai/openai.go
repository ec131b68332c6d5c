// Package openai implements the analysis provider for the OpenAI API
// and OpenAI-compatible endpoints (local LLM servers included) via
// langchaingo.
package openai

import (
	"context"
	"fmt"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"

	"github.com/codeargus/internal/ai"
	"github.com/codeargus/internal/prompts"
	"github.com/codeargus/pkg/models"
)

const providerName = "openai"

// Config contains the settings needed to talk to an OpenAI-compatible
// endpoint. BaseURL is only set for non-default endpoints; APIKey may
// be empty for local servers that don't authenticate.
type Config struct {
	APIKey      string
	Model       string
	BaseURL     string
	Temperature float64
	MaxTokens   int
}

// Provider is the OpenAI-compatible analysis provider
type Provider struct {
	llm     llms.Model
	config  Config
	builder *prompts.Builder
}

// New creates an OpenAI-compatible provider
func New(config Config) (*Provider, error) {
	if config.Model == "" {
		return nil, fmt.Errorf("openai model is required")
	}
	if config.APIKey == "" && config.BaseURL == "" {
		return nil, fmt.Errorf("openai API key is required")
	}

	opts := []openai.Option{
		openai.WithModel(config.Model),
	}
	if config.APIKey != "" {
		opts = append(opts, openai.WithToken(config.APIKey))
	}
	if config.BaseURL != "" {
		opts = append(opts, openai.WithBaseURL(config.BaseURL))
	}

	llm, err := openai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize OpenAI LLM: %w", err)
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

// Analyze sends the request and normalizes the reply
func (p *Provider) Analyze(ctx context.Context, req *models.AnalysisRequest) (*models.AnalysisResult, error) {
	messages := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, p.builder.System(req)),
		llms.TextParts(llms.ChatMessageTypeHuman, p.builder.User(req)),
	}

	callOpts := []llms.CallOption{
		llms.WithTemperature(req.Params.Temperature),
	}
	if req.Params.MaxTokens > 0 {
		callOpts = append(callOpts, llms.WithMaxTokens(req.Params.MaxTokens))
	}

	resp, err := p.llm.GenerateContent(ctx, messages, callOpts...)
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
