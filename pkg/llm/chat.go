package llm

import (
	"context"
	"fmt"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

// ChatConfig configures the chat model client. BaseURL points at any
// OpenAI-compatible endpoint (Together, a local server, or api.openai.com
// when empty).
type ChatConfig struct {
	Model       string
	Temperature float64
	MaxTokens   int
	BaseURL     string
	APIKey      string
}

// ChatEngine wraps the generative model used for query rewriting and
// answer synthesis. Construct one per process and inject it; nothing in
// this package holds module-scope client state.
type ChatEngine struct {
	config ChatConfig
	model  llms.Model
}

// NewWithConfig creates a new ChatEngine with the given configuration.
func NewWithConfig(config ChatConfig) (*ChatEngine, error) {
	if config.Model == "" {
		config.Model = "mistralai/Mixtral-8x7B-Instruct-v0.1"
	}
	if config.Temperature < 0 || config.Temperature > 2 {
		return nil, fmt.Errorf("temperature must be between 0 and 2")
	}
	if config.MaxTokens < 0 {
		return nil, fmt.Errorf("max tokens cannot be negative")
	} else if config.MaxTokens == 0 {
		config.MaxTokens = 2000
	}

	opts := []openai.Option{
		openai.WithModel(config.Model),
	}
	if config.BaseURL != "" {
		opts = append(opts, openai.WithBaseURL(config.BaseURL))
	}
	if config.APIKey != "" {
		opts = append(opts, openai.WithToken(config.APIKey))
	}

	model, err := openai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize LLM: %w", err)
	}

	return &ChatEngine{
		config: config,
		model:  model,
	}, nil
}

// GenerateContent forwards to the underlying model with the engine's
// temperature and token limits applied.
func (ce *ChatEngine) GenerateContent(ctx context.Context, messages []llms.MessageContent, opts ...llms.CallOption) (*llms.ContentResponse, error) {
	callOpts := append([]llms.CallOption{
		llms.WithTemperature(ce.config.Temperature),
		llms.WithMaxTokens(ce.config.MaxTokens),
	}, opts...)

	resp, err := ce.model.GenerateContent(ctx, messages, callOpts...)
	if err != nil {
		return nil, fmt.Errorf("chat error: %w", err)
	}
	return resp, nil
}
