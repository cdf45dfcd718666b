package llm

import (
	"fmt"

	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/openai"
)

// EmbedderConfig configures the embedding model client.
type EmbedderConfig struct {
	Model   string
	BaseURL string
	APIKey  string
}

// NewEmbedder creates an embedder backed by an OpenAI-compatible
// embeddings endpoint.
func NewEmbedder(config EmbedderConfig) (*embeddings.EmbedderImpl, error) {
	if config.Model == "" {
		config.Model = "text-embedding-3-small"
	}

	opts := []openai.Option{
		openai.WithEmbeddingModel(config.Model),
	}
	if config.BaseURL != "" {
		opts = append(opts, openai.WithBaseURL(config.BaseURL))
	}
	if config.APIKey != "" {
		opts = append(opts, openai.WithToken(config.APIKey))
	}

	client, err := openai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize embedding client: %w", err)
	}

	embedder, err := embeddings.NewEmbedder(client)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize embedder: %w", err)
	}

	return embedder, nil
}
