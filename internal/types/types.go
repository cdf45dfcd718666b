package types

import (
	"context"

	"github.com/tmc/langchaingo/llms"

	"github.com/mbarlow/docchat/internal/models"
)

// Core interfaces. Defined on the consumer side so each component depends
// on the capability it needs, not on a concrete client.

// Embedder turns text into fixed-dimension vectors.
type Embedder interface {
	EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// VectorIndex is the namespace-scoped gateway over the vector database.
// Implementations apply the namespace filter themselves; callers cannot
// opt out of isolation. Searching an unknown namespace returns an empty
// list, not an error.
type VectorIndex interface {
	Upsert(ctx context.Context, namespace string, chunks []models.EmbeddedChunk) error
	Search(ctx context.Context, namespace string, queryVector []float32, topK int) ([]models.Chunk, error)
}

// ChatModel is the generative language model boundary. Streaming is
// requested per call with llms.WithStreamingFunc.
type ChatModel interface {
	GenerateContent(ctx context.Context, messages []llms.MessageContent, opts ...llms.CallOption) (*llms.ContentResponse, error)
}

// Splitter breaks document text into overlapping chunks.
type Splitter interface {
	SplitText(text string) ([]string, error)
}

// Catalog records ingested documents for folder and file listings.
type Catalog interface {
	CreateDocument(ctx context.Context, doc models.Document) (models.Document, error)
	ListFolders(ctx context.Context, userID string) ([]string, error)
	ListFiles(ctx context.Context, userID, namespace string) ([]models.Document, error)
}
