package rag

import (
	"context"
	"fmt"

	"github.com/mbarlow/docchat/internal/log"
	"github.com/mbarlow/docchat/internal/models"
	"github.com/mbarlow/docchat/internal/types"
)

// Retriever fetches the chunks most similar to a query within one
// namespace.
type Retriever interface {
	Retrieve(ctx context.Context, namespace, query string) ([]models.Chunk, error)
}

// VectorRetriever embeds the query and searches the vector index. The
// namespace filter lives in the index gateway, so no retrieval can cross
// folders. Results are returned directly rather than through an
// out-of-band callback; the caller owns them before synthesis starts.
type VectorRetriever struct {
	embedder types.Embedder
	index    types.VectorIndex
	topK     int
	logger   log.Logger

	// OnRetrieved, when set, observes the ordered result list. It is
	// invoked exactly once per Retrieve call, synchronously, before the
	// results are returned.
	OnRetrieved func(chunks []models.Chunk)
}

func NewVectorRetriever(embedder types.Embedder, index types.VectorIndex, topK int, logger log.Logger) *VectorRetriever {
	if topK <= 0 {
		topK = 4
	}
	return &VectorRetriever{
		embedder: embedder,
		index:    index,
		topK:     topK,
		logger:   logger,
	}
}

func (r *VectorRetriever) Retrieve(ctx context.Context, namespace, query string) ([]models.Chunk, error) {
	vector, err := r.embedder.EmbedQuery(ctx, query)
	if err != nil {
		r.logger.Error("query embedding failed", "stage", "retrieve", "namespace", namespace, "error", err)
		return nil, fmt.Errorf("embed query: %w", err)
	}

	chunks, err := r.index.Search(ctx, namespace, vector, r.topK)
	if err != nil {
		r.logger.Error("vector search failed", "stage", "retrieve", "namespace", namespace, "error", err)
		return nil, fmt.Errorf("search namespace %q: %w", namespace, err)
	}

	// An empty corpus is a valid state, not an error.
	r.logger.Debug("retrieved chunks", "namespace", namespace, "count", len(chunks))

	if r.OnRetrieved != nil {
		r.OnRetrieved(chunks)
	}
	return chunks, nil
}
