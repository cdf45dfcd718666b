package testutil

import (
	"context"

	"github.com/mbarlow/docchat/internal/models"
)

// StaticIndex is a types.VectorIndex that ignores vectors and returns a
// fixed result set, recording what was upserted.
type StaticIndex struct {
	Results []models.Chunk
	// SearchErr, when set, fails Search.
	SearchErr error
	// UpsertErr, when set, fails Upsert.
	UpsertErr error

	Upserted      []models.EmbeddedChunk
	SearchedIn    []string
	SearchedTopKs []int
}

func (s *StaticIndex) Upsert(ctx context.Context, namespace string, chunks []models.EmbeddedChunk) error {
	if s.UpsertErr != nil {
		return s.UpsertErr
	}
	s.Upserted = append(s.Upserted, chunks...)
	return nil
}

func (s *StaticIndex) Search(ctx context.Context, namespace string, vector []float32, topK int) ([]models.Chunk, error) {
	s.SearchedIn = append(s.SearchedIn, namespace)
	s.SearchedTopKs = append(s.SearchedTopKs, topK)
	if s.SearchErr != nil {
		return nil, s.SearchErr
	}
	return s.Results, nil
}
