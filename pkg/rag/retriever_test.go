package rag_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mbarlow/docchat/internal/log"
	"github.com/mbarlow/docchat/internal/models"
	"github.com/mbarlow/docchat/internal/testutil"
	"github.com/mbarlow/docchat/pkg/rag"
)

func TestRetrieveObserverSeesResultsOnce(t *testing.T) {
	index := &testutil.StaticIndex{Results: []models.Chunk{
		chunkOn("doc", 1, "one"),
		chunkOn("doc", 2, "two"),
	}}
	retriever := rag.NewVectorRetriever(&testutil.HashEmbedder{}, index, 2, log.NewNop())

	var observed [][]models.Chunk
	retriever.OnRetrieved = func(chunks []models.Chunk) {
		observed = append(observed, chunks)
	}

	chunks, err := retriever.Retrieve(context.Background(), "papers", "query")
	require.NoError(t, err)

	require.Len(t, observed, 1, "observer fires exactly once per call")
	assert.Equal(t, chunks, observed[0])
	assert.Equal(t, []int{2}, index.SearchedTopKs)
}

func TestRetrieveSearchErrorPropagates(t *testing.T) {
	index := &testutil.StaticIndex{SearchErr: errors.New("index offline")}
	retriever := rag.NewVectorRetriever(&testutil.HashEmbedder{}, index, 4, log.NewNop())

	called := false
	retriever.OnRetrieved = func([]models.Chunk) { called = true }

	_, err := retriever.Retrieve(context.Background(), "papers", "query")
	require.Error(t, err)
	assert.False(t, called, "observer must not fire on failure")
}

func TestRetrieveEmbedErrorPropagates(t *testing.T) {
	embedder := &testutil.HashEmbedder{Err: errors.New("embedding offline")}
	index := &testutil.StaticIndex{}
	retriever := rag.NewVectorRetriever(embedder, index, 4, log.NewNop())

	_, err := retriever.Retrieve(context.Background(), "papers", "query")
	require.Error(t, err)
	assert.Empty(t, index.SearchedIn, "search must not run without a query vector")
}
