package processor_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mbarlow/docchat/pkg/processor"
)

func TestChunkPagesAttachesProvenance(t *testing.T) {
	p := processor.NewWithConfig(processor.ProcessorConfig{ChunkSize: 1000, ChunkOverlap: 100})

	pages := []processor.Page{
		{Number: 1, Text: "Raft is a consensus algorithm for managing a replicated log."},
		{Number: 2, Text: "Leaders are elected with randomized timeouts."},
	}

	chunks, err := p.ChunkPages("papers", "doc-1", "raft.pdf", pages)
	require.NoError(t, err)
	require.Len(t, chunks, 2)

	for _, chunk := range chunks {
		assert.Equal(t, "doc-1", chunk.Metadata.SourceDocumentID)
		assert.Equal(t, "raft.pdf", chunk.Metadata.FileName)
		assert.Equal(t, "papers", chunk.Metadata.Namespace)
	}
	assert.Equal(t, 1, chunks[0].Metadata.PageNumber)
	assert.Equal(t, 2, chunks[1].Metadata.PageNumber)
}

func TestChunkIndexRunsAcrossPages(t *testing.T) {
	p := processor.NewWithConfig(processor.ProcessorConfig{ChunkSize: 60, ChunkOverlap: 10})

	long := strings.Repeat("every chunk needs distinct words to split on. ", 6)
	pages := []processor.Page{
		{Number: 1, Text: long},
		{Number: 2, Text: long},
	}

	chunks, err := p.ChunkPages("papers", "doc-1", "raft.pdf", pages)
	require.NoError(t, err)
	require.Greater(t, len(chunks), 2, "long pages should split into multiple chunks")

	for i, chunk := range chunks {
		assert.Equal(t, i, chunk.Metadata.ChunkIndex, "index must be document-wide, not per page")
	}
}

func TestChunkPagesSkipsBlankPages(t *testing.T) {
	p := processor.NewWithConfig(processor.ProcessorConfig{})

	pages := []processor.Page{
		{Number: 1, Text: "   \n\n  "},
		{Number: 2, Text: "real content"},
	}

	chunks, err := p.ChunkPages("papers", "doc-1", "notes.txt", pages)
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, 2, chunks[0].Metadata.PageNumber)
	assert.Equal(t, 0, chunks[0].Metadata.ChunkIndex)
}

func TestChunkPagesNormalizesWhitespace(t *testing.T) {
	p := processor.NewWithConfig(processor.ProcessorConfig{})

	pages := []processor.Page{
		{Number: 1, Text: "spaced    out\ttext\n\n\nsecond   paragraph"},
	}

	chunks, err := p.ChunkPages("papers", "doc-1", "notes.txt", pages)
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.NotContains(t, chunks[0].Text, "  ", "runs of whitespace collapse")
	assert.Contains(t, chunks[0].Text, "spaced out")
	assert.Contains(t, chunks[0].Text, "second paragraph")
}

func TestChunkPagesEmptyDocument(t *testing.T) {
	p := processor.NewWithConfig(processor.ProcessorConfig{})
	chunks, err := p.ChunkPages("papers", "doc-1", "empty.pdf", nil)
	require.NoError(t, err)
	assert.Empty(t, chunks)
}
