package processor

import (
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/textsplitter"

	"github.com/mbarlow/docchat/internal/models"
)

type ProcessorConfig struct {
	ChunkSize    int
	ChunkOverlap int
}

// Page is one page of extracted document text. Extraction that has no page
// structure (plain text, HTML) produces a single page numbered 1.
type Page struct {
	Number int
	Text   string
}

// Processor splits extracted document text into overlapping chunks and
// attaches provenance metadata.
type Processor struct {
	config   ProcessorConfig
	splitter textsplitter.RecursiveCharacter
}

func NewWithConfig(config ProcessorConfig) Processor {
	if config.ChunkSize == 0 {
		config.ChunkSize = 1000
	}
	if config.ChunkOverlap == 0 {
		config.ChunkOverlap = 200
	}

	return Processor{
		config: config,
		splitter: textsplitter.NewRecursiveCharacter(
			textsplitter.WithChunkSize(config.ChunkSize),
			textsplitter.WithChunkOverlap(config.ChunkOverlap),
		),
	}
}

// ChunkPages splits every page and returns the chunks in page order.
// ChunkIndex runs across the whole document, so (namespace, documentID,
// chunkIndex) stays unique however many pages there are.
func (p *Processor) ChunkPages(namespace, documentID, fileName string, pages []Page) ([]models.Chunk, error) {
	var chunks []models.Chunk
	index := 0

	for _, page := range pages {
		text := normalizeWhitespace(page.Text)
		if text == "" {
			continue
		}

		parts, err := p.splitter.SplitText(text)
		if err != nil {
			return nil, fmt.Errorf("failed to split page %d: %w", page.Number, err)
		}

		for _, part := range parts {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			chunks = append(chunks, models.Chunk{
				Text: part,
				Metadata: models.ChunkMetadata{
					SourceDocumentID: documentID,
					FileName:         fileName,
					PageNumber:       page.Number,
					ChunkIndex:       index,
					Namespace:        namespace,
				},
			})
			index++
		}
	}

	return chunks, nil
}

// normalizeWhitespace collapses runs of whitespace but keeps paragraph
// breaks, which the recursive splitter prefers as split points.
func normalizeWhitespace(text string) string {
	paragraphs := strings.Split(text, "\n\n")
	cleaned := make([]string, 0, len(paragraphs))
	for _, para := range paragraphs {
		para = strings.Join(strings.Fields(para), " ")
		if para != "" {
			cleaned = append(cleaned, para)
		}
	}
	return strings.Join(cleaned, "\n\n")
}
