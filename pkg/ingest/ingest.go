// Package ingest implements the document ingestion pipeline: fetch the
// file, extract its text, split it into overlapping chunks, embed them,
// and upsert them into the vector index under the request's namespace.
package ingest

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/mbarlow/docchat/internal/log"
	"github.com/mbarlow/docchat/internal/models"
	"github.com/mbarlow/docchat/internal/types"
	"github.com/mbarlow/docchat/pkg/processor"
)

// genericIngestError is the only failure detail a client sees; the real
// cause goes to the log.
const genericIngestError = "Failed to ingest your data"

// embedBatchSize bounds how many chunk texts go into one embedding call.
const embedBatchSize = 16

type PipelineConfig struct {
	FetchRetries   int
	FetchRetryWait time.Duration
	EmbedRate      float64 // embedding calls per second
	Timeout        time.Duration
}

// Pipeline ingests batches of files into a namespace. One file's failure
// never aborts the rest of the batch.
type Pipeline struct {
	config    PipelineConfig
	client    *http.Client
	embedder  types.Embedder
	index     types.VectorIndex
	processor processor.Processor
	limiter   *rate.Limiter
	logger    log.Logger

	// OnProgress, when set, is called after each file finishes,
	// successfully or not.
	OnProgress func(result models.FileResult)
}

func NewPipeline(config PipelineConfig, embedder types.Embedder, index types.VectorIndex, proc processor.Processor, logger log.Logger) *Pipeline {
	if config.FetchRetries == 0 {
		config.FetchRetries = 5
	}
	if config.FetchRetryWait == 0 {
		config.FetchRetryWait = 5 * time.Second
	}
	if config.EmbedRate == 0 {
		config.EmbedRate = 1.0
	}
	if config.Timeout == 0 {
		config.Timeout = 30 * time.Second
	}

	return &Pipeline{
		config:    config,
		client:    &http.Client{Timeout: config.Timeout},
		embedder:  embedder,
		index:     index,
		processor: proc,
		limiter:   rate.NewLimiter(rate.Limit(config.EmbedRate), 1),
		logger:    logger,
	}
}

// Ingest processes the files in order and returns one result per file.
// Failures are collected per file; the batch itself always succeeds.
func (p *Pipeline) Ingest(ctx context.Context, namespace string, files []models.FileRef) []models.FileResult {
	results := make([]models.FileResult, 0, len(files))

	p.logger.Info("starting ingestion", "namespace", namespace, "files", len(files))

	for _, file := range files {
		result := p.ingestFile(ctx, namespace, file)
		results = append(results, result)
		if p.OnProgress != nil {
			p.OnProgress(result)
		}
	}

	p.logger.Info("finished ingestion", "namespace", namespace, "files", len(files))
	return results
}

func (p *Pipeline) ingestFile(ctx context.Context, namespace string, file models.FileRef) models.FileResult {
	fail := func(stage string, err error) models.FileResult {
		p.logger.Error("ingestion failed",
			"file", file.FileName,
			"namespace", namespace,
			"stage", stage,
			"error", err,
		)
		return models.FileResult{Success: false, FileName: file.FileName, Error: genericIngestError}
	}

	body, contentType, err := p.fetchWithRetry(ctx, file.FileURL)
	if err != nil {
		return fail("fetch", err)
	}

	pages, err := extractPages(ctx, body, contentType, file.FileName)
	if err != nil {
		return fail("extract", err)
	}

	// Deterministic document ID: re-ingesting the same file into the same
	// namespace overwrites its chunks instead of duplicating them.
	documentID := DocumentID(namespace, file.FileName)

	chunks, err := p.processor.ChunkPages(namespace, documentID, file.FileName, pages)
	if err != nil {
		return fail("chunk", err)
	}
	if len(chunks) == 0 {
		return fail("chunk", fmt.Errorf("document produced no chunks"))
	}

	embedded, err := p.embedChunks(ctx, chunks)
	if err != nil {
		return fail("embed", err)
	}

	if err := p.index.Upsert(ctx, namespace, embedded); err != nil {
		return fail("upsert", err)
	}

	p.logger.Info("ingested file",
		"file", file.FileName,
		"namespace", namespace,
		"pages", len(pages),
		"chunks", len(chunks),
	)

	return models.FileResult{Success: true, FileName: file.FileName, ID: documentID}
}

// embedChunks embeds chunk texts in batches, pacing calls with the rate
// limiter so a large document does not hammer the provider.
func (p *Pipeline) embedChunks(ctx context.Context, chunks []models.Chunk) ([]models.EmbeddedChunk, error) {
	embedded := make([]models.EmbeddedChunk, 0, len(chunks))

	for start := 0; start < len(chunks); start += embedBatchSize {
		end := start + embedBatchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		batch := chunks[start:end]

		if err := p.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limit wait: %w", err)
		}

		texts := make([]string, len(batch))
		for i, chunk := range batch {
			texts[i] = chunk.Text
		}

		vectors, err := p.embedder.EmbedDocuments(ctx, texts)
		if err != nil {
			return nil, fmt.Errorf("embed chunks %d-%d: %w", start, end-1, err)
		}
		if len(vectors) != len(batch) {
			return nil, fmt.Errorf("embedder returned %d vectors for %d chunks", len(vectors), len(batch))
		}

		for i, chunk := range batch {
			embedded = append(embedded, models.EmbeddedChunk{Chunk: chunk, Embedding: vectors[i]})
		}
	}

	return embedded, nil
}

// DocumentID derives the stable identifier for a file within a namespace.
func DocumentID(namespace, fileName string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(namespace+"/"+fileName)).String()
}
