package rag

import (
	"context"

	"github.com/mbarlow/docchat/internal/log"
	"github.com/mbarlow/docchat/internal/models"
)

// citationPreviewRunes bounds the chunk text carried in a citation; the
// stream holds the canonical answer, citations are display metadata.
const citationPreviewRunes = 50

// Request is one chat exchange: the full conversation so far, whose last
// entry is the current user question, plus the folder to retrieve from.
type Request struct {
	Messages  []models.Message
	Namespace string
}

// Answer is the two-part result of one exchange. Sources and MessageIndex
// are fully resolved before Answer is returned; only the fragment stream
// is still in flight. That ordering lets a transport finalize response
// metadata (headers) before the first body byte.
type Answer struct {
	Sources      []models.SourceCitation
	MessageIndex int
	Stream       *Stream
}

// Orchestrator composes rewrite, retrieve, and synthesize into a single
// call. Each request runs the pipeline once; there is no shared mutable
// state between requests.
type Orchestrator struct {
	rewriter    Rewriter
	retriever   Retriever
	synthesizer Synthesizer
	logger      log.Logger
}

func NewOrchestrator(rewriter Rewriter, retriever Retriever, synthesizer Synthesizer, logger log.Logger) *Orchestrator {
	return &Orchestrator{
		rewriter:    rewriter,
		retriever:   retriever,
		synthesizer: synthesizer,
		logger:      logger,
	}
}

// Answer validates the request, rewrites the question into a standalone
// query, retrieves grounding chunks, and starts streaming the answer.
// Retrieval has fully completed by the time Answer returns, so Sources
// always cites exactly the chunks the streamed answer was grounded on.
func (o *Orchestrator) Answer(ctx context.Context, req Request) (*Answer, error) {
	if len(req.Messages) == 0 {
		return nil, ErrEmptyConversation
	}
	if req.Namespace == "" {
		return nil, ErrMissingNamespace
	}

	last := req.Messages[len(req.Messages)-1]
	if last.Role != models.RoleUser {
		return nil, ErrMissingQuestion
	}

	history := req.Messages[:len(req.Messages)-1]
	question := last.Content

	query, err := o.rewriter.Rewrite(ctx, history, question)
	if err != nil {
		return nil, err
	}

	chunks, err := o.retriever.Retrieve(ctx, req.Namespace, query)
	if err != nil {
		return nil, err
	}

	stream := o.synthesizer.Stream(ctx, history, question, chunks)

	o.logger.Debug("answer pipeline started",
		"namespace", req.Namespace,
		"history", len(history),
		"chunks", len(chunks),
	)

	return &Answer{
		Sources:      dedupeCitations(chunks),
		MessageIndex: len(history) + 1,
		Stream:       stream,
	}, nil
}

// dedupeCitations keeps the first chunk seen for each distinct
// (document, page) pair, preserving retrieval order. Later chunks from an
// already-cited page add nothing for display. This is a UI policy; the
// synthesizer still sees every retrieved chunk.
func dedupeCitations(chunks []models.Chunk) []models.SourceCitation {
	type pageKey struct {
		doc  string
		page int
	}

	seen := make(map[pageKey]bool, len(chunks))
	citations := make([]models.SourceCitation, 0, len(chunks))

	for _, chunk := range chunks {
		key := pageKey{doc: chunk.Metadata.SourceDocumentID, page: chunk.Metadata.PageNumber}
		if seen[key] {
			continue
		}
		seen[key] = true
		citations = append(citations, models.SourceCitation{
			PageContent: truncateRunes(chunk.Text, citationPreviewRunes),
			Metadata:    chunk.Metadata,
		})
	}

	return citations
}

func truncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "..."
}
