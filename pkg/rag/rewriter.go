package rag

import (
	"context"
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/llms"

	"github.com/mbarlow/docchat/internal/log"
	"github.com/mbarlow/docchat/internal/models"
	"github.com/mbarlow/docchat/internal/types"
)

// Rewriter turns a conversational follow-up plus its history into a
// standalone retrieval query.
type Rewriter interface {
	Rewrite(ctx context.Context, history []models.Message, question string) (string, error)
}

// HistoryRewriter asks the chat model to rephrase the question so that
// pronouns and references ("it", "that document") resolve without the
// conversation. With no history the raw question is already standalone
// and the model is not consulted.
type HistoryRewriter struct {
	model  types.ChatModel
	logger log.Logger
}

func NewHistoryRewriter(model types.ChatModel, logger log.Logger) *HistoryRewriter {
	return &HistoryRewriter{model: model, logger: logger}
}

func (r *HistoryRewriter) Rewrite(ctx context.Context, history []models.Message, question string) (string, error) {
	if len(history) == 0 {
		return question, nil
	}

	messages := historyToContent(history)
	messages = append(messages,
		llms.TextParts(llms.ChatMessageTypeHuman, question),
		llms.TextParts(llms.ChatMessageTypeHuman, rewriteInstruction),
	)

	resp, err := r.model.GenerateContent(ctx, messages)
	if err != nil {
		// No fallback query: degraded retrieval must be signaled, not
		// papered over. The provider detail stays in the log.
		r.logger.Error("query rewrite failed", "stage", "rewrite", "error", err)
		return "", fmt.Errorf("rewrite query: %w", ErrGenerationUnavailable)
	}

	if len(resp.Choices) == 0 {
		r.logger.Error("query rewrite returned no choices", "stage", "rewrite")
		return "", fmt.Errorf("rewrite query: %w", ErrGenerationUnavailable)
	}

	query := strings.TrimSpace(resp.Choices[0].Content)
	if query == "" {
		return question, nil
	}

	r.logger.Debug("rewrote question", "query", query)
	return query, nil
}
