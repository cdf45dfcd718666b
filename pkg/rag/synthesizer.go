package rag

import (
	"context"
	"fmt"

	"github.com/tmc/langchaingo/llms"

	"github.com/mbarlow/docchat/internal/log"
	"github.com/mbarlow/docchat/internal/models"
	"github.com/mbarlow/docchat/internal/types"
)

// Synthesizer produces a streamed, grounded answer from retrieved chunks
// and conversation history.
type Synthesizer interface {
	Stream(ctx context.Context, history []models.Message, question string, chunks []models.Chunk) *Stream
}

// StuffSynthesizer stuffs every retrieved chunk into the system prompt's
// context block and streams the model's answer. The prompt requires the
// model to answer from that context alone and to say so when the context
// is insufficient.
type StuffSynthesizer struct {
	model  types.ChatModel
	logger log.Logger
}

func NewStuffSynthesizer(model types.ChatModel, logger log.Logger) *StuffSynthesizer {
	return &StuffSynthesizer{model: model, logger: logger}
}

// Stream starts generation and returns immediately. Fragments are
// delivered in generation order; the stream's channel closes when the
// answer is complete or generation fails, and Stream.Err reports which.
func (s *StuffSynthesizer) Stream(ctx context.Context, history []models.Message, question string, chunks []models.Chunk) *Stream {
	stream := newStream()

	messages := make([]llms.MessageContent, 0, len(history)+2)
	messages = append(messages, llms.TextParts(llms.ChatMessageTypeSystem,
		fmt.Sprintf(answerSystemTemplate, stuffContext(chunks))))
	messages = append(messages, historyToContent(history)...)
	messages = append(messages, llms.TextParts(llms.ChatMessageTypeHuman, question))

	go func() {
		_, err := s.model.GenerateContent(ctx, messages,
			llms.WithStreamingFunc(func(ctx context.Context, fragment []byte) error {
				if len(fragment) == 0 {
					return nil
				}
				if !stream.send(ctx, string(fragment)) {
					return ctx.Err()
				}
				return nil
			}),
		)
		if err != nil {
			// Fragments already delivered cannot be retracted; the early
			// close plus Err is the failure signal.
			s.logger.Error("answer synthesis failed", "stage", "synthesize", "error", err)
			stream.finish(fmt.Errorf("synthesize answer: %w", ErrGenerationUnavailable))
			return
		}
		stream.finish(nil)
	}()

	return stream
}
