package rag_test

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mbarlow/docchat/internal/log"
	"github.com/mbarlow/docchat/internal/models"
	"github.com/mbarlow/docchat/internal/testutil"
	"github.com/mbarlow/docchat/pkg/rag"
)

func chunkOn(doc string, page int, text string) models.Chunk {
	return models.Chunk{
		Text: text,
		Metadata: models.ChunkMetadata{
			SourceDocumentID: doc,
			FileName:         doc + ".pdf",
			PageNumber:       page,
		},
	}
}

func newOrchestrator(model *testutil.FakeChatModel, index *testutil.StaticIndex) *rag.Orchestrator {
	logger := log.NewNop()
	return rag.NewOrchestrator(
		rag.NewHistoryRewriter(model, logger),
		rag.NewVectorRetriever(&testutil.HashEmbedder{}, index, 4, logger),
		rag.NewStuffSynthesizer(model, logger),
		logger,
	)
}

func TestAnswerRejectsInvalidRequests(t *testing.T) {
	orch := newOrchestrator(&testutil.FakeChatModel{}, &testutil.StaticIndex{})
	ctx := context.Background()

	tests := []struct {
		name string
		req  rag.Request
		want error
	}{
		{
			name: "no messages",
			req:  rag.Request{Namespace: "papers"},
			want: rag.ErrEmptyConversation,
		},
		{
			name: "no namespace",
			req: rag.Request{
				Messages: []models.Message{{Role: models.RoleUser, Content: "hi"}},
			},
			want: rag.ErrMissingNamespace,
		},
		{
			name: "last message not from user",
			req: rag.Request{
				Namespace: "papers",
				Messages: []models.Message{
					{Role: models.RoleUser, Content: "hi"},
					{Role: models.RoleAssistant, Content: "hello"},
				},
			},
			want: rag.ErrMissingQuestion,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := orch.Answer(ctx, tt.req)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestAnswerDedupesCitationsByDocumentAndPage(t *testing.T) {
	index := &testutil.StaticIndex{Results: []models.Chunk{
		chunkOn("paper", 3, "first chunk on page three"),
		chunkOn("paper", 3, "second chunk on page three"),
		chunkOn("paper", 5, "chunk on page five"),
		chunkOn("paper", 3, "third chunk on page three"),
		chunkOn("paper", 7, "chunk on page seven"),
	}}
	model := &testutil.FakeChatModel{Responses: []string{"answer"}}
	orch := newOrchestrator(model, index)

	answer, err := orch.Answer(context.Background(), rag.Request{
		Namespace: "papers",
		Messages:  []models.Message{{Role: models.RoleUser, Content: "what is on these pages?"}},
	})
	require.NoError(t, err)

	pages := make([]int, 0, len(answer.Sources))
	for _, src := range answer.Sources {
		pages = append(pages, src.Metadata.PageNumber)
	}
	assert.Equal(t, []int{3, 5, 7}, pages, "first occurrence wins, retrieval order kept")
	assert.Equal(t, "first chunk on page three", answer.Sources[0].PageContent)
}

func TestAnswerSamePageDifferentDocumentsBothCited(t *testing.T) {
	index := &testutil.StaticIndex{Results: []models.Chunk{
		chunkOn("alpha", 2, "from alpha"),
		chunkOn("beta", 2, "from beta"),
	}}
	orch := newOrchestrator(&testutil.FakeChatModel{Responses: []string{"answer"}}, index)

	answer, err := orch.Answer(context.Background(), rag.Request{
		Namespace: "papers",
		Messages:  []models.Message{{Role: models.RoleUser, Content: "compare them"}},
	})
	require.NoError(t, err)
	require.Len(t, answer.Sources, 2)
	assert.Equal(t, "alpha", answer.Sources[0].Metadata.SourceDocumentID)
	assert.Equal(t, "beta", answer.Sources[1].Metadata.SourceDocumentID)
}

func TestAnswerTruncatesLongCitationPreviews(t *testing.T) {
	long := strings.Repeat("a", 120)
	index := &testutil.StaticIndex{Results: []models.Chunk{chunkOn("doc", 1, long)}}
	orch := newOrchestrator(&testutil.FakeChatModel{Responses: []string{"answer"}}, index)

	answer, err := orch.Answer(context.Background(), rag.Request{
		Namespace: "papers",
		Messages:  []models.Message{{Role: models.RoleUser, Content: "q"}},
	})
	require.NoError(t, err)
	require.Len(t, answer.Sources, 1)
	assert.Equal(t, strings.Repeat("a", 50)+"...", answer.Sources[0].PageContent)
}

func TestAnswerSourcesResolvedBeforeStreamIsRead(t *testing.T) {
	index := &testutil.StaticIndex{Results: []models.Chunk{chunkOn("doc", 1, "grounding text")}}
	model := &testutil.FakeChatModel{Responses: []string{"the grounded answer"}, FragmentSize: 3}
	orch := newOrchestrator(model, index)

	answer, err := orch.Answer(context.Background(), rag.Request{
		Namespace: "papers",
		Messages:  []models.Message{{Role: models.RoleUser, Content: "q"}},
	})
	require.NoError(t, err)

	// Sources and the message index are complete before a single
	// fragment has been consumed.
	require.Len(t, answer.Sources, 1)
	assert.Equal(t, 1, answer.MessageIndex)

	fragments := drain(t, answer.Stream)
	require.NoError(t, answer.Stream.Err())
	assert.Equal(t, "the grounded answer", strings.Join(fragments, ""))
}

func TestAnswerMessageIndexCountsHistory(t *testing.T) {
	orch := newOrchestrator(&testutil.FakeChatModel{Responses: []string{"rewritten", "answer"}}, &testutil.StaticIndex{})

	answer, err := orch.Answer(context.Background(), rag.Request{
		Namespace: "papers",
		Messages: []models.Message{
			{Role: models.RoleUser, Content: "first question"},
			{Role: models.RoleAssistant, Content: "first answer"},
			{Role: models.RoleUser, Content: "second question"},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, 3, answer.MessageIndex)
	drain(t, answer.Stream)
}

func TestAnswerRewritesFollowUpBeforeRetrieval(t *testing.T) {
	embedder := &testutil.HashEmbedder{}
	index := &testutil.StaticIndex{}
	model := &testutil.FakeChatModel{Responses: []string{"standalone raft query", "answer"}}
	logger := log.NewNop()
	orch := rag.NewOrchestrator(
		rag.NewHistoryRewriter(model, logger),
		rag.NewVectorRetriever(embedder, index, 4, logger),
		rag.NewStuffSynthesizer(model, logger),
		logger,
	)

	answer, err := orch.Answer(context.Background(), rag.Request{
		Namespace: "papers",
		Messages: []models.Message{
			{Role: models.RoleUser, Content: "tell me about raft"},
			{Role: models.RoleAssistant, Content: "Raft elects leaders."},
			{Role: models.RoleUser, Content: "what about it?"},
		},
	})
	require.NoError(t, err)
	drain(t, answer.Stream)

	require.Len(t, embedder.QueryCalls, 1)
	assert.Equal(t, "standalone raft query", embedder.QueryCalls[0],
		"retrieval must use the rewritten query, not the raw follow-up")
	assert.Equal(t, []string{"papers"}, index.SearchedIn)
}

func TestAnswerEmptyCorpusStillAnswers(t *testing.T) {
	orch := newOrchestrator(&testutil.FakeChatModel{Responses: []string{"I don't know."}}, &testutil.StaticIndex{})

	answer, err := orch.Answer(context.Background(), rag.Request{
		Namespace: "empty-folder",
		Messages:  []models.Message{{Role: models.RoleUser, Content: "anything?"}},
	})
	require.NoError(t, err)
	assert.Empty(t, answer.Sources)

	fragments := drain(t, answer.Stream)
	require.NoError(t, answer.Stream.Err())
	assert.Equal(t, "I don't know.", strings.Join(fragments, ""))
}
