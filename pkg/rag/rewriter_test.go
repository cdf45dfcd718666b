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

func TestRewriteWithoutHistorySkipsModel(t *testing.T) {
	model := &testutil.FakeChatModel{Responses: []string{"should not be used"}}
	rewriter := rag.NewHistoryRewriter(model, log.NewNop())

	query, err := rewriter.Rewrite(context.Background(), nil, "what is a raft log?")

	require.NoError(t, err)
	assert.Equal(t, "what is a raft log?", query)
	assert.Empty(t, model.Calls, "model should not be consulted without history")
}

func TestRewriteUsesHistoryAndQuestion(t *testing.T) {
	model := &testutil.FakeChatModel{Responses: []string{"  raft log compaction details  "}}
	rewriter := rag.NewHistoryRewriter(model, log.NewNop())

	history := []models.Message{
		{Role: models.RoleUser, Content: "tell me about raft"},
		{Role: models.RoleAssistant, Content: "Raft is a consensus algorithm."},
	}

	query, err := rewriter.Rewrite(context.Background(), history, "and log compaction?")

	require.NoError(t, err)
	assert.Equal(t, "raft log compaction details", query, "rewrite should be trimmed")
	require.Len(t, model.Calls, 1)
	// history, question, and the rewrite instruction
	assert.Len(t, model.Calls[0], 4)
}

func TestRewriteModelErrorSignalsUnavailable(t *testing.T) {
	model := &testutil.FakeChatModel{Err: errors.New("upstream 503")}
	rewriter := rag.NewHistoryRewriter(model, log.NewNop())

	history := []models.Message{{Role: models.RoleUser, Content: "hi"}}
	_, err := rewriter.Rewrite(context.Background(), history, "follow-up")

	require.Error(t, err)
	assert.ErrorIs(t, err, rag.ErrGenerationUnavailable)
	assert.NotContains(t, err.Error(), "503", "provider detail must not leak")
}

func TestRewriteEmptyResponseFallsBackToQuestion(t *testing.T) {
	model := &testutil.FakeChatModel{Responses: []string{"   "}}
	rewriter := rag.NewHistoryRewriter(model, log.NewNop())

	history := []models.Message{{Role: models.RoleUser, Content: "hi"}}
	query, err := rewriter.Rewrite(context.Background(), history, "original question")

	require.NoError(t, err)
	assert.Equal(t, "original question", query)
}
