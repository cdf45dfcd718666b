package rag

import "errors"

// Validation errors are rejected before any external call and map to a
// 4xx response; ErrGenerationUnavailable maps to a 5xx.
var (
	// ErrEmptyConversation means the request carried no messages at all.
	ErrEmptyConversation = errors.New("no messages provided")

	// ErrMissingQuestion means the last message is not a user turn, so
	// there is no current question to answer.
	ErrMissingQuestion = errors.New("last message must be a user question")

	// ErrMissingNamespace means no folder was named for retrieval.
	ErrMissingNamespace = errors.New("no folder specified")

	// ErrGenerationUnavailable means the language model could not be
	// reached or returned an error. There is no local fallback; degraded
	// retrieval quality must never be silent.
	ErrGenerationUnavailable = errors.New("language model unavailable")
)
