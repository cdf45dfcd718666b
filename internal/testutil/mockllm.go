// Package testutil provides deterministic fakes for the external model
// and database boundaries. Tests only.
package testutil

import (
	"context"
	"sync"

	"github.com/tmc/langchaingo/llms"
)

// FakeChatModel is a scripted types.ChatModel. Each GenerateContent call
// consumes the next scripted response; when a streaming func is supplied
// the response is delivered in fixed-size fragments first.
type FakeChatModel struct {
	mu        sync.Mutex
	Responses []string
	// FragmentSize splits streamed responses; 0 streams the whole
	// response as one fragment.
	FragmentSize int
	// Err, when set, fails every call.
	Err error
	// FailAfterFragments ends streaming with Err after this many
	// fragments when positive.
	FailAfterFragments int

	Calls [][]llms.MessageContent
	calls int
}

func (f *FakeChatModel) GenerateContent(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.Calls = append(f.Calls, messages)

	if f.Err != nil && f.FailAfterFragments == 0 {
		return nil, f.Err
	}

	response := ""
	if f.calls < len(f.Responses) {
		response = f.Responses[f.calls]
	}
	f.calls++

	opts := llms.CallOptions{}
	for _, opt := range options {
		opt(&opts)
	}

	if opts.StreamingFunc != nil {
		sent := 0
		for _, fragment := range splitFragments(response, f.FragmentSize) {
			if err := opts.StreamingFunc(ctx, []byte(fragment)); err != nil {
				return nil, err
			}
			sent++
			if f.FailAfterFragments > 0 && sent >= f.FailAfterFragments {
				return nil, f.Err
			}
		}
	}
	if f.FailAfterFragments > 0 {
		return nil, f.Err
	}

	return &llms.ContentResponse{
		Choices: []*llms.ContentChoice{{Content: response}},
	}, nil
}

func splitFragments(s string, size int) []string {
	if s == "" {
		return nil
	}
	if size <= 0 {
		return []string{s}
	}
	runes := []rune(s)
	var fragments []string
	for start := 0; start < len(runes); start += size {
		end := start + size
		if end > len(runes) {
			end = len(runes)
		}
		fragments = append(fragments, string(runes[start:end]))
	}
	return fragments
}
