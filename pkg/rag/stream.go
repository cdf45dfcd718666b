package rag

import "context"

// Stream is a finite, non-restartable sequence of answer fragments.
// Fragments arrive in generation order; concatenating every fragment
// yields the full answer text. After the channel closes, Err reports
// whether the stream ended cleanly or was cut off mid-answer.
type Stream struct {
	ch  chan string
	err error
}

func newStream() *Stream {
	return &Stream{ch: make(chan string, 16)}
}

// Fragments returns the fragment channel. The channel is closed when the
// answer is complete or the producer fails.
func (s *Stream) Fragments() <-chan string {
	return s.ch
}

// Err reports the terminal error, if any. Only valid after the Fragments
// channel has been closed; the close is the synchronization point.
func (s *Stream) Err() error {
	return s.err
}

// send forwards one fragment, giving up if the consumer's context ends
// first. Reports whether the fragment was delivered.
func (s *Stream) send(ctx context.Context, fragment string) bool {
	select {
	case s.ch <- fragment:
		return true
	case <-ctx.Done():
		return false
	}
}

// finish records the terminal error and closes the channel. err must be
// set before the close so consumers observe it afterwards.
func (s *Stream) finish(err error) {
	s.err = err
	close(s.ch)
}
