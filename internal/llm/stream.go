package llm

import (
	"context"
	"sync"
)

// Stream delivers assistant text fragments in arrival order. It is a lazy,
// finite, non-restartable sequence: consumers range over Fragments() until
// the channel closes, then check Err() to distinguish completion from
// failure. Close abandons the stream and cancels the producing call.
type Stream struct {
	fragments chan string
	cancel    context.CancelFunc

	mu  sync.Mutex
	err error
}

// NewStream creates a stream whose producer is stopped via cancel when the
// consumer abandons it.
func NewStream(cancel context.CancelFunc) *Stream {
	return &Stream{
		fragments: make(chan string, 16),
		cancel:    cancel,
	}
}

// Fragments returns the fragment channel. It is closed exactly once, when
// the producer finishes or fails.
func (s *Stream) Fragments() <-chan string {
	return s.fragments
}

// Err reports the terminal error, if any. Valid once Fragments is closed.
func (s *Stream) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Close abandons the stream. The producing goroutine observes the cancelled
// context and stops; nothing further is delivered.
func (s *Stream) Close() {
	if s.cancel != nil {
		s.cancel()
	}
}

// Emit delivers one fragment to the consumer. It returns false when the
// context is done, signalling the producer to stop. Providers call this from
// their producing goroutine.
func (s *Stream) Emit(ctx context.Context, text string) bool {
	select {
	case s.fragments <- text:
		return true
	case <-ctx.Done():
		return false
	}
}

// Finish records the terminal error (nil for clean completion) and closes
// the fragment channel. Must be called exactly once by the producer.
func (s *Stream) Finish(err error) {
	s.mu.Lock()
	s.err = err
	s.mu.Unlock()
	close(s.fragments)
}
