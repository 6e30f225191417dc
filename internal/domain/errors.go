package domain

import "errors"

var (
	// ErrTransport indicates the model capability was unreachable or returned
	// a non-success status. Never retried automatically.
	ErrTransport = errors.New("model transport failure")

	// ErrMalformedOutput indicates the model returned content that does not
	// parse as the expected structured shape.
	ErrMalformedOutput = errors.New("malformed model output")

	// ErrConversationNotFound indicates the requested conversation does not exist
	ErrConversationNotFound = errors.New("conversation not found")

	// ErrConversationEmpty rejects "done" on a conversation with no turns
	ErrConversationEmpty = errors.New("conversation has no messages")

	// ErrConversationClosed rejects mutation of an ended conversation
	ErrConversationClosed = errors.New("conversation is already closed")

	// ErrConversationBusy rejects a second in-flight mutation on the same
	// conversation. Send and Done are mutually exclusive.
	ErrConversationBusy = errors.New("conversation has a request in flight")
)

// ExtractionError wraps failures of the memory extractor. Extraction is
// best-effort: callers log and continue, the conversation flow still succeeds.
type ExtractionError struct {
	Err error
}

func (e *ExtractionError) Error() string {
	return "memory extraction failed: " + e.Err.Error()
}

func (e *ExtractionError) Unwrap() error {
	return e.Err
}

// SynthesisError wraps failures of the session synthesizer. Synthesis is the
// point of the "done" action, so this is fatal: the conversation stays active
// and the failure is surfaced to the user.
type SynthesisError struct {
	Err error
}

func (e *SynthesisError) Error() string {
	return "conversation synthesis failed: " + e.Err.Error()
}

func (e *SynthesisError) Unwrap() error {
	return e.Err
}
