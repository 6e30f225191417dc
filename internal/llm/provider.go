package llm

import "context"

// Role identifies the author of a chat message
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one role/content turn sent to the model
type Message struct {
	Role    Role
	Content string
}

// Request contains chat completion parameters
type Request struct {
	// System is the effective system prompt (base prompt plus rendered
	// working memory).
	System string

	// Messages is the ordered turn history, oldest first.
	Messages []Message

	// Temperature in [0,1]. Factual tasks run low, creative tasks run high.
	Temperature float64

	// MaxOutputTokens caps the reply length when > 0.
	MaxOutputTokens int

	// JSONOutput asks the model for a single JSON object payload.
	JSONOutput bool
}

// Response contains a complete (non-streaming) generation result
type Response struct {
	Content    string
	Model      string
	TokensUsed int
	LatencyMs  int64
}

// Provider defines the interface for LLM providers
type Provider interface {
	// Name returns the provider identifier
	Name() string

	// AvailableModels returns list of supported models
	AvailableModels() []string

	// DefaultModel returns the default model
	DefaultModel() string

	// IsConfigured checks if provider has valid credentials
	IsConfigured() bool

	// Complete performs a blocking chat completion
	Complete(ctx context.Context, req Request, model string) (*Response, error)

	// Stream starts a streaming chat completion. Fragments arrive on the
	// returned Stream in strict order; the stream ends with an explicit
	// completion or error signal.
	Stream(ctx context.Context, req Request, model string) (*Stream, error)
}
