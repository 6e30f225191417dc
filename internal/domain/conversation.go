package domain

import (
	"context"
	"time"
)

// TurnRole represents the author of a conversation turn
type TurnRole string

const (
	RoleUser      TurnRole = "user"
	RoleAssistant TurnRole = "assistant"
)

// Turn is a single message in a conversation. Turns are immutable once
// created; slice order defines transcript order.
type Turn struct {
	ID        string    `json:"id"`
	Role      TurnRole  `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// Conversation is one chat thread with the assistant
type Conversation struct {
	ID        string     `json:"id"`
	Title     string     `json:"title"`
	Messages  []Turn     `json:"messages"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
	EndScreen *EndScreen `json:"endScreen,omitempty"`
}

// Closed reports whether the conversation has been ended with "done".
// A closed conversation keeps its end screen forever and accepts no new turns.
func (c *Conversation) Closed() bool {
	return c.EndScreen != nil
}

// UserTurns counts turns authored by the user
func (c *Conversation) UserTurns() int {
	n := 0
	for _, t := range c.Messages {
		if t.Role == RoleUser {
			n++
		}
	}
	return n
}

// Touch refreshes the modification timestamp
func (c *Conversation) Touch(now time.Time) {
	c.UpdatedAt = now
}

// ConversationRepository defines the interface for conversation storage
type ConversationRepository interface {
	List(ctx context.Context) ([]Conversation, error)
	Get(ctx context.Context, id string) (*Conversation, error)
	Save(ctx context.Context, conversation *Conversation) error
	Delete(ctx context.Context, id string) error
	Clear(ctx context.Context) error
}

// PromptRepository stores the user's system prompt override
type PromptRepository interface {
	// Get returns the effective base system prompt. It never fails; a missing
	// or unreadable override falls back to the configured default.
	Get(ctx context.Context) string
	Set(ctx context.Context, prompt string) error
	Reset(ctx context.Context) error
}
