// Package session implements the conversation lifecycle: creating threads,
// streaming chat turns, and closing a conversation with synthesis and memory
// extraction.
package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/sourcegraph/conc"
	"github.com/voiced-app/voiced/internal/config"
	"github.com/voiced-app/voiced/internal/domain"
	"github.com/voiced-app/voiced/internal/llm"
)

// State describes what a conversation will currently accept
type State string

const (
	// StateActive accepts new turns and "done".
	StateActive State = "active"
	// StateBusy has a send or done in flight; further mutation is rejected.
	StateBusy State = "busy"
	// StateClosed has an end screen and accepts no mutation.
	StateClosed State = "closed"
)

// Insights runs the model calls performed when a conversation ends
type Insights interface {
	Synthesize(ctx context.Context, turns []domain.Turn, style string) (*domain.EndScreen, error)
	Extract(ctx context.Context, turns []domain.Turn, existing domain.WorkingMemory) (*domain.MemoryDelta, error)
	Sentiment(ctx context.Context, turns []domain.Turn) (*domain.Sentiment, error)
}

// Controller owns all conversation mutation. Each conversation admits at most
// one in-flight mutation; a snapshot is persisted only when an operation fully
// succeeds, so stored state never holds a half-finished turn.
type Controller struct {
	conversations domain.ConversationRepository
	memory        domain.MemoryRepository
	prompts       domain.PromptRepository
	insights      Insights
	router        *llm.Router
	cfg           config.ChatConfig

	mu       sync.Mutex
	inflight map[string]struct{}
}

// NewController creates a new session controller
func NewController(
	conversations domain.ConversationRepository,
	memory domain.MemoryRepository,
	prompts domain.PromptRepository,
	insights Insights,
	router *llm.Router,
	cfg config.ChatConfig,
) *Controller {
	return &Controller{
		conversations: conversations,
		memory:        memory,
		prompts:       prompts,
		insights:      insights,
		router:        router,
		cfg:           cfg,
		inflight:      make(map[string]struct{}),
	}
}

// NewConversation creates and persists a fresh conversation seeded with the
// assistant greeting.
func (c *Controller) NewConversation(ctx context.Context) (*domain.Conversation, error) {
	now := time.Now().UTC()
	conversation := &domain.Conversation{
		ID:    uuid.NewString(),
		Title: "New Conversation",
		Messages: []domain.Turn{
			{
				ID:        uuid.NewString(),
				Role:      domain.RoleAssistant,
				Content:   c.cfg.Greeting,
				Timestamp: now,
			},
		},
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := c.conversations.Save(ctx, conversation); err != nil {
		return nil, err
	}
	return conversation, nil
}

// List returns all conversations, most recent first
func (c *Controller) List(ctx context.Context) ([]domain.Conversation, error) {
	return c.conversations.List(ctx)
}

// Get returns one conversation by id
func (c *Controller) Get(ctx context.Context, id string) (*domain.Conversation, error) {
	return c.conversations.Get(ctx, id)
}

// Delete removes one conversation. Working memory is untouched; it belongs to
// the user, not to any single conversation.
func (c *Controller) Delete(ctx context.Context, id string) error {
	if _, err := c.conversations.Get(ctx, id); err != nil {
		return err
	}
	return c.conversations.Delete(ctx, id)
}

// ClearAll removes every conversation and all working memory together, so the
// assistant cannot reference memory whose source conversations are gone.
func (c *Controller) ClearAll(ctx context.Context) error {
	if err := c.conversations.Clear(ctx); err != nil {
		return err
	}
	return c.memory.Clear(ctx)
}

// State reports what the conversation will currently accept
func (c *Controller) State(ctx context.Context, id string) (State, error) {
	conversation, err := c.conversations.Get(ctx, id)
	if err != nil {
		return "", err
	}
	if conversation.Closed() {
		return StateClosed, nil
	}
	if c.busy(id) {
		return StateBusy, nil
	}
	return StateActive, nil
}

// SendMessage appends a user turn, streams the assistant reply fragment by
// fragment through onFragment, and persists the conversation with both new
// turns exactly once after the stream completes cleanly. On any failure
// nothing is persisted.
func (c *Controller) SendMessage(ctx context.Context, id, text string, onFragment func(fragment string) error) (*domain.Conversation, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, errors.New("message text is required")
	}

	if !c.acquire(id) {
		return nil, domain.ErrConversationBusy
	}
	defer c.release(id)

	conversation, err := c.conversations.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if conversation.Closed() {
		return nil, domain.ErrConversationClosed
	}

	firstUserTurn := conversation.UserTurns() == 0

	now := time.Now().UTC()
	userTurn := domain.Turn{
		ID:        uuid.NewString(),
		Role:      domain.RoleUser,
		Content:   text,
		Timestamp: now,
	}
	turns := append(append([]domain.Turn{}, conversation.Messages...), userTurn)

	reply, err := c.streamReply(ctx, turns, onFragment)
	if err != nil {
		return nil, err
	}

	conversation.Messages = append(turns, domain.Turn{
		ID:        uuid.NewString(),
		Role:      domain.RoleAssistant,
		Content:   reply,
		Timestamp: time.Now().UTC(),
	})
	if firstUserTurn {
		conversation.Title = titleFrom(text, c.cfg.TitleLength)
	}
	conversation.Touch(time.Now().UTC())

	if err := c.conversations.Save(ctx, conversation); err != nil {
		return nil, err
	}
	return conversation, nil
}

// Done closes a conversation: synthesis and memory extraction run
// concurrently over the transcript, new memory is merged, and the end screen
// is attached and persisted. Synthesis failure aborts the close; extraction
// failure is logged and skipped.
func (c *Controller) Done(ctx context.Context, id, style string) (*domain.Conversation, error) {
	if !c.acquire(id) {
		return nil, domain.ErrConversationBusy
	}
	defer c.release(id)

	conversation, err := c.conversations.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if conversation.Closed() {
		return nil, domain.ErrConversationClosed
	}
	if conversation.UserTurns() == 0 {
		return nil, domain.ErrConversationEmpty
	}

	// Memory is read once before both calls so extraction sees a stable view.
	existing := c.memory.Read(ctx)
	turns := conversation.Messages

	var (
		screen     *domain.EndScreen
		synthErr   error
		delta      *domain.MemoryDelta
		extractErr error
	)

	var wg conc.WaitGroup
	wg.Go(func() {
		screen, synthErr = c.insights.Synthesize(ctx, turns, style)
	})
	wg.Go(func() {
		delta, extractErr = c.insights.Extract(ctx, turns, existing)
	})
	wg.Wait()

	if synthErr != nil {
		return nil, synthErr
	}

	if extractErr != nil {
		log.Warn().Err(extractErr).Str("conversation_id", id).Msg("memory extraction failed, skipping memory update")
	} else if delta != nil && !delta.IsEmpty() {
		if _, err := c.memory.Merge(ctx, *delta); err != nil {
			log.Warn().Err(err).Str("conversation_id", id).Msg("memory merge failed, skipping memory update")
		}
	}

	conversation.EndScreen = screen
	conversation.Touch(time.Now().UTC())

	if err := c.conversations.Save(ctx, conversation); err != nil {
		return nil, err
	}
	return conversation, nil
}

// Sentiment classifies the emotional tone of a conversation's transcript
func (c *Controller) Sentiment(ctx context.Context, id string) (*domain.Sentiment, error) {
	conversation, err := c.conversations.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return c.insights.Sentiment(ctx, conversation.Messages)
}

func (c *Controller) streamReply(ctx context.Context, turns []domain.Turn, onFragment func(string) error) (string, error) {
	base := c.prompts.Get(ctx)
	system := llm.ComposeSystemPrompt(base, c.memory.Read(ctx))

	provider, err := c.router.GetProvider("")
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrTransport, err)
	}

	messages := make([]llm.Message, 0, len(turns))
	for _, t := range turns {
		role := llm.RoleAssistant
		if t.Role == domain.RoleUser {
			role = llm.RoleUser
		}
		messages = append(messages, llm.Message{Role: role, Content: t.Content})
	}

	stream, err := provider.Stream(ctx, llm.Request{
		System:          system,
		Messages:        messages,
		Temperature:     c.cfg.Temperature,
		MaxOutputTokens: c.cfg.MaxOutputTokens,
	}, "")
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrTransport, err)
	}

	var reply strings.Builder
	for fragment := range stream.Fragments() {
		reply.WriteString(fragment)
		if onFragment != nil {
			if err := onFragment(fragment); err != nil {
				stream.Close()
				for range stream.Fragments() {
				}
				return "", err
			}
		}
	}
	if err := stream.Err(); err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrTransport, err)
	}
	return reply.String(), nil
}

func (c *Controller) acquire(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, taken := c.inflight[id]; taken {
		return false
	}
	c.inflight[id] = struct{}{}
	return true
}

func (c *Controller) release(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.inflight, id)
}

func (c *Controller) busy(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, taken := c.inflight[id]
	return taken
}

// titleFrom derives a conversation title from the first user message
func titleFrom(text string, maxLen int) string {
	if maxLen <= 0 {
		maxLen = 50
	}
	runes := []rune(text)
	if len(runes) <= maxLen {
		return text
	}
	return string(runes[:maxLen])
}
