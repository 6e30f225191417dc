package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"
	"github.com/voiced-app/voiced/internal/domain"
)

// ConversationStore persists the full conversation collection as one JSON
// document under a fixed key, mirroring the browser client's storage layout.
// Malformed or absent stored state is treated as an empty collection; it must
// never crash the application. Writes rewrite the whole document, so they are
// serialized against each other and against reads.
type ConversationStore struct {
	kv  KV
	key string
	mu  sync.Mutex
}

// NewConversationStore creates a store bound to the given KV and key
func NewConversationStore(kv KV, key string) *ConversationStore {
	return &ConversationStore{kv: kv, key: key}
}

// List returns all conversations in stored order, most recent first
func (s *ConversationStore) List(ctx context.Context) ([]domain.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load(ctx), nil
}

// Get returns the conversation with the given id
func (s *ConversationStore) Get(ctx context.Context, id string) (*domain.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.load(ctx) {
		if c.ID == id {
			conv := c
			return &conv, nil
		}
	}
	return nil, domain.ErrConversationNotFound
}

// Save inserts or replaces the conversation snapshot. New conversations go to
// the front so the list stays most-recent-first.
func (s *ConversationStore) Save(ctx context.Context, conversation *domain.Conversation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	conversations := s.load(ctx)

	replaced := false
	for i, c := range conversations {
		if c.ID == conversation.ID {
			conversations[i] = *conversation
			replaced = true
			break
		}
	}
	if !replaced {
		conversations = append([]domain.Conversation{*conversation}, conversations...)
	}

	return s.store(ctx, conversations)
}

// Delete removes the conversation with the given id
func (s *ConversationStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	conversations := s.load(ctx)
	kept := conversations[:0]
	for _, c := range conversations {
		if c.ID != id {
			kept = append(kept, c)
		}
	}
	return s.store(ctx, kept)
}

// Clear removes the whole collection
func (s *ConversationStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.kv.Remove(ctx, s.key)
}

func (s *ConversationStore) load(ctx context.Context) []domain.Conversation {
	raw, ok, err := s.kv.Get(ctx, s.key)
	if err != nil {
		log.Warn().Err(err).Str("key", s.key).Msg("failed to read conversations, treating as empty")
		return nil
	}
	if !ok {
		return nil
	}

	var conversations []domain.Conversation
	if err := json.Unmarshal([]byte(raw), &conversations); err != nil {
		log.Warn().Err(err).Str("key", s.key).Msg("malformed stored conversations, treating as empty")
		return nil
	}
	return conversations
}

func (s *ConversationStore) store(ctx context.Context, conversations []domain.Conversation) error {
	if conversations == nil {
		conversations = []domain.Conversation{}
	}
	data, err := json.Marshal(conversations)
	if err != nil {
		return fmt.Errorf("failed to marshal conversations: %w", err)
	}
	return s.kv.Set(ctx, s.key, string(data))
}
