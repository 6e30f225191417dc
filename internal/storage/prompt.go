package storage

import (
	"context"

	"github.com/rs/zerolog/log"
)

// PromptStore holds the user's system prompt override. Reads fall back to the
// configured default, so callers always get a usable prompt.
type PromptStore struct {
	kv           KV
	key          string
	defaultValue string
}

// NewPromptStore creates a store with the given fallback prompt
func NewPromptStore(kv KV, key, defaultValue string) *PromptStore {
	return &PromptStore{kv: kv, key: key, defaultValue: defaultValue}
}

// Get returns the stored override or the default. Never fails.
func (s *PromptStore) Get(ctx context.Context) string {
	raw, ok, err := s.kv.Get(ctx, s.key)
	if err != nil {
		log.Warn().Err(err).Str("key", s.key).Msg("failed to read system prompt, using default")
		return s.defaultValue
	}
	if !ok || raw == "" {
		return s.defaultValue
	}
	return raw
}

// Set stores a custom system prompt
func (s *PromptStore) Set(ctx context.Context, prompt string) error {
	return s.kv.Set(ctx, s.key, prompt)
}

// Reset removes the override, restoring the default
func (s *PromptStore) Reset(ctx context.Context) error {
	return s.kv.Remove(ctx, s.key)
}
