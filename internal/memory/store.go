// Package memory implements the working-memory store: the durable,
// cross-conversation record of facts, preferences and topics the assistant
// has learned about the user.
package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"
	"github.com/voiced-app/voiced/internal/domain"
	"github.com/voiced-app/voiced/internal/storage"
)

// Store persists a single WorkingMemory document under a fixed key. Memory is
// mutated only via Merge (set union, never destructive) except for Clear,
// which is tied to full conversation purge. Merge is atomic with respect to
// concurrent readers.
type Store struct {
	kv     storage.KV
	key    string
	userID string
	mu     sync.Mutex
}

// NewStore creates a store scoped to the given user id
func NewStore(kv storage.KV, key, userID string) *Store {
	if userID == "" {
		userID = domain.DefaultUserID
	}
	return &Store{kv: kv, key: key, userID: userID}
}

// Read returns current memory, or an empty-but-valid default when nothing is
// stored yet or the stored text is malformed. It never fails.
func (s *Store) Read(ctx context.Context) domain.WorkingMemory {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.read(ctx)
}

// Merge unions the delta into stored memory using exact string equality as
// the dedup key, preserving insertion order, and returns the new state.
// Merging the same delta twice produces the same state as merging it once.
func (s *Store) Merge(ctx context.Context, delta domain.MemoryDelta) (domain.WorkingMemory, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current := s.read(ctx)
	merged := domain.WorkingMemory{
		UserID:      current.UserID,
		Facts:       union(current.Facts, delta.Facts),
		Preferences: union(current.Preferences, delta.Preferences),
		Topics:      union(current.Topics, delta.Topics),
	}

	data, err := json.Marshal(merged)
	if err != nil {
		return current, fmt.Errorf("failed to marshal working memory: %w", err)
	}
	if err := s.kv.Set(ctx, s.key, string(data)); err != nil {
		return current, fmt.Errorf("failed to persist working memory: %w", err)
	}
	return merged, nil
}

// Clear removes all working memory
func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.kv.Remove(ctx, s.key)
}

func (s *Store) read(ctx context.Context) domain.WorkingMemory {
	raw, ok, err := s.kv.Get(ctx, s.key)
	if err != nil {
		log.Warn().Err(err).Str("key", s.key).Msg("failed to read working memory, using empty default")
		return domain.NewWorkingMemory(s.userID)
	}
	if !ok {
		return domain.NewWorkingMemory(s.userID)
	}

	var mem domain.WorkingMemory
	if err := json.Unmarshal([]byte(raw), &mem); err != nil {
		log.Warn().Err(err).Str("key", s.key).Msg("malformed stored working memory, using empty default")
		return domain.NewWorkingMemory(s.userID)
	}
	if mem.UserID == "" {
		mem.UserID = s.userID
	}
	if mem.Facts == nil {
		mem.Facts = []string{}
	}
	if mem.Preferences == nil {
		mem.Preferences = []string{}
	}
	if mem.Topics == nil {
		mem.Topics = []string{}
	}
	return mem
}

// union appends entries of add not already present in base, keeping order
func union(base, add []string) []string {
	out := make([]string, 0, len(base)+len(add))
	seen := make(map[string]struct{}, len(base)+len(add))
	for _, v := range base {
		if _, dup := seen[v]; dup {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	for _, v := range add {
		if _, dup := seen[v]; dup {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
