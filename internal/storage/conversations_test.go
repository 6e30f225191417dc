package storage

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/voiced-app/voiced/internal/domain"
)

const testKey = "voiced_conversations"

func turn(role domain.TurnRole, content string) domain.Turn {
	return domain.Turn{
		ID:        content,
		Role:      role,
		Content:   content,
		Timestamp: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}
}

func conversationWithTurns(id string, n int) *domain.Conversation {
	c := &domain.Conversation{
		ID:        id,
		Title:     "Test " + id,
		Messages:  []domain.Turn{},
		CreatedAt: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
		UpdatedAt: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}
	for i := 0; i < n; i++ {
		role := domain.RoleUser
		if i%2 == 1 {
			role = domain.RoleAssistant
		}
		c.Messages = append(c.Messages, turn(role, "message"))
	}
	return c
}

func TestConversationRoundTrip(t *testing.T) {
	ctx := context.Background()

	for _, turns := range []int{0, 1, 5} {
		store := NewConversationStore(NewMemKV(), testKey)
		original := conversationWithTurns("c1", turns)

		require.NoError(t, store.Save(ctx, original))

		loaded, err := store.Get(ctx, "c1")
		require.NoError(t, err)
		assert.Equal(t, original, loaded)
	}
}

func TestConversationRoundTripKeepsEndScreen(t *testing.T) {
	ctx := context.Background()
	store := NewConversationStore(NewMemKV(), testKey)

	original := conversationWithTurns("c1", 2)
	original.EndScreen = &domain.EndScreen{
		Validation:    "v",
		Reflection:    "r",
		Themes:        []string{"t"},
		Encouragement: "e",
		EmotionalTone: "calm",
	}

	require.NoError(t, store.Save(ctx, original))

	loaded, err := store.Get(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, original, loaded)
	assert.True(t, loaded.Closed())
}

func TestSaveKeepsMostRecentFirst(t *testing.T) {
	ctx := context.Background()
	store := NewConversationStore(NewMemKV(), testKey)

	require.NoError(t, store.Save(ctx, conversationWithTurns("older", 1)))
	require.NoError(t, store.Save(ctx, conversationWithTurns("newer", 1)))

	list, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "newer", list[0].ID)
	assert.Equal(t, "older", list[1].ID)
}

func TestSaveReplacesInPlace(t *testing.T) {
	ctx := context.Background()
	store := NewConversationStore(NewMemKV(), testKey)

	require.NoError(t, store.Save(ctx, conversationWithTurns("a", 1)))
	require.NoError(t, store.Save(ctx, conversationWithTurns("b", 1)))

	updated := conversationWithTurns("b", 3)
	require.NoError(t, store.Save(ctx, updated))

	list, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "b", list[0].ID)
	assert.Len(t, list[0].Messages, 3)
}

func TestGetUnknownIDReturnsNotFound(t *testing.T) {
	store := NewConversationStore(NewMemKV(), testKey)

	_, err := store.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrConversationNotFound)
}

func TestMalformedStoredStateIsTreatedAsEmpty(t *testing.T) {
	ctx := context.Background()
	kv := NewMemKV()
	require.NoError(t, kv.Set(ctx, testKey, "{definitely not json"))

	store := NewConversationStore(kv, testKey)

	list, err := store.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)

	// Saving over the malformed state starts a fresh collection.
	require.NoError(t, store.Save(ctx, conversationWithTurns("c1", 1)))
	list, err = store.List(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestConcurrentSavesLoseNothing(t *testing.T) {
	ctx := context.Background()
	store := NewConversationStore(NewMemKV(), testKey)

	const n = 16
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := fmt.Sprintf("c%d", i)
			assert.NoError(t, store.Save(ctx, conversationWithTurns(id, 1)))
		}(i)
	}
	wg.Wait()

	list, err := store.List(ctx)
	require.NoError(t, err)
	assert.Len(t, list, n)
}

func TestDeleteAndClear(t *testing.T) {
	ctx := context.Background()
	store := NewConversationStore(NewMemKV(), testKey)

	require.NoError(t, store.Save(ctx, conversationWithTurns("a", 1)))
	require.NoError(t, store.Save(ctx, conversationWithTurns("b", 1)))

	require.NoError(t, store.Delete(ctx, "a"))
	list, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "b", list[0].ID)

	require.NoError(t, store.Clear(ctx))
	list, err = store.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)
}
