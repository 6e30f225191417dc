package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPromptGetFallsBackToDefault(t *testing.T) {
	store := NewPromptStore(NewMemKV(), "voiced_system_prompt", "default prompt")

	assert.Equal(t, "default prompt", store.Get(context.Background()))
}

func TestPromptSetAndReset(t *testing.T) {
	ctx := context.Background()
	store := NewPromptStore(NewMemKV(), "voiced_system_prompt", "default prompt")

	require.NoError(t, store.Set(ctx, "custom persona"))
	assert.Equal(t, "custom persona", store.Get(ctx))

	require.NoError(t, store.Reset(ctx))
	assert.Equal(t, "default prompt", store.Get(ctx))
}

func TestPromptEmptyOverrideFallsBack(t *testing.T) {
	ctx := context.Background()
	store := NewPromptStore(NewMemKV(), "voiced_system_prompt", "default prompt")

	require.NoError(t, store.Set(ctx, ""))
	assert.Equal(t, "default prompt", store.Get(ctx))
}
