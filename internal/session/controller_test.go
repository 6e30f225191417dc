package session

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/voiced-app/voiced/internal/config"
	"github.com/voiced-app/voiced/internal/domain"
	"github.com/voiced-app/voiced/internal/llm"
	"github.com/voiced-app/voiced/internal/memory"
	"github.com/voiced-app/voiced/internal/storage"
)

type fixture struct {
	controller *Controller
	repo       *recordingRepo
	memory     *memory.Store
	insights   *MockInsights
	provider   *fakeProvider
}

func newFixture(provider *fakeProvider) *fixture {
	kv := storage.NewMemKV()
	repo := &recordingRepo{
		ConversationRepository: storage.NewConversationStore(kv, "voiced_conversations"),
	}
	mem := memory.NewStore(kv, "voiced_working_memory", domain.DefaultUserID)
	prompts := storage.NewPromptStore(kv, "voiced_system_prompt", llm.DefaultSystemPrompt)
	insights := new(MockInsights)

	router := llm.NewRouter("fake")
	router.RegisterProvider(provider)

	controller := NewController(repo, mem, prompts, insights, router, config.ChatConfig{
		Temperature:     0.8,
		MaxOutputTokens: 200,
		Greeting:        "What's on your mind?",
		TitleLength:     50,
	})

	return &fixture{
		controller: controller,
		repo:       repo,
		memory:     mem,
		insights:   insights,
		provider:   provider,
	}
}

func sampleEndScreen() *domain.EndScreen {
	return &domain.EndScreen{
		Validation:    "That took courage to share.",
		Reflection:    "You explored what the cancelled project meant to you.",
		Themes:        []string{"work", "loss"},
		Encouragement: "Come back whenever you need to talk.",
		EmotionalTone: "understood",
	}
}

func TestNewConversationSeedsGreeting(t *testing.T) {
	f := newFixture(&fakeProvider{})

	conversation, err := f.controller.NewConversation(context.Background())

	require.NoError(t, err)
	assert.Equal(t, "New Conversation", conversation.Title)
	require.Len(t, conversation.Messages, 1)
	assert.Equal(t, domain.RoleAssistant, conversation.Messages[0].Role)
	assert.Equal(t, "What's on your mind?", conversation.Messages[0].Content)
	assert.False(t, conversation.Closed())
}

func TestSendMessageStreamsFragmentsAndPersistsOnce(t *testing.T) {
	f := newFixture(&fakeProvider{fragments: []string{"Hel", "lo ", "there"}})
	ctx := context.Background()

	conversation, err := f.controller.NewConversation(ctx)
	require.NoError(t, err)

	var fragments []string
	updated, err := f.controller.SendMessage(ctx, conversation.ID, "I had a rough day", func(fragment string) error {
		fragments = append(fragments, fragment)
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, []string{"Hel", "lo ", "there"}, fragments)

	require.Len(t, updated.Messages, 3)
	assert.Equal(t, domain.RoleUser, updated.Messages[1].Role)
	assert.Equal(t, "I had a rough day", updated.Messages[1].Content)
	assert.Equal(t, domain.RoleAssistant, updated.Messages[2].Role)
	assert.Equal(t, "Hello there", updated.Messages[2].Content)

	// One save for creation, one for the completed turn. No snapshot holds a
	// user turn without its reply.
	saves := f.repo.Saves()
	require.Len(t, saves, 2)
	assert.Len(t, saves[0].Messages, 1)
	assert.Len(t, saves[1].Messages, 3)
}

func TestSendMessageTitlesFromFirstUserTurn(t *testing.T) {
	f := newFixture(&fakeProvider{fragments: []string{"ok"}})
	ctx := context.Background()

	conversation, err := f.controller.NewConversation(ctx)
	require.NoError(t, err)

	long := strings.Repeat("a", 60)
	updated, err := f.controller.SendMessage(ctx, conversation.ID, long, nil)
	require.NoError(t, err)
	assert.Equal(t, strings.Repeat("a", 50), updated.Title)

	// Subsequent turns keep the first title.
	updated, err = f.controller.SendMessage(ctx, conversation.ID, "and another thing", nil)
	require.NoError(t, err)
	assert.Equal(t, strings.Repeat("a", 50), updated.Title)
}

func TestSendMessageComposesMemoryIntoSystemPrompt(t *testing.T) {
	f := newFixture(&fakeProvider{fragments: []string{"ok"}})
	ctx := context.Background()

	_, err := f.memory.Merge(ctx, domain.MemoryDelta{Facts: []string{"has a dog named Biscuit"}})
	require.NoError(t, err)

	conversation, err := f.controller.NewConversation(ctx)
	require.NoError(t, err)

	_, err = f.controller.SendMessage(ctx, conversation.ID, "hi", nil)
	require.NoError(t, err)

	system := f.provider.LastRequest().System
	assert.Contains(t, system, "WHAT YOU KNOW ABOUT THIS USER")
	assert.Contains(t, system, "has a dog named Biscuit")
}

func TestSendMessageStreamFailureDoesNotPersist(t *testing.T) {
	f := newFixture(&fakeProvider{
		fragments: []string{"partial "},
		streamErr: errors.New("connection reset"),
	})
	ctx := context.Background()

	conversation, err := f.controller.NewConversation(ctx)
	require.NoError(t, err)

	_, err = f.controller.SendMessage(ctx, conversation.ID, "hello", nil)
	assert.ErrorIs(t, err, domain.ErrTransport)

	// Only the creation snapshot exists; the failed turn left no trace.
	assert.Len(t, f.repo.Saves(), 1)
	stored, err := f.controller.Get(ctx, conversation.ID)
	require.NoError(t, err)
	assert.Len(t, stored.Messages, 1)
}

func TestSendMessageRejectsEmptyText(t *testing.T) {
	f := newFixture(&fakeProvider{})
	ctx := context.Background()

	conversation, err := f.controller.NewConversation(ctx)
	require.NoError(t, err)

	_, err = f.controller.SendMessage(ctx, conversation.ID, "   ", nil)
	assert.Error(t, err)
}

func TestSendMessageRejectsClosedConversation(t *testing.T) {
	f := newFixture(&fakeProvider{fragments: []string{"ok"}})
	ctx := context.Background()

	conversation := closedConversation(t, f)

	_, err := f.controller.SendMessage(ctx, conversation.ID, "one more thing", nil)
	assert.ErrorIs(t, err, domain.ErrConversationClosed)
}

func TestSendMessageRejectsBusyConversation(t *testing.T) {
	f := newFixture(&fakeProvider{fragments: []string{"ok"}})
	ctx := context.Background()

	conversation, err := f.controller.NewConversation(ctx)
	require.NoError(t, err)

	require.True(t, f.controller.acquire(conversation.ID))
	defer f.controller.release(conversation.ID)

	_, err = f.controller.SendMessage(ctx, conversation.ID, "hello", nil)
	assert.ErrorIs(t, err, domain.ErrConversationBusy)

	state, err := f.controller.State(ctx, conversation.ID)
	require.NoError(t, err)
	assert.Equal(t, StateBusy, state)
}

func TestDoneSynthesizesAndMergesMemory(t *testing.T) {
	f := newFixture(&fakeProvider{fragments: []string{"ok"}})
	ctx := context.Background()

	conversation, err := f.controller.NewConversation(ctx)
	require.NoError(t, err)
	_, err = f.controller.SendMessage(ctx, conversation.ID, "my project got cancelled", nil)
	require.NoError(t, err)

	f.insights.On("Synthesize", mock.Anything, mock.Anything, "").
		Return(sampleEndScreen(), nil)
	f.insights.On("Extract", mock.Anything, mock.Anything, mock.Anything).
		Return(&domain.MemoryDelta{Facts: []string{"works in software"}}, nil)

	closed, err := f.controller.Done(ctx, conversation.ID, "")

	require.NoError(t, err)
	require.NotNil(t, closed.EndScreen)
	assert.Equal(t, "understood", closed.EndScreen.EmotionalTone)
	assert.True(t, closed.Closed())

	mem := f.memory.Read(ctx)
	assert.Equal(t, []string{"works in software"}, mem.Facts)

	state, err := f.controller.State(ctx, conversation.ID)
	require.NoError(t, err)
	assert.Equal(t, StateClosed, state)
}

func TestDoneExtractionFailureIsNonFatal(t *testing.T) {
	f := newFixture(&fakeProvider{fragments: []string{"ok"}})
	ctx := context.Background()

	conversation, err := f.controller.NewConversation(ctx)
	require.NoError(t, err)
	_, err = f.controller.SendMessage(ctx, conversation.ID, "hello", nil)
	require.NoError(t, err)

	f.insights.On("Synthesize", mock.Anything, mock.Anything, "").
		Return(sampleEndScreen(), nil)
	f.insights.On("Extract", mock.Anything, mock.Anything, mock.Anything).
		Return(nil, &domain.ExtractionError{Err: errors.New("timeout")})

	closed, err := f.controller.Done(ctx, conversation.ID, "")

	require.NoError(t, err)
	assert.True(t, closed.Closed())
	assert.True(t, f.memory.Read(ctx).IsEmpty())
}

func TestDoneSynthesisFailureIsFatal(t *testing.T) {
	f := newFixture(&fakeProvider{fragments: []string{"ok"}})
	ctx := context.Background()

	conversation, err := f.controller.NewConversation(ctx)
	require.NoError(t, err)
	_, err = f.controller.SendMessage(ctx, conversation.ID, "hello", nil)
	require.NoError(t, err)

	f.insights.On("Synthesize", mock.Anything, mock.Anything, "").
		Return(nil, &domain.SynthesisError{Err: errors.New("model unavailable")})
	f.insights.On("Extract", mock.Anything, mock.Anything, mock.Anything).
		Return(&domain.MemoryDelta{Facts: []string{"works in software"}}, nil)

	_, err = f.controller.Done(ctx, conversation.ID, "")

	var synthErr *domain.SynthesisError
	require.ErrorAs(t, err, &synthErr)

	// The conversation stays active and memory is untouched, even though
	// extraction itself succeeded.
	stored, getErr := f.controller.Get(ctx, conversation.ID)
	require.NoError(t, getErr)
	assert.False(t, stored.Closed())
	assert.True(t, f.memory.Read(ctx).IsEmpty())

	state, stateErr := f.controller.State(ctx, conversation.ID)
	require.NoError(t, stateErr)
	assert.Equal(t, StateActive, state)
}

func TestDoneRejectsConversationWithoutUserTurns(t *testing.T) {
	f := newFixture(&fakeProvider{})
	ctx := context.Background()

	conversation, err := f.controller.NewConversation(ctx)
	require.NoError(t, err)

	_, err = f.controller.Done(ctx, conversation.ID, "")

	assert.ErrorIs(t, err, domain.ErrConversationEmpty)
	f.insights.AssertNotCalled(t, "Synthesize", mock.Anything, mock.Anything, mock.Anything)
	f.insights.AssertNotCalled(t, "Extract", mock.Anything, mock.Anything, mock.Anything)
}

func TestDoneRejectsClosedConversation(t *testing.T) {
	f := newFixture(&fakeProvider{fragments: []string{"ok"}})
	ctx := context.Background()

	conversation := closedConversation(t, f)

	_, err := f.controller.Done(ctx, conversation.ID, "")
	assert.ErrorIs(t, err, domain.ErrConversationClosed)
}

func TestDeleteLeavesMemoryIntact(t *testing.T) {
	f := newFixture(&fakeProvider{fragments: []string{"ok"}})
	ctx := context.Background()

	_, err := f.memory.Merge(ctx, domain.MemoryDelta{Facts: []string{"has a dog"}})
	require.NoError(t, err)

	conversation, err := f.controller.NewConversation(ctx)
	require.NoError(t, err)

	require.NoError(t, f.controller.Delete(ctx, conversation.ID))

	_, err = f.controller.Get(ctx, conversation.ID)
	assert.ErrorIs(t, err, domain.ErrConversationNotFound)
	assert.Equal(t, []string{"has a dog"}, f.memory.Read(ctx).Facts)
}

func TestClearAllRemovesConversationsAndMemory(t *testing.T) {
	f := newFixture(&fakeProvider{fragments: []string{"ok"}})
	ctx := context.Background()

	_, err := f.controller.NewConversation(ctx)
	require.NoError(t, err)
	_, err = f.memory.Merge(ctx, domain.MemoryDelta{Facts: []string{"has a dog"}})
	require.NoError(t, err)

	require.NoError(t, f.controller.ClearAll(ctx))

	conversations, err := f.controller.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, conversations)
	assert.True(t, f.memory.Read(ctx).IsEmpty())
}

func TestSentimentDelegatesToInsights(t *testing.T) {
	f := newFixture(&fakeProvider{fragments: []string{"ok"}})
	ctx := context.Background()

	conversation, err := f.controller.NewConversation(ctx)
	require.NoError(t, err)
	_, err = f.controller.SendMessage(ctx, conversation.ID, "hello", nil)
	require.NoError(t, err)

	want := &domain.Sentiment{Sentiment: domain.SentimentMixed, Confidence: 0.7, Summary: "s"}
	f.insights.On("Sentiment", mock.Anything, mock.Anything).Return(want, nil)

	got, err := f.controller.Sentiment(ctx, conversation.ID)

	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestSendMessageConsumerAbortStopsWithoutPersist(t *testing.T) {
	f := newFixture(&fakeProvider{fragments: []string{"Hel", "lo ", "there"}})
	ctx := context.Background()

	conversation, err := f.controller.NewConversation(ctx)
	require.NoError(t, err)

	abort := errors.New("client went away")
	_, err = f.controller.SendMessage(ctx, conversation.ID, "hello", func(string) error {
		return abort
	})

	assert.ErrorIs(t, err, abort)
	assert.Len(t, f.repo.Saves(), 1)
}

// closedConversation creates a conversation with one exchange and closes it
func closedConversation(t *testing.T, f *fixture) *domain.Conversation {
	t.Helper()
	ctx := context.Background()

	conversation, err := f.controller.NewConversation(ctx)
	require.NoError(t, err)
	_, err = f.controller.SendMessage(ctx, conversation.ID, "hello", nil)
	require.NoError(t, err)

	f.insights.On("Synthesize", mock.Anything, mock.Anything, "").
		Return(sampleEndScreen(), nil).Once()
	f.insights.On("Extract", mock.Anything, mock.Anything, mock.Anything).
		Return(&domain.MemoryDelta{}, nil).Once()

	closed, err := f.controller.Done(ctx, conversation.ID, "")
	require.NoError(t, err)
	return closed
}
