package session

import (
	"context"
	"sync"

	"github.com/stretchr/testify/mock"
	"github.com/voiced-app/voiced/internal/domain"
	"github.com/voiced-app/voiced/internal/llm"
)

// MockInsights mocks the Insights interface
type MockInsights struct {
	mock.Mock
}

func (m *MockInsights) Synthesize(ctx context.Context, turns []domain.Turn, style string) (*domain.EndScreen, error) {
	args := m.Called(ctx, turns, style)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.EndScreen), args.Error(1)
}

func (m *MockInsights) Extract(ctx context.Context, turns []domain.Turn, existing domain.WorkingMemory) (*domain.MemoryDelta, error) {
	args := m.Called(ctx, turns, existing)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.MemoryDelta), args.Error(1)
}

func (m *MockInsights) Sentiment(ctx context.Context, turns []domain.Turn) (*domain.Sentiment, error) {
	args := m.Called(ctx, turns)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Sentiment), args.Error(1)
}

// fakeProvider scripts a streaming reply: it emits fragments in order and
// then finishes with streamErr.
type fakeProvider struct {
	fragments []string
	streamErr error

	mu      sync.Mutex
	lastReq llm.Request
}

func (f *fakeProvider) Name() string              { return "fake" }
func (f *fakeProvider) AvailableModels() []string { return []string{"fake-model"} }
func (f *fakeProvider) DefaultModel() string      { return "fake-model" }
func (f *fakeProvider) IsConfigured() bool        { return true }

func (f *fakeProvider) LastRequest() llm.Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastReq
}

func (f *fakeProvider) Complete(ctx context.Context, req llm.Request, model string) (*llm.Response, error) {
	f.mu.Lock()
	f.lastReq = req
	f.mu.Unlock()

	var content string
	for _, fr := range f.fragments {
		content += fr
	}
	return &llm.Response{Content: content, Model: "fake-model"}, f.streamErr
}

func (f *fakeProvider) Stream(ctx context.Context, req llm.Request, model string) (*llm.Stream, error) {
	f.mu.Lock()
	f.lastReq = req
	f.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	out := llm.NewStream(cancel)
	go func() {
		for _, fr := range f.fragments {
			if !out.Emit(ctx, fr) {
				out.Finish(ctx.Err())
				return
			}
		}
		out.Finish(f.streamErr)
	}()
	return out, nil
}

// recordingRepo wraps a ConversationRepository and keeps a copy of every
// snapshot passed to Save, so tests can assert what was persisted and when.
type recordingRepo struct {
	domain.ConversationRepository

	mu    sync.Mutex
	saves []domain.Conversation
}

func (r *recordingRepo) Save(ctx context.Context, conversation *domain.Conversation) error {
	r.mu.Lock()
	snapshot := *conversation
	snapshot.Messages = append([]domain.Turn{}, conversation.Messages...)
	r.saves = append(r.saves, snapshot)
	r.mu.Unlock()
	return r.ConversationRepository.Save(ctx, conversation)
}

func (r *recordingRepo) Saves() []domain.Conversation {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.Conversation{}, r.saves...)
}
