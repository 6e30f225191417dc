// Package insight turns finished conversations into structured artifacts:
// the end-of-conversation screen, new working-memory entries, and a
// sentiment classification.
package insight

import (
	"context"
	"fmt"

	"github.com/voiced-app/voiced/internal/config"
	"github.com/voiced-app/voiced/internal/domain"
	"github.com/voiced-app/voiced/internal/llm"
)

// Service runs the model calls behind synthesis, extraction and sentiment
// analysis. Each call is bounded by the configured timeout since all three
// are a single blocking unit from the user's perspective.
type Service struct {
	router *llm.Router
	cfg    config.InsightConfig
}

// NewService creates a new insight service
func NewService(router *llm.Router, cfg config.InsightConfig) *Service {
	return &Service{router: router, cfg: cfg}
}

// Synthesize produces the end-of-conversation screen for a finished
// conversation. Failure is fatal to the "done" action, so errors are wrapped
// in SynthesisError for the caller to surface.
func (s *Service) Synthesize(ctx context.Context, turns []domain.Turn, style string) (*domain.EndScreen, error) {
	if style == "" {
		style = s.cfg.DefaultStyle
	}

	raw, err := s.complete(ctx, llm.Request{
		System: llm.SynthesisSystemMessage,
		Messages: []llm.Message{
			{Role: llm.RoleUser, Content: llm.BuildSynthesisPrompt(llm.FormatTranscript(turns), style)},
		},
		Temperature: s.cfg.SynthesisTemperature,
		JSONOutput:  true,
	})
	if err != nil {
		return nil, &domain.SynthesisError{Err: err}
	}

	artifact, err := decodeEndScreen(raw)
	if err != nil {
		return nil, &domain.SynthesisError{Err: err}
	}
	return artifact, nil
}

// Extract proposes working-memory entries genuinely new relative to existing
// memory. Failures are wrapped in ExtractionError; callers treat them as
// non-fatal and skip the memory update.
func (s *Service) Extract(ctx context.Context, turns []domain.Turn, existing domain.WorkingMemory) (*domain.MemoryDelta, error) {
	raw, err := s.complete(ctx, llm.Request{
		System: llm.ExtractionSystemMessage,
		Messages: []llm.Message{
			{Role: llm.RoleUser, Content: llm.BuildExtractionPrompt(llm.FormatTranscript(turns), existing)},
		},
		Temperature: s.cfg.ExtractionTemperature,
		JSONOutput:  true,
	})
	if err != nil {
		return nil, &domain.ExtractionError{Err: err}
	}

	delta, err := decodeMemoryDelta(raw)
	if err != nil {
		return nil, &domain.ExtractionError{Err: err}
	}
	return delta, nil
}

// Sentiment classifies the dominant emotional tone of a conversation.
// Conversations with fewer than two turns have no meaningful sentiment and
// return nil without calling the model.
func (s *Service) Sentiment(ctx context.Context, turns []domain.Turn) (*domain.Sentiment, error) {
	if len(turns) < 2 {
		return nil, nil
	}

	raw, err := s.complete(ctx, llm.Request{
		System: llm.SentimentSystemMessage,
		Messages: []llm.Message{
			{Role: llm.RoleUser, Content: llm.BuildSentimentPrompt(llm.FormatTranscript(turns))},
		},
		Temperature: s.cfg.ExtractionTemperature,
		JSONOutput:  true,
	})
	if err != nil {
		return nil, err
	}

	return decodeSentiment(raw)
}

func (s *Service) complete(ctx context.Context, req llm.Request) (string, error) {
	provider, err := s.router.GetProvider("")
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrTransport, err)
	}

	if s.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.Timeout)
		defer cancel()
	}

	resp, err := provider.Complete(ctx, req, "")
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrTransport, err)
	}
	if resp.Content == "" {
		return "", fmt.Errorf("%w: empty model output", domain.ErrMalformedOutput)
	}
	return resp.Content, nil
}
