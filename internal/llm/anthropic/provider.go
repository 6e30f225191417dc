package anthropic

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/voiced-app/voiced/internal/config"
	"github.com/voiced-app/voiced/internal/llm"
)

const defaultMaxTokens = 1024

// Provider implements llm.Provider for Anthropic
type Provider struct {
	apiKey string
	model  string
	client anthropic.Client
}

// NewProvider creates a new Anthropic provider. The SDK client is built
// eagerly so the provider is safe for concurrent use.
func NewProvider(cfg config.AnthropicConfig) *Provider {
	p := &Provider{
		apiKey: cfg.APIKey,
		model:  cfg.Model,
	}
	if cfg.APIKey != "" {
		p.client = anthropic.NewClient(option.WithAPIKey(cfg.APIKey))
	}
	return p
}

func (p *Provider) Name() string {
	return "anthropic"
}

func (p *Provider) AvailableModels() []string {
	return []string{
		"claude-sonnet-4-20250514",
		"claude-3-5-haiku-20241022",
		"claude-3-5-sonnet-20241022",
	}
}

func (p *Provider) DefaultModel() string {
	if p.model != "" {
		return p.model
	}
	return "claude-3-5-haiku-20241022"
}

func (p *Provider) IsConfigured() bool {
	return p.apiKey != ""
}

func (p *Provider) buildParams(req llm.Request, model string) anthropic.MessageNewParams {
	if model == "" {
		model = p.DefaultModel()
	}

	maxTokens := req.MaxOutputTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}

	messages := make([]anthropic.MessageParam, 0, len(req.Messages))
	for _, m := range req.Messages {
		switch m.Role {
		case llm.RoleUser:
			messages = append(messages, anthropic.NewUserMessage(anthropic.NewTextBlock(m.Content)))
		case llm.RoleAssistant:
			messages = append(messages, anthropic.NewAssistantMessage(anthropic.NewTextBlock(m.Content)))
		}
	}

	system := req.System
	if req.JSONOutput {
		// Anthropic has no JSON response mode; the instruction carries it.
		system = strings.TrimSpace(system + "\nRespond with a single valid JSON object and nothing else.")
	}

	params := anthropic.MessageNewParams{
		Model:       anthropic.Model(model),
		MaxTokens:   int64(maxTokens),
		Messages:    messages,
		Temperature: anthropic.Float(req.Temperature),
	}
	if system != "" {
		params.System = []anthropic.TextBlockParam{{Text: system}}
	}
	return params
}

// Complete performs a blocking chat completion
func (p *Provider) Complete(ctx context.Context, req llm.Request, model string) (*llm.Response, error) {
	if !p.IsConfigured() {
		return nil, fmt.Errorf("anthropic provider is not configured (missing API key)")
	}

	params := p.buildParams(req, model)

	start := time.Now()
	message, err := p.client.Messages.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("anthropic request failed: %w", err)
	}

	if len(message.Content) == 0 {
		return nil, fmt.Errorf("empty response from anthropic")
	}

	var content strings.Builder
	for _, block := range message.Content {
		content.WriteString(block.Text)
	}

	return &llm.Response{
		Content:    content.String(),
		Model:      string(params.Model),
		TokensUsed: int(message.Usage.InputTokens + message.Usage.OutputTokens),
		LatencyMs:  time.Since(start).Milliseconds(),
	}, nil
}

// Stream starts a streaming chat completion
func (p *Provider) Stream(ctx context.Context, req llm.Request, model string) (*llm.Stream, error) {
	if !p.IsConfigured() {
		return nil, fmt.Errorf("anthropic provider is not configured (missing API key)")
	}

	params := p.buildParams(req, model)

	ctx, cancel := context.WithCancel(ctx)
	out := llm.NewStream(cancel)

	go func() {
		stream := p.client.Messages.NewStreaming(ctx, params)
		defer func() { _ = stream.Close() }()

		for stream.Next() {
			event := stream.Current()
			switch eventVariant := event.AsAny().(type) {
			case anthropic.ContentBlockDeltaEvent:
				switch deltaVariant := eventVariant.Delta.AsAny().(type) {
				case anthropic.TextDelta:
					if deltaVariant.Text == "" {
						continue
					}
					if !out.Emit(ctx, deltaVariant.Text) {
						out.Finish(ctx.Err())
						return
					}
				}
			}
		}

		if err := stream.Err(); err != nil {
			out.Finish(fmt.Errorf("anthropic stream failed: %w", err))
			return
		}
		out.Finish(nil)
	}()

	return out, nil
}
