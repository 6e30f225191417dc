package openai

import (
	"context"
	"fmt"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"
	"github.com/voiced-app/voiced/internal/config"
	"github.com/voiced-app/voiced/internal/llm"
)

// Provider implements llm.Provider for OpenAI
type Provider struct {
	apiKey string
	model  string
	client openai.Client
}

// NewProvider creates a new OpenAI provider. The SDK client is built eagerly
// so the provider is safe for concurrent use.
func NewProvider(cfg config.OpenAIConfig) *Provider {
	p := &Provider{
		apiKey: cfg.APIKey,
		model:  cfg.Model,
	}
	if cfg.APIKey != "" {
		p.client = openai.NewClient(option.WithAPIKey(cfg.APIKey))
	}
	return p
}

func (p *Provider) Name() string {
	return "openai"
}

func (p *Provider) AvailableModels() []string {
	return []string{
		"gpt-4o-mini",
		"gpt-4o",
		"gpt-4.1-mini",
		"gpt-4.1",
	}
}

func (p *Provider) DefaultModel() string {
	if p.model != "" {
		return p.model
	}
	return "gpt-4o-mini"
}

func (p *Provider) IsConfigured() bool {
	return p.apiKey != ""
}

func (p *Provider) buildParams(req llm.Request, model string) openai.ChatCompletionNewParams {
	if model == "" {
		model = p.DefaultModel()
	}

	messages := make([]openai.ChatCompletionMessageParamUnion, 0, len(req.Messages)+1)
	if req.System != "" {
		messages = append(messages, openai.SystemMessage(req.System))
	}
	for _, m := range req.Messages {
		switch m.Role {
		case llm.RoleUser:
			messages = append(messages, openai.UserMessage(m.Content))
		case llm.RoleAssistant:
			messages = append(messages, openai.AssistantMessage(m.Content))
		case llm.RoleSystem:
			messages = append(messages, openai.SystemMessage(m.Content))
		}
	}

	params := openai.ChatCompletionNewParams{
		Model:       openai.ChatModel(model),
		Messages:    messages,
		Temperature: openai.Float(req.Temperature),
	}
	if req.MaxOutputTokens > 0 {
		params.MaxTokens = openai.Int(int64(req.MaxOutputTokens))
	}
	if req.JSONOutput {
		params.ResponseFormat = openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &shared.ResponseFormatJSONObjectParam{},
		}
	}
	return params
}

// Complete performs a blocking chat completion
func (p *Provider) Complete(ctx context.Context, req llm.Request, model string) (*llm.Response, error) {
	if !p.IsConfigured() {
		return nil, fmt.Errorf("openai provider is not configured (missing API key)")
	}

	params := p.buildParams(req, model)

	start := time.Now()
	completion, err := p.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("openai request failed: %w", err)
	}

	if len(completion.Choices) == 0 {
		return nil, fmt.Errorf("empty response from openai")
	}

	return &llm.Response{
		Content:    completion.Choices[0].Message.Content,
		Model:      string(params.Model),
		TokensUsed: int(completion.Usage.TotalTokens),
		LatencyMs:  time.Since(start).Milliseconds(),
	}, nil
}

// Stream starts a streaming chat completion
func (p *Provider) Stream(ctx context.Context, req llm.Request, model string) (*llm.Stream, error) {
	if !p.IsConfigured() {
		return nil, fmt.Errorf("openai provider is not configured (missing API key)")
	}

	params := p.buildParams(req, model)

	ctx, cancel := context.WithCancel(ctx)
	out := llm.NewStream(cancel)

	go func() {
		stream := p.client.Chat.Completions.NewStreaming(ctx, params)
		defer func() { _ = stream.Close() }()

		for stream.Next() {
			chunk := stream.Current()
			if len(chunk.Choices) == 0 {
				continue
			}
			if content := chunk.Choices[0].Delta.Content; content != "" {
				if !out.Emit(ctx, content) {
					out.Finish(ctx.Err())
					return
				}
			}
		}

		if err := stream.Err(); err != nil {
			out.Finish(fmt.Errorf("openai stream failed: %w", err))
			return
		}
		out.Finish(nil)
	}()

	return out, nil
}
