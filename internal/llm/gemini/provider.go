package gemini

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"github.com/voiced-app/voiced/internal/config"
	"github.com/voiced-app/voiced/internal/llm"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

// Provider implements llm.Provider for Google Gemini
type Provider struct {
	apiKey string
	model  string
}

// NewProvider creates a new Gemini provider
func NewProvider(cfg config.GeminiConfig) *Provider {
	return &Provider{
		apiKey: cfg.APIKey,
		model:  cfg.Model,
	}
}

func (p *Provider) Name() string {
	return "gemini"
}

func (p *Provider) AvailableModels() []string {
	return []string{
		"gemini-2.5-flash",
		"gemini-1.5-flash",
		"gemini-1.5-pro",
	}
}

func (p *Provider) DefaultModel() string {
	if p.model != "" {
		return p.model
	}
	return "gemini-2.5-flash"
}

func (p *Provider) IsConfigured() bool {
	return p.apiKey != ""
}

func (p *Provider) newModel(client *genai.Client, req llm.Request, model string) (*genai.GenerativeModel, string) {
	if model == "" {
		model = p.DefaultModel()
	}

	gm := client.GenerativeModel(model)
	temperature := float32(req.Temperature)
	gm.Temperature = &temperature
	if req.MaxOutputTokens > 0 {
		maxTokens := int32(req.MaxOutputTokens)
		gm.MaxOutputTokens = &maxTokens
	}
	if req.JSONOutput {
		gm.ResponseMIMEType = "application/json"
	}
	if req.System != "" {
		gm.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(req.System)}}
	}
	return gm, model
}

// split maps the turn history into Gemini chat history plus the final user
// message to send.
func split(messages []llm.Message) ([]*genai.Content, string) {
	if len(messages) == 0 {
		return nil, ""
	}

	last := messages[len(messages)-1]
	history := make([]*genai.Content, 0, len(messages)-1)
	for _, m := range messages[:len(messages)-1] {
		role := "user"
		if m.Role == llm.RoleAssistant {
			role = "model"
		}
		history = append(history, &genai.Content{
			Role:  role,
			Parts: []genai.Part{genai.Text(m.Content)},
		})
	}
	return history, last.Content
}

func collectText(resp *genai.GenerateContentResponse) string {
	var b strings.Builder
	for _, cand := range resp.Candidates {
		if cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if text, ok := part.(genai.Text); ok {
				b.WriteString(string(text))
			}
		}
	}
	return b.String()
}

// Complete performs a blocking chat completion
func (p *Provider) Complete(ctx context.Context, req llm.Request, model string) (*llm.Response, error) {
	if !p.IsConfigured() {
		return nil, fmt.Errorf("gemini provider is not configured (missing API key)")
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(p.apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}
	defer client.Close()

	gm, modelName := p.newModel(client, req, model)
	history, last := split(req.Messages)
	cs := gm.StartChat()
	cs.History = history

	start := time.Now()
	resp, err := cs.SendMessage(ctx, genai.Text(last))
	latency := time.Since(start).Milliseconds()
	if err != nil {
		return nil, fmt.Errorf("gemini generation error: %w", err)
	}

	content := collectText(resp)
	if content == "" {
		return nil, fmt.Errorf("empty response from gemini")
	}

	tokensUsed := 0
	if resp.UsageMetadata != nil {
		tokensUsed = int(resp.UsageMetadata.TotalTokenCount)
	}

	return &llm.Response{
		Content:    content,
		Model:      modelName,
		TokensUsed: tokensUsed,
		LatencyMs:  latency,
	}, nil
}

// Stream starts a streaming chat completion
func (p *Provider) Stream(ctx context.Context, req llm.Request, model string) (*llm.Stream, error) {
	if !p.IsConfigured() {
		return nil, fmt.Errorf("gemini provider is not configured (missing API key)")
	}

	ctx, cancel := context.WithCancel(ctx)

	client, err := genai.NewClient(ctx, option.WithAPIKey(p.apiKey))
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	gm, _ := p.newModel(client, req, model)
	history, last := split(req.Messages)
	cs := gm.StartChat()
	cs.History = history

	out := llm.NewStream(cancel)

	go func() {
		defer client.Close()

		iter := cs.SendMessageStream(ctx, genai.Text(last))
		for {
			resp, err := iter.Next()
			if err == iterator.Done {
				out.Finish(nil)
				return
			}
			if err != nil {
				out.Finish(fmt.Errorf("gemini stream failed: %w", err))
				return
			}
			if text := collectText(resp); text != "" {
				if !out.Emit(ctx, text) {
					out.Finish(ctx.Err())
					return
				}
			}
		}
	}()

	return out, nil
}
