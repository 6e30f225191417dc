package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/voiced-app/voiced/internal/llm"
)

// Provider implements llm.Provider for a local Ollama instance
type Provider struct {
	host         string
	defaultModel string
	client       *http.Client
}

// NewProvider creates a new Ollama provider
func NewProvider(host, defaultModel string) *Provider {
	if defaultModel == "" {
		defaultModel = "llama3"
	}
	return &Provider{
		host:         host,
		defaultModel: defaultModel,
		client:       &http.Client{Timeout: 120 * time.Second},
	}
}

func (p *Provider) Name() string {
	return "ollama"
}

func (p *Provider) AvailableModels() []string {
	return []string{
		"llama3",
		"mistral",
		"qwen2.5",
	}
}

func (p *Provider) DefaultModel() string {
	return p.defaultModel
}

func (p *Provider) IsConfigured() bool {
	return p.host != ""
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model    string         `json:"model"`
	Messages []chatMessage  `json:"messages"`
	Stream   bool           `json:"stream"`
	Format   string         `json:"format,omitempty"`
	Options  map[string]any `json:"options,omitempty"`
}

type chatResponse struct {
	Message struct {
		Content string `json:"content"`
	} `json:"message"`
	Done      bool `json:"done"`
	EvalCount int  `json:"eval_count"`
}

func (p *Provider) buildRequest(req llm.Request, model string) chatRequest {
	if model == "" {
		model = p.defaultModel
	}

	messages := make([]chatMessage, 0, len(req.Messages)+1)
	if req.System != "" {
		messages = append(messages, chatMessage{Role: "system", Content: req.System})
	}
	for _, m := range req.Messages {
		messages = append(messages, chatMessage{Role: string(m.Role), Content: m.Content})
	}

	options := map[string]any{
		"temperature": req.Temperature,
	}
	if req.MaxOutputTokens > 0 {
		options["num_predict"] = req.MaxOutputTokens
	}

	out := chatRequest{
		Model:    model,
		Messages: messages,
		Options:  options,
	}
	if req.JSONOutput {
		out.Format = "json"
	}
	return out
}

func (p *Provider) post(ctx context.Context, chatReq chatRequest) (*http.Response, error) {
	body, err := json.Marshal(chatReq)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", p.host+"/api/chat", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("ollama returned status %d", resp.StatusCode)
	}
	return resp, nil
}

// Complete performs a blocking chat completion
func (p *Provider) Complete(ctx context.Context, req llm.Request, model string) (*llm.Response, error) {
	chatReq := p.buildRequest(req, model)
	chatReq.Stream = false

	start := time.Now()
	resp, err := p.post(ctx, chatReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var chatResp chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chatResp); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	return &llm.Response{
		Content:    chatResp.Message.Content,
		Model:      chatReq.Model,
		TokensUsed: chatResp.EvalCount,
		LatencyMs:  time.Since(start).Milliseconds(),
	}, nil
}

// Stream starts a streaming chat completion. Ollama streams one JSON object
// per line until a final object with done=true.
func (p *Provider) Stream(ctx context.Context, req llm.Request, model string) (*llm.Stream, error) {
	chatReq := p.buildRequest(req, model)
	chatReq.Stream = true

	ctx, cancel := context.WithCancel(ctx)

	resp, err := p.post(ctx, chatReq)
	if err != nil {
		cancel()
		return nil, err
	}

	out := llm.NewStream(cancel)

	go func() {
		defer resp.Body.Close()

		dec := json.NewDecoder(resp.Body)
		for {
			var chunk chatResponse
			if err := dec.Decode(&chunk); err != nil {
				if err == io.EOF {
					out.Finish(fmt.Errorf("ollama stream ended without done signal"))
				} else {
					out.Finish(fmt.Errorf("ollama stream failed: %w", err))
				}
				return
			}
			if chunk.Message.Content != "" {
				if !out.Emit(ctx, chunk.Message.Content) {
					out.Finish(ctx.Err())
					return
				}
			}
			if chunk.Done {
				out.Finish(nil)
				return
			}
		}
	}()

	return out, nil
}
