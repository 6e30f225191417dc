package anthropic

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/voiced-app/voiced/internal/config"
	"github.com/voiced-app/voiced/internal/llm"
)

func TestCompleteRejectsUnconfigured(t *testing.T) {
	p := NewProvider(config.AnthropicConfig{})

	assert.False(t, p.IsConfigured())

	_, err := p.Complete(context.Background(), llm.Request{}, "")
	assert.Error(t, err)

	_, err = p.Stream(context.Background(), llm.Request{}, "")
	assert.Error(t, err)
}

// Concurrent completions share one provider; the conversation close path
// issues two at once. A cancelled context makes both fail before any network
// traffic, so the test exercises only the shared client.
func TestConcurrentCompletesShareClient(t *testing.T) {
	p := NewProvider(config.AnthropicConfig{APIKey: "test-key"})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	req := llm.Request{
		Messages: []llm.Message{{Role: llm.RoleUser, Content: "hi"}},
	}

	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := p.Complete(ctx, req, "")
			assert.Error(t, err)
		}()
	}
	wg.Wait()
}
