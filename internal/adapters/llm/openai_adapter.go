// Package llm adapts infrastructure chat clients to the domain's narrow LLM
// collaborator interface.
package llm

import (
	"context"
	"time"

	"github.com/careatlas/queryengine/internal/domain/providers"
	"github.com/careatlas/queryengine/internal/infrastructure/clients/openai"
	"github.com/careatlas/queryengine/pkg/retry"
)

// chatRetryConfig bounds retries of a single Chat call well inside the
// orchestrator's 10s plan deadline.
var chatRetryConfig = retry.Config{
	MaxAttempts:     3,
	InitialDelay:    100 * time.Millisecond,
	MaxDelay:        1 * time.Second,
	BackoffFactor:   2.0,
	MaxTotalTimeout: 4 * time.Second,
}

// OpenAIAdapter implements providers.LLM on top of the infrastructure
// OpenAI chat client.
type OpenAIAdapter struct {
	client *openai.Client
}

// NewOpenAIAdapter wraps an OpenAI client as a providers.LLM.
func NewOpenAIAdapter(client *openai.Client) providers.LLM {
	return &OpenAIAdapter{client: client}
}

// Chat delegates to the underlying client, translating between the
// domain's ChatMessage and the client's wire-level message shape, retrying
// a failed call with bounded exponential backoff before giving up.
func (a *OpenAIAdapter) Chat(ctx context.Context, messages []providers.ChatMessage, maxTokens int, temperature float64) (string, error) {
	wire := make([]openai.Message, len(messages))
	for i, m := range messages {
		wire[i] = openai.Message{Role: m.Role, Content: m.Content}
	}
	return retry.DoValue(ctx, chatRetryConfig, func() (string, error) {
		return a.client.Chat(ctx, wire, maxTokens, temperature)
	})
}
