package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/careatlas/queryengine/internal/domain/providers"
	"github.com/careatlas/queryengine/internal/infrastructure/clients/openai"
	"github.com/careatlas/queryengine/pkg/config"
)

func TestOpenAIAdapter_Chat(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Messages []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.Len(t, body.Messages, 1)
		assert.Equal(t, "user", body.Messages[0].Role)

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]string{"role": "assistant", "content": "COUNT"}},
			},
		})
	}))
	defer server.Close()

	client := openai.NewClient(&config.LLMConfig{APIKey: "test-key", BaseURL: server.URL})
	adapter := NewOpenAIAdapter(client)

	reply, err := adapter.Chat(context.Background(), []providers.ChatMessage{
		{Role: "user", Content: "classify: how many hospitals in Accra"},
	}, 20, 0.0)

	require.NoError(t, err)
	assert.Equal(t, "COUNT", reply)
}

func TestOpenAIAdapter_ChatRetriesOnTransientFailure(t *testing.T) {
	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts < 2 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]string{"role": "assistant", "content": "VALIDATION"}},
			},
		})
	}))
	defer server.Close()

	client := openai.NewClient(&config.LLMConfig{APIKey: "test-key", BaseURL: server.URL})
	adapter := NewOpenAIAdapter(client)

	reply, err := adapter.Chat(context.Background(), []providers.ChatMessage{
		{Role: "user", Content: "classify: validate the claims"},
	}, 20, 0.0)

	require.NoError(t, err)
	assert.Equal(t, "VALIDATION", reply)
	assert.Equal(t, 2, attempts)
}
