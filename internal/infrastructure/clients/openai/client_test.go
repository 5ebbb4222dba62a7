package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/careatlas/queryengine/pkg/config"
)

func TestClient_Chat_MissingAPIKey(t *testing.T) {
	client := NewClient(&config.LLMConfig{Model: "gpt-4o-mini", BaseURL: "http://unused"})

	_, err := client.Chat(context.Background(), []Message{{Role: "user", Content: "hi"}}, 100, 0.2)
	if err == nil {
		t.Fatal("expected an error when api key is empty")
	}
}

func TestClient_Chat_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer test-key" {
			t.Errorf("unexpected authorization header: %s", r.Header.Get("Authorization"))
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(chatCompletionResponse{
			Choices: []chatChoice{
				{Message: Message{Role: "assistant", Content: "GENERAL"}},
			},
		})
	}))
	defer server.Close()

	client := NewClient(&config.LLMConfig{APIKey: "test-key", Model: "gpt-4o-mini", BaseURL: server.URL})

	content, err := client.Chat(context.Background(), []Message{{Role: "user", Content: "classify: hello"}}, 20, 0.0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if content != "GENERAL" {
		t.Fatalf("expected GENERAL, got %q", content)
	}
}

func TestClient_Chat_NonOKStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	client := NewClient(&config.LLMConfig{APIKey: "test-key", BaseURL: server.URL})

	_, err := client.Chat(context.Background(), []Message{{Role: "user", Content: "hi"}}, 20, 0.0)
	if err == nil {
		t.Fatal("expected an error for a non-2xx response")
	}
}

func TestClient_Chat_NoChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(chatCompletionResponse{Choices: nil})
	}))
	defer server.Close()

	client := NewClient(&config.LLMConfig{APIKey: "test-key", BaseURL: server.URL})

	_, err := client.Chat(context.Background(), []Message{{Role: "user", Content: "hi"}}, 20, 0.0)
	if err == nil {
		t.Fatal("expected an error when no choices are returned")
	}
}
