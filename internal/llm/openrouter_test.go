package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"bmiadvisor/internal/config"
)

func TestOpenRouterGenerateWithImage(t *testing.T) {
	var got map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer key" {
			t.Errorf("unexpected auth header: %q", auth)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"- 野菜を増やしましょう"}}]}`))
	}))
	t.Cleanup(server.Close)

	client, err := NewOpenRouterClient(config.OpenRouterConfig{APIKey: "key", BaseURL: server.URL, Model: "test-model"}, server.Client())
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	answer, err := client.Generate(context.Background(), "食べ物ですか？", Attachment{MIMEType: "image/png", Data: []byte{1, 2, 3}})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if answer != "- 野菜を増やしましょう" {
		t.Fatalf("unexpected answer: %s", answer)
	}

	if got["model"] != "test-model" {
		t.Fatalf("unexpected model: %v", got["model"])
	}
	messages := got["messages"].([]any)
	content := messages[0].(map[string]any)["content"].([]any)
	if len(content) != 2 {
		t.Fatalf("expected text and image parts, got %d", len(content))
	}
	image := content[1].(map[string]any)["image_url"].(map[string]any)["url"].(string)
	if image != "data:image/png;base64,AQID" {
		t.Fatalf("unexpected image url: %s", image)
	}
}

func TestOpenRouterTextOnlyUsesPlainContent(t *testing.T) {
	var got map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&got)
		w.Write([]byte(`{"choices":[{"message":{"content":"ok"}}]}`))
	}))
	t.Cleanup(server.Close)

	client, _ := NewOpenRouterClient(config.OpenRouterConfig{BaseURL: server.URL, Model: "m"}, server.Client())
	if _, err := client.Generate(context.Background(), "hello"); err != nil {
		t.Fatalf("generate: %v", err)
	}
	messages := got["messages"].([]any)
	if content, ok := messages[0].(map[string]any)["content"].(string); !ok || content != "hello" {
		t.Fatalf("expected plain string content, got %#v", messages[0])
	}
}

func TestOpenRouterDoesNotRetry(t *testing.T) {
	var calls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte(strings.Repeat("x", 500)))
	}))
	t.Cleanup(server.Close)

	client, _ := NewOpenRouterClient(config.OpenRouterConfig{BaseURL: server.URL, Model: "m"}, server.Client())
	_, err := client.Generate(context.Background(), "hello")
	if err == nil {
		t.Fatalf("expected error")
	}
	if calls != 1 {
		t.Fatalf("expected a single call, got %d", calls)
	}
	if len(err.Error()) > 300 {
		t.Fatalf("error body should be truncated, got %d chars", len(err.Error()))
	}
}

func TestOpenRouterEmptyResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"choices":[]}`))
	}))
	t.Cleanup(server.Close)

	client, _ := NewOpenRouterClient(config.OpenRouterConfig{BaseURL: server.URL, Model: "m"}, server.Client())
	if _, err := client.Generate(context.Background(), "hello"); !errors.Is(err, ErrEmptyResponse) {
		t.Fatalf("expected ErrEmptyResponse, got %v", err)
	}
}

func TestOpenRouterRequiresModel(t *testing.T) {
	if _, err := NewOpenRouterClient(config.OpenRouterConfig{BaseURL: "http://x"}, http.DefaultClient); !errors.Is(err, ErrMissingModel) {
		t.Fatalf("expected ErrMissingModel, got %v", err)
	}
}
