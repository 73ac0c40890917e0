package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"bmiadvisor/internal/config"
)

func TestOllamaGenerate(t *testing.T) {
	var got map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/chat" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"model":"llava","message":{"role":"assistant","content":"食べ物です"},"done":true}` + "\n"))
	}))
	t.Cleanup(server.Close)

	client, err := NewOllamaClient(config.OllamaConfig{URL: server.URL + "/api/chat", Model: "llava", MaxImageDim: 1024}, server.Client())
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	answer, err := client.Generate(context.Background(), "これは食べ物ですか？", Attachment{MIMEType: "image/heic", Data: []byte("raw")})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if answer != "食べ物です" {
		t.Fatalf("unexpected answer: %s", answer)
	}

	if got["model"] != "llava" {
		t.Fatalf("unexpected model: %v", got["model"])
	}
	if got["stream"] != false {
		t.Fatalf("stream must be disabled, got %v", got["stream"])
	}
	messages := got["messages"].([]any)
	images := messages[0].(map[string]any)["images"].([]any)
	// Недекодируемая картинка уходит без изменений.
	if len(images) != 1 || images[0] != "cmF3" {
		t.Fatalf("unexpected images: %v", images)
	}
}

func TestOllamaRejectsBadURL(t *testing.T) {
	if _, err := NewOllamaClient(config.OllamaConfig{URL: "localhost", Model: "llava"}, http.DefaultClient); err == nil {
		t.Fatalf("expected error for url without scheme")
	}
}
