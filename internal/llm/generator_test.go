package llm

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"testing"

	"github.com/google/generative-ai-go/genai"

	"bmiadvisor/internal/config"
)

type stubGenerator struct {
	text string
	err  error
}

func (s *stubGenerator) Generate(ctx context.Context, prompt string, attachments ...Attachment) (string, error) {
	return s.text, s.err
}

func TestGeminiText(t *testing.T) {
	resp := &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{
			{Content: &genai.Content{Parts: []genai.Part{genai.Text("## 判定\n"), genai.Blob{MIMEType: "image/png"}, genai.Text("- 良好")}}},
		},
	}
	text, err := geminiText(resp)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if text != "## 判定\n- 良好" {
		t.Fatalf("unexpected text: %q", text)
	}

	empty := []*genai.GenerateContentResponse{
		nil,
		{},
		{Candidates: []*genai.Candidate{{}}},
		{Candidates: []*genai.Candidate{{Content: &genai.Content{Parts: []genai.Part{genai.Blob{}}}}}},
	}
	for i, resp := range empty {
		if _, err := geminiText(resp); !errors.Is(err, ErrEmptyResponse) {
			t.Errorf("case %d: expected ErrEmptyResponse, got %v", i, err)
		}
	}
}

func TestWithLogging(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	gen := WithLogging(&stubGenerator{err: errors.New("quota")}, "gemini", "gemini-2.0-flash", logger)
	if _, err := gen.Generate(context.Background(), "p"); err == nil || err.Error() != "quota" {
		t.Fatalf("error must pass through, got %v", err)
	}
	if !strings.Contains(buf.String(), "model=gemini-2.0-flash") || !strings.Contains(buf.String(), "ok=false") {
		t.Fatalf("unexpected log: %s", buf.String())
	}

	plain := &stubGenerator{}
	if WithLogging(plain, "gemini", "m", nil) != Generator(plain) {
		t.Fatalf("nil logger must return the generator unchanged")
	}
}

func TestNewSelectsBackend(t *testing.T) {
	cfg := config.Config{
		AdviceBackend: config.BackendOpenRouter,
		OpenRouter:    config.OpenRouterConfig{BaseURL: "http://localhost", Model: "m"},
		Ollama:        config.OllamaConfig{URL: "http://localhost:11434", Model: "llava"},
	}
	gen, closeFn, err := New(context.Background(), cfg, http.DefaultClient, nil)
	if err != nil {
		t.Fatalf("openrouter: %v", err)
	}
	if _, ok := gen.(*OpenRouterClient); !ok {
		t.Fatalf("expected OpenRouterClient, got %T", gen)
	}
	if err := closeFn(); err != nil {
		t.Fatalf("close: %v", err)
	}

	cfg.AdviceBackend = config.BackendOllama
	gen, _, err = New(context.Background(), cfg, http.DefaultClient, nil)
	if err != nil {
		t.Fatalf("ollama: %v", err)
	}
	if _, ok := gen.(*OllamaClient); !ok {
		t.Fatalf("expected OllamaClient, got %T", gen)
	}

	cfg.AdviceBackend = "bard"
	if _, _, err := New(context.Background(), cfg, http.DefaultClient, nil); err == nil {
		t.Fatalf("expected error for unknown backend")
	}
}
