package llm

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"bmiadvisor/internal/config"
)

// New собирает генератор для выбранного в конфигурации бэкенда.
// Возвращаемая функция освобождает ресурсы клиента.
func New(ctx context.Context, cfg config.Config, httpClient *http.Client, logger *slog.Logger) (Generator, func() error, error) {
	noop := func() error { return nil }

	switch cfg.AdviceBackend {
	case config.BackendGemini:
		client, err := NewGeminiClient(ctx, cfg.Gemini)
		if err != nil {
			return nil, noop, err
		}
		return WithLogging(client, cfg.AdviceBackend, cfg.Gemini.Model, logger), client.Close, nil
	case config.BackendOpenRouter:
		client, err := NewOpenRouterClient(cfg.OpenRouter, httpClient)
		if err != nil {
			return nil, noop, err
		}
		return WithLogging(client, cfg.AdviceBackend, cfg.OpenRouter.Model, logger), noop, nil
	case config.BackendOllama:
		client, err := NewOllamaClient(cfg.Ollama, httpClient)
		if err != nil {
			return nil, noop, err
		}
		return WithLogging(client, cfg.AdviceBackend, cfg.Ollama.Model, logger), noop, nil
	default:
		return nil, noop, fmt.Errorf("unknown advice backend %q", cfg.AdviceBackend)
	}
}
