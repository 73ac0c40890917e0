package llm

import (
	"context"
	"log/slog"
	"time"
)

type loggingGenerator struct {
	next    Generator
	backend string
	model   string
	logger  *slog.Logger
}

// WithLogging пишет в debug-лог бэкенд, модель и длительность каждого вызова.
func WithLogging(next Generator, backend, model string, logger *slog.Logger) Generator {
	if logger == nil {
		return next
	}
	return &loggingGenerator{next: next, backend: backend, model: model, logger: logger}
}

func (g *loggingGenerator) Generate(ctx context.Context, prompt string, attachments ...Attachment) (string, error) {
	start := time.Now()
	text, err := g.next.Generate(ctx, prompt, attachments...)
	g.logger.Debug("model call",
		slog.String("backend", g.backend),
		slog.String("model", g.model),
		slog.Int("attachments", len(attachments)),
		slog.Int("prompt_len", len(prompt)),
		slog.Int("response_len", len(text)),
		slog.Bool("ok", err == nil),
		slog.Duration("duration", time.Since(start)),
	)
	return text, err
}
