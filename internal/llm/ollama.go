package llm

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/ollama/ollama/api"

	"bmiadvisor/internal/config"
	"bmiadvisor/internal/imageload"
)

// OllamaClient обращается к локальной vision-модели через Ollama.
type OllamaClient struct {
	client      *api.Client
	model       string
	maxImageDim int
}

func NewOllamaClient(cfg config.OllamaConfig, httpClient *http.Client) (*OllamaClient, error) {
	if cfg.Model == "" {
		return nil, ErrMissingModel
	}
	parsed, err := url.Parse(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid ollama url: %w", err)
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return nil, fmt.Errorf("invalid ollama url %q", cfg.URL)
	}
	// Путь вроде /api/chat отбрасываем: клиент сам добавляет его.
	base := &url.URL{Scheme: parsed.Scheme, Host: parsed.Host}
	return &OllamaClient{
		client:      api.NewClient(base, httpClient),
		model:       cfg.Model,
		maxImageDim: cfg.MaxImageDim,
	}, nil
}

func (c *OllamaClient) Generate(ctx context.Context, prompt string, attachments ...Attachment) (string, error) {
	images := make([]api.ImageData, 0, len(attachments))
	for _, a := range attachments {
		img, err := imageload.Downscale(&imageload.Image{MIMEType: a.MIMEType, Data: a.Data}, c.maxImageDim)
		if err != nil {
			return "", fmt.Errorf("prepare image: %w", err)
		}
		images = append(images, api.ImageData(img.Data))
	}

	stream := false
	req := &api.ChatRequest{
		Model: c.model,
		Messages: []api.Message{
			{Role: "user", Content: prompt, Images: images},
		},
		Stream: &stream,
	}

	var b strings.Builder
	err := c.client.Chat(ctx, req, func(resp api.ChatResponse) error {
		b.WriteString(resp.Message.Content)
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("ollama chat: %w", err)
	}
	if strings.TrimSpace(b.String()) == "" {
		return "", ErrEmptyResponse
	}
	return b.String(), nil
}
