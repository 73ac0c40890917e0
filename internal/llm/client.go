package llm

import (
	"context"
	"errors"
)

var (
	ErrMissingModel  = errors.New("model is required")
	ErrEmptyResponse = errors.New("empty response from model")
)

// Attachment встроенный бинарный фрагмент запроса (изображение) с MIME-типом.
type Attachment struct {
	MIMEType string
	Data     []byte
}

// Generator минимальный интерфейс генеративной модели: текстовый промпт
// и необязательные вложения на входе, текст на выходе.
type Generator interface {
	Generate(ctx context.Context, prompt string, attachments ...Attachment) (string, error)
}
