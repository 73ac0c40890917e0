package advice

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"bmiadvisor/internal/bmi"
	"bmiadvisor/internal/imageload"
	"bmiadvisor/internal/llm"
)

const (
	// HealthFallback показывается вместо совета, если вызов модели не удался.
	HealthFallback = "アドバイス生成中にエラーが発生しました。APIキーを確認してください。"
	// FoodFallback то же для анализа фото.
	FoodFallback = "画像分析中にエラーが発生しました。APIキーを確認してください。"
)

type Kind string

const (
	KindHealth Kind = "health"
	KindFood   Kind = "food"
)

// Service строит промпты и вызывает модель. Ошибки модели не пробрасываются:
// они логируются и заменяются фиксированным текстом. Повторов нет.
type Service struct {
	generator llm.Generator
	logger    *slog.Logger
	timeout   time.Duration
}

type Config struct {
	Generator llm.Generator
	Logger    *slog.Logger
	// Timeout ограничивает один вызов, 0 значит без ограничения.
	Timeout time.Duration
}

func NewService(cfg Config) *Service {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		generator: cfg.Generator,
		logger:    logger,
		timeout:   cfg.Timeout,
	}
}

// General возвращает совет по здоровью для рассчитанного ИМТ.
func (s *Service) General(ctx context.Context, m bmi.Measurement, r bmi.Result) string {
	return s.generate(ctx, KindHealth, HealthPrompt(m, r), HealthFallback)
}

// Food возвращает оценку блюда на изображении с учётом ИМТ.
func (s *Service) Food(ctx context.Context, m bmi.Measurement, r bmi.Result, img *imageload.Image) string {
	attachment := llm.Attachment{MIMEType: img.MIMEType, Data: img.Data}
	return s.generate(ctx, KindFood, FoodPrompt(m, r), FoodFallback, attachment)
}

func (s *Service) generate(ctx context.Context, kind Kind, prompt, fallback string, attachments ...llm.Attachment) string {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	text, err := s.generator.Generate(ctx, prompt, attachments...)
	if errors.Is(err, context.Canceled) {
		// Вызов отменён более новым вводом; ответ всё равно будет отброшен.
		s.logger.Debug("advice generation cancelled", slog.String("kind", string(kind)))
		return fallback
	}
	if err != nil {
		s.logger.Error("advice generation failed",
			slog.String("kind", string(kind)),
			slog.String("error", err.Error()))
		return fallback
	}
	return text
}
