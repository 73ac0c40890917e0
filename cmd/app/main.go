package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"bmiadvisor/internal/advice"
	"bmiadvisor/internal/config"
	"bmiadvisor/internal/httpserver"
	"bmiadvisor/internal/imageload"
	"bmiadvisor/internal/llm"
	"bmiadvisor/internal/session"
	"bmiadvisor/internal/transport"
	"log/slog"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger := newLogger(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	httpClient := transport.NewHTTPClient(cfg.RequestTimeout)
	generator, closeGenerator, err := llm.New(ctx, cfg, httpClient, logger)
	if err != nil {
		log.Fatalf("failed to init advice backend: %v", err)
	}
	defer func() {
		if err := closeGenerator(); err != nil {
			logger.Error("close advice backend", slog.String("error", err.Error()))
		}
	}()

	adviceService := advice.NewService(advice.Config{
		Generator: generator,
		Logger:    logger,
		Timeout:   cfg.AdviceTimeout,
	})

	store := session.NewStore(cfg.SessionTTL)
	go store.RunSweeper(ctx, sweepInterval(cfg.SessionTTL), logger)

	router := httpserver.NewRouter(httpserver.RouterDeps{
		Logger:        logger,
		Store:         store,
		Advisor:       adviceService,
		Loader:        imageload.NewLoader(cfg.ImageMaxBytes),
		MaxImageBytes: cfg.ImageMaxBytes,
		ModelName:     modelName(cfg),
	})

	server := &http.Server{
		Addr:        cfg.HTTPAddr,
		Handler:     router,
		ReadTimeout: 30 * time.Second,
		// Запрос совета ждёт ответа модели, поэтому запись не ограничена.
		WriteTimeout: 0,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server starting",
			slog.String("addr", cfg.HTTPAddr),
			slog.String("backend", cfg.AdviceBackend),
			slog.String("model", modelName(cfg)),
		)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server failed", slog.String("error", err.Error()))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", slog.String("error", err.Error()))
	}

	logger.Info("server stopped")
}

func newLogger(level string) *slog.Logger {
	slogLevel := slog.LevelInfo
	switch level {
	case "debug":
		slogLevel = slog.LevelDebug
	case "info":
		slogLevel = slog.LevelInfo
	case "warn":
		slogLevel = slog.LevelWarn
	case "error":
		slogLevel = slog.LevelError
	}

	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slogLevel}))
}

func modelName(cfg config.Config) string {
	switch cfg.AdviceBackend {
	case config.BackendOpenRouter:
		return cfg.OpenRouter.Model
	case config.BackendOllama:
		return cfg.Ollama.Model
	default:
		return cfg.Gemini.Model
	}
}

// sweepInterval чистит хранилище несколько раз за время жизни сессии.
func sweepInterval(ttl time.Duration) time.Duration {
	interval := ttl / 4
	if interval < time.Minute {
		interval = time.Minute
	}
	return interval
}
