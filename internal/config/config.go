package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"bmiadvisor/internal/imageload"
)

const (
	BackendGemini     = "gemini"
	BackendOpenRouter = "openrouter"
	BackendOllama     = "ollama"
)

type Config struct {
	HTTPAddr       string
	LogLevel       string
	RequestTimeout time.Duration
	// AdviceTimeout ограничивает один вызов модели, 0 значит без ограничения.
	AdviceTimeout time.Duration
	SessionTTL    time.Duration
	AdviceBackend string
	ImageMaxBytes int64
	Gemini        GeminiConfig
	OpenRouter    OpenRouterConfig
	Ollama        OllamaConfig
}

type GeminiConfig struct {
	APIKey string
	Model  string
}

type OpenRouterConfig struct {
	APIKey  string
	BaseURL string
	Model   string
}

type OllamaConfig struct {
	URL         string
	Model       string
	MaxImageDim int
}

// fileConfig описывает необязательный YAML-файл из CONFIG_FILE.
// Переменные окружения имеют приоритет над значениями из файла.
type fileConfig struct {
	HTTPAddr          string `yaml:"http_addr"`
	LogLevel          string `yaml:"log_level"`
	HTTPClientTimeout string `yaml:"http_client_timeout"`
	AdviceTimeout     string `yaml:"advice_timeout"`
	SessionTTL        string `yaml:"session_ttl"`
	AdviceBackend     string `yaml:"advice_backend"`
	ImageMaxBytes     int64  `yaml:"image_max_bytes"`
	Gemini            struct {
		APIKey string `yaml:"api_key"`
		Model  string `yaml:"model"`
	} `yaml:"gemini"`
	OpenRouter struct {
		APIKey  string `yaml:"api_key"`
		BaseURL string `yaml:"base_url"`
		Model   string `yaml:"model"`
	} `yaml:"openrouter"`
	Ollama struct {
		URL         string `yaml:"url"`
		Model       string `yaml:"model"`
		MaxImageDim int    `yaml:"max_image_dim"`
	} `yaml:"ollama"`
}

// Load собирает конфигурацию: .env (если есть), затем YAML из CONFIG_FILE,
// затем переменные окружения.
func Load() (Config, error) {
	if err := godotenv.Load(getEnv("DOTENV_FILE", ".env")); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load dotenv: %w", err)
	}

	src := source{}
	if path := getEnv("CONFIG_FILE", ""); path != "" {
		values, err := readFile(path)
		if err != nil {
			return Config{}, err
		}
		src.file = values
	}

	return load(src)
}

func load(src source) (Config, error) {
	var cfg Config

	cfg.HTTPAddr = src.get("HTTP_ADDR", ":8080")
	cfg.LogLevel = strings.ToLower(src.get("LOG_LEVEL", "info"))

	reqTimeout, err := parseDuration(src.get("HTTP_CLIENT_TIMEOUT", "60s"))
	if err != nil {
		return Config{}, fmt.Errorf("parse HTTP_CLIENT_TIMEOUT: %w", err)
	}
	cfg.RequestTimeout = reqTimeout

	adviceTimeout, err := parseDuration(src.get("ADVICE_TIMEOUT", "0s"))
	if err != nil {
		return Config{}, fmt.Errorf("parse ADVICE_TIMEOUT: %w", err)
	}
	cfg.AdviceTimeout = adviceTimeout

	sessionTTL, err := parseDuration(src.get("SESSION_TTL", "2h"))
	if err != nil {
		return Config{}, fmt.Errorf("parse SESSION_TTL: %w", err)
	}
	cfg.SessionTTL = sessionTTL

	cfg.AdviceBackend = strings.ToLower(src.get("ADVICE_BACKEND", BackendGemini))
	switch cfg.AdviceBackend {
	case BackendGemini, BackendOpenRouter, BackendOllama:
	default:
		return Config{}, fmt.Errorf("unknown ADVICE_BACKEND %q", cfg.AdviceBackend)
	}

	maxBytes, err := strconv.ParseInt(src.get("IMAGE_MAX_BYTES", strconv.FormatInt(imageload.DefaultMaxBytes, 10)), 10, 64)
	if err != nil {
		return Config{}, fmt.Errorf("parse IMAGE_MAX_BYTES: %w", err)
	}
	if maxBytes <= 0 {
		return Config{}, fmt.Errorf("IMAGE_MAX_BYTES must be positive, got %d", maxBytes)
	}
	cfg.ImageMaxBytes = maxBytes

	// Ключ не проверяется локально: его отсутствие проявится как ошибка вызова модели.
	apiKey := src.get("GEMINI_API_KEY", "")
	if apiKey == "" {
		apiKey = src.get("REACT_APP_GEMINI_API_KEY", "")
	}
	cfg.Gemini = GeminiConfig{
		APIKey: apiKey,
		Model:  src.get("GEMINI_MODEL", "gemini-2.0-flash"),
	}

	cfg.OpenRouter = OpenRouterConfig{
		APIKey:  src.get("OPENROUTER_API_KEY", ""),
		BaseURL: strings.TrimRight(src.get("OPENROUTER_BASE_URL", "https://openrouter.ai/api/v1"), "/"),
		Model:   src.get("OPENROUTER_MODEL", "google/gemini-2.0-flash-001"),
	}

	maxDim, err := strconv.Atoi(src.get("OLLAMA_MAX_IMAGE_DIM", "1024"))
	if err != nil {
		return Config{}, fmt.Errorf("parse OLLAMA_MAX_IMAGE_DIM: %w", err)
	}
	cfg.Ollama = OllamaConfig{
		URL:         src.get("OLLAMA_URL", "http://localhost:11434"),
		Model:       src.get("OLLAMA_MODEL", "llava"),
		MaxImageDim: maxDim,
	}

	return cfg, nil
}

// source отдаёт значение по имени переменной окружения,
// подставляя значение из файла, если переменная не задана.
type source struct {
	file map[string]string
}

func (s source) get(key, def string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	if val, ok := s.file[key]; ok && val != "" {
		return val
	}
	return def
}

func readFile(path string) (map[string]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return nil, fmt.Errorf("parse config file %s: %w", path, err)
	}

	values := map[string]string{
		"HTTP_ADDR":           fc.HTTPAddr,
		"LOG_LEVEL":           fc.LogLevel,
		"HTTP_CLIENT_TIMEOUT": fc.HTTPClientTimeout,
		"ADVICE_TIMEOUT":      fc.AdviceTimeout,
		"SESSION_TTL":         fc.SessionTTL,
		"ADVICE_BACKEND":      fc.AdviceBackend,
		"GEMINI_API_KEY":      fc.Gemini.APIKey,
		"GEMINI_MODEL":        fc.Gemini.Model,
		"OPENROUTER_API_KEY":  fc.OpenRouter.APIKey,
		"OPENROUTER_BASE_URL": fc.OpenRouter.BaseURL,
		"OPENROUTER_MODEL":    fc.OpenRouter.Model,
		"OLLAMA_URL":          fc.Ollama.URL,
		"OLLAMA_MODEL":        fc.Ollama.Model,
	}
	if fc.ImageMaxBytes != 0 {
		values["IMAGE_MAX_BYTES"] = strconv.FormatInt(fc.ImageMaxBytes, 10)
	}
	if fc.Ollama.MaxImageDim != 0 {
		values["OLLAMA_MAX_IMAGE_DIM"] = strconv.Itoa(fc.Ollama.MaxImageDim)
	}
	return values, nil
}

func parseDuration(value string) (time.Duration, error) {
	if value == "" {
		return 0, fmt.Errorf("duration is empty")
	}
	return time.ParseDuration(value)
}

func getEnv(key, def string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return def
}
