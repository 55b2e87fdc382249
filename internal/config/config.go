package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"

	"github.com/jwebster45206/adventure-console/pkg/typewriter"
)

// Supported narrator providers.
const (
	ProviderAnthropic = "anthropic"
	ProviderOpenAI    = "openai"
	ProviderOllama    = "ollama"
	ProviderGemini    = "gemini"
	ProviderMock      = "mock"
)

var defaultModels = map[string]string{
	ProviderAnthropic: "claude-3-5-haiku-latest",
	ProviderOpenAI:    "gpt-4o-mini",
	ProviderOllama:    "llama3.1",
	ProviderGemini:    "gemini-1.5-flash",
	ProviderMock:      "mock",
}

type Config struct {
	Port         string     `envconfig:"PORT" default:"8080"`
	Environment  string     `envconfig:"ENVIRONMENT" default:"development"`
	LogLevelName string     `envconfig:"LOG_LEVEL" default:"info"`
	LogLevel     slog.Level `ignored:"true"`

	LLMProvider string        `envconfig:"LLM_PROVIDER" default:"mock"`
	ModelName   string        `envconfig:"MODEL_NAME"`
	LLMBaseURL  string        `envconfig:"LLM_BASE_URL"` // OpenAI-compatible endpoint or Ollama host
	LLMTimeout  time.Duration `envconfig:"LLM_TIMEOUT" default:"30s"`

	AnthropicAPIKey string `envconfig:"ANTHROPIC_API_KEY"`
	OpenAIAPIKey    string `envconfig:"OPENAI_API_KEY"`
	GeminiAPIKey    string `envconfig:"GEMINI_API_KEY"`

	// Empty disables event broadcasting and the SSE stream.
	RedisURL string `envconfig:"REDIS_URL"`

	World     string `envconfig:"WORLD"`
	TextSpeed string `envconfig:"TEXT_SPEED" default:"normal"`
	Muted     bool   `envconfig:"MUTED" default:"false"`
}

// Load reads the configuration from the environment and validates it.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	cfg.LLMProvider = strings.ToLower(strings.TrimSpace(cfg.LLMProvider))
	cfg.LogLevel = parseLogLevel(cfg.LogLevelName)
	if cfg.ModelName == "" {
		cfg.ModelName = defaultModels[cfg.LLMProvider]
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the provider selection and its credentials.
func (c *Config) Validate() error {
	var errs []error
	if _, ok := defaultModels[c.LLMProvider]; !ok {
		errs = append(errs, fmt.Errorf("unknown LLM_PROVIDER %q", c.LLMProvider))
	}
	if c.APIKey() == "" && c.requiresAPIKey() {
		errs = append(errs, fmt.Errorf("an API key is required for provider %q", c.LLMProvider))
	}
	if c.LLMTimeout <= 0 {
		errs = append(errs, errors.New("LLM_TIMEOUT must be positive"))
	}
	if _, err := typewriter.ParseSpeed(c.TextSpeed); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// APIKey returns the key for the selected provider.
func (c *Config) APIKey() string {
	switch c.LLMProvider {
	case ProviderAnthropic:
		return c.AnthropicAPIKey
	case ProviderOpenAI:
		return c.OpenAIAPIKey
	case ProviderGemini:
		return c.GeminiAPIKey
	default:
		return ""
	}
}

func (c *Config) requiresAPIKey() bool {
	switch c.LLMProvider {
	case ProviderAnthropic, ProviderGemini:
		return true
	case ProviderOpenAI:
		// self-hosted OpenAI-compatible servers often run without a key
		return c.LLMBaseURL == ""
	default:
		return false
	}
}

func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
