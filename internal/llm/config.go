package llm

import (
	"fmt"
	"os"
	"time"

	"github.com/ajujo/teaching-system/internal/config"
)

// Provider names accepted in Config.Provider.
const (
	ProviderAnthropic  = "anthropic"
	ProviderOpenAI     = "openai"
	ProviderGemini     = "gemini"
	ProviderOpenRouter = "openrouter"
	ProviderLMStudio   = "lmstudio"
	ProviderMock       = "mock"
)

// Config holds all LLM provider configuration.
type Config struct {
	// Provider selects the backend. Empty means "discover from standard keys".
	Provider string `env:"TUTOR_LLM_PROVIDER"`

	Anthropic  AnthropicConfig
	OpenAI     OpenAIConfig
	Gemini     GeminiConfig
	OpenRouter OpenRouterConfig
	LMStudio   LMStudioConfig
	Retry      RetryConfig

	// Timeout bounds a single request including retries.
	Timeout time.Duration `env:"TUTOR_LLM_TIMEOUT" envDefault:"60s"`
}

type AnthropicConfig struct {
	APIKey string `env:"TUTOR_ANTHROPIC_API_KEY"`
	Model  string `env:"TUTOR_ANTHROPIC_MODEL" envDefault:"claude-haiku"`
}

type OpenAIConfig struct {
	APIKey  string `env:"TUTOR_OPENAI_API_KEY"`
	Model   string `env:"TUTOR_OPENAI_MODEL"    envDefault:"gpt-4o-mini"`
	BaseURL string `env:"TUTOR_OPENAI_BASE_URL"`
}

type GeminiConfig struct {
	APIKey  string `env:"TUTOR_GEMINI_API_KEY"`
	Model   string `env:"TUTOR_GEMINI_MODEL"    envDefault:"gemini-flash"`
	BaseURL string `env:"TUTOR_GEMINI_BASE_URL"`
}

type OpenRouterConfig struct {
	APIKey  string `env:"TUTOR_OPENROUTER_API_KEY"`
	Model   string `env:"TUTOR_OPENROUTER_MODEL"    envDefault:"google/gemini-2.0-flash-exp"`
	BaseURL string `env:"TUTOR_OPENROUTER_BASE_URL"`
}

// LMStudioConfig targets a local OpenAI-compatible server. No key is needed.
type LMStudioConfig struct {
	BaseURL string `env:"TUTOR_LMSTUDIO_BASE_URL" envDefault:"http://localhost:1234/v1"`
	Model   string `env:"TUTOR_LMSTUDIO_MODEL"    envDefault:"local-model"`
}

type RetryConfig struct {
	MaxAttempts int           `env:"TUTOR_LLM_RETRY_ATTEMPTS"   envDefault:"3"`
	InitialWait time.Duration `env:"TUTOR_LLM_RETRY_WAIT"       envDefault:"1s"`
	MaxWait     time.Duration `env:"TUTOR_LLM_RETRY_MAX_WAIT"   envDefault:"10s"`
	Multiplier  float64       `env:"TUTOR_LLM_RETRY_MULTIPLIER" envDefault:"2"`
}

// DefaultConfig returns the configuration used when nothing is set.
func DefaultConfig() Config {
	return Config{
		Anthropic:  AnthropicConfig{Model: "claude-haiku"},
		OpenAI:     OpenAIConfig{Model: "gpt-4o-mini"},
		Gemini:     GeminiConfig{Model: "gemini-flash"},
		OpenRouter: OpenRouterConfig{Model: "google/gemini-2.0-flash-exp"},
		LMStudio:   LMStudioConfig{BaseURL: defaultLMStudioBaseURL, Model: "local-model"},
		Retry: RetryConfig{
			MaxAttempts: 3,
			InitialWait: time.Second,
			MaxWait:     10 * time.Second,
			Multiplier:  2.0,
		},
		Timeout: 60 * time.Second,
	}
}

// ConfigFromEnv reads TUTOR_* variables. When no provider is named it falls
// back to DiscoverConfig; ok is false when no provider could be chosen.
func ConfigFromEnv() (cfg Config, ok bool, err error) {
	if err := config.ParseEnv(&cfg); err != nil {
		return Config{}, false, err
	}
	if cfg.Provider != "" {
		return cfg, true, nil
	}
	return DiscoverConfig(cfg)
}

// DiscoverConfig probes standard API key variables in priority order
// (Gemini, OpenAI, Anthropic, OpenRouter) and selects the first provider
// whose key is found.
func DiscoverConfig(base Config) (Config, bool, error) {
	cfg := base
	switch {
	case os.Getenv("GEMINI_API_KEY") != "":
		cfg.Provider = ProviderGemini
		cfg.Gemini.APIKey = os.Getenv("GEMINI_API_KEY")
	case os.Getenv("OPENAI_API_KEY") != "":
		cfg.Provider = ProviderOpenAI
		cfg.OpenAI.APIKey = os.Getenv("OPENAI_API_KEY")
	case os.Getenv("ANTHROPIC_API_KEY") != "":
		cfg.Provider = ProviderAnthropic
		cfg.Anthropic.APIKey = os.Getenv("ANTHROPIC_API_KEY")
	case os.Getenv("OPENROUTER_API_KEY") != "":
		cfg.Provider = ProviderOpenRouter
		cfg.OpenRouter.APIKey = os.Getenv("OPENROUTER_API_KEY")
	default:
		return cfg, false, nil
	}
	return cfg, true, nil
}

// Validate checks that the selected provider has what it needs.
func (c Config) Validate() error {
	switch c.Provider {
	case ProviderAnthropic:
		if c.Anthropic.APIKey == "" {
			return fmt.Errorf("TUTOR_ANTHROPIC_API_KEY is required for the anthropic provider")
		}
	case ProviderOpenAI:
		if c.OpenAI.APIKey == "" {
			return fmt.Errorf("TUTOR_OPENAI_API_KEY is required for the openai provider")
		}
	case ProviderGemini:
		if c.Gemini.APIKey == "" {
			return fmt.Errorf("TUTOR_GEMINI_API_KEY is required for the gemini provider")
		}
	case ProviderOpenRouter:
		if c.OpenRouter.APIKey == "" {
			return fmt.Errorf("TUTOR_OPENROUTER_API_KEY is required for the openrouter provider")
		}
	case ProviderLMStudio:
		if c.LMStudio.BaseURL == "" {
			return fmt.Errorf("TUTOR_LMSTUDIO_BASE_URL is required for the lmstudio provider")
		}
	case ProviderMock:
	default:
		return fmt.Errorf("unknown LLM provider: %q", c.Provider)
	}
	return nil
}

// WithProvider returns a copy that selects provider.
func (c Config) WithProvider(provider string) Config {
	c.Provider = provider
	return c
}
