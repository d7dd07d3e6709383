package llm

import (
	"context"
	"fmt"

	"github.com/ajujo/teaching-system/internal/logger"
)

// NewProvider builds the configured backend and wraps it so that each retry
// attempt is journaled: caller → retry → logging → backend.
func NewProvider(ctx context.Context, cfg Config, rec Recorder, log *logger.Logger) (Provider, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var (
		base Provider
		err  error
	)
	switch cfg.Provider {
	case ProviderAnthropic:
		base, err = NewAnthropicProvider(cfg.Anthropic)
	case ProviderOpenAI:
		base, err = NewOpenAIProvider(cfg.OpenAI)
	case ProviderGemini:
		base, err = NewGeminiProvider(ctx, cfg.Gemini)
	case ProviderOpenRouter:
		base, err = NewOpenRouterProvider(cfg.OpenRouter)
	case ProviderLMStudio:
		base, err = NewLMStudioProvider(cfg.LMStudio)
	case ProviderMock:
		base = NewMockProvider()
	}
	if err != nil {
		return nil, fmt.Errorf("initializing %s provider: %w", cfg.Provider, err)
	}

	logged := WithLogging(base, cfg.Provider, rec, log)
	return WithRetry(logged, cfg.Retry), nil
}
