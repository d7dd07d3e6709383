package llm

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMockProvider_ScriptThenFallback(t *testing.T) {
	mock := NewMockProvider(
		Text("Primera explicación."),
		MockResponse{Content: json.RawMessage(`{"a":1}`), Usage: Usage{InputTokens: 10}},
	)
	mock.Fallback = func(req Request) MockResponse { return Text("eco: " + req.Messages[0].Content) }

	ctx := context.Background()
	first, err := mock.Generate(ctx, UserPrompt("sys", "uno", 10))
	require.NoError(t, err)
	assert.Equal(t, "Primera explicación.", first.Text())
	assert.Equal(t, "end", first.StopReason)

	second, err := mock.Generate(ctx, UserPrompt("", "dos", 10))
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":1}`, string(second.Content))
	assert.Equal(t, 10, second.Usage.InputTokens)

	third, err := mock.Generate(ctx, UserPrompt("", "tres", 10))
	require.NoError(t, err)
	assert.Equal(t, "eco: tres", third.Text())

	assert.Equal(t, 3, mock.CallCount())
	last, ok := mock.LastCall()
	require.True(t, ok)
	assert.Equal(t, "tres", last.Messages[0].Content)
	assert.Equal(t, "sys", mock.Calls[0].System)
}

func TestMockProvider_EmptyScript(t *testing.T) {
	_, err := NewMockProvider().Generate(context.Background(), Request{})
	var unavail *ErrProviderUnavailable
	assert.True(t, errors.As(err, &unavail), "got %T", err)
}

func TestMockProvider_ValidatesSchema(t *testing.T) {
	mock := NewMockProvider(JSON(map[string]any{"understood": "yes"}))
	_, err := mock.Generate(context.Background(), Request{Schema: verdictSchema()})
	assert.True(t, IsMalformed(err), "got %v", err)
}

func TestMockProvider_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewMockProvider(Text("x")).Generate(ctx, Request{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestResponseText(t *testing.T) {
	tests := []struct {
		raw, want string
	}{
		{`"hola\nmundo"`, "hola\nmundo"},
		{"texto sin comillas", "texto sin comillas"},
		{`  {"a":1} `, `{"a":1}`},
	}
	for _, tt := range tests {
		r := &Response{Content: json.RawMessage(tt.raw)}
		assert.Equal(t, tt.want, r.Text())
	}
}

func TestContextLabels(t *testing.T) {
	ctx := context.Background()
	assert.Equal(t, "unknown", PurposeFrom(ctx))
	assert.Empty(t, SessionFrom(ctx))

	ctx = WithSession(WithPurpose(ctx, PurposeCheck), "abc12345")
	assert.Equal(t, "comprehension-check", PurposeFrom(ctx))
	assert.Equal(t, "abc12345", SessionFrom(ctx))
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"anthropic without key", Config{Provider: ProviderAnthropic}, true},
		{"anthropic with key", Config{Provider: ProviderAnthropic, Anthropic: AnthropicConfig{APIKey: "sk"}}, false},
		{"openai without key", Config{Provider: ProviderOpenAI}, true},
		{"gemini with key", Config{Provider: ProviderGemini, Gemini: GeminiConfig{APIKey: "k"}}, false},
		{"openrouter without key", Config{Provider: ProviderOpenRouter}, true},
		{"lmstudio without url", Config{Provider: ProviderLMStudio}, true},
		{"lmstudio default", DefaultConfig().WithProvider(ProviderLMStudio), false},
		{"mock needs nothing", Config{Provider: ProviderMock}, false},
		{"unknown provider", Config{Provider: "bard"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			assert.Equal(t, tt.wantErr, err != nil, "Validate() = %v", err)
		})
	}
}

func TestConfigFromEnv(t *testing.T) {
	for _, k := range []string{"GEMINI_API_KEY", "OPENAI_API_KEY", "ANTHROPIC_API_KEY", "OPENROUTER_API_KEY"} {
		t.Setenv(k, "")
	}

	t.Run("explicit provider", func(t *testing.T) {
		t.Setenv("TUTOR_LLM_PROVIDER", "lmstudio")
		t.Setenv("TUTOR_LMSTUDIO_MODEL", "qwen")
		cfg, ok, err := ConfigFromEnv()
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, "qwen", cfg.LMStudio.Model)
		assert.Equal(t, defaultLMStudioBaseURL, cfg.LMStudio.BaseURL)
		assert.Equal(t, 3, cfg.Retry.MaxAttempts)
	})

	t.Run("discovers standard key", func(t *testing.T) {
		t.Setenv("TUTOR_LLM_PROVIDER", "")
		t.Setenv("OPENAI_API_KEY", "sk-test")
		t.Setenv("ANTHROPIC_API_KEY", "sk-ant")
		cfg, ok, err := ConfigFromEnv()
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, ProviderOpenAI, cfg.Provider)
		assert.Equal(t, "sk-test", cfg.OpenAI.APIKey)
	})

	t.Run("nothing configured", func(t *testing.T) {
		t.Setenv("TUTOR_LLM_PROVIDER", "")
		_, ok, err := ConfigFromEnv()
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("bad duration", func(t *testing.T) {
		t.Setenv("TUTOR_LLM_TIMEOUT", "pronto")
		_, _, err := ConfigFromEnv()
		assert.Error(t, err)
	})
}

func TestNewProviderWrapsMock(t *testing.T) {
	p, err := NewProvider(context.Background(), Config{Provider: ProviderMock, Retry: RetryConfig{MaxAttempts: 1}}, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "mock", p.ModelID())
	_, ok := p.(*RetryProvider)
	assert.True(t, ok)

	_, err = NewProvider(context.Background(), Config{Provider: ProviderOpenAI}, nil, nil)
	assert.Error(t, err)
}

func TestLookupCost(t *testing.T) {
	c := LookupCost("gpt-4o-mini")
	require.NotNil(t, c)
	assert.InDelta(t, 0.15+0.6, c.Cost(1_000_000, 1_000_000), 1e-9)

	require.NotNil(t, LookupCost("openai/gpt-4o-mini"))
	assert.Nil(t, LookupCost("unknown-model"))
}
