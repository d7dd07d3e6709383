package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompatibleProviders(t *testing.T) {
	tests := []struct {
		name      string
		build     func() (*ChatProvider, error)
		wantModel string
		strict    bool
		wantErr   bool
	}{
		{
			name: "openrouter passes model ids through",
			build: func() (*ChatProvider, error) {
				return NewOpenRouterProvider(OpenRouterConfig{APIKey: "sk-or-test", Model: "anthropic/claude-3-haiku"})
			},
			wantModel: "anthropic/claude-3-haiku",
			strict:    true,
		},
		{
			name: "openrouter needs a key",
			build: func() (*ChatProvider, error) {
				return NewOpenRouterProvider(OpenRouterConfig{Model: "google/gemini-2.0-flash-exp"})
			},
			wantErr: true,
		},
		{
			name: "lmstudio needs no key and skips strict schemas",
			build: func() (*ChatProvider, error) {
				return NewLMStudioProvider(LMStudioConfig{Model: "qwen2.5-7b-instruct"})
			},
			wantModel: "qwen2.5-7b-instruct",
		},
		{
			name: "lmstudio custom base URL",
			build: func() (*ChatProvider, error) {
				return NewLMStudioProvider(LMStudioConfig{BaseURL: "http://10.0.0.5:1234/v1", Model: "local-model"})
			},
			wantModel: "local-model",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := tt.build()
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantModel, p.ModelID())
			assert.Equal(t, tt.strict, p.strict)
		})
	}
}
