package llm

import (
	"context"
	"testing"

	"google.golang.org/genai"
)

func TestGeminiSchema(t *testing.T) {
	def := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"objective": map[string]any{"type": "string", "description": "una frase"},
			"confidence": map[string]any{"type": "number"},
			"level":      map[string]any{"type": "string", "enum": []string{"basico", "medio"}},
			"points": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type":       "object",
					"properties": map[string]any{"title": map[string]any{"type": "string"}},
					"required":   []any{"title"},
				},
			},
		},
		"required": []string{"objective", "points"},
	}

	s := geminiSchema(def)
	if s.Type != genai.TypeObject || len(s.Properties) != 4 {
		t.Fatalf("schema = %+v", s)
	}
	if s.Properties["objective"].Description != "una frase" {
		t.Errorf("description = %q", s.Properties["objective"].Description)
	}
	if s.Properties["confidence"].Type != genai.TypeNumber {
		t.Errorf("confidence type = %s", s.Properties["confidence"].Type)
	}
	if len(s.Properties["level"].Enum) != 2 {
		t.Errorf("enum = %v", s.Properties["level"].Enum)
	}
	items := s.Properties["points"].Items
	if items == nil || items.Type != genai.TypeObject || len(items.Required) != 1 {
		t.Errorf("items = %+v", items)
	}
	if len(s.Required) != 2 {
		t.Errorf("required = %v", s.Required)
	}
}

func TestNewGeminiProviderNeedsKey(t *testing.T) {
	if _, err := NewGeminiProvider(context.Background(), GeminiConfig{Model: "gemini-flash"}); err == nil {
		t.Fatal("expected error for empty API key")
	}
}
