package content

import "github.com/ajujo/teaching-system/internal/llm"

// VerdictSchema is the structured result of a comprehension check.
var VerdictSchema = &llm.Schema{
	Name:        "comprehension-verdict",
	Description: "Evaluation of whether a student's answer shows understanding",
	Definition: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"understood": map[string]any{
				"type":        "boolean",
				"description": "true when the answer shows basic understanding",
			},
			"confidence": map[string]any{
				"type":        "number",
				"description": "Confidence of the evaluation between 0 and 1",
			},
			"feedback": map[string]any{
				"type":        "string",
				"description": "Short, friendly comment in Spanish",
			},
			"needs_elaboration": map[string]any{
				"type":        "boolean",
				"description": "true when the answer is right but too thin",
			},
		},
		"required":             []any{"understood", "confidence", "feedback", "needs_elaboration"},
		"additionalProperties": false,
	},
}

// PlanSchema is a teaching plan derived from unit notes.
var PlanSchema = &llm.Schema{
	Name:        "teaching-plan",
	Description: "Ordered teaching points for one unit",
	Definition: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"objective": map[string]any{
				"type":        "string",
				"description": "One sentence starting with 'Al terminar, entenderás:'",
			},
			"points": map[string]any{
				"type":  "array",
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"title": map[string]any{
							"type":        "string",
							"description": "Point title, at most 60 characters",
						},
						"summary": map[string]any{
							"type":        "string",
							"description": "What the point covers, taken from the notes",
						},
					},
					"required":             []any{"title", "summary"},
					"additionalProperties": false,
				},
			},
		},
		"required":             []any{"objective", "points"},
		"additionalProperties": false,
	},
}
