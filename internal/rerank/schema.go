package rerank

import "github.com/JaimeStill/taxon/internal/llm"

// ResponseSchema defines the JSON schema for rerank responses.
var ResponseSchema = &llm.Schema{
	Name:        "rerank-candidates",
	Description: "Rescored candidate classes for one document",
	Definition: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"candidates": map[string]any{
				"type":        "array",
				"description": "One entry per candidate the model has an opinion on, in any order",
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"class_id": map[string]any{
							"type":        "string",
							"description": "The exact class_id of the candidate being scored",
						},
						"score": map[string]any{
							"type":        "number",
							"minimum":     0,
							"maximum":     1,
							"description": "Match quality from 0.0 (no match) to 1.0 (exact match)",
						},
						"reasoning": map[string]any{
							"type":        "string",
							"description": "One sentence explaining the score",
						},
					},
					"required":             []any{"class_id", "score", "reasoning"},
					"additionalProperties": false,
				},
			},
		},
		"required":             []any{"candidates"},
		"additionalProperties": false,
	},
}
