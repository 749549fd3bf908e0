package conditions

import "github.com/JaimeStill/taxon/internal/llm"

// JudgmentSchema defines the JSON schema for condition judgment responses.
var JudgmentSchema = &llm.Schema{
	Name:        "condition-judgment",
	Description: "Judgment of one attribute condition against one document",
	Definition: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"satisfied": map[string]any{
				"type":        "boolean",
				"description": "Whether the document satisfies the condition",
			},
			"confidence": map[string]any{
				"type":        "number",
				"minimum":     0,
				"maximum":     1,
				"description": "Certainty of the judgment from 0.0 to 1.0",
			},
			"explanation": map[string]any{
				"type":        "string",
				"description": "One or two sentences citing the document's evidence",
			},
		},
		"required":             []any{"satisfied", "confidence", "explanation"},
		"additionalProperties": false,
	},
}
