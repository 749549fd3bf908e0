package llm

import (
	"cmp"
	"slices"
)

// Friendly model names resolve to provider model IDs; anything not in a
// catalog passes through untouched so direct IDs keep working.
var (
	anthropicModels = map[string]string{
		"claude-sonnet": "claude-sonnet-4-20250514",
		"claude-haiku":  "claude-haiku-4-5-20251001",
	}

	openaiModels = map[string]string{
		"gpt-4o":      "gpt-4o",
		"gpt-4o-mini": "gpt-4o-mini",
	}

	geminiModels = map[string]string{
		"gemini-flash": "gemini-2.0-flash",
		"gemini-pro":   "gemini-2.0-pro",
	}
)

// ModelInfo describes one catalog entry.
type ModelInfo struct {
	Provider string `json:"provider"`
	Name     string `json:"name"`
	ModelID  string `json:"model_id"`
}

// Models lists every known friendly model across providers. The list backs
// the model catalog surface so clients can discover valid reranking_model
// values without guessing provider IDs.
func Models() []ModelInfo {
	catalogs := []struct {
		provider string
		models   map[string]string
	}{
		{"anthropic", anthropicModels},
		{"openai", openaiModels},
		{"gemini", geminiModels},
	}

	var out []ModelInfo
	for _, c := range catalogs {
		for name, id := range c.models {
			out = append(out, ModelInfo{Provider: c.provider, Name: name, ModelID: id})
		}
	}

	slices.SortFunc(out, func(a, b ModelInfo) int {
		if v := cmp.Compare(a.Provider, b.Provider); v != 0 {
			return v
		}
		return cmp.Compare(a.Name, b.Name)
	})
	return out
}

// resolveModel maps a friendly name to a provider model ID, passing unknown
// names through as direct IDs.
func resolveModel(name string, models map[string]string) string {
	if id, ok := models[name]; ok {
		return id
	}
	return name
}

// vendorFor returns the provider that owns a friendly model name.
func vendorFor(name string) (string, bool) {
	if _, ok := anthropicModels[name]; ok {
		return "anthropic", true
	}
	if _, ok := openaiModels[name]; ok {
		return "openai", true
	}
	if _, ok := geminiModels[name]; ok {
		return "gemini", true
	}
	return "", false
}
