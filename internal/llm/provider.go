// Package llm abstracts the chat-completion providers that back the rerank
// and condition-judgment stages. Providers return schema-validated JSON so
// callers never parse free-form model output.
package llm

import (
	"context"
	"encoding/json"
)

// Provider generates structured completions. Implementations wrap a vendor
// SDK and normalize its request, response, and error shapes.
type Provider interface {
	// Generate sends a prompt and returns the model output. When the
	// request carries a Schema the provider uses its native structured
	// output mechanism and validates the content before returning it.
	Generate(ctx context.Context, req Request) (*Response, error)

	// ModelID returns the resolved model identifier this provider targets.
	ModelID() string
}

// Request describes a single generation call. Classification prompts are
// single turn: one user message plus an optional system prompt.
type Request struct {
	System   string
	Messages []Message

	// Schema constrains the response to a JSON structure. Nil leaves the
	// response as raw text wrapped in json.RawMessage.
	Schema *Schema

	MaxTokens int

	// Temperature in [0, 1]. Zero keeps judgments deterministic.
	Temperature float64
}

// Message is one turn of conversation.
type Message struct {
	Role    Role
	Content string
}

// Role identifies the message sender.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Schema names and defines the JSON structure a response must satisfy.
type Schema struct {
	// Name identifies the schema, kebab-case ("rerank-candidates").
	Name string

	// Description guides the model toward the intended content.
	Description string

	// Definition is the JSON Schema document as a map.
	Definition map[string]any
}

// Response is the normalized provider output.
type Response struct {
	// Content is validated JSON when the request carried a Schema.
	Content json.RawMessage

	Usage Usage

	// Model is the model that actually served the request.
	Model string

	// StopReason is normalized to "end" or "max_tokens".
	StopReason string
}

// Usage reports token consumption for one request.
type Usage struct {
	InputTokens  int
	OutputTokens int
	TotalTokens  int
}
