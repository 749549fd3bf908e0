package llm

import (
	"encoding/json"
	"errors"
	"testing"
)

func judgmentSchema() *Schema {
	return &Schema{
		Name:        "test-judgment",
		Description: "condition judgment",
		Definition: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"satisfied":  map[string]any{"type": "boolean"},
				"confidence": map[string]any{"type": "number"},
			},
			"required": []any{"satisfied", "confidence"},
		},
	}
}

func TestValidateResponse(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr bool
	}{
		{"conforming object", `{"satisfied": true, "confidence": 0.92}`, false},
		{"missing required field", `{"satisfied": true}`, true},
		{"wrong type", `{"satisfied": "yes", "confidence": 0.9}`, true},
		{"not JSON", `satisfied, probably`, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateResponse(judgmentSchema(), json.RawMessage(tt.content))

			if !tt.wantErr {
				if err != nil {
					t.Errorf("validateResponse() error = %v, want nil", err)
				}
				return
			}

			var invalid *ErrInvalidResponse
			if !errors.As(err, &invalid) {
				t.Errorf("validateResponse() error = %v, want ErrInvalidResponse", err)
			}
		})
	}
}

func TestValidateResponseNilSchema(t *testing.T) {
	if err := validateResponse(nil, json.RawMessage(`not even json`)); err != nil {
		t.Errorf("validateResponse(nil schema) error = %v, want nil", err)
	}
}
