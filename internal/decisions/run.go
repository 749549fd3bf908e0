// Package decisions is the HTTP-facing classification system. It executes
// the pipeline against a registered class set, records each run in Postgres,
// and archives the full result payload to blob storage keyed by run id. The
// run row's stage is updated as the pipeline progresses, so a run's status
// is queryable while it is still in flight.
package decisions

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/JaimeStill/taxon/classify"
	"github.com/JaimeStill/taxon/internal/pipeline"
)

// Run is the persisted record of one classification call. Score fields are
// nil until the run completes. Error carries the failure detail for runs
// that ended in the failed stage.
type Run struct {
	ID                 uuid.UUID      `json:"id"`
	ClassSetID         uuid.UUID      `json:"class_set_id"`
	ClassSetName       string         `json:"class_set_name"`
	Stage              pipeline.Stage `json:"stage"`
	Predicted          string         `json:"predicted,omitempty"`
	PredictedName      string         `json:"predicted_name,omitempty"`
	Effective          *float64       `json:"effective,omitempty"`
	Similarity         *float64       `json:"similarity,omitempty"`
	Rerank             *float64       `json:"rerank,omitempty"`
	Attribute          *float64       `json:"attribute,omitempty"`
	Reranked           bool           `json:"reranked"`
	AttributeValidated bool           `json:"attribute_validated"`
	ProcessingTimeMs   *float64       `json:"processing_time_ms,omitempty"`
	Error              string         `json:"error,omitempty"`
	ResultKey          string         `json:"result_key,omitempty"`
	CreatedAt          time.Time      `json:"created_at"`
	UpdatedAt          time.Time      `json:"updated_at"`
}

// RunDetail pairs a run's stored metadata with its archived result payload.
// Result is nil when the run has not completed or its archive entry is
// unavailable.
type RunDetail struct {
	Run
	Result *classify.Result `json:"result,omitempty"`
}

// ClassifyCommand identifies the document, class set, and options for one
// classification run.
type ClassifyCommand struct {
	ClassSetID uuid.UUID       `json:"class_set_id"`
	Document   string          `json:"document"`
	Options    classify.Config `json:"options"`
}

// Validate rejects commands that would never produce a run. It normalizes
// Options in place so that omitted fields take their defaults before the
// pipeline sees them.
func (c *ClassifyCommand) Validate() error {
	if c.ClassSetID == uuid.Nil {
		return fmt.Errorf("%w: class_set_id is required", ErrInvalidRun)
	}
	if strings.TrimSpace(c.Document) == "" {
		return classify.ErrEmptyDocument
	}

	c.Options.Normalize()
	return c.Options.Validate()
}

// ValidateCommand identifies a single class whose attribute rule should be
// evaluated against a document, outside of any classification run.
type ValidateCommand struct {
	ClassSetID uuid.UUID `json:"class_set_id"`
	ClassID    string    `json:"class_id"`
	Document   string    `json:"document"`
}

// Validate rejects structurally incomplete commands.
func (c ValidateCommand) Validate() error {
	if c.ClassSetID == uuid.Nil {
		return fmt.Errorf("%w: class_set_id is required", ErrInvalidRun)
	}
	if strings.TrimSpace(c.ClassID) == "" {
		return fmt.Errorf("%w: class_id is required", ErrInvalidRun)
	}
	if strings.TrimSpace(c.Document) == "" {
		return classify.ErrEmptyDocument
	}
	return nil
}

// ValidationResult is the outcome of an on-demand attribute validation.
type ValidationResult struct {
	ClassID    string               `json:"class_id"`
	Satisfied  bool                 `json:"satisfied"`
	Evaluation *classify.Evaluation `json:"evaluation"`
}
