// Package classify defines the shared vocabulary of the classification engine:
// class descriptors, attribute rule trees, evaluation trees, candidate scoring
// types, and the oracle contracts the decision pipeline consumes.
package classify

import (
	"github.com/google/uuid"
)

// Class is the immutable identity of a classification target.
// Attributes, when present, is the acceptance predicate a document must
// satisfy for this class to be considered admissible.
type Class struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Attributes  *Rule  `json:"attributes,omitempty"`
}

// HasAttributes reports whether this class carries an acceptance predicate.
func (c Class) HasAttributes() bool {
	return c.Attributes != nil
}

// Similarity pairs a class with its embedding similarity score for one document.
type Similarity struct {
	Class Class   `json:"class"`
	Score float64 `json:"score"`
}

// RerankScore is one reranker opinion. Candidates absent from the reranker
// output have no opinion recorded; absence never means a score of zero.
type RerankScore struct {
	ClassID   string  `json:"class_id"`
	Score     float64 `json:"score"`
	Reasoning string  `json:"reasoning,omitempty"`
}

// Judgment is the outcome of evaluating one leaf condition against a document.
// A clean negative is a Judgment with Satisfied false, never an error.
type Judgment struct {
	Satisfied   bool    `json:"satisfied"`
	Confidence  float64 `json:"confidence,omitempty"`
	Explanation string  `json:"explanation,omitempty"`
}

// Candidate carries every per-class signal gathered during one classification
// call. Rerank and Attribute are nil when the corresponding stage did not
// produce a score for this candidate. Effective is derived by the aggregator
// and is the only field used for ranking.
type Candidate struct {
	Class      Class    `json:"class"`
	Similarity float64  `json:"similarity"`
	Rerank     *float64 `json:"rerank,omitempty"`
	Attribute  *float64 `json:"attribute,omitempty"`
	Effective  float64  `json:"effective"`
	Reasoning  string   `json:"reasoning,omitempty"`
}

// Result is the final output of one classification call.
// Alternatives are sorted descending by effective score and exclude the
// predicted class. Evaluation is present only when attribute validation ran.
type Result struct {
	RunID              uuid.UUID   `json:"run_id"`
	Predicted          Class       `json:"predicted"`
	Primary            Candidate   `json:"primary"`
	Alternatives       []Candidate `json:"alternatives"`
	Evaluation         *Evaluation `json:"evaluation,omitempty"`
	Reranked           bool        `json:"reranked"`
	AttributeValidated bool        `json:"attribute_validated"`
	ProcessingTimeMs   float64     `json:"processing_time_ms"`
}
