package classify

import (
	"errors"
	"net/http"
)

// Classification errors. The first group rejects bad input before any stage
// runs. ErrRetrieval is fatal: with no candidates there is no result to
// degrade to. Rerank and judgment failures are recovered inside the pipeline
// and never abort a call. ErrEvaluationShape and ErrAggregation indicate
// internal defects and are always fatal.
var (
	ErrEmptyDocument = errors.New("document is empty")
	ErrEmptyClassSet = errors.New("class set is empty")
	ErrInvalidTopK   = errors.New("top_k_candidates out of range")
	ErrInvalidRule   = errors.New("invalid attribute rule")
	ErrEmptyRule     = errors.New("rule has no conditions")

	ErrRetrieval = errors.New("similarity retrieval failed")
	ErrRerank    = errors.New("rerank failed")
	ErrJudgment  = errors.New("condition judgment failed")

	ErrEvaluationShape = errors.New("evaluation tree does not match rule shape")
	ErrAggregation     = errors.New("aggregation invariant violated")
)

// MapHTTPStatus maps classification errors to HTTP status codes.
func MapHTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrEmptyDocument),
		errors.Is(err, ErrEmptyClassSet),
		errors.Is(err, ErrInvalidTopK),
		errors.Is(err, ErrInvalidRule),
		errors.Is(err, ErrEmptyRule):
		return http.StatusBadRequest
	case errors.Is(err, ErrRetrieval):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
