package classify

import "fmt"

// Candidate set bounds for one classification call.
const (
	MinTopK     = 1
	MaxTopK     = 100
	DefaultTopK = 5
)

// Config carries the per-request options recognized by the pipeline.
type Config struct {
	UseReranking           bool   `json:"use_reranking"`
	RerankingModel         string `json:"reranking_model,omitempty"`
	UseAttributeValidation bool   `json:"use_attribute_validation"`
	TopKCandidates         int    `json:"top_k_candidates"`
}

// Normalize fills the zero value of TopKCandidates with the default so that
// requests omitting the field behave sensibly. Explicit out-of-range values
// are left for Validate to reject.
func (c *Config) Normalize() {
	if c.TopKCandidates == 0 {
		c.TopKCandidates = DefaultTopK
	}
}

// Validate rejects option values outside their recognized ranges.
func (c Config) Validate() error {
	if c.TopKCandidates < MinTopK || c.TopKCandidates > MaxTopK {
		return fmt.Errorf("%w: top_k_candidates %d not in [%d, %d]",
			ErrInvalidTopK, c.TopKCandidates, MinTopK, MaxTopK)
	}
	return nil
}
