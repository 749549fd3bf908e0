package decisions

import (
	"net/url"
	"strconv"

	"github.com/google/uuid"

	"github.com/JaimeStill/taxon/internal/pipeline"
	"github.com/JaimeStill/taxon/pkg/query"
	"github.com/JaimeStill/taxon/pkg/repository"
)

var projection = query.
	NewProjectionMap("public", "runs", "r").
	Project("id", "ID").
	Project("class_set_id", "ClassSetID").
	Project("class_set_name", "ClassSetName").
	Project("stage", "Stage").
	Project("predicted", "Predicted").
	Project("predicted_name", "PredictedName").
	Project("effective", "Effective").
	Project("similarity", "Similarity").
	Project("rerank", "Rerank").
	Project("attribute", "Attribute").
	Project("reranked", "Reranked").
	Project("attribute_validated", "AttributeValidated").
	Project("processing_time_ms", "ProcessingTimeMs").
	Project("error", "Error").
	Project("result_key", "ResultKey").
	Project("created_at", "CreatedAt").
	Project("updated_at", "UpdatedAt")

var defaultSort = query.SortField{
	Field:      "CreatedAt",
	Descending: true,
}

// Filters contains optional filtering criteria for run queries. Nil fields
// are ignored. All fields use exact matching.
type Filters struct {
	ClassSetID *uuid.UUID      `json:"class_set_id,omitempty"`
	Stage      *pipeline.Stage `json:"stage,omitempty"`
	Predicted  *string         `json:"predicted,omitempty"`
	Reranked   *bool           `json:"reranked,omitempty"`
}

// Apply adds filter conditions to a query builder.
func (f Filters) Apply(b *query.Builder) *query.Builder {
	return b.
		WhereEquals("ClassSetID", f.ClassSetID).
		WhereEquals("Stage", f.Stage).
		WhereEquals("Predicted", f.Predicted).
		WhereEquals("Reranked", f.Reranked)
}

// FiltersFromQuery extracts filter values from URL query parameters.
// Unparseable values are skipped.
func FiltersFromQuery(values url.Values) Filters {
	var f Filters

	if c := values.Get("class_set_id"); c != "" {
		if id, err := uuid.Parse(c); err == nil {
			f.ClassSetID = &id
		}
	}

	if s := values.Get("stage"); s != "" {
		if stage, err := pipeline.ParseStage(s); err == nil {
			f.Stage = &stage
		}
	}

	if p := values.Get("predicted"); p != "" {
		f.Predicted = &p
	}

	if r := values.Get("reranked"); r != "" {
		if v, err := strconv.ParseBool(r); err == nil {
			f.Reranked = &v
		}
	}

	return f
}

func scanRun(s repository.Scanner) (Run, error) {
	var run Run

	err := s.Scan(
		&run.ID,
		&run.ClassSetID,
		&run.ClassSetName,
		&run.Stage,
		&run.Predicted,
		&run.PredictedName,
		&run.Effective,
		&run.Similarity,
		&run.Rerank,
		&run.Attribute,
		&run.Reranked,
		&run.AttributeValidated,
		&run.ProcessingTimeMs,
		&run.Error,
		&run.ResultKey,
		&run.CreatedAt,
		&run.UpdatedAt,
	)

	return run, err
}
