package catalog

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"

	"github.com/JaimeStill/taxon/pkg/query"
	"github.com/JaimeStill/taxon/pkg/repository"
)

var projection = query.
	NewProjectionMap("public", "class_sets", "cs").
	Project("id", "ID").
	Project("name", "Name").
	Project("description", "Description").
	Project("classes", "Classes").
	Project("class_count", "ClassCount").
	Project("created_at", "CreatedAt").
	Project("updated_at", "UpdatedAt")

var defaultSort = query.SortField{
	Field:      "UpdatedAt",
	Descending: true,
}

// Filters contains optional filtering criteria for class-set queries.
// Nil fields are ignored. Name uses case-insensitive contains matching;
// ClassCount uses exact matching.
type Filters struct {
	Name       *string `json:"name,omitempty"`
	ClassCount *int    `json:"class_count,omitempty"`
}

// Apply adds filter conditions to a query builder.
func (f Filters) Apply(b *query.Builder) *query.Builder {
	return b.
		WhereContains("Name", f.Name).
		WhereEquals("ClassCount", f.ClassCount)
}

// FiltersFromQuery extracts filter values from URL query parameters.
func FiltersFromQuery(values url.Values) Filters {
	var f Filters

	if n := values.Get("name"); n != "" {
		f.Name = &n
	}

	if cc := values.Get("class_count"); cc != "" {
		if v, err := strconv.Atoi(cc); err == nil {
			f.ClassCount = &v
		}
	}

	return f
}

func scanClassSet(s repository.Scanner) (ClassSet, error) {
	var set ClassSet
	var classesRaw []byte

	err := s.Scan(
		&set.ID,
		&set.Name,
		&set.Description,
		&classesRaw,
		&set.ClassCount,
		&set.CreatedAt,
		&set.UpdatedAt,
	)
	if err != nil {
		return set, err
	}

	if len(classesRaw) > 0 {
		if err := json.Unmarshal(classesRaw, &set.Classes); err != nil {
			return set, fmt.Errorf("unmarshal classes: %w", err)
		}
	}

	return set, nil
}
