// Package catalog implements the class-set registry for Taxon. It provides
// types, data access, and business logic for importing, querying, and
// reindexing the named sets of classes documents are classified into,
// including each class's attribute rule.
package catalog

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/JaimeStill/taxon/classify"
)

// ClassSet is a named collection of classes a classification run selects
// among. Classes carry their attribute rules in serialized rule form.
type ClassSet struct {
	ID          uuid.UUID        `json:"id"`
	Name        string           `json:"name"`
	Description string           `json:"description"`
	Classes     []classify.Class `json:"classes"`
	ClassCount  int              `json:"class_count"`
	CreatedAt   time.Time        `json:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at"`
}

// Class returns the class with the given id, if the set contains it.
func (s *ClassSet) Class(id string) (classify.Class, bool) {
	for _, c := range s.Classes {
		if c.ID == id {
			return c, true
		}
	}
	return classify.Class{}, false
}

// ImportCommand carries a full class set to create or replace. Imports are
// keyed by name: importing an existing name replaces its classes wholesale.
type ImportCommand struct {
	Name        string           `json:"name"`
	Description string           `json:"description"`
	Classes     []classify.Class `json:"classes"`
}

// Validate checks the command before it touches the database: a non-empty
// set name, at least one class, unique non-empty class ids, and well-formed
// attribute rules. Rule structure is rejected here, at authoring time, so
// classification runs never see a malformed tree.
func (cmd ImportCommand) Validate() error {
	if strings.TrimSpace(cmd.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidSet)
	}
	if len(cmd.Classes) == 0 {
		return fmt.Errorf("%w: at least one class is required", ErrInvalidSet)
	}

	seen := make(map[string]bool, len(cmd.Classes))
	for i, c := range cmd.Classes {
		if strings.TrimSpace(c.ID) == "" {
			return fmt.Errorf("%w: class %d has no id", ErrInvalidSet, i)
		}
		if seen[c.ID] {
			return fmt.Errorf("%w: duplicate class id %q", ErrInvalidSet, c.ID)
		}
		seen[c.ID] = true

		if strings.TrimSpace(c.Name) == "" {
			return fmt.Errorf("%w: class %q has no name", ErrInvalidSet, c.ID)
		}

		if c.Attributes != nil {
			if err := c.Attributes.Validate(); err != nil {
				return fmt.Errorf("class %q: %w", c.ID, err)
			}
		}
	}

	return nil
}
