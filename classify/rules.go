package classify

import (
	"encoding/json"
	"fmt"
)

// Operator is the boolean combinator of a rule node.
type Operator string

// Rule operators.
const (
	OpAnd Operator = "AND"
	OpOr  Operator = "OR"
)

// ConditionKind identifies how a leaf condition is interpreted by the oracle.
type ConditionKind string

// Condition kinds.
const (
	KindTextMatch    ConditionKind = "text_match"
	KindNumericRange ConditionKind = "numeric_range"
	KindBoolean      ConditionKind = "boolean"
	KindCustom       ConditionKind = "custom"
)

// TextMatchParams configures a text_match condition.
type TextMatchParams struct {
	CaseSensitive bool `json:"case_sensitive,omitempty"`
}

// NumericRangeParams configures a numeric_range condition. Min and Max are
// pointers so half-open ranges stay representable; at least one must be set.
type NumericRangeParams struct {
	Field string   `json:"field"`
	Min   *float64 `json:"min,omitempty"`
	Max   *float64 `json:"max,omitempty"`
}

// BooleanParams configures a boolean condition.
type BooleanParams struct {
	Field string `json:"field"`
}

// CustomParams carries opaque key/value settings for a custom condition.
type CustomParams struct {
	Spec map[string]string `json:"spec,omitempty"`
}

// Condition is an atomic leaf predicate resolved by the ConditionOracle.
// Exactly the parameter field matching Kind may be set; the rest stay nil.
// A leaf never contains nested rules.
type Condition struct {
	ID          string        `json:"id,omitempty"`
	Description string        `json:"description"`
	Kind        ConditionKind `json:"kind"`

	TextMatch    *TextMatchParams    `json:"text_match,omitempty"`
	NumericRange *NumericRangeParams `json:"numeric_range,omitempty"`
	Boolean      *BooleanParams      `json:"boolean,omitempty"`
	Custom       *CustomParams       `json:"custom,omitempty"`
}

// TextCondition builds the shorthand text_match condition a bare string
// denotes in serialized rules.
func TextCondition(description string) *Condition {
	return &Condition{
		Description: description,
		Kind:        KindTextMatch,
	}
}

// Validate checks that the condition is well formed: non-empty description,
// known kind, and parameters consistent with that kind.
func (c *Condition) Validate() error {
	if c.Description == "" {
		return fmt.Errorf("%w: condition description is empty", ErrInvalidRule)
	}

	params := 0
	if c.TextMatch != nil {
		params++
	}
	if c.NumericRange != nil {
		params++
	}
	if c.Boolean != nil {
		params++
	}
	if c.Custom != nil {
		params++
	}
	if params > 1 {
		return fmt.Errorf("%w: condition %q sets parameters for multiple kinds", ErrInvalidRule, c.Description)
	}

	switch c.Kind {
	case KindTextMatch:
		if params == 1 && c.TextMatch == nil {
			return kindMismatch(c)
		}
	case KindNumericRange:
		if c.NumericRange == nil {
			return fmt.Errorf("%w: numeric_range condition %q requires range parameters", ErrInvalidRule, c.Description)
		}
		if c.NumericRange.Field == "" {
			return fmt.Errorf("%w: numeric_range condition %q requires a field", ErrInvalidRule, c.Description)
		}
		if c.NumericRange.Min == nil && c.NumericRange.Max == nil {
			return fmt.Errorf("%w: numeric_range condition %q requires min or max", ErrInvalidRule, c.Description)
		}
	case KindBoolean:
		if c.Boolean == nil || c.Boolean.Field == "" {
			return fmt.Errorf("%w: boolean condition %q requires a field", ErrInvalidRule, c.Description)
		}
	case KindCustom:
		if params == 1 && c.Custom == nil {
			return kindMismatch(c)
		}
	default:
		return fmt.Errorf("%w: unknown condition kind %q", ErrInvalidRule, c.Kind)
	}

	return nil
}

func kindMismatch(c *Condition) error {
	return fmt.Errorf("%w: condition %q parameters do not match kind %q", ErrInvalidRule, c.Description, c.Kind)
}

// Term is one child of a rule node: either a nested rule or a leaf condition.
// Exactly one side is set.
type Term struct {
	Rule      *Rule
	Condition *Condition
}

// IsLeaf reports whether this term is a leaf condition.
func (t Term) IsLeaf() bool {
	return t.Condition != nil
}

// MarshalJSON encodes the populated side of the term.
func (t Term) MarshalJSON() ([]byte, error) {
	switch {
	case t.Rule != nil:
		return json.Marshal(t.Rule)
	case t.Condition != nil:
		return json.Marshal(t.Condition)
	default:
		return nil, fmt.Errorf("%w: empty rule term", ErrInvalidRule)
	}
}

// UnmarshalJSON decodes a term from its three serialized forms: a bare string
// (shorthand for a text_match condition), an object with "operator" (a nested
// rule), or any other object (a condition).
func (t *Term) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		t.Condition = TextCondition(s)
		return nil
	}

	var probe map[string]json.RawMessage
	if err := json.Unmarshal(data, &probe); err != nil {
		return fmt.Errorf("%w: term must be a string or object", ErrInvalidRule)
	}

	if _, ok := probe["operator"]; ok {
		var r Rule
		if err := json.Unmarshal(data, &r); err != nil {
			return err
		}
		t.Rule = &r
		return nil
	}

	var c Condition
	if err := json.Unmarshal(data, &c); err != nil {
		return err
	}
	if c.Kind == "" {
		c.Kind = KindTextMatch
	}
	t.Condition = &c
	return nil
}

// Rule is an internal node of an attribute rule tree: an AND/OR combinator
// over an ordered sequence of terms. Rules nest to arbitrary depth and form a
// strict tree; nodes are never shared between parents.
type Rule struct {
	Op         Operator `json:"operator"`
	Conditions []Term   `json:"conditions"`
}

// Validate checks the whole tree: known operators, well-formed conditions,
// and no empty condition lists anywhere.
func (r *Rule) Validate() error {
	if r.Op != OpAnd && r.Op != OpOr {
		return fmt.Errorf("%w: unknown operator %q", ErrInvalidRule, r.Op)
	}
	if len(r.Conditions) == 0 {
		return fmt.Errorf("%w: %s rule has no conditions", ErrEmptyRule, r.Op)
	}

	for i, term := range r.Conditions {
		switch {
		case term.Rule != nil:
			if err := term.Rule.Validate(); err != nil {
				return err
			}
		case term.Condition != nil:
			if err := term.Condition.Validate(); err != nil {
				return err
			}
		default:
			return fmt.Errorf("%w: %s rule condition %d is empty", ErrInvalidRule, r.Op, i)
		}
	}

	return nil
}

// Leaves returns the number of leaf conditions in the tree.
func (r *Rule) Leaves() int {
	n := 0
	for _, term := range r.Conditions {
		if term.Rule != nil {
			n += term.Rule.Leaves()
		} else if term.Condition != nil {
			n++
		}
	}
	return n
}

// Depth returns the nesting depth of the tree. A rule of only leaves has depth 1.
func (r *Rule) Depth() int {
	depth := 1
	for _, term := range r.Conditions {
		if term.Rule != nil {
			if d := term.Rule.Depth() + 1; d > depth {
				depth = d
			}
		}
	}
	return depth
}
