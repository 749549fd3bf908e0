package classify

// NodeType identifies the kind of an evaluation tree node.
type NodeType string

// Evaluation node types.
const (
	NodeCondition NodeType = "condition"
	NodeAnd       NodeType = "AND"
	NodeOr        NodeType = "OR"
)

// Evaluation is the result of evaluating one rule tree node against a
// document. The tree mirrors the rule tree it was produced from exactly: same
// branching, same child order. Satisfied is nil for nodes that were never
// evaluated (skipped by short-circuiting) and for leaves whose oracle call
// failed; the failed case carries an Error and counts as not satisfied.
type Evaluation struct {
	Type      NodeType      `json:"type"`
	Satisfied *bool         `json:"satisfied"`
	Condition string        `json:"condition,omitempty"`
	Children  []*Evaluation `json:"children,omitempty"`
	Skipped   bool          `json:"skipped"`
	Error     string        `json:"error,omitempty"`
}

// Holds reports whether this node was evaluated and satisfied. Skipped and
// errored nodes do not hold.
func (e *Evaluation) Holds() bool {
	return e.Satisfied != nil && *e.Satisfied
}

// Errored reports whether this node carries an evaluation error.
func (e *Evaluation) Errored() bool {
	return e.Error != ""
}

// CountSkipped returns the number of skipped nodes in the subtree, this node
// included.
func (e *Evaluation) CountSkipped() int {
	n := 0
	if e.Skipped {
		n++
	}
	for _, child := range e.Children {
		n += child.CountSkipped()
	}
	return n
}

// CountLeaves returns the number of condition leaves in the subtree.
func (e *Evaluation) CountLeaves() int {
	if e.Type == NodeCondition {
		return 1
	}
	n := 0
	for _, child := range e.Children {
		n += child.CountLeaves()
	}
	return n
}
