package rules

import (
	"fmt"

	"github.com/JaimeStill/taxon/classify"
)

// Conforms verifies that an evaluation tree is structurally isomorphic to the
// rule it was produced from: same node types, same branching, same child
// order, same leaf positions. A mismatch means the evaluator is unsound, so
// callers treat it as an internal defect and abort.
func Conforms(rule *classify.Rule, eval *classify.Evaluation) error {
	if rule == nil {
		return fmt.Errorf("%w: nil rule", classify.ErrEvaluationShape)
	}
	return conformRule(rule, eval, "root")
}

func conformRule(rule *classify.Rule, eval *classify.Evaluation, path string) error {
	if eval == nil {
		return fmt.Errorf("%w: missing node at %s", classify.ErrEvaluationShape, path)
	}

	want := classify.NodeAnd
	if rule.Op == classify.OpOr {
		want = classify.NodeOr
	}
	if eval.Type != want {
		return fmt.Errorf("%w: node at %s is %s, want %s", classify.ErrEvaluationShape, path, eval.Type, want)
	}

	if len(eval.Children) != len(rule.Conditions) {
		return fmt.Errorf("%w: node at %s has %d children, want %d",
			classify.ErrEvaluationShape, path, len(eval.Children), len(rule.Conditions))
	}

	for i, term := range rule.Conditions {
		childPath := fmt.Sprintf("%s[%d]", path, i)
		child := eval.Children[i]

		if term.Rule != nil {
			if err := conformRule(term.Rule, child, childPath); err != nil {
				return err
			}
			continue
		}

		if child == nil {
			return fmt.Errorf("%w: missing leaf at %s", classify.ErrEvaluationShape, childPath)
		}
		if child.Type != classify.NodeCondition {
			return fmt.Errorf("%w: node at %s is %s, want %s",
				classify.ErrEvaluationShape, childPath, child.Type, classify.NodeCondition)
		}
		if len(child.Children) != 0 {
			return fmt.Errorf("%w: leaf at %s has children", classify.ErrEvaluationShape, childPath)
		}
		if term.Condition != nil && child.Condition != term.Condition.Description {
			return fmt.Errorf("%w: leaf at %s evaluates %q, want %q",
				classify.ErrEvaluationShape, childPath, child.Condition, term.Condition.Description)
		}
	}

	return nil
}
