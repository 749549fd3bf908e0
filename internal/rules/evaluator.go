// Package rules implements the attribute rule tree evaluator. It walks a
// nested AND/OR rule in declared order, resolves each leaf condition through
// the ConditionOracle, short-circuits siblings whose outcome can no longer
// change the node, and returns an evaluation tree that mirrors the rule shape
// exactly.
package rules

import (
	"context"
	"log/slog"
	"time"

	"github.com/JaimeStill/taxon/classify"
)

// Config controls evaluator behavior.
type Config struct {
	// LeafTimeout bounds each individual oracle judgment. Zero disables the
	// per-leaf deadline; the caller's context still applies.
	LeafTimeout time.Duration

	// Concurrency is the maximum number of sibling leaves judged at once.
	// Values below 2 evaluate strictly sequentially, which keeps oracle call
	// counts minimal and deterministic.
	Concurrency int
}

// Evaluator evaluates attribute rule trees against documents.
type Evaluator struct {
	oracle      classify.ConditionOracle
	logger      *slog.Logger
	leafTimeout time.Duration
	concurrency int
}

// New creates an Evaluator backed by the given oracle.
func New(oracle classify.ConditionOracle, logger *slog.Logger, cfg Config) *Evaluator {
	concurrency := cfg.Concurrency
	if concurrency < 1 {
		concurrency = 1
	}

	return &Evaluator{
		oracle:      oracle,
		logger:      logger.With("system", "rules"),
		leafTimeout: cfg.LeafTimeout,
		concurrency: concurrency,
	}
}

// Evaluate resolves rule against document and returns the full evaluation
// tree. The tree always matches the rule shape: short-circuited branches
// appear as skipped nodes, and a leaf whose oracle call fails is recorded with
// its error and counts as not satisfied. Evaluate never returns a nil tree
// for a non-nil rule.
func (e *Evaluator) Evaluate(ctx context.Context, rule *classify.Rule, document string) *classify.Evaluation {
	start := time.Now()
	root := e.evalRule(ctx, rule, document)

	e.logger.Info("rule evaluated",
		"satisfied", root.Holds(),
		"leaves", root.CountLeaves(),
		"skipped", root.CountSkipped(),
		"duration", time.Since(start),
	)
	return root
}

func (e *Evaluator) evalRule(ctx context.Context, rule *classify.Rule, document string) *classify.Evaluation {
	node := &classify.Evaluation{
		Type:     nodeType(rule.Op),
		Children: make([]*classify.Evaluation, len(rule.Conditions)),
	}

	// An empty rule never holds: a class with unconstrained requirements
	// must not be accepted by default.
	if len(rule.Conditions) == 0 {
		node.Satisfied = boolPtr(false)
		node.Error = classify.ErrEmptyRule.Error()
		return node
	}

	decided := e.evalChildren(ctx, rule, node.Children, document)
	node.Satisfied = boolPtr(settle(rule.Op, decided, node.Children))
	return node
}

// evalChildren fills results in declared order and reports whether the node
// short-circuited. A decided node marks every later sibling skipped; runs of
// consecutive leaves may be judged concurrently, but composite children act
// as ordering barriers and decisions are always applied in declared order.
func (e *Evaluator) evalChildren(ctx context.Context, rule *classify.Rule, results []*classify.Evaluation, document string) bool {
	decided := false
	terms := rule.Conditions

	i := 0
	for i < len(terms) {
		if decided {
			results[i] = skippedTerm(terms[i])
			i++
			continue
		}

		if terms[i].Rule != nil {
			results[i] = e.evalRule(ctx, terms[i].Rule, document)
			decided = decisive(rule.Op, results[i])
			i++
			continue
		}

		j := i
		for j < len(terms) && terms[j].Rule == nil {
			j++
		}

		decided = e.evalLeafRun(ctx, rule.Op, terms[i:j], results[i:j], document)
		i = j
	}

	return decided
}

// evalLeafRun judges a run of consecutive leaf siblings. With concurrency
// enabled the whole run is dispatched to bounded workers up front; the run is
// still resolved in declared order, and once a decisive leaf is found the
// remaining siblings are marked skipped and any in-flight judgments are
// abandoned to the canceled run context rather than awaited.
func (e *Evaluator) evalLeafRun(ctx context.Context, op classify.Operator, terms []classify.Term, results []*classify.Evaluation, document string) bool {
	if e.concurrency < 2 || len(terms) < 2 {
		for k := range terms {
			results[k] = e.evalLeaf(ctx, terms[k], document)
			if decisive(op, results[k]) {
				for s := k + 1; s < len(terms); s++ {
					results[s] = skippedTerm(terms[s])
				}
				return true
			}
		}
		return false
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	slots := make([]*classify.Evaluation, len(terms))
	done := make([]chan struct{}, len(terms))
	workers := make(chan struct{}, e.concurrency)

	for k := range terms {
		done[k] = make(chan struct{})
		go func(k int) {
			defer close(done[k])
			select {
			case workers <- struct{}{}:
			case <-runCtx.Done():
				slots[k] = failedLeaf(terms[k], runCtx.Err().Error())
				return
			}
			defer func() { <-workers }()
			slots[k] = e.evalLeaf(runCtx, terms[k], document)
		}(k)
	}

	for k := range terms {
		<-done[k]
		results[k] = slots[k]
		if decisive(op, results[k]) {
			cancel()
			for s := k + 1; s < len(terms); s++ {
				results[s] = skippedTerm(terms[s])
			}
			return true
		}
	}

	return false
}

func (e *Evaluator) evalLeaf(ctx context.Context, term classify.Term, document string) *classify.Evaluation {
	cond := term.Condition
	if cond == nil {
		return failedLeaf(term, "empty rule term")
	}

	judgeCtx := ctx
	if e.leafTimeout > 0 {
		var cancel context.CancelFunc
		judgeCtx, cancel = context.WithTimeout(ctx, e.leafTimeout)
		defer cancel()
	}

	judgment, err := e.oracle.Judge(judgeCtx, *cond, document)
	if err != nil {
		e.logger.Warn("condition judgment failed",
			"condition", cond.Description,
			"error", err,
		)
		return &classify.Evaluation{
			Type:      classify.NodeCondition,
			Condition: cond.Description,
			Error:     err.Error(),
		}
	}

	return &classify.Evaluation{
		Type:      classify.NodeCondition,
		Condition: cond.Description,
		Satisfied: boolPtr(judgment.Satisfied),
	}
}

// settle computes the node outcome once every child slot is filled.
// A decided AND is false and a decided OR is true. Without a decision every
// child was evaluated: AND holds only when all children hold, so an errored
// child fails it; OR is false because nothing satisfied it.
func settle(op classify.Operator, decided bool, children []*classify.Evaluation) bool {
	if decided {
		return op == classify.OpOr
	}

	if op == classify.OpOr {
		return false
	}

	for _, child := range children {
		if !child.Holds() {
			return false
		}
	}
	return true
}

// decisive reports whether a resolved child settles its parent: an explicit
// false settles an AND, a satisfied child settles an OR. An errored leaf is
// not decisive; its siblings still run so the trace stays informative.
func decisive(op classify.Operator, child *classify.Evaluation) bool {
	if op == classify.OpAnd {
		return child.Satisfied != nil && !*child.Satisfied
	}
	return child.Holds()
}

// skippedTerm builds the unevaluated skeleton for a pruned subtree. Skipped
// nodes still appear in the result so the caller can render what was never
// consulted.
func skippedTerm(term classify.Term) *classify.Evaluation {
	if term.Rule != nil {
		node := &classify.Evaluation{
			Type:     nodeType(term.Rule.Op),
			Skipped:  true,
			Children: make([]*classify.Evaluation, len(term.Rule.Conditions)),
		}
		for i, child := range term.Rule.Conditions {
			node.Children[i] = skippedTerm(child)
		}
		return node
	}

	node := &classify.Evaluation{
		Type:    classify.NodeCondition,
		Skipped: true,
	}
	if term.Condition != nil {
		node.Condition = term.Condition.Description
	}
	return node
}

func failedLeaf(term classify.Term, msg string) *classify.Evaluation {
	node := &classify.Evaluation{
		Type:  classify.NodeCondition,
		Error: msg,
	}
	if term.Condition != nil {
		node.Condition = term.Condition.Description
	}
	return node
}

func nodeType(op classify.Operator) classify.NodeType {
	if op == classify.OpOr {
		return classify.NodeOr
	}
	return classify.NodeAnd
}

func boolPtr(v bool) *bool { return &v }
