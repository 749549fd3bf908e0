package rules_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/JaimeStill/taxon/classify"
	"github.com/JaimeStill/taxon/internal/rules"
)

// scriptedOracle judges conditions from a fixed script keyed by description.
// Descriptions absent from both maps block until the context is canceled,
// which models an in-flight judgment that never completes.
type scriptedOracle struct {
	mu       sync.Mutex
	calls    []string
	verdicts map[string]bool
	failures map[string]error
}

func (o *scriptedOracle) Judge(ctx context.Context, cond classify.Condition, _ string) (classify.Judgment, error) {
	o.mu.Lock()
	o.calls = append(o.calls, cond.Description)
	o.mu.Unlock()

	if err, ok := o.failures[cond.Description]; ok {
		return classify.Judgment{}, err
	}
	if verdict, ok := o.verdicts[cond.Description]; ok {
		return classify.Judgment{Satisfied: verdict, Confidence: 0.9}, nil
	}

	<-ctx.Done()
	return classify.Judgment{}, ctx.Err()
}

func (o *scriptedOracle) callCount() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.calls)
}

func (o *scriptedOracle) callOrder() []string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]string(nil), o.calls...)
}

func newEvaluator(oracle classify.ConditionOracle, cfg rules.Config) *rules.Evaluator {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return rules.New(oracle, logger, cfg)
}

func textRule(op classify.Operator, descriptions ...string) *classify.Rule {
	terms := make([]classify.Term, len(descriptions))
	for i, d := range descriptions {
		terms[i] = classify.Term{Condition: classify.TextCondition(d)}
	}
	return &classify.Rule{Op: op, Conditions: terms}
}

func TestEvaluateAndShortCircuit(t *testing.T) {
	oracle := &scriptedOracle{verdicts: map[string]bool{"c1": false, "c2": true, "c3": true}}
	rule := textRule(classify.OpAnd, "c1", "c2", "c3")

	eval := newEvaluator(oracle, rules.Config{}).Evaluate(context.Background(), rule, "doc")

	if eval.Holds() {
		t.Error("root Holds() = true, want false")
	}
	if got := oracle.callCount(); got != 1 {
		t.Errorf("oracle calls = %d, want 1", got)
	}
	if !eval.Children[1].Skipped || !eval.Children[2].Skipped {
		t.Errorf("children skipped = [%v %v %v], want [false true true]",
			eval.Children[0].Skipped, eval.Children[1].Skipped, eval.Children[2].Skipped)
	}
	if eval.Children[1].Satisfied != nil || eval.Children[2].Satisfied != nil {
		t.Error("skipped children must have nil Satisfied")
	}
}

func TestEvaluateOrShortCircuit(t *testing.T) {
	oracle := &scriptedOracle{verdicts: map[string]bool{"c1": false, "c2": true, "c3": true}}
	rule := textRule(classify.OpOr, "c1", "c2", "c3")

	eval := newEvaluator(oracle, rules.Config{}).Evaluate(context.Background(), rule, "doc")

	if !eval.Holds() {
		t.Error("root Holds() = false, want true")
	}
	if got := oracle.callCount(); got != 2 {
		t.Errorf("oracle calls = %d, want 2", got)
	}
	if !eval.Children[2].Skipped {
		t.Error("third child Skipped = false, want true")
	}
}

func TestEvaluateAllSatisfied(t *testing.T) {
	oracle := &scriptedOracle{verdicts: map[string]bool{"c1": true, "c2": true, "c3": true}}
	rule := textRule(classify.OpAnd, "c1", "c2", "c3")

	eval := newEvaluator(oracle, rules.Config{}).Evaluate(context.Background(), rule, "doc")

	if !eval.Holds() {
		t.Error("root Holds() = false, want true")
	}
	if got := oracle.callCount(); got != 3 {
		t.Errorf("oracle calls = %d, want 3", got)
	}
	if got := eval.CountSkipped(); got != 0 {
		t.Errorf("CountSkipped() = %d, want 0", got)
	}
}

func TestEvaluateEmptyRule(t *testing.T) {
	tests := []struct {
		name string
		op   classify.Operator
	}{
		{"empty AND", classify.OpAnd},
		{"empty OR", classify.OpOr},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			oracle := &scriptedOracle{}
			eval := newEvaluator(oracle, rules.Config{}).Evaluate(
				context.Background(), &classify.Rule{Op: tt.op}, "doc")

			if eval.Satisfied == nil || *eval.Satisfied {
				t.Errorf("Satisfied = %v, want false", eval.Satisfied)
			}
			if eval.Error == "" {
				t.Error("Error = empty, want explanatory message")
			}
			if got := oracle.callCount(); got != 0 {
				t.Errorf("oracle calls = %d, want 0", got)
			}
		})
	}
}

func TestEvaluateDeclaredOrder(t *testing.T) {
	oracle := &scriptedOracle{verdicts: map[string]bool{"c1": true, "c2": true, "c3": true}}
	rule := textRule(classify.OpAnd, "c1", "c2", "c3")

	newEvaluator(oracle, rules.Config{}).Evaluate(context.Background(), rule, "doc")

	want := []string{"c1", "c2", "c3"}
	got := oracle.callOrder()
	if len(got) != len(want) {
		t.Fatalf("oracle calls = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("call %d = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestEvaluateNested(t *testing.T) {
	// AND[OR[a, b], c, d] with a=false, b=true, c=false: the OR holds after
	// two calls, c fails the AND, and d is never consulted.
	rule := &classify.Rule{
		Op: classify.OpAnd,
		Conditions: []classify.Term{
			{Rule: textRule(classify.OpOr, "a", "b")},
			{Condition: classify.TextCondition("c")},
			{Condition: classify.TextCondition("d")},
		},
	}
	oracle := &scriptedOracle{verdicts: map[string]bool{"a": false, "b": true, "c": false, "d": true}}

	eval := newEvaluator(oracle, rules.Config{}).Evaluate(context.Background(), rule, "doc")

	if eval.Holds() {
		t.Error("root Holds() = true, want false")
	}
	if got := oracle.callCount(); got != 3 {
		t.Errorf("oracle calls = %d, want 3", got)
	}
	if !eval.Children[0].Holds() {
		t.Error("nested OR Holds() = false, want true")
	}
	if eval.Children[1].Holds() || eval.Children[1].Skipped {
		t.Error("child c must be evaluated and false")
	}
	if !eval.Children[2].Skipped {
		t.Error("child d Skipped = false, want true")
	}
	if err := rules.Conforms(rule, eval); err != nil {
		t.Errorf("Conforms() error = %v, want nil", err)
	}
}

func TestEvaluateShapeIsomorphism(t *testing.T) {
	rule := &classify.Rule{
		Op: classify.OpOr,
		Conditions: []classify.Term{
			{Rule: &classify.Rule{
				Op: classify.OpAnd,
				Conditions: []classify.Term{
					{Condition: classify.TextCondition("a")},
					{Rule: textRule(classify.OpOr, "b", "c")},
				},
			}},
			{Condition: classify.TextCondition("d")},
		},
	}
	// a=true short-circuits nothing; nested OR b=true; outer OR satisfied by
	// its first child, so d is skipped. The skipped skeleton must still
	// mirror the rule shape.
	oracle := &scriptedOracle{verdicts: map[string]bool{"a": true, "b": true, "c": true, "d": true}}

	eval := newEvaluator(oracle, rules.Config{}).Evaluate(context.Background(), rule, "doc")

	if !eval.Holds() {
		t.Error("root Holds() = false, want true")
	}
	if err := rules.Conforms(rule, eval); err != nil {
		t.Errorf("Conforms() error = %v, want nil", err)
	}
	if got := eval.CountLeaves(); got != 4 {
		t.Errorf("CountLeaves() = %d, want 4", got)
	}
	if !eval.Children[1].Skipped {
		t.Error("child d Skipped = false, want true")
	}
}

func TestEvaluateOracleFailureFailClosed(t *testing.T) {
	oracle := &scriptedOracle{
		verdicts: map[string]bool{"c2": true},
		failures: map[string]error{"c1": errors.New("judgment backend unreachable")},
	}
	rule := textRule(classify.OpAnd, "c1", "c2")

	eval := newEvaluator(oracle, rules.Config{}).Evaluate(context.Background(), rule, "doc")

	if eval.Holds() {
		t.Error("root Holds() = true, want false")
	}

	failed := eval.Children[0]
	if failed.Satisfied != nil {
		t.Errorf("failed leaf Satisfied = %v, want nil", *failed.Satisfied)
	}
	if failed.Skipped {
		t.Error("failed leaf Skipped = true, want false")
	}
	if !strings.Contains(failed.Error, "unreachable") {
		t.Errorf("failed leaf Error = %q, want backend message", failed.Error)
	}

	// An errored leaf is not a short-circuit: its siblings still run.
	if got := oracle.callCount(); got != 2 {
		t.Errorf("oracle calls = %d, want 2", got)
	}
	if !eval.Children[1].Holds() {
		t.Error("sibling Holds() = false, want true")
	}
}

func TestEvaluateOrRecoversFromFailure(t *testing.T) {
	oracle := &scriptedOracle{
		verdicts: map[string]bool{"c2": true},
		failures: map[string]error{"c1": errors.New("timeout")},
	}
	rule := textRule(classify.OpOr, "c1", "c2")

	eval := newEvaluator(oracle, rules.Config{}).Evaluate(context.Background(), rule, "doc")

	if !eval.Holds() {
		t.Error("root Holds() = false, want true")
	}
}

func TestEvaluateOrAllFailedOrFalse(t *testing.T) {
	oracle := &scriptedOracle{
		verdicts: map[string]bool{"c2": false},
		failures: map[string]error{"c1": errors.New("timeout")},
	}
	rule := textRule(classify.OpOr, "c1", "c2")

	eval := newEvaluator(oracle, rules.Config{}).Evaluate(context.Background(), rule, "doc")

	if eval.Satisfied == nil || *eval.Satisfied {
		t.Errorf("root Satisfied = %v, want false", eval.Satisfied)
	}
	if got := oracle.callCount(); got != 2 {
		t.Errorf("oracle calls = %d, want 2", got)
	}
}

func TestEvaluateLeafTimeout(t *testing.T) {
	// "slow" has no scripted verdict, so the oracle blocks until the leaf
	// deadline cancels the judgment.
	oracle := &scriptedOracle{verdicts: map[string]bool{"fast": true}}
	rule := textRule(classify.OpAnd, "slow", "fast")

	eval := newEvaluator(oracle, rules.Config{LeafTimeout: 20 * time.Millisecond}).
		Evaluate(context.Background(), rule, "doc")

	if eval.Holds() {
		t.Error("root Holds() = true, want false")
	}

	slow := eval.Children[0]
	if slow.Satisfied != nil || slow.Error == "" {
		t.Errorf("timed out leaf = {Satisfied: %v, Error: %q}, want nil Satisfied and error", slow.Satisfied, slow.Error)
	}
	if !eval.Children[1].Holds() {
		t.Error("fast sibling Holds() = false, want true")
	}
}

func TestEvaluateConcurrentPreservesOrderAndOutcome(t *testing.T) {
	oracle := &scriptedOracle{verdicts: map[string]bool{"c1": true, "c2": true, "c3": true, "c4": true}}
	rule := textRule(classify.OpAnd, "c1", "c2", "c3", "c4")

	eval := newEvaluator(oracle, rules.Config{Concurrency: 4}).
		Evaluate(context.Background(), rule, "doc")

	if !eval.Holds() {
		t.Error("root Holds() = false, want true")
	}
	if got := oracle.callCount(); got != 4 {
		t.Errorf("oracle calls = %d, want 4", got)
	}
	for i, want := range []string{"c1", "c2", "c3", "c4"} {
		if eval.Children[i].Condition != want {
			t.Errorf("child %d = %q, want %q", i, eval.Children[i].Condition, want)
		}
	}
	if err := rules.Conforms(rule, eval); err != nil {
		t.Errorf("Conforms() error = %v, want nil", err)
	}
}

func TestEvaluateConcurrentAbandonsPendingSiblings(t *testing.T) {
	// c1 resolves true immediately; the remaining siblings have no scripted
	// verdict and would block forever. The OR must settle on c1, mark the
	// pending siblings skipped, and return without waiting for them.
	oracle := &scriptedOracle{verdicts: map[string]bool{"c1": true}}
	rule := textRule(classify.OpOr, "c1", "c2", "c3", "c4")

	start := time.Now()
	eval := newEvaluator(oracle, rules.Config{Concurrency: 4}).
		Evaluate(context.Background(), rule, "doc")
	elapsed := time.Since(start)

	if !eval.Holds() {
		t.Error("root Holds() = false, want true")
	}
	for i := 1; i < 4; i++ {
		if !eval.Children[i].Skipped {
			t.Errorf("child %d Skipped = false, want true", i)
		}
		if eval.Children[i].Satisfied != nil {
			t.Errorf("child %d Satisfied != nil, want nil", i)
		}
	}
	if elapsed > 2*time.Second {
		t.Errorf("Evaluate took %v, want prompt return after short-circuit", elapsed)
	}
}

func TestConforms(t *testing.T) {
	rule := &classify.Rule{
		Op: classify.OpAnd,
		Conditions: []classify.Term{
			{Condition: classify.TextCondition("a")},
			{Rule: textRule(classify.OpOr, "b", "c")},
		},
	}

	sat := true
	valid := &classify.Evaluation{
		Type:      classify.NodeAnd,
		Satisfied: &sat,
		Children: []*classify.Evaluation{
			{Type: classify.NodeCondition, Condition: "a", Satisfied: &sat},
			{Type: classify.NodeOr, Satisfied: &sat, Children: []*classify.Evaluation{
				{Type: classify.NodeCondition, Condition: "b", Satisfied: &sat},
				{Type: classify.NodeCondition, Condition: "c", Skipped: true},
			}},
		},
	}

	tests := []struct {
		name    string
		mutate  func(e *classify.Evaluation)
		wantErr bool
	}{
		{"matching tree", func(e *classify.Evaluation) {}, false},
		{"wrong root type", func(e *classify.Evaluation) { e.Type = classify.NodeOr }, true},
		{"missing child", func(e *classify.Evaluation) { e.Children = e.Children[:1] }, true},
		{"leaf replaced by group", func(e *classify.Evaluation) {
			e.Children[0] = &classify.Evaluation{Type: classify.NodeAnd}
		}, true},
		{"wrong condition text", func(e *classify.Evaluation) { e.Children[0].Condition = "z" }, true},
		{"nested count mismatch", func(e *classify.Evaluation) {
			e.Children[1].Children = e.Children[1].Children[:1]
		}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			eval := cloneEvaluation(valid)
			tt.mutate(eval)

			err := rules.Conforms(rule, eval)
			if tt.wantErr && !errors.Is(err, classify.ErrEvaluationShape) {
				t.Errorf("Conforms() error = %v, want %v", err, classify.ErrEvaluationShape)
			}
			if !tt.wantErr && err != nil {
				t.Errorf("Conforms() error = %v, want nil", err)
			}
		})
	}
}

func cloneEvaluation(e *classify.Evaluation) *classify.Evaluation {
	if e == nil {
		return nil
	}
	clone := *e
	clone.Children = make([]*classify.Evaluation, len(e.Children))
	for i, child := range e.Children {
		clone.Children[i] = cloneEvaluation(child)
	}
	return &clone
}
