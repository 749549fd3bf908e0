package conditions

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/JaimeStill/taxon/classify"
)

const systemPrompt = `You are a document attribute judge. You receive one condition and one document and decide whether the document satisfies the condition.

Rules:
- satisfied is true only when the document itself gives evidence for the condition. Absence of evidence means not satisfied.
- For numeric range conditions, locate the field's value in the document and check it against the stated bounds. Bounds are inclusive.
- For boolean conditions, judge whether the named field holds true in the document.
- confidence ranges from 0.0 (a guess) to 1.0 (certain).
- Keep the explanation to one or two sentences citing the document's evidence.`

// buildUserMessage lays out the condition and the document for the model.
func buildUserMessage(c classify.Condition, document string) string {
	var b strings.Builder

	b.WriteString("Condition:\n")
	b.WriteString(describeCondition(c))
	b.WriteString("\nDocument:\n")
	b.WriteString(document)

	return b.String()
}

// describeCondition renders the condition with the parameters of its kind.
func describeCondition(c classify.Condition) string {
	var b strings.Builder

	fmt.Fprintf(&b, "  kind: %s\n", c.Kind)
	fmt.Fprintf(&b, "  predicate: %s\n", c.Description)

	switch c.Kind {
	case classify.KindTextMatch:
		if c.TextMatch != nil && c.TextMatch.CaseSensitive {
			b.WriteString("  case sensitive: true\n")
		}
	case classify.KindNumericRange:
		if p := c.NumericRange; p != nil {
			fmt.Fprintf(&b, "  field: %s\n", p.Field)
			if p.Min != nil {
				fmt.Fprintf(&b, "  minimum: %v\n", *p.Min)
			}
			if p.Max != nil {
				fmt.Fprintf(&b, "  maximum: %v\n", *p.Max)
			}
		}
	case classify.KindBoolean:
		if p := c.Boolean; p != nil {
			fmt.Fprintf(&b, "  field: %s\n", p.Field)
		}
	case classify.KindCustom:
		if p := c.Custom; p != nil && len(p.Spec) > 0 {
			for _, k := range slices.Sorted(maps.Keys(p.Spec)) {
				fmt.Fprintf(&b, "  %s: %s\n", k, p.Spec[k])
			}
		}
	}

	return b.String()
}
