package rerank

import (
	"fmt"
	"strings"

	"github.com/JaimeStill/taxon/classify"
)

const systemPrompt = `You are a document classification reranker. You receive a document and a list of candidate classes selected by embedding similarity. Rescore how well each candidate class describes the document.

Rules:
- Judge each candidate on the document's actual content. The similarity score is context, not an answer.
- Scores range from 0.0 (no match) to 1.0 (exact match).
- Reference candidates by their exact class_id.
- Score every candidate you can judge. Omit a candidate entirely only when you cannot form an opinion on it.
- Keep reasoning to one sentence per candidate.`

// buildUserMessage lays out the document and the candidate classes for the
// model, one numbered block per candidate.
func buildUserMessage(document string, candidates []classify.Similarity) string {
	var b strings.Builder

	b.WriteString("Document:\n")
	b.WriteString(document)
	b.WriteString("\n\nCandidates:\n")

	for i, c := range candidates {
		fmt.Fprintf(&b, "%d. class_id: %s\n", i+1, c.Class.ID)
		fmt.Fprintf(&b, "   name: %s\n", c.Class.Name)
		if c.Class.Description != "" {
			fmt.Fprintf(&b, "   description: %s\n", c.Class.Description)
		}
		fmt.Fprintf(&b, "   similarity: %.4f\n", c.Score)
	}

	return b.String()
}
