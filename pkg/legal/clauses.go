// Package legal contains the clause detection used during document upload.
// Detection is regex-based and intentionally shallow: it exists to give the
// model numbered anchors to cite, not to understand the contract.
package legal

import (
	"regexp"
	"strings"
)

type Clause struct {
	Number     string
	Text       string
	Confidence float64
	Type       string
}

const (
	maxClauses    = 10
	minClauseText = 20

	defaultConfidence = 0.8
)

var clausePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?im)(\d+\.\d+)\s+([A-Z][^.]*\.)`),          // 12.2 Clause text.
	regexp.MustCompile(`(?im)(Section\s+\d+)\s+([A-Z][^.]*\.)`),     // Section 12 text.
	regexp.MustCompile(`(?im)(Article\s+[IVX]+)\s+([A-Z][^.]*\.)`),  // Article IV text.
	regexp.MustCompile(`(?im)(\([a-z]\))\s+([A-Z][^.]*\.)`),         // (a) text.
}

// ExtractClauses finds numbered clauses in extracted document text. Very short
// matches are regex noise and get dropped; the result is capped so one dense
// contract cannot flood the chat context.
func ExtractClauses(text string) []Clause {
	var clauses []Clause

	for _, pattern := range clausePatterns {
		matches := pattern.FindAllStringSubmatch(text, -1)
		for _, match := range matches {
			number := match[1]
			clauseText := strings.TrimSpace(match[2])

			if len(clauseText) <= minClauseText {
				continue
			}

			clauses = append(clauses, Clause{
				Number:     number,
				Text:       clauseText,
				Confidence: defaultConfidence,
				Type:       "neutral",
			})
		}
	}

	if len(clauses) > maxClauses {
		clauses = clauses[:maxClauses]
	}
	return clauses
}
