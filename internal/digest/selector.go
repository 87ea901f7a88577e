package digest

import (
	"sort"

	"github.com/Daltonicc/SwiftPaperBot/internal/domain"
)

// Candidate pairs a paper with its assessment for one run.
type Candidate struct {
	Paper      domain.Paper
	Assessment domain.Assessment
}

// Select orders candidates by relevance score descending, then published
// timestamp descending, and truncates to maxPapers. The stable sort keeps
// feed order for fully equal keys, so the output is a total order.
func Select(candidates []Candidate, maxPapers int) []Candidate {
	ranked := append([]Candidate(nil), candidates...)
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].Assessment.RelevanceScore != ranked[j].Assessment.RelevanceScore {
			return ranked[i].Assessment.RelevanceScore > ranked[j].Assessment.RelevanceScore
		}
		return ranked[i].Paper.Published.After(ranked[j].Paper.Published)
	})

	if maxPapers > 0 && len(ranked) > maxPapers {
		ranked = ranked[:maxPapers]
	}
	return ranked
}
