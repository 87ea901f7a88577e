package relevance

import (
	"math"
	"strings"
)

// Scorer computes the deterministic keyword-match score. It performs no I/O
// and the same (title, abstract) pair always yields the same score.
type Scorer struct {
	dict Dictionary
}

func NewScorer(dict Dictionary) *Scorer {
	return &Scorer{dict: dict}
}

// Score returns the 0-10 keyword-match score for a paper's title and
// abstract, rounded to one decimal place.
func (s *Scorer) Score(title, abstract string) float64 {
	text := strings.ToLower(title + " " + abstract)

	var total, maxPossible float64
	for _, group := range s.dict.Groups {
		for _, keyword := range group.Keywords {
			if n := strings.Count(text, keyword); n > 0 {
				total += float64(n) * group.Weight
			}
		}
		maxPossible += float64(len(group.Keywords)) * group.Weight
	}
	if maxPossible == 0 {
		return 0.0
	}

	// Extracted keywords that also appear in the dictionary earn a flat
	// bonus each, rewarding papers whose dominant vocabulary is on-domain.
	for _, keyword := range ExtractKeywords(text, DefaultTopKeywords) {
		if s.dict.contains(keyword) {
			total += s.dict.ExtractBonus
		}
	}

	score := math.Min(10.0, total/maxPossible*10)
	return math.Round(score*10) / 10
}
