package relevance

import (
	"sort"
	"strings"
	"unicode"
)

// DefaultTopKeywords caps the extracted keyword list.
const DefaultTopKeywords = 10

const minKeywordLength = 3

var stopWords = map[string]bool{
	"the": true, "and": true, "for": true, "are": true, "but": true,
	"not": true, "with": true, "this": true, "that": true, "from": true,
	"can": true, "our": true, "their": true, "has": true, "have": true,
	"was": true, "were": true, "been": true, "which": true, "these": true,
	"such": true, "also": true, "into": true, "its": true, "when": true,
	"than": true, "them": true, "may": true, "more": true, "most": true,
	"using": true, "used": true, "use": true, "based": true, "paper": true,
	"propose": true, "proposed": true, "present": true, "approach": true,
	"results": true, "show": true, "both": true, "between": true,
	"however": true, "while": true, "each": true, "other": true,
}

// ExtractKeywords tokenizes text, drops stop words and short tokens, and
// returns up to topN tokens ordered by descending frequency. Ties keep first
// appearance order, so repeated calls return the same list.
func ExtractKeywords(text string, topN int) []string {
	if topN <= 0 {
		topN = DefaultTopKeywords
	}
	text = strings.ToLower(text)

	tokens := strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '-'
	})

	counts := make(map[string]int)
	firstSeen := make(map[string]int)
	order := 0
	for _, token := range tokens {
		token = strings.Trim(token, "-")
		if len(token) < minKeywordLength || stopWords[token] {
			continue
		}
		if _, seen := counts[token]; !seen {
			firstSeen[token] = order
			order++
		}
		counts[token]++
	}

	keywords := make([]string, 0, len(counts))
	for token := range counts {
		keywords = append(keywords, token)
	}
	sort.Slice(keywords, func(i, j int) bool {
		if counts[keywords[i]] != counts[keywords[j]] {
			return counts[keywords[i]] > counts[keywords[j]]
		}
		return firstSeen[keywords[i]] < firstSeen[keywords[j]]
	})

	if len(keywords) > topN {
		keywords = keywords[:topN]
	}
	return keywords
}
