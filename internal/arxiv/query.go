package arxiv

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrNoSearchTerms is returned when every configured term is empty after
// trimming. The pipeline treats this as a configuration error and aborts
// before any work begins.
var ErrNoSearchTerms = errors.New("arxiv: no usable search terms")

// Query is the prepared search request: the arXiv search expression, the
// sort directive, and the client-side recency cutoff.
type Query struct {
	SearchQuery string
	SortBy      string
	SortOrder   string
	Cutoff      time.Time
}

// BuildQuery constructs the search predicate from the configured terms and
// lookback window. Each term must match in the title or abstract; when
// restrictCS is set the whole expression is limited to cs.* categories.
func BuildQuery(terms []string, lookbackDays int, restrictCS bool, now time.Time) (Query, error) {
	var clauses []string
	for _, term := range terms {
		term = strings.TrimSpace(term)
		if term == "" {
			continue
		}
		clauses = append(clauses, fmt.Sprintf("ti:%q OR abs:%q", term, term))
	}
	if len(clauses) == 0 {
		return Query{}, ErrNoSearchTerms
	}

	search := "(" + strings.Join(clauses, " OR ") + ")"
	if restrictCS {
		search += " AND cat:cs.*"
	}

	return Query{
		SearchQuery: search,
		SortBy:      "submittedDate",
		SortOrder:   "descending",
		Cutoff:      now.AddDate(0, 0, -lookbackDays),
	}, nil
}
