package domain

import (
	"strings"
	"time"
)

// Paper is one arXiv work. ID is the version-stripped arXiv identifier, so
// revisions of the same work collapse to a single record.
type Paper struct {
	ID         string
	Title      string
	Abstract   string
	Authors    []string
	Published  time.Time
	Updated    time.Time
	URL        string
	PDFURL     string
	Categories []string
}

// StripVersion removes the trailing vN revision suffix from an arXiv ID
// ("2401.01234v2" -> "2401.01234").
func StripVersion(id string) string {
	if i := strings.LastIndex(id, "v"); i > 0 {
		suffix := id[i+1:]
		if suffix != "" && isDigits(suffix) {
			return id[:i]
		}
	}
	return id
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// AuthorLine joins up to max author names, appending "et al." when truncated.
func (p Paper) AuthorLine(max int) string {
	if len(p.Authors) == 0 {
		return ""
	}
	if max <= 0 || len(p.Authors) <= max {
		return strings.Join(p.Authors, ", ")
	}
	return strings.Join(p.Authors[:max], ", ") + " et al."
}
