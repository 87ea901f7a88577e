package arxiv

import (
	"context"
	"encoding/xml"
	"io"
	"log"
	"net/http"
	"net/url"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/Daltonicc/SwiftPaperBot/internal/domain"
)

const defaultBaseURL = "http://export.arxiv.org/api/query"

var whitespaceExpr = regexp.MustCompile(`\s+`)

type atomFeed struct {
	Entries []atomEntry `xml:"entry"`
}

type atomEntry struct {
	ID         string         `xml:"id"`
	Title      string         `xml:"title"`
	Summary    string         `xml:"summary"`
	Published  string         `xml:"published"`
	Updated    string         `xml:"updated"`
	Authors    []atomAuthor   `xml:"author"`
	Categories []atomCategory `xml:"category"`
}

type atomAuthor struct {
	Name string `xml:"name"`
}

type atomCategory struct {
	Term string `xml:"term,attr"`
}

// Client fetches and normalizes papers from the arXiv Atom API.
type Client struct {
	httpClient *http.Client
	baseURL    string
	now        func() time.Time
}

func NewClient(httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{httpClient: httpClient, baseURL: defaultBaseURL, now: time.Now}
}

// Search runs one query against the feed endpoint. Transport and parse
// failures degrade to an empty result; the pipeline continues without papers
// rather than failing the run.
func (c *Client) Search(ctx context.Context, q Query, maxResults int) []domain.Paper {
	params := url.Values{}
	params.Set("search_query", q.SearchQuery)
	params.Set("start", "0")
	params.Set("max_results", strconv.Itoa(maxResults))
	params.Set("sortBy", q.SortBy)
	params.Set("sortOrder", q.SortOrder)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		log.Printf("arxiv request build error: %v", err)
		return nil
	}
	req.Header.Set("User-Agent", "SwiftPaperBot/1.0")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		log.Printf("arxiv request error: %v", err)
		return nil
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		log.Printf("arxiv read error: %v", err)
		return nil
	}
	if resp.StatusCode != http.StatusOK {
		log.Printf("arxiv returned %d: %s", resp.StatusCode, truncateForLog(string(body)))
		return nil
	}

	papers := c.parseFeed(body, q.Cutoff)
	log.Printf("arxiv search done papers=%d cutoff=%s", len(papers), q.Cutoff.Format("2006-01-02"))
	return papers
}

func (c *Client) parseFeed(body []byte, cutoff time.Time) []domain.Paper {
	var feed atomFeed
	if err := xml.Unmarshal(body, &feed); err != nil {
		log.Printf("arxiv xml parse error: %v", err)
		return nil
	}

	var papers []domain.Paper
	for _, entry := range feed.Entries {
		paper, ok := c.parseEntry(entry)
		if !ok {
			continue
		}
		if paper.Published.Before(cutoff) {
			continue
		}
		papers = append(papers, paper)
	}

	// Published desc, ID asc on ties, so the same feed always yields the
	// same ordering.
	sort.SliceStable(papers, func(i, j int) bool {
		if !papers[i].Published.Equal(papers[j].Published) {
			return papers[i].Published.After(papers[j].Published)
		}
		return papers[i].ID < papers[j].ID
	})
	return papers
}

func (c *Client) parseEntry(entry atomEntry) (domain.Paper, bool) {
	rawID := strings.TrimSpace(entry.ID)
	if rawID == "" {
		return domain.Paper{}, false
	}
	// Entry ID is a URL like http://arxiv.org/abs/2401.01234v2; keep the
	// last path segment and strip the version suffix.
	id := rawID
	if i := strings.LastIndex(id, "/"); i >= 0 {
		id = id[i+1:]
	}
	id = domain.StripVersion(id)
	if id == "" {
		return domain.Paper{}, false
	}

	title := collapseWhitespace(entry.Title)
	if title == "" {
		return domain.Paper{}, false
	}

	var authors []string
	for _, a := range entry.Authors {
		if name := strings.TrimSpace(a.Name); name != "" {
			authors = append(authors, name)
		}
	}

	published := c.parseDate(entry.Published)
	updated := published
	if entry.Updated != "" {
		updated = c.parseDate(entry.Updated)
	}

	var categories []string
	for _, cat := range entry.Categories {
		if cat.Term != "" {
			categories = append(categories, cat.Term)
		}
	}

	return domain.Paper{
		ID:         id,
		Title:      title,
		Abstract:   collapseWhitespace(entry.Summary),
		Authors:    authors,
		Published:  published,
		Updated:    updated,
		URL:        rawID,
		PDFURL:     strings.Replace(rawID, "/abs/", "/pdf/", 1) + ".pdf",
		Categories: categories,
	}, true
}

// parseDate falls back to the current time when the feed supplies an
// unparsable timestamp, matching the fail-open posture of the client.
func (c *Client) parseDate(s string) time.Time {
	t, err := time.Parse(time.RFC3339, strings.TrimSpace(s))
	if err != nil {
		return c.now()
	}
	return t
}

func collapseWhitespace(s string) string {
	return strings.TrimSpace(whitespaceExpr.ReplaceAllString(s, " "))
}

func truncateForLog(s string) string {
	if len(s) > 256 {
		return s[:256] + "..."
	}
	return s
}
