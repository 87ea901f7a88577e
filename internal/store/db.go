package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/Daltonicc/SwiftPaperBot/internal/domain"
)

func InitDB(path string) (*sql.DB, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, err
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	schema := `
	CREATE TABLE IF NOT EXISTS papers (
		id           TEXT PRIMARY KEY,
		title        TEXT NOT NULL,
		authors      TEXT NOT NULL DEFAULT '',
		abstract     TEXT NOT NULL DEFAULT '',
		published_at DATETIME NOT NULL,
		updated_at   DATETIME,
		url          TEXT DEFAULT '',
		pdf_url      TEXT DEFAULT '',
		categories   TEXT DEFAULT '',
		created_at   DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS assessments (
		id                 INTEGER PRIMARY KEY AUTOINCREMENT,
		paper_id           TEXT NOT NULL,
		relevance_score    REAL NOT NULL,
		keyword_score      REAL NOT NULL,
		predicted_category TEXT DEFAULT '',
		keywords           TEXT DEFAULT '',
		one_line_summary   TEXT DEFAULT '',
		key_points         TEXT DEFAULT '',
		detailed_summary   TEXT DEFAULT '',
		created_at         DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_assessments_paper ON assessments(paper_id);
	CREATE INDEX IF NOT EXISTS idx_assessments_created ON assessments(created_at);

	CREATE TABLE IF NOT EXISTS deliveries (
		id         INTEGER PRIMARY KEY AUTOINCREMENT,
		paper_id   TEXT NOT NULL,
		sent_date  DATE NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		UNIQUE(paper_id, sent_date)
	);
	CREATE INDEX IF NOT EXISTS idx_deliveries_date ON deliveries(sent_date);

	CREATE TABLE IF NOT EXISTS run_stats (
		run_date           DATE PRIMARY KEY,
		papers_fetched     INTEGER NOT NULL DEFAULT 0,
		papers_assessed    INTEGER NOT NULL DEFAULT 0,
		papers_delivered   INTEGER NOT NULL DEFAULT 0,
		oracle_failures    INTEGER NOT NULL DEFAULT 0,
		avg_relevance      REAL NOT NULL DEFAULT 0,
		category_histogram TEXT DEFAULT '',
		created_at         DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	`
	if _, err := db.Exec(schema); err != nil {
		return nil, err
	}

	return db, nil
}

// SavePaper upserts one paper; a re-seen ID overwrites the stored record
// (last-seen wins across revisions of the same work).
func SavePaper(db *sql.DB, p domain.Paper) error {
	_, err := db.Exec(
		`INSERT OR REPLACE INTO papers (id, title, authors, abstract, published_at, updated_at, url, pdf_url, categories)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.Title, strings.Join(p.Authors, ";"), p.Abstract,
		p.Published, p.Updated, p.URL, p.PDFURL, strings.Join(p.Categories, ";"),
	)
	return err
}

func GetPaperByID(db *sql.DB, id string) (domain.Paper, error) {
	var p domain.Paper
	var authors, categories string
	err := db.QueryRow(
		`SELECT id, title, authors, abstract, published_at, updated_at, url, pdf_url, categories
		 FROM papers WHERE id = ?`,
		id,
	).Scan(&p.ID, &p.Title, &authors, &p.Abstract, &p.Published, &p.Updated, &p.URL, &p.PDFURL, &categories)
	if err != nil {
		return domain.Paper{}, err
	}
	p.Authors = splitList(authors)
	p.Categories = splitList(categories)
	return p, nil
}

func SaveAssessment(db *sql.DB, a domain.Assessment) error {
	_, err := db.Exec(
		`INSERT INTO assessments
		 (paper_id, relevance_score, keyword_score, predicted_category, keywords, one_line_summary, key_points, detailed_summary)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		a.PaperID, a.RelevanceScore, a.KeywordScore, a.PredictedCategory,
		strings.Join(a.Keywords, ";"), a.OneLineSummary, a.KeyPoints, a.DetailedSummary,
	)
	return err
}

// GetLatestAssessment returns the most recent assessment for a paper.
func GetLatestAssessment(db *sql.DB, paperID string) (domain.Assessment, error) {
	var a domain.Assessment
	var keywords string
	err := db.QueryRow(
		`SELECT paper_id, relevance_score, keyword_score, predicted_category, keywords,
		        one_line_summary, key_points, detailed_summary, created_at
		 FROM assessments
		 WHERE paper_id = ?
		 ORDER BY created_at DESC, id DESC LIMIT 1`,
		paperID,
	).Scan(&a.PaperID, &a.RelevanceScore, &a.KeywordScore, &a.PredictedCategory, &keywords,
		&a.OneLineSummary, &a.KeyPoints, &a.DetailedSummary, &a.CreatedAt)
	if err != nil {
		return domain.Assessment{}, err
	}
	a.Keywords = splitList(keywords)
	return a, nil
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, ";")
}

// --- Dedup ledger ---

// WasDelivered reports whether the paper was already recorded as sent on the
// given date (YYYY-MM-DD).
func WasDelivered(db *sql.DB, paperID, sentDate string) (bool, error) {
	var count int
	err := db.QueryRow(
		`SELECT COUNT(*) FROM deliveries WHERE paper_id = ? AND sent_date = ?`,
		paperID, sentDate,
	).Scan(&count)
	return count > 0, err
}

// MarkDelivered records one delivery. The UNIQUE(paper_id, sent_date)
// constraint makes repeated inserts no-ops.
func MarkDelivered(db *sql.DB, paperID, sentDate string) error {
	_, err := db.Exec(
		`INSERT OR IGNORE INTO deliveries (paper_id, sent_date) VALUES (?, ?)`,
		paperID, sentDate,
	)
	return err
}

// PurgeOlderThan deletes deliveries, assessments, and papers created before
// the cutoff. A paper still referenced by a retained assessment survives
// regardless of its own age.
func PurgeOlderThan(db *sql.DB, cutoff time.Time) error {
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM deliveries WHERE created_at < ?`, cutoff); err != nil {
		return err
	}
	if _, err := tx.Exec(`DELETE FROM assessments WHERE created_at < ?`, cutoff); err != nil {
		return err
	}
	if _, err := tx.Exec(
		`DELETE FROM papers
		 WHERE created_at < ?
		   AND id NOT IN (SELECT DISTINCT paper_id FROM assessments)`,
		cutoff,
	); err != nil {
		return err
	}

	return tx.Commit()
}

// --- Run statistics ---

func SaveRunStats(db *sql.DB, s domain.RunStats) error {
	histogram := encodeHistogram(s.CategoryHistogram)
	_, err := db.Exec(
		`INSERT OR REPLACE INTO run_stats
		 (run_date, papers_fetched, papers_assessed, papers_delivered, oracle_failures, avg_relevance, category_histogram)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		s.RunDate, s.PapersFetched, s.PapersAssessed, s.PapersDelivered,
		s.OracleFailures, s.AvgRelevance, histogram,
	)
	return err
}

type Statistics struct {
	TotalPapers      int
	TotalAssessments int
	SentThisMonth    int
}

// GetStatistics returns aggregate totals for the stats CLI mode.
func GetStatistics(db *sql.DB, now time.Time) (Statistics, error) {
	var s Statistics
	if err := db.QueryRow(`SELECT COUNT(*) FROM papers`).Scan(&s.TotalPapers); err != nil {
		return s, err
	}
	if err := db.QueryRow(`SELECT COUNT(*) FROM assessments`).Scan(&s.TotalAssessments); err != nil {
		return s, err
	}
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location()).Format("2006-01-02")
	err := db.QueryRow(
		`SELECT COUNT(*) FROM deliveries WHERE sent_date >= ?`,
		monthStart,
	).Scan(&s.SentThisMonth)
	return s, err
}

func encodeHistogram(hist map[string]int) string {
	if len(hist) == 0 {
		return ""
	}
	keys := make([]string, 0, len(hist))
	for k := range hist {
		keys = append(keys, k)
	}
	// Stable key order so the stored text is deterministic.
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%d", k, hist[k]))
	}
	return strings.Join(parts, ",")
}
