package domain

import "time"

// Assessment is the per-run relevance evaluation of one paper. The oracle's
// RelevanceScore gates delivery; KeywordScore is the deterministic secondary
// signal and is kept alongside, never substituted for the oracle score.
type Assessment struct {
	PaperID           string
	RelevanceScore    float64 // 0-10, from the summary oracle
	KeywordScore      float64 // 0-10, deterministic, computed offline
	PredictedCategory string
	Keywords          []string // extracted, ordered by descending frequency
	OneLineSummary    string
	KeyPoints         string
	DetailedSummary   string
	CreatedAt         time.Time
}

// DeliveryRecord marks one paper as sent on one calendar date. Unique on
// (PaperID, SentDate); repeated inserts are no-ops.
type DeliveryRecord struct {
	PaperID  string
	SentDate string // YYYY-MM-DD
}

// RunStats aggregates one pipeline run for historical reporting.
type RunStats struct {
	RunDate           string // YYYY-MM-DD
	PapersFetched     int
	PapersAssessed    int
	PapersDelivered   int
	OracleFailures    int
	AvgRelevance      float64
	CategoryHistogram map[string]int
}
