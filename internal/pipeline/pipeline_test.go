package pipeline

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/Daltonicc/SwiftPaperBot/internal/arxiv"
	"github.com/Daltonicc/SwiftPaperBot/internal/config"
	"github.com/Daltonicc/SwiftPaperBot/internal/digest"
	"github.com/Daltonicc/SwiftPaperBot/internal/domain"
	"github.com/Daltonicc/SwiftPaperBot/internal/relevance"
	"github.com/Daltonicc/SwiftPaperBot/internal/store"
	"github.com/Daltonicc/SwiftPaperBot/internal/summarizer"
)

// 2026-09-01 is a Tuesday, so runs never trigger the Monday cleanup unless a
// test wants them to.
var testNow = time.Date(2026, 9, 1, 8, 0, 0, 0, time.UTC)

type fakeFeed struct {
	papers []domain.Paper
}

func (f *fakeFeed) Search(ctx context.Context, q arxiv.Query, maxResults int) []domain.Paper {
	return f.papers
}

type fakeOracle struct {
	scores  map[string]float64
	failIDs map[string]bool
}

func (o *fakeOracle) Summarize(ctx context.Context, p domain.Paper) (summarizer.Summary, error) {
	if o.failIDs[p.ID] {
		return summarizer.Summary{}, errors.New("llm unavailable")
	}
	return summarizer.Summary{
		OneLineSummary: "Summary of " + p.ID,
		KeyPoints:      "- point",
		RelevanceScore: o.scores[p.ID],
	}, nil
}

type fakeDispatcher struct {
	digests    [][]digest.Candidate
	noPapers   int
	errorCalls []string
	digestErr  error
}

func (d *fakeDispatcher) SendDigest(ranked []digest.Candidate, stats domain.RunStats) error {
	if d.digestErr != nil {
		return d.digestErr
	}
	d.digests = append(d.digests, ranked)
	return nil
}

func (d *fakeDispatcher) SendNoPapers() error {
	d.noPapers++
	return nil
}

func (d *fakeDispatcher) SendErrorNotification(cause string) error {
	d.errorCalls = append(d.errorCalls, cause)
	return nil
}

func testConfig() config.Config {
	return config.Config{
		ArxivSearchTerms:  []string{"swift"},
		ArxivSearchDays:   7,
		ArxivMaxResults:   50,
		MinRelevanceScore: 5.0,
		MaxDailyPapers:    5,
		OracleWorkers:     2,
		RetentionDays:     30,
	}
}

func testPaper(id string, published time.Time) domain.Paper {
	return domain.Paper{
		ID:        id,
		Title:     "Swift paper " + id,
		Abstract:  "About swift and ios development.",
		Published: published,
	}
}

func newTestPipeline(t *testing.T, cfg config.Config, feed Feed, oracle Oracle, dispatcher Dispatcher) (*Pipeline, *sql.DB) {
	t.Helper()
	db, err := store.InitDB(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("init db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	p := New(cfg, db, feed, relevance.NewScorer(relevance.DefaultDictionary()), oracle, dispatcher)
	p.now = func() time.Time { return testNow }
	return p, db
}

func deliveryCount(t *testing.T, db *sql.DB) int {
	t.Helper()
	var count int
	if err := db.QueryRow(`SELECT COUNT(*) FROM deliveries`).Scan(&count); err != nil {
		t.Fatal(err)
	}
	return count
}

func TestRunDeliversAboveThreshold(t *testing.T) {
	feed := &fakeFeed{papers: []domain.Paper{
		testPaper("p1", testNow.Add(-24*time.Hour)),
		testPaper("p2", testNow.Add(-48*time.Hour)),
		testPaper("p3", testNow.Add(-72*time.Hour)),
	}}
	oracle := &fakeOracle{scores: map[string]float64{"p1": 6.0, "p2": 8.5, "p3": 3.0}}
	dispatcher := &fakeDispatcher{}
	p, db := newTestPipeline(t, testConfig(), feed, oracle, dispatcher)

	if err := p.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}

	if len(dispatcher.digests) != 1 {
		t.Fatalf("expected one digest, got %d", len(dispatcher.digests))
	}
	ranked := dispatcher.digests[0]
	if len(ranked) != 2 {
		t.Fatalf("expected 2 papers above threshold, got %d", len(ranked))
	}
	if ranked[0].Paper.ID != "p2" || ranked[1].Paper.ID != "p1" {
		t.Fatalf("expected score-descending order, got %s then %s", ranked[0].Paper.ID, ranked[1].Paper.ID)
	}
	if dispatcher.noPapers != 0 {
		t.Fatalf("unexpected no-papers notification")
	}

	if got := deliveryCount(t, db); got != 2 {
		t.Fatalf("expected 2 delivery records, got %d", got)
	}
	for _, id := range []string{"p1", "p2"} {
		delivered, err := store.WasDelivered(db, id, testNow.Format("2006-01-02"))
		if err != nil || !delivered {
			t.Fatalf("expected %s recorded as delivered (err=%v)", id, err)
		}
	}
	if delivered, _ := store.WasDelivered(db, "p3", testNow.Format("2006-01-02")); delivered {
		t.Fatal("below-threshold paper must not be recorded")
	}

	var assessed, deliveredCount, failures int
	err := db.QueryRow(
		`SELECT papers_assessed, papers_delivered, oracle_failures FROM run_stats WHERE run_date = ?`,
		testNow.Format("2006-01-02"),
	).Scan(&assessed, &deliveredCount, &failures)
	if err != nil {
		t.Fatalf("run stats row: %v", err)
	}
	if assessed != 3 || deliveredCount != 2 || failures != 0 {
		t.Fatalf("unexpected run stats: assessed=%d delivered=%d failures=%d", assessed, deliveredCount, failures)
	}
}

func TestRunSkipsAlreadyDelivered(t *testing.T) {
	feed := &fakeFeed{papers: []domain.Paper{
		testPaper("p1", testNow.Add(-24*time.Hour)),
		testPaper("p2", testNow.Add(-48*time.Hour)),
	}}
	oracle := &fakeOracle{scores: map[string]float64{"p1": 9.0, "p2": 9.0}}
	dispatcher := &fakeDispatcher{}
	p, db := newTestPipeline(t, testConfig(), feed, oracle, dispatcher)

	if err := store.MarkDelivered(db, "p1", testNow.Format("2006-01-02")); err != nil {
		t.Fatal(err)
	}

	if err := p.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}

	if len(dispatcher.digests) != 1 || len(dispatcher.digests[0]) != 1 {
		t.Fatalf("expected a single-paper digest, got %+v", dispatcher.digests)
	}
	if dispatcher.digests[0][0].Paper.ID != "p2" {
		t.Fatalf("expected only p2, got %s", dispatcher.digests[0][0].Paper.ID)
	}
	// p1's existing row plus p2's new one.
	if got := deliveryCount(t, db); got != 2 {
		t.Fatalf("expected 2 delivery rows, got %d", got)
	}
}

func TestRunOracleFailureExcludesOnlyThatPaper(t *testing.T) {
	feed := &fakeFeed{papers: []domain.Paper{
		testPaper("p1", testNow.Add(-24*time.Hour)),
		testPaper("p2", testNow.Add(-48*time.Hour)),
		testPaper("p3", testNow.Add(-72*time.Hour)),
	}}
	oracle := &fakeOracle{
		scores:  map[string]float64{"p1": 7.0, "p3": 6.0},
		failIDs: map[string]bool{"p2": true},
	}
	dispatcher := &fakeDispatcher{}
	p, db := newTestPipeline(t, testConfig(), feed, oracle, dispatcher)

	if err := p.Run(context.Background()); err != nil {
		t.Fatalf("expected nil error despite oracle failure, got %v", err)
	}

	if len(dispatcher.digests) != 1 || len(dispatcher.digests[0]) != 2 {
		t.Fatalf("expected the 2 surviving papers, got %+v", dispatcher.digests)
	}
	if delivered, _ := store.WasDelivered(db, "p2", testNow.Format("2006-01-02")); delivered {
		t.Fatal("oracle-failed paper must not be delivered")
	}

	var failures int
	err := db.QueryRow(
		`SELECT oracle_failures FROM run_stats WHERE run_date = ?`,
		testNow.Format("2006-01-02"),
	).Scan(&failures)
	if err != nil {
		t.Fatal(err)
	}
	if failures != 1 {
		t.Fatalf("expected 1 oracle failure recorded, got %d", failures)
	}
}

func TestRunEmptyFeedNotifies(t *testing.T) {
	dispatcher := &fakeDispatcher{}
	p, db := newTestPipeline(t, testConfig(), &fakeFeed{}, &fakeOracle{}, dispatcher)

	if err := p.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if dispatcher.noPapers != 1 {
		t.Fatalf("expected one no-papers notification, got %d", dispatcher.noPapers)
	}
	if len(dispatcher.digests) != 0 {
		t.Fatal("no digest should be posted for an empty feed")
	}
	if got := deliveryCount(t, db); got != 0 {
		t.Fatalf("expected no delivery records, got %d", got)
	}
}

func TestRunAllBelowThresholdNotifies(t *testing.T) {
	feed := &fakeFeed{papers: []domain.Paper{testPaper("p1", testNow.Add(-24 * time.Hour))}}
	oracle := &fakeOracle{scores: map[string]float64{"p1": 2.0}}
	dispatcher := &fakeDispatcher{}
	p, db := newTestPipeline(t, testConfig(), feed, oracle, dispatcher)

	if err := p.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if dispatcher.noPapers != 1 {
		t.Fatalf("expected no-papers notification, got %d", dispatcher.noPapers)
	}
	if got := deliveryCount(t, db); got != 0 {
		t.Fatalf("expected no delivery records, got %d", got)
	}
}

func TestRunDispatchFailureRecordsNothing(t *testing.T) {
	feed := &fakeFeed{papers: []domain.Paper{testPaper("p1", testNow.Add(-24 * time.Hour))}}
	oracle := &fakeOracle{scores: map[string]float64{"p1": 9.0}}
	dispatcher := &fakeDispatcher{digestErr: errors.New("channel_not_found")}
	p, db := newTestPipeline(t, testConfig(), feed, oracle, dispatcher)

	if err := p.Run(context.Background()); err == nil {
		t.Fatal("expected dispatch failure to surface")
	}
	if got := deliveryCount(t, db); got != 0 {
		t.Fatalf("failed dispatch must record nothing, got %d rows", got)
	}
	if len(dispatcher.errorCalls) != 1 {
		t.Fatalf("expected one error notification, got %d", len(dispatcher.errorCalls))
	}
}

func TestRunTruncatesToMaxDaily(t *testing.T) {
	feed := &fakeFeed{papers: []domain.Paper{
		testPaper("p1", testNow.Add(-24*time.Hour)),
		testPaper("p2", testNow.Add(-48*time.Hour)),
	}}
	oracle := &fakeOracle{scores: map[string]float64{"p1": 7.0, "p2": 9.0}}
	dispatcher := &fakeDispatcher{}
	cfg := testConfig()
	cfg.MaxDailyPapers = 1
	p, db := newTestPipeline(t, cfg, feed, oracle, dispatcher)

	if err := p.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(dispatcher.digests) != 1 || len(dispatcher.digests[0]) != 1 {
		t.Fatalf("expected a single-paper digest, got %+v", dispatcher.digests)
	}
	if dispatcher.digests[0][0].Paper.ID != "p2" {
		t.Fatalf("expected the top-scored paper, got %s", dispatcher.digests[0][0].Paper.ID)
	}
	if got := deliveryCount(t, db); got != 1 {
		t.Fatalf("only dispatched papers get records, got %d rows", got)
	}
}

func TestRunNoSearchTermsNotifiesError(t *testing.T) {
	dispatcher := &fakeDispatcher{}
	cfg := testConfig()
	cfg.ArxivSearchTerms = nil
	p, _ := newTestPipeline(t, cfg, &fakeFeed{}, &fakeOracle{}, dispatcher)

	err := p.Run(context.Background())
	if !errors.Is(err, arxiv.ErrNoSearchTerms) {
		t.Fatalf("expected ErrNoSearchTerms, got %v", err)
	}
	if len(dispatcher.errorCalls) != 1 {
		t.Fatalf("expected one error notification, got %d", len(dispatcher.errorCalls))
	}
}
