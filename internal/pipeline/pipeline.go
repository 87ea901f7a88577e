package pipeline

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/Daltonicc/SwiftPaperBot/internal/arxiv"
	"github.com/Daltonicc/SwiftPaperBot/internal/config"
	"github.com/Daltonicc/SwiftPaperBot/internal/digest"
	"github.com/Daltonicc/SwiftPaperBot/internal/domain"
	"github.com/Daltonicc/SwiftPaperBot/internal/relevance"
	"github.com/Daltonicc/SwiftPaperBot/internal/store"
	"github.com/Daltonicc/SwiftPaperBot/internal/summarizer"
)

// Feed retrieves candidate papers from the upstream listing.
type Feed interface {
	Search(ctx context.Context, q arxiv.Query, maxResults int) []domain.Paper
}

// Oracle scores and summarizes one paper.
type Oracle interface {
	Summarize(ctx context.Context, p domain.Paper) (summarizer.Summary, error)
}

// Dispatcher delivers the digest and the degraded-mode notifications.
type Dispatcher interface {
	SendDigest(ranked []digest.Candidate, stats domain.RunStats) error
	SendNoPapers() error
	SendErrorNotification(cause string) error
}

// Pipeline runs one ingestion-to-delivery cycle. All ledger access happens on
// the calling goroutine; only oracle calls fan out.
type Pipeline struct {
	cfg        config.Config
	db         *sql.DB
	feed       Feed
	scorer     *relevance.Scorer
	oracle     Oracle
	dispatcher Dispatcher
	now        func() time.Time
}

func New(cfg config.Config, db *sql.DB, feed Feed, scorer *relevance.Scorer, oracle Oracle, dispatcher Dispatcher) *Pipeline {
	return &Pipeline{
		cfg:        cfg,
		db:         db,
		feed:       feed,
		scorer:     scorer,
		oracle:     oracle,
		dispatcher: dispatcher,
		now:        time.Now,
	}
}

// Run executes the daily cycle: search, assess, rank, dispatch, record.
// Failures local to one paper never abort the batch; setup failures abort
// before any work and surface through the error notification.
func (p *Pipeline) Run(ctx context.Context) error {
	log.Printf("pipeline run start terms=%d days=%d", len(p.cfg.ArxivSearchTerms), p.cfg.ArxivSearchDays)
	now := p.now()
	today := now.Format("2006-01-02")

	q, err := arxiv.BuildQuery(p.cfg.ArxivSearchTerms, p.cfg.ArxivSearchDays, p.cfg.CategoryRestricted(), now)
	if err != nil {
		p.notifyError(fmt.Sprintf("cannot build feed query: %v", err))
		return fmt.Errorf("build query: %w", err)
	}

	papers := p.feed.Search(ctx, q, p.cfg.ArxivMaxResults)
	stats := domain.RunStats{
		RunDate:           today,
		PapersFetched:     len(papers),
		CategoryHistogram: make(map[string]int),
	}

	if len(papers) == 0 {
		log.Printf("pipeline no papers fetched")
		if err := p.dispatcher.SendNoPapers(); err != nil {
			log.Printf("pipeline no-papers notification error: %v", err)
		}
		p.saveStats(stats)
		return nil
	}

	// Dedup filter and paper persistence happen before the fan-out so that
	// every ledger read/write stays on this goroutine.
	var pending []domain.Paper
	for _, paper := range papers {
		delivered, err := store.WasDelivered(p.db, paper.ID, today)
		if err != nil {
			// Fail open: an unreadable ledger never blocks a run, at the
			// cost of a possible duplicate send.
			log.Printf("ledger read error paper=%s: %v", paper.ID, err)
			delivered = false
		}
		if delivered {
			log.Printf("pipeline skip already-delivered paper=%s", paper.ID)
			continue
		}
		if err := store.SavePaper(p.db, paper); err != nil {
			log.Printf("paper save error paper=%s: %v", paper.ID, err)
		}
		pending = append(pending, paper)
	}

	assessments := p.assess(ctx, pending, &stats)

	var candidates []digest.Candidate
	var relevanceSum float64
	for i, paper := range pending {
		a := assessments[i]
		if a == nil {
			continue
		}
		if err := store.SaveAssessment(p.db, *a); err != nil {
			log.Printf("assessment save error paper=%s: %v", paper.ID, err)
		}
		stats.PapersAssessed++
		stats.CategoryHistogram[a.PredictedCategory]++
		relevanceSum += a.RelevanceScore

		if a.RelevanceScore >= p.cfg.MinRelevanceScore {
			candidates = append(candidates, digest.Candidate{Paper: paper, Assessment: *a})
		} else {
			log.Printf("pipeline below threshold paper=%s score=%.1f min=%.1f", paper.ID, a.RelevanceScore, p.cfg.MinRelevanceScore)
		}
	}
	if stats.PapersAssessed > 0 {
		stats.AvgRelevance = relevanceSum / float64(stats.PapersAssessed)
	}

	ranked := digest.Select(candidates, p.cfg.MaxDailyPapers)
	stats.PapersDelivered = len(ranked)

	if len(ranked) == 0 {
		log.Printf("pipeline zero candidates fetched=%d assessed=%d", stats.PapersFetched, stats.PapersAssessed)
		if err := p.dispatcher.SendNoPapers(); err != nil {
			log.Printf("pipeline no-papers notification error: %v", err)
		}
		p.saveStats(stats)
		p.maybeCleanup(now)
		return nil
	}

	if err := p.dispatcher.SendDigest(ranked, stats); err != nil {
		// Nothing is recorded for a failed dispatch; the next run retries
		// the same papers.
		log.Printf("pipeline dispatch error: %v", err)
		p.notifyError(fmt.Sprintf("digest dispatch failed: %v", err))
		return fmt.Errorf("dispatch digest: %w", err)
	}

	for _, c := range ranked {
		if err := store.MarkDelivered(p.db, c.Paper.ID, today); err != nil {
			log.Printf("ledger write error paper=%s: %v", c.Paper.ID, err)
		}
	}
	p.saveStats(stats)
	p.maybeCleanup(now)

	log.Printf("pipeline run done fetched=%d assessed=%d delivered=%d oracle_failures=%d",
		stats.PapersFetched, stats.PapersAssessed, stats.PapersDelivered, stats.OracleFailures)
	return nil
}

// assess fans oracle calls out over a bounded worker pool. Results land in a
// slice indexed by paper position, so ranking stays a deterministic post-pass
// regardless of completion order. A nil entry means the oracle failed and the
// paper is excluded from this run.
func (p *Pipeline) assess(ctx context.Context, papers []domain.Paper, stats *domain.RunStats) []*domain.Assessment {
	results := make([]*domain.Assessment, len(papers))
	if len(papers) == 0 {
		return results
	}

	sem := make(chan struct{}, p.cfg.OracleWorkers)
	var wg sync.WaitGroup

	for i, paper := range papers {
		wg.Add(1)
		go func(idx int, paper domain.Paper) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			keywordScore := p.scorer.Score(paper.Title, paper.Abstract)
			extracted := relevance.ExtractKeywords(paper.Title+" "+paper.Abstract, relevance.DefaultTopKeywords)
			category := relevance.PredictCategory(paper.Title, paper.Abstract, extracted)

			summary, err := p.oracle.Summarize(ctx, paper)
			if err != nil {
				// Keyword score alone cannot admit a paper; without the
				// oracle the paper sits this run out.
				log.Printf("oracle error paper=%s: %v", paper.ID, err)
				return
			}

			results[idx] = &domain.Assessment{
				PaperID:           paper.ID,
				RelevanceScore:    summary.RelevanceScore,
				KeywordScore:      keywordScore,
				PredictedCategory: category,
				Keywords:          extracted,
				OneLineSummary:    summary.OneLineSummary,
				KeyPoints:         summary.KeyPoints,
				DetailedSummary:   summary.DetailedSummary,
			}
		}(i, paper)
	}
	wg.Wait()

	for _, r := range results {
		if r == nil {
			stats.OracleFailures++
		}
	}
	return results
}

func (p *Pipeline) saveStats(stats domain.RunStats) {
	if err := store.SaveRunStats(p.db, stats); err != nil {
		log.Printf("run stats save error: %v", err)
	}
}

// maybeCleanup purges aged rows once a week, on Mondays.
func (p *Pipeline) maybeCleanup(now time.Time) {
	if now.Weekday() != time.Monday {
		return
	}
	cutoff := now.AddDate(0, 0, -p.cfg.RetentionDays)
	log.Printf("pipeline weekly cleanup cutoff=%s", cutoff.Format("2006-01-02"))
	if err := store.PurgeOlderThan(p.db, cutoff); err != nil {
		log.Printf("cleanup error: %v", err)
	}
}

func (p *Pipeline) notifyError(cause string) {
	if err := p.dispatcher.SendErrorNotification(cause); err != nil {
		log.Printf("error notification failed: %v", err)
	}
}
