package app

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/Daltonicc/SwiftPaperBot/internal/arxiv"
	"github.com/Daltonicc/SwiftPaperBot/internal/config"
	"github.com/Daltonicc/SwiftPaperBot/internal/httpx"
	"github.com/Daltonicc/SwiftPaperBot/internal/pipeline"
	"github.com/Daltonicc/SwiftPaperBot/internal/relevance"
	"github.com/Daltonicc/SwiftPaperBot/internal/schedule"
	"github.com/Daltonicc/SwiftPaperBot/internal/slackbot"
	"github.com/Daltonicc/SwiftPaperBot/internal/store"
	"github.com/Daltonicc/SwiftPaperBot/internal/summarizer"
)

func Main() {
	cfg := config.LoadConfig()
	appliedTimeout := httpx.ConfigureTimeout(cfg.ExternalHTTPTimeout())
	log.Printf(
		"Config loaded. Terms=%d Days=%d MaxResults=%d MinRelevance=%.1f MaxDaily=%d Provider=%s Timeout=%s",
		len(cfg.ArxivSearchTerms), cfg.ArxivSearchDays, cfg.ArxivMaxResults,
		cfg.MinRelevanceScore, cfg.MaxDailyPapers, cfg.LLMProvider, appliedTimeout,
	)

	db, err := store.InitDB(cfg.DBPath)
	if err != nil {
		log.Fatalf("Failed to init database: %v", err)
	}
	defer db.Close()

	dict := relevance.DefaultDictionary()
	if cfg.KeywordDictPath != "" {
		loaded, err := relevance.LoadDictionary(cfg.KeywordDictPath)
		if err != nil {
			log.Fatalf("invalid keyword_dict_path '%s': %v", cfg.KeywordDictPath, err)
		}
		dict = loaded
		log.Printf("Keyword dictionary loaded from %s groups=%d", cfg.KeywordDictPath, len(dict.Groups))
	}

	api := slackbot.NewAPI(cfg.SlackBotToken)
	dispatcher := slackbot.NewDispatcher(api, cfg.SlackChannel)

	pipe := pipeline.New(
		cfg,
		db,
		arxiv.NewClient(httpx.External),
		relevance.NewScorer(dict),
		&summarizer.Oracle{
			Provider:        cfg.LLMProvider,
			Model:           cfg.LLMModel,
			AnthropicAPIKey: cfg.AnthropicAPIKey,
			OpenAIAPIKey:    cfg.OpenAIAPIKey,
		},
		dispatcher,
	)

	command := "schedule"
	if len(os.Args) > 1 {
		command = os.Args[1]
	}

	switch command {
	case "once":
		log.Println("Running one digest cycle...")
		if err := pipe.Run(context.Background()); err != nil {
			log.Fatalf("Pipeline error: %v", err)
		}

	case "stats":
		stats, err := store.GetStatistics(db, time.Now().In(cfg.Location))
		if err != nil {
			log.Fatalf("Failed to load statistics: %v", err)
		}
		fmt.Printf("Papers stored:      %d\n", stats.TotalPapers)
		fmt.Printf("Assessments stored: %d\n", stats.TotalAssessments)
		fmt.Printf("Sent this month:    %d\n", stats.SentThisMonth)

	case "schedule":
		clock := cfg.ScheduleTime
		if len(os.Args) > 2 {
			clock = os.Args[2]
		}
		// Verify Slack connectivity before entering the loop; a bad token
		// should fail at startup, not at 08:00 tomorrow.
		if err := dispatcher.TestConnection(); err != nil {
			log.Fatalf("Slack connection failed: %v", err)
		}
		log.Printf("Starting SwiftPaperBot, daily digest at %s", clock)
		if err := schedule.RunDaily(clock, cfg.Location, func() {
			if err := pipe.Run(context.Background()); err != nil {
				log.Printf("Scheduled run error: %v", err)
			}
		}); err != nil {
			log.Fatalf("Scheduler error: %v", err)
		}

	default:
		fmt.Println("Usage:")
		fmt.Println("  swiftpaperbot once              # run one digest cycle")
		fmt.Println("  swiftpaperbot stats             # print stored totals")
		fmt.Println("  swiftpaperbot schedule [HH:MM]  # run daily at HH:MM (default from config)")
		os.Exit(2)
	}
}
