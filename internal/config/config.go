package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	SlackBotToken string `yaml:"slack_bot_token"`
	SlackChannel  string `yaml:"slack_channel"`

	LLMProvider     string `yaml:"llm_provider"`
	LLMModel        string `yaml:"llm_model"`
	AnthropicAPIKey string `yaml:"anthropic_api_key"`
	OpenAIAPIKey    string `yaml:"openai_api_key"`

	ArxivMaxResults  int      `yaml:"arxiv_max_results"`
	ArxivSearchDays  int      `yaml:"arxiv_search_days"`
	ArxivSearchTerms []string `yaml:"arxiv_search_terms"`
	RestrictToCS     *bool    `yaml:"restrict_to_cs"`

	MinRelevanceScore float64 `yaml:"min_relevance_score"`
	MaxDailyPapers    int     `yaml:"max_daily_papers"`
	OracleWorkers     int     `yaml:"oracle_workers"`

	DBPath        string `yaml:"db_path"`
	RetentionDays int    `yaml:"retention_days"`

	KeywordDictPath string `yaml:"keyword_dict_path"`

	ScheduleTime string `yaml:"schedule_time"`
	Timezone     string `yaml:"timezone"`

	ExternalHTTPTimeoutSeconds int `yaml:"external_http_timeout_seconds"`

	Location *time.Location `yaml:"-"`
}

// DefaultSearchTerms mirrors the search keywords the bot ships with.
var DefaultSearchTerms = []string{
	"Swift", "iOS", "iPhone", "iPad", "SwiftUI", "Objective-C", "UIKit",
	"Core Data", "WatchOS", "tvOS", "macOS", "visionOS", "Vision Pro",
	"Xcode", "App Store", "Apple",
}

const defaultExternalHTTPTimeoutSeconds = 30

func LoadConfig() Config {
	var cfg Config

	// Load from config.yaml if it exists
	configPath := "config.yaml"
	if envPath := os.Getenv("CONFIG_PATH"); envPath != "" {
		configPath = envPath
	}
	if data, err := os.ReadFile(configPath); err == nil {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			log.Fatalf("Error parsing %s: %v", configPath, err)
		}
		log.Printf("Loaded config from %s", configPath)
	}

	// Env vars override YAML values
	envOverride(&cfg.SlackBotToken, "SLACK_BOT_TOKEN")
	envOverride(&cfg.SlackChannel, "SLACK_CHANNEL")
	envOverride(&cfg.LLMProvider, "LLM_PROVIDER")
	envOverride(&cfg.LLMModel, "LLM_MODEL")
	envOverride(&cfg.AnthropicAPIKey, "ANTHROPIC_API_KEY")
	envOverride(&cfg.OpenAIAPIKey, "OPENAI_API_KEY")
	envOverrideInt(&cfg.ArxivMaxResults, "ARXIV_MAX_RESULTS")
	envOverrideInt(&cfg.ArxivSearchDays, "ARXIV_SEARCH_DAYS")
	envOverrideFloat(&cfg.MinRelevanceScore, "MIN_RELEVANCE_SCORE")
	envOverrideInt(&cfg.MaxDailyPapers, "MAX_DAILY_PAPERS")
	envOverrideInt(&cfg.OracleWorkers, "ORACLE_WORKERS")
	envOverride(&cfg.DBPath, "DATABASE_PATH")
	envOverrideInt(&cfg.RetentionDays, "RETENTION_DAYS")
	envOverride(&cfg.KeywordDictPath, "KEYWORD_DICT_PATH")
	envOverride(&cfg.ScheduleTime, "SCHEDULE_TIME")
	envOverride(&cfg.Timezone, "TIMEZONE")
	envOverrideInt(&cfg.ExternalHTTPTimeoutSeconds, "EXTERNAL_HTTP_TIMEOUT_SECONDS")

	if terms := os.Getenv("ARXIV_SEARCH_TERMS"); terms != "" {
		cfg.ArxivSearchTerms = nil
		for _, term := range strings.Split(terms, ",") {
			term = strings.TrimSpace(term)
			if term != "" {
				cfg.ArxivSearchTerms = append(cfg.ArxivSearchTerms, term)
			}
		}
	}

	// Defaults
	if cfg.SlackChannel == "" {
		cfg.SlackChannel = "#general"
	}
	if cfg.LLMProvider == "" {
		cfg.LLMProvider = "anthropic"
	}
	if cfg.ArxivMaxResults == 0 {
		cfg.ArxivMaxResults = 50
	}
	if cfg.ArxivSearchDays == 0 {
		cfg.ArxivSearchDays = 7
	}
	if len(cfg.ArxivSearchTerms) == 0 {
		cfg.ArxivSearchTerms = append([]string(nil), DefaultSearchTerms...)
	}
	if cfg.MinRelevanceScore == 0 {
		cfg.MinRelevanceScore = 5.0
	}
	if cfg.MaxDailyPapers == 0 {
		cfg.MaxDailyPapers = 3
	}
	if cfg.OracleWorkers == 0 {
		cfg.OracleWorkers = 4
	}
	if cfg.DBPath == "" {
		cfg.DBPath = "./data/papers.db"
	}
	if cfg.RetentionDays == 0 {
		cfg.RetentionDays = 30
	}
	if cfg.ScheduleTime == "" {
		cfg.ScheduleTime = "08:00"
	}
	if cfg.Timezone == "" {
		cfg.Timezone = "Local"
	}
	if cfg.ExternalHTTPTimeoutSeconds == 0 {
		cfg.ExternalHTTPTimeoutSeconds = defaultExternalHTTPTimeoutSeconds
	}

	// Validate required fields
	if cfg.SlackBotToken == "" {
		log.Fatalf("Required config 'slack_bot_token' is not set (via config.yaml or env var)")
	}
	switch cfg.LLMProvider {
	case "anthropic":
		if cfg.AnthropicAPIKey == "" {
			log.Fatalf("anthropic_api_key is required when llm_provider=anthropic")
		}
	case "openai":
		if cfg.OpenAIAPIKey == "" {
			log.Fatalf("openai_api_key is required when llm_provider=openai")
		}
	default:
		log.Fatalf("llm_provider must be 'anthropic' or 'openai', got '%s'", cfg.LLMProvider)
	}

	if strings.EqualFold(cfg.Timezone, "Local") {
		cfg.Location = time.Local
	} else {
		loc, err := time.LoadLocation(cfg.Timezone)
		if err != nil {
			log.Fatalf("invalid timezone '%s': %v", cfg.Timezone, err)
		}
		cfg.Location = loc
	}

	if _, _, err := ParseClock(cfg.ScheduleTime); err != nil {
		log.Fatalf("invalid schedule_time '%s': %v", cfg.ScheduleTime, err)
	}
	if cfg.MinRelevanceScore < 0 || cfg.MinRelevanceScore > 10 {
		log.Fatalf("invalid min_relevance_score '%f': must be between 0 and 10", cfg.MinRelevanceScore)
	}
	if cfg.MaxDailyPapers < 1 {
		log.Fatalf("invalid max_daily_papers '%d': must be >= 1", cfg.MaxDailyPapers)
	}
	if cfg.ArxivSearchDays < 1 {
		log.Fatalf("invalid arxiv_search_days '%d': must be >= 1", cfg.ArxivSearchDays)
	}
	if cfg.OracleWorkers < 1 {
		log.Fatalf("invalid oracle_workers '%d': must be >= 1", cfg.OracleWorkers)
	}

	return cfg
}

// CategoryRestricted reports whether feed queries should carry the cs.*
// category filter. Defaults to true when unset.
func (c Config) CategoryRestricted() bool {
	if c.RestrictToCS == nil {
		return true
	}
	return *c.RestrictToCS
}

func (c Config) ExternalHTTPTimeout() time.Duration {
	return time.Duration(c.ExternalHTTPTimeoutSeconds) * time.Second
}

func envOverride(field *string, envKey string) {
	if val := os.Getenv(envKey); val != "" {
		*field = val
	}
}

func envOverrideInt(field *int, envKey string) {
	if val := os.Getenv(envKey); val != "" {
		parsed, err := strconv.Atoi(val)
		if err != nil {
			log.Fatalf("invalid %s '%s': %v", envKey, val, err)
		}
		*field = parsed
	}
}

func envOverrideFloat(field *float64, envKey string) {
	if val := os.Getenv(envKey); val != "" {
		parsed, err := strconv.ParseFloat(val, 64)
		if err != nil {
			log.Fatalf("invalid %s '%s': %v", envKey, val, err)
		}
		*field = parsed
	}
}

// ParseClock parses "HH:MM" and validates the range. Anything but two numeric
// fields separated by a colon is rejected.
func ParseClock(s string) (int, int, error) {
	hh, mm, ok := strings.Cut(s, ":")
	if !ok {
		return 0, 0, fmt.Errorf("expected HH:MM, got %q", s)
	}
	hour, err := strconv.Atoi(hh)
	if err != nil {
		return 0, 0, fmt.Errorf("expected HH:MM, got %q", s)
	}
	min, err := strconv.Atoi(mm)
	if err != nil {
		return 0, 0, fmt.Errorf("expected HH:MM, got %q", s)
	}
	if hour < 0 || hour > 23 || min < 0 || min > 59 {
		return 0, 0, fmt.Errorf("time out of range: %02d:%02d", hour, min)
	}
	return hour, min, nil
}
