package summarizer

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strconv"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/Daltonicc/SwiftPaperBot/internal/domain"
	"github.com/Daltonicc/SwiftPaperBot/internal/httpx"
)

const defaultAnthropicModel = "claude-sonnet-4-5-20250929"
const defaultOpenAIModel = "gpt-4o-mini"

// Summary is the oracle's structured verdict on one paper.
type Summary struct {
	OneLineSummary  string
	KeyPoints       string
	DetailedSummary string
	RelevanceScore  float64
}

// Oracle produces summaries and relevance scores via an LLM provider. A
// failed or unparsable call excludes the paper from the run; the caller never
// substitutes the keyword score for a missing oracle verdict.
type Oracle struct {
	Provider        string
	Model           string
	AnthropicAPIKey string
	OpenAIAPIKey    string

	baseURL string // endpoint override for tests
}

// Summarize evaluates one paper. The call is bounded by the ctx deadline.
func (o *Oracle) Summarize(ctx context.Context, paper domain.Paper) (Summary, error) {
	systemPrompt, userPrompt := buildPrompts(paper)

	var responseText string
	var err error

	switch o.Provider {
	case "openai":
		model := o.Model
		if model == "" {
			model = defaultOpenAIModel
		}
		log.Printf("llm summarize provider=openai model=%s paper=%s", model, paper.ID)
		responseText, err = callOpenAI(ctx, o.OpenAIAPIKey, model, systemPrompt, userPrompt)
	default:
		model := o.Model
		if model == "" {
			model = defaultAnthropicModel
		}
		log.Printf("llm summarize provider=anthropic model=%s paper=%s", model, paper.ID)
		responseText, err = callAnthropic(ctx, o.AnthropicAPIKey, model, systemPrompt, userPrompt, o.baseURL)
	}
	if err != nil {
		return Summary{}, err
	}

	return ParseSummaryResponse(responseText)
}

func buildPrompts(paper domain.Paper) (string, string) {
	systemPrompt := `You are a Swift and iOS development expert.
Analyze research papers and extract what matters to Swift/iOS developers.
Respond with JSON only (no markdown):
{"one_line_summary": "core finding in one sentence", "key_points": "3-5 bullet points relevant to Swift/iOS development", "detailed_summary": "detailed summary and its impact on Swift/iOS development", "relevance_score": 0-10 number only}
If the paper has no direct bearing on Swift/iOS development, give a low relevance_score.`

	userPrompt := fmt.Sprintf(
		"Analyze this paper for Swift/iOS developers:\n\nTitle: %s\nAuthors: %s\nAbstract: %s\nCategories: %s\n",
		paper.Title,
		paper.AuthorLine(3),
		paper.Abstract,
		strings.Join(paper.Categories, ", "),
	)
	return systemPrompt, userPrompt
}

type summaryResponse struct {
	OneLineSummary  string          `json:"one_line_summary"`
	KeyPoints       json.RawMessage `json:"key_points"`
	DetailedSummary string          `json:"detailed_summary"`
	RelevanceScore  json.RawMessage `json:"relevance_score"`
}

// ParseSummaryResponse decodes the oracle's JSON verdict, tolerating markdown
// fences around the payload and a numeric-string relevance_score.
func ParseSummaryResponse(responseText string) (Summary, error) {
	responseText = strings.TrimSpace(responseText)
	responseText = strings.TrimPrefix(responseText, "```json")
	responseText = strings.TrimPrefix(responseText, "```")
	responseText = strings.TrimSuffix(responseText, "```")
	responseText = strings.TrimSpace(responseText)

	var parsed summaryResponse
	if err := json.Unmarshal([]byte(responseText), &parsed); err != nil {
		truncated := responseText
		if len(truncated) > 512 {
			truncated = truncated[:512] + fmt.Sprintf("... [truncated, total_length=%d]", len(responseText))
		}
		return Summary{}, fmt.Errorf("parsing summary response: %w (truncated response: %s)", err, truncated)
	}

	score, err := coerceFloat(parsed.RelevanceScore)
	if err != nil {
		return Summary{}, fmt.Errorf("parsing relevance_score: %w", err)
	}

	return Summary{
		OneLineSummary:  strings.TrimSpace(parsed.OneLineSummary),
		KeyPoints:       parseKeyPoints(parsed.KeyPoints),
		DetailedSummary: strings.TrimSpace(parsed.DetailedSummary),
		RelevanceScore:  score,
	}, nil
}

// coerceFloat accepts a JSON number or a numeric string ("8.5").
func coerceFloat(raw json.RawMessage) (float64, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return 0, fmt.Errorf("relevance_score missing")
	}

	var asFloat float64
	if err := json.Unmarshal(raw, &asFloat); err == nil {
		return asFloat, nil
	}

	var asString string
	if err := json.Unmarshal(raw, &asString); err == nil {
		parsed, err := strconv.ParseFloat(strings.TrimSpace(asString), 64)
		if err != nil {
			return 0, fmt.Errorf("relevance_score %q is not numeric", asString)
		}
		return parsed, nil
	}

	return 0, fmt.Errorf("relevance_score has unexpected shape: %s", string(raw))
}

// parseKeyPoints accepts a string or an array of bullet strings.
func parseKeyPoints(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}

	var asString string
	if err := json.Unmarshal(raw, &asString); err == nil {
		return strings.TrimSpace(asString)
	}

	var asSlice []string
	if err := json.Unmarshal(raw, &asSlice); err == nil {
		var out []string
		for _, s := range asSlice {
			s = strings.TrimSpace(s)
			if s != "" {
				out = append(out, "- "+strings.TrimPrefix(s, "- "))
			}
		}
		return strings.Join(out, "\n")
	}

	return ""
}

// --- Anthropic ---

func callAnthropic(ctx context.Context, apiKey, model, systemPrompt, userPrompt, baseURL string) (string, error) {
	// The shared HTTP client carries the configured timeout; the SDK's default
	// client has none.
	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithHTTPClient(httpx.External),
	}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	client := anthropic.NewClient(opts...)

	message, err := client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(model),
		MaxTokens: 1024,
		System: []anthropic.TextBlockParam{
			{Text: systemPrompt, CacheControl: anthropic.NewCacheControlEphemeralParam()},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(userPrompt)),
		},
	})
	if err != nil {
		log.Printf("llm anthropic error: %v", err)
		return "", fmt.Errorf("Anthropic API error: %w", err)
	}

	for _, block := range message.Content {
		if block.Type == "text" {
			log.Printf("llm anthropic response size=%d tokens_in=%d tokens_out=%d", len(block.Text), message.Usage.InputTokens, message.Usage.OutputTokens)
			return block.Text, nil
		}
	}
	return "", fmt.Errorf("no text content in Anthropic response")
}
