package slackbot

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/slack-go/slack"

	"github.com/Daltonicc/SwiftPaperBot/internal/digest"
	"github.com/Daltonicc/SwiftPaperBot/internal/domain"
	"github.com/Daltonicc/SwiftPaperBot/internal/httpx"
)

// NewAPI builds the Slack client on the shared outbound HTTP client, so every
// post is bounded by the configured timeout.
func NewAPI(token string, opts ...slack.Option) *slack.Client {
	opts = append([]slack.Option{slack.OptionHTTPClient(httpx.External)}, opts...)
	return slack.New(token, opts...)
}

// api is the slice of the Slack client the dispatcher uses; *slack.Client
// satisfies it.
type api interface {
	PostMessage(channelID string, options ...slack.MsgOption) (string, string, error)
	AuthTest() (*slack.AuthTestResponse, error)
}

// Dispatcher renders and posts the daily digest to one Slack channel.
type Dispatcher struct {
	client  api
	channel string
	now     func() time.Time
}

func NewDispatcher(client api, channel string) *Dispatcher {
	return &Dispatcher{client: client, channel: channel, now: time.Now}
}

// TestConnection verifies the bot token before any scheduled operation.
func (d *Dispatcher) TestConnection() error {
	resp, err := d.client.AuthTest()
	if err != nil {
		return fmt.Errorf("slack auth test: %w", err)
	}
	log.Printf("slack connected user=%s team=%s", resp.User, resp.Team)
	return nil
}

// SendDigest posts the ranked papers: a header, one message per paper, and a
// footer. Any failed post fails the whole digest so the pipeline records no
// deliveries for the run.
func (d *Dispatcher) SendDigest(ranked []digest.Candidate, stats domain.RunStats) error {
	if len(ranked) == 0 {
		return d.SendNoPapers()
	}

	log.Printf("slack digest send papers=%d channel=%s", len(ranked), d.channel)

	if err := d.post(d.headerMessage(len(ranked), stats)); err != nil {
		return err
	}
	for i, c := range ranked {
		if err := d.post(d.paperMessage(i+1, c.Paper, c.Assessment)); err != nil {
			return err
		}
	}
	if err := d.post(footerMessage); err != nil {
		return err
	}

	log.Printf("slack digest sent papers=%d", len(ranked))
	return nil
}

// SendNoPapers posts the distinct zero-candidate message; silence is never an
// acceptable outcome of a completed run.
func (d *Dispatcher) SendNoPapers() error {
	msg := fmt.Sprintf(
		":apple: *Swift & iOS Paper Daily Digest* :books:\n:calendar: %s\n\nNo new Swift/iOS papers cleared the bar today. :mailbox_with_no_mail:\n\nSee you tomorrow!",
		d.now().Format("2006-01-02"),
	)
	return d.post(msg)
}

// SendErrorNotification posts the degraded-mode message to the same channel
// that would have received the digest.
func (d *Dispatcher) SendErrorNotification(cause string) error {
	msg := fmt.Sprintf(
		":rotating_light: *SwiftPaperBot error*\n:calendar: %s\n:x: %s\n\nPlease check the bot logs.",
		d.now().Format("2006-01-02 15:04:05"), cause,
	)
	return d.post(msg)
}

func (d *Dispatcher) post(text string) error {
	_, _, err := d.client.PostMessage(d.channel, slack.MsgOptionText(text, false))
	if err != nil {
		return fmt.Errorf("slack post: %w", err)
	}
	return nil
}

func (d *Dispatcher) headerMessage(count int, stats domain.RunStats) string {
	var b strings.Builder
	fmt.Fprintf(&b, ":apple: *Swift & iOS Paper Daily Digest* :books:\n")
	fmt.Fprintf(&b, ":calendar: %s\n\n", d.now().Format("2006-01-02"))
	fmt.Fprintf(&b, "Today's pick: *%d paper(s)* fresh from arXiv.\n", count)
	if stats.PapersFetched > 0 {
		fmt.Fprintf(&b, "_(screened %d, assessed %d, avg relevance %.1f)_\n", stats.PapersFetched, stats.PapersAssessed, stats.AvgRelevance)
	}
	return b.String()
}

func (d *Dispatcher) paperMessage(rank int, p domain.Paper, a domain.Assessment) string {
	emoji := ":star:"
	if a.RelevanceScore >= 8 {
		emoji = ":fire:"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s *%d. %s*\n\n", emoji, rank, p.Title)
	if authors := p.AuthorLine(2); authors != "" {
		fmt.Fprintf(&b, ":technologist: *Authors*: %s\n", authors)
	}
	fmt.Fprintf(&b, ":bar_chart: *Relevance*: %.1f/10 (keywords %.1f/10)\n", a.RelevanceScore, a.KeywordScore)
	if a.PredictedCategory != "" {
		fmt.Fprintf(&b, ":label: *Category*: %s\n", a.PredictedCategory)
	}
	if a.OneLineSummary != "" {
		fmt.Fprintf(&b, "\n:bulb: *TL;DR*: %s\n", a.OneLineSummary)
	}
	if a.KeyPoints != "" {
		fmt.Fprintf(&b, "\n:mag: *Key points*:\n%s\n", a.KeyPoints)
	}
	if a.DetailedSummary != "" {
		fmt.Fprintf(&b, "\n:memo: *Summary*:\n%s\n", a.DetailedSummary)
	}
	fmt.Fprintf(&b, "\n:link: <%s|Read the paper>\n", p.PDFURL)
	fmt.Fprintf(&b, ":calendar: *Published*: %s\n", p.Published.Format("2006-01-02"))
	return b.String()
}

const footerMessage = ":robot_face: Summaries are AI-generated; follow the paper link for details.\n\n*Happy coding!* :rocket:"
