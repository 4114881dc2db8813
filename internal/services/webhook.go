package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/bloomforlungs/bloom/internal/pledge"
	"go.uber.org/zap"
)

type DiscordWebhookField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline"`
}

type DiscordEmbed struct {
	Title       string                `json:"title"`
	Description string                `json:"description"`
	Color       int                   `json:"color"`
	Fields      []DiscordWebhookField `json:"fields"`
	Footer      *DiscordFooter        `json:"footer,omitempty"`
	Timestamp   string                `json:"timestamp"`
}

type DiscordFooter struct {
	Text string `json:"text"`
}

type DiscordWebhookRequest struct {
	Username string         `json:"username"`
	Embeds   []DiscordEmbed `json:"embeds"`
}

type SlackField struct {
	Title string `json:"title"`
	Value string `json:"value"`
	Short bool   `json:"short"`
}

type SlackAttachment struct {
	Color     string       `json:"color"`
	Title     string       `json:"title"`
	Text      string       `json:"text"`
	Fields    []SlackField `json:"fields"`
	Footer    string       `json:"footer"`
	Timestamp int64        `json:"ts"`
}

type SlackWebhookRequest struct {
	Username    string            `json:"username"`
	IconEmoji   string            `json:"icon_emoji,omitempty"`
	Text        string            `json:"text"`
	Attachments []SlackAttachment `json:"attachments"`
}

const (
	ColorGreen = 3066993 // #2ECC71

	Username    = "Bloom for Lungs"
	sendTimeout = 10 * time.Second
)

// Notifier posts a message to the configured Discord and Slack webhooks for
// every newly created pledge. The email address is never included.
type Notifier struct {
	discordURL string
	slackURL   string
	client     *http.Client
	logger     *zap.Logger
	wg         sync.WaitGroup
}

func NewNotifier(discordURL, slackURL string, logger *zap.Logger) *Notifier {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Notifier{
		discordURL: discordURL,
		slackURL:   slackURL,
		client:     &http.Client{Timeout: sendTimeout},
		logger:     logger,
	}
}

func (n *Notifier) Enabled() bool {
	return n.discordURL != "" || n.slackURL != ""
}

func (n *Notifier) SendPledgeCreated(ctx context.Context, receipt pledge.Receipt) error {
	if n.discordURL != "" {
		if err := n.sendDiscordPledgeCreated(ctx, receipt); err != nil {
			return fmt.Errorf("discord: %w", err)
		}
	}

	if n.slackURL != "" {
		if err := n.sendSlackPledgeCreated(ctx, receipt); err != nil {
			return fmt.Errorf("slack: %w", err)
		}
	}

	return nil
}

// Hook returns a submitter success hook that sends in the background. Reused
// pledges are skipped and failures are only logged.
func (n *Notifier) Hook(ctx context.Context) func(pledge.Receipt) {
	return func(receipt pledge.Receipt) {
		if !n.Enabled() || receipt.Outcome != pledge.OutcomeCreated {
			return
		}

		n.wg.Add(1)
		go func() {
			defer n.wg.Done()

			if err := n.SendPledgeCreated(ctx, receipt); err != nil {
				n.logger.Warn("pledge notification failed",
					zap.String("pledge_id", receipt.PledgeID),
					zap.Error(err))
			}
		}()
	}
}

// Wait blocks until background sends started by Hook have finished.
func (n *Notifier) Wait() {
	n.wg.Wait()
}

func referredBy(receipt pledge.Receipt) string {
	if receipt.ReferredBy == "" {
		return "-"
	}
	return receipt.ReferredBy
}

func (n *Notifier) sendDiscordPledgeCreated(ctx context.Context, receipt pledge.Receipt) error {
	payload := DiscordWebhookRequest{
		Username: Username,
		Embeds: []DiscordEmbed{
			{
				Title:       "🌱 **NEW PLEDGE**",
				Description: fmt.Sprintf("**%s** pledged to stay tobacco free.", receipt.FullName),
				Color:       ColorGreen,
				Fields: []DiscordWebhookField{
					{Name: "Referral Code", Value: receipt.ReferralCode, Inline: true},
					{Name: "Referred By", Value: referredBy(receipt), Inline: true},
				},
				Footer: &DiscordFooter{
					Text: "Bloom for Lungs",
				},
				Timestamp: time.Now().Format(time.RFC3339),
			},
		},
	}

	return n.post(ctx, n.discordURL, payload)
}

func (n *Notifier) sendSlackPledgeCreated(ctx context.Context, receipt pledge.Receipt) error {
	payload := SlackWebhookRequest{
		Username:  Username,
		IconEmoji: ":seedling:",
		Text:      ":seedling: *NEW PLEDGE*",
		Attachments: []SlackAttachment{
			{
				Color: "good",
				Title: fmt.Sprintf("%s pledged to stay tobacco free", receipt.FullName),
				Fields: []SlackField{
					{Title: "Referral Code", Value: receipt.ReferralCode, Short: true},
					{Title: "Referred By", Value: referredBy(receipt), Short: true},
				},
				Footer:    "Bloom for Lungs",
				Timestamp: time.Now().Unix(),
			},
		},
	}

	return n.post(ctx, n.slackURL, payload)
}

func (n *Notifier) post(ctx context.Context, webhookURL string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}

	return nil
}
