package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/amishk599/jobboard/internal/model"
	"github.com/amishk599/jobboard/internal/retry"
)

// Ensure SlackNotifier implements model.Notifier.
var _ model.Notifier = (*SlackNotifier)(nil)

// SlackNotifier mirrors notifications to a Slack channel via Incoming Webhooks.
type SlackNotifier struct {
	webhookURL string
	jobURL     string // format string with one %d for the job id; empty hides the button
	httpClient *http.Client
	retrier    *retry.Retrier
	messageGap time.Duration
	logger     *slog.Logger
}

// NewSlackNotifier returns a notifier that posts each notification to Slack.
// jobURL, when set, is a format string such as "https://jobs.example.com/jobs/%d".
func NewSlackNotifier(webhookURL, jobURL string, httpClient *http.Client, retrier *retry.Retrier, logger *slog.Logger) *SlackNotifier {
	return &SlackNotifier{
		webhookURL: webhookURL,
		jobURL:     jobURL,
		httpClient: httpClient,
		retrier:    retrier,
		messageGap: 500 * time.Millisecond,
		logger:     logger,
	}
}

// Notify sends each notification as a separate Slack message using Block Kit.
// Returns an error only if ALL messages fail. Individual failures are logged.
func (s *SlackNotifier) Notify(ctx context.Context, notifications []model.Notification) error {
	if len(notifications) == 0 {
		return nil
	}

	failures := 0
	for i, n := range notifications {
		if i > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(s.messageGap):
			}
		}

		err := s.retrier.Do(ctx, "slack webhook", func(ctx context.Context) error {
			return s.sendMessage(ctx, n)
		})
		if err != nil {
			s.logger.Error("slack notification failed", "user_id", n.UserID, "title", n.Title, "error", err)
			failures++
		}
	}

	sent := len(notifications) - failures
	if failures == len(notifications) {
		return fmt.Errorf("all %d slack notifications failed", failures)
	}
	s.logger.Info("slack notifications complete", "sent", sent, "failed", failures)
	return nil
}

func (s *SlackNotifier) sendMessage(ctx context.Context, n model.Notification) error {
	body, err := json.Marshal(s.buildPayload(n))
	if err != nil {
		return fmt.Errorf("marshal slack payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build slack request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("post to slack: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		httpErr := &model.HTTPError{StatusCode: resp.StatusCode}
		if resp.StatusCode == http.StatusTooManyRequests {
			secs, _ := strconv.Atoi(resp.Header.Get("Retry-After"))
			if secs <= 0 {
				secs = 1
			}
			httpErr.RetryAfter = time.Duration(secs) * time.Second
		}
		return fmt.Errorf("slack webhook: %w", httpErr)
	}
	s.logger.Debug("slack message sent", "user_id", n.UserID, "title", n.Title)
	return nil
}

// Block Kit payload types.

type slackPayload struct {
	Blocks []slackBlock `json:"blocks"`
}

type slackBlock struct {
	Type     string         `json:"type"`
	Text     *slackText     `json:"text,omitempty"`
	Fields   []slackText    `json:"fields,omitempty"`
	Elements []slackElement `json:"elements,omitempty"`
}

type slackText struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type slackElement struct {
	Type  string    `json:"type"`
	Text  slackText `json:"text"`
	URL   string    `json:"url"`
	Style string    `json:"style"`
}

// SendTestMessage sends a dummy notification to verify the integration works.
func SendTestMessage(ctx context.Context, n model.Notifier) error {
	test := model.Notification{
		Type:      model.NotificationJobAlert,
		Title:     "Test Notification: Integration Verified",
		Message:   "If you can read this, job alerts will reach this channel.",
		Payload:   model.NotificationPayload{JobID: 1},
		CreatedAt: time.Now().UTC(),
	}
	return n.Notify(ctx, []model.Notification{test})
}

func typeLabel(t string) string {
	switch t {
	case model.NotificationJobAlert:
		return "Job alert"
	case model.NotificationRelatedJob:
		return "Related job"
	}
	return strings.ReplaceAll(t, "_", " ")
}

func (s *SlackNotifier) buildPayload(n model.Notification) slackPayload {
	blocks := []slackBlock{
		{
			Type: "header",
			Text: &slackText{Type: "plain_text", Text: "🔔 " + n.Title},
		},
		{
			Type: "section",
			Text: &slackText{Type: "mrkdwn", Text: n.Message},
		},
		{
			Type: "section",
			Fields: []slackText{
				{Type: "mrkdwn", Text: "*Type:*\n" + typeLabel(n.Type)},
				{Type: "mrkdwn", Text: "*User:*\n" + strconv.FormatInt(n.UserID, 10)},
			},
		},
	}

	if s.jobURL != "" {
		blocks = append(blocks, slackBlock{
			Type: "actions",
			Elements: []slackElement{
				{
					Type:  "button",
					Text:  slackText{Type: "plain_text", Text: "View Job"},
					URL:   fmt.Sprintf(s.jobURL, n.Payload.JobID),
					Style: "primary",
				},
			},
		})
	}
	blocks = append(blocks, slackBlock{Type: "divider"})

	return slackPayload{Blocks: blocks}
}
