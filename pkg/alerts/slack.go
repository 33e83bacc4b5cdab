package alerts

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// SlackTransport posts alerts to a Slack incoming webhook. Each recipient is
// a channel name.
type SlackTransport struct {
	webhookURL string
	client     *http.Client
}

// NewSlackTransport creates a Slack webhook transport.
func NewSlackTransport(webhookURL string) *SlackTransport {
	return &SlackTransport{
		webhookURL: webhookURL,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

func (s *SlackTransport) Name() string { return "slack" }

func (s *SlackTransport) Validate() error {
	if s.webhookURL == "" {
		return fmt.Errorf("slack: missing webhook url: %w", ErrTransportNotConfigured)
	}
	return nil
}

func (s *SlackTransport) Send(ctx context.Context, to, body string) (string, error) {
	payload := slackPayload{
		Channel: to,
		Attachments: []slackAttachment{
			{
				Color:  "#ff9900", // orange
				Title:  "Low stock alert",
				Text:   body,
				Footer: "Restock Guardian",
				Ts:     time.Now().Unix(),
			},
		},
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal slack payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.webhookURL, bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("create slack request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("send slack alert: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", &ProviderError{Status: resp.StatusCode, Message: "slack rejected alert"}
	}
	return uuid.New().String(), nil
}

type slackPayload struct {
	Channel     string            `json:"channel,omitempty"`
	Attachments []slackAttachment `json:"attachments"`
}

type slackAttachment struct {
	Color  string `json:"color"`
	Title  string `json:"title"`
	Text   string `json:"text"`
	Footer string `json:"footer"`
	Ts     int64  `json:"ts"`
}
