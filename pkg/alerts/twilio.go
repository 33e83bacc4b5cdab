package alerts

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// DefaultTwilioBaseURL is the Twilio REST API root.
const DefaultTwilioBaseURL = "https://api.twilio.com"

// TwilioConfig holds Twilio credentials and the sending number.
type TwilioConfig struct {
	AccountSID string
	AuthToken  string
	From       string
	BaseURL    string
	Timeout    time.Duration
}

// TwilioTransport sends SMS through the Twilio Messages API.
type TwilioTransport struct {
	cfg    TwilioConfig
	client *http.Client
}

// NewTwilioTransport creates a Twilio SMS transport.
func NewTwilioTransport(cfg TwilioConfig) *TwilioTransport {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultTwilioBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &TwilioTransport{
		cfg: cfg,
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
}

func (t *TwilioTransport) Name() string { return "twilio" }

func (t *TwilioTransport) Validate() error {
	var missing []string
	if t.cfg.AccountSID == "" {
		missing = append(missing, "account sid")
	}
	if t.cfg.AuthToken == "" {
		missing = append(missing, "auth token")
	}
	if t.cfg.From == "" {
		missing = append(missing, "from number")
	}
	if len(missing) > 0 {
		return fmt.Errorf("twilio: missing %s: %w", strings.Join(missing, ", "), ErrTransportNotConfigured)
	}
	return nil
}

func (t *TwilioTransport) Send(ctx context.Context, to, body string) (string, error) {
	endpoint := fmt.Sprintf("%s/2010-04-01/Accounts/%s/Messages.json",
		strings.TrimRight(t.cfg.BaseURL, "/"), url.PathEscape(t.cfg.AccountSID))

	form := url.Values{}
	form.Set("From", t.cfg.From)
	form.Set("To", to)
	form.Set("Body", body)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("create twilio request: %w", err)
	}
	req.SetBasicAuth(t.cfg.AccountSID, t.cfg.AuthToken)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := t.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("send twilio message: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("read twilio response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var apiErr twilioError
		if json.Unmarshal(data, &apiErr) != nil || apiErr.Message == "" {
			apiErr.Message = fmt.Sprintf("twilio error (%d)", resp.StatusCode)
		}
		return "", &ProviderError{Status: resp.StatusCode, Code: apiErr.Code, Message: apiErr.Message}
	}

	var msg twilioMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return "", fmt.Errorf("decode twilio response: %w", err)
	}
	if msg.SID == "" {
		return "", fmt.Errorf("decode twilio response: missing sid")
	}
	return msg.SID, nil
}

type twilioMessage struct {
	SID    string `json:"sid"`
	Status string `json:"status"`
}

type twilioError struct {
	Code     int    `json:"code"`
	Message  string `json:"message"`
	MoreInfo string `json:"more_info"`
	Status   int    `json:"status"`
}
