package alerts

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// WebhookTransport posts alerts to a generic HTTP webhook. The destination is
// carried in the payload so a relay can fan out to its own channels.
type WebhookTransport struct {
	url    string
	secret string
	client *http.Client
}

// NewWebhookTransport creates a generic webhook transport.
// If secret is non-empty, requests are signed with HMAC-SHA256.
func NewWebhookTransport(url, secret string) *WebhookTransport {
	return &WebhookTransport{
		url:    url,
		secret: secret,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

func (w *WebhookTransport) Name() string { return "webhook" }

func (w *WebhookTransport) Validate() error {
	if w.url == "" {
		return fmt.Errorf("webhook: missing url: %w", ErrTransportNotConfigured)
	}
	return nil
}

func (w *WebhookTransport) Send(ctx context.Context, to, body string) (string, error) {
	payload := webhookPayload{
		Event:       "low_stock_alert",
		Timestamp:   time.Now().UTC().Format(time.RFC3339),
		Destination: to,
		Message:     body,
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("create webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "Restock-Guardian/1.0")

	if w.secret != "" {
		sig := computeHMAC(data, []byte(w.secret))
		req.Header.Set("X-Signature-256", "sha256="+sig)
	}

	resp, err := w.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("send webhook alert: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", &ProviderError{Status: resp.StatusCode, Message: "webhook rejected alert"}
	}

	if id := resp.Header.Get("X-Delivery-ID"); id != "" {
		return id, nil
	}
	return uuid.New().String(), nil
}

type webhookPayload struct {
	Event       string `json:"event"`
	Timestamp   string `json:"timestamp"`
	Destination string `json:"destination"`
	Message     string `json:"message"`
}

func computeHMAC(message, key []byte) string {
	mac := hmac.New(sha256.New, key)
	mac.Write(message)
	return hex.EncodeToString(mac.Sum(nil))
}
