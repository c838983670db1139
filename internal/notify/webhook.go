package notify

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

// Webhook POSTs notifications as JSON to a configured URL.
// Outgoing sends are capped by a rate limiter so a misbehaving evaluation
// loop cannot flood the channel.
type Webhook struct {
	client  *http.Client
	limiter *rate.Limiter
	url     string
}

// webhookPayload is the wire format understood by generic webhook receivers.
type webhookPayload struct {
	Subject string `json:"subject"`
	Text    string `json:"text"`
}

// NewWebhook returns a webhook notifier limited to count sends per window.
func NewWebhook(url string, timeout time.Duration, count int, window time.Duration) *Webhook {
	limit := rate.Limit(float64(count) / window.Seconds())

	return &Webhook{
		url:     url,
		client:  &http.Client{Timeout: timeout},
		limiter: rate.NewLimiter(limit, count),
	}
}

// Send implements Notifier.
func (w *Webhook) Send(subject, body string) error {
	if !w.limiter.Allow() {
		return fmt.Errorf("webhook send rate exceeded, dropped %q", subject)
	}

	payload, err := json.Marshal(webhookPayload{Subject: subject, Text: body})
	if err != nil {
		return fmt.Errorf("encode webhook payload: %w", err)
	}

	resp, err := w.client.Post(w.url, "application/json", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("post webhook: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("post webhook: unexpected status %s", resp.Status)
	}

	return nil
}
