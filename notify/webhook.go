package notify

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

// Event is the payload sent to webhook endpoints.
type Event struct {
	Type      string `json:"type"` // "scrape.failed", "search.failed"
	Title     string `json:"title"`
	Body      string `json:"body"`
	Timestamp int64  `json:"timestamp"`
}

// WebhookNotifier POSTs failure notifications to a configured endpoint,
// signed with HMAC-SHA256 when a secret is set.
// Header: X-Pricewatch-Signature: sha256=<hex>
type WebhookNotifier struct {
	url    string
	secret string
}

// NewWebhookNotifier creates a WebhookNotifier for the endpoint URL.
func NewWebhookNotifier(url, secret string) *WebhookNotifier {
	return &WebhookNotifier{url: url, secret: secret}
}

// Error delivers the notification asynchronously with up to 3 retries.
// Retry intervals: 1s, 5s, 30s.
func (n *WebhookNotifier) Error(title, body string) {
	event := &Event{
		Type:      "scrape.failed",
		Title:     title,
		Body:      body,
		Timestamp: time.Now().Unix(),
	}
	go func() {
		delays := []time.Duration{0, 1 * time.Second, 5 * time.Second, 30 * time.Second}
		for attempt, delay := range delays {
			if delay > 0 {
				time.Sleep(delay)
			}
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			err := n.deliver(ctx, event)
			cancel()
			if err == nil {
				slog.Debug("notification delivered",
					"url", n.url, "title", title, "attempt", attempt+1)
				return
			}
			slog.Warn("notification delivery failed",
				"url", n.url, "title", title, "attempt", attempt+1, "error", err)
		}
	}()
}

func (n *WebhookNotifier) deliver(ctx context.Context, event *Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("notify: marshal event: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("notify: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "Pricewatch-Webhook/1.0")

	if n.secret != "" {
		mac := hmac.New(sha256.New, []byte(n.secret))
		mac.Write(payload)
		sig := hex.EncodeToString(mac.Sum(nil))
		req.Header.Set("X-Pricewatch-Signature", "sha256="+sig)
	}

	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("notify: deliver: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("notify: endpoint returned status %d", resp.StatusCode)
	}
	return nil
}
