package alert

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// WebhookSink posts an event to one HTTP endpoint. The payload shape is
// chosen by substring match on the URL so known chat platforms render the
// message natively; anything unrecognized gets the generic JSON shape.
type WebhookSink struct {
	URL    string
	Client *http.Client
}

// NewWebhookSink creates a sink for one webhook URL
func NewWebhookSink(url string) *WebhookSink {
	return &WebhookSink{
		URL:    url,
		Client: &http.Client{Timeout: 10 * time.Second},
	}
}

// Name identifies the sink in logs and error messages
func (s *WebhookSink) Name() string {
	return "webhook " + s.URL
}

// Send delivers the event
func (s *WebhookSink) Send(ctx context.Context, event Event) error {
	payload, err := json.Marshal(s.payload(event))
	if err != nil {
		return fmt.Errorf("failed to encode payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.URL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.Client.Do(req)
	if err != nil {
		return fmt.Errorf("webhook request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("webhook returned HTTP %d", resp.StatusCode)
	}
	return nil
}

// payload shapes the event for the target platform
func (s *WebhookSink) payload(event Event) any {
	text := fmt.Sprintf("[%s] %s on %s\n%s", strings.ToUpper(string(event.Severity)), event.Title, event.Host, event.Body)

	switch {
	case strings.Contains(s.URL, "hooks.slack.com"), strings.Contains(s.URL, "mattermost"):
		return map[string]string{"text": text}
	case strings.Contains(s.URL, "discord"):
		return map[string]string{"content": text}
	default:
		return map[string]any{
			"title":     event.Title,
			"body":      event.Body,
			"severity":  event.Severity,
			"host":      event.Host,
			"timestamp": event.Timestamp.Format(time.RFC3339),
		}
	}
}
