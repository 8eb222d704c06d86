package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	discordTimeout  = 10 * time.Second
	maxErrorBodyLen = 512
)

// DiscordWebhook posts messages to a Discord incoming webhook.
type DiscordWebhook struct {
	url    string
	client *http.Client
}

func NewDiscordWebhook(url string) *DiscordWebhook {
	return &DiscordWebhook{
		url:    url,
		client: &http.Client{Timeout: discordTimeout},
	}
}

// Deliver sends msg. Any non-2xx response is an error carrying the
// response text.
func (d *DiscordWebhook) Deliver(ctx context.Context, msg Message) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("http request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		text, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyLen))
		return fmt.Errorf("webhook returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(text)))
	}
	return nil
}
