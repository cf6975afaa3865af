package notify

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// NtfyNotifier publishes notifications to an ntfy-compatible push server.
// The body of the POST is the message text; title and dedup tag travel in
// headers.
type NtfyNotifier struct {
	baseURL string
	topic   string
	client  *http.Client
}

func NewNtfyNotifier(baseURL, topic string) *NtfyNotifier {
	return &NtfyNotifier{
		baseURL: strings.TrimRight(baseURL, "/"),
		topic:   topic,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

func (n *NtfyNotifier) Send(ctx context.Context, notification Notification) error {
	url := n.baseURL + "/" + n.topic
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, strings.NewReader(notification.Body))
	if err != nil {
		return fmt.Errorf("build notification request: %w", err)
	}
	req.Header.Set("Title", notification.Title)
	req.Header.Set("Tags", notification.Tag)

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("notification server returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	return nil
}
