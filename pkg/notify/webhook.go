package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// WebhookNotifier posts settlement announcements to the chat platform's
// message webhook.
type WebhookNotifier struct {
	baseURL string
	token   string
	client  *http.Client
}

func NewWebhookNotifier(baseURL, token string) *WebhookNotifier {
	return &WebhookNotifier{
		baseURL: baseURL,
		token:   token,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

type messagePayload struct {
	ChannelID string `json:"channel_id"`
	Content   string `json:"content"`
}

// Send posts one message to a channel.
func (n *WebhookNotifier) Send(ctx context.Context, channelID, message string) error {
	payload, err := json.Marshal(messagePayload{ChannelID: channelID, Content: message})
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	url := fmt.Sprintf("%s/api/messages", n.baseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if n.token != "" {
		req.Header.Set("Authorization", "Bearer "+n.token)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to deliver message: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("message delivery failed with status: %d", resp.StatusCode)
	}
	return nil
}
