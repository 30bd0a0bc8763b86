package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const defaultPokeURL = "https://poke.com/api/v1/inbound-sms/webhook"

// Poke implements the Notifier interface using the Poke messaging API
type Poke struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

// NewPoke creates a new Poke Notifier instance
func NewPoke(apiKey string, baseURL string) (*Poke, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("poke api key is required")
	}
	if baseURL == "" {
		baseURL = defaultPokeURL
	}

	return &Poke{
		apiKey:  apiKey,
		baseURL: baseURL,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}, nil
}

type pokeMessage struct {
	UserID  string `json:"user_id"`
	Message string `json:"message"`
}

// Send delivers a message to a user via the Poke webhook.
func (p *Poke) Send(ctx context.Context, userID, message string) error {
	jsonData, err := json.Marshal(pokeMessage{UserID: userID, Message: message})
	if err != nil {
		return fmt.Errorf("marshaling message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", p.baseURL, bytes.NewBuffer(jsonData))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+p.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("calling poke API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("poke API error (status %d): %s", resp.StatusCode, string(body))
	}

	return nil
}
