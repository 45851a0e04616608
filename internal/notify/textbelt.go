package notify

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/goccy/go-json"
)

const (
	DefaultTextbeltURL = "https://textbelt.com/text"
	DefaultTextbeltKey = "textbelt"
)

// Textbelt sends SMS through the Textbelt HTTP API.
type Textbelt struct {
	key    string
	url    string
	client *http.Client
}

func NewTextbelt(key, url string, timeout time.Duration) *Textbelt {
	if key == "" {
		key = DefaultTextbeltKey
	}
	if url == "" {
		url = DefaultTextbeltURL
	}
	return &Textbelt{key: key, url: url, client: &http.Client{Timeout: timeout}}
}

type textbeltRequest struct {
	Phone   string `json:"phone"`
	Message string `json:"message"`
	Key     string `json:"key"`
}

type textbeltResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

func (t *Textbelt) SendSMS(ctx context.Context, phone, message string) error {
	body, err := json.Marshal(textbeltRequest{Phone: phone, Message: message, Key: t.key})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("textbelt responded with status %d", resp.StatusCode)
	}

	var result textbeltResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return fmt.Errorf("decode textbelt response: %w", err)
	}
	if !result.Success {
		if result.Error == "" {
			return errors.New("textbelt rejected the message")
		}
		return errors.New("textbelt: " + result.Error)
	}
	return nil
}
