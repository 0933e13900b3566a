package bot

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"wallet-bot/internal/domain"
)

// Update is one inbound Telegram event. Only text messages matter here.
type Update struct {
	UpdateID int64    `json:"update_id"`
	Message  *Message `json:"message"`
}

// Message is the text payload of an update.
type Message struct {
	MessageID int64  `json:"message_id"`
	From      *User  `json:"from"`
	Chat      Chat   `json:"chat"`
	Text      string `json:"text"`
}

// User identifies the sender.
type User struct {
	ID int64 `json:"id"`
}

// Chat identifies the conversation.
type Chat struct {
	ID int64 `json:"id"`
}

// Client is a minimal Bot API consumer for long polling.
type Client struct {
	botToken string
	baseURL  string
	client   *http.Client
	timeout  time.Duration
}

// NewClient constructs the long-poll client. pollTimeout is the server
// side hold of getUpdates; the HTTP timeout is padded past it.
func NewClient(botToken, baseURL string, pollTimeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = "https://api.telegram.org"
	}
	if pollTimeout <= 0 {
		pollTimeout = 30 * time.Second
	}
	return &Client{
		botToken: botToken,
		baseURL:  strings.TrimRight(baseURL, "/"),
		client:   &http.Client{Timeout: pollTimeout + 10*time.Second},
		timeout:  pollTimeout,
	}
}

// GetUpdates long-polls for updates past offset.
func (c *Client) GetUpdates(ctx context.Context, offset int64) ([]Update, error) {
	params := url.Values{}
	params.Set("offset", strconv.FormatInt(offset, 10))
	params.Set("timeout", strconv.Itoa(int(c.timeout.Seconds())))
	params.Set("allowed_updates", `["message"]`)

	endpoint := fmt.Sprintf("%s/bot%s/getUpdates?%s", c.baseURL, c.botToken, params.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, &domain.ExternalError{Service: "telegram", Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &domain.ExternalError{Service: "telegram", Err: err}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &domain.ExternalError{
			Service: "telegram",
			Status:  resp.StatusCode,
			Err:     fmt.Errorf("getUpdates: %s", strings.TrimSpace(string(body))),
		}
	}

	var payload struct {
		OK     bool     `json:"ok"`
		Result []Update `json:"result"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, &domain.ExternalError{Service: "telegram", Err: err}
	}
	if !payload.OK {
		return nil, fmt.Errorf("telegram returned ok=false")
	}
	return payload.Result, nil
}
