package alerting

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"wallet-bot/internal/domain"
)

// Notification carries the context of a fired price alert.
type Notification struct {
	Symbol       string
	Condition    domain.AlertCondition
	TargetPrice  decimal.Decimal
	CurrentPrice decimal.Decimal
	Repeat       bool
	FiredAt      time.Time
}

// Notifier delivers alert notifications to a user.
type Notifier interface {
	Notify(ctx context.Context, userID int64, note Notification) error
}

// Sender delivers free-form text to a user. The bot front end shares
// this with the alert path so both talk to Telegram the same way.
type Sender interface {
	Send(ctx context.Context, userID int64, text string) error
}

// TelegramNotifier pushes messages through the Telegram Bot API. The
// user's Telegram ID doubles as the chat ID.
type TelegramNotifier struct {
	botToken string
	baseURL  string
	client   *http.Client
	logger   zerolog.Logger
}

// NewTelegramNotifier constructs the Telegram delivery channel.
func NewTelegramNotifier(botToken, baseURL string, timeout time.Duration, logger zerolog.Logger) *TelegramNotifier {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if baseURL == "" {
		baseURL = "https://api.telegram.org"
	}

	return &TelegramNotifier{
		botToken: botToken,
		baseURL:  strings.TrimRight(baseURL, "/"),
		client:   &http.Client{Timeout: timeout},
		logger:   logger.With().Str("component", "telegram_notifier").Logger(),
	}
}

// Notify renders the alert and delivers it via sendMessage.
func (n *TelegramNotifier) Notify(ctx context.Context, userID int64, note Notification) error {
	if err := n.Send(ctx, userID, renderMessage(note)); err != nil {
		return err
	}

	n.logger.Info().Int64("user_id", userID).
		Str("symbol", note.Symbol).
		Str("condition", string(note.Condition)).
		Str("price", note.CurrentPrice.String()).
		Msg("alert notification sent")
	return nil
}

// Send delivers plain text to a chat.
func (n *TelegramNotifier) Send(ctx context.Context, userID int64, text string) error {
	payload := map[string]string{
		"chat_id": strconv.FormatInt(userID, 10),
		"text":    text,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal telegram payload: %w", err)
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", n.baseURL, n.botToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create telegram request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send telegram request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &domain.ExternalError{
			Service: "telegram",
			Status:  resp.StatusCode,
			Err:     fmt.Errorf("sendMessage rejected"),
		}
	}

	var result struct {
		OK bool `json:"ok"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err == nil {
		if !result.OK {
			return fmt.Errorf("telegram returned ok=false")
		}
	}
	return nil
}

func renderMessage(note Notification) string {
	direction := "risen above"
	if note.Condition == domain.ConditionBelow {
		direction = "fallen below"
	}

	builder := strings.Builder{}
	builder.WriteString(fmt.Sprintf("🔔 Price alert: %s\n", note.Symbol))
	builder.WriteString(fmt.Sprintf("Price has %s your target of %s.\n", direction, note.TargetPrice.String()))
	builder.WriteString(fmt.Sprintf("Current price: %s\n", note.CurrentPrice.String()))
	builder.WriteString(fmt.Sprintf("Time: %s UTC\n", note.FiredAt.UTC().Format(time.RFC3339)))
	if note.Repeat {
		builder.WriteString("This alert repeats and will fire again on the next crossing.")
	} else {
		builder.WriteString("This alert has been disabled. Create a new one to keep watching.")
	}
	return builder.String()
}

var _ Notifier = (*TelegramNotifier)(nil)
var _ Sender = (*TelegramNotifier)(nil)
