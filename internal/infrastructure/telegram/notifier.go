package telegram

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/hipstersmoothie/pitchforkify/internal/ports"
)

const (
	DefaultAPIURL = "https://api.telegram.org"

	// maxMessageLength is the Bot API limit for one message.
	maxMessageLength = 4096
)

// Notifier sends operator alerts to a Telegram chat via bot API.
type Notifier struct {
	botToken string
	chatID   string
	apiURL   string
	client   *resty.Client
}

var _ ports.Notifier = (*Notifier)(nil)

// NewNotifier registers bot token and chat identifier. An empty apiURL
// means the public Bot API.
func NewNotifier(botToken, chatID, apiURL string) *Notifier {
	if apiURL == "" {
		apiURL = DefaultAPIURL
	}
	return &Notifier{
		botToken: botToken,
		chatID:   chatID,
		apiURL:   strings.TrimRight(apiURL, "/"),
		client:   resty.New().SetTimeout(5 * time.Second),
	}
}

// Notify posts a plain-text message to the chat.
func (n *Notifier) Notify(ctx context.Context, message string) error {
	if n.botToken == "" || n.chatID == "" {
		return errors.New("telegram notifier misconfigured")
	}
	if len(message) > maxMessageLength {
		message = message[:maxMessageLength]
	}

	endpoint := fmt.Sprintf("%s/bot%s/sendMessage", n.apiURL, n.botToken)
	resp, err := n.client.R().
		SetContext(ctx).
		SetFormData(map[string]string{
			"chat_id": n.chatID,
			"text":    message,
		}).
		Post(endpoint)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}

	if resp.StatusCode() != 200 {
		return fmt.Errorf("telegram error: %s", resp.Status())
	}

	return nil
}
