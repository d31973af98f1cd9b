package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	// DefaultAPIBase is the Telegram Bot API endpoint.
	DefaultAPIBase = "https://api.telegram.org"

	// DefaultTimeout bounds one sendMessage call.
	DefaultTimeout = 5 * time.Second

	// maxErrorBody caps how much of a failed response is read.
	maxErrorBody = 4096
)

var (
	// ErrMissingToken is returned by NewTelegram without a bot token.
	ErrMissingToken = errors.New("telegram bot token is required")

	// ErrRejected is returned when the Bot API answers ok=false or a non-2xx status.
	ErrRejected = errors.New("telegram rejected message")
)

// Telegram sends messages through the Telegram Bot API.
type Telegram struct {
	token   string
	apiBase string
	client  *http.Client
}

// TelegramOption configures a Telegram notifier.
type TelegramOption func(*Telegram)

// WithAPIBase overrides the Bot API base URL.
func WithAPIBase(base string) TelegramOption {
	return func(t *Telegram) {
		if base != "" {
			t.apiBase = strings.TrimRight(base, "/")
		}
	}
}

// WithHTTPClient sets the HTTP client used for delivery.
func WithHTTPClient(c *http.Client) TelegramOption {
	return func(t *Telegram) {
		if c != nil {
			t.client = c
		}
	}
}

// NewTelegram creates a Telegram notifier for the given bot token.
func NewTelegram(token string, opts ...TelegramOption) (*Telegram, error) {
	if token == "" {
		return nil, ErrMissingToken
	}

	t := &Telegram{
		token:   token,
		apiBase: DefaultAPIBase,
		client:  &http.Client{Timeout: DefaultTimeout},
	}
	for _, opt := range opts {
		opt(t)
	}
	return t, nil
}

// apiResponse is the envelope of every Bot API reply.
type apiResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description"`
}

// Notify posts text to the chat identified by destination.
func (t *Telegram) Notify(ctx context.Context, destination, text string) error {
	endpoint := fmt.Sprintf("%s/bot%s/sendMessage", t.apiBase, t.token)

	form := url.Values{}
	form.Set("chat_id", destination)
	form.Set("text", text)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("failed to build telegram request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := t.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send telegram message: %w", t.redact(err))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if err != nil {
		return fmt.Errorf("failed to read telegram response: %w", err)
	}

	var reply apiResponse
	_ = json.Unmarshal(body, &reply)

	if resp.StatusCode < 200 || resp.StatusCode > 299 || !reply.OK {
		if reply.Description != "" {
			return fmt.Errorf("%w: status %d: %s", ErrRejected, resp.StatusCode, reply.Description)
		}
		return fmt.Errorf("%w: status %d", ErrRejected, resp.StatusCode)
	}
	return nil
}

// redact removes the bot token from transport errors, which embed the URL.
func (t *Telegram) redact(err error) error {
	msg := err.Error()
	if !strings.Contains(msg, t.token) {
		return err
	}
	return errors.New(strings.ReplaceAll(msg, t.token, "[REDACTED]"))
}
