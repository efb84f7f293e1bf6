// Package notify provides alert delivery channels for the pipeline.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"wheelstrat/internal/config"
	"wheelstrat/internal/errors"
	"wheelstrat/internal/models"
	"wheelstrat/pkg/utils"
)

// Notifier defines the interface for sending alerts.
type Notifier interface {
	Send(ctx context.Context, alert models.Alert) error
}

// Channel defines one delivery channel.
type Channel interface {
	Name() string
	Send(ctx context.Context, alert models.Alert) error
	IsEnabled() bool
}

// MultiNotifier fans an alert out to every enabled channel.
type MultiNotifier struct {
	channels []Channel
}

// NewMultiNotifier creates a notifier from the notification config.
func NewMultiNotifier(cfg config.NotificationConfig) *MultiNotifier {
	n := &MultiNotifier{}
	if cfg.Webhook.Enabled {
		n.channels = append(n.channels, NewWebhookChannel(cfg.Webhook))
	}
	if cfg.Telegram.Enabled {
		n.channels = append(n.channels, NewTelegramChannel(cfg.Telegram))
	}
	return n
}

// Send delivers the alert to every enabled channel, returning the first
// failure after trying them all.
func (n *MultiNotifier) Send(ctx context.Context, alert models.Alert) error {
	if len(n.channels) == 0 {
		return errors.ErrNotifyDisabled
	}

	var firstErr error
	for _, ch := range n.channels {
		if !ch.IsEnabled() {
			continue
		}
		if err := ch.Send(ctx, alert); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("channel %s: %w", ch.Name(), err)
		}
	}
	return firstErr
}

// WebhookChannel posts alerts as JSON to a configured URL.
type WebhookChannel struct {
	cfg    config.WebhookConfig
	client *http.Client
	retry  utils.RetryConfig
}

// NewWebhookChannel creates a webhook channel.
func NewWebhookChannel(cfg config.WebhookConfig) *WebhookChannel {
	return &WebhookChannel{
		cfg:    cfg,
		client: &http.Client{Timeout: 10 * time.Second},
		retry:  utils.DefaultRetryConfig(),
	}
}

func (w *WebhookChannel) Name() string { return "webhook" }

func (w *WebhookChannel) IsEnabled() bool { return w.cfg.Enabled && w.cfg.URL != "" }

func (w *WebhookChannel) Send(ctx context.Context, alert models.Alert) error {
	payload, err := json.Marshal(map[string]interface{}{
		"headline": alert.Headline,
		"body":     alert.Body,
		"data":     alert.Data,
	})
	if err != nil {
		return fmt.Errorf("marshal alert: %w", err)
	}

	return utils.Retry(ctx, w.retry, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.cfg.URL, bytes.NewReader(payload))
		if err != nil {
			return err
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := w.client.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode >= 300 {
			return fmt.Errorf("webhook returned %d", resp.StatusCode)
		}
		return nil
	})
}

// TelegramChannel sends alerts via the Telegram bot API.
type TelegramChannel struct {
	cfg    config.TelegramConfig
	client *http.Client
	retry  utils.RetryConfig
}

// NewTelegramChannel creates a Telegram channel.
func NewTelegramChannel(cfg config.TelegramConfig) *TelegramChannel {
	return &TelegramChannel{
		cfg:    cfg,
		client: &http.Client{Timeout: 10 * time.Second},
		retry:  utils.DefaultRetryConfig(),
	}
}

func (t *TelegramChannel) Name() string { return "telegram" }

func (t *TelegramChannel) IsEnabled() bool {
	return t.cfg.Enabled && t.cfg.BotToken != "" && t.cfg.ChatID != ""
}

func (t *TelegramChannel) Send(ctx context.Context, alert models.Alert) error {
	text := alert.Headline
	if alert.Body != "" {
		text += "\n\n" + alert.Body
	}

	endpoint := fmt.Sprintf("https://api.telegram.org/bot%s/sendMessage", t.cfg.BotToken)
	form := url.Values{
		"chat_id": {t.cfg.ChatID},
		"text":    {text},
	}

	return utils.Retry(ctx, t.retry, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewBufferString(form.Encode()))
		if err != nil {
			return err
		}
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

		resp, err := t.client.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode >= 300 {
			return fmt.Errorf("telegram returned %d", resp.StatusCode)
		}
		return nil
	})
}
