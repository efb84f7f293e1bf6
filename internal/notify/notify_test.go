package notify

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"wheelstrat/internal/config"
	"wheelstrat/internal/errors"
	"wheelstrat/internal/models"
)

func TestMultiNotifier_NoChannels(t *testing.T) {
	n := NewMultiNotifier(config.NotificationConfig{})
	err := n.Send(context.Background(), models.Alert{Headline: "x"})
	if !errors.Is(err, errors.ErrNotifyDisabled) {
		t.Errorf("error = %v, want ErrNotifyDisabled", err)
	}
}

func TestWebhookChannel_PostsJSON(t *testing.T) {
	var received map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("content type = %s", ct)
		}
		body, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(body, &received); err != nil {
			t.Errorf("bad payload: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	ch := NewWebhookChannel(config.WebhookConfig{Enabled: true, URL: srv.URL})
	alert := models.Alert{
		Headline: "SPY: signal",
		Body:     "commentary",
		Data:     map[string]string{"symbol": "SPY"},
	}
	if err := ch.Send(context.Background(), alert); err != nil {
		t.Fatalf("Send: %v", err)
	}

	if received["headline"] != "SPY: signal" || received["body"] != "commentary" {
		t.Errorf("payload = %v", received)
	}
}

func TestWebhookChannel_RetriesServerErrors(t *testing.T) {
	attempts := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	ch := NewWebhookChannel(config.WebhookConfig{Enabled: true, URL: srv.URL})
	if err := ch.Send(context.Background(), models.Alert{Headline: "x"}); err != nil {
		t.Fatalf("Send after retries: %v", err)
	}
	if attempts != 3 {
		t.Errorf("attempts = %d, want 3", attempts)
	}
}

func TestWebhookChannel_Enablement(t *testing.T) {
	if NewWebhookChannel(config.WebhookConfig{Enabled: true}).IsEnabled() {
		t.Error("webhook without a URL must be disabled")
	}
	if NewWebhookChannel(config.WebhookConfig{URL: "http://x"}).IsEnabled() {
		t.Error("webhook not enabled in config must be disabled")
	}
}

func TestTelegramChannel_Enablement(t *testing.T) {
	cases := []config.TelegramConfig{
		{Enabled: true},
		{Enabled: true, BotToken: "t"},
		{Enabled: true, ChatID: "c"},
		{BotToken: "t", ChatID: "c"},
	}
	for _, cfg := range cases {
		if NewTelegramChannel(cfg).IsEnabled() {
			t.Errorf("config %+v must not be enabled", cfg)
		}
	}
	if !NewTelegramChannel(config.TelegramConfig{Enabled: true, BotToken: "t", ChatID: "c"}).IsEnabled() {
		t.Error("fully configured telegram channel must be enabled")
	}
}
