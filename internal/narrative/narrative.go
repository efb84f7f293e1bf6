// Package narrative writes alert body commentary, via an LLM when a key is
// configured and a deterministic template otherwise.
package narrative

import (
	"context"
	"fmt"

	"github.com/sashabaranov/go-openai"

	"wheelstrat/internal/config"
	"wheelstrat/internal/models"
)

const systemPrompt = "You are a concise options-trading analyst. " +
	"Summarize the statistics you are given in two plain sentences for a retail trader. " +
	"Never invent numbers."

// Writer produces alert commentary from a backtest result.
type Writer interface {
	Commentary(ctx context.Context, result models.BacktestResult, summary models.TailEventSummary) string
}

// New returns an LLM-backed writer when an API key is configured, and the
// template writer otherwise.
func New(cfg config.NarrativeConfig) Writer {
	if cfg.APIKey == "" {
		return TemplateWriter{}
	}
	model := cfg.Model
	if model == "" {
		model = openai.GPT4oMini
	}
	return &OpenAIWriter{
		client:   openai.NewClient(cfg.APIKey),
		model:    model,
		fallback: TemplateWriter{},
	}
}

// OpenAIWriter asks an LLM for commentary, falling back to the template on
// any API failure so alerting never blocks on the LLM.
type OpenAIWriter struct {
	client   *openai.Client
	model    string
	fallback TemplateWriter
}

// Commentary returns narrative text for the alert body.
func (w *OpenAIWriter) Commentary(ctx context.Context, result models.BacktestResult, summary models.TailEventSummary) string {
	prompt := fmt.Sprintf(
		"Symbol %s, rule %q, %d-day horizon: %d historical signals, %.0f%% win rate, %.2f%% average return, %.2f%% worst trade. "+
			"Tail history: %d rapid drops, average %.2f%%, rebound rate %.0f%%.",
		result.Symbol, result.StrategyName, result.HorizonDays,
		result.TotalTrades, result.WinRate*100, result.AvgReturn*100, result.MaxDrawdown*100,
		summary.Occurrences, summary.AvgDropPct*100, summary.ReboundRate*100)

	resp, err := w.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: w.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil || len(resp.Choices) == 0 {
		return w.fallback.Commentary(ctx, result, summary)
	}
	return resp.Choices[0].Message.Content
}

// TemplateWriter renders deterministic commentary with no external calls.
type TemplateWriter struct{}

// Commentary returns templated narrative text for the alert body.
func (TemplateWriter) Commentary(_ context.Context, result models.BacktestResult, summary models.TailEventSummary) string {
	text := fmt.Sprintf(
		"%s fired %d times over the tested history with a %.0f%% win rate and %.2f%% average return over %d days.",
		result.StrategyName, result.TotalTrades, result.WinRate*100, result.AvgReturn*100, result.HorizonDays)
	if summary.Occurrences > 0 {
		text += fmt.Sprintf(
			" The symbol has seen %d rapid drops (avg %.2f%%); %.0f%% rebounded within the measured window.",
			summary.Occurrences, summary.AvgDropPct*100, summary.ReboundRate*100)
	}
	return text
}
