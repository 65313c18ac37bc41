package providers

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/jaiger-go/agentrt/internal/errs"
	"github.com/jaiger-go/agentrt/pkg/rtproto"
)

// AnthropicConfig configures an Anthropic driver.
type AnthropicConfig struct {
	APIKey     string
	Model      string
	MaxTokens  int64
	BaseURL    string
	MaxRetries int
}

// AnthropicDriver keeps an explicit message history across turns and
// replays the full history on every call, grounded on
// jaiger/ai/anthropic_model.py's `_messages_history` list passed to
// `client.messages.create` on every prompt.
type AnthropicDriver struct {
	base
	client  anthropic.Client
	model   string
	maxTok  int64
	history []anthropic.MessageParam
}

// NewAnthropicDriver builds a driver and sends the shared preamble as
// its first turn.
func NewAnthropicDriver(ctx context.Context, name string, cfg AnthropicConfig) (*AnthropicDriver, error) {
	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	model := cfg.Model
	if model == "" {
		model = "claude-sonnet-4-20250514"
	}
	maxTok := cfg.MaxTokens
	if maxTok <= 0 {
		maxTok = 1024
	}

	d := &AnthropicDriver{
		base:   newBase(name, cfg.MaxRetries, 0),
		client: anthropic.NewClient(opts...),
		model:  model,
		maxTok: maxTok,
	}

	if _, err := d.Prompt(ctx, Preamble()); err != nil {
		return nil, fmt.Errorf("anthropic driver %q preamble: %w", name, err)
	}
	return d, nil
}

// Prompt appends text to the conversation history and returns the
// model's structured reply.
func (d *AnthropicDriver) Prompt(ctx context.Context, text string) (rtproto.PromptResult, error) {
	d.history = append(d.history, anthropic.NewUserMessage(anthropic.NewTextBlock(text)))

	var message *anthropic.Message
	err := d.retry(ctx, isRetryableHTTP, func() error {
		var apiErr error
		message, apiErr = d.client.Messages.New(ctx, anthropic.MessageNewParams{
			Model:     anthropic.Model(d.model),
			MaxTokens: d.maxTok,
			Messages:  d.history,
		})
		return apiErr
	})
	if err != nil {
		return rtproto.PromptResult{}, fmt.Errorf("anthropic prompt: %w", err)
	}

	var replyText string
	for _, block := range message.Content {
		if block.Type == "text" {
			replyText += block.Text
		}
	}

	d.history = append(d.history, message.ToParam())

	var result rtproto.PromptResult
	if err := json.Unmarshal([]byte(replyText), &result); err != nil {
		return rtproto.PromptResult{}, errs.NewModelProtocolError(d.name, err)
	}
	return result, nil
}
