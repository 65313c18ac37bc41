package providers

import (
	"context"
	"encoding/json"
	"fmt"

	openai "github.com/sashabaranov/go-openai"

	"github.com/jaiger-go/agentrt/internal/errs"
	"github.com/jaiger-go/agentrt/pkg/rtproto"
)

// OpenAIConfig configures an OpenAI driver.
type OpenAIConfig struct {
	APIKey     string
	Model      string
	BaseURL    string
	MaxRetries int
}

// OpenAIDriver keeps an explicit chat history across turns.
//
// jaiger/ai/openai_model.py chains turns via the Responses API's
// previous_response_id so the server retains context instead of the
// client resending history; github.com/sashabaranov/go-openai, the
// OpenAI SDK this workspace's dependency pack actually carries, only
// exposes the Chat Completions API, which has no response-id concept.
// This driver keeps an explicit []openai.ChatCompletionMessage history
// and resends it every turn instead — functionally equivalent (the
// model sees the same conversation either way), documented here rather
// than silently pretending to chain by id.
type OpenAIDriver struct {
	base
	client  *openai.Client
	model   string
	history []openai.ChatCompletionMessage
}

// NewOpenAIDriver builds a driver and sends the shared preamble as its
// first turn.
func NewOpenAIDriver(ctx context.Context, name string, cfg OpenAIConfig) (*OpenAIDriver, error) {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	model := cfg.Model
	if model == "" {
		model = openai.GPT4oMini
	}

	d := &OpenAIDriver{
		base:   newBase(name, cfg.MaxRetries, 0),
		client: openai.NewClientWithConfig(clientCfg),
		model:  model,
	}

	if _, err := d.Prompt(ctx, Preamble()); err != nil {
		return nil, fmt.Errorf("openai driver %q preamble: %w", name, err)
	}
	return d, nil
}

// Prompt appends text to the chat history and returns the model's
// structured reply.
func (d *OpenAIDriver) Prompt(ctx context.Context, text string) (rtproto.PromptResult, error) {
	d.history = append(d.history, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: text,
	})

	var resp openai.ChatCompletionResponse
	err := d.retry(ctx, isRetryableHTTP, func() error {
		var apiErr error
		resp, apiErr = d.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
			Model:          d.model,
			Messages:       d.history,
			ResponseFormat: &openai.ChatCompletionResponseFormat{Type: openai.ChatCompletionResponseFormatTypeJSONObject},
		})
		return apiErr
	})
	if err != nil {
		return rtproto.PromptResult{}, fmt.Errorf("openai prompt: %w", err)
	}
	if len(resp.Choices) == 0 {
		return rtproto.PromptResult{}, errs.NewModelProtocolError(d.name, fmt.Errorf("no choices returned"))
	}

	replyContent := resp.Choices[0].Message.Content
	d.history = append(d.history, resp.Choices[0].Message)

	var result rtproto.PromptResult
	if err := json.Unmarshal([]byte(replyContent), &result); err != nil {
		return rtproto.PromptResult{}, errs.NewModelProtocolError(d.name, err)
	}
	return result, nil
}
