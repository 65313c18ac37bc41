package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/jaiger-go/agentrt/internal/errs"
	"github.com/jaiger-go/agentrt/pkg/rtproto"
)

// OllamaConfig configures an Ollama driver.
type OllamaConfig struct {
	BaseURL    string
	Model      string
	MaxRetries int
	Timeout    time.Duration
}

type ollamaMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ollamaChatRequest struct {
	Model    string          `json:"model"`
	Messages []ollamaMessage `json:"messages"`
	Format   string          `json:"format"`
	Stream   bool            `json:"stream"`
}

type ollamaChatResponse struct {
	Message ollamaMessage `json:"message"`
	Done    bool          `json:"done"`
	Error   string        `json:"error"`
}

// OllamaDriver keeps a plain message history and posts the full history
// to the local Ollama HTTP API on every turn with `format: "json"`,
// grounded on jaiger/ai/ollama_model.py's own history-array-plus-
// format=json approach and matching (not deviating from) the teacher's
// own internal/agent/providers/ollama.go, which also speaks to Ollama
// over plain net/http with no Ollama SDK.
type OllamaDriver struct {
	base
	httpClient *http.Client
	baseURL    string
	model      string
	history    []ollamaMessage
}

// NewOllamaDriver builds a driver and sends the shared preamble as its
// first turn.
func NewOllamaDriver(ctx context.Context, name string, cfg OllamaConfig) (*OllamaDriver, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	model := cfg.Model
	if model == "" {
		model = "llama3"
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}

	d := &OllamaDriver{
		base:       newBase(name, cfg.MaxRetries, 0),
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    baseURL,
		model:      model,
	}

	if _, err := d.Prompt(ctx, Preamble()); err != nil {
		return nil, fmt.Errorf("ollama driver %q preamble: %w", name, err)
	}
	return d, nil
}

// Prompt appends text to the message history and returns the model's
// structured reply.
func (d *OllamaDriver) Prompt(ctx context.Context, text string) (rtproto.PromptResult, error) {
	d.history = append(d.history, ollamaMessage{Role: "user", Content: text})

	var parsed ollamaChatResponse
	err := d.retry(ctx, isRetryableHTTP, func() error {
		return d.doChat(ctx, &parsed)
	})
	if err != nil {
		return rtproto.PromptResult{}, fmt.Errorf("ollama prompt: %w", err)
	}
	if parsed.Error != "" {
		return rtproto.PromptResult{}, errs.NewModelProtocolError(d.name, fmt.Errorf("%s", parsed.Error))
	}

	d.history = append(d.history, ollamaMessage{Role: "assistant", Content: parsed.Message.Content})

	var result rtproto.PromptResult
	if err := json.Unmarshal([]byte(parsed.Message.Content), &result); err != nil {
		return rtproto.PromptResult{}, errs.NewModelProtocolError(d.name, err)
	}
	return result, nil
}

func (d *OllamaDriver) doChat(ctx context.Context, out *ollamaChatResponse) error {
	payload, err := json.Marshal(ollamaChatRequest{
		Model:    d.model,
		Messages: d.history,
		Format:   "json",
		Stream:   false,
	})
	if err != nil {
		return fmt.Errorf("marshal ollama request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.baseURL+"/api/chat", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build ollama request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("ollama request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read ollama response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("ollama request failed: status %d: %s", resp.StatusCode, body)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode ollama response: %w", err)
	}
	return nil
}
