package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/jaiger-go/agentrt/internal/errs"
	"github.com/jaiger-go/agentrt/pkg/rtproto"
)

// GoogleConfig configures a Google Gemini driver.
type GoogleConfig struct {
	APIKey     string
	Model      string
	BaseURL    string
	MaxRetries int
}

const defaultGoogleBaseURL = "https://generativelanguage.googleapis.com/v1beta"

type googleContent struct {
	Role  string       `json:"role"`
	Parts []googlePart `json:"parts"`
}

type googlePart struct {
	Text string `json:"text"`
}

type googleGenerateRequest struct {
	Contents         []googleContent        `json:"contents"`
	GenerationConfig googleGenerationConfig `json:"generationConfig"`
}

type googleGenerationConfig struct {
	ResponseMIMEType string `json:"responseMimeType"`
}

type googleGenerateResponse struct {
	Candidates []struct {
		Content googleContent `json:"content"`
	} `json:"candidates"`
}

// GoogleDriver replays the full conversation on every call.
//
// jaiger/ai/google_model.py opens a stateful `chats.create` session via
// the google.genai Python SDK, which keeps history server-side behind
// the session object. No Google GenAI SDK is in this module's wired
// dependency set (it appears only in the teacher's vision/Gemini extras,
// outside this runtime's scope), so this driver speaks the same
// `generateContent` REST endpoint the Python SDK itself calls under the
// hood, replaying the growing content list every turn the way the
// Ollama driver already does for its own vendor.
type GoogleDriver struct {
	base
	httpClient *http.Client
	apiKey     string
	model      string
	baseURL    string
	history    []googleContent
}

// NewGoogleDriver builds a driver and sends the shared preamble as its
// first turn.
func NewGoogleDriver(ctx context.Context, name string, cfg GoogleConfig) (*GoogleDriver, error) {
	model := cfg.Model
	if model == "" {
		model = "gemini-2.0-flash"
	}
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultGoogleBaseURL
	}

	d := &GoogleDriver{
		base:       newBase(name, cfg.MaxRetries, 0),
		httpClient: &http.Client{Timeout: 60 * time.Second},
		apiKey:     cfg.APIKey,
		model:      model,
		baseURL:    baseURL,
	}

	if _, err := d.Prompt(ctx, Preamble()); err != nil {
		return nil, fmt.Errorf("google driver %q preamble: %w", name, err)
	}
	return d, nil
}

// Prompt appends text to the conversation history and returns the
// model's structured reply.
func (d *GoogleDriver) Prompt(ctx context.Context, text string) (rtproto.PromptResult, error) {
	d.history = append(d.history, googleContent{Role: "user", Parts: []googlePart{{Text: text}}})

	reqBody := googleGenerateRequest{
		Contents:         d.history,
		GenerationConfig: googleGenerationConfig{ResponseMIMEType: "application/json"},
	}

	var parsed googleGenerateResponse
	err := d.retry(ctx, isRetryableHTTP, func() error {
		return d.doGenerate(ctx, reqBody, &parsed)
	})
	if err != nil {
		return rtproto.PromptResult{}, fmt.Errorf("google prompt: %w", err)
	}
	if len(parsed.Candidates) == 0 || len(parsed.Candidates[0].Content.Parts) == 0 {
		return rtproto.PromptResult{}, errs.NewModelProtocolError(d.name, fmt.Errorf("no candidates returned"))
	}

	replyText := parsed.Candidates[0].Content.Parts[0].Text
	d.history = append(d.history, googleContent{Role: "model", Parts: []googlePart{{Text: replyText}}})

	var result rtproto.PromptResult
	if err := json.Unmarshal([]byte(replyText), &result); err != nil {
		return rtproto.PromptResult{}, errs.NewModelProtocolError(d.name, err)
	}
	return result, nil
}

func (d *GoogleDriver) doGenerate(ctx context.Context, reqBody googleGenerateRequest, out *googleGenerateResponse) error {
	payload, err := json.Marshal(reqBody)
	if err != nil {
		return fmt.Errorf("marshal google request: %w", err)
	}

	url := fmt.Sprintf("%s/models/%s:generateContent?key=%s", d.baseURL, d.model, d.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build google request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("google request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read google response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("google request failed: status %d: %s", resp.StatusCode, body)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode google response: %w", err)
	}
	return nil
}
