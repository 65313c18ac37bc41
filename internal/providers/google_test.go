package providers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGoogleDriverPromptRoundTrip(t *testing.T) {
	var calls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Contains(t, r.URL.Path, ":generateContent")
		assert.Equal(t, "test-key", r.URL.Query().Get("key"))

		var req googleGenerateRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "application/json", req.GenerationConfig.ResponseMIMEType)

		reply := googleGenerateResponse{}
		reply.Candidates = []struct {
			Content googleContent `json:"content"`
		}{
			{Content: googleContent{Role: "model", Parts: []googlePart{{Text: `{"text":"hello there","calls":null}`}}}},
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(reply)
	}))
	defer server.Close()

	driver, err := NewGoogleDriver(context.Background(), "gemini", GoogleConfig{
		APIKey:  "test-key",
		BaseURL: server.URL,
	})
	require.NoError(t, err)
	require.Equal(t, 1, calls, "preamble should be sent as the first turn")

	result, err := driver.Prompt(context.Background(), "hi")
	require.NoError(t, err)
	require.NotNil(t, result.Text)
	assert.Equal(t, "hello there", *result.Text)
	assert.Equal(t, 2, calls)
	assert.Len(t, driver.history, 4)
}

func TestGoogleDriverNoCandidatesIsProtocolError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(googleGenerateResponse{})
	}))
	defer server.Close()

	_, err := NewGoogleDriver(context.Background(), "gemini", GoogleConfig{
		APIKey:  "test-key",
		BaseURL: server.URL,
	})
	require.Error(t, err)
}
