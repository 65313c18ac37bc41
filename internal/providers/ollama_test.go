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

func TestOllamaDriverPromptRoundTrip(t *testing.T) {
	var calls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Contains(t, r.URL.Path, "/api/chat")

		var req ollamaChatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "json", req.Format)
		assert.False(t, req.Stream)

		reply := ollamaChatResponse{
			Message: ollamaMessage{Role: "assistant", Content: `{"text":"hello there","calls":null}`},
			Done:    true,
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(reply)
	}))
	defer server.Close()

	driver, err := NewOllamaDriver(context.Background(), "local", OllamaConfig{
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

func TestOllamaDriverErrorField(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(ollamaChatResponse{Error: "model not found", Done: true})
	}))
	defer server.Close()

	_, err := NewOllamaDriver(context.Background(), "local", OllamaConfig{
		BaseURL: server.URL,
	})
	require.Error(t, err)
}
