package observability

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoggerContextFields(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(LogConfig{Format: "json", Output: &buf})

	ctx := context.Background()
	ctx = WithTool(ctx, "search")
	ctx = WithCallID(ctx, "call-1")

	logger.Info(ctx, "dispatching call", "function", "query")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "search", entry["tool"])
	assert.Equal(t, "call-1", entry["call_id"])
	assert.Equal(t, "query", entry["function"])
}

func TestLoggerRedactsSecrets(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(LogConfig{Format: "json", Output: &buf})

	logger.Error(context.Background(), "auth failed", "error", "api_key=sk-ant-"+strings.Repeat("a", 100))

	assert.NotContains(t, buf.String(), "sk-ant-")
	assert.Contains(t, buf.String(), "[REDACTED]")
}

func TestLoggerWithFields(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(LogConfig{Format: "json", Output: &buf}).WithFields("component", "supervisor")

	logger.Info(context.Background(), "starting up")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "supervisor", entry["component"])
}

func TestLogLevelFromString(t *testing.T) {
	assert.Equal(t, "DEBUG", LogLevelFromString("debug").String())
	assert.Equal(t, "WARN", LogLevelFromString("warning").String())
	assert.Equal(t, "INFO", LogLevelFromString("bogus").String())
}
