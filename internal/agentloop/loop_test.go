package agentloop

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jaiger-go/agentrt/internal/observability"
	"github.com/jaiger-go/agentrt/internal/registry"
	"github.com/jaiger-go/agentrt/internal/supervisor"
	"github.com/jaiger-go/agentrt/pkg/rtproto"
)

type scriptedDriver struct {
	replies []rtproto.PromptResult
	calls   int
}

func (s *scriptedDriver) Name() string { return "scripted" }

func (s *scriptedDriver) Prompt(_ context.Context, _ string) (rtproto.PromptResult, error) {
	reply := s.replies[s.calls]
	if s.calls < len(s.replies)-1 {
		s.calls++
	}
	return reply, nil
}

func newTestLogger() *observability.Logger {
	return observability.NewLogger(observability.LogConfig{Level: "error", Format: "json"})
}

func TestRunReturnsTextWithoutCalls(t *testing.T) {
	logger := newTestLogger()
	reg := registry.New(logger)
	driver := &scriptedDriver{replies: []rtproto.PromptResult{rtproto.NewPromptText("hello")}}
	require.NoError(t, reg.Add("scripted", driver))

	sup := supervisor.New("/bin/true", logger, nil)

	out, err := Run(context.Background(), reg, sup, logger, "scripted", "hi", Config{AutoCall: true})
	require.NoError(t, err)
	assert.Equal(t, "hello", out)
}

func TestRunAutoCallFalseSerializesCalls(t *testing.T) {
	logger := newTestLogger()
	reg := registry.New(logger)
	calls := []rtproto.ToolCall{{Tool: "echo", Function: "say", Args: []any{"hi"}}}
	driver := &scriptedDriver{replies: []rtproto.PromptResult{rtproto.NewPromptCalls(calls)}}
	require.NoError(t, reg.Add("scripted", driver))

	sup := supervisor.New("/bin/true", logger, nil)

	out, err := Run(context.Background(), reg, sup, logger, "scripted", "hi", Config{AutoCall: false})
	require.NoError(t, err)
	assert.Contains(t, out, `"tool":"echo"`)
}

func TestRunMaxRoundsExceeded(t *testing.T) {
	logger := newTestLogger()
	reg := registry.New(logger)
	calls := []rtproto.ToolCall{{Tool: "echo", Function: "say"}}
	driver := &scriptedDriver{replies: []rtproto.PromptResult{rtproto.NewPromptCalls(calls)}}
	require.NoError(t, reg.Add("scripted", driver))

	sup := supervisor.New("/bin/true", logger, nil)

	_, err := Run(context.Background(), reg, sup, logger, "scripted", "hi", Config{AutoCall: true, MaxRounds: 1})
	require.Error(t, err)
	var maxRoundsErr *ErrMaxRoundsExceeded
	assert.ErrorAs(t, err, &maxRoundsErr)
}

func TestRunHookPanicIsSwallowed(t *testing.T) {
	logger := newTestLogger()
	reg := registry.New(logger)
	calls := []rtproto.ToolCall{{Tool: "missing-tool", Function: "say"}}
	driver := &scriptedDriver{replies: []rtproto.PromptResult{
		rtproto.NewPromptCalls(calls),
		rtproto.NewPromptText("done"),
	}}
	require.NoError(t, reg.Add("scripted", driver))

	sup := supervisor.New("/bin/true", logger, nil)

	out, err := Run(context.Background(), reg, sup, logger, "scripted", "hi", Config{
		AutoCall: true,
		OnCall:   func(rtproto.ToolCall) { panic("boom") },
	})
	require.NoError(t, err)
	assert.Equal(t, "done", out)
}
