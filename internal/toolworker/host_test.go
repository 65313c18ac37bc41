package toolworker

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jaiger-go/agentrt/pkg/rtproto"
)

type echoTool struct{}

func (echoTool) Configure(map[string]any) error { return nil }
func (echoTool) Setup(context.Context) error     { return nil }
func (echoTool) Teardown(context.Context) error  { return nil }
func (echoTool) Specs() rtproto.ToolSpec         { return rtproto.ToolSpec{Name: "echo"} }

func (echoTool) Invoke(_ context.Context, function string, args []any, kwargs map[string]any) (any, error) {
	switch function {
	case "echo":
		return kwargs["text"], nil
	case "boom":
		panic("kaboom")
	default:
		return nil, errUnknownFunction(function)
	}
}

type errUnknownFunction string

func (e errUnknownFunction) Error() string { return "unknown function: " + string(e) }

func TestHostRunEchoesResult(t *testing.T) {
	input := strings.NewReader(`{"function":"echo","kwargs":{"text":"hi"},"call_id":"c1"}` + "\n")
	var out bytes.Buffer

	h := NewHost(echoTool{}, input, &out)
	require.NoError(t, h.Run(context.Background(), nil))

	var result rtproto.CallResult
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(out.Bytes()), &result))
	require.False(t, result.Failed())
	require.Equal(t, "hi", result.Result)
	require.Equal(t, "c1", result.CallID)
}

func TestHostRunRecoversPanic(t *testing.T) {
	input := strings.NewReader(`{"function":"boom","call_id":"c2"}` + "\n")
	var out bytes.Buffer

	h := NewHost(echoTool{}, input, &out)
	require.NoError(t, h.Run(context.Background(), nil))

	var result rtproto.CallResult
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(out.Bytes()), &result))
	require.True(t, result.Failed())
	require.Contains(t, result.Error, "panic: kaboom")
	require.Equal(t, "c2", result.CallID)
}

func TestHostRunMalformedLine(t *testing.T) {
	input := strings.NewReader("not json\n")
	var out bytes.Buffer

	h := NewHost(echoTool{}, input, &out)
	require.NoError(t, h.Run(context.Background(), nil))

	var result rtproto.CallResult
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(out.Bytes()), &result))
	require.True(t, result.Failed())
	require.Contains(t, result.Error, "malformed call")
}
