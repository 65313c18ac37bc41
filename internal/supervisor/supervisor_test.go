package supervisor

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jaiger-go/agentrt/pkg/rtconfig"
)

// echoWorkerScript writes a stand-in worker. Compiling a real worker
// binary would need the Go toolchain, so these tests exercise Supervisor
// against a shell script that mimics the toolworker wire protocol
// (read a line, echo back a trivial CallResult) rather than a real
// cmd/toolworker build.
func echoWorkerScript(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "echo-worker.sh")
	script := `#!/bin/sh
while IFS= read -r line; do
  echo '{"result":"ok","error":""}'
done
`
	require.NoError(t, os.WriteFile(path, []byte(script), 0o755))
	return path
}

func TestSupervisorStartStopLifecycle(t *testing.T) {
	binary := echoWorkerScript(t)
	s := New(binary, nil, nil)

	ctx := context.Background()
	require.NoError(t, s.Start(ctx, rtconfig.ToolConfig{Name: "echo", Type: "echo"}))

	err := s.Start(ctx, rtconfig.ToolConfig{Name: "echo", Type: "echo"})
	require.Error(t, err)

	result, err := s.Call(ctx, "echo", "ping", nil, nil)
	require.NoError(t, err)
	assert.False(t, result.Failed())

	require.NoError(t, s.Stop("echo", 5*time.Second))
	require.Error(t, s.Stop("echo", 5*time.Second))
}

func TestSupervisorCallUnknownTool(t *testing.T) {
	s := New(echoWorkerScript(t), nil, nil)

	_, err := s.Call(context.Background(), "missing", "ping", nil, nil)
	require.Error(t, err)
}

func TestSupervisorStartManyRejectsDuplicateNames(t *testing.T) {
	s := New(echoWorkerScript(t), nil, nil)

	err := s.StartMany(context.Background(), []rtconfig.ToolConfig{
		{Name: "a", Type: "echo"},
		{Name: "a", Type: "echo"},
	})
	require.Error(t, err)
}
