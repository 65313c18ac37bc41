package supervisor

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os/exec"
	"sync"

	"github.com/jaiger-go/agentrt/internal/errs"
	"github.com/jaiger-go/agentrt/internal/observability"
	"github.com/jaiger-go/agentrt/pkg/rtconfig"
	"github.com/jaiger-go/agentrt/pkg/rtproto"
)

const maxResultLineBytes = 1024 * 1024

// workerHandle owns one tool worker subprocess and its stdio pipes. A
// single workerMu serializes transactions end to end, matching the
// toolworker host's own single-in-flight-call discipline: one full
// write-then-read round trip completes before the next begins.
type workerHandle struct {
	name   string
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stdout *bufio.Scanner
	stderr io.ReadCloser

	logger *observability.Logger

	mu    sync.Mutex // serializes Call transactions
	alive bool
}

// spawnWorker launches the toolworker binary for the given ToolConfig,
// passing its type and configuration on the command line, and wires up
// its stdin/stdout as the Call/CallResult channel.
func spawnWorker(ctx context.Context, binary string, cfg rtconfig.ToolConfig, logger *observability.Logger) (*workerHandle, error) {
	configJSON, err := json.Marshal(cfg.Config)
	if err != nil {
		return nil, fmt.Errorf("marshal tool config for %q: %w", cfg.Name, err)
	}

	cmd := exec.CommandContext(ctx, binary, "--type", cfg.Type, "--config", string(configJSON))

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("stdin pipe for %q: %w", cfg.Name, err)
	}
	stdoutPipe, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("stdout pipe for %q: %w", cfg.Name, err)
	}
	stderrPipe, _ := cmd.StderrPipe()

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start worker %q: %w", cfg.Name, err)
	}

	scanner := bufio.NewScanner(stdoutPipe)
	scanner.Buffer(make([]byte, maxResultLineBytes), maxResultLineBytes)

	w := &workerHandle{
		name:   cfg.Name,
		cmd:    cmd,
		stdin:  stdin,
		stdout: scanner,
		stderr: stderrPipe,
		logger: logger.WithFields("tool", cfg.Name),
		alive:  true,
	}

	if stderrPipe != nil {
		go w.logStderr()
	}

	return w, nil
}

// call sends one Call frame and blocks for its CallResult. Callers
// outside this package go through Supervisor.Call, which also applies
// an overall timeout.
func (w *workerHandle) call(call rtproto.Call) (rtproto.CallResult, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.alive {
		return rtproto.CallResult{}, errs.NewToolUnavailableError(w.name, nil)
	}

	data, err := json.Marshal(call)
	if err != nil {
		return rtproto.CallResult{}, fmt.Errorf("marshal call: %w", err)
	}
	data = append(data, '\n')

	if _, err := w.stdin.Write(data); err != nil {
		w.alive = false
		return rtproto.CallResult{}, errs.NewToolUnavailableError(w.name, err)
	}

	if !w.stdout.Scan() {
		w.alive = false
		if err := w.stdout.Err(); err != nil {
			return rtproto.CallResult{}, errs.NewToolUnavailableError(w.name, err)
		}
		return rtproto.CallResult{}, errs.NewToolUnavailableError(w.name, io.EOF)
	}

	var result rtproto.CallResult
	if err := json.Unmarshal(w.stdout.Bytes(), &result); err != nil {
		return rtproto.CallResult{}, fmt.Errorf("decode result from %q: %w", w.name, err)
	}

	return result, nil
}

func (w *workerHandle) logStderr() {
	ctx := context.Background()
	scanner := bufio.NewScanner(w.stderr)
	for scanner.Scan() {
		line := scanner.Text()
		if line != "" {
			w.logger.Debug(ctx, "worker stderr", "message", line)
		}
	}
}

// stop terminates the worker process and waits for it to exit, up to
// ctx's deadline. A still-alive process after the deadline is killed.
func (w *workerHandle) stop(ctx context.Context) error {
	w.mu.Lock()
	w.alive = false
	w.mu.Unlock()

	if w.stdin != nil {
		w.stdin.Close()
	}

	done := make(chan error, 1)
	go func() { done <- w.cmd.Wait() }()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		if w.cmd.Process != nil {
			_ = w.cmd.Process.Kill()
		}
		<-done
		return ctx.Err()
	}
}
