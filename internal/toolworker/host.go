// Package toolworker implements the out-of-process tool host: the loop
// that runs inside a spawned tool worker process, reading one Call at a
// time from stdin and writing its CallResult to stdout as
// newline-delimited JSON. It is the worker side of the protocol
// internal/supervisor drives from the orchestrator process.
//
// Framing is grounded on internal/mcp's stdio transport (one JSON
// object per line, 1MB line buffer); the single-in-flight-call
// discipline and panic-to-error conversion are grounded on jaiger's
// tool_process.py, which serializes calls through a single
// multiprocessing pipe and turns any exception into a CallResult.Error
// string rather than letting it kill the process.
package toolworker

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"runtime/debug"

	"github.com/jaiger-go/agentrt/internal/toolspec"
	"github.com/jaiger-go/agentrt/pkg/rtproto"
)

const maxLineBytes = 1024 * 1024

// Host runs a single Tool's call loop over stdin/stdout. Setup is
// invoked once before the loop starts and Teardown once after it ends,
// regardless of how the loop terminates (EOF on stdin, or ctx
// cancellation).
type Host struct {
	tool toolspec.Tool
	in   io.Reader
	out  io.Writer
}

// NewHost builds a worker host reading Call frames from in and writing
// CallResult frames to out.
func NewHost(tool toolspec.Tool, in io.Reader, out io.Writer) *Host {
	return &Host{tool: tool, in: in, out: out}
}

// Run configures and sets up the tool, then serves calls until stdin
// closes or ctx is cancelled, then tears the tool down. It returns an
// error from Configure or Setup, from writing a result, or from reading
// stdin; Teardown's error is not returned. Per-call failures never stop
// the loop, they are reported as a CallResult with Error set.
func (h *Host) Run(ctx context.Context, config map[string]any) error {
	if err := h.tool.Configure(config); err != nil {
		return fmt.Errorf("configure: %w", err)
	}
	if err := h.tool.Setup(ctx); err != nil {
		return fmt.Errorf("setup: %w", err)
	}
	defer h.tool.Teardown(ctx)

	scanner := bufio.NewScanner(h.in)
	scanner.Buffer(make([]byte, maxLineBytes), maxLineBytes)

	done := ctx.Done()
	for scanner.Scan() {
		select {
		case <-done:
			return ctx.Err()
		default:
		}

		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		result := h.dispatch(ctx, line)
		if err := h.writeResult(result); err != nil {
			return fmt.Errorf("write result: %w", err)
		}
	}

	return scanner.Err()
}

// dispatch decodes a single Call line, invokes the tool, and converts
// any error or recovered panic into a CallResult.Error string. The
// Call's CallID, if present, is echoed back unchanged so a caller that
// sets one can correlate results with calls.
func (h *Host) dispatch(ctx context.Context, line []byte) (result rtproto.CallResult) {
	var call rtproto.Call
	if err := json.Unmarshal(line, &call); err != nil {
		return rtproto.NewCallError(fmt.Sprintf("malformed call: %v", err))
	}

	defer func() {
		if r := recover(); r != nil {
			result = rtproto.NewCallError(fmt.Sprintf("panic: %v\n%s", r, debug.Stack()))
			result.CallID = call.CallID
		}
	}()

	// __specs__ is a reserved function name the supervisor uses to query
	// this worker's manifest; it never reaches Tool.Invoke since a real
	// tool function has no business intercepting it.
	if call.Function == specsFunction {
		result = rtproto.NewCallResult(h.tool.Specs())
		result.CallID = call.CallID
		return result
	}

	value, err := h.tool.Invoke(ctx, call.Function, call.Args, call.Kwargs)
	if err != nil {
		result = rtproto.NewCallError(err.Error())
	} else {
		result = rtproto.NewCallResult(value)
	}
	result.CallID = call.CallID
	return result
}

// specsFunction is the reserved Call.Function name the supervisor sends
// to retrieve a worker's rtproto.ToolSpec manifest.
const specsFunction = "__specs__"

func (h *Host) writeResult(result rtproto.CallResult) error {
	data, err := json.Marshal(result)
	if err != nil {
		return err
	}
	data = append(data, '\n')
	_, err = h.out.Write(data)
	return err
}
