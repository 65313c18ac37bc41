// Package agentloop drives one prompt through the AWAIT_MODEL /
// DISPATCH_TOOLS / RETURN cycle, grounded on jaiger/main.py's
// Jaiger.prompt() restated as an explicit state machine in the style of
// internal/agent/loop.go's LoopConfig/iteration-bound runner.
package agentloop

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jaiger-go/agentrt/internal/errs"
	"github.com/jaiger-go/agentrt/internal/observability"
	"github.com/jaiger-go/agentrt/internal/registry"
	"github.com/jaiger-go/agentrt/internal/supervisor"
	"github.com/jaiger-go/agentrt/pkg/rtproto"
)

// State names the agent loop's current phase.
type State string

const (
	StateAwaitModel   State = "AWAIT_MODEL"
	StateDispatchTool State = "DISPATCH_TOOLS"
	StateReturn       State = "RETURN"
)

// OnCall is invoked before a proposed tool call is dispatched. A panic
// inside it is recovered, logged and swallowed, matching jaiger/main.py's
// on_call hook, which never aborts the loop on a hook failure.
type OnCall func(call rtproto.ToolCall)

// OnResult is invoked after a dispatched tool call returns, before the
// result is fed back to the model. A panic inside it is swallowed the
// same way.
type OnResult func(call rtproto.ToolCall, result rtproto.CallResult)

// Config configures one Run call.
type Config struct {
	// MaxRounds bounds the number of AWAIT_MODEL/DISPATCH_TOOLS cycles.
	// 0 means unbounded, matching jaiger/main.py's `while result.calls
	// is not None` loop, which has no built-in bound; callers that want
	// jaiger's exact unguarded behavior set this to 0, but a configured
	// safeguard is recommended since an adversarial or confused model
	// can otherwise keep issuing calls forever.
	MaxRounds int

	// AutoCall mirrors jaiger/main.py's prompt(auto_call=...): when
	// false, a model's proposed calls are serialized to text and
	// returned immediately instead of being dispatched.
	AutoCall bool

	OnCall   OnCall
	OnResult OnResult
}

// ErrMaxRoundsExceeded is returned when Run hits Config.MaxRounds
// without the model returning text.
type ErrMaxRoundsExceeded struct {
	AiName    string
	MaxRounds int
}

func (e *ErrMaxRoundsExceeded) Error() string {
	return fmt.Sprintf("agent loop for %q exceeded max rounds (%d) without a final reply", e.AiName, e.MaxRounds)
}

// Run drives one prompt to completion.
func Run(ctx context.Context, reg *registry.Registry, sup *supervisor.Supervisor, logger *observability.Logger, aiName, text string, cfg Config) (string, error) {
	logState(ctx, logger, aiName, StateAwaitModel)
	result, err := reg.Prompt(ctx, aiName, text)
	if err != nil {
		return "", fmt.Errorf("prompt %q: %w", aiName, err)
	}

	rounds := 0
	for {
		if !result.IsCalls() {
			logState(ctx, logger, aiName, StateReturn)
			if result.Text == nil {
				return "", nil
			}
			return *result.Text, nil
		}

		if !cfg.AutoCall {
			return serializeCalls(result.Calls)
		}

		logState(ctx, logger, aiName, StateDispatchTool)
		rounds++
		if cfg.MaxRounds > 0 && rounds > cfg.MaxRounds {
			return "", &ErrMaxRoundsExceeded{AiName: aiName, MaxRounds: cfg.MaxRounds}
		}

		callResults := make([]rtproto.CallResult, 0, len(result.Calls))
		for _, call := range result.Calls {
			runHook(ctx, logger, "on_call", func() {
				if cfg.OnCall != nil {
					cfg.OnCall(call)
				}
			})

			value, callErr := sup.Call(ctx, call.Tool, call.Function, call.Args, call.Kwargs)
			var callResult rtproto.CallResult
			if callErr != nil {
				callResult = rtproto.NewCallError(callErr.Error())
			} else {
				callResult = value
			}

			runHook(ctx, logger, "on_result", func() {
				if cfg.OnResult != nil {
					cfg.OnResult(call, callResult)
				}
			})

			callResults = append(callResults, callResult)
		}

		payload, err := json.Marshal(callResults)
		if err != nil {
			return "", fmt.Errorf("marshal call results: %w", err)
		}

		logState(ctx, logger, aiName, StateAwaitModel)
		result, err = reg.Prompt(ctx, aiName, string(payload))
		if err != nil {
			return "", fmt.Errorf("prompt %q: %w", aiName, err)
		}
	}
}

func logState(ctx context.Context, logger *observability.Logger, aiName string, state State) {
	if logger != nil {
		logger.Debug(ctx, "agent loop transition", "ai", aiName, "state", state)
	}
}

// serializeCalls renders proposed-but-undispatched calls as a JSON
// string, matching jaiger/main.py's auto_call=False return path.
func serializeCalls(calls []rtproto.ToolCall) (string, error) {
	payload, err := json.Marshal(calls)
	if err != nil {
		return "", fmt.Errorf("marshal calls: %w", err)
	}
	return string(payload), nil
}

// runHook executes fn, recovering a panic into a logged, swallowed
// errs.ErrHookPanicked so a misbehaving on_call/on_result callback never
// aborts the loop, matching jaiger/main.py's try/except around each hook.
func runHook(ctx context.Context, logger *observability.Logger, name string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			if logger != nil {
				logger.Error(ctx, "hook panicked", "hook", name, "error", errs.ErrHookPanicked, "recovered", r)
			}
		}
	}()
	fn()
}
