// Package errs defines the error taxonomy shared across the runtime:
// configuration problems, registry conflicts, remote failures surfaced
// through the Call/CallResult envelope, transport timeouts, model
// protocol violations, and dead tool workers. The types that carry a
// Cause implement Unwrap so callers can use errors.Is/errors.As through
// the chain.
package errs

import (
	"errors"
	"fmt"
)

// Sentinel errors for conditions that don't need extra structured context.
var (
	// ErrHookPanicked is logged alongside a recovered panic from a
	// best-effort hook (on_call/on_result); hook failures are always
	// swallowed by the caller, never propagated into the agent loop.
	ErrHookPanicked = errors.New("hook panicked")
)

// ConfigError reports a problem loading or validating a MainConfig.
type ConfigError struct {
	Context string
	Cause   error
}

func NewConfigError(context string, cause error) *ConfigError {
	return &ConfigError{Context: context, Cause: cause}
}

func (e *ConfigError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("config: %s: %v", e.Context, e.Cause)
	}
	return fmt.Sprintf("config: %s", e.Context)
}

func (e *ConfigError) Unwrap() error { return e.Cause }

// AlreadyExistsError reports a registration conflict: a tool or model
// name that's already in use in a Supervisor or Registry.
type AlreadyExistsError struct {
	Kind string // "tool" | "ai"
	Name string
}

func NewAlreadyExistsError(kind, name string) *AlreadyExistsError {
	return &AlreadyExistsError{Kind: kind, Name: name}
}

func (e *AlreadyExistsError) Error() string {
	return fmt.Sprintf("%s %q already exists", e.Kind, e.Name)
}

// NotFoundError reports a lookup against an unregistered tool, model,
// or function name.
type NotFoundError struct {
	Kind string // "tool" | "ai" | "function"
	Name string
}

func NewNotFoundError(kind, name string) *NotFoundError {
	return &NotFoundError{Kind: kind, Name: name}
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Kind, e.Name)
}

// RemoteError wraps a failure reported by a tool worker or RPC peer
// through a CallResult.Error string, preserving it as a Go error without
// losing the remote trace text (which is usually a formatted traceback
// or panic message from the far side of a process boundary).
type RemoteError struct {
	Peer  string // tool name, ai name, or rpc identity that reported the failure
	Trace string
}

func NewRemoteError(peer, trace string) *RemoteError {
	return &RemoteError{Peer: peer, Trace: trace}
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("remote error from %s: %s", e.Peer, e.Trace)
}

// TimeoutError reports that a call did not receive a response within
// its configured deadline.
type TimeoutError struct {
	Peer     string
	Function string
	Timeout  string
}

func NewTimeoutError(peer, function, timeout string) *TimeoutError {
	return &TimeoutError{Peer: peer, Function: function, Timeout: timeout}
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("call to %s.%s timed out after %s", e.Peer, e.Function, e.Timeout)
}

// ModelProtocolError reports that a model driver's reply didn't decode
// into a valid rtproto.PromptResult: malformed JSON, or both/neither of
// text and calls set.
type ModelProtocolError struct {
	AiName string
	Cause  error
}

func NewModelProtocolError(aiName string, cause error) *ModelProtocolError {
	return &ModelProtocolError{AiName: aiName, Cause: cause}
}

func (e *ModelProtocolError) Error() string {
	return fmt.Sprintf("model %s returned an invalid prompt result: %v", e.AiName, e.Cause)
}

func (e *ModelProtocolError) Unwrap() error { return e.Cause }

// ToolUnavailableError reports that a tool's worker process has died
// (crashed, was killed, or never started) and can't serve a call.
type ToolUnavailableError struct {
	Tool  string
	Cause error
}

func NewToolUnavailableError(tool string, cause error) *ToolUnavailableError {
	return &ToolUnavailableError{Tool: tool, Cause: cause}
}

func (e *ToolUnavailableError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("tool %q unavailable: %v", e.Tool, e.Cause)
	}
	return fmt.Sprintf("tool %q unavailable", e.Tool)
}

func (e *ToolUnavailableError) Unwrap() error { return e.Cause }

// IsNotFound reports whether err is or wraps a NotFoundError.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

// IsAlreadyExists reports whether err is or wraps an AlreadyExistsError.
func IsAlreadyExists(err error) bool {
	var ae *AlreadyExistsError
	return errors.As(err, &ae)
}

// IsToolUnavailable reports whether err is or wraps a ToolUnavailableError.
func IsToolUnavailable(err error) bool {
	var tu *ToolUnavailableError
	return errors.As(err, &tu)
}
