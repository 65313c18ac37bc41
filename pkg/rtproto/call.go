// Package rtproto defines the wire types shared by every transport this
// runtime speaks: the tool worker's stdio protocol, the RPC broker/server/
// client, and the HTTP façade. All three carry the same Call/CallResult
// envelope so a tool invocation looks identical regardless of which
// transport delivered it.
package rtproto

import "encoding/json"

// Call is a request to invoke a named function with positional and
// keyword-style arguments. Kwargs exists because the tools this runtime
// wraps are typically invoked with named parameters; Args covers the
// positional case the same envelope needs to support.
type Call struct {
	Function string         `json:"function"`
	Args     []any          `json:"args,omitempty"`
	Kwargs   map[string]any `json:"kwargs,omitempty"`

	// CallID correlates a CallResult to the Call that produced it across
	// transports where requests can outstand concurrently (RPC broker,
	// tool worker pipelining). Empty when the transport serializes calls
	// one at a time and correlation isn't needed.
	CallID string `json:"call_id,omitempty"`
}

// CallResult is the outcome of a Call. Error is the canonical failure
// signal for every transport in this module: the empty string never
// means failure, and any non-empty string always does. Result is left
// as its zero value (nil) whenever Error is non-empty.
type CallResult struct {
	Result any    `json:"result,omitempty"`
	Error  string `json:"error"`
	CallID string `json:"call_id,omitempty"`
}

// Failed reports whether the result represents a failure.
func (r CallResult) Failed() bool {
	return r.Error != ""
}

// NewCallResult wraps a successful result.
func NewCallResult(result any) CallResult {
	return CallResult{Result: result}
}

// NewCallError wraps a failure message. msg must be non-empty; an empty
// message would be indistinguishable from success under this protocol's
// convention, so callers must supply one.
func NewCallError(msg string) CallResult {
	if msg == "" {
		msg = "unknown error"
	}
	return CallResult{Error: msg}
}

// ToolCall is a model-issued request to run a specific tool's function.
// It extends Call with the tool name the function belongs to.
type ToolCall struct {
	Tool     string         `json:"tool"`
	Function string         `json:"function"`
	Args     []any          `json:"args,omitempty"`
	Kwargs   map[string]any `json:"kwargs,omitempty"`
}

// AsCall projects a ToolCall onto the bare Call envelope a Supervisor
// dispatches to the named tool's worker.
func (tc ToolCall) AsCall() Call {
	return Call{Function: tc.Function, Args: tc.Args, Kwargs: tc.Kwargs}
}

// PromptResult is a model's response to a prompt: either prose (Text) or
// a batch of tool invocations (Calls), never both. This is a tagged sum
// rather than the "two nullable fields" shape the original protocol
// used, so a zero-value PromptResult can't accidentally satisfy both
// interpretations at once — construct one with NewPromptText or
// NewPromptCalls and it is valid by construction.
type PromptResult struct {
	Text  *string    `json:"text"`
	Calls []ToolCall `json:"calls"`
}

// NewPromptText builds a prose result.
func NewPromptText(text string) PromptResult {
	return PromptResult{Text: &text}
}

// NewPromptCalls builds a tool-call batch result. calls must be
// non-empty; callers proposing zero calls should use NewPromptText with
// an empty string instead, since an empty batch has no dispatchable
// meaning.
func NewPromptCalls(calls []ToolCall) PromptResult {
	return PromptResult{Calls: calls}
}

// IsCalls reports whether this result carries tool calls rather than text.
func (p PromptResult) IsCalls() bool {
	return p.Calls != nil
}

// Validate enforces the XOR invariant: exactly one of Text or Calls is
// set. Driver implementations call this after decoding a model's raw
// JSON reply, since an untrusted model can emit either field, both, or
// neither.
func (p PromptResult) Validate() error {
	hasText := p.Text != nil
	hasCalls := len(p.Calls) > 0
	if hasText == hasCalls {
		return errProtocolShape
	}
	return nil
}

// UnmarshalJSON decodes the original two-nullable-field wire shape
// (`{"text": ..., "calls": ...}`, either of which may be null or absent)
// into the tagged-sum representation, validating the XOR invariant in
// the same step.
func (p *PromptResult) UnmarshalJSON(data []byte) error {
	var raw struct {
		Text  *string    `json:"text"`
		Calls []ToolCall `json:"calls"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	p.Text = raw.Text
	p.Calls = raw.Calls
	return p.Validate()
}
