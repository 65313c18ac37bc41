// Package providers implements the uniform model driver interface this
// runtime speaks to four LLM vendors through, plus the shared preamble
// protocol that primes every driver to reply in the PromptResult JSON
// shape. Each driver keeps its own conversation state as an explicit
// message history that it resends on every turn; the per-driver doc
// comments note where this differs from the session style of jaiger's
// ai/*_model.py drivers.
package providers

import (
	"context"

	"github.com/jaiger-go/agentrt/pkg/rtproto"
)

// Driver is the uniform interface every vendor-specific model driver
// satisfies. A single Driver instance holds one conversation's worth of
// state; registry.Registry owns one Driver per configured AiConfig
// entry.
type Driver interface {
	// Name is the driver's configured name (AiConfig.Name), not the
	// vendor or model — several drivers can share a vendor/model pair
	// under different names.
	Name() string

	// Prompt sends text as the next turn in this driver's conversation
	// and returns the model's structured reply.
	Prompt(ctx context.Context, text string) (rtproto.PromptResult, error)
}

// preambleTemplate, rendered by Preamble, is sent as the first turn of
// every driver's conversation, before any caller-supplied prompt, so the
// model commits to replying in the PromptResult JSON shape for the rest
// of the session. Grounded verbatim in meaning on jaiger/ai/model.py's
// Model.__init__ preamble; the type-schema fragments are filled in from
// the hand-written promptResultSchema and toolCallSchema constants
// rather than a Python-reflected literal,
// since Go has no runtime type-to-JSON-schema reflection equivalent to
// get_type_schema.
const preambleTemplate = `You are a helpful AI assistant who is capable of the following:
* Responding to prompts ONLY with a JSON object matching this schema: %s
* Breaking down user queries step-by-step and thinking carefully about how to respond.
* Deciding whether or not tool call(s) should be made. Tools will be made available for you to call if you want to execute actions or obtain further information to answer the query. The description of available tools may be provided in future prompts; when a new tool description is provided, remember it for future queries.
* If no tool needs to be called, speak directly to the user: put your speech in the 'text' property and set 'calls' to null.
* If you are performing tool call(s), set 'calls' to an array of ToolCall objects matching this schema: %s, and set 'text' to null. If a call succeeds, its output is in the CallResult's 'result' property and 'error' is empty. If a call fails, 'error' contains the failure message and 'result' is empty.
* After performing tool call(s), expect the next prompt to be the result(s) of the call(s), one CallResult per call, in the same order. You may then make further tool call(s) or speak directly to the user.
`

// Preamble renders the preamble text sent as every driver's opening turn.
func Preamble() string {
	return sprintfPreamble(promptResultSchema, toolCallSchema)
}

// RegisterToolsPrompt renders the broadcast text sent to a driver when
// the tool fleet changes, grounded on jaiger/ai/model.py's
// register_tools (`These tools are now available:\n{json}`).
func RegisterToolsPrompt(tools []rtproto.ToolInfo) (string, error) {
	return renderRegisterToolsPrompt(tools)
}
