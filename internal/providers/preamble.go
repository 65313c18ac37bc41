package providers

import (
	"encoding/json"
	"fmt"

	"github.com/jaiger-go/agentrt/pkg/rtproto"
)

// promptResultSchema and toolCallSchema are hand-written JSON-schema-ish
// descriptions of rtproto.PromptResult and rtproto.ToolCall, embedded in
// the preamble the same way jaiger/utils.py's get_type_schema embeds a
// Pydantic model's reflected schema. Go has no runtime equivalent of
// Python's type introspection, so these are declared directly instead
// of generated — the shape must stay in sync with pkg/rtproto's actual
// struct tags by hand.
const promptResultSchema = `{"text": "string or null", "calls": "array of ToolCall or null"}`

const toolCallSchema = `{"tool": "string", "function": "string", "args": "array", "kwargs": "object"}`

func sprintfPreamble(promptSchema, callSchema string) string {
	return fmt.Sprintf(preambleTemplate, promptSchema, callSchema)
}

func renderRegisterToolsPrompt(tools []rtproto.ToolInfo) (string, error) {
	data, err := json.Marshal(tools)
	if err != nil {
		return "", fmt.Errorf("marshal tool list: %w", err)
	}
	return fmt.Sprintf("These tools are now available:\n%s", data), nil
}
