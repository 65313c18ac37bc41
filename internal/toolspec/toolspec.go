// Package toolspec defines the contract a tool implements to run inside
// a toolworker host process, and the explicit manifest it reports in
// place of the runtime docstring reflection the original Python tools
// used (Go has no equivalent of inspect.getmembers/docstring_parser, so
// the spec is declared up front instead of derived).
package toolspec

import (
	"context"

	"github.com/jaiger-go/agentrt/pkg/rtproto"
)

// Tool is the interface a tool implementation satisfies. Configure is
// called once before Setup with the tool's ToolConfig.Config map;
// Setup/Teardown bracket the worker's lifetime; Specs reports the
// manifest returned by Supervisor.Tools() and broadcast to every model
// in the register-tools prompt; Invoke dispatches a single function call.
type Tool interface {
	// Configure receives the tool's configuration before Setup is called.
	Configure(config map[string]any) error

	// Setup runs once when the worker starts, after Configure.
	Setup(ctx context.Context) error

	// Teardown runs once when the worker is stopping, best effort.
	Teardown(ctx context.Context) error

	// Specs reports this tool's manifest.
	Specs() rtproto.ToolSpec

	// Invoke runs one function by name with the given positional and
	// keyword arguments, returning its result or an error. A single
	// Tool instance is only ever asked to run one Invoke at a time; the
	// toolworker host enforces this by constuction rather than Invoke
	// needing to be reentrant.
	Invoke(ctx context.Context, function string, args []any, kwargs map[string]any) (any, error)
}

// Factory constructs a new Tool instance for a given tool type string
// (the ToolConfig.Type field). Go has no dynamic "module.Class" import
// the way jaiger/utils.py's get_tool_class does, so tool types are
// resolved through this explicit registry instead.
type Factory func() Tool

var registry = map[string]Factory{}

// Register adds a tool type to the registry. Intended to be called
// from an init() function in the package that implements a tool type,
// mirroring how cmd/toolworker and examples/tools/echo wire themselves
// in.
func Register(toolType string, factory Factory) {
	registry[toolType] = factory
}

// Lookup resolves a tool type string to its Factory. ok is false if no
// tool type was registered under that name.
func Lookup(toolType string) (Factory, bool) {
	f, ok := registry[toolType]
	return f, ok
}
