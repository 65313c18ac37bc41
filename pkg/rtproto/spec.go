package rtproto

// ToolParam describes one parameter of a tool function.
type ToolParam struct {
	Name        string `json:"name"`
	Type        string `json:"type"`
	Description string `json:"description,omitempty"`
	Optional    bool   `json:"optional,omitempty"`
}

// ToolReturns describes a tool function's return value.
type ToolReturns struct {
	Type        string `json:"type"`
	Description string `json:"description,omitempty"`
}

// ToolRaise describes an error a tool function may surface.
type ToolRaise struct {
	Type        string `json:"type"`
	Description string `json:"description,omitempty"`
}

// FunctionSpec describes one callable function exposed by a tool.
type FunctionSpec struct {
	Name        string       `json:"name"`
	Description string       `json:"description,omitempty"`
	Params      []ToolParam  `json:"params,omitempty"`
	Returns     *ToolReturns `json:"returns,omitempty"`
	Raises      []ToolRaise  `json:"raises,omitempty"`
}

// ToolSpec is the full manifest a tool worker reports for its process:
// a name plus every function it exposes. Every model is sent the
// combined list of running tools' specs in the register-tools prompt so
// it knows what it can call and with which arguments.
type ToolSpec struct {
	Name      string         `json:"name"`
	Functions []FunctionSpec `json:"functions"`
}

// ToolInfo pairs a running tool's registered name with its advertised
// spec, as returned by Supervisor.Tools().
type ToolInfo struct {
	Name  string   `json:"name"`
	Specs ToolSpec `json:"specs"`
}
