// Package rtconfig defines the YAML-backed configuration this runtime's
// composition root (cmd/agentrtd) loads before wiring an orchestrator
// together. The shape mirrors jaiger's configs.py: a MainConfig with an
// optional server Settings block and a flat list of tool declarations,
// generalized with an explicit Ais list for model driver declarations.
package rtconfig

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/jaiger-go/agentrt/internal/errs"
)

// RPCConfig configures the identity-addressed RPC broker/server pair.
type RPCConfig struct {
	Host    string `yaml:"host"`
	Port    int    `yaml:"port"`
	Timeout int    `yaml:"timeout"` // seconds; defaults to 10 when zero.
}

// HTTPConfig configures the HTTP façade.
type HTTPConfig struct {
	Host    string `yaml:"host"`
	Port    int    `yaml:"port"`
	Timeout int    `yaml:"timeout"` // seconds; defaults to 10 when zero.
}

// ServerConfig holds the optional transport settings. Either field may
// be nil; a nil HTTP means no façade starts. RPC is parsed but the
// orchestrator does not start a broker or RPC server from it.
type ServerConfig struct {
	RPC  *RPCConfig  `yaml:"rpc"`
	HTTP *HTTPConfig `yaml:"http"`
}

// Settings wraps ServerConfig so the YAML document can add sibling
// top-level settings later without reshaping MainConfig.
type Settings struct {
	Server *ServerConfig `yaml:"server"`
}

// ToolConfig declares one out-of-process tool worker to launch at
// startup. Type selects the worker binary/registry entry; Config is
// passed through to the worker unexamined.
type ToolConfig struct {
	Name   string         `yaml:"name"`
	Type   string         `yaml:"type"`
	Config map[string]any `yaml:"config"`
}

// AiConfig declares one model driver to register at startup.
type AiConfig struct {
	Name   string         `yaml:"name"`
	Type   string         `yaml:"type"` // openai | google | anthropic | ollama
	Model  string         `yaml:"model"`
	Config map[string]any `yaml:"config"`
}

// MainConfig is the root configuration document.
type MainConfig struct {
	Settings *Settings    `yaml:"settings"`
	Tools    []ToolConfig `yaml:"tools"`
	Ais      []AiConfig   `yaml:"ais"`
}

// Load reads and parses a MainConfig from a YAML file at path.
func Load(path string) (*MainConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errs.NewConfigError(fmt.Sprintf("read config %s", path), err)
	}

	var cfg MainConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, errs.NewConfigError(fmt.Sprintf("parse config %s", path), err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks structural invariants Load can't catch via YAML
// decoding alone: duplicate tool/ai names, and unknown driver types.
func (c *MainConfig) Validate() error {
	seenTools := make(map[string]bool, len(c.Tools))
	for _, t := range c.Tools {
		if t.Name == "" {
			return errs.NewConfigError("tool entry missing name", nil)
		}
		if seenTools[t.Name] {
			return errs.NewConfigError(fmt.Sprintf("duplicate tool name %q", t.Name), nil)
		}
		seenTools[t.Name] = true
	}

	seenAis := make(map[string]bool, len(c.Ais))
	for _, a := range c.Ais {
		if a.Name == "" {
			return errs.NewConfigError("ai entry missing name", nil)
		}
		if seenAis[a.Name] {
			return errs.NewConfigError(fmt.Sprintf("duplicate ai name %q", a.Name), nil)
		}
		if !isSupportedAiType(a.Type) {
			return errs.NewConfigError(fmt.Sprintf("unsupported ai type %q for %q", a.Type, a.Name), nil)
		}
		seenAis[a.Name] = true
	}

	return nil
}

func isSupportedAiType(t string) bool {
	switch t {
	case "openai", "google", "anthropic", "ollama":
		return true
	default:
		return false
	}
}

func (c RPCConfig) TimeoutOrDefault() int {
	if c.Timeout <= 0 {
		return 10
	}
	return c.Timeout
}

func (c HTTPConfig) TimeoutOrDefault() int {
	if c.Timeout <= 0 {
		return 10
	}
	return c.Timeout
}
