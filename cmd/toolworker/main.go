// Command toolworker is the out-of-process tool worker binary
// internal/supervisor.Supervisor execs once per configured tool. It
// resolves the tool type to a constructor via internal/toolspec's
// explicit registry, then runs internal/toolworker.Host over its own
// stdin/stdout, grounded on cmd/nexus-plugin-runner/main.go's flag-based
// subprocess CLI shape (no cobra here: a worker process parses two
// flags and runs, it never has subcommands of its own).
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	// Registers every built-in tool type with internal/toolspec as a
	// side effect of being imported, the same way examples/tools/echo
	// registers itself.
	_ "github.com/jaiger-go/agentrt/examples/tools/echo"
	"github.com/jaiger-go/agentrt/internal/toolspec"
	"github.com/jaiger-go/agentrt/internal/toolworker"
)

func main() {
	toolType := flag.String("type", "", "Registered tool type to run")
	configJSON := flag.String("config", "{}", "Tool config as a JSON object")
	flag.Parse()

	if *toolType == "" {
		fmt.Fprintln(os.Stderr, "toolworker: --type is required")
		os.Exit(2)
	}

	factory, exists := toolspec.Lookup(*toolType)
	if !exists {
		fmt.Fprintf(os.Stderr, "toolworker: unknown tool type %q\n", *toolType)
		os.Exit(2)
	}

	var config map[string]any
	if err := json.Unmarshal([]byte(*configJSON), &config); err != nil {
		fmt.Fprintf(os.Stderr, "toolworker: invalid --config JSON: %v\n", err)
		os.Exit(2)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	host := toolworker.NewHost(factory(), os.Stdin, os.Stdout)
	if err := host.Run(ctx, config); err != nil {
		fmt.Fprintf(os.Stderr, "toolworker: %v\n", err)
		os.Exit(1)
	}
}
