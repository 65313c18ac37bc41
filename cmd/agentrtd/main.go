// Command agentrtd is the runtime's CLI entrypoint, grounded on
// cmd/nexus/main.go's cobra root command tree (one root, subcommands
// built in dedicated functions, persistent --config flag).
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/jaiger-go/agentrt/internal/observability"
	"github.com/jaiger-go/agentrt/internal/orchestrator"
	"github.com/jaiger-go/agentrt/pkg/rtconfig"
)

var (
	version = "dev"
	commit  = "none"
)

func main() {
	if err := buildRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func buildRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:     "agentrtd",
		Short:   "agentrtd brokers conversations between LLM providers and out-of-process tool workers",
		Version: fmt.Sprintf("%s (commit: %s)", version, commit),
	}
	root.AddCommand(buildServeCmd(), buildToolsCmd())
	return root
}

func buildServeCmd() *cobra.Command {
	var (
		configPath       string
		debug            bool
		toolWorkerBinary string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the runtime: launch configured tool workers, register configured models, and serve RPC/HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), configPath, toolWorkerBinary, debug)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "agentrt.yaml", "Path to YAML configuration file")
	cmd.Flags().BoolVarP(&debug, "debug", "d", false, "Enable debug logging")
	cmd.Flags().StringVar(&toolWorkerBinary, "tool-worker-binary", "agentrt-toolworker", "Path to the out-of-process tool worker binary")

	return cmd
}

func buildToolsCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "tools",
		Short: "List the tools configured in the config file",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := rtconfig.Load(configPath)
			if err != nil {
				return err
			}
			for _, tool := range cfg.Tools {
				fmt.Printf("%s (%s)\n", tool.Name, tool.Type)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", "agentrt.yaml", "Path to YAML configuration file")
	return cmd
}

func runServe(ctx context.Context, configPath, toolWorkerBinary string, debug bool) error {
	level := "info"
	if debug {
		level = "debug"
	}
	logger := observability.NewLogger(observability.LogConfig{Level: level, Format: "json"})
	metrics := observability.NewMetrics()

	cfg, err := rtconfig.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	rt := orchestrator.New(cfg, toolWorkerBinary, logger, metrics)

	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := rt.Start(ctx); err != nil {
		return fmt.Errorf("start runtime: %w", err)
	}
	logger.Info(ctx, "agentrtd started", "config", configPath)

	<-ctx.Done()
	logger.Info(ctx, "shutdown signal received, stopping runtime")

	return rt.Stop(context.Background(), 30*time.Second)
}
