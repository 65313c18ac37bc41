// Package orchestrator is the composition root tying config, tool
// supervision, model drivers, and the RPC/HTTP transports together into
// one runtime, grounded on jaiger/main.py's Jaiger class (construction,
// start/stop ordering, callback table) restated in the bring-up-in-
// order idiom internal/gateway.Server.Start/Stop uses for its own much
// larger subsystem list.
package orchestrator

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/jaiger-go/agentrt/internal/agentloop"
	"github.com/jaiger-go/agentrt/internal/httpfacade"
	"github.com/jaiger-go/agentrt/internal/observability"
	"github.com/jaiger-go/agentrt/internal/providers"
	"github.com/jaiger-go/agentrt/internal/registry"
	"github.com/jaiger-go/agentrt/internal/rpcbroker"
	"github.com/jaiger-go/agentrt/internal/supervisor"
	"github.com/jaiger-go/agentrt/pkg/rtconfig"
)

// Runtime owns every long-lived subsystem this process runs.
type Runtime struct {
	config  *rtconfig.MainConfig
	logger  *observability.Logger
	metrics *observability.Metrics

	Registry   *registry.Registry
	Supervisor *supervisor.Supervisor
	Broker     *rpcbroker.Broker
	Facade     *httpfacade.Facade

	httpServer *http.Server
}

// New constructs a Runtime from config without starting anything,
// matching Jaiger.__init__'s construction-without-side-effects shape.
func New(cfg *rtconfig.MainConfig, toolWorkerBinary string, logger *observability.Logger, metrics *observability.Metrics) *Runtime {
	reg := registry.New(logger)
	sup := supervisor.New(toolWorkerBinary, logger, metrics)
	broker := rpcbroker.New(logger)

	rt := &Runtime{
		config:     cfg,
		logger:     logger,
		metrics:    metrics,
		Registry:   reg,
		Supervisor: sup,
		Broker:     broker,
	}

	callbacks := map[string]httpfacade.Callback{
		"call_tool": rt.callToolCallback,
		"tools":     rt.toolsCallback,
		"ais":       rt.aisCallback,
		"prompt":    rt.promptCallback,
	}
	rt.Facade = httpfacade.New(callbacks, logger, metrics)

	return rt
}

// Start brings up tool workers, then registers configured model drivers,
// then broadcasts the tool fleet to them, then starts the HTTP façade —
// the same order as Jaiger.start(): tools first, ais second,
// register_tools third.
func (rt *Runtime) Start(ctx context.Context) error {
	if err := rt.Supervisor.StartMany(ctx, rt.config.Tools); err != nil {
		return fmt.Errorf("start tool workers: %w", err)
	}

	for _, aiCfg := range rt.config.Ais {
		driver, err := buildDriver(ctx, aiCfg)
		if err != nil {
			return fmt.Errorf("build driver %q: %w", aiCfg.Name, err)
		}
		if err := rt.Registry.Add(aiCfg.Name, driver); err != nil {
			return fmt.Errorf("register driver %q: %w", aiCfg.Name, err)
		}
	}

	tools, err := rt.Supervisor.Tools(ctx)
	if err != nil {
		return fmt.Errorf("query tool fleet: %w", err)
	}
	if err := rt.Registry.RegisterTools(ctx, tools); err != nil {
		rt.logger.Warn(ctx, "one or more drivers failed tool registration", "error", err)
	}

	if rt.config.Settings != nil && rt.config.Settings.Server != nil && rt.config.Settings.Server.HTTP != nil {
		if err := rt.startHTTPServer(rt.config.Settings.Server.HTTP); err != nil {
			return fmt.Errorf("start http facade: %w", err)
		}
	}

	return nil
}

// Stop tears down in the reverse order Start brought things up: the
// HTTP façade first, then the model drivers, then the tool workers.
func (rt *Runtime) Stop(ctx context.Context, timeout time.Duration) error {
	if rt.httpServer != nil {
		shutdownCtx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		if err := rt.httpServer.Shutdown(shutdownCtx); err != nil {
			rt.logger.Warn(ctx, "http facade shutdown error", "error", err)
		}
	}

	for _, name := range rt.Registry.Names() {
		if err := rt.Registry.Remove(name); err != nil {
			rt.logger.Warn(ctx, "error removing driver", "ai", name, "error", err)
		}
	}

	if err := rt.Supervisor.StopMany(timeout); err != nil {
		rt.logger.Warn(ctx, "error stopping tool workers", "error", err)
	}

	return nil
}

func (rt *Runtime) startHTTPServer(cfg *rtconfig.HTTPConfig) error {
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	rt.httpServer = &http.Server{Addr: addr, Handler: rt.Facade.Mux()}

	go func() {
		if err := rt.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			rt.logger.Error(context.Background(), "http facade stopped", "error", err)
		}
	}()
	return nil
}

func (rt *Runtime) callToolCallback(ctx context.Context, args []any, kwargs map[string]any) (any, error) {
	tool, _ := kwargs["tool"].(string)
	function, _ := kwargs["function"].(string)
	callArgs, _ := kwargs["args"].([]any)
	callKwargs, _ := kwargs["kwargs"].(map[string]any)

	result, err := rt.Supervisor.Call(ctx, tool, function, callArgs, callKwargs)
	if err != nil {
		return nil, err
	}
	if result.Failed() {
		return nil, fmt.Errorf("%s", result.Error)
	}
	return result.Result, nil
}

func (rt *Runtime) toolsCallback(ctx context.Context, _ []any, _ map[string]any) (any, error) {
	return rt.Supervisor.Tools(ctx)
}

func (rt *Runtime) aisCallback(_ context.Context, _ []any, _ map[string]any) (any, error) {
	return rt.Registry.Names(), nil
}

func (rt *Runtime) promptCallback(ctx context.Context, _ []any, kwargs map[string]any) (any, error) {
	name, _ := kwargs["name"].(string)
	text, _ := kwargs["text"].(string)
	autoCall := true
	if v, ok := kwargs["auto_call"].(bool); ok {
		autoCall = v
	}

	return agentloop.Run(ctx, rt.Registry, rt.Supervisor, rt.logger, name, text, agentloop.Config{
		AutoCall:  autoCall,
		MaxRounds: 0,
	})
}

func buildDriver(ctx context.Context, cfg rtconfig.AiConfig) (providers.Driver, error) {
	apiKey, _ := cfg.Config["api_key"].(string)
	baseURL, _ := cfg.Config["base_url"].(string)

	switch cfg.Type {
	case "anthropic":
		return providers.NewAnthropicDriver(ctx, cfg.Name, providers.AnthropicConfig{
			APIKey:  apiKey,
			Model:   cfg.Model,
			BaseURL: baseURL,
		})
	case "openai":
		return providers.NewOpenAIDriver(ctx, cfg.Name, providers.OpenAIConfig{
			APIKey:  apiKey,
			Model:   cfg.Model,
			BaseURL: baseURL,
		})
	case "google":
		return providers.NewGoogleDriver(ctx, cfg.Name, providers.GoogleConfig{
			APIKey:  apiKey,
			Model:   cfg.Model,
			BaseURL: baseURL,
		})
	case "ollama":
		return providers.NewOllamaDriver(ctx, cfg.Name, providers.OllamaConfig{
			BaseURL: baseURL,
			Model:   cfg.Model,
		})
	default:
		return nil, fmt.Errorf("unsupported ai type %q", cfg.Type)
	}
}
