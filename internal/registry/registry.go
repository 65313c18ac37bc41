// Package registry tracks the fleet of configured model drivers and
// broadcasts tool-manifest changes to all of them, grounded on
// jaiger/ai/ai_manager.py's AiManager restated in the map+RWMutex idiom
// internal/mcp.Manager uses for its own fleet of server connections.
package registry

import (
	"context"
	"fmt"
	"sync"

	"github.com/jaiger-go/agentrt/internal/errs"
	"github.com/jaiger-go/agentrt/internal/observability"
	"github.com/jaiger-go/agentrt/internal/providers"
	"github.com/jaiger-go/agentrt/pkg/rtproto"
)

// Registry owns one Driver per configured name.
type Registry struct {
	logger *observability.Logger
	mu     sync.RWMutex
	ais    map[string]providers.Driver
	// jobSem holds one buffered-size-1 channel per name, used as a
	// mutex-per-model: acquiring it before every driver.Prompt call
	// serialises concurrent prompts to the same model (the HTTP façade
	// and an RPC-triggered broadcast can otherwise race on a driver's
	// mutable history slice), matching the jobSem chan struct{} pattern
	// the teacher's own agent loop uses for the same purpose.
	jobSem map[string]chan struct{}
}

// New builds an empty Registry.
func New(logger *observability.Logger) *Registry {
	return &Registry{
		logger: logger,
		ais:    make(map[string]providers.Driver),
		jobSem: make(map[string]chan struct{}),
	}
}

// Names returns every currently registered driver name.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.ais))
	for name := range r.ais {
		names = append(names, name)
	}
	return names
}

// Add registers a driver under name. Returns errs.AlreadyExistsError if
// the name is taken, matching jaiger/ai/ai_manager.py's add_ai
// precondition.
func (r *Registry) Add(name string, driver providers.Driver) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.ais[name]; exists {
		return errs.NewAlreadyExistsError("ai", name)
	}
	r.ais[name] = driver
	r.jobSem[name] = make(chan struct{}, 1)
	return nil
}

// Remove drops a driver by name. Returns errs.NotFoundError if it is
// not registered.
func (r *Registry) Remove(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.ais[name]; !exists {
		return errs.NewNotFoundError("ai", name)
	}
	delete(r.ais, name)
	delete(r.jobSem, name)
	return nil
}

// Prompt forwards text to the named driver's conversation, serialised
// against every other Prompt/RegisterTools call for the same name via
// jobSem so concurrent callers (the HTTP façade, an RPC-triggered
// broadcast) never race on the driver's mutable history.
func (r *Registry) Prompt(ctx context.Context, name, text string) (rtproto.PromptResult, error) {
	r.mu.RLock()
	driver, exists := r.ais[name]
	sem := r.jobSem[name]
	r.mu.RUnlock()

	if !exists {
		return rtproto.PromptResult{}, errs.NewNotFoundError("ai", name)
	}

	select {
	case sem <- struct{}{}:
	case <-ctx.Done():
		return rtproto.PromptResult{}, ctx.Err()
	}
	defer func() { <-sem }()

	return driver.Prompt(ctx, text)
}

// RegisterTools broadcasts the current tool fleet to every driver in
// parallel, collecting and logging every per-driver failure rather than
// stopping at the first one, grounded on jaiger/ai/ai_manager.py's
// register_tools (ThreadPoolExecutor fan-out, aggregate success flag).
// Go's native goroutines/channels stand in for the thread pool, matching
// how this teacher's codebase handles fan-out everywhere else instead
// of reaching for a worker-pool library for a one-shot broadcast.
func (r *Registry) RegisterTools(ctx context.Context, tools []rtproto.ToolInfo) error {
	r.mu.RLock()
	snapshot := make(map[string]providers.Driver, len(r.ais))
	sems := make(map[string]chan struct{}, len(r.ais))
	for name, driver := range r.ais {
		snapshot[name] = driver
		sems[name] = r.jobSem[name]
	}
	r.mu.RUnlock()

	prompt, err := providers.RegisterToolsPrompt(tools)
	if err != nil {
		return fmt.Errorf("render register-tools prompt: %w", err)
	}

	type outcome struct {
		name string
		err  error
	}

	results := make(chan outcome, len(snapshot))
	var wg sync.WaitGroup
	for name, driver := range snapshot {
		wg.Add(1)
		go func(name string, driver providers.Driver, sem chan struct{}) {
			defer wg.Done()
			select {
			case sem <- struct{}{}:
			case <-ctx.Done():
				results <- outcome{name: name, err: ctx.Err()}
				return
			}
			defer func() { <-sem }()

			_, err := driver.Prompt(ctx, prompt)
			results <- outcome{name: name, err: err}
		}(name, driver, sems[name])
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	hasError := false
	for res := range results {
		if res.err != nil {
			hasError = true
			if r.logger != nil {
				r.logger.Error(ctx, "failed to register tools", "ai", res.name, "error", res.err)
			}
		}
	}
	if hasError {
		return fmt.Errorf("register tools: one or more drivers failed")
	}
	return nil
}
