// Package supervisor manages the fleet of out-of-process tool workers:
// launching them, stopping them, querying their advertised specs, and
// dispatching calls to them. It is the Go counterpart of jaiger's
// ToolManager, generalized from a multiprocessing.Pipe per tool to a
// real subprocess (internal/mcp's Manager/Client split is the Go
// idiom this follows — one handle per live worker behind a name-keyed
// map guarded by a mutex).
package supervisor

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/jaiger-go/agentrt/internal/errs"
	"github.com/jaiger-go/agentrt/internal/observability"
	"github.com/jaiger-go/agentrt/pkg/rtconfig"
	"github.com/jaiger-go/agentrt/pkg/rtproto"
)

// defaultCallTimeout bounds how long Call waits for a worker's response.
// jaiger/tool_manager.py has no per-call timeout (the original blocks
// on the pipe indefinitely); this module adds one since a wedged
// worker should not be able to hang its caller forever.
const defaultCallTimeout = 30 * time.Second

// Supervisor owns every running tool worker.
type Supervisor struct {
	binary  string // path to the toolworker binary this supervisor execs
	logger  *observability.Logger
	metrics *observability.Metrics

	mu      sync.RWMutex
	workers map[string]*workerHandle

	callTimeout time.Duration
}

// New creates a Supervisor that launches workers by exec'ing binary.
// metrics may be nil.
func New(binary string, logger *observability.Logger, metrics *observability.Metrics) *Supervisor {
	if logger == nil {
		logger = observability.NewLogger(observability.LogConfig{})
	}
	return &Supervisor{
		binary:      binary,
		logger:      logger.WithFields("component", "supervisor"),
		metrics:     metrics,
		workers:     make(map[string]*workerHandle),
		callTimeout: defaultCallTimeout,
	}
}

// Start launches a single tool worker. It returns AlreadyExistsError if
// a worker under that name is already running.
func (s *Supervisor) Start(ctx context.Context, cfg rtconfig.ToolConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.workers[cfg.Name]; exists {
		return errs.NewAlreadyExistsError("tool", cfg.Name)
	}

	w, err := spawnWorker(ctx, s.binary, cfg, s.logger)
	if err != nil {
		return err
	}

	s.workers[cfg.Name] = w
	if s.metrics != nil {
		s.metrics.ToolWorkerStarted()
	}
	s.logger.Info(ctx, "started tool worker", "tool", cfg.Name, "type", cfg.Type)
	return nil
}

// StartMany launches every tool in cfgs. It is all-or-nothing on the
// precondition: if any name in cfgs collides with an already-running
// worker or is duplicated within cfgs itself, no worker is started.
// This mirrors jaiger's ToolManager.start_many, which validates every
// name before launching any process. After the precondition passes,
// launches proceed best-effort — a later tool's launch failure does not
// roll back tools already started, matching the original's behavior of
// launching what it can and surfacing failures per tool.
func (s *Supervisor) StartMany(ctx context.Context, cfgs []rtconfig.ToolConfig) error {
	s.mu.RLock()
	seen := make(map[string]bool, len(cfgs))
	for _, cfg := range cfgs {
		if s.workers[cfg.Name] != nil || seen[cfg.Name] {
			s.mu.RUnlock()
			return errs.NewAlreadyExistsError("tool", cfg.Name)
		}
		seen[cfg.Name] = true
	}
	s.mu.RUnlock()

	var firstErr error
	for _, cfg := range cfgs {
		if err := s.Start(ctx, cfg); err != nil {
			s.logger.Error(ctx, "failed to start tool", "tool", cfg.Name, "error", err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

// Stop terminates a single tool worker, joining its process within
// timeout. If the process is still alive after timeout it is killed
// regardless, matching jaiger's stop() (warn and drop the entry either
// way).
func (s *Supervisor) Stop(name string, timeout time.Duration) error {
	s.mu.Lock()
	w, exists := s.workers[name]
	if exists {
		delete(s.workers, name)
	}
	s.mu.Unlock()

	if !exists {
		return errs.NewNotFoundError("tool", name)
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	err := w.stop(ctx)
	if s.metrics != nil {
		s.metrics.ToolWorkerStopped()
	}
	if ctx.Err() != nil {
		s.logger.Warn(context.Background(), "tool worker did not terminate within timeout", "tool", name)
	}
	return err
}

// StopMany stops every currently-running worker, best effort: it
// collects and returns the first error but attempts to stop all of
// them regardless of earlier failures.
func (s *Supervisor) StopMany(timeout time.Duration) error {
	s.mu.RLock()
	names := make([]string, 0, len(s.workers))
	for name := range s.workers {
		names = append(names, name)
	}
	s.mu.RUnlock()

	var firstErr error
	for _, name := range names {
		if err := s.Stop(name, timeout); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Tools queries every running worker's spec concurrently and returns
// the aggregate. A query failure for one tool does not block or fail
// the others — jaiger's tools() uses a thread pool map that would
// propagate the first exception; this module isolates failures per
// tool instead (a deliberate improvement, not carried forward from the
// original).
func (s *Supervisor) Tools(ctx context.Context) ([]rtproto.ToolInfo, error) {
	s.mu.RLock()
	names := make([]string, 0, len(s.workers))
	workers := make([]*workerHandle, 0, len(s.workers))
	for name, w := range s.workers {
		names = append(names, name)
		workers = append(workers, w)
	}
	s.mu.RUnlock()

	results := make([]rtproto.ToolInfo, len(names))
	g, gctx := errgroup.WithContext(ctx)
	for i := range names {
		i := i
		g.Go(func() error {
			result, err := workers[i].call(rtproto.Call{Function: specsFunction})
			if err != nil {
				s.logger.Warn(gctx, "failed to query tool specs", "tool", names[i], "error", err)
				results[i] = rtproto.ToolInfo{Name: names[i]}
				return nil
			}
			if result.Failed() {
				s.logger.Warn(gctx, "tool reported error querying specs", "tool", names[i], "error", result.Error)
				results[i] = rtproto.ToolInfo{Name: names[i]}
				return nil
			}
			spec := decodeToolSpec(result.Result)
			results[i] = rtproto.ToolInfo{Name: names[i], Specs: spec}
			return nil
		})
	}
	_ = g.Wait() // per-tool errors are already isolated above; g.Wait() never returns non-nil here

	return results, nil
}

// Call dispatches a single function call to the named tool and waits
// for its result, bounded by the supervisor's call timeout.
func (s *Supervisor) Call(ctx context.Context, name, function string, args []any, kwargs map[string]any) (rtproto.CallResult, error) {
	s.mu.RLock()
	w, exists := s.workers[name]
	s.mu.RUnlock()

	if !exists {
		return rtproto.CallResult{}, errs.NewNotFoundError("tool", name)
	}

	type callOutcome struct {
		result rtproto.CallResult
		err    error
	}
	ch := make(chan callOutcome, 1)

	start := time.Now()
	go func() {
		result, err := w.call(rtproto.Call{Function: function, Args: args, Kwargs: kwargs})
		ch <- callOutcome{result, err}
	}()

	timeout := s.callTimeout
	select {
	case outcome := <-ch:
		status := "success"
		if outcome.err != nil || outcome.result.Failed() {
			status = "error"
		}
		if s.metrics != nil {
			s.metrics.RecordToolCall(name, status, time.Since(start).Seconds())
		}
		return outcome.result, outcome.err
	case <-ctx.Done():
		return rtproto.CallResult{}, ctx.Err()
	case <-time.After(timeout):
		return rtproto.CallResult{}, errs.NewTimeoutError(name, function, timeout.String())
	}
}

// CallAsync runs Call in a goroutine and returns a channel that
// receives exactly one outcome, mirroring jaiger's
// ToolManager.call_async (a thread-pool submission of the same call
// path used synchronously).
func (s *Supervisor) CallAsync(ctx context.Context, name, function string, args []any, kwargs map[string]any) <-chan CallOutcome {
	out := make(chan CallOutcome, 1)
	go func() {
		result, err := s.Call(ctx, name, function, args, kwargs)
		out <- CallOutcome{Result: result, Err: err}
	}()
	return out
}

// CallOutcome is the payload delivered on a CallAsync channel.
type CallOutcome struct {
	Result rtproto.CallResult
	Err    error
}

// decodeToolSpec recovers a typed ToolSpec from a CallResult.Result
// value that arrived as an untyped `any` after round-tripping through
// JSON (it decodes to map[string]any, not rtproto.ToolSpec, since
// json.Unmarshal has no static type to target). Re-encoding and
// decoding through the typed struct is cheaper to reason about than
// hand-walking the map.
func decodeToolSpec(raw any) rtproto.ToolSpec {
	var spec rtproto.ToolSpec
	data, err := json.Marshal(raw)
	if err != nil {
		return spec
	}
	_ = json.Unmarshal(data, &spec)
	return spec
}

// specsFunction mirrors toolworker's reserved manifest-query name.
const specsFunction = "__specs__"
