// Package httpfacade exposes the runtime's callback set over a single
// POST /call endpoint, grounded on jaiger/http/http_server.py's
// FastAPI HttpServer: one handler dispatches by Call.Function and
// always answers 200 with a CallResult, putting any failure in the
// body's error field rather than the HTTP status line.
package httpfacade

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/jaiger-go/agentrt/internal/observability"
	"github.com/jaiger-go/agentrt/pkg/rtproto"
)

// Callback handles one dispatched function by name.
type Callback func(ctx context.Context, args []any, kwargs map[string]any) (any, error)

// Facade is an http.Handler exposing registered callbacks over POST
// /call.
type Facade struct {
	callbacks map[string]Callback
	logger    *observability.Logger
	metrics   *observability.Metrics
}

// New builds a Facade over the given callback set.
func New(callbacks map[string]Callback, logger *observability.Logger, metrics *observability.Metrics) *Facade {
	return &Facade{callbacks: callbacks, logger: logger, metrics: metrics}
}

// Mux builds an http.ServeMux with the facade's one route registered.
func (f *Facade) Mux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/call", f.handleCall)
	return mux
}

func (f *Facade) handleCall(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var call rtproto.Call
	if err := json.NewDecoder(r.Body).Decode(&call); err != nil {
		f.writeResult(w, rtproto.NewCallError("malformed call: "+err.Error()))
		return
	}

	result := f.dispatch(ctx, call)
	if f.metrics != nil {
		status := "success"
		if result.Failed() {
			status = "error"
		}
		f.metrics.RecordHTTPCall(call.Function, status)
	}
	f.writeResult(w, result)
}

func (f *Facade) dispatch(ctx context.Context, call rtproto.Call) rtproto.CallResult {
	cb, exists := f.callbacks[call.Function]
	if !exists {
		result := rtproto.NewCallError("unknown function: " + call.Function)
		result.CallID = call.CallID
		return result
	}

	value, err := cb(ctx, call.Args, call.Kwargs)
	var result rtproto.CallResult
	if err != nil {
		if f.logger != nil {
			f.logger.Error(ctx, "http facade call failed", "function", call.Function, "error", err)
		}
		result = rtproto.NewCallError(err.Error())
	} else {
		result = rtproto.NewCallResult(value)
	}
	result.CallID = call.CallID
	return result
}

// writeResult always answers 200, matching the http_server.py semantics
// this package is grounded on: a failed call is still a successful HTTP
// exchange, the failure lives in CallResult.Error.
func (f *Facade) writeResult(w http.ResponseWriter, result rtproto.CallResult) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(result)
}
