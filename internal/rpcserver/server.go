// Package rpcserver dispatches incoming RPC Calls to local callback
// functions and replies with a CallResult addressed back to the caller
// by CallID, grounded on jaiger/rpc/rpc_server.py's server_task
// (ThreadPoolExecutor-dispatch-and-reply loop) with one deliberate fix:
// jaiger/rpc/rpc_server.py completes a pending future and replies using
// `src` — a loop variable last bound by whichever recv_multipart() call
// happened to run most recently — rather than the src captured at the
// time that particular future's request arrived, so a reply can be sent
// to the wrong caller once more than one request is outstanding. This
// package captures the caller identity and CallID in the closure that
// submits each future, so every reply is addressed using the exact
// values captured at submission time, never a shared loop variable.
package rpcserver

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/jaiger-go/agentrt/internal/observability"
	"github.com/jaiger-go/agentrt/pkg/rtproto"
)

// Callback handles one dispatched function by name.
type Callback func(args []any, kwargs map[string]any) (any, error)

// Server connects to a broker under a fixed identity and answers Calls
// routed to it.
type Server struct {
	identity  string
	callbacks map[string]Callback
	logger    *observability.Logger

	conn   *websocket.Conn
	sendMu sync.Mutex
	wg     sync.WaitGroup
}

// New builds a Server. conn must already be dialed against the broker
// under identity.
func New(identity string, conn *websocket.Conn, callbacks map[string]Callback, logger *observability.Logger) *Server {
	return &Server{identity: identity, callbacks: callbacks, conn: conn, logger: logger}
}

// Run reads Calls until ctx is cancelled or the connection closes,
// dispatching each to its callback on its own goroutine so a slow
// call never blocks others — the Go-native equivalent of
// server_task's ThreadPoolExecutor.submit fan-out.
func (s *Server) Run(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		_ = s.conn.Close()
	}()

	for {
		var env envelope
		if err := s.conn.ReadJSON(&env); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("rpc server %q: read: %w", s.identity, err)
		}

		var call rtproto.Call
		if err := json.Unmarshal(env.Body, &call); err != nil {
			if s.logger != nil {
				s.logger.Warn(ctx, "failed to decode rpc call", "server", s.identity, "error", err)
			}
			continue
		}

		replyTo := env.From
		s.wg.Add(1)
		go s.handle(ctx, replyTo, call)
	}
}

// Wait blocks until every in-flight handler goroutine has finished.
func (s *Server) Wait() { s.wg.Wait() }

func (s *Server) handle(ctx context.Context, replyTo string, call rtproto.Call) {
	defer s.wg.Done()

	result := s.dispatch(call)
	env := envelope{To: replyTo}

	payload, err := json.Marshal(result)
	if err != nil {
		if s.logger != nil {
			s.logger.Error(ctx, "failed to marshal call result", "server", s.identity, "error", err)
		}
		return
	}
	env.Body = payload

	s.sendMu.Lock()
	defer s.sendMu.Unlock()
	if err := s.conn.WriteJSON(env); err != nil && s.logger != nil {
		s.logger.Error(ctx, "failed to send call result", "server", s.identity, "to", replyTo, "error", err)
	}
}

func (s *Server) dispatch(call rtproto.Call) rtproto.CallResult {
	cb, exists := s.callbacks[call.Function]
	if !exists {
		result := rtproto.NewCallError(fmt.Sprintf("unknown function %q", call.Function))
		result.CallID = call.CallID
		return result
	}

	value, err := cb(call.Args, call.Kwargs)
	var result rtproto.CallResult
	if err != nil {
		result = rtproto.NewCallError(err.Error())
	} else {
		result = rtproto.NewCallResult(value)
	}
	result.CallID = call.CallID
	return result
}

// envelope mirrors rpcbroker.Envelope without importing that package,
// keeping rpcserver usable against any broker speaking the same wire
// shape.
type envelope struct {
	From string `json:"from"`
	To   string `json:"to"`
	Body []byte `json:"body"`
}
