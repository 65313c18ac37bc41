// Package rpcclient sends Call requests over a broker connection and
// correlates replies to waiters by CallID, grounded on
// internal/mcp/transport_stdio.go's `pending map[int64]chan
// *JSONRPCResponse` request/response correlation idiom, adapted to a
// string-keyed map of rtproto.Call.CallID values (generated with
// google/uuid) addressed through rpcbroker instead of MCP's stdio
// request ids.
package rpcclient

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/jaiger-go/agentrt/internal/errs"
	"github.com/jaiger-go/agentrt/pkg/rtproto"
)

type envelope struct {
	From string `json:"from"`
	To   string `json:"to"`
	Body []byte `json:"body"`
}

// Client sends Calls to a named RPC server through a broker connection.
type Client struct {
	identity string
	conn     *websocket.Conn

	sendMu sync.Mutex

	pendingMu sync.Mutex
	pending   map[string]chan rtproto.CallResult

	closeOnce sync.Once
	done      chan struct{}
}

// New builds a Client. conn must already be dialed against the broker
// under identity.
func New(identity string, conn *websocket.Conn) *Client {
	c := &Client{
		identity: identity,
		conn:     conn,
		pending:  make(map[string]chan rtproto.CallResult),
		done:     make(chan struct{}),
	}
	go c.readLoop()
	return c
}

// Close stops the client's read loop and releases the connection.
func (c *Client) Close() error {
	c.closeOnce.Do(func() { close(c.done) })
	return c.conn.Close()
}

func (c *Client) readLoop() {
	for {
		var env envelope
		if err := c.conn.ReadJSON(&env); err != nil {
			c.failAllPending(fmt.Errorf("rpc client %q: connection closed: %w", c.identity, err))
			return
		}

		var result rtproto.CallResult
		if err := json.Unmarshal(env.Body, &result); err != nil {
			continue
		}

		c.pendingMu.Lock()
		ch, exists := c.pending[result.CallID]
		if exists {
			delete(c.pending, result.CallID)
		}
		c.pendingMu.Unlock()

		if exists {
			ch <- result
		}
	}
}

func (c *Client) failAllPending(err error) {
	c.pendingMu.Lock()
	defer c.pendingMu.Unlock()
	for id, ch := range c.pending {
		ch <- rtproto.NewCallError(err.Error())
		delete(c.pending, id)
	}
}

// Call sends function(args, kwargs) to server and blocks for its
// CallResult, correlated by a freshly generated CallID rather than by
// connection identity, so concurrent outstanding calls to the same
// server never cross-deliver replies — the fix for the `src`-reuse
// ambiguity in jaiger/rpc/rpc_server.py described in rpcserver's doc
// comment.
func (c *Client) Call(ctx context.Context, server, function string, args []any, kwargs map[string]any, timeout time.Duration) (rtproto.CallResult, error) {
	callID := uuid.NewString()
	call := rtproto.Call{Function: function, Args: args, Kwargs: kwargs, CallID: callID}

	body, err := json.Marshal(call)
	if err != nil {
		return rtproto.CallResult{}, fmt.Errorf("marshal call: %w", err)
	}

	waiter := make(chan rtproto.CallResult, 1)
	c.pendingMu.Lock()
	c.pending[callID] = waiter
	c.pendingMu.Unlock()

	env := envelope{To: server, Body: body}

	c.sendMu.Lock()
	err = c.conn.WriteJSON(env)
	c.sendMu.Unlock()
	if err != nil {
		c.pendingMu.Lock()
		delete(c.pending, callID)
		c.pendingMu.Unlock()
		return rtproto.CallResult{}, fmt.Errorf("send call: %w", err)
	}

	select {
	case result := <-waiter:
		return result, nil
	case <-ctx.Done():
		c.pendingMu.Lock()
		delete(c.pending, callID)
		c.pendingMu.Unlock()
		return rtproto.CallResult{}, ctx.Err()
	case <-time.After(timeout):
		c.pendingMu.Lock()
		delete(c.pending, callID)
		c.pendingMu.Unlock()
		return rtproto.CallResult{}, errs.NewTimeoutError(server, function, timeout.String())
	}
}
