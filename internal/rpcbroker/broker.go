// Package rpcbroker implements an identity-addressed message router: any
// number of named peers (RPC servers or clients) connect over a
// WebSocket and exchange envelopes the broker forwards by destination
// identity. Grounded on jaiger/rpc/rpc_broker.py's ZeroMQ ROUTER socket
// (`[src, dst, content]` in, `[dst, src, content]` out) generalized from
// internal/gateway/ws_control_plane.go's single-server browser control
// plane into a star topology with many named peers instead of one.
package rpcbroker

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/jaiger-go/agentrt/internal/observability"
)

const (
	maxPayloadBytes = 1 << 20
	pongWait        = 45 * time.Second
	pingInterval    = 15 * time.Second
	writeWait       = 10 * time.Second
)

// Envelope is the wire shape every peer sends and receives. From is
// filled by the peer on send and rewritten by the broker on forward, so
// a receiver always knows who the envelope originated from.
type Envelope struct {
	From string `json:"from"`
	To   string `json:"to"`
	Body []byte `json:"body"`
}

type peer struct {
	identity string
	conn     *websocket.Conn
	send     chan Envelope
	closeOne sync.Once
}

// Broker routes Envelopes between named peers.
type Broker struct {
	logger   *observability.Logger
	upgrader websocket.Upgrader

	mu    sync.RWMutex
	peers map[string]*peer
}

// New builds an empty Broker ready to be mounted as an http.Handler.
func New(logger *observability.Logger) *Broker {
	return &Broker{
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  8192,
			WriteBufferSize: 8192,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		peers: make(map[string]*peer),
	}
}

// ServeHTTP upgrades the connection and registers it under the
// "identity" query parameter, matching jaiger's ZeroMQ identity-per-
// socket model with a query parameter instead of a ROUTER socket's
// implicit per-connection identity frame.
func (b *Broker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	identity := r.URL.Query().Get("identity")
	if identity == "" {
		http.Error(w, "missing identity query parameter", http.StatusBadRequest)
		return
	}

	conn, err := b.upgrader.Upgrade(w, r, nil)
	if err != nil {
		if b.logger != nil {
			b.logger.Error(r.Context(), "broker upgrade failed", "identity", identity, "error", err)
		}
		return
	}

	p := &peer{identity: identity, conn: conn, send: make(chan Envelope, 32)}
	b.register(p)
	defer b.unregister(p)

	go b.writePump(p)
	b.readPump(p)
}

func (b *Broker) register(p *peer) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if old, exists := b.peers[p.identity]; exists {
		old.closeOne.Do(func() { close(old.send) })
	}
	b.peers[p.identity] = p
}

func (b *Broker) unregister(p *peer) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if current, exists := b.peers[p.identity]; exists && current == p {
		delete(b.peers, p.identity)
	}
	p.closeOne.Do(func() { close(p.send) })
	_ = p.conn.Close()
}

func (b *Broker) readPump(p *peer) {
	p.conn.SetReadLimit(maxPayloadBytes)
	_ = p.conn.SetReadDeadline(time.Now().Add(pongWait))
	p.conn.SetPongHandler(func(string) error {
		return p.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var env Envelope
		if err := p.conn.ReadJSON(&env); err != nil {
			return
		}
		env.From = p.identity

		if b.logger != nil {
			b.logger.Debug(context.Background(), "routing envelope", "from", env.From, "to", env.To)
		}

		b.mu.RLock()
		dst, exists := b.peers[env.To]
		b.mu.RUnlock()
		if !exists {
			if b.logger != nil {
				b.logger.Warn(context.Background(), "envelope destination unknown", "to", env.To)
			}
			continue
		}

		select {
		case dst.send <- env:
		default:
			if b.logger != nil {
				b.logger.Warn(context.Background(), "peer send buffer full, dropping envelope", "to", env.To)
			}
		}
	}
}

func (b *Broker) writePump(p *peer) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case env, ok := <-p.send:
			_ = p.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = p.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := p.conn.WriteJSON(env); err != nil {
				return
			}
		case <-ticker.C:
			_ = p.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := p.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
