package rpcbroker

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"github.com/jaiger-go/agentrt/internal/observability"
)

func dial(t *testing.T, serverURL, identity string) *websocket.Conn {
	t.Helper()
	wsURL := "ws" + strings.TrimPrefix(serverURL, "http") + "?identity=" + identity
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func TestBrokerRoutesEnvelopeByIdentity(t *testing.T) {
	logger := observability.NewLogger(observability.LogConfig{Level: "error", Format: "json"})
	broker := New(logger)
	server := httptest.NewServer(broker)
	defer server.Close()

	client := dial(t, server.URL, "client-1")
	srv := dial(t, server.URL, "server-1")

	require.NoError(t, client.WriteJSON(Envelope{To: "server-1", Body: []byte(`{"function":"ping"}`)}))

	_ = srv.SetReadDeadline(time.Now().Add(2 * time.Second))
	var received Envelope
	require.NoError(t, srv.ReadJSON(&received))
	require.Equal(t, "client-1", received.From)
	require.Equal(t, `{"function":"ping"}`, string(received.Body))
}

func TestBrokerUnknownDestinationIsDropped(t *testing.T) {
	logger := observability.NewLogger(observability.LogConfig{Level: "error", Format: "json"})
	broker := New(logger)
	server := httptest.NewServer(broker)
	defer server.Close()

	client := dial(t, server.URL, "client-1")
	require.NoError(t, client.WriteJSON(Envelope{To: "nobody", Body: []byte(`{}`)}))

	// Give the broker a moment to process; absence of a crash/hang is
	// the assertion here since there is no destination to read from.
	time.Sleep(50 * time.Millisecond)
}
