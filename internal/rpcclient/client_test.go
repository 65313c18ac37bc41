package rpcclient

import (
	"context"
	"fmt"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jaiger-go/agentrt/internal/observability"
	"github.com/jaiger-go/agentrt/internal/rpcbroker"
	"github.com/jaiger-go/agentrt/internal/rpcserver"
	"github.com/jaiger-go/agentrt/pkg/rtproto"
)

func dial(t *testing.T, serverURL, identity string) *websocket.Conn {
	t.Helper()
	wsURL := "ws" + strings.TrimPrefix(serverURL, "http") + "?identity=" + identity
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	return conn
}

func TestClientServerRoundTripPreservesCallIDUnderConcurrency(t *testing.T) {
	logger := observability.NewLogger(observability.LogConfig{Level: "error", Format: "json"})
	broker := rpcbroker.New(logger)
	httpServer := httptest.NewServer(broker)
	defer httpServer.Close()

	serverConn := dial(t, httpServer.URL, "worker-1")
	srv := rpcserver.New("worker-1", serverConn, map[string]rpcserver.Callback{
		"echo": func(args []any, _ map[string]any) (any, error) {
			// Sleep varies so replies can arrive out of submission
			// order, exercising the CallID correlation this package
			// exists to guarantee.
			if len(args) > 0 {
				if n, ok := args[0].(float64); ok {
					time.Sleep(time.Duration(n) * time.Millisecond)
				}
			}
			return args, nil
		},
	}, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = srv.Run(ctx) }()

	clientConn := dial(t, httpServer.URL, "client-1")
	client := New("client-1", clientConn)
	defer client.Close()

	const n = 5
	var wg sync.WaitGroup
	results := make([]rtproto.CallResult, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			delay := float64((n - i) * 10)
			result, err := client.Call(context.Background(), "worker-1", "echo", []any{delay, fmt.Sprintf("job-%d", i)}, nil, 5*time.Second)
			require.NoError(t, err)
			results[i] = result
		}(i)
	}
	wg.Wait()

	for i, r := range results {
		require.False(t, r.Failed(), "job %d failed: %s", i, r.Error)
		arr, ok := r.Result.([]any)
		require.True(t, ok, "job %d result not an array: %#v", i, r.Result)
		assert.Equal(t, fmt.Sprintf("job-%d", i), arr[1])
	}
}
