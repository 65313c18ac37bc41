package httpfacade

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jaiger-go/agentrt/pkg/rtproto"
)

func TestFacadeAlwaysReturns200(t *testing.T) {
	callbacks := map[string]Callback{
		"ok": func(_ context.Context, _ []any, _ map[string]any) (any, error) {
			return "fine", nil
		},
		"boom": func(_ context.Context, _ []any, _ map[string]any) (any, error) {
			return nil, errors.New("kaboom")
		},
	}
	facade := New(callbacks, nil, nil)
	server := httptest.NewServer(facade.Mux())
	defer server.Close()

	okReq, _ := json.Marshal(rtproto.Call{Function: "ok", CallID: "c1"})
	resp, err := http.Post(server.URL+"/call", "application/json", bytes.NewReader(okReq))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var okResult rtproto.CallResult
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&okResult))
	assert.False(t, okResult.Failed())
	assert.Equal(t, "fine", okResult.Result)
	assert.Equal(t, "c1", okResult.CallID)

	boomReq, _ := json.Marshal(rtproto.Call{Function: "boom", CallID: "c2"})
	resp2, err := http.Post(server.URL+"/call", "application/json", bytes.NewReader(boomReq))
	require.NoError(t, err)
	defer resp2.Body.Close()
	assert.Equal(t, http.StatusOK, resp2.StatusCode, "a failed call is still HTTP 200")

	var boomResult rtproto.CallResult
	require.NoError(t, json.NewDecoder(resp2.Body).Decode(&boomResult))
	assert.True(t, boomResult.Failed())
	assert.Equal(t, "kaboom", boomResult.Error)
}

func TestFacadeUnknownFunction(t *testing.T) {
	facade := New(map[string]Callback{}, nil, nil)
	server := httptest.NewServer(facade.Mux())
	defer server.Close()

	body, _ := json.Marshal(rtproto.Call{Function: "missing"})
	resp, err := http.Post(server.URL+"/call", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var result rtproto.CallResult
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&result))
	assert.True(t, result.Failed())
}

func TestFacadeMalformedBody(t *testing.T) {
	facade := New(map[string]Callback{}, nil, nil)
	server := httptest.NewServer(facade.Mux())
	defer server.Close()

	resp, err := http.Post(server.URL+"/call", "application/json", bytes.NewReader([]byte("not json")))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var result rtproto.CallResult
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&result))
	assert.True(t, result.Failed())
}
