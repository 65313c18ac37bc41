package rpcserver

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jaiger-go/agentrt/pkg/rtproto"
)

func TestDispatchUnknownFunction(t *testing.T) {
	srv := &Server{identity: "worker-1", callbacks: map[string]Callback{}}
	result := srv.dispatch(rtproto.Call{Function: "missing", CallID: "c1"})
	assert.True(t, result.Failed())
	assert.Equal(t, "c1", result.CallID)
	assert.Contains(t, result.Error, "missing")
}

func TestDispatchSuccessAndFailure(t *testing.T) {
	srv := &Server{identity: "worker-1", callbacks: map[string]Callback{
		"ok": func(args []any, _ map[string]any) (any, error) {
			return "fine", nil
		},
		"boom": func(args []any, _ map[string]any) (any, error) {
			return nil, errors.New("kaboom")
		},
	}}

	ok := srv.dispatch(rtproto.Call{Function: "ok", CallID: "c1"})
	assert.False(t, ok.Failed())
	assert.Equal(t, "fine", ok.Result)

	bad := srv.dispatch(rtproto.Call{Function: "boom", CallID: "c2"})
	assert.True(t, bad.Failed())
	assert.Equal(t, "kaboom", bad.Error)
	assert.Equal(t, "c2", bad.CallID)
}
