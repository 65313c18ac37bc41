package registry

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jaiger-go/agentrt/internal/observability"
	"github.com/jaiger-go/agentrt/pkg/rtproto"
)

type stubDriver struct {
	name      string
	promptErr error
	prompts   []string
}

func (s *stubDriver) Name() string { return s.name }

func (s *stubDriver) Prompt(_ context.Context, text string) (rtproto.PromptResult, error) {
	s.prompts = append(s.prompts, text)
	if s.promptErr != nil {
		return rtproto.PromptResult{}, s.promptErr
	}
	return rtproto.NewPromptText("ok"), nil
}

func newTestLogger() *observability.Logger {
	return observability.NewLogger(observability.LogConfig{Level: "error", Format: "json"})
}

func TestRegistryAddRemove(t *testing.T) {
	r := New(newTestLogger())

	require.NoError(t, r.Add("claude", &stubDriver{name: "claude"}))
	assert.Error(t, r.Add("claude", &stubDriver{name: "claude"}))

	assert.ElementsMatch(t, []string{"claude"}, r.Names())

	require.NoError(t, r.Remove("claude"))
	assert.Error(t, r.Remove("claude"))
}

func TestRegistryPromptUnknown(t *testing.T) {
	r := New(newTestLogger())
	_, err := r.Prompt(context.Background(), "missing", "hi")
	assert.Error(t, err)
}

func TestRegistryPromptForwards(t *testing.T) {
	r := New(newTestLogger())
	driver := &stubDriver{name: "claude"}
	require.NoError(t, r.Add("claude", driver))

	result, err := r.Prompt(context.Background(), "claude", "hi")
	require.NoError(t, err)
	require.NotNil(t, result.Text)
	assert.Equal(t, "ok", *result.Text)
	assert.Equal(t, []string{"hi"}, driver.prompts)
}

func TestRegistryRegisterToolsAggregatesFailures(t *testing.T) {
	r := New(newTestLogger())
	good := &stubDriver{name: "good"}
	bad := &stubDriver{name: "bad", promptErr: errors.New("boom")}
	require.NoError(t, r.Add("good", good))
	require.NoError(t, r.Add("bad", bad))

	tools := []rtproto.ToolInfo{{Name: "echo"}}
	err := r.RegisterTools(context.Background(), tools)
	assert.Error(t, err)

	require.Len(t, good.prompts, 1)
	require.Len(t, bad.prompts, 1)
}

func TestRegistryRegisterToolsAllSucceed(t *testing.T) {
	r := New(newTestLogger())
	require.NoError(t, r.Add("good", &stubDriver{name: "good"}))

	err := r.RegisterTools(context.Background(), []rtproto.ToolInfo{{Name: "echo"}})
	assert.NoError(t, err)
}

// serializationProbeDriver flags whether two Prompt calls ever ran
// concurrently, so a test can prove the registry's jobSem actually
// serialises calls to the same name rather than just asserting they
// eventually all complete.
type serializationProbeDriver struct {
	name       string
	active     int32
	sawOverlap int32
	calls      int32
}

func (d *serializationProbeDriver) Name() string { return d.name }

func (d *serializationProbeDriver) Prompt(_ context.Context, _ string) (rtproto.PromptResult, error) {
	atomic.AddInt32(&d.calls, 1)
	if !atomic.CompareAndSwapInt32(&d.active, 0, 1) {
		atomic.StoreInt32(&d.sawOverlap, 1)
	}
	time.Sleep(5 * time.Millisecond)
	atomic.StoreInt32(&d.active, 0)
	return rtproto.NewPromptText("ok"), nil
}

func TestRegistryPromptSerialisesConcurrentCallsToSameName(t *testing.T) {
	r := New(newTestLogger())
	driver := &serializationProbeDriver{name: "claude"}
	require.NoError(t, r.Add("claude", driver))

	const n = 20
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := r.Prompt(context.Background(), "claude", "hi")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.EqualValues(t, n, atomic.LoadInt32(&driver.calls))
	assert.Zero(t, atomic.LoadInt32(&driver.sawOverlap), "Prompt calls to the same name overlapped")
}

func TestRegistryRegisterToolsSerialisesAgainstConcurrentPrompt(t *testing.T) {
	r := New(newTestLogger())
	driver := &serializationProbeDriver{name: "claude"}
	require.NoError(t, r.Add("claude", driver))

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := r.Prompt(context.Background(), "claude", "hi")
			assert.NoError(t, err)
		}()
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := r.RegisterTools(context.Background(), []rtproto.ToolInfo{{Name: "echo"}})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Zero(t, atomic.LoadInt32(&driver.sawOverlap), "Prompt and RegisterTools overlapped for the same name")
}
