package hostclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/AdMonitor/internal/infrastructure/host"
	"github.com/GriffinCanCode/AdMonitor/internal/infrastructure/resilience"
	"github.com/GriffinCanCode/AdMonitor/internal/infrastructure/tracing"
	"github.com/GriffinCanCode/AdMonitor/internal/shared/types"
)

// shim is a minimal browser shim holding one tab's audio state
type shim struct {
	mu       sync.Mutex
	muted    host.MutedInfo
	commands []host.Command
}

func (s *shim) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != CommandsPath || r.Method != http.MethodPost {
		http.Error(w, "no route", http.StatusMethodNotAllowed)
		return
	}
	var cmd host.Command
	if err := json.NewDecoder(r.Body).Decode(&cmd); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	s.commands = append(s.commands, cmd)
	reply := host.Reply{ID: cmd.ID}
	switch {
	case cmd.TabID != 1:
		reply.NotFound = true
	case cmd.Method == host.MethodGetTab:
		reply.Tab = &host.Tab{ID: 1, MutedInfo: s.muted}
	case cmd.Method == host.MethodUpdate:
		s.muted = host.MutedInfo{Muted: *cmd.Muted, Reason: host.ReasonExtension}
	case cmd.Method == host.MethodSendMessage:
		reply.Response = &types.Response{Success: cmd.Message.Task == types.TaskTogglePlayer}
	}
	s.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(reply)
}

func testConfig(url string) Config {
	cfg := DefaultConfig()
	cfg.BaseURL = url
	cfg.RetryWaitMin = time.Millisecond
	cfg.RetryWaitMax = 5 * time.Millisecond
	return cfg
}

func TestClientImplementsBridge(t *testing.T) {
	s := &shim{}
	srv := httptest.NewServer(s)
	defer srv.Close()

	var bridge host.Bridge = New(testConfig(srv.URL), nil)
	ctx := context.Background()

	tab, err := bridge.GetTab(ctx, 1)
	require.NoError(t, err)
	assert.False(t, tab.MutedInfo.Muted)

	require.NoError(t, bridge.SetMuted(ctx, 1, true))
	tab, err = bridge.GetTab(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, host.ReasonExtension, tab.MutedInfo.Reason)

	resp, err := bridge.SendMessage(ctx, 1, types.Message{Task: types.TaskTogglePlayer, Hide: types.Bool(true)})
	require.NoError(t, err)
	assert.True(t, resp.Success)

	s.mu.Lock()
	defer s.mu.Unlock()
	require.Len(t, s.commands, 4)
	for _, cmd := range s.commands {
		assert.NotEmpty(t, cmd.ID)
	}
	assert.True(t, *s.commands[3].Message.Hide)
}

func TestClientPropagatesTrace(t *testing.T) {
	var header atomic.Value
	s := &shim{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header.Store(r.Header.Get(tracing.HeaderTraceID))
		s.ServeHTTP(w, r)
	}))
	defer srv.Close()

	ctx := tracing.WithTrace(context.Background(), "trace-7", "")
	_, err := New(testConfig(srv.URL), nil).GetTab(ctx, 1)
	require.NoError(t, err)

	assert.Equal(t, "trace-7", header.Load())
	s.mu.Lock()
	defer s.mu.Unlock()
	assert.Equal(t, "trace-7", s.commands[0].TraceID)
}

func TestClientMissingTab(t *testing.T) {
	srv := httptest.NewServer(&shim{})
	defer srv.Close()

	c := New(testConfig(srv.URL), nil)
	_, err := c.GetTab(context.Background(), 99)
	assert.ErrorIs(t, err, host.ErrEntityNotFound)
	assert.ErrorIs(t, c.SetMuted(context.Background(), 99, true), host.ErrEntityNotFound)
}

func TestClientNotFoundStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := New(testConfig(srv.URL), nil).GetTab(context.Background(), 1)
	assert.ErrorIs(t, err, host.ErrEntityNotFound)
}

func TestClientRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	s := &shim{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			http.Error(w, "busy", http.StatusServiceUnavailable)
			return
		}
		s.ServeHTTP(w, r)
	}))
	defer srv.Close()

	tab, err := New(testConfig(srv.URL), nil).GetTab(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, types.EntityID(1), tab.ID)
	assert.Equal(t, int32(3), calls.Load())
}

func TestClientBreakerOpens(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "broken", http.StatusInternalServerError)
	}))
	defer srv.Close()

	cfg := testConfig(srv.URL)
	cfg.RetryMax = 0
	cfg.BreakerThreshold = 2
	cfg.BreakerCooldown = time.Hour
	c := New(cfg, nil)

	for i := 0; i < 2; i++ {
		_, err := c.GetTab(context.Background(), 1)
		assert.Error(t, err)
	}
	assert.False(t, c.Connected())

	_, err := c.GetTab(context.Background(), 1)
	assert.ErrorIs(t, err, resilience.ErrCircuitOpen)
	assert.Equal(t, int32(2), calls.Load())
}

func TestClientRespectsContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	cfg := testConfig(srv.URL)
	cfg.RetryMax = 0
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := New(cfg, nil).GetTab(ctx, 1)
	assert.Error(t, err)
}
