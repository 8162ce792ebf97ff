package client

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roomchat/roomchat/pkg/api"
)

func TestPollerDrivesNewSyncAndHeartbeat(t *testing.T) {
	var next atomic.Int64
	next.Store(0)

	transport := NewMockTransport()
	transport.SinceFunc = func(sinceID int64) (*api.HistoryResponse, error) {
		id := next.Add(1)
		return &api.HistoryResponse{Messages: []api.Message{{ID: id}}}, nil
	}
	view := NewMockView(6, 1)
	engine := NewSyncEngine(transport, view)

	var notified atomic.Int32
	poller := NewPoller(engine, transport, "dev-1")
	poller.SetIntervals(10*time.Millisecond, 10*time.Millisecond)
	poller.OnNewMessages = func() { notified.Add(1) }

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	poller.Start(ctx)

	waitFor(t, func() bool {
		return engine.LastMessageID() >= 3 && transport.HeartbeatCallCount() >= 2
	}, "poller never advanced")

	poller.Stop()
	assert.GreaterOrEqual(t, notified.Load(), int32(3))

	// No ticks after Stop
	calls := transport.SinceCallCount()
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, calls, transport.SinceCallCount())

	for _, c := range transport.HeartbeatCalls {
		require.Equal(t, "dev-1", c)
	}
}

func TestPollerSurvivesFetchErrors(t *testing.T) {
	var calls atomic.Int32
	transport := NewMockTransport()
	transport.SinceFunc = func(sinceID int64) (*api.HistoryResponse, error) {
		calls.Add(1)
		return nil, context.DeadlineExceeded
	}
	engine := NewSyncEngine(transport, NewMockView(6, 1))

	poller := NewPoller(engine, transport, "dev-1")
	poller.SetIntervals(10*time.Millisecond, time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	poller.Start(ctx)
	defer poller.Stop()

	// Polling keeps retrying on its next tick despite failures
	waitFor(t, func() bool { return calls.Load() >= 3 }, "poller stopped retrying")
	assert.Equal(t, int64(0), engine.LastMessageID())
}
