package websocket

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cordpulse/internal/shared/testutil"
)

func startSession(t *testing.T, hub *Hub) (*Client, *MockConnection) {
	t.Helper()
	conn := NewMockConnection()
	conn.Blocking = true
	logger, _ := testutil.NewTestLogger(t)
	client := NewClient(hub, conn, nil, testConfig(), logger)
	require.True(t, hub.Register(client))
	go client.WritePump()
	go client.ReadPump()
	return client, conn
}

func TestHub_RegisterUnregister(t *testing.T) {
	logger, _ := testutil.NewTestLogger(t)
	hub := NewHub(logger)

	c1, conn1 := startSession(t, hub)
	_, _ = startSession(t, hub)
	assert.Equal(t, 2, hub.ClientCount())
	assert.Equal(t, 2, hub.ActiveConnections())

	conn1.Close()
	select {
	case <-c1.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("session did not end")
	}
	assert.Eventually(t, func() bool { return hub.ClientCount() == 1 }, time.Second, 10*time.Millisecond)

	stats := hub.Stats()
	assert.Equal(t, 1, stats.ActiveConnections)
	assert.EqualValues(t, 2, stats.TotalConnections)

	// unregistering twice is harmless
	hub.Unregister(c1)
	assert.Equal(t, 1, hub.ClientCount())
}

func TestHub_Stop(t *testing.T) {
	logger, handler := testutil.NewTestLogger(t)
	hub := NewHub(logger)

	_, conn1 := startSession(t, hub)
	_, conn2 := startSession(t, hub)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, hub.Stop(ctx))

	assert.Equal(t, 0, hub.ClientCount())
	assert.True(t, conn1.IsClosed())
	assert.True(t, conn2.IsClosed())
	assert.True(t, handler.ContainsMessage("Closing WebSocket clients"))

	late := NewClient(hub, NewMockConnection(), nil, testConfig(), logger)
	assert.False(t, hub.Register(late), "a stopped hub refuses clients")
}

func TestHub_StopEmpty(t *testing.T) {
	logger, _ := testutil.NewTestLogger(t)
	hub := NewHub(logger)
	require.NoError(t, hub.Stop(context.Background()))
}

func TestHub_StopHonoursContext(t *testing.T) {
	logger, _ := testutil.NewTestLogger(t)
	hub := NewHub(logger)

	// registered but no pumps running, so it never unregisters
	client := NewClient(hub, NewMockConnection(), nil, testConfig(), logger)
	require.True(t, hub.Register(client))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, hub.Stop(ctx), context.DeadlineExceeded)
}
