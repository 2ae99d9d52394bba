package ws

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(userID string, m *Manager, buffer int) *Client {
	return &Client{
		UserID:  userID,
		Send:    make(chan any, buffer),
		done:    make(chan struct{}),
		Manager: m,
	}
}

func waitShutdown(t *testing.T, c *Client) {
	t.Helper()
	select {
	case <-c.done:
	case <-time.After(time.Second):
		t.Fatal("client was not shut down")
	}
}

func TestManager_ReconnectReplacesWithoutBreakingOldSender(t *testing.T) {
	m := NewManager()
	go m.Run()

	first := newTestClient("user-1", m, 1)
	m.register <- first

	second := newTestClient("user-1", m, 1)
	m.register <- second
	waitShutdown(t, first)

	// A handler goroutine still holding the replaced client must be able
	// to attempt a send; Send is never closed, done unblocks it.
	first.trySend(map[string]any{"action": "message_sent"})
	first.sendError("late error")

	require.NoError(t, m.PushToUser("user-1", map[string]any{"action": "notification"}))
	assert.Equal(t, 1, m.ClientCount())

	select {
	case payload := <-second.Send:
		assert.Equal(t, map[string]any{"action": "notification"}, payload)
	default:
		t.Fatal("push did not reach the replacement connection")
	}
}

func TestManager_SlowConsumerEvicted(t *testing.T) {
	m := NewManager()
	go m.Run()

	client := newTestClient("user-1", m, 1)
	m.register <- client
	require.Eventually(t, func() bool { return m.IsConnected("user-1") }, time.Second, 5*time.Millisecond)

	// Fill the buffer with no pump draining it.
	client.Send <- map[string]any{"action": "notification"}

	err := m.PushToUser("user-1", map[string]any{"action": "notification"})
	require.Error(t, err)

	require.Eventually(t, func() bool { return !m.IsConnected("user-1") }, time.Second, 5*time.Millisecond)
	waitShutdown(t, client)

	// Queued sends against the evicted client return instead of blocking.
	client.trySend(map[string]any{"action": "message_sent"})

	require.Error(t, m.PushToUser("user-1", map[string]any{"action": "notification"}))
}

func TestManager_ShutdownIsIdempotent(t *testing.T) {
	m := NewManager()
	client := newTestClient("user-1", m, 1)

	client.shutdown()
	client.shutdown()

	select {
	case <-client.done:
	default:
		t.Fatal("done not closed")
	}
}
