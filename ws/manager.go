package ws

import (
	"fmt"
	"sync"

	"guidia_backend/internal/logger"
)

// Manager tracks one live connection per user. It satisfies the delivery
// layer's Pusher interface, which is how persisted notifications reach open
// sockets.
//
// The manager never closes a client's Send channel; it signals shutdown
// through the client's done channel so in-flight sends cannot panic.
type Manager struct {
	clients    map[string]*Client
	register   chan *Client
	unregister chan *Client
	mu         sync.RWMutex
}

func NewManager() *Manager {
	return &Manager{
		clients:    make(map[string]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
	}
}

func (m *Manager) Run() {
	for {
		select {
		case client := <-m.register:
			m.mu.Lock()
			old := m.clients[client.UserID]
			m.clients[client.UserID] = client
			total := len(m.clients)
			m.mu.Unlock()
			if old != nil {
				old.shutdown()
			}
			logger.Info("ws client registered", "user_id", client.UserID, "total", total)

		case client := <-m.unregister:
			m.mu.Lock()
			if current, ok := m.clients[client.UserID]; ok && current == client {
				delete(m.clients, client.UserID)
			}
			total := len(m.clients)
			m.mu.Unlock()
			client.shutdown()
			logger.Info("ws client unregistered", "user_id", client.UserID, "total", total)
		}
	}
}

// PushToUser queues a payload on the user's connection. Returns an error
// when the user has no live connection or its send buffer is full; either
// way the caller already persisted, so this only signals degradation.
func (m *Manager) PushToUser(userID string, payload interface{}) error {
	m.mu.RLock()
	client, ok := m.clients[userID]
	m.mu.RUnlock()

	if !ok {
		return fmt.Errorf("no live connection for user %s", userID)
	}

	select {
	case <-client.done:
		return fmt.Errorf("connection shutting down for user %s", userID)
	case client.Send <- payload:
		return nil
	default:
		// Slow consumer. Drop the connection rather than block delivery.
		go func() { m.unregister <- client }()
		return fmt.Errorf("send buffer full for user %s", userID)
	}
}

func (m *Manager) IsConnected(userID string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.clients[userID]
	return ok
}

func (m *Manager) ClientCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.clients)
}
