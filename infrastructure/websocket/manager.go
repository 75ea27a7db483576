// Package websocket tracks live connections so SOS alerts reach recipients who
// are online right now.
package websocket

import (
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"incident-map/domain/services"
	"incident-map/pkg/logger"
)

// DefaultWriteTimeout bounds a single frame write to a client.
const DefaultWriteTimeout = 5 * time.Second

// Conn is the part of a websocket connection the manager writes to.
type Conn interface {
	WriteJSON(v interface{}) error
	SetWriteDeadline(t time.Time) error
	Close() error
}

type Client struct {
	Conn   Conn
	UserID uuid.UUID
	mu     sync.Mutex
}

func (c *Client) send(msg interface{}, timeout time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.Conn.SetWriteDeadline(time.Now().Add(timeout)); err != nil {
		return err
	}
	return c.Conn.WriteJSON(msg)
}

// Message is the envelope of every frame the server sends.
type Message struct {
	Type      string      `json:"type"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

// WebSocketManager indexes connections by user. One user may hold several.
type WebSocketManager struct {
	mu           sync.RWMutex
	clients      map[Conn]*Client
	byUser       map[uuid.UUID]map[*Client]struct{}
	writeTimeout time.Duration
}

var _ services.AlertNotifier = (*WebSocketManager)(nil)

// Manager is the process-wide hub the /ws route registers into.
var Manager = NewWebSocketManager()

func NewWebSocketManager() *WebSocketManager {
	return &WebSocketManager{
		clients:      make(map[Conn]*Client),
		byUser:       make(map[uuid.UUID]map[*Client]struct{}),
		writeTimeout: DefaultWriteTimeout,
	}
}

// SetWriteTimeout changes the per-frame write deadline; non-positive values are ignored.
func (m *WebSocketManager) SetWriteTimeout(d time.Duration) {
	if d > 0 {
		m.writeTimeout = d
	}
}

func (m *WebSocketManager) RegisterClient(conn Conn, userID uuid.UUID) *Client {
	client := &Client{Conn: conn, UserID: userID}

	m.mu.Lock()
	m.clients[conn] = client
	if m.byUser[userID] == nil {
		m.byUser[userID] = make(map[*Client]struct{})
	}
	m.byUser[userID][client] = struct{}{}
	total := len(m.clients)
	m.mu.Unlock()

	logger.WebSocket("client_registered", "Client registered", map[string]interface{}{
		"user_id": userID.String(),
		"clients": total,
	})
	return client
}

func (m *WebSocketManager) UnregisterClient(conn Conn) {
	m.mu.Lock()
	client, ok := m.clients[conn]
	if ok {
		delete(m.clients, conn)
		if set := m.byUser[client.UserID]; set != nil {
			delete(set, client)
			if len(set) == 0 {
				delete(m.byUser, client.UserID)
			}
		}
	}
	m.mu.Unlock()

	if ok {
		conn.Close()
		logger.WebSocket("client_unregistered", "Client unregistered", map[string]interface{}{"user_id": client.UserID.String()})
	}
}

// SendToUser writes to every connection of userID and returns how many succeeded.
func (m *WebSocketManager) SendToUser(userID uuid.UUID, messageType string, data interface{}) int {
	m.mu.RLock()
	targets := make([]*Client, 0, len(m.byUser[userID]))
	for c := range m.byUser[userID] {
		targets = append(targets, c)
	}
	m.mu.RUnlock()

	msg := Message{Type: messageType, Data: data, Timestamp: time.Now()}
	sent := 0
	for _, c := range targets {
		if err := c.send(msg, m.writeTimeout); err != nil {
			logger.WebSocketError("send_failed", "Failed to write message", err, map[string]interface{}{"user_id": userID.String()})
			m.UnregisterClient(c.Conn)
			continue
		}
		sent++
	}
	return sent
}

// NotifyUsers pushes one message to each listed user that is connected and
// returns the number of users reached. Users are written to in parallel and every
// write carries a deadline, so a stalled socket cannot hold the caller.
func (m *WebSocketManager) NotifyUsers(userIDs []uuid.UUID, messageType string, payload interface{}) int {
	var reached int32
	var wg sync.WaitGroup
	seen := make(map[uuid.UUID]struct{}, len(userIDs))
	for _, id := range userIDs {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}

		wg.Add(1)
		go func(id uuid.UUID) {
			defer wg.Done()
			if m.SendToUser(id, messageType, payload) > 0 {
				atomic.AddInt32(&reached, 1)
			}
		}(id)
	}
	wg.Wait()
	return int(reached)
}

func (m *WebSocketManager) ConnectedUsers() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.byUser)
}

type inbound struct {
	Type string `json:"type"`
}

// HandleMessage answers client frames. Only ping is understood.
func (m *WebSocketManager) HandleMessage(conn Conn, message []byte) {
	var in inbound
	if err := json.Unmarshal(message, &in); err != nil {
		return
	}

	m.mu.RLock()
	client := m.clients[conn]
	m.mu.RUnlock()
	if client == nil {
		return
	}

	if in.Type == "ping" {
		_ = client.send(Message{Type: "pong", Timestamp: time.Now()}, m.writeTimeout)
	}
}
