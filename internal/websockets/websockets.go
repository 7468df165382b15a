package websockets

import (
	"sync"
	"time"

	"fitadmin/internal/events"
	"fitadmin/internal/logger"
	"fitadmin/internal/metrics"

	"github.com/goccy/go-json"
	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
)

const (
	sendBufferSize = 16
	writeWait      = 10 * time.Second
	pingPeriod     = 30 * time.Second
)

type Client struct {
	ID   string
	send chan []byte
}

// Manager pushes dashboard events to every connected websocket client.
type Manager struct {
	mu          sync.RWMutex
	clients     map[string]*Client
	unsubscribe func()
	log         logger.Logger
}

func New(eventBus *events.EventBus) (*Manager, error) {
	m := &Manager{
		clients: make(map[string]*Client),
		log:     logger.New("websockets"),
	}

	unsubscribe, err := eventBus.Subscribe(events.ChannelDashboard, m.Broadcast)
	if err != nil {
		return nil, m.log.Function("New").Err("failed to subscribe to dashboard events", err)
	}
	m.unsubscribe = unsubscribe

	return m, nil
}

// Broadcast drops the message for clients whose buffer is full rather than
// blocking the publisher.
func (m *Manager) Broadcast(event events.Event) {
	log := m.log.Function("Broadcast")

	payload, err := json.Marshal(event)
	if err != nil {
		log.Er("failed to marshal event", err, "type", event.Type)
		return
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, client := range m.clients {
		select {
		case client.send <- payload:
		default:
			log.Warn("client send buffer full, dropping event", "clientID", client.ID, "type", event.Type)
		}
	}
}

func (m *Manager) ClientCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.clients)
}

func (m *Manager) register() *Client {
	client := &Client{ID: uuid.NewString(), send: make(chan []byte, sendBufferSize)}
	m.mu.Lock()
	m.clients[client.ID] = client
	m.mu.Unlock()
	metrics.WSConnections.Inc()
	return client
}

func (m *Manager) unregister(client *Client) {
	m.mu.Lock()
	if _, ok := m.clients[client.ID]; ok {
		delete(m.clients, client.ID)
		close(client.send)
		metrics.WSConnections.Dec()
	}
	m.mu.Unlock()
}

func (m *Manager) HandleWebSocket(c *websocket.Conn) {
	log := m.log.Function("HandleWebSocket")

	client := m.register()
	defer m.unregister(client)
	log.Info("dashboard client connected", "clientID", client.ID)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := c.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			log.Info("dashboard client disconnected", "clientID", client.ID)
			return
		case payload, ok := <-client.send:
			if !ok {
				return
			}
			_ = c.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.WriteMessage(websocket.TextMessage, payload); err != nil {
				log.Warn("failed to write to client", "clientID", client.ID, "error", err)
				return
			}
		case <-ticker.C:
			_ = c.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (m *Manager) Close() {
	if m.unsubscribe != nil {
		m.unsubscribe()
	}
	m.mu.Lock()
	for id, client := range m.clients {
		close(client.send)
		delete(m.clients, id)
		metrics.WSConnections.Dec()
	}
	m.mu.Unlock()
}
