package websocket

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"spystory-server/internal/interfaces"
	"spystory-server/internal/models"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 54 * time.Second
	maxMessageSize = 512
	sendBufferSize = 64
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Origin checks happen at the gateway; same-host deployments connect
		// from arbitrary app origins.
		return true
	},
}

// ConnectionManager tracks live websocket clients per user and delivers
// session snapshots to them. It implements interfaces.StateListener so it can
// be registered on the notifier directly.
type ConnectionManager struct {
	mu      sync.RWMutex
	clients map[uuid.UUID]map[*client]struct{}
	logger  *zap.Logger
}

var _ interfaces.StateListener = (*ConnectionManager)(nil)

type client struct {
	userID uuid.UUID
	conn   *websocket.Conn
	send   chan []byte
}

func NewConnectionManager(logger *zap.Logger) *ConnectionManager {
	return &ConnectionManager{
		clients: make(map[uuid.UUID]map[*client]struct{}),
		logger:  logger.Named("WSManager"),
	}
}

// HandleConnection upgrades the request and pumps snapshots to the client
// until it disconnects. userID comes from the authenticated request context,
// never from the client.
func (m *ConnectionManager) HandleConnection(w http.ResponseWriter, r *http.Request, userID uuid.UUID) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		m.logger.Warn("Websocket upgrade failed", zap.Error(err))
		return
	}

	c := &client{
		userID: userID,
		conn:   conn,
		send:   make(chan []byte, sendBufferSize),
	}
	m.addClient(c)
	m.logger.Debug("Websocket client connected", zap.String("userID", userID.String()))

	go c.writePump()
	go m.readPump(c)
}

// OnStateChanged fans the snapshot out to every live connection of the user.
// A client whose send buffer is full is dropped: it is either dead or too
// slow to be worth blocking for.
func (m *ConnectionManager) OnStateChanged(snapshot *models.SessionSnapshot) {
	data, err := json.Marshal(snapshot)
	if err != nil {
		m.logger.Error("Failed to marshal snapshot for websocket delivery", zap.Error(err))
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for c := range m.clients[snapshot.UserID] {
		select {
		case c.send <- data:
		default:
			m.removeClientLocked(c)
		}
	}
}

func (m *ConnectionManager) addClient(c *client) {
	m.mu.Lock()
	defer m.mu.Unlock()
	set, ok := m.clients[c.userID]
	if !ok {
		set = make(map[*client]struct{})
		m.clients[c.userID] = set
	}
	set[c] = struct{}{}
}

func (m *ConnectionManager) removeClient(c *client) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.removeClientLocked(c)
}

func (m *ConnectionManager) removeClientLocked(c *client) {
	set, ok := m.clients[c.userID]
	if !ok {
		return
	}
	if _, present := set[c]; !present {
		return
	}
	delete(set, c)
	if len(set) == 0 {
		delete(m.clients, c.userID)
	}
	close(c.send)
}

// readPump drains incoming frames to keep the connection's control handlers
// running. Clients send nothing meaningful; the channel is one-way.
func (m *ConnectionManager) readPump(c *client) {
	defer func() {
		m.removeClient(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				m.logger.Debug("Websocket read error",
					zap.String("userID", c.userID.String()), zap.Error(err))
			}
			return
		}
	}
}

func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
