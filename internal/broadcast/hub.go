package broadcast

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/wonny/tradeassist/pkg/logger"
)

const (
	// Per-client outbound queue; a client that falls this far behind is dropped
	sendBufferSize = 64

	pingInterval = 30 * time.Second
	pongWait     = 60 * time.Second
	writeWait    = 10 * time.Second
)

// Event is one message pushed to every connected client
type Event struct {
	Type      string      `json:"type"`
	StockCode string      `json:"stock_code,omitempty"`
	Payload   interface{} `json:"payload,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

// Event types pushed by the API layer
const (
	EventBaselineCreated    = "baseline.created"
	EventTradeUpdated       = "trade.updated"
	EventConfidenceRecorded = "confidence.recorded"
	EventConditionChanged   = "condition.changed"
)

type client struct {
	conn *websocket.Conn
	send chan []byte
}

// Hub fans events out to websocket subscribers. Slow clients are dropped
// instead of blocking the broadcast path.
// ⭐ SSOT: 웹소켓 브로드캐스트는 이 허브에서만
type Hub struct {
	logger   *logger.Logger
	upgrader websocket.Upgrader

	clients map[*client]bool
	mu      sync.RWMutex

	register   chan *client
	unregister chan *client
	events     chan Event

	stopCh chan struct{}
	doneCh chan struct{}
}

// NewHub creates a broadcast hub. Call Run before serving connections.
func NewHub(log *logger.Logger) *Hub {
	return &Hub{
		logger: log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// REST 서비스와 동일 오리진을 강제하지 않음
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		clients:    make(map[*client]bool),
		register:   make(chan *client),
		unregister: make(chan *client),
		events:     make(chan Event, 256),
		stopCh:     make(chan struct{}),
		doneCh:     make(chan struct{}),
	}
}

// Run processes registrations and fans out events until Stop is called
func (h *Hub) Run() {
	defer close(h.doneCh)

	for {
		select {
		case c := <-h.register:
			h.mu.Lock()
			h.clients[c] = true
			count := len(h.clients)
			h.mu.Unlock()
			h.logger.WithField("clients", count).Debug("웹소켓 클라이언트 연결")

		case c := <-h.unregister:
			h.removeClient(c)

		case event := <-h.events:
			data, err := json.Marshal(event)
			if err != nil {
				h.logger.WithError(err).Error("이벤트 직렬화 실패")
				continue
			}
			h.mu.RLock()
			var slow []*client
			for c := range h.clients {
				select {
				case c.send <- data:
				default:
					slow = append(slow, c)
				}
			}
			h.mu.RUnlock()
			for _, c := range slow {
				h.logger.Warn("느린 클라이언트 연결 종료")
				h.removeClient(c)
			}

		case <-h.stopCh:
			h.mu.Lock()
			for c := range h.clients {
				close(c.send)
				c.conn.Close()
			}
			h.clients = make(map[*client]bool)
			h.mu.Unlock()
			return
		}
	}
}

// Stop shuts the hub down and disconnects every client
func (h *Hub) Stop() {
	close(h.stopCh)
	<-h.doneCh
}

// Publish queues an event for broadcast. Drops the event when the hub's
// queue is full rather than blocking the caller.
func (h *Hub) Publish(event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	select {
	case h.events <- event:
	default:
		h.logger.Warn("브로드캐스트 큐가 가득 차 이벤트를 버립니다")
	}
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) removeClient(c *client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
		c.conn.Close()
	}
	h.mu.Unlock()
}

// ServeWS upgrades an HTTP request and attaches the client to the hub
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.WithError(err).Error("웹소켓 업그레이드 실패")
		return
	}

	c := &client{
		conn: conn,
		send: make(chan []byte, sendBufferSize),
	}
	h.register <- c

	go h.writeLoop(c)
	go h.readLoop(c)
}

// writeLoop pushes queued events and pings to one client
func (h *Hub) writeLoop(c *client) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case data, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}

		case <-ticker.C:
			if err := c.conn.WriteControl(websocket.PingMessage, []byte{},
				time.Now().Add(writeWait)); err != nil {
				return
			}
		}
	}
}

// readLoop drains client messages to keep pong handling alive; inbound
// payloads are ignored, the stream is one-way.
func (h *Hub) readLoop(c *client) {
	defer func() {
		select {
		case h.unregister <- c:
		case <-h.stopCh:
		}
	}()

	c.conn.SetReadLimit(512)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}
