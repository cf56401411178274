package ws

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"order-board/internal/ordersync/domain/dto"
	"order-board/internal/xpkg/logger"
)

const (
	writeWait      = 10 * time.Second
	clientBufSize  = 32
	maxMessageSize = 4096
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Dev tool, boards connect from anywhere on the LAN.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Hub fans out order frames to every connected board. A client that cannot
// keep up is dropped rather than allowed to stall the rest.
type Hub struct {
	mylog logger.Logger

	mu      sync.Mutex
	clients map[*client]struct{}
}

type client struct {
	ws   *websocket.Conn
	send chan []byte
}

func NewHub(mylog logger.Logger) *Hub {
	return &Hub{
		mylog:   mylog,
		clients: make(map[*client]struct{}),
	}
}

// Broadcast marshals the frame once and queues it for every client.
func (h *Hub) Broadcast(frame dto.Frame) {
	data, err := json.Marshal(frame)
	if err != nil {
		h.mylog.Action("broadcast_failed").Error("Failed to marshal frame", err, "type", frame.Type)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		select {
		case c.send <- data:
		default:
			h.mylog.Action("client_dropped").Warn("Slow websocket client dropped")
			delete(h.clients, c)
			close(c.send)
		}
	}
}

// ServeWS upgrades the request and keeps the connection until the client
// goes away.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.mylog.Action("upgrade_failed").Error("Failed to upgrade connection", err)
		return
	}

	c := &client{ws: ws, send: make(chan []byte, clientBufSize)}
	h.mu.Lock()
	h.clients[c] = struct{}{}
	count := len(h.clients)
	h.mu.Unlock()
	h.mylog.Action("client_connected").Info("Board connected", "clients", count)

	go h.writeLoop(c)
	h.readLoop(c)
}

func (h *Hub) writeLoop(c *client) {
	defer c.ws.Close()
	for data := range c.send {
		c.ws.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.ws.WriteMessage(websocket.TextMessage, data); err != nil {
			return
		}
	}
	c.ws.SetWriteDeadline(time.Now().Add(writeWait))
	c.ws.WriteMessage(websocket.CloseMessage, []byte{})
}

// readLoop drains inbound messages; boards only listen, so anything read is
// discarded, but the read is what detects the close.
func (h *Hub) readLoop(c *client) {
	c.ws.SetReadLimit(maxMessageSize)
	for {
		if _, _, err := c.ws.ReadMessage(); err != nil {
			break
		}
	}

	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
	h.mu.Unlock()
	c.ws.Close()
	h.mylog.Action("client_disconnected").Info("Board disconnected")
}

// CloseAll disconnects every client, for shutdown.
func (h *Hub) CloseAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		delete(h.clients, c)
		close(c.send)
	}
}
