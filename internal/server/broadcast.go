package server

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"pkt.systems/pslog"

	"github.com/layer97/pulse/internal/logx"
)

// ErrTooManyConnections is returned by AddClient when the connection limit
// has been reached.
var ErrTooManyConnections = errors.New("too many websocket connections")

const (
	sendBuffer = 64
	writeWait  = 10 * time.Second
)

// Conn is one connected WebSocket client.
type Conn struct {
	id   string
	conn *websocket.Conn
	b    *Broadcaster
	log  pslog.Logger

	mu     sync.Mutex
	send   chan []byte
	closed bool
}

// ID returns the connection id used in logs.
func (c *Conn) ID() string { return c.id }

func (c *Conn) writePump() {
	defer c.conn.Close()
	for msg := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			c.log.Debug("ws write failed", "err", err)
			c.b.RemoveClient(c)
			return
		}
	}
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}

// enqueue reports false when the client's buffer is full.
func (c *Conn) enqueue(data []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return true
	}
	select {
	case c.send <- data:
		return true
	default:
		return false
	}
}

func (c *Conn) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

// Broadcaster fans frames out to every connected client. Each client has a
// buffered queue drained by its own write pump; a client whose queue is full
// is disconnected.
type Broadcaster struct {
	mu       sync.RWMutex
	clients  map[*Conn]bool
	maxConns int
	log      pslog.Logger
}

// NewBroadcaster creates a broadcaster. maxConns <= 0 means unlimited.
func NewBroadcaster(log pslog.Logger, maxConns int) *Broadcaster {
	return &Broadcaster{
		clients:  make(map[*Conn]bool),
		maxConns: maxConns,
		log:      logx.WithComponent(log, "broadcaster"),
	}
}

// AddClient registers conn and starts its write pump.
func (b *Broadcaster) AddClient(conn *websocket.Conn) (*Conn, error) {
	c := &Conn{
		id:   uuid.NewString(),
		conn: conn,
		b:    b,
		send: make(chan []byte, sendBuffer),
	}
	c.log = logx.WithClient(b.log, c.id, conn.RemoteAddr().String())

	b.mu.Lock()
	if b.maxConns > 0 && len(b.clients) >= b.maxConns {
		b.mu.Unlock()
		return nil, ErrTooManyConnections
	}
	b.clients[c] = true
	b.mu.Unlock()

	go c.writePump()
	return c, nil
}

// RemoveClient unregisters c and stops its write pump. Safe to call twice.
func (b *Broadcaster) RemoveClient(c *Conn) {
	b.mu.Lock()
	_, ok := b.clients[c]
	delete(b.clients, c)
	b.mu.Unlock()
	if ok {
		c.close()
	}
}

// Send queues frame for a single client.
func (b *Broadcaster) Send(c *Conn, frame Frame) {
	data, err := frame.Marshal()
	if err != nil {
		b.log.Error("ws marshal failed", "type", frame.Type, "err", err)
		return
	}
	if !c.enqueue(data) {
		c.log.Warn("ws client too slow, disconnecting")
		b.RemoveClient(c)
	}
}

// Broadcast queues frame for every client.
func (b *Broadcaster) Broadcast(frame Frame) {
	data, err := frame.Marshal()
	if err != nil {
		b.log.Error("ws marshal failed", "type", frame.Type, "err", err)
		return
	}

	b.mu.RLock()
	clients := make([]*Conn, 0, len(b.clients))
	for c := range b.clients {
		clients = append(clients, c)
	}
	b.mu.RUnlock()

	for _, c := range clients {
		if !c.enqueue(data) {
			c.log.Warn("ws client too slow, disconnecting")
			b.RemoveClient(c)
		}
	}
}

// ClientCount returns the number of connected clients.
func (b *Broadcaster) ClientCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.clients)
}

// Close disconnects every client.
func (b *Broadcaster) Close() {
	b.mu.Lock()
	clients := b.clients
	b.clients = make(map[*Conn]bool)
	b.mu.Unlock()
	for c := range clients {
		c.close()
	}
}
