package client

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"pkt.systems/pslog"
)

const (
	DefaultReconnectDelay    = 3 * time.Second
	DefaultHeartbeatInterval = 30 * time.Second
	DefaultWriteTimeout      = 10 * time.Second
)

var (
	// ErrNotConnected is returned by Send when the connection is not open.
	// The command is dropped, not queued.
	ErrNotConnected = errors.New("not connected")
	// ErrClosed is returned by Connect when Disconnect ran while dialing.
	ErrClosed = errors.New("connection closed")
)

// Transport is the subset of *websocket.Conn the manager needs.
type Transport interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	SetWriteDeadline(t time.Time) error
	Close() error
}

// DialFunc opens a transport to url.
type DialFunc func(ctx context.Context, url string) (Transport, error)

// DialWebSocket dials url with gorilla's default dialer.
func DialWebSocket(ctx context.Context, url string) (Transport, error) {
	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	if err != nil {
		return nil, err
	}
	return conn, nil
}

// Options tunes a Manager. Zero values select the defaults.
type Options struct {
	ReconnectDelay    time.Duration
	HeartbeatInterval time.Duration
	WriteTimeout      time.Duration
	Dial              DialFunc
	Bus               *Bus
	Logger            pslog.Logger
}

// Manager owns one WebSocket connection: its lifecycle, the heartbeat, and
// reconnection after unexpected closes. Construct exactly one per process in
// the composition root and share it.
type Manager struct {
	url            string
	reconnectDelay time.Duration
	heartbeat      time.Duration
	writeTimeout   time.Duration
	dial           DialFunc
	bus            *Bus
	log            pslog.Logger

	mu            sync.Mutex
	writeMu       sync.Mutex // serialises all conn writes (ping, chat, close)
	status        Status
	conn          Transport
	gen           uint64 // bumped by Connect and Disconnect; stale callbacks compare against it
	intentional   bool
	reconnect     *time.Timer
	stopHeartbeat context.CancelFunc
	cancelDial    context.CancelFunc
}

// NewManager creates a manager for the given WebSocket URL. It does not dial.
func NewManager(url string, opts Options) *Manager {
	m := &Manager{
		url:            url,
		reconnectDelay: opts.ReconnectDelay,
		heartbeat:      opts.HeartbeatInterval,
		writeTimeout:   opts.WriteTimeout,
		dial:           opts.Dial,
		bus:            opts.Bus,
		log:            opts.Logger,
		status:         StatusClosed,
	}
	if m.reconnectDelay <= 0 {
		m.reconnectDelay = DefaultReconnectDelay
	}
	if m.heartbeat <= 0 {
		m.heartbeat = DefaultHeartbeatInterval
	}
	if m.writeTimeout <= 0 {
		m.writeTimeout = DefaultWriteTimeout
	}
	if m.dial == nil {
		m.dial = DialWebSocket
	}
	if m.log == nil {
		m.log = pslog.Ctx(context.Background())
	}
	m.log = m.log.With("url", url)
	if m.bus == nil {
		m.bus = NewBus(m.log)
	}
	return m
}

// URL returns the target address.
func (m *Manager) URL() string { return m.url }

// Bus returns the bus inbound messages are published on.
func (m *Manager) Bus() *Bus { return m.bus }

// Subscribe registers a handler on the manager's bus.
func (m *Manager) Subscribe(h Handler) func() { return m.bus.Subscribe(h) }

// Status returns a point-in-time snapshot of the transport state. The same
// transitions are published on the bus as EventStatus events.
func (m *Manager) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status
}

// Connect dials the server. It returns once the transport is open, or with
// the dial error. A failed attempt schedules a reconnect, as does any later
// close that was not requested through Disconnect. Calling Connect while
// already connecting or open is a caller error.
func (m *Manager) Connect(ctx context.Context) error {
	m.mu.Lock()
	m.intentional = false
	m.gen++
	gen := m.gen
	if m.stopHeartbeat != nil {
		m.stopHeartbeat()
		m.stopHeartbeat = nil
	}
	dialCtx, cancel := context.WithCancel(ctx)
	m.cancelDial = cancel
	m.status = StatusConnecting
	m.mu.Unlock()
	m.bus.Publish(StatusEvent(StatusConnecting))

	conn, err := m.dial(dialCtx, m.url)
	cancel()

	m.mu.Lock()
	if gen != m.gen {
		m.mu.Unlock()
		if conn != nil {
			conn.Close()
		}
		if err == nil {
			err = ErrClosed
		}
		return err
	}
	m.cancelDial = nil

	if err != nil {
		m.conn = nil
		m.status = StatusClosed
		if !m.intentional {
			m.scheduleReconnectLocked()
		}
		m.mu.Unlock()
		m.bus.Publish(StatusEvent(StatusClosed))
		m.log.Warn("ws connect failed", "err", err)
		return fmt.Errorf("dial %s: %w", m.url, err)
	}

	hbCtx, hbCancel := context.WithCancel(context.Background())
	m.conn = conn
	m.stopHeartbeat = hbCancel
	m.status = StatusOpen
	m.mu.Unlock()

	m.log.Info("ws connected")
	m.bus.Publish(StatusEvent(StatusOpen))
	go m.heartbeatLoop(hbCtx)
	go m.readLoop(conn, gen)
	return nil
}

// Disconnect closes the connection on purpose. It cancels any pending
// reconnect and the heartbeat before returning, so the manager produces no
// further side effects until Connect is called again.
func (m *Manager) Disconnect() {
	m.mu.Lock()
	m.intentional = true
	m.gen++
	if m.reconnect != nil {
		m.reconnect.Stop()
		m.reconnect = nil
	}
	if m.stopHeartbeat != nil {
		m.stopHeartbeat()
		m.stopHeartbeat = nil
	}
	if m.cancelDial != nil {
		m.cancelDial()
		m.cancelDial = nil
	}
	conn := m.conn
	m.conn = nil
	prev := m.status
	if conn != nil {
		m.status = StatusClosing
	}
	m.mu.Unlock()

	if conn != nil {
		m.bus.Publish(StatusEvent(StatusClosing))
		m.writeMu.Lock()
		conn.SetWriteDeadline(time.Now().Add(m.writeTimeout))
		conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		m.writeMu.Unlock()
		conn.Close()
	}

	m.mu.Lock()
	m.status = StatusClosed
	m.mu.Unlock()
	if prev != StatusClosed {
		m.log.Info("ws disconnected")
		m.bus.Publish(StatusEvent(StatusClosed))
	}
}

// Send encodes and writes cmd. When the connection is not open the command
// is dropped with a warning and ErrNotConnected is returned.
func (m *Manager) Send(cmd OutboundCommand) error {
	data, err := Encode(cmd)
	if err != nil {
		return err
	}

	m.mu.Lock()
	conn := m.conn
	open := m.status == StatusOpen
	m.mu.Unlock()
	if !open || conn == nil {
		m.log.Warn("ws send dropped", "type", cmd.Type, "reason", "not connected")
		return ErrNotConnected
	}

	m.writeMu.Lock()
	defer m.writeMu.Unlock()
	conn.SetWriteDeadline(time.Now().Add(m.writeTimeout))
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		return fmt.Errorf("send %s: %w", cmd.Type, err)
	}
	return nil
}

// readLoop delivers frames in transport order until the connection fails.
func (m *Manager) readLoop(conn Transport, gen uint64) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			m.handleClose(conn, gen, err)
			return
		}
		if !m.current(gen) {
			return
		}
		m.bus.Dispatch(data)
	}
}

func (m *Manager) handleClose(conn Transport, gen uint64, cause error) {
	m.mu.Lock()
	if gen != m.gen || m.conn != conn {
		m.mu.Unlock()
		conn.Close()
		return
	}
	m.conn = nil
	if m.stopHeartbeat != nil {
		m.stopHeartbeat()
		m.stopHeartbeat = nil
	}
	m.status = StatusClosed
	if !m.intentional {
		m.scheduleReconnectLocked()
	}
	m.mu.Unlock()

	conn.Close()
	m.log.Warn("ws connection lost", "err", cause)
	m.bus.Publish(StatusEvent(StatusClosed))
}

// scheduleReconnectLocked arms the reconnect timer unless one is already
// pending. Caller must hold m.mu.
func (m *Manager) scheduleReconnectLocked() {
	if m.reconnect != nil {
		return
	}
	m.log.Info("ws reconnect scheduled", "delay", m.reconnectDelay.String())
	var t *time.Timer
	t = time.AfterFunc(m.reconnectDelay, func() {
		m.mu.Lock()
		if m.reconnect != t || m.intentional {
			m.mu.Unlock()
			return
		}
		m.reconnect = nil
		m.mu.Unlock()

		if err := m.Connect(context.Background()); err != nil {
			m.log.Debug("ws reconnect attempt failed", "err", err)
		}
	})
	m.reconnect = t
}

// reconnectPending reports whether a reconnect timer is armed.
func (m *Manager) reconnectPending() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.reconnect != nil
}

func (m *Manager) current(gen uint64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return gen == m.gen
}

// heartbeatLoop sends a ping on every tick. It keeps intermediaries from
// idling the connection out and does not check for pongs.
func (m *Manager) heartbeatLoop(ctx context.Context) {
	ticker := time.NewTicker(m.heartbeat)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := m.Send(PingCommand()); err != nil {
				m.log.Debug("ws heartbeat failed", "err", err)
			}
		}
	}
}
