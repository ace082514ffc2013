package hub

import (
	"log/slog"
	"sync"
)

type Writer interface {
	Write(message []byte) error
	Close() error
}

// outboundQueueSize bounds how far a recipient may fall behind before the
// hub gives up on the connection. Overflow evicts rather than blocks, so one
// wedged socket never stalls delivery to other recipients.
const outboundQueueSize = 256

// Connection is one live channel for one username. All writes go through the
// outbound queue and a single writer goroutine, so delivery to a recipient
// is FIFO.
type Connection struct {
	Username string

	writer    Writer
	out       chan []byte
	done      chan struct{}
	closeOnce sync.Once
}

func (c *Connection) shutdown() {
	c.closeOnce.Do(func() {
		close(c.done)
		_ = c.writer.Close()
	})
}

// Done is closed when the connection has been evicted or superseded. Read
// loops select on it to terminate.
func (c *Connection) Done() <-chan struct{} {
	return c.done
}

// Enqueue queues a payload on this specific connection, bypassing the
// registry lookup. Reports false when the connection is closed or backed up.
func (c *Connection) Enqueue(payload []byte) bool {
	select {
	case c.out <- payload:
		return true
	case <-c.done:
		return false
	default:
		return false
	}
}

// Hub is the process-wide connection registry: at most one live connection
// per username. It is constructed explicitly and injected; Close tears it
// down.
type Hub struct {
	mu    sync.Mutex
	conns map[string]*Connection
	log   *slog.Logger
}

func New(log *slog.Logger) *Hub {
	if log == nil {
		log = slog.Default()
	}
	return &Hub{conns: make(map[string]*Connection), log: log}
}

// Register installs a connection for username. Any prior connection for the
// same username is closed and evicted first, never left dangling.
func (h *Hub) Register(username string, w Writer) *Connection {
	conn := &Connection{
		Username: username,
		writer:   w,
		out:      make(chan []byte, outboundQueueSize),
		done:     make(chan struct{}),
	}

	h.mu.Lock()
	prev := h.conns[username]
	h.conns[username] = conn
	h.mu.Unlock()

	if prev != nil {
		prev.shutdown()
		h.log.Debug("superseded connection", "username", username)
	}

	go h.writeLoop(conn)
	return conn
}

// Unregister evicts conn if it is still the registered connection for its
// username, and shuts it down either way. Idempotent.
func (h *Hub) Unregister(conn *Connection) {
	h.mu.Lock()
	if h.conns[conn.Username] == conn {
		delete(h.conns, conn.Username)
	}
	h.mu.Unlock()
	conn.shutdown()
}

// Send queues payload for username. Absent or closed connections are a
// silent no-op; a full queue evicts the connection instead of blocking.
func (h *Hub) Send(username string, payload []byte) {
	h.mu.Lock()
	conn := h.conns[username]
	h.mu.Unlock()
	if conn == nil {
		return
	}

	select {
	case conn.out <- payload:
	case <-conn.done:
	default:
		h.log.Warn("outbound queue full, dropping connection", "username", username)
		h.Unregister(conn)
	}
}

func (h *Hub) SendToMany(usernames []string, payload []byte) {
	for _, username := range usernames {
		h.Send(username, payload)
	}
}

func (h *Hub) Online(username string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.conns[username] != nil
}

// Close evicts every connection. The hub must not be used afterwards.
func (h *Hub) Close() {
	h.mu.Lock()
	conns := make([]*Connection, 0, len(h.conns))
	for _, conn := range h.conns {
		conns = append(conns, conn)
	}
	h.conns = make(map[string]*Connection)
	h.mu.Unlock()

	for _, conn := range conns {
		conn.shutdown()
	}
}

func (h *Hub) writeLoop(conn *Connection) {
	for {
		select {
		case <-conn.done:
			return
		case payload := <-conn.out:
			if err := conn.writer.Write(payload); err != nil {
				h.log.Debug("write failed, evicting connection", "username", conn.Username, "err", err)
				h.Unregister(conn)
				return
			}
		}
	}
}
