package handlers

import (
	"net/http"
	"sync"
	"time"

	"github.com/bloomforlungs/bloom/internal/impact"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
)

const (
	MessageConnected     = "connected"
	MessagePledgeCreated = "pledge_created"
)

type CountMessage struct {
	Type  string       `json:"type"`
	Count int64        `json:"count"`
	Stats impact.Stats `json:"stats"`
}

func countMessage(kind string, count int64) CountMessage {
	return CountMessage{Type: kind, Count: count, Stats: impact.For(count)}
}

const sendBuffer = 8

// streamClient owns one connection. Only its writer goroutine writes to conn.
type streamClient struct {
	conn *websocket.Conn
	send chan CountMessage
}

func newStreamClient(conn *websocket.Conn) *streamClient {
	return &streamClient{conn: conn, send: make(chan CountMessage, sendBuffer)}
}

// offer queues msg without blocking. When the queue is full the oldest count
// is discarded; every message carries the full total.
func (c *streamClient) offer(msg CountMessage) {
	for {
		select {
		case c.send <- msg:
			return
		default:
		}

		select {
		case <-c.send:
		default:
		}
	}
}

func (c *streamClient) writeJSON(v any) error {
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return c.conn.WriteJSON(v)
}

func (c *streamClient) ping() error {
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return c.conn.WriteMessage(websocket.PingMessage, nil)
}

// writePump delivers queued counts and keeps the connection alive until done
// is closed or a write fails.
func (c *streamClient) writePump(done <-chan struct{}, logger *zap.Logger) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case msg := <-c.send:
			if err := c.writeJSON(msg); err != nil {
				logger.Warn("pledge broadcast failed", zap.Error(err))
				c.conn.Close()
				return
			}
		case <-ticker.C:
			if err := c.ping(); err != nil {
				c.conn.Close()
				return
			}
		}
	}
}

// PledgeStream pushes the live pledge total to connected browsers.
type PledgeStream struct {
	clients  map[*streamClient]bool
	mu       sync.RWMutex
	upgrader websocket.Upgrader
	logger   *zap.Logger
}

func NewPledgeStream(origins []string, logger *zap.Logger) *PledgeStream {
	if logger == nil {
		logger = zap.NewNop()
	}

	allowed := make(map[string]bool, len(origins))
	for _, origin := range origins {
		allowed[origin] = true
	}

	return &PledgeStream{
		clients: make(map[*streamClient]bool),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return allowed[r.Header.Get("Origin")]
			},
		},
		logger: logger,
	}
}

// Broadcast queues the new total for every client and returns without
// waiting on any connection. It is wired as a live count increment hook.
func (s *PledgeStream) Broadcast(count int64) {
	msg := countMessage(MessagePledgeCreated, count)

	s.mu.RLock()
	defer s.mu.RUnlock()

	for c := range s.clients {
		c.offer(msg)
	}
}

func (s *PledgeStream) Clients() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.clients)
}

func (s *PledgeStream) add(c *streamClient) {
	s.mu.Lock()
	s.clients[c] = true
	s.mu.Unlock()
}

func (s *PledgeStream) remove(c *streamClient) {
	s.mu.Lock()
	delete(s.clients, c)
	s.mu.Unlock()
}

// StreamPledges upgrades the request and streams count updates until the
// client goes away.
func (h *Handler) StreamPledges(ctx *gin.Context) {
	s := h.Stream

	conn, err := s.upgrader.Upgrade(ctx.Writer, ctx.Request, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	c := newStreamClient(conn)

	conn.SetReadLimit(maxMessageSize)
	if err := conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		conn.Close()
		return
	}
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	// Register before the snapshot so no increment between the two is lost.
	// Increments queue up until the writer starts.
	s.add(c)

	done := make(chan struct{})

	defer func() {
		close(done)
		s.remove(c)
		conn.Close()
	}()

	if err := c.writeJSON(countMessage(MessageConnected, h.Counter.Value())); err != nil {
		s.logger.Warn("sending pledge snapshot failed", zap.Error(err))
		return
	}

	go c.writePump(done, s.logger)

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				s.logger.Warn("websocket closed unexpectedly", zap.Error(err))
			}
			return
		}
	}
}
