package realtime

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

const (
	// sendBuffer bounds the per-connection outbound queue. A consumer that
	// falls this far behind starts losing frames rather than blocking the
	// broadcast fan-out.
	sendBuffer = 64

	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

// wsConn is the slice of *websocket.Conn the client needs. Tests substitute
// a fake.
type wsConn interface {
	WriteMessage(messageType int, data []byte) error
	SetWriteDeadline(t time.Time) error
	Close() error
}

// Client is the transport handle for one live connection. The hub holds
// clients only by identifier; lifecycle ownership stays with the connection
// manager that created them.
type Client struct {
	ID string

	conn      wsConn
	send      chan []byte
	closeOnce sync.Once
	done      chan struct{}
	logger    zerolog.Logger
}

// NewClient wraps an upgraded websocket connection.
func NewClient(id string, conn wsConn, logger zerolog.Logger) *Client {
	return &Client{
		ID:     id,
		conn:   conn,
		send:   make(chan []byte, sendBuffer),
		done:   make(chan struct{}),
		logger: logger.With().Str("conn", id).Logger(),
	}
}

// Send queues a frame for the write pump. It never blocks: if the buffer is
// full or the client is closing, the frame is dropped and Send reports false.
func (c *Client) Send(frame []byte) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.send <- frame:
		return true
	default:
		return false
	}
}

// Close stops the write pump and closes the underlying connection. Safe to
// call from any close path, any number of times.
func (c *Client) Close() {
	c.closeOnce.Do(func() {
		close(c.done)
		if err := c.conn.Close(); err != nil {
			c.logger.Debug().Err(err).Msg("error closing connection")
		}
	})
}

// WritePump serializes all writes to the connection. It drains the send
// queue and emits periodic pings; it returns when the client is closed or a
// write fails.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Close()
	}()

	for {
		select {
		case frame := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				c.logger.Debug().Err(err).Msg("write failed, stopping pump")
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.done:
			return
		}
	}
}
