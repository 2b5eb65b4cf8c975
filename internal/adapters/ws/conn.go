package ws

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/dkarev/pokerboard/internal/app"
)

var ErrBackpressure = errors.New("backpressure")

const writeWait = 5 * time.Second

// Conn wraps a websocket connection behind app.MemberConn. Writes go
// through a buffered channel drained by writePump; TrySend never blocks the
// broadcaster.
type Conn struct {
	id   string
	conn *websocket.Conn
	send chan app.Frame

	mu     sync.RWMutex
	closed bool
}

func newConn(id string, conn *websocket.Conn) *Conn {
	return &Conn{
		id:   id,
		conn: conn,
		send: make(chan app.Frame, 32),
	}
}

func (c *Conn) TrySend(f app.Frame) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return app.ErrConnClosed
	}
	select {
	case c.send <- f:
	default:
		return ErrBackpressure
	}
	return nil
}

func (c *Conn) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	close(c.send)
	_ = c.conn.Close()
	c.mu.Unlock()
}

// writePump drains the send channel to the network and pings the client on
// the heartbeat interval. A client that stops answering pings trips the read
// deadline in readPump, which closes the whole connection.
func (c *Conn) writePump(ctx context.Context, pingPeriod time.Duration) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info().Str("module", "ws").Str("conn", c.id).Msg("writePump ctx done")
			return
		case data, ok := <-c.send:
			if !ok {
				return
			}
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				log.Error().Err(err).Str("module", "ws").Str("conn", c.id).Msg("writePump set deadline")
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Error().Err(err).Str("module", "ws").Str("conn", c.id).Msg("writePump write error")
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
