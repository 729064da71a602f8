package transport

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/decred/slog"
	"github.com/gorilla/websocket"

	"github.com/pongd/pongd/internal/session"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 30 * time.Second
	readLimit  = 4096
	sendBuffer = 64
)

// client is one websocket bound to a match. It satisfies
// session.Subscriber.
type client struct {
	id      string
	matchID string
	conn    *websocket.Conn
	codec   codec
	log     slog.Logger

	mu     sync.Mutex
	send   chan []byte
	closed bool

	player atomic.Value // string
}

func newClient(id, matchID, playerID string, conn *websocket.Conn, c codec, log slog.Logger) *client {
	cl := &client{
		id:      id,
		matchID: matchID,
		conn:    conn,
		codec:   c,
		log:     log,
		send:    make(chan []byte, sendBuffer),
	}
	cl.player.Store(playerID)
	return cl
}

func (c *client) PlayerID() string {
	return c.player.Load().(string)
}

func (c *client) setPlayer(id string) {
	c.player.Store(id)
}

func (c *client) Open() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return !c.closed
}

// Send queues a snapshot frame, encoding it at most once per codec across
// the match's subscribers.
func (c *client) Send(f *session.Frame) {
	payload, err := f.Encoded(c.codec.name(), func(f *session.Frame) ([]byte, error) {
		return c.codec.encode(wsOut{Type: f.Type, Data: f.State})
	})
	if err != nil {
		c.log.Errorf("client %s: encode %s: %v", c.id, f.Type, err)
		return
	}
	c.enqueue(payload)
}

// Release closes the outbound queue; the write pump then sends a close
// frame and the read pump unwinds.
func (c *client) Release() {
	c.closeSend()
}

// push encodes a reply meant for this channel only and queues it.
func (c *client) push(v wsOut) {
	payload, err := c.codec.encode(v)
	if err != nil {
		c.log.Errorf("client %s: encode %s: %v", c.id, v.Type, err)
		return
	}
	c.enqueue(payload)
}

// enqueue never blocks. A full queue drops the frame; a stuck client is
// cut off by its write deadline.
func (c *client) enqueue(payload []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	select {
	case c.send <- payload:
	default:
	}
}

func (c *client) closeSend() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
}

func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := c.conn.WriteMessage(c.codec.frameType(), msg); err != nil {
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
