package listener

import (
	"errors"
	"io"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	DefaultKeepaliveInterval = 20 * time.Second
	DefaultDeadPeerTimeout   = 60 * time.Second
	DefaultSendBuffer        = 256

	writeWait    = 5 * time.Second
	maxFrameSize = 1 << 20
)

var (
	ErrConnClosed     = errors.New("connection closed")
	ErrSendBufferFull = errors.New("send buffer full")
)

// wsConn adapts a websocket to player.Conn. Writes are queued and performed
// by a single pump goroutine.
type wsConn struct {
	ws   *websocket.Conn
	send chan []byte

	closed    chan struct{}
	closeOnce sync.Once
	pumpDone  chan struct{}

	keepalive time.Duration
	deadPeer  time.Duration
}

func newWsConn(ws *websocket.Conn, buffer int, keepalive, deadPeer time.Duration) *wsConn {
	c := &wsConn{
		ws:        ws,
		send:      make(chan []byte, buffer),
		closed:    make(chan struct{}),
		pumpDone:  make(chan struct{}),
		keepalive: keepalive,
		deadPeer:  deadPeer,
	}

	ws.SetReadLimit(maxFrameSize)
	_ = ws.SetReadDeadline(time.Now().Add(deadPeer))
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(c.deadPeer))
	})

	go c.writePump()
	return c
}

// ReadMessage returns the next data frame. A normal close by the peer is
// reported as io.EOF.
func (c *wsConn) ReadMessage() ([]byte, error) {
	_, data, err := c.ws.ReadMessage()
	if err != nil {
		if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseNoStatusReceived) {
			return nil, io.EOF
		}
		return nil, err
	}
	return data, nil
}

// Send queues data without blocking.
func (c *wsConn) Send(data []byte) error {
	select {
	case <-c.closed:
		return ErrConnClosed
	default:
	}

	select {
	case c.send <- data:
		return nil
	default:
		return ErrSendBufferFull
	}
}

// Close flushes queued messages, sends a close frame and releases the socket.
func (c *wsConn) Close() error {
	c.closeOnce.Do(func() { close(c.closed) })
	<-c.pumpDone
	return c.ws.Close()
}

func (c *wsConn) writePump() {
	ticker := time.NewTicker(c.keepalive)
	defer func() {
		ticker.Stop()
		close(c.pumpDone)
	}()

	for {
		select {
		case msg := <-c.send:
			if err := c.write(websocket.TextMessage, msg); err != nil {
				c.abort()
				return
			}

		case <-ticker.C:
			if err := c.write(websocket.PingMessage, nil); err != nil {
				c.abort()
				return
			}

		case <-c.closed:
			c.flush()
			_ = c.write(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}

func (c *wsConn) flush() {
	for {
		select {
		case msg := <-c.send:
			if err := c.write(websocket.TextMessage, msg); err != nil {
				return
			}
		default:
			return
		}
	}
}

// abort marks the connection closed after a failed write and unblocks the
// reader.
func (c *wsConn) abort() {
	c.closeOnce.Do(func() { close(c.closed) })
	_ = c.ws.Close()
}

func (c *wsConn) write(messageType int, data []byte) error {
	_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
	return c.ws.WriteMessage(messageType, data)
}
