package websocket

import (
	"encoding/json"
	"errors"
	"sync"

	"printhub/pkg/logger"

	"github.com/gorilla/websocket"
)

// sendBuffer bounds the per-connection outbound queue. A client that
// stops reading fills its own buffer and starts losing broadcasts; it
// never stalls delivery to anyone else.
const sendBuffer = 64

var errConnectionClosed = errors.New("connection closed")
var errSendBufferFull = errors.New("send buffer full")

// WebSocketConnection wraps one gorilla connection with a buffered send
// channel drained by a single write pump. All writes go through the
// channel, so messages reach the wire in enqueue order.
type WebSocketConnection struct {
	id     string
	userID string
	conn   *websocket.Conn
	send   chan []byte
	done   chan struct{}
	once   sync.Once
	log    logger.Logger
}

func NewWebSocketConnection(conn *websocket.Conn, id, userID string, log logger.Logger) *WebSocketConnection {
	c := &WebSocketConnection{
		id:     id,
		userID: userID,
		conn:   conn,
		send:   make(chan []byte, sendBuffer),
		done:   make(chan struct{}),
		log:    log,
	}

	go c.writePump()
	return c
}

func (c *WebSocketConnection) ID() string {
	return c.id
}

func (c *WebSocketConnection) UserID() string {
	return c.userID
}

func (c *WebSocketConnection) Send(message interface{}) error {
	data, err := json.Marshal(message)
	if err != nil {
		return err
	}
	return c.SendRaw(data)
}

// SendRaw enqueues without blocking. A full buffer counts as a failed
// delivery; the caller logs and moves on.
func (c *WebSocketConnection) SendRaw(message []byte) error {
	select {
	case <-c.done:
		return errConnectionClosed
	default:
	}

	select {
	case c.send <- message:
		return nil
	case <-c.done:
		return errConnectionClosed
	default:
		return errSendBufferFull
	}
}

func (c *WebSocketConnection) Close() error {
	var err error
	c.once.Do(func() {
		close(c.done)
		err = c.conn.Close()
	})
	return err
}

func (c *WebSocketConnection) writePump() {
	for {
		select {
		case message := <-c.send:
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				c.log.Debug("Write failed, closing connection",
					"connection_id", c.id, "error", err)
				c.Close()
				return
			}
		case <-c.done:
			return
		}
	}
}
