package embedded

import (
	"sync"

	"github.com/gorilla/websocket"
)

// Channel is the message-port-like transport between the embedded
// checkout and its host. Implementations must tolerate concurrent
// senders.
type Channel interface {
	Send(message []byte) error
	Close() error
}

// WebsocketChannel adapts a websocket connection to the Channel
// interface. gorilla/websocket allows one concurrent writer, so sends
// are serialized behind a mutex.
type WebsocketChannel struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

var _ Channel = (*WebsocketChannel)(nil)

// NewWebsocketChannel wraps an upgraded connection.
func NewWebsocketChannel(conn *websocket.Conn) *WebsocketChannel {
	return &WebsocketChannel{conn: conn}
}

func (c *WebsocketChannel) Send(message []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteMessage(websocket.TextMessage, message)
}

func (c *WebsocketChannel) Close() error {
	return c.conn.Close()
}

// ReadLoop pulls messages off the connection and hands each to the
// handler until the connection closes or the handler errors.
func (c *WebsocketChannel) ReadLoop(handle func(message []byte) error) error {
	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			return err
		}
		if err := handle(message); err != nil {
			return err
		}
	}
}
