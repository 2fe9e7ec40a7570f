package hub

import (
	"time"

	"github.com/gorilla/websocket"
)

// Conn is one live observer connection. It holds no event history; frames
// queued before a write failure are dropped with the connection.
type Conn struct {
	ws   *websocket.Conn
	hub  *Hub
	send chan []byte
}

// writePump drains the send queue onto the socket. It exits when the hub
// closes the queue (unregister or shutdown) or a write fails, and always
// sends a close frame so the observer is not abandoned silently.
func (c *Conn) writePump() {
	defer closeSocket(c.ws, c.hub.writeTimeout)

	for frame := range c.send {
		c.ws.SetWriteDeadline(time.Now().Add(c.hub.writeTimeout))
		if err := c.ws.WriteMessage(websocket.TextMessage, frame); err != nil {
			c.hub.Unregister(c)
			break
		}
	}
}

// ReadLoop consumes inbound frames until the peer disconnects, then
// unregisters the connection. Observers are receive-only; anything they
// send is discarded.
func (c *Conn) ReadLoop() {
	defer c.hub.Unregister(c)

	for {
		if _, _, err := c.ws.ReadMessage(); err != nil {
			return
		}
	}
}
