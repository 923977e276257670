package feed

import (
	"encoding/json"
	"log"
	"time"

	"fixitfast/backend/internal/models"
	"fixitfast/backend/internal/scope"

	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
)

// WebSocketClient streams feed events to a browser.
type WebSocketClient struct {
	ActorID string
	Visible scope.Scope
	Conn    *websocket.Conn
	Hub     *ManagerService
	Send    chan models.ComplaintEvent
}

// NewWebSocketClient creates a client with a buffered send queue.
func NewWebSocketClient(hub *ManagerService, conn *websocket.Conn, actorID string, sc scope.Scope) *WebSocketClient {
	return &WebSocketClient{
		ActorID: actorID,
		Visible: sc,
		Conn:    conn,
		Hub:     hub,
		Send:    make(chan models.ComplaintEvent, 256),
	}
}

func (c *WebSocketClient) GetActorID() string                           { return c.ActorID }
func (c *WebSocketClient) Scope() scope.Scope                           { return c.Visible }
func (c *WebSocketClient) GetSendChannel() chan<- models.ComplaintEvent { return c.Send }

// Run starts the pumps.
func (c *WebSocketClient) Run() {
	go c.writePump()
	go c.readPump()
}

// Close stops the write pump, which closes the connection.
func (c *WebSocketClient) Close() {
	close(c.Send)
}

// readPump only watches the connection: the feed is server to client, so incoming
// frames other than control messages are discarded.
func (c *WebSocketClient) readPump() {
	defer func() {
		c.Hub.Unregister(c)
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := c.Conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("error reading from feed client %s: %v", c.ActorID, err)
			}
			return
		}
	}
}

func (c *WebSocketClient) writePump() {
	ticker := time.NewTicker(pingPeriod)

	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case ev, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			data, err := json.Marshal(ev)
			if err != nil {
				log.Printf("Error encoding event for feed client %s: %v", c.ActorID, err)
				continue
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
