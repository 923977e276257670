package handler

import (
	"log"
	"net/http"

	"fixitfast/backend/internal/feed"
	"fixitfast/backend/internal/scope"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// TODO: restrict to the dashboard origin once it has a fixed domain.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// ServeFeed upgrades the connection and streams complaint events inside the
// caller's scope.
func (h *Handler) ServeFeed(c *gin.Context) {
	actor := actorFrom(c)

	// Computed before the upgrade so an admin without a city gets a normal error.
	sc, err := scope.For(actor)
	if err != nil {
		writeError(c, err)
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("ERROR: Failed to upgrade feed connection for %s: %v", actor.ID, err)
		return
	}

	client := feed.NewWebSocketClient(h.Hub, conn, actor.ID, sc)
	if !h.Hub.Register(client) {
		conn.Close()
		return
	}
	client.Run()
}
