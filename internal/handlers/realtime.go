package handlers

import (
	"net/http"

	"threadloom/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

type RealtimeHandler struct {
	hub     *services.Hub
	tickets *services.TicketService
}

func NewRealtimeHandler(hub *services.Hub, tickets *services.TicketService) *RealtimeHandler {
	return &RealtimeHandler{hub: hub, tickets: tickets}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Same-origin browsers only; the ticket is the real gate
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Ticket hands the session user a short-lived token for the websocket
// upgrade, which cannot carry the session cookie cross-origin.
func (h *RealtimeHandler) Ticket(c *gin.Context) {
	user, _ := currentUser(c)

	ticket, err := h.tickets.Issue(user.ID)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ticket": ticket})
}

// Connect upgrades to a websocket and parks the connection in the hub
// until the peer goes away. Inbound frames only refresh presence.
func (h *RealtimeHandler) Connect(c *gin.Context) {
	userID, err := h.tickets.Verify(c.Query("ticket"))
	if err != nil {
		fail(c, err)
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error
		return
	}

	ctx := c.Request.Context()
	h.hub.Register(ctx, userID, conn)
	defer h.hub.Unregister(ctx, userID, conn)

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
		h.hub.Touch(ctx, userID)
	}
}
