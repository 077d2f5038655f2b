package controller

import (
	"net/http"

	"github.com/V1b3Harshal/providers-backend-sub000/internal/service/room"
)

func (c controller) serveWS(w http.ResponseWriter, r *http.Request) {
	conn, err := c.upgrader.Upgrade(w, r, nil)
	if err != nil {
		c.logger.InfoContext(r.Context(), "failed to upgrade connection", "error", err)
		return
	}
	defer conn.Close()

	c.logger.DebugContext(r.Context(), "websocket connected", "remote_addr", conn.RemoteAddr().String())

	serveErr := c.wsmux.ServeConn(r.Context(), conn)

	if err := c.roomService.Disconnect(r.Context(), &room.DisconnectParams{Conn: conn}); err != nil {
		c.logger.ErrorContext(r.Context(), "failed to handle disconnect", "error", err)
	}

	c.logger.DebugContext(r.Context(), "websocket disconnected",
		"remote_addr", conn.RemoteAddr().String(),
		"reason", serveErr,
	)
}
