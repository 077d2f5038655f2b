package controller

import (
	"context"

	"github.com/gorilla/websocket"

	"github.com/V1b3Harshal/providers-backend-sub000/pkg/wsrouter"
)

func (c controller) getWSRouter() *wsrouter.WSRouter {
	mux := wsrouter.New()

	mux.Use(c.wsMessageIdMw())
	mux.Use(c.wsLoggerMw())
	mux.SetErrorHandler(func(ctx context.Context, conn *websocket.Conn, err error) {
		c.logger.InfoContext(ctx, "websocket handler error",
			"message_type", wsrouter.GetMessageTypeFromCtx(ctx),
			"error", err,
		)
	})

	// requests: acked to the issuing connection
	mux.Handle("authenticate", c.handleAuthenticate)
	mux.Handle("create_room", c.handleCreateRoom)
	mux.Handle("join_room", c.handleJoinRoom)
	mux.Handle("leave_room", c.handleLeaveRoom)

	// notifications: fire-and-forget, failures are logged only
	mux.Handle("playback_action", c.handlePlaybackAction)
	mux.Handle("sync_request", c.handleSyncRequest)
	mux.Handle("heartbeat", c.handleHeartbeat)

	return mux
}
