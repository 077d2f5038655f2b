package controller

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/websocket"

	"github.com/V1b3Harshal/providers-backend-sub000/internal/repository/connection"
	"github.com/V1b3Harshal/providers-backend-sub000/internal/service/room"
	"github.com/V1b3Harshal/providers-backend-sub000/pkg/validator"
	"github.com/V1b3Harshal/providers-backend-sub000/pkg/wsrouter"
)

type iRoomService interface {
	Authenticate(context.Context, *room.AuthenticateParams) (room.AuthenticateResponse, error)
	Binding(*websocket.Conn) (connection.Binding, error)
	CreateRoom(context.Context, *room.CreateRoomParams) (room.Room, error)
	JoinRoom(context.Context, *room.JoinRoomParams) (room.JoinRoomResponse, error)
	LeaveRoom(context.Context, *room.LeaveRoomParams) error
	Disconnect(context.Context, *room.DisconnectParams) error
	KickUser(context.Context, *room.KickUserParams) error
	TransferAdmin(context.Context, *room.TransferAdminParams) error
	ApplyPlaybackAction(context.Context, *room.PlaybackActionParams) error
	SyncRoom(ctx context.Context, roomId string) (room.Room, error)
	Heartbeat(context.Context, *room.HeartbeatParams) error
	GetRoom(ctx context.Context, roomId string) (room.Room, error)
	ListRooms(context.Context) ([]room.Room, error)
	GetStats(context.Context) (room.Stats, error)
	VerifyToken(tokenString string) (*room.Claims, error)
	GenerateToken(userId string, isAdmin bool) (string, error)
}

// iConnSender serializes writes to registered connections.
type iConnSender interface {
	Send(conn *websocket.Conn, v any) error
}

type controller struct {
	roomService iRoomService
	connSender  iConnSender
	upgrader    websocket.Upgrader
	validate    *validator.Validator
	wsmux       *wsrouter.WSRouter
	logger      *slog.Logger
	secret      string
}

func NewController(roomService iRoomService, connSender iConnSender, logger *slog.Logger, secret string) *controller {
	c := &controller{
		roomService: roomService,
		connSender:  connSender,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		validate: validator.NewValidator(),
		logger:   logger,
		secret:   secret,
	}
	c.wsmux = c.getWSRouter()

	return c
}

type Output struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

// send writes to a connection through the registry's write lock; conns
// that have not authenticated yet are not registered and are written
// directly, which is safe because nothing else writes to them.
func (c controller) send(conn *websocket.Conn, v any) error {
	err := c.connSender.Send(conn, v)
	if errors.Is(err, connection.ErrNotFound) {
		return conn.WriteJSON(v)
	}

	return err
}

func (c controller) generateTimeBasedId() string {
	return strconv.FormatInt(time.Now().UnixNano(), 36)
}
