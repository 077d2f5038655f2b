package room

import (
	"context"
	"errors"
	"log/slog"

	"github.com/gorilla/websocket"

	"github.com/V1b3Harshal/providers-backend-sub000/internal/repository/connection"
	"github.com/V1b3Harshal/providers-backend-sub000/internal/repository/room"
)

var (
	ErrRoomNotFound        = errors.New("room not found")
	ErrParticipantNotFound = errors.New("participant not found")
	ErrRoomNameTaken       = errors.New("room name already taken")
	ErrAlreadyInRoom       = errors.New("already in room")
	ErrRoomFull            = errors.New("room is full")
	ErrPermissionDenied    = errors.New("permission denied")
	ErrInvalidAction       = errors.New("invalid action")
	ErrInvalidToken        = errors.New("invalid token")
	ErrNotAuthenticated    = errors.New("not authenticated")
)

type iRoomRepo interface {
	// room
	SetRoom(context.Context, *room.SetRoomParams) error
	GetRoom(ctx context.Context, roomId string) (room.Room, error)
	GetRoomIdByName(ctx context.Context, name string) (string, error)
	UpdateState(context.Context, *room.UpdateStateParams) error
	UpdateAdmin(context.Context, *room.UpdateAdminParams) error
	RemoveRoom(context.Context, *room.RemoveRoomParams) error
	RefreshTTL(ctx context.Context, roomId string) error
	GetRoomIds(context.Context) ([]string, error)
	RemoveFromIndex(ctx context.Context, roomId string) error
	// participants
	AddParticipant(context.Context, *room.AddParticipantParams) error
	RemoveParticipant(context.Context, *room.RemoveParticipantParams) error
	GetParticipantIds(ctx context.Context, roomId string) ([]string, error)
	GetParticipantCount(ctx context.Context, roomId string) (int, error)
	ParticipantExists(ctx context.Context, roomId, userId string) (bool, error)
}

type iConnRepo interface {
	Add(conn *websocket.Conn, binding connection.Binding) error
	BindRoom(conn *websocket.Conn, roomId string, isAdmin bool) error
	UnbindRoom(roomId, userId string) error
	SetAdmin(roomId, userId string, isAdmin bool) error
	RemoveByConn(conn *websocket.Conn) (connection.Binding, error)
	GetByConn(conn *websocket.Conn) (connection.Binding, error)
	Count() int
}

type iFanout interface {
	Broadcast(ctx context.Context, roomId, eventType string, payload any) error
}

type Config struct {
	ParticipantsLimit int
	Secret            string
}

type service struct {
	roomRepo          iRoomRepo
	connRepo          iConnRepo
	fanout            iFanout
	locks             *roomLocks
	logger            *slog.Logger
	secret            string
	participantsLimit int
}

func NewService(roomRepo iRoomRepo, connRepo iConnRepo, fanout iFanout, logger *slog.Logger, cfg *Config) *service {
	return &service{
		roomRepo:          roomRepo,
		connRepo:          connRepo,
		fanout:            fanout,
		locks:             newRoomLocks(),
		logger:            logger,
		secret:            cfg.Secret,
		participantsLimit: cfg.ParticipantsLimit,
	}
}

// Binding returns the registry binding for a live connection.
func (s service) Binding(conn *websocket.Conn) (connection.Binding, error) {
	binding, err := s.connRepo.GetByConn(conn)
	if err != nil {
		return connection.Binding{}, ErrNotAuthenticated
	}

	return binding, nil
}

// authorize enforces command authority: the caller's bound role and the
// room's admin_id must both agree.
func (s service) authorize(record *room.Room, senderId string, senderIsAdmin bool) error {
	if !senderIsAdmin || record.AdminId != senderId {
		return ErrPermissionDenied
	}

	return nil
}

// broadcast failures never fail the command: the state change is already
// persisted, clients recover via sync_request.
func (s service) broadcast(ctx context.Context, roomId, eventType string, payload any) {
	if err := s.fanout.Broadcast(ctx, roomId, eventType, payload); err != nil {
		s.logger.WarnContext(ctx, "failed to broadcast event", "event", eventType, "room_id", roomId, "error", err)
	}
}
