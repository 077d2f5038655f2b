package room

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/gorilla/websocket"

	"github.com/V1b3Harshal/providers-backend-sub000/internal/repository/room"
)

type JoinRoomParams struct {
	Conn   *websocket.Conn
	RoomId string
	UserId string
}

type JoinRoomResponse struct {
	Room    Room
	IsAdmin bool
}

func (s service) JoinRoom(ctx context.Context, params *JoinRoomParams) (JoinRoomResponse, error) {
	unlock := s.locks.lock(params.RoomId)
	defer unlock()

	record, err := s.roomRepo.GetRoom(ctx, params.RoomId)
	if err != nil {
		if errors.Is(err, room.ErrRoomNotFound) {
			return JoinRoomResponse{}, ErrRoomNotFound
		}
		return JoinRoomResponse{}, fmt.Errorf("failed to get room: %w", err)
	}

	participants, err := s.roomRepo.GetParticipantIds(ctx, params.RoomId)
	if err != nil {
		return JoinRoomResponse{}, fmt.Errorf("failed to get participants: %w", err)
	}

	if slices.Contains(participants, params.UserId) {
		return JoinRoomResponse{}, ErrAlreadyInRoom
	}

	if len(participants) >= s.participantsLimit {
		return JoinRoomResponse{}, ErrRoomFull
	}

	if err := s.roomRepo.AddParticipant(ctx, &room.AddParticipantParams{
		RoomId: params.RoomId,
		UserId: params.UserId,
	}); err != nil {
		return JoinRoomResponse{}, fmt.Errorf("failed to add participant: %w", err)
	}

	if params.Conn != nil {
		if err := s.connRepo.BindRoom(params.Conn, params.RoomId, false); err != nil {
			return JoinRoomResponse{}, fmt.Errorf("failed to bind room: %w", err)
		}
	}

	participants = append(participants, params.UserId)
	s.logger.InfoContext(ctx, "user joined", "room_id", params.RoomId, "user_id", params.UserId)

	s.broadcast(ctx, params.RoomId, EventUserJoined, UserJoinedPayload{
		RoomId:       params.RoomId,
		UserId:       params.UserId,
		Participants: participants,
	})

	return JoinRoomResponse{
		Room:    toRoom(params.RoomId, &record, participants),
		IsAdmin: record.AdminId == params.UserId,
	}, nil
}

type LeaveRoomParams struct {
	RoomId string
	UserId string
}

func (s service) LeaveRoom(ctx context.Context, params *LeaveRoomParams) error {
	unlock := s.locks.lock(params.RoomId)
	defer unlock()

	return s.removeFromRoom(ctx, params.RoomId, params.UserId)
}

// removeFromRoom takes a participant out of a room and settles the
// consequences: admin promotion, empty-room deletion, events. Caller
// must hold the room lock.
func (s service) removeFromRoom(ctx context.Context, roomId, userId string) error {
	record, err := s.roomRepo.GetRoom(ctx, roomId)
	if err != nil {
		if errors.Is(err, room.ErrRoomNotFound) {
			return ErrRoomNotFound
		}
		return fmt.Errorf("failed to get room: %w", err)
	}

	if err := s.roomRepo.RemoveParticipant(ctx, &room.RemoveParticipantParams{
		RoomId: roomId,
		UserId: userId,
	}); err != nil {
		if errors.Is(err, room.ErrParticipantNotFound) {
			return ErrParticipantNotFound
		}
		return fmt.Errorf("failed to remove participant: %w", err)
	}

	if err := s.connRepo.UnbindRoom(roomId, userId); err != nil {
		s.logger.DebugContext(ctx, "no bound connection to unbind", "room_id", roomId, "user_id", userId)
	}

	remaining, err := s.roomRepo.GetParticipantIds(ctx, roomId)
	if err != nil {
		return fmt.Errorf("failed to get participants: %w", err)
	}

	if len(remaining) == 0 {
		return s.deleteRoom(ctx, roomId, record.Name)
	}

	s.broadcast(ctx, roomId, EventUserLeft, UserLeftPayload{
		RoomId:       roomId,
		UserId:       userId,
		Participants: remaining,
	})

	// the departing admin hands the room to the next participant in
	// join order
	if record.AdminId == userId {
		if err := s.promote(ctx, roomId, userId, remaining[0]); err != nil {
			return err
		}
	}

	return nil
}

func (s service) promote(ctx context.Context, roomId, oldAdmin, newAdmin string) error {
	if err := s.roomRepo.UpdateAdmin(ctx, &room.UpdateAdminParams{
		RoomId:    roomId,
		AdminId:   newAdmin,
		UpdatedAt: time.Now().UnixMilli(),
	}); err != nil {
		return fmt.Errorf("failed to update admin: %w", err)
	}

	if err := s.connRepo.SetAdmin(roomId, newAdmin, true); err != nil {
		s.logger.DebugContext(ctx, "new admin has no bound connection", "room_id", roomId, "user_id", newAdmin)
	}

	s.logger.InfoContext(ctx, "admin changed", "room_id", roomId, "old_admin", oldAdmin, "new_admin", newAdmin)

	s.broadcast(ctx, roomId, EventAdminChanged, AdminChangedPayload{
		RoomId:   roomId,
		OldAdmin: oldAdmin,
		NewAdmin: newAdmin,
	})

	return nil
}

func (s service) deleteRoom(ctx context.Context, roomId, name string) error {
	if err := s.roomRepo.RemoveRoom(ctx, &room.RemoveRoomParams{
		RoomId: roomId,
		Name:   name,
	}); err != nil {
		return fmt.Errorf("failed to remove room: %w", err)
	}

	s.logger.InfoContext(ctx, "room deleted", "room_id", roomId)

	s.broadcast(ctx, roomId, EventRoomDeleted, RoomDeletedPayload{RoomId: roomId})

	return nil
}

type DisconnectParams struct {
	Conn *websocket.Conn
}

// Disconnect handles a dropped connection. An admin disconnect ends the
// whole session: the room is deleted, not handed over.
func (s service) Disconnect(ctx context.Context, params *DisconnectParams) error {
	binding, err := s.connRepo.RemoveByConn(params.Conn)
	if err != nil {
		// connection never authenticated
		return nil
	}

	if binding.RoomId == "" {
		return nil
	}

	unlock := s.locks.lock(binding.RoomId)
	defer unlock()

	record, err := s.roomRepo.GetRoom(ctx, binding.RoomId)
	if err != nil {
		if errors.Is(err, room.ErrRoomNotFound) {
			return nil
		}
		return fmt.Errorf("failed to get room: %w", err)
	}

	if record.AdminId == binding.UserId {
		s.logger.InfoContext(ctx, "admin disconnected, ending session", "room_id", binding.RoomId, "admin_id", binding.UserId)

		s.broadcast(ctx, binding.RoomId, EventSessionEnded, SessionEndedPayload{
			RoomId: binding.RoomId,
			Reason: ReasonAdminDisconnected,
		})

		if err := s.roomRepo.RemoveRoom(ctx, &room.RemoveRoomParams{
			RoomId: binding.RoomId,
			Name:   record.Name,
		}); err != nil {
			return fmt.Errorf("failed to remove room: %w", err)
		}

		return nil
	}

	if err := s.removeFromRoom(ctx, binding.RoomId, binding.UserId); err != nil {
		if errors.Is(err, ErrParticipantNotFound) || errors.Is(err, ErrRoomNotFound) {
			return nil
		}
		return err
	}

	return nil
}

type KickUserParams struct {
	RoomId        string
	SenderId      string
	SenderIsAdmin bool
	TargetId      string
}

func (s service) KickUser(ctx context.Context, params *KickUserParams) error {
	unlock := s.locks.lock(params.RoomId)
	defer unlock()

	record, err := s.roomRepo.GetRoom(ctx, params.RoomId)
	if err != nil {
		if errors.Is(err, room.ErrRoomNotFound) {
			return ErrRoomNotFound
		}
		return fmt.Errorf("failed to get room: %w", err)
	}

	if err := s.authorize(&record, params.SenderId, params.SenderIsAdmin); err != nil {
		return err
	}

	if params.TargetId == params.SenderId {
		return ErrPermissionDenied
	}

	participants, err := s.roomRepo.GetParticipantIds(ctx, params.RoomId)
	if err != nil {
		return fmt.Errorf("failed to get participants: %w", err)
	}

	if !slices.Contains(participants, params.TargetId) {
		return ErrParticipantNotFound
	}

	// target holding the admin role hands it over before removal
	if record.AdminId == params.TargetId {
		for _, participant := range participants {
			if participant != params.TargetId {
				if err := s.promote(ctx, params.RoomId, params.TargetId, participant); err != nil {
					return err
				}
				break
			}
		}
	}

	if err := s.roomRepo.RemoveParticipant(ctx, &room.RemoveParticipantParams{
		RoomId: params.RoomId,
		UserId: params.TargetId,
	}); err != nil {
		return fmt.Errorf("failed to remove participant: %w", err)
	}

	if err := s.connRepo.UnbindRoom(params.RoomId, params.TargetId); err != nil {
		s.logger.DebugContext(ctx, "kicked user has no bound connection", "room_id", params.RoomId, "user_id", params.TargetId)
	}

	remaining := slices.DeleteFunc(participants, func(id string) bool { return id == params.TargetId })
	s.logger.InfoContext(ctx, "user kicked", "room_id", params.RoomId, "user_id", params.TargetId, "by", params.SenderId)

	s.broadcast(ctx, params.RoomId, EventUserKicked, UserKickedPayload{
		RoomId:       params.RoomId,
		UserId:       params.TargetId,
		By:           params.SenderId,
		Participants: remaining,
	})

	return nil
}

type TransferAdminParams struct {
	RoomId        string
	SenderId      string
	SenderIsAdmin bool
	NewAdminId    string
}

func (s service) TransferAdmin(ctx context.Context, params *TransferAdminParams) error {
	unlock := s.locks.lock(params.RoomId)
	defer unlock()

	record, err := s.roomRepo.GetRoom(ctx, params.RoomId)
	if err != nil {
		if errors.Is(err, room.ErrRoomNotFound) {
			return ErrRoomNotFound
		}
		return fmt.Errorf("failed to get room: %w", err)
	}

	if err := s.authorize(&record, params.SenderId, params.SenderIsAdmin); err != nil {
		return err
	}

	exists, err := s.roomRepo.ParticipantExists(ctx, params.RoomId, params.NewAdminId)
	if err != nil {
		return fmt.Errorf("failed to check participant: %w", err)
	}
	if !exists {
		return ErrParticipantNotFound
	}

	if err := s.connRepo.SetAdmin(params.RoomId, params.SenderId, false); err != nil {
		s.logger.DebugContext(ctx, "old admin has no bound connection", "room_id", params.RoomId, "user_id", params.SenderId)
	}

	return s.promote(ctx, params.RoomId, params.SenderId, params.NewAdminId)
}

type HeartbeatParams struct {
	RoomId string
	UserId string
}

// Heartbeat refreshes the identity's membership TTL. No state change,
// no broadcast.
func (s service) Heartbeat(ctx context.Context, params *HeartbeatParams) error {
	exists, err := s.roomRepo.ParticipantExists(ctx, params.RoomId, params.UserId)
	if err != nil {
		return fmt.Errorf("failed to check participant: %w", err)
	}
	if !exists {
		return ErrParticipantNotFound
	}

	if err := s.roomRepo.RefreshTTL(ctx, params.RoomId); err != nil {
		if errors.Is(err, room.ErrRoomNotFound) {
			return ErrRoomNotFound
		}
		return fmt.Errorf("failed to refresh ttl: %w", err)
	}

	return nil
}
