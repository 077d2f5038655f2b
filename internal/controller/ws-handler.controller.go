package controller

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/gorilla/websocket"

	"github.com/V1b3Harshal/providers-backend-sub000/internal/service/room"
)

const (
	roleAdmin       = "admin"
	roleParticipant = "participant"
)

type ackPayload struct {
	Success bool       `json:"success"`
	IsAdmin *bool      `json:"isAdmin,omitempty"`
	RoomId  string     `json:"roomId,omitempty"`
	Room    *room.Room `json:"room,omitempty"`
	Error   string     `json:"error,omitempty"`
}

func (c controller) ack(conn *websocket.Conn, messageType string, payload *ackPayload) error {
	return c.send(conn, &Output{
		Type:    messageType,
		Payload: payload,
	})
}

func (c controller) nack(conn *websocket.Conn, messageType string, err error) error {
	return c.ack(conn, messageType, &ackPayload{
		Success: false,
		Error:   err.Error(),
	})
}

func (c controller) readInput(payload json.RawMessage, dst any) error {
	if err := json.Unmarshal(payload, dst); err != nil {
		return fmt.Errorf("%w: %s", room.ErrInvalidAction, "malformed payload")
	}

	if validationErrors, ok := c.validate.Validate(dst); !ok {
		return fmt.Errorf("%w: %s", room.ErrInvalidAction, validationErrors[0].Message)
	}

	return nil
}

type authenticateInput struct {
	Token string `json:"token" validate:"required"`
}

func (c controller) handleAuthenticate(ctx context.Context, conn *websocket.Conn, payload json.RawMessage) error {
	var in authenticateInput
	if err := c.readInput(payload, &in); err != nil {
		return c.nack(conn, "authenticate", err)
	}

	resp, err := c.roomService.Authenticate(ctx, &room.AuthenticateParams{
		Conn:  conn,
		Token: in.Token,
	})
	if err != nil {
		return c.nack(conn, "authenticate", err)
	}

	return c.ack(conn, "authenticate", &ackPayload{
		Success: true,
		IsAdmin: &resp.IsAdmin,
	})
}

type createRoomInput struct {
	Name       string `json:"name" validate:"required,max=64"`
	MediaId    string `json:"mediaId" validate:"required"`
	MediaType  string `json:"mediaType" validate:"required,oneof=movie tv"`
	AdminId    string `json:"adminId" validate:"required"`
	ProviderId string `json:"providerId"`
}

func (c controller) handleCreateRoom(ctx context.Context, conn *websocket.Conn, payload json.RawMessage) error {
	var in createRoomInput
	if err := c.readInput(payload, &in); err != nil {
		return c.nack(conn, "create_room", err)
	}

	binding, err := c.roomService.Binding(conn)
	if err != nil {
		return c.nack(conn, "create_room", err)
	}

	// the embedded identity must match the one bound at authentication
	if in.AdminId != binding.UserId {
		return c.nack(conn, "create_room", room.ErrPermissionDenied)
	}

	created, err := c.roomService.CreateRoom(ctx, &room.CreateRoomParams{
		Conn:       conn,
		Name:       in.Name,
		AdminId:    binding.UserId,
		MediaId:    in.MediaId,
		MediaType:  in.MediaType,
		ProviderId: in.ProviderId,
	})
	if err != nil {
		return c.nack(conn, "create_room", err)
	}

	return c.ack(conn, "create_room", &ackPayload{
		Success: true,
		RoomId:  created.Id,
		Room:    &created,
	})
}

type joinRoomInput struct {
	RoomId string `json:"roomId" validate:"required"`
	UserId string `json:"userId" validate:"required"`
}

type initialStatePayload struct {
	RoomId       string     `json:"roomId"`
	CurrentState room.State `json:"currentState"`
	Participants []string   `json:"participants"`
	Role         string     `json:"role"`
}

func (c controller) handleJoinRoom(ctx context.Context, conn *websocket.Conn, payload json.RawMessage) error {
	var in joinRoomInput
	if err := c.readInput(payload, &in); err != nil {
		return c.nack(conn, "join_room", err)
	}

	binding, err := c.roomService.Binding(conn)
	if err != nil {
		return c.nack(conn, "join_room", err)
	}

	if in.UserId != binding.UserId {
		return c.nack(conn, "join_room", room.ErrPermissionDenied)
	}

	resp, err := c.roomService.JoinRoom(ctx, &room.JoinRoomParams{
		Conn:   conn,
		RoomId: in.RoomId,
		UserId: binding.UserId,
	})
	if err != nil {
		return c.nack(conn, "join_room", err)
	}

	if err := c.ack(conn, "join_room", &ackPayload{
		Success: true,
		Room:    &resp.Room,
	}); err != nil {
		return err
	}

	// full snapshot goes to the joining session only, not broadcast
	role := roleParticipant
	if resp.IsAdmin {
		role = roleAdmin
	}

	return c.send(conn, &Output{
		Type: "initial_state",
		Payload: initialStatePayload{
			RoomId:       in.RoomId,
			CurrentState: resp.Room.CurrentState,
			Participants: resp.Room.Participants,
			Role:         role,
		},
	})
}

type leaveRoomInput struct {
	RoomId string `json:"roomId" validate:"required"`
	UserId string `json:"userId" validate:"required"`
}

func (c controller) handleLeaveRoom(ctx context.Context, conn *websocket.Conn, payload json.RawMessage) error {
	var in leaveRoomInput
	if err := c.readInput(payload, &in); err != nil {
		return c.nack(conn, "leave_room", err)
	}

	binding, err := c.roomService.Binding(conn)
	if err != nil {
		return c.nack(conn, "leave_room", err)
	}

	if in.UserId != binding.UserId {
		return c.nack(conn, "leave_room", room.ErrPermissionDenied)
	}

	if err := c.roomService.LeaveRoom(ctx, &room.LeaveRoomParams{
		RoomId: in.RoomId,
		UserId: binding.UserId,
	}); err != nil {
		return c.nack(conn, "leave_room", err)
	}

	return c.ack(conn, "leave_room", &ackPayload{Success: true})
}

type playbackActionInput struct {
	RoomId string `json:"roomId" validate:"required"`
	Action struct {
		Type string          `json:"type"`
		Data json.RawMessage `json:"data"`
	} `json:"action"`
	UserId string `json:"userId"`
	// accepted on the wire, never used as an authority source
	IsAdmin bool `json:"isAdmin"`
}

func (c controller) handlePlaybackAction(ctx context.Context, conn *websocket.Conn, payload json.RawMessage) error {
	var in playbackActionInput
	if err := c.readInput(payload, &in); err != nil {
		return err
	}

	binding, err := c.roomService.Binding(conn)
	if err != nil {
		return err
	}

	if in.UserId != "" && in.UserId != binding.UserId {
		return room.ErrPermissionDenied
	}
	if binding.RoomId != in.RoomId {
		return room.ErrPermissionDenied
	}

	action, err := room.ParseAction(in.Action.Type, in.Action.Data)
	if err != nil {
		return err
	}

	return c.roomService.ApplyPlaybackAction(ctx, &room.PlaybackActionParams{
		RoomId:        in.RoomId,
		SenderId:      binding.UserId,
		SenderIsAdmin: binding.IsAdmin,
		Action:        action,
	})
}

type syncRequestInput struct {
	RoomId string `json:"roomId" validate:"required"`
	UserId string `json:"userId"`
}

type syncResponsePayload struct {
	RoomId       string     `json:"roomId"`
	CurrentState room.State `json:"currentState"`
	AdminId      string     `json:"adminId"`
	UpdatedAt    int64      `json:"updatedAt"`
}

func (c controller) handleSyncRequest(ctx context.Context, conn *websocket.Conn, payload json.RawMessage) error {
	var in syncRequestInput
	if err := c.readInput(payload, &in); err != nil {
		return err
	}

	if _, err := c.roomService.Binding(conn); err != nil {
		return err
	}

	synced, err := c.roomService.SyncRoom(ctx, in.RoomId)
	if err != nil {
		return err
	}

	return c.send(conn, &Output{
		Type: "sync_response",
		Payload: syncResponsePayload{
			RoomId:       synced.Id,
			CurrentState: synced.CurrentState,
			AdminId:      synced.AdminId,
			UpdatedAt:    synced.UpdatedAt,
		},
	})
}

type heartbeatInput struct {
	RoomId string `json:"roomId" validate:"required"`
	UserId string `json:"userId"`
}

func (c controller) handleHeartbeat(ctx context.Context, conn *websocket.Conn, payload json.RawMessage) error {
	var in heartbeatInput
	if err := c.readInput(payload, &in); err != nil {
		return err
	}

	binding, err := c.roomService.Binding(conn)
	if err != nil {
		return err
	}

	return c.roomService.Heartbeat(ctx, &room.HeartbeatParams{
		RoomId: in.RoomId,
		UserId: binding.UserId,
	})
}
