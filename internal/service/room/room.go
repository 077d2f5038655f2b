package room

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/V1b3Harshal/providers-backend-sub000/internal/repository/room"
	"github.com/V1b3Harshal/providers-backend-sub000/pkg/embedurl"
)

type CreateRoomParams struct {
	Conn       *websocket.Conn
	Name       string
	AdminId    string
	MediaId    string
	MediaType  string
	ProviderId string
}

func (s service) CreateRoom(ctx context.Context, params *CreateRoomParams) (Room, error) {
	providerId := params.ProviderId
	if providerId == "" {
		providerId = embedurl.DefaultProvider
	}

	roomId := uuid.NewString()
	now := time.Now().UnixMilli()
	providerUrl := embedurl.Derive(providerId, params.MediaType, params.MediaId, 1)

	if err := s.roomRepo.SetRoom(ctx, &room.SetRoomParams{
		RoomId:         roomId,
		Name:           params.Name,
		AdminId:        params.AdminId,
		MediaId:        params.MediaId,
		MediaType:      params.MediaType,
		ProviderId:     providerId,
		IsPlaying:      false,
		CurrentTime:    0,
		Duration:       0,
		PlaybackRate:   1,
		CurrentEpisode: 1,
		ProviderUrl:    providerUrl,
		CreatedAt:      now,
		UpdatedAt:      now,
	}); err != nil {
		if errors.Is(err, room.ErrRoomNameTaken) {
			return Room{}, ErrRoomNameTaken
		}
		return Room{}, fmt.Errorf("failed to set room: %w", err)
	}

	if err := s.roomRepo.AddParticipant(ctx, &room.AddParticipantParams{
		RoomId: roomId,
		UserId: params.AdminId,
	}); err != nil {
		return Room{}, fmt.Errorf("failed to add participant: %w", err)
	}

	if params.Conn != nil {
		if err := s.connRepo.BindRoom(params.Conn, roomId, true); err != nil {
			return Room{}, fmt.Errorf("failed to bind room: %w", err)
		}
	}

	record, err := s.roomRepo.GetRoom(ctx, roomId)
	if err != nil {
		return Room{}, fmt.Errorf("failed to get room: %w", err)
	}

	created := toRoom(roomId, &record, []string{params.AdminId})
	s.logger.InfoContext(ctx, "room created", "room_id", roomId, "admin_id", params.AdminId)

	s.broadcast(ctx, roomId, EventRoomCreated, RoomCreatedPayload{Room: created})

	return created, nil
}

func (s service) GetRoom(ctx context.Context, roomId string) (Room, error) {
	record, err := s.roomRepo.GetRoom(ctx, roomId)
	if err != nil {
		if errors.Is(err, room.ErrRoomNotFound) {
			return Room{}, ErrRoomNotFound
		}
		return Room{}, fmt.Errorf("failed to get room: %w", err)
	}

	participants, err := s.roomRepo.GetParticipantIds(ctx, roomId)
	if err != nil {
		return Room{}, fmt.Errorf("failed to get participants: %w", err)
	}

	return toRoom(roomId, &record, participants), nil
}

// SyncRoom serves sync_request: the current persisted state, directly
// to the requester, never broadcast.
func (s service) SyncRoom(ctx context.Context, roomId string) (Room, error) {
	return s.GetRoom(ctx, roomId)
}

func (s service) ListRooms(ctx context.Context) ([]Room, error) {
	roomIds, err := s.roomRepo.GetRoomIds(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get room ids: %w", err)
	}

	rooms := make([]Room, 0, len(roomIds))
	for _, roomId := range roomIds {
		r, err := s.GetRoom(ctx, roomId)
		if err != nil {
			// expired between the index read and now
			if errors.Is(err, ErrRoomNotFound) {
				continue
			}
			return nil, err
		}

		rooms = append(rooms, r)
	}

	return rooms, nil
}

func (s service) GetStats(ctx context.Context) (Stats, error) {
	roomIds, err := s.roomRepo.GetRoomIds(ctx)
	if err != nil {
		return Stats{}, fmt.Errorf("failed to get room ids: %w", err)
	}

	stats := Stats{Connections: s.connRepo.Count()}
	for _, roomId := range roomIds {
		count, err := s.roomRepo.GetParticipantCount(ctx, roomId)
		if err != nil {
			return Stats{}, fmt.Errorf("failed to get participant count: %w", err)
		}
		if count == 0 {
			continue
		}

		stats.Rooms++
		stats.Participants += count
	}

	return stats, nil
}
