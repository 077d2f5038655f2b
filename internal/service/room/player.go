package room

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/V1b3Harshal/providers-backend-sub000/internal/repository/room"
)

type PlaybackActionParams struct {
	RoomId        string
	SenderId      string
	SenderIsAdmin bool
	Action        Action
}

// ApplyPlaybackAction authorizes the issuer, reduces the action into
// the next state, persists it, and broadcasts the resulting event. On
// any failure before the persist, the room is left untouched.
func (s service) ApplyPlaybackAction(ctx context.Context, params *PlaybackActionParams) error {
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

	next, eventType := reduce(record, params.Action)
	if eventType == "" {
		return ErrInvalidAction
	}

	now := time.Now().UnixMilli()
	if err := s.roomRepo.UpdateState(ctx, &room.UpdateStateParams{
		RoomId:         params.RoomId,
		MediaId:        next.MediaId,
		IsPlaying:      next.IsPlaying,
		CurrentTime:    next.CurrentTime,
		Duration:       next.Duration,
		PlaybackRate:   next.PlaybackRate,
		CurrentEpisode: next.CurrentEpisode,
		ProviderUrl:    next.ProviderUrl,
		UpdatedAt:      now,
	}); err != nil {
		return fmt.Errorf("failed to update state: %w", err)
	}

	next.UpdatedAt = now
	s.broadcast(ctx, params.RoomId, eventType, PlaybackPayload{
		RoomId: params.RoomId,
		Action: ActionName(params.Action),
		State:  toState(&next),
		Issuer: Issuer{
			UserId:  params.SenderId,
			IsAdmin: true,
		},
		Timestamp: now,
	})

	return nil
}
