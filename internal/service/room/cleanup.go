package room

import (
	"context"
	"errors"
	"fmt"

	"github.com/V1b3Harshal/providers-backend-sub000/internal/repository/room"
)

// CleanupEmptyRooms sweeps the room index and deletes rooms whose
// participant set is empty. It compensates for crashes where the
// deletion-on-leave path never ran. Returns the number of rooms
// removed.
func (s service) CleanupEmptyRooms(ctx context.Context) (int, error) {
	roomIds, err := s.roomRepo.GetRoomIds(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to get room ids: %w", err)
	}

	removed := 0
	for _, roomId := range roomIds {
		unlock := s.locks.lock(roomId)

		record, err := s.roomRepo.GetRoom(ctx, roomId)
		if err != nil {
			unlock()
			if errors.Is(err, room.ErrRoomNotFound) {
				// record expired, only the index entry is left
				if err := s.roomRepo.RemoveFromIndex(ctx, roomId); err != nil {
					return removed, fmt.Errorf("failed to remove from index: %w", err)
				}
				removed++
				continue
			}
			return removed, fmt.Errorf("failed to get room: %w", err)
		}

		count, err := s.roomRepo.GetParticipantCount(ctx, roomId)
		if err != nil {
			unlock()
			return removed, fmt.Errorf("failed to get participant count: %w", err)
		}

		if count == 0 {
			if err := s.deleteRoom(ctx, roomId, record.Name); err != nil {
				unlock()
				return removed, err
			}
			removed++
		}

		unlock()
	}

	if removed > 0 {
		s.logger.InfoContext(ctx, "cleaned up empty rooms", "removed", removed)
	}

	return removed, nil
}
