package redis

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"

	"github.com/V1b3Harshal/providers-backend-sub000/internal/repository/room"
)

func (r Repo) AddParticipant(ctx context.Context, params *room.AddParticipantParams) error {
	r.logger.DebugContext(ctx, "called", "params", params)

	participantsKey := r.getParticipantsKey(params.RoomId)
	pipe := r.rc.TxPipeline()
	// score is the join order, kept monotonic by the lua script
	r.addWithIncrement(ctx, pipe, participantsKey, params.UserId)
	pipe.Expire(ctx, participantsKey, r.ttl)

	return r.executePipe(ctx, pipe)
}

func (r Repo) RemoveParticipant(ctx context.Context, params *room.RemoveParticipantParams) error {
	r.logger.DebugContext(ctx, "called", "params", params)

	removed, err := r.rc.ZRem(ctx, r.getParticipantsKey(params.RoomId), params.UserId).Result()
	if err != nil {
		return err
	}

	if removed == 0 {
		return room.ErrParticipantNotFound
	}

	return nil
}

func (r Repo) GetParticipantIds(ctx context.Context, roomId string) ([]string, error) {
	return r.rc.ZRange(ctx, r.getParticipantsKey(roomId), 0, -1).Result()
}

func (r Repo) GetParticipantCount(ctx context.Context, roomId string) (int, error) {
	count, err := r.rc.ZCard(ctx, r.getParticipantsKey(roomId)).Result()
	if err != nil {
		return 0, err
	}

	return int(count), nil
}

func (r Repo) ParticipantExists(ctx context.Context, roomId, userId string) (bool, error) {
	if err := r.rc.ZScore(ctx, r.getParticipantsKey(roomId), userId).Err(); err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, err
	}

	return true, nil
}
