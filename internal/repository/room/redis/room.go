package redis

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"

	"github.com/V1b3Harshal/providers-backend-sub000/internal/repository/room"
)

func (r Repo) SetRoom(ctx context.Context, params *room.SetRoomParams) error {
	r.logger.DebugContext(ctx, "called", "params", params)

	// name reservation doubles as the creation conflict check
	ok, err := r.rc.SetNX(ctx, r.getNameKey(params.Name), params.RoomId, r.ttl).Result()
	if err != nil {
		return err
	}
	if !ok {
		return room.ErrRoomNameTaken
	}

	record := room.Room{
		Name:           params.Name,
		AdminId:        params.AdminId,
		MediaId:        params.MediaId,
		MediaType:      params.MediaType,
		ProviderId:     params.ProviderId,
		IsPlaying:      params.IsPlaying,
		CurrentTime:    params.CurrentTime,
		Duration:       params.Duration,
		PlaybackRate:   params.PlaybackRate,
		CurrentEpisode: params.CurrentEpisode,
		ProviderUrl:    params.ProviderUrl,
		CreatedAt:      params.CreatedAt,
		UpdatedAt:      params.UpdatedAt,
	}

	roomKey := r.getRoomKey(params.RoomId)
	pipe := r.rc.TxPipeline()
	pipe.HSet(ctx, roomKey, record)
	pipe.Expire(ctx, roomKey, r.ttl)
	pipe.SAdd(ctx, roomsIndexKey, params.RoomId)

	return r.executePipe(ctx, pipe)
}

func (r Repo) GetRoom(ctx context.Context, roomId string) (room.Room, error) {
	var record room.Room
	if err := r.rc.HGetAll(ctx, r.getRoomKey(roomId)).Scan(&record); err != nil {
		return room.Room{}, err
	}

	if record.Name == "" {
		return room.Room{}, room.ErrRoomNotFound
	}

	// reads refresh the record's lifetime
	pipe := r.rc.Pipeline()
	pipe.Expire(ctx, r.getRoomKey(roomId), r.ttl)
	pipe.Expire(ctx, r.getParticipantsKey(roomId), r.ttl)
	pipe.Expire(ctx, r.getNameKey(record.Name), r.ttl)
	if err := r.executePipe(ctx, pipe); err != nil {
		return room.Room{}, err
	}

	return record, nil
}

func (r Repo) GetRoomIdByName(ctx context.Context, name string) (string, error) {
	roomId, err := r.rc.Get(ctx, r.getNameKey(name)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", room.ErrRoomNotFound
		}
		return "", err
	}

	return roomId, nil
}

func (r Repo) UpdateState(ctx context.Context, params *room.UpdateStateParams) error {
	r.logger.DebugContext(ctx, "called", "params", params)

	roomKey := r.getRoomKey(params.RoomId)
	cmd := r.rc.Exists(ctx, roomKey)
	if err := cmd.Err(); err != nil {
		return err
	}
	if cmd.Val() == 0 {
		return room.ErrRoomNotFound
	}

	pipe := r.rc.TxPipeline()
	pipe.HSet(ctx, roomKey,
		"media_id", params.MediaId,
		"is_playing", params.IsPlaying,
		"current_time", params.CurrentTime,
		"duration", params.Duration,
		"playback_rate", params.PlaybackRate,
		"current_episode", params.CurrentEpisode,
		"provider_url", params.ProviderUrl,
		"updated_at", params.UpdatedAt,
	)
	pipe.Expire(ctx, roomKey, r.ttl)
	pipe.Expire(ctx, r.getParticipantsKey(params.RoomId), r.ttl)

	return r.executePipe(ctx, pipe)
}

func (r Repo) UpdateAdmin(ctx context.Context, params *room.UpdateAdminParams) error {
	r.logger.DebugContext(ctx, "called", "params", params)

	roomKey := r.getRoomKey(params.RoomId)
	cmd := r.rc.Exists(ctx, roomKey)
	if err := cmd.Err(); err != nil {
		return err
	}
	if cmd.Val() == 0 {
		return room.ErrRoomNotFound
	}

	pipe := r.rc.TxPipeline()
	pipe.HSet(ctx, roomKey,
		"admin_id", params.AdminId,
		"updated_at", params.UpdatedAt,
	)
	pipe.Expire(ctx, roomKey, r.ttl)
	pipe.Expire(ctx, r.getParticipantsKey(params.RoomId), r.ttl)

	return r.executePipe(ctx, pipe)
}

func (r Repo) RemoveRoom(ctx context.Context, params *room.RemoveRoomParams) error {
	r.logger.DebugContext(ctx, "called", "params", params)

	pipe := r.rc.TxPipeline()
	pipe.Del(ctx, r.getRoomKey(params.RoomId))
	pipe.Del(ctx, r.getParticipantsKey(params.RoomId))
	pipe.Del(ctx, r.getNameKey(params.Name))
	pipe.SRem(ctx, roomsIndexKey, params.RoomId)

	return r.executePipe(ctx, pipe)
}

// RefreshTTL extends the lifetime of every key belonging to the room
// without touching its contents.
func (r Repo) RefreshTTL(ctx context.Context, roomId string) error {
	name, err := r.rc.HGet(ctx, r.getRoomKey(roomId), "name").Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return room.ErrRoomNotFound
		}
		return err
	}

	pipe := r.rc.Pipeline()
	pipe.Expire(ctx, r.getRoomKey(roomId), r.ttl)
	pipe.Expire(ctx, r.getParticipantsKey(roomId), r.ttl)
	pipe.Expire(ctx, r.getNameKey(name), r.ttl)

	return r.executePipe(ctx, pipe)
}

func (r Repo) GetRoomIds(ctx context.Context) ([]string, error) {
	return r.rc.SMembers(ctx, roomsIndexKey).Result()
}

// RemoveFromIndex drops a room id whose record has already expired.
func (r Repo) RemoveFromIndex(ctx context.Context, roomId string) error {
	return r.rc.SRem(ctx, roomsIndexKey, roomId).Err()
}
