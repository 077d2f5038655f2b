package redis

import (
	"context"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

const roomsIndexKey = "rooms"

type Repo struct {
	rc             *redis.Client
	logger         *slog.Logger
	ttl            time.Duration
	maxScoreScript string
}

func NewRepo(rc *redis.Client, ttl time.Duration, logger *slog.Logger) *Repo {
	return &Repo{
		rc:     rc,
		logger: logger,
		ttl:    ttl,
		maxScoreScript: rc.ScriptLoad(context.Background(), `
			local maxScore = redis.call('ZREVRANGE', KEYS[1], 0, 0, 'WITHSCORES')
			local nextScore = 1
			if #maxScore > 0 then
				nextScore = tonumber(maxScore[2]) + 1
			end
			redis.call('ZADD', KEYS[1], nextScore, ARGV[1])
			return nextScore
		`).Val(),
	}
}

func (r Repo) getRoomKey(roomId string) string {
	return "room:" + roomId
}

func (r Repo) getParticipantsKey(roomId string) string {
	return "room:" + roomId + ":participants"
}

func (r Repo) getNameKey(name string) string {
	return "room:name:" + name
}
