package room

import (
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/V1b3Harshal/providers-backend-sub000/internal/repository/connection/inmemory"
	roomrepo "github.com/V1b3Harshal/providers-backend-sub000/internal/repository/room"
	roomRedis "github.com/V1b3Harshal/providers-backend-sub000/internal/repository/room/redis"
)

type broadcastRecord struct {
	RoomId  string
	Type    string
	Payload any
}

// fakeFanout records broadcasts instead of publishing them.
type fakeFanout struct {
	mu     sync.Mutex
	events []broadcastRecord
}

func (f *fakeFanout) Broadcast(ctx context.Context, roomId, eventType string, payload any) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.events = append(f.events, broadcastRecord{RoomId: roomId, Type: eventType, Payload: payload})
	return nil
}

func (f *fakeFanout) ofType(eventType string) []broadcastRecord {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []broadcastRecord
	for _, e := range f.events {
		if e.Type == eventType {
			out = append(out, e)
		}
	}
	return out
}

type testEnv struct {
	service  *service
	fanout   *fakeFanout
	redis    *miniredis.Miniredis
	roomRepo *roomRedis.Repo
	connRepo *inmemory.Repo
}

func newTestEnv(t *testing.T, participantsLimit int, ttl time.Duration) *testEnv {
	t.Helper()

	s := miniredis.RunT(t)
	rc := redis.NewClient(&redis.Options{Addr: s.Addr()})
	t.Cleanup(func() { rc.Close() })

	fanout := &fakeFanout{}
	roomRepo := roomRedis.NewRepo(rc, ttl, slog.Default())
	connRepo := inmemory.NewRepo()
	svc := NewService(roomRepo, connRepo, fanout, slog.Default(), &Config{
		ParticipantsLimit: participantsLimit,
		Secret:            "test-secret",
	})

	return &testEnv{service: svc, fanout: fanout, redis: s, roomRepo: roomRepo, connRepo: connRepo}
}

func mustCreateRoom(t *testing.T, env *testEnv, name, adminId string) Room {
	t.Helper()

	created, err := env.service.CreateRoom(context.Background(), &CreateRoomParams{
		Name:      name,
		AdminId:   adminId,
		MediaId:   "tt0133093",
		MediaType: "movie",
	})
	require.NoError(t, err)
	return created
}

func TestCreateAndJoinRoom(t *testing.T) {
	env := newTestEnv(t, 10, time.Hour)
	ctx := context.Background()

	created := mustCreateRoom(t, env, "movie-night", "user-a")
	assert.NotEmpty(t, created.Id, "room id is empty")
	assert.Equal(t, "user-a", created.AdminId, "creator must be admin")
	assert.Equal(t, []string{"user-a"}, created.Participants)
	assert.Equal(t, "vidsrc", created.ProviderId, "provider must default")
	assert.NotEmpty(t, created.CurrentState.ProviderUrl, "provider url must be derived")
	assert.False(t, created.CurrentState.IsPlaying)
	assert.NotZero(t, created.CreatedAt)
	require.Len(t, env.fanout.ofType(EventRoomCreated), 1)

	joinResp, err := env.service.JoinRoom(ctx, &JoinRoomParams{RoomId: created.Id, UserId: "user-b"})
	require.NoError(t, err)
	assert.False(t, joinResp.IsAdmin)
	assert.Equal(t, []string{"user-a", "user-b"}, joinResp.Room.Participants, "join order must be preserved")

	joinedEvents := env.fanout.ofType(EventUserJoined)
	require.Len(t, joinedEvents, 1)
	payload := joinedEvents[0].Payload.(UserJoinedPayload)
	assert.Equal(t, "user-b", payload.UserId)
	assert.Equal(t, []string{"user-a", "user-b"}, payload.Participants)

	// same identity cannot join twice
	_, err = env.service.JoinRoom(ctx, &JoinRoomParams{RoomId: created.Id, UserId: "user-b"})
	require.ErrorIs(t, err, ErrAlreadyInRoom)

	// the room name is globally reserved while the room lives
	_, err = env.service.CreateRoom(ctx, &CreateRoomParams{
		Name:      "movie-night",
		AdminId:   "user-c",
		MediaId:   "tt1",
		MediaType: "movie",
	})
	require.ErrorIs(t, err, ErrRoomNameTaken)

	synced, err := env.service.SyncRoom(ctx, created.Id)
	require.NoError(t, err)
	assert.Equal(t, created.Id, synced.Id)
	assert.Len(t, synced.Participants, 2)
}

func TestJoinRoomFull(t *testing.T) {
	env := newTestEnv(t, 2, time.Hour)
	ctx := context.Background()

	created := mustCreateRoom(t, env, "tiny", "user-a")

	_, err := env.service.JoinRoom(ctx, &JoinRoomParams{RoomId: created.Id, UserId: "user-b"})
	require.NoError(t, err)

	_, err = env.service.JoinRoom(ctx, &JoinRoomParams{RoomId: created.Id, UserId: "user-c"})
	require.ErrorIs(t, err, ErrRoomFull)

	synced, err := env.service.SyncRoom(ctx, created.Id)
	require.NoError(t, err)
	assert.Equal(t, []string{"user-a", "user-b"}, synced.Participants, "rejected join must not change membership")
}

func TestJoinRoomNotFound(t *testing.T) {
	env := newTestEnv(t, 10, time.Hour)

	_, err := env.service.JoinRoom(context.Background(), &JoinRoomParams{RoomId: "nope", UserId: "user-a"})
	require.ErrorIs(t, err, ErrRoomNotFound)
}

func TestPlaybackAuthority(t *testing.T) {
	env := newTestEnv(t, 10, time.Hour)
	ctx := context.Background()

	created := mustCreateRoom(t, env, "authority", "user-a")
	_, err := env.service.JoinRoom(ctx, &JoinRoomParams{RoomId: created.Id, UserId: "user-b"})
	require.NoError(t, err)

	before, err := env.service.GetRoom(ctx, created.Id)
	require.NoError(t, err)

	// a participant without the admin role is rejected
	err = env.service.ApplyPlaybackAction(ctx, &PlaybackActionParams{
		RoomId:        created.Id,
		SenderId:      "user-b",
		SenderIsAdmin: false,
		Action:        PlayAction{},
	})
	require.ErrorIs(t, err, ErrPermissionDenied)

	// a forged admin flag does not help while the room's admin differs
	err = env.service.ApplyPlaybackAction(ctx, &PlaybackActionParams{
		RoomId:        created.Id,
		SenderId:      "user-b",
		SenderIsAdmin: true,
		Action:        PlayAction{},
	})
	require.ErrorIs(t, err, ErrPermissionDenied)

	after, err := env.service.GetRoom(ctx, created.Id)
	require.NoError(t, err)
	assert.Equal(t, before.UpdatedAt, after.UpdatedAt, "denied command must not touch the room")
	assert.False(t, after.CurrentState.IsPlaying)
	assert.Empty(t, env.fanout.ofType(EventPlaybackUpdated))

	err = env.service.ApplyPlaybackAction(ctx, &PlaybackActionParams{
		RoomId:        created.Id,
		SenderId:      "user-a",
		SenderIsAdmin: true,
		Action:        PlayAction{},
	})
	require.NoError(t, err)

	after, err = env.service.GetRoom(ctx, created.Id)
	require.NoError(t, err)
	assert.True(t, after.CurrentState.IsPlaying)
	assert.GreaterOrEqual(t, after.UpdatedAt, before.UpdatedAt)

	updates := env.fanout.ofType(EventPlaybackUpdated)
	require.Len(t, updates, 1)
	payload := updates[0].Payload.(PlaybackPayload)
	assert.Equal(t, "play", payload.Action)
	assert.Equal(t, "user-a", payload.Issuer.UserId)
	assert.True(t, payload.State.IsPlaying)
	assert.NotZero(t, payload.Timestamp)
}

func TestPlaybackReducerFlow(t *testing.T) {
	env := newTestEnv(t, 10, time.Hour)
	ctx := context.Background()

	created := mustCreateRoom(t, env, "reducer-flow", "user-a")

	apply := func(action Action) {
		t.Helper()
		require.NoError(t, env.service.ApplyPlaybackAction(ctx, &PlaybackActionParams{
			RoomId:        created.Id,
			SenderId:      "user-a",
			SenderIsAdmin: true,
			Action:        action,
		}))
	}

	apply(SeekAction{CurrentTime: 500})
	apply(FastForwardAction{})
	apply(RewindAction{SkipAmount: 1000})

	synced, err := env.service.SyncRoom(ctx, created.Id)
	require.NoError(t, err)
	assert.Equal(t, 0.0, synced.CurrentState.CurrentTime, "rewind past zero must clamp")
	assert.Len(t, env.fanout.ofType(EventTimeSkipped), 2)

	apply(ChangeEpisodeAction{Episode: 3})
	synced, err = env.service.SyncRoom(ctx, created.Id)
	require.NoError(t, err)
	assert.Equal(t, 3, synced.CurrentState.CurrentEpisode)
	require.Len(t, env.fanout.ofType(EventEpisodeChanged), 1)
}

func TestAdminLeavePromotion(t *testing.T) {
	env := newTestEnv(t, 10, time.Hour)
	ctx := context.Background()

	created := mustCreateRoom(t, env, "promotion", "user-a")
	_, err := env.service.JoinRoom(ctx, &JoinRoomParams{RoomId: created.Id, UserId: "user-b"})
	require.NoError(t, err)
	_, err = env.service.JoinRoom(ctx, &JoinRoomParams{RoomId: created.Id, UserId: "user-c"})
	require.NoError(t, err)

	err = env.service.LeaveRoom(ctx, &LeaveRoomParams{RoomId: created.Id, UserId: "user-a"})
	require.NoError(t, err)

	synced, err := env.service.SyncRoom(ctx, created.Id)
	require.NoError(t, err)
	assert.Equal(t, "user-b", synced.AdminId, "first remaining participant in join order becomes admin")
	assert.Equal(t, []string{"user-b", "user-c"}, synced.Participants)

	leftEvents := env.fanout.ofType(EventUserLeft)
	require.Len(t, leftEvents, 1)
	assert.Equal(t, "user-a", leftEvents[0].Payload.(UserLeftPayload).UserId)

	adminEvents := env.fanout.ofType(EventAdminChanged)
	require.Len(t, adminEvents, 1)
	payload := adminEvents[0].Payload.(AdminChangedPayload)
	assert.Equal(t, "user-a", payload.OldAdmin)
	assert.Equal(t, "user-b", payload.NewAdmin)
}

func TestEmptyRoomDeletion(t *testing.T) {
	env := newTestEnv(t, 10, time.Hour)
	ctx := context.Background()

	created := mustCreateRoom(t, env, "short-lived", "user-a")

	err := env.service.LeaveRoom(ctx, &LeaveRoomParams{RoomId: created.Id, UserId: "user-a"})
	require.NoError(t, err)

	require.Len(t, env.fanout.ofType(EventRoomDeleted), 1)
	assert.Empty(t, env.fanout.ofType(EventUserLeft), "deletion replaces the leave event")

	_, err = env.service.JoinRoom(ctx, &JoinRoomParams{RoomId: created.Id, UserId: "user-b"})
	require.ErrorIs(t, err, ErrRoomNotFound)

	// the name is free again
	_, err = env.service.CreateRoom(ctx, &CreateRoomParams{
		Name:      "short-lived",
		AdminId:   "user-b",
		MediaId:   "tt1",
		MediaType: "movie",
	})
	require.NoError(t, err)
}

func TestKickUser(t *testing.T) {
	env := newTestEnv(t, 10, time.Hour)
	ctx := context.Background()

	created := mustCreateRoom(t, env, "kicks", "user-a")
	_, err := env.service.JoinRoom(ctx, &JoinRoomParams{RoomId: created.Id, UserId: "user-b"})
	require.NoError(t, err)
	_, err = env.service.JoinRoom(ctx, &JoinRoomParams{RoomId: created.Id, UserId: "user-c"})
	require.NoError(t, err)

	// only the admin may kick
	err = env.service.KickUser(ctx, &KickUserParams{
		RoomId:        created.Id,
		SenderId:      "user-b",
		SenderIsAdmin: false,
		TargetId:      "user-c",
	})
	require.ErrorIs(t, err, ErrPermissionDenied)

	// the admin cannot kick themselves
	err = env.service.KickUser(ctx, &KickUserParams{
		RoomId:        created.Id,
		SenderId:      "user-a",
		SenderIsAdmin: true,
		TargetId:      "user-a",
	})
	require.ErrorIs(t, err, ErrPermissionDenied)

	err = env.service.KickUser(ctx, &KickUserParams{
		RoomId:        created.Id,
		SenderId:      "user-a",
		SenderIsAdmin: true,
		TargetId:      "user-b",
	})
	require.NoError(t, err)

	kicked := env.fanout.ofType(EventUserKicked)
	require.Len(t, kicked, 1)
	payload := kicked[0].Payload.(UserKickedPayload)
	assert.Equal(t, "user-b", payload.UserId)
	assert.Equal(t, "user-a", payload.By)
	assert.Equal(t, []string{"user-a", "user-c"}, payload.Participants)

	synced, err := env.service.SyncRoom(ctx, created.Id)
	require.NoError(t, err)
	assert.Equal(t, []string{"user-a", "user-c"}, synced.Participants, "room survives while others remain")

	// the kicked identity is no longer a member
	err = env.service.LeaveRoom(ctx, &LeaveRoomParams{RoomId: created.Id, UserId: "user-b"})
	require.ErrorIs(t, err, ErrParticipantNotFound)

	// kicking someone who is not in the room
	err = env.service.KickUser(ctx, &KickUserParams{
		RoomId:        created.Id,
		SenderId:      "user-a",
		SenderIsAdmin: true,
		TargetId:      "user-x",
	})
	require.ErrorIs(t, err, ErrParticipantNotFound)
}

func TestTransferAdmin(t *testing.T) {
	env := newTestEnv(t, 10, time.Hour)
	ctx := context.Background()

	created := mustCreateRoom(t, env, "handover", "user-a")
	_, err := env.service.JoinRoom(ctx, &JoinRoomParams{RoomId: created.Id, UserId: "user-b"})
	require.NoError(t, err)

	err = env.service.TransferAdmin(ctx, &TransferAdminParams{
		RoomId:        created.Id,
		SenderId:      "user-a",
		SenderIsAdmin: true,
		NewAdminId:    "user-x",
	})
	require.ErrorIs(t, err, ErrParticipantNotFound, "target must be a participant")

	err = env.service.TransferAdmin(ctx, &TransferAdminParams{
		RoomId:        created.Id,
		SenderId:      "user-a",
		SenderIsAdmin: true,
		NewAdminId:    "user-b",
	})
	require.NoError(t, err)

	synced, err := env.service.SyncRoom(ctx, created.Id)
	require.NoError(t, err)
	assert.Equal(t, "user-b", synced.AdminId)

	adminEvents := env.fanout.ofType(EventAdminChanged)
	require.Len(t, adminEvents, 1)

	// the old admin lost authority with the handover
	err = env.service.ApplyPlaybackAction(ctx, &PlaybackActionParams{
		RoomId:        created.Id,
		SenderId:      "user-a",
		SenderIsAdmin: true,
		Action:        PlayAction{},
	})
	require.ErrorIs(t, err, ErrPermissionDenied)

	err = env.service.ApplyPlaybackAction(ctx, &PlaybackActionParams{
		RoomId:        created.Id,
		SenderId:      "user-b",
		SenderIsAdmin: true,
		Action:        PlayAction{},
	})
	require.NoError(t, err)
}

func TestAdminDisconnectEndsSession(t *testing.T) {
	env := newTestEnv(t, 10, time.Hour)
	ctx := context.Background()

	adminConn := &websocket.Conn{}
	token, err := env.service.GenerateToken("user-a", true)
	require.NoError(t, err)

	authResp, err := env.service.Authenticate(ctx, &AuthenticateParams{Conn: adminConn, Token: token})
	require.NoError(t, err)
	assert.Equal(t, "user-a", authResp.UserId)
	assert.True(t, authResp.IsAdmin)

	created, err := env.service.CreateRoom(ctx, &CreateRoomParams{
		Conn:      adminConn,
		Name:      "doomed",
		AdminId:   "user-a",
		MediaId:   "tt0133093",
		MediaType: "movie",
	})
	require.NoError(t, err)

	binding, err := env.service.Binding(adminConn)
	require.NoError(t, err)
	assert.Equal(t, created.Id, binding.RoomId)
	assert.True(t, binding.IsAdmin)

	_, err = env.service.JoinRoom(ctx, &JoinRoomParams{RoomId: created.Id, UserId: "user-b"})
	require.NoError(t, err)

	err = env.service.Disconnect(ctx, &DisconnectParams{Conn: adminConn})
	require.NoError(t, err)

	ended := env.fanout.ofType(EventSessionEnded)
	require.Len(t, ended, 1)
	payload := ended[0].Payload.(SessionEndedPayload)
	assert.Equal(t, created.Id, payload.RoomId)
	assert.Equal(t, ReasonAdminDisconnected, payload.Reason)

	_, err = env.service.SyncRoom(ctx, created.Id)
	require.ErrorIs(t, err, ErrRoomNotFound)
}

func TestParticipantDisconnect(t *testing.T) {
	env := newTestEnv(t, 10, time.Hour)
	ctx := context.Background()

	created := mustCreateRoom(t, env, "survivor", "user-a")

	memberConn := &websocket.Conn{}
	token, err := env.service.GenerateToken("user-b", false)
	require.NoError(t, err)
	_, err = env.service.Authenticate(ctx, &AuthenticateParams{Conn: memberConn, Token: token})
	require.NoError(t, err)

	_, err = env.service.JoinRoom(ctx, &JoinRoomParams{Conn: memberConn, RoomId: created.Id, UserId: "user-b"})
	require.NoError(t, err)

	err = env.service.Disconnect(ctx, &DisconnectParams{Conn: memberConn})
	require.NoError(t, err)

	synced, err := env.service.SyncRoom(ctx, created.Id)
	require.NoError(t, err)
	assert.Equal(t, []string{"user-a"}, synced.Participants)
	assert.Empty(t, env.fanout.ofType(EventSessionEnded), "participant drop must not end the session")

	// a never-authenticated connection drops silently
	err = env.service.Disconnect(ctx, &DisconnectParams{Conn: &websocket.Conn{}})
	require.NoError(t, err)
}

func TestAuthenticateRejectsBadToken(t *testing.T) {
	env := newTestEnv(t, 10, time.Hour)

	_, err := env.service.Authenticate(context.Background(), &AuthenticateParams{
		Conn:  &websocket.Conn{},
		Token: "not-a-token",
	})
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestHeartbeatKeepsRoomAlive(t *testing.T) {
	env := newTestEnv(t, 10, time.Minute)
	ctx := context.Background()

	created := mustCreateRoom(t, env, "ticking", "user-a")

	env.redis.FastForward(40 * time.Second)
	require.NoError(t, env.service.Heartbeat(ctx, &HeartbeatParams{RoomId: created.Id, UserId: "user-a"}))

	env.redis.FastForward(40 * time.Second)
	_, err := env.service.SyncRoom(ctx, created.Id)
	require.NoError(t, err, "heartbeat must have refreshed the ttl")

	err = env.service.Heartbeat(ctx, &HeartbeatParams{RoomId: created.Id, UserId: "user-x"})
	require.ErrorIs(t, err, ErrParticipantNotFound)
}

func TestRoomExpires(t *testing.T) {
	env := newTestEnv(t, 10, time.Minute)
	ctx := context.Background()

	created := mustCreateRoom(t, env, "idle", "user-a")

	env.redis.FastForward(2 * time.Minute)

	_, err := env.service.SyncRoom(ctx, created.Id)
	require.ErrorIs(t, err, ErrRoomNotFound)
}

func TestListRoomsAndStats(t *testing.T) {
	env := newTestEnv(t, 10, time.Hour)
	ctx := context.Background()

	first := mustCreateRoom(t, env, "alpha", "user-a")
	second := mustCreateRoom(t, env, "beta", "user-b")
	_, err := env.service.JoinRoom(ctx, &JoinRoomParams{RoomId: second.Id, UserId: "user-c"})
	require.NoError(t, err)

	rooms, err := env.service.ListRooms(ctx)
	require.NoError(t, err)
	assert.Len(t, rooms, 2)

	ids := []string{rooms[0].Id, rooms[1].Id}
	assert.Contains(t, ids, first.Id)
	assert.Contains(t, ids, second.Id)

	stats, err := env.service.GetStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Rooms)
	assert.Equal(t, 3, stats.Participants)
	assert.Equal(t, 0, stats.Connections, "no websocket was bound in this test")
}

func TestCleanupEmptyRooms(t *testing.T) {
	env := newTestEnv(t, 10, time.Minute)
	ctx := context.Background()

	expired := mustCreateRoom(t, env, "stale", "user-a")
	env.redis.FastForward(2 * time.Minute)

	alive := mustCreateRoom(t, env, "fresh", "user-b")

	// a crash can leave a room record with an empty participant set
	orphan := mustCreateRoom(t, env, "orphan", "user-c")
	require.NoError(t, env.roomRepo.RemoveParticipant(ctx, &roomrepo.RemoveParticipantParams{
		RoomId: orphan.Id,
		UserId: "user-c",
	}))

	removed, err := env.service.CleanupEmptyRooms(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, removed)

	rooms, err := env.service.ListRooms(ctx)
	require.NoError(t, err)
	require.Len(t, rooms, 1)
	assert.Equal(t, alive.Id, rooms[0].Id)

	_, err = env.service.SyncRoom(ctx, expired.Id)
	require.ErrorIs(t, err, ErrRoomNotFound)
}
