package fanout

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/V1b3Harshal/providers-backend-sub000/pkg/msgbroker"
)

type fakeRegistry struct {
	mu    sync.Mutex
	rooms map[string][]*websocket.Conn
	sent  []any
}

func (r *fakeRegistry) GetConnsByRoomId(roomId string) []*websocket.Conn {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.rooms[roomId]
}

func (r *fakeRegistry) Send(conn *websocket.Conn, v any) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.sent = append(r.sent, v)
	return nil
}

func (r *fakeRegistry) sentCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return len(r.sent)
}

func TestBroadcastDeliversToRoomConns(t *testing.T) {
	s := miniredis.RunT(t)
	rc := redis.NewClient(&redis.Options{Addr: s.Addr()})
	t.Cleanup(func() { rc.Close() })

	broker := msgbroker.NewRedisBroker(rc)
	t.Cleanup(func() { broker.Close() })

	conn1 := &websocket.Conn{}
	conn2 := &websocket.Conn{}
	registry := &fakeRegistry{rooms: map[string][]*websocket.Conn{
		"room-1": {conn1, conn2},
		"room-2": {&websocket.Conn{}},
	}}

	f, err := New(broker, registry, slog.Default())
	require.NoError(t, err)

	err = f.Broadcast(context.Background(), "room-1", "playback_updated", map[string]any{
		"roomId": "room-1",
	})
	require.NoError(t, err)

	// delivery crosses the broker goroutine
	require.Eventually(t, func() bool {
		return registry.sentCount() == 2
	}, time.Second, 10*time.Millisecond, "both room-1 conns must receive the event")

	registry.mu.Lock()
	defer registry.mu.Unlock()

	out := registry.sent[0].(*output)
	assert.Equal(t, "playback_updated", out.Type)

	var payload map[string]any
	require.NoError(t, json.Unmarshal(out.Payload, &payload))
	assert.Equal(t, "room-1", payload["roomId"])
}

func TestBroadcastIgnoresRoomsWithoutConns(t *testing.T) {
	s := miniredis.RunT(t)
	rc := redis.NewClient(&redis.Options{Addr: s.Addr()})
	t.Cleanup(func() { rc.Close() })

	broker := msgbroker.NewRedisBroker(rc)
	t.Cleanup(func() { broker.Close() })

	registry := &fakeRegistry{rooms: map[string][]*websocket.Conn{}}

	f, err := New(broker, registry, slog.Default())
	require.NoError(t, err)

	require.NoError(t, f.Broadcast(context.Background(), "ghost-room", "room_deleted", map[string]any{}))

	time.Sleep(100 * time.Millisecond)
	assert.Zero(t, registry.sentCount(), "no local conn, nothing to deliver")
}
