// Package fanout delivers room events to every connection bound to the
// room, across all server processes. Events travel through the message
// broker even for the publishing process's own connections, so every
// subscriber observes the same per-room ordering.
package fanout

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/gorilla/websocket"

	"github.com/V1b3Harshal/providers-backend-sub000/pkg/msgbroker"
)

const channelPattern = "room:*:events"

type envelope struct {
	RoomId  string          `json:"roomId"`
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type output struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type iConnRegistry interface {
	GetConnsByRoomId(roomId string) []*websocket.Conn
	Send(conn *websocket.Conn, v any) error
}

type Fanout struct {
	broker   msgbroker.MessageBroker
	connRepo iConnRegistry
	logger   *slog.Logger
}

func New(broker msgbroker.MessageBroker, connRepo iConnRegistry, logger *slog.Logger) (*Fanout, error) {
	f := &Fanout{
		broker:   broker,
		connRepo: connRepo,
		logger:   logger,
	}

	if err := broker.Subscribe(channelPattern, f.deliver); err != nil {
		return nil, fmt.Errorf("failed to subscribe: %w", err)
	}

	return f, nil
}

func (f *Fanout) Broadcast(ctx context.Context, roomId, eventType string, payload any) error {
	rawPayload, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	msg, err := json.Marshal(envelope{
		RoomId:  roomId,
		Type:    eventType,
		Payload: rawPayload,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal envelope: %w", err)
	}

	return f.broker.Publish(ctx, "room:"+roomId+":events", msg)
}

func (f *Fanout) deliver(msg *msgbroker.Message) {
	var env envelope
	if err := json.Unmarshal(msg.Data, &env); err != nil {
		f.logger.Warn("failed to unmarshal event envelope", "channel", msg.Channel, "error", err)
		return
	}

	out := output{
		Type:    env.Type,
		Payload: env.Payload,
	}
	for _, conn := range f.connRepo.GetConnsByRoomId(env.RoomId) {
		if err := f.connRepo.Send(conn, &out); err != nil {
			f.logger.Debug("failed to deliver event", "room_id", env.RoomId, "event", env.Type, "error", err)
		}
	}
}
