package msgbroker

import "context"

// MessageBroker is the cross-process multicast boundary. Publishers and
// subscribers in different server processes share the same channels.
type MessageBroker interface {
	// Publish sends msg to every subscriber of channel, across processes.
	Publish(ctx context.Context, channel string, msg []byte) error
	// Subscribe registers cb for every message whose channel matches pattern.
	Subscribe(pattern string, cb MessageHandler) error
	// Unsubscribe removes the given pattern subscriptions.
	Unsubscribe(patterns ...string) error
	// Close closes all subscriptions.
	Close() error
}

// MessageHandler processes messages delivered to a subscriber.
type MessageHandler func(msg *Message)

// Message is the representation of transmitted data.
type Message struct {
	Channel string
	Data    []byte
}
