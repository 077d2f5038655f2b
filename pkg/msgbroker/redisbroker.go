package msgbroker

import (
	"context"
	"sync"

	"github.com/redis/go-redis/v9"
)

// redisBroker implements MessageBroker on top of redis pub/sub.
type redisBroker struct {
	client   *redis.Client
	pubSub   *redis.PubSub
	mu       sync.RWMutex
	handlers map[string]MessageHandler
}

func NewRedisBroker(rc *redis.Client) MessageBroker {
	rb := &redisBroker{
		client:   rc,
		pubSub:   rc.PSubscribe(context.Background()),
		handlers: make(map[string]MessageHandler),
	}
	go rb.serveMessages()

	return rb
}

func (rb *redisBroker) serveMessages() {
	for msg := range rb.pubSub.Channel() {
		rb.mu.RLock()
		handler, exists := rb.handlers[msg.Pattern]
		rb.mu.RUnlock()

		if exists {
			handler(&Message{
				Channel: msg.Channel,
				Data:    []byte(msg.Payload),
			})
		}
	}
}

func (rb *redisBroker) Publish(ctx context.Context, channel string, msg []byte) error {
	return rb.client.Publish(ctx, channel, msg).Err()
}

func (rb *redisBroker) Subscribe(pattern string, cb MessageHandler) error {
	if err := rb.pubSub.PSubscribe(context.Background(), pattern); err != nil {
		return err
	}

	rb.mu.Lock()
	rb.handlers[pattern] = cb
	rb.mu.Unlock()

	return nil
}

func (rb *redisBroker) Unsubscribe(patterns ...string) error {
	if len(patterns) == 0 {
		return nil
	}

	rb.mu.Lock()
	for _, pattern := range patterns {
		delete(rb.handlers, pattern)
	}
	rb.mu.Unlock()

	return rb.pubSub.PUnsubscribe(context.Background(), patterns...)
}

func (rb *redisBroker) Close() error {
	return rb.pubSub.Close()
}
