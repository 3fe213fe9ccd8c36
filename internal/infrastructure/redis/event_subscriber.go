package redis

import (
	"context"
	"encoding/json"

	"printhub/internal/domain"
	"printhub/pkg/logger"

	"github.com/go-redis/redis/v8"
)

type RedisEventSubscriber struct {
	client *redis.Client
	log    logger.Logger
}

func NewRedisEventSubscriber(client *redis.Client, log logger.Logger) *RedisEventSubscriber {
	return &RedisEventSubscriber{
		client: client,
		log:    log,
	}
}

// SubscribeToProgramEvents blocks until ctx is cancelled, decoding each
// relayed event and handing it to handler in arrival order. Redis delivers
// channel messages in publish order, so per-program ordering is preserved
// through this single loop.
func (r *RedisEventSubscriber) SubscribeToProgramEvents(ctx context.Context, handler domain.EventHandler) error {
	pubsub := r.client.Subscribe(ctx, programEventsChannel)
	defer pubsub.Close()

	ch := pubsub.Channel()

	r.log.Info("Subscribed to program events")

	for {
		select {
		case msg := <-ch:
			var event domain.ProgramEvent
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				r.log.Error("Failed to parse event", "payload", msg.Payload, "error", err)
				continue
			}

			if err := handler(&event); err != nil {
				r.log.Error("Failed to handle event", "kind", event.Kind,
					"program_id", event.ProgramID, "error", err)
			}

		case <-ctx.Done():
			r.log.Info("Event subscriber stopped")
			return ctx.Err()
		}
	}
}
