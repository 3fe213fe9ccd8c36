package redis

import (
	"context"
	"encoding/json"

	"printhub/internal/domain"

	"github.com/go-redis/redis/v8"
)

const programEventsChannel = "program_events"

type EventPublisherImpl struct {
	client *redis.Client
}

func NewEventPublisher(client *redis.Client) *EventPublisherImpl {
	return &EventPublisherImpl{client: client}
}

func (r *EventPublisherImpl) PublishProgramEvent(ctx context.Context, event *domain.ProgramEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return r.client.Publish(ctx, programEventsChannel, data).Err()
}
