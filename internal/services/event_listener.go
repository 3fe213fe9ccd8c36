package services

import (
	"context"
	"fmt"

	"printhub/internal/domain"
	"printhub/pkg/logger"
)

// EventListener bridges the relay channel to this instance's broadcast
// router: every committed event the subscriber yields is fanned out to the
// local connections.
type EventListener struct {
	broadcaster domain.Broadcaster
	log         logger.Logger
}

func NewEventListener(broadcaster domain.Broadcaster, log logger.Logger) *EventListener {
	return &EventListener{
		broadcaster: broadcaster,
		log:         log,
	}
}

func (el *EventListener) Start(ctx context.Context, subscriber domain.EventSubscriber) error {
	el.log.Info("Starting event listener")
	return subscriber.SubscribeToProgramEvents(ctx, el.handleProgramEvent)
}

func (el *EventListener) handleProgramEvent(event *domain.ProgramEvent) error {
	switch event.Kind {
	case domain.ProgramCreated, domain.ProgramUpdated,
		domain.ProgramStatusChanged, domain.ProgramDeleted:
		el.broadcaster.Publish(event)
		return nil
	default:
		return fmt.Errorf("unknown event kind %q", event.Kind)
	}
}
