package services

import (
	"sync"
	"testing"

	"printhub/internal/domain"
	"printhub/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type captureBroadcaster struct {
	mu     sync.Mutex
	events []*domain.ProgramEvent
}

func (b *captureBroadcaster) Publish(event *domain.ProgramEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, event)
}

func TestEventListenerForwardsKnownKinds(t *testing.T) {
	broadcaster := &captureBroadcaster{}
	listener := NewEventListener(broadcaster, logger.NewNop())

	for _, kind := range []domain.EventKind{
		domain.ProgramCreated, domain.ProgramUpdated,
		domain.ProgramStatusChanged, domain.ProgramDeleted,
	} {
		err := listener.handleProgramEvent(&domain.ProgramEvent{Kind: kind, ProgramID: 1})
		require.NoError(t, err)
	}

	assert.Len(t, broadcaster.events, 4)
}

func TestEventListenerRejectsUnknownKind(t *testing.T) {
	broadcaster := &captureBroadcaster{}
	listener := NewEventListener(broadcaster, logger.NewNop())

	err := listener.handleProgramEvent(&domain.ProgramEvent{Kind: "report:ready"})
	assert.Error(t, err)
	assert.Empty(t, broadcaster.events)
}
