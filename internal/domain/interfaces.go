package domain

import (
	"context"
	"time"
)

// Repository interfaces
type ProgramRepository interface {
	Insert(ctx context.Context, program *Program) error
	GetByID(ctx context.Context, id int64) (*Program, error)
	ListAll(ctx context.Context) ([]*Program, error)
	ListByMachine(ctx context.Context, machineNumber int) ([]*Program, error)
	ListFinishedBefore(ctx context.Context, cutoff time.Time) ([]*Program, error)
	// Update applies the new field values only if the stored version still
	// matches program.Version; on success the stored version is bumped.
	// Returns ErrConflict when a concurrent writer got there first.
	Update(ctx context.Context, program *Program) error
	Delete(ctx context.Context, id int64) error
	Statistics(ctx context.Context) (*Statistics, error)
}

// Cache interfaces
type StatusCache interface {
	SetStatus(ctx context.Context, programID int64, status ProgramStatus) error
	GetStatus(ctx context.Context, programID int64) (ProgramStatus, bool, error)
	Invalidate(ctx context.Context, programID int64) error
}

// Event interfaces
type EventPublisher interface {
	PublishProgramEvent(ctx context.Context, event *ProgramEvent) error
}

type EventSubscriber interface {
	SubscribeToProgramEvents(ctx context.Context, handler EventHandler) error
}

type EventHandler func(event *ProgramEvent) error

// Validation interface
type ProgramValidator interface {
	ValidateInput(input *ProgramInput) error
	LoadRules(ctx context.Context) error
}

// Leader election interface
type LeaderElection interface {
	BecomeLeader(ctx context.Context, instanceID string) (bool, error)
	IsLeader(ctx context.Context, instanceID string) (bool, error)
	ReleaseLeadership(ctx context.Context, instanceID string) error
}

// WebSocket interfaces
type Connection interface {
	ID() string
	UserID() string
	Send(message interface{}) error
	SendRaw(message []byte) error
	Close() error
}

type ConnectionRegistry interface {
	Register(conn Connection)
	Unregister(connectionID string)
	Join(connectionID, group string)
	Leave(connectionID, group string)
	MembersOf(group string) []Connection
	Get(connectionID string) (Connection, bool)
}

type Broadcaster interface {
	Publish(event *ProgramEvent)
}
