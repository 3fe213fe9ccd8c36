package services

import (
	"context"
	"time"

	"printhub/internal/domain"
	"printhub/pkg/logger"
)

// ProgramService validates and applies every mutation against the program
// store. Events are published only after the store has committed; a failed
// mutation never produces an event.
type ProgramService struct {
	repo        domain.ProgramRepository
	statusCache domain.StatusCache
	eventPub    domain.EventPublisher
	validator   domain.ProgramValidator
	log         logger.Logger
}

func NewProgramService(
	repo domain.ProgramRepository,
	statusCache domain.StatusCache,
	eventPub domain.EventPublisher,
	validator domain.ProgramValidator,
	log logger.Logger,
) *ProgramService {
	return &ProgramService{
		repo:        repo,
		statusCache: statusCache,
		eventPub:    eventPub,
		validator:   validator,
		log:         log,
	}
}

func (s *ProgramService) Create(ctx context.Context, input *domain.ProgramInput, actor string) (*domain.Program, error) {
	if actor == "" {
		return nil, domain.ErrUnauthorized
	}
	if err := s.validator.ValidateInput(input); err != nil {
		return nil, err
	}

	now := time.Now()
	program := &domain.Program{
		MachineNumber: input.MachineNumber,
		Status:        domain.StatusReady,
		Client:        input.Client,
		ArticleCode:   input.ArticleCode,
		Colors:        input.Colors,
		Progress:      input.Progress,
		CreatedBy:     actor,
		UpdatedBy:     actor,
		Version:       1,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := s.repo.Insert(ctx, program); err != nil {
		return nil, err
	}

	s.cacheStatus(ctx, program.ID, program.Status)
	s.publish(ctx, &domain.ProgramEvent{
		Kind:          domain.ProgramCreated,
		ProgramID:     program.ID,
		MachineNumber: program.MachineNumber,
		Program:       program,
		Actor:         actor,
	})

	s.log.Info("Program created", "program_id", program.ID,
		"machine", program.MachineNumber, "actor", actor)
	return program, nil
}

func (s *ProgramService) Update(ctx context.Context, id int64, input *domain.ProgramInput, actor string) (*domain.Program, error) {
	if actor == "" {
		return nil, domain.ErrUnauthorized
	}
	if err := s.validator.ValidateInput(input); err != nil {
		return nil, err
	}

	program, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	program.MachineNumber = input.MachineNumber
	program.Client = input.Client
	program.ArticleCode = input.ArticleCode
	program.Colors = input.Colors
	program.Progress = input.Progress
	program.UpdatedBy = actor
	program.UpdatedAt = time.Now()

	if err := s.repo.Update(ctx, program); err != nil {
		return nil, err
	}

	s.publish(ctx, &domain.ProgramEvent{
		Kind:          domain.ProgramUpdated,
		ProgramID:     program.ID,
		MachineNumber: program.MachineNumber,
		Program:       program,
		Actor:         actor,
	})

	s.log.Info("Program updated", "program_id", program.ID, "actor", actor)
	return program, nil
}

func (s *ProgramService) ChangeStatus(ctx context.Context, id int64, newStatus domain.ProgramStatus, note, actor string) (*domain.Program, error) {
	if actor == "" {
		return nil, domain.ErrUnauthorized
	}
	if !newStatus.Valid() {
		return nil, &domain.ValidationError{Field: "status", Reason: "unknown status"}
	}

	// Terminal-state short-circuit from the cache; the versioned update
	// below remains the authoritative check.
	if cached, ok, err := s.statusCache.GetStatus(ctx, id); err == nil && ok {
		if !cached.CanTransitionTo(newStatus) && cached == domain.StatusFinished {
			return nil, &domain.InvalidTransitionError{From: cached, To: newStatus}
		}
	}

	program, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	oldStatus := program.Status
	if !oldStatus.CanTransitionTo(newStatus) {
		return nil, &domain.InvalidTransitionError{From: oldStatus, To: newStatus}
	}

	program.Status = newStatus
	program.Note = note
	program.UpdatedBy = actor
	program.UpdatedAt = time.Now()

	if err := s.repo.Update(ctx, program); err != nil {
		return nil, err
	}

	s.cacheStatus(ctx, program.ID, newStatus)
	s.publish(ctx, &domain.ProgramEvent{
		Kind:          domain.ProgramStatusChanged,
		ProgramID:     program.ID,
		MachineNumber: program.MachineNumber,
		OldStatus:     oldStatus,
		NewStatus:     newStatus,
		Note:          note,
		Actor:         actor,
	})

	s.log.Info("Program status changed", "program_id", program.ID,
		"from", oldStatus, "to", newStatus, "actor", actor)
	return program, nil
}

func (s *ProgramService) Delete(ctx context.Context, id int64, actor string) error {
	if actor == "" {
		return domain.ErrUnauthorized
	}

	// The machine number is needed for routing the deletion event.
	program, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}

	if err := s.statusCache.Invalidate(ctx, id); err != nil {
		s.log.Warn("Failed to invalidate status cache", "program_id", id, "error", err)
	}

	s.publish(ctx, &domain.ProgramEvent{
		Kind:          domain.ProgramDeleted,
		ProgramID:     id,
		MachineNumber: program.MachineNumber,
		Actor:         actor,
	})

	s.log.Info("Program deleted", "program_id", id, "actor", actor)
	return nil
}

// Read path, used by the sync coordinator and the REST wrappers.

func (s *ProgramService) Get(ctx context.Context, id int64) (*domain.Program, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *ProgramService) ListAll(ctx context.Context) ([]*domain.Program, error) {
	return s.repo.ListAll(ctx)
}

func (s *ProgramService) ListByMachine(ctx context.Context, machineNumber int) ([]*domain.Program, error) {
	return s.repo.ListByMachine(ctx, machineNumber)
}

func (s *ProgramService) ListFinishedBefore(ctx context.Context, cutoff time.Time) ([]*domain.Program, error) {
	return s.repo.ListFinishedBefore(ctx, cutoff)
}

func (s *ProgramService) Statistics(ctx context.Context) (*domain.Statistics, error) {
	return s.repo.Statistics(ctx)
}

func (s *ProgramService) cacheStatus(ctx context.Context, id int64, status domain.ProgramStatus) {
	if err := s.statusCache.SetStatus(ctx, id, status); err != nil {
		s.log.Warn("Failed to cache status", "program_id", id, "error", err)
	}
}

// publish relays the committed event. The mutation is already durable at
// this point, so a relay failure is logged rather than returned; clients
// reconcile missed events through a full sync.
func (s *ProgramService) publish(ctx context.Context, event *domain.ProgramEvent) {
	event.Timestamp = time.Now()
	if err := s.eventPub.PublishProgramEvent(ctx, event); err != nil {
		s.log.Error("Failed to publish event", "kind", event.Kind,
			"program_id", event.ProgramID, "error", err)
	}
}
