package services

import (
	"context"
	"time"

	"printhub/internal/domain"
	"printhub/pkg/logger"
)

// SyncService serves snapshot reads for clients reconciling after a
// connect or a suspected gap. Both calls are side-effect-free and answer
// only the requesting connection.
type SyncService struct {
	programs *ProgramService
	log      logger.Logger
}

func NewSyncService(programs *ProgramService, log logger.Logger) *SyncService {
	return &SyncService{
		programs: programs,
		log:      log,
	}
}

func (s *SyncService) FullSync(ctx context.Context) (*domain.SyncSnapshot, error) {
	programs, err := s.programs.ListAll(ctx)
	if err != nil {
		return nil, err
	}

	stats, err := s.programs.Statistics(ctx)
	if err != nil {
		return nil, err
	}

	return &domain.SyncSnapshot{
		Programs:   programs,
		Statistics: stats,
		TakenAt:    time.Now(),
	}, nil
}

func (s *SyncService) MachineSync(ctx context.Context, machineNumber int) ([]*domain.Program, error) {
	if machineNumber <= 0 {
		return nil, &domain.ValidationError{Field: "machine", Reason: "must be positive"}
	}
	return s.programs.ListByMachine(ctx, machineNumber)
}
