package services

import (
	"context"
	"time"

	"printhub/internal/domain"
	"printhub/pkg/logger"

	"github.com/robfig/cron/v3"
)

const janitorActor = "system:janitor"

// RetentionJanitor purges programs that finished long ago. It deletes
// through the mutation service, so every purge broadcasts an ordinary
// deletion event. Only the leader instance purges; the others observe the
// deletions over the relay channel like any client mutation.
type RetentionJanitor struct {
	cron           *cron.Cron
	programs       *ProgramService
	leaderElection domain.LeaderElection
	instanceID     string
	finishedAge    time.Duration
	schedule       string
	log            logger.Logger
}

func NewRetentionJanitor(programs *ProgramService, leaderElection domain.LeaderElection,
	instanceID string, finishedAge time.Duration, schedule string, log logger.Logger) *RetentionJanitor {
	return &RetentionJanitor{
		cron:           cron.New(),
		programs:       programs,
		leaderElection: leaderElection,
		instanceID:     instanceID,
		finishedAge:    finishedAge,
		schedule:       schedule,
		log:            log,
	}
}

func (j *RetentionJanitor) Start(ctx context.Context) error {
	j.log.Info("Starting retention janitor", "schedule", j.schedule,
		"finished_age", j.finishedAge)

	_, err := j.cron.AddFunc(j.schedule, func() {
		j.purge(ctx)
	})
	if err != nil {
		return err
	}

	j.cron.Start()
	return nil
}

func (j *RetentionJanitor) Stop() error {
	j.log.Info("Stopping retention janitor")
	j.cron.Stop()
	return nil
}

func (j *RetentionJanitor) purge(ctx context.Context) {
	isLeader, err := j.leaderElection.IsLeader(ctx, j.instanceID)
	if err != nil {
		j.log.Error("Failed to check leadership", "error", err)
		return
	}
	if !isLeader {
		return
	}

	cutoff := time.Now().Add(-j.finishedAge)
	expired, err := j.programs.ListFinishedBefore(ctx, cutoff)
	if err != nil {
		j.log.Error("Failed to list expired programs", "error", err)
		return
	}

	purged := 0
	for _, program := range expired {
		if err := j.programs.Delete(ctx, program.ID, janitorActor); err != nil {
			j.log.Error("Failed to purge program", "program_id", program.ID, "error", err)
			continue
		}
		purged++
	}

	if purged > 0 {
		j.log.Info("Purged finished programs", "count", purged, "cutoff", cutoff)
	}
}
