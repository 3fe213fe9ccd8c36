package services

import (
	"context"
	"testing"
	"time"

	"printhub/internal/domain"
	"printhub/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeLeader struct {
	leader bool
}

func (f *fakeLeader) BecomeLeader(ctx context.Context, instanceID string) (bool, error) {
	return f.leader, nil
}

func (f *fakeLeader) IsLeader(ctx context.Context, instanceID string) (bool, error) {
	return f.leader, nil
}

func (f *fakeLeader) ReleaseLeadership(ctx context.Context, instanceID string) error {
	return nil
}

func finishProgram(t *testing.T, svc *ProgramService, id int64) {
	t.Helper()
	ctx := context.Background()
	_, err := svc.ChangeStatus(ctx, id, domain.StatusRunning, "", "user-1")
	require.NoError(t, err)
	_, err = svc.ChangeStatus(ctx, id, domain.StatusFinished, "", "user-1")
	require.NoError(t, err)
}

func TestJanitorPurgesExpiredFinishedPrograms(t *testing.T) {
	svc, repo, pub := newTestService()
	ctx := context.Background()

	expired, err := svc.Create(ctx, validInput(), "user-1")
	require.NoError(t, err)
	finishProgram(t, svc, expired.ID)

	fresh, err := svc.Create(ctx, validInput(), "user-1")
	require.NoError(t, err)
	finishProgram(t, svc, fresh.ID)

	running, err := svc.Create(ctx, validInput(), "user-1")
	require.NoError(t, err)
	_, err = svc.ChangeStatus(ctx, running.ID, domain.StatusRunning, "", "user-1")
	require.NoError(t, err)

	// Age only the first finished program past the retention window.
	repo.mu.Lock()
	repo.programs[expired.ID].UpdatedAt = time.Now().Add(-48 * time.Hour)
	repo.mu.Unlock()

	janitor := NewRetentionJanitor(svc, &fakeLeader{leader: true},
		"instance-1", 24*time.Hour, "@every 1h", logger.NewNop())
	janitor.purge(ctx)

	_, err = repo.GetByID(ctx, expired.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = repo.GetByID(ctx, fresh.ID)
	assert.NoError(t, err)
	_, err = repo.GetByID(ctx, running.ID)
	assert.NoError(t, err)

	events := pub.Events()
	last := events[len(events)-1]
	assert.Equal(t, domain.ProgramDeleted, last.Kind)
	assert.Equal(t, expired.ID, last.ProgramID)
	assert.Equal(t, janitorActor, last.Actor)
}

func TestJanitorDoesNothingWhenNotLeader(t *testing.T) {
	svc, repo, _ := newTestService()
	ctx := context.Background()

	program, err := svc.Create(ctx, validInput(), "user-1")
	require.NoError(t, err)
	finishProgram(t, svc, program.ID)

	repo.mu.Lock()
	repo.programs[program.ID].UpdatedAt = time.Now().Add(-48 * time.Hour)
	repo.mu.Unlock()

	janitor := NewRetentionJanitor(svc, &fakeLeader{leader: false},
		"instance-2", 24*time.Hour, "@every 1h", logger.NewNop())
	janitor.purge(ctx)

	_, err = repo.GetByID(ctx, program.ID)
	assert.NoError(t, err)
}
