package services

import (
	"context"
	"testing"

	"printhub/internal/domain"
	"printhub/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFullSyncReflectsMutations(t *testing.T) {
	svc, _, _ := newTestService()
	sync := NewSyncService(svc, logger.NewNop())
	ctx := context.Background()

	a, err := svc.Create(ctx, validInput(), "user-1")
	require.NoError(t, err)

	inputB := validInput()
	inputB.MachineNumber = 13
	b, err := svc.Create(ctx, inputB, "user-1")
	require.NoError(t, err)

	_, err = svc.ChangeStatus(ctx, a.ID, domain.StatusRunning, "", "user-1")
	require.NoError(t, err)
	require.NoError(t, svc.Delete(ctx, b.ID, "user-1"))

	snapshot, err := sync.FullSync(ctx)
	require.NoError(t, err)

	// The snapshot is the sum of the mutations: one remaining program,
	// in its latest state.
	require.Len(t, snapshot.Programs, 1)
	assert.Equal(t, a.ID, snapshot.Programs[0].ID)
	assert.Equal(t, domain.StatusRunning, snapshot.Programs[0].Status)

	require.NotNil(t, snapshot.Statistics)
	assert.Equal(t, int64(1), snapshot.Statistics.Total)
	assert.Equal(t, int64(1), snapshot.Statistics.ByStatus[domain.StatusRunning])
	assert.False(t, snapshot.TakenAt.IsZero())
}

func TestFullSyncIsSideEffectFree(t *testing.T) {
	svc, _, pub := newTestService()
	sync := NewSyncService(svc, logger.NewNop())
	ctx := context.Background()

	_, err := svc.Create(ctx, validInput(), "user-1")
	require.NoError(t, err)
	before := len(pub.Events())

	_, err = sync.FullSync(ctx)
	require.NoError(t, err)
	_, err = sync.FullSync(ctx)
	require.NoError(t, err)

	assert.Len(t, pub.Events(), before)
}

func TestMachineSyncFiltersByMachine(t *testing.T) {
	svc, _, _ := newTestService()
	sync := NewSyncService(svc, logger.NewNop())
	ctx := context.Background()

	_, err := svc.Create(ctx, validInput(), "user-1") // machine 12
	require.NoError(t, err)

	other := validInput()
	other.MachineNumber = 13
	_, err = svc.Create(ctx, other, "user-1")
	require.NoError(t, err)

	programs, err := sync.MachineSync(ctx, 12)
	require.NoError(t, err)
	require.Len(t, programs, 1)
	assert.Equal(t, 12, programs[0].MachineNumber)

	empty, err := sync.MachineSync(ctx, 77)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestMachineSyncRejectsInvalidMachine(t *testing.T) {
	svc, _, _ := newTestService()
	sync := NewSyncService(svc, logger.NewNop())

	_, err := sync.MachineSync(context.Background(), 0)
	assert.True(t, domain.IsValidation(err))
	_, err = sync.MachineSync(context.Background(), -3)
	assert.True(t, domain.IsValidation(err))
}
