package task

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	syncdomain "github.com/shoplink/backend/internal/domain/sync"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemoryRegistry_PutAndGet(t *testing.T) {
	registry := NewInMemoryRegistry(time.Hour)
	defer registry.Stop()
	ctx := context.Background()

	task := syncdomain.NewTask(syncdomain.DefaultOptions())
	require.NoError(t, registry.Put(ctx, task))

	got, err := registry.Get(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, task.ID, got.ID)
	assert.Equal(t, syncdomain.TaskStateQueued, got.State)
}

func TestInMemoryRegistry_GetUnknown(t *testing.T) {
	registry := NewInMemoryRegistry(time.Hour)
	defer registry.Stop()

	_, err := registry.Get(context.Background(), uuid.New())
	assert.ErrorIs(t, err, syncdomain.ErrTaskNotFound)
}

func TestInMemoryRegistry_GetReturnsSnapshot(t *testing.T) {
	registry := NewInMemoryRegistry(time.Hour)
	defer registry.Stop()
	ctx := context.Background()

	task := syncdomain.NewTask(syncdomain.DefaultOptions())
	require.NoError(t, registry.Put(ctx, task))

	first, err := registry.Get(ctx, task.ID)
	require.NoError(t, err)

	// mutating the snapshot must not leak into the registry
	first.Summary.ItemsCreated = 99

	second, err := registry.Get(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, second.Summary.ItemsCreated)
}

func TestInMemoryRegistry_Update(t *testing.T) {
	registry := NewInMemoryRegistry(time.Hour)
	defer registry.Stop()
	ctx := context.Background()

	task := syncdomain.NewTask(syncdomain.DefaultOptions())
	require.NoError(t, registry.Put(ctx, task))

	err := registry.Update(ctx, task.ID, func(stored *syncdomain.Task) {
		require.NoError(t, stored.Start())
		stored.Summary.ItemsCreated = 5
	})
	require.NoError(t, err)

	got, err := registry.Get(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, syncdomain.TaskStateRunning, got.State)
	assert.Equal(t, 5, got.Summary.ItemsCreated)

	err = registry.Update(ctx, uuid.New(), func(*syncdomain.Task) {})
	assert.ErrorIs(t, err, syncdomain.ErrTaskNotFound)
}

func TestInMemoryRegistry_TTLExpiry(t *testing.T) {
	registry := NewInMemoryRegistry(10 * time.Millisecond)
	defer registry.Stop()
	ctx := context.Background()

	task := syncdomain.NewTask(syncdomain.DefaultOptions())
	require.NoError(t, task.Start())
	require.NoError(t, task.Complete())
	require.NoError(t, registry.Put(ctx, task))

	time.Sleep(30 * time.Millisecond)

	_, err := registry.Get(ctx, task.ID)
	assert.ErrorIs(t, err, syncdomain.ErrTaskNotFound)
}

func TestInMemoryRegistry_RunningTasksNeverExpire(t *testing.T) {
	registry := NewInMemoryRegistry(time.Nanosecond)
	defer registry.Stop()
	ctx := context.Background()

	task := syncdomain.NewTask(syncdomain.DefaultOptions())
	require.NoError(t, task.Start())
	require.NoError(t, registry.Put(ctx, task))

	time.Sleep(5 * time.Millisecond)

	got, err := registry.Get(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, syncdomain.TaskStateRunning, got.State)
}

func TestInMemoryRegistry_EvictsOldestFinished(t *testing.T) {
	registry := NewInMemoryRegistry(time.Hour, WithMaxTasks(2))
	defer registry.Stop()
	ctx := context.Background()

	oldest := syncdomain.NewTask(syncdomain.DefaultOptions())
	require.NoError(t, oldest.Start())
	require.NoError(t, oldest.Complete())
	require.NoError(t, registry.Put(ctx, oldest))

	time.Sleep(time.Millisecond)

	newer := syncdomain.NewTask(syncdomain.DefaultOptions())
	require.NoError(t, newer.Start())
	require.NoError(t, newer.Complete())
	require.NoError(t, registry.Put(ctx, newer))

	time.Sleep(time.Millisecond)

	running := syncdomain.NewTask(syncdomain.DefaultOptions())
	require.NoError(t, running.Start())
	require.NoError(t, registry.Put(ctx, running))

	_, err := registry.Get(ctx, oldest.ID)
	assert.ErrorIs(t, err, syncdomain.ErrTaskNotFound)

	_, err = registry.Get(ctx, newer.ID)
	assert.NoError(t, err)

	_, err = registry.Get(ctx, running.ID)
	assert.NoError(t, err)
}

func TestInMemoryRegistry_List(t *testing.T) {
	registry := NewInMemoryRegistry(time.Hour)
	defer registry.Stop()
	ctx := context.Background()

	first := syncdomain.NewTask(syncdomain.DefaultOptions())
	require.NoError(t, registry.Put(ctx, first))

	time.Sleep(time.Millisecond)

	second := syncdomain.NewTask(syncdomain.DefaultOptions())
	require.NoError(t, registry.Put(ctx, second))

	tasks, err := registry.List(ctx)
	require.NoError(t, err)
	require.Len(t, tasks, 2)
	assert.Equal(t, second.ID, tasks[0].ID)
	assert.Equal(t, first.ID, tasks[1].ID)
}
