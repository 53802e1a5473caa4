package background

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func storedResult(processID string, createdAt time.Time) *TaskResult {
	return &TaskResult{
		ProcessID: processID,
		Type:      TaskTypeScrape,
		Status:    TaskStatusAccepted,
		CreatedAt: createdAt,
	}
}

func TestInMemoryTaskStoreRoundtrip(t *testing.T) {
	store := NewInMemoryTaskStore()
	ctx := context.Background()

	require.NoError(t, store.Store(ctx, storedResult("proc-1", time.Now())))

	got, err := store.Get(ctx, "proc-1")
	require.NoError(t, err)
	assert.Equal(t, "proc-1", got.ProcessID)
	assert.Equal(t, TaskStatusAccepted, got.Status)
	assert.Equal(t, TaskTypeScrape, got.Type)
}

func TestInMemoryTaskStoreGetMissing(t *testing.T) {
	store := NewInMemoryTaskStore()

	_, err := store.Get(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrTaskNotFound)
}

func TestInMemoryTaskStoreUpdate(t *testing.T) {
	store := NewInMemoryTaskStore()
	ctx := context.Background()

	result := storedResult("proc-1", time.Now())
	require.NoError(t, store.Store(ctx, result))

	result.Status = TaskStatusSuccess
	require.NoError(t, store.Update(ctx, result))

	got, err := store.Get(ctx, "proc-1")
	require.NoError(t, err)
	assert.Equal(t, TaskStatusSuccess, got.Status)
}

func TestInMemoryTaskStoreUpdateMissing(t *testing.T) {
	store := NewInMemoryTaskStore()

	err := store.Update(context.Background(), storedResult("ghost", time.Now()))
	assert.ErrorIs(t, err, ErrTaskNotFound)
}

func TestInMemoryTaskStoreDelete(t *testing.T) {
	store := NewInMemoryTaskStore()
	ctx := context.Background()

	require.NoError(t, store.Store(ctx, storedResult("proc-1", time.Now())))
	require.NoError(t, store.Delete(ctx, "proc-1"))

	_, err := store.Get(ctx, "proc-1")
	assert.ErrorIs(t, err, ErrTaskNotFound)

	assert.ErrorIs(t, store.Delete(ctx, "proc-1"), ErrTaskNotFound)
}

func TestInMemoryTaskStoreCleanup(t *testing.T) {
	store := NewInMemoryTaskStore()
	ctx := context.Background()

	require.NoError(t, store.Store(ctx, storedResult("old", time.Now().Add(-48*time.Hour))))
	require.NoError(t, store.Store(ctx, storedResult("fresh", time.Now())))

	require.NoError(t, store.Cleanup(ctx, 24*time.Hour))

	_, err := store.Get(ctx, "old")
	assert.ErrorIs(t, err, ErrTaskNotFound)

	_, err = store.Get(ctx, "fresh")
	assert.NoError(t, err)
}

func TestInMemoryTaskStoreList(t *testing.T) {
	store := NewInMemoryTaskStore()
	ctx := context.Background()

	require.NoError(t, store.Store(ctx, storedResult("proc-1", time.Now())))
	require.NoError(t, store.Store(ctx, storedResult("proc-2", time.Now())))

	results, err := store.List(ctx)
	require.NoError(t, err)
	assert.Len(t, results, 2)

	ids := make([]string, 0, len(results))
	for _, r := range results {
		ids = append(ids, r.ProcessID)
	}
	assert.ElementsMatch(t, []string{"proc-1", "proc-2"}, ids)
}
