package device

import (
	"context"
	stderrors "errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/NewSmoke38/SED-Manager/internal/errors"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := Open(context.Background(), filepath.Join(t.TempDir(), "sedm.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

// tick makes the store's clock advance one second per call.
func tick(store *SQLiteStore, start time.Time) {
	current := start
	store.now = func() time.Time {
		current = current.Add(time.Second)
		return current
	}
}

func TestSQLiteStore_CreateAndGet(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	in := validNewDevice()
	in.Description = "rack 3"
	created, err := store.Create(ctx, in)
	require.NoError(t, err)

	_, err = uuid.Parse(created.ID)
	assert.NoError(t, err)
	assert.Equal(t, StatusUnknown, created.Status)
	assert.Nil(t, created.LastSeen)
	assert.False(t, created.CreatedAt.IsZero())
	assert.Equal(t, created.CreatedAt, created.UpdatedAt)

	got, err := store.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created, got)
	assert.Equal(t, "rack 3", got.Description)
}

func TestSQLiteStore_CreateRejectsInvalid(t *testing.T) {
	store := openTestStore(t)

	in := validNewDevice()
	in.Port = 0
	_, err := store.Create(context.Background(), in)

	assert.True(t, errors.IsCode(err, errors.ErrDevice))
	list, err := store.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestSQLiteStore_ListNewestFirst(t *testing.T) {
	store := openTestStore(t)
	tick(store, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	ctx := context.Background()

	for _, name := range []string{"first", "second", "third"} {
		in := validNewDevice()
		in.Name = name
		_, err := store.Create(ctx, in)
		require.NoError(t, err)
	}

	list, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, "third", list[0].Name)
	assert.Equal(t, "second", list[1].Name)
	assert.Equal(t, "first", list[2].Name)
}

func TestSQLiteStore_ListEmpty(t *testing.T) {
	store := openTestStore(t)

	list, err := store.List(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, list)
	assert.Empty(t, list)
}

func TestSQLiteStore_NotFound(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	seen := time.Now()

	for _, id := range []string{uuid.NewString(), "not-a-uuid", ""} {
		_, err := store.Get(ctx, id)
		assert.True(t, stderrors.Is(err, ErrNotFound), "Get(%q)", id)

		err = store.Delete(ctx, id)
		assert.True(t, stderrors.Is(err, ErrNotFound), "Delete(%q)", id)

		err = store.RecordStatus(ctx, id, true, seen)
		assert.True(t, stderrors.Is(err, ErrNotFound), "RecordStatus(%q)", id)
	}
}

func TestSQLiteStore_Delete(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	d, err := store.Create(ctx, validNewDevice())
	require.NoError(t, err)

	require.NoError(t, store.Delete(ctx, d.ID))

	_, err = store.Get(ctx, d.ID)
	assert.True(t, stderrors.Is(err, ErrNotFound))
	assert.True(t, stderrors.Is(store.Delete(ctx, d.ID), ErrNotFound), "second delete")
}

func TestSQLiteStore_RecordStatus(t *testing.T) {
	store := openTestStore(t)
	tick(store, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	ctx := context.Background()

	d, err := store.Create(ctx, validNewDevice())
	require.NoError(t, err)

	seen := time.Date(2026, 1, 1, 0, 5, 0, 0, time.UTC)
	require.NoError(t, store.RecordStatus(ctx, d.ID, true, seen))

	got, err := store.Get(ctx, d.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusOnline, got.Status)
	require.NotNil(t, got.LastSeen)
	assert.Equal(t, seen, *got.LastSeen)
	assert.True(t, got.UpdatedAt.After(d.UpdatedAt))

	require.NoError(t, store.RecordStatus(ctx, d.ID, false, time.Time{}))

	got, err = store.Get(ctx, d.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusOffline, got.Status)
	require.NotNil(t, got.LastSeen, "going offline keeps the last sighting")
	assert.Equal(t, seen, *got.LastSeen)
}

func TestOpen_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sedm.db")
	ctx := context.Background()

	store, err := Open(ctx, path, nil)
	require.NoError(t, err)
	d, err := store.Create(ctx, validNewDevice())
	require.NoError(t, err)
	require.NoError(t, store.Close())

	store, err = Open(ctx, path, nil)
	require.NoError(t, err)
	defer store.Close()

	got, err := store.Get(ctx, d.ID)
	require.NoError(t, err)
	assert.Equal(t, d.Name, got.Name)
}

func TestOpen_BadPath(t *testing.T) {
	_, err := Open(context.Background(), filepath.Join(t.TempDir(), "missing", "dir", "sedm.db"), nil)

	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrDevice))
}

var _ Store = (*SQLiteStore)(nil)
