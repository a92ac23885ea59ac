package repository

import (
	"context"
	"testing"
	"time"

	"github.com/alexanderramin/gymsync/internal/domain"
	"github.com/alexanderramin/gymsync/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var baseTime = time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)

func sessionTestSetup(t *testing.T) *SQLiteSessionRepo {
	t.Helper()
	return NewSQLiteSessionRepo(testutil.NewTestDB(t))
}

func TestSessionRepo_AddAndGet(t *testing.T) {
	repo := sessionTestSetup(t)
	ctx := context.Background()

	sess := testutil.NewCompletedSession(baseTime, 105*time.Minute)
	require.NoError(t, repo.Add(ctx, sess))

	fetched, err := repo.Get(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, sess.ID, fetched.ID)
	assert.True(t, sess.CheckInTime.Equal(fetched.CheckInTime))
	require.NotNil(t, fetched.CheckOutTime)
	assert.True(t, sess.CheckOutTime.Equal(*fetched.CheckOutTime))
	assert.Equal(t, "1h 45m", fetched.Duration)
	assert.Equal(t, domain.SessionCompleted, fetched.Status)
	assert.Equal(t, domain.SyncPending, fetched.SyncStatus)
	assert.Nil(t, fetched.LastSynced)
}

func TestSessionRepo_Add_DuplicateKey(t *testing.T) {
	repo := sessionTestSetup(t)
	ctx := context.Background()

	sess := testutil.NewTestSession(baseTime)
	require.NoError(t, repo.Add(ctx, sess))

	err := repo.Add(ctx, sess)
	assert.ErrorIs(t, err, ErrDuplicateKey)
}

func TestSessionRepo_Get_NotFound(t *testing.T) {
	repo := sessionTestSetup(t)

	_, err := repo.Get(context.Background(), "nonexistent")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSessionRepo_Put_Upserts(t *testing.T) {
	repo := sessionTestSetup(t)
	ctx := context.Background()

	sess := testutil.NewTestSession(baseTime)
	require.NoError(t, repo.Put(ctx, sess), "put inserts when absent")

	require.NoError(t, sess.Complete(baseTime.Add(time.Hour)))
	synced := sess.MarkSynced(baseTime.Add(2 * time.Hour))
	require.NoError(t, repo.Put(ctx, &synced))

	fetched, err := repo.Get(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.SessionCompleted, fetched.Status)
	assert.Equal(t, domain.SyncSynced, fetched.SyncStatus)
	require.NotNil(t, fetched.LastSynced)
	assert.True(t, baseTime.Add(2*time.Hour).Equal(*fetched.LastSynced))

	all, err := repo.GetAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestSessionRepo_Delete_Idempotent(t *testing.T) {
	repo := sessionTestSetup(t)
	ctx := context.Background()

	sess := testutil.NewTestSession(baseTime)
	require.NoError(t, repo.Add(ctx, sess))

	require.NoError(t, repo.Delete(ctx, sess.ID))
	require.NoError(t, repo.Delete(ctx, sess.ID), "deleting an absent id is not an error")

	_, err := repo.Get(ctx, sess.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSessionRepo_GetAll_NewestFirst(t *testing.T) {
	repo := sessionTestSetup(t)
	ctx := context.Background()

	older := testutil.NewCompletedSession(baseTime, time.Hour)
	newer := testutil.NewCompletedSession(baseTime.AddDate(0, 0, 1), time.Hour)
	require.NoError(t, repo.Add(ctx, older))
	require.NoError(t, repo.Add(ctx, newer))

	all, err := repo.GetAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, newer.ID, all[0].ID)
	assert.Equal(t, older.ID, all[1].ID)
}

func TestSessionRepo_GetActive(t *testing.T) {
	repo := sessionTestSetup(t)
	ctx := context.Background()

	_, err := repo.GetActive(ctx)
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, repo.Add(ctx, testutil.NewCompletedSession(baseTime, time.Hour)))
	active := testutil.NewTestSession(baseTime.Add(24 * time.Hour))
	require.NoError(t, repo.Add(ctx, active))

	got, err := repo.GetActive(ctx)
	require.NoError(t, err)
	assert.Equal(t, active.ID, got.ID)
}

func TestSessionRepo_DeleteCompleted_KeepsActive(t *testing.T) {
	repo := sessionTestSetup(t)
	ctx := context.Background()

	require.NoError(t, repo.Add(ctx, testutil.NewCompletedSession(baseTime, time.Hour)))
	require.NoError(t, repo.Add(ctx, testutil.NewCompletedSession(baseTime.AddDate(0, 0, 1), time.Hour)))
	active := testutil.NewTestSession(baseTime.AddDate(0, 0, 2))
	require.NoError(t, repo.Add(ctx, active))

	n, err := repo.DeleteCompleted(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	all, err := repo.GetAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, active.ID, all[0].ID)
}
