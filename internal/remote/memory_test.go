package remote

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alexanderramin/gymsync/internal/domain"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var jan = time.Date(2024, 1, 15, 9, 0, 0, 0, time.UTC)

func completed(t *testing.T, id string, checkIn time.Time) domain.GymSession {
	t.Helper()
	s := domain.NewActiveSession(id, checkIn)
	require.NoError(t, s.Complete(checkIn.Add(time.Hour)))
	return *s
}

func TestMemoryTable_PartitionsByCheckInMonth(t *testing.T) {
	table := NewMemoryTable()
	ctx := context.Background()

	require.NoError(t, table.CreateSession(ctx, completed(t, "a", jan)))
	require.NoError(t, table.CreateSession(ctx, completed(t, "b", jan.AddDate(0, 1, 0))))

	janItems, err := table.GetSessionsForMonth(ctx, "2024_01")
	require.NoError(t, err)
	require.Len(t, janItems, 1)
	assert.Equal(t, "a", janItems[0].ID)

	febItems, err := table.GetSessionsForMonth(ctx, "2024_02")
	require.NoError(t, err)
	require.Len(t, febItems, 1)
	assert.Equal(t, "b", febItems[0].ID)
}

func TestMemoryTable_UpsertBySortKey(t *testing.T) {
	table := NewMemoryTable()
	ctx := context.Background()

	s := completed(t, "a", jan)
	require.NoError(t, table.CreateSession(ctx, s))
	s.Duration = "2h 0m"
	require.NoError(t, table.CreateSession(ctx, s))

	all := table.All()
	require.Len(t, all, 1)
	assert.Equal(t, "2h 0m", all[0].Duration)
	assert.Empty(t, all[0].SyncStatus, "sync bookkeeping stays local")
}

func TestMemoryTable_RejectsActiveSessions(t *testing.T) {
	table := NewMemoryTable()
	active := domain.NewActiveSession("a", jan)

	err := table.CreateSession(context.Background(), *active)
	require.ErrorIs(t, err, ErrActiveSession)
	assert.Empty(t, table.All())
}

func TestMemoryTable_DeleteMissingIsNoop(t *testing.T) {
	table := NewMemoryTable()
	ctx := context.Background()

	s := completed(t, "a", jan)
	require.NoError(t, table.DeleteSession(ctx, s))
	require.NoError(t, table.CreateSession(ctx, s))
	require.NoError(t, table.DeleteSession(ctx, s))
	assert.Empty(t, table.All())
}

func TestMemoryTable_FaultInjection(t *testing.T) {
	table := NewMemoryTable()
	ctx := context.Background()
	boom := errors.New("boom")

	table.SetFailMonth("2024_01", boom)
	_, err := table.GetSessionsForMonth(ctx, "2024_01")
	assert.ErrorIs(t, err, boom)
	table.SetFailMonth("2024_01", nil)
	_, err = table.GetSessionsForMonth(ctx, "2024_01")
	assert.NoError(t, err)

	table.SetFailCreate(boom)
	assert.ErrorIs(t, table.CreateSession(ctx, completed(t, "a", jan)), boom)

	table.SetFailPing(ErrUnavailable)
	assert.True(t, IsRetryable(table.Ping(ctx)))

	calls := table.Calls()
	require.Len(t, calls, 3)
	assert.Equal(t, "create", calls[2].Op)
	assert.Equal(t, "2024_01", calls[2].YearMonth)
}

func TestUnconfigured_AllCallsFailFatally(t *testing.T) {
	ctx := context.Background()
	var table Table = Unconfigured{}

	assert.True(t, IsFatal(table.CreateSession(ctx, completed(t, "a", jan))))
	assert.True(t, IsFatal(table.DeleteSession(ctx, completed(t, "a", jan))))
	_, err := table.GetSessionsForMonth(ctx, "2024_01")
	assert.True(t, IsFatal(err))
	assert.False(t, IsRetryable(err))
}

func TestNewPostgresTable_EmptyDSN(t *testing.T) {
	_, err := NewPostgresTable(context.Background(), "  ", "")
	assert.ErrorIs(t, err, ErrConfigMissing)
}

func TestClassify(t *testing.T) {
	netErr := classify("op", errors.New("dial tcp: connection refused"))
	assert.True(t, IsRetryable(netErr))

	constraint := classify("op", &pgconn.PgError{Code: "23514"})
	assert.False(t, IsRetryable(constraint))
}
