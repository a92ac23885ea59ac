package db_test

import (
	"context"
	"database/sql"
	"fmt"
	"testing"

	"github.com/alexanderramin/gymsync/internal/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T) (*sql.DB, *db.SQLiteUnitOfWork) {
	t.Helper()
	database, err := db.OpenDB(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })
	return database, db.NewSQLiteUnitOfWork(database)
}

func insertSession(ctx context.Context, tx db.DBTX, id string) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO sessions (id, check_in_time, status, sync_status) VALUES (?, ?, 'active', 'pending')`,
		id, "2024-01-01T09:00:00.000Z")
	return err
}

func insertQueueEntry(ctx context.Context, tx db.DBTX, id, sessionID string) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO sync_queue (id, operation, session_id, data, enqueued_at) VALUES (?, 'create', ?, '{}', ?)`,
		id, sessionID, "2024-01-01T09:00:00.000Z")
	return err
}

func countRows(t *testing.T, database *sql.DB, table string) int {
	t.Helper()
	var n int
	require.NoError(t, database.QueryRow(`SELECT COUNT(*) FROM `+table).Scan(&n))
	return n
}

func TestWithinTx_CommitsBothTables(t *testing.T) {
	database, uow := openTestDB(t)

	err := uow.WithinTx(context.Background(), func(ctx context.Context, tx db.DBTX) error {
		if err := insertSession(ctx, tx, "s1"); err != nil {
			return err
		}
		return insertQueueEntry(ctx, tx, "create_s1_1", "s1")
	})
	require.NoError(t, err)

	assert.Equal(t, 1, countRows(t, database, "sessions"))
	assert.Equal(t, 1, countRows(t, database, "sync_queue"))
}

func TestWithinTx_RollbackOnError(t *testing.T) {
	database, uow := openTestDB(t)

	err := uow.WithinTx(context.Background(), func(ctx context.Context, tx db.DBTX) error {
		if err := insertSession(ctx, tx, "s2"); err != nil {
			return err
		}
		return fmt.Errorf("deliberate failure")
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "deliberate failure")

	assert.Equal(t, 0, countRows(t, database, "sessions"), "session insert should be rolled back")
}

func TestWithinTx_RollbackOnPanic(t *testing.T) {
	database, uow := openTestDB(t)

	assert.Panics(t, func() {
		_ = uow.WithinTx(context.Background(), func(ctx context.Context, tx db.DBTX) error {
			_ = insertSession(ctx, tx, "s3")
			panic("boom")
		})
	})

	assert.Equal(t, 0, countRows(t, database, "sessions"))
}

func TestWithinTx_DuplicateQueueIDRollsBackSession(t *testing.T) {
	database, uow := openTestDB(t)
	ctx := context.Background()

	require.NoError(t, uow.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
		return insertQueueEntry(ctx, tx, "dup", "s0")
	}))

	err := uow.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
		if err := insertSession(ctx, tx, "s4"); err != nil {
			return err
		}
		return insertQueueEntry(ctx, tx, "dup", "s4")
	})
	require.Error(t, err)

	assert.Equal(t, 0, countRows(t, database, "sessions"))
	assert.Equal(t, 1, countRows(t, database, "sync_queue"))
}
