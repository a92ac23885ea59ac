package repository

import (
	"context"
	"database/sql"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/alexanderramin/gymsync/internal/db"
	"github.com/alexanderramin/gymsync/internal/domain"
	"github.com/alexanderramin/gymsync/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newConcurrentTestDB creates a file-backed SQLite database in a temp directory.
func newConcurrentTestDB(t *testing.T) *sql.DB {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "concurrent_test.db")
	database, err := db.OpenDB(dbPath)
	require.NoError(t, err, "failed to create concurrent test database")
	t.Cleanup(func() { database.Close() })
	return database
}

// TestConcurrentAccess_ReconcileIsAtomicForReaders checks that a reader never
// observes the window between deleting completed sessions and re-inserting
// them when both steps run in one transaction.
func TestConcurrentAccess_ReconcileIsAtomicForReaders(t *testing.T) {
	database := newConcurrentTestDB(t)
	ctx := context.Background()
	uow := db.NewSQLiteUnitOfWork(database)
	sessions := NewSQLiteSessionRepo(database)

	const historySize = 10
	history := make([]*domain.GymSession, 0, historySize)
	for i := 0; i < historySize; i++ {
		s := testutil.NewCompletedSession(baseTime.AddDate(0, 0, -i), time.Hour)
		history = append(history, s)
		require.NoError(t, sessions.Add(ctx, s))
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for round := 0; round < 10; round++ {
			err := uow.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
				txSessions := NewSQLiteSessionRepo(tx)
				if _, err := txSessions.DeleteCompleted(ctx); err != nil {
					return err
				}
				for _, s := range history {
					if err := txSessions.Put(ctx, s); err != nil {
						return err
					}
				}
				return nil
			})
			if err != nil {
				t.Errorf("reconcile round %d: %v", round, err)
				return
			}
		}
	}()

	for r := 0; r < 5; r++ {
		wg.Add(1)
		go func(reader int) {
			defer wg.Done()
			for i := 0; i < 10; i++ {
				all, err := sessions.GetAll(ctx)
				if err != nil {
					t.Errorf("reader %d: get all: %v", reader, err)
					return
				}
				if len(all) != historySize {
					t.Errorf("reader %d: observed %d sessions, want %d", reader, len(all), historySize)
				}
			}
		}(r)
	}

	wg.Wait()

	all, err := sessions.GetAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, historySize)
}
