package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/alexanderramin/gymsync/internal/db"
	"github.com/alexanderramin/gymsync/internal/domain"
)

// SQLiteSyncQueueRepo implements SyncQueueRepo using a SQLite database.
type SQLiteSyncQueueRepo struct {
	db db.DBTX
}

// NewSQLiteSyncQueueRepo creates a new SQLiteSyncQueueRepo.
func NewSQLiteSyncQueueRepo(conn db.DBTX) *SQLiteSyncQueueRepo {
	return &SQLiteSyncQueueRepo{db: conn}
}

func (r *SQLiteSyncQueueRepo) Add(ctx context.Context, e *domain.QueueEntry) error {
	data, err := domain.EncodeSnapshot(e.Op)
	if err != nil {
		return err
	}
	query := `INSERT INTO sync_queue (id, operation, session_id, data, enqueued_at) VALUES (?, ?, ?, ?, ?)`
	_, err = r.db.ExecContext(ctx, query,
		e.ID,
		string(e.Op.Kind()),
		e.SessionID(),
		data,
		e.EnqueuedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("queue entry %s: %w", e.ID, ErrDuplicateKey)
		}
		return fmt.Errorf("inserting queue entry: %w", err)
	}
	return nil
}

func (r *SQLiteSyncQueueRepo) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM sync_queue WHERE id = ?`, id); err != nil {
		return fmt.Errorf("deleting queue entry: %w", err)
	}
	return nil
}

func (r *SQLiteSyncQueueRepo) GetAll(ctx context.Context) ([]*domain.QueueEntry, error) {
	query := `SELECT id, operation, data, enqueued_at FROM sync_queue ORDER BY seq`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("listing queue entries: %w", err)
	}
	defer rows.Close()
	return scanQueueEntries(rows)
}

func (r *SQLiteSyncQueueRepo) DeleteBySession(ctx context.Context, sessionID string) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM sync_queue WHERE session_id = ?`, sessionID)
	if err != nil {
		return 0, fmt.Errorf("deleting queue entries for session: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

func scanQueueEntries(rows *sql.Rows) ([]*domain.QueueEntry, error) {
	var entries []*domain.QueueEntry
	for rows.Next() {
		var id, op, data, enqueuedAt string
		if err := rows.Scan(&id, &op, &data, &enqueuedAt); err != nil {
			return nil, fmt.Errorf("scanning queue row: %w", err)
		}
		decoded, err := domain.DecodeQueueOp(op, data)
		if err != nil {
			return nil, fmt.Errorf("queue entry %s: %w", id, err)
		}
		ts, err := time.Parse(time.RFC3339Nano, enqueuedAt)
		if err != nil {
			return nil, fmt.Errorf("parsing enqueued_at for %s: %w", id, err)
		}
		entries = append(entries, &domain.QueueEntry{ID: id, Op: decoded, EnqueuedAt: ts})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating queue entries: %w", err)
	}
	return entries, nil
}
