package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/alexanderramin/gymsync/internal/db"
	"github.com/alexanderramin/gymsync/internal/domain"
)

const sessionColumns = `id, check_in_time, check_out_time, duration, status, sync_status, last_synced`

// SQLiteSessionRepo implements SessionRepo using a SQLite database.
type SQLiteSessionRepo struct {
	db db.DBTX
}

// NewSQLiteSessionRepo creates a new SQLiteSessionRepo.
func NewSQLiteSessionRepo(conn db.DBTX) *SQLiteSessionRepo {
	return &SQLiteSessionRepo{db: conn}
}

func (r *SQLiteSessionRepo) Add(ctx context.Context, s *domain.GymSession) error {
	query := `INSERT INTO sessions (` + sessionColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, query, sessionArgs(s)...)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("session %s: %w", s.ID, ErrDuplicateKey)
		}
		return fmt.Errorf("inserting session: %w", err)
	}
	return nil
}

func (r *SQLiteSessionRepo) Put(ctx context.Context, s *domain.GymSession) error {
	query := `INSERT INTO sessions (` + sessionColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			check_in_time = excluded.check_in_time,
			check_out_time = excluded.check_out_time,
			duration = excluded.duration,
			status = excluded.status,
			sync_status = excluded.sync_status,
			last_synced = excluded.last_synced`
	if _, err := r.db.ExecContext(ctx, query, sessionArgs(s)...); err != nil {
		return fmt.Errorf("upserting session: %w", err)
	}
	return nil
}

func (r *SQLiteSessionRepo) Get(ctx context.Context, id string) (*domain.GymSession, error) {
	query := `SELECT ` + sessionColumns + ` FROM sessions WHERE id = ?`
	return r.scanSession(r.db.QueryRowContext(ctx, query, id))
}

func (r *SQLiteSessionRepo) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, id); err != nil {
		return fmt.Errorf("deleting session: %w", err)
	}
	return nil
}

func (r *SQLiteSessionRepo) GetAll(ctx context.Context) ([]*domain.GymSession, error) {
	query := `SELECT ` + sessionColumns + ` FROM sessions ORDER BY check_in_time DESC`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("listing sessions: %w", err)
	}
	defer rows.Close()
	return r.scanSessions(rows)
}

func (r *SQLiteSessionRepo) GetActive(ctx context.Context) (*domain.GymSession, error) {
	query := `SELECT ` + sessionColumns + ` FROM sessions WHERE status = 'active'
		ORDER BY check_in_time DESC LIMIT 1`
	return r.scanSession(r.db.QueryRowContext(ctx, query))
}

func (r *SQLiteSessionRepo) DeleteCompleted(ctx context.Context) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM sessions WHERE status = 'completed'`)
	if err != nil {
		return 0, fmt.Errorf("deleting completed sessions: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

func sessionArgs(s *domain.GymSession) []any {
	return []any{
		s.ID,
		formatTime(s.CheckInTime),
		nullableTimeToString(s.CheckOutTime),
		s.Duration,
		string(s.Status),
		string(s.SyncStatus),
		nullableTimeToString(s.LastSynced),
	}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (r *SQLiteSessionRepo) scanSession(row *sql.Row) (*domain.GymSession, error) {
	s, err := scanSessionRow(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("session: %w", ErrNotFound)
		}
		return nil, fmt.Errorf("scanning session: %w", err)
	}
	return s, nil
}

func (r *SQLiteSessionRepo) scanSessions(rows *sql.Rows) ([]*domain.GymSession, error) {
	var sessions []*domain.GymSession
	for rows.Next() {
		s, err := scanSessionRow(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning session row: %w", err)
		}
		sessions = append(sessions, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating sessions: %w", err)
	}
	return sessions, nil
}

func scanSessionRow(row rowScanner) (*domain.GymSession, error) {
	var s domain.GymSession
	var checkIn, status, syncStatus string
	var checkOut, lastSynced sql.NullString

	if err := row.Scan(&s.ID, &checkIn, &checkOut, &s.Duration, &status, &syncStatus, &lastSynced); err != nil {
		return nil, err
	}

	var err error
	if s.CheckInTime, err = time.Parse(domain.TimeLayout, checkIn); err != nil {
		return nil, fmt.Errorf("parsing check_in_time: %w", err)
	}
	if s.Status, err = domain.ParseSessionStatus(status); err != nil {
		return nil, err
	}
	if s.SyncStatus, err = domain.ParseSyncStatus(syncStatus); err != nil {
		return nil, err
	}
	s.CheckOutTime = parseNullableTime(checkOut)
	s.LastSynced = parseNullableTime(lastSynced)
	return &s, nil
}
