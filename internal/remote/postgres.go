package remote

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alexanderramin/gymsync/internal/domain"
)

// DefaultTableName matches the table the web client historically wrote to.
const DefaultTableName = "gym_checkins"

// PostgresTable implements Table on a Postgres table keyed by
// (year_month, check_in_time).
type PostgresTable struct {
	pool  *pgxpool.Pool
	table string
}

// NewPostgresTable connects to dsn. An empty dsn yields ErrConfigMissing.
func NewPostgresTable(ctx context.Context, dsn, table string) (*PostgresTable, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, ErrConfigMissing
	}
	if table == "" {
		table = DefaultTableName
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connecting to remote table: %w", err)
	}
	return &PostgresTable{pool: pool, table: pgx.Identifier{table}.Sanitize()}, nil
}

// NewPostgresTableFromPool wraps an existing pool.
func NewPostgresTableFromPool(pool *pgxpool.Pool, table string) *PostgresTable {
	if table == "" {
		table = DefaultTableName
	}
	return &PostgresTable{pool: pool, table: pgx.Identifier{table}.Sanitize()}
}

// Close releases the connection pool.
func (t *PostgresTable) Close() {
	t.pool.Close()
}

// EnsureSchema creates the table if it does not exist. Only completed visits
// are accepted by the check constraint.
func (t *PostgresTable) EnsureSchema(ctx context.Context) error {
	ddl := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		year_month     TEXT NOT NULL,
		check_in_time  TEXT NOT NULL,
		id             TEXT NOT NULL,
		check_out_time TEXT,
		duration       TEXT NOT NULL DEFAULT '',
		status         TEXT NOT NULL CHECK (status = 'completed'),
		updated_at     TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		PRIMARY KEY (year_month, check_in_time)
	)`, t.table)
	if _, err := t.pool.Exec(ctx, ddl); err != nil {
		return classify("creating remote table", err)
	}
	return nil
}

func (t *PostgresTable) CreateSession(ctx context.Context, s domain.GymSession) error {
	if s.IsActive() {
		return fmt.Errorf("session %s: %w", s.ID, ErrActiveSession)
	}
	query := fmt.Sprintf(`INSERT INTO %s (year_month, check_in_time, id, check_out_time, duration, status, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW())
		ON CONFLICT (year_month, check_in_time) DO UPDATE SET
			id = EXCLUDED.id,
			check_out_time = EXCLUDED.check_out_time,
			duration = EXCLUDED.duration,
			status = EXCLUDED.status,
			updated_at = NOW()`, t.table)

	var checkOut *string
	if s.CheckOutTime != nil {
		v := s.CheckOutTime.UTC().Format(domain.TimeLayout)
		checkOut = &v
	}
	_, err := t.pool.Exec(ctx, query, s.YearMonth(), s.SortKey(), s.ID, checkOut, s.Duration, string(s.Status))
	if err != nil {
		return classify(fmt.Sprintf("upserting session %s", s.ID), err)
	}
	return nil
}

func (t *PostgresTable) DeleteSession(ctx context.Context, s domain.GymSession) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE year_month = $1 AND check_in_time = $2`, t.table)
	if _, err := t.pool.Exec(ctx, query, s.YearMonth(), s.SortKey()); err != nil {
		return classify(fmt.Sprintf("deleting session %s", s.ID), err)
	}
	return nil
}

func (t *PostgresTable) GetSessionsForMonth(ctx context.Context, yearMonth string) ([]domain.GymSession, error) {
	if !domain.ValidPartitionKey(yearMonth) {
		return nil, fmt.Errorf("invalid partition key %q", yearMonth)
	}
	query := fmt.Sprintf(`SELECT id, check_in_time, check_out_time, duration, status
		FROM %s WHERE year_month = $1 ORDER BY check_in_time`, t.table)

	rows, err := t.pool.Query(ctx, query, yearMonth)
	if err != nil {
		return nil, classify(fmt.Sprintf("querying partition %s", yearMonth), err)
	}
	defer rows.Close()

	var sessions []domain.GymSession
	for rows.Next() {
		var s domain.GymSession
		var checkIn, status string
		var checkOut *string
		if err := rows.Scan(&s.ID, &checkIn, &checkOut, &s.Duration, &status); err != nil {
			return nil, classify("scanning remote session", err)
		}
		if s.CheckInTime, err = time.Parse(domain.TimeLayout, checkIn); err != nil {
			return nil, fmt.Errorf("remote session %s: parsing check_in_time: %w", s.ID, err)
		}
		if checkOut != nil {
			out, err := time.Parse(domain.TimeLayout, *checkOut)
			if err != nil {
				return nil, fmt.Errorf("remote session %s: parsing check_out_time: %w", s.ID, err)
			}
			s.CheckOutTime = &out
		}
		if s.Status, err = domain.ParseSessionStatus(status); err != nil {
			return nil, fmt.Errorf("remote session %s: %w", s.ID, err)
		}
		sessions = append(sessions, s)
	}
	if err := rows.Err(); err != nil {
		return nil, classify(fmt.Sprintf("iterating partition %s", yearMonth), err)
	}
	return sessions, nil
}

func (t *PostgresTable) Ping(ctx context.Context) error {
	if err := t.pool.Ping(ctx); err != nil {
		return classify("pinging remote table", err)
	}
	return nil
}

// classify wraps err as ErrUnavailable unless Postgres rejected the request
// itself (integrity or syntax classes), which retrying will not fix.
func classify(op string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch {
		case strings.HasPrefix(pgErr.Code, "23"), strings.HasPrefix(pgErr.Code, "42"):
			return fmt.Errorf("%s: %w", op, err)
		}
	}
	return fmt.Errorf("%s: %w: %w", op, ErrUnavailable, err)
}
