// Package remote is the authoritative store of completed gym sessions,
// partitioned by check-in year-month.
package remote

import (
	"context"
	"errors"

	"github.com/alexanderramin/gymsync/internal/domain"
)

var (
	// ErrConfigMissing means the remote connection is not configured. It is
	// fatal for the operation and must not be retried in a loop.
	ErrConfigMissing = errors.New("remote table configuration is missing")

	// ErrUnavailable wraps transport and server failures. Retrying later may
	// succeed.
	ErrUnavailable = errors.New("remote table unavailable")

	// ErrActiveSession is returned when an in-progress session is offered to
	// the remote table, which only holds completed visits.
	ErrActiveSession = errors.New("active sessions are not stored remotely")
)

// Table is the remote session table contract.
type Table interface {
	// CreateSession upserts s under its partition and sort key.
	CreateSession(ctx context.Context, s domain.GymSession) error
	// DeleteSession removes the item at s's partition and sort key. Deleting
	// a missing item is not an error.
	DeleteSession(ctx context.Context, s domain.GymSession) error
	// GetSessionsForMonth returns every session in the YYYY_MM partition.
	GetSessionsForMonth(ctx context.Context, yearMonth string) ([]domain.GymSession, error)
	// Ping reports whether the table is reachable.
	Ping(ctx context.Context) error
}

// IsRetryable reports whether err is a transient remote failure.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrUnavailable)
}

// IsFatal reports whether err will recur until configuration changes.
func IsFatal(err error) bool {
	return errors.Is(err, ErrConfigMissing)
}

// Unconfigured is the Table used when no remote is configured. Every call
// fails with ErrConfigMissing.
type Unconfigured struct{}

func (Unconfigured) CreateSession(context.Context, domain.GymSession) error { return ErrConfigMissing }
func (Unconfigured) DeleteSession(context.Context, domain.GymSession) error { return ErrConfigMissing }
func (Unconfigured) Ping(context.Context) error                             { return ErrConfigMissing }

func (Unconfigured) GetSessionsForMonth(context.Context, string) ([]domain.GymSession, error) {
	return nil, ErrConfigMissing
}

// remoteItem strips local-only sync bookkeeping before an item leaves the
// device.
func remoteItem(s domain.GymSession) domain.GymSession {
	s.SyncStatus = ""
	s.LastSynced = nil
	return s
}
