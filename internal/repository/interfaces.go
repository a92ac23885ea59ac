package repository

import (
	"context"
	"errors"

	"github.com/alexanderramin/gymsync/internal/domain"
)

var (
	// ErrNotFound means the requested record does not exist. It is not a
	// storage fault.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateKey is returned by Add when the id is already stored.
	ErrDuplicateKey = errors.New("duplicate key")
)

// SessionRepo is the sessions table of the local store.
type SessionRepo interface {
	Add(ctx context.Context, s *domain.GymSession) error
	Put(ctx context.Context, s *domain.GymSession) error
	Get(ctx context.Context, id string) (*domain.GymSession, error)
	Delete(ctx context.Context, id string) error
	GetAll(ctx context.Context) ([]*domain.GymSession, error)
	// GetActive returns the single in-progress visit, or ErrNotFound.
	GetActive(ctx context.Context) (*domain.GymSession, error)
	DeleteCompleted(ctx context.Context) (int64, error)
}

// SyncQueueRepo is the pending-mutation queue of the local store.
type SyncQueueRepo interface {
	Add(ctx context.Context, e *domain.QueueEntry) error
	Delete(ctx context.Context, id string) error
	// GetAll returns every entry in enqueue order.
	GetAll(ctx context.Context) ([]*domain.QueueEntry, error)
	DeleteBySession(ctx context.Context, sessionID string) (int64, error)
}
