package testutil

import (
	"sync"
	"time"

	"github.com/alexanderramin/gymsync/internal/domain"
	"github.com/google/uuid"
)

// SessionOption customises a test session.
type SessionOption func(*domain.GymSession)

func WithID(id string) SessionOption {
	return func(s *domain.GymSession) {
		s.ID = id
	}
}

func WithSyncStatus(st domain.SyncStatus) SessionOption {
	return func(s *domain.GymSession) {
		s.SyncStatus = st
	}
}

// WithCheckout completes the session d after check-in.
func WithCheckout(d time.Duration) SessionOption {
	return func(s *domain.GymSession) {
		if err := s.Complete(s.CheckInTime.Add(d)); err != nil {
			panic(err)
		}
	}
}

// NewTestSession returns an active, pending session checked in at checkIn.
func NewTestSession(checkIn time.Time, opts ...SessionOption) *domain.GymSession {
	s := domain.NewActiveSession(uuid.New().String(), checkIn)
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewCompletedSession returns a completed session lasting d.
func NewCompletedSession(checkIn time.Time, d time.Duration, opts ...SessionOption) *domain.GymSession {
	return NewTestSession(checkIn, append([]SessionOption{WithCheckout(d)}, opts...)...)
}

// Clock is a settable time source for services and syncers under test.
type Clock struct {
	mu  sync.Mutex
	now time.Time
}

func NewClock(start time.Time) *Clock {
	return &Clock{now: start}
}

func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *Clock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

// Advance moves the clock forward by d and returns the new time.
func (c *Clock) Advance(d time.Duration) time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
	return c.now
}
