package domain

import (
	"errors"
	"fmt"
	"time"
)

// TimeLayout is the ISO-8601 millisecond form used for check-in/out times in
// both stores. Times are always normalised to UTC before formatting.
const TimeLayout = "2006-01-02T15:04:05.000Z07:00"

// ErrAlreadyCompleted is returned when checking out a session twice.
var ErrAlreadyCompleted = errors.New("session already completed")

// GymSession is one gym visit.
type GymSession struct {
	ID           string        `json:"id"`
	CheckInTime  time.Time     `json:"checkInTime"`
	CheckOutTime *time.Time    `json:"checkOutTime,omitempty"`
	Duration     string        `json:"duration,omitempty"`
	Status       SessionStatus `json:"status"`
	SyncStatus   SyncStatus    `json:"syncStatus"`
	LastSynced   *time.Time    `json:"lastSynced,omitempty"`
}

// NewActiveSession starts a visit at checkIn with nothing synced yet.
func NewActiveSession(id string, checkIn time.Time) *GymSession {
	return &GymSession{
		ID:          id,
		CheckInTime: checkIn.UTC().Truncate(time.Millisecond),
		Status:      SessionActive,
		SyncStatus:  SyncPending,
	}
}

func (s *GymSession) IsActive() bool { return s.Status == SessionActive }

func (s *GymSession) IsCompleted() bool { return s.Status == SessionCompleted }

// Complete records the checkout. Duration is computed once here and the
// status transition is one-way.
func (s *GymSession) Complete(now time.Time) error {
	if s.Status == SessionCompleted {
		return fmt.Errorf("session %s: %w", s.ID, ErrAlreadyCompleted)
	}
	out := now.UTC().Truncate(time.Millisecond)
	if out.Before(s.CheckInTime) {
		return fmt.Errorf("session %s: check-out %s precedes check-in %s",
			s.ID, out.Format(TimeLayout), s.CheckInTime.Format(TimeLayout))
	}
	s.CheckOutTime = &out
	s.Duration = FormatDuration(out.Sub(s.CheckInTime))
	s.Status = SessionCompleted
	s.SyncStatus = SyncPending
	return nil
}

// MarkSynced returns a copy flagged as matching the remote table at now.
func (s GymSession) MarkSynced(now time.Time) GymSession {
	ts := now.UTC()
	s.SyncStatus = SyncSynced
	s.LastSynced = &ts
	return s
}

// WithSyncStatus returns a copy with only the sync status replaced.
func (s GymSession) WithSyncStatus(status SyncStatus) GymSession {
	s.SyncStatus = status
	return s
}

// YearMonth is the remote partition key, derived from the check-in time.
func (s *GymSession) YearMonth() string {
	return PartitionKey(s.CheckInTime)
}

// SortKey is the remote sort key within a partition.
func (s *GymSession) SortKey() string {
	return s.CheckInTime.UTC().Format(TimeLayout)
}
