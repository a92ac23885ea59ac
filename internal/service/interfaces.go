package service

import (
	"context"
	"errors"
	"time"

	"github.com/alexanderramin/gymsync/internal/domain"
	"github.com/alexanderramin/gymsync/internal/syncer"
)

var (
	// ErrSessionActive is returned by CheckIn while a visit is in progress.
	ErrSessionActive = errors.New("a gym session is already in progress")

	// ErrStorageUnavailable wraps any failure of the local store.
	ErrStorageUnavailable = errors.New("local storage unavailable")
)

// GymService is the session lifecycle API consumed by the CLI and the
// terminal UI. It owns the in-memory view of sessions.
type GymService interface {
	CheckIn(ctx context.Context) (*domain.GymSession, error)
	// CheckOut completes the active session. It returns nil, nil when no
	// session is active.
	CheckOut(ctx context.Context) (*domain.GymSession, error)
	// AbandonSession discards the active session and its queued entries
	// without contacting the remote table.
	AbandonSession(ctx context.Context) (*domain.GymSession, error)
	// GetSessions runs a best-effort full sync when online and returns every
	// stored session, newest first. Failures are logged or notified.
	GetSessions(ctx context.Context) []*domain.GymSession
	// Refresh is a user-initiated full sync; unlike GetSessions it returns
	// the failure.
	Refresh(ctx context.Context) error
	DeleteSessions(ctx context.Context, ids []string) (*DeleteResult, error)
	DeleteSelectedSessions(ctx context.Context) (*DeleteResult, error)
	GetSessionDuration(checkIn time.Time) string

	ToggleEditing()
	ToggleSessionSelection(id string)
	ClearSelection()
	State() State

	// Wait blocks until background syncs started by mutations finish.
	Wait()
}

// Syncer is the subset of syncer.Engine the service drives.
type Syncer interface {
	ProcessQueue(ctx context.Context) (syncer.QueueResult, error)
	// Drain runs a pass that includes entries enqueued before the call.
	Drain(ctx context.Context) (syncer.QueueResult, error)
	FullSync(ctx context.Context) (syncer.FullSyncResult, error)
}

// Connectivity reports whether remote operations are worth attempting.
type Connectivity interface {
	Online() bool
}

// State is a snapshot of the service's view.
type State struct {
	Current   *domain.GymSession
	Sessions  []*domain.GymSession
	IsEditing bool
	Selected  []string
}

// IsSelected reports whether id is in the selection.
func (s State) IsSelected(id string) bool {
	for _, sel := range s.Selected {
		if sel == id {
			return true
		}
	}
	return false
}

// DeleteResult reports the outcome of a deletion request.
type DeleteResult struct {
	Deleted []string
	// Pending ids are queued for deletion but the remote delete has not
	// succeeded yet; their local records remain.
	Pending []string
	// Skipped ids were unknown or not completed.
	Skipped []string
}
