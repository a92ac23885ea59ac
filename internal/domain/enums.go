package domain

import "fmt"

// SessionStatus is the gym-domain state of a visit.
type SessionStatus string

const (
	SessionActive    SessionStatus = "active"
	SessionCompleted SessionStatus = "completed"
)

// SyncStatus tracks a record's relationship to the remote table. It is
// orthogonal to SessionStatus.
type SyncStatus string

const (
	SyncPending SyncStatus = "pending"
	SyncSynced  SyncStatus = "synced"
	SyncFailed  SyncStatus = "failed"
)

// OpKind names the mutation a queue entry replays against the remote table.
type OpKind string

const (
	OpCreate OpKind = "create"
	OpUpdate OpKind = "update"
	OpDelete OpKind = "delete"
)

func ParseSessionStatus(s string) (SessionStatus, error) {
	switch SessionStatus(s) {
	case SessionActive, SessionCompleted:
		return SessionStatus(s), nil
	}
	return "", fmt.Errorf("unknown session status %q", s)
}

func ParseSyncStatus(s string) (SyncStatus, error) {
	switch SyncStatus(s) {
	case SyncPending, SyncSynced, SyncFailed:
		return SyncStatus(s), nil
	}
	return "", fmt.Errorf("unknown sync status %q", s)
}

func ParseOpKind(s string) (OpKind, error) {
	switch OpKind(s) {
	case OpCreate, OpUpdate, OpDelete:
		return OpKind(s), nil
	}
	return "", fmt.Errorf("unknown sync operation %q", s)
}
