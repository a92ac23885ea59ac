package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

// QueueOp is a pending mutation awaiting application to the remote table.
// The concrete types are CreateOp, UpdateOp and DeleteOp; each carries the
// full session snapshot taken at enqueue time.
type QueueOp interface {
	Kind() OpKind
	Session() GymSession
	isQueueOp()
}

// CreateOp records a newly checked-in session.
type CreateOp struct{ Snapshot GymSession }

// UpdateOp records a change to an existing session, normally the checkout.
type UpdateOp struct{ Snapshot GymSession }

// DeleteOp removes a completed session. The snapshot supplies the remote
// partition and sort key.
type DeleteOp struct{ Snapshot GymSession }

func (CreateOp) Kind() OpKind { return OpCreate }
func (UpdateOp) Kind() OpKind { return OpUpdate }
func (DeleteOp) Kind() OpKind { return OpDelete }

func (o CreateOp) Session() GymSession { return o.Snapshot }
func (o UpdateOp) Session() GymSession { return o.Snapshot }
func (o DeleteOp) Session() GymSession { return o.Snapshot }

func (CreateOp) isQueueOp() {}
func (UpdateOp) isQueueOp() {}
func (DeleteOp) isQueueOp() {}

// QueueEntry is one durable record in the sync queue.
type QueueEntry struct {
	ID         string
	Op         QueueOp
	EnqueuedAt time.Time
}

// NewQueueEntry wraps op with a composite id of operation, session id and
// enqueue time. Nanosecond resolution keeps rapid repeats on one session
// distinct.
func NewQueueEntry(op QueueOp, now time.Time) *QueueEntry {
	now = now.UTC()
	return &QueueEntry{
		ID:         fmt.Sprintf("%s_%s_%d", op.Kind(), op.Session().ID, now.UnixNano()),
		Op:         op,
		EnqueuedAt: now,
	}
}

func (e *QueueEntry) SessionID() string { return e.Op.Session().ID }

// NewQueueOp builds the variant for kind around snapshot.
func NewQueueOp(kind OpKind, snapshot GymSession) (QueueOp, error) {
	switch kind {
	case OpCreate:
		return CreateOp{Snapshot: snapshot}, nil
	case OpUpdate:
		return UpdateOp{Snapshot: snapshot}, nil
	case OpDelete:
		return DeleteOp{Snapshot: snapshot}, nil
	}
	return nil, fmt.Errorf("unknown sync operation %q", kind)
}

// EncodeSnapshot serialises the op's session snapshot for storage.
func EncodeSnapshot(op QueueOp) (string, error) {
	b, err := json.Marshal(op.Session())
	if err != nil {
		return "", fmt.Errorf("encoding %s snapshot: %w", op.Kind(), err)
	}
	return string(b), nil
}

// DecodeQueueOp rebuilds a QueueOp from its stored kind and snapshot.
func DecodeQueueOp(kind, data string) (QueueOp, error) {
	k, err := ParseOpKind(kind)
	if err != nil {
		return nil, err
	}
	var snap GymSession
	if err := json.Unmarshal([]byte(data), &snap); err != nil {
		return nil, fmt.Errorf("decoding %s snapshot: %w", k, err)
	}
	return NewQueueOp(k, snap)
}
