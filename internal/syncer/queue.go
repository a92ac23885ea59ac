package syncer

import (
	"context"
	"errors"
	"fmt"

	"github.com/alexanderramin/gymsync/internal/db"
	"github.com/alexanderramin/gymsync/internal/domain"
	"github.com/alexanderramin/gymsync/internal/remote"
	"github.com/alexanderramin/gymsync/internal/repository"
)

func (e *Engine) drain(ctx context.Context) (QueueResult, error) {
	e.drainMu.Lock()
	defer e.drainMu.Unlock()
	defer e.recordDepth(ctx)

	var res QueueResult
	// Snapshot: entries enqueued after this read wait for the next pass.
	entries, err := e.queue.GetAll(ctx)
	if err != nil {
		return res, fmt.Errorf("reading sync queue: %w", err)
	}

	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		res.Processed++
		kind := string(entry.Op.Kind())
		snap := entry.Op.Session()

		if !snap.IsCompleted() {
			res.SkippedActive++
			entriesTotal.WithLabelValues(kind, "skipped_active").Inc()
		} else if err := e.push(ctx, entry.Op); err != nil {
			res.Failed++
			entriesTotal.WithLabelValues(kind, "failed").Inc()
			e.logger.WarnContext(ctx, "sync entry failed",
				"entry", entry.ID,
				"op", kind,
				"session", snap.ID,
				"retryable", remote.IsRetryable(err),
				"error", err,
			)
			if err := e.markFailed(ctx, entry); err != nil {
				return res, fmt.Errorf("marking session %s failed: %w", snap.ID, err)
			}
			continue
		} else {
			res.Synced++
			entriesTotal.WithLabelValues(kind, "synced").Inc()
		}

		if err := e.settle(ctx, entry); err != nil {
			return res, fmt.Errorf("settling queue entry %s: %w", entry.ID, err)
		}
	}

	return res, nil
}

// recordDepth sets the retained-entries gauge from the queue as it stands
// after a pass, including entries enqueued while it ran.
func (e *Engine) recordDepth(ctx context.Context) {
	entries, err := e.queue.GetAll(context.WithoutCancel(ctx))
	if err != nil {
		e.logger.WarnContext(ctx, "counting sync queue", "error", err)
		return
	}
	queueDepth.Set(float64(len(entries)))
}

func (e *Engine) push(ctx context.Context, op domain.QueueOp) error {
	switch op := op.(type) {
	case domain.CreateOp, domain.UpdateOp:
		return e.remote.CreateSession(ctx, op.Session())
	case domain.DeleteOp:
		return e.remote.DeleteSession(ctx, op.Snapshot)
	default:
		return fmt.Errorf("unsupported queue operation %T", op)
	}
}

// settle records a successful (or skipped) entry locally and dequeues it in
// one transaction.
func (e *Engine) settle(ctx context.Context, entry *domain.QueueEntry) error {
	return e.uow.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
		sessions := repository.NewSQLiteSessionRepo(tx)
		queue := repository.NewSQLiteSyncQueueRepo(tx)

		if _, ok := entry.Op.(domain.DeleteOp); ok {
			if err := sessions.Delete(ctx, entry.SessionID()); err != nil {
				return err
			}
		} else if err := e.settleSession(ctx, sessions, entry.Op.Session()); err != nil {
			return err
		}
		return queue.Delete(ctx, entry.ID)
	})
}

// settleSession writes the snapshot back with its new sync status unless the
// local record has moved past it.
func (e *Engine) settleSession(ctx context.Context, sessions repository.SessionRepo, snap domain.GymSession) error {
	current, err := sessions.Get(ctx, snap.ID)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		if snap.IsActive() {
			// Abandoned while the pass was running.
			return nil
		}
	case err != nil:
		return err
	case current.IsCompleted() && snap.IsActive():
		// Checked out after the snapshot was read; status never regresses.
		return nil
	}

	next := snap.WithSyncStatus(domain.SyncPending)
	if snap.IsCompleted() {
		next = snap.MarkSynced(e.now())
	}
	return sessions.Put(ctx, &next)
}

func (e *Engine) markFailed(ctx context.Context, entry *domain.QueueEntry) error {
	return e.uow.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
		sessions := repository.NewSQLiteSessionRepo(tx)
		snap := entry.Op.Session()

		current, err := sessions.Get(ctx, snap.ID)
		switch {
		case errors.Is(err, repository.ErrNotFound):
			if _, ok := entry.Op.(domain.DeleteOp); ok {
				return nil
			}
		case err != nil:
			return err
		default:
			if _, ok := entry.Op.(domain.DeleteOp); ok {
				snap = *current
			}
		}
		failed := snap.WithSyncStatus(domain.SyncFailed)
		return sessions.Put(ctx, &failed)
	})
}
