// Package syncer drives the local sync queue to the remote session table and
// refreshes local history from it.
package syncer

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/alexanderramin/gymsync/internal/db"
	"github.com/alexanderramin/gymsync/internal/remote"
	"github.com/alexanderramin/gymsync/internal/repository"
)

// DefaultWindowMonths is how many calendar months a full sync refreshes.
const DefaultWindowMonths = 12

// ErrNoPartitions is returned when a full sync could not fetch any month.
// Local state is left untouched.
var ErrNoPartitions = errors.New("no remote partition could be fetched")

// QueueResult summarises one pass over the sync queue. Callers that need to
// know whether everything was applied should re-inspect the queue.
type QueueResult struct {
	Processed     int
	Synced        int
	Failed        int
	SkippedActive int
}

// FullSyncResult summarises one full reconciliation.
type FullSyncResult struct {
	Queue         QueueResult
	Months        int
	FailedMonths  []string
	Fetched       int
	Removed       int64
	Inserted      int
	SkippedActive int
}

// Engine owns the queue processor and the full-sync reconciler.
//
// Concurrent callers of ProcessQueue share one in-flight pass, as do
// concurrent callers of FullSync; joined callers receive the result computed
// under the first caller's context. Drain never joins: it waits for the
// running pass and then reads the queue itself. Queue drains and
// reconciliation never overlap.
type Engine struct {
	uow    db.UnitOfWork
	queue  repository.SyncQueueRepo
	remote remote.Table
	logger *slog.Logger
	now    func() time.Time
	window int

	flight  singleflight.Group
	drainMu sync.Mutex
}

// Option configures an Engine.
type Option func(*Engine)

func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// WithWindowMonths overrides DefaultWindowMonths. Non-positive values are ignored.
func WithWindowMonths(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.window = n
		}
	}
}

// NewEngine builds an Engine. queue is used for the snapshot read; writes go
// through tx-scoped repositories created inside uow.
func NewEngine(uow db.UnitOfWork, queue repository.SyncQueueRepo, table remote.Table, opts ...Option) *Engine {
	e := &Engine{
		uow:    uow,
		queue:  queue,
		remote: table,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		now:    time.Now,
		window: DefaultWindowMonths,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// ProcessQueue applies every queued mutation, in enqueue order, to the remote
// table. Remote failures mark the session failed and leave the entry queued
// for the next pass; only local storage errors are returned.
func (e *Engine) ProcessQueue(ctx context.Context) (QueueResult, error) {
	v, err, _ := e.flight.Do("queue", func() (any, error) {
		return e.drain(ctx)
	})
	res, _ := v.(QueueResult)
	return res, err
}

// Drain runs a queue pass whose snapshot is read after the call starts, so
// entries the caller enqueued beforehand are attempted. Use it when the
// caller reports the outcome of its own entries.
func (e *Engine) Drain(ctx context.Context) (QueueResult, error) {
	return e.drain(ctx)
}

// FullSync drains the queue, then replaces local completed history with the
// remote partitions of the trailing window. The active session is never
// touched.
func (e *Engine) FullSync(ctx context.Context) (FullSyncResult, error) {
	v, err, _ := e.flight.Do("full", func() (any, error) {
		return e.fullSync(ctx)
	})
	res, _ := v.(FullSyncResult)
	return res, err
}
