package syncer

import (
	"context"
	"database/sql"
	"sync"
	"testing"
	"time"

	"github.com/alexanderramin/gymsync/internal/domain"
	"github.com/alexanderramin/gymsync/internal/remote"
	"github.com/alexanderramin/gymsync/internal/repository"
	"github.com/alexanderramin/gymsync/internal/testutil"
	promtestutil "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var syncNow = time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)

type harness struct {
	db       *sql.DB
	sessions *repository.SQLiteSessionRepo
	queue    *repository.SQLiteSyncQueueRepo
	table    *remote.MemoryTable
	clock    *testutil.Clock
	engine   *Engine
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	database := testutil.NewTestDB(t)
	h := &harness{
		db:       database,
		sessions: repository.NewSQLiteSessionRepo(database),
		queue:    repository.NewSQLiteSyncQueueRepo(database),
		table:    remote.NewMemoryTable(),
		clock:    testutil.NewClock(syncNow),
	}
	h.engine = h.newEngine(h.table)
	return h
}

func (h *harness) newEngine(table remote.Table) *Engine {
	return NewEngine(testutil.NewTestUoW(h.db), h.queue, table, WithClock(h.clock.Now))
}

func (h *harness) store(t *testing.T, s *domain.GymSession) {
	t.Helper()
	require.NoError(t, h.sessions.Put(context.Background(), s))
}

func (h *harness) enqueue(t *testing.T, op domain.QueueOp) *domain.QueueEntry {
	t.Helper()
	e := domain.NewQueueEntry(op, h.clock.Advance(time.Millisecond))
	require.NoError(t, h.queue.Add(context.Background(), e))
	return e
}

func (h *harness) queued(t *testing.T) []*domain.QueueEntry {
	t.Helper()
	entries, err := h.queue.GetAll(context.Background())
	require.NoError(t, err)
	return entries
}

func (h *harness) local(t *testing.T, id string) *domain.GymSession {
	t.Helper()
	s, err := h.sessions.Get(context.Background(), id)
	require.NoError(t, err)
	return s
}

func callsOf(table *remote.MemoryTable, op string) int {
	n := 0
	for _, c := range table.Calls() {
		if c.Op == op {
			n++
		}
	}
	return n
}

func TestProcessQueue_CreateThenUpdateSendsFinalSnapshot(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	sess := testutil.NewTestSession(syncNow.Add(-2*time.Hour), testutil.WithID("s1"))
	h.store(t, sess)
	h.enqueue(t, domain.CreateOp{Snapshot: *sess})
	require.NoError(t, sess.Complete(syncNow.Add(-15*time.Minute)))
	h.store(t, sess)
	h.enqueue(t, domain.UpdateOp{Snapshot: *sess})

	res, err := h.engine.ProcessQueue(ctx)
	require.NoError(t, err)
	assert.Equal(t, QueueResult{Processed: 2, Synced: 1, SkippedActive: 1}, res)

	assert.Empty(t, h.queued(t))
	assert.Equal(t, 1, callsOf(h.table, "create"))

	got, ok := h.table.Get("s1")
	require.True(t, ok)
	assert.Equal(t, domain.SessionCompleted, got.Status)
	assert.Equal(t, "1h 45m", got.Duration)

	local := h.local(t, "s1")
	assert.Equal(t, domain.SyncSynced, local.SyncStatus)
	require.NotNil(t, local.LastSynced)
	assert.True(t, local.LastSynced.Equal(h.clock.Now()))
}

func TestProcessQueue_ActiveSessionNeverReachesRemote(t *testing.T) {
	h := newHarness(t)

	sess := testutil.NewTestSession(syncNow, testutil.WithID("s1"))
	h.store(t, sess)
	h.enqueue(t, domain.CreateOp{Snapshot: *sess})

	res, err := h.engine.ProcessQueue(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, res.SkippedActive)

	assert.Empty(t, h.table.Calls())
	assert.Empty(t, h.queued(t))
	local := h.local(t, "s1")
	assert.Equal(t, domain.SessionActive, local.Status)
	assert.Equal(t, domain.SyncPending, local.SyncStatus)
}

func TestProcessQueue_SecondPassIsNoop(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	sess := testutil.NewCompletedSession(syncNow.Add(-3*time.Hour), time.Hour)
	h.store(t, sess)
	h.enqueue(t, domain.UpdateOp{Snapshot: *sess})

	_, err := h.engine.ProcessQueue(ctx)
	require.NoError(t, err)
	before := len(h.table.Calls())

	res, err := h.engine.ProcessQueue(ctx)
	require.NoError(t, err)
	assert.Zero(t, res.Processed)
	assert.Len(t, h.table.Calls(), before)
	assert.Len(t, h.table.All(), 1)
}

func TestProcessQueue_RemoteFailureKeepsEntryForRetry(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	sess := testutil.NewCompletedSession(syncNow.Add(-3*time.Hour), time.Hour, testutil.WithID("s1"))
	h.store(t, sess)
	entry := h.enqueue(t, domain.UpdateOp{Snapshot: *sess})

	h.table.SetFailCreate(remote.ErrUnavailable)
	res, err := h.engine.ProcessQueue(ctx)
	require.NoError(t, err, "remote failures are not surfaced")
	assert.Equal(t, 1, res.Failed)

	entries := h.queued(t)
	require.Len(t, entries, 1)
	assert.Equal(t, entry.ID, entries[0].ID)
	assert.Equal(t, domain.SyncFailed, h.local(t, "s1").SyncStatus)

	h.table.SetFailCreate(nil)
	res, err = h.engine.ProcessQueue(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Synced)
	assert.Empty(t, h.queued(t))
	assert.Equal(t, domain.SyncSynced, h.local(t, "s1").SyncStatus)
}

func TestProcessQueue_FailedEntryDoesNotBlockLaterEntries(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	old := testutil.NewCompletedSession(syncNow.AddDate(0, -1, 0), time.Hour, testutil.WithID("old"),
		testutil.WithSyncStatus(domain.SyncSynced))
	h.store(t, old)
	h.table.Seed(*old)
	h.enqueue(t, domain.DeleteOp{Snapshot: *old})

	fresh := testutil.NewCompletedSession(syncNow.Add(-2*time.Hour), time.Hour, testutil.WithID("fresh"))
	h.store(t, fresh)
	h.enqueue(t, domain.UpdateOp{Snapshot: *fresh})

	h.table.SetFailDelete(remote.ErrUnavailable)
	res, err := h.engine.ProcessQueue(ctx)
	require.NoError(t, err)
	assert.Equal(t, QueueResult{Processed: 2, Synced: 1, Failed: 1}, res)

	// A local delete only happens after the remote one succeeded.
	assert.Equal(t, domain.SyncFailed, h.local(t, "old").SyncStatus)
	assert.Equal(t, domain.SyncSynced, h.local(t, "fresh").SyncStatus)
	require.Len(t, h.queued(t), 1)
	assert.IsType(t, domain.DeleteOp{}, h.queued(t)[0].Op)
}

func TestProcessQueue_DeleteRemovesBothCopies(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	sess := testutil.NewCompletedSession(syncNow.AddDate(0, -2, 0), 90*time.Minute, testutil.WithID("s1"),
		testutil.WithSyncStatus(domain.SyncSynced))
	h.store(t, sess)
	h.table.Seed(*sess)
	h.enqueue(t, domain.DeleteOp{Snapshot: *sess})

	_, err := h.engine.ProcessQueue(ctx)
	require.NoError(t, err)

	_, ok := h.table.Get("s1")
	assert.False(t, ok)
	_, err = h.sessions.Get(ctx, "s1")
	assert.ErrorIs(t, err, repository.ErrNotFound)
	assert.Empty(t, h.queued(t))
}

func TestSettle_DoesNotRegressCheckedOutSession(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	active := testutil.NewTestSession(syncNow.Add(-time.Hour), testutil.WithID("s1"))
	entry := h.enqueue(t, domain.CreateOp{Snapshot: *active})

	// Checked out after the queue snapshot was taken.
	done := *active
	require.NoError(t, done.Complete(syncNow))
	h.store(t, &done)

	require.NoError(t, h.engine.settle(ctx, entry))

	local := h.local(t, "s1")
	assert.Equal(t, domain.SessionCompleted, local.Status)
	assert.Equal(t, "1h 0m", local.Duration)
	assert.Empty(t, h.queued(t))
}

func TestSettle_DoesNotResurrectAbandonedSession(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	active := testutil.NewTestSession(syncNow, testutil.WithID("gone"))
	entry := h.enqueue(t, domain.CreateOp{Snapshot: *active})

	require.NoError(t, h.engine.settle(ctx, entry))

	_, err := h.sessions.Get(ctx, "gone")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestProcessQueue_StorageErrorIsReturned(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.db.Close())

	_, err := h.engine.ProcessQueue(context.Background())
	assert.Error(t, err)
}

// blockingTable holds every CreateSession until release is closed.
type blockingTable struct {
	*remote.MemoryTable
	entered chan struct{}
	release chan struct{}
	once    sync.Once
}

func (b *blockingTable) CreateSession(ctx context.Context, s domain.GymSession) error {
	b.once.Do(func() { close(b.entered) })
	<-b.release
	return b.MemoryTable.CreateSession(ctx, s)
}

func TestProcessQueue_ConcurrentCallersShareOnePass(t *testing.T) {
	h := newHarness(t)
	table := &blockingTable{
		MemoryTable: remote.NewMemoryTable(),
		entered:     make(chan struct{}),
		release:     make(chan struct{}),
	}
	engine := h.newEngine(table)

	sess := testutil.NewCompletedSession(syncNow.Add(-2*time.Hour), time.Hour)
	h.store(t, sess)
	h.enqueue(t, domain.UpdateOp{Snapshot: *sess})

	var wg sync.WaitGroup
	errs := make(chan error, 5)
	run := func() {
		defer wg.Done()
		_, err := engine.ProcessQueue(context.Background())
		errs <- err
	}

	wg.Add(1)
	go run()
	<-table.entered
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go run()
	}
	close(table.release)
	wg.Wait()
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}
	assert.Equal(t, 1, callsOf(table.MemoryTable, "create"))
	assert.Empty(t, h.queued(t))
}

func newBlockingTable() *blockingTable {
	return &blockingTable{
		MemoryTable: remote.NewMemoryTable(),
		entered:     make(chan struct{}),
		release:     make(chan struct{}),
	}
}

func TestDrain_IncludesEntriesQueuedDuringRunningPass(t *testing.T) {
	h := newHarness(t)
	table := newBlockingTable()
	engine := h.newEngine(table)
	ctx := context.Background()

	first := testutil.NewCompletedSession(syncNow.Add(-3*time.Hour), time.Hour, testutil.WithID("first"))
	h.store(t, first)
	h.enqueue(t, domain.UpdateOp{Snapshot: *first})

	passDone := make(chan struct{})
	go func() {
		defer close(passDone)
		_, _ = engine.ProcessQueue(ctx)
	}()
	<-table.entered

	late := testutil.NewCompletedSession(syncNow.Add(-2*time.Hour), time.Hour, testutil.WithID("late"))
	h.store(t, late)
	h.enqueue(t, domain.UpdateOp{Snapshot: *late})

	type outcome struct {
		res QueueResult
		err error
	}
	drained := make(chan outcome, 1)
	go func() {
		res, err := engine.Drain(ctx)
		drained <- outcome{res, err}
	}()

	time.Sleep(50 * time.Millisecond)
	close(table.release)
	<-passDone
	got := <-drained

	require.NoError(t, got.err)
	assert.Equal(t, QueueResult{Processed: 1, Synced: 1}, got.res)
	_, ok := table.Get("late")
	assert.True(t, ok, "entry enqueued after the running pass's snapshot is pushed")
	assert.Empty(t, h.queued(t))
}

func TestFullSync_NeverOverlapsRunningDrain(t *testing.T) {
	h := newHarness(t)
	table := newBlockingTable()
	engine := h.newEngine(table)
	ctx := context.Background()

	sess := testutil.NewCompletedSession(syncNow.Add(-3*time.Hour), time.Hour, testutil.WithID("s1"))
	h.store(t, sess)
	h.enqueue(t, domain.UpdateOp{Snapshot: *sess})

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		_, err := engine.ProcessQueue(ctx)
		assert.NoError(t, err)
	}()
	<-table.entered

	go func() {
		defer wg.Done()
		_, err := engine.FullSync(ctx)
		assert.NoError(t, err)
	}()

	time.Sleep(50 * time.Millisecond)
	assert.Zero(t, callsOf(table.MemoryTable, "query"), "reconcile waits for the running drain")

	close(table.release)
	wg.Wait()

	calls := table.Calls()
	require.NotEmpty(t, calls)
	assert.Equal(t, "create", calls[0].Op)
	assert.Equal(t, 1, callsOf(table.MemoryTable, "create"), "the full sync's own drain finds the entry settled")
	assert.Equal(t, DefaultWindowMonths, callsOf(table.MemoryTable, "query"))

	local := h.local(t, "s1")
	assert.Equal(t, domain.SyncSynced, local.SyncStatus)
}

func TestProcessQueue_RetainedGaugeCountsQueueAfterPass(t *testing.T) {
	h := newHarness(t)
	table := newBlockingTable()
	engine := h.newEngine(table)
	ctx := context.Background()

	sess := testutil.NewCompletedSession(syncNow.Add(-3*time.Hour), time.Hour, testutil.WithID("s1"))
	h.store(t, sess)
	h.enqueue(t, domain.UpdateOp{Snapshot: *sess})

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = engine.ProcessQueue(ctx)
	}()
	<-table.entered

	late := testutil.NewCompletedSession(syncNow.Add(-2*time.Hour), time.Hour, testutil.WithID("late"))
	h.store(t, late)
	h.enqueue(t, domain.UpdateOp{Snapshot: *late})
	close(table.release)
	<-done

	assert.Equal(t, float64(1), promtestutil.ToFloat64(queueDepth))

	_, err := engine.ProcessQueue(ctx)
	require.NoError(t, err)
	assert.Equal(t, float64(0), promtestutil.ToFloat64(queueDepth))
}
