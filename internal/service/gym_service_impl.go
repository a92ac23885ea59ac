package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/alexanderramin/gymsync/internal/db"
	"github.com/alexanderramin/gymsync/internal/domain"
	"github.com/alexanderramin/gymsync/internal/repository"
)

// Deps are the collaborators of NewGymService. Logger, Notifier, Now and
// NewID are optional.
type Deps struct {
	UoW      db.UnitOfWork
	Sessions repository.SessionRepo
	Queue    repository.SyncQueueRepo
	Sync     Syncer
	Conn     Connectivity
	Notifier Notifier
	Logger   *slog.Logger
	Now      func() time.Time
	NewID    func() string
}

type gymService struct {
	uow      db.UnitOfWork
	sessions repository.SessionRepo
	queue    repository.SyncQueueRepo
	sync     Syncer
	conn     Connectivity
	notifier Notifier
	logger   *slog.Logger
	observer UseCaseObserver
	now      func() time.Time
	newID    func() string

	mu        sync.Mutex
	current   *domain.GymSession
	all       []*domain.GymSession
	isEditing bool
	selected  map[string]struct{}

	background sync.WaitGroup
}

func NewGymService(deps Deps, observers ...UseCaseObserver) GymService {
	s := &gymService{
		uow:      deps.UoW,
		sessions: deps.Sessions,
		queue:    deps.Queue,
		sync:     deps.Sync,
		conn:     deps.Conn,
		notifier: deps.Notifier,
		logger:   deps.Logger,
		observer: useCaseObserverOrNoop(observers),
		now:      deps.Now,
		newID:    deps.NewID,
		selected: make(map[string]struct{}),
	}
	if s.notifier == nil {
		s.notifier = NoopNotifier{}
	}
	if s.logger == nil {
		s.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.newID == nil {
		s.newID = func() string { return uuid.New().String() }
	}
	return s
}

func (s *gymService) CheckIn(ctx context.Context) (session *domain.GymSession, err error) {
	startedAt := time.Now().UTC()
	fields := map[string]any{}
	defer func() { s.observe(ctx, "check-in", startedAt, fields, err) }()

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	session = domain.NewActiveSession(s.newID(), now)
	fields["session_id"] = session.ID

	err = s.uow.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
		txSessions := repository.NewSQLiteSessionRepo(tx)
		txQueue := repository.NewSQLiteSyncQueueRepo(tx)

		if _, err := txSessions.GetActive(ctx); err == nil {
			return ErrSessionActive
		} else if !errors.Is(err, repository.ErrNotFound) {
			return err
		}
		if err := txSessions.Add(ctx, session); err != nil {
			return err
		}
		return txQueue.Add(ctx, domain.NewQueueEntry(domain.CreateOp{Snapshot: *session}, now))
	})
	if errors.Is(err, ErrSessionActive) {
		s.notifier.Notify(NoticeError, "A gym session is already in progress")
		return nil, err
	}
	if err != nil {
		return nil, s.storageFailure("Failed to check in", err)
	}

	s.current = session
	s.all = append([]*domain.GymSession{session}, s.all...)
	s.notifier.Notify(NoticeSuccess, "Checked in at "+session.CheckInTime.Local().Format("15:04"))
	s.syncInBackground(ctx)
	return copySession(session), nil
}

func (s *gymService) CheckOut(ctx context.Context) (session *domain.GymSession, err error) {
	startedAt := time.Now().UTC()
	fields := map[string]any{}
	defer func() { s.observe(ctx, "check-out", startedAt, fields, err) }()

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	var completeErr error
	err = s.uow.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
		txSessions := repository.NewSQLiteSessionRepo(tx)
		txQueue := repository.NewSQLiteSyncQueueRepo(tx)

		active, err := txSessions.GetActive(ctx)
		if errors.Is(err, repository.ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		if completeErr = active.Complete(now); completeErr != nil {
			return completeErr
		}
		if err := txSessions.Put(ctx, active); err != nil {
			return err
		}
		if err := txQueue.Add(ctx, domain.NewQueueEntry(domain.UpdateOp{Snapshot: *active}, now)); err != nil {
			return err
		}
		session = active
		return nil
	})
	if completeErr != nil {
		s.notifier.Notify(NoticeError, "Failed to check out")
		return nil, completeErr
	}
	if err != nil {
		return nil, s.storageFailure("Failed to check out", err)
	}
	if session == nil {
		s.current = nil
		return nil, nil
	}
	fields["session_id"] = session.ID
	fields["duration"] = session.Duration

	s.current = nil
	s.replaceLocked(session)
	s.notifier.Notify(NoticeSuccess, "Checked out after "+session.Duration)
	s.syncInBackground(ctx)
	return copySession(session), nil
}

func (s *gymService) AbandonSession(ctx context.Context) (session *domain.GymSession, err error) {
	startedAt := time.Now().UTC()
	fields := map[string]any{}
	defer func() { s.observe(ctx, "abandon-session", startedAt, fields, err) }()

	s.mu.Lock()
	defer s.mu.Unlock()

	err = s.uow.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
		txSessions := repository.NewSQLiteSessionRepo(tx)
		txQueue := repository.NewSQLiteSyncQueueRepo(tx)

		active, err := txSessions.GetActive(ctx)
		if errors.Is(err, repository.ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		dropped, err := txQueue.DeleteBySession(ctx, active.ID)
		if err != nil {
			return err
		}
		fields["dequeued"] = dropped
		if err := txSessions.Delete(ctx, active.ID); err != nil {
			return err
		}
		session = active
		return nil
	})
	if err != nil {
		return nil, s.storageFailure("Failed to abandon session", err)
	}

	s.current = nil
	if session == nil {
		return nil, nil
	}
	fields["session_id"] = session.ID
	s.removeLocked(session.ID)
	s.notifier.Notify(NoticeInfo, "Session abandoned")
	return session, nil
}

func (s *gymService) GetSessions(ctx context.Context) []*domain.GymSession {
	if s.conn.Online() {
		if _, err := s.sync.FullSync(ctx); err != nil {
			s.logger.WarnContext(ctx, "background full sync failed", "error", err)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.reloadLocked(ctx); err != nil {
		s.notifier.Notify(NoticeError, "Could not load sessions")
		s.logger.ErrorContext(ctx, "loading sessions", "error", err)
		return []*domain.GymSession{}
	}
	return copySessions(s.all)
}

func (s *gymService) Refresh(ctx context.Context) (err error) {
	startedAt := time.Now().UTC()
	fields := map[string]any{}
	defer func() { s.observe(ctx, "refresh", startedAt, fields, err) }()

	res, err := s.sync.FullSync(ctx)
	fields["months"] = res.Months
	fields["fetched"] = res.Fetched
	if err != nil {
		s.notifier.Notify(NoticeError, "Failed to refresh sessions")
		return fmt.Errorf("refreshing sessions: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.reloadLocked(ctx); err != nil {
		return s.storageFailure("Could not load sessions", err)
	}
	if len(res.FailedMonths) > 0 {
		s.notifier.Notify(NoticeInfo, fmt.Sprintf("Sessions refreshed, %d months unavailable", len(res.FailedMonths)))
		return nil
	}
	s.notifier.Notify(NoticeSuccess, "Sessions refreshed")
	return nil
}

func (s *gymService) DeleteSelectedSessions(ctx context.Context) (*DeleteResult, error) {
	return s.DeleteSessions(ctx, s.State().Selected)
}

// DeleteSessions queues a remote delete for every completed id, drains the
// queue when online, then reloads the view and leaves edit mode. Local
// records are removed only once the remote delete succeeds.
func (s *gymService) DeleteSessions(ctx context.Context, ids []string) (result *DeleteResult, err error) {
	startedAt := time.Now().UTC()
	fields := map[string]any{"requested": len(ids)}
	defer func() { s.observe(ctx, "delete-sessions", startedAt, fields, err) }()

	s.mu.Lock()
	defer s.mu.Unlock()

	result = &DeleteResult{}
	var queued []string
	now := s.now()
	err = s.uow.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
		txSessions := repository.NewSQLiteSessionRepo(tx)
		txQueue := repository.NewSQLiteSyncQueueRepo(tx)

		seen := make(map[string]struct{}, len(ids))
		for _, id := range ids {
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}
			sess, err := txSessions.Get(ctx, id)
			if errors.Is(err, repository.ErrNotFound) {
				result.Skipped = append(result.Skipped, id)
				continue
			}
			if err != nil {
				return err
			}
			if !sess.IsCompleted() {
				result.Skipped = append(result.Skipped, id)
				continue
			}
			if err := txQueue.Add(ctx, domain.NewQueueEntry(domain.DeleteOp{Snapshot: *sess}, now)); err != nil {
				return err
			}
			queued = append(queued, id)
		}
		return nil
	})
	if err != nil {
		return nil, s.storageFailure("Failed to delete sessions", err)
	}

	if len(queued) > 0 && s.conn.Online() {
		if _, err := s.sync.Drain(ctx); err != nil {
			return nil, s.storageFailure("Failed to delete sessions", err)
		}
	}

	remaining, err := s.queuedDeletes(ctx)
	if err != nil {
		return nil, s.storageFailure("Failed to delete sessions", err)
	}
	for _, id := range queued {
		if _, ok := remaining[id]; ok {
			result.Pending = append(result.Pending, id)
		} else {
			result.Deleted = append(result.Deleted, id)
		}
	}
	fields["deleted"] = len(result.Deleted)
	fields["pending"] = len(result.Pending)

	if err := s.reloadLocked(ctx); err != nil {
		return nil, s.storageFailure("Could not load sessions", err)
	}
	s.selected = make(map[string]struct{})
	s.isEditing = false

	switch {
	case len(result.Pending) > 0:
		s.notifier.Notify(NoticeError, fmt.Sprintf("%d of %d deletions are waiting to sync", len(result.Pending), len(queued)))
	case len(result.Deleted) > 0:
		s.notifier.Notify(NoticeSuccess, fmt.Sprintf("Deleted %d sessions", len(result.Deleted)))
	}
	return result, nil
}

func (s *gymService) GetSessionDuration(checkIn time.Time) string {
	return domain.SessionDuration(checkIn, s.now())
}

func (s *gymService) ToggleEditing() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.isEditing = !s.isEditing
	s.selected = make(map[string]struct{})
}

func (s *gymService) ToggleSessionSelection(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.selected[id]; ok {
		delete(s.selected, id)
		return
	}
	s.selected[id] = struct{}{}
}

func (s *gymService) ClearSelection() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selected = make(map[string]struct{})
}

func (s *gymService) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := State{
		Current:   copySession(s.current),
		Sessions:  copySessions(s.all),
		IsEditing: s.isEditing,
		Selected:  make([]string, 0, len(s.selected)),
	}
	for id := range s.selected {
		st.Selected = append(st.Selected, id)
	}
	sort.Strings(st.Selected)
	return st
}

func (s *gymService) Wait() {
	s.background.Wait()
}

// syncInBackground drains the queue without blocking the caller. Errors are
// logged only.
func (s *gymService) syncInBackground(ctx context.Context) {
	if !s.conn.Online() {
		return
	}
	ctx = context.WithoutCancel(ctx)
	s.background.Add(1)
	go func() {
		defer s.background.Done()
		if _, err := s.sync.ProcessQueue(ctx); err != nil {
			s.logger.WarnContext(ctx, "background sync failed", "error", err)
			return
		}
		s.mu.Lock()
		defer s.mu.Unlock()
		if err := s.reloadLocked(ctx); err != nil {
			s.logger.WarnContext(ctx, "reloading sessions after sync", "error", err)
		}
	}()
}

func (s *gymService) reloadLocked(ctx context.Context) error {
	all, err := s.sessions.GetAll(ctx)
	if err != nil {
		return err
	}
	s.all = all
	s.current = nil
	for _, sess := range all {
		if sess.IsActive() {
			s.current = sess
			break
		}
	}
	return nil
}

func (s *gymService) replaceLocked(session *domain.GymSession) {
	for i, sess := range s.all {
		if sess.ID == session.ID {
			s.all[i] = session
			return
		}
	}
	s.all = append([]*domain.GymSession{session}, s.all...)
}

func (s *gymService) removeLocked(id string) {
	kept := s.all[:0]
	for _, sess := range s.all {
		if sess.ID != id {
			kept = append(kept, sess)
		}
	}
	s.all = kept
	delete(s.selected, id)
}

func (s *gymService) queuedDeletes(ctx context.Context) (map[string]struct{}, error) {
	entries, err := s.queue.GetAll(ctx)
	if err != nil {
		return nil, err
	}
	ids := make(map[string]struct{})
	for _, e := range entries {
		if _, ok := e.Op.(domain.DeleteOp); ok {
			ids[e.SessionID()] = struct{}{}
		}
	}
	return ids, nil
}

// storageFailure notifies the user and wraps err as ErrStorageUnavailable.
func (s *gymService) storageFailure(message string, err error) error {
	s.notifier.Notify(NoticeError, message)
	s.logger.Error(message, "error", err)
	return fmt.Errorf("%w: %w", ErrStorageUnavailable, err)
}

func (s *gymService) observe(ctx context.Context, name string, startedAt time.Time, fields map[string]any, err error) {
	s.observer.ObserveUseCase(ctx, UseCaseEvent{
		Name:      name,
		StartedAt: startedAt,
		Duration:  time.Since(startedAt),
		Success:   err == nil,
		Err:       err,
		Fields:    fields,
	})
}

func copySession(s *domain.GymSession) *domain.GymSession {
	if s == nil {
		return nil
	}
	c := *s
	return &c
}

func copySessions(in []*domain.GymSession) []*domain.GymSession {
	out := make([]*domain.GymSession, 0, len(in))
	for _, s := range in {
		out = append(out, copySession(s))
	}
	return out
}
