package syncer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/alexanderramin/gymsync/internal/db"
	"github.com/alexanderramin/gymsync/internal/domain"
	"github.com/alexanderramin/gymsync/internal/remote"
	"github.com/alexanderramin/gymsync/internal/repository"
)

func (e *Engine) fullSync(ctx context.Context) (res FullSyncResult, err error) {
	start := time.Now()
	defer func() {
		fullSyncDuration.Observe(time.Since(start).Seconds())
		if err != nil {
			fullSyncsTotal.WithLabelValues("error").Inc()
			return
		}
		fullSyncsTotal.WithLabelValues("ok").Inc()
		lastFullSync.SetToCurrentTime()
	}()

	// Local mutations reach the remote before it is read back.
	res.Queue, err = e.drain(ctx)
	if err != nil {
		return res, fmt.Errorf("draining sync queue: %w", err)
	}

	e.drainMu.Lock()
	defer e.drainMu.Unlock()

	fetched, err := e.fetchWindow(ctx, &res)
	if err != nil {
		return res, err
	}
	res.Fetched = len(fetched)

	now := e.now()
	err = e.uow.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
		sessions := repository.NewSQLiteSessionRepo(tx)

		var activeID string
		active, err := sessions.GetActive(ctx)
		switch {
		case err == nil:
			activeID = active.ID
		case !errors.Is(err, repository.ErrNotFound):
			return fmt.Errorf("reading active session: %w", err)
		}

		removed, err := sessions.DeleteCompleted(ctx)
		if err != nil {
			return fmt.Errorf("clearing completed sessions: %w", err)
		}
		res.Removed = removed

		for _, item := range fetched {
			if item.ID == activeID {
				res.SkippedActive++
				continue
			}
			item.Status = domain.SessionCompleted
			synced := item.MarkSynced(now)
			if err := sessions.Put(ctx, &synced); err != nil {
				return fmt.Errorf("storing session %s: %w", item.ID, err)
			}
			res.Inserted++
		}
		return nil
	})
	if err != nil {
		return res, fmt.Errorf("reconciling local sessions: %w", err)
	}

	e.logger.InfoContext(ctx, "full sync complete",
		"months", res.Months,
		"failed_months", len(res.FailedMonths),
		"fetched", res.Fetched,
		"removed", res.Removed,
		"inserted", res.Inserted,
	)
	return res, nil
}

// fetchWindow reads every month in the window. A month that fails is logged
// and skipped; missing configuration or a window with no readable month
// aborts before any local change.
func (e *Engine) fetchWindow(ctx context.Context, res *FullSyncResult) ([]domain.GymSession, error) {
	months := domain.TrailingMonths(e.now(), e.window)

	var fetched []domain.GymSession
	for _, month := range months {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		items, err := e.remote.GetSessionsForMonth(ctx, month)
		if err != nil {
			if remote.IsFatal(err) {
				return nil, fmt.Errorf("fetching %s: %w", month, err)
			}
			monthFetchFailures.Inc()
			res.FailedMonths = append(res.FailedMonths, month)
			e.logger.WarnContext(ctx, "skipping remote partition", "month", month, "error", err)
			continue
		}
		res.Months++
		fetched = append(fetched, items...)
	}

	if res.Months == 0 {
		return nil, fmt.Errorf("%w: %d months tried", ErrNoPartitions, len(months))
	}
	return fetched, nil
}
