package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/mattn/go-isatty"

	"github.com/alexanderramin/gymsync/internal/cli"
	"github.com/alexanderramin/gymsync/internal/config"
	"github.com/alexanderramin/gymsync/internal/connectivity"
	"github.com/alexanderramin/gymsync/internal/db"
	"github.com/alexanderramin/gymsync/internal/remote"
	"github.com/alexanderramin/gymsync/internal/repository"
	"github.com/alexanderramin/gymsync/internal/service"
	"github.com/alexanderramin/gymsync/internal/syncer"
)

// quiet is above every level the loggers emit.
const quiet = slog.LevelError + 4

func main() {
	if err := run(); err != nil {
		if !cli.IsReported(err) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}

func run() error {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	// Background sync problems are logged, not shown; stderr stays quiet
	// unless verbose. Use-case events have their own switch.
	level := new(slog.LevelVar)
	level.Set(slog.LevelError)
	useCaseLevel := new(slog.LevelVar)
	useCaseLevel.Set(quiet)
	verbose := func() {
		level.Set(slog.LevelDebug)
		useCaseLevel.Set(slog.LevelInfo)
	}
	if cfg.Verbose {
		verbose()
	} else if cfg.LogUseCases {
		useCaseLevel.Set(slog.LevelInfo)
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	useCaseLogger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: useCaseLevel}))

	// Open database
	database, err := db.OpenDB(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer database.Close()

	table, closeTable, err := openRemote(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeTable()

	// Wire repositories and the unit of work for transactional operations
	sessionRepo := repository.NewSQLiteSessionRepo(database)
	queueRepo := repository.NewSQLiteSyncQueueRepo(database)
	uow := db.NewSQLiteUnitOfWork(database)

	engine := syncer.NewEngine(uow, queueRepo, table,
		syncer.WithLogger(logger),
		syncer.WithWindowMonths(cfg.SyncWindowMonths),
	)
	monitor := connectivity.NewMonitor(table, cfg.ProbeInterval, logger.With("component", "connectivity"))
	if pg, ok := table.(*remote.PostgresTable); ok {
		monitor.OnReconnect(func(ctx context.Context) {
			if err := pg.EnsureSchema(ctx); err != nil {
				logger.WarnContext(ctx, "ensuring remote schema", "error", err)
			}
		})
	}

	notices := cli.NewNotices(os.Stderr)
	gym := service.NewGymService(service.Deps{
		UoW:      uow,
		Sessions: sessionRepo,
		Queue:    queueRepo,
		Sync:     engine,
		Conn:     monitor,
		Notifier: notices,
		Logger:   logger,
	}, service.NewSlogUseCaseObserver(useCaseLogger))

	app := &cli.App{
		Gym:          gym,
		Sync:         engine,
		Monitor:      monitor,
		Notices:      notices,
		ProbeOnStart: cfg.RemoteConfigured(),
		MetricsAddr:  cfg.MetricsAddr,
		OnVerbose:    verbose,
		Confirm:      cli.ConfirmPrompt,
	}

	// Detect interactive terminal for delete confirmation.
	app.IsInteractive = func() bool {
		return isatty.IsTerminal(os.Stdin.Fd()) || isatty.IsCygwinTerminal(os.Stdin.Fd())
	}

	// Execute root command
	return cli.NewRootCmd(app).ExecuteContext(ctx)
}

// openRemote selects the remote table from configuration. Without a remote
// every operation stays local and queued.
func openRemote(ctx context.Context, cfg config.Config) (remote.Table, func(), error) {
	switch {
	case !cfg.RemoteConfigured():
		return remote.Unconfigured{}, func() {}, nil
	case cfg.RemoteURL == config.RemoteMemory:
		return remote.NewMemoryTable(), func() {}, nil
	}

	pg, err := remote.NewPostgresTable(ctx, cfg.RemoteURL, cfg.RemoteTable)
	if errors.Is(err, remote.ErrConfigMissing) {
		return remote.Unconfigured{}, func() {}, nil
	}
	if err != nil {
		return nil, nil, err
	}
	return pg, pg.Close, nil
}
