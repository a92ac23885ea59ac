package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/alexanderramin/gymsync/internal/cli/formatter"
)

// ErrOffline is returned by sync when the remote table cannot be reached.
var ErrOffline = errors.New("remote table unreachable")

func newSyncCmd(app *App) *cobra.Command {
	var full bool

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Push queued changes to the remote table",
		Long:  "Push queued changes to the remote table. With --full, also replace local history with the last months of remote data.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if app.Monitor != nil && !app.Monitor.Probe(ctx) {
				return ErrOffline
			}
			w := cmd.OutOrStdout()

			if full {
				res, err := app.Sync.FullSync(ctx)
				if err != nil {
					return fmt.Errorf("full sync: %w", err)
				}
				fmt.Fprintln(w, formatter.FormatQueueResult(res.Queue))
				fmt.Fprintln(w, formatter.FormatFullSyncResult(res))
				return nil
			}

			res, err := app.Sync.Drain(ctx)
			if err != nil {
				return fmt.Errorf("sync: %w", err)
			}
			fmt.Fprintln(w, formatter.FormatQueueResult(res))
			return nil
		},
	}

	cmd.Flags().BoolVar(&full, "full", false, "Reconcile local history with the remote table")
	return cmd
}

func newWatchCmd(app *App) *cobra.Command {
	var metricsAddr string

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Stay running, syncing whenever the remote comes back online",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runWatch(ctx, app, metricsAddr, cmd)
		},
	}

	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address (empty disables)")
	cmd.PreRun = func(cmd *cobra.Command, args []string) {
		if !cmd.Flags().Changed("metrics-addr") {
			metricsAddr = app.MetricsAddr
		}
	}
	return cmd
}

func runWatch(ctx context.Context, app *App, metricsAddr string, cmd *cobra.Command) error {
	w := cmd.OutOrStdout()
	app.Monitor.OnReconnect(func(ctx context.Context) {
		fmt.Fprintf(w, "%s  syncing\n", formatter.OnlineBadge(true))
		app.Gym.GetSessions(ctx)
	})

	errCh := make(chan error, 1)
	var srv *http.Server
	if metricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		srv = &http.Server{Addr: metricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- fmt.Errorf("metrics server: %w", err)
			}
		}()
		fmt.Fprintf(w, "Serving metrics on %s/metrics\n", metricsAddr)
	}

	initial := app.Gym.GetSessions(ctx)
	fmt.Fprintf(w, "%s  %d sessions loaded, watching for connectivity changes\n",
		formatter.OnlineBadge(app.Monitor.Online()), len(initial))

	go app.Monitor.Run(ctx)

	var runErr error
	select {
	case <-ctx.Done():
	case runErr = <-errCh:
	}

	if srv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}
	if runErr == nil {
		app.Monitor.Wait()
	}
	return runErr
}
