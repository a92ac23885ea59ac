package cli

import (
	"context"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/alexanderramin/gymsync/internal/service"
)

// Monitor is the connectivity signal the commands drive.
type Monitor interface {
	Online() bool
	Probe(ctx context.Context) bool
	OnReconnect(fn func(ctx context.Context))
	Run(ctx context.Context)
	Wait()
}

// App holds references to the services used by CLI commands.
type App struct {
	Gym     service.GymService
	Sync    service.Syncer
	Monitor Monitor
	Notices *Notices

	// ProbeOnStart pings the remote before each command so the first
	// operation knows whether it is online.
	ProbeOnStart bool
	MetricsAddr  string
	// OnVerbose is called when --verbose is set.
	OnVerbose func()

	Now           func() time.Time
	IsInteractive func() bool
	Confirm       func(title string) (bool, error)
}

func (a *App) now() time.Time {
	if a.Now == nil {
		return time.Now()
	}
	return a.Now()
}

func (a *App) interactive() bool {
	return a.IsInteractive != nil && a.IsInteractive()
}

// NewRootCmd creates the top-level "gymsync" command and registers all
// subcommands against the provided App.
func NewRootCmd(app *App) *cobra.Command {
	var verbose bool

	root := &cobra.Command{
		Use:           "gymsync",
		Short:         "Offline-first gym check-in tracker",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if app.Notices != nil {
				app.Notices.SetOutput(cmd.ErrOrStderr())
			}
			if verbose && app.OnVerbose != nil {
				app.OnVerbose()
			}
			if app.ProbeOnStart && app.Monitor != nil {
				app.Monitor.Probe(cmd.Context())
			}
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			app.Gym.Wait()
		},
	}
	root.SetGlobalNormalizationFunc(underscoreToDash)
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log sync and use-case activity to stderr")

	root.AddCommand(
		newCheckInCmd(app),
		newCheckOutCmd(app),
		newAbandonCmd(app),
		newStatusCmd(app),
		newListCmd(app),
		newDeleteCmd(app),
		newSyncCmd(app),
		newWatchCmd(app),
		newUICmd(app),
	)

	return root
}

// underscoreToDash accepts --metrics_addr as --metrics-addr.
func underscoreToDash(_ *pflag.FlagSet, name string) pflag.NormalizedName {
	return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
}
