package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/alexanderramin/gymsync/internal/cli/formatter"
	"github.com/alexanderramin/gymsync/internal/domain"
)

func newCheckInCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:     "checkin",
		Aliases: []string{"in"},
		Short:   "Start a gym session",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := app.Gym.CheckIn(cmd.Context())
			if err != nil {
				return reported(err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Session %s started at %s\n",
				formatter.TruncID(s.ID), formatter.ClockTime(s.CheckInTime, app.now().Location()))
			return nil
		},
	}
}

func newCheckOutCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:     "checkout",
		Aliases: []string{"out"},
		Short:   "Finish the current gym session",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := app.Gym.CheckOut(cmd.Context())
			if err != nil {
				return reported(err)
			}
			w := cmd.OutOrStdout()
			if s == nil {
				fmt.Fprintln(w, formatter.Dim("No session in progress."))
				return nil
			}
			fmt.Fprintf(w, "Session %s finished: %s\n", formatter.TruncID(s.ID), formatter.Bold(s.Duration))
			return nil
		},
	}
}

func newAbandonCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "abandon",
		Short: "Discard the current gym session without recording it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := app.Gym.AbandonSession(cmd.Context())
			if err != nil {
				return reported(err)
			}
			w := cmd.OutOrStdout()
			if s == nil {
				fmt.Fprintln(w, formatter.Dim("No session in progress."))
				return nil
			}
			fmt.Fprintf(w, "Session %s discarded\n", formatter.TruncID(s.ID))
			return nil
		},
	}
}

func newStatusCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the current session and sync state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sessions := app.Gym.GetSessions(cmd.Context())
			st := app.Gym.State()
			now := app.now()
			w := cmd.OutOrStdout()

			fmt.Fprint(w, formatter.FormatCurrentSession(st.Current, now))

			pending := 0
			for _, s := range sessions {
				if s.SyncStatus != domain.SyncSynced {
					pending++
				}
			}
			online := app.Monitor != nil && app.Monitor.Online()
			fmt.Fprintf(w, "%s  %d sessions, %d not synced\n", formatter.OnlineBadge(online), len(sessions), pending)
			return nil
		},
	}
}

func newListCmd(app *App) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List gym sessions, newest first",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sessions := app.Gym.GetSessions(cmd.Context())
			if limit > 0 && len(sessions) > limit {
				sessions = sessions[:limit]
			}
			fmt.Fprint(cmd.OutOrStdout(), formatter.FormatSessionList(sessions, app.now()))
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "Show at most this many sessions")
	return cmd
}
