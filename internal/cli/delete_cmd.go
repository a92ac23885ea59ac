package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/alexanderramin/gymsync/internal/cli/formatter"
	"github.com/alexanderramin/gymsync/internal/domain"
)

// ErrNotConfirmed is returned when a deletion prompt is declined or cannot
// be shown.
var ErrNotConfirmed = errors.New("deletion not confirmed")

func newDeleteCmd(app *App) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:     "delete ID...",
		Aliases: []string{"rm"},
		Short:   "Delete completed sessions locally and remotely",
		Long: "Delete completed sessions by ID or unique ID prefix. Deletions made " +
			"while offline stay queued and finish on the next sync.",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			sessions := app.Gym.GetSessions(ctx)
			ids, err := resolveSessionIDs(sessions, args)
			if err != nil {
				return err
			}

			if !yes {
				if !app.interactive() || app.Confirm == nil {
					return fmt.Errorf("%w: pass --yes to delete without a prompt", ErrNotConfirmed)
				}
				ok, err := app.Confirm(fmt.Sprintf("Delete %d session(s)?", len(ids)))
				if err != nil {
					return err
				}
				if !ok {
					return ErrNotConfirmed
				}
			}

			res, err := app.Gym.DeleteSessions(ctx, ids)
			if err != nil {
				return reported(err)
			}
			w := cmd.OutOrStdout()
			for _, id := range res.Deleted {
				fmt.Fprintf(w, "%s deleted\n", formatter.TruncID(id))
			}
			for _, id := range res.Pending {
				fmt.Fprintf(w, "%s %s\n", formatter.TruncID(id), formatter.StyleYellow.Render("waiting to sync"))
			}
			for _, id := range res.Skipped {
				fmt.Fprintf(w, "%s %s\n", formatter.TruncID(id), formatter.Dim("skipped (in progress)"))
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Skip the confirmation prompt")
	return cmd
}

// resolveSessionIDs maps full IDs or unique prefixes to session IDs.
func resolveSessionIDs(sessions []*domain.GymSession, args []string) ([]string, error) {
	ids := make([]string, 0, len(args))
	for _, arg := range args {
		var matches []string
		for _, s := range sessions {
			if s.ID == arg {
				matches = []string{s.ID}
				break
			}
			if strings.HasPrefix(s.ID, arg) {
				matches = append(matches, s.ID)
			}
		}
		switch len(matches) {
		case 0:
			return nil, fmt.Errorf("no session matches %q", arg)
		case 1:
			ids = append(ids, matches[0])
		default:
			return nil, fmt.Errorf("%q matches %d sessions, use a longer prefix", arg, len(matches))
		}
	}
	return ids, nil
}

// ConfirmPrompt asks a yes/no question with a huh form on the terminal.
func ConfirmPrompt(title string) (bool, error) {
	var ok bool
	err := huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title(title).
				Affirmative("Delete").
				Negative("Cancel").
				Value(&ok),
		),
	).WithTheme(gymHuhTheme()).WithShowHelp(false).Run()
	if errors.Is(err, huh.ErrUserAborted) {
		return false, nil
	}
	return ok, err
}

// gymHuhTheme returns a huh theme matching the gruvbox palette.
func gymHuhTheme() *huh.Theme {
	t := huh.ThemeBase()

	t.Focused.Title = lipgloss.NewStyle().Foreground(formatter.ColorHeader).Bold(true)
	t.Focused.FocusedButton = lipgloss.NewStyle().Foreground(formatter.ColorFg).Background(formatter.ColorRed).Padding(0, 1)
	t.Focused.BlurredButton = lipgloss.NewStyle().Foreground(formatter.ColorDim).Padding(0, 1)
	t.Focused.Description = lipgloss.NewStyle().Foreground(formatter.ColorDim)

	t.Blurred.Title = lipgloss.NewStyle().Foreground(formatter.ColorDim)

	return t
}
