package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/alexanderramin/gymsync/internal/cli/formatter"
	"github.com/alexanderramin/gymsync/internal/domain"
	"github.com/alexanderramin/gymsync/internal/service"
)

func newUICmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "ui",
		Short: "Open the interactive check-in screen",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			if app.Notices != nil {
				app.Notices.Mute(true)
				defer app.Notices.Mute(false)
			}
			if app.Monitor != nil {
				app.Monitor.OnReconnect(func(ctx context.Context) { app.Gym.GetSessions(ctx) })
				go app.Monitor.Run(ctx)
			}

			p := tea.NewProgram(newGymModel(ctx, app), tea.WithAltScreen(), tea.WithContext(ctx))
			_, err := p.Run()
			cancel()
			if app.Monitor != nil {
				app.Monitor.Wait()
			}
			return err
		},
	}
}

type actionDoneMsg struct{ err error }

type tickMsg time.Time

type gymModel struct {
	ctx   context.Context
	app   *App
	keys  gymKeyMap
	tick  func() tea.Cmd
	state service.State

	cursor int
	width  int
	busy   bool
	flash  *Notice
	err    error
}

func newGymModel(ctx context.Context, app *App) gymModel {
	return gymModel{
		ctx:  ctx,
		app:  app,
		keys: defaultGymKeyMap(),
		tick: func() tea.Cmd {
			return tea.Tick(time.Second, func(t time.Time) tea.Msg { return tickMsg(t) })
		},
	}
}

func (m gymModel) Init() tea.Cmd {
	return tea.Batch(m.run(func(ctx context.Context) error {
		m.app.Gym.GetSessions(ctx)
		return nil
	}), m.tick())
}

// run executes a service call off the update loop and reports back with an
// actionDoneMsg.
func (m gymModel) run(fn func(ctx context.Context) error) tea.Cmd {
	return func() tea.Msg {
		return actionDoneMsg{err: fn(m.ctx)}
	}
}

func (m gymModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil

	case tickMsg:
		m = m.sync()
		return m, m.tick()

	case actionDoneMsg:
		m.busy = false
		m.err = msg.err
		m = m.sync()
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

// sync pulls the service view and the latest notice into the model.
func (m gymModel) sync() gymModel {
	m.state = m.app.Gym.State()
	if m.app.Notices != nil {
		if n, ok := m.app.Notices.Take(); ok {
			m.flash = &n
		}
	}
	if m.cursor >= len(m.state.Sessions) {
		m.cursor = max(len(m.state.Sessions)-1, 0)
	}
	return m
}

func (m gymModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.Quit) {
		return m, tea.Quit
	}
	switch {
	case key.Matches(msg, m.keys.Up):
		if m.cursor > 0 {
			m.cursor--
		}
		return m, nil
	case key.Matches(msg, m.keys.Down):
		if m.cursor < len(m.state.Sessions)-1 {
			m.cursor++
		}
		return m, nil
	}
	if m.busy {
		return m, nil
	}

	gym := m.app.Gym
	switch {
	case key.Matches(msg, m.keys.Edit):
		gym.ToggleEditing()
		m = m.sync()
		return m, nil

	case key.Matches(msg, m.keys.Select):
		if !m.state.IsEditing {
			return m, nil
		}
		if s := m.selected(); s != nil && s.IsCompleted() {
			gym.ToggleSessionSelection(s.ID)
			m = m.sync()
		}
		return m, nil

	case key.Matches(msg, m.keys.Delete):
		if !m.state.IsEditing || len(m.state.Selected) == 0 {
			return m, nil
		}
		return m.start(func(ctx context.Context) error {
			_, err := gym.DeleteSelectedSessions(ctx)
			return err
		})

	case key.Matches(msg, m.keys.CheckIn):
		if m.state.IsEditing || m.state.Current != nil {
			return m, nil
		}
		return m.start(func(ctx context.Context) error {
			_, err := gym.CheckIn(ctx)
			return err
		})

	case key.Matches(msg, m.keys.CheckOut):
		if m.state.IsEditing || m.state.Current == nil {
			return m, nil
		}
		return m.start(func(ctx context.Context) error {
			_, err := gym.CheckOut(ctx)
			return err
		})

	case key.Matches(msg, m.keys.Abandon):
		if m.state.IsEditing || m.state.Current == nil {
			return m, nil
		}
		return m.start(func(ctx context.Context) error {
			_, err := gym.AbandonSession(ctx)
			return err
		})

	case key.Matches(msg, m.keys.Refresh):
		if m.state.IsEditing {
			return m, nil
		}
		return m.start(gym.Refresh)
	}
	return m, nil
}

func (m gymModel) start(fn func(ctx context.Context) error) (tea.Model, tea.Cmd) {
	m.busy = true
	m.flash = nil
	return m, m.run(fn)
}

func (m gymModel) selected() *domain.GymSession {
	if m.cursor < 0 || m.cursor >= len(m.state.Sessions) {
		return nil
	}
	return m.state.Sessions[m.cursor]
}

func (m gymModel) View() string {
	now := m.app.now()
	var b strings.Builder

	online := m.app.Monitor != nil && m.app.Monitor.Online()
	title := formatter.StyleHeader.Render("GYMSYNC") + "  " + formatter.OnlineBadge(online)
	if m.state.IsEditing {
		title += "  " + formatter.StyleYellow.Render(fmt.Sprintf("editing, %d selected", len(m.state.Selected)))
	}
	b.WriteString(title + "\n\n")

	b.WriteString(formatter.FormatCurrentSession(m.state.Current, now))
	b.WriteString("\n")

	if len(m.state.Sessions) == 0 {
		b.WriteString(formatter.Dim("No gym sessions yet.") + "\n")
	} else {
		rows := formatter.SessionRows(m.state.Sessions, now, m.marker)
		headers := []string{" ", "ID", "DATE", "IN", "OUT", "DURATION", "STATUS", "SYNC"}
		b.WriteString(formatter.RenderTable(headers, rows, 5))
	}

	b.WriteString("\n")
	switch {
	case m.busy:
		b.WriteString(formatter.Dim("Working...") + "\n")
	case m.flash != nil:
		b.WriteString(renderNotice(*m.flash) + "\n")
	case m.err != nil:
		b.WriteString(formatter.StyleRed.Render("✖ "+m.err.Error()) + "\n")
	}

	hints := m.keys.hints(m.state.IsEditing, m.state.Current != nil)
	parts := make([]string, 0, len(hints))
	for _, h := range hints {
		parts = append(parts, formatter.Bold(h.Help().Key)+" "+formatter.Dim(h.Help().Desc))
	}
	b.WriteString(strings.Join(parts, "  ") + "\n")
	return b.String()
}

func (m gymModel) marker(s *domain.GymSession) string {
	cursor := " "
	if m.selected() != nil && m.selected().ID == s.ID {
		cursor = formatter.StyleHeader.Render("›")
	}
	if !m.state.IsEditing {
		return cursor
	}
	if m.state.IsSelected(s.ID) {
		return cursor + formatter.StyleRed.Render("[x]")
	}
	if s.IsCompleted() {
		return cursor + "[ ]"
	}
	return cursor + "   "
}
