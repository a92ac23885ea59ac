package formatter

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/alexanderramin/gymsync/internal/domain"
)

// Gruvbox-inspired color palette.
var (
	ColorGreen  = lipgloss.Color("#8ec07c")
	ColorYellow = lipgloss.Color("#fabd2f")
	ColorRed    = lipgloss.Color("#fb4934")
	ColorBlue   = lipgloss.Color("#83a598")
	ColorPurple = lipgloss.Color("#d3869b")
	ColorDim    = lipgloss.Color("#928374")
	ColorFg     = lipgloss.Color("#ebdbb2")
	ColorHeader = lipgloss.Color("#fe8019")
)

var (
	StyleGreen  = lipgloss.NewStyle().Foreground(ColorGreen)
	StyleYellow = lipgloss.NewStyle().Foreground(ColorYellow)
	StyleRed    = lipgloss.NewStyle().Foreground(ColorRed)
	StyleBlue   = lipgloss.NewStyle().Foreground(ColorBlue)
	StylePurple = lipgloss.NewStyle().Foreground(ColorPurple)
	StyleDim    = lipgloss.NewStyle().Foreground(ColorDim)
	StyleFg     = lipgloss.NewStyle().Foreground(ColorFg)
	StyleHeader = lipgloss.NewStyle().Foreground(ColorHeader).Bold(true)
	StyleBold   = lipgloss.NewStyle().Foreground(ColorFg).Bold(true)
)

// SyncPill renders a session's relationship to the remote table.
func SyncPill(status domain.SyncStatus) string {
	switch status {
	case domain.SyncSynced:
		return StyleGreen.Render("✔ synced")
	case domain.SyncPending:
		return StyleYellow.Render("○ pending")
	case domain.SyncFailed:
		return StyleRed.Render("✖ failed")
	default:
		return StyleDim.Render(string(status))
	}
}

// StatusPill renders the visit state.
func StatusPill(status domain.SessionStatus) string {
	switch status {
	case domain.SessionActive:
		return StyleGreen.Render("● In progress")
	case domain.SessionCompleted:
		return StyleDim.Render("✔ Done")
	default:
		return StyleDim.Render(string(status))
	}
}

// OnlineBadge shows the connectivity state.
func OnlineBadge(online bool) string {
	if online {
		return StyleGreen.Render("● online")
	}
	return StyleYellow.Render("○ offline")
}

// Header renders an uppercase section header with an underline.
func Header(text string) string {
	upper := strings.ToUpper(text)
	line := strings.Repeat("─", lipgloss.Width(upper))
	return fmt.Sprintf("%s\n%s", StyleHeader.Render(upper), StyleDim.Render(line))
}

func Dim(text string) string {
	return StyleDim.Render(text)
}

func Bold(text string) string {
	return StyleBold.Render(text)
}
