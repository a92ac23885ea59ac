package formatter

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/alexanderramin/gymsync/internal/domain"
	"github.com/alexanderramin/gymsync/internal/syncer"
)

// RenderBox wraps content in a rounded-border box with an optional title.
func RenderBox(title string, content string) string {
	boxStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(ColorDim).
		PaddingLeft(2).
		PaddingRight(2).
		PaddingTop(1).
		PaddingBottom(1)

	if title != "" {
		return boxStyle.Render(StyleHeader.Render(strings.ToUpper(title)) + "\n\n" + content)
	}
	return boxStyle.Render(content)
}

// HumanDate returns "Today", "Yesterday", or a short date, in now's location.
func HumanDate(t, now time.Time) string {
	t = t.In(now.Location())
	y1, m1, d1 := now.Date()
	y2, m2, d2 := t.Date()
	if y1 == y2 && m1 == m2 && d1 == d2 {
		return "Today"
	}
	y3, m3, d3 := now.AddDate(0, 0, -1).Date()
	if y2 == y3 && m2 == m3 && d2 == d3 {
		return "Yesterday"
	}
	if y1 == y2 {
		return t.Format("Mon Jan 2")
	}
	return t.Format("Jan 2, 2006")
}

// ClockTime formats t as HH:MM in loc.
func ClockTime(t time.Time, loc *time.Location) string {
	return t.In(loc).Format("15:04")
}

// TruncID returns the first 8 characters of an ID, dimmed.
func TruncID(id string) string {
	if len(id) > 8 {
		id = id[:8]
	}
	return StyleDim.Render(id)
}

// SessionRows builds table rows for sessions. mark, when non-nil, supplies a
// leading marker column (selection or cursor).
func SessionRows(sessions []*domain.GymSession, now time.Time, mark func(*domain.GymSession) string) [][]string {
	rows := make([][]string, 0, len(sessions))
	for _, s := range sessions {
		out := Dim("—")
		if s.CheckOutTime != nil {
			out = ClockTime(*s.CheckOutTime, now.Location())
		}
		duration := s.Duration
		if s.IsActive() {
			duration = StyleGreen.Render(domain.SessionDuration(s.CheckInTime, now))
		}
		row := []string{
			TruncID(s.ID),
			HumanDate(s.CheckInTime, now),
			ClockTime(s.CheckInTime, now.Location()),
			out,
			duration,
			StatusPill(s.Status),
			SyncPill(s.SyncStatus),
		}
		if mark != nil {
			row = append([]string{mark(s)}, row...)
		}
		rows = append(rows, row)
	}
	return rows
}

var sessionHeaders = []string{"ID", "DATE", "IN", "OUT", "DURATION", "STATUS", "SYNC"}

// FormatSessionList renders sessions as a boxed table.
func FormatSessionList(sessions []*domain.GymSession, now time.Time) string {
	if len(sessions) == 0 {
		return Dim("No gym sessions yet.") + "\n"
	}
	table := RenderTable(sessionHeaders, SessionRows(sessions, now, nil), 4)
	return RenderBox(fmt.Sprintf("Gym sessions (%d)", len(sessions)), strings.TrimRight(table, "\n")) + "\n"
}

// FormatCurrentSession renders the active visit, or a hint when there is none.
func FormatCurrentSession(s *domain.GymSession, now time.Time) string {
	if s == nil {
		return Dim("No session in progress. Run `gymsync checkin` to start one.") + "\n"
	}
	body := fmt.Sprintf("%s  %s\n%s  %s\n%s  %s",
		Dim("Checked in"), Bold(HumanDate(s.CheckInTime, now)+" "+ClockTime(s.CheckInTime, now.Location())),
		Dim("Elapsed   "), StyleGreen.Render(domain.SessionDuration(s.CheckInTime, now)),
		Dim("Sync      "), SyncPill(s.SyncStatus),
	)
	return RenderBox("Current session", body) + "\n"
}

// FormatQueueResult summarises a sync queue pass on one line.
func FormatQueueResult(res syncer.QueueResult) string {
	if res.Processed == 0 {
		return Dim("Nothing to sync.")
	}
	parts := []string{fmt.Sprintf("%d processed", res.Processed)}
	if res.Synced > 0 {
		parts = append(parts, StyleGreen.Render(fmt.Sprintf("%d synced", res.Synced)))
	}
	if res.SkippedActive > 0 {
		parts = append(parts, Dim(fmt.Sprintf("%d in progress", res.SkippedActive)))
	}
	if res.Failed > 0 {
		parts = append(parts, StyleRed.Render(fmt.Sprintf("%d failed", res.Failed)))
	}
	return strings.Join(parts, ", ")
}

// FormatFullSyncResult summarises a full reconciliation.
func FormatFullSyncResult(res syncer.FullSyncResult) string {
	line := fmt.Sprintf("%d months fetched, %d sessions", res.Months, res.Fetched)
	if len(res.FailedMonths) > 0 {
		line += ", " + StyleYellow.Render("unavailable: "+strings.Join(res.FailedMonths, " "))
	}
	return line
}
