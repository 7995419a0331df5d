package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/yearjam/yearjam/internal/game"
)

const yearsPerRow = 10

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("42"))
	statusStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	faintStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("243"))
	errStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))

	yearStyle   = lipgloss.NewStyle().Padding(0, 1)
	cursorStyle = yearStyle.Bold(true).Reverse(true)
	usedStyle   = yearStyle.Foreground(lipgloss.Color("240")).Strikethrough(true)

	answerStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("42")).
			Padding(0, 1)
)

// View renders the whole screen.
func (m Model) View() string {
	snap := m.engine.Snapshot()

	var b strings.Builder
	b.WriteString(titleStyle.Render("YearJam — Guess the Year"))
	b.WriteString("  ")
	b.WriteString(faintStyle.Render(m.identity()))
	b.WriteString("\n\n")

	b.WriteString(statusStyle.Render(m.statusLine(snap)))
	b.WriteString("\n\n")

	b.WriteString(m.renderYearGrid(snap))
	b.WriteString("\n")

	if snap.State.Terminal() {
		b.WriteString(m.renderAnswer(snap))
		b.WriteString("\n")
	}

	b.WriteString(m.renderLeaderboard())

	if m.errMsg != "" {
		b.WriteString("\n")
		b.WriteString(errStyle.Render(m.errMsg))
	}

	b.WriteString("\n")
	b.WriteString(faintStyle.Render("space/p play·pause  arrows move  enter guess  r leaderboard  q quit"))
	b.WriteString("\n")
	return b.String()
}

func (m Model) identity() string {
	who := "anonymous"
	if m.opts.User != nil {
		who = m.opts.User.Username
	}
	return fmt.Sprintf("%s · score %d", who, m.sessionPts)
}

func (m Model) statusLine(snap game.Snapshot) string {
	if snap.Status != "" {
		return snap.Status
	}
	return "Press space to play a random jam."
}

// renderYearGrid draws the guessable years, marking used ones and the
// cursor. Guessing is only open while a round is active.
func (m Model) renderYearGrid(snap game.Snapshot) string {
	active := snap.State == game.StatePlaying || snap.State == game.StatePaused

	var rows []string
	var row []string
	for i := 0; i < m.yearCount(); i++ {
		year := m.opts.YearStart + i
		label := fmt.Sprintf("%d", year)

		style := yearStyle
		switch {
		case snap.UsedYears[year]:
			style = usedStyle
		case i == m.cursor && active:
			style = cursorStyle
		case !active:
			style = faintStyle.Padding(0, 1)
		}
		row = append(row, style.Render(label))

		if len(row) == yearsPerRow {
			rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Top, row...))
			row = nil
		}
	}
	if len(row) > 0 {
		rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Top, row...))
	}
	return strings.Join(rows, "\n")
}

// renderAnswer shows the revealed show after a terminal state, with the
// setlist once it arrives.
func (m Model) renderAnswer(snap game.Snapshot) string {
	if snap.Clip == nil {
		return ""
	}

	var b strings.Builder
	b.WriteString(game.CleanShowTitle(snap.Clip.Title, snap.Clip.Date, snap.Clip.Venue))
	b.WriteString("\n")

	if track := firstNonEmpty(snap.Clip.File.Title, snap.Clip.File.Name); track != "" {
		b.WriteString(faintStyle.Render(track))
		b.WriteString("\n")
	}
	if loc := joinNonEmpty(" · ", snap.Clip.Venue, snap.Clip.Location); loc != "" {
		b.WriteString(faintStyle.Render(loc))
		b.WriteString("\n")
	}

	if len(m.setlist) > 0 {
		b.WriteString("\nSetlist:\n")
		for i, t := range m.setlist {
			label := firstNonEmpty(t.Title, t.Name)
			line := fmt.Sprintf("%2d. %s", i+1, label)
			if t.Length != "" {
				line += faintStyle.Render(" (" + t.Length + ")")
			}
			b.WriteString(line)
			b.WriteString("\n")
		}
	}

	return answerStyle.Render(strings.TrimRight(b.String(), "\n"))
}

func (m Model) renderLeaderboard() string {
	if len(m.leaderboard) == 0 {
		return faintStyle.Render("No scores yet.")
	}

	var b strings.Builder
	b.WriteString("Leaderboard:\n")
	for i, e := range m.leaderboard {
		b.WriteString(fmt.Sprintf("%2d. %-16s %5d pts  %d games\n", i+1, e.Username, e.Points, e.Games))
	}
	return strings.TrimRight(b.String(), "\n")
}

func firstNonEmpty(a, b string) string {
	if a != "" {
		return a
	}
	return b
}

func joinNonEmpty(sep string, parts ...string) string {
	var kept []string
	for _, p := range parts {
		if p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, sep)
}
