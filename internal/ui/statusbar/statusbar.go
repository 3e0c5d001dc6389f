// Package statusbar renders the bottom status line of the TUI.
package statusbar

import (
	"fmt"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/riordanpawley/taskband/internal/domain"
	"github.com/riordanpawley/taskband/internal/types"
	"github.com/riordanpawley/taskband/internal/ui/styles"
)

// StatusBar represents the status bar at the bottom of the TUI
type StatusBar struct {
	mode    types.Mode
	date    string
	running *domain.TaskInstance
	now     time.Time
	width   int
	styles  *styles.Styles
}

// New creates a status bar for the given view state
func New(mode types.Mode, date string, running *domain.TaskInstance, now time.Time, width int, styles *styles.Styles) StatusBar {
	return StatusBar{
		mode:    mode,
		date:    date,
		running: running,
		now:     now,
		width:   width,
		styles:  styles,
	}
}

// Render renders the status bar as a string
func (sb StatusBar) Render() string {
	modeBadge := sb.styles.StatusMode.Render(" " + sb.mode.String() + " ")
	dateInfo := sb.styles.StatusInfo.Render(sb.date)

	segments := []string{modeBadge, dateInfo}

	if sb.running != nil && sb.running.StartTime != nil {
		elapsed := sb.now.Sub(*sb.running.StartTime).Round(time.Minute)
		segments = append(segments, sb.styles.StateRunning.Render(
			fmt.Sprintf("▶ %s (%s)", sb.running.Task.Title, formatElapsed(elapsed))))
	}

	if hints := Hints(sb.mode); hints != "" {
		segments = append(segments, sb.styles.StatusHint.Render(hints))
	}

	separator := sb.styles.StatusHint.Render(" │ ")
	content := segments[0]
	for _, seg := range segments[1:] {
		content = lipgloss.JoinHorizontal(lipgloss.Left, content, separator, seg)
	}

	return sb.styles.StatusBar.Width(sb.width).Render(content)
}

func formatElapsed(d time.Duration) string {
	if d < time.Minute {
		return "0m"
	}
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	if h > 0 {
		return fmt.Sprintf("%dh%02dm", h, m)
	}
	return fmt.Sprintf("%dm", m)
}
