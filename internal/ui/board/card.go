package board

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/riordanpawley/taskband/internal/domain"
	"github.com/riordanpawley/taskband/internal/ui/styles"
)

// State glyphs shown ahead of the title
const (
	glyphDone    = "✓"
	glyphRunning = "▶"
	glyphIdle    = "·"
)

// renderCard renders one instance card
func renderCard(inst *domain.TaskInstance, isCursor, isGrabbed bool, width int, s *styles.Styles) string {
	cardStyle := s.Card
	if isGrabbed {
		cardStyle = s.CardGrabbed
	} else if isCursor {
		cardStyle = s.CardActive
	}
	cardStyle = cardStyle.Width(width)

	glyph := s.InstanceState(inst.State).Render(stateGlyph(inst.State))

	maxTitleLen := width - 4
	title := inst.Task.Title
	if maxTitleLen > 1 && len(title) > maxTitleLen {
		title = title[:maxTitleLen-1] + "…"
	}
	titleLine := lipgloss.JoinHorizontal(lipgloss.Left, glyph, " ", s.TaskTitle.Render(title))

	detail := detailLine(inst, s)

	content := titleLine
	if detail != "" {
		content = lipgloss.JoinVertical(lipgloss.Left, titleLine, detail)
	}
	return cardStyle.Render(content)
}

func stateGlyph(state domain.InstanceState) string {
	switch state {
	case domain.StateDone:
		return glyphDone
	case domain.StateRunning:
		return glyphRunning
	default:
		return glyphIdle
	}
}

// detailLine shows execution times or the schedule, plus a marker when
// the instance was relocated off its natural band.
func detailLine(inst *domain.TaskInstance, s *styles.Styles) string {
	var parts []string

	switch {
	case inst.StartTime != nil && inst.StopTime != nil:
		parts = append(parts, s.TaskTime.Render(
			inst.StartTime.Format("15:04")+"–"+inst.StopTime.Format("15:04")))
	case inst.StartTime != nil:
		parts = append(parts, s.TaskTime.Render(inst.StartTime.Format("15:04")+"–"))
	case inst.Task.ScheduledTime != "":
		parts = append(parts, s.TaskTime.Render(inst.Task.ScheduledTime))
	}

	if inst.OriginalSlotKey != "" {
		parts = append(parts, s.MovedMarker.Render("⇄ "+string(inst.OriginalSlotKey)))
	}
	if inst.Task.Project != "" {
		parts = append(parts, s.TaskProject.Render(inst.Task.Project))
	}

	if len(parts) == 0 {
		return ""
	}
	line := parts[0]
	for _, p := range parts[1:] {
		line = lipgloss.JoinHorizontal(lipgloss.Left, line, " ", p)
	}
	return line
}
