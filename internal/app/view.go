package app

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/riordanpawley/taskband/internal/types"
	"github.com/riordanpawley/taskband/internal/ui/board"
	"github.com/riordanpawley/taskband/internal/ui/statusbar"
)

// View renders the current state as a string
func (m Model) View() string {
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}

	boardHeight := m.height - 1
	boardView := board.Render(m.bands, m.cursor, m.grabbed, m.styles, m.width, boardHeight)
	if boardView == "" {
		boardView = lipgloss.Place(m.width, boardHeight, lipgloss.Center, lipgloss.Center, "No tasks for "+m.date)
	}

	sb := statusbar.New(m.mode, m.date, m.runningInstance(), m.clock(), m.width, m.styles)
	view := lipgloss.JoinVertical(lipgloss.Left, boardView, sb.Render())

	if m.mode == types.ModeNewTask || m.mode == types.ModeRename {
		view = lipgloss.JoinVertical(lipgloss.Left, view, m.renderInput())
	}

	if toastView := m.toastView.Render(m.toasts, m.width); toastView != "" {
		view = lipgloss.JoinVertical(lipgloss.Left, view, toastView)
	}

	return view
}

// renderInput renders the text entry overlay for new-task and rename
func (m Model) renderInput() string {
	title := "New task"
	if m.mode == types.ModeRename {
		title = "Rename task"
	}

	content := lipgloss.JoinVertical(
		lipgloss.Left,
		m.styles.OverlayTitle.Render(title),
		m.input.View(),
	)
	return m.styles.Overlay.Render(content)
}
