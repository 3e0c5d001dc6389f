// Package board renders the day view as one column per time band.
package board

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/riordanpawley/taskband/internal/ui/styles"
)

// Render renders the full band board
func Render(bands []Band, cursor Cursor, grabbed bool, s *styles.Styles, width, height int) string {
	if len(bands) == 0 {
		return ""
	}

	bandWidth := width / len(bands)

	var columns []string
	for i, band := range bands {
		isActive := i == cursor.Band
		cursorInstance := 0
		if isActive {
			cursorInstance = cursor.Instance
		}

		column := renderBand(band, cursorInstance, isActive, grabbed, bandWidth, height, s)
		sized := lipgloss.NewStyle().Width(bandWidth).Height(height).Render(column)
		columns = append(columns, sized)
	}

	return lipgloss.JoinHorizontal(lipgloss.Top, columns...)
}

// renderBand renders one band column with header and instance cards
func renderBand(band Band, cursorInstance int, isActive, grabbed bool, width, height int, s *styles.Styles) string {
	headerStyle := s.BandHeader
	if isActive {
		headerStyle = s.BandHeaderActive
	}

	headerText := "─ " + band.Title + " "
	remainingWidth := width - len(headerText) - 2
	if remainingWidth > 0 {
		headerText += strings.Repeat("─", remainingWidth)
	}
	header := headerStyle.Render(headerText)

	var cards []string
	cardWidth := width - 4
	for i, inst := range band.Instances {
		isCursor := isActive && i == cursorInstance
		cards = append(cards, renderCard(inst, isCursor, isCursor && grabbed, cardWidth, s))
	}

	content := ""
	if len(cards) > 0 {
		content = strings.Join(cards, "\n")
	}

	return lipgloss.JoinVertical(lipgloss.Left, header, content)
}
