package components

import (
	"fmt"
	"strings"

	"charm.land/lipgloss/v2"

	"github.com/ajujo/teaching-system/internal/ui/theme"
)

// PointProgress shows how far into the unit plan the learner is.
type PointProgress struct {
	Current int
	Total   int
	Width   int
	// Plain renders "[##---]" instead of colored blocks.
	Plain bool
}

// View renders the bar followed by "N/M".
func (p PointProgress) View() string {
	if p.Total <= 0 {
		return ""
	}
	width := p.Width
	if width < 4 {
		width = 4
	}
	current := min(max(p.Current, 0), p.Total)
	filled := width * current / p.Total
	empty := width - filled
	label := fmt.Sprintf(" %d/%d", current, p.Total)

	if p.Plain {
		return "[" + strings.Repeat("#", filled) + strings.Repeat("-", empty) + "]" + label
	}
	bar := theme.ProgressFilled.Render(strings.Repeat(" ", filled)) +
		theme.ProgressEmpty.Render(strings.Repeat(" ", empty))
	return bar + lipgloss.NewStyle().Foreground(theme.TextDim).Render(label)
}
