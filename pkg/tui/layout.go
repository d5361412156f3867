package tui

import "github.com/charmbracelet/lipgloss"

// Layout constants for consistent spacing
const (
	MinContentWidth = 30
	MaxContentWidth = 100
	InputChrome     = 4 // border + padding on both sides
	ProgressChrome  = 8 // spinner, gap and percentage
)

// contentWidth returns the usable width for the current terminal size.
func (m Model) contentWidth() int {
	w := m.width - 4
	if w < MinContentWidth {
		w = MinContentWidth
	}
	if w > MaxContentWidth {
		w = MaxContentWidth
	}
	return w
}

// recalculateLayout resizes inputs and the progress bar to the window.
func (m *Model) recalculateLayout() {
	w := m.contentWidth()
	m.prompt.Width = w - InputChrome - lipgloss.Width(m.prompt.Prompt)
	m.path.Width = w - InputChrome - lipgloss.Width(m.path.Prompt)
	m.bar.Width = w - ProgressChrome
	m.help.Width = w
}
