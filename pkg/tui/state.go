package tui

// field identifies which input has keyboard focus.
type field int

const (
	fieldPrompt field = iota
	fieldFile
)

// setFocus moves keyboard focus to f.
func (m *Model) setFocus(f field) {
	m.focus = f
	if f == fieldPrompt {
		m.path.Blur()
		m.prompt.Focus()
		return
	}
	m.prompt.Blur()
	m.path.Focus()
}
