package tui

import (
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"InteriorEditor/pkg/editor"
)

// Init starts cursor blinking and the spinner.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		textinput.Blink,
		m.spinner.Tick,
	)
}

type keyMap struct {
	submit     key.Binding
	nextField  key.Binding
	toggleMode key.Binding
	clearFile  key.Binding
	save       key.Binding
	open       key.Binding
	cancel     key.Binding
	help       key.Binding
	quit       key.Binding
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.submit, k.nextField, k.toggleMode, k.help, k.quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.submit, k.nextField, k.toggleMode, k.clearFile},
		{k.save, k.open, k.cancel},
		{k.help, k.quit},
	}
}

func newKeyMap() keyMap {
	return keyMap{
		submit:     key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "generate / load file")),
		nextField:  key.NewBinding(key.WithKeys("tab", "shift+tab"), key.WithHelp("tab", "switch field")),
		toggleMode: key.NewBinding(key.WithKeys("ctrl+t"), key.WithHelp("ctrl+t", "create/edit")),
		clearFile:  key.NewBinding(key.WithKeys("ctrl+x"), key.WithHelp("ctrl+x", "clear photo")),
		save:       key.NewBinding(key.WithKeys("ctrl+s"), key.WithHelp("ctrl+s", "save image")),
		open:       key.NewBinding(key.WithKeys("ctrl+o"), key.WithHelp("ctrl+o", "open in browser")),
		cancel:     key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "cancel generation")),
		help:       key.NewBinding(key.WithKeys("f1"), key.WithHelp("f1", "more keys")),
		quit:       key.NewBinding(key.WithKeys("ctrl+c", "ctrl+d"), key.WithHelp("ctrl+c", "quit")),
	}
}

// Messages

type formMsg struct {
	form editor.Form
}

type submitDoneMsg struct {
	err error
}

type fileLoadedMsg struct {
	file *editor.File
	path string
	err  error
}

type savedMsg struct {
	path string
	err  error
}

type openedMsg struct {
	err error
}
