package tui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"
)

// ConfirmDialog asks a yes/no question on top of the editor.
type ConfirmDialog struct {
	active    bool
	title     string
	message   string
	onConfirm func() tea.Cmd
	help      help.Model
	keys      confirmKeyMap
}

type confirmKeyMap struct {
	confirm key.Binding
	cancel  key.Binding
	help    key.Binding
}

func (k confirmKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.confirm, k.cancel, k.help}
}

func (k confirmKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.confirm, k.cancel},
		{k.help},
	}
}

func newConfirmKeyMap() confirmKeyMap {
	return confirmKeyMap{
		confirm: key.NewBinding(key.WithKeys("enter", "y"), key.WithHelp("enter/y", "confirm")),
		cancel:  key.NewBinding(key.WithKeys("esc", "n", "q"), key.WithHelp("esc/n/q", "cancel")),
		help:    key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "toggle help")),
	}
}

// NewConfirmDialog creates a hidden dialog. onConfirm may return a command
// to run once the user accepts.
func NewConfirmDialog(title, message string, onConfirm func() tea.Cmd) *ConfirmDialog {
	return &ConfirmDialog{
		title:     title,
		message:   message,
		onConfirm: onConfirm,
		help:      help.New(),
		keys:      newConfirmKeyMap(),
	}
}

// Show shows the confirmation dialog
func (d *ConfirmDialog) Show() {
	d.active = true
}

// Hide hides the confirmation dialog
func (d *ConfirmDialog) Hide() {
	d.active = false
}

// IsActive returns whether the dialog is active
func (d *ConfirmDialog) IsActive() bool {
	return d.active
}

// Update handles dialog keys while it is shown.
func (d *ConfirmDialog) Update(msg tea.Msg) tea.Cmd {
	if !d.active {
		return nil
	}

	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return nil
	}

	switch {
	case key.Matches(keyMsg, d.keys.confirm):
		d.Hide()
		if d.onConfirm != nil {
			return d.onConfirm()
		}
	case key.Matches(keyMsg, d.keys.cancel):
		d.Hide()
	case key.Matches(keyMsg, d.keys.help):
		d.help.ShowAll = !d.help.ShowAll
	}
	return nil
}

// View renders the confirmation dialog
func (d *ConfirmDialog) View(width int) string {
	if !d.active {
		return ""
	}

	if width <= 0 || width > 60 {
		width = 60
	}

	dialogStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(PrimaryColor).
		Background(BgDark).
		Padding(1, 2).
		Width(width)

	titleStyle := lipgloss.NewStyle().
		Foreground(ErrorColor).
		Bold(true).
		MarginBottom(1)

	messageStyle := lipgloss.NewStyle().
		Foreground(TextPrimary).
		MarginBottom(1)

	keysStyle := lipgloss.NewStyle().
		Foreground(TextSecondary)

	content := titleStyle.Render(d.title) + "\n"
	content += messageStyle.Render(wordwrap.String(d.message, width-4)) + "\n"
	content += keysStyle.Render(fmt.Sprintf("%s confirm • %s cancel",
		d.keys.confirm.Help().Key,
		d.keys.cancel.Help().Key))

	if d.help.ShowAll {
		content += "\n\n" + d.help.View(d.keys)
	}

	return dialogStyle.Render(content)
}
