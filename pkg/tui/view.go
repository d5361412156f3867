package tui

import (
	"fmt"
	"strings"

	"InteriorEditor/pkg/editor"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"
)

// View renders the editor screen.
func (m Model) View() string {
	if m.quitting {
		return ""
	}

	w := m.contentWidth()
	var s strings.Builder

	s.WriteString(m.renderHeader(w))
	s.WriteString("\n\n")
	s.WriteString(m.renderPrompt())
	s.WriteString("\n")
	s.WriteString(m.renderFile(w))
	s.WriteString("\n")

	if status := m.renderStatus(w); status != "" {
		s.WriteString("\n")
		s.WriteString(status)
		s.WriteString("\n")
	}

	if m.confirm.IsActive() {
		s.WriteString("\n")
		s.WriteString(m.confirm.View(w))
		return s.String()
	}

	s.WriteString(HelpStyle.Render(m.help.View(m.keys)))
	return s.String()
}

func (m Model) renderHeader(w int) string {
	badge := CreateBadgeStyle.Render("CREATE")
	if m.form.Mode == editor.ModeEdit {
		badge = EditBadgeStyle.Render("EDIT")
	}
	title := lipgloss.JoinHorizontal(lipgloss.Center, TitleStyle.Render("Interior Editor"), badge)
	if m.form.Loading {
		title = lipgloss.JoinHorizontal(lipgloss.Center, title, BusyBadgeStyle.Render("GENERATING"))
	}

	server := m.opts.BaseURL
	if server == "" {
		server = "(default)"
	}
	bar := StatusBarStyle.Render(truncateText("server "+server, w-2))
	return title + "\n" + bar
}

func (m Model) renderPrompt() string {
	box := BlurredInputStyle
	if m.focus == fieldPrompt {
		box = FocusedInputStyle
	}
	return LabelStyle.Render("Prompt") + "\n" + box.Render(m.prompt.View())
}

func (m Model) renderFile(w int) string {
	label := LabelStyle.Render("Room photo")
	if m.form.Mode == editor.ModeCreate {
		label += " " + HintStyle.Render("(only sent in edit mode)")
	}

	box := BlurredInputStyle
	if m.focus == fieldFile {
		box = FocusedInputStyle
	}

	var info string
	switch f := m.form.File; {
	case f != nil:
		info = InfoStyle.Render(truncateText(
			fmt.Sprintf("Selected: %s · %s · %s", f.Name, f.ContentType, formatSize(f.Size())), w))
	case m.form.Mode == editor.ModeEdit:
		info = HintStyle.Render("No photo selected. Type a path and press enter.")
	}

	out := label + "\n" + box.Render(m.path.View())
	if info != "" {
		out += "\n" + info
	}
	return out
}

func (m Model) renderStatus(w int) string {
	var lines []string

	if m.form.Loading {
		lines = append(lines, fmt.Sprintf("%s %s %3.0f%%",
			m.spinner.View(),
			m.bar.ViewAs(m.form.Progress/100),
			m.form.Progress,
		))
	}

	if m.form.Error != "" {
		lines = append(lines, ErrorMsgStyle.Render(wordwrap.String(m.form.Error, w)))
	}

	if m.form.ImageURL != "" {
		lines = append(lines, SuccessMsgStyle.Render("✓ Design ready"))
		if m.opts.ShowURL {
			lines = append(lines, URLStyle.Render(wordwrap.String(m.form.ImageURL, w)))
		}
	}

	if m.notice != "" {
		style := InfoStyle
		if m.noticeErr {
			style = ErrorMsgStyle
		}
		lines = append(lines, style.Render(wordwrap.String(m.notice, w)))
	}

	return strings.Join(lines, "\n")
}
