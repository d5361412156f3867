// Package tui provides the terminal interface of the interior editor.
package tui

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"InteriorEditor/pkg/editor"
	"InteriorEditor/pkg/logger"
	"InteriorEditor/pkg/utils"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"
)

// Saver stores a generated image locally. *generator.Client satisfies it.
type Saver interface {
	Download(ctx context.Context, imageURL, dir string) (string, error)
}

// Options configures the editor screen.
type Options struct {
	BaseURL     string
	OutputDir   string
	ConfirmQuit bool
	ShowURL     bool
	AltScreen   bool

	Saver Saver
	Open  func(url string) error // defaults to utils.OpenBrowser
}

// Model is the bubbletea model of the editor screen. The form itself lives
// in the session; the model mirrors the latest snapshot.
type Model struct {
	ctx     context.Context
	session *editor.Session
	opts    Options

	form    editor.Form
	prompt  textinput.Model
	path    textinput.Model
	focus   field
	spinner spinner.Model
	bar     progress.Model
	help    help.Model
	keys    keyMap
	confirm *ConfirmDialog

	notice    string
	noticeErr bool

	width    int
	height   int
	quitting bool
}

// New creates the editor model for session.
func New(ctx context.Context, session *editor.Session, opts Options) Model {
	if ctx == nil {
		ctx = context.Background()
	}
	if opts.Open == nil {
		opts.Open = utils.OpenBrowser
	}

	prompt := textinput.New()
	prompt.Prompt = "› "
	prompt.Placeholder = "Describe the room you want..."
	prompt.CharLimit = 2000

	path := textinput.New()
	path.Prompt = "› "
	path.Placeholder = "path/to/room.jpg"
	path.CharLimit = 1024

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(AccentColor)

	bar := progress.New(
		progress.WithGradient(string(PrimaryColor), string(SecondaryColor)),
		progress.WithoutPercentage(),
	)

	m := Model{
		ctx:     ctx,
		session: session,
		opts:    opts,
		prompt:  prompt,
		path:    path,
		spinner: sp,
		bar:     bar,
		help:    help.New(),
		keys:    newKeyMap(),
		width:   80,
		height:  24,
	}
	m.confirm = NewConfirmDialog(
		"Quit while generating?",
		"A design is still being generated. Quitting cancels the request.",
		func() tea.Cmd {
			session.Cancel()
			return tea.Quit
		},
	)

	m.applyForm(session.Snapshot())
	m.setFocus(fieldPrompt)
	m.recalculateLayout()
	return m
}

// Update handles incoming events and session snapshots.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.recalculateLayout()
		return m, nil

	case tea.KeyMsg:
		if m.confirm.IsActive() {
			return m, m.confirm.Update(msg)
		}
		return m.handleKey(msg)

	case formMsg:
		// Snapshots from the session goroutines may arrive out of order.
		if msg.form.Version > m.form.Version {
			m.applyForm(msg.form)
		}
		return m, nil

	case submitDoneMsg:
		m.applyForm(m.session.Snapshot())
		switch {
		case msg.err == nil:
			m.setNotice("Design ready. ctrl+s saves it, ctrl+o opens it.", false)
		case errors.Is(msg.err, editor.ErrBusy):
			m.setNotice("A generation is already running.", true)
		case errors.Is(msg.err, editor.ErrClosed):
			m.setNotice("Editor is shutting down.", true)
		default:
			// The form carries the user-facing message.
			m.notice = ""
		}
		return m, nil

	case fileLoadedMsg:
		if msg.err != nil {
			m.setNotice(msg.err.Error(), true)
			return m, nil
		}
		if m.session.Busy() {
			m.setNotice("Photo not applied while a design is generating. Press enter again when it is done.", true)
			return m, nil
		}
		m.session.SelectFile(msg.file)
		m.applyForm(m.session.Snapshot())
		m.setNotice(fmt.Sprintf("Loaded %s (%s, %s)", msg.file.Name, msg.file.ContentType, formatSize(msg.file.Size())), false)
		logger.Info("room photo selected",
			zap.String("path", msg.path),
			zap.String("content_type", msg.file.ContentType),
			zap.Int("bytes", msg.file.Size()),
		)
		return m, nil

	case savedMsg:
		if msg.err != nil {
			m.setNotice("Save failed: "+msg.err.Error(), true)
		} else {
			m.setNotice("Saved to "+msg.path, false)
		}
		return m, nil

	case openedMsg:
		if msg.err != nil {
			m.setNotice("Could not open browser: "+msg.err.Error(), true)
		}
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m.updateFocused(msg)
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit):
		return m.quit()

	case key.Matches(msg, m.keys.help):
		m.help.ShowAll = !m.help.ShowAll
		return m, nil

	case key.Matches(msg, m.keys.cancel):
		if m.session.Busy() {
			m.session.Cancel()
			m.setNotice("Cancelling...", false)
		}
		return m, nil

	case key.Matches(msg, m.keys.save):
		return m.save()

	case key.Matches(msg, m.keys.open):
		return m.open()
	}

	// The form is frozen while a generation runs.
	if m.session.Busy() {
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.nextField):
		if m.focus == fieldPrompt {
			m.setFocus(fieldFile)
		} else {
			m.setFocus(fieldPrompt)
		}
		return m, nil

	case key.Matches(msg, m.keys.toggleMode):
		m.session.ToggleMode()
		m.applyForm(m.session.Snapshot())
		m.notice = ""
		return m, nil

	case key.Matches(msg, m.keys.clearFile):
		m.session.ClearFile()
		m.path.SetValue("")
		m.applyForm(m.session.Snapshot())
		m.setNotice("Photo cleared.", false)
		return m, nil

	case key.Matches(msg, m.keys.submit):
		if m.focus == fieldFile {
			return m.loadFile()
		}
		return m.submit()
	}

	return m.updateFocused(msg)
}

// updateFocused forwards msg to the focused input and pushes prompt edits
// into the session.
func (m Model) updateFocused(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	if m.focus == fieldFile {
		m.path, cmd = m.path.Update(msg)
		return m, cmd
	}

	before := m.prompt.Value()
	m.prompt, cmd = m.prompt.Update(msg)
	if after := m.prompt.Value(); after != before {
		m.session.SetPrompt(after)
		m.applyForm(m.session.Snapshot())
	}
	return m, cmd
}

// applyForm mirrors a session snapshot, resetting the prompt input when the
// session changed the prompt (for example on a mode switch).
func (m *Model) applyForm(f editor.Form) {
	m.form = f
	if m.prompt.Value() != f.Prompt {
		m.prompt.SetValue(f.Prompt)
		m.prompt.CursorEnd()
	}
}

func (m *Model) setNotice(text string, isErr bool) {
	m.notice = text
	m.noticeErr = isErr
}

func (m Model) submit() (tea.Model, tea.Cmd) {
	m.notice = ""
	session, ctx := m.session, m.ctx
	return m, func() tea.Msg {
		return submitDoneMsg{err: session.Submit(ctx)}
	}
}

func (m Model) loadFile() (tea.Model, tea.Cmd) {
	p := cleanPath(m.path.Value())
	if p == "" {
		m.setNotice("Type the path of a room photo first.", true)
		return m, nil
	}
	return m, func() tea.Msg {
		f, err := editor.LoadFile(p)
		return fileLoadedMsg{file: f, path: p, err: err}
	}
}

func (m Model) save() (tea.Model, tea.Cmd) {
	if m.form.ImageURL == "" {
		m.setNotice("Nothing to save yet.", true)
		return m, nil
	}
	if m.opts.Saver == nil {
		m.setNotice("Saving is not available.", true)
		return m, nil
	}
	saver, ctx, imageURL := m.opts.Saver, m.ctx, m.form.ImageURL
	dir := m.opts.OutputDir
	if dir == "" {
		dir = "."
	}
	dir = filepath.Clean(dir)
	m.setNotice("Saving...", false)
	return m, func() tea.Msg {
		p, err := saver.Download(ctx, imageURL, dir)
		return savedMsg{path: p, err: err}
	}
}

func (m Model) open() (tea.Model, tea.Cmd) {
	if m.form.ImageURL == "" {
		m.setNotice("Nothing to open yet.", true)
		return m, nil
	}
	openFn, imageURL := m.opts.Open, m.form.ImageURL
	return m, func() tea.Msg {
		return openedMsg{err: openFn(imageURL)}
	}
}

func (m Model) quit() (tea.Model, tea.Cmd) {
	if m.opts.ConfirmQuit && m.session.Busy() {
		m.confirm.Show()
		return m, nil
	}
	m.quitting = true
	return m, tea.Quit
}

// quitKeyFilter is a program-level filter that catches quit keys
// even if the model's Update somehow doesn't process them.
// It counts consecutive Ctrl+C presses and force-exits on the third.
func quitKeyFilter() func(tea.Model, tea.Msg) tea.Msg {
	ctrlCCount := 0
	return func(m tea.Model, msg tea.Msg) tea.Msg {
		if key, ok := msg.(tea.KeyMsg); ok {
			switch key.Type {
			case tea.KeyCtrlC, tea.KeyCtrlD, tea.KeyCtrlBackslash:
				ctrlCCount++
				if ctrlCCount >= 3 {
					fmt.Print("\033[?25h\033[?1049l")
					fmt.Fprintln(os.Stderr, "\nForce quit.")
					os.Exit(1)
				}
			default:
				ctrlCCount = 0
			}
		}
		return msg
	}
}

// newProgram builds the editor program and subscribes it to session
// snapshots. detach unsubscribes; call it once the program has exited.
func newProgram(ctx context.Context, session *editor.Session, opts Options, extra ...tea.ProgramOption) (p *tea.Program, detach func()) {
	progOpts := []tea.ProgramOption{
		tea.WithFilter(quitKeyFilter()),
		tea.WithContext(ctx),
	}
	if opts.AltScreen {
		progOpts = append(progOpts, tea.WithAltScreen())
	}
	progOpts = append(progOpts, extra...)

	p = tea.NewProgram(New(ctx, session, opts), progOpts...)

	fwd := newSnapshotForwarder(p.Send)
	session.OnChange(fwd.Publish)

	return p, func() {
		session.OnChange(nil)
		fwd.Stop()
	}
}

// Run shows the editor until the user quits or ctx is cancelled, then
// closes the session, cancelling any generation still in flight.
func Run(ctx context.Context, session *editor.Session, opts Options) error {
	p, detach := newProgram(ctx, session, opts)

	_, err := p.Run()

	detach()
	if cerr := session.Close(); cerr != nil {
		logger.Warn("closing session", zap.Error(cerr))
	}

	if err != nil && ctx.Err() != nil {
		return nil
	}
	return err
}
