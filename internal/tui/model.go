package tui

import (
	"context"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/diogo/chatdrawer/internal/models"
	"github.com/diogo/chatdrawer/internal/render"
	"github.com/diogo/chatdrawer/internal/session"
	"github.com/diogo/chatdrawer/internal/suggestions"
)

// Message types for the TUI
type (
	// snapshotMsg reports that the open conversation changed
	snapshotMsg struct {
		updates chan struct{}
	}
	// submitDoneMsg is sent when a submit returns
	submitDoneMsg struct {
		err error
	}
)

// Options configures the drawer host
type Options struct {
	ModelName string
	Render    render.Options
	// Prompt is sent once as soon as the program starts
	Prompt string
	// Copy writes text to the system clipboard
	Copy func(string) error
}

// Model is the drawer host: a prompt bar with suggestion chips and, once a
// prompt is sent, a drawer that streams the conversation.
type Model struct {
	drawer *session.Drawer
	opts   Options

	viewport viewport.Model
	textarea textarea.Model
	spinner  spinner.Model

	chips   []suggestions.Suggestion
	chipIdx int

	// snap is the last snapshot read from the open conversation
	snap        models.Snapshot
	updates     chan struct{}
	done        chan struct{}
	unsubscribe func()
	sending     bool
	startCmd    tea.Cmd

	ready  bool
	err    error
	notice string

	width  int
	height int
}

// NewModel creates the drawer host for d
func NewModel(d *session.Drawer, opts Options) Model {
	if opts.Copy == nil {
		opts.Copy = clipboard.WriteAll
	}
	if opts.Render.Renderer == "" {
		opts.Render = render.DefaultOptions()
	}

	ta := textarea.New()
	ta.Placeholder = "Ask anything..."
	ta.CharLimit = 4000
	ta.ShowLineNumbers = false
	ta.SetHeight(2)
	ta.Focus()

	ta.FocusedStyle.CursorLine = lipgloss.NewStyle()
	ta.FocusedStyle.Base = lipgloss.NewStyle().Foreground(colorText)
	ta.FocusedStyle.Placeholder = lipgloss.NewStyle().Foreground(colorTextDim)
	ta.BlurredStyle = ta.FocusedStyle

	s := spinner.New()
	s.Spinner = spinner.Points
	s.Style = loadingStyle

	m := Model{
		drawer:   d,
		opts:     opts,
		textarea: ta,
		spinner:  s,
		chips:    d.Suggestions(),
		chipIdx:  -1,
	}
	if opts.Prompt != "" {
		m.startCmd = m.send(opts.Prompt)
	}
	return m
}

// Init initializes the model
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		textarea.Blink,
		m.startCmd,
	)
}

// Update handles messages and updates the model
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

		headerHeight := 3 // Header panel with border
		inputHeight := 7  // Input panel with border and chips
		statusHeight := 1
		padding := 2

		vpHeight := m.height - headerHeight - inputHeight - statusHeight - padding
		if vpHeight < 5 {
			vpHeight = 5
		}
		contentWidth := m.width - 4

		if !m.ready {
			m.viewport = viewport.New(contentWidth, vpHeight)
			m.ready = true
		} else {
			m.viewport.Width = contentWidth
			m.viewport.Height = vpHeight
		}
		m.textarea.SetWidth(contentWidth - 4)
		m.updateViewport()

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			m.closeDrawer()
			return m, tea.Quit

		case "esc":
			if ctrl := m.drawer.Session(); ctrl != nil {
				if ctrl.Cancel() {
					m.notice = "Stopped"
				} else {
					m.closeDrawer()
				}
				return m, nil
			}
			return m, tea.Quit

		case "tab", "shift+tab":
			if len(m.chips) > 0 && !m.loading() {
				step := 1
				if msg.String() == "shift+tab" {
					step = len(m.chips) - 1
				}
				if m.chipIdx < 0 && step != 1 {
					m.chipIdx = 0
				}
				m.chipIdx = (m.chipIdx + step) % len(m.chips)
				m.textarea.SetValue(m.chips[m.chipIdx].Prompt)
				m.textarea.CursorEnd()
			}
			return m, nil

		case "ctrl+y":
			m.copyLastAnswer()
			return m, nil

		case "enter":
			if m.loading() {
				return m, nil
			}
			input := strings.TrimSpace(m.textarea.Value())
			if input == "/exit" || input == "/quit" {
				m.closeDrawer()
				return m, tea.Quit
			}
			if cmd := m.send(input); cmd != nil {
				m.textarea.Reset()
				m.chipIdx = -1
				m.err = nil
				m.notice = ""
				return m, cmd
			}
			return m, nil
		}

	case snapshotMsg:
		// a closed drawer may still deliver one last update
		if msg.updates != m.updates || m.updates == nil {
			break
		}
		m.refresh()
		cmds = append(cmds, m.waitForUpdate())

	case submitDoneMsg:
		m.sending = false
		if msg.err != nil {
			m.err = msg.err
		}
		m.refresh()

	case spinner.TickMsg:
		if m.loading() {
			m.spinner, cmd = m.spinner.Update(msg)
			cmds = append(cmds, cmd)
		}
	}

	// Only pass KeyMsg to textarea to prevent escape sequence leaks
	if !m.loading() {
		if _, ok := msg.(tea.KeyMsg); ok {
			m.textarea, cmd = m.textarea.Update(msg)
			cmds = append(cmds, cmd)
		}
	}

	m.viewport, cmd = m.viewport.Update(msg)
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

// send opens the drawer with text, or submits it to the open drawer. It
// returns nil when there is nothing to send.
func (m *Model) send(text string) tea.Cmd {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	ctrl := m.drawer.Session()
	if ctrl == nil {
		ctrl = m.drawer.Queue(text)
		m.attach(ctrl)
		m.sending = true
		return tea.Batch(m.waitForUpdate(), autoSubmit(ctrl), m.spinner.Tick)
	}

	if ctrl.State() != session.Idle {
		return nil
	}
	m.sending = true
	return tea.Batch(submit(ctrl, text), m.spinner.Tick)
}

func submit(ctrl *session.Controller, text string) tea.Cmd {
	return func() tea.Msg {
		return submitDoneMsg{err: ctrl.Submit(context.Background(), text)}
	}
}

func autoSubmit(ctrl *session.Controller) tea.Cmd {
	return func() tea.Msg {
		return submitDoneMsg{err: ctrl.AutoSubmit(context.Background())}
	}
}

// attach subscribes to the store of ctrl. The observer runs under the
// controller lock, so it only signals and never blocks.
func (m *Model) attach(ctrl *session.Controller) {
	updates := make(chan struct{}, 1)
	m.updates = updates
	m.done = make(chan struct{})
	m.unsubscribe = ctrl.Store().Subscribe(func(models.Snapshot) {
		select {
		case updates <- struct{}{}:
		default:
		}
	})
	m.snap = ctrl.Store().Snapshot()
}

func (m Model) waitForUpdate() tea.Cmd {
	updates, done := m.updates, m.done
	return func() tea.Msg {
		select {
		case <-updates:
			return snapshotMsg{updates: updates}
		case <-done:
			return nil
		}
	}
}

// closeDrawer discards the open conversation
func (m *Model) closeDrawer() {
	if m.unsubscribe != nil {
		m.unsubscribe()
		m.unsubscribe = nil
	}
	if m.done != nil {
		close(m.done)
		m.done = nil
	}
	m.updates = nil
	m.drawer.Close()

	m.snap = models.Snapshot{}
	m.sending = false
	m.err = nil
	m.notice = ""
	m.updateViewport()
}

// refresh reads the current snapshot of the open conversation
func (m *Model) refresh() {
	if ctrl := m.drawer.Session(); ctrl != nil {
		m.snap = ctrl.Store().Snapshot()
	}
	m.updateViewport()
	m.viewport.GotoBottom()
}

func (m Model) loading() bool {
	return m.sending || m.snap.IsLoading
}

func (m *Model) copyLastAnswer() {
	content, ok := m.snap.LastAssistantContent()
	if !ok || content == "" {
		m.notice = "Nothing to copy yet"
		return
	}
	if err := m.opts.Copy(content); err != nil {
		m.err = err
		return
	}
	m.notice = "Copied answer to clipboard"
}

// View renders the TUI
func (m Model) View() string {
	if !m.ready {
		return loadingStyle.Render("  Initializing...")
	}

	var sections []string
	contentWidth := m.width - 4

	sections = append(sections, m.renderHeader(contentWidth))

	var body string
	if m.drawer.IsOpen() {
		body = drawerStyle.
			Width(contentWidth).
			Height(m.viewport.Height).
			Render(m.viewport.View())
	} else {
		body = m.renderWelcome(contentWidth)
	}
	sections = append(sections, body)

	sections = append(sections, m.renderInput(contentWidth))
	sections = append(sections, m.renderStatusBar(contentWidth))

	if m.err != nil {
		sections = append(sections, FormatError(m.err))
	}

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m Model) renderHeader(width int) string {
	parts := []string{titleStyle.Render("✦ Chat")}
	if m.opts.ModelName != "" {
		parts = append(parts, hintStyle.Render("  •  "), subtitleStyle.Render(m.opts.ModelName))
	}
	parts = append(parts, hintStyle.Render("  •  "), subtitleStyle.Render(m.drawer.Context()))
	return headerStyle.Width(width).Render(lipgloss.JoinHorizontal(lipgloss.Center, parts...))
}

// renderWelcome shows the suggestions for the current page before the
// drawer opens
func (m Model) renderWelcome(width int) string {
	lines := []string{
		"",
		welcomeIconStyle.Render("✦"),
		welcomeTitleStyle.Render("What can I help with?"),
		"",
	}
	for _, s := range m.chips {
		lines = append(lines, subtitleStyle.Render(s.Icon+"  "+s.Label))
	}
	content := lipgloss.JoinVertical(lipgloss.Center, lines...)
	return lipgloss.NewStyle().
		Width(width).
		Height(m.viewport.Height).
		Align(lipgloss.Center).
		Render(content)
}

func (m Model) renderInput(width int) string {
	var content string
	if m.loading() {
		content = lipgloss.JoinHorizontal(
			lipgloss.Center,
			m.spinner.View(),
			loadingStyle.Render(" Thinking"),
			hintStyle.Render("  esc to stop"),
		)
	} else {
		content = lipgloss.JoinVertical(
			lipgloss.Left,
			inputLabelStyle.Render("You"),
			m.textarea.View(),
			m.renderChips(),
		)
	}
	return inputPanelStyle.Width(width).Render(content)
}

func (m Model) renderChips() string {
	chips := make([]string, 0, len(m.chips))
	for i, s := range m.chips {
		style := chipStyle
		if i == m.chipIdx {
			style = chipActiveStyle
		}
		chips = append(chips, style.Render(s.Icon+" "+s.Label))
	}
	return strings.Join(chips, " ")
}

// renderStatusBar renders the bottom status bar with shortcuts
func (m Model) renderStatusBar(width int) string {
	escDesc := "Quit"
	switch {
	case m.loading():
		escDesc = "Stop"
	case m.drawer.IsOpen():
		escDesc = "Close"
	}

	shortcuts := []struct {
		key  string
		desc string
	}{
		{"Enter", "Send"},
		{"Tab", "Suggest"},
		{"Esc", escDesc},
		{"Ctrl+Y", "Copy"},
	}

	var items []string
	for _, s := range shortcuts {
		items = append(items, statusKeyStyle.Render(s.key)+statusDescStyle.Render(" "+s.desc))
	}
	bar := strings.Join(items, "  │  ")
	if m.notice != "" {
		bar += "  " + noticeStyle.Render(m.notice)
	}
	return statusBarStyle.Width(width).Align(lipgloss.Center).Render(bar)
}

// updateViewport refreshes the viewport content from the snapshot
func (m *Model) updateViewport() {
	if !m.ready {
		return
	}

	var content strings.Builder
	bubbleWidth := m.viewport.Width - 6
	if bubbleWidth < 20 {
		bubbleWidth = 20
	}

	for i, turn := range m.snap.Turns {
		if i > 0 {
			content.WriteString("\n")
		}
		content.WriteString(m.renderTurn(turn, bubbleWidth))
		content.WriteString("\n")
	}

	m.viewport.SetContent(content.String())
}

func (m Model) renderTurn(turn models.Turn, width int) string {
	if turn.Role == models.RoleUser {
		return userLabelStyle.Render("● You") + "\n" +
			userBubbleStyle.Width(width).Render(turn.Content())
	}

	text := turn.Content()
	style := assistantBubbleStyle
	if turn.Status == models.StatusErrored {
		style = erroredBubbleStyle
	} else if rendered, err := render.Markdown(text, m.opts.Render.WithWidth(width-4)); err == nil {
		text = rendered
	}
	if turn.IsStreaming() {
		text += cursorStyle.Render(streamingCursor)
	}

	return assistantLabelStyle.Render("✦ Assistant") + "\n" + style.Width(width).Render(text)
}

// Run starts the drawer host and blocks until the user quits. The drawer is
// closed on return.
func Run(d *session.Drawer, opts Options) error {
	m := NewModel(d, opts)
	defer d.Close()

	p := tea.NewProgram(
		m,
		tea.WithAltScreen(),
	)

	_, err := p.Run()
	return err
}
