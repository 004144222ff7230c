// Package tui is the terminal front end: a chat list with per-row menus, the
// message list of the selected chat and a prompt box.
package tui

import (
	"context"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"gwi.com/deepchat/internal/appstate"
	"gwi.com/deepchat/internal/domain"
)

const (
	sidebarWidth  = 30
	promptHeight  = 3
	toastDuration = 4 * time.Second
)

// copyToClipboard is swapped out in tests.
var copyToClipboard = clipboard.WriteAll

type focus int

const (
	focusPrompt focus = iota
	focusSidebar
	focusMessages
)

type mode int

const (
	modeNormal mode = iota
	modeRename
	modeConfirmDelete
)

type toast struct {
	id    int
	level appstate.Level
	text  string
}

type (
	loadedMsg       struct{ err error }
	opDoneMsg       struct{ err error }
	notifyMsg       appstate.Notification
	clearToastMsg   struct{ id int }
	streamUpdateMsg struct{ updates <-chan struct{} }
	streamDoneMsg   struct {
		restore string
		err     error
	}
)

type Model struct {
	ctx   context.Context
	store *appstate.Store
	notes chan appstate.Notification

	width, height int
	focus         focus
	mode          mode

	cursor    int
	menu      domain.OpenMenu
	msgCursor int
	target    string

	input    textarea.Model
	rename   textinput.Model
	viewport viewport.Model

	streaming bool
	toast     toast
	toastSeq  int
}

// New wires a Model to api. Notifications from the state store are shown as
// toasts.
func New(ctx context.Context, api appstate.API) Model {
	notes := make(chan appstate.Notification, 16)
	store := appstate.New(api, func(n appstate.Notification) {
		select {
		case notes <- n:
		default:
		}
	})

	input := textarea.New()
	input.Placeholder = "Message DeepSeek"
	input.ShowLineNumbers = false
	input.CharLimit = 0
	input.SetHeight(promptHeight)
	// Terminals do not report shift+enter, so plain enter submits and these
	// insert a line break.
	input.KeyMap.InsertNewline = key.NewBinding(key.WithKeys("alt+enter", "ctrl+j"))
	input.Focus()

	rename := textinput.New()
	rename.Prompt = "name: "

	return Model{
		ctx:      ctx,
		store:    store,
		notes:    notes,
		input:    input,
		rename:   rename,
		viewport: viewport.New(80, 20),
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(textarea.Blink, m.load(), waitForNote(m.notes))
}

func (m Model) load() tea.Cmd {
	store, ctx := m.store, m.ctx
	return func() tea.Msg {
		return loadedMsg{err: store.Load(ctx)}
	}
}

func waitForNote(notes <-chan appstate.Notification) tea.Cmd {
	return func() tea.Msg {
		return notifyMsg(<-notes)
	}
}

// waitForUpdate returns nil once the submission closes its channel.
func waitForUpdate(updates <-chan struct{}) tea.Cmd {
	return func() tea.Msg {
		if _, ok := <-updates; !ok {
			return nil
		}
		return streamUpdateMsg{updates: updates}
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
		m.refresh(false)
		return m, nil

	case loadedMsg:
		m.cursor = m.selectedRow()
		m.refresh(true)
		return m, nil

	case opDoneMsg:
		m.clampCursor()
		m.refresh(true)
		return m, nil

	case notifyMsg:
		cmd := m.showToast(appstate.Notification(msg))
		return m, tea.Batch(cmd, waitForNote(m.notes))

	case clearToastMsg:
		if msg.id == m.toast.id {
			m.toast = toast{}
		}
		return m, nil

	case streamUpdateMsg:
		m.refresh(true)
		return m, waitForUpdate(msg.updates)

	case streamDoneMsg:
		m.streaming = false
		if msg.err != nil && m.input.Value() == "" {
			m.input.SetValue(msg.restore)
		}
		m.cursor = m.selectedRow()
		m.refresh(true)
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	var cmd tea.Cmd
	switch {
	case m.mode == modeRename:
		m.rename, cmd = m.rename.Update(msg)
	case m.focus == focusPrompt:
		m.input, cmd = m.input.Update(msg)
	}
	return m, cmd
}

func (m *Model) showToast(n appstate.Notification) tea.Cmd {
	m.toastSeq++
	m.toast = toast{id: m.toastSeq, level: n.Level, text: n.Text}
	id := m.toastSeq
	return tea.Tick(toastDuration, func(time.Time) tea.Msg { return clearToastMsg{id: id} })
}

func (m *Model) resize(width, height int) {
	m.width, m.height = width, height
	mainWidth := width - sidebarWidth - 4
	if mainWidth < 20 {
		mainWidth = 20
	}
	m.input.SetWidth(mainWidth)
	m.viewport.Width = mainWidth
	// Borders, prompt, title, toast and help lines.
	m.viewport.Height = height - promptHeight - 8
	if m.viewport.Height < 3 {
		m.viewport.Height = 3
	}
}

func (m *Model) selectedRow() int {
	selected := m.store.Selected()
	if selected == nil {
		return 0
	}
	for i, c := range m.store.Chats() {
		if c.ID == selected.ID {
			return i
		}
	}
	return 0
}

func (m *Model) clampCursor() {
	n := len(m.store.Chats())
	if m.cursor >= n {
		m.cursor = n - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
}

// refresh re-renders the message list; follow scrolls to the newest message.
func (m *Model) refresh(follow bool) {
	chat := m.store.Selected()
	var msgs []domain.Message
	if chat != nil {
		msgs = chat.Messages
	}
	if follow || m.msgCursor >= len(msgs) {
		m.msgCursor = len(msgs) - 1
	}
	m.viewport.SetContent(renderMessages(msgs, m.msgCursor, m.focus == focusMessages, m.viewport.Width))
	if follow {
		m.viewport.GotoBottom()
	}
}

func (m *Model) cycleFocus() tea.Cmd {
	m.focus = (m.focus + 1) % 3
	m.menu = domain.OpenMenu{}
	if m.focus == focusPrompt {
		m.refresh(false)
		return m.input.Focus()
	}
	m.input.Blur()
	m.refresh(false)
	return nil
}
