package tui

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"gwi.com/deepchat/internal/appstate"
	"gwi.com/deepchat/internal/domain"
)

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		return m, tea.Quit
	}

	switch m.mode {
	case modeRename:
		return m.handleRenameKey(msg)
	case modeConfirmDelete:
		return m.handleDeleteKey(msg)
	}

	switch msg.String() {
	case "tab":
		cmd := m.cycleFocus()
		return m, cmd
	case "ctrl+n":
		cmd := m.createChat()
		return m, cmd
	}

	switch m.focus {
	case focusSidebar:
		return m.handleSidebarKey(msg)
	case focusMessages:
		return m.handleMessagesKey(msg)
	}
	return m.handlePromptKey(msg)
}

func (m Model) handlePromptKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() != "enter" {
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}

	prompt := m.input.Value()
	if strings.TrimSpace(prompt) == "" {
		return m, nil
	}
	if m.streaming {
		cmd := m.showToast(appstate.Notification{Level: appstate.LevelError, Text: appstate.ErrBusy.Error()})
		return m, cmd
	}

	m.input.Reset()
	m.streaming = true
	updates := make(chan struct{}, 1)
	store, ctx := m.store, m.ctx
	run := func() tea.Msg {
		defer close(updates)
		restore, err := store.Submit(ctx, prompt, func() {
			select {
			case updates <- struct{}{}:
			default:
			}
		})
		return streamDoneMsg{restore: restore, err: err}
	}
	return m, tea.Batch(run, waitForUpdate(updates))
}

func (m Model) handleSidebarKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	chats := m.store.Chats()
	if len(chats) == 0 {
		return m, nil
	}
	m.clampCursor()
	current := chats[m.cursor]

	if m.menu.IsOpenFor(current.ID) {
		switch msg.String() {
		case "r":
			m.menu = domain.OpenMenu{}
			cmd := m.beginRename(current)
			return m, cmd
		case "d":
			if m.streaming {
				cmd := m.busyToast()
				return m, cmd
			}
			m.menu = domain.OpenMenu{}
			m.mode = modeConfirmDelete
			m.target = current.ID
			return m, nil
		case "esc":
			m.menu = domain.OpenMenu{}
			return m, nil
		}
	}

	switch msg.String() {
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
		m.menu = domain.OpenMenu{}
	case "down", "j":
		if m.cursor < len(chats)-1 {
			m.cursor++
		}
		m.menu = domain.OpenMenu{}
	case "enter":
		m.store.Select(current.ID)
		m.refresh(true)
	case "m", " ":
		m.menu = m.menu.Toggle(current.ID)
	case "n":
		cmd := m.createChat()
		return m, cmd
	}
	return m, nil
}

func (m Model) handleMessagesKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	chat := m.store.Selected()
	if chat == nil {
		return m, nil
	}

	switch msg.String() {
	case "up", "k":
		if m.msgCursor > 0 {
			m.msgCursor--
		}
	case "down", "j":
		if m.msgCursor < len(chat.Messages)-1 {
			m.msgCursor++
		}
	case "c", "y":
		if m.msgCursor < 0 || m.msgCursor >= len(chat.Messages) {
			return m, nil
		}
		if err := copyToClipboard(chat.Messages[m.msgCursor].Content); err != nil {
			cmd := m.showToast(appstate.Notification{Level: appstate.LevelError, Text: "Copy failed: " + err.Error()})
			return m, cmd
		}
		cmd := m.showToast(appstate.Notification{Level: appstate.LevelInfo, Text: "Copied to clipboard"})
		return m, cmd
	default:
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd
	}
	m.refresh(false)
	return m, nil
}

func (m *Model) beginRename(chat domain.Chat) tea.Cmd {
	m.mode = modeRename
	m.target = chat.ID
	m.input.Blur()
	m.rename.SetValue(chat.Name)
	m.rename.CursorEnd()
	return m.rename.Focus()
}

func (m Model) handleRenameKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		return m.leaveDialog(), nil
	case "enter":
		chatID, name := m.target, m.rename.Value()
		m = m.leaveDialog()
		store, ctx := m.store, m.ctx
		return m, func() tea.Msg {
			return opDoneMsg{err: store.Rename(ctx, chatID, name)}
		}
	}
	var cmd tea.Cmd
	m.rename, cmd = m.rename.Update(msg)
	return m, cmd
}

func (m Model) handleDeleteKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "y", "Y":
		chatID := m.target
		m = m.leaveDialog()
		store, ctx := m.store, m.ctx
		return m, func() tea.Msg {
			return opDoneMsg{err: store.Delete(ctx, chatID)}
		}
	case "n", "N", "esc":
		return m.leaveDialog(), nil
	}
	return m, nil
}

func (m Model) leaveDialog() Model {
	m.mode = modeNormal
	m.target = ""
	m.rename.Blur()
	if m.focus == focusPrompt {
		m.input.Focus()
	}
	return m
}

func (m *Model) createChat() tea.Cmd {
	if m.streaming {
		return m.busyToast()
	}
	store, ctx := m.store, m.ctx
	return func() tea.Msg {
		return opDoneMsg{err: store.CreateChat(ctx)}
	}
}

func (m *Model) busyToast() tea.Cmd {
	return m.showToast(appstate.Notification{Level: appstate.LevelError, Text: appstate.ErrBusy.Error()})
}
