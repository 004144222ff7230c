package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"gwi.com/deepchat/internal/appstate"
	"gwi.com/deepchat/internal/domain"
)

func (m Model) View() string {
	sidebar := m.renderSidebar()
	main := lipgloss.JoinVertical(lipgloss.Left,
		m.pane(focusMessages).Render(m.viewport.View()),
		m.pane(focusPrompt).Render(m.input.View()),
	)
	body := lipgloss.JoinHorizontal(lipgloss.Top, sidebar, main)
	return lipgloss.JoinVertical(lipgloss.Left, body, m.renderStatus(), helpStyle.Render(m.help()))
}

func (m Model) pane(f focus) lipgloss.Style {
	if m.focus == f && m.mode == modeNormal {
		return focusedPaneStyle
	}
	return paneStyle
}

func (m Model) renderSidebar() string {
	chats := m.store.Chats()
	selected := m.store.Selected()

	var b strings.Builder
	b.WriteString(titleStyle.Render("deepchat"))
	b.WriteString("\n\n")
	for i, c := range chats {
		name := truncate(c.Name, sidebarWidth-6)
		if selected != nil && c.ID == selected.ID {
			name = activeChatStyle.Render("● " + name)
		} else {
			name = "  " + name
		}
		style := rowStyle
		if i == m.cursor && m.focus == focusSidebar {
			style = cursorRowStyle
		}
		b.WriteString(style.Width(sidebarWidth - 2).Render(name))
		b.WriteString("\n")
		if m.menu.IsOpenFor(c.ID) {
			b.WriteString(menuStyle.Render("r rename · d delete · esc close"))
			b.WriteString("\n")
		}
	}

	height := m.viewport.Height + promptHeight + 2
	return m.pane(focusSidebar).Width(sidebarWidth).Height(height).Render(b.String())
}

func (m Model) renderStatus() string {
	switch m.mode {
	case modeRename:
		return m.rename.View()
	case modeConfirmDelete:
		return dialogStyle.Render("Delete this chat? (y/n)")
	}
	if m.toast.text == "" {
		if m.streaming {
			return helpStyle.Render("DeepSeek is replying…")
		}
		return ""
	}
	if m.toast.level == appstate.LevelError {
		return toastErrorStyle.Render("✗ " + m.toast.text)
	}
	return toastInfoStyle.Render("✓ " + m.toast.text)
}

func (m Model) help() string {
	switch m.focus {
	case focusSidebar:
		return "↑/↓ move · enter open · m menu · n new · tab focus · ctrl+c quit"
	case focusMessages:
		return "↑/↓ select · c copy · pgup/pgdn scroll · tab focus · ctrl+c quit"
	}
	return "enter send · alt+enter/ctrl+j newline · ctrl+n new chat · tab focus · ctrl+c quit"
}

func renderMessages(msgs []domain.Message, cursor int, showCursor bool, width int) string {
	if len(msgs) == 0 {
		return helpStyle.Render("How can I help you today?")
	}
	body := lipgloss.NewStyle().Width(width - 2)

	var b strings.Builder
	for i, msg := range msgs {
		label := userLabelStyle.Render("You")
		if msg.Role == domain.RoleAssistant {
			label = assistantLabelStyle.Render("DeepSeek")
		}
		marker := "  "
		if showCursor && i == cursor {
			marker = selectedMsgStyle.Render("▌ ")
		}
		content := msg.Content
		if content == "" && msg.Role == domain.RoleAssistant {
			content = "…"
		}
		fmt.Fprintf(&b, "%s%s\n%s\n\n", marker, label, body.Render(content))
	}
	return strings.TrimRight(b.String(), "\n")
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-1]) + "…"
}
