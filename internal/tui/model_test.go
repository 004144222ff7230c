package tui

import (
	"context"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gwi.com/deepchat/internal/appstate"
	"gwi.com/deepchat/internal/domain"
)

type stubAPI struct {
	mu      sync.Mutex
	chats   []domain.Chat
	renamed map[string]string
	deleted []string
}

func (s *stubAPI) CreateChat(ctx context.Context) error { return nil }

func (s *stubAPI) ListChats(ctx context.Context) ([]domain.Chat, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.Chat(nil), s.chats...), nil
}

func (s *stubAPI) RenameChat(ctx context.Context, chatID, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.renamed == nil {
		s.renamed = map[string]string{}
	}
	s.renamed[chatID] = name
	return nil
}

func (s *stubAPI) DeleteChat(ctx context.Context, chatID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deleted = append(s.deleted, chatID)
	return nil
}

func (s *stubAPI) SendPrompt(ctx context.Context, chatID, prompt string, onFragment func(string)) (*domain.Message, error) {
	return nil, errors.New("offline")
}

func keyRunes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func newLoadedModel(t *testing.T) (Model, *stubAPI) {
	t.Helper()
	now := time.Now()
	api := &stubAPI{chats: []domain.Chat{
		{ID: "c1", Name: "First", UpdatedAt: now, Messages: []domain.Message{
			{Role: domain.RoleUser, Content: "question"},
			{Role: domain.RoleAssistant, Content: "answer"},
		}},
		{ID: "c2", Name: "Second", UpdatedAt: now.Add(-time.Hour)},
	}}
	m := New(context.Background(), api)
	updated, _ := m.Update(m.load()())
	m = updated.(Model)
	updated, _ = m.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	return updated.(Model), api
}

func press(t *testing.T, m Model, keys ...tea.KeyMsg) (Model, tea.Cmd) {
	t.Helper()
	var cmd tea.Cmd
	for _, k := range keys {
		var updated tea.Model
		updated, cmd = m.Update(k)
		m = updated.(Model)
	}
	return m, cmd
}

func TestSidebarMenuToggles(t *testing.T) {
	m, _ := newLoadedModel(t)
	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyTab})
	require.Equal(t, focusSidebar, m.focus)

	m, _ = press(t, m, keyRunes("m"))
	assert.True(t, m.menu.IsOpenFor("c1"))
	assert.Contains(t, m.View(), "r rename")

	m, _ = press(t, m, keyRunes("m"))
	assert.False(t, m.menu.IsOpenFor("c1"))
}

func TestRenameThroughMenu(t *testing.T) {
	m, api := newLoadedModel(t)
	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyTab}, keyRunes("m"), keyRunes("r"))
	require.Equal(t, modeRename, m.mode)
	assert.Equal(t, "First", m.rename.Value())

	m.rename.SetValue("Renamed")
	m, cmd := press(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	assert.Equal(t, modeNormal, m.mode)

	done := cmd()
	require.IsType(t, opDoneMsg{}, done)
	assert.NoError(t, done.(opDoneMsg).err)
	assert.Equal(t, "Renamed", api.renamed["c1"])
}

func TestDeleteNeedsConfirmation(t *testing.T) {
	m, api := newLoadedModel(t)
	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyTab}, keyRunes("m"), keyRunes("d"))
	require.Equal(t, modeConfirmDelete, m.mode)

	m, cmd := press(t, m, keyRunes("n"))
	assert.Nil(t, cmd)
	assert.Equal(t, modeNormal, m.mode)
	assert.Empty(t, api.deleted)

	m, _ = press(t, m, keyRunes("m"), keyRunes("d"))
	_, cmd = press(t, m, keyRunes("y"))
	require.NotNil(t, cmd)
	cmd()
	assert.Equal(t, []string{"c1"}, api.deleted)
}

func TestCopySelectedMessage(t *testing.T) {
	var copied string
	orig := copyToClipboard
	copyToClipboard = func(s string) error { copied = s; return nil }
	t.Cleanup(func() { copyToClipboard = orig })

	m, _ := newLoadedModel(t)
	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyTab}, tea.KeyMsg{Type: tea.KeyTab})
	require.Equal(t, focusMessages, m.focus)

	m, _ = press(t, m, keyRunes("c"))
	assert.Equal(t, "answer", copied)
	assert.Equal(t, "Copied to clipboard", m.toast.text)

	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyUp}, keyRunes("c"))
	assert.Equal(t, "question", copied)
}

func TestFailedSubmitRestoresInput(t *testing.T) {
	m, _ := newLoadedModel(t)
	m.input.SetValue("hello")

	m, cmd := press(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	assert.True(t, m.streaming)
	assert.Empty(t, m.input.Value())

	updated, _ := m.Update(streamDoneMsg{restore: "hello", err: errors.New("offline")})
	m = updated.(Model)
	assert.False(t, m.streaming)
	assert.Equal(t, "hello", m.input.Value())
}

func TestNotificationsBecomeToasts(t *testing.T) {
	m, _ := newLoadedModel(t)
	updated, cmd := m.Update(notifyMsg(appstate.Notification{Level: appstate.LevelError, Text: "boom"}))
	m = updated.(Model)
	require.NotNil(t, cmd)
	assert.Contains(t, m.View(), "boom")

	updated, _ = m.Update(clearToastMsg{id: m.toast.id})
	assert.Empty(t, updated.(Model).toast.text)
}
