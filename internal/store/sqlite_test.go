package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gwi.com/deepchat/internal/domain"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestCreateChatStartsEmptyWithPlaceholder(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	chat, err := s.CreateChat(ctx, "user_a", domain.PlaceholderChatName)
	require.NoError(t, err)
	assert.NotEmpty(t, chat.ID)

	got, err := s.GetChat(ctx, chat.ID, "user_a")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, domain.PlaceholderChatName, got.Name)
	assert.Empty(t, got.Messages)
	assert.Equal(t, "user_a", got.UserID)
}

func TestChatOwnershipIsolation(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	owned, err := s.CreateChat(ctx, "owner", domain.PlaceholderChatName)
	require.NoError(t, err)
	require.NoError(t, s.AppendMessage(ctx, owned.ID, "owner", domain.Message{Role: domain.RoleUser, Content: "hi"}))

	// Another user can neither see, rename, append to nor delete it.
	got, err := s.GetChat(ctx, owned.ID, "intruder")
	require.NoError(t, err)
	assert.Nil(t, got)

	require.NoError(t, s.RenameChat(ctx, owned.ID, "intruder", "stolen"))
	require.NoError(t, s.DeleteChat(ctx, owned.ID, "intruder"))
	err = s.AppendMessage(ctx, owned.ID, "intruder", domain.Message{Role: domain.RoleUser, Content: "x"})
	assert.ErrorIs(t, err, ErrChatNotFound)

	got, err = s.GetChat(ctx, owned.ID, "owner")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, domain.PlaceholderChatName, got.Name)
	require.Len(t, got.Messages, 1)
	assert.Equal(t, "hi", got.Messages[0].Content)

	chats, err := s.ListChats(ctx, "intruder")
	require.NoError(t, err)
	assert.Empty(t, chats)
}

func TestRenameAndDeleteUnknownIDsAreNoOps(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	assert.NoError(t, s.RenameChat(ctx, "does-not-exist", "user_a", "name"))
	assert.NoError(t, s.DeleteChat(ctx, "does-not-exist", "user_a"))
}

func TestAppendMessageKeepsOrderAndTouchesChat(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	chat, err := s.CreateChat(ctx, "user_a", domain.PlaceholderChatName)
	require.NoError(t, err)

	// Same timestamp on purpose: order must come from append order.
	at := chat.CreatedAt.Add(time.Minute)
	contents := []string{"one", "two", "three"}
	for i, c := range contents {
		role := domain.RoleUser
		if i%2 == 1 {
			role = domain.RoleAssistant
		}
		require.NoError(t, s.AppendMessage(ctx, chat.ID, "user_a", domain.Message{Role: role, Content: c, CreatedAt: at}))
	}

	got, err := s.GetChat(ctx, chat.ID, "user_a")
	require.NoError(t, err)
	require.Len(t, got.Messages, 3)
	for i, c := range contents {
		assert.Equal(t, c, got.Messages[i].Content)
	}
	assert.Equal(t, domain.RoleAssistant, got.Messages[1].Role)
	assert.True(t, got.UpdatedAt.After(chat.UpdatedAt), "updatedAt should move forward on append")
}

func TestDeleteChatRemovesMessages(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	chat, err := s.CreateChat(ctx, "user_a", domain.PlaceholderChatName)
	require.NoError(t, err)
	require.NoError(t, s.AppendMessage(ctx, chat.ID, "user_a", domain.Message{Role: domain.RoleUser, Content: "hi"}))
	require.NoError(t, s.DeleteChat(ctx, chat.ID, "user_a"))

	got, err := s.GetChat(ctx, chat.ID, "user_a")
	require.NoError(t, err)
	assert.Nil(t, got)

	var count int
	require.NoError(t, s.db.QueryRow("SELECT COUNT(*) FROM messages WHERE chat_id = ?", chat.ID).Scan(&count))
	assert.Zero(t, count)
}

func TestListChatsIncludesMessages(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	first, err := s.CreateChat(ctx, "user_a", "first")
	require.NoError(t, err)
	_, err = s.CreateChat(ctx, "user_a", "second")
	require.NoError(t, err)
	_, err = s.CreateChat(ctx, "user_b", "other")
	require.NoError(t, err)
	require.NoError(t, s.AppendMessage(ctx, first.ID, "user_a", domain.Message{Role: domain.RoleUser, Content: "hello"}))

	chats, err := s.ListChats(ctx, "user_a")
	require.NoError(t, err)
	require.Len(t, chats, 2)

	byName := map[string]domain.Chat{}
	for _, c := range chats {
		byName[c.Name] = c
	}
	require.Len(t, byName["first"].Messages, 1)
	assert.NotNil(t, byName["second"].Messages)
	assert.Empty(t, byName["second"].Messages)
}

func TestUserLifecycle(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.UpsertUser(ctx, domain.User{ID: "user_1", Name: "Ada Lovelace", Email: "ada@example.com"}))
	require.NoError(t, s.UpsertUser(ctx, domain.User{ID: "user_1", Name: "Ada King", Email: "ada@example.com", Image: "https://img/ada.png"}))

	u, err := s.GetUser(ctx, "user_1")
	require.NoError(t, err)
	require.NotNil(t, u)
	assert.Equal(t, "Ada King", u.Name)
	assert.Equal(t, "https://img/ada.png", u.Image)

	require.NoError(t, s.DeleteUser(ctx, "user_1"))
	u, err = s.GetUser(ctx, "user_1")
	require.NoError(t, err)
	assert.Nil(t, u)
}
