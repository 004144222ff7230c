package core

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gwi.com/deepchat/internal/apierr"
	"gwi.com/deepchat/internal/domain"
	"gwi.com/deepchat/internal/store"
)

func TestCreateChatUsesPlaceholder(t *testing.T) {
	svc := NewChatService(newTestConnector(t))
	ctx := context.Background()

	chat, err := svc.CreateChat(ctx, "user_a")
	require.NoError(t, err)
	assert.Equal(t, domain.PlaceholderChatName, chat.Name)
	assert.Empty(t, chat.Messages)

	chats, err := svc.GetChats(ctx, "user_a")
	require.NoError(t, err)
	require.Len(t, chats, 1)
	assert.Equal(t, chat.ID, chats[0].ID)
}

func TestChatServiceRequiresIdentity(t *testing.T) {
	svc := NewChatService(newTestConnector(t))
	ctx := context.Background()

	_, err := svc.CreateChat(ctx, "")
	assert.True(t, apierr.Is(err, apierr.KindUnauthorized))
	_, err = svc.GetChats(ctx, "")
	assert.True(t, apierr.Is(err, apierr.KindUnauthorized))
	assert.True(t, apierr.Is(svc.RenameChat(ctx, "", "id", "x"), apierr.KindUnauthorized))
	assert.True(t, apierr.Is(svc.DeleteChat(ctx, "", "id"), apierr.KindUnauthorized))
}

func TestRenameAndDeleteAreOwnerScoped(t *testing.T) {
	conn := newTestConnector(t)
	svc := NewChatService(conn)
	ctx := context.Background()

	victim, err := svc.CreateChat(ctx, "victim")
	require.NoError(t, err)

	// Foreign ids report success but change nothing.
	require.NoError(t, svc.RenameChat(ctx, "attacker", victim.ID, "pwned"))
	require.NoError(t, svc.DeleteChat(ctx, "attacker", victim.ID))

	chats, err := svc.GetChats(ctx, "victim")
	require.NoError(t, err)
	require.Len(t, chats, 1)
	assert.Equal(t, domain.PlaceholderChatName, chats[0].Name)

	require.NoError(t, svc.RenameChat(ctx, "victim", victim.ID, "mine"))
	chats, err = svc.GetChats(ctx, "victim")
	require.NoError(t, err)
	assert.Equal(t, "mine", chats[0].Name)

	require.NoError(t, svc.DeleteChat(ctx, "victim", victim.ID))
	chats, err = svc.GetChats(ctx, "victim")
	require.NoError(t, err)
	assert.Empty(t, chats)
}

func TestChatServiceReportsPersistenceError(t *testing.T) {
	conn := store.NewConnector(func(ctx context.Context) (store.Store, error) {
		return nil, errors.New("connection refused")
	})
	svc := NewChatService(conn)

	_, err := svc.CreateChat(context.Background(), "user_a")
	assert.True(t, apierr.Is(err, apierr.KindPersistence))
	_, err = svc.GetChats(context.Background(), "user_a")
	assert.True(t, apierr.Is(err, apierr.KindPersistence))
}
