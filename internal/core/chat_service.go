package core

import (
	"context"

	log "github.com/sirupsen/logrus"

	"gwi.com/deepchat/internal/apierr"
	"gwi.com/deepchat/internal/domain"
	"gwi.com/deepchat/internal/metrics"
	"gwi.com/deepchat/internal/store"
)

// ChatService implements the chat record operations. Every call is scoped to
// the verified user id; ownership is enforced by the store's (chatID, userID)
// filters.
type ChatService struct {
	stores *store.Connector
}

func NewChatService(stores *store.Connector) *ChatService {
	return &ChatService{stores: stores}
}

func (s *ChatService) db(ctx context.Context) (store.Store, error) {
	db, err := s.stores.Get(ctx)
	if err != nil {
		return nil, apierr.Persistence(err)
	}
	return db, nil
}

func (s *ChatService) CreateChat(ctx context.Context, userID string) (chat *domain.Chat, err error) {
	defer func() { metrics.ObserveChatOperation("create", err) }()
	if userID == "" {
		return nil, apierr.Unauthorized()
	}
	db, err := s.db(ctx)
	if err != nil {
		return nil, err
	}

	chat, err = db.CreateChat(ctx, userID, domain.PlaceholderChatName)
	if err != nil {
		return nil, apierr.Persistence(err)
	}
	log.Debugf("Created chat %s for user %s", chat.ID, userID)
	return chat, nil
}

// GetChats returns every chat the user owns, messages included. Ordering is
// left to the caller.
func (s *ChatService) GetChats(ctx context.Context, userID string) (chats []domain.Chat, err error) {
	defer func() { metrics.ObserveChatOperation("list", err) }()
	if userID == "" {
		return nil, apierr.Unauthorized()
	}
	db, err := s.db(ctx)
	if err != nil {
		return nil, err
	}

	chats, err = db.ListChats(ctx, userID)
	if err != nil {
		return nil, apierr.Persistence(err)
	}
	return chats, nil
}

// RenameChat succeeds even when chatID matches no chat the user owns.
func (s *ChatService) RenameChat(ctx context.Context, userID, chatID, name string) (err error) {
	defer func() { metrics.ObserveChatOperation("rename", err) }()
	if userID == "" {
		return apierr.Unauthorized()
	}
	db, err := s.db(ctx)
	if err != nil {
		return err
	}

	if err := db.RenameChat(ctx, chatID, userID, name); err != nil {
		return apierr.Persistence(err)
	}
	return nil
}

// DeleteChat succeeds even when chatID matches no chat the user owns.
func (s *ChatService) DeleteChat(ctx context.Context, userID, chatID string) (err error) {
	defer func() { metrics.ObserveChatOperation("delete", err) }()
	if userID == "" {
		return apierr.Unauthorized()
	}
	db, err := s.db(ctx)
	if err != nil {
		return err
	}

	if err := db.DeleteChat(ctx, chatID, userID); err != nil {
		return apierr.Persistence(err)
	}
	return nil
}
