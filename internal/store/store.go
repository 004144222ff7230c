package store

import (
	"context"
	"strings"

	"github.com/pkg/errors"

	"gwi.com/deepchat/internal/domain"
)

// ErrChatNotFound is returned when a chat id does not resolve to a chat owned
// by the given user.
var ErrChatNotFound = errors.New("chat not found")

// Store persists users and chats. Every chat operation is scoped to the
// (chatID, userID) pair; a chat owned by someone else behaves as if it did not
// exist.
type Store interface {
	Ping(ctx context.Context) error
	Close() error

	UpsertUser(ctx context.Context, user domain.User) error
	GetUser(ctx context.Context, userID string) (*domain.User, error)
	DeleteUser(ctx context.Context, userID string) error

	CreateChat(ctx context.Context, userID, name string) (*domain.Chat, error)
	// GetChat returns nil, nil when the chat is missing or not owned by userID.
	GetChat(ctx context.Context, chatID, userID string) (*domain.Chat, error)
	ListChats(ctx context.Context, userID string) ([]domain.Chat, error)
	// RenameChat and DeleteChat silently do nothing for unknown or foreign ids.
	RenameChat(ctx context.Context, chatID, userID, name string) error
	DeleteChat(ctx context.Context, chatID, userID string) error
	// AppendMessage returns ErrChatNotFound for unknown or foreign ids.
	AppendMessage(ctx context.Context, chatID, userID string, msg domain.Message) error
}

// Open dials the backend named by databaseURL: a mongodb:// or mongodb+srv://
// URL selects MongoDB, anything else is treated as a SQLite data source.
func Open(ctx context.Context, databaseURL string) (Store, error) {
	if strings.HasPrefix(databaseURL, "mongodb://") || strings.HasPrefix(databaseURL, "mongodb+srv://") {
		return NewMongoStore(ctx, databaseURL)
	}
	return NewSQLiteStore(databaseURL)
}
