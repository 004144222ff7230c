package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3" // SQLite driver
	"github.com/pkg/errors"

	"gwi.com/deepchat/internal/domain"
)

type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(dataSourceName string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dataSourceName)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open database")
	}
	if err = db.Ping(); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "failed to ping database")
	}

	store := &SQLiteStore{db: db}
	if err = store.initSchema(); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "failed to initialize schema")
	}
	return store, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLiteStore) initSchema() error {
	schema := `
    CREATE TABLE IF NOT EXISTS users (
        id TEXT PRIMARY KEY,
        name TEXT NOT NULL DEFAULT '',
        email TEXT NOT NULL DEFAULT '',
        image TEXT NOT NULL DEFAULT '',
        created_at DATETIME NOT NULL,
        updated_at DATETIME NOT NULL
    );

    CREATE TABLE IF NOT EXISTS chats (
        id TEXT PRIMARY KEY, -- UUID
        user_id TEXT NOT NULL,
        name TEXT NOT NULL,
        created_at DATETIME NOT NULL,
        updated_at DATETIME NOT NULL
    );
    CREATE INDEX IF NOT EXISTS idx_chats_user_id ON chats (user_id);

    CREATE TABLE IF NOT EXISTS messages (
        seq INTEGER PRIMARY KEY AUTOINCREMENT, -- append order
        chat_id TEXT NOT NULL,
        role TEXT NOT NULL CHECK (role IN ('user', 'assistant')),
        content TEXT NOT NULL,
        created_at DATETIME NOT NULL,
        FOREIGN KEY (chat_id) REFERENCES chats (id)
    );
    CREATE INDEX IF NOT EXISTS idx_messages_chat_id ON messages (chat_id);
    `
	_, err := s.db.Exec(schema)
	return err
}

// User methods
func (s *SQLiteStore) UpsertUser(ctx context.Context, user domain.User) error {
	now := time.Now()
	_, err := s.db.ExecContext(ctx, `
        INSERT INTO users (id, name, email, image, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)
        ON CONFLICT(id) DO UPDATE SET name = excluded.name, email = excluded.email, image = excluded.image, updated_at = excluded.updated_at`,
		user.ID, user.Name, user.Email, user.Image, now, now)
	if err != nil {
		return errors.Wrapf(err, "failed to upsert user %s", user.ID)
	}
	return nil
}

func (s *SQLiteStore) GetUser(ctx context.Context, userID string) (*domain.User, error) {
	var user domain.User
	err := s.db.QueryRowContext(ctx, "SELECT id, name, email, image, created_at, updated_at FROM users WHERE id = ?", userID).
		Scan(&user.ID, &user.Name, &user.Email, &user.Image, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil // User not found
		}
		return nil, errors.Wrap(err, "failed to query user")
	}
	return &user, nil
}

func (s *SQLiteStore) DeleteUser(ctx context.Context, userID string) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM users WHERE id = ?", userID); err != nil {
		return errors.Wrapf(err, "failed to delete user %s", userID)
	}
	return nil
}

// Chat methods
func (s *SQLiteStore) CreateChat(ctx context.Context, userID, name string) (*domain.Chat, error) {
	chatID := uuid.NewString()
	stmt, err := s.db.PrepareContext(ctx, "INSERT INTO chats (id, user_id, name, created_at, updated_at) VALUES (?, ?, ?, ?, ?)")
	if err != nil {
		return nil, errors.Wrap(err, "failed to prepare chat insert")
	}
	defer stmt.Close()

	now := time.Now()
	if _, err = stmt.ExecContext(ctx, chatID, userID, name, now, now); err != nil {
		return nil, errors.Wrap(err, "failed to execute chat insert")
	}
	return &domain.Chat{ID: chatID, UserID: userID, Name: name, Messages: []domain.Message{}, CreatedAt: now, UpdatedAt: now}, nil
}

func (s *SQLiteStore) GetChat(ctx context.Context, chatID, userID string) (*domain.Chat, error) {
	var chat domain.Chat
	err := s.db.QueryRowContext(ctx, "SELECT id, user_id, name, created_at, updated_at FROM chats WHERE id = ? AND user_id = ?", chatID, userID).
		Scan(&chat.ID, &chat.UserID, &chat.Name, &chat.CreatedAt, &chat.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil // Not found
		}
		return nil, errors.Wrap(err, "failed to get chat")
	}

	chat.Messages, err = s.messagesByChatID(ctx, chat.ID)
	if err != nil {
		return nil, err
	}
	return &chat, nil
}

func (s *SQLiteStore) ListChats(ctx context.Context, userID string) ([]domain.Chat, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT id, user_id, name, created_at, updated_at FROM chats WHERE user_id = ? ORDER BY created_at ASC", userID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query chats")
	}
	defer rows.Close()

	chats := []domain.Chat{}
	for rows.Next() {
		var chat domain.Chat
		if err := rows.Scan(&chat.ID, &chat.UserID, &chat.Name, &chat.CreatedAt, &chat.UpdatedAt); err != nil {
			return nil, errors.Wrap(err, "failed to scan chat row")
		}
		chats = append(chats, chat)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to iterate chats")
	}
	rows.Close()

	for i := range chats {
		if chats[i].Messages, err = s.messagesByChatID(ctx, chats[i].ID); err != nil {
			return nil, err
		}
	}
	return chats, nil
}

func (s *SQLiteStore) RenameChat(ctx context.Context, chatID, userID, name string) error {
	stmt, err := s.db.PrepareContext(ctx, "UPDATE chats SET name = ?, updated_at = ? WHERE id = ? AND user_id = ?")
	if err != nil {
		return errors.Wrap(err, "failed to prepare chat rename")
	}
	defer stmt.Close()

	if _, err := stmt.ExecContext(ctx, name, time.Now(), chatID, userID); err != nil {
		return errors.Wrap(err, "failed to execute chat rename")
	}
	return nil
}

func (s *SQLiteStore) DeleteChat(ctx context.Context, chatID, userID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "failed to begin chat delete")
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, "DELETE FROM chats WHERE id = ? AND user_id = ?", chatID, userID)
	if err != nil {
		return errors.Wrap(err, "failed to delete chat")
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return nil
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM messages WHERE chat_id = ?", chatID); err != nil {
		return errors.Wrap(err, "failed to delete chat messages")
	}
	return errors.Wrap(tx.Commit(), "failed to commit chat delete")
}

// Message methods
func (s *SQLiteStore) AppendMessage(ctx context.Context, chatID, userID string, msg domain.Message) error {
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "failed to begin message append")
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, "UPDATE chats SET updated_at = ? WHERE id = ? AND user_id = ?", msg.CreatedAt, chatID, userID)
	if err != nil {
		return errors.Wrap(err, "failed to touch chat")
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return ErrChatNotFound
	}

	if _, err := tx.ExecContext(ctx, "INSERT INTO messages (chat_id, role, content, created_at) VALUES (?, ?, ?, ?)",
		chatID, string(msg.Role), msg.Content, msg.CreatedAt); err != nil {
		return errors.Wrap(err, "failed to execute message insert")
	}
	return errors.Wrap(tx.Commit(), "failed to commit message append")
}

func (s *SQLiteStore) messagesByChatID(ctx context.Context, chatID string) ([]domain.Message, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT role, content, created_at FROM messages WHERE chat_id = ? ORDER BY seq ASC", chatID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query messages")
	}
	defer rows.Close()

	messages := []domain.Message{}
	for rows.Next() {
		var msg domain.Message
		var role string
		if err := rows.Scan(&role, &msg.Content, &msg.CreatedAt); err != nil {
			return nil, errors.Wrap(err, "failed to scan message row")
		}
		msg.Role = domain.Role(role)
		messages = append(messages, msg)
	}
	return messages, errors.Wrap(rows.Err(), "failed to iterate messages")
}
