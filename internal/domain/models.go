package domain

import "time"

// PlaceholderChatName is the name every chat starts with until it is renamed.
const PlaceholderChatName = "新聊天"

// Role identifies the author of a Message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Valid reports whether r is one of the two known roles.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAssistant
}

// User mirrors the identity provider's profile. It is written by lifecycle
// webhooks only.
type User struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Image     string    `json:"image"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type Chat struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	Name      string    `json:"name"`
	Messages  []Message `json:"messages"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// HasPlaceholderName reports whether the chat has never been renamed.
func (c *Chat) HasPlaceholderName() bool {
	return c.Name == "" || c.Name == PlaceholderChatName
}

type Message struct {
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
}

// OpenMenu tracks which chat row has its context menu open. UI state only.
type OpenMenu struct {
	ID   string
	Open bool
}

// Toggle opens the menu for id, or closes it if it is already open there.
func (m OpenMenu) Toggle(id string) OpenMenu {
	if m.Open && m.ID == id {
		return OpenMenu{}
	}
	return OpenMenu{ID: id, Open: true}
}

// IsOpenFor reports whether the menu is open on the given chat row.
func (m OpenMenu) IsOpenFor(id string) bool {
	return m.Open && m.ID == id
}
