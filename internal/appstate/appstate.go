// Package appstate holds the signed-in user's chat list and selection on the
// client side and applies prompt exchanges optimistically.
package appstate

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"gwi.com/deepchat/internal/domain"
)

// AutoNameLength is how many characters of the first reply become the chat
// name.
const AutoNameLength = 12

var (
	ErrNoChatSelected = errors.New("no chat selected")
	ErrEmptyPrompt    = errors.New("prompt is empty")
	ErrBusy           = errors.New("a reply is still streaming")
)

// API is the subset of the chat server the store needs.
type API interface {
	CreateChat(ctx context.Context) error
	ListChats(ctx context.Context) ([]domain.Chat, error)
	RenameChat(ctx context.Context, chatID, name string) error
	DeleteChat(ctx context.Context, chatID string) error
	SendPrompt(ctx context.Context, chatID, prompt string, onFragment func(string)) (*domain.Message, error)
}

type Level int

const (
	LevelInfo Level = iota
	LevelError
)

// Notification is a short-lived user-facing message.
type Notification struct {
	Level Level
	Text  string
}

type Notifier func(Notification)

type Store struct {
	api    API
	notify Notifier
	now    func() time.Time

	mu        sync.RWMutex
	chats     []domain.Chat
	selected  string
	streaming bool

	renames sync.WaitGroup
}

func New(api API, notify Notifier) *Store {
	if notify == nil {
		notify = func(Notification) {}
	}
	return &Store{api: api, notify: notify, now: time.Now}
}

func (s *Store) info(text string) {
	s.notify(Notification{Level: LevelInfo, Text: text})
}

func (s *Store) fail(err error) error {
	s.notify(Notification{Level: LevelError, Text: err.Error()})
	return err
}

// Load fetches the chat list, creating a first chat when the user has none,
// and selects the most recently updated one.
func (s *Store) Load(ctx context.Context) error {
	chats, err := s.api.ListChats(ctx)
	if err != nil {
		return s.fail(errors.Wrap(err, "failed to load chats"))
	}
	if len(chats) == 0 {
		if err := s.api.CreateChat(ctx); err != nil {
			return s.fail(errors.Wrap(err, "failed to create chat"))
		}
		if chats, err = s.api.ListChats(ctx); err != nil {
			return s.fail(errors.Wrap(err, "failed to load chats"))
		}
	}
	s.replace(chats)
	return nil
}

func (s *Store) replace(chats []domain.Chat) {
	sort.SliceStable(chats, func(i, j int) bool {
		return chats[i].UpdatedAt.After(chats[j].UpdatedAt)
	})

	s.mu.Lock()
	defer s.mu.Unlock()
	s.chats = chats
	s.selected = ""
	if len(chats) > 0 {
		s.selected = chats[0].ID
	}
}

// Chats returns a copy of the chat list in display order.
func (s *Store) Chats() []domain.Chat {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Chat, len(s.chats))
	for i, c := range s.chats {
		out[i] = copyChat(c)
	}
	return out
}

// Selected returns a copy of the selected chat, or nil.
func (s *Store) Selected() *domain.Chat {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i := s.indexOf(s.selected); i >= 0 {
		c := copyChat(s.chats[i])
		return &c
	}
	return nil
}

func (s *Store) Streaming() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.streaming
}

func (s *Store) Select(chatID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.indexOf(chatID) < 0 {
		return false
	}
	s.selected = chatID
	return true
}

func (s *Store) CreateChat(ctx context.Context) error {
	if err := s.api.CreateChat(ctx); err != nil {
		return s.fail(errors.Wrap(err, "failed to create chat"))
	}
	s.info("New chat created")
	return s.Load(ctx)
}

func (s *Store) Rename(ctx context.Context, chatID, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return s.fail(errors.New("name cannot be empty"))
	}
	if err := s.api.RenameChat(ctx, chatID, name); err != nil {
		return s.fail(errors.Wrap(err, "failed to rename chat"))
	}
	s.mu.Lock()
	if i := s.indexOf(chatID); i >= 0 {
		s.chats[i].Name = name
	}
	s.mu.Unlock()
	s.info("Chat renamed")
	return nil
}

// Delete removes the chat and reloads, which reselects and recreates a chat
// if needed.
func (s *Store) Delete(ctx context.Context, chatID string) error {
	if err := s.api.DeleteChat(ctx, chatID); err != nil {
		return s.fail(errors.Wrap(err, "failed to delete chat"))
	}
	s.info("Chat deleted")
	return s.Load(ctx)
}

// Submit sends prompt to the selected chat. The user message and an empty
// assistant placeholder are shown immediately; onUpdate runs after every
// fragment is applied. On failure the placeholder is dropped, the user message
// stays and the prompt is returned so the caller can restore its input.
func (s *Store) Submit(ctx context.Context, prompt string, onUpdate func()) (string, error) {
	if strings.TrimSpace(prompt) == "" {
		return prompt, ErrEmptyPrompt
	}
	ex, err := s.begin(prompt)
	if err != nil {
		return prompt, s.fail(err)
	}
	if onUpdate != nil {
		onUpdate()
	}

	reply, err := s.api.SendPrompt(ctx, ex.chatID, prompt, func(fragment string) {
		s.apply(ex, fragment)
		if onUpdate != nil {
			onUpdate()
		}
	})
	if err != nil {
		s.revert(ex)
		return prompt, s.fail(err)
	}

	if name, ok := s.confirm(ex, *reply); ok {
		s.renameInBackground(ex.chatID, name)
	}
	return "", nil
}

// Wait blocks until background renames have finished.
func (s *Store) Wait() {
	s.renames.Wait()
}

// exchange tracks one tentative prompt/reply pair.
type exchange struct {
	chatID      string
	placeholder int
}

func (s *Store) begin(prompt string) (*exchange, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.streaming {
		return nil, ErrBusy
	}
	i := s.indexOf(s.selected)
	if i < 0 {
		return nil, ErrNoChatSelected
	}

	now := s.now()
	chat := &s.chats[i]
	chat.Messages = append(chat.Messages,
		domain.Message{Role: domain.RoleUser, Content: prompt, CreatedAt: now},
		domain.Message{Role: domain.RoleAssistant, CreatedAt: now},
	)
	s.streaming = true
	return &exchange{chatID: chat.ID, placeholder: len(chat.Messages) - 1}, nil
}

func (s *Store) placeholderOf(ex *exchange) *domain.Message {
	i := s.indexOf(ex.chatID)
	if i < 0 || ex.placeholder >= len(s.chats[i].Messages) {
		return nil
	}
	return &s.chats[i].Messages[ex.placeholder]
}

func (s *Store) apply(ex *exchange, fragment string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if msg := s.placeholderOf(ex); msg != nil {
		msg.Content += fragment
	}
}

func (s *Store) revert(ex *exchange) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.streaming = false
	if i := s.indexOf(ex.chatID); i >= 0 && ex.placeholder < len(s.chats[i].Messages) {
		msgs := s.chats[i].Messages
		s.chats[i].Messages = append(msgs[:ex.placeholder:ex.placeholder], msgs[ex.placeholder+1:]...)
	}
}

// confirm swaps in the stored reply and reports the name to give a chat that
// still has the placeholder name.
func (s *Store) confirm(ex *exchange, reply domain.Message) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.streaming = false
	msg := s.placeholderOf(ex)
	if msg == nil {
		return "", false
	}
	*msg = reply

	chat := &s.chats[s.indexOf(ex.chatID)]
	chat.UpdatedAt = reply.CreatedAt
	if !chat.HasPlaceholderName() {
		return "", false
	}
	name := AutoName(reply.Content)
	if name == "" {
		return "", false
	}
	chat.Name = name
	return name, true
}

func (s *Store) renameInBackground(chatID, name string) {
	s.renames.Add(1)
	go func() {
		defer s.renames.Done()
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := s.api.RenameChat(ctx, chatID, name); err != nil {
			log.WithError(err).Warnf("Automatic rename of chat %s failed", chatID)
		}
	}()
}

// AutoName returns the first AutoNameLength characters of reply.
func AutoName(reply string) string {
	runes := []rune(strings.TrimSpace(reply))
	if len(runes) > AutoNameLength {
		runes = runes[:AutoNameLength]
	}
	return string(runes)
}

func (s *Store) indexOf(chatID string) int {
	if chatID == "" {
		return -1
	}
	for i := range s.chats {
		if s.chats[i].ID == chatID {
			return i
		}
	}
	return -1
}

func copyChat(c domain.Chat) domain.Chat {
	c.Messages = append([]domain.Message(nil), c.Messages...)
	return c
}
