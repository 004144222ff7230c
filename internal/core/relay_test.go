package core

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gwi.com/deepchat/internal/apierr"
	"gwi.com/deepchat/internal/domain"
	"gwi.com/deepchat/internal/sse"
)

type recorder struct {
	events []sse.Event
}

func (r *recorder) emit(ev sse.Event) error {
	r.events = append(r.events, ev)
	return nil
}

func (r *recorder) fragments() string {
	var b strings.Builder
	for _, ev := range r.events {
		if ev.Kind == sse.KindFragment {
			b.WriteString(ev.Content)
		}
	}
	return b.String()
}

func (r *recorder) terminals() []sse.Event {
	var out []sse.Event
	for _, ev := range r.events {
		if ev.Terminal() {
			out = append(out, ev)
		}
	}
	return out
}

func TestRelayStreamsAndPersistsReply(t *testing.T) {
	conn := newTestConnector(t)
	chat, err := NewChatService(conn).CreateChat(context.Background(), "user_a")
	require.NoError(t, err)

	provider := &scriptedProvider{fragments: []string{"Hel", "lo", ", ", "world"}}
	relay := NewRelayService(conn, provider, time.Minute)

	rs, err := relay.Submit(context.Background(), "user_a", chat.ID, "hello")
	require.NoError(t, err)
	assert.Equal(t, StateUserMessagePersisted, rs.State())

	rec := &recorder{}
	reply, err := rs.Run(context.Background(), rec.emit)
	require.NoError(t, err)
	assert.Equal(t, StateCompleted, rs.State())

	// Fragments concatenate to the terminal message, which is the last event.
	terms := rec.terminals()
	require.Len(t, terms, 1)
	last := rec.events[len(rec.events)-1]
	require.Equal(t, sse.KindSuccess, last.Kind)
	assert.Equal(t, rec.fragments(), last.Message.Content)
	assert.Equal(t, "Hello, world", reply.Content)
	assert.Equal(t, []string{"hello"}, provider.prompts)

	got, err := mustStore(t, conn).GetChat(context.Background(), chat.ID, "user_a")
	require.NoError(t, err)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, domain.RoleUser, got.Messages[0].Role)
	assert.Equal(t, "hello", got.Messages[0].Content)
	assert.Equal(t, domain.RoleAssistant, got.Messages[1].Role)
	assert.Equal(t, "Hello, world", got.Messages[1].Content)
}

func TestRelayPersistsPromptOnceBeforeFirstFragment(t *testing.T) {
	conn := newTestConnector(t)
	chat, err := NewChatService(conn).CreateChat(context.Background(), "user_a")
	require.NoError(t, err)
	db := mustStore(t, conn)

	var seenAtFirstFragment []domain.Message
	provider := &scriptedProvider{fragments: []string{"a", "b"}}
	relay := NewRelayService(conn, provider, 0)

	rs, err := relay.Submit(context.Background(), "user_a", chat.ID, "question")
	require.NoError(t, err)

	emit := func(ev sse.Event) error {
		if ev.Kind == sse.KindFragment && seenAtFirstFragment == nil {
			got, err := db.GetChat(context.Background(), chat.ID, "user_a")
			require.NoError(t, err)
			seenAtFirstFragment = got.Messages
		}
		return nil
	}
	_, err = rs.Run(context.Background(), emit)
	require.NoError(t, err)

	require.Len(t, seenAtFirstFragment, 1)
	assert.Equal(t, domain.RoleUser, seenAtFirstFragment[0].Role)
	assert.Equal(t, "question", seenAtFirstFragment[0].Content)

	got, err := db.GetChat(context.Background(), chat.ID, "user_a")
	require.NoError(t, err)
	userMessages := 0
	for _, m := range got.Messages {
		if m.Role == domain.RoleUser {
			userMessages++
		}
	}
	assert.Equal(t, 1, userMessages)
}

func TestRelayProviderFailureAfterFragments(t *testing.T) {
	conn := newTestConnector(t)
	chat, err := NewChatService(conn).CreateChat(context.Background(), "user_a")
	require.NoError(t, err)

	provider := &scriptedProvider{fragments: []string{"part", "ial"}, err: errors.New("connection reset by peer")}
	relay := NewRelayService(conn, provider, 0)

	rs, err := relay.Submit(context.Background(), "user_a", chat.ID, "hello")
	require.NoError(t, err)

	rec := &recorder{}
	_, err = rs.Run(context.Background(), rec.emit)
	require.Error(t, err)
	assert.True(t, apierr.Is(err, apierr.KindUpstream))
	assert.Equal(t, StateFailed, rs.State())

	terms := rec.terminals()
	require.Len(t, terms, 1)
	assert.Equal(t, sse.KindFailure, terms[0].Kind)
	assert.Contains(t, terms[0].Error, "connection reset by peer")
	assert.Equal(t, "partial", rec.fragments())

	got, err := mustStore(t, conn).GetChat(context.Background(), chat.ID, "user_a")
	require.NoError(t, err)
	require.Len(t, got.Messages, 1, "no assistant message may be stored after a failure")
	assert.Equal(t, domain.RoleUser, got.Messages[0].Role)
}

func TestRelayTimeoutIsTerminalFailure(t *testing.T) {
	conn := newTestConnector(t)
	chat, err := NewChatService(conn).CreateChat(context.Background(), "user_a")
	require.NoError(t, err)

	relay := NewRelayService(conn, blockingProvider{}, 20*time.Millisecond)
	rs, err := relay.Submit(context.Background(), "user_a", chat.ID, "hello")
	require.NoError(t, err)

	rec := &recorder{}
	_, err = rs.Run(context.Background(), rec.emit)
	require.Error(t, err)
	require.Len(t, rec.events, 1)
	assert.Equal(t, sse.KindFailure, rec.events[0].Kind)
	assert.Contains(t, rec.events[0].Error, "timed out")
}

func TestRelayEmitFailureStopsStream(t *testing.T) {
	conn := newTestConnector(t)
	chat, err := NewChatService(conn).CreateChat(context.Background(), "user_a")
	require.NoError(t, err)

	relay := NewRelayService(conn, &scriptedProvider{fragments: []string{"a", "b", "c"}}, 0)
	rs, err := relay.Submit(context.Background(), "user_a", chat.ID, "hello")
	require.NoError(t, err)

	calls := 0
	_, err = rs.Run(context.Background(), func(ev sse.Event) error {
		calls++
		return errors.New("client went away")
	})
	require.Error(t, err)
	// One failed fragment plus the attempted failure event.
	assert.Equal(t, 2, calls)

	got, err := mustStore(t, conn).GetChat(context.Background(), chat.ID, "user_a")
	require.NoError(t, err)
	assert.Len(t, got.Messages, 1)
}

func TestRelaySubmitRejects(t *testing.T) {
	conn := newTestConnector(t)
	chat, err := NewChatService(conn).CreateChat(context.Background(), "owner")
	require.NoError(t, err)

	provider := &scriptedProvider{fragments: []string{"x"}}
	relay := NewRelayService(conn, provider, 0)

	tests := []struct {
		name   string
		userID string
		chatID string
		prompt string
		kind   apierr.Kind
	}{
		{"no identity", "", chat.ID, "hi", apierr.KindUnauthorized},
		{"no chat id", "owner", "", "hi", apierr.KindValidation},
		{"blank prompt", "owner", chat.ID, "   ", apierr.KindValidation},
		{"unknown chat", "owner", "bogus", "hi", apierr.KindNotFound},
		{"foreign chat", "someone-else", chat.ID, "hi", apierr.KindNotFound},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := relay.Submit(context.Background(), tc.userID, tc.chatID, tc.prompt)
			require.Error(t, err)
			assert.True(t, apierr.Is(err, tc.kind), "got %v", err)
		})
	}

	assert.Empty(t, provider.prompts, "provider must not be called for rejected prompts")
	got, err := mustStore(t, conn).GetChat(context.Background(), chat.ID, "owner")
	require.NoError(t, err)
	assert.Empty(t, got.Messages)
}

func TestRelaySessionRunsOnce(t *testing.T) {
	conn := newTestConnector(t)
	chat, err := NewChatService(conn).CreateChat(context.Background(), "user_a")
	require.NoError(t, err)

	relay := NewRelayService(conn, &scriptedProvider{fragments: []string{"ok"}}, 0)
	rs, err := relay.Submit(context.Background(), "user_a", chat.ID, "hello")
	require.NoError(t, err)

	rec := &recorder{}
	_, err = rs.Run(context.Background(), rec.emit)
	require.NoError(t, err)
	_, err = rs.Run(context.Background(), rec.emit)
	assert.Error(t, err)
}
