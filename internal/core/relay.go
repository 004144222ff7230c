package core

import (
	"context"
	"strings"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"gwi.com/deepchat/internal/apierr"
	"gwi.com/deepchat/internal/domain"
	"gwi.com/deepchat/internal/metrics"
	"gwi.com/deepchat/internal/sse"
	"gwi.com/deepchat/internal/store"
)

// RelayState is the lifecycle of one relay invocation:
// Idle -> UserMessagePersisted -> Streaming -> Completed | Failed.
type RelayState int

const (
	StateIdle RelayState = iota
	StateUserMessagePersisted
	StateStreaming
	StateCompleted
	StateFailed
)

func (s RelayState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateUserMessagePersisted:
		return "user_message_persisted"
	case StateStreaming:
		return "streaming"
	case StateCompleted:
		return "completed"
	case StateFailed:
		return "failed"
	}
	return "unknown"
}

// EmitFunc delivers one event to the caller.
type EmitFunc func(sse.Event) error

// RelayService bridges a user prompt to a streamed assistant reply.
type RelayService struct {
	stores   *store.Connector
	provider CompletionProvider
	timeout  time.Duration
	now      func() time.Time
}

// NewRelayService returns a relay. A zero timeout leaves the provider stream
// bounded only by the request context.
func NewRelayService(stores *store.Connector, provider CompletionProvider, timeout time.Duration) *RelayService {
	return &RelayService{stores: stores, provider: provider, timeout: timeout, now: time.Now}
}

// RelaySession is one accepted prompt whose user message is already stored.
type RelaySession struct {
	svc    *RelayService
	db     store.Store
	userID string
	chatID string
	prompt string
	state  RelayState
}

// Submit checks that chatID belongs to userID and persists the prompt as a
// user message. Nothing has been sent to the caller yet when it returns, so
// its errors can still be reported as a plain response.
func (s *RelayService) Submit(ctx context.Context, userID, chatID, prompt string) (*RelaySession, error) {
	if userID == "" {
		return nil, apierr.Unauthorized()
	}
	if chatID == "" {
		return nil, apierr.Validation(errors.New("chatId is required"))
	}
	if strings.TrimSpace(prompt) == "" {
		return nil, apierr.Validation(errors.New("prompt is required"))
	}

	db, err := s.stores.Get(ctx)
	if err != nil {
		return nil, apierr.Persistence(err)
	}

	chat, err := db.GetChat(ctx, chatID, userID)
	if err != nil {
		return nil, apierr.Persistence(err)
	}
	if chat == nil {
		return nil, apierr.NotFound("chat")
	}

	rs := &RelaySession{svc: s, db: db, userID: userID, chatID: chatID, prompt: prompt, state: StateIdle}
	userMsg := domain.Message{Role: domain.RoleUser, Content: prompt, CreatedAt: s.now()}
	if err := db.AppendMessage(ctx, chatID, userID, userMsg); err != nil {
		if errors.Is(err, store.ErrChatNotFound) {
			return nil, apierr.NotFound("chat")
		}
		return nil, apierr.Persistence(err)
	}
	rs.state = StateUserMessagePersisted
	return rs, nil
}

func (rs *RelaySession) State() RelayState {
	return rs.state
}

// Run streams the completion to emit and finishes with exactly one terminal
// event. The assistant message is persisted only when the provider stream
// completed; it is returned on success.
func (rs *RelaySession) Run(ctx context.Context, emit EmitFunc) (*domain.Message, error) {
	if rs.state != StateUserMessagePersisted {
		return nil, errors.Errorf("relay session cannot run from state %s", rs.state)
	}
	rs.state = StateStreaming
	start := time.Now()

	streamCtx := ctx
	if rs.svc.timeout > 0 {
		var cancel context.CancelFunc
		streamCtx, cancel = context.WithTimeout(ctx, rs.svc.timeout)
		defer cancel()
	}

	var full strings.Builder
	err := rs.svc.provider.StreamCompletion(streamCtx, rs.prompt, func(fragment string) error {
		full.WriteString(fragment)
		if err := emit(sse.Fragment(fragment)); err != nil {
			return errors.Wrap(err, "failed to forward fragment")
		}
		metrics.RelayFragments.Inc()
		return nil
	})
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			err = errors.Wrap(err, "completion timed out")
		}
		return nil, rs.fail(emit, apierr.Upstream(err), start)
	}

	reply := domain.Message{Role: domain.RoleAssistant, Content: full.String(), CreatedAt: rs.svc.now()}
	if err := rs.db.AppendMessage(ctx, rs.chatID, rs.userID, reply); err != nil {
		return nil, rs.fail(emit, apierr.Persistence(err), start)
	}

	rs.state = StateCompleted
	metrics.RelaySessions.WithLabelValues("completed").Inc()
	metrics.RelayDuration.WithLabelValues("completed").Observe(time.Since(start).Seconds())
	if err := emit(sse.Succeeded(reply)); err != nil {
		log.WithError(err).Warnf("Reply for chat %s was stored but the client did not receive it", rs.chatID)
	}
	return &reply, nil
}

func (rs *RelaySession) fail(emit EmitFunc, err *apierr.Error, start time.Time) error {
	rs.state = StateFailed
	metrics.RelaySessions.WithLabelValues("failed").Inc()
	metrics.RelayDuration.WithLabelValues("failed").Observe(time.Since(start).Seconds())
	log.WithError(err).Errorf("Relay for chat %s failed (%s)", rs.chatID, err.Kind)

	if emitErr := emit(sse.Failed(err.Error())); emitErr != nil {
		log.WithError(emitErr).Warnf("Could not deliver failure event for chat %s", rs.chatID)
	}
	return err
}
