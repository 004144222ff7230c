package identity

import (
	"context"
	"strings"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"

	"gwi.com/deepchat/internal/domain"
	"gwi.com/deepchat/internal/store"
)

type EventType string

const (
	UserCreated EventType = "user.created"
	UserUpdated EventType = "user.updated"
	UserDeleted EventType = "user.deleted"
)

type Event struct {
	Type EventType
	User domain.User
}

// ParseEvent extracts the event type and user profile from a webhook body.
func ParseEvent(payload []byte) (Event, error) {
	if !gjson.ValidBytes(payload) {
		return Event{}, errors.New("webhook payload is not valid JSON")
	}
	doc := gjson.ParseBytes(payload)

	ev := Event{Type: EventType(doc.Get("type").String())}
	data := doc.Get("data")
	ev.User = domain.User{
		ID:    data.Get("id").String(),
		Email: data.Get("email_addresses.0.email_address").String(),
		Name:  strings.TrimSpace(data.Get("first_name").String() + " " + data.Get("last_name").String()),
		Image: data.Get("image_url").String(),
	}
	if ev.User.ID == "" {
		return Event{}, errors.New("webhook payload has no user id")
	}
	return ev, nil
}

// Syncer applies verified lifecycle events to the store.
type Syncer struct {
	stores *store.Connector
}

func NewSyncer(stores *store.Connector) *Syncer {
	return &Syncer{stores: stores}
}

func (s *Syncer) Apply(ctx context.Context, ev Event) error {
	db, err := s.stores.Get(ctx)
	if err != nil {
		return err
	}

	switch ev.Type {
	case UserCreated, UserUpdated:
		err = db.UpsertUser(ctx, ev.User)
	case UserDeleted:
		err = db.DeleteUser(ctx, ev.User.ID)
	default:
		log.Debugf("Ignoring identity event %q for user %s", ev.Type, ev.User.ID)
		return nil
	}
	if err != nil {
		return errors.Wrapf(err, "failed to apply %s", ev.Type)
	}
	log.Infof("Applied identity event %s for user %s", ev.Type, ev.User.ID)
	return nil
}
