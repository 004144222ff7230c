// Package sse carries the relay's server-sent events: a three-way tagged union
// of fragment, success and failure, plus the writer and decoder for the
// `data: <json>\n\n` wire format.
package sse

import (
	"encoding/json"

	"github.com/pkg/errors"

	"gwi.com/deepchat/internal/domain"
)

type Kind int

const (
	KindFragment Kind = iota
	KindSuccess
	KindFailure
)

func (k Kind) String() string {
	switch k {
	case KindFragment:
		return "fragment"
	case KindSuccess:
		return "success"
	case KindFailure:
		return "failure"
	}
	return "unknown"
}

// Event is one relay payload. Only the fields belonging to Kind are set.
type Event struct {
	Kind    Kind
	Content string          // KindFragment
	Message *domain.Message // KindSuccess
	Error   string          // KindFailure
}

func Fragment(content string) Event {
	return Event{Kind: KindFragment, Content: content}
}

func Succeeded(msg domain.Message) Event {
	return Event{Kind: KindSuccess, Message: &msg}
}

func Failed(message string) Event {
	return Event{Kind: KindFailure, Error: message}
}

// Terminal reports whether the event ends the stream.
func (e Event) Terminal() bool {
	return e.Kind == KindSuccess || e.Kind == KindFailure
}

type fragmentPayload struct {
	Content string `json:"content"`
}

type successPayload struct {
	Success bool           `json:"success"`
	Data    domain.Message `json:"data"`
}

type failurePayload struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

func (e Event) MarshalJSON() ([]byte, error) {
	switch e.Kind {
	case KindFragment:
		return json.Marshal(fragmentPayload{Content: e.Content})
	case KindSuccess:
		if e.Message == nil {
			return nil, errors.New("success event without message")
		}
		return json.Marshal(successPayload{Success: true, Data: *e.Message})
	case KindFailure:
		return json.Marshal(failurePayload{Success: false, Error: e.Error})
	}
	return nil, errors.Errorf("unknown event kind %d", e.Kind)
}

func (e *Event) UnmarshalJSON(data []byte) error {
	var raw struct {
		Content *string         `json:"content"`
		Success *bool           `json:"success"`
		Data    *domain.Message `json:"data"`
		Error   string          `json:"error"`
		Message string          `json:"message"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	switch {
	case raw.Success == nil && raw.Content != nil:
		*e = Fragment(*raw.Content)
	case raw.Success != nil && *raw.Success:
		if raw.Data == nil {
			return errors.New("success event without data")
		}
		*e = Succeeded(*raw.Data)
	case raw.Success != nil:
		msg := raw.Error
		if msg == "" {
			msg = raw.Message
		}
		*e = Failed(msg)
	default:
		return errors.Errorf("unrecognised event payload: %s", data)
	}
	return nil
}
