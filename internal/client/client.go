// Package client talks to the chat server's JSON and event-stream endpoints.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"gwi.com/deepchat/internal/domain"
	"gwi.com/deepchat/internal/sse"
)

// ErrStreamTruncated is returned when a relay stream ends without a terminal
// event.
var ErrStreamTruncated = errors.New("stream ended before a final event")

// Client is safe for concurrent use.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

func New(baseURL, token string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		// No overall timeout: relay responses stream for as long as the
		// server allows.
		http: &http.Client{},
	}
}

// response mirrors the server's uniform envelope.
type response struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Error   string          `json:"error"`
	Data    json.RawMessage `json:"data"`
}

func (r response) failure() error {
	if r.Error != "" {
		return errors.New(r.Error)
	}
	if r.Message != "" {
		return errors.New(r.Message)
	}
	return errors.New("request failed")
}

func (c *Client) newRequest(ctx context.Context, method, path string, body interface{}) (*http.Request, error) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, errors.Wrap(err, "failed to encode request")
		}
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, errors.Wrap(err, "failed to build request")
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	return req, nil
}

func (c *Client) call(ctx context.Context, method, path string, body interface{}) (response, error) {
	req, err := c.newRequest(ctx, method, path, body)
	if err != nil {
		return response{}, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return response{}, errors.Wrapf(err, "%s %s", method, path)
	}
	defer resp.Body.Close()

	var out response
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return response{}, errors.Wrapf(err, "unexpected response from %s (status %d)", path, resp.StatusCode)
	}
	if !out.Success {
		return out, out.failure()
	}
	return out, nil
}

func (c *Client) CreateChat(ctx context.Context) error {
	_, err := c.call(ctx, http.MethodPost, "/api/chat/create", nil)
	return err
}

// ListChats returns the user's chats in server order.
func (c *Client) ListChats(ctx context.Context) ([]domain.Chat, error) {
	resp, err := c.call(ctx, http.MethodGet, "/api/chat/get", nil)
	if err != nil {
		return nil, err
	}
	var chats []domain.Chat
	if len(resp.Data) > 0 {
		if err := json.Unmarshal(resp.Data, &chats); err != nil {
			return nil, errors.Wrap(err, "failed to decode chats")
		}
	}
	return chats, nil
}

func (c *Client) RenameChat(ctx context.Context, chatID, name string) error {
	_, err := c.call(ctx, http.MethodPost, "/api/chat/rename", map[string]string{"chatId": chatID, "name": name})
	return err
}

func (c *Client) DeleteChat(ctx context.Context, chatID string) error {
	_, err := c.call(ctx, http.MethodPost, "/api/chat/delete", map[string]string{"chatId": chatID})
	return err
}

// SendPrompt relays prompt into chatID. onFragment receives each fragment in
// order; the stored assistant message is returned once the stream succeeds.
func (c *Client) SendPrompt(ctx context.Context, chatID, prompt string, onFragment func(string)) (*domain.Message, error) {
	req, err := c.newRequest(ctx, http.MethodPost, "/api/chat/ai", map[string]string{"chatId": chatID, "prompt": prompt})
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "text/event-stream")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "failed to send prompt")
	}
	defer resp.Body.Close()

	// Rejections before the stream starts come back as the JSON envelope.
	if !strings.HasPrefix(resp.Header.Get("Content-Type"), "text/event-stream") {
		var out response
		if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
			return nil, errors.Wrapf(err, "unexpected relay response (status %d)", resp.StatusCode)
		}
		return nil, out.failure()
	}

	decoder := sse.NewDecoder(resp.Body)
	fragments := 0
	for {
		ev, err := decoder.Next()
		if err == io.EOF {
			return nil, ErrStreamTruncated
		}
		if err != nil {
			return nil, errors.Wrap(err, "failed to read relay stream")
		}
		switch ev.Kind {
		case sse.KindFragment:
			fragments++
			if onFragment != nil {
				onFragment(ev.Content)
			}
		case sse.KindSuccess:
			log.Debugf("Relay for chat %s finished after %d fragments", chatID, fragments)
			return ev.Message, nil
		case sse.KindFailure:
			return nil, errors.New(ev.Error)
		}
	}
}
