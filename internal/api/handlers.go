package api

import (
	"encoding/json"
	"net/http"
	"strings"

	log "github.com/sirupsen/logrus"

	"gwi.com/deepchat/internal/apierr"
	"gwi.com/deepchat/internal/auth"
	"gwi.com/deepchat/internal/core"
	"gwi.com/deepchat/internal/identity"
)

type APIHandler struct {
	chatService  *core.ChatService
	relayService *core.RelayService
	tokens       *auth.TokenManager
	syncer       *identity.Syncer
	verifier     *identity.Verifier
}

// NewAPIHandler wires the handlers. verifier may be nil when no signing
// secret is configured; webhooks are then refused.
func NewAPIHandler(cs *core.ChatService, rs *core.RelayService, tokens *auth.TokenManager, syncer *identity.Syncer, verifier *identity.Verifier) *APIHandler {
	return &APIHandler{
		chatService:  cs,
		relayService: rs,
		tokens:       tokens,
		syncer:       syncer,
		verifier:     verifier,
	}
}

// IdentityMiddleware resolves the bearer token to a user id. Requests without
// a valid token continue anonymously and each handler reports Unauthorized in
// its own payload.
func (h *APIHandler) IdentityMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			next.ServeHTTP(w, r)
			return
		}

		tokenString := strings.TrimPrefix(authHeader, "Bearer ")
		userID, err := h.tokens.ValidateJWT(tokenString)
		if err != nil {
			log.WithError(err).Debug("Rejected bearer token")
			next.ServeHTTP(w, r)
			return
		}

		next.ServeHTTP(w, r.WithContext(auth.WithUserID(r.Context(), userID)))
	})
}

type RenameChatRequest struct {
	ChatID string `json:"chatId"`
	Name   string `json:"name"`
}

type DeleteChatRequest struct {
	ChatID string `json:"chatId"`
}

func decodeBody(r *http.Request, v interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return apierr.Validation(err)
	}
	return nil
}

func (h *APIHandler) CreateChatHandler(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())

	if _, err := h.chatService.CreateChat(r.Context(), userID); err != nil {
		if !apierr.Is(err, apierr.KindUnauthorized) {
			log.WithError(err).Errorf("Error creating chat for user %s", userID)
		}
		writeFailure(w, err, false)
		return
	}
	writeSuccess(w, "Chat created")
}

func (h *APIHandler) ListChatsHandler(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())

	chats, err := h.chatService.GetChats(r.Context(), userID)
	if err != nil {
		if !apierr.Is(err, apierr.KindUnauthorized) {
			log.WithError(err).Errorf("Error listing chats for user %s", userID)
		}
		// Listing reports every failure with a 200 and a message.
		writeJSON(w, http.StatusOK, Response{Success: false, Message: apierr.As(err).Error()})
		return
	}
	writeJSON(w, http.StatusOK, Response{Success: true, Data: chats})
}

func (h *APIHandler) RenameChatHandler(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())
	if userID == "" {
		writeFailure(w, apierr.Unauthorized(), true)
		return
	}

	var req RenameChatRequest
	if err := decodeBody(r, &req); err != nil {
		writeFailure(w, err, false)
		return
	}

	if err := h.chatService.RenameChat(r.Context(), userID, req.ChatID, req.Name); err != nil {
		log.WithError(err).Errorf("Error renaming chat %s for user %s", req.ChatID, userID)
		writeFailure(w, err, false)
		return
	}
	writeSuccess(w, "Chat renamed")
}

func (h *APIHandler) DeleteChatHandler(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())
	if userID == "" {
		writeFailure(w, apierr.Unauthorized(), true)
		return
	}

	var req DeleteChatRequest
	if err := decodeBody(r, &req); err != nil {
		writeFailure(w, err, false)
		return
	}

	if err := h.chatService.DeleteChat(r.Context(), userID, req.ChatID); err != nil {
		log.WithError(err).Errorf("Error deleting chat %s for user %s", req.ChatID, userID)
		writeFailure(w, err, false)
		return
	}
	writeSuccess(w, "Chat deleted")
}
