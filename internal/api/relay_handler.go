package api

import (
	"net/http"

	log "github.com/sirupsen/logrus"

	"gwi.com/deepchat/internal/apierr"
	"gwi.com/deepchat/internal/auth"
	"gwi.com/deepchat/internal/sse"
)

type PromptRequest struct {
	ChatID string `json:"chatId"`
	Prompt string `json:"prompt"`
}

// PromptHandler relays one prompt. Failures before the stream starts are
// plain JSON; once headers are committed every outcome is a terminal event.
func (h *APIHandler) PromptHandler(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())
	if userID == "" {
		writeFailure(w, apierr.Unauthorized(), true)
		return
	}

	var req PromptRequest
	if err := decodeBody(r, &req); err != nil {
		writeFailure(w, err, false)
		return
	}

	session, err := h.relayService.Submit(r.Context(), userID, req.ChatID, req.Prompt)
	if err != nil {
		if !apierr.Is(err, apierr.KindNotFound) && !apierr.Is(err, apierr.KindValidation) {
			log.WithError(err).Errorf("Error accepting prompt for user %s, chat %s", userID, req.ChatID)
		}
		writeFailure(w, err, false)
		return
	}

	stream, err := sse.NewWriter(w)
	if err != nil {
		log.WithError(err).Error("Response writer cannot stream")
		writeFailure(w, err, false)
		return
	}

	if _, err := session.Run(r.Context(), stream.Send); err != nil {
		log.Debugf("Relay for chat %s ended with failure: %v", req.ChatID, err)
	}
}
