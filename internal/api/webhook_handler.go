package api

import (
	"io"
	"net/http"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"gwi.com/deepchat/internal/apierr"
	"gwi.com/deepchat/internal/identity"
)

const maxWebhookBody = 1 << 20

type webhookResponse struct {
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

func writeWebhookError(w http.ResponseWriter, err error) {
	apiErr := apierr.As(err)
	writeJSON(w, apiErr.Status, webhookResponse{Error: apiErr.Error()})
}

// IdentityWebhookHandler mirrors identity provider lifecycle events into the
// user records.
func (h *APIHandler) IdentityWebhookHandler(w http.ResponseWriter, r *http.Request) {
	if h.verifier == nil {
		writeWebhookError(w, errors.New("SIGNING_SECRET is not configured"))
		return
	}

	if r.Header.Get(identity.HeaderID) == "" || r.Header.Get(identity.HeaderTimestamp) == "" || r.Header.Get(identity.HeaderSignature) == "" {
		writeWebhookError(w, apierr.Signature(identity.ErrMissingHeaders))
		return
	}

	payload, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		writeWebhookError(w, apierr.Validation(errors.Wrap(err, "failed to read body")))
		return
	}

	if err := h.verifier.Verify(payload, r.Header); err != nil {
		log.WithError(err).Warn("Rejected identity webhook")
		writeWebhookError(w, apierr.Signature(errors.Wrap(err, "signature verification failed")))
		return
	}

	ev, err := identity.ParseEvent(payload)
	if err != nil {
		writeWebhookError(w, apierr.Validation(err))
		return
	}

	if err := h.syncer.Apply(r.Context(), ev); err != nil {
		log.WithError(err).Errorf("Failed to apply identity event %s", ev.Type)
		writeWebhookError(w, apierr.Persistence(err))
		return
	}
	writeJSON(w, http.StatusOK, webhookResponse{Message: "Event received"})
}
