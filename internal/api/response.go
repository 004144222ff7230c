package api

import (
	"encoding/json"
	"net/http"

	log "github.com/sirupsen/logrus"

	"gwi.com/deepchat/internal/apierr"
)

// Response is the uniform body of every non-streaming endpoint. Callers branch
// on Success, not on the status code.
type Response struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Error   string      `json:"error,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.WithError(err).Warn("Failed to write response body")
	}
}

func writeSuccess(w http.ResponseWriter, message string) {
	writeJSON(w, http.StatusOK, Response{Success: true, Message: message})
}

// writeFailure converts err into the failure payload. Unauthorized and list
// failures use the "message" field, everything else "error".
func writeFailure(w http.ResponseWriter, err error, asMessage bool) {
	apiErr := apierr.As(err)
	if apiErr.Kind == apierr.KindUnauthorized {
		asMessage = true
	}
	resp := Response{Success: false}
	if asMessage {
		resp.Message = apiErr.Error()
	} else {
		resp.Error = apiErr.Error()
	}
	writeJSON(w, apiErr.Status, resp)
}
