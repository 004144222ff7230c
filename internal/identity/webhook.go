// Package identity mirrors the identity provider's user lifecycle into the
// store. Events arrive as Svix-signed webhooks.
package identity

import (
	"net/http"
	"strings"
	"time"

	"github.com/pkg/errors"
	svix "github.com/svix/svix-webhooks/go"
)

const (
	HeaderID        = "svix-id"
	HeaderTimestamp = "svix-timestamp"
	HeaderSignature = "svix-signature"

	secretPrefix = "whsec_"
)

var (
	ErrMissingHeaders   = errors.New("missing svix headers")
	ErrInvalidSignature = errors.New("no matching signature found")
)

// Verifier checks webhook signatures against a shared signing secret.
type Verifier struct {
	wh *svix.Webhook
}

// NewVerifier accepts the secret as issued ("whsec_<base64>") or bare base64.
func NewVerifier(secret string) (*Verifier, error) {
	if strings.TrimPrefix(secret, secretPrefix) == "" {
		return nil, errors.New("empty signing secret")
	}
	wh, err := svix.NewWebhook(secret)
	if err != nil {
		return nil, errors.Wrap(err, "invalid signing secret")
	}
	return &Verifier{wh: wh}, nil
}

// Sign computes the v1 signature header value for a payload.
func (v *Verifier) Sign(msgID string, timestamp time.Time, payload []byte) (string, error) {
	sig, err := v.wh.Sign(msgID, timestamp, payload)
	return sig, errors.Wrap(err, "failed to sign payload")
}

// Verify validates payload against the svix-* headers. Any rejection by the
// signature check, including a timestamp outside tolerance, matches
// ErrInvalidSignature.
func (v *Verifier) Verify(payload []byte, headers http.Header) error {
	if headers.Get(HeaderID) == "" || headers.Get(HeaderTimestamp) == "" || headers.Get(HeaderSignature) == "" {
		return ErrMissingHeaders
	}
	if err := v.wh.Verify(payload, headers); err != nil {
		return errors.Wrap(ErrInvalidSignature, err.Error())
	}
	return nil
}
