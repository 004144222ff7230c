// Package apierr classifies failures so request handlers can turn them into
// the uniform {success: false, ...} payload.
package apierr

import (
	"fmt"
	"net/http"

	"github.com/pkg/errors"
)

type Kind string

const (
	KindUnauthorized Kind = "Unauthorized"
	KindValidation   Kind = "ValidationError"
	KindNotFound     Kind = "NotFound"
	KindPersistence  Kind = "PersistenceError"
	KindUpstream     Kind = "UpstreamError"
	KindSignature    Kind = "SignatureError"
	KindInternal     Kind = "InternalError"
)

type Error struct {
	Kind   Kind
	Status int
	Err    error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	if e.Kind != "" {
		return string(e.Kind)
	}
	return fmt.Sprintf("api error (%d)", e.Status)
}

func (e *Error) Unwrap() error { return e.Err }

func New(kind Kind, status int, err error) *Error {
	return &Error{Kind: kind, Status: status, Err: err}
}

func Unauthorized() *Error {
	return New(KindUnauthorized, http.StatusOK, errors.New("user is not authorized"))
}

func Validation(err error) *Error {
	return New(KindValidation, http.StatusBadRequest, err)
}

func NotFound(what string) *Error {
	return New(KindNotFound, http.StatusNotFound, errors.Errorf("%s not found", what))
}

func Persistence(err error) *Error {
	return New(KindPersistence, http.StatusInternalServerError, err)
}

func Upstream(err error) *Error {
	return New(KindUpstream, http.StatusBadGateway, err)
}

func Signature(err error) *Error {
	return New(KindSignature, http.StatusBadRequest, err)
}

// As returns the classified error in err's chain, or wraps err as an internal
// error when nothing in the chain is classified.
func As(err error) *Error {
	if err == nil {
		return nil
	}
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr
	}
	return New(KindInternal, http.StatusInternalServerError, err)
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Kind == kind
	}
	return false
}
