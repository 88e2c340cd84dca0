// Package apierror defines the error taxonomy shared by every proxy handler.
package apierror

import (
	"errors"
	"net/http"
)

// Kind classifies an error by who can correct it.
type Kind int

const (
	KindUnhandled Kind = iota
	KindValidation
	KindConfiguration
	KindNotFound
	KindUpstream
)

// Sentinel markers for errors.Is checks against an *Error.
var (
	ErrValidation    = errors.New("validation error")
	ErrConfiguration = errors.New("configuration error")
	ErrNotFound      = errors.New("not found")
	ErrUpstream      = errors.New("upstream error")
	ErrUnhandled     = errors.New("unhandled error")
)

// Error is the single error value handlers return; the server renders it as
// {"error": Message, "details": Details}.
type Error struct {
	Kind    Kind
	Status  int
	Message string
	Details string
	Err     error
}

func (e *Error) Error() string {
	if e.Details != "" {
		return e.Message + ": " + e.Details
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches the sentinel for the error's kind.
func (e *Error) Is(target error) bool {
	return target == e.marker()
}

func (e *Error) marker() error {
	switch e.Kind {
	case KindValidation:
		return ErrValidation
	case KindConfiguration:
		return ErrConfiguration
	case KindNotFound:
		return ErrNotFound
	case KindUpstream:
		return ErrUpstream
	default:
		return ErrUnhandled
	}
}

// Body returns the JSON envelope written to the client.
func (e *Error) Body() Body {
	b := Body{Error: e.Message}
	if e.Kind != KindConfiguration {
		b.Details = e.Details
	}
	return b
}

// Body is the wire shape of every error response.
type Body struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

func Validation(message, details string) *Error {
	return &Error{Kind: KindValidation, Status: http.StatusBadRequest, Message: message, Details: details}
}

// Configuration reports an operator-correctable problem. Details are never
// sent to the client.
func Configuration(message string) *Error {
	return &Error{Kind: KindConfiguration, Status: http.StatusInternalServerError, Message: message}
}

func NotFound(message string) *Error {
	return &Error{Kind: KindNotFound, Status: http.StatusNotFound, Message: message}
}

// Upstream propagates a third-party status code. Codes outside 400-599 are
// reported as 502.
func Upstream(status int, message, details string, err error) *Error {
	if status < 400 || status > 599 {
		status = http.StatusBadGateway
	}
	return &Error{Kind: KindUpstream, Status: status, Message: message, Details: details, Err: err}
}

// Unhandled wraps any other failure as a 500 carrying err's message in details.
func Unhandled(message string, err error) *Error {
	details := ""
	if err != nil {
		details = err.Error()
	}
	return &Error{Kind: KindUnhandled, Status: http.StatusInternalServerError, Message: message, Details: details, Err: err}
}
