package apierr

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

type Kind string

const (
	KindValidation Kind = "validation_error"
	KindThrottled  Kind = "upstream_throttled"
	KindMalformed  Kind = "upstream_malformed"
	KindTimeout    Kind = "upstream_timeout"
	KindUnhandled  Kind = "internal_error"
)

// Status is the HTTP status a kind is surfaced with.
func (k Kind) Status() int {
	switch k {
	case KindValidation:
		return http.StatusBadRequest
	case KindThrottled:
		return http.StatusTooManyRequests
	case KindMalformed:
		return http.StatusBadGateway
	case KindTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// FieldError mirrors one entry of the 400 response `errors` array.
type FieldError struct {
	Type     string `json:"type"`
	Value    any    `json:"value,omitempty"`
	Msg      string `json:"msg"`
	Path     string `json:"path"`
	Location string `json:"location"`
}

type Error struct {
	Kind       Kind
	Status     int
	Message    string
	Fields     []FieldError
	RetryAfter time.Duration
	Err        error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	if e.Kind != "" {
		return string(e.Kind)
	}
	if e.Status != 0 {
		return fmt.Sprintf("api error (%d)", e.Status)
	}
	return "api error"
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches another *Error of the same kind, so errors.Is(err, apierr.ErrThrottled) works.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) || t == nil {
		return false
	}
	return t.Kind != "" && t.Kind == e.Kind
}

var (
	ErrValidation = &Error{Kind: KindValidation}
	ErrThrottled  = &Error{Kind: KindThrottled}
	ErrMalformed  = &Error{Kind: KindMalformed}
	ErrTimeout    = &Error{Kind: KindTimeout}
	ErrUnhandled  = &Error{Kind: KindUnhandled}
)

func New(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Status: kind.Status(), Message: message, Err: err}
}

func Validation(fields []FieldError) *Error {
	e := New(KindValidation, "Invalid request data", nil)
	e.Fields = fields
	return e
}

func Throttled(message string, retryAfter time.Duration, err error) *Error {
	if message == "" {
		message = "Too many requests, please try again later."
	}
	e := New(KindThrottled, message, err)
	e.RetryAfter = retryAfter
	return e
}

func Malformed(err error) *Error {
	return New(KindMalformed, "invalid upstream response", err)
}

func Timeout(err error) *Error {
	return New(KindTimeout, "upstream request timed out", err)
}

func Unhandled(err error) *Error {
	return New(KindUnhandled, "Internal server error", err)
}

// From returns err as an *Error, wrapping anything unclassified as unhandled.
func From(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		if e.Status == 0 {
			e.Status = e.Kind.Status()
		}
		return e
	}
	return Unhandled(err)
}

func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	return From(err).Kind
}
