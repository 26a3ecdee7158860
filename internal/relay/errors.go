package relay

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a failed send.
type Kind string

const (
	KindTimeout     Kind = "timeout"
	KindBadRequest  Kind = "bad_request"
	KindAuth        Kind = "auth"
	KindRateLimited Kind = "rate_limited"
	KindServer      Kind = "server"
	KindGeneric     Kind = "generic"
)

// ErrNotConfigured is returned when any relay identifier is missing.
var ErrNotConfigured = errors.New("email relay is not configured")

// Error is returned by Send for every failure. Status is zero when no
// response was received.
type Error struct {
	Kind   Kind
	Status int
	Body   string
	Err    error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	msg := fmt.Sprintf("email relay: %s", e.Kind)
	if e.Status != 0 {
		msg += fmt.Sprintf(" (status %d)", e.Status)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// KindForStatus maps a non-2xx response status onto the taxonomy.
func KindForStatus(status int) Kind {
	switch {
	case status == http.StatusBadRequest:
		return KindBadRequest
	case status == http.StatusUnauthorized, status == http.StatusForbidden:
		return KindAuth
	case status == http.StatusTooManyRequests:
		return KindRateLimited
	case status >= 500 && status <= 599:
		return KindServer
	}
	return KindGeneric
}

// KindOf extracts the Kind from err, defaulting to KindGeneric.
func KindOf(err error) Kind {
	if errors.Is(err, ErrNotConfigured) {
		return KindAuth
	}
	var re *Error
	if errors.As(err, &re) {
		return re.Kind
	}
	return KindGeneric
}

var messages = map[Kind]string{
	KindTimeout:     "Request timed out. Please check your connection and try again.",
	KindBadRequest:  "Invalid request. Please check your form data and try again.",
	KindAuth:        "Authentication failed. Please contact support.",
	KindRateLimited: "Too many requests. Please try again later.",
	KindServer:      "Server error. Please try again later.",
	KindGeneric:     "Failed to send message. Please try again later.",
}

// Message is the text shown to the visitor for a failure of kind k.
func Message(k Kind) string {
	if m, ok := messages[k]; ok {
		return m
	}
	return messages[KindGeneric]
}
