package tapis

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinels classifying every *Error. Match with errors.Is.
var (
	// ErrInvalidInput covers bad or missing caller arguments (raised before
	// any network I/O) and HTTP 400/404 responses.
	ErrInvalidInput = errors.New("invalid input")
	// ErrNotAuthorized covers HTTP 401/403 responses.
	ErrNotAuthorized = errors.New("not authorized")
	// ErrServerDown covers HTTP 500 responses.
	ErrServerDown = errors.New("server error")
	// ErrInvalidServerResponse means a success response could not be parsed.
	ErrInvalidServerResponse = errors.New("invalid server response")
	// ErrTransport means the request never produced an HTTP response.
	ErrTransport = errors.New("transport failure")
	// ErrClient covers any other response with status >= 300.
	ErrClient = errors.New("unexpected response status")
	// ErrConfiguration means the client lacks settings an operation needs.
	ErrConfiguration = errors.New("client misconfigured")
	// ErrNotImplemented marks request shapes this client refuses to build.
	ErrNotImplemented = errors.New("not implemented")
)

// Error is returned by every client operation. Request, Response and Body
// are populated whenever they exist, for diagnostics.
type Error struct {
	Kind       error
	Message    string
	Version    string
	StatusCode int
	Request    *http.Request
	Response   *http.Response
	Body       []byte
	Err        error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if e.StatusCode != 0 {
		return fmt.Sprintf("%v (HTTP %d): %s", e.Kind, e.StatusCode, msg)
	}
	if msg == "" {
		return e.Kind.Error()
	}
	return fmt.Sprintf("%v: %s", e.Kind, msg)
}

func (e *Error) Is(target error) bool {
	return target == e.Kind
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsUnauthorized returns true if the server answered 401.
func (e *Error) IsUnauthorized() bool {
	return e.StatusCode == http.StatusUnauthorized
}

// IsForbidden returns true if the server answered 403.
func (e *Error) IsForbidden() bool {
	return e.StatusCode == http.StatusForbidden
}

func invalidInput(format string, args ...any) *Error {
	return &Error{Kind: ErrInvalidInput, Message: fmt.Sprintf(format, args...)}
}

func configurationError(format string, args ...any) *Error {
	return &Error{Kind: ErrConfiguration, Message: fmt.Sprintf(format, args...)}
}

// statusKind maps a response status onto the error taxonomy; nil means success.
func statusKind(status int) error {
	switch {
	case status == http.StatusBadRequest, status == http.StatusNotFound:
		return ErrInvalidInput
	case status == http.StatusUnauthorized, status == http.StatusForbidden:
		return ErrNotAuthorized
	case status == http.StatusInternalServerError:
		return ErrServerDown
	case status >= 300:
		return ErrClient
	}
	return nil
}
