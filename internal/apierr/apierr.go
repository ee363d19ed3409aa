// Package apierr is the single error type handed to the HTTP layer. Every
// failure from the hasher, the token codec or the store is converted into one
// of a closed set of kinds, each with a fixed status code and a JSON body of
// the form {"error": "<message>"}.
package apierr

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/ovaphlow/pitchfork/service-auth-go/internal/auth"
	"github.com/ovaphlow/pitchfork/service-auth-go/pkg/database"
)

type Kind int

const (
	KindInternalServerError Kind = iota + 1
	KindBadRequest
	KindDatabaseConnectionError
	KindAuthError
	KindNotFound
)

func (k Kind) String() string {
	switch k {
	case KindInternalServerError:
		return "InternalServerError"
	case KindBadRequest:
		return "BadRequest"
	case KindDatabaseConnectionError:
		return "DatabaseConnectionError"
	case KindAuthError:
		return "AuthError"
	case KindNotFound:
		return "NotFound"
	default:
		return "Unknown"
	}
}

// Error is a request failure ready to be written to the client.
type Error struct {
	kind Kind
	// message is the bad-request detail or the missing resource name.
	message string
	auth    *auth.Error
}

func Internal() *Error { return &Error{kind: KindInternalServerError} }

func BadRequest(msg string) *Error { return &Error{kind: KindBadRequest, message: msg} }

func DatabaseConnection() *Error { return &Error{kind: KindDatabaseConnectionError} }

func NotFound(resource string) *Error { return &Error{kind: KindNotFound, message: resource} }

func Auth(e *auth.Error) *Error {
	cp := *e
	return &Error{kind: KindAuthError, auth: &cp}
}

func (e *Error) Kind() Kind { return e.kind }

// AuthError returns the wrapped authentication failure, if any.
func (e *Error) AuthError() (*auth.Error, bool) {
	if e.kind != KindAuthError {
		return nil, false
	}
	return e.auth, true
}

func (e *Error) Error() string {
	switch e.kind {
	case KindBadRequest:
		return "Bad Request: " + e.message
	case KindDatabaseConnectionError:
		return "Database Connection Error"
	case KindAuthError:
		return e.auth.Error()
	case KindNotFound:
		return e.message + " Not Found"
	default:
		return "Internal Server Error"
	}
}

func (e *Error) Unwrap() error {
	if e.auth != nil {
		return e.auth
	}
	return nil
}

// StatusCode maps the kind to its HTTP status.
func (e *Error) StatusCode() int {
	switch e.kind {
	case KindAuthError:
		return http.StatusUnauthorized
	case KindBadRequest:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

type body struct {
	Error string `json:"error"`
}

// Render returns the status code and the JSON body for e.
func (e *Error) Render() (int, []byte) {
	b, err := json.Marshal(body{Error: e.Error()})
	if err != nil {
		b = []byte(`{"error":"Internal Server Error"}`)
	}
	return e.StatusCode(), b
}

// Write emits e as a JSON response.
func (e *Error) Write(w http.ResponseWriter) {
	status, b := e.Render()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(b)
}

// From converts any failure into an *Error. The mapping is total: anything
// not recognised becomes InternalServerError and its cause is not exposed.
func From(err error) *Error {
	if err == nil {
		return nil
	}

	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr
	}
	var authErr *auth.Error
	if errors.As(err, &authErr) {
		return Auth(authErr)
	}
	if errors.Is(err, auth.ErrHashFailed) {
		return Internal()
	}
	return FromStore(err)
}

// FromStore converts a store failure. Only uniqueness violations reach the
// client with their message; every other cause is reported as internal.
func FromStore(err error) *Error {
	var connErr *database.ConnError
	if errors.As(err, &connErr) {
		return DatabaseConnection()
	}
	if msg, ok := database.UniqueViolation(err); ok {
		return BadRequest(msg)
	}
	return Internal()
}
