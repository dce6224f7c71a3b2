// Package apperrors centralizes the service error taxonomy and its HTTP
// mapping so controllers never invent status codes ad hoc.
package apperrors

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a failure for transport mapping.
type Kind int

const (
	KindInvalidArgument Kind = iota // malformed input, self-targeting
	KindNotFound                    // missing user/request/match/chat
	KindPermissionDenied            // acting on someone else's record
	KindConflict                    // duplicate-match race, resolved internally
	KindUnavailable                 // store I/O failure, retryable
)

// Error is a typed service error. Err carries the underlying cause, if any.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

func (e *Error) Unwrap() error { return e.Err }

// InvalidArgument flags bad caller input.
func InvalidArgument(msg string) *Error {
	return &Error{Kind: KindInvalidArgument, Msg: msg}
}

// NotFound flags a missing record.
func NotFound(msg string) *Error {
	return &Error{Kind: KindNotFound, Msg: msg}
}

// PermissionDenied flags an ownership violation.
func PermissionDenied(msg string) *Error {
	return &Error{Kind: KindPermissionDenied, Msg: msg}
}

// Conflict flags a concurrent-write collision.
func Conflict(msg string) *Error {
	return &Error{Kind: KindConflict, Msg: msg}
}

// Unavailable wraps a store failure the caller may retry.
func Unavailable(msg string, err error) *Error {
	return &Error{Kind: KindUnavailable, Msg: msg, Err: err}
}

// Status maps an error to its HTTP status code. Unknown errors are treated
// as internal failures.
func Status(err error) int {
	var ae *Error
	if !errors.As(err, &ae) {
		return http.StatusInternalServerError
	}
	switch ae.Kind {
	case KindInvalidArgument:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindPermissionDenied:
		return http.StatusForbidden
	case KindConflict:
		return http.StatusConflict
	case KindUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// Write renders an error as the JSON body every endpoint uses.
func Write(w http.ResponseWriter, err error) {
	msg := "internal error"
	var ae *Error
	if errors.As(err, &ae) {
		msg = ae.Msg
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(Status(err))
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
