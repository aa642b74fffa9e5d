// Package httperr defines the HTTP-facing error taxonomy for the dispatch
// pipeline. Handlers and middleware signal failures by returning (or
// wrapping) an *Error; anything else is translated to a generic 500 at the
// pipeline boundary.
package httperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Error is an HTTP-style failure carrying a status code and a short
// human-readable reason. Reason is wire-visible; it must not leak
// implementation detail.
type Error struct {
	// Status is the HTTP status code to surface.
	Status int
	// Reason is the short message sent to the client.
	Reason string
	// Err is the optional underlying cause, for logs only.
	Err error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s (status %d): %v", e.Reason, e.Status, e.Err)
	}
	return fmt.Sprintf("%s (status %d)", e.Reason, e.Status)
}

// Unwrap exposes the underlying cause to errors.Is/As.
func (e *Error) Unwrap() error {
	return e.Err
}

// BadRequest reports malformed or incomplete client input (400).
func BadRequest(reason string) *Error {
	return &Error{Status: http.StatusBadRequest, Reason: reason}
}

// BadRequestf is BadRequest with a formatted reason.
func BadRequestf(format string, args ...any) *Error {
	return BadRequest(fmt.Sprintf(format, args...))
}

// NotFound reports a request for an unregistered route (404).
func NotFound() *Error {
	return &Error{Status: http.StatusNotFound, Reason: http.StatusText(http.StatusNotFound)}
}

// Unauthorized reports a missing/invalid session or a failed login (401).
// An empty reason uses the standard status text.
func Unauthorized(reason string) *Error {
	if reason == "" {
		reason = http.StatusText(http.StatusUnauthorized)
	}
	return &Error{Status: http.StatusUnauthorized, Reason: reason}
}

// PermissionDenied reports an authenticated caller whose roles do not
// intersect the route's allowed set. Surfaced with the same status as
// Unauthorized but a distinct reason, matching the wire contract.
func PermissionDenied() *Error {
	return &Error{Status: http.StatusUnauthorized, Reason: "Permission denied"}
}

// MethodNotAllowed reports a CORS policy violation (405). Headers carrying
// the matched rule's policy are attached by the pipeline, not here.
func MethodNotAllowed(method string) *Error {
	return &Error{
		Status: http.StatusMethodNotAllowed,
		Reason: fmt.Sprintf("Method %s not allowed", method),
	}
}

// StoreUnavailable reports an unreachable session backend (503). The
// client's existing cookie stays valid for retry.
func StoreUnavailable(err error) *Error {
	return &Error{
		Status: http.StatusServiceUnavailable,
		Reason: "Session store unavailable",
		Err:    err,
	}
}

// Internal wraps an unanticipated failure as a generic 500.
func Internal(err error) *Error {
	return &Error{
		Status: http.StatusInternalServerError,
		Reason: http.StatusText(http.StatusInternalServerError),
		Err:    err,
	}
}

// From extracts the *Error from err's chain, or wraps err as Internal.
// Recognized errors pass through with status and reason unmodified; the
// pipeline never second-guesses them.
func From(err error) *Error {
	var herr *Error
	if errors.As(err, &herr) {
		return herr
	}
	return Internal(err)
}

// IsRecognized reports whether err carries an *Error in its chain.
func IsRecognized(err error) bool {
	var herr *Error
	return errors.As(err, &herr)
}
