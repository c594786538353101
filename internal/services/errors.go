package services

import (
	"fmt"
	"net/http"
	"unicode/utf8"

	"github.com/pathum-vimukthi/bookvault/internal/shared"
)

// HTTPError is a non-2xx response from the backend.
//
// It unwraps to the sentinel for the failed operation (e.g. [shared.ErrFetchFailed]),
// and additionally to [shared.ErrUnauthorized] when an authenticated call got a 401.
type HTTPError struct {
	Op     string
	Status int
	Body   string

	kind   error
	bearer bool
}

func (e *HTTPError) Error() string {
	msg := fmt.Sprintf("%s: %v (status %d)", e.Op, e.kind, e.Status)
	if e.Body != "" {
		msg += ": " + e.Body
	}
	return msg
}

func (e *HTTPError) Unwrap() []error {
	errs := []error{e.kind}
	if e.Unauthorized() {
		errs = append(errs, shared.ErrUnauthorized)
	}
	return errs
}

// Unauthorized reports whether the backend rejected the session token.
func (e *HTTPError) Unauthorized() bool {
	return e.bearer && e.Status == http.StatusUnauthorized
}

const maxErrorBody = 512

func newHTTPError(op string, kind error, status int, body []byte, bearer bool) *HTTPError {
	return &HTTPError{Op: op, Status: status, Body: trimBody(truncateBody(body)), kind: kind, bearer: bearer}
}

// truncateBody cuts body to at most maxErrorBody bytes on a rune boundary.
func truncateBody(body []byte) string {
	if len(body) <= maxErrorBody {
		return string(body)
	}
	cut := maxErrorBody
	for cut > 0 && !utf8.RuneStart(body[cut]) {
		cut--
	}
	return string(body[:cut]) + "..."
}
