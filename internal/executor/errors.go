package executor

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/desertthunder/spotify-mcp/internal/shared"
)

const (
	msgPermission  = "Permission denied. Spotify refused this action; it may need a Premium account or additional permissions."
	msgNotFound    = "Not found. Check that the ID or URI is correct."
	msgRateLimited = "Spotify rate limit exceeded. Please wait a moment and try again."
	msgUnavailable = "Spotify is temporarily unavailable. Please try again later."
)

// ClassifiedError is the terminal failure of [Run].
//
// Error returns only Message, a short sentence fit for direct display. StatusCode and the
// wrapped cause are for diagnostics.
type ClassifiedError struct {
	Label      string
	Message    string
	StatusCode int
	Err        error
}

func (e *ClassifiedError) Error() string { return e.Message }

func (e *ClassifiedError) Unwrap() error { return e.Err }

// Is matches the shared status sentinels, e.g. errors.Is(err, shared.ErrNotFound) for a 404.
func (e *ClassifiedError) Is(target error) bool {
	switch {
	case e.StatusCode == http.StatusForbidden:
		return target == shared.ErrPermissionDenied
	case e.StatusCode == http.StatusNotFound:
		return target == shared.ErrNotFound
	case e.StatusCode == http.StatusTooManyRequests:
		return target == shared.ErrRateLimited
	case e.StatusCode >= 500 && e.StatusCode < 600:
		return target == shared.ErrServiceUnavailable
	}
	return target == shared.ErrAPIRequest
}

// Diagnostic renders the label, status and cause for logs.
func (e *ClassifiedError) Diagnostic() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("%s: %v", e.Label, e.Err)
	}
	return fmt.Sprintf("%s: status %d: %v", e.Label, e.StatusCode, e.Err)
}

// AsClassified unwraps err to a [*ClassifiedError].
func AsClassified(err error) (*ClassifiedError, bool) {
	var ce *ClassifiedError
	ok := errors.As(err, &ce)
	return ce, ok
}

func newClassifiedError(label string, f Failure) *ClassifiedError {
	return &ClassifiedError{
		Label:      label,
		Message:    UserMessage(label, f),
		StatusCode: f.StatusCode,
		Err:        f.Err,
	}
}

// UserMessage maps a failure to its user-facing sentence.
func UserMessage(label string, f Failure) string {
	switch code := f.StatusCode; {
	case code == http.StatusForbidden:
		return msgPermission
	case code == http.StatusNotFound:
		return msgNotFound
	case code == http.StatusTooManyRequests:
		return msgRateLimited
	case code >= 500 && code < 600:
		return msgUnavailable
	}

	if f.Message == "" {
		return fmt.Sprintf("Failed to %s.", label)
	}
	return fmt.Sprintf("Failed to %s: %s", label, f.Message)
}
