package api

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
)

// ErrNotFound matches StatusErrors carrying a 404.
var ErrNotFound = errors.New("resource not found")

// StatusError is a non-2xx answer from the guild API.
type StatusError struct {
	Method string
	Path   string
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s: API responded %d %s", e.Method, e.Path, e.Status, http.StatusText(e.Status))
}

// Is lets errors.Is(err, ErrNotFound) match 404 answers.
func (e *StatusError) Is(target error) bool {
	return target == ErrNotFound && e.Status == http.StatusNotFound
}

// DecodeError is a 2xx answer whose body did not match the expected schema.
// Raw keeps the offending text for diagnostics.
type DecodeError struct {
	Path string
	Raw  string
	Err  error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("failed to decode %s response: %v (body: %s)", e.Path, e.Err, truncate(e.Raw, 200))
}

func (e *DecodeError) Unwrap() error { return e.Err }

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// IsTransport reports whether err means the guild API could not be reached
// or did not answer in time.
func IsTransport(err error) bool {
	var urlErr *url.Error
	return IsTimeout(err) || errors.As(err, &urlErr)
}

// UserMessage turns a client error into text suitable for an error panel.
func UserMessage(err error) string {
	var statusErr *StatusError
	var decodeErr *DecodeError
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrNotFound):
		return "We couldn't find what you were looking for."
	case errors.As(err, &statusErr):
		if statusErr.Status >= 500 {
			return "The guild service is having trouble right now. Please try again."
		}
		return fmt.Sprintf("The guild service rejected the request (%d).", statusErr.Status)
	case errors.As(err, &decodeErr):
		return "The guild service sent a response we couldn't read."
	case errors.Is(err, errTimeout):
		return "The guild service took too long to respond. Please try again."
	default:
		return "We couldn't reach the guild service. Please try again."
	}
}
