package tracker

import (
	"errors"
	"fmt"
)

// ErrMemberNotFound indicates no workspace member carries the given email.
var ErrMemberNotFound = errors.New("member not found")

// ErrorKind classifies a remote API failure.
type ErrorKind string

const (
	// KindAPI covers unexpected statuses and transport failures. Fatal for
	// the call, not retryable.
	KindAPI ErrorKind = "api"
	// KindAuth covers 401 responses. Fatal, never retried.
	KindAuth ErrorKind = "auth"
	// KindNotFound covers 404 responses for a specific resource.
	KindNotFound ErrorKind = "not_found"
	// KindRateLimited covers 429 responses that survived every retry.
	// Callers must not retry again on top of the client's own backoff.
	KindRateLimited ErrorKind = "rate_limited"
)

// Error is the typed failure returned by the tracker client.
type Error struct {
	Kind       ErrorKind
	StatusCode int
	Endpoint   string
	Message    string
	Cause      error
}

func (e *Error) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("tracker %s: %s (status %d): %s", e.Kind, e.Endpoint, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("tracker %s: %s: %s", e.Kind, e.Endpoint, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches tracker errors by kind, so callers can compare against a bare
// &Error{Kind: ...} probe.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// IsAuth reports whether err is a tracker authentication failure.
func IsAuth(err error) bool { return kindOf(err) == KindAuth }

// IsNotFound reports whether err is a tracker 404.
func IsNotFound(err error) bool { return kindOf(err) == KindNotFound }

// IsRateLimited reports whether err is an exhausted rate-limit retry.
func IsRateLimited(err error) bool { return kindOf(err) == KindRateLimited }

func kindOf(err error) ErrorKind {
	var te *Error
	if errors.As(err, &te) {
		return te.Kind
	}
	return ""
}
