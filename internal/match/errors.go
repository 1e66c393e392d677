package match

import (
	"context"
	"errors"
	"fmt"

	"github.com/luckykangaroo/backend/internal/repository"
)

// ErrorKind is the failure discriminator surfaced to API callers. Business
// rejections are tagged values, never panics; callers switch on the kind to
// choose a retry policy.
type ErrorKind string

const (
	KindNone                  ErrorKind = ""
	KindNotFound              ErrorKind = "not_found"
	KindInvalidRequest        ErrorKind = "invalid_request"
	KindRepositoryTimeout     ErrorKind = "repository_timeout"
	KindRepositoryUnavailable ErrorKind = "repository_unavailable"
	KindDeadlineExceeded      ErrorKind = "deadline_exceeded"
	KindInternal              ErrorKind = "internal"
)

// Error carries an ErrorKind alongside the underlying cause.
type Error struct {
	Kind ErrorKind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error { return e.Err }

func newError(kind ErrorKind, msg string) *Error {
	return &Error{Kind: kind, Msg: msg}
}

func wrapError(kind ErrorKind, msg string, err error) *Error {
	return &Error{Kind: kind, Msg: msg, Err: err}
}

// KindOf extracts the ErrorKind from err, classifying repository and context
// failures that were not already tagged.
func KindOf(err error) ErrorKind {
	if err == nil {
		return KindNone
	}
	var me *Error
	if errors.As(err, &me) {
		return me.Kind
	}
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return KindNotFound
	case errors.Is(err, repository.ErrUnavailable):
		return KindRepositoryUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return KindDeadlineExceeded
	case errors.Is(err, context.Canceled):
		return KindDeadlineExceeded
	default:
		return KindInternal
	}
}
