package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for registration operations. Each one is also the identity of an
// ErrorKind, so callers can use errors.Is against a *Error of that kind.
var (
	ErrValidation         = errors.New("validation error")
	ErrEventNotFound      = errors.New("event not found")
	ErrServiceUnavailable = errors.New("event service unavailable")
	ErrUnauthorized       = errors.New("not authorized")
	ErrAlreadyCancelled   = errors.New("registration is already cancelled")
	ErrNotFound           = errors.New("registration not found")
)

// Store-level errors. These never reach the HTTP boundary directly; the
// registration service translates them.
var (
	// ErrDuplicateTicketToken is returned by a store when a ticket token is already taken.
	ErrDuplicateTicketToken = errors.New("ticket token already issued")
	// ErrStatusConflict is returned by TransitionStatus when the current status is not the expected one.
	ErrStatusConflict = errors.New("registration status changed concurrently")
)

// ErrorKind classifies a failure for the boundary. The boundary maps kinds to
// status codes; it never inspects messages.
type ErrorKind int

const (
	KindInternal ErrorKind = iota
	KindValidation
	KindEventNotFound
	KindServiceUnavailable
	KindUnauthorized
	KindAlreadyCancelled
	KindNotFound
)

var kindSentinels = map[ErrorKind]error{
	KindValidation:         ErrValidation,
	KindEventNotFound:      ErrEventNotFound,
	KindServiceUnavailable: ErrServiceUnavailable,
	KindUnauthorized:       ErrUnauthorized,
	KindAlreadyCancelled:   ErrAlreadyCancelled,
	KindNotFound:           ErrNotFound,
}

func (k ErrorKind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindEventNotFound:
		return "event_not_found"
	case KindServiceUnavailable:
		return "service_unavailable"
	case KindUnauthorized:
		return "unauthorized"
	case KindAlreadyCancelled:
		return "already_cancelled"
	case KindNotFound:
		return "not_found"
	default:
		return "internal"
	}
}

// Error is a tagged domain failure. Reason is safe to show to clients; Err is the
// optional underlying cause and is only meant for logs.
type Error struct {
	Kind   ErrorKind
	Reason string
	Err    error
}

// NewError returns a *Error of the given kind.
func NewError(kind ErrorKind, reason string, cause error) *Error {
	return &Error{Kind: kind, Reason: reason, Err: cause}
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Reason, e.Err)
	}
	return e.Reason
}

// Unwrap exposes both the kind sentinel and the cause to errors.Is / errors.As.
func (e *Error) Unwrap() []error {
	var errs []error
	if s, ok := kindSentinels[e.Kind]; ok {
		errs = append(errs, s)
	}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

// KindOf returns the kind of err. Anything that is not a *Error, or wraps no known
// sentinel, is KindInternal.
func KindOf(err error) ErrorKind {
	if err == nil {
		return KindInternal
	}
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	for kind, sentinel := range kindSentinels {
		if errors.Is(err, sentinel) {
			return kind
		}
	}
	return KindInternal
}
