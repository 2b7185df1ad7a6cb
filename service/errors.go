package service

import (
	"errors"
	"fmt"
)

// Kind classifies errors surfaced to the request layer
type Kind string

const (
	KindBadRequest           Kind = "bad_request"
	KindNotFound             Kind = "not_found"
	KindForbidden            Kind = "forbidden"
	KindConflict             Kind = "conflict"
	KindNoEligibleCandidates Kind = "no_eligible_candidates"
	KindInternal             Kind = "internal"
)

var (
	ErrBadRequest           = errors.New("bad request")
	ErrNotFound             = errors.New("not found")
	ErrForbidden            = errors.New("forbidden")
	ErrConflict             = errors.New("conflict")
	ErrNoEligibleCandidates = errors.New("no eligible candidates")

	// ErrInsufficientFunds is a Forbidden raised when a debit would overdraw an account
	ErrInsufficientFunds = &Error{Kind: KindForbidden, Message: "insufficient funds"}
	// ErrUnknownAsset is a NotFound raised when an instance is missing, sold or consumed
	ErrUnknownAsset = &Error{Kind: KindNotFound, Message: "unknown asset"}
)

// Error is a tagged domain error
type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

// Is matches the kind sentinel as well as identical tagged errors
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Kind == t.Kind && e.Message == t.Message
	}
	return kindSentinel(e.Kind) == target
}

func kindSentinel(kind Kind) error {
	switch kind {
	case KindBadRequest:
		return ErrBadRequest
	case KindNotFound:
		return ErrNotFound
	case KindForbidden:
		return ErrForbidden
	case KindConflict:
		return ErrConflict
	case KindNoEligibleCandidates:
		return ErrNoEligibleCandidates
	default:
		return nil
	}
}

func newError(kind Kind, format string, args ...any) error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func badRequest(format string, args ...any) error {
	return newError(KindBadRequest, format, args...)
}

func notFound(format string, args ...any) error {
	return newError(KindNotFound, format, args...)
}

func forbidden(format string, args ...any) error {
	return newError(KindForbidden, format, args...)
}

func conflict(format string, args ...any) error {
	return newError(KindConflict, format, args...)
}

// KindOf maps any error to its kind. Untagged errors are internal failures.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var tagged *Error
	if errors.As(err, &tagged) {
		return tagged.Kind
	}
	for _, kind := range []Kind{KindBadRequest, KindNotFound, KindForbidden, KindConflict, KindNoEligibleCandidates} {
		if errors.Is(err, kindSentinel(kind)) {
			return kind
		}
	}
	return KindInternal
}
