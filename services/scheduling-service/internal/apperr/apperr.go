// Package apperr defines the error kinds surfaced by the scheduling core and
// the API layer on top of it.
package apperr

import (
	"errors"
	"fmt"
)

type Kind int

const (
	KindUnknown Kind = iota
	KindNotFound
	KindConflict
	KindBusinessRule
	KindInvalid
	KindUnavailable
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindBusinessRule:
		return "business_rule"
	case KindInvalid:
		return "invalid"
	case KindUnavailable:
		return "unavailable"
	default:
		return "unknown"
	}
}

var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrBusinessRule = errors.New("business rule violation")
	ErrInvalid      = errors.New("invalid request")
	ErrUnavailable  = errors.New("temporarily unavailable")
)

// Error carries a user-facing message plus optional structured details.
// errors.Is matches it against the sentinel of its kind.
type Error struct {
	Kind    Kind
	Message string
	Details map[string]any
}

func (e *Error) Error() string { return e.Message }

func (e *Error) Unwrap() error {
	switch e.Kind {
	case KindNotFound:
		return ErrNotFound
	case KindConflict:
		return ErrConflict
	case KindBusinessRule:
		return ErrBusinessRule
	case KindInvalid:
		return ErrInvalid
	case KindUnavailable:
		return ErrUnavailable
	default:
		return nil
	}
}

// With returns a copy of e with key set in Details.
func (e *Error) With(key string, value any) *Error {
	details := make(map[string]any, len(e.Details)+1)
	for k, v := range e.Details {
		details[k] = v
	}
	details[key] = value
	return &Error{Kind: e.Kind, Message: e.Message, Details: details}
}

func newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func NotFound(format string, args ...any) *Error { return newf(KindNotFound, format, args...) }
func Conflict(format string, args ...any) *Error { return newf(KindConflict, format, args...) }
func BusinessRule(format string, args ...any) *Error { return newf(KindBusinessRule, format, args...) }
func Invalid(format string, args ...any) *Error { return newf(KindInvalid, format, args...) }
func Unavailable(format string, args ...any) *Error { return newf(KindUnavailable, format, args...) }

// KindOf returns the kind of the first *Error in err's chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }
func IsConflict(err error) bool { return errors.Is(err, ErrConflict) }
func IsBusinessRule(err error) bool { return errors.Is(err, ErrBusinessRule) }
