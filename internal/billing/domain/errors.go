package domain

import (
	"errors"
	"fmt"
)

// ErrorKind classifies billing failures.
type ErrorKind string

const (
	KindIO                  ErrorKind = "io"
	KindSerialization       ErrorKind = "serialization"
	KindProviderUnavailable ErrorKind = "provider_unavailable"
	KindValidation          ErrorKind = "validation"
	KindNotFound            ErrorKind = "not_found"
	// KindConflict is reserved; no operation currently raises it.
	KindConflict ErrorKind = "conflict"
)

// Error carries a classified billing failure across the service boundary.
type Error struct {
	Kind ErrorKind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	switch {
	case e.Msg != "" && e.Err != nil:
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Err)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	default:
		return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
	}
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches against another *Error by kind, so sentinel comparisons like
// errors.Is(err, domain.ErrNotFound("")) work on wrapped errors.
func (e *Error) Is(target error) bool {
	var other *Error
	if !errors.As(target, &other) {
		return false
	}
	return other.Kind == e.Kind
}

func ErrIO(msg string, err error) error {
	return &Error{Kind: KindIO, Msg: msg, Err: err}
}

func ErrSerialization(msg string, err error) error {
	return &Error{Kind: KindSerialization, Msg: msg, Err: err}
}

func ErrProviderUnavailable(msg string) error {
	return &Error{Kind: KindProviderUnavailable, Msg: msg}
}

func ErrValidation(msg string) error {
	return &Error{Kind: KindValidation, Msg: msg}
}

func ErrNotFound(msg string) error {
	return &Error{Kind: KindNotFound, Msg: msg}
}

// KindOf extracts the error kind; unknown errors report as IO.
func KindOf(err error) ErrorKind {
	var billingErr *Error
	if errors.As(err, &billingErr) {
		return billingErr.Kind
	}
	return KindIO
}

// IsKind reports whether err carries the given billing error kind.
func IsKind(err error, kind ErrorKind) bool {
	var billingErr *Error
	return errors.As(err, &billingErr) && billingErr.Kind == kind
}

// ProcessorErrorKind classifies failures at the processor boundary.
type ProcessorErrorKind string

const (
	ProcessorProviderUnavailable ProcessorErrorKind = "provider_unavailable"
	ProcessorValidation          ProcessorErrorKind = "validation"
	ProcessorTransport           ProcessorErrorKind = "transport"
	ProcessorUnexpected          ProcessorErrorKind = "unexpected"
)

// ProcessorError is the narrower taxonomy surfaced by payment processors.
type ProcessorError struct {
	Kind ProcessorErrorKind
	Msg  string
}

func (e *ProcessorError) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

// AsBillingError lifts a processor error into the billing taxonomy without
// losing the structured kind.
func AsBillingError(err error) error {
	if err == nil {
		return nil
	}
	var procErr *ProcessorError
	if !errors.As(err, &procErr) {
		return &Error{Kind: KindValidation, Err: err}
	}
	switch procErr.Kind {
	case ProcessorProviderUnavailable:
		return &Error{Kind: KindProviderUnavailable, Msg: procErr.Msg}
	case ProcessorValidation:
		return &Error{Kind: KindValidation, Msg: procErr.Msg}
	default:
		// Transport and Unexpected are provider-side faults, not caller
		// mistakes.
		return &Error{Kind: KindProviderUnavailable, Msg: procErr.Msg, Err: procErr}
	}
}
