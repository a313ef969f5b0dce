// Package apperr defines the hypervisor's error taxonomy and its mapping
// onto HTTP status codes, so every layer surfaces failures the same way
// instead of inventing its own error strings.
package apperr

import (
	"net/http"

	"github.com/cexlabs/hypervisor/internal/logger"
)

// Kind classifies an error by how the HTTP surface should respond to it.
type Kind int

const (
	// KindInternal covers KDF failures, hardware quote failures, and
	// sandbox engine setup failures.
	KindInternal Kind = iota
	// KindBadInput covers malformed hex, non-UTF-8 payloads, AEAD tag
	// failures, guest traps, and non-zero WASM guest exits.
	KindBadInput
	// KindUnauthorized covers requests for a client pubkey with no
	// registered session.
	KindUnauthorized
	// KindPaymentRequired is surfaced by the payment gate before a
	// handler ever runs.
	KindPaymentRequired
)

// Error is an apperr-classified failure. Message is safe to return to a
// caller verbatim; it must never include key material or stack traces.
type Error struct {
	Kind    Kind
	Message string
	cause   error
}

func (e *Error) Error() string { return e.Message }

func (e *Error) Unwrap() error { return e.cause }

// Status returns the HTTP status code for the error's kind.
func (e *Error) Status() int {
	switch e.Kind {
	case KindBadInput:
		return http.StatusBadRequest
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindPaymentRequired:
		return http.StatusPaymentRequired
	default:
		return http.StatusInternalServerError
	}
}

// BadInput constructs a KindBadInput error.
func BadInput(msg string) *Error { return &Error{Kind: KindBadInput, Message: msg} }

// Unauthorized constructs a KindUnauthorized error.
func Unauthorized(msg string) *Error { return &Error{Kind: KindUnauthorized, Message: msg} }

// Internal constructs a KindInternal error, wrapping cause for internal
// logging without exposing it to callers.
func Internal(msg string, cause error) *Error {
	return &Error{Kind: KindInternal, Message: msg, cause: cause}
}

// PaymentRequired constructs a KindPaymentRequired error.
func PaymentRequired(msg string) *Error { return &Error{Kind: KindPaymentRequired, Message: msg} }

// logCode maps the error's Kind onto the structured logger's error-code
// taxonomy, so every apperr failure carries a code a log aggregator can
// group on.
func (e *Error) logCode() string {
	switch e.Kind {
	case KindBadInput:
		return logger.ErrCodeInvalidInput
	case KindUnauthorized:
		return logger.ErrCodeUnauthorized
	case KindPaymentRequired:
		return logger.ErrCodePaymentRequired
	default:
		return logger.ErrCodeInternal
	}
}

// LogError converts e into the structured *logger.AppError the rest of the
// hypervisor logs through, carrying the error's code and wrapped cause
// without exposing either to the HTTP caller.
func (e *Error) LogError() *logger.AppError {
	return logger.NewAppError(e.logCode(), e.Message, e.cause)
}

// As attempts to recover an *Error from err, falling back to a generic
// internal error if err isn't one of ours.
func As(err error) *Error {
	if e, ok := err.(*Error); ok {
		return e
	}
	return Internal("internal error", err)
}
