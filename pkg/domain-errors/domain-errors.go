package domainerrors

import "errors"

// Code represents a domain error category independent of transport layer.
// These codes describe what went wrong in business logic terms, not HTTP terms.
type Code string

const (
	CodeNotFound     Code = "not_found"
	CodeBadRequest   Code = "bad_request"
	CodeInvalidInput Code = "invalid_input"
	CodeInternal     Code = "internal_error"
	CodeConflict     Code = "conflict"
	CodeUnauthorized Code = "unauthorized"

	// Compliance engine error codes. Each denial cause has its own code so
	// client tooling and audits can tell, e.g., a stale verification apart
	// from an active blacklist entry.
	CodeAlreadyExists                 Code = "already_exists"
	CodeInvalidTransition             Code = "invalid_transition"
	CodeJurisdictionNotSupported      Code = "jurisdiction_not_supported"
	CodeVerificationExpired           Code = "verification_expired"
	CodeInsufficientVerificationLevel Code = "insufficient_verification_level"
	CodeTransferLimitExceeded         Code = "transfer_limit_exceeded"
	CodeAccountFrozen                 Code = "account_frozen"
	CodeAccountNotFrozen              Code = "account_not_frozen"
	CodeAccountBlacklisted            Code = "account_blacklisted"
	CodeNotEligibleForFreeze          Code = "not_eligible_for_freeze"
	CodeInsufficientReserve           Code = "insufficient_reserve"
	CodeArithmeticOverflow            Code = "arithmetic_overflow"
)

// Error wraps domain or infrastructure failures with a stable code.
// It is transport-agnostic and can be used across service, store, and other layers.
type Error struct {
	Code    Code
	Message string
	Err     error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return string(e.Code)
}

// Unwrap implements error unwrapping for error chains.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is enables errors.Is() to match errors by code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// New creates a new domain error with the given code and message.
func New(code Code, msg string) error {
	return &Error{Code: code, Message: msg}
}

// Wrap creates a new domain error wrapping an existing error.
// If the wrapped error is already a domain error, the original code is preserved.
func Wrap(err error, code Code, msg string) error {
	var existing *Error
	if errors.As(err, &existing) {
		// Preserve the original domain code, update message
		return &Error{Code: existing.Code, Message: msg, Err: err}
	}
	return &Error{Code: code, Message: msg, Err: err}
}

// HasCode checks if an error is a domain error with the given code.
func HasCode(err error, code Code) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// CodeOf extracts the domain code from an error, or CodeInternal for
// non-domain errors.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeInternal
}
