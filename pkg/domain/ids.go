// Package domain provides type-safe identifiers to prevent mixing up keys at compile time.
package domain

import (
	"github.com/google/uuid"

	dErrors "ledgergate/pkg/domain-errors"
)

// Distinct key types - the compiler prevents passing a UserID where a
// PrincipalID is expected. User, principal, and account keys are opaque
// public-key-sized address strings owned by the surrounding ledger; the
// engine never interprets them.
type (
	UserID      string
	PrincipalID string
	AccountID   string
)

// AlertID identifies an AML case record.
type AlertID uuid.UUID

// maxKeyLen bounds stored address strings (base58 pubkeys are well under this).
const maxKeyLen = 64

// Parse functions - use at trust boundaries (handlers, API inputs).

func ParseUserID(s string) (UserID, error) {
	if err := validateKey(s, "user key"); err != nil {
		return "", err
	}
	return UserID(s), nil
}

func ParsePrincipalID(s string) (PrincipalID, error) {
	if err := validateKey(s, "principal key"); err != nil {
		return "", err
	}
	return PrincipalID(s), nil
}

func ParseAccountID(s string) (AccountID, error) {
	if err := validateKey(s, "account key"); err != nil {
		return "", err
	}
	return AccountID(s), nil
}

func ParseAlertID(s string) (AlertID, error) {
	if s == "" {
		return AlertID(uuid.Nil), dErrors.New(dErrors.CodeInvalidInput, "alert ID cannot be empty")
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return AlertID(uuid.Nil), dErrors.New(dErrors.CodeInvalidInput, "invalid alert ID format")
	}
	return AlertID(id), nil
}

// NewAlertID generates a fresh alert identifier.
func NewAlertID() AlertID {
	return AlertID(uuid.New())
}

// String methods - for logging and persistence keys.

func (id UserID) String() string      { return string(id) }
func (id PrincipalID) String() string { return string(id) }
func (id AccountID) String() string   { return string(id) }
func (id AlertID) String() string     { return uuid.UUID(id).String() }

// IsEmpty checks - used for service-layer validation.

func (id UserID) IsEmpty() bool      { return id == "" }
func (id PrincipalID) IsEmpty() bool { return id == "" }
func (id AccountID) IsEmpty() bool   { return id == "" }
func (id AlertID) IsNil() bool       { return uuid.UUID(id) == uuid.Nil }

func validateKey(s, label string) error {
	if s == "" {
		return dErrors.New(dErrors.CodeInvalidInput, label+" cannot be empty")
	}
	if len(s) > maxKeyLen {
		return dErrors.New(dErrors.CodeInvalidInput, label+" exceeds maximum length")
	}
	return nil
}
