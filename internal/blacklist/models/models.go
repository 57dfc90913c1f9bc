package models

import (
	"time"

	"ledgergate/pkg/domain"
	dErrors "ledgergate/pkg/domain-errors"
)

// Reason classifies why a user is blacklisted.
type Reason string

const (
	ReasonKycRevoked           Reason = "kyc_revoked"
	ReasonSuspiciousActivity   Reason = "suspicious_activity"
	ReasonRegulatoryOrder      Reason = "regulatory_order"
	ReasonCourtOrder           Reason = "court_order"
	ReasonAmlAlert             Reason = "aml_alert"
	ReasonTemporaryRestriction Reason = "temporary_restriction"
	ReasonOther                Reason = "other"
)

func ParseReason(s string) (Reason, error) {
	switch r := Reason(s); r {
	case ReasonKycRevoked, ReasonSuspiciousActivity, ReasonRegulatoryOrder,
		ReasonCourtOrder, ReasonAmlAlert, ReasonTemporaryRestriction, ReasonOther:
		return r, nil
	default:
		return "", dErrors.New(dErrors.CodeInvalidInput, "unknown blacklist reason: "+s)
	}
}

// ActionType is the enforcement character of an entry. Only Freeze,
// BlockTransfers and Restrict make the policy evaluator deny transfers;
// Seize entries record intent without blocking movement on their own.
type ActionType string

const (
	ActionFreeze         ActionType = "freeze"
	ActionSeize          ActionType = "seize"
	ActionRestrict       ActionType = "restrict"
	ActionBlockTransfers ActionType = "block_transfers"
)

func ParseActionType(s string) (ActionType, error) {
	switch a := ActionType(s); a {
	case ActionFreeze, ActionSeize, ActionRestrict, ActionBlockTransfers:
		return a, nil
	default:
		return "", dErrors.New(dErrors.CodeInvalidInput, "unknown blacklist action type: "+s)
	}
}

// BlocksTransfers reports whether an active entry with this action type
// denies transfer policy evaluation.
func (a ActionType) BlocksTransfers() bool {
	switch a {
	case ActionFreeze, ActionBlockTransfers, ActionRestrict:
		return true
	default:
		return false
	}
}

// Entry is a user's blacklist entry. At most one per user; re-adding after
// expiry or removal replaces it.
type Entry struct {
	User           domain.UserID
	Reason         Reason
	ActionType     ActionType
	EvidenceRef    string
	RelatedAlertID *domain.AlertID
	CreatedBy      domain.PrincipalID
	CreatedAt      time.Time
	UpdatedAt      time.Time
	ExpiresAt      *time.Time // nil means permanent
}

// ActiveAt is the logical-active predicate: an entry is active until its
// expiry passes. Expiry is evaluated lazily at read time; nothing sweeps
// expired rows.
func (e *Entry) ActiveAt(now time.Time) bool {
	if e == nil {
		return false
	}
	return e.ExpiresAt == nil || now.Before(*e.ExpiresAt)
}

// Status is the read-model answer to "is this user blacklisted right now".
type Status struct {
	Active           bool
	Reason           Reason
	ActionType       ActionType
	RemainingSeconds *int64 // nil when permanent or inactive
}

// StatusAt projects the entry against the supplied time. A nil entry is the
// inactive status.
func (e *Entry) StatusAt(now time.Time) Status {
	if !e.ActiveAt(now) {
		return Status{}
	}
	st := Status{Active: true, Reason: e.Reason, ActionType: e.ActionType}
	if e.ExpiresAt != nil {
		remaining := int64(e.ExpiresAt.Sub(now).Seconds())
		st.RemainingSeconds = &remaining
	}
	return st
}
