package models

import (
	"time"

	"ledgergate/pkg/domain"
	dErrors "ledgergate/pkg/domain-errors"
)

// Status is the stored verification state of an identity record.
// StatusExpired is derived at read time and never persisted.
type Status string

const (
	StatusUnverified Status = "unverified"
	StatusPending    Status = "pending"
	StatusVerified   Status = "verified"
	StatusRejected   Status = "rejected"
	StatusRevoked    Status = "revoked"

	// StatusExpired is the effective status of a Verified record whose
	// validity window has lapsed. Derived only.
	StatusExpired Status = "expired"
)

// MaxVerificationLevel bounds the provider-asserted verification tier.
const MaxVerificationLevel = 3

// allowedTransitions is the closed transition table for SetStatus. Anything
// not listed fails invalid_transition and leaves the record untouched.
var allowedTransitions = map[Status][]Status{
	StatusPending:  {StatusVerified, StatusRejected},
	StatusVerified: {StatusRevoked, StatusRejected},
	StatusRejected: {StatusPending},
	StatusRevoked:  {StatusPending},
}

// CanTransitionTo reports whether the stored-status transition is allowed.
func (s Status) CanTransitionTo(next Status) bool {
	for _, allowed := range allowedTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// IsStorable reports whether the status may be persisted on a record.
func (s Status) IsStorable() bool {
	switch s {
	case StatusUnverified, StatusPending, StatusVerified, StatusRejected, StatusRevoked:
		return true
	default:
		return false
	}
}

// ParseStatus validates and parses a status string at trust boundaries.
func ParseStatus(s string) (Status, error) {
	st := Status(s)
	if !st.IsStorable() {
		return "", dErrors.New(dErrors.CodeInvalidInput, "unknown identity status: "+s)
	}
	return st, nil
}

// Metadata is opaque compliance metadata recorded at registration. The
// policy evaluator never interprets it; only the jurisdiction code is
// checked, against the allow-list.
type Metadata struct {
	BankRoutingCode string // e.g. German BLZ
	AccountHash     string // hex hash of the bank account identifier (IBAN)
	Provider        string // identity verification provider tag
}

// Record is the single per-user identity record. Created on registration,
// mutated only through the verification state machine, never deleted.
type Record struct {
	Owner             domain.UserID
	Status            Status
	VerificationLevel uint8
	VerifiedAt        time.Time // zero until first verification
	ExpiresAt         time.Time // zero means no expiry data set, NOT "never expires"
	JurisdictionCode  string
	Metadata          Metadata
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// EffectiveLevel is the verification level for policy purposes: the stored
// level while the record is Verified and unexpired, else 0. Time is supplied
// by the caller so expiry is evaluated lazily, never via a stored flag.
func (r *Record) EffectiveLevel(now time.Time) uint8 {
	if r == nil || r.Status != StatusVerified {
		return 0
	}
	// A zero ExpiresAt means no expiry data was ever set; such a record is
	// never effectively verified.
	if r.ExpiresAt.IsZero() || !now.Before(r.ExpiresAt) {
		return 0
	}
	return r.VerificationLevel
}

// EffectiveStatus derives the read-time status, mapping a lapsed Verified
// record to StatusExpired.
func (r *Record) EffectiveStatus(now time.Time) Status {
	if r == nil {
		return StatusUnverified
	}
	if r.Status == StatusVerified && r.EffectiveLevel(now) == 0 {
		return StatusExpired
	}
	return r.Status
}

// Snapshot is the read-model the policy evaluator consumes: the effective
// level plus whether a denial is due to a stale verification rather than a
// missing one.
type Snapshot struct {
	EffectiveLevel uint8
	Expired        bool
}

// Snapshot projects the record against the supplied time. A nil record
// (unregistered user) snapshots to level 0.
func (r *Record) Snapshot(now time.Time) Snapshot {
	return Snapshot{
		EffectiveLevel: r.EffectiveLevel(now),
		Expired:        r.EffectiveStatus(now) == StatusExpired,
	}
}
