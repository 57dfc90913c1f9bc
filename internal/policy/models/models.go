package models

import (
	"time"

	"ledgergate/internal/ledger"
	"ledgergate/pkg/domain"
	dErrors "ledgergate/pkg/domain-errors"
)

// Kind is the movement class under evaluation.
type Kind string

const (
	KindMint     Kind = "mint"
	KindTransfer Kind = "transfer"
	KindRedeem   Kind = "redeem"
)

func ParseKind(raw string) (Kind, error) {
	switch k := Kind(raw); k {
	case KindMint, KindTransfer, KindRedeem:
		return k, nil
	default:
		return "", dErrors.New(dErrors.CodeInvalidInput, "unknown movement kind: "+raw)
	}
}

// Request describes a proposed movement. Lock states come from the host
// ledger at submission time; the evaluator re-checks nothing afterwards,
// the decision is point-in-time.
type Request struct {
	Kind         Kind
	Sender       domain.UserID // empty for mint
	Receiver     domain.UserID // empty for redeem
	Amount       uint64        // integer cents
	SenderLock   ledger.LockState
	ReceiverLock ledger.LockState
}

// Outcome is the evaluation verdict.
type Outcome string

const (
	OutcomeAllow Outcome = "allow"
	OutcomeDeny  Outcome = "deny"
)

// DenyReason pinpoints the first rule that failed, in rule order, so a
// stale-verification denial is distinguishable from a blacklist one.
type DenyReason string

const (
	ReasonAccountFrozen         DenyReason = "account_frozen"
	ReasonAccountBlacklisted    DenyReason = "account_blacklisted"
	ReasonInsufficientLevel     DenyReason = "insufficient_verification_level"
	ReasonVerificationExpired   DenyReason = "verification_expired"
	ReasonTransferLimitExceeded DenyReason = "transfer_limit_exceeded"
	ReasonInsufficientReserve   DenyReason = "insufficient_reserve"
)

// Result is the evaluation outcome. MaxAmount is the applicable tier
// ceiling, reported on allows and on limit denials.
type Result struct {
	Status        Outcome
	Reason        DenyReason
	MaxAmount     uint64
	SenderLevel   uint8
	ReceiverLevel uint8
	EvaluatedAt   time.Time
}

func Allow(maxAmount uint64) *Result {
	return &Result{Status: OutcomeAllow, MaxAmount: maxAmount}
}

func Deny(reason DenyReason) *Result {
	return &Result{Status: OutcomeDeny, Reason: reason}
}
