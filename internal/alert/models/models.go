package models

import (
	"time"

	"ledgergate/pkg/domain"
	dErrors "ledgergate/pkg/domain-errors"
)

// Status is the alert lifecycle state. ActionTaken is reachable only
// through the take-action operation, never through a plain status update.
type Status string

const (
	StatusOpen          Status = "open"
	StatusInvestigating Status = "investigating"
	StatusEscalated     Status = "escalated"
	StatusActionTaken   Status = "action_taken"
	StatusResolved      Status = "resolved"
	StatusClosed        Status = "closed"
	StatusFalsePositive Status = "false_positive"
)

// allowedTransitions is the update-path graph. FalsePositive is reachable
// from every non-terminal status as an exoneration shortcut.
var allowedTransitions = map[Status][]Status{
	StatusOpen:          {StatusInvestigating, StatusFalsePositive},
	StatusInvestigating: {StatusEscalated, StatusFalsePositive},
	StatusEscalated:     {StatusActionTaken, StatusFalsePositive},
	StatusActionTaken:   {StatusResolved, StatusClosed, StatusFalsePositive},
}

func (s Status) CanTransitionTo(next Status) bool {
	for _, allowed := range allowedTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// IsTerminal reports whether the alert record is immutable (annotations
// excepted).
func (s Status) IsTerminal() bool {
	switch s {
	case StatusResolved, StatusClosed, StatusFalsePositive:
		return true
	default:
		return false
	}
}

func (s Status) IsValid() bool {
	switch s {
	case StatusOpen, StatusInvestigating, StatusEscalated,
		StatusActionTaken, StatusResolved, StatusClosed, StatusFalsePositive:
		return true
	default:
		return false
	}
}

func ParseStatus(raw string) (Status, error) {
	st := Status(raw)
	if !st.IsValid() {
		return "", dErrors.New(dErrors.CodeInvalidInput, "unknown alert status: "+raw)
	}
	return st, nil
}

// EnforcementAction is what take-action does to the alert subject.
type EnforcementAction string

const (
	ActionFreeze EnforcementAction = "freeze"
	ActionSeize  EnforcementAction = "seize"
)

func ParseEnforcementAction(raw string) (EnforcementAction, error) {
	switch a := EnforcementAction(raw); a {
	case ActionFreeze, ActionSeize:
		return a, nil
	default:
		return "", dErrors.New(dErrors.CodeInvalidInput, "unknown enforcement action: "+raw)
	}
}

// ActionRecord captures the enforcement step taken on an alert.
type ActionRecord struct {
	Action        EnforcementAction `json:"action"`
	Justification string            `json:"justification"`
	TakenBy       domain.PrincipalID `json:"taken_by"`
	TakenAt       time.Time         `json:"taken_at"`
}

// Annotation is a free-form investigator note. Annotations are the only
// mutation allowed on a terminal alert.
type Annotation struct {
	Author domain.PrincipalID `json:"author"`
	Note   string             `json:"note"`
	At     time.Time          `json:"at"`
}

// Record is an AML alert raised against a user.
type Record struct {
	ID           domain.AlertID
	Subject      domain.UserID
	AuthorityID  string // human-readable registry id of the raising authority
	RaisedBy     domain.PrincipalID
	Status       Status
	Severity     uint8 // 1 (informational) .. 5 (critical)
	EvidenceRefs []string
	ActionTaken  *ActionRecord
	Resolution   string
	Annotations  []Annotation
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
