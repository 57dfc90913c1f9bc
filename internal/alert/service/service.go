// Package service implements the AML alert lifecycle: creation by
// authorities holding view_transactions, status updates along the lifecycle
// graph, and the take-action step that couples an alert to a blacklist
// entry on its subject.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"ledgergate/internal/alert/models"
	"ledgergate/internal/audit"
	authmodels "ledgergate/internal/authority/models"
	blmodels "ledgergate/internal/blacklist/models"
	"ledgergate/internal/sentinel"
	"ledgergate/pkg/domain"
	dErrors "ledgergate/pkg/domain-errors"
)

type Store interface {
	Create(ctx context.Context, rec *models.Record) error
	Find(ctx context.Context, id domain.AlertID) (*models.Record, error)
	Update(ctx context.Context, rec *models.Record) error
	ListBySubject(ctx context.Context, subject domain.UserID) ([]*models.Record, error)
}

// Registry resolves acting principals against the authority registry.
type Registry interface {
	RequirePower(ctx context.Context, principal domain.PrincipalID, power authmodels.Powers) error
	Get(ctx context.Context, principal domain.PrincipalID) (*authmodels.Record, error)
	MarkAction(ctx context.Context, principal domain.PrincipalID) error
}

// BlacklistUpserter is the blacklist-module hook take-action drives.
type BlacklistUpserter interface {
	UpsertFromAlert(ctx context.Context, authority domain.PrincipalID, user domain.UserID, action blmodels.ActionType, evidenceRef string, alertID domain.AlertID) (*blmodels.Entry, error)
}

type Service struct {
	store     Store
	registry  Registry
	blacklist BlacklistUpserter
	auditor   *audit.Publisher
	logger    *slog.Logger
	now       func() time.Time
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// WithClock overrides the time source. Tests only.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func New(store Store, registry Registry, blacklist BlacklistUpserter, auditor *audit.Publisher, opts ...Option) *Service {
	s := &Service{
		store:     store,
		registry:  registry,
		blacklist: blacklist,
		auditor:   auditor,
		logger:    slog.Default(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type CreateRequest struct {
	Subject      domain.UserID
	Severity     uint8
	EvidenceRefs []string
}

// Create raises a new alert in Open status. Requires view_transactions.
func (s *Service) Create(ctx context.Context, caller domain.PrincipalID, req CreateRequest) (*models.Record, error) {
	if err := s.registry.RequirePower(ctx, caller, authmodels.PowerViewTransactions); err != nil {
		return nil, err
	}
	if req.Subject.IsEmpty() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "alert subject is required")
	}
	if req.Severity < 1 || req.Severity > 5 {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "severity must be 1..5")
	}

	authority, err := s.registry.Get(ctx, caller)
	if err != nil {
		return nil, err
	}

	now := s.now()
	rec := &models.Record{
		ID:           domain.NewAlertID(),
		Subject:      req.Subject,
		AuthorityID:  authority.AuthorityID,
		RaisedBy:     caller,
		Status:       models.StatusOpen,
		Severity:     req.Severity,
		EvidenceRefs: req.EvidenceRefs,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.store.Create(ctx, rec); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "creating alert record")
	}

	_ = s.registry.MarkAction(ctx, caller)
	s.auditor.Emit(ctx, audit.Event{
		Authority: caller.String(),
		Subject:   req.Subject.String(),
		Action:    audit.EventAlertCreated,
		Reason:    fmt.Sprintf("severity=%d", req.Severity),
	})
	s.logger.InfoContext(ctx, "alert created",
		"alert_id", rec.ID, "subject", req.Subject, "severity", req.Severity)
	return rec, nil
}

// UpdateRequest carries a lifecycle update; nil fields are unchanged.
// EvidenceRefs append, never replace.
type UpdateRequest struct {
	Status       *models.Status
	Severity     *uint8
	EvidenceRefs []string
	Resolution   *string
}

// Update moves the alert along the lifecycle graph. ActionTaken is not
// reachable here; only TakeAction sets it.
func (s *Service) Update(ctx context.Context, caller domain.PrincipalID, id domain.AlertID, req UpdateRequest) (*models.Record, error) {
	if err := s.registry.RequirePower(ctx, caller, authmodels.PowerViewTransactions); err != nil {
		return nil, err
	}
	rec, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if rec.Status.IsTerminal() {
		return nil, dErrors.New(dErrors.CodeInvalidTransition,
			"alert is terminal; only annotations are allowed")
	}

	if req.Status != nil {
		next := *req.Status
		if !next.IsValid() {
			return nil, dErrors.New(dErrors.CodeInvalidInput, "unknown alert status: "+string(next))
		}
		if next == models.StatusActionTaken {
			return nil, dErrors.New(dErrors.CodeInvalidTransition,
				"action_taken is only reachable through take-action")
		}
		if !rec.Status.CanTransitionTo(next) {
			return nil, dErrors.New(dErrors.CodeInvalidTransition,
				fmt.Sprintf("cannot transition alert from %s to %s", rec.Status, next))
		}
		rec.Status = next
	}
	if req.Severity != nil {
		if *req.Severity < 1 || *req.Severity > 5 {
			return nil, dErrors.New(dErrors.CodeInvalidInput, "severity must be 1..5")
		}
		rec.Severity = *req.Severity
	}
	rec.EvidenceRefs = append(rec.EvidenceRefs, req.EvidenceRefs...)
	if req.Resolution != nil {
		rec.Resolution = *req.Resolution
	}
	rec.UpdatedAt = s.now()

	if err := s.store.Update(ctx, rec); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "persisting alert update")
	}
	_ = s.registry.MarkAction(ctx, caller)
	s.auditor.Emit(ctx, audit.Event{
		Authority: caller.String(),
		Subject:   rec.Subject.String(),
		Action:    audit.EventAlertUpdated,
	})
	return rec, nil
}

// TakeAction executes an enforcement step on the alert: the caller must
// hold the power matching the action (freeze_accounts for freeze,
// seize_funds for seize), not merely view_transactions. It moves the alert
// to ActionTaken and installs or refreshes a blacklist entry on the
// subject with reason aml_alert.
func (s *Service) TakeAction(ctx context.Context, caller domain.PrincipalID, id domain.AlertID, action models.EnforcementAction, justification string) (*models.Record, error) {
	required, blAction, err := enforcementPower(action)
	if err != nil {
		return nil, err
	}
	if err := s.registry.RequirePower(ctx, caller, required); err != nil {
		return nil, err
	}

	rec, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if rec.Status.IsTerminal() || rec.Status == models.StatusActionTaken {
		return nil, dErrors.New(dErrors.CodeInvalidTransition,
			fmt.Sprintf("cannot take action on alert in %s status", rec.Status))
	}

	now := s.now()
	rec.Status = models.StatusActionTaken
	rec.ActionTaken = &models.ActionRecord{
		Action:        action,
		Justification: justification,
		TakenBy:       caller,
		TakenAt:       now,
	}
	rec.UpdatedAt = now

	evidenceRef := ""
	if len(rec.EvidenceRefs) > 0 {
		evidenceRef = rec.EvidenceRefs[0]
	}
	if _, err := s.blacklist.UpsertFromAlert(ctx, caller, rec.Subject, blAction, evidenceRef, rec.ID); err != nil {
		return nil, err
	}
	if err := s.store.Update(ctx, rec); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "persisting alert action")
	}

	_ = s.registry.MarkAction(ctx, caller)
	s.auditor.Emit(ctx, audit.Event{
		Authority:     caller.String(),
		Subject:       rec.Subject.String(),
		Action:        audit.EventAlertActionTaken,
		Reason:        string(action),
		Justification: justification,
	})
	s.logger.WarnContext(ctx, "alert enforcement action taken",
		"alert_id", rec.ID, "subject", rec.Subject, "action", action)
	return rec, nil
}

// Annotate appends an investigator note. Allowed in every status, terminal
// included.
func (s *Service) Annotate(ctx context.Context, caller domain.PrincipalID, id domain.AlertID, note string) (*models.Record, error) {
	if err := s.registry.RequirePower(ctx, caller, authmodels.PowerViewTransactions); err != nil {
		return nil, err
	}
	if note == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "annotation note is required")
	}
	rec, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	rec.Annotations = append(rec.Annotations, models.Annotation{
		Author: caller,
		Note:   note,
		At:     s.now(),
	})
	rec.UpdatedAt = s.now()

	if err := s.store.Update(ctx, rec); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "persisting alert annotation")
	}
	return rec, nil
}

// Get returns an alert. Authority-facing read; requires view_transactions.
func (s *Service) Get(ctx context.Context, caller domain.PrincipalID, id domain.AlertID) (*models.Record, error) {
	if err := s.registry.RequirePower(ctx, caller, authmodels.PowerViewTransactions); err != nil {
		return nil, err
	}
	return s.find(ctx, id)
}

// ListBySubject returns the user's alerts, oldest first.
func (s *Service) ListBySubject(ctx context.Context, caller domain.PrincipalID, subject domain.UserID) ([]*models.Record, error) {
	if err := s.registry.RequirePower(ctx, caller, authmodels.PowerViewTransactions); err != nil {
		return nil, err
	}
	records, err := s.store.ListBySubject(ctx, subject)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "listing alerts")
	}
	return records, nil
}

func (s *Service) find(ctx context.Context, id domain.AlertID) (*models.Record, error) {
	rec, err := s.store.Find(ctx, id)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "no alert with that id")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "loading alert record")
	}
	return rec, nil
}

func enforcementPower(action models.EnforcementAction) (authmodels.Powers, blmodels.ActionType, error) {
	switch action {
	case models.ActionFreeze:
		return authmodels.PowerFreezeAccounts, blmodels.ActionFreeze, nil
	case models.ActionSeize:
		return authmodels.PowerSeizeFunds, blmodels.ActionSeize, nil
	default:
		return 0, "", dErrors.New(dErrors.CodeInvalidInput, "unknown enforcement action: "+string(action))
	}
}
