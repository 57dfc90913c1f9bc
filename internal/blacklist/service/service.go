// Package service implements the blacklist registry: at most one entry per
// user, logically active until expiry, plus the revoke-and-blacklist
// composite that pulls a user's KYC for cause.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"ledgergate/internal/audit"
	authmodels "ledgergate/internal/authority/models"
	"ledgergate/internal/blacklist/models"
	idmodels "ledgergate/internal/identity/models"
	"ledgergate/internal/sentinel"
	"ledgergate/pkg/domain"
	dErrors "ledgergate/pkg/domain-errors"
)

type Store interface {
	Upsert(ctx context.Context, entry *models.Entry) error
	Find(ctx context.Context, user domain.UserID) (*models.Entry, error)
	Delete(ctx context.Context, user domain.UserID) error
}

type Authorizer interface {
	RequirePower(ctx context.Context, principal domain.PrincipalID, power authmodels.Powers) error
	MarkAction(ctx context.Context, principal domain.PrincipalID) error
}

// IdentityRevoker is the identity-module hook for the composite revocation.
type IdentityRevoker interface {
	ForceRevoke(ctx context.Context, user domain.UserID) (*idmodels.Record, error)
}

type Service struct {
	store    Store
	authz    Authorizer
	identity IdentityRevoker
	auditor  *audit.Publisher
	logger   *slog.Logger
	now      func() time.Time
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// WithClock overrides the time source. Tests only.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func New(store Store, authz Authorizer, identity IdentityRevoker, auditor *audit.Publisher, opts ...Option) *Service {
	s := &Service{
		store:    store,
		authz:    authz,
		identity: identity,
		auditor:  auditor,
		logger:   slog.Default(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type AddRequest struct {
	User        domain.UserID
	Reason      models.Reason
	ActionType  models.ActionType
	EvidenceRef string
	ExpiresAt   *time.Time // nil means permanent
}

// Add creates the user's blacklist entry. Fails with already_exists while a
// logically active entry is present; an expired one is silently replaced.
func (s *Service) Add(ctx context.Context, caller domain.PrincipalID, req AddRequest) (*models.Entry, error) {
	if err := s.authz.RequirePower(ctx, caller, authmodels.PowerBlockTransactions); err != nil {
		return nil, err
	}
	if req.User.IsEmpty() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "user id is required")
	}
	now := s.now()
	if req.ExpiresAt != nil && !req.ExpiresAt.After(now) {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "expiry must be in the future")
	}

	existing, err := s.store.Find(ctx, req.User)
	if err != nil && !errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "loading blacklist entry")
	}
	if existing.ActiveAt(now) {
		return nil, dErrors.New(dErrors.CodeAlreadyExists, "user already has an active blacklist entry")
	}

	entry := &models.Entry{
		User:        req.User,
		Reason:      req.Reason,
		ActionType:  req.ActionType,
		EvidenceRef: req.EvidenceRef,
		CreatedBy:   caller,
		CreatedAt:   now,
		UpdatedAt:   now,
		ExpiresAt:   req.ExpiresAt,
	}
	if err := s.store.Upsert(ctx, entry); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "persisting blacklist entry")
	}

	_ = s.authz.MarkAction(ctx, caller)
	s.auditor.Emit(ctx, audit.Event{
		Authority: caller.String(),
		Subject:   req.User.String(),
		Action:    audit.EventBlacklistAdded,
		Reason:    string(req.Reason),
	})
	s.logger.InfoContext(ctx, "blacklist entry added",
		"user", req.User, "reason", req.Reason, "action_type", req.ActionType)
	return entry, nil
}

// UpdateRequest carries partial entry updates; nil fields are unchanged.
// SetExpiresAt distinguishes "don't touch" (false) from "set, possibly to
// permanent" (true with nil ExpiresAt).
type UpdateRequest struct {
	Reason       *models.Reason
	ActionType   *models.ActionType
	EvidenceRef  *string
	SetExpiresAt bool
	ExpiresAt    *time.Time
}

// Update modifies an existing entry, active or expired.
func (s *Service) Update(ctx context.Context, caller domain.PrincipalID, user domain.UserID, req UpdateRequest) (*models.Entry, error) {
	if err := s.authz.RequirePower(ctx, caller, authmodels.PowerBlockTransactions); err != nil {
		return nil, err
	}
	entry, err := s.find(ctx, user)
	if err != nil {
		return nil, err
	}
	if req.Reason != nil {
		entry.Reason = *req.Reason
	}
	if req.ActionType != nil {
		entry.ActionType = *req.ActionType
	}
	if req.EvidenceRef != nil {
		entry.EvidenceRef = *req.EvidenceRef
	}
	if req.SetExpiresAt {
		entry.ExpiresAt = req.ExpiresAt
	}
	entry.UpdatedAt = s.now()

	if err := s.store.Upsert(ctx, entry); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "persisting blacklist entry")
	}
	_ = s.authz.MarkAction(ctx, caller)
	s.auditor.Emit(ctx, audit.Event{
		Authority: caller.String(),
		Subject:   user.String(),
		Action:    audit.EventBlacklistUpdated,
	})
	return entry, nil
}

// Remove deletes the user's entry.
func (s *Service) Remove(ctx context.Context, caller domain.PrincipalID, user domain.UserID) error {
	if err := s.authz.RequirePower(ctx, caller, authmodels.PowerBlockTransactions); err != nil {
		return err
	}
	if err := s.store.Delete(ctx, user); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "no blacklist entry for user")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "deleting blacklist entry")
	}
	_ = s.authz.MarkAction(ctx, caller)
	s.auditor.Emit(ctx, audit.Event{
		Authority: caller.String(),
		Subject:   user.String(),
		Action:    audit.EventBlacklistRemoved,
	})
	s.logger.InfoContext(ctx, "blacklist entry removed", "user", user)
	return nil
}

// StatusOf answers "is this user blacklisted right now". Read-only and
// unauthenticated; it exposes no evidence references.
func (s *Service) StatusOf(ctx context.Context, user domain.UserID, now time.Time) (models.Status, error) {
	entry, err := s.store.Find(ctx, user)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return models.Status{}, nil
		}
		return models.Status{}, dErrors.Wrap(err, dErrors.CodeInternal, "loading blacklist entry")
	}
	return entry.StatusAt(now), nil
}

// Entry returns the full entry for authority-facing reads.
func (s *Service) Entry(ctx context.Context, user domain.UserID) (*models.Entry, error) {
	return s.find(ctx, user)
}

// UpsertFromAlert creates or refreshes the entry driven by an alert
// enforcement action. The alert service has already verified the acting
// authority's enforcement power; no block_transactions check here.
func (s *Service) UpsertFromAlert(ctx context.Context, authority domain.PrincipalID, user domain.UserID, action models.ActionType, evidenceRef string, alertID domain.AlertID) (*models.Entry, error) {
	now := s.now()
	entry, err := s.store.Find(ctx, user)
	if err != nil && !errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "loading blacklist entry")
	}
	if entry == nil || !entry.ActiveAt(now) {
		entry = &models.Entry{User: user, CreatedBy: authority, CreatedAt: now}
	}
	entry.Reason = models.ReasonAmlAlert
	entry.ActionType = action
	entry.EvidenceRef = evidenceRef
	entry.RelatedAlertID = &alertID
	entry.ExpiresAt = nil
	entry.UpdatedAt = now

	if err := s.store.Upsert(ctx, entry); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "persisting blacklist entry")
	}
	return entry, nil
}

// RevokeAndBlacklist atomically pulls the user's KYC and installs a
// permanent freeze-type entry with reason kyc_revoked.
func (s *Service) RevokeAndBlacklist(ctx context.Context, caller domain.PrincipalID, user domain.UserID, evidenceRef string) (*models.Entry, error) {
	if err := s.authz.RequirePower(ctx, caller, authmodels.PowerBlockTransactions); err != nil {
		return nil, err
	}
	if _, err := s.identity.ForceRevoke(ctx, user); err != nil {
		return nil, err
	}

	now := s.now()
	entry := &models.Entry{
		User:        user,
		Reason:      models.ReasonKycRevoked,
		ActionType:  models.ActionFreeze,
		EvidenceRef: evidenceRef,
		CreatedBy:   caller,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.store.Upsert(ctx, entry); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "persisting blacklist entry")
	}

	_ = s.authz.MarkAction(ctx, caller)
	s.auditor.Emit(ctx, audit.Event{
		Authority: caller.String(),
		Subject:   user.String(),
		Action:    audit.EventKycRevoked,
		Reason:    string(models.ReasonKycRevoked),
	})
	s.logger.WarnContext(ctx, "kyc revoked and user blacklisted", "user", user, "authority", caller)
	return entry, nil
}

func (s *Service) find(ctx context.Context, user domain.UserID) (*models.Entry, error) {
	entry, err := s.store.Find(ctx, user)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "no blacklist entry for user")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "loading blacklist entry")
	}
	return entry, nil
}
