// Package service implements the authority registry: registration and
// lifecycle of compliance authorities, gated by the configured super
// authority, and the power checks every enforcement path runs through.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"ledgergate/internal/audit"
	"ledgergate/internal/authority/models"
	"ledgergate/internal/sentinel"
	"ledgergate/pkg/domain"
	dErrors "ledgergate/pkg/domain-errors"
)

type Store interface {
	Create(ctx context.Context, rec *models.Record) error
	Find(ctx context.Context, principal domain.PrincipalID) (*models.Record, error)
	Update(ctx context.Context, rec *models.Record) error
}

// Service owns the authority registry. All registry mutations require the
// super-authority principal; power checks are open to other services.
type Service struct {
	store   Store
	auditor *audit.Publisher
	logger  *slog.Logger
	super   domain.PrincipalID
	now     func() time.Time
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// WithClock overrides the time source. Tests only.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func New(store Store, auditor *audit.Publisher, super domain.PrincipalID, opts ...Option) *Service {
	s := &Service{
		store:   store,
		auditor: auditor,
		logger:  slog.Default(),
		super:   super,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type RegisterRequest struct {
	Principal    domain.PrincipalID
	AuthorityID  string
	Institution  string
	Jurisdiction string
	Powers       models.Powers
}

// Register creates an active authority record. Super authority only.
func (s *Service) Register(ctx context.Context, caller domain.PrincipalID, req RegisterRequest) (*models.Record, error) {
	if err := s.requireSuper(caller); err != nil {
		return nil, err
	}
	if req.Principal.IsEmpty() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "authority principal is required")
	}
	if req.AuthorityID == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "authority id is required")
	}
	if req.Powers&^models.AllPowers != 0 {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "unknown power bits in grant")
	}

	now := s.now()
	rec := &models.Record{
		Principal:    req.Principal,
		AuthorityID:  req.AuthorityID,
		Institution:  req.Institution,
		Jurisdiction: req.Jurisdiction,
		Powers:       req.Powers,
		Active:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.store.Create(ctx, rec); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, dErrors.New(dErrors.CodeAlreadyExists, "authority already registered for principal")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "creating authority record")
	}

	s.auditor.Emit(ctx, audit.Event{
		Authority: caller.String(),
		Subject:   req.Principal.String(),
		Action:    audit.EventAuthorityRegistered,
		Reason:    req.AuthorityID,
	})
	s.logger.InfoContext(ctx, "authority registered",
		"principal", req.Principal, "authority_id", req.AuthorityID, "powers", req.Powers.Names())
	return rec, nil
}

// UpdateRequest carries partial registry updates; nil fields are unchanged.
type UpdateRequest struct {
	Institution  *string
	Jurisdiction *string
	Powers       *models.Powers
}

// Update modifies a registered authority. Super authority only. Updating a
// deactivated record is allowed; it stays deactivated.
func (s *Service) Update(ctx context.Context, caller domain.PrincipalID, principal domain.PrincipalID, req UpdateRequest) (*models.Record, error) {
	if err := s.requireSuper(caller); err != nil {
		return nil, err
	}
	rec, err := s.find(ctx, principal)
	if err != nil {
		return nil, err
	}
	if req.Institution != nil {
		rec.Institution = *req.Institution
	}
	if req.Jurisdiction != nil {
		rec.Jurisdiction = *req.Jurisdiction
	}
	if req.Powers != nil {
		if *req.Powers&^models.AllPowers != 0 {
			return nil, dErrors.New(dErrors.CodeInvalidInput, "unknown power bits in grant")
		}
		rec.Powers = *req.Powers
	}
	rec.UpdatedAt = s.now()

	if err := s.store.Update(ctx, rec); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "updating authority record")
	}
	s.auditor.Emit(ctx, audit.Event{
		Authority: caller.String(),
		Subject:   principal.String(),
		Action:    audit.EventAuthorityUpdated,
	})
	return rec, nil
}

// Deactivate logically disables an authority. The record remains so past
// actions stay attributable; all power checks fail from now on.
func (s *Service) Deactivate(ctx context.Context, caller domain.PrincipalID, principal domain.PrincipalID) (*models.Record, error) {
	if err := s.requireSuper(caller); err != nil {
		return nil, err
	}
	rec, err := s.find(ctx, principal)
	if err != nil {
		return nil, err
	}
	if rec.Active {
		rec.Active = false
		rec.UpdatedAt = s.now()
		if err := s.store.Update(ctx, rec); err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "deactivating authority record")
		}
	}
	s.auditor.Emit(ctx, audit.Event{
		Authority: caller.String(),
		Subject:   principal.String(),
		Action:    audit.EventAuthorityDeactivated,
	})
	s.logger.InfoContext(ctx, "authority deactivated", "principal", principal)
	return rec, nil
}

// Get returns the registry record for a principal.
func (s *Service) Get(ctx context.Context, principal domain.PrincipalID) (*models.Record, error) {
	return s.find(ctx, principal)
}

// HasPower reports whether the principal holds an active grant of power.
// Unknown and deactivated principals hold nothing.
func (s *Service) HasPower(ctx context.Context, principal domain.PrincipalID, power models.Powers) (bool, error) {
	rec, err := s.store.Find(ctx, principal)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return false, nil
		}
		return false, dErrors.Wrap(err, dErrors.CodeInternal, "loading authority record")
	}
	return rec.EffectivePowers().Has(power), nil
}

// RequirePower fails with unauthorized unless the principal holds an active
// grant of power.
func (s *Service) RequirePower(ctx context.Context, principal domain.PrincipalID, power models.Powers) error {
	ok, err := s.HasPower(ctx, principal, power)
	if err != nil {
		return err
	}
	if !ok {
		return dErrors.New(dErrors.CodeUnauthorized,
			fmt.Sprintf("principal lacks %s power", power.Name()))
	}
	return nil
}

// MarkAction stamps LastActionAt for a principal that just exercised a
// power. Best effort; callers ignore the error.
func (s *Service) MarkAction(ctx context.Context, principal domain.PrincipalID) error {
	rec, err := s.store.Find(ctx, principal)
	if err != nil {
		return err
	}
	rec.LastActionAt = s.now()
	rec.UpdatedAt = rec.LastActionAt
	return s.store.Update(ctx, rec)
}

func (s *Service) requireSuper(caller domain.PrincipalID) error {
	if caller != s.super || caller.IsEmpty() {
		return dErrors.New(dErrors.CodeUnauthorized, "registry mutations require the super authority")
	}
	return nil
}

func (s *Service) find(ctx context.Context, principal domain.PrincipalID) (*models.Record, error) {
	rec, err := s.store.Find(ctx, principal)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "no authority registered for principal")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "loading authority record")
	}
	return rec, nil
}
