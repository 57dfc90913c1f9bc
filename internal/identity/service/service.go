// Package service implements the identity verification state machine:
// registration against the jurisdiction allow-list, attestation-driven
// status transitions, and the verified-user counter.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"ledgergate/internal/audit"
	authmodels "ledgergate/internal/authority/models"
	"ledgergate/internal/identity/metrics"
	"ledgergate/internal/identity/models"
	"ledgergate/internal/sentinel"
	"ledgergate/pkg/domain"
	dErrors "ledgergate/pkg/domain-errors"
)

// Store persists identity records. Update applies the verified-user counter
// delta atomically with the record write.
type Store interface {
	Create(ctx context.Context, rec *models.Record) error
	Find(ctx context.Context, user domain.UserID) (*models.Record, error)
	Update(ctx context.Context, rec *models.Record, verifiedDelta int) error
	VerifiedUserCount(ctx context.Context) (int64, error)
}

// Authorizer gates attestation submission on registered authority powers.
type Authorizer interface {
	RequirePower(ctx context.Context, principal domain.PrincipalID, power authmodels.Powers) error
	MarkAction(ctx context.Context, principal domain.PrincipalID) error
}

// Service orchestrates identity operations.
type Service struct {
	store           Store
	authz           Authorizer
	auditor         *audit.Publisher
	logger          *slog.Logger
	jurisdictions   map[string]struct{}
	defaultValidity time.Duration
	now             func() time.Time
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// WithClock overrides the time source. Tests only.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// New builds the identity service. jurisdictions is the ISO 3166-1 alpha-2
// allow-list; defaultValidity is applied when an attestation omits one.
func New(store Store, authz Authorizer, auditor *audit.Publisher, jurisdictions []string, defaultValidity time.Duration, opts ...Option) *Service {
	allowed := make(map[string]struct{}, len(jurisdictions))
	for _, code := range jurisdictions {
		allowed[strings.ToUpper(code)] = struct{}{}
	}
	s := &Service{
		store:           store,
		authz:           authz,
		auditor:         auditor,
		logger:          slog.Default(),
		jurisdictions:   allowed,
		defaultValidity: defaultValidity,
		now:             time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RegisterRequest carries the registration payload. Registration is open:
// it requires no authority power, only a supported jurisdiction.
type RegisterRequest struct {
	User             domain.UserID
	JurisdictionCode string
	Metadata         models.Metadata
}

// Register creates the identity record in Pending status at level 0.
func (s *Service) Register(ctx context.Context, req RegisterRequest) (*models.Record, error) {
	if req.User.IsEmpty() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "user id is required")
	}
	code := strings.ToUpper(strings.TrimSpace(req.JurisdictionCode))
	if _, ok := s.jurisdictions[code]; !ok {
		return nil, dErrors.New(dErrors.CodeJurisdictionNotSupported,
			fmt.Sprintf("jurisdiction %q is not in the allow-list", req.JurisdictionCode))
	}

	now := s.now()
	rec := &models.Record{
		Owner:            req.User,
		Status:           models.StatusPending,
		JurisdictionCode: code,
		Metadata:         req.Metadata,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	if err := s.store.Create(ctx, rec); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, dErrors.New(dErrors.CodeAlreadyExists, "identity record already exists for user")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "creating identity record")
	}

	metrics.RegistrationsTotal.Inc()
	s.auditor.Emit(ctx, audit.Event{
		Subject: req.User.String(),
		Action:  audit.EventIdentityRegistered,
		Reason:  code,
	})
	s.logger.InfoContext(ctx, "identity registered", "user", req.User, "jurisdiction", code)
	return rec, nil
}

// SetStatusRequest is an attestation from a verification authority.
// Validity of zero means "use the configured default".
type SetStatusRequest struct {
	User      domain.UserID
	NewStatus models.Status
	Level     uint8
	Validity  time.Duration
}

// SetStatus applies a verification status transition. Only transitions in
// the allowed table succeed; everything else leaves the record untouched.
func (s *Service) SetStatus(ctx context.Context, caller domain.PrincipalID, req SetStatusRequest) (*models.Record, error) {
	if err := s.authz.RequirePower(ctx, caller, authmodels.PowerRequestUserInfo); err != nil {
		return nil, err
	}
	if !req.NewStatus.IsStorable() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "unknown target status: "+string(req.NewStatus))
	}

	rec, err := s.store.Find(ctx, req.User)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "no identity record for user")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "loading identity record")
	}

	if !rec.Status.CanTransitionTo(req.NewStatus) {
		return nil, dErrors.New(dErrors.CodeInvalidTransition,
			fmt.Sprintf("cannot transition identity from %s to %s", rec.Status, req.NewStatus))
	}

	now := s.now()
	prev := rec.Status

	if req.NewStatus == models.StatusVerified {
		if req.Level < 1 || req.Level > models.MaxVerificationLevel {
			return nil, dErrors.New(dErrors.CodeInvalidInput,
				fmt.Sprintf("verification level must be 1..%d", models.MaxVerificationLevel))
		}
		validity := req.Validity
		if validity == 0 {
			validity = s.defaultValidity
		}
		if validity <= 0 {
			return nil, dErrors.New(dErrors.CodeInvalidInput, "verification validity must be positive")
		}
		rec.VerificationLevel = req.Level
		rec.VerifiedAt = now
		rec.ExpiresAt = now.Add(validity)
	} else {
		// Any non-Verified status is level 0 by definition. VerifiedAt and
		// ExpiresAt are kept as history.
		rec.VerificationLevel = 0
	}
	rec.Status = req.NewStatus
	rec.UpdatedAt = now

	delta := verifiedDelta(prev, req.NewStatus)
	if err := s.store.Update(ctx, rec, delta); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "persisting identity transition")
	}

	metrics.TransitionsTotal.WithLabelValues(string(prev), string(req.NewStatus)).Inc()
	metrics.VerifiedUsers.Add(float64(delta))
	_ = s.authz.MarkAction(ctx, caller)

	s.auditor.Emit(ctx, audit.Event{
		Authority: caller.String(),
		Subject:   req.User.String(),
		Action:    audit.EventIdentityStatusChanged,
		Reason:    fmt.Sprintf("%s -> %s", prev, req.NewStatus),
	})
	s.logger.InfoContext(ctx, "identity status changed",
		"user", req.User, "from", prev, "to", req.NewStatus, "level", rec.VerificationLevel)
	return rec, nil
}

// ForceRevoke moves the record to Revoked from any state, bypassing the
// transition table. Used only by the revoke-and-blacklist composite, whose
// service performs the capability check and audit emission.
func (s *Service) ForceRevoke(ctx context.Context, user domain.UserID) (*models.Record, error) {
	rec, err := s.store.Find(ctx, user)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "no identity record for user")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "loading identity record")
	}
	if rec.Status == models.StatusRevoked {
		return rec, nil
	}

	prev := rec.Status
	rec.Status = models.StatusRevoked
	rec.VerificationLevel = 0
	rec.UpdatedAt = s.now()

	delta := verifiedDelta(prev, models.StatusRevoked)
	if err := s.store.Update(ctx, rec, delta); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "persisting forced revocation")
	}
	metrics.TransitionsTotal.WithLabelValues(string(prev), string(models.StatusRevoked)).Inc()
	metrics.VerifiedUsers.Add(float64(delta))
	return rec, nil
}

// Get returns the identity record for the user.
func (s *Service) Get(ctx context.Context, user domain.UserID) (*models.Record, error) {
	rec, err := s.store.Find(ctx, user)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "no identity record for user")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "loading identity record")
	}
	return rec, nil
}

// VerificationState projects the user's record for policy evaluation.
// Unregistered users snapshot to level 0 without error.
func (s *Service) VerificationState(ctx context.Context, user domain.UserID, now time.Time) (models.Snapshot, error) {
	rec, err := s.store.Find(ctx, user)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return models.Snapshot{}, nil
		}
		return models.Snapshot{}, dErrors.Wrap(err, dErrors.CodeInternal, "loading identity record")
	}
	return rec.Snapshot(now), nil
}

// VerifiedUserCount reports how many records hold Verified stored status.
func (s *Service) VerifiedUserCount(ctx context.Context) (int64, error) {
	count, err := s.store.VerifiedUserCount(ctx)
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "reading verified-user counter")
	}
	return count, nil
}

// verifiedDelta is the counter adjustment for a stored-status transition.
// Symmetric: entering Verified adds one, leaving it subtracts one.
func verifiedDelta(from, to models.Status) int {
	switch {
	case from != models.StatusVerified && to == models.StatusVerified:
		return 1
	case from == models.StatusVerified && to != models.StatusVerified:
		return -1
	default:
		return 0
	}
}
