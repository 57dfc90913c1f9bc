// Package service implements enforcement actions against ledger accounts:
// freeze, thaw and seize. Every action re-derives its eligibility evidence
// at call time and is attributed to the acting authority in the audit trail.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"ledgergate/internal/audit"
	authmodels "ledgergate/internal/authority/models"
	blmodels "ledgergate/internal/blacklist/models"
	idmodels "ledgergate/internal/identity/models"
	"ledgergate/internal/ledger"
	"ledgergate/internal/sentinel"
	"ledgergate/pkg/domain"
	dErrors "ledgergate/pkg/domain-errors"
)

type Authorizer interface {
	RequirePower(ctx context.Context, principal domain.PrincipalID, power authmodels.Powers) error
	MarkAction(ctx context.Context, principal domain.PrincipalID) error
}

type IdentityPort interface {
	VerificationState(ctx context.Context, user domain.UserID, now time.Time) (idmodels.Snapshot, error)
}

type BlacklistPort interface {
	StatusOf(ctx context.Context, user domain.UserID, now time.Time) (blmodels.Status, error)
}

type Service struct {
	authz     Authorizer
	identity  IdentityPort
	blacklist BlacklistPort
	ledger    ledger.Ledger
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

func New(authz Authorizer, identity IdentityPort, blacklist BlacklistPort, l ledger.Ledger, auditor *audit.Publisher, opts ...Option) *Service {
	s := &Service{
		authz:     authz,
		identity:  identity,
		blacklist: blacklist,
		ledger:    l,
		auditor:   auditor,
		logger:    slog.Default(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Freeze locks an account. Requires freeze_accounts plus a documented
// cause: the owner is actively blacklisted or their identity is not in
// verified good standing. Freezing an already locked account is a no-op.
func (s *Service) Freeze(ctx context.Context, caller domain.PrincipalID, account domain.AccountID, justification string) error {
	if err := s.authz.RequirePower(ctx, caller, authmodels.PowerFreezeAccounts); err != nil {
		return err
	}
	acct, err := s.account(ctx, account)
	if err != nil {
		return err
	}

	now := s.now()
	cause, err := s.freezeCause(ctx, acct.Owner, now)
	if err != nil {
		return err
	}
	if cause == "" {
		return dErrors.New(dErrors.CodeNotEligibleForFreeze,
			"account owner is neither blacklisted nor out of verified standing")
	}

	if acct.Lock != ledger.Locked {
		if err := s.ledger.SetLockState(ctx, account, ledger.Locked); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "locking account")
		}
	}

	_ = s.authz.MarkAction(ctx, caller)
	s.auditor.Emit(ctx, audit.Event{
		Authority:     caller.String(),
		Subject:       acct.Owner.String(),
		Action:        audit.EventAccountFrozen,
		Source:        account.String(),
		Reason:        cause,
		Justification: justification,
	})
	s.logger.WarnContext(ctx, "account frozen",
		"account", account, "owner", acct.Owner, "cause", cause, "authority", caller)
	return nil
}

// Thaw unlocks an account. Denied while the owner holds an active
// blacklist entry; remove the entry first.
func (s *Service) Thaw(ctx context.Context, caller domain.PrincipalID, account domain.AccountID, justification string) error {
	if err := s.authz.RequirePower(ctx, caller, authmodels.PowerFreezeAccounts); err != nil {
		return err
	}
	acct, err := s.account(ctx, account)
	if err != nil {
		return err
	}

	blStatus, err := s.blacklist.StatusOf(ctx, acct.Owner, s.now())
	if err != nil {
		return err
	}
	if blStatus.Active {
		return dErrors.New(dErrors.CodeAccountBlacklisted,
			"cannot thaw while the owner has an active blacklist entry")
	}

	if acct.Lock != ledger.Unlocked {
		if err := s.ledger.SetLockState(ctx, account, ledger.Unlocked); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "unlocking account")
		}
	}

	_ = s.authz.MarkAction(ctx, caller)
	s.auditor.Emit(ctx, audit.Event{
		Authority:     caller.String(),
		Subject:       acct.Owner.String(),
		Action:        audit.EventAccountThawed,
		Source:        account.String(),
		Justification: justification,
	})
	s.logger.InfoContext(ctx, "account thawed", "account", account, "authority", caller)
	return nil
}

// SeizeRequest describes a forced movement out of a frozen account.
type SeizeRequest struct {
	Source        domain.AccountID
	Destination   domain.AccountID
	Amount        uint64
	Justification string
}

// Seize force-moves funds out of a frozen account into an authority-
// controlled destination. The source must already be frozen, and the
// destination owner must not be actively blacklisted so seized funds never
// land in a sanctioned account. The audit record is written synchronously:
// if it cannot be persisted the seizure fails rather than run unrecorded.
func (s *Service) Seize(ctx context.Context, caller domain.PrincipalID, req SeizeRequest) error {
	if err := s.authz.RequirePower(ctx, caller, authmodels.PowerSeizeFunds); err != nil {
		return err
	}
	if req.Amount == 0 {
		return dErrors.New(dErrors.CodeInvalidInput, "seizure amount must be positive")
	}
	if req.Justification == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "seizure requires a justification")
	}

	src, err := s.account(ctx, req.Source)
	if err != nil {
		return err
	}
	if src.Lock != ledger.Locked {
		return dErrors.New(dErrors.CodeAccountNotFrozen, "seizure source must be frozen first")
	}
	dst, err := s.account(ctx, req.Destination)
	if err != nil {
		return err
	}

	now := s.now()
	dstStatus, err := s.blacklist.StatusOf(ctx, dst.Owner, now)
	if err != nil {
		return err
	}
	if dstStatus.Active {
		return dErrors.New(dErrors.CodeAccountBlacklisted,
			"seizure destination owner is blacklisted")
	}

	if err := s.ledger.ForceMove(ctx, req.Source, req.Destination, req.Amount); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "executing forced move")
	}

	_ = s.authz.MarkAction(ctx, caller)
	event := audit.Event{
		Authority:     caller.String(),
		Subject:       src.Owner.String(),
		Action:        audit.EventFundsSeized,
		Source:        req.Source.String(),
		Destination:   req.Destination.String(),
		Amount:        req.Amount,
		Justification: req.Justification,
	}
	if err := s.auditor.EmitSync(ctx, event); err != nil {
		s.logger.ErrorContext(ctx, "seizure executed but audit record failed",
			"source", req.Source, "destination", req.Destination, "amount", req.Amount, "error", err)
		return dErrors.Wrap(err, dErrors.CodeInternal, "recording seizure audit event")
	}
	s.logger.WarnContext(ctx, "funds seized",
		"source", req.Source, "destination", req.Destination,
		"amount", req.Amount, "authority", caller)
	return nil
}

// freezeCause returns a short cause tag, or "" when the owner is in good
// standing. Unknown owners (no identity record) are freeze-eligible.
func (s *Service) freezeCause(ctx context.Context, owner domain.UserID, now time.Time) (string, error) {
	blStatus, err := s.blacklist.StatusOf(ctx, owner, now)
	if err != nil {
		return "", err
	}
	if blStatus.Active {
		return "blacklisted:" + string(blStatus.Reason), nil
	}
	snap, err := s.identity.VerificationState(ctx, owner, now)
	if err != nil {
		return "", err
	}
	if snap.EffectiveLevel == 0 {
		if snap.Expired {
			return "verification_expired", nil
		}
		return "not_verified", nil
	}
	return "", nil
}

func (s *Service) account(ctx context.Context, id domain.AccountID) (*ledger.Account, error) {
	acct, err := s.ledger.Account(ctx, id)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "no ledger account with that id")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "loading ledger account")
	}
	return acct, nil
}
