package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"ledgergate/internal/audit"
	authmodels "ledgergate/internal/authority/models"
	"ledgergate/internal/identity/models"
	"ledgergate/internal/identity/store"
	"ledgergate/pkg/domain"
	dErrors "ledgergate/pkg/domain-errors"
)

type allowAllAuthz struct{ denied bool }

func (a allowAllAuthz) RequirePower(context.Context, domain.PrincipalID, authmodels.Powers) error {
	if a.denied {
		return dErrors.New(dErrors.CodeUnauthorized, "principal lacks request_user_info power")
	}
	return nil
}

func (a allowAllAuthz) MarkAction(context.Context, domain.PrincipalID) error { return nil }

type IdentityServiceSuite struct {
	suite.Suite
	store *store.InMemoryStore
	svc   *Service
	now   time.Time
	ctx   context.Context
}

func (s *IdentityServiceSuite) SetupTest() {
	s.ctx = context.Background()
	s.store = store.NewInMemoryStore()
	s.now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	auditor := audit.NewPublisher(audit.NewInMemoryStore())
	s.svc = New(s.store, allowAllAuthz{}, auditor,
		[]string{"DE", "FR", "NL"}, 365*24*time.Hour,
		WithClock(func() time.Time { return s.now }))
}

func TestIdentityServiceSuite(t *testing.T) {
	suite.Run(t, new(IdentityServiceSuite))
}

func (s *IdentityServiceSuite) register(user string) *models.Record {
	rec, err := s.svc.Register(s.ctx, RegisterRequest{
		User:             domain.UserID(user),
		JurisdictionCode: "de",
		Metadata:         models.Metadata{Provider: "idnow"},
	})
	s.Require().NoError(err)
	return rec
}

func (s *IdentityServiceSuite) TestRegisterStartsPending() {
	rec := s.register("user-1")
	s.Equal(models.StatusPending, rec.Status)
	s.Equal(uint8(0), rec.VerificationLevel)
	s.Equal("DE", rec.JurisdictionCode)
}

func (s *IdentityServiceSuite) TestRegisterDuplicateFails() {
	s.register("user-1")
	_, err := s.svc.Register(s.ctx, RegisterRequest{User: "user-1", JurisdictionCode: "DE"})
	s.True(dErrors.HasCode(err, dErrors.CodeAlreadyExists))
}

func (s *IdentityServiceSuite) TestRegisterRejectsUnsupportedJurisdiction() {
	_, err := s.svc.Register(s.ctx, RegisterRequest{User: "user-1", JurisdictionCode: "US"})
	s.True(dErrors.HasCode(err, dErrors.CodeJurisdictionNotSupported))
}

func (s *IdentityServiceSuite) TestVerifyAndCounter() {
	s.register("user-1")

	rec, err := s.svc.SetStatus(s.ctx, "auth-1", SetStatusRequest{
		User: "user-1", NewStatus: models.StatusVerified, Level: 2,
	})
	s.Require().NoError(err)
	s.Equal(models.StatusVerified, rec.Status)
	s.Equal(uint8(2), rec.VerificationLevel)
	s.Equal(s.now.Add(365*24*time.Hour), rec.ExpiresAt)

	count, err := s.svc.VerifiedUserCount(s.ctx)
	s.Require().NoError(err)
	s.Equal(int64(1), count)

	// Counter is symmetric: leaving Verified decrements.
	_, err = s.svc.SetStatus(s.ctx, "auth-1", SetStatusRequest{
		User: "user-1", NewStatus: models.StatusRevoked,
	})
	s.Require().NoError(err)
	count, err = s.svc.VerifiedUserCount(s.ctx)
	s.Require().NoError(err)
	s.Equal(int64(0), count)
}

func (s *IdentityServiceSuite) TestInvalidTransitionLeavesRecordUntouched() {
	s.register("user-1")

	_, err := s.svc.SetStatus(s.ctx, "auth-1", SetStatusRequest{
		User: "user-1", NewStatus: models.StatusPending,
	})
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidTransition))

	rec, err := s.svc.Get(s.ctx, "user-1")
	s.Require().NoError(err)
	s.Equal(models.StatusPending, rec.Status)
}

func (s *IdentityServiceSuite) TestVerifyRequiresLevelInRange() {
	s.register("user-1")
	for _, level := range []uint8{0, 4} {
		_, err := s.svc.SetStatus(s.ctx, "auth-1", SetStatusRequest{
			User: "user-1", NewStatus: models.StatusVerified, Level: level,
		})
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput), "level %d", level)
	}
}

func (s *IdentityServiceSuite) TestUnauthorizedCallerCannotSetStatus() {
	s.register("user-1")
	auditor := audit.NewPublisher(audit.NewInMemoryStore())
	denied := New(s.store, allowAllAuthz{denied: true}, auditor,
		[]string{"DE"}, time.Hour)

	_, err := denied.SetStatus(s.ctx, "nobody", SetStatusRequest{
		User: "user-1", NewStatus: models.StatusVerified, Level: 1,
	})
	s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
}

func (s *IdentityServiceSuite) TestExpiryIsLazy() {
	s.register("user-1")
	_, err := s.svc.SetStatus(s.ctx, "auth-1", SetStatusRequest{
		User: "user-1", NewStatus: models.StatusVerified, Level: 1, Validity: time.Hour,
	})
	s.Require().NoError(err)

	snap, err := s.svc.VerificationState(s.ctx, "user-1", s.now.Add(30*time.Minute))
	s.Require().NoError(err)
	s.Equal(uint8(1), snap.EffectiveLevel)
	s.False(snap.Expired)

	snap, err = s.svc.VerificationState(s.ctx, "user-1", s.now.Add(2*time.Hour))
	s.Require().NoError(err)
	s.Equal(uint8(0), snap.EffectiveLevel)
	s.True(snap.Expired)

	// Stored status stays Verified; no background sweep flips it.
	rec, err := s.svc.Get(s.ctx, "user-1")
	s.Require().NoError(err)
	s.Equal(models.StatusVerified, rec.Status)
}

func (s *IdentityServiceSuite) TestForceRevokeBypassesTable() {
	s.register("user-1")
	_, err := s.svc.SetStatus(s.ctx, "auth-1", SetStatusRequest{
		User: "user-1", NewStatus: models.StatusRejected,
	})
	s.Require().NoError(err)

	// Rejected -> Revoked is not in the transition table.
	rec, err := s.svc.ForceRevoke(s.ctx, "user-1")
	s.Require().NoError(err)
	s.Equal(models.StatusRevoked, rec.Status)

	// Idempotent on an already revoked record.
	rec, err = s.svc.ForceRevoke(s.ctx, "user-1")
	s.Require().NoError(err)
	s.Equal(models.StatusRevoked, rec.Status)
}

func (s *IdentityServiceSuite) TestVerificationStateForUnknownUser() {
	snap, err := s.svc.VerificationState(s.ctx, "ghost", s.now)
	s.Require().NoError(err)
	s.Equal(uint8(0), snap.EffectiveLevel)
	s.False(snap.Expired)
}
