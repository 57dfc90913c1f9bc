package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"ledgergate/internal/audit"
	authmodels "ledgergate/internal/authority/models"
	"ledgergate/internal/blacklist/models"
	"ledgergate/internal/blacklist/store"
	idmodels "ledgergate/internal/identity/models"
	idservice "ledgergate/internal/identity/service"
	idstore "ledgergate/internal/identity/store"
	"ledgergate/pkg/domain"
	dErrors "ledgergate/pkg/domain-errors"
)

type grantAuthz struct {
	granted map[domain.PrincipalID]authmodels.Powers
}

func (a grantAuthz) RequirePower(_ context.Context, principal domain.PrincipalID, power authmodels.Powers) error {
	if a.granted[principal].Has(power) {
		return nil
	}
	return dErrors.New(dErrors.CodeUnauthorized, "principal lacks "+power.Name()+" power")
}

func (a grantAuthz) MarkAction(context.Context, domain.PrincipalID) error { return nil }

type BlacklistServiceSuite struct {
	suite.Suite
	svc      *Service
	identity *idservice.Service
	idStore  *idstore.InMemoryStore
	now      time.Time
	ctx      context.Context
}

func (s *BlacklistServiceSuite) SetupTest() {
	s.ctx = context.Background()
	s.now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return s.now }

	authz := grantAuthz{granted: map[domain.PrincipalID]authmodels.Powers{
		"regulator": authmodels.PowerBlockTransactions,
		"observer":  authmodels.PowerViewTransactions,
	}}
	auditor := audit.NewPublisher(audit.NewInMemoryStore())
	s.idStore = idstore.NewInMemoryStore()
	s.identity = idservice.New(s.idStore, authz, auditor,
		[]string{"DE"}, time.Hour, idservice.WithClock(clock))
	s.svc = New(store.NewInMemoryStore(), authz, s.identity, auditor, WithClock(clock))
}

func TestBlacklistServiceSuite(t *testing.T) {
	suite.Run(t, new(BlacklistServiceSuite))
}

func (s *BlacklistServiceSuite) TestAddRequiresBlockTransactionsPower() {
	_, err := s.svc.Add(s.ctx, "observer", AddRequest{
		User: "user-1", Reason: models.ReasonSuspiciousActivity, ActionType: models.ActionFreeze,
	})
	s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
}

func (s *BlacklistServiceSuite) TestAddWhileActiveFails() {
	_, err := s.svc.Add(s.ctx, "regulator", AddRequest{
		User: "user-1", Reason: models.ReasonSuspiciousActivity, ActionType: models.ActionFreeze,
	})
	s.Require().NoError(err)

	_, err = s.svc.Add(s.ctx, "regulator", AddRequest{
		User: "user-1", Reason: models.ReasonCourtOrder, ActionType: models.ActionRestrict,
	})
	s.True(dErrors.HasCode(err, dErrors.CodeAlreadyExists))
}

func (s *BlacklistServiceSuite) TestExpiredEntryIsInactiveAndReplaceable() {
	expiry := s.now.Add(time.Hour)
	_, err := s.svc.Add(s.ctx, "regulator", AddRequest{
		User: "user-1", Reason: models.ReasonRegulatoryOrder,
		ActionType: models.ActionBlockTransfers, ExpiresAt: &expiry,
	})
	s.Require().NoError(err)

	st, err := s.svc.StatusOf(s.ctx, "user-1", s.now.Add(30*time.Minute))
	s.Require().NoError(err)
	s.True(st.Active)
	s.Require().NotNil(st.RemainingSeconds)
	s.Equal(int64(1800), *st.RemainingSeconds)

	// Past expiry the entry is logically inactive without any sweep.
	st, err = s.svc.StatusOf(s.ctx, "user-1", s.now.Add(2*time.Hour))
	s.Require().NoError(err)
	s.False(st.Active)

	// And a fresh Add replaces it.
	s.now = s.now.Add(2 * time.Hour)
	entry, err := s.svc.Add(s.ctx, "regulator", AddRequest{
		User: "user-1", Reason: models.ReasonCourtOrder, ActionType: models.ActionFreeze,
	})
	s.Require().NoError(err)
	s.Equal(models.ReasonCourtOrder, entry.Reason)
	s.Nil(entry.ExpiresAt)
}

func (s *BlacklistServiceSuite) TestPermanentEntryHasNoRemainingSeconds() {
	_, err := s.svc.Add(s.ctx, "regulator", AddRequest{
		User: "user-1", Reason: models.ReasonSuspiciousActivity, ActionType: models.ActionFreeze,
	})
	s.Require().NoError(err)

	st, err := s.svc.StatusOf(s.ctx, "user-1", s.now.AddDate(10, 0, 0))
	s.Require().NoError(err)
	s.True(st.Active)
	s.Nil(st.RemainingSeconds)
}

func (s *BlacklistServiceSuite) TestStatusOfUnknownUserIsInactive() {
	st, err := s.svc.StatusOf(s.ctx, "ghost", s.now)
	s.Require().NoError(err)
	s.False(st.Active)
}

func (s *BlacklistServiceSuite) TestUpdateCanSetPermanent() {
	expiry := s.now.Add(time.Hour)
	_, err := s.svc.Add(s.ctx, "regulator", AddRequest{
		User: "user-1", Reason: models.ReasonSuspiciousActivity,
		ActionType: models.ActionFreeze, ExpiresAt: &expiry,
	})
	s.Require().NoError(err)

	entry, err := s.svc.Update(s.ctx, "regulator", "user-1", UpdateRequest{SetExpiresAt: true})
	s.Require().NoError(err)
	s.Nil(entry.ExpiresAt)
}

func (s *BlacklistServiceSuite) TestRemove() {
	_, err := s.svc.Add(s.ctx, "regulator", AddRequest{
		User: "user-1", Reason: models.ReasonSuspiciousActivity, ActionType: models.ActionFreeze,
	})
	s.Require().NoError(err)

	s.Require().NoError(s.svc.Remove(s.ctx, "regulator", "user-1"))

	err = s.svc.Remove(s.ctx, "regulator", "user-1")
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}

func (s *BlacklistServiceSuite) TestRevokeAndBlacklist() {
	_, err := s.identity.Register(s.ctx, idservice.RegisterRequest{
		User: "user-1", JurisdictionCode: "DE",
	})
	s.Require().NoError(err)

	entry, err := s.svc.RevokeAndBlacklist(s.ctx, "regulator", "user-1", "case-77")
	s.Require().NoError(err)
	s.Equal(models.ReasonKycRevoked, entry.Reason)
	s.Equal(models.ActionFreeze, entry.ActionType)
	s.Nil(entry.ExpiresAt)

	rec, err := s.identity.Get(s.ctx, "user-1")
	s.Require().NoError(err)
	s.Equal(idmodels.StatusRevoked, rec.Status)
}

func (s *BlacklistServiceSuite) TestRevokeAndBlacklistUnknownUserFails() {
	_, err := s.svc.RevokeAndBlacklist(s.ctx, "regulator", "ghost", "case-1")
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}
