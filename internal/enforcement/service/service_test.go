package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"ledgergate/internal/audit"
	authmodels "ledgergate/internal/authority/models"
	blmodels "ledgergate/internal/blacklist/models"
	idmodels "ledgergate/internal/identity/models"
	"ledgergate/internal/ledger"
	ledgermocks "ledgergate/internal/ledger/mocks"
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

type stubIdentity map[domain.UserID]idmodels.Snapshot

func (s stubIdentity) VerificationState(_ context.Context, user domain.UserID, _ time.Time) (idmodels.Snapshot, error) {
	return s[user], nil
}

type stubBlacklist map[domain.UserID]blmodels.Status

func (s stubBlacklist) StatusOf(_ context.Context, user domain.UserID, _ time.Time) (blmodels.Status, error) {
	return s[user], nil
}

type EnforcementSuite struct {
	suite.Suite
	ctrl      *gomock.Controller
	ledger    *ledgermocks.MockLedger
	identity  stubIdentity
	blacklist stubBlacklist
	auditor   *audit.Publisher
	auditSink *audit.InMemoryStore
	svc       *Service
	ctx       context.Context
}

func (s *EnforcementSuite) SetupTest() {
	s.ctx = context.Background()
	s.ctrl = gomock.NewController(s.T())
	s.ledger = ledgermocks.NewMockLedger(s.ctrl)
	s.identity = stubIdentity{}
	s.blacklist = stubBlacklist{}
	s.auditSink = audit.NewInMemoryStore()
	s.auditor = audit.NewPublisher(s.auditSink)

	authz := grantAuthz{granted: map[domain.PrincipalID]authmodels.Powers{
		"freezer": authmodels.PowerFreezeAccounts,
		"seizer":  authmodels.PowerSeizeFunds,
		"both":    authmodels.PowerFreezeAccounts | authmodels.PowerSeizeFunds,
	}}
	s.svc = New(authz, s.identity, s.blacklist, s.ledger, s.auditor)
}

func TestEnforcementSuite(t *testing.T) {
	suite.Run(t, new(EnforcementSuite))
}

func account(id domain.AccountID, owner domain.UserID, lock ledger.LockState) *ledger.Account {
	return &ledger.Account{ID: id, Owner: owner, Lock: lock, Balance: 1_000_00}
}

func (s *EnforcementSuite) TestFreezeRequiresCause() {
	// Owner is verified and clean: no freeze.
	s.identity["alice"] = idmodels.Snapshot{EffectiveLevel: 2}
	s.ledger.EXPECT().Account(gomock.Any(), domain.AccountID("acct-1")).
		Return(account("acct-1", "alice", ledger.Unlocked), nil)

	err := s.svc.Freeze(s.ctx, "freezer", "acct-1", "routine sweep")
	s.True(dErrors.HasCode(err, dErrors.CodeNotEligibleForFreeze))
}

func (s *EnforcementSuite) TestFreezeOnBlacklistCause() {
	s.identity["alice"] = idmodels.Snapshot{EffectiveLevel: 2}
	s.blacklist["alice"] = blmodels.Status{Active: true, Reason: blmodels.ReasonSuspiciousActivity, ActionType: blmodels.ActionFreeze}
	s.ledger.EXPECT().Account(gomock.Any(), domain.AccountID("acct-1")).
		Return(account("acct-1", "alice", ledger.Unlocked), nil)
	s.ledger.EXPECT().SetLockState(gomock.Any(), domain.AccountID("acct-1"), ledger.Locked).Return(nil)

	s.Require().NoError(s.svc.Freeze(s.ctx, "freezer", "acct-1", "sanctions match"))

	events, err := s.auditor.ListBySubject(s.ctx, "alice")
	s.Require().NoError(err)
	s.Require().Len(events, 1)
	s.Equal(audit.EventAccountFrozen, events[0].Action)
}

func (s *EnforcementSuite) TestFreezeOnUnverifiedOwner() {
	// Unknown owner (no identity record) is freeze-eligible.
	s.ledger.EXPECT().Account(gomock.Any(), domain.AccountID("acct-1")).
		Return(account("acct-1", "ghost", ledger.Unlocked), nil)
	s.ledger.EXPECT().SetLockState(gomock.Any(), domain.AccountID("acct-1"), ledger.Locked).Return(nil)

	s.Require().NoError(s.svc.Freeze(s.ctx, "freezer", "acct-1", "unregistered holder"))
}

func (s *EnforcementSuite) TestFreezeAlreadyLockedIsNoOp() {
	s.blacklist["alice"] = blmodels.Status{Active: true, Reason: blmodels.ReasonCourtOrder, ActionType: blmodels.ActionFreeze}
	s.ledger.EXPECT().Account(gomock.Any(), domain.AccountID("acct-1")).
		Return(account("acct-1", "alice", ledger.Locked), nil)
	// No SetLockState expectation: the ledger must not be touched.

	s.Require().NoError(s.svc.Freeze(s.ctx, "freezer", "acct-1", "repeat order"))
}

func (s *EnforcementSuite) TestFreezeRequiresPower() {
	err := s.svc.Freeze(s.ctx, "seizer", "acct-1", "x")
	s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
}

func (s *EnforcementSuite) TestThawBlockedByActiveBlacklist() {
	s.blacklist["alice"] = blmodels.Status{Active: true, Reason: blmodels.ReasonSuspiciousActivity, ActionType: blmodels.ActionFreeze}
	s.ledger.EXPECT().Account(gomock.Any(), domain.AccountID("acct-1")).
		Return(account("acct-1", "alice", ledger.Locked), nil)

	err := s.svc.Thaw(s.ctx, "freezer", "acct-1", "appeal granted")
	s.True(dErrors.HasCode(err, dErrors.CodeAccountBlacklisted))
}

func (s *EnforcementSuite) TestThawCleanOwner() {
	s.ledger.EXPECT().Account(gomock.Any(), domain.AccountID("acct-1")).
		Return(account("acct-1", "alice", ledger.Locked), nil)
	s.ledger.EXPECT().SetLockState(gomock.Any(), domain.AccountID("acct-1"), ledger.Unlocked).Return(nil)

	s.Require().NoError(s.svc.Thaw(s.ctx, "freezer", "acct-1", "entry removed"))
}

func (s *EnforcementSuite) TestSeizeRequiresFrozenSource() {
	s.ledger.EXPECT().Account(gomock.Any(), domain.AccountID("acct-1")).
		Return(account("acct-1", "alice", ledger.Unlocked), nil)

	err := s.svc.Seize(s.ctx, "seizer", SeizeRequest{
		Source: "acct-1", Destination: "treasury", Amount: 100, Justification: "court order",
	})
	s.True(dErrors.HasCode(err, dErrors.CodeAccountNotFrozen))
}

func (s *EnforcementSuite) TestSeizeDeniesBlacklistedDestination() {
	s.blacklist["mule"] = blmodels.Status{Active: true, Reason: blmodels.ReasonSuspiciousActivity, ActionType: blmodels.ActionFreeze}
	s.ledger.EXPECT().Account(gomock.Any(), domain.AccountID("acct-1")).
		Return(account("acct-1", "alice", ledger.Locked), nil)
	s.ledger.EXPECT().Account(gomock.Any(), domain.AccountID("acct-2")).
		Return(account("acct-2", "mule", ledger.Unlocked), nil)

	err := s.svc.Seize(s.ctx, "seizer", SeizeRequest{
		Source: "acct-1", Destination: "acct-2", Amount: 100, Justification: "court order",
	})
	s.True(dErrors.HasCode(err, dErrors.CodeAccountBlacklisted))
}

func (s *EnforcementSuite) TestSeizeMovesFundsAndAudits() {
	s.ledger.EXPECT().Account(gomock.Any(), domain.AccountID("acct-1")).
		Return(account("acct-1", "alice", ledger.Locked), nil)
	s.ledger.EXPECT().Account(gomock.Any(), domain.AccountID("treasury")).
		Return(account("treasury", "authority-pool", ledger.Unlocked), nil)
	s.ledger.EXPECT().ForceMove(gomock.Any(), domain.AccountID("acct-1"), domain.AccountID("treasury"), uint64(500_00)).
		Return(nil)

	s.Require().NoError(s.svc.Seize(s.ctx, "seizer", SeizeRequest{
		Source: "acct-1", Destination: "treasury", Amount: 500_00,
		Justification: "court order 44/26",
	}))

	// The source stays locked after seizure; no implicit thaw.
	// (No SetLockState expectation was registered, so any unlock would fail
	// the mock controller.)

	events, err := s.auditor.ListBySubject(s.ctx, "alice")
	s.Require().NoError(err)
	s.Require().Len(events, 1)
	s.Equal(audit.EventFundsSeized, events[0].Action)
	s.Equal(uint64(500_00), events[0].Amount)
	s.Equal("court order 44/26", events[0].Justification)
	s.False(events[0].Timestamp.IsZero())
}

func (s *EnforcementSuite) TestSeizeRequiresJustification() {
	err := s.svc.Seize(s.ctx, "seizer", SeizeRequest{
		Source: "acct-1", Destination: "treasury", Amount: 100,
	})
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
}

func (s *EnforcementSuite) TestSeizeRequiresPower() {
	err := s.svc.Seize(s.ctx, "freezer", SeizeRequest{
		Source: "acct-1", Destination: "treasury", Amount: 100, Justification: "x",
	})
	s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
}
