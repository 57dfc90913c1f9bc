package service

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"ledgergate/internal/audit"
	"ledgergate/internal/reserve/feed"
	"ledgergate/internal/reserve/models"
	"ledgergate/pkg/domain"
	dErrors "ledgergate/pkg/domain-errors"
)

const issuer = domain.PrincipalID("issuer-root")

type ReserveServiceSuite struct {
	suite.Suite
	svc *Service
	now time.Time
	ctx context.Context
}

func (s *ReserveServiceSuite) SetupTest() {
	s.ctx = context.Background()
	s.now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	auditor := audit.NewPublisher(audit.NewInMemoryStore())
	s.svc = New(feed.NewInMemoryFeed(), auditor, issuer, 24*time.Hour,
		WithClock(func() time.Time { return s.now }))
}

func TestReserveServiceSuite(t *testing.T) {
	suite.Run(t, new(ReserveServiceSuite))
}

func (s *ReserveServiceSuite) publish(total, issued uint64, asOf time.Time) {
	_, err := s.svc.Update(s.ctx, issuer, UpdateRequest{
		Proof:        models.ProofRef{MerkleRoot: "ab12", ProofCID: "bafy123"},
		TotalReserve: total,
		IssuedSupply: issued,
		AsOf:         asOf,
	})
	s.Require().NoError(err)
}

func (s *ReserveServiceSuite) TestOnlyIssuerPublishes() {
	_, err := s.svc.Update(s.ctx, "stranger", UpdateRequest{
		Proof: models.ProofRef{MerkleRoot: "ab", ProofCID: "cid"},
	})
	s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
}

func (s *ReserveServiceSuite) TestNoAttestationFailsClosed() {
	ok, err := s.svc.SufficientFor(s.ctx, 100, s.now)
	s.Require().NoError(err)
	s.False(ok)
}

func (s *ReserveServiceSuite) TestCoverageBoundary() {
	s.publish(1_000_00, 900_00, s.now)

	ok, err := s.svc.SufficientFor(s.ctx, 100_00, s.now)
	s.Require().NoError(err)
	s.True(ok, "exactly reaching the reserve is allowed")

	ok, err = s.svc.SufficientFor(s.ctx, 100_01, s.now)
	s.Require().NoError(err)
	s.False(ok)
}

func (s *ReserveServiceSuite) TestStaleAttestationFailsClosed() {
	s.publish(1_000_00, 0, s.now)

	later := s.now.Add(25 * time.Hour)
	ok, err := s.svc.SufficientFor(s.ctx, 1, later)
	s.Require().NoError(err)
	s.False(ok)

	// A fresh re-publish restores issuance.
	s.now = later
	s.publish(1_000_00, 0, later)
	ok, err = s.svc.SufficientFor(s.ctx, 1, later)
	s.Require().NoError(err)
	s.True(ok)
}

func (s *ReserveServiceSuite) TestIssuedSupplyOverflow() {
	s.publish(math.MaxUint64, math.MaxUint64-10, s.now)

	_, err := s.svc.SufficientFor(s.ctx, 11, s.now)
	s.True(dErrors.HasCode(err, dErrors.CodeArithmeticOverflow))
}

func (s *ReserveServiceSuite) TestIncompleteProofRejected() {
	_, err := s.svc.Update(s.ctx, issuer, UpdateRequest{
		Proof: models.ProofRef{MerkleRoot: "ab12"},
	})
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
}
