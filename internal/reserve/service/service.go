// Package service implements the reserve gate: the issuer publishes
// attestations of backing reserves, and mint evaluation asks whether the
// latest fresh attestation covers the proposed issuance.
package service

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"time"

	"ledgergate/internal/audit"
	"ledgergate/internal/reserve/feed"
	"ledgergate/internal/reserve/models"
	"ledgergate/internal/sentinel"
	"ledgergate/pkg/domain"
	dErrors "ledgergate/pkg/domain-errors"
)

type Service struct {
	feed    feed.Feed
	auditor *audit.Publisher
	logger  *slog.Logger
	issuer  domain.PrincipalID
	maxAge  time.Duration
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

// New builds the reserve gate. issuer is the only principal allowed to
// publish attestations; maxAge bounds how old a gating attestation may be.
func New(f feed.Feed, auditor *audit.Publisher, issuer domain.PrincipalID, maxAge time.Duration, opts ...Option) *Service {
	s := &Service{
		feed:    f,
		auditor: auditor,
		logger:  slog.Default(),
		issuer:  issuer,
		maxAge:  maxAge,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type UpdateRequest struct {
	Proof        models.ProofRef
	TotalReserve uint64
	IssuedSupply uint64
	AsOf         time.Time // zero means "now"
}

// Update publishes a fresh attestation, replacing the previous one.
func (s *Service) Update(ctx context.Context, caller domain.PrincipalID, req UpdateRequest) (*models.Attestation, error) {
	if caller != s.issuer || caller.IsEmpty() {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "reserve attestations require the issuer principal")
	}
	if req.Proof.MerkleRoot == "" || req.Proof.ProofCID == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "attestation proof reference is incomplete")
	}
	now := s.now()
	asOf := req.AsOf
	if asOf.IsZero() {
		asOf = now
	}
	if asOf.After(now) {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "attestation cannot be dated in the future")
	}

	att := &models.Attestation{
		Proof:        req.Proof,
		TotalReserve: req.TotalReserve,
		IssuedSupply: req.IssuedSupply,
		AsOf:         asOf,
	}
	if err := s.feed.Publish(ctx, att); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "publishing reserve attestation")
	}

	s.auditor.Emit(ctx, audit.Event{
		Authority: caller.String(),
		Action:    audit.EventReserveUpdated,
		Reason:    req.Proof.ProofCID,
	})
	s.logger.InfoContext(ctx, "reserve attestation updated",
		"total_reserve", req.TotalReserve, "issued_supply", req.IssuedSupply, "as_of", asOf)
	return att, nil
}

// Latest returns the current attestation, fresh or not.
func (s *Service) Latest(ctx context.Context) (*models.Attestation, error) {
	att, err := s.feed.Latest(ctx)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "no reserve attestation published")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "reading reserve attestation")
	}
	return att, nil
}

// SufficientFor reports whether issuing amount more units stays within the
// attested reserve. Missing or stale attestations fail closed.
func (s *Service) SufficientFor(ctx context.Context, amount uint64, now time.Time) (bool, error) {
	att, err := s.feed.Latest(ctx)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return false, nil
		}
		return false, dErrors.Wrap(err, dErrors.CodeInternal, "reading reserve attestation")
	}
	if !att.FreshAt(now, s.maxAge) {
		return false, nil
	}
	if amount > math.MaxUint64-att.IssuedSupply {
		return false, dErrors.New(dErrors.CodeArithmeticOverflow, "issued supply overflow")
	}
	return att.IssuedSupply+amount <= att.TotalReserve, nil
}
