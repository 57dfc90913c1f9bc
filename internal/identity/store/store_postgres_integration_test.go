//go:build integration

package store_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"ledgergate/internal/identity/models"
	"ledgergate/internal/identity/store"
	"ledgergate/internal/platform/database"
	"ledgergate/internal/sentinel"
	"ledgergate/pkg/domain"
	"ledgergate/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *store.PostgresStore
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	mgr := containers.GetManager()
	s.postgres = mgr.GetPostgres(s.T())
	s.store = store.NewPostgresStore(database.NewFromDB(s.postgres.DB))
}

func (s *PostgresStoreSuite) SetupTest() {
	s.Require().NoError(s.postgres.ResetAll(context.Background()))
}

func newPendingRecord(owner string) *models.Record {
	now := time.Now().UTC().Truncate(time.Microsecond)
	return &models.Record{
		Owner:            domain.UserID(owner),
		Status:           models.StatusPending,
		JurisdictionCode: "US",
		Metadata: models.Metadata{
			BankRoutingCode: "021000021",
			AccountHash:     "c7a3f1",
			Provider:        "acme-kyc",
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func (s *PostgresStoreSuite) TestCreateAndFindRoundTrip() {
	ctx := context.Background()
	rec := newPendingRecord("user-roundtrip")

	s.Require().NoError(s.store.Create(ctx, rec))

	found, err := s.store.Find(ctx, rec.Owner)
	s.Require().NoError(err)
	s.Equal(rec.Owner, found.Owner)
	s.Equal(models.StatusPending, found.Status)
	s.Equal(uint8(0), found.VerificationLevel)
	s.Equal("US", found.JurisdictionCode)
	s.Equal(rec.Metadata, found.Metadata)
	s.True(found.VerifiedAt.IsZero())
	s.True(found.ExpiresAt.IsZero())
}

func (s *PostgresStoreSuite) TestCreateDuplicateConflicts() {
	ctx := context.Background()
	rec := newPendingRecord("user-dup")

	s.Require().NoError(s.store.Create(ctx, rec))
	s.ErrorIs(s.store.Create(ctx, rec), sentinel.ErrConflict)
}

func (s *PostgresStoreSuite) TestFindUnknownUser() {
	_, err := s.store.Find(context.Background(), "user-missing")
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *PostgresStoreSuite) TestUpdateUnknownUser() {
	rec := newPendingRecord("user-never-created")
	s.ErrorIs(s.store.Update(context.Background(), rec, 0), sentinel.ErrNotFound)
}

func (s *PostgresStoreSuite) TestUpdateAdjustsVerifiedCounter() {
	ctx := context.Background()
	rec := newPendingRecord("user-verify")
	s.Require().NoError(s.store.Create(ctx, rec))

	count, err := s.store.VerifiedUserCount(ctx)
	s.Require().NoError(err)
	s.Equal(int64(0), count)

	now := time.Now().UTC().Truncate(time.Microsecond)
	rec.Status = models.StatusVerified
	rec.VerificationLevel = 2
	rec.VerifiedAt = now
	rec.ExpiresAt = now.Add(24 * time.Hour)
	rec.UpdatedAt = now
	s.Require().NoError(s.store.Update(ctx, rec, +1))

	count, err = s.store.VerifiedUserCount(ctx)
	s.Require().NoError(err)
	s.Equal(int64(1), count)

	found, err := s.store.Find(ctx, rec.Owner)
	s.Require().NoError(err)
	s.Equal(models.StatusVerified, found.Status)
	s.Equal(uint8(2), found.VerificationLevel)
	s.WithinDuration(rec.ExpiresAt, found.ExpiresAt, time.Millisecond)

	rec.Status = models.StatusRevoked
	rec.VerificationLevel = 0
	rec.VerifiedAt = time.Time{}
	rec.ExpiresAt = time.Time{}
	s.Require().NoError(s.store.Update(ctx, rec, -1))

	count, err = s.store.VerifiedUserCount(ctx)
	s.Require().NoError(err)
	s.Equal(int64(0), count)
}

func (s *PostgresStoreSuite) TestVerifiedCounterNeverGoesNegative() {
	ctx := context.Background()
	rec := newPendingRecord("user-clamp")
	s.Require().NoError(s.store.Create(ctx, rec))

	rec.Status = models.StatusRejected
	s.Require().NoError(s.store.Update(ctx, rec, -1))

	count, err := s.store.VerifiedUserCount(ctx)
	s.Require().NoError(err)
	s.Equal(int64(0), count)
}

// TestConcurrentVerifications drives the counter from many goroutines and
// checks it lands on the exact number of verified users.
func (s *PostgresStoreSuite) TestConcurrentVerifications() {
	ctx := context.Background()

	const users = 20
	recs := make([]*models.Record, users)
	for i := range recs {
		recs[i] = newPendingRecord("user-concurrent-" + string(rune('a'+i)))
		s.Require().NoError(s.store.Create(ctx, recs[i]))
	}

	var wg sync.WaitGroup
	for _, rec := range recs {
		wg.Add(1)
		go func(r *models.Record) {
			defer wg.Done()
			now := time.Now().UTC()
			r.Status = models.StatusVerified
			r.VerificationLevel = 1
			r.VerifiedAt = now
			r.ExpiresAt = now.Add(time.Hour)
			r.UpdatedAt = now
			s.NoError(s.store.Update(ctx, r, +1))
		}(rec)
	}
	wg.Wait()

	count, err := s.store.VerifiedUserCount(ctx)
	s.Require().NoError(err)
	s.Equal(int64(users), count)
}
