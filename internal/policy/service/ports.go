package service

import (
	"context"
	"time"

	blmodels "ledgergate/internal/blacklist/models"
	idmodels "ledgergate/internal/identity/models"
	"ledgergate/pkg/domain"
)

// IdentityPort supplies per-user verification evidence. Unregistered users
// must snapshot to level 0 without error.
type IdentityPort interface {
	VerificationState(ctx context.Context, user domain.UserID, now time.Time) (idmodels.Snapshot, error)
}

// BlacklistPort supplies per-user blacklist evidence.
type BlacklistPort interface {
	StatusOf(ctx context.Context, user domain.UserID, now time.Time) (blmodels.Status, error)
}

// ReservePort answers whether the attested reserve covers an issuance.
type ReservePort interface {
	SufficientFor(ctx context.Context, amount uint64, now time.Time) (bool, error)
}
