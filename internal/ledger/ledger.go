// Package ledger defines the port to the external balance ledger. The engine
// reads lock state and balances and requests lock changes or forced moves;
// token arithmetic and account creation live on the other side of this port.
package ledger

import (
	"context"

	"ledgergate/pkg/domain"
)

// LockState is the per-account regulatory lock flag maintained by the ledger.
type LockState string

const (
	Unlocked LockState = "unlocked"
	Locked   LockState = "locked"
)

// Account is a read-only view of a ledger account.
type Account struct {
	ID      domain.AccountID
	Owner   domain.UserID
	Lock    LockState
	Balance uint64
}

// Ledger is implemented by the host ledger. Every method is re-fetched at
// call time; the engine never caches lock state or balances across operations.
type Ledger interface {
	Account(ctx context.Context, id domain.AccountID) (*Account, error)
	SetLockState(ctx context.Context, id domain.AccountID, state LockState) error
	// ForceMove performs an authority-directed transfer that bypasses owner
	// authorization. It fails if the source balance is insufficient.
	ForceMove(ctx context.Context, from, to domain.AccountID, amount uint64) error
}
