package ledger

import (
	"context"
	"sync"

	"ledgergate/internal/sentinel"
	"ledgergate/pkg/domain"
	dErrors "ledgergate/pkg/domain-errors"
)

// InMemoryLedger is a reference ledger adapter for tests and local runs.
type InMemoryLedger struct {
	mu       sync.RWMutex
	accounts map[domain.AccountID]*Account
}

func NewInMemory() *InMemoryLedger {
	return &InMemoryLedger{accounts: make(map[domain.AccountID]*Account)}
}

// CreateAccount seeds an account. Test/dev helper; production accounts are
// created by the host ledger.
func (l *InMemoryLedger) CreateAccount(id domain.AccountID, owner domain.UserID, balance uint64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.accounts[id] = &Account{ID: id, Owner: owner, Lock: Unlocked, Balance: balance}
}

func (l *InMemoryLedger) Account(_ context.Context, id domain.AccountID) (*Account, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	acct, ok := l.accounts[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	copyAcct := *acct
	return &copyAcct, nil
}

func (l *InMemoryLedger) SetLockState(_ context.Context, id domain.AccountID, state LockState) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	acct, ok := l.accounts[id]
	if !ok {
		return sentinel.ErrNotFound
	}
	acct.Lock = state
	return nil
}

func (l *InMemoryLedger) ForceMove(_ context.Context, from, to domain.AccountID, amount uint64) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	src, ok := l.accounts[from]
	if !ok {
		return sentinel.ErrNotFound
	}
	dst, ok := l.accounts[to]
	if !ok {
		return sentinel.ErrNotFound
	}
	if src.Balance < amount {
		return dErrors.New(dErrors.CodeBadRequest, "insufficient balance for forced move")
	}
	if dst.Balance+amount < dst.Balance {
		return dErrors.New(dErrors.CodeArithmeticOverflow, "destination balance overflow")
	}
	src.Balance -= amount
	dst.Balance += amount
	return nil
}
