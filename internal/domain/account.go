package domain

import (
	"math"
	"time"
)

// Account holds the balance of a single owner in minor currency units.
type Account struct {
	ID        string
	OwnerID   string
	Currency  string
	Balance   int64
	Version   int64
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewAccount returns a zero-balance account for owner.
func NewAccount(id, ownerID, currency string, now time.Time) *Account {
	now = now.UTC()
	return &Account{
		ID:        id,
		OwnerID:   ownerID,
		Currency:  NormalizeCurrency(currency),
		Balance:   0,
		Version:   1,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// CanDebit checks whether amount can leave the account.
func (a *Account) CanDebit(amount int64) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}
	if a.Balance < amount {
		return ErrInsufficientFunds
	}
	return nil
}

// Apply returns the balance after delta without mutating the account.
func (a *Account) Apply(delta int64) (int64, error) {
	if delta == 0 {
		return a.Balance, ErrInvalidAmount
	}
	if delta > 0 && a.Balance > math.MaxInt64-delta {
		return a.Balance, ErrBalanceOverflow
	}
	next := a.Balance + delta
	if next < 0 {
		return a.Balance, ErrInsufficientFunds
	}
	return next, nil
}
