// Package custody moves assets between token accounts held in the ledger store.
//
// Every call runs inside the caller's storage.Tx, so a transfer commits or
// rolls back together with the ledger records it pays for.
package custody

import (
	"context"
	"errors"
	"fmt"
	"math/bits"

	"solana-staking-ledger/internal/domain"
	"solana-staking-ledger/internal/storage"
)

// Custody errors.
var (
	// ErrInsufficientFunds is returned when the source balance is below the amount.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrAccountNotFound is returned when a token account does not exist.
	ErrAccountNotFound = errors.New("token account not found")

	// ErrMintMismatch is returned when accounts of different mints are involved.
	ErrMintMismatch = errors.New("mint mismatch")

	// ErrOwnerMismatch is returned when the authority does not own the source account.
	ErrOwnerMismatch = errors.New("owner mismatch")

	// ErrInvalidTransfer is returned for zero amounts or a transfer to the same account.
	ErrInvalidTransfer = errors.New("invalid transfer")

	// ErrBalanceOverflow is returned when the destination balance would exceed uint64.
	ErrBalanceOverflow = errors.New("balance overflow")
)

// Bank performs token account operations inside a store transaction.
type Bank struct{}

// NewBank creates a Bank.
func NewBank() *Bank {
	return &Bank{}
}

// Account loads a token account, mapping a missing record to ErrAccountNotFound.
func (b *Bank) Account(ctx context.Context, tx storage.Tx, address string) (*domain.TokenAccount, error) {
	a, err := tx.GetTokenAccount(ctx, address)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrAccountNotFound, address)
	}
	if err != nil {
		return nil, fmt.Errorf("get token account %s: %w", address, err)
	}
	return a, nil
}

// OpenAccount creates an empty token account.
func (b *Bank) OpenAccount(ctx context.Context, tx storage.Tx, address, owner, mint string) (*domain.TokenAccount, error) {
	a := &domain.TokenAccount{Address: address, Owner: owner, Mint: mint}
	if err := tx.InsertTokenAccount(ctx, a); err != nil {
		return nil, fmt.Errorf("open token account %s: %w", address, err)
	}
	return a, nil
}

// EnsureAccount returns the token account at address, opening an empty one
// for owner and mint when it does not exist yet. An existing account must
// belong to owner and hold mint.
func (b *Bank) EnsureAccount(ctx context.Context, tx storage.Tx, address, owner, mint string) (*domain.TokenAccount, error) {
	a, err := tx.EnsureTokenAccount(ctx, &domain.TokenAccount{Address: address, Owner: owner, Mint: mint})
	if err != nil {
		return nil, fmt.Errorf("ensure token account %s: %w", address, err)
	}
	if a.Owner != owner {
		return nil, fmt.Errorf("%w: %s is owned by %s", ErrOwnerMismatch, address, a.Owner)
	}
	if a.Mint != mint {
		return nil, fmt.Errorf("%w: %s holds %s, expected %s", ErrMintMismatch, address, a.Mint, mint)
	}
	return a, nil
}

// Deposit credits amount to an account from outside the ledger.
// It models the asset entering custody and has no source account.
func (b *Bank) Deposit(ctx context.Context, tx storage.Tx, address string, amount uint64) (*domain.TokenAccount, error) {
	if amount == 0 {
		return nil, ErrInvalidTransfer
	}
	a, err := b.Account(ctx, tx, address)
	if err != nil {
		return nil, err
	}
	sum, carry := bits.Add64(a.Amount, amount, 0)
	if carry != 0 {
		return nil, fmt.Errorf("%w: %s", ErrBalanceOverflow, address)
	}
	a.Amount = sum
	if err := tx.UpdateTokenAccount(ctx, a); err != nil {
		return nil, fmt.Errorf("update token account %s: %w", address, err)
	}
	return a, nil
}

// Transfer moves t.Amount from t.From to t.To. t.Authority must own t.From
// and both accounts must hold the same mint.
func (b *Bank) Transfer(ctx context.Context, tx storage.Tx, t domain.Transfer) error {
	if t.Amount == 0 || t.From == t.To {
		return ErrInvalidTransfer
	}

	from, err := b.Account(ctx, tx, t.From)
	if err != nil {
		return err
	}
	to, err := b.Account(ctx, tx, t.To)
	if err != nil {
		return err
	}

	if from.Owner != t.Authority {
		return fmt.Errorf("%w: %s is not owned by %s", ErrOwnerMismatch, t.From, t.Authority)
	}
	if from.Mint != to.Mint {
		return fmt.Errorf("%w: %s holds %s, %s holds %s", ErrMintMismatch, t.From, from.Mint, t.To, to.Mint)
	}
	if from.Amount < t.Amount {
		return fmt.Errorf("%w: %s has %d, need %d", ErrInsufficientFunds, t.From, from.Amount, t.Amount)
	}

	credited, carry := bits.Add64(to.Amount, t.Amount, 0)
	if carry != 0 {
		return fmt.Errorf("%w: %s", ErrBalanceOverflow, t.To)
	}

	from.Amount -= t.Amount
	to.Amount = credited

	if err := tx.UpdateTokenAccount(ctx, from); err != nil {
		return fmt.Errorf("debit %s: %w", t.From, err)
	}
	if err := tx.UpdateTokenAccount(ctx, to); err != nil {
		return fmt.Errorf("credit %s: %w", t.To, err)
	}
	return nil
}
