package ledger

import (
	"context"

	"github.com/rs/zerolog/log"

	"solana-staking-ledger/internal/domain"
	"solana-staking-ledger/internal/storage"
)

// CreditAccount credits amount of mint to owner's token account, opening the
// account if it does not exist yet. It is how assets enter custody.
func (s *Service) CreditAccount(ctx context.Context, owner, mint string, amount uint64) (*domain.TokenAccount, error) {
	if amount == 0 {
		return nil, ErrInvalidAmount
	}
	addr, err := s.tokenAccount(owner, mint)
	if err != nil {
		return nil, err
	}

	var account *domain.TokenAccount
	_, err = s.mutate(ctx, OpCreditAccount, func(tx storage.Tx, _ int64, _ *mutation) error {
		if _, err := s.bank.EnsureAccount(ctx, tx, addr, owner, mint); err != nil {
			return err
		}

		var err error
		account, err = s.bank.Deposit(ctx, tx, addr, amount)
		return err
	})
	if err != nil {
		return nil, err
	}

	log.Ctx(ctx).Info().
		Str("owner", owner).
		Str("mint", mint).
		Uint64("amount", amount).
		Msg("token account credited")
	return account, nil
}

// TokenAccount returns owner's token account for mint.
func (s *Service) TokenAccount(ctx context.Context, owner, mint string) (*domain.TokenAccount, error) {
	addr, err := s.tokenAccount(owner, mint)
	if err != nil {
		return nil, err
	}

	var account *domain.TokenAccount
	err = s.store.View(ctx, func(tx storage.Tx) error {
		var err error
		account, err = s.bank.Account(ctx, tx, addr)
		return err
	})
	if err != nil {
		return nil, err
	}
	return account, nil
}
