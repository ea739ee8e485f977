package ledger

import (
	"errors"

	"solana-staking-ledger/internal/auth"
	"solana-staking-ledger/internal/clock"
	"solana-staking-ledger/internal/custody"
)

// Ledger errors. Every failed operation returns one of these (or a custody
// error) wrapped with context, and leaves the ledger unchanged.
var (
	// ErrInvalidAmount is returned for a zero amount on Stake, Unstake or FundRewards.
	ErrInvalidAmount = errors.New("invalid amount")

	// ErrInsufficientStake is returned when a withdrawal exceeds the deposited balance.
	ErrInsufficientStake = errors.New("insufficient stake")

	// ErrNoRewardsToClaim is returned when a claim finds nothing claimable.
	ErrNoRewardsToClaim = errors.New("no rewards to claim")

	// ErrArithmeticOverflow is returned when a checked operation would overflow.
	ErrArithmeticOverflow = errors.New("arithmetic overflow")

	// ErrUnauthorized is returned when the caller does not control the record it mutates.
	ErrUnauthorized = auth.ErrUnauthorized

	// ErrPoolNotFound is returned when the referenced pool does not exist.
	ErrPoolNotFound = errors.New("pool not found")

	// ErrPoolExists is returned when initializing a pool that already exists.
	ErrPoolExists = errors.New("pool already exists")

	// ErrPositionNotFound is returned when reading a stake record that does not exist.
	ErrPositionNotFound = errors.New("position not found")

	// ErrInvalidAddress is returned for a malformed pubkey argument.
	ErrInvalidAddress = errors.New("invalid address")
)

// ErrorKind returns a stable label for err, used by metrics and the HTTP layer.
func ErrorKind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInvalidAmount):
		return "invalid_amount"
	case errors.Is(err, ErrInsufficientStake):
		return "insufficient_stake"
	case errors.Is(err, ErrNoRewardsToClaim):
		return "no_rewards_to_claim"
	case errors.Is(err, ErrArithmeticOverflow), errors.Is(err, custody.ErrBalanceOverflow):
		return "arithmetic_overflow"
	case errors.Is(err, ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, ErrPoolNotFound):
		return "pool_not_found"
	case errors.Is(err, ErrPoolExists):
		return "pool_exists"
	case errors.Is(err, ErrPositionNotFound):
		return "position_not_found"
	case errors.Is(err, ErrInvalidAddress):
		return "invalid_address"
	case errors.Is(err, custody.ErrInsufficientFunds):
		return "insufficient_funds"
	case errors.Is(err, custody.ErrAccountNotFound):
		return "account_not_found"
	case errors.Is(err, custody.ErrMintMismatch):
		return "mint_mismatch"
	case errors.Is(err, custody.ErrOwnerMismatch):
		return "owner_mismatch"
	case errors.Is(err, custody.ErrInvalidTransfer):
		return "invalid_transfer"
	case errors.Is(err, clock.ErrUnavailable):
		return "clock_unavailable"
	default:
		return "internal"
	}
}
