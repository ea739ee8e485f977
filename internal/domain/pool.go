package domain

// StakingPool is the pool-wide ledger record.
// Address is derived from (Authority, StakingMint, RewardMint).
type StakingPool struct {
	Address     string // pool address (base58)
	Authority   string // pool creator
	StakingMint string // asset deposited by principals
	RewardMint  string // asset rewards are paid in (may equal StakingMint)
	RewardRate  uint64 // reward units per staked unit per second, scaled by rewards.RateScale
	TotalStaked uint64 // sum of DepositedAmount over all user stakes of this pool

	StakingVault string // token account holding staked principal
	RewardVault  string // token account rewards are paid from

	Bump             uint8
	StakingVaultBump uint8
	RewardVaultBump  uint8

	CreatedAt     int64  // unix seconds
	EventSequence uint64 // sequence of the last ledger event recorded for this pool
}

// Clone returns a copy safe to mutate.
func (p *StakingPool) Clone() *StakingPool {
	c := *p
	return &c
}

// PoolSnapshot is a consistent read of every record belonging to one pool.
type PoolSnapshot struct {
	Pool         *StakingPool
	Stakes       []*UserStake
	StakingVault *TokenAccount
	RewardVault  *TokenAccount
	Events       []*LedgerEvent // ordered by sequence
}
