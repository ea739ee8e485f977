package domain

// UserStake is the per-principal stake record within one pool.
// A record is created on the first stake and never deleted, even at zero balance.
type UserStake struct {
	Address            string // stake record address (base58)
	Pool               string // pool the record belongs to
	Owner              string // depositing principal
	DepositedAmount    uint64 // currently staked balance
	AccumulatedRewards uint64 // settled but not yet claimed
	RewardCheckpoint   int64  // unix seconds rewards are settled up to
	Bump               uint8
}

// Clone returns a copy safe to mutate.
func (s *UserStake) Clone() *UserStake {
	c := *s
	return &c
}

// Position is a stake record together with the reward it would settle now.
type Position struct {
	Stake          *UserStake
	PendingRewards uint64 // accrued since RewardCheckpoint, not yet settled
	Claimable      uint64 // AccumulatedRewards + PendingRewards
	AsOf           int64  // timestamp the pending reward was computed at
}
