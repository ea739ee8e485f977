package reporting

import "time"

// Report represents the ledger state report.
type Report struct {
	// Metadata
	GeneratedAt time.Time
	AsOf        int64 // ledger clock reading positions were valued at
	PoolCount   int

	// Pools sorted by creation time
	Pools []PoolRow

	// Positions grouped by pool, then ordered by owner
	Positions []PositionRow

	// Integrity (audit of every pool)
	Integrity IntegritySection
}

// PoolRow summarizes one pool.
type PoolRow struct {
	Address        string
	StakingMint    string
	RewardMint     string
	RewardRate     uint64
	APY            float64
	TotalStaked    uint64
	Stakers        int // records with a non-zero deposit
	RewardVault    uint64
	PendingRewards uint64 // accrued and not yet claimed, summed over positions
	// RunwaySeconds is how long the reward vault covers accrual at the current
	// TotalStaked. -1 when nothing accrues.
	RunwaySeconds int64
}

// PositionRow is one principal's stake in one pool.
type PositionRow struct {
	Pool               string
	Owner              string
	DepositedAmount    uint64
	AccumulatedRewards uint64
	PendingRewards     uint64
	Claimable          uint64
	RewardCheckpoint   int64
}

// IntegritySection contains audit results.
type IntegritySection struct {
	Errors          []string
	AllChecksPassed bool
}
