package domain

// EventKind identifies the operation that produced a ledger event.
type EventKind string

const (
	EventPoolInitialized EventKind = "POOL_INITIALIZED"
	EventStaked          EventKind = "STAKED"
	EventUnstaked        EventKind = "UNSTAKED"
	EventClaimed         EventKind = "CLAIMED"
	EventRewardsFunded   EventKind = "REWARDS_FUNDED"
)

// String returns the string representation of EventKind.
func (k EventKind) String() string {
	return string(k)
}

// IsValid checks if the kind is a known value.
func (k EventKind) IsValid() bool {
	switch k {
	case EventPoolInitialized, EventStaked, EventUnstaked, EventClaimed, EventRewardsFunded:
		return true
	}
	return false
}

// LedgerEvent records one committed ledger mutation.
// Balances are the values after the mutation.
type LedgerEvent struct {
	EventID   string    // deterministic hash, see idhash.ComputeEventID
	Kind      EventKind // operation
	Pool      string    // pool address
	Owner     string    // principal, funder or pool authority
	Amount    uint64    // deposited, withdrawn, claimed or funded amount
	Settled   uint64    // reward settled into the stake record by this operation
	Timestamp int64     // operation time (unix seconds)
	Sequence  uint64    // per-pool ordering, assigned at commit

	DepositedAmount    uint64 // user stake after the operation
	AccumulatedRewards uint64 // user stake after the operation
	TotalStaked        uint64 // pool after the operation
}
