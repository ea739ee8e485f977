// Package events delivers committed ledger events to analytics storage and
// live websocket subscribers.
package events

import "solana-staking-ledger/internal/domain"

// Message is the wire form of a ledger event.
// Amounts are encoded as strings to survive JSON number precision.
type Message struct {
	EventID            string `json:"event_id"`
	Kind               string `json:"kind"`
	Pool               string `json:"pool"`
	Owner              string `json:"owner"`
	Amount             uint64 `json:"amount,string"`
	Settled            uint64 `json:"settled,string"`
	Timestamp          int64  `json:"timestamp"`
	Sequence           uint64 `json:"sequence"`
	DepositedAmount    uint64 `json:"deposited_amount,string"`
	AccumulatedRewards uint64 `json:"accumulated_rewards,string"`
	TotalStaked        uint64 `json:"total_staked,string"`
}

// NewMessage converts a ledger event to its wire form.
func NewMessage(e *domain.LedgerEvent) Message {
	return Message{
		EventID:            e.EventID,
		Kind:               e.Kind.String(),
		Pool:               e.Pool,
		Owner:              e.Owner,
		Amount:             e.Amount,
		Settled:            e.Settled,
		Timestamp:          e.Timestamp,
		Sequence:           e.Sequence,
		DepositedAmount:    e.DepositedAmount,
		AccumulatedRewards: e.AccumulatedRewards,
		TotalStaked:        e.TotalStaked,
	}
}
