package api

import (
	"fmt"

	"solana-staking-ledger/internal/auth"
	"solana-staking-ledger/internal/domain"
	"solana-staking-ledger/internal/events"
	"solana-staking-ledger/internal/rewards"
	"solana-staking-ledger/internal/verification"
)

// Amounts are strings on the wire so clients without 64-bit integers keep precision.

type poolResponse struct {
	Address       string  `json:"address"`
	Authority     string  `json:"authority"`
	StakingMint   string  `json:"staking_mint"`
	RewardMint    string  `json:"reward_mint"`
	RewardRate    uint64  `json:"reward_rate,string"`
	APY           float64 `json:"apy"`
	TotalStaked   uint64  `json:"total_staked,string"`
	StakingVault  string  `json:"staking_vault"`
	RewardVault   string  `json:"reward_vault"`
	CreatedAt     int64   `json:"created_at"`
	EventSequence uint64  `json:"event_sequence"`
}

func newPoolResponse(p *domain.StakingPool) poolResponse {
	return poolResponse{
		Address:       p.Address,
		Authority:     p.Authority,
		StakingMint:   p.StakingMint,
		RewardMint:    p.RewardMint,
		RewardRate:    p.RewardRate,
		APY:           rewards.APYFromRate(p.RewardRate),
		TotalStaked:   p.TotalStaked,
		StakingVault:  p.StakingVault,
		RewardVault:   p.RewardVault,
		CreatedAt:     p.CreatedAt,
		EventSequence: p.EventSequence,
	}
}

type stakeResponse struct {
	Address            string `json:"address"`
	Pool               string `json:"pool"`
	Owner              string `json:"owner"`
	DepositedAmount    uint64 `json:"deposited_amount,string"`
	AccumulatedRewards uint64 `json:"accumulated_rewards,string"`
	RewardCheckpoint   int64  `json:"reward_checkpoint"`
}

func newStakeResponse(s *domain.UserStake) stakeResponse {
	return stakeResponse{
		Address:            s.Address,
		Pool:               s.Pool,
		Owner:              s.Owner,
		DepositedAmount:    s.DepositedAmount,
		AccumulatedRewards: s.AccumulatedRewards,
		RewardCheckpoint:   s.RewardCheckpoint,
	}
}

type positionResponse struct {
	stakeResponse
	PendingRewards uint64 `json:"pending_rewards,string"`
	Claimable      uint64 `json:"claimable,string"`
	AsOf           int64  `json:"as_of"`
}

func newPositionResponse(p *domain.Position) positionResponse {
	return positionResponse{
		stakeResponse:  newStakeResponse(p.Stake),
		PendingRewards: p.PendingRewards,
		Claimable:      p.Claimable,
		AsOf:           p.AsOf,
	}
}

type accountResponse struct {
	Address string `json:"address"`
	Owner   string `json:"owner"`
	Mint    string `json:"mint"`
	Amount  uint64 `json:"amount,string"`
}

func newAccountResponse(a *domain.TokenAccount) accountResponse {
	return accountResponse{
		Address: a.Address,
		Owner:   a.Owner,
		Mint:    a.Mint,
		Amount:  a.Amount,
	}
}

type vaultsResponse struct {
	Staking accountResponse `json:"staking"`
	Reward  accountResponse `json:"reward"`
}

type claimResponse struct {
	Claimed uint64 `json:"claimed,string"`
}

type addressResponse struct {
	Address string `json:"address"`
}

type totalsResponse struct {
	Pool   string            `json:"pool"`
	Totals map[string]string `json:"totals"`
}

func newEventMessages(list []*domain.LedgerEvent) []events.Message {
	msgs := make([]events.Message, 0, len(list))
	for _, e := range list {
		msgs = append(msgs, events.NewMessage(e))
	}
	return msgs
}

type divergenceResponse struct {
	Field    string `json:"field"`
	Expected string `json:"expected"`
	Actual   string `json:"actual"`
}

type auditResponse struct {
	Pool        string               `json:"pool"`
	Match       bool                 `json:"match"`
	Stakes      int                  `json:"stakes"`
	Events      int                  `json:"events"`
	Divergences []divergenceResponse `json:"divergences"`
}

func newAuditResponse(r *verification.AuditReport) auditResponse {
	resp := auditResponse{
		Pool:        r.Pool,
		Match:       r.Match,
		Stakes:      r.Stakes,
		Events:      r.Events,
		Divergences: make([]divergenceResponse, 0, len(r.Divergences)),
	}
	for _, d := range r.Divergences {
		resp.Divergences = append(resp.Divergences, divergenceResponse{
			Field:    d.Field,
			Expected: fmt.Sprint(d.Expected),
			Actual:   fmt.Sprint(d.Actual),
		})
	}
	return resp
}

// initializePoolRequest creates a pool. The intent is signed by the authority
// with Pool set to the derived pool address and Amount set to the reward rate.
type initializePoolRequest struct {
	StakingMint string      `json:"staking_mint"`
	RewardMint  string      `json:"reward_mint"`
	RewardRate  uint64      `json:"reward_rate,string"`
	Intent      auth.Intent `json:"intent"`
}

type creditAccountRequest struct {
	Owner  string `json:"owner"`
	Mint   string `json:"mint"`
	Amount uint64 `json:"amount,string"`
}
