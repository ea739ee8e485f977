// Package verification audits a pool's stored records against each other and
// against its event log. A clean pool satisfies:
//
//   - TotalStaked equals the sum of every stake record's DepositedAmount
//   - the staking vault holds exactly TotalStaked
//   - event sequences run 1..EventSequence without gaps
//   - replaying the event log reproduces TotalStaked, each principal's
//     DepositedAmount and the reward vault balance
package verification

import (
	"context"
	"fmt"
	"math/bits"

	"solana-staking-ledger/internal/domain"
)

// FieldDivergence represents a mismatch between a stored value and the value
// derived from other records.
type FieldDivergence struct {
	Field    string      // checked quantity
	Expected interface{} // stored value
	Actual   interface{} // derived value
}

// AuditReport contains the result of auditing one pool.
type AuditReport struct {
	Pool        string
	Match       bool // true if no divergence was found
	Stakes      int  // stake records checked
	Events      int  // events replayed
	Divergences []FieldDivergence
}

// Ledger is the read side the auditor needs.
type Ledger interface {
	Pools(ctx context.Context) ([]*domain.StakingPool, error)
	Snapshot(ctx context.Context, pool string) (*domain.PoolSnapshot, error)
}

// Auditor checks pools for internal consistency.
type Auditor struct {
	ledger Ledger
}

// NewAuditor creates an Auditor over ledger.
func NewAuditor(ledger Ledger) *Auditor {
	return &Auditor{ledger: ledger}
}

// AuditPool audits a single pool.
func (a *Auditor) AuditPool(ctx context.Context, pool string) (*AuditReport, error) {
	snap, err := a.ledger.Snapshot(ctx, pool)
	if err != nil {
		return nil, err
	}
	return Audit(snap), nil
}

// AuditAll audits every pool in creation order.
func (a *Auditor) AuditAll(ctx context.Context) ([]*AuditReport, error) {
	pools, err := a.ledger.Pools(ctx)
	if err != nil {
		return nil, err
	}

	reports := make([]*AuditReport, 0, len(pools))
	for _, p := range pools {
		report, err := a.AuditPool(ctx, p.Address)
		if err != nil {
			return nil, fmt.Errorf("audit %s: %w", p.Address, err)
		}
		reports = append(reports, report)
	}
	return reports, nil
}

// Audit checks a snapshot. It never fails: every inconsistency, including
// arithmetic overflow while summing, is reported as a divergence.
func Audit(snap *domain.PoolSnapshot) *AuditReport {
	r := &AuditReport{
		Pool:   snap.Pool.Address,
		Stakes: len(snap.Stakes),
		Events: len(snap.Events),
	}
	pool := snap.Pool

	var deposited sum
	for _, s := range snap.Stakes {
		deposited.add(s.DepositedAmount)
	}
	r.compare("TotalStaked", pool.TotalStaked, deposited.value("sum of stake records"))

	if snap.StakingVault != nil {
		r.compare("StakingVault.Amount", pool.TotalStaked, snap.StakingVault.Amount)
	}

	r.compare("EventSequence", pool.EventSequence, uint64(len(snap.Events)))
	for i, e := range snap.Events {
		if e.Sequence != uint64(i+1) {
			r.diverge(fmt.Sprintf("Events[%d].Sequence", i), uint64(i+1), e.Sequence)
			break
		}
	}

	r.replay(snap)

	r.Match = len(r.Divergences) == 0
	return r
}

// replay folds the event log and compares the result to the stored records.
func (r *AuditReport) replay(snap *domain.PoolSnapshot) {
	var staked, unstaked, funded, claimed sum
	lastDeposit := make(map[string]uint64)

	for _, e := range snap.Events {
		switch e.Kind {
		case domain.EventStaked:
			staked.add(e.Amount)
		case domain.EventUnstaked:
			unstaked.add(e.Amount)
		case domain.EventClaimed:
			claimed.add(e.Amount)
		case domain.EventRewardsFunded:
			funded.add(e.Amount)
			continue
		default:
			continue
		}
		lastDeposit[e.Owner] = e.DepositedAmount
	}

	if len(snap.Events) > 0 {
		r.compare("TotalStaked (last event)", snap.Pool.TotalStaked, snap.Events[len(snap.Events)-1].TotalStaked)
	}
	r.compare("TotalStaked (replayed)", snap.Pool.TotalStaked, staked.minus(unstaked))

	if snap.RewardVault != nil {
		r.compare("RewardVault.Amount (replayed)", snap.RewardVault.Amount, funded.minus(claimed))
	}

	for _, s := range snap.Stakes {
		replayed, ok := lastDeposit[s.Owner]
		if !ok {
			r.diverge(fmt.Sprintf("Stake[%s] events", s.Owner), "at least one", "none")
			continue
		}
		r.compare(fmt.Sprintf("Stake[%s].DepositedAmount", s.Owner), s.DepositedAmount, replayed)
	}
}

func (r *AuditReport) compare(field string, expected uint64, actual interface{}) {
	if v, ok := actual.(uint64); ok && v == expected {
		return
	}
	r.diverge(field, expected, actual)
}

func (r *AuditReport) diverge(field string, expected, actual interface{}) {
	r.Divergences = append(r.Divergences, FieldDivergence{
		Field:    field,
		Expected: expected,
		Actual:   actual,
	})
}

// sum is a uint64 accumulator that remembers overflow.
type sum struct {
	v        uint64
	overflow bool
}

func (s *sum) add(x uint64) {
	var carry uint64
	s.v, carry = bits.Add64(s.v, x, 0)
	if carry != 0 {
		s.overflow = true
	}
}

// value returns the total, or a description of the overflow.
func (s sum) value(what string) interface{} {
	if s.overflow {
		return what + " overflows uint64"
	}
	return s.v
}

func (s sum) minus(o sum) interface{} {
	if s.overflow || o.overflow {
		return "replayed total overflows uint64"
	}
	if o.v > s.v {
		return fmt.Sprintf("negative (%d - %d)", s.v, o.v)
	}
	return s.v - o.v
}
