// Package clock provides the time source ledger operations settle rewards against.
package clock

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"solana-staking-ledger/internal/solana"
)

// ErrUnavailable is returned when the time source cannot produce a timestamp.
var ErrUnavailable = errors.New("clock unavailable")

// Clock returns the current unix time in seconds.
// An operation reads it once and uses that value throughout.
type Clock interface {
	Now(ctx context.Context) (int64, error)
}

// System reads the local wall clock.
type System struct{}

// Now returns time.Now in unix seconds.
func (System) Now(context.Context) (int64, error) {
	return time.Now().Unix(), nil
}

// Cluster reads the block time of the cluster's current slot.
type Cluster struct {
	client solana.ClusterClient
}

// NewCluster creates a Cluster clock over an RPC client.
func NewCluster(client solana.ClusterClient) *Cluster {
	return &Cluster{client: client}
}

// Now returns the estimated production time of the latest processed slot.
func (c *Cluster) Now(ctx context.Context) (int64, error) {
	slot, err := c.client.GetSlot(ctx)
	if err != nil {
		return 0, fmt.Errorf("%w: get slot: %v", ErrUnavailable, err)
	}
	ts, err := c.client.GetBlockTime(ctx, slot)
	if err != nil {
		return 0, fmt.Errorf("%w: get block time for slot %d: %v", ErrUnavailable, slot, err)
	}
	if ts == nil {
		return 0, fmt.Errorf("%w: no block time for slot %d", ErrUnavailable, slot)
	}
	return *ts, nil
}

// Monotonic never returns a value lower than one it returned before.
// Cluster block times are estimates and may step back slightly between slots.
type Monotonic struct {
	mu   sync.Mutex
	src  Clock
	last int64
}

// NewMonotonic wraps src.
func NewMonotonic(src Clock) *Monotonic {
	return &Monotonic{src: src}
}

// Now returns max(src.Now, previous result).
func (m *Monotonic) Now(ctx context.Context) (int64, error) {
	now, err := m.src.Now(ctx)
	if err != nil {
		return 0, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if now < m.last {
		return m.last, nil
	}
	m.last = now
	return now, nil
}

// Manual is a settable clock for tests and replays.
type Manual struct {
	mu  sync.Mutex
	now int64
}

// NewManual creates a Manual clock set to now.
func NewManual(now int64) *Manual {
	return &Manual{now: now}
}

// Now returns the current setting.
func (m *Manual) Now(context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now, nil
}

// Set moves the clock to now. Moving backwards is allowed.
func (m *Manual) Set(now int64) {
	m.mu.Lock()
	m.now = now
	m.mu.Unlock()
}

// Advance moves the clock forward by seconds.
func (m *Manual) Advance(seconds int64) {
	m.mu.Lock()
	m.now += seconds
	m.mu.Unlock()
}

// Verify interface compliance at compile time.
var (
	_ Clock = System{}
	_ Clock = (*Cluster)(nil)
	_ Clock = (*Monotonic)(nil)
	_ Clock = (*Manual)(nil)
)
