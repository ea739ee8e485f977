package storage

import (
	"context"

	"solana-staking-ledger/internal/domain"
)

// EventStore provides analytics access to committed ledger events.
// It is fed after commit and is not part of the ledger's atomicity boundary.
type EventStore interface {
	// InsertBulk adds multiple events. Events whose event_id already exists are skipped.
	InsertBulk(ctx context.Context, events []*domain.LedgerEvent) error

	// GetByPool retrieves all events for a pool, ordered by sequence ASC.
	GetByPool(ctx context.Context, pool string) ([]*domain.LedgerEvent, error)

	// GetByTimeRange retrieves events for a pool within [start, end] (inclusive).
	GetByTimeRange(ctx context.Context, pool string, start, end int64) ([]*domain.LedgerEvent, error)

	// TotalsByKind sums event amounts per kind for a pool.
	TotalsByKind(ctx context.Context, pool string) (map[domain.EventKind]uint64, error)
}
