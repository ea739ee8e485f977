package clickhouse

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solana-staking-ledger/internal/domain"
	"solana-staking-ledger/internal/storage"
)

func testEvent(id, pool string, seq uint64, kind domain.EventKind, amount uint64, ts int64) *domain.LedgerEvent {
	return &domain.LedgerEvent{
		EventID:     id,
		Kind:        kind,
		Pool:        pool,
		Owner:       "owner-1",
		Amount:      amount,
		Timestamp:   ts,
		Sequence:    seq,
		TotalStaked: math.MaxUint64,
	}
}

func TestEventStore_InsertBulkSkipsExisting(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewEventStore(conn)
	ctx := context.Background()

	first := []*domain.LedgerEvent{
		testEvent("e1", "pool-1", 1, domain.EventPoolInitialized, 0, 100),
		testEvent("e2", "pool-1", 2, domain.EventStaked, 500, 110),
	}
	require.NoError(t, store.InsertBulk(ctx, first))

	second := []*domain.LedgerEvent{
		testEvent("e2", "pool-1", 2, domain.EventStaked, 500, 110),
		testEvent("e3", "pool-1", 3, domain.EventClaimed, 40, 120),
		testEvent("e3", "pool-1", 3, domain.EventClaimed, 40, 120),
	}
	require.NoError(t, store.InsertBulk(ctx, second))

	got, err := store.GetByPool(ctx, "pool-1")
	require.NoError(t, err)
	require.Len(t, got, 3)
	for i, e := range got {
		assert.Equal(t, uint64(i+1), e.Sequence)
	}
	assert.Equal(t, uint64(math.MaxUint64), got[1].TotalStaked)

	require.NoError(t, store.InsertBulk(ctx, first))
	got, err = store.GetByPool(ctx, "pool-1")
	require.NoError(t, err)
	assert.Len(t, got, 3)
}

func TestEventStore_InsertBulkInvalid(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewEventStore(conn)
	err := store.InsertBulk(context.Background(), []*domain.LedgerEvent{{Pool: "pool-1"}})
	assert.ErrorIs(t, err, storage.ErrInvalidInput)
}

func TestEventStore_QueriesAndTotals(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewEventStore(conn)
	ctx := context.Background()

	require.NoError(t, store.InsertBulk(ctx, []*domain.LedgerEvent{
		testEvent("a1", "pool-a", 1, domain.EventStaked, 100, 10),
		testEvent("a2", "pool-a", 2, domain.EventStaked, 250, 20),
		testEvent("a3", "pool-a", 3, domain.EventUnstaked, 50, 30),
		testEvent("b1", "pool-b", 1, domain.EventStaked, 999, 20),
	}))

	ranged, err := store.GetByTimeRange(ctx, "pool-a", 20, 30)
	require.NoError(t, err)
	require.Len(t, ranged, 2)
	assert.Equal(t, "a2", ranged[0].EventID)
	assert.Equal(t, "a3", ranged[1].EventID)

	totals, err := store.TotalsByKind(ctx, "pool-a")
	require.NoError(t, err)
	assert.Equal(t, map[domain.EventKind]uint64{
		domain.EventStaked:   350,
		domain.EventUnstaked: 50,
	}, totals)

	empty, err := store.GetByPool(ctx, "pool-missing")
	require.NoError(t, err)
	assert.Empty(t, empty)
}
