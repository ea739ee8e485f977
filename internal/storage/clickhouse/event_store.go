package clickhouse

import (
	"context"
	"fmt"

	"solana-staking-ledger/internal/domain"
	"solana-staking-ledger/internal/storage"
)

// EventStore implements storage.EventStore using ClickHouse.
type EventStore struct {
	conn *Conn
}

// NewEventStore creates a new EventStore.
func NewEventStore(conn *Conn) *EventStore {
	return &EventStore{conn: conn}
}

// Compile-time interface check.
var _ storage.EventStore = (*EventStore)(nil)

type eventRow struct {
	EventID            string `ch:"event_id"`
	Kind               string `ch:"kind"`
	Pool               string `ch:"pool"`
	Owner              string `ch:"owner"`
	Amount             uint64 `ch:"amount"`
	Settled            uint64 `ch:"settled"`
	Timestamp          int64  `ch:"ts"`
	Sequence           uint64 `ch:"sequence"`
	DepositedAmount    uint64 `ch:"deposited_amount"`
	AccumulatedRewards uint64 `ch:"accumulated_rewards"`
	TotalStaked        uint64 `ch:"total_staked"`
}

func (r eventRow) toDomain() *domain.LedgerEvent {
	return &domain.LedgerEvent{
		EventID:            r.EventID,
		Kind:               domain.EventKind(r.Kind),
		Pool:               r.Pool,
		Owner:              r.Owner,
		Amount:             r.Amount,
		Settled:            r.Settled,
		Timestamp:          r.Timestamp,
		Sequence:           r.Sequence,
		DepositedAmount:    r.DepositedAmount,
		AccumulatedRewards: r.AccumulatedRewards,
		TotalStaked:        r.TotalStaked,
	}
}

const selectEvents = `
	SELECT event_id, kind, pool, owner, amount, settled, ts, sequence,
		deposited_amount, accumulated_rewards, total_staked
	FROM ledger_events FINAL
`

// InsertBulk adds multiple events. Events already stored, or repeated within
// the batch, are skipped so redelivery after a partial failure is harmless.
func (s *EventStore) InsertBulk(ctx context.Context, events []*domain.LedgerEvent) error {
	if len(events) == 0 {
		return nil
	}

	ids := make([]string, 0, len(events))
	for _, e := range events {
		if e == nil || e.EventID == "" {
			return storage.ErrInvalidInput
		}
		ids = append(ids, e.EventID)
	}

	existing, err := s.existingIDs(ctx, ids)
	if err != nil {
		return fmt.Errorf("check existing events: %w", err)
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO ledger_events (
			event_id, kind, pool, owner, amount, settled, ts, sequence,
			deposited_amount, accumulated_rewards, total_staked
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	pending := 0
	for _, e := range events {
		if _, ok := existing[e.EventID]; ok {
			continue
		}
		existing[e.EventID] = struct{}{}

		err = batch.Append(
			e.EventID, string(e.Kind), e.Pool, e.Owner, e.Amount, e.Settled, e.Timestamp, e.Sequence,
			e.DepositedAmount, e.AccumulatedRewards, e.TotalStaked,
		)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
		pending++
	}

	if pending == 0 {
		return batch.Abort()
	}
	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}
	return nil
}

// GetByPool retrieves all events for a pool, ordered by sequence ASC.
func (s *EventStore) GetByPool(ctx context.Context, pool string) ([]*domain.LedgerEvent, error) {
	return s.query(ctx, selectEvents+` WHERE pool = ? ORDER BY sequence ASC`, pool)
}

// GetByTimeRange retrieves events for a pool within [start, end] (inclusive).
func (s *EventStore) GetByTimeRange(ctx context.Context, pool string, start, end int64) ([]*domain.LedgerEvent, error) {
	return s.query(ctx, selectEvents+` WHERE pool = ? AND ts >= ? AND ts <= ? ORDER BY sequence ASC`, pool, start, end)
}

// TotalsByKind sums event amounts per kind for a pool.
func (s *EventStore) TotalsByKind(ctx context.Context, pool string) (map[domain.EventKind]uint64, error) {
	rows, err := s.conn.Query(ctx, `
		SELECT kind, sum(amount) AS total
		FROM ledger_events FINAL
		WHERE pool = ?
		GROUP BY kind
	`, pool)
	if err != nil {
		return nil, fmt.Errorf("query totals: %w", err)
	}
	defer rows.Close()

	totals := make(map[domain.EventKind]uint64)
	for rows.Next() {
		var (
			kind  string
			total uint64
		)
		if err := rows.Scan(&kind, &total); err != nil {
			return nil, fmt.Errorf("scan totals: %w", err)
		}
		totals[domain.EventKind(kind)] = total
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate totals: %w", err)
	}
	return totals, nil
}

func (s *EventStore) query(ctx context.Context, query string, args ...any) ([]*domain.LedgerEvent, error) {
	var rows []eventRow
	if err := s.conn.Select(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}

	result := make([]*domain.LedgerEvent, 0, len(rows))
	for _, r := range rows {
		result = append(result, r.toDomain())
	}
	return result, nil
}

func (s *EventStore) existingIDs(ctx context.Context, ids []string) (map[string]struct{}, error) {
	rows, err := s.conn.Query(ctx, `SELECT DISTINCT event_id FROM ledger_events WHERE has(?, event_id)`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	existing := make(map[string]struct{}, len(ids))
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		existing[id] = struct{}{}
	}
	return existing, rows.Err()
}
